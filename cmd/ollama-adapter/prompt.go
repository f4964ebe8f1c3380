package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/a2aproject/a2a-go/a2a"
	"github.com/a2aproject/a2a-go/a2aclient"
)

// PromptCmd sends a prompt to a peer via A2A.
type PromptCmd struct {
	Peer    string `arg:"" help:"Peer address or name"`
	Message string `arg:"" help:"Message to send"`
	Stream  bool   `help:"Use streaming response" short:"s"`
}

// Run executes the prompt command.
func (c *PromptCmd) Run(cli *CLI) error {
	addr := cli.ResolvePeer(c.Peer)
	slog.Debug("sending prompt", "addr", addr, "streaming", c.Stream)

	conn, err := ConnectToPeer(addr)
	if err != nil {
		return err
	}
	defer conn.Close()

	transport := conn.A2ATransport()
	defer transport.Destroy()

	ctx := context.Background()
	if c.Stream {
		return doStreamingPrompt(ctx, os.Stdout, transport, c.Message)
	}
	return doPrompt(ctx, os.Stdout, transport, c.Message)
}

func doPrompt(ctx context.Context, w io.Writer, transport a2aclient.Transport, content string) error {
	msg := a2a.NewMessage(a2a.MessageRoleUser, a2a.TextPart{Text: content})
	resp, err := transport.SendMessage(ctx, &a2a.MessageSendParams{Message: msg})
	if err != nil {
		return fmt.Errorf("send message failed: %w", err)
	}

	switch r := resp.(type) {
	case *a2a.Task:
		printTask(w, r)
	case *a2a.Message:
		printMessage(w, r)
	default:
		fmt.Fprintf(w, "Response: %+v\n", resp)
	}
	return nil
}

func doStreamingPrompt(ctx context.Context, w io.Writer, transport a2aclient.Transport, content string) error {
	msg := a2a.NewMessage(a2a.MessageRoleUser, a2a.TextPart{Text: content})
	events := transport.SendStreamingMessage(ctx, &a2a.MessageSendParams{Message: msg})

	for event, err := range events {
		if err != nil {
			return fmt.Errorf("streaming error: %w", err)
		}

		switch e := event.(type) {
		case *a2a.TaskStatusUpdateEvent:
			if e.Status.State == a2a.TaskStateFailed {
				fmt.Fprintln(w)
				return fmt.Errorf("task failed: %s", messageText(e.Status.Message))
			}
			fmt.Fprint(w, messageText(e.Status.Message))
		case *a2a.Message:
			fmt.Fprint(w, messageText(e))
		case *a2a.TaskArtifactUpdateEvent:
			fmt.Fprintf(w, "\n[artifact] %s\n", e.Artifact.Name)
		}
	}
	fmt.Fprintln(w)
	return nil
}

// messageText concatenates the text parts of msg.
func messageText(msg *a2a.Message) string {
	if msg == nil {
		return ""
	}
	var text string
	for _, part := range msg.Parts {
		if p, ok := part.(a2a.TextPart); ok {
			text += p.Text
		}
	}
	return text
}

func printTask(w io.Writer, task *a2a.Task) {
	fmt.Fprintf(w, "Task:\n")
	fmt.Fprintf(w, "  ID:    %s\n", task.ID)
	fmt.Fprintf(w, "  State: %s\n", task.Status.State)
	if task.Status.Message != nil {
		printMessage(w, task.Status.Message)
	}
}

func printMessage(w io.Writer, msg *a2a.Message) {
	fmt.Fprintf(w, "Message (role=%s):\n", msg.Role)
	for _, part := range msg.Parts {
		switch p := part.(type) {
		case a2a.TextPart:
			fmt.Fprintf(w, "  %s\n", p.Text)
		default:
			fmt.Fprintf(w, "  [%T]\n", part)
		}
	}
}
