package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/shanemcd/ollama-adapter/pkg/llm"
)

// ChatCmd streams a single response from the configured provider.
type ChatCmd struct {
	Message string `arg:"" help:"User message"`
	System  string `help:"System prompt"`
	Session string `help:"Session ID (generated when empty)"`
	Tools   string `help:"YAML file with function declarations; prints tool calls unfiltered" type:"existingfile"`
}

// Run executes the chat command.
func (c *ChatCmd) Run(cli *CLI) error {
	provider, err := cli.CreateLLMProvider()
	if err != nil {
		return fmt.Errorf("create LLM provider: %w", err)
	}

	session := c.Session
	if session == "" {
		session = uuid.NewString()
	}

	var tools []llm.Tool
	if c.Tools != "" {
		tools, err = LoadTools(c.Tools)
		if err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	slog.Debug("chat", "provider", provider.Name(), "session_id", session, "tools", len(tools))

	dialogue := c.dialogue()
	if c.Tools != "" {
		return streamWithFunctions(ctx, os.Stdout, provider, session, dialogue, tools)
	}
	return streamText(ctx, os.Stdout, provider, session, dialogue)
}

func (c *ChatCmd) dialogue() []llm.Message {
	var dialogue []llm.Message
	if c.System != "" {
		dialogue = append(dialogue, llm.Message{Role: llm.RoleSystem, Content: c.System})
	}
	return append(dialogue, llm.Message{Role: llm.RoleUser, Content: c.Message})
}

// LoadTools reads function declarations from a YAML file.
func LoadTools(path string) ([]llm.Tool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tools file: %w", err)
	}

	var tools []llm.Tool
	if err := yaml.Unmarshal(data, &tools); err != nil {
		return nil, fmt.Errorf("parse tools file: %w", err)
	}

	for i, tool := range tools {
		if tool.Name == "" {
			return nil, fmt.Errorf("tool %d: missing name", i)
		}
	}
	return tools, nil
}

func streamText(ctx context.Context, w io.Writer, provider llm.Provider, session string, dialogue []llm.Message) error {
	for fragment := range provider.Response(ctx, session, dialogue) {
		if _, err := io.WriteString(w, fragment); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
	}
	_, err := fmt.Fprintln(w)
	return err
}

func streamWithFunctions(ctx context.Context, w io.Writer, provider llm.Provider, session string, dialogue []llm.Message, tools []llm.Tool) error {
	for text, calls := range provider.ResponseWithFunctions(ctx, session, dialogue, tools) {
		if _, err := io.WriteString(w, text); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		for _, call := range calls {
			fmt.Fprintf(w, "\n[tool_call] %s\n", formatToolCall(call))
		}
	}
	_, err := fmt.Fprintln(w)
	return err
}

// formatToolCall renders a possibly partial tool-call fragment.
func formatToolCall(call llm.ToolCall) string {
	index := "-"
	if call.Index != nil {
		index = fmt.Sprint(*call.Index)
	}
	return fmt.Sprintf("index=%s id=%q name=%q arguments=%q", index, call.ID, call.Name, call.Arguments)
}
