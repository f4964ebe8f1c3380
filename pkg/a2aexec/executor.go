// Package a2aexec serves an llm.Provider to orchestration layers over A2A.
package a2aexec

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/a2aproject/a2a-go/a2a"
	"github.com/a2aproject/a2a-go/a2asrv"
	"github.com/a2aproject/a2a-go/a2asrv/eventqueue"
	"golang.org/x/time/rate"

	"github.com/shanemcd/ollama-adapter/pkg/control"
	"github.com/shanemcd/ollama-adapter/pkg/llm"
)

// Executor implements a2asrv.AgentExecutor on top of llm.Provider.Response.
type Executor struct {
	// Provider generates the response text.
	Provider llm.Provider

	// Streaming sends each fragment as a working status update. When false
	// the fragments are joined into one agent message.
	Streaming bool

	// State, if set, counts open streams and refuses work while draining.
	State *control.State

	// Limiter, if set, paces requests to the backend. A request whose
	// context ends while waiting fails the task.
	Limiter *rate.Limiter

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// NewExecutor creates a streaming Executor for the given provider.
func NewExecutor(provider llm.Provider) *Executor {
	return &Executor{
		Provider:  provider,
		Streaming: true,
	}
}

// Execute implements a2asrv.AgentExecutor.
// The A2A context ID is used as the provider session ID.
func (e *Executor) Execute(ctx context.Context, reqCtx *a2asrv.RequestContext, q eventqueue.Queue) error {
	log := e.logger().With("task_id", reqCtx.TaskID, "context_id", reqCtx.ContextID)

	if e.State != nil {
		if !e.State.BeginStream() {
			log.Warn("request refused", "phase", e.State.Phase().String())
			return writeFailure(ctx, reqCtx, q, "adapter is shutting down")
		}
		defer e.State.EndStream()
	}

	dialogue := buildDialogue(reqCtx)
	if len(dialogue) == 0 {
		return writeFailure(ctx, reqCtx, q, "message has no text parts")
	}
	if e.Limiter != nil {
		if err := e.Limiter.Wait(ctx); err != nil {
			log.Warn("request not admitted", "err", err)
			return writeFailure(ctx, reqCtx, q, "adapter is rate limited")
		}
	}
	log.Debug("executing", "streaming", e.Streaming, "message_count", len(dialogue))

	fragments := e.Provider.Response(ctx, reqCtx.ContextID, dialogue)

	if !e.Streaming {
		var b strings.Builder
		for fragment := range fragments {
			b.WriteString(fragment)
		}
		if err := ctx.Err(); err != nil {
			log.Debug("request canceled", "err", err)
			return err
		}
		return q.Write(ctx, a2a.NewMessage(a2a.MessageRoleAgent, a2a.TextPart{Text: b.String()}))
	}

	if reqCtx.StoredTask == nil {
		if err := q.Write(ctx, a2a.NewSubmittedTask(reqCtx, reqCtx.Message)); err != nil {
			return fmt.Errorf("write submitted task: %w", err)
		}
	}

	count := 0
	for fragment := range fragments {
		event := a2a.NewStatusUpdateEvent(reqCtx, a2a.TaskStateWorking,
			a2a.NewMessage(a2a.MessageRoleAgent, a2a.TextPart{Text: fragment}))
		if err := q.Write(ctx, event); err != nil {
			// Leaving the loop closes the backend stream.
			return fmt.Errorf("write fragment: %w", err)
		}
		count++
	}
	// A canceled request ends the backend stream quietly. Cancel reports
	// the terminal state.
	if err := ctx.Err(); err != nil {
		log.Debug("request canceled", "fragments", count, "err", err)
		return err
	}
	log.Debug("response streamed", "fragments", count)

	done := a2a.NewStatusUpdateEvent(reqCtx, a2a.TaskStateCompleted, nil)
	done.Final = true
	return q.Write(ctx, done)
}

// Cancel implements a2asrv.AgentExecutor.
// The running Execute observes cancellation through its context.
func (e *Executor) Cancel(ctx context.Context, reqCtx *a2asrv.RequestContext, q eventqueue.Queue) error {
	event := a2a.NewStatusUpdateEvent(reqCtx, a2a.TaskStateCanceled, nil)
	event.Final = true
	return q.Write(ctx, event)
}

func (e *Executor) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}

func writeFailure(ctx context.Context, reqCtx *a2asrv.RequestContext, q eventqueue.Queue, reason string) error {
	failEvent := a2a.NewStatusUpdateEvent(reqCtx, a2a.TaskStateFailed, &a2a.Message{
		Role: a2a.MessageRoleAgent,
		Parts: []a2a.Part{
			a2a.TextPart{Text: reason},
		},
	})
	failEvent.Final = true
	return q.Write(ctx, failEvent)
}

// buildDialogue maps the stored task history plus the incoming message to
// provider messages. Non-text parts are ignored.
func buildDialogue(reqCtx *a2asrv.RequestContext) []llm.Message {
	var dialogue []llm.Message
	if reqCtx.StoredTask != nil {
		for _, msg := range reqCtx.StoredTask.History {
			if m, ok := toLLMMessage(msg); ok {
				dialogue = append(dialogue, m)
			}
		}
	}
	if m, ok := toLLMMessage(reqCtx.Message); ok {
		dialogue = append(dialogue, m)
	}
	return dialogue
}

func toLLMMessage(msg *a2a.Message) (llm.Message, bool) {
	if msg == nil {
		return llm.Message{}, false
	}

	var texts []string
	for _, part := range msg.Parts {
		if text, ok := part.(a2a.TextPart); ok && text.Text != "" {
			texts = append(texts, text.Text)
		}
	}
	if len(texts) == 0 {
		return llm.Message{}, false
	}

	role := llm.RoleUser
	if msg.Role == a2a.MessageRoleAgent {
		role = llm.RoleAssistant
	}
	return llm.Message{Role: role, Content: strings.Join(texts, "\n")}, true
}
