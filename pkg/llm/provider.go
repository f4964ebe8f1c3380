// Package llm adapts chat-completion backends to the streaming contract used
// by the orchestration layer.
package llm

import (
	"context"
	"errors"
	"iter"
)

// Provider streams model output for a dialogue.
//
// Neither method returns an error: failures surface as values inside the
// produced sequence, so callers that cannot handle errors mid-stream (audio
// playback, UI rendering) can consume them directly.
type Provider interface {
	// Response streams user-facing text fragments with thinking segments removed.
	Response(ctx context.Context, sessionID string, dialogue []Message) iter.Seq[string]

	// ResponseWithFunctions streams raw (text, tool calls) pairs, one per chunk.
	ResponseWithFunctions(ctx context.Context, sessionID string, dialogue []Message, functions []Tool) iter.Seq2[string, []ToolCall]

	// Name returns the provider identifier (e.g., "ollama").
	Name() string
}

// Message represents a conversation message. It is forwarded to the backend
// unmodified.
type Message struct {
	Role       string     `yaml:"role" json:"role"` // "system", "user", "assistant", "tool"
	Content    string     `yaml:"content" json:"content"`
	Name       string     `yaml:"name,omitempty" json:"name,omitempty"`
	ToolCallID string     `yaml:"tool_call_id,omitempty" json:"tool_call_id,omitempty"`
	ToolCalls  []ToolCall `yaml:"tool_calls,omitempty" json:"tool_calls,omitempty"`
}

// Tool declares a function the model may call.
type Tool struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
	Parameters  any    `yaml:"parameters" json:"parameters"` // JSON Schema object
}

// ToolCall is one tool-call fragment as streamed by the backend. Arguments
// arrive in pieces across chunks and are never reassembled here.
type ToolCall struct {
	Index     *int   `yaml:"index,omitempty" json:"index,omitempty"`
	ID        string `yaml:"id,omitempty" json:"id,omitempty"`
	Type      string `yaml:"type,omitempty" json:"type,omitempty"`
	Name      string `yaml:"name,omitempty" json:"name,omitempty"`
	Arguments string `yaml:"arguments,omitempty" json:"arguments,omitempty"`
}

// Role constants.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// StreamRequest is what a provider asks a ChunkSource to stream.
type StreamRequest struct {
	Model    string
	Messages []Message
	Tools    []Tool // nil for plain responses
}

// Chunk is one incremental unit of a streamed completion.
type Chunk struct {
	Choices []ChunkChoice
}

// ChunkChoice carries the delta for one choice index.
type ChunkChoice struct {
	Delta        Delta
	FinishReason string
}

// Delta is the incremental piece of the assistant message.
type Delta struct {
	Content   string
	ToolCalls []ToolCall
}

// ErrMalformedChunk reports a chunk that does not carry a delta.
var ErrMalformedChunk = errors.New("malformed chunk")

// ChunkSource opens streamed chat completions.
type ChunkSource interface {
	OpenStream(ctx context.Context, req StreamRequest) (ChunkStream, error)
}

// ChunkStream is an open completion stream. Recv returns io.EOF once the
// backend has finished. Close releases the underlying connection and must be
// safe to call after io.EOF.
type ChunkStream interface {
	Recv() (Chunk, error)
	Close() error
}
