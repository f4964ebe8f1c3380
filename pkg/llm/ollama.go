package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"strings"
)

const (
	// DefaultOllamaURL is used when no base URL is configured.
	DefaultOllamaURL = "http://172.18.120.18:11434"

	// APIVersionPath is the path segment of the OpenAI-compatible API.
	APIVersionPath = "/v1"

	// ollamaAPIKey is a placeholder. Ollama ignores it but the protocol
	// requires a non-empty credential.
	ollamaAPIKey = "ollama"
)

// ErrorSentinel is the single fragment produced by Response when the
// backend cannot be reached or the stream breaks.
const ErrorSentinel = "【Ollama服务响应异常】"

// ErrorSentinelFormat formats the text half of the single pair produced by
// ResponseWithFunctions on backend failure.
const ErrorSentinelFormat = "【Ollama服务响应异常: %v】"

// OllamaConfig holds configuration for the Ollama provider.
type OllamaConfig struct {
	ModelName string `yaml:"model_name"` // forwarded to the backend as-is
	BaseURL   string `yaml:"base_url"`   // e.g., "http://localhost:11434"
}

// OllamaConfigFromMap reads the recognized keys from a generic config
// mapping. Other keys and non-string values are ignored.
func OllamaConfigFromMap(m map[string]any) OllamaConfig {
	var cfg OllamaConfig
	if v, ok := m["model_name"].(string); ok {
		cfg.ModelName = v
	}
	if v, ok := m["base_url"].(string); ok {
		cfg.BaseURL = v
	}
	return cfg
}

// NormalizeBaseURL applies the default URL, strips one trailing slash and
// appends APIVersionPath unless the URL already ends with it.
func NormalizeBaseURL(raw string) string {
	if raw == "" {
		raw = DefaultOllamaURL
	}
	raw = strings.TrimSuffix(raw, "/")
	if !strings.HasSuffix(raw, APIVersionPath) {
		raw += APIVersionPath
	}
	return raw
}

// Option configures an OllamaProvider.
type Option func(*OllamaProvider)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *OllamaProvider) {
		p.logger = logger
	}
}

// WithChunkSource replaces the OpenAI-compatible HTTP source.
func WithChunkSource(source ChunkSource) Option {
	return func(p *OllamaProvider) {
		p.source = source
	}
}

// OllamaProvider connects to Ollama via its OpenAI-compatible API.
// It holds no per-call state and may be shared by concurrent callers.
type OllamaProvider struct {
	baseURL string
	model   string
	source  ChunkSource
	logger  *slog.Logger
}

// NewOllamaProvider creates a new Ollama provider. The base URL is
// normalized once here.
func NewOllamaProvider(cfg OllamaConfig, opts ...Option) *OllamaProvider {
	p := &OllamaProvider{
		baseURL: NormalizeBaseURL(cfg.BaseURL),
		model:   cfg.ModelName,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	p.logger = p.logger.With("component", "ollama")
	if p.source == nil {
		p.source = NewOpenAISource(p.baseURL, ollamaAPIKey)
	}

	p.logger.Debug("ollama provider initialized", "base_url", p.baseURL, "model", p.model)
	return p
}

// Name returns the provider identifier.
func (p *OllamaProvider) Name() string {
	return "ollama"
}

// BaseURL returns the normalized API base URL.
func (p *OllamaProvider) BaseURL() string {
	return p.baseURL
}

// Model returns the configured model name.
func (p *OllamaProvider) Model() string {
	return p.model
}

// Response streams the user-facing text of the model's answer.
//
// Each call opens its own backend stream and filter. Chunks are read only as
// the consumer pulls; breaking out of the range loop closes the stream before
// the iterator returns. If the stream cannot be opened or breaks midway, a
// single ErrorSentinel fragment is produced and the sequence ends. Fragments
// already produced are not retracted.
func (p *OllamaProvider) Response(ctx context.Context, sessionID string, dialogue []Message) iter.Seq[string] {
	return func(yield func(string) bool) {
		log := p.logger.With("session_id", sessionID)
		log.Info("generating response", "model", p.model, "message_count", len(dialogue))

		stream, err := p.source.OpenStream(ctx, StreamRequest{
			Model:    p.model,
			Messages: dialogue,
		})
		if err != nil {
			log.Error("ollama stream failed", "err", err, "message_count", len(dialogue))
			yield(ErrorSentinel)
			return
		}
		defer p.closeStream(log, stream)
		log.Debug("chat completion stream opened")

		filter := NewThinkFilter()
		for {
			chunk, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				log.Debug("stream finished")
				return
			}
			if errors.Is(err, ErrMalformedChunk) {
				log.Error("skipping chunk", "err", err)
				continue
			}
			if err != nil {
				if ctx.Err() != nil {
					log.Debug("stream canceled", "err", err)
					return
				}
				log.Error("ollama stream failed", "err", err, "message_count", len(dialogue))
				yield(ErrorSentinel)
				return
			}

			content := chunkContent(chunk)
			log.Debug("chunk received", "content", content)

			out, ok := filter.Push(content)
			if !ok {
				continue
			}
			if !yield(out) {
				log.Debug("consumer stopped reading")
				return
			}
		}
	}
}

// ResponseWithFunctions streams (text, tool calls) pairs, one per chunk,
// without thinking-segment filtering. Chunks without a choice are logged and
// skipped. On backend failure a single pair carrying the formatted error
// sentinel and nil tool calls is produced and the sequence ends.
func (p *OllamaProvider) ResponseWithFunctions(ctx context.Context, sessionID string, dialogue []Message, functions []Tool) iter.Seq2[string, []ToolCall] {
	return func(yield func(string, []ToolCall) bool) {
		log := p.logger.With("session_id", sessionID)
		log.Info("generating response with functions",
			"model", p.model,
			"message_count", len(dialogue),
			"tool_count", len(functions),
		)

		stream, err := p.source.OpenStream(ctx, StreamRequest{
			Model:    p.model,
			Messages: dialogue,
			Tools:    functions,
		})
		if err != nil {
			log.Error("ollama function call failed", "err", err, "message_count", len(dialogue))
			yield(fmt.Sprintf(ErrorSentinelFormat, err), nil)
			return
		}
		defer p.closeStream(log, stream)
		log.Debug("chat completion stream opened")

		for {
			chunk, err := stream.Recv()
			switch {
			case errors.Is(err, io.EOF):
				log.Debug("stream finished")
				return
			case errors.Is(err, ErrMalformedChunk):
				log.Error("skipping chunk", "err", err)
				continue
			case err != nil:
				if ctx.Err() != nil {
					log.Debug("stream canceled", "err", err)
					return
				}
				log.Error("ollama function call failed", "err", err, "message_count", len(dialogue))
				yield(fmt.Sprintf(ErrorSentinelFormat, err), nil)
				return
			}

			delta, err := chunkDelta(chunk)
			if err != nil {
				log.Error("skipping chunk", "err", err)
				continue
			}
			log.Debug("chunk received", "content", delta.Content, "tool_calls", len(delta.ToolCalls))

			if !yield(delta.Content, delta.ToolCalls) {
				log.Debug("consumer stopped reading")
				return
			}
		}
	}
}

func (p *OllamaProvider) closeStream(log *slog.Logger, stream ChunkStream) {
	if err := stream.Close(); err != nil {
		log.Debug("close stream", "err", err)
	}
}

// chunkContent returns the text delta of the first choice, or "" when the
// chunk has none.
func chunkContent(chunk Chunk) string {
	if len(chunk.Choices) == 0 {
		return ""
	}
	return chunk.Choices[0].Delta.Content
}

// chunkDelta returns the delta of the first choice.
func chunkDelta(chunk Chunk) (Delta, error) {
	if len(chunk.Choices) == 0 {
		return Delta{}, fmt.Errorf("%w: no choices", ErrMalformedChunk)
	}
	return chunk.Choices[0].Delta, nil
}

var _ Provider = (*OllamaProvider)(nil)
