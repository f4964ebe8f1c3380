package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAISource streams chat completions from an OpenAI-compatible endpoint.
type OpenAISource struct {
	api *openai.Client
}

// NewOpenAISource creates a source bound to baseURL (which must already
// include the API version path).
func NewOpenAISource(baseURL, apiKey string) *OpenAISource {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = baseURL

	return &OpenAISource{
		api: openai.NewClientWithConfig(cfg),
	}
}

// OpenStream starts a streaming chat completion. Tools are sent only when
// req.Tools is non-empty.
func (s *OpenAISource) OpenStream(ctx context.Context, req StreamRequest) (ChunkStream, error) {
	messages := make([]openai.ChatCompletionMessage, len(req.Messages))
	for i, m := range req.Messages {
		messages[i] = mapToOpenAI(m)
	}

	apiReq := openai.ChatCompletionRequest{
		Model:    req.Model,
		Messages: messages,
		Stream:   true,
	}
	if len(req.Tools) > 0 {
		apiReq.Tools = convertToolsToOpenAI(req.Tools)
	}

	stream, err := s.api.CreateChatCompletionStream(ctx, apiReq)
	if err != nil {
		return nil, fmt.Errorf("create chat completion stream: %w", err)
	}
	return &openAIStream{stream: stream}, nil
}

type openAIStream struct {
	stream *openai.ChatCompletionStream
}

// Recv reads the next chunk. A chunk that fails to decode is reported as
// ErrMalformedChunk; the stream stays usable afterwards.
func (s *openAIStream) Recv() (Chunk, error) {
	resp, err := s.stream.Recv()
	if err != nil {
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
			return Chunk{}, fmt.Errorf("%w: %v", ErrMalformedChunk, err)
		}
		return Chunk{}, err
	}

	chunk := Chunk{Choices: make([]ChunkChoice, len(resp.Choices))}
	for i, c := range resp.Choices {
		chunk.Choices[i] = ChunkChoice{
			Delta: Delta{
				Content:   c.Delta.Content,
				ToolCalls: mapToolCallsFromOpenAI(c.Delta.ToolCalls),
			},
			FinishReason: string(c.FinishReason),
		}
	}
	return chunk, nil
}

func (s *openAIStream) Close() error {
	return s.stream.Close()
}

// mapToOpenAI converts a dialogue message to the SDK format.
func mapToOpenAI(m Message) openai.ChatCompletionMessage {
	msg := openai.ChatCompletionMessage{
		Role:       m.Role,
		Content:    m.Content,
		Name:       m.Name,
		ToolCallID: m.ToolCallID,
	}
	if len(m.ToolCalls) > 0 {
		msg.ToolCalls = make([]openai.ToolCall, len(m.ToolCalls))
		for i, tc := range m.ToolCalls {
			msg.ToolCalls[i] = openai.ToolCall{
				Index: tc.Index,
				ID:    tc.ID,
				Type:  openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      tc.Name,
					Arguments: tc.Arguments,
				},
			}
		}
	}
	return msg
}

// convertToolsToOpenAI declares tools as OpenAI functions. Parameters are
// passed through as a JSON Schema value.
func convertToolsToOpenAI(defs []Tool) []openai.Tool {
	result := make([]openai.Tool, len(defs))
	for i, def := range defs {
		result[i] = openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        def.Name,
				Description: def.Description,
				Parameters:  def.Parameters,
			},
		}
	}
	return result
}

func mapToolCallsFromOpenAI(calls []openai.ToolCall) []ToolCall {
	if len(calls) == 0 {
		return nil
	}
	result := make([]ToolCall, len(calls))
	for i, tc := range calls {
		result[i] = ToolCall{
			Index:     tc.Index,
			ID:        tc.ID,
			Type:      string(tc.Type),
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		}
	}
	return result
}

var _ ChunkSource = (*OpenAISource)(nil)
