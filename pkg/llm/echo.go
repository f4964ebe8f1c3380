package llm

import (
	"context"
	"io"
	"strings"
)

// EchoSource is a chunk source that streams the last user message back,
// one word per chunk. It needs no backend and is used for offline runs.
type EchoSource struct{}

// NewEchoSource creates a new echo source.
func NewEchoSource() *EchoSource {
	return &EchoSource{}
}

// OpenStream splits the last user message into chunks.
func (s *EchoSource) OpenStream(ctx context.Context, req StreamRequest) (ChunkStream, error) {
	var content string
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == RoleUser {
			content = req.Messages[i].Content
			break
		}
	}

	return &echoStream{ctx: ctx, words: strings.SplitAfter(content, " ")}, nil
}

type echoStream struct {
	ctx   context.Context
	words []string
}

func (s *echoStream) Recv() (Chunk, error) {
	if err := s.ctx.Err(); err != nil {
		return Chunk{}, err
	}
	if len(s.words) == 0 {
		return Chunk{}, io.EOF
	}
	word := s.words[0]
	s.words = s.words[1:]
	return Chunk{Choices: []ChunkChoice{{Delta: Delta{Content: word}}}}, nil
}

func (s *echoStream) Close() error {
	s.words = nil
	return nil
}

var _ ChunkSource = (*EchoSource)(nil)
