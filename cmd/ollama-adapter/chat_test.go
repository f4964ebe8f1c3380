package main

import (
	"context"
	"iter"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shanemcd/ollama-adapter/pkg/llm"
)

// scriptedProvider replays fixed function-mode pairs.
type scriptedProvider struct {
	text  []string
	calls [][]llm.ToolCall
	tools []llm.Tool
}

func (p *scriptedProvider) Response(ctx context.Context, sessionID string, dialogue []llm.Message) iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, t := range p.text {
			if !yield(t) {
				return
			}
		}
	}
}

func (p *scriptedProvider) ResponseWithFunctions(ctx context.Context, sessionID string, dialogue []llm.Message, functions []llm.Tool) iter.Seq2[string, []llm.ToolCall] {
	return func(yield func(string, []llm.ToolCall) bool) {
		p.tools = functions
		for i, t := range p.text {
			if !yield(t, p.calls[i]) {
				return
			}
		}
	}
}

func (p *scriptedProvider) Name() string { return "scripted" }

func TestLoadTools(t *testing.T) {
	path := writeFile(t, "tools.yaml", `- name: get_weather
  description: Current weather for a city
  parameters:
    type: object
    properties:
      city:
        type: string
    required: [city]
- name: get_time
`)

	tools, err := LoadTools(path)
	require.NoError(t, err)
	require.Len(t, tools, 2)
	assert.Equal(t, "get_weather", tools[0].Name)
	assert.Equal(t, "Current weather for a city", tools[0].Description)

	params, ok := tools[0].Parameters.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "object", params["type"])
	assert.Nil(t, tools[1].Parameters)
}

func TestLoadTools_MissingName(t *testing.T) {
	_, err := LoadTools(writeFile(t, "tools.yaml", "- description: nameless\n"))
	assert.ErrorContains(t, err, "tool 0: missing name")
}

func TestStreamText(t *testing.T) {
	provider := llm.NewOllamaProvider(llm.OllamaConfig{ModelName: "echo"}, llm.WithChunkSource(llm.NewEchoSource()))
	cmd := ChatCmd{Message: "hello there", System: "be brief"}

	var out strings.Builder
	require.NoError(t, streamText(t.Context(), &out, provider, "s1", cmd.dialogue()))
	assert.Equal(t, "hello there\n", out.String())
}

func TestStreamWithFunctions(t *testing.T) {
	zero := 0
	provider := &scriptedProvider{
		text: []string{"<think>plan</think>", "", "done"},
		calls: [][]llm.ToolCall{
			nil,
			{{Index: &zero, ID: "call_1", Type: "function", Name: "get_weather", Arguments: `{"city":`}},
			nil,
		},
	}
	tools := []llm.Tool{{Name: "get_weather"}}

	var out strings.Builder
	require.NoError(t, streamWithFunctions(t.Context(), &out, provider, "s1", nil, tools))

	// function mode output is not filtered
	assert.Equal(t, "<think>plan</think>\n[tool_call] index=0 id=\"call_1\" name=\"get_weather\" arguments=\"{\\\"city\\\":\"\ndone\n", out.String())
	assert.Equal(t, tools, provider.tools)
}

func TestChatDialogue(t *testing.T) {
	cmd := ChatCmd{Message: "hi"}
	assert.Equal(t, []llm.Message{{Role: llm.RoleUser, Content: "hi"}}, cmd.dialogue())

	cmd.System = "sys"
	assert.Equal(t, []llm.Message{
		{Role: llm.RoleSystem, Content: "sys"},
		{Role: llm.RoleUser, Content: "hi"},
	}, cmd.dialogue())
}

func TestFormatToolCall(t *testing.T) {
	assert.Equal(t, `index=- id="" name="" arguments="42}"`, formatToolCall(llm.ToolCall{Arguments: "42}"}))
}
