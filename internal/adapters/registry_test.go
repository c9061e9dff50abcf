package adapters

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryGetReturnsAllFiveDialects(t *testing.T) {
	r := NewRegistry()
	for _, d := range []Dialect{ClaudeCode, ClaudeChat, OpenAIChat, GeminiChat, OpenAICodex} {
		a, ok := r.Get(d)
		require.True(t, ok, "expected adapter registered for %s", d)
		assert.Equal(t, d, a.Dialect())
	}
}

func TestDetectOpenAIChatBody(t *testing.T) {
	r := NewRegistry()
	// A tool-role message disqualifies claude_chat's CanParse outright,
	// so this body unambiguously selects openai_chat even though both
	// adapters otherwise accept a bare "messages" array.
	body := map[string]any{
		"model": "gpt-4",
		"messages": []any{
			map[string]any{"role": "tool", "content": "result text"},
			map[string]any{"role": "user", "content": "hello"},
		},
	}
	a, ok := r.Detect(nil, "/v1/chat/completions", nil, body)
	require.True(t, ok)
	assert.Equal(t, OpenAIChat, a.Dialect())
}

func TestDetectGeminiChatBody(t *testing.T) {
	r := NewRegistry()
	body := map[string]any{
		"contents": []any{
			map[string]any{"role": "user", "parts": []any{map[string]any{"text": "hi"}}},
		},
	}
	a, ok := r.Detect(nil, "/v1beta/models/gemini-pro:generateContent", nil, body)
	require.True(t, ok)
	assert.Equal(t, GeminiChat, a.Dialect())
}

func TestDetectClaudeCodePromptBody(t *testing.T) {
	r := NewRegistry()
	body := map[string]any{"prompt": "do the thing", "options": map[string]any{}}
	a, ok := r.Detect(nil, "/", nil, body)
	require.True(t, ok)
	assert.Equal(t, ClaudeCode, a.Dialect())
}

func TestDetectRestrictedCandidatesExcludesMatch(t *testing.T) {
	r := NewRegistry()
	body := map[string]any{
		"model":    "gpt-4",
		"messages": []any{map[string]any{"role": "user", "content": "hello"}},
	}
	_, ok := r.Detect([]Dialect{GeminiChat}, "/v1/chat/completions", nil, body)
	assert.False(t, ok)
}
