// Package adapters implements the per-dialect format translation layer
// (C4): detection plus the request/response quintuple into and out of the
// neutral chat model.
package adapters

import "github.com/guardianbridge/gbridge/internal/neutral"

// Dialect names a vendor-specific wire format. Values match the
// detection order required by §4.2.
type Dialect string

const (
	ClaudeCode  Dialect = "claude_code"
	ClaudeChat  Dialect = "claude_chat"
	OpenAIChat  Dialect = "openai_chat"
	GeminiChat  Dialect = "gemini_chat"
	OpenAICodex Dialect = "openai_codex"
)

// DetectionOrder is the fixed, most-specific-first order the dispatcher
// walks when resolving "auto" (per §4.2).
var DetectionOrder = []Dialect{ClaudeCode, ClaudeChat, OpenAIChat, GeminiChat, OpenAICodex}

// Adapter exposes the five pure functions a dialect must provide. No
// adapter holds state; a single instance is safe for concurrent use.
type Adapter interface {
	Dialect() Dialect

	// CanParse reports whether body (already parsed as a JSON object),
	// the originating path, and request headers are recognizably this
	// dialect. It must positively assert on dialect-unique signals and
	// negatively exclude known sibling-dialect markers.
	CanParse(path string, headers map[string]string, body map[string]any) bool

	RequestToNeutral(body map[string]any) (*neutral.ChatRequest, error)
	NeutralToRequest(req *neutral.ChatRequest) (map[string]any, error)
	ResponseToNeutral(body map[string]any) (*neutral.ChatResponse, error)
	NeutralToResponse(resp *neutral.ChatResponse) (map[string]any, error)

	// StreamChunkToNeutral translates one decoded SSE `data:` JSON payload
	// in this dialect into a neutral StreamChunk. ok is false for frames
	// that carry no representable delta (e.g. a bare heartbeat).
	StreamChunkToNeutral(data map[string]any) (chunk neutral.StreamChunk, ok bool)

	// NeutralToStreamFrame renders a neutral StreamChunk back into this
	// dialect's SSE `data:` JSON payload.
	NeutralToStreamFrame(chunk neutral.StreamChunk) (map[string]any, error)
}

// Registry holds every built-in adapter, keyed by Dialect.
type Registry struct {
	byDialect map[Dialect]Adapter
}

// NewRegistry builds a Registry with all five dialects registered.
func NewRegistry() *Registry {
	r := &Registry{byDialect: make(map[Dialect]Adapter)}
	for _, a := range []Adapter{
		NewClaudeCodeAdapter(),
		NewClaudeChatAdapter(),
		NewOpenAIChatAdapter(),
		NewGeminiChatAdapter(),
		NewOpenAICodexAdapter(),
	} {
		r.byDialect[a.Dialect()] = a
	}
	return r
}

// Get returns the adapter registered for dialect, if any.
func (r *Registry) Get(d Dialect) (Adapter, bool) {
	a, ok := r.byDialect[d]
	return a, ok
}

// Detect walks candidates (DetectionOrder, restricted to an explicit
// allow-list when non-nil) and returns the first adapter whose CanParse
// matches.
func (r *Registry) Detect(candidates []Dialect, path string, headers map[string]string, body map[string]any) (Adapter, bool) {
	if candidates == nil {
		candidates = DetectionOrder
	}
	for _, d := range candidates {
		a, ok := r.byDialect[d]
		if !ok {
			continue
		}
		if a.CanParse(path, headers, body) {
			return a, true
		}
	}
	return nil, false
}

// headerLookup does a case-insensitive header read against the plain
// map[string]string the router builds from http.Header.
func headerLookup(headers map[string]string, key string) (string, bool) {
	for k, v := range headers {
		if equalFold(k, key) {
			return v, true
		}
	}
	return "", false
}

func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}
