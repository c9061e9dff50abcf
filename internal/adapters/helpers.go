package adapters

import (
	"encoding/json"
	"strings"

	"github.com/guardianbridge/gbridge/internal/neutral"
)

func stringField(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return s
}

func boolField(m map[string]any, key string) bool {
	if m == nil {
		return false
	}
	b, _ := m[key].(bool)
	return b
}

func sliceField(m map[string]any, key string) []any {
	if m == nil {
		return nil
	}
	s, _ := m[key].([]any)
	return s
}

func objectField(m map[string]any, key string) map[string]any {
	if m == nil {
		return nil
	}
	o, _ := m[key].(map[string]any)
	return o
}

// omitKeys copies m without the named keys, used to build the Extra
// bag that preserves unmodeled dialect fields round-trip.
func omitKeys(m map[string]any, keys ...string) map[string]any {
	skip := make(map[string]bool, len(keys))
	for _, k := range keys {
		skip[k] = true
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		if !skip[k] {
			out[k] = v
		}
	}
	return out
}

// mergeExtra writes extra's entries into dst without overwriting keys
// dst already set explicitly.
func mergeExtra(dst map[string]any, extra map[string]any) {
	for k, v := range extra {
		if _, exists := dst[k]; !exists {
			dst[k] = v
		}
	}
}

func joinNewline(parts []string) string {
	return strings.Join(parts, "\n")
}

func lastMessage(resp *neutral.ChatResponse) neutral.Message {
	if len(resp.Messages) == 0 {
		return neutral.Message{Role: neutral.RoleAssistant, Content: []neutral.ContentBlock{neutral.TextBlock("")}}
	}
	return resp.Messages[len(resp.Messages)-1]
}

func stringifyOutput(output any) string {
	switch v := output.(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

func containsSubstr(s, substr string) bool {
	return strings.Contains(s, substr)
}
