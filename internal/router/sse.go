package router

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
)

// sseScanner splits an SSE byte stream into whole frames (one or more
// "data: ..." lines terminated by a blank line), handing each frame's
// raw bytes (including the "data: " prefix, exactly as received) to the
// caller so it can be re-emitted verbatim once the stream gate opens.
type sseScanner struct {
	scanner *bufio.Scanner
	current []byte
	err     error
}

func newSSEScanner(r io.Reader) *sseScanner {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), 1<<20)
	return &sseScanner{scanner: s}
}

// Scan advances to the next complete frame, returning false at EOF or
// on a read error (check Err()).
func (s *sseScanner) Scan() bool {
	var buf bytes.Buffer
	sawData := false

	for s.scanner.Scan() {
		line := s.scanner.Bytes()
		if len(line) == 0 {
			if sawData {
				s.current = append([]byte(nil), buf.Bytes()...)
				return true
			}
			continue
		}
		buf.Write(line)
		buf.WriteByte('\n')
		sawData = true
	}

	s.err = s.scanner.Err()
	if sawData {
		s.current = append([]byte(nil), buf.Bytes()...)
		return true
	}
	return false
}

func (s *sseScanner) Bytes() []byte { return s.current }

func (s *sseScanner) Err() error { return s.err }

// extractStreamSignal inspects one raw SSE frame for the accumulated
// text and tool-call-start signals C9 gates on (per §4.3): OpenAI
// choices[].delta.content / delta.tool_calls, and Claude
// content_block_delta.text_delta / content_block_start with tool_use.
func extractStreamSignal(frame []byte) (deltaText string, startsToolCall bool) {
	for _, line := range bytes.Split(frame, []byte("\n")) {
		data := bytes.TrimPrefix(line, []byte("data: "))
		data = bytes.TrimPrefix(data, []byte("data:"))
		data = bytes.TrimSpace(data)
		if len(data) == 0 || bytes.Equal(data, []byte("[DONE]")) {
			continue
		}

		var payload map[string]any
		if json.Unmarshal(data, &payload) != nil {
			continue
		}

		if t, tc := openAIStreamSignal(payload); t != "" || tc {
			deltaText += t
			startsToolCall = startsToolCall || tc
		}
		if t, tc := claudeStreamSignal(payload); t != "" || tc {
			deltaText += t
			startsToolCall = startsToolCall || tc
		}
	}
	return deltaText, startsToolCall
}

func openAIStreamSignal(payload map[string]any) (string, bool) {
	choices, _ := payload["choices"].([]any)
	if len(choices) == 0 {
		return "", false
	}
	choice, _ := choices[0].(map[string]any)
	delta, _ := choice["delta"].(map[string]any)
	if delta == nil {
		return "", false
	}
	text, _ := delta["content"].(string)
	_, hasToolCalls := delta["tool_calls"]
	return text, hasToolCalls
}

func claudeStreamSignal(payload map[string]any) (string, bool) {
	switch payload["type"] {
	case "content_block_delta":
		delta, _ := payload["delta"].(map[string]any)
		if delta == nil {
			return "", false
		}
		text, _ := delta["text"].(string)
		return text, false
	case "content_block_start":
		block, _ := payload["content_block"].(map[string]any)
		if block == nil {
			return "", false
		}
		return "", block["type"] == "tool_use"
	default:
		return "", false
	}
}
