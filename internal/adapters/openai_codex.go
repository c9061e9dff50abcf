package adapters

import "github.com/guardianbridge/gbridge/internal/neutral"

// openAICodexAdapter implements the legacy OpenAI Completions-style
// {prompt, ...} request shape. A supplement (§4): the detection order
// in §4.2 names this dialect, but no upstream gateway this dialect was
// modeled on ever routes chat-shaped traffic through it; this adapter
// covers the subset needed for detection and a text-only round trip.
type openAICodexAdapter struct{}

func NewOpenAICodexAdapter() Adapter { return openAICodexAdapter{} }

func (openAICodexAdapter) Dialect() Dialect { return OpenAICodex }

func (openAICodexAdapter) CanParse(path string, headers map[string]string, body map[string]any) bool {
	prompt, hasPrompt := body["prompt"].(string)
	_, hasMessages := body["messages"]
	return hasPrompt && !hasMessages && prompt != ""
}

func (openAICodexAdapter) RequestToNeutral(body map[string]any) (*neutral.ChatRequest, error) {
	return &neutral.ChatRequest{
		Model:  stringField(body, "model"),
		Stream: boolField(body, "stream"),
		Messages: []neutral.Message{{
			Role:    neutral.RoleUser,
			Content: []neutral.ContentBlock{neutral.TextBlock(stringField(body, "prompt"))},
		}},
		Extra: omitKeys(body, "prompt", "model", "stream"),
	}, nil
}

func (openAICodexAdapter) NeutralToRequest(req *neutral.ChatRequest) (map[string]any, error) {
	var texts []string
	for _, m := range req.Messages {
		for _, b := range m.Content {
			if b.Type == neutral.BlockText && b.Text != "" {
				texts = append(texts, b.Text)
			}
		}
	}
	out := map[string]any{"model": req.Model, "prompt": joinNewline(texts), "stream": req.Stream}
	mergeExtra(out, req.Extra)
	return out, nil
}

func (openAICodexAdapter) ResponseToNeutral(body map[string]any) (*neutral.ChatResponse, error) {
	choices := sliceField(body, "choices")
	text := ""
	finish := ""
	if len(choices) > 0 {
		choice, _ := choices[0].(map[string]any)
		text = stringField(choice, "text")
		finish = stringField(choice, "finish_reason")
	}
	usage, _ := body["usage"].(map[string]any)
	return &neutral.ChatResponse{
		ID:           stringField(body, "id"),
		Model:        stringField(body, "model"),
		Messages:     []neutral.Message{{Role: neutral.RoleAssistant, Content: []neutral.ContentBlock{neutral.TextBlock(text)}}},
		FinishReason: finish,
		Usage:        usage,
		Extra:        omitKeys(body, "id", "model", "choices", "usage"),
	}, nil
}

func (openAICodexAdapter) NeutralToResponse(resp *neutral.ChatResponse) (map[string]any, error) {
	last := lastMessage(resp)
	text := ""
	for _, b := range last.Content {
		if b.Type == neutral.BlockText {
			text += b.Text
		}
	}
	out := map[string]any{
		"id":    resp.ID,
		"model": resp.Model,
		"choices": []any{map[string]any{
			"index": 0, "text": text, "finish_reason": resp.FinishReason,
		}},
		"usage": resp.Usage,
	}
	mergeExtra(out, resp.Extra)
	return out, nil
}

func (openAICodexAdapter) StreamChunkToNeutral(data map[string]any) (neutral.StreamChunk, bool) {
	choices := sliceField(data, "choices")
	if len(choices) == 0 {
		return neutral.StreamChunk{}, false
	}
	choice, _ := choices[0].(map[string]any)
	text := stringField(choice, "text")
	finish := stringField(choice, "finish_reason") != ""
	if text == "" && !finish {
		return neutral.StreamChunk{}, false
	}
	return neutral.StreamChunk{Delta: text, IsFinal: finish}, true
}

func (openAICodexAdapter) NeutralToStreamFrame(chunk neutral.StreamChunk) (map[string]any, error) {
	finishReason := ""
	if chunk.IsFinal {
		finishReason = "stop"
	}
	return map[string]any{
		"choices": []any{map[string]any{"index": 0, "text": chunk.Delta, "finish_reason": finishReason}},
	}, nil
}
