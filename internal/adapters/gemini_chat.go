package adapters

import "github.com/guardianbridge/gbridge/internal/neutral"

// geminiChatAdapter implements the Gemini generateContent dialect's
// request/response shape: {contents:[{role, parts:[{text}|{functionCall}|{functionResponse}]}]}
// (geminiContent/geminiPart/geminiFunctionCall/geminiFunctionResponse).
// A supplement (§4) covering the text, tool-call and tool-result block
// kinds only; image and other part kinds are not mapped.
type geminiChatAdapter struct{}

func NewGeminiChatAdapter() Adapter { return geminiChatAdapter{} }

func (geminiChatAdapter) Dialect() Dialect { return GeminiChat }

func (geminiChatAdapter) CanParse(path string, headers map[string]string, body map[string]any) bool {
	contents, ok := body["contents"].([]any)
	if !ok || len(contents) == 0 {
		return false
	}
	first, ok := contents[0].(map[string]any)
	if !ok {
		return false
	}
	_, hasParts := first["parts"]
	return hasParts
}

func (geminiChatAdapter) RequestToNeutral(body map[string]any) (*neutral.ChatRequest, error) {
	req := &neutral.ChatRequest{Extra: omitKeys(body, "contents", "systemInstruction")}

	if sysInstr := objectField(body, "systemInstruction"); sysInstr != nil {
		if text := geminiPartsText(sliceField(sysInstr, "parts")); text != "" {
			req.Messages = append(req.Messages, neutral.Message{
				Role:    neutral.RoleSystem,
				Content: []neutral.ContentBlock{neutral.TextBlock(text)},
			})
		}
	}

	for _, rc := range sliceField(body, "contents") {
		c, ok := rc.(map[string]any)
		if !ok {
			continue
		}
		role := neutral.RoleAssistant
		if stringField(c, "role") == "user" {
			role = neutral.RoleUser
		}

		var blocks []neutral.ContentBlock
		for _, rp := range sliceField(c, "parts") {
			part, ok := rp.(map[string]any)
			if !ok {
				continue
			}
			if text, ok := part["text"].(string); ok && text != "" {
				blocks = append(blocks, neutral.TextBlock(text))
				continue
			}
			if fc := objectField(part, "functionCall"); fc != nil {
				args, _ := fc["args"].(map[string]any)
				blocks = append(blocks, neutral.ContentBlock{
					Type: neutral.BlockToolCall,
					ToolCall: &neutral.ToolCall{Name: stringField(fc, "name"), Arguments: args},
				})
				continue
			}
			if fr := objectField(part, "functionResponse"); fr != nil {
				blocks = append(blocks, neutral.ContentBlock{
					Type: neutral.BlockToolResult,
					ToolResult: &neutral.ToolResult{Name: stringField(fr, "name"), Output: fr["response"]},
				})
			}
		}
		if len(blocks) == 0 {
			blocks = append(blocks, neutral.TextBlock(""))
		}
		req.Messages = append(req.Messages, neutral.Message{Role: role, Content: blocks})
	}

	return req, nil
}

func (geminiChatAdapter) NeutralToRequest(req *neutral.ChatRequest) (map[string]any, error) {
	var contents []any
	var systemParts []string

	for _, m := range req.Messages {
		if m.Role == neutral.RoleSystem {
			for _, b := range m.Content {
				if b.Type == neutral.BlockText && b.Text != "" {
					systemParts = append(systemParts, b.Text)
				}
			}
			continue
		}

		var parts []any
		for _, b := range m.Content {
			switch b.Type {
			case neutral.BlockText:
				if b.Text != "" {
					parts = append(parts, map[string]any{"text": b.Text})
				}
			case neutral.BlockToolCall:
				if b.ToolCall != nil {
					parts = append(parts, map[string]any{"functionCall": map[string]any{
						"name": b.ToolCall.Name, "args": b.ToolCall.Arguments,
					}})
				}
			case neutral.BlockToolResult:
				if b.ToolResult != nil {
					parts = append(parts, map[string]any{"functionResponse": map[string]any{
						"name": b.ToolResult.Name, "response": b.ToolResult.Output,
					}})
				}
			}
		}
		if len(parts) == 0 {
			continue
		}
		role := "model"
		if m.Role == neutral.RoleUser {
			role = "user"
		}
		contents = append(contents, map[string]any{"role": role, "parts": parts})
	}

	out := map[string]any{"contents": contents}
	if len(systemParts) > 0 {
		out["systemInstruction"] = map[string]any{"parts": []any{map[string]any{"text": joinNewline(systemParts)}}}
	}
	mergeExtra(out, req.Extra)
	return out, nil
}

func (geminiChatAdapter) ResponseToNeutral(body map[string]any) (*neutral.ChatResponse, error) {
	candidates := sliceField(body, "candidates")
	var blocks []neutral.ContentBlock
	finishReason := ""
	if len(candidates) > 0 {
		cand, _ := candidates[0].(map[string]any)
		finishReason = stringField(cand, "finishReason")
		content := objectField(cand, "content")
		for _, rp := range sliceField(content, "parts") {
			part, ok := rp.(map[string]any)
			if !ok {
				continue
			}
			if text, ok := part["text"].(string); ok && text != "" {
				blocks = append(blocks, neutral.TextBlock(text))
			}
			if fc := objectField(part, "functionCall"); fc != nil {
				args, _ := fc["args"].(map[string]any)
				blocks = append(blocks, neutral.ContentBlock{
					Type:     neutral.BlockToolCall,
					ToolCall: &neutral.ToolCall{Name: stringField(fc, "name"), Arguments: args},
				})
			}
		}
	}
	if len(blocks) == 0 {
		blocks = append(blocks, neutral.TextBlock(""))
	}

	usage, _ := body["usageMetadata"].(map[string]any)
	return &neutral.ChatResponse{
		Model:        stringField(body, "modelVersion"),
		Messages:     []neutral.Message{{Role: neutral.RoleAssistant, Content: blocks}},
		FinishReason: finishReason,
		Usage:        usage,
		Extra:        omitKeys(body, "candidates", "usageMetadata", "modelVersion"),
	}, nil
}

func (geminiChatAdapter) NeutralToResponse(resp *neutral.ChatResponse) (map[string]any, error) {
	last := lastMessage(resp)
	var parts []any
	for _, b := range last.Content {
		if b.Type == neutral.BlockText && b.Text != "" {
			parts = append(parts, map[string]any{"text": b.Text})
		}
		if b.Type == neutral.BlockToolCall && b.ToolCall != nil {
			parts = append(parts, map[string]any{"functionCall": map[string]any{
				"name": b.ToolCall.Name, "args": b.ToolCall.Arguments,
			}})
		}
	}
	out := map[string]any{
		"modelVersion": resp.Model,
		"candidates": []any{map[string]any{
			"content":      map[string]any{"role": "model", "parts": parts},
			"finishReason": resp.FinishReason,
			"index":        0,
		}},
		"usageMetadata": resp.Usage,
	}
	mergeExtra(out, resp.Extra)
	return out, nil
}

func (geminiChatAdapter) StreamChunkToNeutral(data map[string]any) (neutral.StreamChunk, bool) {
	candidates := sliceField(data, "candidates")
	if len(candidates) == 0 {
		return neutral.StreamChunk{}, false
	}
	cand, _ := candidates[0].(map[string]any)
	content := objectField(cand, "content")
	chunk := neutral.StreamChunk{IsFinal: stringField(cand, "finishReason") != ""}
	for _, rp := range sliceField(content, "parts") {
		part, ok := rp.(map[string]any)
		if !ok {
			continue
		}
		if text, ok := part["text"].(string); ok {
			chunk.Delta += text
		}
		if fc := objectField(part, "functionCall"); fc != nil {
			args, _ := fc["args"].(map[string]any)
			chunk.ToolCallDelta = append(chunk.ToolCallDelta, neutral.ToolCallDelta{
				Name: stringField(fc, "name"), ArgsDelta: stringifyOutput(args),
			})
		}
	}
	if chunk.Delta == "" && len(chunk.ToolCallDelta) == 0 && !chunk.IsFinal {
		return chunk, false
	}
	return chunk, true
}

func (geminiChatAdapter) NeutralToStreamFrame(chunk neutral.StreamChunk) (map[string]any, error) {
	var parts []any
	if chunk.Delta != "" {
		parts = append(parts, map[string]any{"text": chunk.Delta})
	}
	finishReason := ""
	if chunk.IsFinal {
		finishReason = "STOP"
	}
	return map[string]any{
		"candidates": []any{map[string]any{
			"content":      map[string]any{"role": "model", "parts": parts},
			"finishReason": finishReason,
			"index":        0,
		}},
	}, nil
}

func geminiPartsText(parts []any) string {
	var texts []string
	for _, rp := range parts {
		part, ok := rp.(map[string]any)
		if !ok {
			continue
		}
		if text, ok := part["text"].(string); ok && text != "" {
			texts = append(texts, text)
		}
	}
	return joinNewline(texts)
}
