package adapters

import (
	"encoding/json"

	"github.com/guardianbridge/gbridge/internal/neutral"
)

// openAIChatAdapter implements the OpenAI Chat Completions dialect.
type openAIChatAdapter struct{}

func NewOpenAIChatAdapter() Adapter { return openAIChatAdapter{} }

func (openAIChatAdapter) Dialect() Dialect { return OpenAIChat }

func (openAIChatAdapter) CanParse(path string, headers map[string]string, body map[string]any) bool {
	if contents, ok := body["contents"].([]any); ok && len(contents) > 0 {
		if first, ok := contents[0].(map[string]any); ok {
			if _, hasParts := first["parts"]; hasParts {
				return false
			}
		}
	}

	if _, hasPrompt := body["prompt"]; hasPrompt {
		if _, hasMessages := body["messages"]; !hasMessages {
			return false
		}
	}

	if rawMsgs, ok := body["messages"].([]any); ok {
		for _, rm := range rawMsgs {
			msg, ok := rm.(map[string]any)
			if !ok {
				continue
			}
			if content, ok := msg["content"].([]any); ok {
				for _, rp := range content {
					part, ok := rp.(map[string]any)
					if !ok {
						continue
					}
					if _, hasCC := part["cache_control"]; hasCC {
						return false
					}
				}
			}
		}
	}

	if containsSubstr(path, "/chat/completions") {
		return true
	}

	if rawMsgs, ok := body["messages"].([]any); ok && len(rawMsgs) > 0 {
		if first, ok := rawMsgs[0].(map[string]any); ok {
			if _, hasRole := first["role"]; hasRole {
				return true
			}
		}
	}

	return false
}

func (openAIChatAdapter) RequestToNeutral(body map[string]any) (*neutral.ChatRequest, error) {
	req := &neutral.ChatRequest{
		Model:  stringField(body, "model"),
		Stream: boolField(body, "stream"),
		Extra:  omitKeys(body, "messages", "model", "stream", "tools", "tool_choice"),
	}
	req.ToolChoice = body["tool_choice"]

	for _, rt := range sliceField(body, "tools") {
		t, ok := rt.(map[string]any)
		if !ok || stringField(t, "type") != "function" {
			continue
		}
		fn, _ := t["function"].(map[string]any)
		req.Tools = append(req.Tools, neutral.ToolDef{
			Name:        stringField(fn, "name"),
			Description: stringField(fn, "description"),
			InputSchema: objectField(fn, "parameters"),
		})
	}

	for _, rm := range sliceField(body, "messages") {
		msg, ok := rm.(map[string]any)
		if !ok {
			continue
		}
		var blocks []neutral.ContentBlock

		switch content := msg["content"].(type) {
		case string:
			if content != "" {
				blocks = append(blocks, neutral.TextBlock(content))
			}
		case []any:
			for _, rp := range content {
				part, ok := rp.(map[string]any)
				if !ok {
					continue
				}
				switch stringField(part, "type") {
				case "text":
					blocks = append(blocks, neutral.TextBlock(stringField(part, "text")))
				case "image_url":
					imgData, _ := part["image_url"].(map[string]any)
					url := stringField(imgData, "url")
					if url == "" {
						continue
					}
					blocks = append(blocks, neutral.ContentBlock{
						Type:  neutral.BlockImage,
						Image: &neutral.Image{URL: url, Detail: stringField(imgData, "detail")},
					})
				}
			}
		}

		role := neutral.Role(stringField(msg, "role"))
		if role == "" {
			role = neutral.RoleUser
		}

		if role == neutral.RoleTool {
			blocks = append(blocks, neutral.ContentBlock{
				Type: neutral.BlockToolResult,
				ToolResult: &neutral.ToolResult{
					CallID: stringField(msg, "tool_call_id"),
					Name:   stringField(msg, "name"),
					Output: msg["content"],
				},
			})
		}

		for _, rtc := range sliceField(msg, "tool_calls") {
			tc, ok := rtc.(map[string]any)
			if !ok {
				continue
			}
			fn, _ := tc["function"].(map[string]any)
			args := map[string]any{}
			if raw, ok := fn["arguments"].(string); ok && raw != "" {
				_ = json.Unmarshal([]byte(raw), &args)
			}
			blocks = append(blocks, neutral.ContentBlock{
				Type: neutral.BlockToolCall,
				ToolCall: &neutral.ToolCall{
					ID:        stringField(tc, "id"),
					Name:      stringField(fn, "name"),
					Arguments: args,
				},
			})
		}

		if len(blocks) == 0 {
			blocks = append(blocks, neutral.TextBlock(""))
		}

		req.Messages = append(req.Messages, neutral.Message{Role: role, Content: blocks})
	}

	return req, nil
}

func (openAIChatAdapter) NeutralToRequest(req *neutral.ChatRequest) (map[string]any, error) {
	var tools []any
	for _, t := range req.Tools {
		tools = append(tools, map[string]any{
			"type": "function",
			"function": map[string]any{
				"name":        t.Name,
				"description": t.Description,
				"parameters":  t.InputSchema,
			},
		})
	}

	var messages []any
	for _, m := range req.Messages {
		var texts []string
		var toolCalls []neutral.ToolCall
		var toolResults []neutral.ToolResult
		var images []neutral.Image
		for _, b := range m.Content {
			switch b.Type {
			case neutral.BlockText:
				if b.Text != "" {
					texts = append(texts, b.Text)
				}
			case neutral.BlockToolCall:
				if b.ToolCall != nil {
					toolCalls = append(toolCalls, *b.ToolCall)
				}
			case neutral.BlockToolResult:
				if b.ToolResult != nil {
					toolResults = append(toolResults, *b.ToolResult)
				}
			case neutral.BlockImage:
				if b.Image != nil {
					images = append(images, *b.Image)
				}
			}
		}

		if m.Role != neutral.RoleTool {
			msg := map[string]any{"role": string(m.Role)}

			if len(images) > 0 {
				var parts []any
				for _, b := range m.Content {
					switch b.Type {
					case neutral.BlockText:
						if b.Text != "" {
							parts = append(parts, map[string]any{"type": "text", "text": b.Text})
						}
					case neutral.BlockImage:
						imagePart := map[string]any{"type": "image_url", "image_url": map[string]any{"url": b.Image.URL}}
						if b.Image.Detail != "" {
							imagePart["image_url"].(map[string]any)["detail"] = b.Image.Detail
						}
						parts = append(parts, imagePart)
					}
				}
				msg["content"] = parts
			} else if len(texts) > 0 {
				msg["content"] = joinNewline(texts)
			} else if len(toolCalls) == 0 {
				msg["content"] = ""
			}

			if len(toolCalls) > 0 {
				var calls []any
				for _, tc := range toolCalls {
					argsJSON, _ := json.Marshal(tc.Arguments)
					calls = append(calls, map[string]any{
						"id":   tc.ID,
						"type": "function",
						"function": map[string]any{
							"name":      tc.Name,
							"arguments": string(argsJSON),
						},
					})
				}
				msg["tool_calls"] = calls
			}

			messages = append(messages, msg)
		}

		for _, tr := range toolResults {
			messages = append(messages, map[string]any{
				"role":         "tool",
				"tool_call_id": tr.CallID,
				"name":         tr.Name,
				"content":      stringifyOutput(tr.Output),
			})
		}
	}

	out := map[string]any{
		"model":    req.Model,
		"messages": messages,
		"stream":   req.Stream,
	}
	if len(tools) > 0 {
		out["tools"] = tools
	}
	if req.ToolChoice != nil {
		out["tool_choice"] = req.ToolChoice
	}
	mergeExtra(out, req.Extra)
	return out, nil
}

func (openAIChatAdapter) ResponseToNeutral(body map[string]any) (*neutral.ChatResponse, error) {
	choices := sliceField(body, "choices")
	var choice map[string]any
	if len(choices) > 0 {
		choice, _ = choices[0].(map[string]any)
	}
	message, _ := choice["message"].(map[string]any)

	var blocks []neutral.ContentBlock
	switch content := message["content"].(type) {
	case string:
		if content != "" {
			blocks = append(blocks, neutral.TextBlock(content))
		}
	case []any:
		for _, rp := range content {
			part, ok := rp.(map[string]any)
			if !ok {
				continue
			}
			if stringField(part, "type") == "text" {
				blocks = append(blocks, neutral.TextBlock(stringField(part, "text")))
			}
		}
	}

	for _, rtc := range sliceField(message, "tool_calls") {
		tc, ok := rtc.(map[string]any)
		if !ok {
			continue
		}
		fn, _ := tc["function"].(map[string]any)
		args := map[string]any{}
		if raw, ok := fn["arguments"].(string); ok && raw != "" {
			_ = json.Unmarshal([]byte(raw), &args)
		}
		blocks = append(blocks, neutral.ContentBlock{
			Type: neutral.BlockToolCall,
			ToolCall: &neutral.ToolCall{
				ID:        stringField(tc, "id"),
				Name:      stringField(fn, "name"),
				Arguments: args,
			},
		})
	}

	if len(blocks) == 0 {
		blocks = append(blocks, neutral.TextBlock(""))
	}

	usage, _ := body["usage"].(map[string]any)

	return &neutral.ChatResponse{
		ID:           stringField(body, "id"),
		Model:        stringField(body, "model"),
		Messages:     []neutral.Message{{Role: neutral.RoleAssistant, Content: blocks}},
		FinishReason: stringField(choice, "finish_reason"),
		Usage:        usage,
		Extra:        omitKeys(body, "id", "model", "choices", "usage"),
	}, nil
}

func (openAIChatAdapter) NeutralToResponse(resp *neutral.ChatResponse) (map[string]any, error) {
	last := lastMessage(resp)

	message := map[string]any{"role": "assistant"}
	var texts []string
	var images []neutral.Image
	for _, b := range last.Content {
		if b.Type == neutral.BlockText && b.Text != "" {
			texts = append(texts, b.Text)
		}
		if b.Type == neutral.BlockImage && b.Image != nil {
			images = append(images, *b.Image)
		}
	}

	if len(images) > 0 {
		var parts []any
		for _, b := range last.Content {
			if b.Type == neutral.BlockText && b.Text != "" {
				parts = append(parts, map[string]any{"type": "text", "text": b.Text})
			}
			if b.Type == neutral.BlockImage && b.Image != nil {
				parts = append(parts, map[string]any{"type": "image_url", "image_url": map[string]any{"url": b.Image.URL}})
			}
		}
		message["content"] = parts
	} else if len(texts) > 0 {
		message["content"] = joinNewline(texts)
	}

	var toolCalls []any
	for _, b := range last.Content {
		if b.Type == neutral.BlockToolCall && b.ToolCall != nil {
			argsJSON, _ := json.Marshal(b.ToolCall.Arguments)
			toolCalls = append(toolCalls, map[string]any{
				"id":   b.ToolCall.ID,
				"type": "function",
				"function": map[string]any{
					"name":      b.ToolCall.Name,
					"arguments": string(argsJSON),
				},
			})
		}
	}
	if len(toolCalls) > 0 {
		message["tool_calls"] = toolCalls
	}

	out := map[string]any{
		"id":     resp.ID,
		"model":  resp.Model,
		"object": "chat.completion",
		"choices": []any{map[string]any{
			"index":         0,
			"message":       message,
			"finish_reason": resp.FinishReason,
		}},
		"usage": resp.Usage,
	}
	mergeExtra(out, resp.Extra)
	return out, nil
}

func (openAIChatAdapter) StreamChunkToNeutral(data map[string]any) (neutral.StreamChunk, bool) {
	choices := sliceField(data, "choices")
	if len(choices) == 0 {
		return neutral.StreamChunk{}, false
	}
	choice, _ := choices[0].(map[string]any)
	delta, _ := choice["delta"].(map[string]any)

	chunk := neutral.StreamChunk{IsFinal: stringField(choice, "finish_reason") != ""}
	if text, ok := delta["content"].(string); ok {
		chunk.Delta = text
	}
	for i, rtc := range sliceField(delta, "tool_calls") {
		tc, ok := rtc.(map[string]any)
		if !ok {
			continue
		}
		fn, _ := tc["function"].(map[string]any)
		idx := i
		if rawIdx, ok := tc["index"].(float64); ok {
			idx = int(rawIdx)
		}
		chunk.ToolCallDelta = append(chunk.ToolCallDelta, neutral.ToolCallDelta{
			Index:     idx,
			ID:        stringField(tc, "id"),
			Name:      stringField(fn, "name"),
			ArgsDelta: stringField(fn, "arguments"),
		})
	}
	if chunk.Delta == "" && len(chunk.ToolCallDelta) == 0 && !chunk.IsFinal {
		return chunk, false
	}
	return chunk, true
}

func (openAIChatAdapter) NeutralToStreamFrame(chunk neutral.StreamChunk) (map[string]any, error) {
	delta := map[string]any{}
	if chunk.Delta != "" {
		delta["content"] = chunk.Delta
	}
	if len(chunk.ToolCallDelta) > 0 {
		var calls []any
		for _, d := range chunk.ToolCallDelta {
			calls = append(calls, map[string]any{
				"index": d.Index,
				"id":    d.ID,
				"type":  "function",
				"function": map[string]any{
					"name":      d.Name,
					"arguments": d.ArgsDelta,
				},
			})
		}
		delta["tool_calls"] = calls
	}

	finishReason := any(nil)
	if chunk.IsFinal {
		finishReason = "stop"
	}

	return map[string]any{
		"object": "chat.completion.chunk",
		"choices": []any{map[string]any{
			"index":         0,
			"delta":         delta,
			"finish_reason": finishReason,
		}},
	}, nil
}
