package adapters

import (
	"encoding/json"

	"github.com/guardianbridge/gbridge/internal/neutral"
)

// claudeChatAdapter implements the Claude Messages API dialect.
type claudeChatAdapter struct{}

func NewClaudeChatAdapter() Adapter { return claudeChatAdapter{} }

func (claudeChatAdapter) Dialect() Dialect { return ClaudeChat }

func (claudeChatAdapter) CanParse(path string, headers map[string]string, body map[string]any) bool {
	if contents, ok := body["contents"].([]any); ok && len(contents) > 0 {
		if first, ok := contents[0].(map[string]any); ok {
			if _, hasParts := first["parts"]; hasParts {
				return false
			}
		}
	}

	if rawMsgs, ok := body["messages"].([]any); ok {
		for _, rm := range rawMsgs {
			msg, ok := rm.(map[string]any)
			if !ok {
				continue
			}
			if stringField(msg, "role") == "tool" {
				return false
			}
			if content, ok := msg["content"].([]any); ok {
				for _, rp := range content {
					if part, ok := rp.(map[string]any); ok && stringField(part, "type") == "image_url" {
						return false
					}
				}
			}
		}
	}

	if containsSubstr(path, "/messages") {
		return true
	}
	if _, ok := headerLookup(headers, "anthropic-version"); ok {
		return true
	}
	if _, ok := body["anthropic_version"]; ok {
		return true
	}

	if _, ok := body["messages"].([]any); ok {
		return true
	}

	return false
}

func (claudeChatAdapter) RequestToNeutral(body map[string]any) (*neutral.ChatRequest, error) {
	req := &neutral.ChatRequest{
		Model:  stringField(body, "model"),
		Stream: boolField(body, "stream"),
		Extra:  omitKeys(body, "system", "messages", "model", "stream", "tools", "tool_choice"),
	}
	req.ToolChoice = body["tool_choice"]

	for _, rt := range sliceField(body, "tools") {
		t, ok := rt.(map[string]any)
		if !ok {
			continue
		}
		req.Tools = append(req.Tools, neutral.ToolDef{
			Name:        stringField(t, "name"),
			Description: stringField(t, "description"),
			InputSchema: objectField(t, "input_schema"),
		})
	}

	if systemText := extractClaudeSystem(body["system"]); systemText != "" {
		req.Messages = append(req.Messages, neutral.Message{
			Role:    neutral.RoleSystem,
			Content: []neutral.ContentBlock{neutral.TextBlock(systemText)},
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
			blocks = append(blocks, neutral.TextBlock(content))
		case []any:
			for _, rp := range content {
				c, ok := rp.(map[string]any)
				if !ok {
					continue
				}
				switch stringField(c, "type") {
				case "text":
					blocks = append(blocks, neutral.TextBlock(stringField(c, "text")))
				case "tool_use":
					input, _ := c["input"].(map[string]any)
					blocks = append(blocks, neutral.ContentBlock{
						Type: neutral.BlockToolCall,
						ToolCall: &neutral.ToolCall{
							ID:        stringField(c, "id"),
							Name:      stringField(c, "name"),
							Arguments: input,
						},
					})
				case "tool_result":
					output := extractClaudeToolResultText(c["content"])
					blocks = append(blocks, neutral.ContentBlock{
						Type: neutral.BlockToolResult,
						ToolResult: &neutral.ToolResult{
							CallID: stringField(c, "tool_use_id"),
							Output: output,
						},
					})
				}
			}
		}

		if len(blocks) == 0 {
			blocks = append(blocks, neutral.TextBlock(""))
		}

		role := neutral.RoleAssistant
		if stringField(msg, "role") == "user" {
			role = neutral.RoleUser
		}
		req.Messages = append(req.Messages, neutral.Message{Role: role, Content: blocks})
	}

	return req, nil
}

func (claudeChatAdapter) NeutralToRequest(req *neutral.ChatRequest) (map[string]any, error) {
	var tools []any
	for _, t := range req.Tools {
		tools = append(tools, map[string]any{
			"name":         t.Name,
			"description":  t.Description,
			"input_schema": t.InputSchema,
		})
	}

	var systemTexts []string
	var out []any
	for _, m := range req.Messages {
		if m.Role == neutral.RoleSystem {
			for _, b := range m.Content {
				if b.Type == neutral.BlockText && b.Text != "" {
					systemTexts = append(systemTexts, b.Text)
				}
			}
			continue
		}

		var content []any
		for _, b := range m.Content {
			switch b.Type {
			case neutral.BlockText:
				if b.Text != "" {
					content = append(content, map[string]any{"type": "text", "text": b.Text})
				}
			case neutral.BlockToolCall:
				if b.ToolCall != nil {
					content = append(content, map[string]any{
						"type":  "tool_use",
						"id":    b.ToolCall.ID,
						"name":  b.ToolCall.Name,
						"input": b.ToolCall.Arguments,
					})
				}
			case neutral.BlockToolResult:
				if b.ToolResult != nil {
					content = append(content, map[string]any{
						"type":        "tool_result",
						"tool_use_id": b.ToolResult.CallID,
						"content":     claudeToolResultContent(b.ToolResult.Output),
					})
				}
			}
		}

		if len(content) > 0 {
			role := "assistant"
			if m.Role == neutral.RoleUser {
				role = "user"
			}
			out = append(out, map[string]any{"role": role, "content": content})
		}
	}

	body := map[string]any{"model": req.Model, "stream": req.Stream, "messages": out}
	if len(systemTexts) > 0 {
		body["system"] = joinNewline(systemTexts)
	}
	if len(tools) > 0 {
		body["tools"] = tools
	}
	if req.ToolChoice != nil {
		body["tool_choice"] = req.ToolChoice
	}
	mergeExtra(body, req.Extra)
	return body, nil
}

func (claudeChatAdapter) ResponseToNeutral(body map[string]any) (*neutral.ChatResponse, error) {
	var blocks []neutral.ContentBlock
	for _, rc := range sliceField(body, "content") {
		c, ok := rc.(map[string]any)
		if !ok {
			continue
		}
		switch stringField(c, "type") {
		case "text":
			blocks = append(blocks, neutral.TextBlock(stringField(c, "text")))
		case "tool_use":
			input, _ := c["input"].(map[string]any)
			blocks = append(blocks, neutral.ContentBlock{
				Type: neutral.BlockToolCall,
				ToolCall: &neutral.ToolCall{
					ID:        stringField(c, "id"),
					Name:      stringField(c, "name"),
					Arguments: input,
				},
			})
		}
	}
	if len(blocks) == 0 {
		blocks = append(blocks, neutral.TextBlock(""))
	}

	usage, _ := body["usage"].(map[string]any)
	return &neutral.ChatResponse{
		ID:           stringField(body, "id"),
		Model:        stringField(body, "model"),
		Messages:     []neutral.Message{{Role: neutral.RoleAssistant, Content: blocks}},
		FinishReason: stringField(body, "stop_reason"),
		Usage:        usage,
		Extra:        omitKeys(body, "id", "model", "content", "stop_reason", "usage"),
	}, nil
}

func (claudeChatAdapter) NeutralToResponse(resp *neutral.ChatResponse) (map[string]any, error) {
	last := lastMessage(resp)

	var content []any
	for _, b := range last.Content {
		switch b.Type {
		case neutral.BlockText:
			if b.Text != "" {
				content = append(content, map[string]any{"type": "text", "text": b.Text})
			}
		case neutral.BlockToolCall:
			if b.ToolCall != nil {
				content = append(content, map[string]any{
					"type":  "tool_use",
					"id":    b.ToolCall.ID,
					"name":  b.ToolCall.Name,
					"input": b.ToolCall.Arguments,
				})
			}
		}
	}
	if len(content) == 0 {
		content = []any{map[string]any{"type": "text", "text": ""}}
	}

	out := map[string]any{
		"id":          resp.ID,
		"model":       resp.Model,
		"type":        "message",
		"role":        "assistant",
		"content":     content,
		"stop_reason": resp.FinishReason,
		"usage":       resp.Usage,
	}
	mergeExtra(out, resp.Extra)
	return out, nil
}

func (claudeChatAdapter) StreamChunkToNeutral(data map[string]any) (neutral.StreamChunk, bool) {
	switch stringField(data, "type") {
	case "content_block_delta":
		delta, _ := data["delta"].(map[string]any)
		if stringField(delta, "type") != "text_delta" {
			return neutral.StreamChunk{}, false
		}
		return neutral.StreamChunk{Delta: stringField(delta, "text")}, true
	case "content_block_start":
		block, _ := data["content_block"].(map[string]any)
		if stringField(block, "type") != "tool_use" {
			return neutral.StreamChunk{}, false
		}
		idx := 0
		if rawIdx, ok := data["index"].(float64); ok {
			idx = int(rawIdx)
		}
		return neutral.StreamChunk{ToolCallDelta: []neutral.ToolCallDelta{{
			Index: idx,
			ID:    stringField(block, "id"),
			Name:  stringField(block, "name"),
		}}}, true
	case "message_stop":
		return neutral.StreamChunk{IsFinal: true}, true
	default:
		return neutral.StreamChunk{}, false
	}
}

func (claudeChatAdapter) NeutralToStreamFrame(chunk neutral.StreamChunk) (map[string]any, error) {
	if chunk.IsFinal {
		return map[string]any{"type": "message_stop"}, nil
	}
	if len(chunk.ToolCallDelta) > 0 {
		d := chunk.ToolCallDelta[0]
		return map[string]any{
			"type":  "content_block_start",
			"index": d.Index,
			"content_block": map[string]any{
				"type": "tool_use",
				"id":   d.ID,
				"name": d.Name,
			},
		}, nil
	}
	return map[string]any{
		"type":  "content_block_delta",
		"delta": map[string]any{"type": "text_delta", "text": chunk.Delta},
	}, nil
}

func extractClaudeSystem(system any) string {
	switch v := system.(type) {
	case string:
		return v
	case []any:
		var texts []string
		for _, rb := range v {
			block, ok := rb.(map[string]any)
			if !ok || stringField(block, "type") != "text" {
				continue
			}
			texts = append(texts, stringField(block, "text"))
		}
		return joinNewline(texts)
	default:
		return ""
	}
}

func extractClaudeToolResultText(content any) any {
	items, ok := content.([]any)
	if !ok {
		return content
	}
	var texts []string
	for _, ri := range items {
		item, ok := ri.(map[string]any)
		if !ok || stringField(item, "type") != "text" {
			continue
		}
		texts = append(texts, stringField(item, "text"))
	}
	return joinNewline(texts)
}

func claudeToolResultContent(output any) any {
	switch v := output.(type) {
	case string:
		return []any{map[string]any{"type": "text", "text": v}}
	case map[string]any:
		b, _ := json.Marshal(v)
		return []any{map[string]any{"type": "text", "text": string(b)}}
	default:
		return []any{map[string]any{"type": "text", "text": stringifyOutput(v)}}
	}
}
