package adapters

import "github.com/guardianbridge/gbridge/internal/neutral"

// claudeCodeAdapter implements the Claude Code (Agent-SDK) dialect:
// {prompt, options} requests. Responses and streaming reuse the Claude
// Chat wire shape (the Agent-SDK speaks Messages-API responses), so
// those four functions delegate to claudeChatAdapter.
type claudeCodeAdapter struct {
	chat claudeChatAdapter
}

func NewClaudeCodeAdapter() Adapter { return claudeCodeAdapter{} }

func (claudeCodeAdapter) Dialect() Dialect { return ClaudeCode }

func (claudeCodeAdapter) CanParse(path string, headers map[string]string, body map[string]any) bool {
	_, hasPrompt := body["prompt"].(string)
	_, hasMessages := body["messages"]
	return hasPrompt && !hasMessages
}

func (claudeCodeAdapter) RequestToNeutral(body map[string]any) (*neutral.ChatRequest, error) {
	prompt := stringField(body, "prompt")
	options := objectField(body, "options")

	req := &neutral.ChatRequest{
		Model: stringField(options, "model"),
		Extra: omitKeys(options, "model", "systemPrompt", "mcpServers", "tool_choice"),
	}
	if req.Model == "" {
		req.Model = "claude-sonnet-4-5"
	}
	req.ToolChoice = options["tool_choice"]

	if sys := stringField(options, "systemPrompt"); sys != "" {
		req.Messages = append(req.Messages, neutral.Message{
			Role:    neutral.RoleSystem,
			Content: []neutral.ContentBlock{neutral.TextBlock(sys)},
		})
	}
	req.Messages = append(req.Messages, neutral.Message{
		Role:    neutral.RoleUser,
		Content: []neutral.ContentBlock{neutral.TextBlock(prompt)},
	})

	mcpServers := objectField(options, "mcpServers")
	for serverName, rawServer := range mcpServers {
		server, ok := rawServer.(map[string]any)
		if !ok {
			continue
		}
		for _, rawTool := range sliceField(server, "tools") {
			tool, ok := rawTool.(map[string]any)
			if !ok {
				continue
			}
			req.Tools = append(req.Tools, neutral.ToolDef{
				Name:        "mcp__" + serverName + "__" + stringField(tool, "name"),
				Description: stringField(tool, "description"),
				InputSchema: objectField(tool, "input_schema"),
			})
		}
	}

	return req, nil
}

// NeutralToRequest renders as the Agent-SDK's own {prompt, options}
// shape is not a useful upstream target for arbitrary neutral requests
// (it only accepts a single trailing user prompt); GuardianBridge never
// originates Claude Code requests toward an upstream, so this renders
// the Claude Messages shape instead, matching what real Claude Code
// upstreams actually accept on the wire.
func (c claudeCodeAdapter) NeutralToRequest(req *neutral.ChatRequest) (map[string]any, error) {
	return c.chat.NeutralToRequest(req)
}

func (c claudeCodeAdapter) ResponseToNeutral(body map[string]any) (*neutral.ChatResponse, error) {
	return c.chat.ResponseToNeutral(body)
}

func (c claudeCodeAdapter) NeutralToResponse(resp *neutral.ChatResponse) (map[string]any, error) {
	return c.chat.NeutralToResponse(resp)
}

func (c claudeCodeAdapter) StreamChunkToNeutral(data map[string]any) (neutral.StreamChunk, bool) {
	return c.chat.StreamChunkToNeutral(data)
}

func (c claudeCodeAdapter) NeutralToStreamFrame(chunk neutral.StreamChunk) (map[string]any, error) {
	return c.chat.NeutralToStreamFrame(chunk)
}
