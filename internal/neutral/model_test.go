package neutral

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractModerationTextSkipsAssistantAndTool(t *testing.T) {
	req := &ChatRequest{Messages: []Message{
		{Role: RoleSystem, Content: []ContentBlock{TextBlock("be nice")}},
		{Role: RoleUser, Content: []ContentBlock{TextBlock("hello there")}},
		{Role: RoleAssistant, Content: []ContentBlock{TextBlock("ignored")}},
		{Role: RoleTool, Content: []ContentBlock{TextBlock("ignored too")}},
	}}

	assert.Equal(t, "be nice\nhello there", req.ExtractModerationText())
}

func TestExtractModerationTextSkipsNonTextBlocks(t *testing.T) {
	req := &ChatRequest{Messages: []Message{
		{Role: RoleUser, Content: []ContentBlock{
			{Type: BlockImage, Image: &Image{URL: "data:image/png;base64,xyz"}},
			TextBlock("actual text"),
		}},
	}}

	assert.Equal(t, "actual text", req.ExtractModerationText())
}

func TestHasToolActivityDetectsTools(t *testing.T) {
	assert.True(t, (&ChatRequest{Tools: []ToolDef{{Name: "search"}}}).HasToolActivity())
	assert.True(t, (&ChatRequest{ToolChoice: "auto"}).HasToolActivity())
	assert.True(t, (&ChatRequest{Messages: []Message{
		{Role: RoleAssistant, Content: []ContentBlock{{Type: BlockToolCall, ToolCall: &ToolCall{Name: "search"}}}},
	}}).HasToolActivity())
	assert.False(t, (&ChatRequest{Messages: []Message{
		{Role: RoleUser, Content: []ContentBlock{TextBlock("hi")}},
	}}).HasToolActivity())
}
