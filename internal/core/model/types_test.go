package model

import (
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlexibleContentUnmarshalJSON(t *testing.T) {
	tests := []struct {
		name          string
		jsonData      string
		expected      FlexibleContent
		expectError   bool
		errorContains string
	}{
		{
			name:     "string_content",
			jsonData: `"Hello, world!"`,
			expected: FlexibleContent{
				{Type: "text", Text: "Hello, world!"},
			},
		},
		{
			name:     "array_content_multiple_items",
			jsonData: `[{"type": "text", "text": "First item"}, {"type": "tool_use", "name": "Bash", "id": "tool123"}]`,
			expected: FlexibleContent{
				{Type: "text", Text: "First item"},
				{Type: "tool_use", Name: "Bash", Id: "tool123"},
			},
		},
		{
			name:     "empty_array",
			jsonData: `[]`,
			expected: FlexibleContent{},
		},
		{
			name:          "number_content",
			jsonData:      `123`,
			expectError:   true,
			errorContains: "content must be either string or array of ContentItem",
		},
		{
			name:          "object_content",
			jsonData:      `{"key": "value"}`,
			expectError:   true,
			errorContains: "content must be either string or array of ContentItem",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var fc FlexibleContent
			err := sonic.Unmarshal([]byte(tt.jsonData), &fc)

			if tt.expectError {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorContains)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, fc)
		})
	}
}

func parseLog(t *testing.T, line string) ConversationLog {
	t.Helper()
	var log ConversationLog
	require.NoError(t, sonic.Unmarshal([]byte(line), &log))
	return log
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		expected Kind
	}{
		{
			name:     "user string content",
			line:     `{"type":"user","message":{"role":"user","content":"Hello"}}`,
			expected: KindUser,
		},
		{
			name:     "user tool results only",
			line:     `{"type":"user","message":{"role":"user","content":[{"type":"tool_result","tool_use_id":"t1","content":"ok"}]}}`,
			expected: KindToolResult,
		},
		{
			name:     "user meta record",
			line:     `{"type":"user","isMeta":true,"message":{"role":"user","content":"<command-name>/clear</command-name>"}}`,
			expected: KindMeta,
		},
		{
			name:     "assistant text",
			line:     `{"type":"assistant","message":{"role":"assistant","content":[{"type":"text","text":"Hi"}]}}`,
			expected: KindAssistant,
		},
		{
			name:     "assistant tool use only",
			line:     `{"type":"assistant","message":{"role":"assistant","content":[{"type":"tool_use","id":"t1","name":"Bash","input":{"command":"ls"}}]}}`,
			expected: KindToolCall,
		},
		{
			name:     "assistant mixed text and tool use",
			line:     `{"type":"assistant","message":{"role":"assistant","content":[{"type":"text","text":"Running"},{"type":"tool_use","id":"t1","name":"Bash","input":{}}]}}`,
			expected: KindAssistant,
		},
		{
			name:     "explicit tool_use record",
			line:     `{"type":"tool_use","message":{"content":[{"type":"tool_use","name":"Read"}]}}`,
			expected: KindToolCall,
		},
		{
			name:     "explicit tool_result record",
			line:     `{"type":"tool_result","message":{"content":"done"}}`,
			expected: KindToolResult,
		},
		{
			name:     "summary record",
			line:     `{"type":"summary","summary":"Refactor parser"}`,
			expected: KindMeta,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Classify(parseLog(t, tt.line)))
		})
	}
}

func TestExtractBlocks(t *testing.T) {
	log := parseLog(t, `{"type":"assistant","message":{"role":"assistant","content":[
		{"type":"thinking","thinking":"Let me check"},
		{"type":"text","text":"Listing files"},
		{"type":"text","text":"   "},
		{"type":"tool_use","id":"t1","name":"Bash","input":{"command":"ls","description":"list"}}
	]}}`)

	blocks := ExtractBlocks(log, Classify(log))
	require.Len(t, blocks, 3, "blank text items are dropped")

	assert.Equal(t, Block{Type: ItemThinking, Text: "Let me check"}, blocks[0])
	assert.Equal(t, Block{Type: ItemText, Text: "Listing files"}, blocks[1])
	assert.Equal(t, ItemToolUse, blocks[2].Type)
	assert.Equal(t, "Bash", blocks[2].ToolName)
	assert.Equal(t, "{\n  \"command\": \"ls\",\n  \"description\": \"list\"\n}", blocks[2].Input)
}

func TestExtractBlocksToolResultContent(t *testing.T) {
	log := parseLog(t, `{"type":"user","message":{"role":"user","content":[
		{"type":"tool_result","tool_use_id":"t1","is_error":true,"content":[{"type":"text","text":"line 1"},{"type":"text","text":"line 2"}]}
	]}}`)

	blocks := ExtractBlocks(log, KindToolResult)
	require.Len(t, blocks, 1)
	assert.Equal(t, "line 1\nline 2", blocks[0].Text)
	assert.True(t, blocks[0].IsError)
	assert.Equal(t, "t1", blocks[0].ToolUseID)
}

func TestExtractBlocksMeta(t *testing.T) {
	summary := parseLog(t, `{"type":"summary","summary":"Fixed the flaky test"}`)
	blocks := ExtractBlocks(summary, KindMeta)
	require.Len(t, blocks, 1)
	assert.Equal(t, Block{Type: BlockMeta, ToolName: "summary", Text: "Fixed the flaky test"}, blocks[0])

	bare := parseLog(t, `{"type":"file-history-snapshot"}`)
	blocks = ExtractBlocks(bare, KindMeta)
	require.Len(t, blocks, 1)
	assert.Equal(t, "file-history-snapshot", blocks[0].Text)
}

func TestExtractBlocksEmptyMessageYieldsOneBlock(t *testing.T) {
	log := parseLog(t, `{"type":"assistant","message":{"role":"assistant","content":[]}}`)
	blocks := ExtractBlocks(log, KindAssistant)
	require.Len(t, blocks, 1)
	assert.Equal(t, ItemText, blocks[0].Type)
}

func TestBlockCanonicalDistinguishesFields(t *testing.T) {
	a := Block{Type: ItemText, Text: "ls"}
	b := Block{Type: ItemToolUse, ToolName: "ls"}
	assert.NotEqual(t, a.Canonical(), b.Canonical())
	assert.Equal(t, a.Canonical(), Block{Type: ItemText, Text: "ls"}.Canonical())
}

func TestEventUserText(t *testing.T) {
	var nilEvent *Event
	assert.Equal(t, "", nilEvent.UserText())

	e := &Event{Blocks: []Block{
		{Type: ItemText, Text: "first"},
		{Type: ItemImage, Text: "[image]"},
		{Type: ItemText, Text: "second"},
	}}
	assert.Equal(t, "first\nsecond", e.UserText())
}
