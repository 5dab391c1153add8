package model

// Record types as they appear in the "type" field of a transcript line.
const (
	RecordUser       = "user"
	RecordHuman      = "human"
	RecordAssistant  = "assistant"
	RecordToolUse    = "tool_use"
	RecordToolResult = "tool_result"
)

// Content item types.
const (
	ItemText       = "text"
	ItemThinking   = "thinking"
	ItemToolUse    = "tool_use"
	ItemToolResult = "tool_result"
	ItemImage      = "image"
)

// BlockMeta is the block type used for records that carry no conversational content.
const BlockMeta = "meta"
