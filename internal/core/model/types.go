package model

import (
	"fmt"

	"github.com/bytedance/sonic"
)

// ConversationLog is one raw record of a Claude Code session transcript.
type ConversationLog struct {
	Content   string   `json:"content,omitempty"`
	IsMeta    bool     `json:"isMeta,omitempty"`
	Message   *Message `json:"message,omitempty"`
	SessionId string   `json:"sessionId,omitempty"`
	Summary   string   `json:"summary,omitempty"`
	Timestamp string   `json:"timestamp,omitempty"`
	Type      string   `json:"type"`
	Uuid      string   `json:"uuid,omitempty"`
}

type Message struct {
	Content FlexibleContent `json:"content"`
	Id      string          `json:"id,omitempty"`
	Model   string          `json:"model,omitempty"`
	Role    string          `json:"role,omitempty"`
}

// FlexibleContent accepts message content as either a plain string or an
// array of content items.
type FlexibleContent []ContentItem

func (fc *FlexibleContent) UnmarshalJSON(data []byte) error {
	// First try to parse as []ContentItem array
	var items []ContentItem
	if err := sonic.Unmarshal(data, &items); err == nil {
		*fc = items
		return nil
	}

	// If array parsing fails, try to parse as string
	var str string
	if err := sonic.Unmarshal(data, &str); err == nil {
		*fc = []ContentItem{{Type: ItemText, Text: str}}
		return nil
	}

	return fmt.Errorf("content must be either string or array of ContentItem")
}

type ContentItem struct {
	Content   any            `json:"content,omitempty"`
	Id        string         `json:"id,omitempty"`
	Input     map[string]any `json:"input,omitempty"`
	IsError   bool           `json:"is_error,omitempty"`
	Name      string         `json:"name,omitempty"`
	Text      string         `json:"text,omitempty"`
	Thinking  string         `json:"thinking,omitempty"`
	ToolUseId string         `json:"tool_use_id,omitempty"`
	Type      string         `json:"type"`
}
