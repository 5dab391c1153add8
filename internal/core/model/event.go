package model

import (
	"strings"
	"time"

	"github.com/bytedance/sonic"
)

// Kind classifies a transcript event.
type Kind string

const (
	KindUser       Kind = "user"
	KindAssistant  Kind = "assistant"
	KindToolCall   Kind = "tool_call"
	KindToolResult Kind = "tool_result"
	KindMeta       Kind = "meta"
)

// Event is one parsed transcript record. Events are immutable once parsed.
type Event struct {
	// Seq is the 0-based position of the record among accepted records.
	Seq       int
	Line      int
	Kind      Kind
	Timestamp time.Time
	Raw       ConversationLog
	Blocks    []Block
}

// Block is a single renderable, annotatable piece of an event's content.
type Block struct {
	Type      string
	Text      string
	ToolName  string
	ToolUseID string
	Input     string
	IsError   bool
}

// Canonical returns the content-derived string anchors are hashed from.
func (b Block) Canonical() string {
	var sb strings.Builder
	sb.WriteString(b.Type)
	sb.WriteByte(0)
	sb.WriteString(b.ToolName)
	sb.WriteByte(0)
	sb.WriteString(b.Input)
	sb.WriteByte(0)
	sb.WriteString(b.Text)
	return sb.String()
}

// Classify decides the event kind for a raw record.
func Classify(log ConversationLog) Kind {
	switch log.Type {
	case RecordUser, RecordHuman:
		if log.IsMeta {
			return KindMeta
		}
		if log.Message != nil && allItems(log.Message.Content, ItemToolResult) {
			return KindToolResult
		}
		return KindUser
	case RecordAssistant:
		if log.Message != nil && allItems(log.Message.Content, ItemToolUse) {
			return KindToolCall
		}
		return KindAssistant
	case RecordToolUse:
		return KindToolCall
	case RecordToolResult:
		return KindToolResult
	default:
		return KindMeta
	}
}

// IsConversational reports whether records of this kind must carry a message.
func (k Kind) IsConversational() bool {
	return k != KindMeta
}

func allItems(content FlexibleContent, itemType string) bool {
	if len(content) == 0 {
		return false
	}
	for _, item := range content {
		if item.Type != itemType {
			return false
		}
	}
	return true
}

// ExtractBlocks converts a record into its content blocks. Every event yields
// at least one block so that it can be rendered and annotated.
func ExtractBlocks(log ConversationLog, kind Kind) []Block {
	if kind == KindMeta || log.Message == nil {
		return []Block{metaBlock(log)}
	}

	blocks := make([]Block, 0, len(log.Message.Content))
	for _, item := range log.Message.Content {
		switch item.Type {
		case ItemText:
			if strings.TrimSpace(item.Text) == "" {
				continue
			}
			blocks = append(blocks, Block{Type: ItemText, Text: item.Text})
		case ItemThinking:
			blocks = append(blocks, Block{Type: ItemThinking, Text: item.Thinking})
		case ItemToolUse:
			blocks = append(blocks, Block{
				Type:      ItemToolUse,
				ToolName:  item.Name,
				ToolUseID: item.Id,
				Input:     canonicalJSON(item.Input),
			})
		case ItemToolResult:
			blocks = append(blocks, Block{
				Type:      ItemToolResult,
				ToolUseID: item.ToolUseId,
				Text:      resultText(item.Content),
				IsError:   item.IsError,
			})
		case ItemImage:
			blocks = append(blocks, Block{Type: ItemImage, Text: "[image]"})
		default:
			blocks = append(blocks, Block{Type: item.Type, Text: item.Text})
		}
	}

	if len(blocks) == 0 {
		blocks = append(blocks, Block{Type: ItemText})
	}
	return blocks
}

func metaBlock(log ConversationLog) Block {
	text := log.Summary
	if text == "" {
		text = log.Content
	}
	if text == "" && log.Message != nil {
		parts := make([]string, 0, len(log.Message.Content))
		for _, item := range log.Message.Content {
			if item.Text != "" {
				parts = append(parts, item.Text)
			}
		}
		text = strings.Join(parts, "\n")
	}
	if text == "" {
		text = log.Type
	}
	return Block{Type: BlockMeta, ToolName: log.Type, Text: text}
}

// canonicalJSON renders tool input with sorted keys so the output is stable.
func canonicalJSON(v map[string]any) string {
	if len(v) == 0 {
		return ""
	}
	data, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
	if err != nil {
		return ""
	}
	return string(data)
}

func resultText(content any) string {
	switch c := content.(type) {
	case nil:
		return ""
	case string:
		return c
	case []any:
		parts := make([]string, 0, len(c))
		for _, part := range c {
			if m, ok := part.(map[string]any); ok {
				if text, ok := m["text"].(string); ok {
					parts = append(parts, text)
					continue
				}
			}
			if data, err := sonic.ConfigStd.Marshal(part); err == nil {
				parts = append(parts, string(data))
			}
		}
		return strings.Join(parts, "\n")
	default:
		data, err := sonic.ConfigStd.Marshal(c)
		if err != nil {
			return ""
		}
		return string(data)
	}
}

// UserText returns the concatenated text of the event's text blocks.
func (e *Event) UserText() string {
	if e == nil {
		return ""
	}
	parts := make([]string, 0, len(e.Blocks))
	for _, b := range e.Blocks {
		if b.Type == ItemText || b.Type == BlockMeta {
			parts = append(parts, b.Text)
		}
	}
	return strings.Join(parts, "\n")
}
