package exchange

import (
	"fmt"
	"time"

	"github.com/penwyp/go-claude-transcripts/internal/core/model"
	"github.com/penwyp/go-claude-transcripts/internal/util"
)

// Prompt is one user turn plus all following non-user activity up to the
// next user turn. Index 0 is reserved for activity preceding the first user
// turn, in which case User is nil.
type Prompt struct {
	Index     int
	User      *model.Event
	Responses []model.Event
}

// PositionedBlock is an annotatable block addressed within its prompt.
type PositionedBlock struct {
	// SubPosition is 1-based; 0 addresses the prompt's overview entry.
	SubPosition int
	Kind        model.Kind
	EventSeq    int
	Block       model.Block
}

// Group splits events into prompts. Every event ends up in exactly one prompt.
func Group(events []model.Event) []Prompt {
	start := time.Now()
	var prompts []Prompt
	next := 1

	for i := range events {
		ev := events[i]
		if ev.Kind == model.KindUser {
			user := ev
			prompts = append(prompts, Prompt{Index: next, User: &user})
			next++
			continue
		}
		if len(prompts) == 0 {
			prompts = append(prompts, Prompt{Index: 0})
		}
		last := &prompts[len(prompts)-1]
		last.Responses = append(last.Responses, ev)
	}

	util.LogDebug(fmt.Sprintf("Grouped %d events into %d prompts, duration %v",
		len(events), len(prompts), time.Since(start)))
	return prompts
}

// IsSynthetic reports whether the prompt collects events that preceded the
// first user turn.
func (p Prompt) IsSynthetic() bool {
	return p.User == nil
}

// Events returns the prompt's events in record order.
func (p Prompt) Events() []model.Event {
	events := make([]model.Event, 0, len(p.Responses)+1)
	if p.User != nil {
		events = append(events, *p.User)
	}
	return append(events, p.Responses...)
}

// Blocks enumerates the prompt's annotatable blocks. The user turn's blocks
// come first, starting at sub-position 1.
func (p Prompt) Blocks() []PositionedBlock {
	var blocks []PositionedBlock
	for _, ev := range p.Events() {
		for _, b := range ev.Blocks {
			blocks = append(blocks, PositionedBlock{
				SubPosition: len(blocks) + 1,
				Kind:        ev.Kind,
				EventSeq:    ev.Seq,
				Block:       b,
			})
		}
	}
	return blocks
}

// Text returns the user turn's text, or the first response's text for the
// synthetic prompt.
func (p Prompt) Text() string {
	if p.User != nil {
		return p.User.UserText()
	}
	if len(p.Responses) > 0 {
		return p.Responses[0].UserText()
	}
	return ""
}

// Stats summarizes the response activity of a prompt.
type Stats struct {
	AssistantTurns int
	ToolCalls      int
	ToolResults    int
	Meta           int
}

func (p Prompt) Stats() Stats {
	var s Stats
	for _, ev := range p.Responses {
		switch ev.Kind {
		case model.KindAssistant:
			s.AssistantTurns++
			for _, b := range ev.Blocks {
				if b.Type == model.ItemToolUse {
					s.ToolCalls++
				}
			}
		case model.KindToolCall:
			s.ToolCalls += len(ev.Blocks)
		case model.KindToolResult:
			s.ToolResults++
		default:
			s.Meta++
		}
	}
	return s
}

// StartedAt returns the timestamp of the prompt's first event.
func (p Prompt) StartedAt() time.Time {
	for _, ev := range p.Events() {
		if !ev.Timestamp.IsZero() {
			return ev.Timestamp
		}
	}
	return time.Time{}
}
