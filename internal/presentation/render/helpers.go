package render

import (
	"fmt"
	"time"

	"github.com/a-h/templ"

	"github.com/penwyp/go-claude-transcripts/internal/annotation"
	"github.com/penwyp/go-claude-transcripts/internal/core/exchange"
	"github.com/penwyp/go-claude-transcripts/internal/core/model"
	"github.com/penwyp/go-claude-transcripts/internal/core/pagination"
	"github.com/penwyp/go-claude-transcripts/internal/util"
)

//go:generate templ generate

func promptAnchor(index int) string {
	return fmt.Sprintf("prompt-%d", index)
}

func promptLabel(p exchange.Prompt) string {
	if p.IsSynthetic() {
		return "Before the first prompt"
	}
	return fmt.Sprintf("Prompt #%d", p.Index)
}

// promptLink points from the overview to the prompt's section on its page.
func promptLink(pageNumber, index int) string {
	return fmt.Sprintf("%s#%s", pagination.FileName(pageNumber), promptAnchor(index))
}

// overviewLink points from a prompt section back to its overview entry.
func overviewLink(p exchange.Prompt) string {
	return IndexFile + "#" + annotation.OverviewAnchor(p).ID()
}

func (r *Renderer) formatTime(t time.Time) string {
	if r.Time == nil {
		if t.IsZero() {
			return ""
		}
		return t.UTC().Format(timeLayout)
	}
	return r.Time.Format(t, timeLayout)
}

func (r *Renderer) documentTitle(heading string) string {
	return heading + " · " + r.title()
}

// inlineStyle and inlineScript emit trusted embedded assets verbatim.
func inlineStyle(css string) templ.Component {
	return templ.Raw("<style>" + css + "</style>")
}

func inlineScript(js string) templ.Component {
	return templ.Raw("<script>" + js + "</script>")
}

func indexSubtitle(pages []pagination.Page) string {
	prompts, tools := 0, 0
	for _, page := range pages {
		for _, p := range page.Prompts {
			if !p.IsSynthetic() {
				prompts++
			}
			tools += p.Stats().ToolCalls
		}
	}
	return fmt.Sprintf("%s · %s · %s",
		util.Plural(prompts, "prompt"), util.Plural(len(pages), "page"), util.Plural(tools, "tool call"))
}

func pageSubtitle(page pagination.Page, total int) string {
	return fmt.Sprintf("Page %d of %d · %s", page.Number, total, util.Plural(len(page.Prompts), "prompt"))
}

func indexItemClass(p exchange.Prompt) string {
	if p.IsSynthetic() {
		return "index-item synthetic"
	}
	return "index-item"
}

func (r *Renderer) summary(p exchange.Prompt) string {
	if s := util.TruncateDisplay(p.Text(), r.summaryWidth()); s != "" {
		return s
	}
	return "(no text)"
}

func promptStats(p exchange.Prompt) string {
	stats := p.Stats()
	return fmt.Sprintf("%s · %s", util.Plural(stats.AssistantTurns, "response"), util.Plural(stats.ToolCalls, "tool call"))
}

func messageClass(b exchange.PositionedBlock) string {
	return "message " + roleClass(b)
}

func roleClass(b exchange.PositionedBlock) string {
	switch b.Block.Type {
	case model.ItemThinking:
		return "thinking"
	case model.ItemToolUse:
		return "tool-use"
	case model.ItemToolResult:
		if b.Block.IsError {
			return "tool-result tool-error"
		}
		return "tool-result"
	case model.BlockMeta:
		return "meta"
	}
	if b.Kind == model.KindUser {
		return "user"
	}
	return "assistant"
}

func roleLabel(b exchange.PositionedBlock) string {
	switch b.Block.Type {
	case model.ItemThinking:
		return "Thinking"
	case model.ItemToolUse:
		return "Tool call"
	case model.ItemToolResult:
		if b.Block.IsError {
			return "Tool error"
		}
		return "Tool result"
	case model.BlockMeta:
		return b.Block.ToolName
	}
	if b.Kind == model.KindUser {
		return "User"
	}
	return "Assistant"
}

func blockDetail(b model.Block) string {
	switch b.Type {
	case model.ItemToolUse:
		return b.ToolName
	case model.ItemToolResult:
		return b.ToolUseID
	}
	return ""
}

func toolInput(b model.Block) string {
	if b.Input == "" {
		return "{}"
	}
	return b.Input
}
