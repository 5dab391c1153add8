package fixtures

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bytedance/sonic"
)

// TranscriptBuilder generates Claude Code session transcripts for tests.
type TranscriptBuilder struct {
	sessionID string
	clock     time.Time
	step      time.Duration
	lines     []string
	seq       int
	toolSeq   int
	lastTool  string
}

// NewTranscript creates a builder whose records start at the given time and
// advance by five seconds each.
func NewTranscript(sessionID string, start time.Time) *TranscriptBuilder {
	return &TranscriptBuilder{
		sessionID: sessionID,
		clock:     start,
		step:      5 * time.Second,
	}
}

func (b *TranscriptBuilder) add(entry map[string]any) *TranscriptBuilder {
	b.seq++
	entry["uuid"] = fmt.Sprintf("uuid-%d", b.seq)
	entry["sessionId"] = b.sessionID
	entry["timestamp"] = b.clock.UTC().Format(time.RFC3339)
	entry["version"] = "1.0"
	b.clock = b.clock.Add(b.step)

	data, err := sonic.ConfigStd.Marshal(entry)
	if err != nil {
		panic(fmt.Sprintf("fixtures: marshal entry: %v", err))
	}
	b.lines = append(b.lines, string(data))
	return b
}

// User appends a user prompt with plain string content.
func (b *TranscriptBuilder) User(text string) *TranscriptBuilder {
	return b.add(map[string]any{
		"type":    "user",
		"message": map[string]any{"role": "user", "content": text},
	})
}

// Assistant appends an assistant text reply.
func (b *TranscriptBuilder) Assistant(text string) *TranscriptBuilder {
	return b.add(map[string]any{
		"type": "assistant",
		"message": map[string]any{
			"role":    "assistant",
			"model":   "claude-sonnet-4-20250514",
			"content": []map[string]any{{"type": "text", "text": text}},
		},
	})
}

// ToolUse appends an assistant record that only calls a tool.
func (b *TranscriptBuilder) ToolUse(name string, input map[string]any) *TranscriptBuilder {
	b.toolSeq++
	b.lastTool = fmt.Sprintf("toolu_%03d", b.toolSeq)
	return b.add(map[string]any{
		"type": "assistant",
		"message": map[string]any{
			"role": "assistant",
			"content": []map[string]any{{
				"type":  "tool_use",
				"id":    b.lastTool,
				"name":  name,
				"input": input,
			}},
		},
	})
}

// ToolResult appends the result of the most recent tool call.
func (b *TranscriptBuilder) ToolResult(content string) *TranscriptBuilder {
	return b.add(map[string]any{
		"type": "user",
		"message": map[string]any{
			"role": "user",
			"content": []map[string]any{{
				"type":        "tool_result",
				"tool_use_id": b.lastTool,
				"content":     content,
			}},
		},
	})
}

// Summary appends a summary record.
func (b *TranscriptBuilder) Summary(text string) *TranscriptBuilder {
	return b.add(map[string]any{"type": "summary", "summary": text})
}

// Exchange appends a user prompt followed by one assistant reply.
func (b *TranscriptBuilder) Exchange(prompt, reply string) *TranscriptBuilder {
	return b.User(prompt).Assistant(reply)
}

// Raw appends a line verbatim, e.g. malformed JSON.
func (b *TranscriptBuilder) Raw(line string) *TranscriptBuilder {
	b.lines = append(b.lines, line)
	return b
}

// Lines returns the generated JSONL lines.
func (b *TranscriptBuilder) Lines() []string {
	return append([]string(nil), b.lines...)
}

// String returns the transcript as JSONL text.
func (b *TranscriptBuilder) String() string {
	if len(b.lines) == 0 {
		return ""
	}
	return strings.Join(b.lines, "\n") + "\n"
}

// WriteFile writes the transcript into dir and returns its path.
func (b *TranscriptBuilder) WriteFile(dir, name string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return "", err
	}
	return path, nil
}

// GenerateConversation builds a transcript of n user prompts, each answered
// by a tool call, its result and a text reply.
func GenerateConversation(sessionID string, start time.Time, n int) *TranscriptBuilder {
	b := NewTranscript(sessionID, start)
	for i := 1; i <= n; i++ {
		b.User(fmt.Sprintf("Prompt %d: please inspect the repository", i)).
			ToolUse("Bash", map[string]any{"command": fmt.Sprintf("ls dir%d", i)}).
			ToolResult(fmt.Sprintf("file%d.go", i)).
			Assistant(fmt.Sprintf("Reply %d: found one file", i))
	}
	return b
}
