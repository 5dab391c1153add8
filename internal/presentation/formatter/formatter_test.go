package formatter

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/creack/pty"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSummary() GenerationSummary {
	return GenerationSummary{
		SessionFile: "/tmp/session.jsonl",
		OutputDir:   "/tmp/out",
		StorageKey:  "annotations:session",
		Events:      1234,
		Prompts:     12,
		Pages:       3,
		Anchors:     60,
		Warnings:    []string{"line 7: invalid JSON: unexpected end"},
		Files:       []string{"/tmp/out/index.html", "/tmp/out/page-001.html"},
		Phases: []Phase{
			{Name: "parse", Duration: 12 * time.Millisecond},
			{Name: "render", Duration: 40 * time.Millisecond},
		},
		Total: 55 * time.Millisecond,
	}
}

func TestTableFormatterGeneration(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewTableFormatter().FormatGeneration(&buf, sampleSummary()))

	out := buf.String()
	assert.Contains(t, out, "Transcript generated")
	assert.Contains(t, out, "Prompts:")
	assert.Contains(t, out, "1.2K")
	assert.Contains(t, out, "parse 12ms, render 40ms")
	assert.Contains(t, out, "(total 55ms)")
	assert.Contains(t, out, "1 line skipped:")
	assert.Contains(t, out, "line 7: invalid JSON")
	assert.Contains(t, out, "Open /tmp/out/index.html")
	assert.NotContains(t, out, "\x1b[", "unstyled output has no escape codes")
}

func TestTableFormatterAnnotations(t *testing.T) {
	rows := []AnnotationRow{
		{ID: "a", Target: "p0001-b0000-00000001", Page: 0, Text: "overview note"},
		{ID: "b", Target: "p0002-b0003-0badcafe", Page: 2, Unresolved: true, Text: strings.Repeat("long ", 40)},
	}

	var buf bytes.Buffer
	f := &TableFormatter{Width: 80}
	require.NoError(t, f.FormatAnnotations(&buf, rows))

	out := buf.String()
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 7)
	assert.True(t, strings.HasPrefix(lines[0], "┌"))
	assert.Contains(t, lines[1], "Page")
	assert.Contains(t, lines[3], "index")
	assert.Contains(t, lines[4], "unresolved")
	assert.Contains(t, lines[4], "…")
	assert.Equal(t, "2 annotations", lines[6])

	width := len([]rune(lines[0]))
	for _, line := range lines[:6] {
		assert.Equal(t, width, len([]rune(line)), "table rows align")
	}

	buf.Reset()
	require.NoError(t, f.FormatAnnotations(&buf, nil))
	assert.Equal(t, "No annotations\n", buf.String())
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewJSONFormatter().FormatGeneration(&buf, sampleSummary()))

	var decoded map[string]any
	require.NoError(t, sonic.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, float64(12), decoded["prompts"])
	assert.Equal(t, "annotations:session", decoded["storage_key"])
	assert.Equal(t, float64(55), decoded["total_ms"])
	assert.Equal(t, float64(12), decoded["phases_ms"].(map[string]any)["parse"])

	buf.Reset()
	require.NoError(t, NewJSONFormatter().FormatAnnotations(&buf, nil))
	assert.Equal(t, "[]\n", buf.String())
}

func TestNewFormatter(t *testing.T) {
	f, err := New("json", nil)
	require.NoError(t, err)
	assert.IsType(t, &JSONFormatter{}, f)

	f, err = New("text", nil)
	require.NoError(t, err)
	table := f.(*TableFormatter)
	assert.False(t, table.Styled)
	assert.Equal(t, 74, table.Width)

	_, err = New("csv", nil)
	assert.ErrorContains(t, err, `unsupported output format "csv"`)
}

func TestNewFormatterOnTerminal(t *testing.T) {
	ptmx, tty, err := pty.Open()
	if err != nil {
		t.Skipf("no pty available: %v", err)
	}
	defer ptmx.Close()
	defer tty.Close()
	require.NoError(t, pty.Setsize(ptmx, &pty.Winsize{Rows: 40, Cols: 100}))

	f, err := New("text", tty)
	require.NoError(t, err)
	table := f.(*TableFormatter)
	assert.True(t, table.Styled)
	assert.Equal(t, 92, table.Width)

	require.NoError(t, pty.Setsize(ptmx, &pty.Winsize{Rows: 40, Cols: 300}))
	assert.Equal(t, 120, MaxWidth(tty))
}
