package render

import (
	"context"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/penwyp/go-claude-transcripts/internal/core/exchange"
	"github.com/penwyp/go-claude-transcripts/internal/core/pagination"
	"github.com/penwyp/go-claude-transcripts/internal/data/parser"
	"github.com/penwyp/go-claude-transcripts/internal/testing/fixtures"
	"github.com/penwyp/go-claude-transcripts/internal/theme"
)

var fixtureStart = time.Date(2026, 1, 21, 10, 0, 0, 0, time.UTC)

func paginate(t *testing.T, b *fixtures.TranscriptBuilder, capacity int) []pagination.Page {
	t.Helper()
	result, err := parser.Parse(strings.NewReader(b.String()), "session.jsonl")
	require.NoError(t, err)
	return pagination.Paginate(exchange.Group(result.Events), capacity)
}

func newTestRenderer() *Renderer {
	return New(theme.Default(), "annotations:session", "")
}

func renderAll(t *testing.T, r *Renderer, pages []pagination.Page) (string, []string) {
	t.Helper()
	ctx := context.Background()
	index, err := r.RenderIndex(ctx, pages)
	require.NoError(t, err)
	var docs []string
	for _, page := range pages {
		doc, err := r.RenderPage(ctx, page, len(pages))
		require.NoError(t, err)
		docs = append(docs, string(doc))
	}
	return string(index), docs
}

func TestSingleExchangeRendersOnePage(t *testing.T) {
	pages := paginate(t, fixtures.NewTranscript("s", fixtureStart).Exchange("Hello", "Hi there!"), 10)
	require.Len(t, pages, 1)
	assert.Equal(t, "page-001.html", pages[0].FileName())

	index, docs := renderAll(t, newTestRenderer(), pages)
	assert.Contains(t, index, `data-prompt-num="1"`)
	assert.Contains(t, index, `href="page-001.html#prompt-1"`)

	require.Len(t, docs, 1)
	assert.Contains(t, docs[0], "Hello")
	assert.Contains(t, docs[0], "Hi there!")
	assert.Contains(t, docs[0], `class="message user"`)
	assert.Contains(t, docs[0], `class="message assistant"`)
}

func TestFourPromptsCapacityTwo(t *testing.T) {
	b := fixtures.NewTranscript("s", fixtureStart)
	for _, p := range []string{"one", "two", "three", "four"} {
		b.Exchange("prompt "+p, "answer "+p)
	}
	pages := paginate(t, b, 2)
	require.Len(t, pages, 2)

	index, docs := renderAll(t, newTestRenderer(), pages)

	for n, page := range map[string]string{"1": "page-001.html", "2": "page-001.html", "3": "page-002.html", "4": "page-002.html"} {
		assert.Contains(t, index, `data-prompt-num="`+n+`"`)
		assert.Contains(t, index, `href="`+page+`#prompt-`+n+`"`)
	}

	promptNums := regexp.MustCompile(`<section class="prompt" id="prompt-\d+" data-prompt-num="(\d+)"`)
	extract := func(doc string) []string {
		var out []string
		for _, m := range promptNums.FindAllStringSubmatch(doc, -1) {
			out = append(out, m[1])
		}
		return out
	}
	assert.Equal(t, []string{"1", "2"}, extract(docs[0]))
	assert.Equal(t, []string{"3", "4"}, extract(docs[1]))

	assert.Contains(t, docs[0], `href="page-002.html" rel="next"`)
	assert.NotContains(t, docs[0], `rel="prev"`)
	assert.Contains(t, docs[1], `href="page-001.html" rel="prev"`)
	assert.NotContains(t, docs[1], `rel="next"`)
}

func TestRenderingIsDeterministic(t *testing.T) {
	b := fixtures.GenerateConversation("s", fixtureStart, 7)

	index1, docs1 := renderAll(t, newTestRenderer(), paginate(t, b, 3))
	index2, docs2 := renderAll(t, newTestRenderer(), paginate(t, b, 3))

	assert.Equal(t, index1, index2)
	assert.Equal(t, docs1, docs2)

	anchors1, err := RenderAnchors(AnchorManifest(paginate(t, b, 3)))
	require.NoError(t, err)
	anchors2, err := RenderAnchors(AnchorManifest(paginate(t, b, 3)))
	require.NoError(t, err)
	assert.Equal(t, anchors1, anchors2)
}

func TestAnnotationChromeOnEveryDocument(t *testing.T) {
	pages := paginate(t, fixtures.NewTranscript("s", fixtureStart).User("Hello"), 5)
	index, docs := renderAll(t, newTestRenderer(), pages)

	required := []string{
		`class="annotate-icon"`, `id="annotate-icon"`, `class="annotation-badge"`,
		`id="annotation-menu"`, `id="annotation-start-btn"`, `id="annotation-load-btn"`,
		`id="annotation-export-btn"`, `id="annotation-cancel-btn"`,
		"Start Annotating", "Load Annotations", "Export Annotations", "Cancel",
		`id="annotation-modal"`, `id="annotation-input"`, `id="annotation-save-btn"`,
		`id="annotation-delete-btn"`, `id="annotation-close-btn"`,
		`id="annotation-status"`, `id="annotation-status-text"`, `id="annotation-done-btn"`,
		`class="annotation-wrapper"`, `class="annotation-content"`, `id="annotation-margin"`,
		`id="annotation-unresolved"`, `id="annotation-notice"`,
		`data-storage-key="annotations:session"`, `<script src="anchors.js"></script>`,
	}
	for _, doc := range append([]string{index}, docs...) {
		for _, s := range required {
			assert.Contains(t, doc, s)
		}
	}
	assert.Contains(t, index, `data-page-number="0"`)
	assert.Contains(t, docs[0], `data-page-number="1"`)
}

func TestAnnotationScriptEmbedded(t *testing.T) {
	pages := paginate(t, fixtures.NewTranscript("s", fixtureStart).User("Hello"), 5)
	index, docs := renderAll(t, newTestRenderer(), pages)

	for _, fn := range []string{
		"startAnnotating", "finishAnnotating", "exportAnnotations", "parseMarkdown",
		"renderAnnotations", "getStorageKey", "autoSave", "localStorage.setItem",
		"localStorage.getItem", "annotationMode", "createBubble", "layoutBubbles",
		"annotations.json",
	} {
		assert.Contains(t, index, fn)
		assert.Contains(t, docs[0], fn)
	}
	assert.Contains(t, index, AnnotationScript())
	assert.NotContains(t, AnnotationScript(), "</script")
}

func TestThemeVariablesInjected(t *testing.T) {
	pages := paginate(t, fixtures.NewTranscript("s", fixtureStart).User("Hello"), 5)
	r := newTestRenderer()
	r.Theme = theme.Merge(map[string]string{"annotation_bg": "#ff0000", "bg_color": "#101010"})

	index, docs := renderAll(t, r, pages)
	for _, doc := range []string{index, docs[0]} {
		assert.Contains(t, doc, "--annotation-bg: #ff0000;")
		assert.Contains(t, doc, "--bg-color: #101010;")
		assert.Contains(t, doc, "--annotation-border:")
		assert.Contains(t, doc, "var(--annotation-bg)")
	}
}

func TestBlocksCarryAnchors(t *testing.T) {
	pages := paginate(t, fixtures.NewTranscript("s", fixtureStart).
		User("look around").
		ToolUse("Bash", map[string]any{"command": "ls -la"}).
		ToolResult("main.go").
		Assistant("Found main.go"), 5)
	_, docs := renderAll(t, newTestRenderer(), pages)

	manifest := AnchorManifest(pages)
	for _, id := range manifest.IDs() {
		page, _ := manifest.Page(id)
		if page == 0 {
			continue
		}
		assert.Contains(t, docs[0], `id="`+id+`" data-anchor="`+id+`"`)
	}
	assert.Contains(t, docs[0], `class="message tool-use"`)
	assert.Contains(t, docs[0], `class="message tool-result"`)
	assert.Contains(t, docs[0], "&#34;command&#34;: &#34;ls -la&#34;")
}

func TestContentIsEscaped(t *testing.T) {
	pages := paginate(t, fixtures.NewTranscript("s", fixtureStart).
		Exchange("<script>alert(1)</script>", "a & b"), 5)
	index, docs := renderAll(t, newTestRenderer(), pages)

	assert.NotContains(t, docs[0], "<script>alert(1)</script>")
	assert.Contains(t, docs[0], "&lt;script&gt;alert(1)&lt;/script&gt;")
	assert.Contains(t, docs[0], "a &amp; b")
	assert.NotContains(t, index, "<script>alert(1)")
}

func TestOverviewSummaryTruncated(t *testing.T) {
	long := strings.Repeat("word ", 100)
	pages := paginate(t, fixtures.NewTranscript("s", fixtureStart).User(long), 5)
	r := newTestRenderer()
	r.SummaryWidth = 20

	index, _ := renderAll(t, r, pages)
	assert.Contains(t, index, `<div class="index-item-summary">word word word word…</div>`)
}

func TestSyntheticPromptAndEmptyTranscript(t *testing.T) {
	pages := paginate(t, fixtures.NewTranscript("s", fixtureStart).Summary("resumed").Exchange("hi", "ok"), 5)
	index, docs := renderAll(t, newTestRenderer(), pages)
	assert.Contains(t, index, `data-prompt-num="0"`)
	assert.Contains(t, index, "Before the first prompt")
	assert.Contains(t, docs[0], `id="prompt-0"`)
	assert.Contains(t, docs[0], `class="message meta"`)

	empty := pagination.Paginate(nil, 5)
	index, docs = renderAll(t, newTestRenderer(), empty)
	assert.Contains(t, index, "0 prompts")
	require.Len(t, docs, 1)
	assert.Contains(t, docs[0], "This transcript has no prompts.")
}

func TestRenderAnchorsScript(t *testing.T) {
	pages := paginate(t, fixtures.NewTranscript("s", fixtureStart).Exchange("a", "b").Exchange("c", "d"), 1)
	manifest := AnchorManifest(pages)

	script, err := RenderAnchors(manifest)
	require.NoError(t, err)
	body := string(script)
	assert.True(t, strings.HasPrefix(body, "window.TRANSCRIPT_ANCHORS = {"))
	assert.True(t, strings.HasSuffix(body, "\n};\n"))

	ids := manifest.IDs()
	require.Len(t, ids, 6)
	assert.Contains(t, body, `"`+ids[0]+`": 0`)
	assert.Contains(t, body, `"`+ids[5]+`": 2`)
	assert.Less(t, strings.Index(body, ids[1]), strings.Index(body, ids[2]), "anchors keep document order")
}
