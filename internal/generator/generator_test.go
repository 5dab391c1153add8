package generator

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/penwyp/go-claude-transcripts/internal/annotation"
	"github.com/penwyp/go-claude-transcripts/internal/core/exchange"
	"github.com/penwyp/go-claude-transcripts/internal/data/parser"
	"github.com/penwyp/go-claude-transcripts/internal/testing/fixtures"
	"github.com/penwyp/go-claude-transcripts/internal/theme"
)

var start = time.Date(2026, 2, 3, 9, 0, 0, 0, time.UTC)

func writeSession(t *testing.T, b *fixtures.TranscriptBuilder) string {
	t.Helper()
	path, err := b.WriteFile(t.TempDir(), "My Session.jsonl")
	require.NoError(t, err)
	return path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestGenerateWritesAllDocuments(t *testing.T) {
	session := writeSession(t, fixtures.GenerateConversation("s", start, 12))
	out := filepath.Join(t.TempDir(), "out")

	report, err := Generate(context.Background(), Config{SessionFile: session, OutputDir: out})
	require.NoError(t, err)

	assert.Equal(t, 12, report.Prompts)
	assert.Equal(t, 3, report.Pages)
	assert.Equal(t, 48, report.Events)
	assert.Empty(t, report.Warnings)
	assert.Equal(t, "annotations:my-session", report.StorageKey)

	var names []string
	for _, f := range report.Files {
		names = append(names, filepath.Base(f))
	}
	assert.Equal(t, []string{"index.html", "page-001.html", "page-002.html", "page-003.html", "anchors.js"}, names)

	index := readFile(t, filepath.Join(out, "index.html"))
	assert.Contains(t, index, `data-storage-key="annotations:my-session"`)
	assert.Equal(t, 12, strings.Count(index, `class="index-item"`))

	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	assert.Len(t, entries, 5, "no temp files left behind")
}

func TestGenerateIsDeterministic(t *testing.T) {
	session := writeSession(t, fixtures.GenerateConversation("s", start, 7))
	outA, outB := t.TempDir(), t.TempDir()

	_, err := Generate(context.Background(), Config{SessionFile: session, OutputDir: outA, PageSize: 2, Concurrency: 1})
	require.NoError(t, err)
	_, err = Generate(context.Background(), Config{SessionFile: session, OutputDir: outB, PageSize: 2, Concurrency: 8})
	require.NoError(t, err)

	for _, name := range []string{"index.html", "page-001.html", "page-004.html", "anchors.js"} {
		assert.Equal(t, readFile(t, filepath.Join(outA, name)), readFile(t, filepath.Join(outB, name)), name)
	}
}

func TestGenerateEmptyTranscript(t *testing.T) {
	session := writeSession(t, fixtures.NewTranscript("s", start))
	out := t.TempDir()

	report, err := Generate(context.Background(), Config{SessionFile: session, OutputDir: out})
	require.NoError(t, err)
	assert.Equal(t, 0, report.Prompts)
	assert.Equal(t, 1, report.Pages)
	assert.FileExists(t, filepath.Join(out, "page-001.html"))
}

func TestGenerateReportsMalformedLines(t *testing.T) {
	b := fixtures.NewTranscript("s", start).User("hi").Raw("{not json").Assistant("ok")
	report, err := Generate(context.Background(), Config{SessionFile: writeSession(t, b), OutputDir: t.TempDir()})
	require.NoError(t, err)
	require.Len(t, report.Warnings, 1)
	assert.Equal(t, 2, report.Warnings[0].Line)
	assert.Equal(t, 1, report.Prompts)
}

func TestGenerateThemeNotFoundWritesNothing(t *testing.T) {
	session := writeSession(t, fixtures.GenerateConversation("s", start, 2))
	out := filepath.Join(t.TempDir(), "out")

	_, err := Generate(context.Background(), Config{
		SessionFile: session, OutputDir: out, Theme: "nope", ThemesDir: t.TempDir(),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, theme.ErrThemeNotFound)
	assert.NoDirExists(t, out)
}

func TestGenerateCustomTheme(t *testing.T) {
	themes := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(themes, "dark.json"), []byte(`{"bg_color": "#000000"}`), 0o644))

	out := t.TempDir()
	_, err := Generate(context.Background(), Config{
		SessionFile: writeSession(t, fixtures.GenerateConversation("s", start, 1)),
		OutputDir:   out, Theme: "dark", ThemesDir: themes,
	})
	require.NoError(t, err)
	page := readFile(t, filepath.Join(out, "page-001.html"))
	assert.Contains(t, page, "--bg-color: #000000;")
	assert.Contains(t, page, "--annotation-bg: #fffde7;")
}

func TestGenerateMissingSession(t *testing.T) {
	_, err := Generate(context.Background(), Config{SessionFile: filepath.Join(t.TempDir(), "x.jsonl"), OutputDir: t.TempDir()})
	assert.Error(t, err)

	_, err = Generate(context.Background(), Config{OutputDir: t.TempDir()})
	assert.ErrorContains(t, err, "no session file")
}

func TestGenerateSeedAnnotations(t *testing.T) {
	b := fixtures.NewTranscript("s", start).Exchange("first", "one").Exchange("second", "two")
	session := writeSession(t, b)

	result, err := parser.ParseFile(session)
	require.NoError(t, err)
	prompts := exchange.Group(result.Events)
	live := annotation.BlockAnchor(2, prompts[1].Blocks()[1])
	stale := annotation.AnchorRef{PromptIndex: 9, SubPosition: 1, Digest: "deadbeef"}

	seedStore := annotation.NewStore("annotations:elsewhere")
	_, err = seedStore.Add(live, "keep me", 1)
	require.NoError(t, err)
	_, err = seedStore.Add(stale, "orphan", 1)
	require.NoError(t, err)
	seedData, err := annotation.MarshalDocument(seedStore.Export())
	require.NoError(t, err)
	seedPath := filepath.Join(t.TempDir(), "seed.json")
	require.NoError(t, os.WriteFile(seedPath, seedData, 0o644))

	out := t.TempDir()
	report, err := Generate(context.Background(), Config{
		SessionFile: session, OutputDir: out, PageSize: 1, SeedAnnotations: seedPath,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, report.SeedAnnotations)
	assert.Equal(t, 1, report.SeedUnresolved)

	doc, legacy, err := annotation.ParseDocument([]byte(readFile(t, filepath.Join(out, "annotations.json"))))
	require.NoError(t, err)
	assert.False(t, legacy)
	assert.Equal(t, "annotations:my-session", doc.StorageKey)

	published := annotation.NewStore(doc.StorageKey)
	_, err = published.Import(doc, nil)
	require.NoError(t, err)

	got := published.ForAnchor(live.ID())
	require.Len(t, got, 1)
	assert.Equal(t, 2, got[0].PageNumber)
	assert.False(t, got[0].Unresolved)
	require.Len(t, published.Unresolved(), 1)
	assert.Equal(t, "orphan", published.Unresolved()[0].Text)
}

func TestRegenerateRemovesStaleOutputs(t *testing.T) {
	b := fixtures.NewTranscript("s", start).Exchange("first", "one").Exchange("second", "two")
	session := writeSession(t, b)
	seed := annotation.NewStore("annotations:elsewhere")
	seedData, err := annotation.MarshalDocument(seed.Export())
	require.NoError(t, err)
	seedPath := filepath.Join(t.TempDir(), "seed.json")
	require.NoError(t, os.WriteFile(seedPath, seedData, 0o644))

	out := t.TempDir()
	notes := filepath.Join(out, "notes.html")
	require.NoError(t, os.WriteFile(notes, []byte("mine"), 0o644))

	_, err = Generate(context.Background(), Config{
		SessionFile: session, OutputDir: out, PageSize: 1, SeedAnnotations: seedPath,
	})
	require.NoError(t, err)
	require.FileExists(t, filepath.Join(out, "page-002.html"))
	require.FileExists(t, filepath.Join(out, "annotations.json"))

	report, err := Generate(context.Background(), Config{SessionFile: session, OutputDir: out, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Pages)
	assert.ElementsMatch(t, []string{
		filepath.Join(out, "page-002.html"),
		filepath.Join(out, "annotations.json"),
	}, report.Removed)

	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{"anchors.js", "index.html", "notes.html", "page-001.html"}, names)
}

func TestIsGeneratedName(t *testing.T) {
	tests := map[string]bool{
		"page-001.html":    true,
		"page-1234.html":   true,
		"annotations.json": true,
		"page-.html":       false,
		"page-one.html":    false,
		"page-001.htm":     false,
		"index.html":       false,
		"anchors.js":       false,
	}
	for name, want := range tests {
		assert.Equal(t, want, isGeneratedName(name), name)
	}
}

func TestWriteFileAtomicReplaces(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.html")
	require.NoError(t, writeFileAtomic(path, []byte("old")))
	require.NoError(t, writeFileAtomic(path, []byte("new")))
	assert.Equal(t, "new", readFile(t, path))
}

func TestAnchorsMatchGeneratedManifest(t *testing.T) {
	session := writeSession(t, fixtures.GenerateConversation("s", start, 3))
	out := t.TempDir()
	report, err := Generate(context.Background(), Config{SessionFile: session, OutputDir: out, PageSize: 2})
	require.NoError(t, err)

	anchors, err := Anchors(session, 2)
	require.NoError(t, err)
	assert.Equal(t, report.Anchors, anchors.Len())

	manifest := readFile(t, filepath.Join(out, "anchors.js"))
	for _, id := range anchors.IDs() {
		assert.Contains(t, manifest, `"`+id+`"`)
	}
}
