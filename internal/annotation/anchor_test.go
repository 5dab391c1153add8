package annotation

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/penwyp/go-claude-transcripts/internal/core/exchange"
	"github.com/penwyp/go-claude-transcripts/internal/core/pagination"
	"github.com/penwyp/go-claude-transcripts/internal/data/parser"
	"github.com/penwyp/go-claude-transcripts/internal/testing/fixtures"
)

var fixtureStart = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func buildPages(t *testing.T, b *fixtures.TranscriptBuilder, capacity int) []pagination.Page {
	t.Helper()
	result, err := parser.Parse(strings.NewReader(b.String()), "session.jsonl")
	require.NoError(t, err)
	return pagination.Paginate(exchange.Group(result.Events), capacity)
}

func TestAnchorIDRoundTrip(t *testing.T) {
	ref := AnchorRef{PromptIndex: 12, SubPosition: 3, Digest: "0a1b2c3d"}
	assert.Equal(t, "p12-b3-0a1b2c3d", ref.ID())

	parsed, err := ParseAnchorID(ref.ID())
	require.NoError(t, err)
	assert.Equal(t, ref, parsed)
}

func TestParseAnchorIDRejectsMalformed(t *testing.T) {
	for _, id := range []string{"", "index-3", "p1-b2", "p1-b2-XYZ", "p-b2-0a1b2c3d", "p1-b2-0a1b2c3d9"} {
		_, err := ParseAnchorID(id)
		assert.Error(t, err, id)
	}
}

func TestDigest(t *testing.T) {
	assert.Len(t, Digest("hello"), 8)
	assert.Equal(t, Digest("hello"), Digest("hello"))
	assert.NotEqual(t, Digest("hello"), Digest("hello!"))
	assert.Equal(t, "00000000", Digest(""))
}

func TestAnchorsForIsDeterministic(t *testing.T) {
	b := fixtures.GenerateConversation("s", fixtureStart, 6)

	first := AnchorsFor(buildPages(t, b, 4))
	second := AnchorsFor(buildPages(t, b, 4))
	assert.Equal(t, first.IDs(), second.IDs())
	assert.Equal(t, first.Pages(), second.Pages())

	// six overview entries plus four blocks per prompt
	assert.Equal(t, 6+6*4, first.Len())
}

func TestAnchorsForPagesAndOrder(t *testing.T) {
	pages := buildPages(t, fixtures.NewTranscript("s", fixtureStart).
		Exchange("one", "first answer").
		Exchange("two", "second answer"), 1)
	set := AnchorsFor(pages)

	ids := set.IDs()
	require.Len(t, ids, 6)
	assert.True(t, strings.HasPrefix(ids[0], "p1-b0-"))
	assert.True(t, strings.HasPrefix(ids[1], "p2-b0-"))
	assert.True(t, strings.HasPrefix(ids[2], "p1-b1-"))
	assert.True(t, strings.HasPrefix(ids[5], "p2-b2-"))

	page, ok := set.Page(ids[0])
	require.True(t, ok)
	assert.Equal(t, OverviewPage, page)
	page, _ = set.Page(ids[5])
	assert.Equal(t, 2, page)

	pos, ok := set.Position(ids[3])
	require.True(t, ok)
	assert.Equal(t, 3, pos)
}

func TestAnchorChangesWithContent(t *testing.T) {
	before := AnchorsFor(buildPages(t, fixtures.NewTranscript("s", fixtureStart).Exchange("hi", "hello"), 5))
	after := AnchorsFor(buildPages(t, fixtures.NewTranscript("s", fixtureStart).Exchange("hi", "hello there"), 5))

	assert.Equal(t, before.IDs()[:2], after.IDs()[:2], "unchanged blocks keep their anchors")
	assert.NotEqual(t, before.IDs()[2], after.IDs()[2], "edited blocks get a new anchor")
}

func TestBlockAnchorDependsOnKind(t *testing.T) {
	pb := exchange.PositionedBlock{SubPosition: 1}
	pb.Kind = "user"
	a := BlockAnchor(1, pb)
	pb.Kind = "assistant"
	b := BlockAnchor(1, pb)
	assert.NotEqual(t, a.Digest, b.Digest)
}

func TestAnchorSetNilSafe(t *testing.T) {
	var set *AnchorSet
	assert.False(t, set.Contains("x"))
	assert.Equal(t, 0, set.Len())
	assert.Nil(t, set.IDs())
	assert.Empty(t, set.Pages())
	_, ok := set.Page("x")
	assert.False(t, ok)
}

func TestStorageKey(t *testing.T) {
	tests := []struct {
		path     string
		expected string
	}{
		{"/home/u/.claude/projects/p/0b6c-41AA.jsonl", "annotations:0b6c-41aa"},
		{"My Session (copy).jsonl", "annotations:my-session--copy-"},
		{"under_score", "annotations:under_score"},
		{".jsonl", "annotations:transcript"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, StorageKey(tt.path), tt.path)
	}
	assert.Equal(t, StorageKey("/a/b/s.jsonl"), StorageKey("/c/s.jsonl"))
}
