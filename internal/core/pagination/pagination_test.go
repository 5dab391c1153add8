package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/penwyp/go-claude-transcripts/internal/core/exchange"
)

func makePrompts(n int, withSynthetic bool) []exchange.Prompt {
	var prompts []exchange.Prompt
	if withSynthetic {
		prompts = append(prompts, exchange.Prompt{Index: 0})
	}
	for i := 1; i <= n; i++ {
		prompts = append(prompts, exchange.Prompt{Index: i})
	}
	return prompts
}

func TestPaginatePageCount(t *testing.T) {
	tests := []struct {
		name     string
		prompts  int
		capacity int
		expected int
	}{
		{"single prompt", 1, 10, 1},
		{"exact fit", 4, 2, 2},
		{"under-full last page", 5, 2, 3},
		{"capacity one", 3, 1, 3},
		{"zero prompts", 0, 5, 1},
		{"default capacity", 11, 0, 3},
		{"negative capacity", 5, -1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pages := Paginate(makePrompts(tt.prompts, false), tt.capacity)
			assert.Len(t, pages, tt.expected)
			assert.Equal(t, tt.expected, PageCount(tt.prompts, tt.capacity))
		})
	}
}

func TestPaginatePartition(t *testing.T) {
	prompts := makePrompts(12, true)
	pages := Paginate(prompts, 5)
	require.Len(t, pages, 3)

	var indices []int
	for i, page := range pages {
		assert.Equal(t, i+1, page.Number)
		assert.LessOrEqual(t, len(page.Prompts), 5)
		for _, p := range page.Prompts {
			indices = append(indices, p.Index)
		}
	}
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}, indices)
	assert.Len(t, pages[2].Prompts, 3)
}

func TestPaginateNavigationFlags(t *testing.T) {
	pages := Paginate(makePrompts(4, false), 2)
	require.Len(t, pages, 2)

	assert.False(t, pages[0].HasPrev)
	assert.True(t, pages[0].HasNext)
	assert.Equal(t, "", pages[0].PrevFileName())
	assert.Equal(t, "page-002.html", pages[0].NextFileName())

	assert.True(t, pages[1].HasPrev)
	assert.False(t, pages[1].HasNext)
	assert.Equal(t, "page-001.html", pages[1].PrevFileName())
	assert.Equal(t, "", pages[1].NextFileName())
}

func TestPaginateZeroPrompts(t *testing.T) {
	pages := Paginate(nil, 5)
	require.Len(t, pages, 1)
	assert.Equal(t, 1, pages[0].Number)
	assert.Empty(t, pages[0].Prompts)
	assert.False(t, pages[0].HasPrev)
	assert.False(t, pages[0].HasNext)
}

func TestPaginatePagesDoNotAlias(t *testing.T) {
	prompts := makePrompts(4, false)
	pages := Paginate(prompts, 2)

	pages[0].Prompts = append(pages[0].Prompts, exchange.Prompt{Index: 99})
	assert.Equal(t, 3, pages[1].Prompts[0].Index)
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "page-001.html", FileName(1))
	assert.Equal(t, "page-042.html", Page{Number: 42}.FileName())
	assert.Equal(t, "page-1000.html", FileName(1000))
}

func TestPageOf(t *testing.T) {
	pages := Paginate(makePrompts(4, true), 2)
	assert.Equal(t, 1, PageOf(pages, 0))
	assert.Equal(t, 1, PageOf(pages, 1))
	assert.Equal(t, 2, PageOf(pages, 2))
	assert.Equal(t, 3, PageOf(pages, 4))
	assert.Equal(t, 0, PageOf(pages, 9))
}
