package pagination

import (
	"fmt"

	"github.com/penwyp/go-claude-transcripts/internal/core/exchange"
)

// DefaultCapacity is the number of prompts per page when none is configured.
const DefaultCapacity = 5

// Page is a fixed-capacity chunk of consecutive prompts.
type Page struct {
	Number  int
	Prompts []exchange.Prompt
	HasPrev bool
	HasNext bool
}

// FileName returns the document name of a page number.
func FileName(number int) string {
	return fmt.Sprintf("page-%03d.html", number)
}

func (p Page) FileName() string {
	return FileName(p.Number)
}

func (p Page) PrevFileName() string {
	if !p.HasPrev {
		return ""
	}
	return FileName(p.Number - 1)
}

func (p Page) NextFileName() string {
	if !p.HasNext {
		return ""
	}
	return FileName(p.Number + 1)
}

// Paginate partitions prompts into pages of at most capacity prompts, in
// index order. A capacity of zero or less selects DefaultCapacity. With no
// prompts a single empty page is returned so that navigation has a target.
func Paginate(prompts []exchange.Prompt, capacity int) []Page {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	count := PageCount(len(prompts), capacity)
	pages := make([]Page, 0, count)
	for i := 0; i < count; i++ {
		lo := i * capacity
		hi := min(lo+capacity, len(prompts))
		pages = append(pages, Page{
			Number:  i + 1,
			Prompts: prompts[lo:hi:hi],
			HasPrev: i > 0,
			HasNext: i < count-1,
		})
	}
	return pages
}

// PageCount returns max(1, ceil(n / capacity)).
func PageCount(n, capacity int) int {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if n <= 0 {
		return 1
	}
	return (n + capacity - 1) / capacity
}

// PageOf returns the number of the page holding the prompt with the given
// index, or 0 when no page holds it.
func PageOf(pages []Page, promptIndex int) int {
	for _, page := range pages {
		for _, p := range page.Prompts {
			if p.Index == promptIndex {
				return page.Number
			}
		}
	}
	return 0
}
