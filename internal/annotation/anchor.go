package annotation

import (
	"fmt"
	"hash/crc32"
	"regexp"
	"strconv"

	"github.com/penwyp/go-claude-transcripts/internal/core/exchange"
	"github.com/penwyp/go-claude-transcripts/internal/core/pagination"
)

// OverviewPage is the page number recorded for anchors in the overview
// document.
const OverviewPage = 0

// AnchorRef addresses a location an annotation attaches to. SubPosition 0 is
// the prompt's overview entry; blocks within the prompt count from 1.
type AnchorRef struct {
	PromptIndex int    `json:"prompt_index"`
	SubPosition int    `json:"sub_position"`
	Digest      string `json:"digest"`
}

// ID renders the anchor as the DOM id used in generated documents.
func (a AnchorRef) ID() string {
	return fmt.Sprintf("p%d-b%d-%s", a.PromptIndex, a.SubPosition, a.Digest)
}

func (a AnchorRef) String() string {
	return a.ID()
}

var anchorIDPattern = regexp.MustCompile(`^p(\d+)-b(\d+)-([0-9a-f]{8})$`)

// ParseAnchorID is the inverse of AnchorRef.ID.
func ParseAnchorID(id string) (AnchorRef, error) {
	m := anchorIDPattern.FindStringSubmatch(id)
	if m == nil {
		return AnchorRef{}, fmt.Errorf("invalid anchor id %q", id)
	}
	prompt, err := strconv.Atoi(m[1])
	if err != nil {
		return AnchorRef{}, fmt.Errorf("invalid anchor id %q: %w", id, err)
	}
	sub, err := strconv.Atoi(m[2])
	if err != nil {
		return AnchorRef{}, fmt.Errorf("invalid anchor id %q: %w", id, err)
	}
	return AnchorRef{PromptIndex: prompt, SubPosition: sub, Digest: m[3]}, nil
}

// Digest hashes block content into the 8 hex characters carried by anchors.
func Digest(canonical string) string {
	return fmt.Sprintf("%08x", crc32.ChecksumIEEE([]byte(canonical)))
}

// BlockAnchor returns the anchor of a block within a prompt.
func BlockAnchor(promptIndex int, b exchange.PositionedBlock) AnchorRef {
	return AnchorRef{
		PromptIndex: promptIndex,
		SubPosition: b.SubPosition,
		Digest:      Digest(string(b.Kind) + "\x00" + b.Block.Canonical()),
	}
}

// OverviewAnchor returns the anchor of a prompt's overview entry.
func OverviewAnchor(p exchange.Prompt) AnchorRef {
	return AnchorRef{
		PromptIndex: p.Index,
		SubPosition: 0,
		Digest:      Digest("overview\x00" + p.Text()),
	}
}

// AnchorSet is the ordered set of anchors emitted for a document set. Order
// follows document order, overview entries first, then pages in sequence.
type AnchorSet struct {
	ids      []string
	pos      map[string]int
	pages    map[string]int
	overview map[int]AnchorRef
}

func NewAnchorSet() *AnchorSet {
	return &AnchorSet{
		pos:      make(map[string]int),
		pages:    make(map[string]int),
		overview: make(map[int]AnchorRef),
	}
}

// Add records an anchor on a page. Adding an anchor twice keeps the first.
func (s *AnchorSet) Add(ref AnchorRef, page int) {
	id := ref.ID()
	if _, ok := s.pos[id]; ok {
		return
	}
	s.pos[id] = len(s.ids)
	s.pages[id] = page
	s.ids = append(s.ids, id)
	if _, ok := s.overview[ref.PromptIndex]; !ok && ref.SubPosition == 0 {
		s.overview[ref.PromptIndex] = ref
	}
}

// Overview returns the sub-position 0 anchor of a prompt.
func (s *AnchorSet) Overview(promptIndex int) (AnchorRef, bool) {
	if s == nil {
		return AnchorRef{}, false
	}
	ref, ok := s.overview[promptIndex]
	return ref, ok
}

func (s *AnchorSet) Contains(id string) bool {
	if s == nil {
		return false
	}
	_, ok := s.pos[id]
	return ok
}

// Position returns the document-order position of an anchor.
func (s *AnchorSet) Position(id string) (int, bool) {
	if s == nil {
		return 0, false
	}
	p, ok := s.pos[id]
	return p, ok
}

// Page returns the page number holding an anchor.
func (s *AnchorSet) Page(id string) (int, bool) {
	if s == nil {
		return 0, false
	}
	p, ok := s.pages[id]
	return p, ok
}

func (s *AnchorSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.ids)
}

// IDs returns anchor ids in document order.
func (s *AnchorSet) IDs() []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s.ids...)
}

// Pages returns the anchor id to page number mapping.
func (s *AnchorSet) Pages() map[string]int {
	out := make(map[string]int, s.Len())
	if s == nil {
		return out
	}
	for id, page := range s.pages {
		out[id] = page
	}
	return out
}

// AnchorsFor enumerates every anchor a rendering of pages emits.
func AnchorsFor(pages []pagination.Page) *AnchorSet {
	set := NewAnchorSet()
	for _, page := range pages {
		for _, p := range page.Prompts {
			set.Add(OverviewAnchor(p), OverviewPage)
		}
	}
	for _, page := range pages {
		for _, p := range page.Prompts {
			for _, b := range p.Blocks() {
				set.Add(BlockAnchor(p.Index, b), page.Number)
			}
		}
	}
	return set
}
