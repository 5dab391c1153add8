package annotation

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

const storageKeyPrefix = "annotations:"

var (
	// ErrNotFound is returned for operations on an unknown annotation id.
	ErrNotFound = errors.New("annotation not found")
	// ErrEmptyText rejects annotations without content.
	ErrEmptyText = errors.New("annotation text is empty")
)

// StorageKey derives the local persistence key from a transcript path.
// Regenerating the same transcript yields the same key.
func StorageKey(sessionFile string) string {
	base := filepath.Base(sessionFile)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return storageKeyPrefix + Slug(base)
}

// Slug lowercases s and replaces characters outside [a-z0-9-_] with '-'.
func Slug(s string) string {
	s = strings.ToLower(s)
	var sb strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			sb.WriteRune(r)
		default:
			sb.WriteByte('-')
		}
	}
	if sb.Len() == 0 {
		return "transcript"
	}
	return sb.String()
}

// Annotation is a note attached to an anchor.
type Annotation struct {
	ID         string    `json:"id"`
	Anchor     AnchorRef `json:"anchor"`
	Text       string    `json:"text"`
	CreatedAt  time.Time `json:"created_at"`
	ModifiedAt time.Time `json:"modified_at"`
	PageNumber int       `json:"page_number"`
	Unresolved bool      `json:"unresolved,omitempty"`
	// LegacyTarget keeps the element id of annotations imported from the
	// map-shaped format when it does not parse as an anchor id.
	LegacyTarget string `json:"legacy_target,omitempty"`
}

// Target returns the id of the element the annotation is bound to.
func (a Annotation) Target() string {
	if a.LegacyTarget != "" {
		return a.LegacyTarget
	}
	return a.Anchor.ID()
}

// Store is the complete set of annotations for one transcript. It is not safe
// for concurrent use.
type Store struct {
	StorageKey string
	CreatedAt  time.Time
	ModifiedAt time.Time

	// Now supplies timestamps; it defaults to the current UTC time at
	// millisecond precision.
	Now func() time.Time

	items map[string]Annotation
}

func NewStore(storageKey string) *Store {
	s := &Store{
		StorageKey: storageKey,
		Now:        defaultNow,
		items:      make(map[string]Annotation),
	}
	s.CreatedAt = s.Now()
	s.ModifiedAt = s.CreatedAt
	return s
}

func defaultNow() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

func (s *Store) now() time.Time {
	if s.Now == nil {
		return defaultNow()
	}
	return s.Now()
}

func (s *Store) touch() time.Time {
	now := s.now()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.ModifiedAt = now
	return now
}

// Add creates an annotation bound to anchor.
func (s *Store) Add(anchor AnchorRef, text string, page int) (Annotation, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Annotation{}, ErrEmptyText
	}
	now := s.touch()
	a := Annotation{
		ID:         uuid.NewString(),
		Anchor:     anchor,
		Text:       text,
		CreatedAt:  now,
		ModifiedAt: now,
		PageNumber: page,
	}
	s.items[a.ID] = a
	return a, nil
}

// Edit replaces an annotation's text, keeping its creation time.
func (s *Store) Edit(id, text string) (Annotation, error) {
	a, ok := s.items[id]
	if !ok {
		return Annotation{}, fmt.Errorf("edit %s: %w", id, ErrNotFound)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return Annotation{}, ErrEmptyText
	}
	a.Text = text
	a.ModifiedAt = s.touch()
	s.items[id] = a
	return a, nil
}

// Remove deletes an annotation and reports whether it existed.
func (s *Store) Remove(id string) bool {
	if _, ok := s.items[id]; !ok {
		return false
	}
	delete(s.items, id)
	s.touch()
	return true
}

func (s *Store) Get(id string) (Annotation, bool) {
	a, ok := s.items[id]
	return a, ok
}

// ForAnchor returns the annotations bound to an element id, oldest first.
func (s *Store) ForAnchor(target string) []Annotation {
	var out []Annotation
	for _, a := range s.Sorted() {
		if a.Target() == target {
			out = append(out, a)
		}
	}
	return out
}

func (s *Store) Len() int {
	return len(s.items)
}

// Clear removes every annotation.
func (s *Store) Clear() {
	s.items = make(map[string]Annotation)
	s.touch()
}

// Sorted returns all annotations ordered by page, anchor, creation time and
// id.
func (s *Store) Sorted() []Annotation {
	out := make([]Annotation, 0, len(s.items))
	for _, a := range s.items {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.PageNumber != b.PageNumber {
			return a.PageNumber < b.PageNumber
		}
		if a.Anchor.PromptIndex != b.Anchor.PromptIndex {
			return a.Anchor.PromptIndex < b.Anchor.PromptIndex
		}
		if a.Anchor.SubPosition != b.Anchor.SubPosition {
			return a.Anchor.SubPosition < b.Anchor.SubPosition
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	return out
}

// Unresolved returns the annotations whose anchors are flagged unresolved.
func (s *Store) Unresolved() []Annotation {
	var out []Annotation
	for _, a := range s.Sorted() {
		if a.Unresolved {
			out = append(out, a)
		}
	}
	return out
}

// Resolve flags annotations whose anchors are absent from anchors and
// refreshes page numbers of the ones present. Legacy index-N targets are
// rebound to prompt N's overview anchor when it exists. It returns the
// number of unresolved annotations.
func (s *Store) Resolve(anchors *AnchorSet) int {
	unresolved := 0
	for id, a := range s.items {
		if idx, ok := legacyPromptIndex(a.LegacyTarget); ok {
			if ref, ok := anchors.Overview(idx); ok {
				a.Anchor = ref
				a.LegacyTarget = ""
			}
		}
		target := a.Target()
		if page, ok := anchors.Page(target); ok {
			a.Unresolved = false
			a.PageNumber = page
		} else {
			a.Unresolved = true
			unresolved++
		}
		s.items[id] = a
	}
	return unresolved
}

// replace swaps the whole content of the store.
func (s *Store) replace(items []Annotation, createdAt time.Time) {
	s.items = make(map[string]Annotation, len(items))
	for _, a := range items {
		s.items[a.ID] = a
	}
	if !createdAt.IsZero() {
		s.CreatedAt = createdAt
	}
	s.touch()
}
