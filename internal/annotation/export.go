package annotation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
)

// ExportVersion is written into every export document.
const ExportVersion = "1.0"

// ErrInvalidDocument is returned when an export document cannot be read.
var ErrInvalidDocument = errors.New("invalid annotations document")

// ExportDocument is the portable form of a Store.
type ExportDocument struct {
	Version     string       `json:"version"`
	StorageKey  string       `json:"storage_key"`
	ExportedAt  time.Time    `json:"exported_at"`
	CreatedAt   time.Time    `json:"created_at"`
	ModifiedAt  time.Time    `json:"modified_at"`
	Annotations []Annotation `json:"annotations"`
}

// ImportReport summarizes an Import.
type ImportReport struct {
	Imported   int
	Unresolved int
	// Skipped counts entries dropped for having no text.
	Skipped int
	Legacy  bool
}

// Export snapshots the store.
func (s *Store) Export() ExportDocument {
	return ExportDocument{
		Version:     ExportVersion,
		StorageKey:  s.StorageKey,
		ExportedAt:  s.now(),
		CreatedAt:   s.CreatedAt,
		ModifiedAt:  s.ModifiedAt,
		Annotations: s.Sorted(),
	}
}

// MarshalDocument encodes a document as indented JSON.
func MarshalDocument(doc ExportDocument) ([]byte, error) {
	if doc.Annotations == nil {
		doc.Annotations = []Annotation{}
	}
	data, err := sonic.ConfigStd.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal annotations: %w", err)
	}
	return data, nil
}

type rawDocument struct {
	Version     string          `json:"version"`
	StorageKey  string          `json:"storage_key"`
	ExportedAt  *time.Time      `json:"exported_at"`
	CreatedAt   *time.Time      `json:"created_at"`
	ModifiedAt  *time.Time      `json:"modified_at"`
	Annotations json.RawMessage `json:"annotations"`
}

type legacyEntry struct {
	Content   string     `json:"content"`
	CreatedAt *time.Time `json:"created_at"`
}

// ParseDocument decodes an export document. Both the list-shaped format
// written by Export and the older map-shaped format keyed by element id are
// accepted. The second return value reports the legacy format.
func ParseDocument(data []byte) (*ExportDocument, bool, error) {
	var raw rawDocument
	if err := sonic.Unmarshal(data, &raw); err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	doc := &ExportDocument{
		Version:    raw.Version,
		StorageKey: raw.StorageKey,
		ExportedAt: deref(raw.ExportedAt),
		CreatedAt:  deref(raw.CreatedAt),
		ModifiedAt: deref(raw.ModifiedAt),
	}

	body := bytes.TrimSpace(raw.Annotations)
	switch {
	case len(body) == 0 || bytes.Equal(body, []byte("null")):
		return nil, false, fmt.Errorf("%w: missing annotations", ErrInvalidDocument)
	case body[0] == '[':
		if err := sonic.Unmarshal(body, &doc.Annotations); err != nil {
			return nil, false, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
		}
		return doc, false, nil
	case body[0] == '{':
		var entries map[string]legacyEntry
		if err := sonic.Unmarshal(body, &entries); err != nil {
			return nil, true, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
		}
		doc.Annotations = fromLegacy(entries, doc.CreatedAt)
		return doc, true, nil
	default:
		return nil, false, fmt.Errorf("%w: annotations must be a list or an object", ErrInvalidDocument)
	}
}

func fromLegacy(entries map[string]legacyEntry, fallback time.Time) []Annotation {
	targets := make([]string, 0, len(entries))
	for target := range entries {
		targets = append(targets, target)
	}
	sort.Strings(targets)

	out := make([]Annotation, 0, len(entries))
	for _, target := range targets {
		entry := entries[target]
		created := deref(entry.CreatedAt)
		if created.IsZero() {
			created = fallback
		}
		a := Annotation{
			ID:         uuid.NewString(),
			Text:       entry.Content,
			CreatedAt:  created,
			ModifiedAt: created,
		}
		if ref, err := ParseAnchorID(target); err == nil {
			a.Anchor = ref
		} else {
			a.LegacyTarget = target
			if idx, ok := legacyPromptIndex(target); ok {
				a.Anchor = AnchorRef{PromptIndex: idx}
			}
		}
		out = append(out, a)
	}
	return out
}

// legacyPromptIndex parses the index-N element ids older exports used for
// overview entries.
func legacyPromptIndex(target string) (int, bool) {
	n, ok := strings.CutPrefix(target, "index-")
	if !ok {
		return 0, false
	}
	idx, err := strconv.Atoi(n)
	if err != nil || idx < 0 {
		return 0, false
	}
	return idx, true
}

func deref(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

// Import replaces the whole store with the document's annotations. Import
// never merges: annotations present before the call are discarded. When
// anchors is non-nil every imported annotation is checked against it and
// flagged unresolved when its anchor is absent; such annotations are kept.
func (s *Store) Import(doc *ExportDocument, anchors *AnchorSet) (ImportReport, error) {
	if doc == nil {
		return ImportReport{}, fmt.Errorf("%w: nil document", ErrInvalidDocument)
	}

	now := s.now()
	items := make([]Annotation, 0, len(doc.Annotations))
	seen := make(map[string]bool, len(doc.Annotations))
	skipped := 0
	for _, a := range doc.Annotations {
		a.Text = strings.TrimSpace(a.Text)
		if a.Text == "" {
			skipped++
			continue
		}
		if a.ID == "" || seen[a.ID] {
			a.ID = uuid.NewString()
		}
		seen[a.ID] = true
		if a.CreatedAt.IsZero() {
			a.CreatedAt = now
		}
		if a.ModifiedAt.IsZero() {
			a.ModifiedAt = a.CreatedAt
		}
		items = append(items, a)
	}

	s.replace(items, doc.CreatedAt)

	report := ImportReport{Imported: len(items), Skipped: skipped}
	if anchors != nil {
		report.Unresolved = s.Resolve(anchors)
	} else {
		report.Unresolved = len(s.Unresolved())
	}
	return report, nil
}

// ImportBytes parses data and imports it.
func (s *Store) ImportBytes(data []byte, anchors *AnchorSet) (ImportReport, error) {
	doc, legacy, err := ParseDocument(data)
	if err != nil {
		return ImportReport{}, err
	}
	report, err := s.Import(doc, anchors)
	report.Legacy = legacy
	return report, err
}
