package annotation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/penwyp/go-claude-transcripts/internal/util"
)

var (
	// ErrNotAnnotating is returned when a block is selected outside
	// annotation mode.
	ErrNotAnnotating = errors.New("annotation mode is not active")
	// ErrNoTarget is returned when saving or deleting without an open
	// authoring surface.
	ErrNoTarget = errors.New("no annotation target selected")
	// ErrUnknownAnchor is returned when selecting a block the loaded
	// documents do not contain.
	ErrUnknownAnchor = errors.New("unknown anchor")
)

// KV is the durable key-value store annotations persist to.
type KV interface {
	Get(key string) ([]byte, error)
	Put(key string, value []byte) error
}

// Mode is the top-level runtime state.
type Mode int

const (
	ModeIdle Mode = iota
	ModeAnnotating
)

func (m Mode) String() string {
	if m == ModeAnnotating {
		return "annotating"
	}
	return "idle"
}

// Authoring is the open modal: the block being annotated and, when editing,
// the annotation being edited.
type Authoring struct {
	Anchor       AnchorRef
	Target       string
	AnnotationID string
}

// Runtime is the annotation state machine of one open document. It is not
// safe for concurrent use.
type Runtime struct {
	store   *Store
	kv      KV
	anchors *AnchorSet

	mode      Mode
	authoring *Authoring

	// Notice is set when persistence fails; the store stays in memory.
	Notice string
}

// NewRuntime creates an idle runtime over store, persisting to kv and
// resolving against anchors. A nil anchors set resolves nothing.
func NewRuntime(store *Store, kv KV, anchors *AnchorSet) *Runtime {
	return &Runtime{store: store, kv: kv, anchors: anchors}
}

func (r *Runtime) Mode() Mode               { return r.mode }
func (r *Runtime) Store() *Store            { return r.store }
func (r *Runtime) Authoring() *Authoring    { return r.authoring }
func (r *Runtime) Count() int               { return r.store.Len() }
func (r *Runtime) StatusText() string       { return util.Plural(r.store.Len(), "annotation") }
func (r *Runtime) Unresolved() []Annotation { return r.store.Unresolved() }

// Load restores the persisted store. A missing entry leaves the store empty;
// an unreadable one sets Notice.
func (r *Runtime) Load() error {
	data, err := r.kv.Get(r.store.StorageKey)
	if err != nil {
		if IsNotFound(err) {
			return nil
		}
		r.Notice = fmt.Sprintf("Could not load annotations: %v", err)
		util.LogWarn(r.Notice)
		return nil
	}
	if _, err := r.store.ImportBytes(data, r.anchors); err != nil {
		return fmt.Errorf("load annotations: %w", err)
	}
	return nil
}

// Start enters annotation mode.
func (r *Runtime) Start() {
	r.mode = ModeAnnotating
}

// Finish leaves annotation mode, closing any open modal. Annotations are
// already persisted.
func (r *Runtime) Finish() {
	r.mode = ModeIdle
	r.authoring = nil
}

// NavigateAway behaves like Finish.
func (r *Runtime) NavigateAway() {
	r.Finish()
}

// SelectBlock opens the authoring surface for a block. An existing
// annotation on the block is opened for editing.
func (r *Runtime) SelectBlock(anchorID string) error {
	if r.mode != ModeAnnotating {
		return ErrNotAnnotating
	}
	if !r.anchors.Contains(anchorID) {
		return fmt.Errorf("%w: %s", ErrUnknownAnchor, anchorID)
	}
	ref, err := ParseAnchorID(anchorID)
	if err != nil {
		return err
	}

	a := &Authoring{Anchor: ref, Target: anchorID}
	if existing := r.store.ForAnchor(anchorID); len(existing) > 0 {
		a.AnnotationID = existing[0].ID
	}
	r.authoring = a
	return nil
}

// SelectAnnotation opens an existing annotation for editing, as clicking its
// margin bubble does.
func (r *Runtime) SelectAnnotation(id string) error {
	if r.mode != ModeAnnotating {
		return ErrNotAnnotating
	}
	ann, ok := r.store.Get(id)
	if !ok {
		return fmt.Errorf("select %s: %w", id, ErrNotFound)
	}
	r.authoring = &Authoring{Anchor: ann.Anchor, Target: ann.Target(), AnnotationID: id}
	return nil
}

// Draft returns the text the modal opens with.
func (r *Runtime) Draft() string {
	if r.authoring == nil || r.authoring.AnnotationID == "" {
		return ""
	}
	ann, _ := r.store.Get(r.authoring.AnnotationID)
	return ann.Text
}

// Save commits the modal. Empty text removes the annotation being edited.
func (r *Runtime) Save(text string) (Annotation, error) {
	if r.authoring == nil {
		return Annotation{}, ErrNoTarget
	}
	target := r.authoring
	r.authoring = nil

	var (
		ann Annotation
		err error
	)
	switch {
	case strings.TrimSpace(text) == "":
		if target.AnnotationID != "" {
			r.store.Remove(target.AnnotationID)
		}
	case target.AnnotationID != "":
		ann, err = r.store.Edit(target.AnnotationID, text)
	default:
		page, _ := r.anchors.Page(target.Target)
		ann, err = r.store.Add(target.Anchor, text, page)
	}
	if err != nil {
		return Annotation{}, err
	}

	r.persist()
	return ann, nil
}

// Delete removes the annotation open in the modal.
func (r *Runtime) Delete() error {
	if r.authoring == nil || r.authoring.AnnotationID == "" {
		return ErrNoTarget
	}
	r.store.Remove(r.authoring.AnnotationID)
	r.authoring = nil
	r.persist()
	return nil
}

// CloseModal discards the open modal without changes.
func (r *Runtime) CloseModal() {
	r.authoring = nil
}

// Import replaces the store with an export document.
func (r *Runtime) Import(data []byte) (ImportReport, error) {
	report, err := r.store.ImportBytes(data, r.anchors)
	if err != nil {
		return report, err
	}
	r.authoring = nil
	r.persist()
	return report, nil
}

// Export encodes the store as an export document.
func (r *Runtime) Export() ([]byte, error) {
	return MarshalDocument(r.store.Export())
}

// Clear removes every annotation.
func (r *Runtime) Clear() {
	r.store.Clear()
	r.authoring = nil
	r.persist()
}

func (r *Runtime) persist() {
	data, err := MarshalDocument(r.store.Export())
	if err == nil {
		err = r.kv.Put(r.store.StorageKey, data)
	}
	if err != nil {
		r.Notice = fmt.Sprintf("Annotations are kept in memory only: %v", err)
		util.LogWarn(r.Notice)
	} else {
		r.Notice = ""
	}
}
