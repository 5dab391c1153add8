package formatter

import "time"

// Phase is one timed step of a generation run.
type Phase struct {
	Name     string
	Duration time.Duration
}

// GenerationSummary is what a generation run reports to the user.
type GenerationSummary struct {
	SessionFile     string        `json:"session_file"`
	OutputDir       string        `json:"output_dir"`
	StorageKey      string        `json:"storage_key"`
	Events          int           `json:"events"`
	Prompts         int           `json:"prompts"`
	Pages           int           `json:"pages"`
	Anchors         int           `json:"anchors"`
	SeedAnnotations int           `json:"seed_annotations,omitempty"`
	SeedUnresolved  int           `json:"seed_unresolved,omitempty"`
	Warnings        []string      `json:"warnings"`
	Files           []string      `json:"files"`
	Removed         []string      `json:"removed,omitempty"`
	Phases          []Phase       `json:"-"`
	Total           time.Duration `json:"-"`
}

// AnnotationRow is one annotation in a listing.
type AnnotationRow struct {
	ID         string    `json:"id"`
	Target     string    `json:"target"`
	Page       int       `json:"page"`
	Unresolved bool      `json:"unresolved"`
	Text       string    `json:"text"`
	ModifiedAt time.Time `json:"modified_at"`
}
