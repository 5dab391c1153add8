package render

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"strconv"
	"strings"

	"github.com/a-h/templ"
	"github.com/bytedance/sonic"

	"github.com/penwyp/go-claude-transcripts/internal/annotation"
	"github.com/penwyp/go-claude-transcripts/internal/core/pagination"
	"github.com/penwyp/go-claude-transcripts/internal/theme"
	"github.com/penwyp/go-claude-transcripts/internal/util"
)

// Output document names.
const (
	IndexFile   = "index.html"
	AnchorsFile = "anchors.js"
	SeedFile    = "annotations.json"
)

const (
	defaultTitle        = "Claude Code transcript"
	defaultSummaryWidth = 120
	timeLayout          = "2006-01-02 15:04:05"
)

//go:embed assets/annotations.js
var annotationsJS string

//go:embed assets/styles.css
var stylesCSS string

// AnnotationScript returns the embedded annotation runtime.
func AnnotationScript() string {
	return annotationsJS
}

// Renderer turns pages into HTML documents. Output depends only on the
// renderer's fields and the pages given, so identical input renders
// byte-identical documents.
type Renderer struct {
	Theme      theme.Theme
	StorageKey string
	Title      string
	// SummaryWidth bounds overview summaries in display cells.
	SummaryWidth int
	// Time formats timestamps; nil renders UTC.
	Time *util.TimeProvider
}

func New(th theme.Theme, storageKey, title string) *Renderer {
	return &Renderer{Theme: th, StorageKey: storageKey, Title: title}
}

func (r *Renderer) title() string {
	if r.Title == "" {
		return defaultTitle
	}
	return r.Title
}

func (r *Renderer) summaryWidth() int {
	if r.SummaryWidth <= 0 {
		return defaultSummaryWidth
	}
	return r.SummaryWidth
}

func (r *Renderer) theme() theme.Theme {
	if r.Theme == nil {
		return theme.Default()
	}
	return r.Theme
}

func (r *Renderer) stylesheet() string {
	var sb strings.Builder
	sb.WriteString("\n:root {\n")
	sb.WriteString(r.theme().CSSVariables())
	sb.WriteString("}\n")
	sb.WriteString(stylesCSS)
	return sb.String()
}

// RenderIndex renders the overview document: one entry per prompt.
func (r *Renderer) RenderIndex(ctx context.Context, pages []pagination.Page) ([]byte, error) {
	return renderComponent(ctx, r.indexDocument(pages))
}

// RenderPage renders one content page of total pages.
func (r *Renderer) RenderPage(ctx context.Context, page pagination.Page, total int) ([]byte, error) {
	return renderComponent(ctx, r.pageDocument(page, total))
}

// AnchorManifest returns every anchor the rendered documents carry.
func AnchorManifest(pages []pagination.Page) *annotation.AnchorSet {
	return annotation.AnchorsFor(pages)
}

// RenderAnchors renders the script shared by all documents that maps each
// anchor id to the page holding it, in document order. The annotation
// runtime resolves stored annotations against it.
func RenderAnchors(anchors *annotation.AnchorSet) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("window.TRANSCRIPT_ANCHORS = {")
	for i, id := range anchors.IDs() {
		key, err := sonic.ConfigStd.Marshal(id)
		if err != nil {
			return nil, fmt.Errorf("marshal anchor %s: %w", id, err)
		}
		page, _ := anchors.Page(id)
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString("\n  ")
		buf.Write(key)
		buf.WriteString(": ")
		buf.WriteString(strconv.Itoa(page))
	}
	buf.WriteString("\n};\n")
	return buf.Bytes(), nil
}

func renderComponent(ctx context.Context, c templ.Component) ([]byte, error) {
	var buf bytes.Buffer
	if err := c.Render(ctx, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}
