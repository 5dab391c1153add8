package formatter

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"github.com/penwyp/go-claude-transcripts/internal/util"
)

// Formatter writes command results.
type Formatter interface {
	FormatGeneration(w io.Writer, s GenerationSummary) error
	FormatAnnotations(w io.Writer, rows []AnnotationRow) error
}

// New returns the formatter for format ("text", "table" or "json"). Text
// output is styled only when out is a terminal.
func New(format string, out *os.File) (Formatter, error) {
	switch format {
	case "", "text", "table":
		styled := out != nil && term.IsTerminal(int(out.Fd()))
		return &TableFormatter{Styled: styled, Width: MaxWidth(out)}, nil
	case "json":
		return NewJSONFormatter(), nil
	default:
		return nil, fmt.Errorf("unsupported output format %q (want text or json)", format)
	}
}

// MaxWidth returns the usable width of out, falling back to 74 columns when
// out is not a terminal or is too narrow.
func MaxWidth(out *os.File) int {
	termWidth := 0
	if out != nil {
		termWidth, _, _ = term.GetSize(int(out.Fd()))
	}
	if termWidth < 60 {
		termWidth = 74 + 8
	}

	maxWidth := termWidth - 8
	if maxWidth > 120 {
		maxWidth = 120
	}

	util.LogDebugf("MaxWidth %d", maxWidth)
	return maxWidth
}
