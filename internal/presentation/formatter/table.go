package formatter

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/penwyp/go-claude-transcripts/internal/util"
)

// TableFormatter writes human-readable reports.
type TableFormatter struct {
	Styled bool
	Width  int
}

func NewTableFormatter() *TableFormatter {
	return &TableFormatter{Width: 74}
}

func (f *TableFormatter) style(s lipgloss.Style, text string) string {
	if !f.Styled {
		return text
	}
	return s.Render(text)
}

func (f *TableFormatter) FormatGeneration(w io.Writer, s GenerationSummary) error {
	var sb strings.Builder
	sb.WriteString(f.style(util.TitleStyle, "Transcript generated"))
	sb.WriteString("\n")

	rows := [][2]string{
		{"Session", s.SessionFile},
		{"Output", s.OutputDir},
		{"Storage key", s.StorageKey},
		{"Events", util.FormatNumber(s.Events)},
		{"Prompts", util.FormatNumber(s.Prompts)},
		{"Pages", strconv.Itoa(s.Pages)},
		{"Anchors", util.FormatNumber(s.Anchors)},
	}
	if len(s.Removed) > 0 {
		rows = append(rows, [2]string{"Removed", util.Plural(len(s.Removed), "stale file")})
	}
	if s.SeedAnnotations > 0 {
		rows = append(rows, [2]string{"Seed annotations",
			fmt.Sprintf("%d (%d unresolved)", s.SeedAnnotations, s.SeedUnresolved)})
	}
	for _, r := range rows {
		sb.WriteString("  ")
		sb.WriteString(f.style(util.LabelStyle, util.PadString(r[0]+":", 18)))
		sb.WriteString(r[1])
		sb.WriteString("\n")
	}

	if len(s.Phases) > 0 {
		var parts []string
		for _, p := range s.Phases {
			parts = append(parts, p.Name+" "+util.FormatDuration(p.Duration))
		}
		sb.WriteString("  ")
		sb.WriteString(f.style(util.LabelStyle, util.PadString("Timing:", 18)))
		sb.WriteString(util.TruncateDisplay(strings.Join(parts, ", "), f.Width-20))
		sb.WriteString(fmt.Sprintf(" (total %s)\n", util.FormatDuration(s.Total)))
	}

	if len(s.Warnings) > 0 {
		sb.WriteString(f.style(util.WarningStyle, fmt.Sprintf("%s skipped:", util.Plural(len(s.Warnings), "line"))))
		sb.WriteString("\n")
		for _, warning := range s.Warnings {
			sb.WriteString("  ")
			sb.WriteString(util.TruncateDisplay(warning, f.Width-2))
			sb.WriteString("\n")
		}
	}

	sb.WriteString(f.style(util.SuccessStyle, "Open "+indexPath(s)))
	sb.WriteString("\n")
	_, err := io.WriteString(w, sb.String())
	return err
}

func indexPath(s GenerationSummary) string {
	for _, f := range s.Files {
		if strings.HasSuffix(f, "index.html") {
			return f
		}
	}
	return s.OutputDir
}

var annotationHeaders = []string{"Page", "Target", "Status", "Text"}

func (f *TableFormatter) FormatAnnotations(w io.Writer, rows []AnnotationRow) error {
	if len(rows) == 0 {
		_, err := io.WriteString(w, "No annotations\n")
		return err
	}

	data := make([][]string, 0, len(rows))
	for _, r := range rows {
		status := "ok"
		if r.Unresolved {
			status = "unresolved"
		}
		page := strconv.Itoa(r.Page)
		if r.Page == 0 {
			page = "index"
		}
		data = append(data, []string{page, r.Target, status, r.Text})
	}

	widths := f.calculateColumnWidths(data)

	var sb strings.Builder
	f.writeBorder(&sb, widths, "top")
	f.writeRow(&sb, annotationHeaders, widths)
	f.writeBorder(&sb, widths, "middle")
	for _, row := range data {
		f.writeRow(&sb, row, widths)
	}
	f.writeBorder(&sb, widths, "bottom")
	sb.WriteString(util.Plural(len(rows), "annotation"))
	sb.WriteString("\n")

	_, err := io.WriteString(w, sb.String())
	return err
}

// calculateColumnWidths sizes every column to its content; the text column
// takes whatever is left of the available width.
func (f *TableFormatter) calculateColumnWidths(data [][]string) []int {
	widths := make([]int, len(annotationHeaders))
	for i, header := range annotationHeaders {
		widths[i] = util.GetDisplayWidth(header)
	}
	for _, row := range data {
		for i, value := range row[:len(row)-1] {
			widths[i] = max(widths[i], util.GetDisplayWidth(value))
		}
	}

	used := 1
	for _, width := range widths[:len(widths)-1] {
		used += width + 3
	}
	last := len(widths) - 1
	widths[last] = max(f.Width-used-4, 12)
	return widths
}

func (f *TableFormatter) writeBorder(sb *strings.Builder, widths []int, borderType string) {
	var left, middle, right string
	switch borderType {
	case "top":
		left, middle, right = "┌", "┬", "┐"
	case "middle":
		left, middle, right = "├", "┼", "┤"
	case "bottom":
		left, middle, right = "└", "┴", "┘"
	}

	sb.WriteString(left)
	for i, width := range widths {
		sb.WriteString(strings.Repeat("─", width+2))
		if i < len(widths)-1 {
			sb.WriteString(middle)
		}
	}
	sb.WriteString(right)
	sb.WriteString("\n")
}

func (f *TableFormatter) writeRow(sb *strings.Builder, values []string, widths []int) {
	sb.WriteString("│")
	for i, value := range values {
		value = util.TruncateDisplay(value, widths[i])
		sb.WriteString(" ")
		sb.WriteString(util.PadString(value, widths[i]))
		sb.WriteString(" │")
	}
	sb.WriteString("\n")
}
