package formatter

import (
	"io"

	"github.com/bytedance/sonic"
)

type JSONFormatter struct{}

func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

type jsonGeneration struct {
	GenerationSummary
	Phases  map[string]int64 `json:"phases_ms"`
	TotalMS int64            `json:"total_ms"`
}

func (f *JSONFormatter) FormatGeneration(w io.Writer, s GenerationSummary) error {
	out := jsonGeneration{GenerationSummary: s, Phases: map[string]int64{}, TotalMS: s.Total.Milliseconds()}
	if out.Warnings == nil {
		out.Warnings = []string{}
	}
	if out.Files == nil {
		out.Files = []string{}
	}
	for _, p := range s.Phases {
		out.Phases[p.Name] = p.Duration.Milliseconds()
	}
	return encode(w, out)
}

func (f *JSONFormatter) FormatAnnotations(w io.Writer, rows []AnnotationRow) error {
	if rows == nil {
		rows = []AnnotationRow{}
	}
	return encode(w, rows)
}

func encode(w io.Writer, v any) error {
	data, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}
