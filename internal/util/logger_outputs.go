package util

import (
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/bytedance/sonic"
)

// formatEntry renders an entry as one line. Text fields are sorted by key
// so lines are stable.
func formatEntry(entry LogEntry, format LogFormat) (string, error) {
	if format == FormatJSON {
		data, err := sonic.Marshal(entry)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s [%s] %s", entry.Timestamp.Format("2006/01/02 15:04:05"), entry.Level, entry.Message)
	for _, k := range slices.Sorted(maps.Keys(entry.Fields)) {
		fmt.Fprintf(&sb, " %s=%v", k, entry.Fields[k])
	}
	return sb.String(), nil
}

// lineOutput writes one formatted line per entry.
type lineOutput struct {
	mu     sync.Mutex
	w      io.Writer
	format LogFormat
	close  func() error
}

func (o *lineOutput) Write(entry LogEntry) error {
	line, err := formatEntry(entry, o.format)
	if err != nil {
		return err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	_, err = fmt.Fprintln(o.w, line)
	return err
}

func (o *lineOutput) Close() error {
	if o.close == nil {
		return nil
	}
	return o.close()
}

// NewConsoleOutput writes entries to w. Closing it leaves w open.
func NewConsoleOutput(w io.Writer, format LogFormat) Output {
	return &lineOutput{w: w, format: format}
}

// NewFileOutput appends entries to the file at path, creating its directory.
func NewFileOutput(path string, format LogFormat) (Output, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}
	return &lineOutput{w: file, format: format, close: file.Close}, nil
}
