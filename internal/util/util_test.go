package util

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTruncateDisplay(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		width    int
		expected string
	}{
		{name: "short text unchanged", input: "hello", width: 10, expected: "hello"},
		{name: "whitespace collapsed", input: "a\n\n  b\tc", width: 10, expected: "a b c"},
		{name: "ascii truncated", input: "abcdefghij", width: 5, expected: "abcd…"},
		{name: "wide runes counted as two cells", input: "日本語テキスト", width: 6, expected: "日本…"},
		{name: "zero width disables truncation", input: "abcdefghij", width: 0, expected: "abcdefghij"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TruncateDisplay(tt.input, tt.width)
			assert.Equal(t, tt.expected, got)
			if tt.width > 0 {
				assert.LessOrEqual(t, GetDisplayWidth(got), tt.width)
			}
		})
	}
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "999", FormatNumber(999))
	assert.Equal(t, "1.5K", FormatNumber(1500))
	assert.Equal(t, "2.0M", FormatNumber(2000000))
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "500µs", FormatDuration(500*time.Microsecond))
	assert.Equal(t, "12ms", FormatDuration(12*time.Millisecond))
	assert.Equal(t, "1.5s", FormatDuration(1500*time.Millisecond))
	assert.Equal(t, "2h 5m", FormatDuration(2*time.Hour+5*time.Minute))
}

func TestPlural(t *testing.T) {
	assert.Equal(t, "1 page", Plural(1, "page"))
	assert.Equal(t, "3 pages", Plural(3, "page"))
}

func TestGetFileInfoDetectsChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{}\n"), 0644))

	first, err := GetFileInfo(path)
	require.NoError(t, err)
	again, err := GetFileInfo(path)
	require.NoError(t, err)
	assert.True(t, first.Same(again))

	require.NoError(t, os.WriteFile(path, []byte("{}\n{}\n"), 0644))
	changed, err := GetFileInfo(path)
	require.NoError(t, err)
	assert.False(t, first.Same(changed))
}

func TestGetFileInfoMissing(t *testing.T) {
	_, err := GetFileInfo(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestCalculateFileFingerprint(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.jsonl")
	b := filepath.Join(dir, "b.jsonl")
	require.NoError(t, os.WriteFile(a, []byte("line one\n"), 0644))
	require.NoError(t, os.WriteFile(b, []byte("line two\n"), 0644))

	fa, err := CalculateFileFingerprint(a)
	require.NoError(t, err)
	fb, err := CalculateFileFingerprint(b)
	require.NoError(t, err)

	assert.Len(t, fa, 8)
	assert.NotEqual(t, fa, fb)

	again, err := CalculateFileFingerprint(a)
	require.NoError(t, err)
	assert.Equal(t, fa, again)
}
