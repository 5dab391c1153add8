package theme

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bytedance/sonic"

	"github.com/penwyp/go-claude-transcripts/internal/util"
)

// ErrThemeNotFound is matched by every *NotFoundError.
var ErrThemeNotFound = errors.New("theme not found")

// NotFoundError reports a theme that resolved neither as a file nor as a
// named theme.
type NotFoundError struct {
	Name    string
	Checked []string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("theme not found: '%s'. Checked: %s", e.Name, strings.Join(e.Checked, " and "))
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrThemeNotFound
}

// Theme maps color roles to CSS color values.
type Theme map[string]string

var defaultTheme = Theme{
	"bg_color":          "#f5f5f5",
	"card_bg":           "#ffffff",
	"user_bg":           "#e3f2fd",
	"user_border":       "#1976d2",
	"assistant_bg":      "#f5f5f5",
	"assistant_border":  "#9e9e9e",
	"thinking_bg":       "#fff8e1",
	"thinking_border":   "#ffc107",
	"tool_bg":           "#f3e5f5",
	"tool_border":       "#9c27b0",
	"tool_result_bg":    "#e8f5e9",
	"tool_error_bg":     "#ffebee",
	"text_color":        "#212121",
	"text_muted":        "#757575",
	"code_bg":           "#263238",
	"code_text":         "#aed581",
	"commit_bg":         "#fff3e0",
	"commit_border":     "#ff9800",
	"commit_text":       "#e65100",
	"link_color":        "#1976d2",
	"annotation_bg":     "#fffde7",
	"annotation_border": "#fbc02d",
	"annotation_text":   "#5d4037",
}

// Default returns a copy of the built-in theme.
func Default() Theme {
	return defaultTheme.Clone()
}

// Roles returns every recognized color role, sorted.
func Roles() []string {
	return defaultTheme.keys()
}

func (t Theme) Clone() Theme {
	out := make(Theme, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}

// Merge returns the default theme overridden by t. Keys unknown to the
// default are kept.
func Merge(overrides map[string]string) Theme {
	merged := Default()
	for k, v := range overrides {
		merged[k] = v
	}
	return merged
}

func (t Theme) keys() []string {
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// CSSVariables renders the theme as custom property declarations, one per
// line, in key order.
func (t Theme) CSSVariables() string {
	var sb strings.Builder
	for _, k := range t.keys() {
		sb.WriteString("  --")
		sb.WriteString(strings.ReplaceAll(k, "_", "-"))
		sb.WriteString(": ")
		sb.WriteString(t[k])
		sb.WriteString(";\n")
	}
	return sb.String()
}

// DefaultThemesDir returns ~/.go-claude-transcripts/themes.
func DefaultThemesDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".go-claude-transcripts", "themes")
	}
	return filepath.Join(home, ".go-claude-transcripts", "themes")
}

// Loader resolves themes by file path or by name within ThemesDir.
type Loader struct {
	ThemesDir string
}

func NewLoader(themesDir string) *Loader {
	if themesDir == "" {
		themesDir = DefaultThemesDir()
	}
	return &Loader{ThemesDir: themesDir}
}

// Load resolves nameOrPath. An empty value yields the default theme; an
// existing file is read directly; otherwise {ThemesDir}/{name}.json is tried.
func (l *Loader) Load(nameOrPath string) (Theme, error) {
	if nameOrPath == "" {
		return Default(), nil
	}

	themeFile := nameOrPath
	if info, err := os.Stat(nameOrPath); err != nil || info.IsDir() {
		themeFile = filepath.Join(l.ThemesDir, nameOrPath+".json")
		if _, err := os.Stat(themeFile); err != nil {
			return nil, &NotFoundError{Name: nameOrPath, Checked: []string{nameOrPath, themeFile}}
		}
	}

	overrides, err := readThemeFile(themeFile)
	if err != nil {
		return nil, err
	}
	util.LogDebug(fmt.Sprintf("Loaded theme %s from %s (%d overrides)", nameOrPath, themeFile, len(overrides)))
	return Merge(overrides), nil
}

func readThemeFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read theme %s: %w", path, err)
	}
	var overrides map[string]string
	if err := sonic.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("theme %s must be a JSON object of string values: %w", path, err)
	}
	return overrides, nil
}

// List returns the sorted names of the themes in ThemesDir. A missing
// directory yields no themes.
func (l *Loader) List() ([]string, error) {
	entries, err := os.ReadDir(l.ThemesDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("list themes: %w", err)
	}

	names := []string{}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), ".json"))
	}
	sort.Strings(names)
	return names, nil
}
