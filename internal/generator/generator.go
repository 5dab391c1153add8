package generator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/penwyp/go-claude-transcripts/internal/annotation"
	"github.com/penwyp/go-claude-transcripts/internal/core/exchange"
	"github.com/penwyp/go-claude-transcripts/internal/core/pagination"
	"github.com/penwyp/go-claude-transcripts/internal/data/parser"
	"github.com/penwyp/go-claude-transcripts/internal/presentation/render"
	"github.com/penwyp/go-claude-transcripts/internal/theme"
	"github.com/penwyp/go-claude-transcripts/internal/util"
)

type Config struct {
	SessionFile string
	OutputDir   string
	// Theme is a theme name or a path to a theme file; empty uses the default.
	Theme     string
	ThemesDir string
	// PageSize is the number of prompts per page; 0 uses the default.
	PageSize    int
	Concurrency int
	// SeedAnnotations is an optional export document published as
	// annotations.json next to the pages.
	SeedAnnotations string
	Title           string
	Time            *util.TimeProvider
}

// PhaseDurations records how long each phase of a run took.
type PhaseDurations struct {
	Parse, Group, Paginate, Theme, Render, Write time.Duration
}

// Report describes a finished run.
type Report struct {
	SessionFile string
	OutputDir   string
	StorageKey  string
	Events      int
	Prompts     int
	Pages       int
	Anchors     int
	Warnings    []parser.Warning
	// SeedUnresolved counts seed annotations whose anchors no longer exist.
	SeedAnnotations int
	SeedUnresolved  int
	Files           []string
	// Removed lists outputs of an earlier run that this run no longer produces.
	Removed   []string
	Durations PhaseDurations
	Total     time.Duration
}

type document struct {
	name string
	data []byte
}

// Generate renders the transcript in cfg.SessionFile into cfg.OutputDir.
// Every document is rendered in memory first; nothing is written unless all
// renders succeed.
func Generate(ctx context.Context, cfg Config) (*Report, error) {
	startTime := time.Now()
	if cfg.SessionFile == "" {
		return nil, fmt.Errorf("no session file given")
	}
	if cfg.OutputDir == "" {
		return nil, fmt.Errorf("no output directory given")
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = runtime.NumCPU()
	}
	util.LogInfo(fmt.Sprintf("Generating transcript for %s", cfg.SessionFile))

	report := &Report{
		SessionFile: cfg.SessionFile,
		OutputDir:   cfg.OutputDir,
		StorageKey:  annotation.StorageKey(cfg.SessionFile),
	}

	// Phase 1: Parse
	phaseStart := time.Now()
	result, err := parser.ParseFile(cfg.SessionFile)
	if err != nil {
		return nil, err
	}
	report.Events = len(result.Events)
	report.Warnings = result.Warnings
	report.Durations.Parse = time.Since(phaseStart)
	util.LogDebug(fmt.Sprintf("Phase 1 - Parse duration: %v, %d events, %d warnings",
		report.Durations.Parse, len(result.Events), len(result.Warnings)))

	// Phase 2: Group
	phaseStart = time.Now()
	prompts := exchange.Group(result.Events)
	report.Prompts = len(prompts)
	report.Durations.Group = time.Since(phaseStart)
	util.LogDebug(fmt.Sprintf("Phase 2 - Group duration: %v, %d prompts", report.Durations.Group, len(prompts)))

	// Phase 3: Paginate
	phaseStart = time.Now()
	pages := pagination.Paginate(prompts, cfg.PageSize)
	report.Pages = len(pages)
	report.Durations.Paginate = time.Since(phaseStart)
	util.LogDebug(fmt.Sprintf("Phase 3 - Paginate duration: %v, %d pages", report.Durations.Paginate, len(pages)))

	// Phase 4: Theme
	phaseStart = time.Now()
	th, err := theme.NewLoader(cfg.ThemesDir).Load(cfg.Theme)
	if err != nil {
		return nil, err
	}
	report.Durations.Theme = time.Since(phaseStart)
	util.LogDebug(fmt.Sprintf("Phase 4 - Theme duration: %v", report.Durations.Theme))

	// Phase 5: Render
	phaseStart = time.Now()
	renderer := render.New(th, report.StorageKey, cfg.Title)
	renderer.Time = cfg.Time
	anchors := render.AnchorManifest(pages)
	report.Anchors = anchors.Len()

	docs, err := renderDocuments(ctx, renderer, pages, cfg.Concurrency)
	if err != nil {
		return nil, err
	}
	manifest, err := render.RenderAnchors(anchors)
	if err != nil {
		return nil, err
	}
	docs = append(docs, document{name: render.AnchorsFile, data: manifest})

	if cfg.SeedAnnotations != "" {
		seed, imported, unresolved, err := seedDocument(cfg.SeedAnnotations, report.StorageKey, anchors)
		if err != nil {
			return nil, err
		}
		report.SeedAnnotations = imported
		report.SeedUnresolved = unresolved
		docs = append(docs, document{name: render.SeedFile, data: seed})
	}
	report.Durations.Render = time.Since(phaseStart)
	util.LogDebug(fmt.Sprintf("Phase 5 - Render duration: %v, %d documents", report.Durations.Render, len(docs)))

	// Phase 6: Write
	phaseStart = time.Now()
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path := filepath.Join(cfg.OutputDir, doc.name)
		if err := writeFileAtomic(path, doc.data); err != nil {
			return nil, err
		}
		report.Files = append(report.Files, path)
	}
	removed, err := removeStale(cfg.OutputDir, docs)
	if err != nil {
		return nil, err
	}
	report.Removed = removed
	report.Durations.Write = time.Since(phaseStart)
	util.LogDebug(fmt.Sprintf("Phase 6 - Write duration: %v", report.Durations.Write))

	report.Total = time.Since(startTime)
	util.LogInfo(fmt.Sprintf("Generated %d pages for %d prompts in %v",
		report.Pages, report.Prompts, report.Total))
	return report, nil
}

// renderDocuments renders the index and every page. Pages are independent
// and render in parallel; the result keeps index-first page order.
func renderDocuments(ctx context.Context, r *render.Renderer, pages []pagination.Page, concurrency int) ([]document, error) {
	docs := make([]document, len(pages)+1)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	g.Go(func() error {
		data, err := r.RenderIndex(gctx, pages)
		if err != nil {
			return fmt.Errorf("render index: %w", err)
		}
		docs[0] = document{name: render.IndexFile, data: data}
		return nil
	})
	for i, page := range pages {
		g.Go(func() error {
			data, err := r.RenderPage(gctx, page, len(pages))
			if err != nil {
				return fmt.Errorf("render page %d: %w", page.Number, err)
			}
			docs[i+1] = document{name: page.FileName(), data: data}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return docs, nil
}

// seedDocument re-resolves a seed export against the freshly generated
// anchors and re-keys it to storageKey.
func seedDocument(path, storageKey string, anchors *annotation.AnchorSet) ([]byte, int, int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("read seed annotations: %w", err)
	}

	store := annotation.NewStore(storageKey)
	rep, err := store.ImportBytes(data, anchors)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("seed annotations %s: %w", path, err)
	}
	if rep.Unresolved > 0 {
		util.LogWarn(fmt.Sprintf("%d seed annotations no longer match the transcript", rep.Unresolved))
	}

	out, err := annotation.MarshalDocument(store.Export())
	if err != nil {
		return nil, 0, 0, err
	}
	return out, rep.Imported, rep.Unresolved, nil
}

// removeStale deletes pages and seed documents left in dir by an earlier
// run that the current run did not write.
func removeStale(dir string, docs []document) ([]string, error) {
	written := make(map[string]bool, len(docs))
	for _, doc := range docs {
		written[doc.name] = true
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read output dir: %w", err)
	}
	var removed []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || written[name] || !isGeneratedName(name) {
			continue
		}
		path := filepath.Join(dir, name)
		if err := os.Remove(path); err != nil {
			return removed, fmt.Errorf("remove stale %s: %w", name, err)
		}
		util.LogDebug(fmt.Sprintf("Removed stale output %s", path))
		removed = append(removed, path)
	}
	return removed, nil
}

// isGeneratedName matches page-NNN.html and the seed document.
func isGeneratedName(name string) bool {
	if name == render.SeedFile {
		return true
	}
	digits, ok := strings.CutPrefix(name, "page-")
	if !ok {
		return false
	}
	digits, ok = strings.CutSuffix(digits, ".html")
	if !ok || digits == "" {
		return false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// writeFileAtomic writes data next to path and renames it into place, so a
// reader never sees a partial document.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}

// Anchors returns the anchors a generation of sessionFile with pageSize
// prompts per page would emit, without rendering anything.
func Anchors(sessionFile string, pageSize int) (*annotation.AnchorSet, error) {
	result, err := parser.ParseFile(sessionFile)
	if err != nil {
		return nil, err
	}
	pages := pagination.Paginate(exchange.Group(result.Events), pageSize)
	return render.AnchorManifest(pages), nil
}
