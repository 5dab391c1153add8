package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/penwyp/go-claude-transcripts/internal/data/watcher"
	"github.com/penwyp/go-claude-transcripts/internal/generator"
	"github.com/penwyp/go-claude-transcripts/internal/presentation/formatter"
	"github.com/penwyp/go-claude-transcripts/internal/util"
)

var (
	// Logging related
	debug   bool
	logFile string

	// Output related
	outputDir    string
	reportFormat string
	title        string
	timezone     string

	// Rendering
	themeName       string
	themesDir       string
	pageSize        int
	concurrency     int
	seedAnnotations string

	watch bool

	rootCmd = &cobra.Command{
		Use:   "go-claude-transcripts [flags] <session.jsonl>",
		Short: "Render Claude Code transcripts as annotatable HTML",
		Long: `go-claude-transcripts turns a Claude Code JSONL transcript into a static HTML site:
an index.html overview with one entry per prompt and paginated page-NNN.html files.
Every page carries an annotation layer that saves notes in the browser.

Examples:
  go-claude-transcripts session.jsonl                       # Write to ./session-html
  go-claude-transcripts -o site --page-size 10 session.jsonl
  go-claude-transcripts --theme dark session.jsonl          # ~/.go-claude-transcripts/themes/dark.json
  go-claude-transcripts --seed-annotations notes.json session.jsonl
  go-claude-transcripts --watch session.jsonl               # Regenerate when the transcript grows`,
		Args:              cobra.ExactArgs(1),
		PersistentPreRunE: setup,
		RunE:              runGenerate,
		SilenceUsage:      true,
	}
)

func init() {
	rootCmd.Flags().StringVarP(&outputDir, "output", "o", "",
		"Output directory (default: <session>-html next to the working directory)")
	rootCmd.Flags().StringVar(&themeName, "theme", "",
		"Theme name or path to a theme JSON file")
	rootCmd.PersistentFlags().StringVar(&themesDir, "themes-dir", envDefaults.ThemesDir,
		"Directory holding named themes (default ~/.go-claude-transcripts/themes)")
	rootCmd.Flags().IntVar(&pageSize, "page-size", envDefaults.PageSize,
		"Prompts per page")
	rootCmd.Flags().StringVar(&seedAnnotations, "seed-annotations", "",
		"Annotation export to publish as annotations.json")
	rootCmd.Flags().BoolVarP(&watch, "watch", "w", false,
		"Regenerate whenever the transcript changes")
	rootCmd.Flags().IntVar(&concurrency, "concurrency", 0,
		"Pages rendered in parallel (0 = number of CPUs)")
	rootCmd.Flags().StringVar(&title, "title", "",
		"Document title")
	rootCmd.PersistentFlags().StringVar(&timezone, "timezone", envDefaults.Timezone,
		"Timezone for rendered timestamps (e.g., Local, UTC, Asia/Shanghai)")
	rootCmd.PersistentFlags().StringVar(&reportFormat, "format", "text",
		"Report format (text, json)")

	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false,
		"Enable debug mode")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", envDefaults.LogFile,
		"Log file path")
}

// setup initializes logging for every command.
func setup(cmd *cobra.Command, args []string) error {
	logLevel := "info"
	if debug {
		logLevel = "debug"
	}

	path := expandPath(logFile)
	if err := ensureDir(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	err := util.InitLogger(util.LoggerOptions{
		Level:     logLevel,
		LogFile:   path,
		Console:   debug,
		ConsoleTo: os.Stderr,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if envErr != nil {
		util.LogWarn(fmt.Sprintf("Ignoring %s_* environment: %v", envPrefix, envErr))
	}
	return nil
}

func runGenerate(cmd *cobra.Command, args []string) error {
	tp, err := util.NewTimeProvider(timezone)
	if err != nil {
		return err
	}
	report, err := formatter.New(reportFormat, os.Stdout)
	if err != nil {
		return err
	}

	sessionFile := expandPath(args[0])
	cfg := generator.Config{
		SessionFile: sessionFile,
		OutputDir:   resolveOutputDir(sessionFile, outputDir),
		Theme:       themeName,
		PageSize:    pageSize,
		Concurrency: concurrency,
		Title:       title,
		Time:        tp,
	}
	if themesDir != "" {
		cfg.ThemesDir = expandPath(themesDir)
	}
	if seedAnnotations != "" {
		cfg.SeedAnnotations = expandPath(seedAnnotations)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := generateOnce(ctx, cmd, report, cfg); err != nil {
		return err
	}
	if !watch {
		return nil
	}
	return watchAndRegenerate(ctx, cmd, report, cfg)
}

func generateOnce(ctx context.Context, cmd *cobra.Command, f formatter.Formatter, cfg generator.Config) error {
	result, err := generator.Generate(ctx, cfg)
	if err != nil {
		return err
	}
	return f.FormatGeneration(cmd.OutOrStdout(), toSummary(result))
}

func watchAndRegenerate(ctx context.Context, cmd *cobra.Command, f formatter.Formatter, cfg generator.Config) error {
	fw, err := watcher.NewFileWatcher(cfg.SessionFile)
	if err != nil {
		return fmt.Errorf("failed to watch %s: %w", cfg.SessionFile, err)
	}
	defer fw.Close()

	fmt.Fprintf(cmd.ErrOrStderr(), "Watching %s for changes (Ctrl+C to stop)\n", cfg.SessionFile)
	err = fw.Run(ctx, func(change watcher.Change) error {
		util.LogInfo(fmt.Sprintf("Transcript changed (%s), regenerating", change.Op))
		return generateOnce(ctx, cmd, f, cfg)
	})
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func toSummary(r *generator.Report) formatter.GenerationSummary {
	s := formatter.GenerationSummary{
		SessionFile:     r.SessionFile,
		OutputDir:       r.OutputDir,
		StorageKey:      r.StorageKey,
		Events:          r.Events,
		Prompts:         r.Prompts,
		Pages:           r.Pages,
		Anchors:         r.Anchors,
		SeedAnnotations: r.SeedAnnotations,
		SeedUnresolved:  r.SeedUnresolved,
		Files:           r.Files,
		Removed:         r.Removed,
		Total:           r.Total,
		Phases: []formatter.Phase{
			{Name: "parse", Duration: r.Durations.Parse},
			{Name: "group", Duration: r.Durations.Group},
			{Name: "paginate", Duration: r.Durations.Paginate},
			{Name: "theme", Duration: r.Durations.Theme},
			{Name: "render", Duration: r.Durations.Render},
			{Name: "write", Duration: r.Durations.Write},
		},
	}
	for _, w := range r.Warnings {
		s.Warnings = append(s.Warnings, w.String())
	}
	return s
}

func Execute() error {
	return rootCmd.Execute()
}

// Helper functions

// resolveOutputDir defaults the output directory to <session>-html in the
// working directory.
func resolveOutputDir(sessionFile, dir string) string {
	if dir != "" {
		return expandPath(dir)
	}
	base := strings.TrimSuffix(filepath.Base(sessionFile), filepath.Ext(sessionFile))
	return expandPath(base + "-html")
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, path[2:])
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return absPath
}

func ensureDir(dir string) error {
	return os.MkdirAll(dir, 0755)
}
