package commands

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/penwyp/go-claude-transcripts/internal/core/exchange"
	"github.com/penwyp/go-claude-transcripts/internal/data/parser"
	"github.com/penwyp/go-claude-transcripts/internal/data/scanner"
	"github.com/penwyp/go-claude-transcripts/internal/util"
)

var (
	projectsDir   string
	sessionsLimit int
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List local Claude Code transcripts, newest first",
	Args:  cobra.NoArgs,
	RunE:  runSessions,
}

func init() {
	rootCmd.AddCommand(sessionsCmd)

	sessionsCmd.Flags().StringVar(&projectsDir, "dir", scanner.DefaultProjectsDir,
		"Claude project directory path")
	sessionsCmd.Flags().IntVarP(&sessionsLimit, "limit", "n", 10,
		"Number of sessions to list (0 = all)")
}

type sessionLine struct {
	session scanner.Session
	prompts int
	summary string
}

func runSessions(cmd *cobra.Command, args []string) error {
	tp, err := util.NewTimeProvider(timezone)
	if err != nil {
		return err
	}
	sessions, err := scanner.NewFileScanner(expandPath(projectsDir)).Sessions(sessionsLimit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(sessions) == 0 {
		fmt.Fprintf(out, "No transcripts in %s\n", projectsDir)
		return nil
	}

	lines := make([]sessionLine, len(sessions))
	var g errgroup.Group
	g.SetLimit(runtime.NumCPU())
	for i, sess := range sessions {
		g.Go(func() error {
			lines[i] = describeSession(sess)
			return nil
		})
	}
	_ = g.Wait()

	for _, l := range lines {
		fmt.Fprintf(out, "%s  %s  %s\n",
			tp.Format(l.session.ModTime, "2006-01-02 15:04"),
			util.PadString(util.Plural(l.prompts, "prompt"), 11),
			util.TruncateDisplay(l.summary, 60))
		fmt.Fprintf(out, "    %s\n", l.session.Path)
	}
	return nil
}

// describeSession summarizes a transcript by its first prompt. Unreadable
// transcripts are still listed.
func describeSession(sess scanner.Session) sessionLine {
	line := sessionLine{session: sess}
	result, err := parser.ParseFile(sess.Path)
	if err != nil {
		line.summary = "(unreadable)"
		return line
	}
	for _, p := range exchange.Group(result.Events) {
		if p.IsSynthetic() {
			continue
		}
		line.prompts++
		if line.summary == "" {
			line.summary = strings.TrimSpace(p.Text())
		}
	}
	if line.summary == "" {
		line.summary = "(no prompts)"
	}
	return line
}
