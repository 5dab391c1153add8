package scanner

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/penwyp/go-claude-transcripts/internal/data/parser"
	"github.com/penwyp/go-claude-transcripts/internal/util"
)

// DefaultProjectsDir is where Claude Code keeps its transcripts.
const DefaultProjectsDir = "~/.claude/projects"

// Session describes one transcript file found on disk.
type Session struct {
	Path      string
	SessionID string
	// Project is the directory holding the transcript, relative to the
	// scanned base directory.
	Project string
	ModTime time.Time
	Size    int64
}

// FileScanner finds transcripts below a base directory.
type FileScanner struct {
	baseDir string
}

func NewFileScanner(baseDir string) *FileScanner {
	return &FileScanner{baseDir: baseDir}
}

// Scan returns the paths of all .jsonl files below the base directory.
// Unreadable entries are skipped.
func (s *FileScanner) Scan() ([]string, error) {
	sessions, err := s.walk()
	if err != nil {
		return nil, err
	}
	files := make([]string, 0, len(sessions))
	for _, sess := range sessions {
		files = append(files, sess.Path)
	}
	return files, nil
}

// Sessions returns transcripts newest first, at most limit of them when
// limit is positive.
func (s *FileScanner) Sessions(limit int) ([]Session, error) {
	sessions, err := s.walk()
	if err != nil {
		return nil, err
	}
	sort.SliceStable(sessions, func(i, j int) bool {
		if !sessions[i].ModTime.Equal(sessions[j].ModTime) {
			return sessions[i].ModTime.After(sessions[j].ModTime)
		}
		return sessions[i].Path < sessions[j].Path
	})
	if limit > 0 && len(sessions) > limit {
		sessions = sessions[:limit]
	}
	return sessions, nil
}

func (s *FileScanner) walk() ([]Session, error) {
	start := time.Now()
	var sessions []Session
	dirCount := 0
	totalCount := 0

	util.LogDebug(fmt.Sprintf("Start scanning directory: %s", s.baseDir))

	err := filepath.Walk(s.baseDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			util.LogDebug(fmt.Sprintf("Skip file (error): %s - %v", path, err))
			return nil
		}

		if info.IsDir() {
			dirCount++
			return nil
		}

		totalCount++
		if !strings.HasSuffix(strings.ToLower(path), ".jsonl") {
			return nil
		}

		project, err := filepath.Rel(s.baseDir, filepath.Dir(path))
		if err != nil {
			project = filepath.Dir(path)
		}
		sessions = append(sessions, Session{
			Path:      path,
			SessionID: parser.SessionID(path),
			Project:   project,
			ModTime:   info.ModTime(),
			Size:      info.Size(),
		})
		return nil
	})

	util.LogDebug(fmt.Sprintf("File scan completed: duration %v, scanned %d directories, %d files, found %d JSONL files",
		time.Since(start), dirCount, totalCount, len(sessions)))

	return sessions, err
}
