package parser

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"github.com/penwyp/go-claude-transcripts/internal/core/model"
	"github.com/penwyp/go-claude-transcripts/internal/util"
)

const maxLineSize = 10 * 1024 * 1024

// Warning describes a transcript line that was skipped.
type Warning struct {
	Line   int
	Reason string
}

func (w Warning) String() string {
	return fmt.Sprintf("line %d: %s", w.Line, w.Reason)
}

// ParseResult represents the result of parsing a single transcript.
type ParseResult struct {
	Source   string
	Events   []model.Event
	Warnings []Warning
	// Lines counts every non-blank line read, accepted or not.
	Lines int
}

// SessionID returns the transcript basename without extension.
func (r *ParseResult) SessionID() string {
	return SessionID(r.Source)
}

// SessionID derives a session id from a transcript path.
func SessionID(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// ParseFile parses the transcript at the specified path.
func ParseFile(path string) (*ParseResult, error) {
	util.LogDebug(fmt.Sprintf("Start parsing file: %s", path))

	file, err := os.Open(path)
	if err != nil {
		util.LogDebug(fmt.Sprintf("Failed to open file: %s - %v", path, err))
		return nil, fmt.Errorf("open transcript: %w", err)
	}
	defer file.Close()

	return Parse(file, path)
}

// Parse reads JSONL records from r. Malformed records are skipped and
// reported as warnings; only read errors abort parsing.
func Parse(r io.Reader, source string) (*ParseResult, error) {
	start := time.Now()
	result := &ParseResult{Source: source}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}
		result.Lines++

		event, reason := parseLine(line)
		if reason != "" {
			w := Warning{Line: lineNo, Reason: reason}
			result.Warnings = append(result.Warnings, w)
			util.LogWarn(fmt.Sprintf("Skip record %s:%d - %s", source, lineNo, reason))
			continue
		}
		event.Seq = len(result.Events)
		event.Line = lineNo
		result.Events = append(result.Events, event)
	}

	if err := scanner.Err(); err != nil {
		util.LogDebug(fmt.Sprintf("Error scanning file: %s - %v", source, err))
		return nil, fmt.Errorf("read transcript %s: %w", source, err)
	}

	util.LogDebug(fmt.Sprintf("Parsed %s: %d events, %d skipped, duration %v",
		source, len(result.Events), len(result.Warnings), time.Since(start)))
	return result, nil
}

// parseLine returns the event for a line or a non-empty reason it was rejected.
func parseLine(line []byte) (model.Event, string) {
	var log model.ConversationLog
	if err := sonic.Unmarshal(line, &log); err != nil {
		return model.Event{}, fmt.Sprintf("invalid JSON: %v", firstLine(err.Error()))
	}
	if log.Type == "" {
		return model.Event{}, "missing type"
	}

	kind := model.Classify(log)
	if kind.IsConversational() && log.Message == nil {
		return model.Event{}, fmt.Sprintf("missing message for %s record", log.Type)
	}

	var ts time.Time
	if log.Timestamp != "" {
		parsed, err := time.Parse(time.RFC3339Nano, log.Timestamp)
		if err != nil {
			return model.Event{}, fmt.Sprintf("invalid timestamp %q", log.Timestamp)
		}
		ts = parsed
	}

	return model.Event{
		Kind:      kind,
		Timestamp: ts,
		Raw:       log,
		Blocks:    model.ExtractBlocks(log, kind),
	}, ""
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
