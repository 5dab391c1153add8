package watcher

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/penwyp/go-claude-transcripts/internal/util"
)

// Change reports a new version of the watched transcript.
type Change struct {
	Path string
	Op   string
	Info *util.FileInfo
}

// FileWatcher watches one transcript file. The parent directory is watched
// so that editors and loggers replacing the file are still seen.
type FileWatcher struct {
	watcher *fsnotify.Watcher
	path    string
	events  chan Change
	done    chan struct{}

	mu              sync.Mutex
	last            *util.FileInfo
	lastFingerprint string
}

func NewFileWatcher(path string) (*FileWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	fw := &FileWatcher{
		watcher: w,
		path:    abs,
		events:  make(chan Change, 16),
		done:    make(chan struct{}),
	}
	// The version on disk now is the one the caller already has.
	fw.last, _ = util.GetFileInfo(abs)
	fw.lastFingerprint, _ = util.CalculateFileFingerprint(abs)

	go fw.processEvents()
	return fw, nil
}

func (fw *FileWatcher) processEvents() {
	defer close(fw.events)
	for {
		select {
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			if change, ok := fw.accept(event); ok {
				select {
				case fw.events <- change:
				case <-fw.done:
					return
				}
			}

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			util.LogError("File monitoring error: " + err.Error())

		case <-fw.done:
			return
		}
	}
}

// accept filters events down to real changes of the watched file.
func (fw *FileWatcher) accept(event fsnotify.Event) (Change, bool) {
	if filepath.Clean(event.Name) != fw.path {
		return Change{}, false
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return Change{}, false
	}

	info, err := util.GetFileInfo(fw.path)
	if err != nil {
		util.LogDebug(fmt.Sprintf("Ignoring %s event for %s: %v", event.Op, fw.path, err))
		return Change{}, false
	}

	fw.mu.Lock()
	defer fw.mu.Unlock()
	if info.Same(fw.last) {
		return Change{}, false
	}
	// A touch moves mtime without changing content.
	fingerprint, _ := util.CalculateFileFingerprint(fw.path)
	sameContent := fw.last != nil && info.Size == fw.last.Size && fingerprint != "" && fingerprint == fw.lastFingerprint
	fw.last = info
	fw.lastFingerprint = fingerprint
	if sameContent {
		util.LogDebug(fmt.Sprintf("Ignoring %s event for %s: content unchanged", event.Op, fw.path))
		return Change{}, false
	}
	return Change{Path: fw.path, Op: event.Op.String(), Info: info}, true
}

func (fw *FileWatcher) Events() <-chan Change {
	return fw.events
}

func (fw *FileWatcher) Close() error {
	select {
	case <-fw.done:
		return nil
	default:
		close(fw.done)
	}
	return fw.watcher.Close()
}

// Run calls fn for every change until ctx is done or the watcher closes.
// Errors from fn are logged and do not stop the loop.
func (fw *FileWatcher) Run(ctx context.Context, fn func(Change) error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case change, ok := <-fw.events:
			if !ok {
				return nil
			}
			if err := fn(change); err != nil {
				util.LogError(fmt.Sprintf("Handling change of %s failed: %v", change.Path, err))
			}
		}
	}
}
