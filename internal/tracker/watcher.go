package tracker

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// maxSnapshotSize caps how much of a file the watcher will read. Larger
// files are not snapshotted and produce no edit events.
const maxSnapshotSize = 1 << 20

// Watcher turns filesystem writes into edit and save events for a Tracker.
// It keeps a per-file line snapshot; when a watched file changes, the
// inserted block is located by comparing the new content against the
// snapshot, then an edit event and a save event are emitted. In a filesystem
// feed a write is a save.
type Watcher struct {
	workDir   string
	tracker   *Tracker
	policy    *Policy
	snapshots map[string][]string // abs path → lines at last sighting
}

// NewWatcher builds a watcher rooted at workDir.
func NewWatcher(workDir string, tr *Tracker, policy *Policy) *Watcher {
	return &Watcher{
		workDir:   workDir,
		tracker:   tr,
		policy:    policy,
		snapshots: make(map[string][]string),
	}
}

// Run watches workDir recursively until ctx is cancelled. Existing files are
// snapshotted first so pre-existing content is never reported as an edit.
// Watcher errors are non-fatal; the loop keeps going.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	if err := filepath.WalkDir(w.workDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // skip unreadable entries
		}
		if d.IsDir() {
			if path != w.workDir && w.ignoredDir(path) {
				return filepath.SkipDir
			}
			return fsw.Add(path)
		}
		if !w.policy.Ignored(path) {
			if lines, ok := w.readLines(path); ok {
				w.snapshots[path] = lines
			}
		}
		return nil
	}); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handle(ctx, fsw, event)

		case _, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
		}
	}
}

func (w *Watcher) handle(ctx context.Context, fsw *fsnotify.Watcher, event fsnotify.Event) {
	path := event.Name

	if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		delete(w.snapshots, path)
		return
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}

	// A new directory needs its own watch.
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if !w.ignoredDir(path) {
				_ = fsw.Add(path)
			}
			return
		}
	}

	if w.policy.Ignored(path) {
		return
	}

	newLines, ok := w.readLines(path)
	if !ok {
		return
	}
	oldLines, seen := w.snapshots[path]
	w.snapshots[path] = newLines

	rel := w.relPath(path)

	if !seen && !event.Has(fsnotify.Create) {
		// First sighting of a pre-existing file we failed to seed; baseline
		// it without reporting an edit.
		return
	}

	startLine, inserted, found := DetectInsertion(oldLines, newLines)
	if found {
		w.tracker.OnEditEvent(rel, startLine, inserted)
	}
	w.tracker.OnSaveEvent(ctx, rel)
}

// DetectInsertion locates the block of lines present in newLines but not in
// oldLines by trimming the common prefix and suffix. It reports the 1-based
// start line of the inserted block and its text, or found=false when the
// change is not a net insertion.
func DetectInsertion(oldLines, newLines []string) (startLine int, text string, found bool) {
	if len(newLines) <= len(oldLines) {
		return 0, "", false
	}

	prefix := 0
	for prefix < len(oldLines) && prefix < len(newLines) && oldLines[prefix] == newLines[prefix] {
		prefix++
	}

	suffix := 0
	for suffix < len(oldLines)-prefix && suffix < len(newLines)-prefix &&
		oldLines[len(oldLines)-1-suffix] == newLines[len(newLines)-1-suffix] {
		suffix++
	}

	inserted := newLines[prefix : len(newLines)-suffix]
	if len(inserted) == 0 {
		return 0, "", false
	}
	return prefix + 1, strings.Join(inserted, "\n"), true
}

// readLines reads a file as lines. Binary and oversized files report ok=false.
func (w *Watcher) readLines(path string) ([]string, bool) {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() || info.Size() > maxSnapshotSize {
		return nil, false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	if bytes.IndexByte(data, 0) >= 0 {
		return nil, false
	}
	return strings.Split(strings.TrimSuffix(string(data), "\n"), "\n"), true
}

// ignoredDir reports whether a directory is excluded from watching.
func (w *Watcher) ignoredDir(path string) bool {
	return w.policy.Ignored(path) || w.policy.Ignored(path+string(filepath.Separator))
}

// relPath returns the workspace-relative form of path.
func (w *Watcher) relPath(path string) string {
	if rel, err := filepath.Rel(w.workDir, path); err == nil {
		return filepath.ToSlash(rel)
	}
	return path
}
