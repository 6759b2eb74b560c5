package tracker

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fakeyudi/codewalk/internal/change"
)

// ErrNoJournal is returned when no journal exists on disk.
var ErrNoJournal = errors.New("no journal")

const (
	activeFile   = "journal.json"
	journalsDir  = "journals"
	journalPerms = 0o644
)

// JournalStore persists journals under the codewalk storage directory: the
// active journal as journal.json, finalized journals as one JSON record per
// id under journals/.
type JournalStore struct {
	dir string
}

// NewJournalStore creates the storage layout under dir.
func NewJournalStore(dir string) (*JournalStore, error) {
	if err := os.MkdirAll(filepath.Join(dir, journalsDir), 0o755); err != nil {
		return nil, fmt.Errorf("creating journal directory: %w", err)
	}
	return &JournalStore{dir: dir}, nil
}

// SaveActive writes the active journal atomically via a temp file + rename.
func (s *JournalStore) SaveActive(j *change.Journal) error {
	return s.writeJSON(filepath.Join(s.dir, activeFile), j)
}

// LoadActive reads the active journal. Returns ErrNoJournal if none exists.
func (s *JournalStore) LoadActive() (*change.Journal, error) {
	return s.readJournal(filepath.Join(s.dir, activeFile))
}

// DeleteActive removes the active journal file.
func (s *JournalStore) DeleteActive() error {
	err := os.Remove(filepath.Join(s.dir, activeFile))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete active journal: %w", err)
	}
	return nil
}

// Finalize records a finished journal under journals/<id>.json and removes
// the active journal file.
func (s *JournalStore) Finalize(j *change.Journal) error {
	path := filepath.Join(s.dir, journalsDir, j.ID+".json")
	if err := s.writeJSON(path, j); err != nil {
		return err
	}
	return s.DeleteActive()
}

// SaveFinalized rewrites an already finalized journal in place, for updates
// like explanation retries after the session ended.
func (s *JournalStore) SaveFinalized(j *change.Journal) error {
	return s.writeJSON(filepath.Join(s.dir, journalsDir, j.ID+".json"), j)
}

// List returns all finalized journals, newest session first.
func (s *JournalStore) List() ([]*change.Journal, error) {
	entries, err := os.ReadDir(filepath.Join(s.dir, journalsDir))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list journals: %w", err)
	}
	var journals []*change.Journal
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		j, err := s.readJournal(filepath.Join(s.dir, journalsDir, e.Name()))
		if err != nil {
			continue // skip unreadable records
		}
		journals = append(journals, j)
	}
	sort.Slice(journals, func(i, k int) bool {
		return journals[i].SessionStart.After(journals[k].SessionStart)
	})
	return journals, nil
}

// LoadLatest returns the active journal if one exists, otherwise the most
// recently started finalized journal. Returns ErrNoJournal when neither
// exists.
func (s *JournalStore) LoadLatest() (*change.Journal, error) {
	j, err := s.LoadActive()
	if err == nil {
		return j, nil
	}
	if !errors.Is(err, ErrNoJournal) {
		return nil, err
	}
	journals, err := s.List()
	if err != nil {
		return nil, err
	}
	if len(journals) == 0 {
		return nil, ErrNoJournal
	}
	return journals[0], nil
}

func (s *JournalStore) readJournal(path string) (*change.Journal, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoJournal
		}
		return nil, fmt.Errorf("failed to read journal: %w", err)
	}
	var j change.Journal
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("failed to parse journal: %w", err)
	}
	return &j, nil
}

// writeJSON marshals v and writes it atomically via a temp file + os.Rename.
func (s *JournalStore) writeJSON(path string, v any) (err error) {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to persist journal: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "journal-*.json.tmp")
	if err != nil {
		return fmt.Errorf("failed to persist journal: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to persist journal: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to persist journal: %w", err)
	}
	if err = os.Chmod(tmpName, journalPerms); err != nil {
		return fmt.Errorf("failed to persist journal: %w", err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to persist journal: %w", err)
	}
	return nil
}
