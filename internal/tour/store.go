package tour

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrNotFound is returned by Load when no tour with the given id exists.
var ErrNotFound = errors.New("tour not found")

// Store persists tours as one JSON record per id under a fixed directory.
type Store struct {
	dir string
}

// NewStore creates the tour directory under the storage root.
func NewStore(storageDir string) (*Store, error) {
	dir := filepath.Join(storageDir, "tours")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating tour directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Save writes a tour atomically via a temp file + os.Rename.
func (s *Store) Save(t *Tour) (err error) {
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to persist tour: %w", err)
	}

	path := filepath.Join(s.dir, t.ID+".json")
	tmp, err := os.CreateTemp(s.dir, "tour-*.json.tmp")
	if err != nil {
		return fmt.Errorf("failed to persist tour: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to persist tour: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to persist tour: %w", err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to persist tour: %w", err)
	}
	return nil
}

// Load reads one tour by id. An unambiguous id prefix is accepted.
func (s *Store) Load(id string) (*Tour, error) {
	t, err := s.read(filepath.Join(s.dir, id+".json"))
	if err == nil {
		return t, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	// Fall back to prefix matching.
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, ErrNotFound
	}
	var match string
	for _, e := range entries {
		name := strings.TrimSuffix(e.Name(), ".json")
		if strings.HasPrefix(name, id) {
			if match != "" {
				return nil, fmt.Errorf("ambiguous tour id %q", id)
			}
			match = name
		}
	}
	if match == "" {
		return nil, ErrNotFound
	}
	return s.read(filepath.Join(s.dir, match+".json"))
}

// List returns all stored tours, newest first.
func (s *Store) List() ([]*Tour, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list tours: %w", err)
	}
	var tours []*Tour
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		t, err := s.read(filepath.Join(s.dir, e.Name()))
		if err != nil {
			continue // skip unreadable records
		}
		tours = append(tours, t)
	}
	sort.Slice(tours, func(i, j int) bool {
		return tours[i].CreatedAt.After(tours[j].CreatedAt)
	})
	return tours, nil
}

// Delete removes a stored tour. Deleting a missing tour is not an error.
func (s *Store) Delete(id string) error {
	err := os.Remove(filepath.Join(s.dir, id+".json"))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete tour: %w", err)
	}
	return nil
}

func (s *Store) read(path string) (*Tour, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read tour: %w", err)
	}
	var t Tour
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse tour: %w", err)
	}
	return &t, nil
}
