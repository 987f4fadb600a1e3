package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/coursemix/coursesync/internal/course"
)

// Snapshot is the on-disk layout of a FileStore
type Snapshot struct {
	Courses   map[string]*course.Course `json:"courses"` // keyed by course code
	UpdatedAt string                    `json:"updated_at"`
}

// FileStore keeps the table in a JSON snapshot file, rewritten after every insert.
// With an empty path it lives in memory only.
type FileStore struct {
	mu       sync.Mutex
	path     string
	snapshot *Snapshot
}

// NewFileStore loads the snapshot at path, starting empty when the file does not exist
func NewFileStore(path string) (*FileStore, error) {
	s := &FileStore{
		snapshot: &Snapshot{Courses: make(map[string]*course.Course)},
	}
	if path == "" {
		return s, nil
	}

	// Expand ~ to home directory
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		path = filepath.Join(home, path[2:])
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	s.path = path

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}

	if err := json.Unmarshal(data, s.snapshot); err != nil {
		return nil, fmt.Errorf("parsing snapshot: %w", err)
	}
	if s.snapshot.Courses == nil {
		s.snapshot.Courses = make(map[string]*course.Course)
	}
	return s, nil
}

// NewMemoryStore returns a FileStore that never touches disk
func NewMemoryStore() *FileStore {
	s, _ := NewFileStore("")
	return s
}

// FindByCode reports whether the code is in the snapshot
func (s *FileStore) FindByCode(_ context.Context, code string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, exists := s.snapshot.Courses[code]
	return exists, nil
}

// Insert adds a course and rewrites the snapshot file
func (s *FileStore) Insert(_ context.Context, c *course.Course) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.snapshot.Courses[c.Code]; exists {
		return fmt.Errorf("%w: course %s already stored", ErrUniqueViolation, c.Code)
	}
	return s.put(c)
}

// InsertIfAbsent adds a course unless its code is already stored
func (s *FileStore) InsertIfAbsent(_ context.Context, c *course.Course) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.snapshot.Courses[c.Code]; exists {
		return false, nil
	}
	if err := s.put(c); err != nil {
		return false, err
	}
	return true, nil
}

// put stores a copy of c; callers hold mu
func (s *FileStore) put(c *course.Course) error {
	stored := *c
	stored.SourceURL = ""
	s.snapshot.Courses[c.Code] = &stored

	if err := s.save(); err != nil {
		delete(s.snapshot.Courses, c.Code)
		return err
	}
	return nil
}

// save writes the snapshot to disk; callers hold mu
func (s *FileStore) save() error {
	if s.path == "" {
		return nil
	}

	s.snapshot.UpdatedAt = time.Now().UTC().Format(time.RFC3339)

	data, err := json.MarshalIndent(s.snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	return nil
}

// Courses returns the stored courses ordered by code
func (s *FileStore) Courses() []*course.Course {
	s.mu.Lock()
	defer s.mu.Unlock()

	courses := make([]*course.Course, 0, len(s.snapshot.Courses))
	for _, c := range s.snapshot.Courses {
		courses = append(courses, c)
	}
	sort.Slice(courses, func(i, j int) bool {
		return courses[i].Code < courses[j].Code
	})
	return courses
}

// Len returns the number of stored courses
func (s *FileStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.snapshot.Courses)
}

// Close is a no-op; the snapshot is written on every insert
func (s *FileStore) Close() error {
	return nil
}
