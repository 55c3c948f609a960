package evidence

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Store hands out artifact paths under a directory it created at startup.
type Store struct {
	Dir    string
	Prefix string
	Ext    string

	now  func() time.Time
	mu   sync.Mutex
	last int64
}

// New creates dir if needed. Calling it again for the same dir is harmless.
func New(dir, prefix, ext string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("evidence dir is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create evidence dir: %w", err)
	}
	if prefix == "" {
		prefix = "book-demo"
	}
	if ext == "" {
		ext = "png"
	}
	return &Store{Dir: dir, Prefix: prefix, Ext: ext, now: time.Now}, nil
}

// NextPath returns <dir>/<prefix>-<epoch-millis>.<ext>. Two calls within the
// same millisecond still get distinct names.
func (s *Store) NextPath() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	ms := s.now().UnixMilli()
	if ms <= s.last {
		ms = s.last + 1
	}
	s.last = ms
	return filepath.Join(s.Dir, fmt.Sprintf("%s-%d.%s", s.Prefix, ms, s.Ext))
}
