package history

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/parleybot/parley/internal/fsstore"
)

// FileStore keeps one JSONL transcript per origin under dir.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

func NewFileStore(dir string) (*FileStore, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, fmt.Errorf("history dir is required")
	}
	if err := fsstore.EnsureDir(dir); err != nil {
		return nil, err
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) Recent(origin string, limit int) ([]Turn, error) {
	if limit <= 0 {
		return nil, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var turns []Turn
	err := fsstore.ReadJSONL(s.path(origin), func(line []byte) error {
		var turn Turn
		if err := json.Unmarshal(line, &turn); err != nil {
			return fmt.Errorf("history decode %s: %w", origin, err)
		}
		turns = append(turns, turn)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	return turns, nil
}

func (s *FileStore) Append(origin string, turns ...Turn) error {
	if len(turns) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.path(origin)
	for _, turn := range turns {
		if err := fsstore.AppendJSONL(path, turn); err != nil {
			return err
		}
	}
	return nil
}

func (s *FileStore) path(origin string) string {
	return filepath.Join(s.dir, sanitizeOrigin(origin)+".jsonl")
}

// sanitizeOrigin maps an origin to a safe file name.
func sanitizeOrigin(origin string) string {
	replacer := strings.NewReplacer(":", "_", "/", "_", "\\", "_", " ", "_")
	name := replacer.Replace(strings.TrimSpace(origin))
	if name == "" {
		name = "unknown"
	}
	return name
}
