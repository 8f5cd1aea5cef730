package history

import "sync"

// MemStore is an in-memory Store for tests and the console adapter.
type MemStore struct {
	mu    sync.Mutex
	turns map[string][]Turn
}

func NewMemStore() *MemStore {
	return &MemStore{turns: make(map[string][]Turn)}
}

func (s *MemStore) Recent(origin string, limit int) ([]Turn, error) {
	if limit <= 0 {
		return nil, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	turns := s.turns[origin]
	if len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	out := make([]Turn, len(turns))
	copy(out, turns)
	return out, nil
}

func (s *MemStore) Append(origin string, turns ...Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns[origin] = append(s.turns[origin], turns...)
	return nil
}
