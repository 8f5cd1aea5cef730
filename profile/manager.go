package profile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

var ErrUnroutedOrigin = errors.New("origin does not match any profile route")

// Manager holds the loaded tenant profiles and resolves unified message
// origins to them. Lookups are concurrency-safe; Put replaces one entry
// atomically.
type Manager struct {
	mu        sync.RWMutex
	profiles  map[string]*Profile
	defaultID string
}

func NewManager(profiles ...*Profile) (*Manager, error) {
	m := &Manager{profiles: make(map[string]*Profile)}
	for _, p := range profiles {
		if err := m.Put(p); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// LoadDir reads every *.yaml/*.yml file under dir as one tenant profile.
func LoadDir(dir string) (*Manager, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read profile dir %s: %w", dir, err)
	}
	manager, err := NewManager()
	if err != nil {
		return nil, err
	}
	loaded := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read profile %s: %w", path, err)
		}
		p, err := parseProfileBytes(data)
		if err != nil {
			return nil, fmt.Errorf("profile %s: %w", path, err)
		}
		if err := manager.Put(p); err != nil {
			return nil, fmt.Errorf("profile %s: %w", path, err)
		}
		loaded++
	}
	if loaded == 0 {
		return nil, fmt.Errorf("no profile files found in %s", dir)
	}
	return manager, nil
}

// Put inserts or replaces one profile.
func (m *Manager) Put(p *Profile) error {
	if p == nil {
		return fmt.Errorf("profile is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.Default && m.defaultID != "" && m.defaultID != p.ID {
		return fmt.Errorf("profiles %q and %q both claim default", m.defaultID, p.ID)
	}
	if p.Default {
		m.defaultID = p.ID
	}
	m.profiles[p.ID] = p
	return nil
}

func (m *Manager) Get(id string) (*Profile, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.profiles[id]
	return p, ok
}

// Profiles returns all profiles sorted by id.
func (m *Manager) Profiles() []*Profile {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Profile, 0, len(m.profiles))
	for _, p := range m.profiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Resolve maps a unified message origin to a tenant. Routes match by exact
// origin or by prefix; the longest matching route wins across all profiles.
// When nothing matches, the default profile (if any) takes the event.
func (m *Manager) Resolve(origin string) (Ref, error) {
	origin = strings.TrimSpace(origin)
	if origin == "" {
		return Ref{}, fmt.Errorf("origin is required")
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var best *Profile
	bestLen := -1
	for _, p := range m.profiles {
		for _, route := range p.Routes {
			if route != origin && !strings.HasPrefix(origin, route) {
				continue
			}
			if len(route) > bestLen {
				best = p
				bestLen = len(route)
			}
		}
	}
	if best != nil {
		return best.Ref(), nil
	}
	if m.defaultID != "" {
		return m.profiles[m.defaultID].Ref(), nil
	}
	return Ref{}, fmt.Errorf("%w: %q", ErrUnroutedOrigin, origin)
}
