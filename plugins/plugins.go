package plugins

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/parleybot/parley/platform"
)

// Star is the metadata of one loaded plugin.
type Star struct {
	Name    string
	Author  string
	Version string
	Enabled bool
}

// CommandHandler handles one parsed user command. Handlers push reply
// segments onto the event; delivery happens downstream.
type CommandHandler func(ctx context.Context, ev *platform.Event, args []string) error

// Manager is the registry the pipeline consults for user commands and LLM
// tools. It is populated once at startup; lookups are concurrency-safe.
type Manager struct {
	mu       sync.RWMutex
	stars    []Star
	commands map[string]CommandHandler
	tools    *ToolRegistry
}

func NewManager() *Manager {
	return &Manager{
		commands: make(map[string]CommandHandler),
		tools:    NewToolRegistry(),
	}
}

func (m *Manager) RegisterStar(star Star) error {
	if strings.TrimSpace(star.Name) == "" {
		return fmt.Errorf("star name is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.stars {
		if existing.Name == star.Name {
			return fmt.Errorf("star %q is already registered", star.Name)
		}
	}
	m.stars = append(m.stars, star)
	return nil
}

func (m *Manager) Stars() []Star {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Star, len(m.stars))
	copy(out, m.stars)
	return out
}

func (m *Manager) RegisterCommand(name string, handler CommandHandler) error {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return fmt.Errorf("command name is required")
	}
	if handler == nil {
		return fmt.Errorf("command handler is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.commands[name]; ok {
		return fmt.Errorf("command %q is already registered", name)
	}
	m.commands[name] = handler
	return nil
}

func (m *Manager) Command(name string) (CommandHandler, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, ok := m.commands[strings.ToLower(name)]
	return h, ok
}

func (m *Manager) CommandNames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.commands))
	for name := range m.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (m *Manager) Tools() *ToolRegistry {
	return m.tools
}
