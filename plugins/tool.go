package plugins

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Tool is one LLM-callable function exposed by a plugin.
type Tool interface {
	Name() string
	Description() string
	ParameterSchema() string
	Execute(ctx context.Context, params map[string]any) (string, error)
}

type ToolRegistry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{tools: make(map[string]Tool)}
}

func (r *ToolRegistry) Register(tool Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[tool.Name()] = tool
}

func (r *ToolRegistry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

func (r *ToolRegistry) All() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// FormatToolDescriptions renders the registered tools as a prompt block for
// the LLM request stage.
func (r *ToolRegistry) FormatToolDescriptions() string {
	all := r.All()
	var b strings.Builder
	for _, t := range all {
		fmt.Fprintf(&b, "### %s\n%s\nParameters:\n```json\n%s\n```\n\n", t.Name(), t.Description(), t.ParameterSchema())
	}
	return b.String()
}
