// Package lifecycle builds per-tenant pipeline schedulers from loaded
// profiles and installs them on the event bus, including single-tenant
// reloads at runtime.
package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/parleybot/parley/dispatch"
	"github.com/parleybot/parley/internal/fsstore"
	"github.com/parleybot/parley/pipeline"
	"github.com/parleybot/parley/profile"
)

// ContextBuilder assembles the pipeline context for one tenant profile:
// the profile tree plus whatever collaborators (plugin manager, LLM client,
// history store) the deployment wires in.
type ContextBuilder func(p *profile.Profile) (*pipeline.Context, error)

type Options struct {
	Profiles *profile.Manager
	Bus      *dispatch.Bus
	// Stages is the ordered factory list every tenant's scheduler is built
	// from; per-tenant behavior differences come from the profile tree, not
	// from differing stage lists.
	Stages     []pipeline.Factory
	NewContext ContextBuilder
	Logger     *slog.Logger

	// StatusPath, when set, receives a JSON snapshot of the live tenants
	// after every build and reload, so operators can inspect what is
	// actually running without scraping logs.
	StatusPath string
}

// tenantStatus is one live tenant in the status snapshot.
type tenantStatus struct {
	ID      string    `json:"id"`
	Name    string    `json:"name"`
	Stages  []string  `json:"stages"`
	BuiltAt time.Time `json:"built_at"`
}

type statusSnapshot struct {
	UpdatedAt time.Time      `json:"updated_at"`
	Tenants   []tenantStatus `json:"tenants"`
}

// Manager owns the profile → scheduler binding for the lifetime of the
// process.
type Manager struct {
	profiles   *profile.Manager
	bus        *dispatch.Bus
	stages     []pipeline.Factory
	newContext ContextBuilder
	logger     *slog.Logger
	statusPath string

	mu     sync.Mutex
	status map[string]tenantStatus
}

func NewManager(opts Options) (*Manager, error) {
	if opts.Profiles == nil {
		return nil, fmt.Errorf("profile manager is required")
	}
	if opts.Bus == nil {
		return nil, fmt.Errorf("bus is required")
	}
	if len(opts.Stages) == 0 {
		return nil, fmt.Errorf("at least one stage factory is required")
	}
	if opts.NewContext == nil {
		return nil, fmt.Errorf("context builder is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		profiles:   opts.Profiles,
		bus:        opts.Bus,
		stages:     opts.Stages,
		newContext: opts.NewContext,
		logger:     logger,
		statusPath: opts.StatusPath,
		status:     make(map[string]tenantStatus),
	}, nil
}

// BuildSchedulers constructs one scheduler per loaded profile and installs
// them on the bus. A tenant whose construction fails is logged and skipped;
// the other tenants come up normally. The returned count is the number of
// tenants that are live.
func (m *Manager) BuildSchedulers(ctx context.Context) (int, error) {
	profiles := m.profiles.Profiles()
	if len(profiles) == 0 {
		return 0, fmt.Errorf("no profiles loaded")
	}
	m.logPreviousStatus()
	live := 0
	for _, p := range profiles {
		scheduler, err := m.build(ctx, p)
		if err != nil {
			m.logger.Error("tenant_build_failed", "tenant_id", p.ID, "error", err.Error())
			continue
		}
		m.bus.SetScheduler(p.ID, scheduler)
		m.recordStatus(p, scheduler)
		m.logger.Info("tenant_ready",
			"tenant_id", p.ID, "tenant_name", p.Name, "stages", scheduler.StageNames())
		live++
	}
	if live == 0 {
		return 0, fmt.Errorf("all %d tenants failed to build", len(profiles))
	}
	m.writeStatus()
	return live, nil
}

// Reload rebuilds exactly one tenant's scheduler from its current profile
// and swaps it on the bus. On failure the previous scheduler stays
// installed. In-flight executions keep the instance they started with.
func (m *Manager) Reload(ctx context.Context, tenantID string) error {
	p, ok := m.profiles.Get(tenantID)
	if !ok {
		return fmt.Errorf("unknown tenant %q", tenantID)
	}
	scheduler, err := m.build(ctx, p)
	if err != nil {
		return fmt.Errorf("rebuild tenant %q: %w", tenantID, err)
	}
	m.bus.SetScheduler(p.ID, scheduler)
	m.recordStatus(p, scheduler)
	m.writeStatus()
	m.logger.Info("tenant_reloaded", "tenant_id", p.ID, "tenant_name", p.Name)
	return nil
}

func (m *Manager) build(ctx context.Context, p *profile.Profile) (*pipeline.Scheduler, error) {
	pc, err := m.newContext(p)
	if err != nil {
		return nil, fmt.Errorf("build context: %w", err)
	}
	return pipeline.NewScheduler(ctx, pipeline.SchedulerOptions{
		Context: pc,
		Stages:  m.stages,
		Logger:  m.logger,
	})
}

func (m *Manager) recordStatus(p *profile.Profile, s *pipeline.Scheduler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status[p.ID] = tenantStatus{
		ID:      p.ID,
		Name:    p.Name,
		Stages:  s.StageNames(),
		BuiltAt: time.Now().UTC(),
	}
}

// logPreviousStatus reads the snapshot a previous run left behind, if any,
// so startup logs show what was live before a restart.
func (m *Manager) logPreviousStatus() {
	if m.statusPath == "" {
		return
	}
	var prev statusSnapshot
	found, err := fsstore.ReadJSON(m.statusPath, &prev)
	if err != nil {
		m.logger.Warn("tenant_status_read_failed", "path", m.statusPath, "error", err.Error())
		return
	}
	if found {
		m.logger.Info("tenant_status_previous",
			"tenants", len(prev.Tenants), "updated_at", prev.UpdatedAt)
	}
}

func (m *Manager) writeStatus() {
	if m.statusPath == "" {
		return
	}
	m.mu.Lock()
	tenants := make([]tenantStatus, 0, len(m.status))
	for _, ts := range m.status {
		tenants = append(tenants, ts)
	}
	m.mu.Unlock()
	sort.Slice(tenants, func(i, j int) bool { return tenants[i].ID < tenants[j].ID })

	snapshot := statusSnapshot{UpdatedAt: time.Now().UTC(), Tenants: tenants}
	if err := fsstore.WriteJSONAtomic(m.statusPath, snapshot); err != nil {
		m.logger.Warn("tenant_status_write_failed", "path", m.statusPath, "error", err.Error())
	}
}
