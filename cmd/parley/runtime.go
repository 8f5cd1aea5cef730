package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/parleybot/parley/dispatch"
	"github.com/parleybot/parley/internal/history"
	"github.com/parleybot/parley/internal/metrics"
	"github.com/parleybot/parley/lifecycle"
	"github.com/parleybot/parley/llm"
	"github.com/parleybot/parley/pipeline"
	"github.com/parleybot/parley/pipeline/stages"
	"github.com/parleybot/parley/platform"
	"github.com/parleybot/parley/plugins"
	"github.com/parleybot/parley/plugins/builtin"
	"github.com/parleybot/parley/profile"
)

// runtime bundles everything the serve and chat commands share: loaded
// profiles, the plugin manager, the event bus and its lifecycle manager.
type runtime struct {
	logger    *slog.Logger
	profiles  *profile.Manager
	plugins   *plugins.Manager
	queue     chan *platform.Event
	bus       *dispatch.Bus
	lifecycle *lifecycle.Manager
}

func newRuntime(logger *slog.Logger, metricSet *metrics.Set) (*runtime, error) {
	profiles, err := profile.LoadDir(viper.GetString("profile_dir"))
	if err != nil {
		return nil, err
	}

	pluginManager := plugins.NewManager()
	if err := builtin.Register(pluginManager, version); err != nil {
		return nil, err
	}

	store, err := history.NewFileStore(viper.GetString("history_dir"))
	if err != nil {
		return nil, err
	}

	queue := make(chan *platform.Event, viper.GetInt("server.queue_size"))
	bus, err := dispatch.New(dispatch.Options{
		Queue:   queue,
		Router:  profiles,
		Logger:  logger,
		Metrics: metricSet,
	})
	if err != nil {
		return nil, err
	}

	lc, err := lifecycle.NewManager(lifecycle.Options{
		Profiles:   profiles,
		Bus:        bus,
		Stages:     stages.Default(),
		Logger:     logger,
		StatusPath: viper.GetString("status_path"),
		NewContext: func(p *profile.Profile) (*pipeline.Context, error) {
			client, err := llmClientFromProfile(p)
			if err != nil {
				return nil, err
			}
			return pipeline.NewContext(pipeline.ContextOptions{
				TenantID:   p.ID,
				TenantName: p.Name,
				Config:     p.Tree,
				Plugins:    pluginManager,
				LLM:        client,
				History:    store,
			})
		},
	})
	if err != nil {
		return nil, err
	}

	return &runtime{
		logger:    logger,
		profiles:  profiles,
		plugins:   pluginManager,
		queue:     queue,
		bus:       bus,
		lifecycle: lc,
	}, nil
}

func (r *runtime) start(ctx context.Context) (int, error) {
	live, err := r.lifecycle.BuildSchedulers(ctx)
	if err != nil {
		return 0, err
	}
	go r.bus.Run(ctx)
	return live, nil
}

func (r *runtime) shutdown(timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := r.bus.Drain(ctx); err != nil {
		r.logger.Warn("drain_timeout", "error", err.Error())
	}
}

// llmClientFromProfile builds the tenant's chat completion client. The
// profile tree wins; endpoint, key and timeout fall back to the process-wide
// config so one shared provider can serve every tenant. A tenant with no
// model configured runs without a client (commands only).
func llmClientFromProfile(p *profile.Profile) (llm.Client, error) {
	if p.Tree.IsSet("llm.enabled") && !p.Tree.GetBool("llm.enabled") {
		return nil, nil
	}
	if strings.TrimSpace(p.Tree.GetString("llm.model")) == "" {
		return nil, nil
	}
	endpoint := firstNonEmpty(p.Tree.GetString("llm.endpoint"), viper.GetString("llm.endpoint"))
	apiKey := firstNonEmpty(p.Tree.GetString("llm.api_key"), viper.GetString("llm.api_key"))
	timeout := p.Tree.GetDuration("llm.request_timeout")
	if timeout <= 0 {
		timeout = viper.GetDuration("llm.request_timeout")
	}
	client, err := llm.NewOpenAIClient(llm.OpenAIOptions{
		Endpoint: endpoint,
		APIKey:   apiKey,
		Timeout:  timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("llm client for tenant %q: %w", p.ID, err)
	}
	return client, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
