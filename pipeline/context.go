package pipeline

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/parleybot/parley/internal/history"
	"github.com/parleybot/parley/llm"
	"github.com/parleybot/parley/plugins"
)

// Context is the immutable per-tenant bundle handed to every stage at
// initialization: the tenant's configuration tree and handles to the
// external collaborators stages may call into.
type Context struct {
	TenantID   string
	TenantName string

	// Config is the tenant's nested configuration tree, exposed verbatim.
	Config *viper.Viper

	Plugins *plugins.Manager
	LLM     llm.Client
	History history.Store
}

type ContextOptions struct {
	TenantID   string
	TenantName string
	Config     *viper.Viper
	Plugins    *plugins.Manager
	LLM        llm.Client
	History    history.Store
}

func NewContext(opts ContextOptions) (*Context, error) {
	tenantID := strings.TrimSpace(opts.TenantID)
	if tenantID == "" {
		return nil, fmt.Errorf("tenant id is required")
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = viper.New()
	}
	name := strings.TrimSpace(opts.TenantName)
	if name == "" {
		name = tenantID
	}
	return &Context{
		TenantID:   tenantID,
		TenantName: name,
		Config:     cfg,
		Plugins:    opts.Plugins,
		LLM:        opts.LLM,
		History:    opts.History,
	}, nil
}
