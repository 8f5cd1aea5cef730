// Package profile manages tenant configuration profiles and routes unified
// message origins to them. One profile equals one isolated pipeline
// scheduler at runtime.
package profile

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Ref is the routing result: which tenant an origin belongs to.
type Ref struct {
	ID   string
	Name string
}

// Profile is one tenant's configuration: identity, origin routes, and the
// full nested configuration tree exposed verbatim to pipeline stages.
type Profile struct {
	ID      string
	Name    string
	Routes  []string
	Default bool
	Tree    *viper.Viper
}

type ProfileOptions struct {
	ID      string
	Name    string
	Routes  []string
	Default bool
	Tree    *viper.Viper
}

func NewProfile(opts ProfileOptions) (*Profile, error) {
	id := strings.TrimSpace(opts.ID)
	if id == "" {
		return nil, fmt.Errorf("profile id is required")
	}
	if strings.Contains(id, " ") {
		return nil, fmt.Errorf("profile id must not contain spaces")
	}
	name := strings.TrimSpace(opts.Name)
	if name == "" {
		name = id
	}
	routes := make([]string, 0, len(opts.Routes))
	for _, route := range opts.Routes {
		route = strings.TrimSpace(route)
		if route == "" {
			return nil, fmt.Errorf("profile %q has a blank route", id)
		}
		routes = append(routes, route)
	}
	tree := opts.Tree
	if tree == nil {
		tree = viper.New()
	}
	return &Profile{
		ID:      id,
		Name:    name,
		Routes:  routes,
		Default: opts.Default,
		Tree:    tree,
	}, nil
}

func (p *Profile) Ref() Ref {
	return Ref{ID: p.ID, Name: p.Name}
}

// profileHeader is the identity/routing part of a profile YAML file. The
// same bytes are also loaded into the viper tree, so stage settings and
// identity live in one file.
type profileHeader struct {
	ID      string   `yaml:"id"`
	Name    string   `yaml:"name"`
	Routes  []string `yaml:"routes"`
	Default bool     `yaml:"default"`
}

func parseProfileBytes(data []byte) (*Profile, error) {
	var header profileHeader
	if err := yaml.Unmarshal(data, &header); err != nil {
		return nil, fmt.Errorf("parse profile header: %w", err)
	}

	tree := viper.New()
	tree.SetConfigType("yaml")
	if err := tree.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("parse profile tree: %w", err)
	}

	return NewProfile(ProfileOptions{
		ID:      header.ID,
		Name:    header.Name,
		Routes:  header.Routes,
		Default: header.Default,
		Tree:    tree,
	})
}
