// Package registry constructs the source-control backend selected by
// configuration.
package registry

import (
	"fmt"
	"sort"
	"time"

	"github.com/drewdunne/voiceops/internal/config"
	"github.com/drewdunne/voiceops/internal/provider"
	"github.com/drewdunne/voiceops/internal/provider/github"
	"github.com/drewdunne/voiceops/internal/provider/gitlab"
	"github.com/drewdunne/voiceops/internal/provider/local"
)

// cacheEntries bounds the SCM lookup cache.
const cacheEntries = 1024

// Registry manages provider instances.
type Registry struct {
	providers map[string]provider.SourceControl
}

// New creates a provider registry from config. The local provider is always
// available; github and gitlab are registered when selected.
func New(cfg config.SCMConfig) *Registry {
	r := &Registry{
		providers: map[string]provider.SourceControl{
			"local": local.New(),
		},
	}

	switch cfg.Provider {
	case "github":
		var opts []github.Option
		if cfg.BaseURL != "" {
			opts = append(opts, github.WithBaseURL(cfg.BaseURL))
		}
		r.providers["github"] = github.New(cfg.Token, cfg.Owner, cfg.Repo, opts...)
	case "gitlab":
		var opts []gitlab.Option
		if cfg.BaseURL != "" {
			opts = append(opts, gitlab.WithBaseURL(cfg.BaseURL))
		}
		r.providers["gitlab"] = gitlab.New(cfg.Token, cfg.Owner, cfg.Repo, opts...)
	}

	return r
}

// Get returns the provider for the given name, or nil if not configured.
func (r *Registry) Get(name string) provider.SourceControl {
	return r.providers[name]
}

// List returns all configured provider names, sorted.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Open returns the named provider wrapped with retries of transient
// failures and a lookup cache.
func (r *Registry) Open(name string, cacheTTL time.Duration) (*provider.Cached, error) {
	sc := r.Get(name)
	if sc == nil {
		return nil, fmt.Errorf("scm provider %q not configured", name)
	}
	return provider.NewCached(provider.NewRetrying(sc, provider.DefaultRetryConfig()), cacheEntries, cacheTTL)
}
