// Package config resolves loader configuration from the process
// environment with per-organization overrides. It implements the
// credential source consumed by the upstream client.
package config

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/civicworks/actionnetwork-loader/pkg/client"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// DefaultCacheTTLSeconds is the client-choice cache TTL when no
// override is configured.
const DefaultCacheTTLSeconds = 1800

// Provider resolves configuration keys. Per-organization overrides win
// over process environment values. Reads are safe for concurrent use
// from all in-flight fetches.
type Provider struct {
	k *koanf.Koanf

	mu        sync.RWMutex
	overrides map[string]map[string]string
}

// NewProvider loads the process environment.
func NewProvider() (*Provider, error) {
	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", nil), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	return &Provider{
		k:         k,
		overrides: make(map[string]map[string]string),
	}, nil
}

// SetOrganization registers organization-scoped overrides, e.g. a
// per-organization API token.
func (p *Provider) SetOrganization(organization string, values map[string]string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	merged := p.overrides[organization]
	if merged == nil {
		merged = make(map[string]string, len(values))
	}
	for key, value := range values {
		merged[key] = value
	}
	p.overrides[organization] = merged
}

// Get returns the value for a key scoped to an organization. An empty
// string means the key is unset everywhere and the caller's default
// applies.
func (p *Provider) Get(key, organization string) string {
	p.mu.RLock()
	if values, ok := p.overrides[organization]; ok {
		if value, ok := values[key]; ok {
			p.mu.RUnlock()
			return value
		}
	}
	p.mu.RUnlock()

	return p.k.String(key)
}

// CacheTTLSeconds returns the client-choice cache TTL for an
// organization. Unset or unparsable values fall back to the default.
func (p *Provider) CacheTTLSeconds(organization string) int {
	raw := p.Get(client.KeyCacheTTL, organization)
	if raw == "" {
		return DefaultCacheTTLSeconds
	}
	ttl, err := strconv.Atoi(raw)
	if err != nil || ttl <= 0 {
		return DefaultCacheTTLSeconds
	}
	return ttl
}
