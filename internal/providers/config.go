// Package providers holds provider configuration and the capability factory.
package providers

import (
	"promptrun/internal/core"
)

// ProviderConfig holds the credentials and endpoint for one backend.
// Values are fixed at construction time and never mutated afterwards.
type ProviderConfig struct {
	ID           core.ProviderID
	APIKey       string
	BaseURL      string
	DefaultModel string
}

// Config is the immutable set of configured providers. Iteration order is
// insertion order, which is the order used when listing available
// providers in error messages.
type Config struct {
	order []core.ProviderID
	byID  map[core.ProviderID]ProviderConfig
}

// NewConfig builds a Config from the given provider entries. A later
// entry for an already-present provider replaces the earlier one without
// changing its position.
func NewConfig(entries ...ProviderConfig) *Config {
	c := &Config{
		byID: make(map[core.ProviderID]ProviderConfig, len(entries)),
	}
	for _, e := range entries {
		if _, exists := c.byID[e.ID]; !exists {
			c.order = append(c.order, e.ID)
		}
		c.byID[e.ID] = e
	}
	return c
}

// Get returns the configuration for a provider, if present.
func (c *Config) Get(id core.ProviderID) (ProviderConfig, bool) {
	cfg, ok := c.byID[id]
	return cfg, ok
}

// IDs returns the configured provider ids in insertion order.
func (c *Config) IDs() []core.ProviderID {
	out := make([]core.ProviderID, len(c.order))
	copy(out, c.order)
	return out
}

// Len returns the number of configured providers.
func (c *Config) Len() int {
	return len(c.order)
}
