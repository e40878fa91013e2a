package providers

import (
	"fmt"

	"promptrun/internal/core"
)

// Builder creates a capability instance from configuration.
type Builder func(cfg ProviderConfig) (core.Capability, error)

// registry holds all registered capability builders.
var registry = make(map[core.ProviderID]Builder)

// Register allows provider packages to register themselves.
// This should be called from init() functions in provider packages.
func Register(id core.ProviderID, builder Builder) {
	registry[id] = builder
}

// Create instantiates the capability for a configured provider.
func Create(cfg ProviderConfig) (core.Capability, error) {
	builder, ok := registry[cfg.ID]
	if !ok {
		return nil, fmt.Errorf("no capability registered for provider: %s", cfg.ID)
	}
	return builder(cfg)
}

// ListRegistered returns all provider ids with a registered builder.
func ListRegistered() []core.ProviderID {
	ids := make([]core.ProviderID, 0, len(registry))
	for id := range registry {
		ids = append(ids, id)
	}
	return ids
}
