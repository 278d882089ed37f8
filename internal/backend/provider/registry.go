// Package provider hosts the model-provider plugin registry and the
// built-in plugins.
package provider

import (
	"fmt"
	"sync"

	"github.com/arborworks/arbor/internal/backend/provider/spi"
)

// Registry is a thread-safe registry for provider plugins.
type Registry struct {
	mu       sync.RWMutex
	registry map[string]spi.PluginFactory
}

// NewRegistry creates a new instance of the Registry.
func NewRegistry() *Registry {
	return &Registry{
		registry: make(map[string]spi.PluginFactory),
	}
}

// Register adds a provider plugin factory to the registry.
// Returns an error if a plugin with the same name is already registered.
func (r *Registry) Register(name string, factory spi.PluginFactory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.registry[name]; ok {
		return fmt.Errorf("provider %s is already registered", name)
	}

	r.registry[name] = factory
	return nil
}

// MustRegister adds a provider plugin factory to the registry.
// Panics if a plugin with the same name is already registered.
func (r *Registry) MustRegister(name string, factory spi.PluginFactory) {
	if err := r.Register(name, factory); err != nil {
		panic(err)
	}
}

// Get returns the plugin factory for the given name.
// Returns an error if the plugin is not registered.
func (r *Registry) Get(name string) (spi.PluginFactory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	factory, ok := r.registry[name]
	if !ok {
		return nil, fmt.Errorf("provider %s is not registered", name)
	}
	return factory, nil
}

// List returns all registered provider names.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.registry))
	for name := range r.registry {
		names = append(names, name)
	}
	return names
}

// Len returns the number of registered providers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.registry)
}
