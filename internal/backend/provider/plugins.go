package provider

import (
	"context"
	"fmt"

	"github.com/arborworks/arbor/internal/backend"
	"github.com/arborworks/arbor/internal/backend/eino"
	"github.com/arborworks/arbor/internal/backend/provider/anthropic"
	"github.com/arborworks/arbor/internal/backend/provider/deepseek"
	"github.com/arborworks/arbor/internal/backend/provider/ollama"
	"github.com/arborworks/arbor/internal/backend/provider/openai"
	"github.com/arborworks/arbor/internal/backend/provider/spi"
	"github.com/arborworks/arbor/internal/pkg/options"
)

// NewInTreeRegistry returns a registry with all built-in providers.
func NewInTreeRegistry() *Registry {
	r := NewRegistry()

	r.MustRegister(anthropic.Name, func() spi.ProviderPlugin { return anthropic.New() })
	r.MustRegister(openai.Name, func() spi.ProviderPlugin { return openai.New() })
	r.MustRegister(deepseek.Name, func() spi.ProviderPlugin { return deepseek.New() })
	r.MustRegister(ollama.Name, func() spi.ProviderPlugin { return ollama.New() })
	return r
}

// BuildBackend resolves a provider plugin, merges user configuration over
// the plugin's default catalog, and wires the resulting chat model behind
// the Backend contract.
func BuildBackend(ctx context.Context, reg *Registry, mo *options.ModelOptions, bo *options.BackendOptions) (backend.Backend, error) {
	factory, err := reg.Get(bo.Provider)
	if err != nil {
		return nil, fmt.Errorf("resolve provider: %w", err)
	}
	plugin := factory()

	cfg := plugin.DefaultConfig()
	if user, ok := mo.Providers[bo.Provider]; ok {
		mergeProviderConfig(cfg, user)
	}
	if bo.BaseURL != "" {
		cfg.BaseURL = bo.BaseURL
	}
	if bo.APIKey != "" {
		cfg.APIKey = bo.APIKey
	}

	modelID := bo.Model
	if modelID == "" {
		modelID = mo.DefaultModel
	}

	chatModel, err := plugin.BuildChatModel(ctx, cfg, modelID)
	if err != nil {
		return nil, fmt.Errorf("build %s chat model: %w", bo.Provider, err)
	}

	if modelID == "" && len(cfg.Models) > 0 {
		modelID = cfg.Models[0].ID
	}
	return eino.New(chatModel, modelID), nil
}

// CatalogWithDefaults returns the effective model catalog: each registered
// provider's default models with the user configuration merged on top.
// The price table is built from this so default models stay priced.
func CatalogWithDefaults(reg *Registry, mo *options.ModelOptions) *options.ModelOptions {
	out := options.NewModelOptions()
	out.DefaultProvider = mo.DefaultProvider
	out.DefaultModel = mo.DefaultModel
	for _, name := range reg.List() {
		factory, err := reg.Get(name)
		if err != nil {
			continue
		}
		cfg := factory().DefaultConfig()
		if user, ok := mo.Providers[name]; ok {
			mergeProviderConfig(cfg, user)
		}
		out.Providers[name] = cfg
	}
	return out
}

// mergeProviderConfig lays user-configured fields over the plugin's
// defaults. User models replace catalog entries with the same ID and are
// appended otherwise, so default price entries survive partial overrides.
func mergeProviderConfig(base, user *options.ProviderConfig) {
	if user.BaseURL != "" {
		base.BaseURL = user.BaseURL
	}
	if user.APIKey != "" {
		base.APIKey = user.APIKey
	}
	if len(user.Headers) > 0 {
		base.Headers = user.Headers
	}
	for _, m := range user.Models {
		replaced := false
		for i := range base.Models {
			if base.Models[i].ID == m.ID {
				base.Models[i] = m
				replaced = true
				break
			}
		}
		if !replaced {
			base.Models = append(base.Models, m)
		}
	}
}
