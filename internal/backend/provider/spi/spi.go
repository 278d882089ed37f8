package spi

import (
	"context"

	"github.com/cloudwego/eino/components/model"

	"github.com/arborworks/arbor/internal/pkg/options"
)

// ProviderPlugin is the interface for model provider plugins. A plugin
// knows its default catalog (models, endpoints, prices) and how to build
// a chat model for one of its models.
type ProviderPlugin interface {
	// Name returns the provider identifier (e.g. "openai").
	Name() string
	// DefaultConfig returns the provider's built-in catalog, merged under
	// user configuration.
	DefaultConfig() *options.ProviderConfig
	// BuildChatModel constructs a tool-capable chat model for modelID.
	// An empty modelID selects the catalog's first model.
	BuildChatModel(ctx context.Context, cfg *options.ProviderConfig, modelID string) (model.ToolCallingChatModel, error)
}

// PluginFactory is a function that creates a ProviderPlugin instance.
type PluginFactory func() ProviderPlugin
