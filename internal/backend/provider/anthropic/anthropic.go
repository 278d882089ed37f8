package anthropic

import (
	"context"

	einoClaude "github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino/components/model"

	"github.com/arborworks/arbor/internal/backend/provider/helper"
	"github.com/arborworks/arbor/internal/backend/provider/spi"
	"github.com/arborworks/arbor/internal/pkg/options"
)

const Name = "anthropic"

var _ spi.ProviderPlugin = (*Plugin)(nil)

type Plugin struct {
	helper.BasePlugin
}

func New() spi.ProviderPlugin {
	return &Plugin{
		BasePlugin: helper.BasePlugin{PluginName: Name},
	}
}

func (p *Plugin) BuildChatModel(ctx context.Context, cfg *options.ProviderConfig, modelID string) (model.ToolCallingChatModel, error) {
	def, err := p.PickModel(cfg, modelID)
	if err != nil {
		return nil, err
	}
	apiKey, err := p.APIKey(cfg, true)
	if err != nil {
		return nil, err
	}

	maxTokens := def.MaxTokens
	if maxTokens == 0 {
		maxTokens = 8192
	}
	conf := &einoClaude.Config{
		APIKey:    apiKey,
		Model:     def.ID,
		MaxTokens: maxTokens,
	}
	if cfg.BaseURL != "" && cfg.BaseURL != p.DefaultConfig().BaseURL {
		conf.BaseURL = &cfg.BaseURL
	}

	return einoClaude.NewChatModel(ctx, conf)
}

func (p *Plugin) DefaultConfig() *options.ProviderConfig {
	return &options.ProviderConfig{
		BaseURL: "https://api.anthropic.com/v1",
		APIKey:  "${ANTHROPIC_API_KEY}",
		Models: []options.ModelDefinition{
			{ID: "claude-sonnet-4-5", Name: "Claude Sonnet 4.5", Reasoning: true, ContextWindow: 200000, MaxTokens: 64000, Cost: options.ModelCost{Input: 3, Output: 15, CacheRead: 0.3, CacheWrite: 3.75}},
			{ID: "claude-haiku-4-5", Name: "Claude Haiku 4.5", ContextWindow: 200000, MaxTokens: 64000, Cost: options.ModelCost{Input: 1, Output: 5, CacheRead: 0.1, CacheWrite: 1.25}},
		},
	}
}
