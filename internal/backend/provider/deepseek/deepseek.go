package deepseek

import (
	"context"

	einoDeepseek "github.com/cloudwego/eino-ext/components/model/deepseek"
	"github.com/cloudwego/eino/components/model"

	"github.com/arborworks/arbor/internal/backend/provider/helper"
	"github.com/arborworks/arbor/internal/backend/provider/spi"
	"github.com/arborworks/arbor/internal/pkg/options"
)

const Name = "deepseek"

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

	conf := &einoDeepseek.ChatModelConfig{
		APIKey:             apiKey,
		Model:              def.ID,
		Temperature:        0.7,
		ResponseFormatType: einoDeepseek.ResponseFormatTypeText,
	}
	if def.MaxTokens > 0 {
		conf.MaxTokens = def.MaxTokens
	}
	if cfg.BaseURL != "" {
		conf.BaseURL = cfg.BaseURL
	}

	return einoDeepseek.NewChatModel(ctx, conf)
}

func (p *Plugin) DefaultConfig() *options.ProviderConfig {
	return &options.ProviderConfig{
		BaseURL: "https://api.deepseek.com/v1",
		APIKey:  "${DEEPSEEK_API_KEY}",
		Models: []options.ModelDefinition{
			{ID: "deepseek-chat", Name: "DeepSeek V3", ContextWindow: 131072, MaxTokens: 8192, Cost: options.ModelCost{Input: 0.27, Output: 1.1, CacheRead: 0.07}},
			{ID: "deepseek-reasoner", Name: "DeepSeek R1", Reasoning: true, ContextWindow: 131072, MaxTokens: 8192, Cost: options.ModelCost{Input: 0.55, Output: 2.19, CacheRead: 0.14}},
		},
	}
}
