package openai

import (
	"context"

	"github.com/bytedance/gg/gptr"
	einoOpenAI "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"

	"github.com/arborworks/arbor/internal/backend/provider/helper"
	"github.com/arborworks/arbor/internal/backend/provider/spi"
	"github.com/arborworks/arbor/internal/pkg/options"
)

const Name = "openai"

var _ spi.ProviderPlugin = (*Plugin)(nil)

type Plugin struct {
	helper.BasePlugin
}

func New() spi.ProviderPlugin {
	return &Plugin{
		BasePlugin: helper.BasePlugin{PluginName: Name},
	}
}

// BuildChatModel constructs the OpenAI chat model. A configured BaseURL
// also makes this plugin the path for any OpenAI-compatible endpoint.
func (p *Plugin) BuildChatModel(ctx context.Context, cfg *options.ProviderConfig, modelID string) (model.ToolCallingChatModel, error) {
	def, err := p.PickModel(cfg, modelID)
	if err != nil {
		return nil, err
	}
	apiKey, err := p.APIKey(cfg, true)
	if err != nil {
		return nil, err
	}

	conf := &einoOpenAI.ChatModelConfig{
		Model:  def.ID,
		APIKey: apiKey,
		ResponseFormat: &einoOpenAI.ChatCompletionResponseFormat{
			Type: einoOpenAI.ChatCompletionResponseFormatTypeText,
		},
	}
	if def.MaxTokens > 0 {
		conf.MaxTokens = gptr.Of(def.MaxTokens)
	}
	// Set BaseURL only for non-default OpenAI endpoints.
	if cfg.BaseURL != "" && cfg.BaseURL != p.DefaultConfig().BaseURL {
		conf.BaseURL = cfg.BaseURL
	}

	return einoOpenAI.NewChatModel(ctx, conf)
}

func (p *Plugin) DefaultConfig() *options.ProviderConfig {
	return &options.ProviderConfig{
		BaseURL: "https://api.openai.com/v1",
		APIKey:  "${OPENAI_API_KEY}",
		Models: []options.ModelDefinition{
			{ID: "gpt-4o", Name: "GPT-4o", ContextWindow: 131072, MaxTokens: 8192, Cost: options.ModelCost{Input: 2.5, Output: 10, CacheRead: 1.25}},
			{ID: "gpt-4o-mini", Name: "GPT-4o Mini", ContextWindow: 131072, MaxTokens: 8192, Cost: options.ModelCost{Input: 0.15, Output: 0.6, CacheRead: 0.075}},
		},
	}
}
