package ollama

import (
	"context"

	"github.com/bytedance/gg/gptr"
	einoOllama "github.com/cloudwego/eino-ext/components/model/ollama"
	"github.com/cloudwego/eino/components/model"

	"github.com/arborworks/arbor/internal/backend/provider/helper"
	"github.com/arborworks/arbor/internal/backend/provider/spi"
	"github.com/arborworks/arbor/internal/pkg/options"
)

const Name = "ollama"

var _ spi.ProviderPlugin = (*Plugin)(nil)

type Plugin struct {
	helper.BasePlugin
}

func New() spi.ProviderPlugin {
	return &Plugin{
		BasePlugin: helper.BasePlugin{PluginName: Name},
	}
}

// BuildChatModel constructs a local Ollama chat model. No API key is
// required; locally served models cost nothing.
func (p *Plugin) BuildChatModel(ctx context.Context, cfg *options.ProviderConfig, modelID string) (model.ToolCallingChatModel, error) {
	def, err := p.PickModel(cfg, modelID)
	if err != nil {
		return nil, err
	}

	conf := &einoOllama.ChatModelConfig{
		BaseURL: "http://127.0.0.1:11434",
		Model:   def.ID,
		Options: &einoOllama.Options{},
	}
	if cfg.BaseURL != "" {
		conf.BaseURL = cfg.BaseURL
	}
	if def.Reasoning {
		conf.Thinking = &einoOllama.ThinkValue{
			Value: gptr.Of(true),
		}
	}

	return einoOllama.NewChatModel(ctx, conf)
}

func (p *Plugin) DefaultConfig() *options.ProviderConfig {
	return &options.ProviderConfig{
		BaseURL: "http://127.0.0.1:11434",
		Models: []options.ModelDefinition{
			{ID: "llama3.1", Name: "Llama 3.1", ContextWindow: 131072, MaxTokens: 8192},
			{ID: "qwen2.5", Name: "Qwen 2.5", ContextWindow: 131072, MaxTokens: 8192},
		},
	}
}
