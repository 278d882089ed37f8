package options

import (
	"fmt"

	"github.com/spf13/pflag"
)

// ModelOptions holds the provider/model catalog, including the per-model
// price table the agent runner charges costs against.
type ModelOptions struct {
	DefaultProvider string                     `json:"default-provider" mapstructure:"default-provider"`
	DefaultModel    string                     `json:"default-model" mapstructure:"default-model"`
	Providers       map[string]*ProviderConfig `json:"providers" mapstructure:"providers"`
}

type ProviderConfig struct {
	BaseURL string            `json:"base-url" mapstructure:"base-url"`
	APIKey  string            `json:"api-key" mapstructure:"api-key"`
	Headers map[string]string `json:"headers" mapstructure:"headers"`
	Models  []ModelDefinition `json:"models" mapstructure:"models"`
}

type ModelDefinition struct {
	ID            string    `json:"id" mapstructure:"id"`
	Name          string    `json:"name" mapstructure:"name"`
	Reasoning     bool      `json:"reasoning" mapstructure:"reasoning"`
	Cost          ModelCost `json:"cost" mapstructure:"cost"`
	ContextWindow int       `json:"context-window" mapstructure:"context-window"`
	MaxTokens     int       `json:"max-tokens" mapstructure:"max-tokens"`
}

// ModelCost is the dollar price per million tokens, by role.
type ModelCost struct {
	Input      float64 `json:"input" mapstructure:"input"`
	Output     float64 `json:"output" mapstructure:"output"`
	CacheRead  float64 `json:"cache-read" mapstructure:"cache-read"`
	CacheWrite float64 `json:"cache-write" mapstructure:"cache-write"`
}

func NewModelOptions() *ModelOptions {
	return &ModelOptions{
		Providers: make(map[string]*ProviderConfig),
	}
}

func (o *ModelOptions) Validate() []error {
	var errs []error
	for id, p := range o.Providers {
		for _, m := range p.Models {
			if m.ID == "" {
				errs = append(errs, fmt.Errorf("provider %q: model id is required", id))
			}
		}
	}
	return errs
}

func (o *ModelOptions) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.DefaultProvider, "models.default-provider", o.DefaultProvider, "Default provider ID.")
	fs.StringVar(&o.DefaultModel, "models.default-model", o.DefaultModel, "Default model ID.")
}

// FindModel looks a model definition up across all configured providers.
func (o *ModelOptions) FindModel(modelID string) (*ModelDefinition, bool) {
	for _, p := range o.Providers {
		for i := range p.Models {
			if p.Models[i].ID == modelID {
				return &p.Models[i], true
			}
		}
	}
	return nil, false
}
