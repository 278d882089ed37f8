package options

import (
	"fmt"

	"github.com/spf13/pflag"
)

// BackendOptions selects the model provider adapter.
type BackendOptions struct {
	Provider    string `json:"provider" mapstructure:"provider"`
	Model       string `json:"model" mapstructure:"model"`
	BaseURL     string `json:"base-url" mapstructure:"base-url"`
	APIKey      string `json:"api-key" mapstructure:"api-key"`
	MaxRetries  int    `json:"max-retries" mapstructure:"max-retries"`
	BaseDelayMS int    `json:"base-delay-ms" mapstructure:"base-delay-ms"`
}

func NewBackendOptions() *BackendOptions {
	return &BackendOptions{
		Provider:    "openai",
		MaxRetries:  3,
		BaseDelayMS: 500,
	}
}

func (o *BackendOptions) Validate() []error {
	var errs []error
	if o.Provider == "" {
		errs = append(errs, fmt.Errorf("backend: provider is required"))
	}
	if o.MaxRetries <= 0 {
		errs = append(errs, fmt.Errorf("backend: max-retries must be > 0, got %d", o.MaxRetries))
	}
	return errs
}

func (o *BackendOptions) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.Provider, "provider", o.Provider, "Model provider: openai, anthropic, deepseek or ollama.")
	fs.StringVar(&o.Model, "model", o.Model, "Model identifier, defaults to the provider's first model.")
	fs.StringVar(&o.BaseURL, "base-url", o.BaseURL, "Override the provider endpoint.")
	fs.StringVar(&o.APIKey, "api-key", o.APIKey, "API key, supports ${ENV_VAR} references.")
	fs.IntVar(&o.MaxRetries, "max-retries", o.MaxRetries, "Backend retry attempts before a terminal error.")
}
