package helper

import (
	"fmt"
	"os"
	"strings"

	"github.com/arborworks/arbor/internal/engine/pkg/errno"
	"github.com/arborworks/arbor/internal/pkg/options"
)

// BasePlugin carries the shared plugin plumbing: the name and the
// config/catalog helpers every provider needs.
type BasePlugin struct {
	PluginName string
}

func (b *BasePlugin) Name() string {
	return b.PluginName
}

// PickModel resolves modelID against the provider catalog, defaulting to
// the first model when empty.
func (b *BasePlugin) PickModel(cfg *options.ProviderConfig, modelID string) (*options.ModelDefinition, error) {
	if len(cfg.Models) == 0 && modelID == "" {
		return nil, fmt.Errorf("%w: provider %q has no models configured", errno.ErrConfiguration, b.PluginName)
	}
	if modelID == "" {
		return &cfg.Models[0], nil
	}
	for i := range cfg.Models {
		if cfg.Models[i].ID == modelID {
			return &cfg.Models[i], nil
		}
	}
	// Unknown to the catalog but explicitly requested: pass it through so
	// users can run models newer than our defaults. Pricing falls back to 0.
	return &options.ModelDefinition{ID: modelID, Name: modelID}, nil
}

// APIKey resolves the configured key, including ${ENV_VAR} references.
// Providers that require a key fail fast here rather than at first use.
func (b *BasePlugin) APIKey(cfg *options.ProviderConfig, required bool) (string, error) {
	key := ResolveEnvValue(cfg.APIKey)
	if required && key == "" {
		return "", fmt.Errorf("%w: provider %q has no API key (set %s)",
			errno.ErrConfiguration, b.PluginName, strings.TrimSuffix(strings.TrimPrefix(cfg.APIKey, "${"), "}"))
	}
	return key, nil
}

// ResolveEnvValue resolves "${ENV_VAR}" references in a string.
func ResolveEnvValue(s string) string {
	if strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") {
		envKey := s[2 : len(s)-1]
		return os.Getenv(envKey)
	}
	return s
}
