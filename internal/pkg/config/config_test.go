package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/arborworks/arbor/internal/pkg/options"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "arbor.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
backend:
  provider: deepseek
  model: deepseek-chat
engine:
  max-depth: 7
  token-budget: 12345
sandbox:
  tier: restricted
store:
  driver: sqlite
  path: history.db
`)

	opts := options.NewOptions()
	cfg, err := Load(opts, path, nil)
	require.NoError(t, err)

	require.Equal(t, path, cfg.File)
	require.Equal(t, "deepseek", opts.BackendOptions.Provider)
	require.Equal(t, "deepseek-chat", opts.BackendOptions.Model)
	require.Equal(t, 7, opts.EngineOptions.MaxDepth)
	require.Equal(t, 12345, opts.EngineOptions.TokenBudget)
	require.Equal(t, "sqlite", opts.StoreOptions.Driver)
	require.Equal(t, "history.db", opts.StoreOptions.Path)

	// Untouched groups keep their defaults.
	require.Equal(t, 10, opts.AgentOptions.MaxIterations)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "backend:\n  provider: openai\n")
	t.Setenv("ARBOR_BACKEND_PROVIDER", "ollama")

	opts := options.NewOptions()
	_, err := Load(opts, path, nil)
	require.NoError(t, err)
	require.Equal(t, "ollama", opts.BackendOptions.Provider)
}

func TestLoadFlagBeatsFile(t *testing.T) {
	path := writeConfig(t, "backend:\n  provider: openai\nengine:\n  max-depth: 2\n")

	opts := options.NewOptions()
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	opts.AddFlags(flags)
	require.NoError(t, flags.Set("provider", "anthropic"))

	_, err := Load(opts, path, flags)
	require.NoError(t, err)

	require.Equal(t, "anthropic", opts.BackendOptions.Provider)
	// Non-flagged values still come from the file.
	require.Equal(t, 2, opts.EngineOptions.MaxDepth)
}

func TestLoadExplicitPathMustExist(t *testing.T) {
	opts := options.NewOptions()
	_, err := Load(opts, filepath.Join(t.TempDir(), "nope.yaml"), nil)
	require.Error(t, err)
}

func TestLoadModelCatalog(t *testing.T) {
	path := writeConfig(t, `
models:
  default-model: my-model
  providers:
    openai:
      models:
        - id: my-model
          cost:
            input: 1.5
            output: 3.0
`)

	opts := options.NewOptions()
	_, err := Load(opts, path, nil)
	require.NoError(t, err)

	def, ok := opts.ModelOptions.FindModel("my-model")
	require.True(t, ok)
	require.InDelta(t, 1.5, def.Cost.Input, 1e-9)
	require.InDelta(t, 3.0, def.Cost.Output, 1e-9)
}
