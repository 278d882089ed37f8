// Package config loads the arbor configuration file and layers
// environment variables and flags on top of the built-in defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/arborworks/arbor/internal/pkg/options"
	"github.com/arborworks/arbor/pkg/logger"
)

const (
	configName = "arbor"
	envPrefix  = "ARBOR"
)

// Config is the running configuration of the arbor CLI.
type Config struct {
	*options.Options

	// File is the resolved config file path, empty when no file was found.
	File string
}

// Load resolves configuration in precedence order: flags over environment
// over config file over defaults. An explicit path that doesn't exist is
// an error; a missing default config file is not.
func Load(opts *options.Options, explicitPath string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if explicitPath != "" {
		v.SetConfigFile(explicitPath)
	} else {
		v.SetConfigName(configName)
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, "."+configName))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicitPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	// AutomaticEnv alone doesn't surface env-only keys through Unmarshal;
	// the env-sensible keys are bound explicitly.
	for _, key := range []string{
		"backend.provider", "backend.model", "backend.base-url", "backend.api-key",
		"store.driver", "store.path", "sandbox.tier",
	} {
		_ = v.BindEnv(key)
	}

	// Flags write straight into opts, so snapshot the explicitly-set ones
	// and re-apply them after Unmarshal. Flags beat env beat file.
	type setFlag struct{ name, value string }
	var explicit []setFlag
	if flags != nil {
		flags.Visit(func(f *pflag.Flag) {
			explicit = append(explicit, setFlag{f.Name, f.Value.String()})
		})
	}

	if err := v.Unmarshal(opts); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	for _, f := range explicit {
		if err := flags.Set(f.name, f.value); err != nil {
			return nil, fmt.Errorf("apply flag --%s: %w", f.name, err)
		}
	}

	cfg := &Config{Options: opts, File: v.ConfigFileUsed()}
	if cfg.File != "" {
		logger.DebugX("config", "loaded configuration from %s", cfg.File)
	}
	return cfg, nil
}
