package options

import (
	"github.com/spf13/pflag"

	"github.com/arborworks/arbor/pkg/utils/json"
)

// Options is the full running configuration of the arbor CLI.
type Options struct {
	BackendOptions *BackendOptions `json:"backend" mapstructure:"backend"`
	ModelOptions   *ModelOptions   `json:"models"  mapstructure:"models"`
	EngineOptions  *EngineOptions  `json:"engine"  mapstructure:"engine"`
	SandboxOptions *SandboxOptions `json:"sandbox" mapstructure:"sandbox"`
	AgentOptions   *AgentOptions   `json:"agent"   mapstructure:"agent"`
	StoreOptions   *StoreOptions   `json:"store"   mapstructure:"store"`
}

func NewOptions() *Options {
	return &Options{
		BackendOptions: NewBackendOptions(),
		ModelOptions:   NewModelOptions(),
		EngineOptions:  NewEngineOptions(),
		SandboxOptions: NewSandboxOptions(),
		AgentOptions:   NewAgentOptions(),
		StoreOptions:   NewStoreOptions(),
	}
}

// AddFlags registers every option group on the given flag set.
func (o *Options) AddFlags(fs *pflag.FlagSet) {
	o.BackendOptions.AddFlags(fs)
	o.ModelOptions.AddFlags(fs)
	o.EngineOptions.AddFlags(fs)
	o.SandboxOptions.AddFlags(fs)
	o.AgentOptions.AddFlags(fs)
	o.StoreOptions.AddFlags(fs)
}

// Validate checks every option group and collects the failures.
func (o *Options) Validate() []error {
	var errs []error
	errs = append(errs, o.BackendOptions.Validate()...)
	errs = append(errs, o.ModelOptions.Validate()...)
	errs = append(errs, o.EngineOptions.Validate()...)
	errs = append(errs, o.SandboxOptions.Validate()...)
	errs = append(errs, o.AgentOptions.Validate()...)
	errs = append(errs, o.StoreOptions.Validate()...)
	return errs
}

func (o *Options) String() string {
	data, _ := json.Marshal(o)
	return string(data)
}
