package options

import (
	"fmt"

	"github.com/spf13/pflag"
)

// EngineOptions bounds one recursive completion tree.
type EngineOptions struct {
	MaxDepth           int  `json:"max-depth" mapstructure:"max-depth"`
	TokenBudget        int  `json:"token-budget" mapstructure:"token-budget"`
	TimeoutSeconds     int  `json:"timeout-seconds" mapstructure:"timeout-seconds"`
	MaxSubCallsPerTurn int  `json:"max-sub-calls" mapstructure:"max-sub-calls"`
	IncludeTrajectory  bool `json:"include-trajectory" mapstructure:"include-trajectory"`
}

func NewEngineOptions() *EngineOptions {
	return &EngineOptions{
		MaxDepth:           4,
		TokenBudget:        8000,
		TimeoutSeconds:     120,
		MaxSubCallsPerTurn: 12,
	}
}

func (o *EngineOptions) Validate() []error {
	var errs []error
	if o.MaxDepth < 0 {
		errs = append(errs, fmt.Errorf("engine: max-depth must be >= 0, got %d", o.MaxDepth))
	}
	if o.TokenBudget <= 0 {
		errs = append(errs, fmt.Errorf("engine: token-budget must be > 0, got %d", o.TokenBudget))
	}
	if o.MaxSubCallsPerTurn <= 0 {
		errs = append(errs, fmt.Errorf("engine: max-sub-calls must be > 0, got %d", o.MaxSubCallsPerTurn))
	}
	return errs
}

func (o *EngineOptions) AddFlags(fs *pflag.FlagSet) {
	fs.IntVar(&o.MaxDepth, "max-depth", o.MaxDepth, "Maximum recursion depth for delegated sub-completions.")
	fs.IntVar(&o.TokenBudget, "token-budget", o.TokenBudget, "Token budget shared across the whole completion tree.")
	fs.IntVar(&o.TimeoutSeconds, "timeout", o.TimeoutSeconds, "Wall-clock timeout in seconds for the whole completion.")
	fs.IntVar(&o.MaxSubCallsPerTurn, "max-sub-calls", o.MaxSubCallsPerTurn, "Maximum tool calls dispatched per turn.")
	fs.BoolVar(&o.IncludeTrajectory, "include-trajectory", o.IncludeTrajectory, "Include the full call tree in the result.")
}
