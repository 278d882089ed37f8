package options

import (
	"fmt"

	"github.com/spf13/pflag"
)

// AgentOptions caps the outer observe-think-act loop.
type AgentOptions struct {
	MaxIterations  int     `json:"max-iterations" mapstructure:"max-iterations"`
	TokenBudget    int     `json:"token-budget" mapstructure:"token-budget"`
	CostLimit      float64 `json:"cost-limit" mapstructure:"cost-limit"`
	TimeoutSeconds int     `json:"timeout-seconds" mapstructure:"timeout-seconds"`
}

func NewAgentOptions() *AgentOptions {
	return &AgentOptions{
		MaxIterations:  10,
		TokenBudget:    50000,
		CostLimit:      2.0,
		TimeoutSeconds: 300,
	}
}

func (o *AgentOptions) Validate() []error {
	var errs []error
	if o.MaxIterations <= 0 {
		errs = append(errs, fmt.Errorf("agent: max-iterations must be > 0, got %d", o.MaxIterations))
	}
	if o.CostLimit < 0 {
		errs = append(errs, fmt.Errorf("agent: cost-limit must be >= 0, got %f", o.CostLimit))
	}
	return errs
}

func (o *AgentOptions) AddFlags(fs *pflag.FlagSet) {
	fs.IntVar(&o.MaxIterations, "max-iterations", o.MaxIterations, "Maximum agent iterations.")
	fs.IntVar(&o.TokenBudget, "agent-token-budget", o.TokenBudget, "Token budget across all iterations.")
	fs.Float64Var(&o.CostLimit, "cost-limit", o.CostLimit, "Dollar cost limit across all iterations.")
	fs.IntVar(&o.TimeoutSeconds, "agent-timeout", o.TimeoutSeconds, "Wall-clock timeout in seconds for the whole run.")
}
