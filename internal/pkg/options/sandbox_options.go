package options

import (
	"fmt"

	"github.com/spf13/pflag"
)

// SandboxOptions selects and shapes the code-execution tier.
type SandboxOptions struct {
	Tier              string  `json:"tier" mapstructure:"tier"`
	TrustUnrestricted bool    `json:"trust-unrestricted" mapstructure:"trust-unrestricted"`
	PythonPath        string  `json:"python-path" mapstructure:"python-path"`
	AuditLogPath      string  `json:"audit-log" mapstructure:"audit-log"`
	DockerImage       string  `json:"docker-image" mapstructure:"docker-image"`
	DockerCPUs        float64 `json:"docker-cpus" mapstructure:"docker-cpus"`
	DockerMemory      string  `json:"docker-memory" mapstructure:"docker-memory"`
	WASMModulePath    string  `json:"wasm-module" mapstructure:"wasm-module"`
	WASMMemoryPages   uint32  `json:"wasm-memory-pages" mapstructure:"wasm-memory-pages"`
	ExecTimeoutSecs   int     `json:"exec-timeout-seconds" mapstructure:"exec-timeout-seconds"`
}

func NewSandboxOptions() *SandboxOptions {
	return &SandboxOptions{
		Tier:            "restricted",
		DockerImage:     "python:3.11-slim",
		DockerCPUs:      1.0,
		DockerMemory:    "512m",
		ExecTimeoutSecs: 30,
	}
}

func (o *SandboxOptions) Validate() []error {
	var errs []error
	switch o.Tier {
	case "restricted", "localdev", "container", "wasm":
	default:
		errs = append(errs, fmt.Errorf("sandbox: unknown tier %q", o.Tier))
	}
	if o.Tier == "localdev" && !o.TrustUnrestricted {
		errs = append(errs, fmt.Errorf("sandbox: localdev tier requires --trust-unrestricted"))
	}
	if o.ExecTimeoutSecs <= 0 {
		errs = append(errs, fmt.Errorf("sandbox: exec-timeout-seconds must be > 0, got %d", o.ExecTimeoutSecs))
	}
	return errs
}

func (o *SandboxOptions) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.Tier, "sandbox", o.Tier, "Executor tier: restricted, localdev, container or wasm.")
	fs.BoolVar(&o.TrustUnrestricted, "trust-unrestricted", o.TrustUnrestricted, "Explicit opt-in for the unrestricted localdev tier.")
	fs.StringVar(&o.PythonPath, "python", o.PythonPath, "Python interpreter for the localdev tier.")
	fs.StringVar(&o.AuditLogPath, "audit-log", o.AuditLogPath, "Audit log path for the localdev tier.")
	fs.StringVar(&o.DockerImage, "docker-image", o.DockerImage, "Image for the container tier.")
	fs.Float64Var(&o.DockerCPUs, "docker-cpus", o.DockerCPUs, "CPU limit for the container tier.")
	fs.StringVar(&o.DockerMemory, "docker-memory", o.DockerMemory, "Memory limit for the container tier.")
	fs.StringVar(&o.WASMModulePath, "wasm-module", o.WASMModulePath, "Interpreter module for the wasm tier.")
	fs.IntVar(&o.ExecTimeoutSecs, "exec-timeout", o.ExecTimeoutSecs, "Per-execution timeout in seconds.")
}
