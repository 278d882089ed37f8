package sandbox

import (
	"fmt"
	"sort"
	"sync"
)

// Config carries the tier-specific knobs read from configuration. Each
// tier consumes only the fields it understands.
type Config struct {
	// TrustUnrestricted is the explicit opt-in required by the localdev
	// tier. Building that tier without it is a configuration fault.
	TrustUnrestricted bool

	// PythonPath is the interpreter binary for the localdev tier.
	PythonPath string

	// AuditLogPath is where the localdev tier appends its audit records.
	AuditLogPath string

	// DockerImage, DockerCPUs and DockerMemory shape the container tier.
	DockerImage  string
	DockerCPUs   float64
	DockerMemory string

	// WASMModulePath points at the interpreter module the wasm tier runs
	// for non-wasm source payloads. WASMMemoryPages caps VM memory in
	// 64 KiB pages.
	WASMModulePath  string
	WASMMemoryPages uint32
}

// Factory builds one REPL session for a tier.
type Factory func(cfg Config) (REPL, error)

var (
	regMu     sync.RWMutex
	factories = map[Tier]Factory{}
)

// Register installs a tier factory. Tier packages call this from init.
func Register(tier Tier, f Factory) {
	regMu.Lock()
	defer regMu.Unlock()
	factories[tier] = f
}

// New builds a REPL for the configured tier. Unknown tiers fail
// immediately rather than falling back to a different isolation level.
func New(tier Tier, cfg Config) (REPL, error) {
	regMu.RLock()
	f, ok := factories[tier]
	regMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown executor tier %q (registered: %v)", tier, registered())
	}
	return f(cfg)
}

func registered() []string {
	names := make([]string, 0, len(factories))
	for t := range factories {
		names = append(names, string(t))
	}
	sort.Strings(names)
	return names
}
