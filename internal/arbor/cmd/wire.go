package cmd

import (
	"context"
	"io"
	"time"

	"github.com/arborworks/arbor/internal/backend"
	"github.com/arborworks/arbor/internal/backend/provider"
	"github.com/arborworks/arbor/internal/engine/domain/repo"
	"github.com/arborworks/arbor/internal/engine/domain/service/runtime"
	"github.com/arborworks/arbor/internal/engine/store"
	"github.com/arborworks/arbor/internal/pkg/options"
	"github.com/arborworks/arbor/internal/sandbox"

	// Executor tiers register themselves on import.
	_ "github.com/arborworks/arbor/internal/sandbox/container"
	_ "github.com/arborworks/arbor/internal/sandbox/localdev"
	_ "github.com/arborworks/arbor/internal/sandbox/restricted"
	_ "github.com/arborworks/arbor/internal/sandbox/wasm"
)

// engineStack is everything one command execution needs, with a single
// Close tearing the pieces down in reverse order.
type engineStack struct {
	orch    *runtime.Orchestrator
	repl    sandbox.REPL
	runRepo repo.RunRepository
	sink    repo.TrajectorySink
	prices  *runtime.PriceTable

	storeCloser io.Closer
}

func (s *engineStack) Close() {
	if s.repl != nil {
		_ = s.repl.Close()
	}
	if s.storeCloser != nil {
		_ = s.storeCloser.Close()
	}
}

// buildEngine wires backend, sandbox, stores and orchestrator from the
// resolved options.
func buildEngine(ctx context.Context, opts *options.Options) (*engineStack, error) {
	if err := validateOptions(opts); err != nil {
		return nil, err
	}

	reg := provider.NewInTreeRegistry()
	b, err := provider.BuildBackend(ctx, reg, opts.ModelOptions, opts.BackendOptions)
	if err != nil {
		return nil, err
	}
	b = backend.Retrying(b,
		opts.BackendOptions.MaxRetries,
		time.Duration(opts.BackendOptions.BaseDelayMS)*time.Millisecond)

	repl, err := sandbox.New(sandbox.Tier(opts.SandboxOptions.Tier), sandbox.Config{
		TrustUnrestricted: opts.SandboxOptions.TrustUnrestricted,
		PythonPath:        opts.SandboxOptions.PythonPath,
		AuditLogPath:      opts.SandboxOptions.AuditLogPath,
		DockerImage:       opts.SandboxOptions.DockerImage,
		DockerCPUs:        opts.SandboxOptions.DockerCPUs,
		DockerMemory:      opts.SandboxOptions.DockerMemory,
		WASMModulePath:    opts.SandboxOptions.WASMModulePath,
		WASMMemoryPages:   opts.SandboxOptions.WASMMemoryPages,
	})
	if err != nil {
		return nil, err
	}

	sink, runRepo, closer, err := store.Open(opts.StoreOptions)
	if err != nil {
		repl.Close()
		return nil, err
	}

	orch := runtime.NewOrchestrator(b, repl, sink)
	orch.SetExecTimeout(time.Duration(opts.SandboxOptions.ExecTimeoutSecs) * time.Second)

	return &engineStack{
		orch:        orch,
		repl:        repl,
		runRepo:     runRepo,
		sink:        sink,
		prices:      runtime.NewPriceTable(provider.CatalogWithDefaults(reg, opts.ModelOptions)),
		storeCloser: closer,
	}, nil
}

// completionOptions maps the engine option group onto one completion tree.
func completionOptions(opts *options.Options, system string) runtime.CompletionOptions {
	return runtime.CompletionOptions{
		System:             system,
		MaxDepth:           opts.EngineOptions.MaxDepth,
		TokenBudget:        opts.EngineOptions.TokenBudget,
		Timeout:            time.Duration(opts.EngineOptions.TimeoutSeconds) * time.Second,
		MaxSubCallsPerTurn: opts.EngineOptions.MaxSubCallsPerTurn,
		IncludeTrajectory:  opts.EngineOptions.IncludeTrajectory,
	}
}
