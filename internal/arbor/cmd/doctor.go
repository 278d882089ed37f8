package cmd

import (
	"fmt"
	"io"
	"os/exec"

	"github.com/fatih/color"
	hoststat "github.com/likexian/host-stat-go"
	"github.com/spf13/cobra"

	"github.com/arborworks/arbor/internal/pkg/options"
)

func newDoctorCmd(opts *options.Options, out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check the host environment and configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ok := color.New(color.FgGreen).SprintFunc()
			bad := color.New(color.FgRed).SprintFunc()
			warn := color.New(color.FgYellow).SprintFunc()

			if hostInfo, err := hoststat.GetHostInfo(); err == nil {
				fmt.Fprintf(out, "%12s %s\n", "Host:", hostInfo.HostName)
				fmt.Fprintf(out, "%12s %s %s\n", "OS:", hostInfo.Release, hostInfo.OSBit)
			}
			if cpuInfo, err := hoststat.GetCPUInfo(); err == nil {
				fmt.Fprintf(out, "%12s %d cores\n", "CPU:", cpuInfo.CoreCount)
			}
			if memStat, err := hoststat.GetMemStat(); err == nil {
				fmt.Fprintf(out, "%12s %dM total, %dM free\n", "Memory:", memStat.MemTotal, memStat.MemFree)
			}
			fmt.Fprintln(out)

			// Configuration.
			if errs := opts.Validate(); len(errs) == 0 {
				fmt.Fprintf(out, "%s configuration valid\n", ok("✓"))
			} else {
				for _, err := range errs {
					fmt.Fprintf(out, "%s %v\n", bad("✗"), err)
				}
			}

			// Tier prerequisites.
			python := opts.SandboxOptions.PythonPath
			if python == "" {
				python = "python3"
			}
			if _, err := exec.LookPath(python); err == nil {
				fmt.Fprintf(out, "%s %s found (localdev tier available)\n", ok("✓"), python)
			} else {
				fmt.Fprintf(out, "%s %s not found, localdev tier unavailable\n", warn("!"), python)
			}
			if _, err := exec.LookPath("docker"); err == nil {
				fmt.Fprintf(out, "%s docker found (container tier available)\n", ok("✓"))
			} else {
				fmt.Fprintf(out, "%s docker not found, container tier unavailable\n", warn("!"))
			}
			if opts.SandboxOptions.WASMModulePath != "" {
				fmt.Fprintf(out, "%s wasm interpreter module configured\n", ok("✓"))
			} else {
				fmt.Fprintf(out, "%s no wasm interpreter module, wasm tier limited to raw modules\n", warn("!"))
			}

			// Credentials.
			if opts.BackendOptions.Provider == "ollama" {
				fmt.Fprintf(out, "%s provider %s needs no API key\n", ok("✓"), opts.BackendOptions.Provider)
			} else if opts.BackendOptions.APIKey != "" {
				fmt.Fprintf(out, "%s API key configured for provider %s\n", ok("✓"), opts.BackendOptions.Provider)
			} else {
				fmt.Fprintf(out, "%s no API key configured for provider %s\n", warn("!"), opts.BackendOptions.Provider)
			}
			return nil
		},
	}
}
