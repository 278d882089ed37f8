// Package cmd assembles the arbor command tree.
package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"

	"github.com/arborworks/arbor/internal/pkg/config"
	"github.com/arborworks/arbor/internal/pkg/options"
	"github.com/arborworks/arbor/pkg/logger"
)

// NewDefaultArborCommand creates the `arbor` command with default streams.
func NewDefaultArborCommand() *cobra.Command {
	return NewArborCommand(os.Stdin, os.Stdout, os.Stderr)
}

func NewArborCommand(in io.Reader, out, errOut io.Writer) *cobra.Command {
	opts := options.NewOptions()
	var (
		cfgFile  string
		logLevel string
		logPath  string
		cfg      *config.Config
	)

	cmds := &cobra.Command{
		Use:   "arbor",
		Short: "arbor runs recursive language-model completions",
		Long: heredoc.Doc(`
			arbor is a recursive execution runtime for language-model agents.

			A completion may delegate sub-completions to fresh model calls and
			execute code in a sandboxed session, all under one shared budget of
			tokens, wall-clock time, recursion depth and per-turn tool calls.`) + Banner(),
		SilenceUsage:  true,
		SilenceErrors: true,
		Run:           runHelp,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load(opts, cfgFile, cmd.Flags())
			if err != nil {
				return err
			}
			if logPath != "" {
				if err := logger.InitLog(logPath); err != nil {
					return err
				}
			}
			logger.SetLevel(logLevel)
			return nil
		},
	}

	flags := cmds.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "Config file path, defaults to ./arbor.yaml then ~/.arbor/arbor.yaml.")
	flags.StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn or error.")
	flags.StringVar(&logPath, "log-path", "", "Also write logs to this file.")
	opts.AddFlags(flags)

	getCfg := func() *config.Config { return cfg }

	cmds.AddCommand(
		newRunCmd(opts, getCfg, out),
		newAgentCmd(opts, getCfg, out),
		newLogsCmd(opts, out),
		newInitCmd(out),
		newDoctorCmd(opts, out),
		newVersionCmd(out),
	)
	return cmds
}

func runHelp(cmd *cobra.Command, args []string) {
	_ = cmd.Help()
}

// validateOptions fails fast on configuration errors before any backend
// or sandbox is built.
func validateOptions(opts *options.Options) error {
	if errs := opts.Validate(); len(errs) > 0 {
		for _, err := range errs {
			logger.ErrorX("config", "%v", err)
		}
		return fmt.Errorf("invalid configuration: %v", errs[0])
	}
	return nil
}
