package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"github.com/mitchellh/go-wordwrap"
	"github.com/spf13/cobra"

	"github.com/arborworks/arbor/internal/engine/domain/service/runtime"
	"github.com/arborworks/arbor/internal/pkg/config"
	"github.com/arborworks/arbor/internal/pkg/options"
	"github.com/arborworks/arbor/pkg/utils/json"
)

var agentExample = heredoc.Doc(`
	# Run a task under the default caps (10 iterations, $2.00)
	arbor agent "Find the three largest prime factors of 9699690"

	# Tighter spend limit, more iterations
	arbor agent --cost-limit 0.50 --max-iterations 20 "Draft a release plan"`)

func newAgentCmd(opts *options.Options, getCfg func() *config.Config, out io.Writer) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:     "agent [task]",
		Short:   "Run an iterative agent task",
		Example: agentExample,
		Args:    cobra.MinimumNArgs(1),
		Long: heredoc.Doc(`
			Run the outer agent loop: each iteration performs one recursive
			completion, observes the outcome, and either terminates with an
			answer or continues with the accumulated progress. Iteration,
			token, cost and time caps bound the whole run.`),
		RunE: func(cmd *cobra.Command, args []string) error {
			task := strings.Join(args, " ")

			stack, err := buildEngine(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer stack.Close()

			// Price-table edits in the config file take effect mid-run.
			if cfg := getCfg(); cfg != nil && cfg.File != "" {
				if w, werr := config.Watch(cfg.File, stack.prices.Update); werr == nil {
					defer w.Close()
				}
			}

			runner := runtime.NewAgentRunner(stack.orch, stack.prices, stack.runRepo)
			rcfg := &runtime.RunnerConfig{
				MaxIterations: opts.AgentOptions.MaxIterations,
				TokenBudget:   int64(opts.AgentOptions.TokenBudget),
				CostLimit:     opts.AgentOptions.CostLimit,
				Timeout:       time.Duration(opts.AgentOptions.TimeoutSeconds) * time.Second,
				Completion:    completionOptions(opts, ""),
			}

			result, err := runner.Run(cmd.Context(), task, rcfg)
			if err != nil {
				return err
			}

			if asJSON {
				data, merr := json.MarshalIndent(result, "", "  ")
				if merr != nil {
					return merr
				}
				fmt.Fprintln(out, string(data))
				return nil
			}

			fmt.Fprintln(out, wordwrap.WrapString(result.Answer, answerWrapWidth))
			fmt.Fprintln(out)

			table := uitable.New()
			table.AddRow("ITER", "TOKENS", "TOOL CALLS", "COST", "DURATION")
			for _, it := range result.IterationSummaries {
				table.AddRow(it.Iteration, it.Tokens, it.ToolCalls,
					fmt.Sprintf("$%.4f", it.Cost),
					fmt.Sprintf("%dms", it.DurationMS))
			}
			fmt.Fprintln(out, table)

			stats := color.New(color.Faint)
			stats.Fprintf(out, "\nrun %s  iterations=%d tokens=%d cost=$%.4f duration=%dms source=%s\n",
				result.RunID, result.Iterations, result.TotalTokens,
				result.TotalCost, result.DurationMS, result.AnswerSource)
			if result.ForcedTermination {
				color.New(color.FgYellow).Fprintf(out, "run was forced to terminate: %s\n", result.Error)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the structured result as JSON.")
	return cmd
}
