package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/fatih/color"
	"github.com/mitchellh/go-wordwrap"
	"github.com/spf13/cobra"

	"github.com/arborworks/arbor/internal/pkg/config"
	"github.com/arborworks/arbor/internal/pkg/options"
	"github.com/arborworks/arbor/pkg/utils/json"
)

const answerWrapWidth = 100

var runExample = heredoc.Doc(`
	# One recursive completion with the default provider
	arbor run "Summarize the design tradeoffs of consistent hashing"

	# Allow deeper delegation and a bigger budget
	arbor run --max-depth 6 --token-budget 20000 "Plan a data migration"

	# Emit the full result, trajectory included, as JSON
	arbor run --include-trajectory --json "Compute 36^4 using code"`)

func newRunCmd(opts *options.Options, getCfg func() *config.Config, out io.Writer) *cobra.Command {
	var (
		system string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:     "run [prompt]",
		Short:   "Run one recursive completion",
		Example: runExample,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt := strings.Join(args, " ")

			stack, err := buildEngine(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer stack.Close()

			result, err := stack.orch.Completion(cmd.Context(), prompt, ptr(completionOptions(opts, system)))
			if result == nil {
				return err
			}

			if asJSON {
				data, merr := json.MarshalIndent(result, "", "  ")
				if merr != nil {
					return merr
				}
				fmt.Fprintln(out, string(data))
				return err
			}

			fmt.Fprintln(out, wordwrap.WrapString(result.Response, answerWrapWidth))
			fmt.Fprintln(out)

			stats := color.New(color.Faint)
			stats.Fprintf(out, "trajectory %s  calls=%d tool_calls=%d tokens=%d duration=%dms source=%s\n",
				result.TrajectoryID, result.TotalCalls, result.TotalToolCalls,
				result.TotalTokens, result.DurationMS, result.AnswerSource)
			if result.BudgetTerminated {
				color.New(color.FgYellow).Fprintln(out, "completion was ended by a budget limit")
			}
			return err
		},
	}

	cmd.Flags().StringVar(&system, "system", "", "System prompt for the root call.")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the structured result as JSON.")
	return cmd
}

func ptr[T any](v T) *T { return &v }
