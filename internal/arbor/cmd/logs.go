package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"github.com/arborworks/arbor/internal/engine/store"
	"github.com/arborworks/arbor/internal/pkg/options"
)

const promptPreviewLen = 60

var logsExample = heredoc.Doc(`
	# List the most recent completion trees
	arbor logs

	# List recent agent runs instead
	arbor logs --runs

	# Dump one tree, node by node
	arbor logs 5f2b1c3a-8d4e-4f6a-9b0c-1d2e3f4a5b6c`)

func newLogsCmd(opts *options.Options, out io.Writer) *cobra.Command {
	var (
		limit    int
		listRuns bool
	)

	cmd := &cobra.Command{
		Use:     "logs [trajectory-id]",
		Short:   "Inspect stored trajectories and runs",
		Example: logsExample,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sink, runRepo, closer, err := store.Open(opts.StoreOptions)
			if err != nil {
				return err
			}
			defer closer.Close()

			ctx := cmd.Context()

			if len(args) == 1 {
				nodes, err := sink.Load(ctx, args[0])
				if err != nil {
					return err
				}
				if len(nodes) == 0 {
					return fmt.Errorf("no trajectory %q in store", args[0])
				}
				for _, n := range nodes {
					indent := strings.Repeat("  ", n.Depth)
					color.New(color.Bold).Fprintf(out, "%s%s depth=%d tokens=%d duration=%dms\n",
						indent, n.CallID, n.Depth, n.TotalTokens(), n.DurationMS)
					fmt.Fprintf(out, "%s  prompt: %s\n", indent, preview(n.Prompt))
					if n.Response != "" {
						fmt.Fprintf(out, "%s  response: %s\n", indent, preview(n.Response))
					}
					for _, tc := range n.ToolCalls {
						fmt.Fprintf(out, "%s  tool: %s\n", indent, tc.Name)
					}
					if n.Error != "" {
						color.New(color.FgRed).Fprintf(out, "%s  error: %s\n", indent, n.Error)
					}
				}
				return nil
			}

			if listRuns {
				runs, err := runRepo.ListRecent(ctx, limit)
				if err != nil {
					return err
				}
				table := uitable.New()
				table.AddRow("RUN", "STATUS", "ITER", "COST", "CREATED", "TASK")
				for _, r := range runs {
					table.AddRow(r.ID, string(r.Status), r.Iterations,
						fmt.Sprintf("$%.4f", r.Cost),
						r.CreatedAt.Format("2006-01-02 15:04:05"),
						preview(r.Task))
				}
				fmt.Fprintln(out, table)
				return nil
			}

			summaries, err := sink.ListRecent(ctx, limit)
			if err != nil {
				return err
			}
			table := uitable.New()
			table.AddRow("TRAJECTORY", "CALLS", "TOKENS", "STARTED", "PROMPT")
			for _, s := range summaries {
				table.AddRow(s.TrajectoryID, s.TotalCalls, s.TotalTokens,
					s.StartedAt.Format("2006-01-02 15:04:05"),
					preview(s.RootPrompt))
			}
			fmt.Fprintln(out, table)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum entries to list.")
	cmd.Flags().BoolVar(&listRuns, "runs", false, "List agent runs instead of trajectories.")
	return cmd
}

func preview(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) > promptPreviewLen {
		return s[:promptPreviewLen] + "..."
	}
	return s
}
