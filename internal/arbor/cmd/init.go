package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

const configFileName = "arbor.yaml"

var starterConfig = heredoc.Doc(`
	# arbor configuration. Flags beat ARBOR_* environment variables beat
	# this file.

	backend:
	  provider: openai
	  # model: gpt-4o-mini
	  api-key: ${OPENAI_API_KEY}

	engine:
	  max-depth: 4
	  token-budget: 8000
	  timeout-seconds: 120
	  max-sub-calls: 12

	sandbox:
	  tier: restricted
	  # tier: localdev requires trust-unrestricted: true
	  exec-timeout-seconds: 30

	agent:
	  max-iterations: 10
	  token-budget: 50000
	  cost-limit: 2.0
	  timeout-seconds: 300

	store:
	  driver: boltdb
	  path: arbor.db

	# Model price overrides, dollars per million tokens. Edits are picked
	# up by a running agent without a restart.
	# models:
	#   providers:
	#     openai:
	#       models:
	#         - id: gpt-4o-mini
	#           cost: { input: 0.15, output: 0.60 }
`)

func newInitCmd(out io.Writer) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter arbor.yaml in the current directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(configFileName); err == nil && !force {
				return fmt.Errorf("%s already exists, use --force to overwrite", configFileName)
			}
			if err := os.WriteFile(configFileName, []byte(starterConfig), 0644); err != nil {
				return err
			}
			color.New(color.FgGreen).Fprintf(out, "wrote %s\n", configFileName)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config file.")
	return cmd
}
