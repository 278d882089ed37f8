package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/arborworks/arbor/pkg/version"
)

func newVersionCmd(out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			info := version.Get()
			fmt.Fprintf(out, "arbor %s\n", info.GitVersion)
			fmt.Fprintf(out, "  commit:   %s\n", info.GitCommit)
			fmt.Fprintf(out, "  built:    %s\n", info.BuildDate)
			fmt.Fprintf(out, "  go:       %s\n", info.GoVersion)
			fmt.Fprintf(out, "  platform: %s\n", info.Platform)
		},
	}
}
