package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/faizanamer123/openassign-call/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "assigncall %s\n", version.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
