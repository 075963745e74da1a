package cmd

import (
	"fmt"

	"github.com/OpenCHAMI/pductl/internal/version"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Run: func(cmd *cobra.Command, args []string) {
		if cmd.Flag("rev").Value.String() == "true" {
			fmt.Fprintln(cmd.OutOrStdout(), version.GitCommit)
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), version.VersionInfo())
		}
	},
}

func init() {
	versionCmd.Flags().Bool("rev", false, "show the version commit")
	rootCmd.AddCommand(versionCmd)
}
