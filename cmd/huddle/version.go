package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/huddle"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of huddle",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "huddle version %s\n", strings.TrimSpace(huddle.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
