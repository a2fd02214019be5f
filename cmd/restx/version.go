package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/restx"
	"github.com/aretw0/restx/internal/presentation/tui"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of restx",
	Run: func(cmd *cobra.Command, args []string) {
		if banner, _ := cmd.Flags().GetBool("banner"); banner {
			tui.PrintBanner(cmd.OutOrStdout(), strings.TrimSpace(restx.Version))
			return
		}
		fmt.Fprintf(cmd.OutOrStdout(), "restx version %s\n", strings.TrimSpace(restx.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().Bool("banner", false, "Print the banner")
}
