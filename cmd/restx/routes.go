package main

import (
	"fmt"
	"os"

	"github.com/aretw0/restx/internal/presentation/tui"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var routesCmd = &cobra.Command{
	Use:   "routes",
	Short: "Print the route table",
	Long:  `Prints the routes in dispatch order. On a terminal the table is rendered as styled markdown.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		mr, closeFn, err := newMainRouter(cfg, newLogger(cfg), nil)
		if err != nil {
			return err
		}
		defer closeFn()

		rt, err := mr.Routes(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if rt.Len() == 0 {
			fmt.Fprintln(out, "no routes registered")
			return nil
		}

		plain, _ := cmd.Flags().GetBool("plain")
		if f, ok := out.(*os.File); ok && !plain && term.IsTerminal(int(f.Fd())) {
			rendered, err := tui.RenderRoutes(rt)
			if err != nil {
				return err
			}
			fmt.Fprint(out, rendered)
			return nil
		}
		fmt.Fprintln(out, rt.String())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(routesCmd)
	routesCmd.Flags().Bool("plain", false, "Print one route per line even on a terminal")
}
