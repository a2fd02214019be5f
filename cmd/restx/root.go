package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/restx/internal/config"
	"github.com/aretw0/restx/internal/logging"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "restx",
	Short: "restx serves the routes registered by its component machines",
	Long: `restx builds a component registry from discovered machines, routes requests
to the first matching route and keeps a signed session in client cookies.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", "", "Path to a YAML configuration file")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("load-mode", "", "Registry load mode (onstartup, onrequest)")
}

// loadConfig reads the configuration and applies the flags that were set.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}

	if f := cmd.Flags().Lookup("log-level"); f != nil && f.Changed {
		cfg.LogLevel = f.Value.String()
	}
	if f := cmd.Flags().Lookup("load-mode"); f != nil && f.Changed {
		cfg.LoadMode = f.Value.String()
	}
	if f := cmd.Flags().Lookup("addr"); f != nil && f.Changed {
		cfg.Addr = f.Value.String()
	}
	return cfg, cfg.Validate()
}

func newLogger(cfg config.Config) *slog.Logger {
	level, _ := logging.ParseLevel(cfg.LogLevel)
	return logging.NewWithWriter(os.Stderr, level, cfg.LogJSON)
}
