package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/aretw0/restx"
	"github.com/aretw0/restx/internal/presentation/tui"
	httpAdapter "github.com/aretw0/restx/pkg/adapters/http"
	"github.com/aretw0/restx/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  `Builds the component registry and serves its routes over HTTP, with /healthz and /metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		logger := newLogger(cfg)
		tui.PrintBanner(cmd.ErrOrStderr(), strings.TrimSpace(restx.Version))
		cors, _ := cmd.Flags().GetBool("cors")

		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		m, err := metrics.New(reg)
		if err != nil {
			return err
		}

		mr, closeFn, err := newMainRouter(cfg, logger, m)
		if err != nil {
			return err
		}
		defer closeFn()

		if err := mr.Init(cmd.Context()); err != nil {
			return fmt.Errorf("failed to build registry: %w", err)
		}

		opts := []httpAdapter.Option{httpAdapter.WithMetricsHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))}
		if cors {
			opts = append(opts, httpAdapter.WithCORS())
		}
		srv := &http.Server{
			Addr:    cfg.Addr,
			Handler: httpAdapter.NewHandler(mr, opts...),
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)

		go func() {
			logger.Info("starting restx server", "addr", srv.Addr, "load_mode", cfg.LoadMode)
			serverErrors <- srv.ListenAndServe()
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-serverErrors:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("server error: %w", err)

		case sig := <-shutdown:
			logger.Info("start shutdown", "signal", sig.String())

			// Give outstanding requests a deadline for completion.
			ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				logger.Error("graceful shutdown did not complete", "timeout", cfg.ShutdownTimeout, "error", err)
				if err := srv.Close(); err != nil {
					return fmt.Errorf("error killing server: %w", err)
				}
			}
			logger.Info("restx server stopped gracefully")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Address to listen on (default :8080)")
	serveCmd.Flags().Bool("cors", false, "Allow cross-origin requests")
}
