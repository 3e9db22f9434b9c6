package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aretw0/huddle/internal/cli"
	"github.com/aretw0/huddle/internal/presentation/tui"
	httpAdapter "github.com/aretw0/huddle/pkg/adapters/http"
	"github.com/aretw0/huddle/pkg/domain"
	"github.com/aretw0/huddle/pkg/observability"
	"github.com/aretw0/huddle/pkg/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP relay",
	Long: `Serves the activity registry and relays room events over HTTP.
Rooms are joined on first use; clients follow them through an SSE stream.
With redis configured, several servers share rooms and claim room authority
through a lock.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.HTTPAddr = addr
		}
		withMetrics, _ := cmd.Flags().GetBool("metrics")
		lockTTL, _ := cmd.Flags().GetDuration("lock-ttl")

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		hooks := observability.LogHooks(logger)
		reg := prometheus.NewRegistry()
		if withMetrics {
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
			metrics, err := observability.NewMetrics(reg)
			if err != nil {
				return err
			}
			hooks = domain.CombineHooks(hooks, metrics.Hooks())
		}

		backend, err := cli.OpenBackend(ctx, cfg, logger, hooks)
		if err != nil {
			return err
		}
		defer backend.Close()

		if cfg.CatalogDir != "" {
			res, err := backend.ImportCatalog(ctx, cfg.CatalogDir)
			if err != nil {
				logger.Warn("catalog import incomplete", "dir", cfg.CatalogDir, "err", err)
			}
			logger.Info("catalog imported", "dir", cfg.CatalogDir, "imported", len(res.Imported), "skipped", len(res.Skipped))
			if err := backend.WatchCatalog(ctx, cfg.CatalogDir, logger); err != nil {
				logger.Warn("catalog watch disabled", "err", err)
			}
		}

		opts := []httpAdapter.Option{httpAdapter.WithLogger(logger)}
		if cfg.Redis.Enabled() {
			// Shared transport: authority goes to whichever server holds the room lock.
			opts = append(opts,
				httpAdapter.WithAuthority(false),
				httpAdapter.WithSessionOptions(session.WithAuthorityLock(backend.Locker, lockTTL)),
			)
		}
		if withMetrics {
			opts = append(opts, httpAdapter.WithMetricsHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
		}
		server := httpAdapter.NewServer(backend.Runtime, backend.Transport, opts...)
		defer server.Close()

		srv := &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           server.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		if isTerminal(os.Stdout) {
			tui.PrintBanner(os.Stdout)
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)
		go func() {
			logger.Info("huddle server listening", "address", srv.Addr, "overlay", cfg.Overlay.Driver, "redis", cfg.Redis.Enabled())
			serverErrors <- srv.ListenAndServe()
		}()

		select {
		case err := <-serverErrors:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("server error: %w", err)
		case <-ctx.Done():
			logger.Info("shutdown signal received")

			// Give outstanding requests a deadline for completion.
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("graceful shutdown did not complete", "err", err)
				return srv.Close()
			}
			logger.Info("huddle server stopped gracefully")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Address to listen on (overrides http_addr)")
	serveCmd.Flags().Bool("metrics", true, "Expose Prometheus metrics at /metrics")
	serveCmd.Flags().Duration("lock-ttl", 30*time.Second, "Room authority lock TTL when redis is configured")
}
