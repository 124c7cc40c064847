package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/me/mcsched/internal/server"
	"github.com/me/mcsched/internal/telemetry"
)

func newServeCmd() *cobra.Command {
	var addr string
	var dbPath string

	cmd := &cobra.Command{
		Use:   "serve [scenario.yaml]",
		Short: "Run a scenario paced to the wall clock and expose it over HTTP",
		Long: `Runs a scenario's task set paced to the wall clock, one tick per
granularity interval, and serves live snapshots, tick events, and
Prometheus metrics over HTTP until interrupted. With --db past runs are
exposed under /api/v1/runs as well.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			sc, err := loadScenario(path)
			if err != nil {
				return err
			}
			eng, err := buildEngine(sc, logger)
			if err != nil {
				return err
			}

			var opts []server.Option
			if dbPath != "" {
				st, err := telemetry.NewSQLiteStore(dbPath, logger)
				if err != nil {
					return err
				}
				defer st.Close()
				if err := st.Migrate(cmd.Context()); err != nil {
					return fmt.Errorf("migrate database: %w", err)
				}
				opts = append(opts, server.WithStore(st))
			}

			srv := server.New(eng, logger, opts...)
			httpServer := &http.Server{
				Addr:    addr,
				Handler: srv.Handler(),
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			go func() {
				if err := eng.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("engine stopped", "error", err)
				}
			}()

			errCh := make(chan error, 1)
			go func() {
				logger.Info("server listening", "addr", addr, "scenario", sc.Name)
				if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- err
				}
			}()

			var serveErr error
			select {
			case <-ctx.Done():
				logger.Info("shutting down")
			case serveErr = <-errCh:
			}

			// Stop the engine before the HTTP server so the last
			// requests observe a quiesced snapshot.
			eng.Stop()

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.Error("server shutdown", "error", err)
			}
			logger.Info("server stopped")
			return serveErr
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "HTTP listen address")
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database exposing past runs")

	return cmd
}
