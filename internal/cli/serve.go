package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	apphttp "bucks2bar/internal/http"
	applog "bucks2bar/internal/log"
	"bucks2bar/internal/middleware/ratelimit"
	"bucks2bar/internal/services"
)

const shutdownTimeout = 30 * time.Second

func NewServeCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the budget page",
		Long: `Start the HTTP server. The form is filled according to SEED_MODE, and
every edit is synced to the chart and the store after the debounce wait.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}
}

func runServe(cmd *cobra.Command, opts *RootOptions) error {
	cfg, logger, err := opts.bootstrap(cmd.OutOrStdout())
	if err != nil {
		return err
	}

	ctx, cancel := GracefulShutdown(cmd.Context(), logger)
	defer cancel()

	app, err := NewApp(ctx, cfg, logger)
	if err != nil {
		return WrapExitError(ExitStorageError, "open store", err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Error("Failed to close store", applog.FieldError, err)
		}
	}()

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Session:      app.Session,
		Snapshots:    app.Store,
		Logger:       logger,
		RateLimit:    ratelimit.Config{RequestsPerMinute: cfg.RateLimitRPM},
		DebounceWait: cfg.DebounceWait,
	})
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	// The loop outlives the server so the last pending sync can be flushed.
	loopCtx, stopLoop := context.WithCancel(context.WithoutCancel(ctx))
	defer stopLoop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return app.Loop.Run(loopCtx)
	})
	g.Go(func() error {
		mode := services.SeedMode(cfg.SeedMode)
		if err := app.Session.Start(gctx, mode, nil); err != nil {
			return fmt.Errorf("start session: %w", err)
		}
		logger.Info("Starting bucks2bar server",
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			"seed_mode", string(mode))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen on port %s: %w", cfg.Port, err)
		}
		return nil
	})
	g.Go(func() error {
		return app.Caches.Run(gctx, sweepInterval(cfg.CacheTTL))
	})
	g.Go(func() error {
		return srv.Limiter().Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
		if err := app.Session.Flush(shutdownCtx); err != nil {
			logger.Warn("Pending sync not flushed", applog.FieldError, err)
		}
		stopLoop()
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("Server stopped gracefully")
	return nil
}

// sweepInterval picks how often expired cache entries are dropped.
func sweepInterval(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return 10 * time.Minute
	}
	return ttl
}
