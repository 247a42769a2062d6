package cli

import (
	"context"
	"fmt"

	"bucks2bar/internal/backend"
	"bucks2bar/internal/cache"
	"bucks2bar/internal/chart"
	"bucks2bar/internal/config"
	"bucks2bar/internal/eventloop"
	"bucks2bar/internal/form"
	applog "bucks2bar/internal/log"
	"bucks2bar/internal/services"
	"bucks2bar/internal/storage"
)

// App is the wired widget: store, form, chart sync and the event loop
// that owns them. Run the loop before using Session.
type App struct {
	Config  *config.Config
	Logger  *applog.Logger
	Store   *storage.Persistence
	Fields  *form.Store
	Sync    *services.ChartSync
	Loop    *eventloop.Loop
	Session *services.Session
	Caches  *cache.Manager

	cleanup backend.CleanupFunc
}

// NewApp opens the configured backend and wires the widget over it.
func NewApp(ctx context.Context, cfg *config.Config, logger *applog.Logger) (*App, error) {
	caches := cache.NewManager(logger.WithComponent(applog.ComponentCache).Slog())

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger.WithComponent(applog.ComponentBackend).Slog(), caches).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, fmt.Errorf("create %s backend: %w", bcfg.Type, err)
	}

	storeLogger := logger.WithComponent(applog.ComponentStorage).Slog()
	store := storage.NewPersistence(res.Store, cfg.StorageKey, storage.WithLogger(storeLogger))

	fields := form.NewStore()
	syncLogger := logger.WithComponent(applog.ComponentSync).Slog()
	sync := services.NewChartSync(fields, store,
		services.WithChartOptions(chart.Options{Width: cfg.ChartWidth, Height: cfg.ChartHeight}),
		services.WithSyncLogger(syncLogger))

	loop := eventloop.New(eventloop.DefaultQueueSize, logger.WithComponent(applog.ComponentLoop).Slog())
	session := services.NewSession(ctx, loop, fields, sync, services.SessionOptions{
		Wait:   cfg.DebounceWait,
		Logger: syncLogger,
	})

	return &App{
		Config:  cfg,
		Logger:  logger,
		Store:   store,
		Fields:  fields,
		Sync:    sync,
		Loop:    loop,
		Session: session,
		Caches:  caches,
		cleanup: res.Cleanup,
	}, nil
}

// Close releases the backend.
func (a *App) Close() error {
	if a.cleanup == nil {
		return nil
	}
	return a.cleanup()
}
