package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"zoi/sentinel/pkg/cache"
	"zoi/sentinel/pkg/compliance"
	"zoi/sentinel/pkg/config"
	"zoi/sentinel/pkg/coordinator"
	"zoi/sentinel/pkg/providerfactory"
	"zoi/sentinel/pkg/reference"
	"zoi/sentinel/pkg/research"
	"zoi/sentinel/pkg/research/retention"
	"zoi/sentinel/pkg/research/storage"
	"zoi/sentinel/pkg/telemetry/health"
	"zoi/sentinel/pkg/telemetry/metrics"
	"zoi/sentinel/pkg/truth"
	"zoi/sentinel/pkg/watch"
)

// app is the assembled runtime shared by the commands.
type app struct {
	cfg *config.Config

	backends   *providerfactory.Manager
	cacheStore cache.Store
	cache      *cache.Cache
	tasks      storage.Store
	catalog    *reference.Catalog
	validator  *truth.Validator
	orch       *research.Orchestrator
	coord      *coordinator.Coordinator
	metrics    *metrics.Collector
	health     *health.Checker

	// stops run in reverse order on close
	stops []func()
}

// newApp builds the runtime from cfg. It starts no background jobs.
func newApp(cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg}
	if err := a.build(); err != nil {
		_ = a.close(context.Background())
		return nil, err
	}
	return a, nil
}

func (a *app) build() (err error) {
	cfg := a.cfg

	a.metrics = metrics.NewCollector(metrics.Options{
		Disabled:          !cfg.Telemetry.Metrics.Enabled,
		RuntimeCollectors: cfg.Telemetry.Metrics.Enabled,
	}, nil)

	if a.backends, err = providerfactory.NewManager(cfg); err != nil {
		return err
	}
	for _, name := range providerfactory.Names {
		b, _ := a.backends.Get(name)
		a.metrics.WatchBackend(name, b)
	}

	if a.cacheStore, err = openCacheStore(cfg.Cache); err != nil {
		return err
	}
	a.cache = cache.New(a.cacheStore, cache.WithTTL(cfg.Cache.TTL), cache.WithMetrics(a.metrics))

	if a.tasks, err = openTaskStore(cfg.Tasks); err != nil {
		return err
	}

	base := reference.DefaultBase()
	if cfg.Reference.Path != "" {
		if base, err = reference.LoadBase(cfg.Reference.Path); err != nil {
			return fmt.Errorf("failed to load reference base: %w", err)
		}
	}
	a.catalog = reference.NewCatalog(base)

	table := truth.DefaultTable()
	if cfg.Authority.Path != "" {
		if table, err = truth.LoadTable(cfg.Authority.Path); err != nil {
			return fmt.Errorf("failed to load authority table: %w", err)
		}
	}
	a.validator = truth.NewValidator(table)

	route := tradeRoute(cfg.Research.TradeRoute)
	a.orch = research.New(research.Config{
		PollInterval:  cfg.Research.PollInterval,
		Deadline:      cfg.Research.Deadline,
		TradeRoute:    route,
		PreviewLength: cfg.Research.PreviewLength,
	}, research.Deps{
		Backend:   a.backends.Active(),
		Validator: a.validator,
		Store:     a.tasks,
		Metrics:   a.metrics,
	})

	a.coord = coordinator.New(coordinator.Config{
		MaxConcurrent: cfg.Research.MaxConcurrent,
		TradeRoute:    route,
	}, coordinator.Deps{
		Cache:        a.cache,
		Catalog:      a.catalog,
		Validator:    a.validator,
		Orchestrator: a.orch,
		Store:        a.tasks,
		Metrics:      a.metrics,
	})

	a.health = health.New(0)
	a.health.Register(health.ConfiguredCheck(a.backends.Active()))
	a.health.Register(health.BackendCheck(a.backends.Active().Name(), a.backends.Active()))
	a.health.Register(health.StoreCheck("cache_store", func(ctx context.Context) error {
		_, err := a.cacheStore.Len(ctx)
		return err
	}))
	a.health.Register(health.StoreCheck("task_store", func(ctx context.Context) error {
		_, err := a.tasks.Count(ctx)
		return err
	}))

	return nil
}

func openCacheStore(cfg config.CacheConfig) (cache.Store, error) {
	if cfg.Backend != config.StoreSQLite {
		return cache.NewMemoryStore(), nil
	}
	s, err := cache.NewSQLiteStore(cache.SQLiteConfig{Path: cfg.SQLite.Path, BusyTimeout: cfg.SQLite.BusyTimeout})
	if err != nil {
		return nil, fmt.Errorf("failed to open cache store: %w", err)
	}
	return s, nil
}

func openTaskStore(cfg config.TasksConfig) (storage.Store, error) {
	if cfg.Backend != config.StoreSQLite {
		return storage.NewMemoryStore(), nil
	}
	s, err := storage.NewSQLiteStore(&storage.SQLiteConfig{
		Path:        cfg.SQLite.Path,
		WALMode:     true,
		BusyTimeout: cfg.SQLite.BusyTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open task store: %w", err)
	}
	return s, nil
}

func tradeRoute(c config.TradeRouteConfig) compliance.TradeRoute {
	return compliance.TradeRoute{
		Origin:          c.Origin,
		Destination:     c.Destination,
		OriginName:      c.OriginName,
		DestinationName: c.DestinationName,
	}
}

// startBackground starts the cache sweeper, the task pruner, and the file
// watchers enabled in the configuration. They stop on close.
func (a *app) startBackground(ctx context.Context) error {
	if s := a.cfg.Cache.SweepSchedule; s != config.ScheduleDisabled {
		sweeper := cache.NewSweeper(a.cache, a.cfg.Cache.StaleRetention, s)
		if err := sweeper.Start(ctx); err != nil {
			return fmt.Errorf("failed to start cache sweeper: %w", err)
		}
		a.stops = append(a.stops, sweeper.Stop)
	}

	if s := a.cfg.Tasks.Retention.Schedule; s != config.ScheduleDisabled {
		pruner := retention.NewPruner(a.tasks, retention.Config{
			RetentionDays: max(a.cfg.Tasks.Retention.Days, 0),
			MaxRecords:    a.cfg.Tasks.Retention.MaxRecords,
			Schedule:      s,
		})
		if err := pruner.Start(ctx); err != nil {
			return fmt.Errorf("failed to start task pruner: %w", err)
		}
		a.stops = append(a.stops, pruner.Stop)
	}

	if err := a.watch(ctx, "reference", a.cfg.Reference, a.catalog.Reload); err != nil {
		return err
	}
	return a.watch(ctx, "authority", a.cfg.Authority, a.validator.Reload)
}

func (a *app) watch(ctx context.Context, name string, src config.SourceConfig, reload func(string) error) error {
	if !src.Watch || src.Path == "" {
		return nil
	}
	fw, err := watch.New(src.Path, 0, slog.Default().With("component", "watch", "source", name))
	if err != nil {
		return fmt.Errorf("failed to watch %s file: %w", name, err)
	}
	go func() {
		if err := fw.Watch(ctx, func() error { return reload(src.Path) }); err != nil {
			slog.Error("file watcher stopped", "source", name, "error", err)
		}
	}()
	a.stops = append(a.stops, func() { _ = fw.Stop() })
	return nil
}

// close stops background jobs, waits for research bounded by ctx, and
// closes the stores.
func (a *app) close(ctx context.Context) error {
	for i := len(a.stops) - 1; i >= 0; i-- {
		a.stops[i]()
	}
	a.stops = nil

	var errs []error
	if a.coord != nil {
		if err := a.coord.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if a.cache != nil {
		errs = append(errs, a.cache.Close())
	} else if a.cacheStore != nil {
		errs = append(errs, a.cacheStore.Close())
	}
	if a.tasks != nil {
		errs = append(errs, a.tasks.Close())
	}
	if a.backends != nil {
		errs = append(errs, a.backends.Close())
	}
	return errors.Join(errs...)
}

// closeTimeout bounds close for short-lived commands.
func (a *app) closeTimeout(d time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	return a.close(ctx)
}
