package injector

import (
	"context"
	"fmt"
	"time"

	"github.com/google/wire"

	"github.com/zeusync/dominari/internal/app"
	"github.com/zeusync/dominari/internal/config"
	"github.com/zeusync/dominari/internal/core/bundle"
	"github.com/zeusync/dominari/internal/core/clock"
	"github.com/zeusync/dominari/internal/core/events"
	"github.com/zeusync/dominari/internal/core/events/bus"
	"github.com/zeusync/dominari/internal/core/observability/log"
	"github.com/zeusync/dominari/internal/core/schema/registry"
	"github.com/zeusync/dominari/internal/core/storage"
	"github.com/zeusync/dominari/internal/core/storage/sqlite"
	"github.com/zeusync/dominari/internal/core/store"
	"github.com/zeusync/dominari/internal/game/blueprint"
	"github.com/zeusync/dominari/internal/game/components"
	"github.com/zeusync/dominari/internal/game/engine"
	"github.com/zeusync/dominari/internal/scheduler"
	"github.com/zeusync/dominari/internal/server"
)

var ProviderSet = wire.NewSet(
	ProvideLogger,
	wire.Bind(new(log.Log), new(*log.Logger)),
	ProvideSubstrate,
	bus.New,
	events.NewBusPublisher,
	wire.Bind(new(events.Publisher), new(*events.BusPublisher)),
	registry.New,
	wire.Bind(new(registry.SchemaRegistry), new(*registry.Registry)),
	bundle.New,
	ProvideKeys,
	store.New,
	blueprint.NewCatalog,
	ProvideClock,
	ProvideEngine,
	ProvideScheduler,
	ProvideServer,
	app.New,
)

func ProvideLogger(cfg config.Config) (*log.Logger, func(), error) {
	level, err := log.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, nil, err
	}
	logger, err := log.New(level)
	if err != nil {
		return nil, nil, fmt.Errorf("create logger: %w", err)
	}
	return logger, func() { _ = logger.Sync() }, nil
}

func ProvideSubstrate(ctx context.Context, cfg config.Config, logger log.Log) (storage.Substrate, func(), error) {
	var (
		sub storage.Substrate
		err error
	)
	switch cfg.Storage.Driver {
	case config.DriverSQLite:
		sub, err = sqlite.Open(ctx, cfg.Storage.Path)
	case config.DriverMemory:
		sub = storage.NewMemory()
	default:
		err = fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
	if err != nil {
		return nil, nil, err
	}
	logger.Info("Storage opened", log.String("driver", cfg.Storage.Driver), log.String("path", cfg.Storage.Path))
	cleanup := func() {
		if err := sub.Close(); err != nil {
			logger.Warn("Failed to close storage", log.Error(err))
		}
	}
	return sub, cleanup, nil
}

// ProvideKeys makes sure the schemas and the engine bundle exist.
func ProvideKeys(ctx context.Context, cfg config.Config, schemas registry.SchemaRegistry, bundles *bundle.Registry) (*components.Keys, error) {
	return engine.Bootstrap(ctx, schemas, bundles, cfg.Game.Signer())
}

func ProvideClock(cfg config.Config) clock.Clock {
	genesis := cfg.Clock.Genesis
	if genesis.IsZero() {
		genesis = time.Now()
	}
	return clock.NewWall(genesis, cfg.Clock.TickInterval)
}

func ProvideEngine(
	cfg config.Config,
	sub storage.Substrate,
	schemas registry.SchemaRegistry,
	st *store.Store,
	catalog *blueprint.Catalog,
	keys *components.Keys,
	clk clock.Clock,
	publisher events.Publisher,
	logger log.Log,
) *engine.Engine {
	return engine.New(engine.Deps{
		Substrate: sub,
		Schemas:   schemas,
		Store:     st,
		Catalog:   catalog,
		Keys:      keys,
		Clock:     clk,
		Publisher: publisher,
		Logger:    logger,
		Signer:    cfg.Game.Signer(),
		Admin:     cfg.Game.AdminAddress(),
	})
}

func ProvideScheduler(cfg config.Config, e *engine.Engine, b bus.EventBus, logger log.Log) *scheduler.Scheduler {
	return scheduler.New(e, b, cfg.Scheduler, logger)
}

func ProvideServer(cfg config.Config, b bus.EventBus, e *engine.Engine, logger log.Log) *server.Server {
	return server.NewServer(cfg.Server, b, e, logger)
}
