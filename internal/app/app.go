// Package app runs the assembled process: blueprint loading, the event feed
// server and the score scheduler.
package app

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/zeusync/dominari/internal/config"
	"github.com/zeusync/dominari/internal/core/models"
	"github.com/zeusync/dominari/internal/core/observability/log"
	"github.com/zeusync/dominari/internal/game/blueprint"
	"github.com/zeusync/dominari/internal/game/engine"
	"github.com/zeusync/dominari/internal/scheduler"
	"github.com/zeusync/dominari/internal/server"
)

type App struct {
	config    config.Config
	engine    *engine.Engine
	server    *server.Server
	scheduler *scheduler.Scheduler
	logger    log.Log
}

func New(cfg config.Config, e *engine.Engine, srv *server.Server, sch *scheduler.Scheduler, logger log.Log) *App {
	return &App{
		config:    cfg,
		engine:    e,
		server:    srv,
		scheduler: sch,
		logger:    logger.With(log.String("component", "app")),
	}
}

func (a *App) Engine() *engine.Engine { return a.engine }

// LoadBlueprints registers every definition under the configured directory.
// Blueprints already registered are left alone.
func (a *App) LoadBlueprints(ctx context.Context) error {
	dir := a.config.Game.Blueprints
	if dir == "" {
		return nil
	}
	defs, err := blueprint.LoadDir(os.DirFS(dir))
	if err != nil {
		return fmt.Errorf("load blueprints: %w", err)
	}
	added, err := a.engine.RegisterDefinitions(ctx, a.config.Game.AdminAddress(), defs)
	if err != nil {
		return fmt.Errorf("register blueprints: %w", err)
	}
	a.logger.Info("Blueprints loaded",
		log.String("dir", dir),
		log.Int("found", len(defs)),
		log.Int("registered", added))
	return nil
}

// Run blocks until ctx is done or a component fails.
func (a *App) Run(ctx context.Context) error {
	if err := a.LoadBlueprints(ctx); err != nil {
		return err
	}
	for _, id := range a.config.Game.Instances {
		a.scheduler.Track(models.InstanceID(id))
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.server.Run(ctx) })
	g.Go(func() error { return a.scheduler.Run(ctx) })

	a.logger.Info("Application started")
	err := g.Wait()
	a.logger.Info("Application stopped")
	return err
}
