// Package scheduler drives the periodic king-of-the-hill score grants. It
// learns about world instances from the event bus.
package scheduler

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/zeusync/dominari/internal/core/errs"
	"github.com/zeusync/dominari/internal/core/events"
	"github.com/zeusync/dominari/internal/core/events/bus"
	"github.com/zeusync/dominari/internal/core/models"
	"github.com/zeusync/dominari/internal/core/observability/log"
	"github.com/zeusync/dominari/internal/game/engine"
)

// Granter is the part of the engine the scheduler calls.
type Granter interface {
	GrantKOTHScore(ctx context.Context, instance models.InstanceID) (engine.Grant, error)
}

type Config struct {
	Interval time.Duration `yaml:"interval" env:"INTERVAL"`
}

func DefaultConfig() Config {
	return Config{Interval: time.Second}
}

type Scheduler struct {
	granter Granter
	bus     bus.EventBus
	config  Config
	logger  log.Log

	mu        sync.Mutex
	instances map[models.InstanceID]struct{}
}

func New(granter Granter, b bus.EventBus, config Config, logger log.Log) *Scheduler {
	if config.Interval <= 0 {
		config.Interval = DefaultConfig().Interval
	}
	return &Scheduler{
		granter:   granter,
		bus:       b,
		config:    config,
		logger:    logger.With(log.String("component", "scheduler")),
		instances: make(map[models.InstanceID]struct{}),
	}
}

// Track adds an instance to the grant rotation.
func (s *Scheduler) Track(instance models.InstanceID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.instances[instance] = struct{}{}
}

func (s *Scheduler) Untrack(instance models.InstanceID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.instances, instance)
}

// Instances returns the tracked instances in ascending order.
func (s *Scheduler) Instances() []models.InstanceID {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.InstanceID, 0, len(s.instances))
	for id := range s.instances {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// Tick runs one grant round. Instances that are not king-of-the-hill games,
// or no longer exist, are dropped from the rotation.
func (s *Scheduler) Tick(ctx context.Context) {
	for _, id := range s.Instances() {
		if ctx.Err() != nil {
			return
		}
		grant, err := s.granter.GrantKOTHScore(ctx, id)
		switch {
		case errors.Is(err, errs.ErrInvalidGameMode), errors.Is(err, errs.ErrInstanceNotFound):
			s.logger.Debug("Instance left rotation", log.Uint64("instance", uint64(id)), log.Error(err))
			s.Untrack(id)
		case err != nil:
			s.logger.Warn("Score grant failed", log.Uint64("instance", uint64(id)), log.Error(err))
		case grant.Player != nil:
			s.logger.Debug("Score granted",
				log.Uint64("instance", uint64(id)),
				log.Uint64("player", uint64(*grant.Player)),
				log.Uint64("points", grant.Points),
			)
		}
	}
}

// Run subscribes to new instances and ticks until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	sub, err := s.bus.Subscribe(events.TypeNewWorldInstance, func(event bus.Event) error {
		if created, ok := event.(events.NewWorldInstance); ok {
			s.Track(created.Instance)
		}
		return nil
	})
	if err != nil {
		return err
	}
	defer func() { _ = sub.Cancel() }()

	s.logger.Info("Scheduler started", log.Duration("interval", s.config.Interval))
	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Tick(ctx)
		case <-ctx.Done():
			s.logger.Info("Scheduler stopped")
			return nil
		}
	}
}
