// Package engine is the tile-strategy rule engine. Every operation runs in a
// single substrate transaction, writes components only through the store as
// the engine's action bundle, and publishes its event after commit.
package engine

import (
	"context"
	"fmt"

	"github.com/zeusync/dominari/internal/core/bundle"
	"github.com/zeusync/dominari/internal/core/clock"
	"github.com/zeusync/dominari/internal/core/errs"
	"github.com/zeusync/dominari/internal/core/events"
	"github.com/zeusync/dominari/internal/core/events/bus"
	"github.com/zeusync/dominari/internal/core/models"
	"github.com/zeusync/dominari/internal/core/observability/log"
	"github.com/zeusync/dominari/internal/core/schema/registry"
	"github.com/zeusync/dominari/internal/core/storage"
	"github.com/zeusync/dominari/internal/core/store"
	"github.com/zeusync/dominari/internal/game/blueprint"
	"github.com/zeusync/dominari/internal/game/components"
	"github.com/zeusync/dominari/internal/game/world"
)

// Deps are the collaborators of an Engine.
type Deps struct {
	Substrate storage.Substrate
	Schemas   registry.SchemaRegistry
	Store     *store.Store
	Catalog   *blueprint.Catalog
	Keys      *components.Keys
	Clock     clock.Clock
	Publisher events.Publisher
	Logger    log.Log

	// Signer is the action bundle every component write is made as.
	Signer models.Address
	// Admin may register blueprints.
	Admin models.Address
}

type Engine struct {
	sub       storage.Substrate
	schemas   registry.SchemaRegistry
	store     *store.Store
	catalog   *blueprint.Catalog
	keys      *components.Keys
	clock     clock.Clock
	publisher events.Publisher
	logger    log.Log
	signer    models.Address
	admin     models.Address
}

func New(d Deps) *Engine {
	publisher := d.Publisher
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &Engine{
		sub:       d.Substrate,
		schemas:   d.Schemas,
		store:     d.Store,
		catalog:   d.Catalog,
		keys:      d.Keys,
		clock:     d.Clock,
		publisher: publisher,
		logger:    d.Logger.With(log.String("component", "engine")),
		signer:    d.Signer,
		admin:     d.Admin,
	}
}

// Bootstrap registers every component schema, registers the engine's bundle
// and grants it all of them. It is safe to run on every start.
func Bootstrap(ctx context.Context, schemas registry.SchemaRegistry, bundles *bundle.Registry, signer models.Address) (*components.Keys, error) {
	keys, err := components.RegisterAll(ctx, schemas)
	if err != nil {
		return nil, fmt.Errorf("register schemas: %w", err)
	}
	if err := bundles.Register(ctx, signer); err != nil {
		return nil, fmt.Errorf("register bundle: %w", err)
	}
	if err := bundles.Grant(ctx, signer, keys.All()...); err != nil {
		return nil, fmt.Errorf("grant bundle: %w", err)
	}
	return keys, nil
}

func (e *Engine) Keys() *components.Keys { return e.keys }

func (e *Engine) Signer() models.Address { return e.signer }

// update runs fn atomically and publishes whatever it emitted once committed.
func (e *Engine) update(ctx context.Context, op string, fn func(tx storage.Tx, emit func(bus.Event)) error) error {
	var pending []bus.Event
	err := storage.Update(ctx, e.sub, func(tx storage.Tx) error {
		pending = pending[:0]
		return fn(tx, func(ev bus.Event) { pending = append(pending, ev) })
	})
	if err != nil {
		e.logger.Debug("Operation rejected",
			log.String("op", op),
			log.Int("code", int(errs.CodeOf(err))),
			log.Error(err),
		)
		return err
	}
	for _, ev := range pending {
		e.publisher.Publish(ctx, ev)
	}
	return nil
}

// View runs fn against a read-only snapshot.
func (e *Engine) View(ctx context.Context, fn func(tx storage.Tx) error) error {
	return storage.View(ctx, e.sub, fn)
}

// Index returns the index of instance.
func (e *Engine) Index(ctx context.Context, instance models.InstanceID) (*world.Index, error) {
	var x *world.Index
	err := e.View(ctx, func(tx storage.Tx) error {
		var err error
		x, err = world.Load(tx, instance)
		return err
	})
	return x, err
}

// Entity returns the stored record of one entity.
func (e *Engine) Entity(ctx context.Context, instance models.InstanceID, id models.EntityID) (*models.Entity, error) {
	var ent *models.Entity
	err := e.View(ctx, func(tx storage.Tx) error {
		var err error
		ent, err = e.store.Load(tx, instance, id)
		return err
	})
	return ent, err
}

func (e *Engine) Blueprint(ctx context.Context, key models.Address) (*blueprint.Blueprint, error) {
	var b *blueprint.Blueprint
	err := e.View(ctx, func(tx storage.Tx) error {
		var err error
		b, err = e.catalog.ResolveKey(tx, key)
		return err
	})
	return b, err
}

func (e *Engine) put(tx storage.Tx, instance models.InstanceID, id models.EntityID, writes ...store.Write) error {
	return e.store.Put(tx, e.signer, instance, id, writes...)
}

func requirePlay(x *world.Index) error {
	if x.PlayPhase != world.Play {
		return errs.ErrGamePaused.With("instance", uint64(x.Instance)).With("phase", x.PlayPhase.String())
	}
	return nil
}
