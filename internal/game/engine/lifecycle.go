package engine

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/zeusync/dominari/internal/core/bundle"
	"github.com/zeusync/dominari/internal/core/errs"
	"github.com/zeusync/dominari/internal/core/events"
	"github.com/zeusync/dominari/internal/core/events/bus"
	"github.com/zeusync/dominari/internal/core/models"
	"github.com/zeusync/dominari/internal/core/observability/log"
	"github.com/zeusync/dominari/internal/core/storage"
	"github.com/zeusync/dominari/internal/game/blueprint"
	"github.com/zeusync/dominari/internal/game/components"
	"github.com/zeusync/dominari/internal/game/world"
)

// CreateGameInstance creates the index of a new world instance owned by payer
// and scopes the engine's bundle to it. The instance starts in the lobby.
func (e *Engine) CreateGameInstance(ctx context.Context, payer models.Address, instance models.InstanceID, config world.GameConfig) (*world.Index, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	x := &world.Index{
		Instance:  instance,
		Authority: payer,
		Config:    config,
		PlayPhase: world.Lobby,
	}
	err := e.update(ctx, "create_game_instance", func(tx storage.Tx, emit func(bus.Event)) error {
		exists, err := world.Exists(tx, instance)
		if err != nil {
			return err
		}
		if exists {
			return errs.ErrDuplicateInstance.With("instance", uint64(instance))
		}
		for _, card := range config.StartingCards {
			ok, err := e.catalog.Exists(tx, card)
			if err != nil {
				return err
			}
			if !ok {
				return errs.ErrUnknownBlueprint.With("key", card.String())
			}
		}
		if err := bundle.BindInstance(tx, e.signer, instance); err != nil {
			return err
		}
		if err := world.Create(tx, x); err != nil {
			return err
		}
		emit(events.NewWorldInstance{Instance: instance, Authority: payer})
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.logger.Info("World instance created",
		log.Uint64("instance", uint64(instance)),
		log.Stringer("authority", payer),
		log.Stringer("mode", config.Mode.Kind),
	)
	return x, nil
}

// RegisterBlueprint adds a blueprint to the catalog. Only the admin may.
func (e *Engine) RegisterBlueprint(ctx context.Context, caller models.Address, name string, set *models.ComponentSet) (models.Address, error) {
	if caller != e.admin {
		return models.Address{}, errs.ErrInvalidOwner.With("caller", caller.String())
	}
	var key models.Address
	err := e.update(ctx, "register_blueprint", func(tx storage.Tx, emit func(bus.Event)) error {
		var err error
		key, err = e.catalog.Register(tx, name, set)
		if err != nil {
			return err
		}
		emit(events.NewBlueprintRegistered{Name: name, Key: key})
		return nil
	})
	return key, err
}

// RegisterDefinitions registers every definition, skipping names already in
// the catalog. It returns how many were added.
func (e *Engine) RegisterDefinitions(ctx context.Context, caller models.Address, defs []blueprint.Definition) (int, error) {
	added := 0
	for _, def := range defs {
		set, err := def.Components(e.keys)
		if err != nil {
			return added, err
		}
		_, err = e.RegisterBlueprint(ctx, caller, def.Name, set)
		if errors.Is(err, errs.ErrDuplicateBlueprint) {
			continue
		}
		if err != nil {
			return added, fmt.Errorf("blueprint %s: %w", def.Name, err)
		}
		added++
	}
	e.logger.Debug("Definitions registered", log.Int("added", added), log.Int("total", len(defs)))
	return added, nil
}

// InitMap creates the map entity of instance.
func (e *Engine) InitMap(ctx context.Context, payer models.Address, instance models.InstanceID, id models.EntityID, maxX, maxY uint8) error {
	return e.update(ctx, "init_map", func(tx storage.Tx, _ func(bus.Event)) error {
		x, err := world.Load(tx, instance)
		if err != nil {
			return err
		}
		set := models.NewComponentSet()
		components.Set(set, e.keys.Metadata, components.Metadata{
			Name:       fmt.Sprintf("Map (%d)", instance),
			EntityType: components.EntityMap,
			Instance:   instance,
		})
		components.Set(set, e.keys.MapMeta, components.MapMeta{MaxX: maxX, MaxY: maxY})
		if _, err := e.store.Create(tx, e.signer, payer, instance, id, set); err != nil {
			return err
		}
		x.Map = &id
		return world.Save(tx, x)
	})
}

// InitTile creates an empty tile at (x, y) owned by payer.
func (e *Engine) InitTile(ctx context.Context, payer models.Address, instance models.InstanceID, id models.EntityID, x, y uint8, cost uint64) error {
	return e.update(ctx, "init_tile", func(tx storage.Tx, _ func(bus.Event)) error {
		index, err := world.Load(tx, instance)
		if err != nil {
			return err
		}
		set := models.NewComponentSet()
		components.Set(set, e.keys.Metadata, components.Metadata{
			Name:       fmt.Sprintf("Tile (%d, %d)", x, y),
			EntityType: components.EntityTile,
			Instance:   instance,
		})
		components.Set(set, e.keys.Location, components.Location{X: x, Y: y})
		components.Set(set, e.keys.Feature, components.Feature{})
		components.Set(set, e.keys.Occupant, components.Occupant{})
		components.Set(set, e.keys.Owner, components.Owner{Owner: &payer})
		components.Set(set, e.keys.Cost, components.Cost{Lamports: cost})
		if _, err := e.store.Create(tx, e.signer, payer, instance, id, set); err != nil {
			return err
		}
		index.Tiles = append(index.Tiles, id)
		return world.Save(tx, index)
	})
}

// InitFeature builds a feature from a blueprint on a tile owned by payer.
func (e *Engine) InitFeature(ctx context.Context, payer models.Address, instance models.InstanceID, id, tile models.EntityID, bp models.Address) error {
	return e.update(ctx, "init_feature", func(tx storage.Tx, _ func(bus.Event)) error {
		x, err := world.Load(tx, instance)
		if err != nil {
			return err
		}
		tileEnt, err := e.store.Load(tx, instance, tile)
		if err != nil {
			return err
		}
		owner, err := components.Must[components.Owner](tileEnt, e.keys.Owner)
		if err != nil {
			return err
		}
		if !owner.IsOwner(payer) {
			return errs.ErrInvalidOwner.With("tile", uint64(tile)).With("caller", payer.String())
		}
		loc, err := components.Must[components.Location](tileEnt, e.keys.Location)
		if err != nil {
			return err
		}
		feature, err := components.Must[components.Feature](tileEnt, e.keys.Feature)
		if err != nil {
			return err
		}
		b, err := e.catalog.ResolveKey(tx, bp)
		if err != nil {
			return err
		}

		overrides := models.NewComponentSet()
		components.Set(overrides, e.keys.Metadata, components.Metadata{
			Name:       b.Name,
			EntityType: components.EntityFeature,
			Instance:   instance,
		})
		components.Set(overrides, e.keys.Location, *loc)
		components.Set(overrides, e.keys.Owner, components.Owner{Owner: owner.Owner})
		components.Set(overrides, e.keys.Active, components.Active{Active: true})
		if _, err := e.store.Create(tx, e.signer, payer, instance, id, blueprint.Instantiate(b, overrides)); err != nil {
			return err
		}

		feature.FeatureID = &id
		if err := e.put(tx, instance, tile, components.Write(e.keys.Feature, *feature)); err != nil {
			return err
		}
		x.Features = append(x.Features, id)
		return world.Save(tx, x)
	})
}

// InitPlayer joins payer to instance with the configured starting hand.
func (e *Engine) InitPlayer(ctx context.Context, payer models.Address, instance models.InstanceID, id models.EntityID, name, image string) error {
	return e.update(ctx, "init_player", func(tx storage.Tx, _ func(bus.Event)) error {
		x, err := world.Load(tx, instance)
		if err != nil {
			return err
		}
		if x.Full() {
			return errs.ErrPlayerCountExceeded.With("instance", uint64(instance)).With("max_players", x.Config.MaxPlayers)
		}
		stats := components.PlayerStats{
			Name:  name,
			Image: image,
			Key:   payer,
			Cards: slices.Clone(x.Config.StartingCards),
		}
		if err := stats.Validate(); err != nil {
			return err
		}

		set := models.NewComponentSet()
		components.Set(set, e.keys.Metadata, components.Metadata{
			Name:       payer.String(),
			EntityType: components.EntityPlayer,
			Instance:   instance,
		})
		components.Set(set, e.keys.PlayerStats, stats)
		if _, err := e.store.Create(tx, e.signer, payer, instance, id, set); err != nil {
			return err
		}
		x.Players = append(x.Players, id)
		return world.Save(tx, x)
	})
}

// ChangeGameState moves instance to phase. Any member player may do so from any phase.
func (e *Engine) ChangeGameState(ctx context.Context, instance models.InstanceID, player models.EntityID, phase world.PlayPhase) error {
	if !phase.Valid() {
		return errs.ErrInvalidArgument.With("phase", uint8(phase))
	}
	err := e.update(ctx, "change_game_state", func(tx storage.Tx, emit func(bus.Event)) error {
		x, err := world.Load(tx, instance)
		if err != nil {
			return err
		}
		if !x.HasPlayer(player) {
			return errs.ErrInvalidPlayer.With("instance", uint64(instance)).With("player", uint64(player))
		}
		x.PlayPhase = phase
		if err := world.Save(tx, x); err != nil {
			return err
		}
		emit(events.GameStateChanged{Instance: instance, Player: player, NewState: phase.String()})
		return nil
	})
	if err == nil {
		e.logger.Info("Game state changed",
			log.Uint64("instance", uint64(instance)),
			log.Stringer("phase", phase),
		)
	}
	return err
}

// Reclaim is accepted and ignored; entities are never deleted.
func (e *Engine) Reclaim(ctx context.Context, instance models.InstanceID, id models.EntityID) error {
	return e.update(ctx, "reclaim", func(tx storage.Tx, _ func(bus.Event)) error {
		return e.store.Reclaim(tx, instance, id)
	})
}
