package engine

import (
	"context"
	"slices"

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

// SpawnUnit plays card bp from the hand of player onto an empty tile.
// The card is swap-removed, so the order of the remaining hand changes.
func (e *Engine) SpawnUnit(
	ctx context.Context,
	payer models.Address,
	instance models.InstanceID,
	player, unit, tile models.EntityID,
	bp models.Address,
) error {
	return e.update(ctx, "spawn_unit", func(tx storage.Tx, emit func(bus.Event)) error {
		x, err := world.Load(tx, instance)
		if err != nil {
			return err
		}
		if err := requirePlay(x); err != nil {
			return err
		}

		playerEnt, err := e.store.Load(tx, instance, player)
		if err != nil {
			return err
		}
		stats, err := components.Must[components.PlayerStats](playerEnt, e.keys.PlayerStats)
		if err != nil {
			return err
		}
		if stats.Key != payer {
			return errs.ErrInvalidOwner.With("player", uint64(player)).With("caller", payer.String())
		}

		tileEnt, err := e.store.Load(tx, instance, tile)
		if err != nil {
			return err
		}
		occupant, err := components.Must[components.Occupant](tileEnt, e.keys.Occupant)
		if err != nil {
			return err
		}
		if occupant.OccupantID != nil {
			return errs.ErrTileOccupied.With("tile", uint64(tile)).With("occupant", uint64(*occupant.OccupantID))
		}

		card := slices.Index(stats.Cards, bp)
		if card < 0 {
			return errs.ErrInvalidCard.With("player", uint64(player)).With("blueprint", bp.String())
		}
		last := len(stats.Cards) - 1
		stats.Cards[card] = stats.Cards[last]
		stats.Cards = stats.Cards[:last]

		b, err := e.catalog.ResolveKey(tx, bp)
		if err != nil {
			return err
		}
		loc, err := components.Must[components.Location](tileEnt, e.keys.Location)
		if err != nil {
			return err
		}

		overrides := models.NewComponentSet()
		components.Set(overrides, e.keys.Metadata, components.Metadata{
			Name:       b.Name,
			EntityType: components.EntityUnit,
			Instance:   instance,
		})
		components.Set(overrides, e.keys.Owner, components.Owner{Owner: &payer, Player: &player})
		components.Set(overrides, e.keys.Active, components.Active{Active: true})
		components.Set(overrides, e.keys.Location, *loc)
		if _, err := e.store.Create(tx, e.signer, payer, instance, unit, blueprint.Instantiate(b, overrides)); err != nil {
			return err
		}

		occupant.OccupantID = &unit
		if err := e.put(tx, instance, tile, components.Write(e.keys.Occupant, *occupant)); err != nil {
			return err
		}
		if err := e.put(tx, instance, player, components.Write(e.keys.PlayerStats, *stats)); err != nil {
			return err
		}
		x.Units = append(x.Units, unit)
		if err := world.Save(tx, x); err != nil {
			return err
		}

		emit(events.NewUnitSpawned{Instance: instance, Tile: tile, Player: player, Unit: unit})
		return nil
	})
}

// MoveUnit moves unit from one tile to another within its movement range.
func (e *Engine) MoveUnit(ctx context.Context, payer models.Address, instance models.InstanceID, from, to, unit models.EntityID) error {
	now := e.clock.Now()
	return e.update(ctx, "move_unit", func(tx storage.Tx, emit func(bus.Event)) error {
		x, err := world.Load(tx, instance)
		if err != nil {
			return err
		}
		if err := requirePlay(x); err != nil {
			return err
		}

		fromEnt, err := e.store.Load(tx, instance, from)
		if err != nil {
			return err
		}
		toEnt, err := e.store.Load(tx, instance, to)
		if err != nil {
			return err
		}
		unitEnt, err := e.store.Load(tx, instance, unit)
		if err != nil {
			return err
		}

		fromOcc, err := components.Must[components.Occupant](fromEnt, e.keys.Occupant)
		if err != nil {
			return err
		}
		if fromOcc.OccupantID == nil || *fromOcc.OccupantID != unit {
			return errs.ErrInvalidUnit.With("tile", uint64(from)).With("unit", uint64(unit))
		}
		active, err := components.Must[components.Active](unitEnt, e.keys.Active)
		if err != nil {
			return err
		}
		if !active.Active {
			return errs.ErrUnitDead.With("unit", uint64(unit))
		}
		toOcc, err := components.Must[components.Occupant](toEnt, e.keys.Occupant)
		if err != nil {
			return err
		}
		if toOcc.OccupantID != nil {
			return errs.ErrTileOccupied.With("tile", uint64(to)).With("occupant", uint64(*toOcc.OccupantID))
		}
		owner, err := components.Must[components.Owner](unitEnt, e.keys.Owner)
		if err != nil {
			return err
		}
		if !owner.IsOwner(payer) {
			return errs.ErrInvalidOwner.With("unit", uint64(unit)).With("caller", payer.String())
		}
		lastUsed, err := components.Must[components.LastUsed](unitEnt, e.keys.LastUsed)
		if err != nil {
			return err
		}
		if !lastUsed.Ready(now) {
			return errs.ErrUnitRecovering.With("unit", uint64(unit)).With("ready_after", lastUsed.LastUsed+lastUsed.Recovery)
		}

		fromLoc, err := components.Must[components.Location](fromEnt, e.keys.Location)
		if err != nil {
			return err
		}
		toLoc, err := components.Must[components.Location](toEnt, e.keys.Location)
		if err != nil {
			return err
		}
		rng, err := components.Must[components.Range](unitEnt, e.keys.Range)
		if err != nil {
			return err
		}
		if dist := Distance(*fromLoc, *toLoc); dist > uint64(rng.Movement) {
			return errs.ErrUnitLacksMovement.With("unit", uint64(unit)).With("distance", dist).With("movement", rng.Movement)
		}

		lastUsed.LastUsed = now
		if err := e.put(tx, instance, unit,
			components.Write(e.keys.LastUsed, *lastUsed),
			components.Write(e.keys.Location, *toLoc),
		); err != nil {
			return err
		}
		fromOcc.OccupantID = nil
		if err := e.put(tx, instance, from, components.Write(e.keys.Occupant, *fromOcc)); err != nil {
			return err
		}
		toOcc.OccupantID = &unit
		if err := e.put(tx, instance, to, components.Write(e.keys.Occupant, *toOcc)); err != nil {
			return err
		}

		emit(events.TroopMovement{Instance: instance, From: from, To: to, Unit: unit})
		return nil
	})
}

// AttackTile has attacker strike defender standing on tile and returns the
// damage dealt. A defender brought to zero health is deactivated and its link
// on the tile is cleared; the attacking player is credited with the kill.
func (e *Engine) AttackTile(ctx context.Context, payer models.Address, instance models.InstanceID, attacker, defender, tile models.EntityID) (uint64, error) {
	now := e.clock.Now()
	var dealt uint64
	err := e.update(ctx, "attack_tile", func(tx storage.Tx, emit func(bus.Event)) error {
		x, err := world.Load(tx, instance)
		if err != nil {
			return err
		}
		if err := requirePlay(x); err != nil {
			return err
		}

		attEnt, err := e.store.Load(tx, instance, attacker)
		if err != nil {
			return err
		}
		defEnt, err := e.store.Load(tx, instance, defender)
		if err != nil {
			return err
		}

		attOwner, err := components.Must[components.Owner](attEnt, e.keys.Owner)
		if err != nil {
			return err
		}
		if !attOwner.IsOwner(payer) {
			return errs.ErrInvalidOwner.With("unit", uint64(attacker)).With("caller", payer.String())
		}
		attActive, err := components.Must[components.Active](attEnt, e.keys.Active)
		if err != nil {
			return err
		}
		if !attActive.Active {
			return errs.ErrUnitDead.With("unit", uint64(attacker))
		}
		defOwner, err := components.Must[components.Owner](defEnt, e.keys.Owner)
		if err != nil {
			return err
		}
		if defOwner.SamePlayer(*attOwner) {
			return errs.ErrFriendlyFire.With("attacker", uint64(attacker)).With("defender", uint64(defender))
		}
		dmg, err := components.Must[components.Damage](attEnt, e.keys.Damage)
		if err != nil {
			return err
		}
		defActive, err := components.Must[components.Active](defEnt, e.keys.Active)
		if err != nil {
			return err
		}
		if !defActive.Active {
			return errs.ErrUnitDead.With("unit", uint64(defender))
		}
		health, ok, err := components.Get[components.Health](defEnt, e.keys.Health)
		if err != nil {
			return err
		}
		if !ok {
			return errs.ErrNoHealthComponent.With("defender", uint64(defender))
		}

		attLoc, err := components.Must[components.Location](attEnt, e.keys.Location)
		if err != nil {
			return err
		}
		defLoc, err := components.Must[components.Location](defEnt, e.keys.Location)
		if err != nil {
			return err
		}
		rng, err := components.Must[components.Range](attEnt, e.keys.Range)
		if err != nil {
			return err
		}
		if dist := Distance(*attLoc, *defLoc); dist > uint64(rng.AttackRange) {
			return errs.ErrOutOfRange.With("attacker", uint64(attacker)).With("distance", dist).With("attack_range", rng.AttackRange)
		}
		lastUsed, err := components.Must[components.LastUsed](attEnt, e.keys.LastUsed)
		if err != nil {
			return err
		}
		if !lastUsed.Ready(now) {
			return errs.ErrUnitRecovering.With("unit", uint64(attacker)).With("ready_after", lastUsed.LastUsed+lastUsed.Recovery)
		}
		lastUsed.LastUsed = now

		meta, err := components.Must[components.Metadata](defEnt, e.keys.Metadata)
		if err != nil {
			return err
		}
		var class *components.TroopClassKind
		if tc, ok, err := components.Get[components.TroopClass](defEnt, e.keys.TroopClass); err != nil {
			return err
		} else if ok {
			class = &tc.Class
		}
		dealt = damage(now, *dmg, meta.EntityType, class)

		if err := e.put(tx, instance, attacker, components.Write(e.keys.LastUsed, *lastUsed)); err != nil {
			return err
		}

		if dealt < health.Health {
			health.Health -= dealt
			if err := e.put(tx, instance, defender, components.Write(e.keys.Health, *health)); err != nil {
				return err
			}
			emit(events.TileAttacked{Instance: instance, Attacker: attacker, Defender: defender, DefendingTile: tile, Damage: dealt})
			return nil
		}

		if err := e.clearTile(tx, instance, tile, *defLoc, meta.EntityType); err != nil {
			return err
		}
		if err := e.put(tx, instance, defender,
			components.Write(e.keys.Health, components.Health{Health: 0}),
			components.Write(e.keys.Active, components.Active{Active: false}),
		); err != nil {
			return err
		}
		emit(events.TileAttacked{Instance: instance, Attacker: attacker, Defender: defender, DefendingTile: tile, Damage: dealt})

		if attOwner.Player == nil {
			return nil
		}
		scored, err := e.creditKill(tx, instance, *attOwner.Player, defEnt)
		if err != nil {
			return err
		}
		emit(scored)
		return nil
	})
	if err != nil {
		return 0, err
	}
	e.logger.Debug("Tile attacked",
		log.Uint64("instance", uint64(instance)),
		log.Uint64("attacker", uint64(attacker)),
		log.Uint64("defender", uint64(defender)),
		log.Uint64("damage", dealt),
	)
	return dealt, nil
}

// clearTile removes the defender's link from the tile it died on.
func (e *Engine) clearTile(tx storage.Tx, instance models.InstanceID, tile models.EntityID, at components.Location, kind components.EntityType) error {
	tileEnt, err := e.store.Load(tx, instance, tile)
	if err != nil {
		return err
	}
	loc, err := components.Must[components.Location](tileEnt, e.keys.Location)
	if err != nil {
		return err
	}
	if *loc != at {
		return errs.ErrInvalidLocation.With("tile", uint64(tile)).With("x", loc.X).With("y", loc.Y)
	}
	if kind == components.EntityFeature {
		return e.put(tx, instance, tile, components.Write(e.keys.Feature, components.Feature{}))
	}
	return e.put(tx, instance, tile, components.Write(e.keys.Occupant, components.Occupant{}))
}

// creditKill adds a kill and the victim's value to the attacking player.
func (e *Engine) creditKill(tx storage.Tx, instance models.InstanceID, player models.EntityID, victim *models.Entity) (events.ScoreChanged, error) {
	playerEnt, err := e.store.Load(tx, instance, player)
	if err != nil {
		return events.ScoreChanged{}, err
	}
	stats, err := components.Must[components.PlayerStats](playerEnt, e.keys.PlayerStats)
	if err != nil {
		return events.ScoreChanged{}, err
	}
	var delta uint64
	if v, ok, err := components.Get[components.Value](victim, e.keys.Value); err != nil {
		return events.ScoreChanged{}, err
	} else if ok {
		delta = v.Value
	}
	stats.Kills++
	stats.Score += delta
	if err := e.put(tx, instance, player, components.Write(e.keys.PlayerStats, *stats)); err != nil {
		return events.ScoreChanged{}, err
	}
	return events.ScoreChanged{Instance: instance, Player: player, Score: stats.Score, Delta: delta, Reason: "kill"}, nil
}
