package engine

import (
	"context"

	"github.com/zeusync/dominari/internal/core/errs"
	"github.com/zeusync/dominari/internal/core/events"
	"github.com/zeusync/dominari/internal/core/events/bus"
	"github.com/zeusync/dominari/internal/core/models"
	"github.com/zeusync/dominari/internal/core/observability/log"
	"github.com/zeusync/dominari/internal/core/storage"
	"github.com/zeusync/dominari/internal/game/components"
	"github.com/zeusync/dominari/internal/game/world"
)

// Grant is the outcome of one GrantKOTHScore call.
type Grant struct {
	// Due is false when the phase is not Play or the interval has not elapsed.
	Due bool
	// Player is the player credited, nil when nobody held the hill.
	Player *models.EntityID
	Points uint64
}

// GrantKOTHScore awards the hill holder of a king-of-the-hill instance. At
// most one grant happens per interval; intervals missed between calls are not
// made up. The interval restarts even when the hill is empty.
func (e *Engine) GrantKOTHScore(ctx context.Context, instance models.InstanceID) (Grant, error) {
	now := e.clock.Now()
	var grant Grant
	err := e.update(ctx, "grant_koth_score", func(tx storage.Tx, emit func(bus.Event)) error {
		grant = Grant{}
		x, err := world.Load(tx, instance)
		if err != nil {
			return err
		}
		if x.Config.Mode.Kind != world.ModeKOTH {
			return errs.ErrInvalidGameMode.With("instance", uint64(instance)).With("mode", x.Config.Mode.Kind.String())
		}
		koth := &x.Config.Mode.KOTH
		if x.PlayPhase != world.Play {
			return nil
		}
		if koth.LastScoreGrant != 0 && now < koth.LastScoreGrant+koth.IntervalTicks {
			return nil
		}
		grant.Due = true

		holder, err := e.hillHolder(tx, x)
		if err != nil {
			return err
		}
		if holder != nil {
			playerEnt, err := e.store.Load(tx, instance, *holder)
			if err != nil {
				return err
			}
			stats, err := components.Must[components.PlayerStats](playerEnt, e.keys.PlayerStats)
			if err != nil {
				return err
			}
			stats.Score += koth.PointsPerGrant
			if err := e.put(tx, instance, *holder, components.Write(e.keys.PlayerStats, *stats)); err != nil {
				return err
			}
			grant.Player = holder
			grant.Points = koth.PointsPerGrant
			emit(events.ScoreChanged{
				Instance: instance,
				Player:   *holder,
				Score:    stats.Score,
				Delta:    koth.PointsPerGrant,
				Reason:   "koth",
			})
		}

		koth.LastScoreGrant = now
		return world.Save(tx, x)
	})
	if err != nil {
		return Grant{}, err
	}
	if grant.Player != nil {
		e.logger.Info("KOTH score granted",
			log.Uint64("instance", uint64(instance)),
			log.Uint64("player", uint64(*grant.Player)),
			log.Uint64("points", grant.Points),
		)
	}
	return grant, nil
}

// hillHolder returns the player whose active unit stands on the hill tile.
func (e *Engine) hillHolder(tx storage.Tx, x *world.Index) (*models.EntityID, error) {
	hill := components.Location{X: x.Config.Mode.KOTH.HillX, Y: x.Config.Mode.KOTH.HillY}
	for _, id := range x.Tiles {
		tileEnt, err := e.store.Load(tx, x.Instance, id)
		if err != nil {
			return nil, err
		}
		loc, err := components.Must[components.Location](tileEnt, e.keys.Location)
		if err != nil {
			return nil, err
		}
		if *loc != hill {
			continue
		}
		occ, err := components.Must[components.Occupant](tileEnt, e.keys.Occupant)
		if err != nil || occ.OccupantID == nil {
			return nil, err
		}
		unitEnt, err := e.store.Load(tx, x.Instance, *occ.OccupantID)
		if err != nil {
			return nil, err
		}
		active, ok, err := components.Get[components.Active](unitEnt, e.keys.Active)
		if err != nil || !ok || !active.Active {
			return nil, err
		}
		owner, ok, err := components.Get[components.Owner](unitEnt, e.keys.Owner)
		if err != nil || !ok {
			return nil, err
		}
		return owner.Player, nil
	}
	return nil, nil
}
