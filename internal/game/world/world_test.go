package world

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zeusync/dominari/internal/core/errs"
	"github.com/zeusync/dominari/internal/core/models"
	"github.com/zeusync/dominari/internal/core/storage"
	"github.com/zeusync/dominari/internal/game/components"
)

func TestIndexLifecycle(t *testing.T) {
	ctx := context.Background()
	sub := storage.NewMemory()
	authority := models.DeriveAddress([]byte("authority"))
	cfg := GameConfig{
		MaxPlayers:    2,
		StartingCards: []models.Address{models.DeriveAddress([]byte("card"))},
		Mode:          GameMode{Kind: ModeKOTH, KOTH: KOTH{HillX: 4, HillY: 4, PointsPerGrant: 5, IntervalTicks: 10}},
	}

	require.NoError(t, storage.Update(ctx, sub, func(tx storage.Tx) error {
		return Create(tx, &Index{Instance: 1, Authority: authority, Config: cfg})
	}))

	t.Run("duplicate", func(t *testing.T) {
		err := storage.Update(ctx, sub, func(tx storage.Tx) error {
			return Create(tx, &Index{Instance: 1, Config: cfg})
		})
		require.ErrorIs(t, err, errs.ErrDuplicateInstance)
	})

	t.Run("missing", func(t *testing.T) {
		require.NoError(t, storage.View(ctx, sub, func(tx storage.Tx) error {
			_, err := Load(tx, 2)
			require.ErrorIs(t, err, errs.ErrInstanceNotFound)
			ok, err := Exists(tx, 2)
			require.NoError(t, err)
			require.False(t, ok)
			return nil
		}))
	})

	t.Run("appends grow the account", func(t *testing.T) {
		var before uint64
		require.NoError(t, storage.Update(ctx, sub, func(tx storage.Tx) error {
			a, err := tx.Read(IndexAddress(1))
			require.NoError(t, err)
			before = a.Capacity

			x, err := Load(tx, 1)
			require.NoError(t, err)
			require.Equal(t, Lobby, x.PlayPhase)
			mapID := models.EntityID(1)
			x.Map = &mapID
			x.Tiles = append(x.Tiles, 2, 3)
			x.Players = append(x.Players, 4)
			x.PlayPhase = Play
			return Save(tx, x)
		}))

		require.NoError(t, storage.View(ctx, sub, func(tx storage.Tx) error {
			a, err := tx.Read(IndexAddress(1))
			require.NoError(t, err)
			require.Equal(t, before+3*8, a.Capacity)

			x, err := Load(tx, 1)
			require.NoError(t, err)
			require.Equal(t, authority, x.Authority)
			require.Equal(t, []models.EntityID{2, 3}, x.Tiles)
			require.True(t, x.HasPlayer(4))
			require.True(t, x.HasTile(3))
			require.False(t, x.HasUnit(3))
			require.False(t, x.Full())
			require.Equal(t, Play, x.PlayPhase)
			require.Equal(t, cfg.Mode, x.Config.Mode)
			require.Equal(t, cfg.StartingCards, x.Config.StartingCards)
			return nil
		}))
	})
}

func TestGameConfig(t *testing.T) {
	t.Run("size depends on cards", func(t *testing.T) {
		none := GameConfig{MaxPlayers: 1}
		two := GameConfig{MaxPlayers: 1, StartingCards: make([]models.Address, 2)}
		require.Equal(t, none.MaxSize()+64, two.MaxSize())
	})

	t.Run("validate", func(t *testing.T) {
		require.NoError(t, GameConfig{MaxPlayers: 1}.Validate())
		require.ErrorIs(t, GameConfig{}.Validate(), errs.ErrInvalidArgument)
		require.ErrorIs(t, GameConfig{MaxPlayers: 1, Mode: GameMode{Kind: ModeKOTH}}.Validate(), errs.ErrInvalidArgument)
	})

	t.Run("starting hand fits a player", func(t *testing.T) {
		full := GameConfig{MaxPlayers: 1, StartingCards: make([]models.Address, components.PlayerMaxCards)}
		require.NoError(t, full.Validate())
		full.StartingCards = append(full.StartingCards, models.Address{})
		require.ErrorIs(t, full.Validate(), errs.ErrCapacityExceeded)
	})
}

func TestPlayPhaseText(t *testing.T) {
	var p PlayPhase
	require.NoError(t, p.UnmarshalText([]byte("Paused")))
	require.Equal(t, Paused, p)
	require.True(t, p.Valid())
	require.False(t, PlayPhase(9).Valid())
	require.Error(t, p.UnmarshalText([]byte("over")))
	require.Equal(t, "finished", Finished.String())
}
