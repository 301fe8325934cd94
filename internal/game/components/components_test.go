package components

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zeusync/dominari/internal/core/errs"
	"github.com/zeusync/dominari/internal/core/events"
	"github.com/zeusync/dominari/internal/core/models"
	"github.com/zeusync/dominari/internal/core/observability/log"
	"github.com/zeusync/dominari/internal/core/schema/registry"
	"github.com/zeusync/dominari/internal/core/storage"
	"github.com/zeusync/dominari/pkg/encoding"
)

func ptr[T any](v T) *T { return &v }

func fullAddresses(n int) []models.Address {
	out := make([]models.Address, n)
	for i := range out {
		out[i] = models.DeriveAddress(models.U64Seed(uint64(i)))
	}
	return out
}

// worstCase holds, for every schema, the largest value that still fits its slot.
// String slots do not reserve the length prefix, so those strings stop short of their bound.
func worstCase() []Component {
	owner := models.DeriveAddress([]byte("owner"))
	long := strings.Repeat("x", StringMaxSize-encoding.SizeLen)
	short := strings.Repeat("y", FeatureMaxString-encoding.SizeLen)
	ladder := make([]string, FeatureMaxRank)
	for i := range ladder {
		ladder[i] = short
	}
	costs := make([]uint64, FeatureMaxRank)

	return []Component{
		Metadata{Name: long, EntityType: EntityPlayer, Instance: 1 << 60},
		MapMeta{MaxX: 255, MaxY: 255},
		Location{X: 255, Y: 255},
		Feature{FeatureID: ptr(models.EntityID(1))},
		Owner{Owner: &owner, Player: ptr(models.EntityID(2))},
		Value{Value: 1},
		Occupant{OccupantID: ptr(models.EntityID(3))},
		PlayerStats{Name: long, Image: long, Key: owner, Score: 1, Kills: 1, Cards: fullAddresses(PlayerMaxCards)},
		LastUsed{LastUsed: 1, Recovery: 2},
		FeatureRank{Rank: 1, MaxRank: 9, CostForUseLadder: costs, LinkRankLadder: ladder, NameRankLadder: ladder, PerRankStatIncrease: 1},
		Range{Movement: 1, AttackRange: 1},
		DropTable{Blueprints: fullAddresses(DropTableMaxSize)},
		Uses{UsesLeft: 1, MaxUses: 1},
		HealingPower{Heals: 1},
		Health{Health: 1},
		Damage{MinDamage: 1, MaxDamage: 2, BonusInfantry: 3, BonusArmor: 4, BonusAircraft: 5, BonusFeature: 6},
		TroopClass{Class: Aircraft},
		Active{Active: true},
		Cost{Lamports: 1},
		OffchainMetadata{Link: strings.Repeat("z", 2*StringMaxSize-encoding.SizeLen)},
	}
}

func TestMaxSizes(t *testing.T) {
	want := map[string]uint64{
		NameMetadata:         288,
		NameMapMeta:          2,
		NameLocation:         2,
		NameFeature:          9,
		NameOwner:            42,
		NameValue:            8,
		NameOccupant:         9,
		NamePlayerStats:      628,
		NameLastUsed:         16,
		NameFeatureRank:      670,
		NameRange:            2,
		NameDropTable:        1028,
		NameUses:             16,
		NameHealingPower:     8,
		NameHealth:           8,
		NameDamage:           32,
		NameTroopClass:       2,
		NameActive:           1,
		NameCost:             8,
		NameOffchainMetadata: 256,
	}
	all := worstCase()
	require.Len(t, want, len(all))
	for _, c := range all {
		require.Equal(t, want[c.Schema()], c.MaxSize(), c.Schema())
	}

	t.Run("strings filled to their bound overflow the slot", func(t *testing.T) {
		long := strings.Repeat("x", StringMaxSize)
		ladder := make([]string, FeatureMaxRank)
		for i := range ladder {
			ladder[i] = strings.Repeat("y", FeatureMaxString)
		}
		for _, c := range []Component{
			PlayerStats{Name: long, Image: long, Cards: fullAddresses(PlayerMaxCards)},
			FeatureRank{CostForUseLadder: make([]uint64, FeatureMaxRank), LinkRankLadder: ladder, NameRankLadder: ladder},
			OffchainMetadata{Link: strings.Repeat("z", OffchainLinkMaxSize)},
		} {
			require.NoError(t, c.(Validator).Validate())
			require.Greater(t, uint64(len(c.Encode())), c.MaxSize(), c.Schema())
		}
	})
}

func TestMaxSizesBoundPayloads(t *testing.T) {
	all := worstCase()
	require.Len(t, all, len(Names))
	for i, c := range all {
		t.Run(c.Schema(), func(t *testing.T) {
			require.Equal(t, Names[i], c.Schema())
			require.LessOrEqual(t, uint64(len(c.Encode())), c.MaxSize())
			if v, ok := c.(Validator); ok {
				require.NoError(t, v.Validate())
			}
		})
	}
}

func TestRoundTrip(t *testing.T) {
	entity := &models.Entity{ID: 1, Components: models.NewComponentSet()}
	owner := models.DeriveAddress([]byte("owner"))

	Set(entity.Components, 1, Owner{Owner: &owner})
	Set(entity.Components, 2, PlayerStats{Name: "ann", Cards: fullAddresses(2)})
	Set(entity.Components, 3, FeatureRank{Rank: 2, LinkRankLadder: []string{"a.png"}})
	Set(entity.Components, 4, Damage{MinDamage: 1, MaxDamage: 9})

	t.Run("owner", func(t *testing.T) {
		got, err := Must[Owner](entity, 1)
		require.NoError(t, err)
		require.True(t, got.IsOwner(owner))
		require.Nil(t, got.Player)
	})

	t.Run("player stats", func(t *testing.T) {
		got, err := Must[PlayerStats](entity, 2)
		require.NoError(t, err)
		require.Equal(t, "ann", got.Name)
		require.Len(t, got.Cards, 2)
	})

	t.Run("feature rank", func(t *testing.T) {
		got, err := Must[FeatureRank](entity, 3)
		require.NoError(t, err)
		require.Equal(t, uint8(2), got.Rank)
		require.Equal(t, []string{"a.png"}, got.LinkRankLadder)
		require.Empty(t, got.NameRankLadder)
	})

	t.Run("missing", func(t *testing.T) {
		_, ok, err := Get[Health](entity, 9)
		require.NoError(t, err)
		require.False(t, ok)

		_, err = Must[Health](entity, 9)
		require.ErrorIs(t, err, errs.ErrComponentNotAttached)
	})

	t.Run("wrong layout is corrupt", func(t *testing.T) {
		_, err := Must[Health](entity, 4)
		require.ErrorIs(t, err, errs.ErrCorrupt)
	})
}

func TestRules(t *testing.T) {
	t.Run("recovery", func(t *testing.T) {
		require.True(t, LastUsed{Recovery: 10}.Ready(1))
		require.False(t, LastUsed{LastUsed: 100, Recovery: 10}.Ready(105))
		require.False(t, LastUsed{LastUsed: 100, Recovery: 10}.Ready(110))
		require.True(t, LastUsed{LastUsed: 100, Recovery: 10}.Ready(111))
	})

	t.Run("same player", func(t *testing.T) {
		one, two := models.EntityID(1), models.EntityID(2)
		require.True(t, Owner{Player: &one}.SamePlayer(Owner{Player: ptr(models.EntityID(1))}))
		require.False(t, Owner{Player: &one}.SamePlayer(Owner{Player: &two}))
		require.False(t, Owner{Player: &one}.SamePlayer(Owner{}))
		require.True(t, Owner{}.SamePlayer(Owner{}))
	})

	t.Run("damage bonus", func(t *testing.T) {
		d := Damage{BonusInfantry: 1, BonusArmor: 2, BonusAircraft: 3, BonusFeature: 4}
		require.Equal(t, uint64(4), d.Bonus(EntityFeature, nil))
		require.Equal(t, uint64(2), d.Bonus(EntityUnit, ptr(Armor)))
		require.Equal(t, uint64(0), d.Bonus(EntityUnit, nil))
	})

	t.Run("validation", func(t *testing.T) {
		require.ErrorIs(t, PlayerStats{Name: strings.Repeat("x", StringMaxSize+1)}.Validate(), errs.ErrStringTooLong)
		require.ErrorIs(t, PlayerStats{Cards: fullAddresses(PlayerMaxCards + 1)}.Validate(), errs.ErrCapacityExceeded)
		require.ErrorIs(t, DropTable{Blueprints: fullAddresses(DropTableMaxSize + 1)}.Validate(), errs.ErrCapacityExceeded)
	})
}

func TestEnumsText(t *testing.T) {
	var et EntityType
	require.NoError(t, et.UnmarshalText([]byte("Feature")))
	require.Equal(t, EntityFeature, et)
	require.Error(t, et.UnmarshalText([]byte("castle")))

	var tc TroopClassKind
	require.NoError(t, tc.UnmarshalText([]byte("armor")))
	require.Equal(t, Armor, tc)
	text, err := tc.MarshalText()
	require.NoError(t, err)
	require.Equal(t, "armor", string(text))
}

func TestKeys(t *testing.T) {
	ctx := context.Background()
	reg := registry.New(storage.NewMemory(), events.Nop{}, log.NewNop())

	_, err := ResolveKeys(ctx, reg)
	require.ErrorIs(t, err, errs.ErrUnknownComponent)

	keys, err := RegisterAll(ctx, reg)
	require.NoError(t, err)
	require.Equal(t, registry.KeyFor(NameHealth), keys.Health)
	require.Len(t, keys.All(), len(Names))

	resolved, err := ResolveKeys(ctx, reg)
	require.NoError(t, err)
	require.Equal(t, keys, resolved)

	key, ok := keys.Of(NameDamage)
	require.True(t, ok)
	require.Equal(t, keys.Damage, key)
	_, ok = keys.Of("nope")
	require.False(t, ok)
}
