// Package components defines the game's component schemas: their names,
// payload layouts and the slot sizes reserved for them.
package components

import (
	"context"
	"fmt"

	"github.com/zeusync/dominari/internal/core/errs"
	"github.com/zeusync/dominari/internal/core/models"
	"github.com/zeusync/dominari/internal/core/schema/registry"
	"github.com/zeusync/dominari/internal/core/store"
	"github.com/zeusync/dominari/pkg/encoding"
)

// Content bounds. Slot sizes count string bytes only, so a value filled to every
// bound can still overflow its slot; the store rejects it with CapacityExceeded.
const (
	StringMaxSize       = 128
	PlayerMaxCards      = 10
	FeatureMaxRank      = 9
	FeatureMaxString    = 32
	DropTableMaxSize    = 32
	OffchainLinkMaxSize = 256
)

// Schema names.
const (
	NameMetadata         = "metadata"
	NameMapMeta          = "mapmeta"
	NameLocation         = "location"
	NameFeature          = "feature"
	NameOwner            = "owner"
	NameValue            = "value"
	NameOccupant         = "occupant"
	NamePlayerStats      = "player_stats"
	NameLastUsed         = "last_used"
	NameFeatureRank      = "feature_rank"
	NameRange            = "range"
	NameDropTable        = "drop_table"
	NameUses             = "uses"
	NameHealingPower     = "healing_power"
	NameHealth           = "health"
	NameDamage           = "damage"
	NameTroopClass       = "troop_class"
	NameActive           = "active"
	NameCost             = "cost"
	NameOffchainMetadata = "offchain_metadata"
)

// Names lists every schema in registration order.
var Names = []string{
	NameMetadata, NameMapMeta, NameLocation, NameFeature, NameOwner,
	NameValue, NameOccupant, NamePlayerStats, NameLastUsed, NameFeatureRank,
	NameRange, NameDropTable, NameUses, NameHealingPower, NameHealth,
	NameDamage, NameTroopClass, NameActive, NameCost, NameOffchainMetadata,
}

// Component is a typed payload with a fixed slot size.
type Component interface {
	encoding.Serializable
	Schema() string
}

// Keys holds the resolved key of every schema.
type Keys struct {
	Metadata         models.ComponentKey
	MapMeta          models.ComponentKey
	Location         models.ComponentKey
	Feature          models.ComponentKey
	Owner            models.ComponentKey
	Value            models.ComponentKey
	Occupant         models.ComponentKey
	PlayerStats      models.ComponentKey
	LastUsed         models.ComponentKey
	FeatureRank      models.ComponentKey
	Range            models.ComponentKey
	DropTable        models.ComponentKey
	Uses             models.ComponentKey
	HealingPower     models.ComponentKey
	Health           models.ComponentKey
	Damage           models.ComponentKey
	TroopClass       models.ComponentKey
	Active           models.ComponentKey
	Cost             models.ComponentKey
	OffchainMetadata models.ComponentKey
}

func (k *Keys) slots() map[string]*models.ComponentKey {
	return map[string]*models.ComponentKey{
		NameMetadata:         &k.Metadata,
		NameMapMeta:          &k.MapMeta,
		NameLocation:         &k.Location,
		NameFeature:          &k.Feature,
		NameOwner:            &k.Owner,
		NameValue:            &k.Value,
		NameOccupant:         &k.Occupant,
		NamePlayerStats:      &k.PlayerStats,
		NameLastUsed:         &k.LastUsed,
		NameFeatureRank:      &k.FeatureRank,
		NameRange:            &k.Range,
		NameDropTable:        &k.DropTable,
		NameUses:             &k.Uses,
		NameHealingPower:     &k.HealingPower,
		NameHealth:           &k.Health,
		NameDamage:           &k.Damage,
		NameTroopClass:       &k.TroopClass,
		NameActive:           &k.Active,
		NameCost:             &k.Cost,
		NameOffchainMetadata: &k.OffchainMetadata,
	}
}

// All returns every key in registration order.
func (k *Keys) All() []models.ComponentKey {
	slots := k.slots()
	out := make([]models.ComponentKey, 0, len(Names))
	for _, name := range Names {
		out = append(out, *slots[name])
	}
	return out
}

// Of returns the key registered for a schema name.
func (k *Keys) Of(name string) (models.ComponentKey, bool) {
	slot, ok := k.slots()[name]
	if !ok {
		return 0, false
	}
	return *slot, true
}

// RegisterAll registers every schema and returns the keys.
func RegisterAll(ctx context.Context, reg registry.SchemaRegistry) (*Keys, error) {
	return collect(func(name string) (models.ComponentKey, error) { return reg.Register(ctx, name) })
}

// ResolveKeys looks up every schema; all must already be registered.
func ResolveKeys(ctx context.Context, reg registry.SchemaRegistry) (*Keys, error) {
	return collect(func(name string) (models.ComponentKey, error) { return reg.Resolve(ctx, name) })
}

func collect(fn func(name string) (models.ComponentKey, error)) (*Keys, error) {
	keys := &Keys{}
	slots := keys.slots()
	for _, name := range Names {
		key, err := fn(name)
		if err != nil {
			return nil, fmt.Errorf("schema %s: %w", name, err)
		}
		*slots[name] = key
	}
	return keys, nil
}

// Decodable is the pointer form of a component type.
type Decodable[T any] interface {
	*T
	Component
	Decode(data []byte) error
}

// Get decodes the component stored under key, reporting false when the entity lacks it.
func Get[T any, PT Decodable[T]](e *models.Entity, key models.ComponentKey) (*T, bool, error) {
	c, ok := e.Components.Get(key)
	if !ok {
		return nil, false, nil
	}
	out := PT(new(T))
	if err := out.Decode(c.Data); err != nil {
		return nil, false, errs.ErrCorrupt.With("entity", uint64(e.ID)).With("schema", out.Schema()).Wrap(err)
	}
	return (*T)(out), true, nil
}

// Must is Get that fails with errs.ErrComponentNotAttached when the component is absent.
func Must[T any, PT Decodable[T]](e *models.Entity, key models.ComponentKey) (*T, error) {
	v, ok, err := Get[T, PT](e, key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errs.ErrComponentNotAttached.With("entity", uint64(e.ID)).With("schema", PT(new(T)).Schema())
	}
	return v, nil
}

// Set attaches c under key with its full slot size.
func Set(set *models.ComponentSet, key models.ComponentKey, c Component) {
	set.Set(key, models.Serialize(c))
}

// Write is the store mutation replacing the payload under key with c.
func Write(key models.ComponentKey, c Component) store.Write {
	return store.Write{Key: key, Data: c.Encode()}
}

func finish(r *encoding.Reader) error {
	if err := r.Finish(); err != nil {
		return errs.ErrCorrupt.Wrap(err)
	}
	return nil
}
