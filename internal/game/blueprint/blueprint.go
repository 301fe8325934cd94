// Package blueprint is the catalog of named component templates new entities
// are instantiated from. Blueprints are immutable once registered.
package blueprint

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zeusync/dominari/internal/core/errs"
	"github.com/zeusync/dominari/internal/core/models"
	"github.com/zeusync/dominari/internal/core/schema/registry"
	"github.com/zeusync/dominari/internal/core/storage"
	"github.com/zeusync/dominari/pkg/encoding"
)

const MaxNameLength = 128

// ProgramAddress owns every blueprint account.
var ProgramAddress = models.DeriveAddress([]byte("blueprint"))

// KeyFor is the key (and account address) of the blueprint called name.
func KeyFor(name string) models.Address {
	return models.DeriveAddress([]byte("blueprint"), []byte(name))
}

type Blueprint struct {
	Name       string
	Components *models.ComponentSet
}

func (b *Blueprint) Key() models.Address {
	return KeyFor(b.Name)
}

func (b *Blueprint) encode() []byte {
	w := encoding.NewWriter(256).String(b.Name).U32(uint32(b.Components.Len()))
	for k, c := range b.Components.All() {
		w.U64(uint64(k)).U64(c.MaxSize).Blob(c.Data)
	}
	return w.Bytes()
}

func decode(data []byte) (*Blueprint, error) {
	r := encoding.NewReader(data)
	b := &Blueprint{Name: r.String(), Components: models.NewComponentSet()}
	n := r.U32()
	for i := uint32(0); i < n && r.Err() == nil; i++ {
		key := models.ComponentKey(r.U64())
		b.Components.Set(key, models.SerializedComponent{MaxSize: r.U64(), Data: r.Blob()})
	}
	if err := r.Finish(); err != nil {
		return nil, errs.ErrCorrupt.Wrap(err)
	}
	return b, nil
}

// Instantiate returns the blueprint's components merged with overrides.
// Overrides win on key conflicts; the blueprint itself is not modified.
func Instantiate(b *Blueprint, overrides *models.ComponentSet) *models.ComponentSet {
	out := b.Components.Clone()
	out.Merge(overrides)
	return out
}

type Catalog struct {
	schemas registry.SchemaRegistry
}

func NewCatalog(schemas registry.SchemaRegistry) *Catalog {
	return &Catalog{schemas: schemas}
}

// Register stores a new blueprint inside tx and returns its key.
func (c *Catalog) Register(tx storage.Tx, name string, components *models.ComponentSet) (models.Address, error) {
	if strings.TrimSpace(name) == "" {
		return models.Address{}, errs.ErrInvalidArgument.With("reason", "empty blueprint name")
	}
	if len(name) > MaxNameLength {
		return models.Address{}, errs.ErrStringTooLong.With("blueprint", name)
	}
	for key, slot := range components.All() {
		ok, err := c.schemas.Registered(tx, key)
		if err != nil {
			return models.Address{}, err
		}
		if !ok {
			return models.Address{}, errs.ErrUnknownComponent.With("blueprint", name).With("key", uint64(key))
		}
		if !slot.Fits() {
			return models.Address{}, errs.ErrCapacityExceeded.With("blueprint", name).With("key", uint64(key))
		}
	}

	b := &Blueprint{Name: name, Components: components.Clone()}
	data := b.encode()
	addr := b.Key()
	if err := tx.Allocate(addr, ProgramAddress, uint64(len(data))); err != nil {
		if errors.Is(err, storage.ErrAccountExists) {
			return models.Address{}, errs.ErrDuplicateBlueprint.With("blueprint", name)
		}
		return models.Address{}, fmt.Errorf("allocate blueprint: %w", err)
	}
	if err := tx.Write(addr, data); err != nil {
		return models.Address{}, err
	}
	return addr, nil
}

func (c *Catalog) Resolve(tx storage.Tx, name string) (*Blueprint, error) {
	b, err := c.ResolveKey(tx, KeyFor(name))
	if errors.Is(err, errs.ErrUnknownBlueprint) {
		return nil, errs.ErrUnknownBlueprint.With("blueprint", name)
	}
	return b, err
}

func (c *Catalog) ResolveKey(tx storage.Tx, key models.Address) (*Blueprint, error) {
	a, err := tx.Read(key)
	if errors.Is(err, storage.ErrAccountNotFound) {
		return nil, errs.ErrUnknownBlueprint.With("key", key.String())
	}
	if err != nil {
		return nil, err
	}
	return decode(a.Data)
}

func (c *Catalog) Exists(tx storage.Tx, key models.Address) (bool, error) {
	return tx.Exists(key)
}
