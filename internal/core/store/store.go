// Package store is the entity/component store. Entities are never deleted;
// their capacity only grows through Reallocate.
package store

import (
	"errors"
	"fmt"
	"slices"

	"github.com/zeusync/dominari/internal/core/bundle"
	"github.com/zeusync/dominari/internal/core/errs"
	"github.com/zeusync/dominari/internal/core/models"
	"github.com/zeusync/dominari/internal/core/observability/log"
	"github.com/zeusync/dominari/internal/core/schema/registry"
	"github.com/zeusync/dominari/internal/core/storage"
)

// ProgramAddress owns every entity account.
var ProgramAddress = models.DeriveAddress([]byte("store"))

// EntityAddress is the account of entity id inside instance.
func EntityAddress(instance models.InstanceID, id models.EntityID) models.Address {
	return models.DeriveAddress([]byte("entity"), models.U64Seed(uint64(instance)), models.U64Seed(uint64(id)))
}

// Write replaces the payload of one attached component.
type Write struct {
	Key  models.ComponentKey
	Data []byte
}

type Store struct {
	schemas registry.SchemaRegistry
	logger  log.Log
}

func New(schemas registry.SchemaRegistry, logger log.Log) *Store {
	return &Store{schemas: schemas, logger: logger.With(log.String("component", "store"))}
}

// Create allocates a new entity sized for components. Every component must be
// registered, writable by signer inside instance, and fit its slot.
func (s *Store) Create(
	tx storage.Tx,
	signer, payer models.Address,
	instance models.InstanceID,
	id models.EntityID,
	components *models.ComponentSet,
) (*models.Entity, error) {
	addr := EntityAddress(instance, id)
	exists, err := tx.Exists(addr)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, errs.ErrDuplicateEntity.With("instance", uint64(instance)).With("entity", uint64(id))
	}

	for key, c := range components.All() {
		if err := s.admit(tx, signer, instance, key, c); err != nil {
			return nil, err
		}
	}

	e := &models.Entity{ID: id, Instance: instance, Components: components.Clone()}
	if err := tx.Allocate(addr, ProgramAddress, e.Capacity()); err != nil {
		if errors.Is(err, storage.ErrAccountExists) {
			return nil, errs.ErrDuplicateEntity.With("instance", uint64(instance)).With("entity", uint64(id))
		}
		return nil, fmt.Errorf("allocate entity: %w", err)
	}
	if err := tx.Write(addr, e.Marshal()); err != nil {
		return nil, err
	}

	s.logger.Debug("Entity created",
		log.Uint64("instance", uint64(instance)),
		log.Uint64("entity", uint64(id)),
		log.Stringer("payer", payer),
		log.Uint64("capacity", e.Capacity()),
	)
	return e, nil
}

func (s *Store) admit(tx storage.Tx, signer models.Address, instance models.InstanceID, key models.ComponentKey, c models.SerializedComponent) error {
	ok, err := s.schemas.Registered(tx, key)
	if err != nil {
		return err
	}
	if !ok {
		return errs.ErrUnknownComponent.With("key", uint64(key))
	}
	if err := bundle.Check(tx, signer, instance, key); err != nil {
		return err
	}
	if !c.Fits() {
		return errs.ErrCapacityExceeded.With("key", uint64(key)).With("size", len(c.Data)).With("max_size", c.MaxSize)
	}
	return nil
}

// Load reads the full record of an entity.
func (s *Store) Load(tx storage.Tx, instance models.InstanceID, id models.EntityID) (*models.Entity, error) {
	a, err := tx.Read(EntityAddress(instance, id))
	if errors.Is(err, storage.ErrAccountNotFound) {
		return nil, errs.ErrEntityNotFound.With("instance", uint64(instance)).With("entity", uint64(id))
	}
	if err != nil {
		return nil, err
	}
	e, err := models.UnmarshalEntity(a.Data)
	if err != nil {
		return nil, err
	}
	if e.ID != id || e.Instance != instance {
		return nil, errs.ErrCorrupt.With("instance", uint64(instance)).With("entity", uint64(id))
	}
	return e, nil
}

// Get returns the payload of one component, and false when it is not attached.
func (s *Store) Get(tx storage.Tx, instance models.InstanceID, id models.EntityID, key models.ComponentKey) ([]byte, bool, error) {
	e, err := s.Load(tx, instance, id)
	if err != nil {
		return nil, false, err
	}
	c, ok := e.Components.Get(key)
	if !ok {
		return nil, false, nil
	}
	return c.Data, true, nil
}

// Put replaces the payloads of attached components. All writes are checked
// before any is applied.
func (s *Store) Put(tx storage.Tx, signer models.Address, instance models.InstanceID, id models.EntityID, writes ...Write) error {
	e, err := s.Load(tx, instance, id)
	if err != nil {
		return err
	}
	for _, w := range writes {
		c, ok := e.Components.Get(w.Key)
		if !ok {
			return errs.ErrComponentNotAttached.With("entity", uint64(id)).With("key", uint64(w.Key))
		}
		if uint64(len(w.Data)) > c.MaxSize {
			return errs.ErrCapacityExceeded.With("key", uint64(w.Key)).With("size", len(w.Data)).With("max_size", c.MaxSize)
		}
		if err := bundle.Check(tx, signer, instance, w.Key); err != nil {
			return err
		}
	}
	for _, w := range writes {
		c, _ := e.Components.Get(w.Key)
		e.Components.Set(w.Key, models.SerializedComponent{MaxSize: c.MaxSize, Data: slices.Clone(w.Data)})
	}
	return tx.Write(EntityAddress(instance, id), e.Marshal())
}

// Reallocate attaches components that are not yet present and grows the
// entity account by their slot sizes. payer funds the growth.
func (s *Store) Reallocate(
	tx storage.Tx,
	signer, payer models.Address,
	instance models.InstanceID,
	id models.EntityID,
	components *models.ComponentSet,
) error {
	e, err := s.Load(tx, instance, id)
	if err != nil {
		return err
	}
	for key, c := range components.All() {
		if e.Components.Has(key) {
			return errs.ErrInvalidArgument.With("reason", "component already attached").With("key", uint64(key))
		}
		if err := s.admit(tx, signer, instance, key, c); err != nil {
			return err
		}
	}
	e.Components.Merge(components)

	addr := EntityAddress(instance, id)
	if err := tx.Resize(addr, e.Capacity()); err != nil {
		return fmt.Errorf("grow entity: %w", err)
	}
	s.logger.Debug("Entity reallocated",
		log.Uint64("instance", uint64(instance)),
		log.Uint64("entity", uint64(id)),
		log.Stringer("payer", payer),
		log.Uint64("capacity", e.Capacity()),
	)
	return tx.Write(addr, e.Marshal())
}

// Reclaim is accepted and ignored: entities are never deleted.
func (s *Store) Reclaim(storage.Tx, models.InstanceID, models.EntityID) error {
	return nil
}
