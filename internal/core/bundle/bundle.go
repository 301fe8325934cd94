// Package bundle implements action-bundle authorization: a bundle is a signer
// that may write a fixed set of component keys inside the world instances it
// created.
package bundle

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/zeusync/dominari/internal/core/errs"
	"github.com/zeusync/dominari/internal/core/events"
	"github.com/zeusync/dominari/internal/core/models"
	"github.com/zeusync/dominari/internal/core/observability/log"
	"github.com/zeusync/dominari/internal/core/schema/registry"
	"github.com/zeusync/dominari/internal/core/storage"
	"github.com/zeusync/dominari/pkg/encoding"
)

// ProgramAddress owns every bundle account.
var ProgramAddress = models.DeriveAddress([]byte("bundle"))

// Address is where the permission record of authority lives.
func Address(authority models.Address) models.Address {
	return models.DeriveAddress([]byte("action_bundle"), authority[:])
}

// SignerFor derives the signing authority of a named bundle.
func SignerFor(name string) models.Address {
	return models.DeriveAddress([]byte("ab_signer"), []byte(name))
}

// Bundle is the permission record. Keys and Instances are kept sorted.
type Bundle struct {
	Authority models.Address
	Keys      []models.ComponentKey
	Instances []models.InstanceID
}

func (b *Bundle) Allows(key models.ComponentKey) bool {
	_, ok := slices.BinarySearch(b.Keys, key)
	return ok
}

func (b *Bundle) Bound(instance models.InstanceID) bool {
	_, ok := slices.BinarySearch(b.Instances, instance)
	return ok
}

func (b *Bundle) size() int {
	return encoding.SizeAddress + 2*encoding.SizeLen + encoding.SizeU64*(len(b.Keys)+len(b.Instances))
}

func (b *Bundle) encode() []byte {
	w := encoding.NewWriter(b.size())
	w.Raw(b.Authority[:])
	w.U32(uint32(len(b.Keys)))
	for _, k := range b.Keys {
		w.U64(uint64(k))
	}
	w.U32(uint32(len(b.Instances)))
	for _, i := range b.Instances {
		w.U64(uint64(i))
	}
	return w.Bytes()
}

func decode(data []byte) (*Bundle, error) {
	r := encoding.NewReader(data)
	b := &Bundle{}
	copy(b.Authority[:], r.Raw(encoding.SizeAddress))
	n := r.U32()
	for i := uint32(0); i < n && r.Err() == nil; i++ {
		b.Keys = append(b.Keys, models.ComponentKey(r.U64()))
	}
	n = r.U32()
	for i := uint32(0); i < n && r.Err() == nil; i++ {
		b.Instances = append(b.Instances, models.InstanceID(r.U64()))
	}
	if err := r.Finish(); err != nil {
		return nil, errs.ErrCorrupt.Wrap(err)
	}
	return b, nil
}

type Registry struct {
	sub       storage.Substrate
	schemas   registry.SchemaRegistry
	publisher events.Publisher
	logger    log.Log
}

func New(sub storage.Substrate, schemas registry.SchemaRegistry, publisher events.Publisher, logger log.Log) *Registry {
	return &Registry{
		sub:       sub,
		schemas:   schemas,
		publisher: publisher,
		logger:    logger.With(log.String("component", "bundle")),
	}
}

// Register creates an empty bundle for authority. Registering again is a no-op.
func (r *Registry) Register(ctx context.Context, authority models.Address) error {
	return storage.Update(ctx, r.sub, func(tx storage.Tx) error {
		addr := Address(authority)
		ok, err := tx.Exists(addr)
		if err != nil || ok {
			return err
		}
		b := &Bundle{Authority: authority}
		data := b.encode()
		if err := tx.Allocate(addr, ProgramAddress, uint64(len(data))); err != nil {
			return fmt.Errorf("allocate bundle: %w", err)
		}
		return tx.Write(addr, data)
	})
}

// Grant adds keys to the permitted set. Every key must already be registered.
func (r *Registry) Grant(ctx context.Context, authority models.Address, keys ...models.ComponentKey) error {
	var added []models.ComponentKey
	err := storage.Update(ctx, r.sub, func(tx storage.Tx) error {
		b, err := Load(tx, authority)
		if err != nil {
			return err
		}
		for _, key := range keys {
			ok, err := r.schemas.Registered(tx, key)
			if err != nil {
				return err
			}
			if !ok {
				return errs.ErrUnknownComponent.With("key", uint64(key))
			}
			i, found := slices.BinarySearch(b.Keys, key)
			if found {
				continue
			}
			b.Keys = slices.Insert(b.Keys, i, key)
			added = append(added, key)
		}
		if len(added) == 0 {
			return nil
		}
		return save(tx, b)
	})
	if err != nil {
		return err
	}
	if len(added) > 0 {
		r.logger.Info("Bundle granted", log.Stringer("authority", authority), log.Int("keys", len(added)))
		r.publisher.Publish(ctx, events.NewSystemRegistration{Authority: authority, Keys: added})
	}
	return nil
}

// Permitted reports whether authority may write key in at least its own instances.
func (r *Registry) Permitted(ctx context.Context, authority models.Address, key models.ComponentKey) (bool, error) {
	var ok bool
	err := storage.View(ctx, r.sub, func(tx storage.Tx) error {
		b, err := Load(tx, authority)
		if errors.Is(err, errs.ErrBundleNotRegistered) {
			return nil
		}
		if err != nil {
			return err
		}
		ok = b.Allows(key)
		return nil
	})
	return ok, err
}

// Load reads the bundle of authority inside tx.
func Load(tx storage.Tx, authority models.Address) (*Bundle, error) {
	a, err := tx.Read(Address(authority))
	if errors.Is(err, storage.ErrAccountNotFound) {
		return nil, errs.ErrBundleNotRegistered.With("authority", authority.String())
	}
	if err != nil {
		return nil, err
	}
	return decode(a.Data)
}

// BindInstance scopes authority to instance. Called when the bundle creates a world instance.
func BindInstance(tx storage.Tx, authority models.Address, instance models.InstanceID) error {
	b, err := Load(tx, authority)
	if err != nil {
		return err
	}
	i, found := slices.BinarySearch(b.Instances, instance)
	if found {
		return nil
	}
	b.Instances = slices.Insert(b.Instances, i, instance)
	return save(tx, b)
}

// Check fails with errs.ErrUnauthorized unless authority may write key inside instance.
func Check(tx storage.Tx, authority models.Address, instance models.InstanceID, key models.ComponentKey) error {
	b, err := Load(tx, authority)
	if errors.Is(err, errs.ErrBundleNotRegistered) {
		return errs.ErrUnauthorized.With("key", uint64(key)).Wrap(err)
	}
	if err != nil {
		return err
	}
	if !b.Allows(key) || !b.Bound(instance) {
		return errs.ErrUnauthorized.
			With("authority", authority.String()).
			With("instance", uint64(instance)).
			With("key", uint64(key))
	}
	return nil
}

func save(tx storage.Tx, b *Bundle) error {
	addr := Address(b.Authority)
	data := b.encode()
	a, err := tx.Read(addr)
	if err != nil {
		return err
	}
	if uint64(len(data)) > a.Capacity {
		if err := tx.Resize(addr, uint64(len(data))); err != nil {
			return fmt.Errorf("grow bundle: %w", err)
		}
	}
	return tx.Write(addr, data)
}
