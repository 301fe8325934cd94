// Package registry maps component schema names to stable keys.
package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/zeusync/dominari/internal/core/errs"
	"github.com/zeusync/dominari/internal/core/events"
	"github.com/zeusync/dominari/internal/core/models"
	"github.com/zeusync/dominari/internal/core/observability/log"
	"github.com/zeusync/dominari/internal/core/storage"
	"github.com/zeusync/dominari/pkg/encoding"
)

// MaxNameLength bounds schema names.
const MaxNameLength = 128

// ProgramAddress owns every registry account.
var ProgramAddress = models.DeriveAddress([]byte("registry"))

type SchemaRegistry interface {
	// Register is idempotent: a known name returns its existing key.
	Register(ctx context.Context, name string) (models.ComponentKey, error)
	Resolve(ctx context.Context, name string) (models.ComponentKey, error)
	ResolveName(ctx context.Context, key models.ComponentKey) (string, error)
	// Registered reports whether key is known, reading through tx.
	Registered(tx storage.Tx, key models.ComponentKey) (bool, error)
}

// KeyFor is the key a name is registered under.
func KeyFor(name string) models.ComponentKey {
	return models.ComponentKey(xxhash.Sum64String(name))
}

func nameAddress(name string) models.Address {
	return models.DeriveAddress([]byte("component"), []byte(name))
}

func keyAddress(key models.ComponentKey) models.Address {
	return models.DeriveAddress([]byte("component_key"), models.U64Seed(uint64(key)))
}

var _ SchemaRegistry = (*Registry)(nil)

type Registry struct {
	sub       storage.Substrate
	publisher events.Publisher
	logger    log.Log

	mu    sync.RWMutex
	names map[models.ComponentKey]string
}

func New(sub storage.Substrate, publisher events.Publisher, logger log.Log) *Registry {
	return &Registry{
		sub:       sub,
		publisher: publisher,
		logger:    logger.With(log.String("component", "schema_registry")),
		names:     make(map[models.ComponentKey]string),
	}
}

func (r *Registry) cached(key models.ComponentKey) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	name, ok := r.names[key]
	return name, ok
}

func (r *Registry) remember(key models.ComponentKey, name string) {
	r.mu.Lock()
	r.names[key] = name
	r.mu.Unlock()
}

func (r *Registry) Register(ctx context.Context, name string) (models.ComponentKey, error) {
	if strings.TrimSpace(name) == "" {
		return 0, errs.ErrInvalidArgument.With("reason", "empty schema name")
	}
	if len(name) > MaxNameLength {
		return 0, errs.ErrStringTooLong.With("name", name)
	}

	key := KeyFor(name)
	if known, ok := r.cached(key); ok {
		if known != name {
			return 0, errs.ErrKeyCollision.With("name", name).With("existing", known)
		}
		return key, nil
	}

	created := false
	err := storage.Update(ctx, r.sub, func(tx storage.Tx) error {
		existing, err := readName(tx, key)
		switch {
		case err == nil && existing == name:
			return nil
		case err == nil:
			return errs.ErrKeyCollision.With("name", name).With("existing", existing)
		case !errors.Is(err, errs.ErrUnknownComponent):
			return err
		}

		if err := tx.Allocate(nameAddress(name), ProgramAddress, encoding.SizeU64); err != nil {
			return fmt.Errorf("allocate schema account: %w", err)
		}
		if err := tx.Write(nameAddress(name), encoding.NewWriter(encoding.SizeU64).U64(uint64(key)).Bytes()); err != nil {
			return err
		}

		payload := encoding.NewWriter(encoding.SizeLen + len(name)).String(name).Bytes()
		if err := tx.Allocate(keyAddress(key), ProgramAddress, uint64(len(payload))); err != nil {
			return fmt.Errorf("allocate schema key account: %w", err)
		}
		if err := tx.Write(keyAddress(key), payload); err != nil {
			return err
		}
		created = true
		return nil
	})
	if err != nil {
		return 0, err
	}

	r.remember(key, name)
	if created {
		r.logger.Info("Component registered", log.String("name", name), log.Uint64("key", uint64(key)))
		r.publisher.Publish(ctx, events.NewComponentRegistered{Key: key, Name: name})
	}
	return key, nil
}

func (r *Registry) Resolve(ctx context.Context, name string) (models.ComponentKey, error) {
	key := KeyFor(name)
	if known, ok := r.cached(key); ok && known == name {
		return key, nil
	}
	err := storage.View(ctx, r.sub, func(tx storage.Tx) error {
		existing, err := readName(tx, key)
		if err != nil {
			return err
		}
		if existing != name {
			return errs.ErrUnknownComponent.With("name", name)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, errs.ErrUnknownComponent) {
			return 0, errs.ErrUnknownComponent.With("name", name)
		}
		return 0, err
	}
	r.remember(key, name)
	return key, nil
}

func (r *Registry) ResolveName(ctx context.Context, key models.ComponentKey) (string, error) {
	if name, ok := r.cached(key); ok {
		return name, nil
	}
	var name string
	err := storage.View(ctx, r.sub, func(tx storage.Tx) error {
		var err error
		name, err = readName(tx, key)
		return err
	})
	if err != nil {
		return "", err
	}
	r.remember(key, name)
	return name, nil
}

func (r *Registry) Registered(tx storage.Tx, key models.ComponentKey) (bool, error) {
	if _, ok := r.cached(key); ok {
		return true, nil
	}
	return tx.Exists(keyAddress(key))
}

func readName(tx storage.Tx, key models.ComponentKey) (string, error) {
	a, err := tx.Read(keyAddress(key))
	if errors.Is(err, storage.ErrAccountNotFound) {
		return "", errs.ErrUnknownComponent.With("key", uint64(key))
	}
	if err != nil {
		return "", err
	}
	r := encoding.NewReader(a.Data)
	name := r.String()
	if err := r.Finish(); err != nil {
		return "", errs.ErrCorrupt.Wrap(err)
	}
	return name, nil
}
