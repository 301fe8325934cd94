// Package storage is the account substrate entities, schemas and bundles live in.
// Every mutation happens inside a Tx; a Substrate serializes transactions so
// each one observes and produces a consistent state.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/zeusync/dominari/internal/core/models"
)

var (
	ErrAccountExists   = errors.New("storage: account already exists")
	ErrAccountNotFound = errors.New("storage: account not found")
	ErrTxDone          = errors.New("storage: transaction already finished")
	ErrClosed          = errors.New("storage: substrate closed")
	ErrShrink          = errors.New("storage: accounts never shrink")
)

// Account is a fixed-capacity byte region owned by a program address.
type Account struct {
	Owner    models.Address
	Capacity uint64
	Data     []byte
}

type Substrate interface {
	Begin(ctx context.Context) (Tx, error)
	Close() error
}

type Tx interface {
	Read(addr models.Address) (Account, error)
	Exists(addr models.Address) (bool, error)
	// Allocate creates an empty account of the given capacity.
	Allocate(addr models.Address, owner models.Address, capacity uint64) error
	// Write replaces the account payload; it fails with errs.ErrCapacityExceeded
	// when data is longer than the account capacity.
	Write(addr models.Address, data []byte) error
	// Resize grows the account to capacity. It never shrinks.
	Resize(addr models.Address, capacity uint64) error

	Commit() error
	Rollback() error
}

// Update runs fn in a transaction and commits when fn returns nil.
func Update(ctx context.Context, sub Substrate, fn func(Tx) error) error {
	tx, err := sub.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, ErrTxDone) {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}
	committed = true
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// View runs fn in a transaction that is always rolled back.
func View(ctx context.Context, sub Substrate, fn func(Tx) error) error {
	tx, err := sub.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	return fn(tx)
}
