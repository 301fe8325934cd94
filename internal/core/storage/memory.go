package storage

import (
	"context"
	"slices"
	"sync"

	"github.com/zeusync/dominari/internal/core/errs"
	"github.com/zeusync/dominari/internal/core/models"
)

var _ Substrate = (*Memory)(nil)

// Memory keeps accounts in a map. A transaction holds the substrate lock from
// Begin until Commit or Rollback, so transactions never interleave.
type Memory struct {
	mu       sync.Mutex
	accounts map[models.Address]Account
	closed   bool
}

func NewMemory() *Memory {
	return &Memory{accounts: make(map[models.Address]Account)}
}

func (m *Memory) Begin(ctx context.Context) (Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrClosed
	}
	return &memoryTx{m: m, staged: make(map[models.Address]Account)}, nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Len reports the number of committed accounts.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.accounts)
}

type memoryTx struct {
	m      *Memory
	staged map[models.Address]Account
	done   bool
}

func (tx *memoryTx) lookup(addr models.Address) (Account, bool) {
	if a, ok := tx.staged[addr]; ok {
		return a, true
	}
	a, ok := tx.m.accounts[addr]
	return a, ok
}

func (tx *memoryTx) Read(addr models.Address) (Account, error) {
	if tx.done {
		return Account{}, ErrTxDone
	}
	a, ok := tx.lookup(addr)
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	a.Data = slices.Clone(a.Data)
	return a, nil
}

func (tx *memoryTx) Exists(addr models.Address) (bool, error) {
	if tx.done {
		return false, ErrTxDone
	}
	_, ok := tx.lookup(addr)
	return ok, nil
}

func (tx *memoryTx) Allocate(addr models.Address, owner models.Address, capacity uint64) error {
	if tx.done {
		return ErrTxDone
	}
	if _, ok := tx.lookup(addr); ok {
		return ErrAccountExists
	}
	tx.staged[addr] = Account{Owner: owner, Capacity: capacity, Data: []byte{}}
	return nil
}

func (tx *memoryTx) Write(addr models.Address, data []byte) error {
	if tx.done {
		return ErrTxDone
	}
	a, ok := tx.lookup(addr)
	if !ok {
		return ErrAccountNotFound
	}
	if uint64(len(data)) > a.Capacity {
		return errs.ErrCapacityExceeded.With("capacity", a.Capacity).With("size", len(data))
	}
	a.Data = slices.Clone(data)
	tx.staged[addr] = a
	return nil
}

func (tx *memoryTx) Resize(addr models.Address, capacity uint64) error {
	if tx.done {
		return ErrTxDone
	}
	a, ok := tx.lookup(addr)
	if !ok {
		return ErrAccountNotFound
	}
	if capacity < a.Capacity {
		return ErrShrink
	}
	a.Capacity = capacity
	tx.staged[addr] = a
	return nil
}

func (tx *memoryTx) Commit() error {
	if tx.done {
		return ErrTxDone
	}
	for addr, a := range tx.staged {
		tx.m.accounts[addr] = a
	}
	tx.finish()
	return nil
}

func (tx *memoryTx) Rollback() error {
	if tx.done {
		return ErrTxDone
	}
	tx.finish()
	return nil
}

func (tx *memoryTx) finish() {
	tx.done = true
	tx.staged = nil
	tx.m.mu.Unlock()
}
