package storage

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zeusync/dominari/internal/core/errs"
	"github.com/zeusync/dominari/internal/core/models"
)

func TestMemoryTransactions(t *testing.T) {
	ctx := context.Background()
	owner := models.DeriveAddress([]byte("owner"))
	addr := models.DeriveAddress([]byte("account"))

	t.Run("commit publishes writes", func(t *testing.T) {
		m := NewMemory()
		require.NoError(t, Update(ctx, m, func(tx Tx) error {
			require.NoError(t, tx.Allocate(addr, owner, 4))
			return tx.Write(addr, []byte{1, 2, 3})
		}))

		require.NoError(t, View(ctx, m, func(tx Tx) error {
			a, err := tx.Read(addr)
			require.NoError(t, err)
			require.Equal(t, []byte{1, 2, 3}, a.Data)
			require.Equal(t, uint64(4), a.Capacity)
			require.Equal(t, owner, a.Owner)
			return nil
		}))
	})

	t.Run("error rolls back", func(t *testing.T) {
		m := NewMemory()
		boom := errors.New("boom")
		err := Update(ctx, m, func(tx Tx) error {
			require.NoError(t, tx.Allocate(addr, owner, 4))
			return boom
		})
		require.ErrorIs(t, err, boom)
		require.Zero(t, m.Len())
	})

	t.Run("panic rolls back and releases the substrate", func(t *testing.T) {
		m := NewMemory()
		require.Panics(t, func() {
			_ = Update(ctx, m, func(tx Tx) error {
				require.NoError(t, tx.Allocate(addr, owner, 4))
				panic("boom")
			})
		})

		done := make(chan error, 1)
		go func() {
			done <- Update(ctx, m, func(tx Tx) error { return tx.Allocate(addr, owner, 4) })
		}()
		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Fatal("substrate still locked after panic")
		}
		require.Equal(t, 1, m.Len())
	})

	t.Run("capacity is enforced", func(t *testing.T) {
		m := NewMemory()
		err := Update(ctx, m, func(tx Tx) error {
			require.NoError(t, tx.Allocate(addr, owner, 2))
			return tx.Write(addr, []byte{1, 2, 3})
		})
		require.ErrorIs(t, err, errs.ErrCapacityExceeded)
	})

	t.Run("resize only grows", func(t *testing.T) {
		m := NewMemory()
		require.NoError(t, Update(ctx, m, func(tx Tx) error {
			require.NoError(t, tx.Allocate(addr, owner, 2))
			require.NoError(t, tx.Resize(addr, 3))
			require.ErrorIs(t, tx.Resize(addr, 1), ErrShrink)
			return tx.Write(addr, []byte{1, 2, 3})
		}))
	})

	t.Run("allocate twice fails", func(t *testing.T) {
		m := NewMemory()
		err := Update(ctx, m, func(tx Tx) error {
			require.NoError(t, tx.Allocate(addr, owner, 2))
			return tx.Allocate(addr, owner, 2)
		})
		require.ErrorIs(t, err, ErrAccountExists)
	})

	t.Run("finished tx rejects use", func(t *testing.T) {
		m := NewMemory()
		tx, err := m.Begin(ctx)
		require.NoError(t, err)
		require.NoError(t, tx.Commit())
		require.ErrorIs(t, tx.Rollback(), ErrTxDone)
		_, err = tx.Read(addr)
		require.ErrorIs(t, err, ErrTxDone)
	})

	t.Run("closed substrate", func(t *testing.T) {
		m := NewMemory()
		require.NoError(t, m.Close())
		_, err := m.Begin(ctx)
		require.ErrorIs(t, err, ErrClosed)
	})
}

func TestMemorySerializesWriters(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	owner := models.Address{}
	addr := models.DeriveAddress([]byte("counter"))
	require.NoError(t, Update(ctx, m, func(tx Tx) error {
		require.NoError(t, tx.Allocate(addr, owner, 1))
		return tx.Write(addr, []byte{0})
	}))

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = Update(ctx, m, func(tx Tx) error {
				a, err := tx.Read(addr)
				if err != nil {
					return err
				}
				return tx.Write(addr, []byte{a.Data[0] + 1})
			})
		}()
	}
	wg.Wait()

	require.NoError(t, View(ctx, m, func(tx Tx) error {
		a, err := tx.Read(addr)
		require.NoError(t, err)
		require.Equal(t, byte(50), a.Data[0])
		return nil
	}))
}
