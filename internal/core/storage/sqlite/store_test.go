package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zeusync/dominari/internal/core/errs"
	"github.com/zeusync/dominari/internal/core/models"
	"github.com/zeusync/dominari/internal/core/storage"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "dominari.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStoreAccounts(t *testing.T) {
	ctx := context.Background()
	owner := models.DeriveAddress([]byte("owner"))
	addr := models.DeriveAddress([]byte("account"))

	t.Run("allocate write read", func(t *testing.T) {
		s := openTestStore(t)
		require.NoError(t, storage.Update(ctx, s, func(tx storage.Tx) error {
			require.NoError(t, tx.Allocate(addr, owner, 8))
			return tx.Write(addr, []byte("abc"))
		}))

		require.NoError(t, storage.View(ctx, s, func(tx storage.Tx) error {
			ok, err := tx.Exists(addr)
			require.NoError(t, err)
			require.True(t, ok)

			a, err := tx.Read(addr)
			require.NoError(t, err)
			require.Equal(t, []byte("abc"), a.Data)
			require.Equal(t, uint64(8), a.Capacity)
			require.Equal(t, owner, a.Owner)
			return nil
		}))
	})

	t.Run("duplicate allocate", func(t *testing.T) {
		s := openTestStore(t)
		err := storage.Update(ctx, s, func(tx storage.Tx) error {
			require.NoError(t, tx.Allocate(addr, owner, 8))
			return tx.Allocate(addr, owner, 8)
		})
		require.ErrorIs(t, err, storage.ErrAccountExists)
	})

	t.Run("rollback discards", func(t *testing.T) {
		s := openTestStore(t)
		err := storage.Update(ctx, s, func(tx storage.Tx) error {
			require.NoError(t, tx.Allocate(addr, owner, 1))
			return tx.Write(addr, []byte("too long"))
		})
		require.ErrorIs(t, err, errs.ErrCapacityExceeded)

		require.NoError(t, storage.View(ctx, s, func(tx storage.Tx) error {
			ok, err := tx.Exists(addr)
			require.NoError(t, err)
			require.False(t, ok)
			return nil
		}))
	})

	t.Run("resize", func(t *testing.T) {
		s := openTestStore(t)
		require.NoError(t, storage.Update(ctx, s, func(tx storage.Tx) error {
			require.NoError(t, tx.Allocate(addr, owner, 1))
			require.ErrorIs(t, tx.Resize(addr, 0), storage.ErrShrink)
			require.NoError(t, tx.Resize(addr, 3))
			return tx.Write(addr, []byte("abc"))
		}))
	})

	t.Run("missing account", func(t *testing.T) {
		s := openTestStore(t)
		require.NoError(t, storage.View(ctx, s, func(tx storage.Tx) error {
			_, err := tx.Read(addr)
			require.ErrorIs(t, err, storage.ErrAccountNotFound)
			return nil
		}))
	})

	t.Run("migrations are idempotent", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "again.db")
		first, err := Open(ctx, path)
		require.NoError(t, err)
		require.NoError(t, first.Close())

		second, err := Open(ctx, path)
		require.NoError(t, err)
		require.NoError(t, second.Close())
	})
}

func TestExtractUp(t *testing.T) {
	require.Equal(t, "\nCREATE x;\n", extractUp("-- +migrate Up\nCREATE x;\n-- +migrate Down\nDROP x;"))
	require.Equal(t, "SELECT 1;", extractUp("SELECT 1;"))
}
