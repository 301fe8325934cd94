package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zeusync/dominari/internal/core/errs"
	"github.com/zeusync/dominari/internal/core/events"
	"github.com/zeusync/dominari/internal/core/observability/log"
	"github.com/zeusync/dominari/internal/core/storage"
)

func newTestRegistry(t *testing.T) (*Registry, *storage.Memory, *events.Recorder) {
	t.Helper()
	sub := storage.NewMemory()
	rec := &events.Recorder{}
	return New(sub, rec, log.NewNop()), sub, rec
}

func TestRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("idempotent", func(t *testing.T) {
		r, _, rec := newTestRegistry(t)
		first, err := r.Register(ctx, "health")
		require.NoError(t, err)
		second, err := r.Register(ctx, "health")
		require.NoError(t, err)

		require.Equal(t, first, second)
		require.Equal(t, KeyFor("health"), first)
		require.Len(t, events.OfType[events.NewComponentRegistered](rec), 1)
	})

	t.Run("idempotent across instances sharing a substrate", func(t *testing.T) {
		r, sub, rec := newTestRegistry(t)
		key, err := r.Register(ctx, "damage")
		require.NoError(t, err)

		fresh := New(sub, rec, log.NewNop())
		again, err := fresh.Register(ctx, "damage")
		require.NoError(t, err)
		require.Equal(t, key, again)
		require.Len(t, rec.Events(), 1)
	})

	t.Run("distinct names get distinct keys", func(t *testing.T) {
		r, _, _ := newTestRegistry(t)
		a, err := r.Register(ctx, "location")
		require.NoError(t, err)
		b, err := r.Register(ctx, "occupant")
		require.NoError(t, err)
		require.NotEqual(t, a, b)
	})

	t.Run("rejects bad names", func(t *testing.T) {
		r, _, _ := newTestRegistry(t)
		_, err := r.Register(ctx, " ")
		require.ErrorIs(t, err, errs.ErrInvalidArgument)

		long := make([]byte, MaxNameLength+1)
		for i := range long {
			long[i] = 'a'
		}
		_, err = r.Register(ctx, string(long))
		require.ErrorIs(t, err, errs.ErrStringTooLong)
	})
}

func TestResolve(t *testing.T) {
	ctx := context.Background()
	r, sub, _ := newTestRegistry(t)
	key, err := r.Register(ctx, "metadata")
	require.NoError(t, err)

	t.Run("by name", func(t *testing.T) {
		got, err := r.Resolve(ctx, "metadata")
		require.NoError(t, err)
		require.Equal(t, key, got)
	})

	t.Run("by key from a cold cache", func(t *testing.T) {
		cold := New(sub, events.Nop{}, log.NewNop())
		name, err := cold.ResolveName(ctx, key)
		require.NoError(t, err)
		require.Equal(t, "metadata", name)
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := r.Resolve(ctx, "nope")
		require.ErrorIs(t, err, errs.ErrUnknownComponent)
		_, err = r.ResolveName(ctx, KeyFor("nope"))
		require.ErrorIs(t, err, errs.ErrUnknownComponent)
	})

	t.Run("registered inside tx", func(t *testing.T) {
		cold := New(sub, events.Nop{}, log.NewNop())
		require.NoError(t, storage.View(ctx, sub, func(tx storage.Tx) error {
			ok, err := cold.Registered(tx, key)
			require.NoError(t, err)
			require.True(t, ok)

			ok, err = cold.Registered(tx, KeyFor("nope"))
			require.NoError(t, err)
			require.False(t, ok)
			return nil
		}))
	})
}
