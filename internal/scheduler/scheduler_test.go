package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zeusync/dominari/internal/core/errs"
	"github.com/zeusync/dominari/internal/core/events"
	"github.com/zeusync/dominari/internal/core/events/bus"
	"github.com/zeusync/dominari/internal/core/models"
	"github.com/zeusync/dominari/internal/core/observability/log"
	"github.com/zeusync/dominari/internal/game/engine"
)

type fakeGranter struct {
	mu     sync.Mutex
	calls  map[models.InstanceID]int
	errors map[models.InstanceID]error
}

func newFakeGranter() *fakeGranter {
	return &fakeGranter{calls: map[models.InstanceID]int{}, errors: map[models.InstanceID]error{}}
}

func (g *fakeGranter) GrantKOTHScore(_ context.Context, instance models.InstanceID) (engine.Grant, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls[instance]++
	if err := g.errors[instance]; err != nil {
		return engine.Grant{}, err
	}
	player := models.EntityID(1)
	return engine.Grant{Due: true, Player: &player, Points: 10}, nil
}

func (g *fakeGranter) count(instance models.InstanceID) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[instance]
}

func TestTick(t *testing.T) {
	ctx := context.Background()
	granter := newFakeGranter()
	granter.errors[2] = errs.ErrInvalidGameMode
	granter.errors[3] = errs.ErrInstanceNotFound.With("instance", 3)
	granter.errors[4] = errs.ErrCorrupt

	s := New(granter, bus.New(), Config{}, log.NewNop())
	for _, id := range []models.InstanceID{4, 1, 3, 2} {
		s.Track(id)
	}
	require.Equal(t, []models.InstanceID{1, 2, 3, 4}, s.Instances())

	s.Tick(ctx)

	t.Run("every instance is called", func(t *testing.T) {
		for _, id := range []models.InstanceID{1, 2, 3, 4} {
			require.Equal(t, 1, granter.count(id))
		}
	})

	t.Run("non koth and missing instances leave", func(t *testing.T) {
		require.Equal(t, []models.InstanceID{1, 4}, s.Instances())
	})

	t.Run("cancelled context stops the round", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		s.Tick(cancelled)
		require.Equal(t, 1, granter.count(1))
	})
}

func TestRun(t *testing.T) {
	granter := newFakeGranter()
	b := bus.New()
	s := New(granter, b, Config{Interval: 5 * time.Millisecond}, log.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool {
		return b.GetMetrics().SubscribersActive == 1
	}, time.Second, time.Millisecond)

	require.NoError(t, b.Publish(events.NewWorldInstance{Instance: 9}))
	require.Equal(t, []models.InstanceID{9}, s.Instances())

	require.Eventually(t, func() bool { return granter.count(9) >= 2 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
	require.Zero(t, b.GetMetrics().SubscribersActive)
}
