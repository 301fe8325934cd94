package injector

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zeusync/dominari/internal/config"
	"github.com/zeusync/dominari/internal/game/blueprint"
)

const blueprints = `
blueprints:
  - name: scout
    range: {movement: 3, attack_range: 1}
    health: {health: 20}
  - name: outpost
    health: {health: 50}
`

func testConfig(t *testing.T) config.Config {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "units.yaml"), []byte(blueprints), 0o600))

	cfg := config.Default()
	cfg.Log.Level = "error"
	cfg.Server.ListenAddr = "127.0.0.1:0"
	cfg.Scheduler.Interval = 10 * time.Millisecond
	cfg.Game.Blueprints = dir
	return cfg
}

func TestInitialize(t *testing.T) {
	t.Run("memory", func(t *testing.T) {
		cfg := testConfig(t)
		a, cleanup, err := Initialize(context.Background(), cfg)
		require.NoError(t, err)
		defer cleanup()

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- a.Run(ctx) }()

		e := a.Engine()
		require.Eventually(t, func() bool {
			_, err := e.Blueprint(context.Background(), blueprint.KeyFor("outpost"))
			return err == nil
		}, 2*time.Second, 5*time.Millisecond)

		cancel()
		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("app did not stop")
		}
	})

	t.Run("sqlite survives restart", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Storage.Driver = config.DriverSQLite
		cfg.Storage.Path = filepath.Join(t.TempDir(), "world.db")

		for range 2 {
			a, cleanup, err := Initialize(context.Background(), cfg)
			require.NoError(t, err)
			require.NoError(t, a.LoadBlueprints(context.Background()))
			_, err = a.Engine().Blueprint(context.Background(), blueprint.KeyFor("scout"))
			require.NoError(t, err)
			cleanup()
		}
	})

	t.Run("bad storage", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Storage.Driver = config.DriverSQLite
		_, _, err := Initialize(context.Background(), cfg)
		require.Error(t, err)
	})
}
