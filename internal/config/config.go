// Package config loads process configuration: built-in defaults, then an
// optional YAML file, then DOMINARI_* environment overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/zeusync/dominari/internal/core/bundle"
	"github.com/zeusync/dominari/internal/core/models"
	"github.com/zeusync/dominari/internal/core/observability/log"
	"github.com/zeusync/dominari/internal/scheduler"
	"github.com/zeusync/dominari/internal/server"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "DOMINARI_"

// Storage drivers
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
)

type Config struct {
	Log       LogConfig        `yaml:"log" envPrefix:"LOG_"`
	Server    server.Config    `yaml:"server" envPrefix:"SERVER_"`
	Storage   StorageConfig    `yaml:"storage" envPrefix:"STORAGE_"`
	Clock     ClockConfig      `yaml:"clock" envPrefix:"CLOCK_"`
	Scheduler scheduler.Config `yaml:"scheduler" envPrefix:"SCHEDULER_"`
	Game      GameConfig       `yaml:"game" envPrefix:"GAME_"`
}

type LogConfig struct {
	Level string `yaml:"level" env:"LEVEL"`
}

type StorageConfig struct {
	Driver string `yaml:"driver" env:"DRIVER"`
	// Path is the database file; sqlite only.
	Path string `yaml:"path" env:"PATH"`
}

type ClockConfig struct {
	TickInterval time.Duration `yaml:"tick_interval" env:"TICK_INTERVAL"`
	// Genesis is tick 1. Zero means process start.
	Genesis time.Time `yaml:"genesis" env:"GENESIS"`
}

type GameConfig struct {
	// Bundle names the action bundle the engine writes as.
	Bundle string `yaml:"bundle" env:"BUNDLE"`
	// Admin may register blueprints. Zero derives one from the bundle name.
	Admin models.Address `yaml:"admin" env:"ADMIN"`
	// Blueprints is a directory of blueprint YAML files loaded at start.
	Blueprints string `yaml:"blueprints" env:"BLUEPRINTS"`
	// Instances are put back into the score rotation at start.
	Instances []uint64 `yaml:"instances" env:"INSTANCES"`
}

func Default() Config {
	return Config{
		Log:       LogConfig{Level: log.LevelInfo.String()},
		Server:    server.DefaultServerConfig(),
		Storage:   StorageConfig{Driver: DriverMemory},
		Clock:     ClockConfig{TickInterval: time.Second},
		Scheduler: scheduler.DefaultConfig(),
		Game:      GameConfig{Bundle: "dominari"},
	}
}

// Load reads path (if not empty) over the defaults and applies the environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := decode(bytes.NewReader(data), &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Parse decodes YAML from r over the defaults without consulting the environment.
func Parse(r io.Reader) (Config, error) {
	cfg := Default()
	if err := decode(r, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// ParseEnv overlays DOMINARI_* variables onto target.
func ParseEnv(target *Config) error {
	if err := env.ParseWithOptions(target, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

func decode(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode config: %w", err)
	}
	return nil
}

func (c Config) Validate() error {
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if c.Server.ListenAddr == "" {
		return errors.New("server.listen_addr is required")
	}
	switch c.Storage.Driver {
	case DriverMemory:
	case DriverSQLite:
		if c.Storage.Path == "" {
			return errors.New("storage.path is required for sqlite")
		}
	default:
		return fmt.Errorf("storage.driver: unknown driver %q", c.Storage.Driver)
	}
	if c.Clock.TickInterval <= 0 {
		return errors.New("clock.tick_interval must be positive")
	}
	if c.Scheduler.Interval <= 0 {
		return errors.New("scheduler.interval must be positive")
	}
	if c.Game.Bundle == "" {
		return errors.New("game.bundle is required")
	}
	return nil
}

// Signer is the authority of the configured bundle.
func (g GameConfig) Signer() models.Address { return bundle.SignerFor(g.Bundle) }

// AdminAddress resolves the blueprint admin.
func (g GameConfig) AdminAddress() models.Address {
	if !g.Admin.IsZero() {
		return g.Admin
	}
	return models.DeriveAddress([]byte("admin"), []byte(g.Bundle))
}
