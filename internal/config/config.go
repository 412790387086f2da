// Package config loads daod settings. Priority: environment > file > defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix starts every environment variable, e.g. DAO_STORE_DRIVER.
const EnvPrefix = "DAO"

type Config struct {
	Node   NodeConfig   `yaml:"node"`
	Store  StoreConfig  `yaml:"store"`
	HTTP   HTTPConfig   `yaml:"http"`
	Redis  RedisConfig  `yaml:"redis"`
	Keeper KeeperConfig `yaml:"keeper"`
	Log    LogConfig    `yaml:"log"`
}

type NodeConfig struct {
	ProgramID string `yaml:"programId" envconfig:"PROGRAM_ID"`
	KeyFile   string `yaml:"keyFile" envconfig:"KEY_FILE"`
}

// StoreConfig selects the backend. Driver "memory" treats DSN as an optional
// snapshot file path.
type StoreConfig struct {
	Driver string `yaml:"driver" envconfig:"DRIVER"`
	DSN    string `yaml:"dsn" envconfig:"DSN"`
}

type HTTPConfig struct {
	Addr        string        `yaml:"addr" envconfig:"ADDR"`
	MaxTokenAge time.Duration `yaml:"maxTokenAge" envconfig:"MAX_TOKEN_AGE"`
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled" envconfig:"ENABLED"`
	Addr     string `yaml:"addr" envconfig:"ADDR"`
	Password string `yaml:"password" envconfig:"PASSWORD"`
	DB       int    `yaml:"db" envconfig:"DB"`
}

type KeeperConfig struct {
	Enabled  bool   `yaml:"enabled" envconfig:"ENABLED"`
	Schedule string `yaml:"schedule" envconfig:"SCHEDULE"`
	Workers  int    `yaml:"workers" envconfig:"WORKERS"`
}

type LogConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL"`
	Encoding string `yaml:"encoding" envconfig:"ENCODING"`
}

func DefaultConfig() *Config {
	return &Config{
		Node:   NodeConfig{ProgramID: "presence-dao", KeyFile: "daod.key"},
		Store:  StoreConfig{Driver: "memory", DSN: "data/state.json"},
		HTTP:   HTTPConfig{Addr: ":8080", MaxTokenAge: 5 * time.Minute},
		Redis:  RedisConfig{Addr: "localhost:6379"},
		Keeper: KeeperConfig{Schedule: "@every 30s", Workers: 4},
		Log:    LogConfig{Level: "info", Encoding: "console"},
	}
}

// Load reads path when it exists, then applies environment overrides per group.
// An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		case !errors.Is(err, os.ErrNotExist):
			return nil, err
		}
	}

	groups := []struct {
		name string
		spec any
	}{
		{"NODE", &cfg.Node},
		{"STORE", &cfg.Store},
		{"HTTP", &cfg.HTTP},
		{"REDIS", &cfg.Redis},
		{"KEEPER", &cfg.Keeper},
		{"LOG", &cfg.Log},
	}
	for _, g := range groups {
		if err := envconfig.Process(EnvPrefix+"_"+g.name, g.spec); err != nil {
			return nil, fmt.Errorf("env %s_%s: %w", EnvPrefix, g.name, err)
		}
	}
	return cfg, cfg.Validate()
}

// Validate rejects settings no component can run with.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "memory", "sqlite", "postgres", "pgx":
	default:
		return fmt.Errorf("store.driver %q is not one of memory, sqlite, postgres, pgx", c.Store.Driver)
	}
	if c.Store.Driver != "memory" && c.Store.DSN == "" {
		return fmt.Errorf("store.dsn is required for driver %s", c.Store.Driver)
	}
	if c.Keeper.Enabled && c.Keeper.Workers < 1 {
		return fmt.Errorf("keeper.workers must be at least 1")
	}
	if c.HTTP.MaxTokenAge <= 0 {
		return fmt.Errorf("http.maxTokenAge must be positive")
	}
	return nil
}
