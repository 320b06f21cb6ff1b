// Package config holds the runtime configuration of dfjss: engine limits,
// logging, storage, the HTTP listener, batch evaluation and the GP search.
// Values start from Default() and may be overlaid from a YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration document.
type Config struct {
	Log    LogConfig    `yaml:"log"`
	Engine EngineConfig `yaml:"engine"`
	Store  StoreConfig  `yaml:"store"`
	Server ServerConfig `yaml:"server"`
	Bench  BenchConfig  `yaml:"bench"`
	Evolve EvolveConfig `yaml:"evolve"`
}

// LogConfig selects the slog level and handler.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// EngineConfig bounds a single simulation.
type EngineConfig struct {
	MaxTime     int `yaml:"max_time"`     // caller limit on the clock
	TimeCeiling int `yaml:"time_ceiling"` // hard safety ceiling, independent of max_time
}

// StoreConfig locates the run database.
type StoreConfig struct {
	Path string `yaml:"path"` // SQLite database path (":memory:" for testing)
}

// ServerConfig holds configuration for the HTTP API.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`             // Listen address (default ":8080")
	SimulateTimeout time.Duration `yaml:"simulate_timeout"` // Upper bound on one POST /simulate
	MaxBodyBytes    int64         `yaml:"max_body_bytes"`   // Request body limit for instance uploads
}

// BenchConfig configures batch evaluation of dispatching rules.
type BenchConfig struct {
	Workers int      `yaml:"workers"`
	Rules   []string `yaml:"rules"`
	Seed    int64    `yaml:"seed"`
}

// EvolveConfig configures the genetic-programming search for scoring rules.
type EvolveConfig struct {
	Population     int     `yaml:"population"`
	Generations    int     `yaml:"generations"`
	Elite          int     `yaml:"elite"`
	TournamentSize int     `yaml:"tournament_size"`
	CrossoverRate  float64 `yaml:"crossover_rate"`
	MutationRate   float64 `yaml:"mutation_rate"`
	MinDepth       int     `yaml:"min_depth"`
	MaxDepth       int     `yaml:"max_depth"`
	MaxTreeDepth   int     `yaml:"max_tree_depth"`
	HallOfFame     int     `yaml:"hall_of_fame"`
	Workers        int     `yaml:"workers"`
	Seed           int64   `yaml:"seed"`
}

// Default returns sensible defaults.
func Default() Config {
	return Config{
		Log:    LogConfig{Level: "info", Format: "text"},
		Engine: EngineConfig{MaxTime: 999_999, TimeCeiling: 200_000},
		Store:  StoreConfig{Path: "dfjss.db"},
		Server: ServerConfig{Addr: ":8080", SimulateTimeout: 30 * time.Second, MaxBodyBytes: 8 << 20},
		Bench: BenchConfig{
			Workers: 4,
			Rules:   []string{"SPT", "LPT", "FIFO", "LIFO", "SRPT", "LRPT", "OPR", "ECT", "LLM"},
			Seed:    1,
		},
		Evolve: EvolveConfig{
			Population:     100,
			Generations:    50,
			Elite:          2,
			TournamentSize: 3,
			CrossoverRate:  0.5,
			MutationRate:   0.2,
			MinDepth:       1,
			MaxDepth:       3,
			MaxTreeDepth:   17,
			HallOfFame:     1,
			Workers:        4,
			Seed:           1,
		},
	}
}

// Load reads a YAML file over Default(). Keys absent from the file keep their defaults.
// An empty path returns Default() unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks that every section holds usable values.
func (c Config) Validate() error {
	var errs []error
	if c.Engine.MaxTime <= 0 {
		errs = append(errs, errors.New("engine.max_time must be positive"))
	}
	if c.Engine.TimeCeiling <= 0 {
		errs = append(errs, errors.New("engine.time_ceiling must be positive"))
	}
	if c.Server.SimulateTimeout < 0 || c.Server.MaxBodyBytes < 0 {
		errs = append(errs, errors.New("server.simulate_timeout and server.max_body_bytes must not be negative"))
	}
	if c.Bench.Workers < 0 {
		errs = append(errs, errors.New("bench.workers must not be negative"))
	}
	e := c.Evolve
	if e.Population < 2 {
		errs = append(errs, errors.New("evolve.population must be at least 2"))
	}
	if e.Generations < 0 {
		errs = append(errs, errors.New("evolve.generations must not be negative"))
	}
	if e.Elite < 0 || e.Elite >= e.Population {
		errs = append(errs, errors.New("evolve.elite must be in [0, population)"))
	}
	if e.TournamentSize < 1 {
		errs = append(errs, errors.New("evolve.tournament_size must be at least 1"))
	}
	if e.CrossoverRate < 0 || e.CrossoverRate > 1 {
		errs = append(errs, errors.New("evolve.crossover_rate must be in [0, 1]"))
	}
	if e.MutationRate < 0 || e.MutationRate > 1 {
		errs = append(errs, errors.New("evolve.mutation_rate must be in [0, 1]"))
	}
	if e.MinDepth < 0 || e.MaxDepth < e.MinDepth {
		errs = append(errs, errors.New("evolve.min_depth/max_depth must satisfy 0 <= min <= max"))
	}
	if e.MaxTreeDepth < e.MaxDepth {
		errs = append(errs, errors.New("evolve.max_tree_depth must be at least max_depth"))
	}
	return errors.Join(errs...)
}
