package gp

import "fmt"

// Config controls an evolutionary run.
type Config struct {
	Population     int
	Generations    int
	Elite          int
	TournamentSize int
	CrossoverRate  float64
	MutationRate   float64
	MinDepth       int // initial and mutation subtree heights
	MaxDepth       int
	MaxTreeDepth   int // offspring higher than this are replaced by a parent
	HallOfFame     int
	Workers        int
	Seed           uint64
}

// Validate checks the configuration for inconsistent values.
func (c Config) Validate() error {
	if c.Population <= 1 {
		return fmt.Errorf("population must be > 1 (got %d)", c.Population)
	}
	if c.Generations < 0 {
		return fmt.Errorf("generations must be >= 0 (got %d)", c.Generations)
	}
	if c.Elite < 0 || c.Elite >= c.Population {
		return fmt.Errorf("elite must be in [0, population) (got %d)", c.Elite)
	}
	if c.TournamentSize <= 0 {
		return fmt.Errorf("tournament size must be > 0 (got %d)", c.TournamentSize)
	}
	if c.CrossoverRate < 0 || c.CrossoverRate > 1 {
		return fmt.Errorf("crossover rate must be in [0,1] (got %f)", c.CrossoverRate)
	}
	if c.MutationRate < 0 || c.MutationRate > 1 {
		return fmt.Errorf("mutation rate must be in [0,1] (got %f)", c.MutationRate)
	}
	if c.MinDepth < 0 || c.MaxDepth < c.MinDepth {
		return fmt.Errorf("depth range [%d, %d] is invalid", c.MinDepth, c.MaxDepth)
	}
	if c.MaxTreeDepth < c.MaxDepth {
		return fmt.Errorf("max tree depth %d is below max depth %d", c.MaxTreeDepth, c.MaxDepth)
	}
	if c.HallOfFame <= 0 {
		return fmt.Errorf("hall of fame size must be > 0 (got %d)", c.HallOfFame)
	}
	return nil
}

// DefaultConfig returns the settings used when nothing else is configured.
func DefaultConfig() Config {
	return Config{
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
	}
}
