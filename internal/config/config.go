package config

import (
	"os"
	"strconv"
	"strings"

	"gobunch/domain/bunching"
	"gobunch/internal/errors"
	"gobunch/internal/scenario"
)

// Config represents the complete application configuration
type Config struct {
	Bunching  BunchingConfig
	Dominance DominanceConfig
	Database  DatabaseConfig
	LogLevel  string
}

// BunchingConfig holds the grid and scenario settings
type BunchingConfig struct {
	Lower    float64
	Upper    float64
	BinWidth float64
	// Precision is the number of decimals observations are rounded to
	// before binning; a negative value disables rounding.
	Precision      int
	Degree         int
	Targets        []float64
	Threshold      float64
	Iterations     int
	MatchLocalRuns bool
	Seed           int64
	Workers        int
}

// DominanceConfig holds the Barrett–Donald test settings
type DominanceConfig struct {
	Iterations int
	Alpha      float64
}

// DatabaseConfig holds database connection settings. An empty URL disables
// persistence.
type DatabaseConfig struct {
	URL string
}

// Default returns the settings used when no environment overrides are set.
func Default() *Config {
	return &Config{
		Bunching: BunchingConfig{
			Lower:          0,
			Upper:          1,
			BinWidth:       0.05,
			Precision:      2,
			Degree:         4,
			Targets:        []float64{0.175, 0.225, 0.275, 0.325},
			Threshold:      0.20,
			Iterations:     scenario.DefaultIterations,
			MatchLocalRuns: true,
			Seed:           123,
		},
		Dominance: DominanceConfig{
			Iterations: 1000,
			Alpha:      0.05,
		},
		LogLevel: "INFO",
	}
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := Default()

	if err := loadBunchingConfig(&config.Bunching); err != nil {
		return nil, errors.Wrap(err, "failed to load bunching configuration")
	}
	if err := loadDominanceConfig(&config.Dominance); err != nil {
		return nil, errors.Wrap(err, "failed to load dominance configuration")
	}
	config.Database.URL = getEnvOrDefault("DATABASE_URL", "")
	config.LogLevel = getEnvOrDefault("LOG_LEVEL", config.LogLevel)

	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

func loadBunchingConfig(b *BunchingConfig) error {
	var err error
	if b.Lower, err = getEnvFloat("BUNCH_LOWER", b.Lower); err != nil {
		return err
	}
	if b.Upper, err = getEnvFloat("BUNCH_UPPER", b.Upper); err != nil {
		return err
	}
	if b.BinWidth, err = getEnvFloat("BUNCH_BINWIDTH", b.BinWidth); err != nil {
		return err
	}
	if b.Precision, err = getEnvInt("BUNCH_PRECISION", b.Precision); err != nil {
		return err
	}
	if b.Degree, err = getEnvInt("BUNCH_DEGREE", b.Degree); err != nil {
		return err
	}
	if b.Targets, err = getEnvFloatList("BUNCH_TARGETS", b.Targets); err != nil {
		return err
	}
	if b.Threshold, err = getEnvFloat("BUNCH_THRESHOLD", b.Threshold); err != nil {
		return err
	}
	if b.Iterations, err = getEnvInt("BUNCH_ITERATIONS", b.Iterations); err != nil {
		return err
	}
	if b.MatchLocalRuns, err = getEnvBool("BUNCH_MATCH_LOCAL_RUNS", b.MatchLocalRuns); err != nil {
		return err
	}
	seed, err := getEnvInt("BUNCH_SEED", int(b.Seed))
	if err != nil {
		return err
	}
	b.Seed = int64(seed)
	b.Workers, err = getEnvInt("BUNCH_WORKERS", b.Workers)
	return err
}

func loadDominanceConfig(d *DominanceConfig) error {
	var err error
	if d.Iterations, err = getEnvInt("DOMINANCE_ITERATIONS", d.Iterations); err != nil {
		return err
	}
	d.Alpha, err = getEnvFloat("DOMINANCE_ALPHA", d.Alpha)
	return err
}

// Validate checks ranges the numeric core would otherwise reject later.
func (c *Config) Validate() error {
	b := c.Bunching
	if !(b.Upper > b.Lower) {
		return errors.ConfigInvalid("BUNCH_UPPER must exceed BUNCH_LOWER")
	}
	if !(b.BinWidth > 0) {
		return errors.ConfigInvalid("BUNCH_BINWIDTH must be positive")
	}
	if b.Degree < 0 {
		return errors.ConfigInvalid("BUNCH_DEGREE must not be negative")
	}
	if b.Iterations < 2 {
		return errors.ConfigInvalid("BUNCH_ITERATIONS must be at least 2")
	}
	if b.Workers < 0 {
		return errors.ConfigInvalid("BUNCH_WORKERS must not be negative")
	}
	if c.Dominance.Iterations < 1 {
		return errors.ConfigInvalid("DOMINANCE_ITERATIONS must be positive")
	}
	if !(c.Dominance.Alpha > 0 && c.Dominance.Alpha < 1) {
		return errors.ConfigInvalid("DOMINANCE_ALPHA must be in (0, 1)")
	}
	return nil
}

// Grid builds the bin grid described by the bunching settings.
func (c *Config) Grid() (bunching.BinGrid, error) {
	return bunching.GridFromBounds(c.Bunching.Lower, c.Bunching.Upper, c.Bunching.BinWidth)
}

// FamilyConfig builds the scenario plan settings over grid.
func (c *Config) FamilyConfig(grid bunching.BinGrid) scenario.FamilyConfig {
	return scenario.FamilyConfig{
		Grid:           grid,
		Degree:         c.Bunching.Degree,
		Targets:        append([]float64(nil), c.Bunching.Targets...),
		Threshold:      c.Bunching.Threshold,
		Iterations:     c.Bunching.Iterations,
		Seed:           c.Bunching.Seed,
		MatchLocalRuns: c.Bunching.MatchLocalRuns,
	}
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	intValue, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, errors.ConfigInvalid(key + " must be an integer, got " + strconv.Quote(value))
	}
	return intValue, nil
}

func getEnvFloat(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	floatValue, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0, errors.ConfigInvalid(key + " must be a number, got " + strconv.Quote(value))
	}
	return floatValue, nil
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	boolValue, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return false, errors.ConfigInvalid(key + " must be a boolean, got " + strconv.Quote(value))
	}
	return boolValue, nil
}

func getEnvFloatList(key string, defaultValue []float64) ([]float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	var out []float64
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		f, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return nil, errors.ConfigInvalid(key + " contains a non-numeric entry " + strconv.Quote(part))
		}
		out = append(out, f)
	}
	return out, nil
}
