package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"headway.dev/transit/geom"
	"headway.dev/transit/logger"
	"headway.dev/transit/model"
)

// Environment variables overriding the config file.
const (
	EnvArea        = "HEADWAY_BBOX"
	EnvCatalog     = "TRANSIT_CATALOG"
	EnvOutputDir   = "TRANSIT_OUTPUT_DIR"
	EnvLogLevel    = "TRANSIT_LOG_LEVEL"
	EnvPostgresURL = "TRANSIT_POSTGRES_URL"
)

// Default location of the Mobility Database catalog.
const DefaultCatalog = "https://bit.ly/catalogs-csv"

// Config is the root configuration structure
type Config struct {
	// Area of interest, as "west south east north".
	Area string `yaml:"area"`

	// Path, URL or "-" for stdin.
	Catalog string `yaml:"catalog" validate:"required"`

	OutputDir string `yaml:"output_dir"`

	// "continue" or "abort". Deliberately without a default.
	FailurePolicy string `yaml:"failure_policy" validate:"omitempty,oneof=continue abort"`

	Workers int `yaml:"workers" validate:"gte=0"`

	AssumeBikesAllowed bool `yaml:"assume_bikes_allowed"`

	Realtime RealtimeConfig `yaml:"realtime"`
	Download DownloadConfig `yaml:"download"`
	Storage  StorageConfig  `yaml:"storage"`
	Logging  logger.Config  `yaml:"logging"`
}

// Realtime kinds to include, on top of static schedules.
type RealtimeConfig struct {
	ServiceAlerts    bool `yaml:"service_alerts"`
	TripUpdates      bool `yaml:"trip_updates"`
	VehiclePositions bool `yaml:"vehicle_positions"`
}

type DownloadConfig struct {
	TimeoutSec int `yaml:"timeout_sec" validate:"gte=0"`
	MaxSizeMB  int `yaml:"max_size_mb" validate:"gte=0"`

	// Limit on an archive's total extracted size.
	MaxUnpackedMB int `yaml:"max_unpacked_mb" validate:"gte=0"`

	Headers map[string]string `yaml:"headers"`
	TempDir string            `yaml:"temp_dir"`
}

// Where the run ledger is kept.
type StorageConfig struct {
	Backend     string `yaml:"backend" validate:"oneof=memory sqlite postgres"`
	Directory   string `yaml:"directory"`
	PostgresURL string `yaml:"postgres_url" validate:"required_if=Backend postgres"`
}

func Default() *Config {
	return &Config{
		Catalog: DefaultCatalog,
		Workers: 1,
		Download: DownloadConfig{
			TimeoutSec:    120,
			MaxSizeMB:     800,
			MaxUnpackedMB: 8192,
		},
		Storage: StorageConfig{
			Backend:   "memory",
			Directory: ".",
		},
		Logging: logger.DefaultConfig(),
	}
}

// Load reads .env (if present), then the YAML file at path (if not
// blank), then applies environment overrides. Values missing from the
// file keep their defaults.
func Load(path string) (*Config, error) {
	err := godotenv.Load()
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: loading .env: %v", model.ErrConfig, err)
	}

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%w: reading %s: %v", model.ErrConfig, path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("%w: parsing %s: %v", model.ErrConfig, path, err)
		}
	}

	cfg.applyEnv()

	return cfg, nil
}

func (c *Config) applyEnv() {
	for _, o := range []struct {
		env   string
		field *string
	}{
		{EnvArea, &c.Area},
		{EnvCatalog, &c.Catalog},
		{EnvOutputDir, &c.OutputDir},
		{EnvLogLevel, &c.Logging.Level},
		{EnvPostgresURL, &c.Storage.PostgresURL},
	} {
		if v, ok := os.LookupEnv(o.env); ok && strings.TrimSpace(v) != "" {
			*o.field = strings.TrimSpace(v)
		}
	}
}

// Validate checks field constraints. Settings only some commands
// need, like the area, are checked where they're used.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", model.ErrConfig, err)
	}
	if c.Area != "" {
		if _, err := geom.ParseArea(c.Area); err != nil {
			return err
		}
	}
	return nil
}

// ValidateBatch checks the settings needed to normalize a batch of
// feeds: an explicit failure policy and an output directory.
func (c *Config) ValidateBatch() error {
	switch c.FailurePolicy {
	case "continue", "abort":
	case "":
		return fmt.Errorf("%w: no failure policy (set --failure-policy or failure_policy to continue or abort)", model.ErrConfig)
	default:
		return fmt.Errorf("%w: failure policy must be continue or abort, got %q", model.ErrConfig, c.FailurePolicy)
	}
	if strings.TrimSpace(c.OutputDir) == "" {
		return fmt.Errorf("%w: no output directory (set --output-dir, output_dir or %s)", model.ErrConfig, EnvOutputDir)
	}
	return nil
}

// ParsedArea returns the area of interest. It's an error for it to be
// unset.
func (c *Config) ParsedArea() (model.Area, error) {
	if strings.TrimSpace(c.Area) == "" {
		return model.Area{}, fmt.Errorf("%w: no area of interest (set --bbox, area or %s)", model.ErrConfig, EnvArea)
	}
	return geom.ParseArea(c.Area)
}
