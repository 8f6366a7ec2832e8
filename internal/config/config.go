// Package config loads .demogen/config.yaml and the language model
// credentials from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jywlabs/demogen/internal/template"
	"gopkg.in/yaml.v3"
)

// ErrInvalid is returned when a configuration value is out of range.
var ErrInvalid = errors.New("invalid configuration")

// Profile holds sampling parameters for one language model role.
type Profile struct {
	Temperature float64
	MaxTokens   int
}

// StoreConfig selects the demo library backend.
type StoreConfig struct {
	Driver string // file, sqlite, libsql, postgres
	Dir    string // file driver, and the default SQLite location
	DSN    string // SQL drivers only
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level string
	File  string // JSON event log, empty disables it
}

// Config is the resolved demogen configuration.
type Config struct {
	Provider    string
	Language    string
	MaxAttempts int
	RunTimeout  time.Duration
	ScriptsDir  string
	Describe    Profile
	Code        Profile
	Store       StoreConfig
	Log         LogConfig
	MetricsFile string
}

// rawProfile is used for YAML unmarshaling to distinguish missing keys from explicit zero values.
type rawProfile struct {
	Temperature *float64 `yaml:"temperature"`
	MaxTokens   *int     `yaml:"maxTokens"`
}

type rawStore struct {
	Driver *string `yaml:"driver"`
	Dir    *string `yaml:"dir"`
	DSN    *string `yaml:"dsn"`
}

type rawLog struct {
	Level *string `yaml:"level"`
	File  *string `yaml:"file"`
}

type rawMetrics struct {
	Textfile *string `yaml:"textfile"`
}

// rawConfig mirrors the .demogen/config.yaml structure.
type rawConfig struct {
	Provider    *string    `yaml:"provider"`
	Language    *string    `yaml:"language"`
	MaxAttempts *int       `yaml:"maxAttempts"`
	RunTimeout  *string    `yaml:"runTimeout"`
	ScriptsDir  *string    `yaml:"scriptsDir"`
	Describe    rawProfile `yaml:"describe"`
	Code        rawProfile `yaml:"code"`
	Store       rawStore   `yaml:"store"`
	Log         rawLog     `yaml:"log"`
	Metrics     rawMetrics `yaml:"metrics"`
}

// Default returns the configuration used when no config file exists.
func Default() Config {
	return Config{
		Provider:    "azure",
		Language:    "python",
		MaxAttempts: 3,
		RunTimeout:  2 * time.Minute,
		ScriptsDir:  filepath.Join(template.DemogenDir, template.ScriptsDir),
		Describe:    Profile{Temperature: 0.7, MaxTokens: 1000},
		Code:        Profile{Temperature: 1.0, MaxTokens: 4096},
		Store: StoreConfig{
			Driver: "file",
			Dir:    template.DemosDir,
		},
		Log: LogConfig{
			Level: "info",
			File:  filepath.Join(template.DemogenDir, template.LogFile),
		},
	}
}

// Known values accepted by Validate.
var (
	Providers    = []string{"azure", "openai"}
	Languages    = []string{"python", "node", "bash", "go"}
	StoreDrivers = []string{"file", "sqlite", "libsql", "postgres"}
)

// Validate checks that the Config fields are usable.
func (c *Config) Validate() error {
	if !contains(Providers, c.Provider) {
		return fmt.Errorf("%w: provider %q (supported: %v)", ErrInvalid, c.Provider, Providers)
	}
	if !contains(Languages, c.Language) {
		return fmt.Errorf("%w: language %q (supported: %v)", ErrInvalid, c.Language, Languages)
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("%w: maxAttempts must be at least 1", ErrInvalid)
	}
	if c.RunTimeout <= 0 {
		return fmt.Errorf("%w: runTimeout must be greater than 0", ErrInvalid)
	}
	if c.ScriptsDir == "" {
		return fmt.Errorf("%w: scriptsDir must not be empty", ErrInvalid)
	}
	for name, p := range map[string]Profile{"describe": c.Describe, "code": c.Code} {
		if p.Temperature < 0 || p.Temperature > 2 {
			return fmt.Errorf("%w: %s.temperature must be between 0 and 2", ErrInvalid, name)
		}
		if p.MaxTokens <= 0 {
			return fmt.Errorf("%w: %s.maxTokens must be greater than 0", ErrInvalid, name)
		}
	}
	if !contains(StoreDrivers, c.Store.Driver) {
		return fmt.Errorf("%w: store.driver %q (supported: %v)", ErrInvalid, c.Store.Driver, StoreDrivers)
	}
	if (c.Store.Driver == "file" || c.Store.Driver == "sqlite") && c.Store.Dir == "" && c.Store.DSN == "" {
		return fmt.Errorf("%w: store.dir must not be empty", ErrInvalid)
	}
	if (c.Store.Driver == "libsql" || c.Store.Driver == "postgres") && c.Store.DSN == "" {
		return fmt.Errorf("%w: store.dsn is required for the %s driver", ErrInvalid, c.Store.Driver)
	}
	return nil
}

// Path returns the config file location inside dir.
func Path(dir string) string {
	return filepath.Join(dir, template.DemogenDir, template.ConfigFile)
}

// Load reads configuration from .demogen/config.yaml in the given directory.
// If the config file doesn't exist, defaults are returned.
func Load(dir string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(Path(dir))
	if err != nil {
		if os.IsNotExist(err) {
			return &cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var raw rawConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := merge(&cfg, raw); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// merge applies only the keys that were set in YAML.
func merge(cfg *Config, raw rawConfig) error {
	setString(&cfg.Provider, raw.Provider)
	setString(&cfg.Language, raw.Language)
	setString(&cfg.ScriptsDir, raw.ScriptsDir)
	if raw.MaxAttempts != nil {
		cfg.MaxAttempts = *raw.MaxAttempts
	}
	if raw.RunTimeout != nil {
		d, err := time.ParseDuration(*raw.RunTimeout)
		if err != nil {
			return fmt.Errorf("%w: runTimeout: %v", ErrInvalid, err)
		}
		cfg.RunTimeout = d
	}

	mergeProfile(&cfg.Describe, raw.Describe)
	mergeProfile(&cfg.Code, raw.Code)

	setString(&cfg.Store.Driver, raw.Store.Driver)
	setString(&cfg.Store.Dir, raw.Store.Dir)
	setString(&cfg.Store.DSN, raw.Store.DSN)

	setString(&cfg.Log.Level, raw.Log.Level)
	setString(&cfg.Log.File, raw.Log.File)
	setString(&cfg.MetricsFile, raw.Metrics.Textfile)
	return nil
}

func mergeProfile(p *Profile, raw rawProfile) {
	if raw.Temperature != nil {
		p.Temperature = *raw.Temperature
	}
	if raw.MaxTokens != nil {
		p.MaxTokens = *raw.MaxTokens
	}
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
