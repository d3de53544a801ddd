package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// Config represents the ~/.memscan/config.toml file.
type Config struct {
	// DefaultAlignment is "aligned" or "unaligned" (spec.md §4.5).
	DefaultAlignment string `toml:"default_alignment,omitempty" json:"default_alignment"`
	// DefaultReader is "auto", "procmem", or "ptrace" (spec.md §4.3).
	DefaultReader string `toml:"default_reader,omitempty" json:"default_reader"`
	Store         Store  `toml:"store,omitempty" json:"store"`
}

// Store holds match-store tuning preferences.
type Store struct {
	// DefaultChunkTier is a chunk capacity preference, one of 50, 100,
	// 200, 400, 800 (spec.md §3/§4.4). It is stored and validated here
	// only: the match store does not read it and always allocates new
	// chunks at 800.
	DefaultChunkTier int `toml:"default_chunk_tier,omitempty" json:"default_chunk_tier"`
}

// configDirOverride is set by the --config-dir flag or MEMSCAN_HOME env var.
var configDirOverride string

// SetConfigDir allows the CLI to pass in the --config-dir / MEMSCAN_HOME value.
func SetConfigDir(dir string) {
	configDirOverride = dir
}

// MemscanHome returns the config directory path.
// Precedence: --config-dir flag / SetConfigDir > MEMSCAN_HOME env > ~/.memscan
func MemscanHome() string {
	if configDirOverride != "" {
		return configDirOverride
	}
	if v := os.Getenv("MEMSCAN_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".memscan")
	}
	return filepath.Join(home, ".memscan")
}

// ConfigPath returns the full path to config.toml.
func ConfigPath() string {
	return filepath.Join(MemscanHome(), "config.toml")
}

// EnsureDir creates the memscan home directory if it does not exist.
func EnsureDir() error {
	return os.MkdirAll(MemscanHome(), 0o755)
}

// defaults returns a Config populated with this core's documented
// defaults (aligned scanning, auto reader selection, largest chunk
// tier), used whenever no config file exists yet.
func defaults() *Config {
	return &Config{
		DefaultAlignment: "aligned",
		DefaultReader:    "auto",
		Store:            Store{DefaultChunkTier: 800},
	}
}

// Load reads config.toml and returns a Config struct.
// If the file does not exist, it returns the documented defaults.
func Load() (*Config, error) {
	cfg := defaults()
	data, err := os.ReadFile(ConfigPath())
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config.toml: %w", err)
	}
	return cfg, nil
}

// Save writes the Config struct back to config.toml.
func Save(cfg *Config) error {
	if err := EnsureDir(); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(ConfigPath(), data, 0o644)
}

// validKeys lists the dot-separated keys that can be used with Get/Set.
var validKeys = map[string]bool{
	"default_alignment":      true,
	"default_reader":         true,
	"store.default_chunk_tier": true,
}

// validTiers are the chunk capacities spec.md §3/§4.4 names.
var validTiers = map[int]bool{50: true, 100: true, 200: true, 400: true, 800: true}

// Get retrieves a single config value by dot-separated key.
func Get(key string) (string, error) {
	if !validKeys[key] {
		return "", fmt.Errorf("unknown config key: %s", key)
	}
	cfg, err := Load()
	if err != nil {
		return "", err
	}
	return getField(cfg, key)
}

// Set sets a single config value by dot-separated key.
func Set(key, value string) error {
	if !validKeys[key] {
		return fmt.Errorf("unknown config key: %s", key)
	}
	cfg, err := Load()
	if err != nil {
		return err
	}
	if err := setField(cfg, key, value); err != nil {
		return err
	}
	return Save(cfg)
}

func getField(cfg *Config, key string) (string, error) {
	switch key {
	case "default_alignment":
		return cfg.DefaultAlignment, nil
	case "default_reader":
		return cfg.DefaultReader, nil
	case "store.default_chunk_tier":
		return fmt.Sprintf("%d", cfg.Store.DefaultChunkTier), nil
	default:
		return "", fmt.Errorf("unknown config key: %s", key)
	}
}

func setField(cfg *Config, key, value string) error {
	switch key {
	case "default_alignment":
		if value != "aligned" && value != "unaligned" {
			return fmt.Errorf("default_alignment must be %q or %q, got %q", "aligned", "unaligned", value)
		}
		cfg.DefaultAlignment = value
	case "default_reader":
		if value != "auto" && value != "procmem" && value != "ptrace" {
			return fmt.Errorf("default_reader must be one of %q, %q, %q, got %q", "auto", "procmem", "ptrace", value)
		}
		cfg.DefaultReader = value
	case "store.default_chunk_tier":
		var tier int
		if _, err := fmt.Sscanf(value, "%d", &tier); err != nil {
			return fmt.Errorf("store.default_chunk_tier must be an integer: %w", err)
		}
		if !validTiers[tier] {
			return fmt.Errorf("store.default_chunk_tier must be one of 50, 100, 200, 400, 800, got %d", tier)
		}
		cfg.Store.DefaultChunkTier = tier
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
	return nil
}
