// Package config loads layered YAML configuration for memcore:
// hardcoded defaults, then the user config (~/.memcore/config.yaml),
// then the project config (./.memcore.yaml), then MEMCORE_* environment
// variables, each layer overriding the previous one.
package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete memcore configuration.
type Config struct {
	Version       int                 `yaml:"version" json:"version"`
	Storage       StorageConfig       `yaml:"storage" json:"storage"`
	Search        SearchConfig        `yaml:"search" json:"search"`
	Cache         CacheConfig         `yaml:"cache" json:"cache"`
	Consolidation ConsolidationConfig `yaml:"consolidation" json:"consolidation"`
	Server        ServerConfig        `yaml:"server" json:"server"`
}

// StorageConfig configures the sqlite record and index store.
type StorageConfig struct {
	// Path is the sqlite database file. Defaults to ~/.memcore/memcore.db.
	Path string `yaml:"path" json:"path"`
}

// SearchConfig tunes the retrieval strategies.
//
// Weights are configurable via:
//  1. User config (~/.memcore/config.yaml) - personal defaults
//  2. Project config (.memcore.yaml) - per-directory tuning
//  3. Env vars (MEMCORE_EXACT_WEIGHT etc.) - highest priority
type SearchConfig struct {
	// ExactWeight is the hybrid fusion weight for exact word matches.
	// The three weights must sum to 1.0.
	ExactWeight float64 `yaml:"exact_weight" json:"exact_weight"`

	// FuzzyWeight is the hybrid fusion weight for trigram matches.
	FuzzyWeight float64 `yaml:"fuzzy_weight" json:"fuzzy_weight"`

	// SemanticWeight is the hybrid fusion weight for TF-IDF cosine.
	SemanticWeight float64 `yaml:"semantic_weight" json:"semantic_weight"`

	// TrigramBudget caps candidate rows pulled from the trigram index
	// per query word. Bounds worst-case fuzzy latency on large stores.
	TrigramBudget int `yaml:"trigram_budget" json:"trigram_budget"`

	// MaxResults is the default result limit when the caller sets none.
	MaxResults int `yaml:"max_results" json:"max_results"`
}

// CacheConfig configures the query cache.
type CacheConfig struct {
	// Size is the LRU capacity in entries.
	Size int `yaml:"size" json:"size"`
	// TTL is the per-entry time to live (e.g. "5m").
	TTL string `yaml:"ttl" json:"ttl"`
	// SweepInterval is how often the background sweep purges expired
	// entries (e.g. "1m").
	SweepInterval string `yaml:"sweep_interval" json:"sweep_interval"`
}

// ConsolidationConfig configures duplicate merging.
type ConsolidationConfig struct {
	// Threshold is the default Jaccard similarity for merging (0-1].
	Threshold float64 `yaml:"threshold" json:"threshold"`
}

// ServerConfig configures the MCP server process.
type ServerConfig struct {
	// Transport is the MCP transport; only "stdio" is supported.
	Transport string `yaml:"transport" json:"transport"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`
	// LogDir overrides the log directory. Empty uses ~/.memcore/logs.
	LogDir string `yaml:"log_dir" json:"log_dir"`
}

// NewConfig creates a Config with defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Storage: StorageConfig{
			Path: defaultDatabasePath(),
		},
		Search: SearchConfig{
			ExactWeight:    0.4,
			FuzzyWeight:    0.3,
			SemanticWeight: 0.3,
			TrigramBudget:  500,
			MaxResults:     10,
		},
		Cache: CacheConfig{
			Size:          100,
			TTL:           "5m",
			SweepInterval: "1m",
		},
		Consolidation: ConsolidationConfig{
			Threshold: 0.8,
		},
		Server: ServerConfig{
			Transport: "stdio",
			LogLevel:  "info",
		},
	}
}

// defaultDatabasePath returns the default sqlite path.
func defaultDatabasePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".memcore", "memcore.db")
	}
	return filepath.Join(home, ".memcore", "memcore.db")
}

// GetUserConfigPath returns the path to the user configuration file.
func GetUserConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".memcore", "config.yaml")
	}
	return filepath.Join(home, ".memcore", "config.yaml")
}

// Load loads configuration for the given directory. Precedence, lowest
// to highest: defaults, user config, project config (.memcore.yaml or
// .memcore.yml in dir), MEMCORE_* environment variables.
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if path := GetUserConfigPath(); fileExists(path) {
		if err := cfg.loadYAML(path); err != nil {
			return nil, fmt.Errorf("failed to load user config: %w", err)
		}
	}

	if err := cfg.loadFromDir(dir); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// ActiveProjectConfig returns the project config path in dir that Load
// would read, or empty when none exists. Used by the config watcher.
func ActiveProjectConfig(dir string) string {
	for _, name := range []string{".memcore.yaml", ".memcore.yml"} {
		path := filepath.Join(dir, name)
		if fileExists(path) {
			return path
		}
	}
	return ""
}

// loadFromDir loads .memcore.yaml or .memcore.yml from dir if present.
func (c *Config) loadFromDir(dir string) error {
	if path := ActiveProjectConfig(dir); path != "" {
		return c.loadYAML(path)
	}
	return nil
}

// loadYAML parses a YAML file and merges its non-zero values.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	c.mergeWith(&parsed)
	return nil
}

// mergeWith merges non-zero values from other into c.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}

	if other.Storage.Path != "" {
		c.Storage.Path = other.Storage.Path
	}

	// Zero is not a practical value for weights, so only merge non-zero.
	if other.Search.ExactWeight != 0 {
		c.Search.ExactWeight = other.Search.ExactWeight
	}
	if other.Search.FuzzyWeight != 0 {
		c.Search.FuzzyWeight = other.Search.FuzzyWeight
	}
	if other.Search.SemanticWeight != 0 {
		c.Search.SemanticWeight = other.Search.SemanticWeight
	}
	if other.Search.TrigramBudget != 0 {
		c.Search.TrigramBudget = other.Search.TrigramBudget
	}
	if other.Search.MaxResults != 0 {
		c.Search.MaxResults = other.Search.MaxResults
	}

	if other.Cache.Size != 0 {
		c.Cache.Size = other.Cache.Size
	}
	if other.Cache.TTL != "" {
		c.Cache.TTL = other.Cache.TTL
	}
	if other.Cache.SweepInterval != "" {
		c.Cache.SweepInterval = other.Cache.SweepInterval
	}

	if other.Consolidation.Threshold != 0 {
		c.Consolidation.Threshold = other.Consolidation.Threshold
	}

	if other.Server.Transport != "" {
		c.Server.Transport = other.Server.Transport
	}
	if other.Server.LogLevel != "" {
		c.Server.LogLevel = other.Server.LogLevel
	}
	if other.Server.LogDir != "" {
		c.Server.LogDir = other.Server.LogDir
	}
}

// applyEnvOverrides applies MEMCORE_* environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("MEMCORE_DB_PATH"); v != "" {
		c.Storage.Path = v
	}
	if v := os.Getenv("MEMCORE_EXACT_WEIGHT"); v != "" {
		if w, err := strconv.ParseFloat(v, 64); err == nil && w >= 0 && w <= 1 {
			c.Search.ExactWeight = w
		}
	}
	if v := os.Getenv("MEMCORE_FUZZY_WEIGHT"); v != "" {
		if w, err := strconv.ParseFloat(v, 64); err == nil && w >= 0 && w <= 1 {
			c.Search.FuzzyWeight = w
		}
	}
	if v := os.Getenv("MEMCORE_SEMANTIC_WEIGHT"); v != "" {
		if w, err := strconv.ParseFloat(v, 64); err == nil && w >= 0 && w <= 1 {
			c.Search.SemanticWeight = w
		}
	}
	if v := os.Getenv("MEMCORE_TRIGRAM_BUDGET"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Search.TrigramBudget = n
		}
	}
	if v := os.Getenv("MEMCORE_CACHE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Cache.Size = n
		}
	}
	if v := os.Getenv("MEMCORE_CACHE_TTL"); v != "" {
		c.Cache.TTL = v
	}
	if v := os.Getenv("MEMCORE_LOG_LEVEL"); v != "" {
		c.Server.LogLevel = v
	}
}

// Validate checks the final configuration.
func (c *Config) Validate() error {
	for name, w := range map[string]float64{
		"exact_weight":    c.Search.ExactWeight,
		"fuzzy_weight":    c.Search.FuzzyWeight,
		"semantic_weight": c.Search.SemanticWeight,
	} {
		if w < 0 || w > 1 {
			return fmt.Errorf("search.%s must be between 0 and 1, got %f", name, w)
		}
	}

	sum := c.Search.ExactWeight + c.Search.FuzzyWeight + c.Search.SemanticWeight
	if math.Abs(sum-1.0) > 0.01 {
		return fmt.Errorf("search weights must sum to 1.0, got %.2f", sum)
	}

	if c.Search.TrigramBudget < 0 {
		return fmt.Errorf("search.trigram_budget must be non-negative, got %d", c.Search.TrigramBudget)
	}
	if c.Search.MaxResults < 0 {
		return fmt.Errorf("search.max_results must be non-negative, got %d", c.Search.MaxResults)
	}
	if c.Cache.Size < 1 {
		return fmt.Errorf("cache.size must be at least 1, got %d", c.Cache.Size)
	}

	if _, err := c.CacheTTL(); err != nil {
		return err
	}
	if _, err := c.CacheSweepInterval(); err != nil {
		return err
	}

	if c.Consolidation.Threshold <= 0 || c.Consolidation.Threshold > 1 {
		return fmt.Errorf("consolidation.threshold must be in (0, 1], got %f", c.Consolidation.Threshold)
	}

	if strings.ToLower(c.Server.Transport) != "stdio" {
		return fmt.Errorf("server.transport must be 'stdio', got %s", c.Server.Transport)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Server.LogLevel)] {
		return fmt.Errorf("server.log_level must be 'debug', 'info', 'warn', or 'error', got %s", c.Server.LogLevel)
	}

	return nil
}

// CacheTTL parses the cache TTL duration.
func (c *Config) CacheTTL() (time.Duration, error) {
	d, err := time.ParseDuration(c.Cache.TTL)
	if err != nil {
		return 0, fmt.Errorf("cache.ttl is not a valid duration: %w", err)
	}
	return d, nil
}

// CacheSweepInterval parses the sweep interval duration.
func (c *Config) CacheSweepInterval() (time.Duration, error) {
	d, err := time.ParseDuration(c.Cache.SweepInterval)
	if err != nil {
		return 0, fmt.Errorf("cache.sweep_interval is not a valid duration: %w", err)
	}
	return d, nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// fileExists checks if a file exists and is not a directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
