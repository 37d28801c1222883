package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/sou1nonly/relocation-chatbot/internal/domain/assembled"
)

// Database drivers.
const (
	DriverRedis  = "redis"
	DriverMemory = "memory"
)

// Config holds the relocbot service configuration.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Auth     AuthConfig     `yaml:"auth"`
	Logging  LoggingConfig  `yaml:"logging"`
	Database DatabaseConfig `yaml:"database"`
	Search   SearchConfig   `yaml:"search"`
	LLM      LLMConfig      `yaml:"llm"`
	Cache    CacheConfig    `yaml:"cache"`
	Scoring  ScoringConfig  `yaml:"scoring"`
	Fallback FallbackConfig `yaml:"fallback"`
	Assembly AssemblyConfig `yaml:"assembly"`
	Batch    BatchConfig    `yaml:"batch"`
	Memory   MemoryConfig   `yaml:"memory"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings. No keys disables auth.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig selects and configures the user memory backend.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // redis, memory (default: memory)
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
	KeyPrefix        string   `yaml:"key_prefix"`
}

// SearchConfig holds web search provider settings. An empty key leaves search unavailable.
type SearchConfig struct {
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	TimeoutSec int    `yaml:"timeout_sec"`
	MaxResults int    `yaml:"max_results"`
}

// LLMConfig holds the answering model settings. An empty key disables answering.
type LLMConfig struct {
	APIKey      string  `yaml:"api_key"`
	BaseURL     string  `yaml:"base_url"`
	Model       string  `yaml:"model"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float32 `yaml:"temperature"`
}

// CacheConfig holds similarity cache settings.
type CacheConfig struct {
	MaxSize             int     `yaml:"max_size"`
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
	DefaultTTLMin       int     `yaml:"default_ttl_min"`
	PurgeOnAccess       *bool   `yaml:"purge_on_access"`
	Dimensions          int     `yaml:"dimensions"`
}

// ScoringConfig holds result filtering settings.
type ScoringConfig struct {
	MinQuality float64 `yaml:"min_quality"`
	MaxResults int     `yaml:"max_results"`
}

// FallbackConfig holds weak-result detection settings.
type FallbackConfig struct {
	MinConditions int `yaml:"min_conditions"`
}

// AssemblyConfig holds context assembly defaults.
type AssemblyConfig struct {
	MaxTokens        int    `yaml:"max_tokens"`
	CompressionLevel string `yaml:"compression_level"`
}

// BatchConfig holds batch run settings.
type BatchConfig struct {
	MaxBatchSize int `yaml:"max_batch_size"`
	Workers      int `yaml:"workers"`
}

// MemoryConfig holds user memory settings.
type MemoryConfig struct {
	SearchTimestampTTLHours int `yaml:"search_timestamp_ttl_hours"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
// A .env file next to the config or in the working directory is loaded first;
// variables already set in the environment win.
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)
	loadDotEnv(filepath.Dir(configPath))

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}
	return Parse(data)
}

// Parse expands ${VAR} references, decodes YAML, applies defaults and validates.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.Driver == "" {
		c.Database.Driver = DriverMemory
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Database.KeyPrefix == "" {
		c.Database.KeyPrefix = "relocbot:"
	}
	if c.Search.BaseURL == "" {
		c.Search.BaseURL = "https://google.serper.dev/search"
	}
	if c.Search.TimeoutSec <= 0 {
		c.Search.TimeoutSec = 10
	}
	if c.Search.MaxResults <= 0 {
		c.Search.MaxResults = 10
	}
	if c.LLM.Model == "" {
		c.LLM.Model = "gpt-4o-mini"
	}
	if c.LLM.MaxTokens <= 0 {
		c.LLM.MaxTokens = 800
	}
	if c.LLM.Temperature == 0 {
		c.LLM.Temperature = 0.3
	}
	if c.Cache.MaxSize <= 0 {
		c.Cache.MaxSize = 500
	}
	if c.Cache.SimilarityThreshold == 0 {
		c.Cache.SimilarityThreshold = 0.75
	}
	if c.Cache.DefaultTTLMin <= 0 {
		c.Cache.DefaultTTLMin = 120
	}
	if c.Cache.PurgeOnAccess == nil {
		on := true
		c.Cache.PurgeOnAccess = &on
	}
	if c.Cache.Dimensions <= 0 {
		c.Cache.Dimensions = 64
	}
	if c.Scoring.MinQuality == 0 {
		c.Scoring.MinQuality = 0.3
	}
	if c.Scoring.MaxResults <= 0 {
		c.Scoring.MaxResults = 8
	}
	if c.Fallback.MinConditions <= 0 {
		c.Fallback.MinConditions = 2
	}
	if c.Assembly.MaxTokens <= 0 {
		c.Assembly.MaxTokens = assembled.DefaultMaxTokens
	}
	if c.Assembly.CompressionLevel == "" {
		c.Assembly.CompressionLevel = string(assembled.CompressionLight)
	}
	if c.Batch.MaxBatchSize <= 0 {
		c.Batch.MaxBatchSize = 20
	}
	if c.Batch.Workers <= 0 {
		c.Batch.Workers = 4
	}
	if c.Memory.SearchTimestampTTLHours <= 0 {
		c.Memory.SearchTimestampTTLHours = 720
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Database.Driver {
	case DriverMemory:
	case DriverRedis:
		if len(c.Database.Addrs) == 0 {
			return fmt.Errorf("database.addrs is required for driver %q", DriverRedis)
		}
	default:
		return fmt.Errorf("database.driver must be %q or %q, got %q", DriverRedis, DriverMemory, c.Database.Driver)
	}
	if c.Cache.SimilarityThreshold <= 0 || c.Cache.SimilarityThreshold > 1 {
		return fmt.Errorf("cache.similarity_threshold must be in (0, 1], got %v", c.Cache.SimilarityThreshold)
	}
	if c.Scoring.MinQuality < 0 || c.Scoring.MinQuality > 1 {
		return fmt.Errorf("scoring.min_quality must be in [0, 1], got %v", c.Scoring.MinQuality)
	}
	if !assembled.CompressionLevel(c.Assembly.CompressionLevel).IsValid() {
		return fmt.Errorf("assembly.compression_level must be none, light, moderate or aggressive, got %q",
			c.Assembly.CompressionLevel)
	}
	if c.Batch.Workers > c.Batch.MaxBatchSize {
		return fmt.Errorf("batch.workers (%d) must not exceed batch.max_batch_size (%d)",
			c.Batch.Workers, c.Batch.MaxBatchSize)
	}
	return nil
}

// CacheTTL returns the default cache entry lifetime.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.DefaultTTLMin) * time.Minute
}

// SearchTimestampTTL returns how long last-search markers are kept.
func (c *Config) SearchTimestampTTL() time.Duration {
	return time.Duration(c.Memory.SearchTimestampTTLHours) * time.Hour
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// Relative to the source file, for tests run from package directories.
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b)))
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	return filepath.Join("config", filename)
}

// loadDotEnv loads the first .env found. Missing files are not an error.
func loadDotEnv(configDir string) {
	for _, path := range []string{filepath.Join(configDir, ".env"), ".env"} {
		if fileExists(path) {
			_ = godotenv.Load(path)
			return
		}
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1])
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
