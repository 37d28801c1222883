package config

import (
	"strings"
	"testing"
)

func validConfig() Config {
	cfg := Config{HTTP: HTTPConfig{Port: 8080}}
	cfg.ApplyDefaults()
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "port zero", mutate: func(c *Config) { c.HTTP.Port = 0 }, wantErr: "http.port"},
		{name: "port too large", mutate: func(c *Config) { c.HTTP.Port = 70000 }, wantErr: "http.port"},
		{name: "unknown driver", mutate: func(c *Config) { c.Database.Driver = "mongo" }, wantErr: "database.driver"},
		{
			name:    "redis without addrs",
			mutate:  func(c *Config) { c.Database.Driver = DriverRedis },
			wantErr: "database.addrs",
		},
		{
			name: "redis with addrs",
			mutate: func(c *Config) {
				c.Database.Driver = DriverRedis
				c.Database.Addrs = []string{"localhost:6379"}
			},
		},
		{name: "threshold above one", mutate: func(c *Config) { c.Cache.SimilarityThreshold = 1.5 }, wantErr: "similarity_threshold"},
		{name: "negative threshold", mutate: func(c *Config) { c.Cache.SimilarityThreshold = -0.1 }, wantErr: "similarity_threshold"},
		{name: "threshold one", mutate: func(c *Config) { c.Cache.SimilarityThreshold = 1 }},
		{name: "min quality above one", mutate: func(c *Config) { c.Scoring.MinQuality = 2 }, wantErr: "min_quality"},
		{name: "bad compression", mutate: func(c *Config) { c.Assembly.CompressionLevel = "extreme" }, wantErr: "compression_level"},
		{
			name: "workers above batch size",
			mutate: func(c *Config) {
				c.Batch.Workers = 50
				c.Batch.MaxBatchSize = 10
			},
			wantErr: "batch.workers",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.Database.Driver != DriverMemory {
		t.Errorf("Database.Driver = %q, want %q", cfg.Database.Driver, DriverMemory)
	}
	if cfg.Database.KeyPrefix != "relocbot:" {
		t.Errorf("Database.KeyPrefix = %q", cfg.Database.KeyPrefix)
	}
	if cfg.Search.BaseURL != "https://google.serper.dev/search" {
		t.Errorf("Search.BaseURL = %q", cfg.Search.BaseURL)
	}
	if cfg.Search.TimeoutSec != 10 || cfg.Search.MaxResults != 10 {
		t.Errorf("Search = %+v", cfg.Search)
	}
	if cfg.LLM.Model != "gpt-4o-mini" || cfg.LLM.MaxTokens != 800 || cfg.LLM.Temperature != 0.3 {
		t.Errorf("LLM = %+v", cfg.LLM)
	}
	if cfg.Cache.MaxSize != 500 || cfg.Cache.SimilarityThreshold != 0.75 || cfg.Cache.DefaultTTLMin != 120 {
		t.Errorf("Cache = %+v", cfg.Cache)
	}
	if cfg.Cache.PurgeOnAccess == nil || !*cfg.Cache.PurgeOnAccess {
		t.Error("Cache.PurgeOnAccess should default to true")
	}
	if cfg.Cache.Dimensions != 64 {
		t.Errorf("Cache.Dimensions = %d", cfg.Cache.Dimensions)
	}
	if cfg.Scoring.MinQuality != 0.3 || cfg.Scoring.MaxResults != 8 {
		t.Errorf("Scoring = %+v", cfg.Scoring)
	}
	if cfg.Fallback.MinConditions != 2 {
		t.Errorf("Fallback.MinConditions = %d", cfg.Fallback.MinConditions)
	}
	if cfg.Assembly.MaxTokens != 4000 || cfg.Assembly.CompressionLevel != "light" {
		t.Errorf("Assembly = %+v", cfg.Assembly)
	}
	if cfg.Batch.MaxBatchSize != 20 || cfg.Batch.Workers != 4 {
		t.Errorf("Batch = %+v", cfg.Batch)
	}
	if got := cfg.SearchTimestampTTL().Hours(); got != 720 {
		t.Errorf("SearchTimestampTTL = %vh, want 720h", got)
	}
	if got := cfg.CacheTTL().Minutes(); got != 120 {
		t.Errorf("CacheTTL = %vm, want 120m", got)
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	off := false
	cfg := Config{
		Database: DatabaseConfig{Driver: DriverRedis, KeyPrefix: "x:"},
		Cache:    CacheConfig{MaxSize: 10, SimilarityThreshold: 0.9, PurgeOnAccess: &off},
		Batch:    BatchConfig{MaxBatchSize: 5, Workers: 2},
	}
	cfg.ApplyDefaults()

	if cfg.Database.Driver != DriverRedis || cfg.Database.KeyPrefix != "x:" {
		t.Errorf("Database overridden: %+v", cfg.Database)
	}
	if cfg.Cache.MaxSize != 10 || cfg.Cache.SimilarityThreshold != 0.9 || *cfg.Cache.PurgeOnAccess {
		t.Errorf("Cache overridden: %+v", cfg.Cache)
	}
	if cfg.Batch.MaxBatchSize != 5 || cfg.Batch.Workers != 2 {
		t.Errorf("Batch overridden: %+v", cfg.Batch)
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("RELOCBOT_TEST_KEY", "secret")

	tests := []struct {
		in   string
		want string
	}{
		{"key: ${RELOCBOT_TEST_KEY}", "key: secret"},
		{"key: ${RELOCBOT_TEST_UNSET:-fallback}", "key: fallback"},
		{"key: ${RELOCBOT_TEST_KEY:-fallback}", "key: secret"},
		{"key: ${RELOCBOT_TEST_UNSET}", "key: "},
		{"plain: value", "plain: value"},
	}
	for _, tt := range tests {
		if got := string(expandEnvVars([]byte(tt.in))); got != tt.want {
			t.Errorf("expandEnvVars(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParse(t *testing.T) {
	t.Setenv("RELOCBOT_TEST_PORT", "9090")

	data := []byte(`
http:
  port: ${RELOCBOT_TEST_PORT}
database:
  driver: redis
  addrs: ["localhost:6379"]
cache:
  similarity_threshold: 0.8
  purge_on_access: false
auth:
  api_keys: ["k1", "k2"]
`)
	cfg, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.HTTP.Port != 9090 {
		t.Errorf("HTTP.Port = %d, want 9090", cfg.HTTP.Port)
	}
	if cfg.Database.Driver != DriverRedis || len(cfg.Database.Addrs) != 1 {
		t.Errorf("Database = %+v", cfg.Database)
	}
	if cfg.Cache.SimilarityThreshold != 0.8 || *cfg.Cache.PurgeOnAccess {
		t.Errorf("Cache = %+v", cfg.Cache)
	}
	if len(cfg.Auth.APIKeys) != 2 {
		t.Errorf("Auth.APIKeys = %v", cfg.Auth.APIKeys)
	}
}

func TestParse_Invalid(t *testing.T) {
	if _, err := Parse([]byte("http: [")); err == nil {
		t.Error("expected yaml error")
	}
	if _, err := Parse([]byte("http:\n  port: 0\n")); err == nil {
		t.Error("expected validation error")
	}
}

func TestLoad_Local(t *testing.T) {
	cfg, err := Load("local")
	if err != nil {
		t.Fatalf("Load(local): %v", err)
	}
	if cfg.HTTP.Port == 0 {
		t.Error("HTTP.Port should be set by local.yaml")
	}
}

func TestGetEnv(t *testing.T) {
	t.Setenv("ENV", "")
	if got := GetEnv(); got != "local" {
		t.Errorf("GetEnv() = %q, want local", got)
	}
	t.Setenv("ENV", "prod")
	if got := GetEnv(); got != "prod" {
		t.Errorf("GetEnv() = %q, want prod", got)
	}
}
