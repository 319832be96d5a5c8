// Package config loads process configuration for the citation pipeline:
// storage DSN, cache connection, the Anthropic LLM boundary, and per
// component tuning knobs (ingestion, search, lexicon generation).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DatabaseConfig configures the Postgres-backed storage adapter.
type DatabaseConfig struct {
	DSN         string `yaml:"dsn"`
	MaxConns    int32  `yaml:"max_conns"`
	MaxConnIdle string `yaml:"max_conn_idle"`
}

// RedisConfig configures the chunked results cache.
type RedisConfig struct {
	Enabled               bool   `yaml:"enabled"`
	Addr                  string `yaml:"addr"`
	Password              string `yaml:"password"`
	DB                    int    `yaml:"db"`
	TLSInsecureSkipVerify bool   `yaml:"tls_insecure_skip_verify"`
}

// AnthropicConfig configures the C5 LLM boundary client.
type AnthropicConfig struct {
	APIKey    string        `yaml:"api_key"`
	Model     string        `yaml:"model"`
	BaseURL   string        `yaml:"base_url"`
	MaxTokens int64         `yaml:"max_tokens"`
	Timeout   time.Duration `yaml:"timeout"`
}

// IngestionConfig tunes the division/sentence/NLP pipeline.
type IngestionConfig struct {
	MaxNLPWorkers      int      `yaml:"max_nlp_workers"`
	AbbreviationList   []string `yaml:"abbreviations"`
	ErrorRateThreshold float64  `yaml:"error_rate_threshold"`
}

// SearchConfig holds the §4.4/§6 defaults for the search & pagination service.
type SearchConfig struct {
	DefaultPageSize int           `yaml:"default_page_size"`
	MaxPageSize     int           `yaml:"max_page_size"`
	ChunkSize       int           `yaml:"chunk_size"`
	DefaultTTL      time.Duration `yaml:"default_ttl"`
	CachePrefix     string        `yaml:"cache_prefix"`
}

// LexiconConfig holds the §4.5 defaults for lexical-value generation.
type LexiconConfig struct {
	MaxContextCitations int           `yaml:"max_context_citations"`
	PageSizeForContext  int           `yaml:"page_size_for_context"`
	NRetries            int           `yaml:"n_retries"`
	TaskTTL             time.Duration `yaml:"task_ttl"`
	StorageTimeout      time.Duration `yaml:"storage_timeout"`
	CacheTimeout        time.Duration `yaml:"cache_timeout"`
	LLMTimeout          time.Duration `yaml:"llm_timeout"`
	TotalTimeout        time.Duration `yaml:"total_timeout"`
}

// Config is the top-level process configuration.
type Config struct {
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Anthropic  AnthropicConfig  `yaml:"anthropic"`
	Ingestion  IngestionConfig  `yaml:"ingestion"`
	Search     SearchConfig     `yaml:"search"`
	Lexicon    LexiconConfig    `yaml:"lexicon"`
	LogLevel   string           `yaml:"log_level"`
}

// Load reads filename (if non-empty and present) as YAML, then applies
// environment variable overrides, then fills in defaults for anything still
// unset. Environment variables always win over the file, matching the
// teacher's env-overrides-file convention in its configuration loader.
func Load(filename string) (Config, error) {
	var cfg Config

	if filename != "" {
		data, err := os.ReadFile(filename)
		if err != nil {
			if !os.IsNotExist(err) {
				return Config{}, fmt.Errorf("read config file: %w", err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("unmarshal config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	applyDefaults(&cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("ATLOMY_DATABASE_DSN")); v != "" {
		cfg.Database.DSN = v
	}
	if v := strings.TrimSpace(os.Getenv("ATLOMY_REDIS_ADDR")); v != "" {
		cfg.Redis.Addr = v
		cfg.Redis.Enabled = true
	}
	if v := strings.TrimSpace(os.Getenv("ATLOMY_REDIS_PASSWORD")); v != "" {
		cfg.Redis.Password = v
	}
	if v := strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY")); v != "" {
		cfg.Anthropic.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("ANTHROPIC_MODEL")); v != "" {
		cfg.Anthropic.Model = v
	}
	if v := strings.TrimSpace(os.Getenv("ANTHROPIC_BASE_URL")); v != "" {
		cfg.Anthropic.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("ATLOMY_LOG_LEVEL")); v != "" {
		cfg.LogLevel = v
	}
	if v := strings.TrimSpace(os.Getenv("ATLOMY_MAX_NLP_WORKERS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Ingestion.MaxNLPWorkers = n
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 8
	}
	if cfg.Database.MaxConnIdle == "" {
		cfg.Database.MaxConnIdle = "5m"
	}
	if cfg.Redis.DB < 0 {
		cfg.Redis.DB = 0
	}

	if cfg.Anthropic.Model == "" {
		cfg.Anthropic.Model = "claude-sonnet-4-5"
	}
	if cfg.Anthropic.MaxTokens <= 0 {
		cfg.Anthropic.MaxTokens = 4096
	}
	if cfg.Anthropic.Timeout <= 0 {
		cfg.Anthropic.Timeout = 600 * time.Second // §5 LLM op default
	}

	if cfg.Ingestion.MaxNLPWorkers <= 0 {
		cfg.Ingestion.MaxNLPWorkers = 4
	}
	if cfg.Ingestion.ErrorRateThreshold <= 0 {
		cfg.Ingestion.ErrorRateThreshold = 0.2
	}

	if cfg.Search.DefaultPageSize <= 0 {
		cfg.Search.DefaultPageSize = 100 // §6 DEFAULT_PAGE_SIZE
	}
	if cfg.Search.MaxPageSize <= 0 {
		cfg.Search.MaxPageSize = 1000 // §6 MAX_PAGE_SIZE
	}
	if cfg.Search.ChunkSize <= 0 {
		cfg.Search.ChunkSize = 1000 // §6 CHUNK_SIZE
	}
	if cfg.Search.DefaultTTL <= 0 {
		cfg.Search.DefaultTTL = 3600 * time.Second // §6 default TTL
	}
	if cfg.Search.CachePrefix == "" {
		cfg.Search.CachePrefix = "citesearch"
	}

	if cfg.Lexicon.MaxContextCitations <= 0 {
		cfg.Lexicon.MaxContextCitations = 40
	}
	if cfg.Lexicon.PageSizeForContext <= 0 {
		cfg.Lexicon.PageSizeForContext = 500
	}
	if cfg.Lexicon.NRetries <= 0 {
		cfg.Lexicon.NRetries = 3
	}
	if cfg.Lexicon.TaskTTL <= 0 {
		cfg.Lexicon.TaskTTL = 24 * time.Hour
	}
	if cfg.Lexicon.StorageTimeout <= 0 {
		cfg.Lexicon.StorageTimeout = 30 * time.Second // §5 storage op default
	}
	if cfg.Lexicon.CacheTimeout <= 0 {
		cfg.Lexicon.CacheTimeout = 2 * time.Second // §5 cache op default
	}
	if cfg.Lexicon.LLMTimeout <= 0 {
		cfg.Lexicon.LLMTimeout = 600 * time.Second // §5 LLM op default
	}
	if cfg.Lexicon.TotalTimeout <= 0 {
		cfg.Lexicon.TotalTimeout = 900 * time.Second // §5 total task budget default
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
}
