package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the knowledge service configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Database   DatabaseConfig   `yaml:"database"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Completion CompletionConfig `yaml:"completion"`
	Rerank     RerankConfig     `yaml:"rerank"`
	WebSearch  WebSearchConfig  `yaml:"websearch"`
	Extract    ExtractConfig    `yaml:"extract"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Auth       AuthConfig       `yaml:"auth"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
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

// DatabaseConfig holds Redis connection settings.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	APIKey      string `yaml:"api_key"`
	BaseURL     string `yaml:"base_url"`
	Model       string `yaml:"model"`
	Dimensions  int    `yaml:"dimensions"`
	CacheTTLSec int    `yaml:"cache_ttl_sec"` // 0 = no expiry
}

// CompletionConfig holds completion model settings, shared by query
// inference and summarization.
type CompletionConfig struct {
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// RerankConfig holds the scoring oracle endpoint and tier thresholds.
type RerankConfig struct {
	URL        string `yaml:"url"`
	APIKey     string `yaml:"api_key"`
	Model      string `yaml:"model"`
	TimeoutSec int    `yaml:"timeout_sec"`

	HighThreshold       float64 `yaml:"high_threshold"`
	AcceptableThreshold float64 `yaml:"acceptable_threshold"`
	LowThreshold        float64 `yaml:"low_threshold"`
	ModerateThreshold   float64 `yaml:"moderate_threshold"` // avg-of-top-5 floor
	MinPrimary          int     `yaml:"min_primary"`
	MinHighCount        int     `yaml:"min_high_count"`
	BelowAcceptableMax  float64 `yaml:"below_acceptable_max"`
}

// WebSearchConfig holds the web search provider settings.
type WebSearchConfig struct {
	URL        string `yaml:"url"`
	APIKey     string `yaml:"api_key"`
	MaxResults int    `yaml:"max_results"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// ExtractConfig holds page fetching settings.
type ExtractConfig struct {
	TimeoutSec   int      `yaml:"timeout_sec"` // per page
	MaxBodyBytes int64    `yaml:"max_body_bytes"`
	UserAgents   []string `yaml:"user_agents"`
}

// RetrievalConfig holds pipeline search settings.
type RetrievalConfig struct {
	TopK           int     `yaml:"top_k"`
	ScoreThreshold float64 `yaml:"score_threshold"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
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
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Embedding.Dimensions <= 0 {
		c.Embedding.Dimensions = 1536
	}
	if c.Completion.TimeoutSec <= 0 {
		c.Completion.TimeoutSec = 60
	}
	if c.Rerank.TimeoutSec <= 0 {
		c.Rerank.TimeoutSec = 15
	}
	if c.Rerank.HighThreshold == 0 {
		c.Rerank.HighThreshold = 6.0
	}
	if c.Rerank.AcceptableThreshold == 0 {
		c.Rerank.AcceptableThreshold = 4.5
	}
	if c.Rerank.LowThreshold == 0 {
		c.Rerank.LowThreshold = 1.4
	}
	if c.Rerank.ModerateThreshold == 0 {
		c.Rerank.ModerateThreshold = 5.0
	}
	if c.Rerank.MinPrimary <= 0 {
		c.Rerank.MinPrimary = 3
	}
	if c.Rerank.MinHighCount <= 0 {
		c.Rerank.MinHighCount = 2
	}
	if c.Rerank.BelowAcceptableMax == 0 {
		c.Rerank.BelowAcceptableMax = 0.6
	}
	if c.WebSearch.MaxResults <= 0 {
		c.WebSearch.MaxResults = 5
	}
	if c.WebSearch.TimeoutSec <= 0 {
		c.WebSearch.TimeoutSec = 15
	}
	if c.Extract.TimeoutSec <= 0 {
		c.Extract.TimeoutSec = 10
	}
	if c.Extract.MaxBodyBytes <= 0 {
		c.Extract.MaxBodyBytes = 2 << 20
	}
	if c.Retrieval.TopK <= 0 {
		c.Retrieval.TopK = 10
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	if c.Embedding.APIKey == "" {
		return fmt.Errorf("embedding.api_key is required")
	}
	if c.Rerank.HighThreshold < c.Rerank.AcceptableThreshold {
		return fmt.Errorf("rerank.high_threshold %.2f must not be below acceptable_threshold %.2f",
			c.Rerank.HighThreshold, c.Rerank.AcceptableThreshold)
	}
	if c.Rerank.AcceptableThreshold < c.Rerank.LowThreshold {
		return fmt.Errorf("rerank.acceptable_threshold %.2f must not be below low_threshold %.2f",
			c.Rerank.AcceptableThreshold, c.Rerank.LowThreshold)
	}
	if c.Rerank.BelowAcceptableMax < 0 || c.Rerank.BelowAcceptableMax > 1 {
		return fmt.Errorf("rerank.below_acceptable_max must be within [0, 1], got %.2f",
			c.Rerank.BelowAcceptableMax)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
