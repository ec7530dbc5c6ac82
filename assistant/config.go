package assistant

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/docqa/answer"
	"github.com/hazyhaar/docqa/session"
)

// Config holds the full service configuration.
type Config struct {
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	DataDir   string `yaml:"data_dir"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"` // json | text

	MaxFiles    int   `yaml:"max_files"`     // per upload, default 5
	MaxFileSize int64 `yaml:"max_file_size"` // bytes, default 10 MB
	MaxChars    int   `yaml:"max_chars"`     // normalized text bound per document

	LLM     answer.Config `yaml:"llm"`
	Session SessionConfig `yaml:"session"`
	Ratings RatingsConfig `yaml:"ratings"`
}

// SessionConfig selects the session backend.
type SessionConfig struct {
	Backend string              `yaml:"backend"` // memory | redis
	Redis   session.RedisConfig `yaml:"redis"`
}

// RatingsConfig selects the rating sink.
type RatingsConfig struct {
	Sink string `yaml:"sink"` // jsonl | sqlite
	Path string `yaml:"path"` // default <data_dir>/logs/ratings.jsonl or <data_dir>/ratings.db
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() *Config {
	c := &Config{}
	c.defaults()
	return c
}

func (c *Config) defaults() {
	if c.Host == "" {
		c.Host = "0.0.0.0"
	}
	if c.Port == 0 {
		c.Port = 8000
	}
	if c.DataDir == "" {
		c.DataDir = "data"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "json"
	}
	if c.MaxFiles <= 0 {
		c.MaxFiles = 5
	}
	if c.MaxFileSize <= 0 {
		c.MaxFileSize = 10 * 1024 * 1024
	}
	if c.Session.Backend == "" {
		c.Session.Backend = "memory"
	}
	if c.Ratings.Sink == "" {
		c.Ratings.Sink = "jsonl"
	}
	if c.Ratings.Path == "" {
		switch c.Ratings.Sink {
		case "sqlite":
			c.Ratings.Path = filepath.Join(c.DataDir, "ratings.db")
		default:
			c.Ratings.Path = filepath.Join(c.DataDir, "logs", "ratings.jsonl")
		}
	}
}

// LoadConfigFile reads a YAML file. Missing fields keep their defaults
// once Finalize runs.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from environment variables. getenv is usually
// os.Getenv; empty values are ignored.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	str("HOST", &c.Host)
	str("DATA_DIR", &c.DataDir)
	str("LOG_LEVEL", &c.LogLevel)
	str("LOG_FORMAT", &c.LogFormat)
	str("OPENAI_API_KEY", &c.LLM.APIKey)
	str("OPENAI_SERVER", &c.LLM.BaseURL)
	str("OPENAI_MODEL", &c.LLM.Model)
	str("SESSION_BACKEND", &c.Session.Backend)
	str("REDIS_ADDR", &c.Session.Redis.Addr)
	str("REDIS_PASSWORD", &c.Session.Redis.Password)
	str("RATING_SINK", &c.Ratings.Sink)
	str("RATING_PATH", &c.Ratings.Path)

	if v := getenv("PORT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PORT: %w", err)
		}
		c.Port = n
	}
	if v := getenv("REDIS_DB"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("REDIS_DB: %w", err)
		}
		c.Session.Redis.DB = n
	}
	if v := getenv("MAX_CHARS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("MAX_CHARS: %w", err)
		}
		c.MaxChars = n
	}
	if v := getenv("SESSION_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("SESSION_TTL: %w", err)
		}
		c.Session.Redis.TTL = d
	}
	if v := getenv("LLM_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("LLM_TIMEOUT: %w", err)
		}
		c.LLM.Timeout = d
	}
	if v := getenv("LLM_STUB"); v != "" {
		c.LLM.Stub = isTruthy(v)
	}
	return nil
}

func isTruthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// Finalize fills defaults and validates. Call it after LoadConfigFile and
// ApplyEnv.
func (c *Config) Finalize() error {
	c.defaults()
	return c.Validate()
}

// Validate checks backend names and limits. Provider settings are checked
// by answer.New.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.MaxFiles <= 0 {
		return fmt.Errorf("max_files must be > 0")
	}
	if c.MaxFileSize <= 0 {
		return fmt.Errorf("max_file_size must be > 0")
	}
	switch c.Session.Backend {
	case "memory":
	case "redis":
		if c.Session.Redis.Addr == "" {
			return fmt.Errorf("session backend redis requires REDIS_ADDR")
		}
	default:
		return fmt.Errorf("unsupported session backend %q (use memory or redis)", c.Session.Backend)
	}
	switch c.Ratings.Sink {
	case "jsonl", "sqlite":
	default:
		return fmt.Errorf("unsupported rating sink %q (use jsonl or sqlite)", c.Ratings.Sink)
	}
	return nil
}

// Addr is the listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// UploadsDir is where raw uploads are written.
func (c *Config) UploadsDir() string {
	return filepath.Join(c.DataDir, "uploads")
}
