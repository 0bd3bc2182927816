package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the fully processed application configuration.
type Config struct {
	ListenAddr      string
	LogLevel        string
	ShutdownTimeout time.Duration
	Cache           CacheConfig
	HTTP            HTTPConfig
}

// CacheConfig configures the in-memory LRU and the optional Redis level.
type CacheConfig struct {
	Capacity int
	// Redis is disabled when RedisAddr is empty.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisTTL      time.Duration
}

// RedisEnabled reports whether a Redis address is configured.
func (c CacheConfig) RedisEnabled() bool {
	return c.RedisAddr != ""
}

// HTTPConfig configures the origin client.
type HTTPConfig struct {
	Timeout    time.Duration
	UserAgent  string
	ProbeRate  float64
	ProbeBurst int
}

// rawConfig is the intermediate structure that maps directly to the YAML file.
// Durations are kept as strings until processing.
type rawConfig struct {
	ListenAddr      string   `yaml:"listenAddr"`
	LogLevel        string   `yaml:"logLevel"`
	ShutdownTimeout string   `yaml:"shutdownTimeout"`
	Cache           rawCache `yaml:"cache"`
	HTTP            rawHTTP  `yaml:"http"`
}

type rawCache struct {
	Capacity int      `yaml:"capacity"`
	Redis    rawRedis `yaml:"redis"`
}

type rawRedis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	TTL      string `yaml:"ttl"`
}

type rawHTTP struct {
	Timeout    string  `yaml:"timeout"`
	UserAgent  string  `yaml:"userAgent"`
	ProbeRate  float64 `yaml:"probeRate"`
	ProbeBurst int     `yaml:"probeBurst"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		ListenAddr:      ":8080",
		LogLevel:        "info",
		ShutdownTimeout: 10 * time.Second,
		Cache: CacheConfig{
			Capacity: 1000,
		},
		HTTP: HTTPConfig{
			Timeout:    10 * time.Second,
			ProbeRate:  20,
			ProbeBurst: 40,
		},
	}
}

// LoadDotEnv loads variables from the given .env files (".env" when none are given) into the
// process environment. Variables that are already set are not overridden.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	return godotenv.Load(paths...)
}

// LoadConfig builds the configuration from defaults, the optional YAML file at path and
// YTDASH_* environment variables, in that order of precedence, then validates it.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := readFile(path)
		if err != nil {
			return nil, err
		}
		if err := raw.apply(cfg); err != nil {
			return nil, fmt.Errorf("invalid config file %s: %w", path, err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// readFile parses the YAML file strictly; unknown fields are an error.
func readFile(path string) (*rawConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file at %s: %w", path, err)
	}

	var raw rawConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return &rawConfig{}, nil
		}
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}
	return &raw, nil
}

// apply copies every field set in the file over cfg.
func (r *rawConfig) apply(cfg *Config) error {
	if r.ListenAddr != "" {
		cfg.ListenAddr = r.ListenAddr
	}
	if r.LogLevel != "" {
		cfg.LogLevel = r.LogLevel
	}
	if err := setDuration(&cfg.ShutdownTimeout, r.ShutdownTimeout, "shutdownTimeout"); err != nil {
		return err
	}

	if r.Cache.Capacity != 0 {
		cfg.Cache.Capacity = r.Cache.Capacity
	}
	if r.Cache.Redis.Addr != "" {
		cfg.Cache.RedisAddr = r.Cache.Redis.Addr
	}
	if r.Cache.Redis.Password != "" {
		cfg.Cache.RedisPassword = r.Cache.Redis.Password
	}
	if r.Cache.Redis.DB != 0 {
		cfg.Cache.RedisDB = r.Cache.Redis.DB
	}
	if err := setDuration(&cfg.Cache.RedisTTL, r.Cache.Redis.TTL, "cache.redis.ttl"); err != nil {
		return err
	}

	if err := setDuration(&cfg.HTTP.Timeout, r.HTTP.Timeout, "http.timeout"); err != nil {
		return err
	}
	if r.HTTP.UserAgent != "" {
		cfg.HTTP.UserAgent = r.HTTP.UserAgent
	}
	if r.HTTP.ProbeRate != 0 {
		cfg.HTTP.ProbeRate = r.HTTP.ProbeRate
	}
	if r.HTTP.ProbeBurst != 0 {
		cfg.HTTP.ProbeBurst = r.HTTP.ProbeBurst
	}
	return nil
}

func setDuration(dst *time.Duration, value, field string) error {
	if value == "" {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	*dst = d
	return nil
}

func applyEnv(cfg *Config) error {
	cfg.ListenAddr = GetEnv("YTDASH_LISTEN_ADDR", cfg.ListenAddr)
	cfg.LogLevel = GetEnv("YTDASH_LOG_LEVEL", cfg.LogLevel)
	cfg.Cache.Capacity = GetEnvInt("YTDASH_CACHE_CAPACITY", cfg.Cache.Capacity)
	cfg.Cache.RedisAddr = GetEnv("YTDASH_REDIS_ADDR", cfg.Cache.RedisAddr)
	cfg.Cache.RedisPassword = GetEnv("YTDASH_REDIS_PASSWORD", cfg.Cache.RedisPassword)
	cfg.Cache.RedisDB = GetEnvInt("YTDASH_REDIS_DB", cfg.Cache.RedisDB)
	cfg.HTTP.UserAgent = GetEnv("YTDASH_USER_AGENT", cfg.HTTP.UserAgent)
	cfg.HTTP.ProbeBurst = GetEnvInt("YTDASH_PROBE_BURST", cfg.HTTP.ProbeBurst)

	if s := os.Getenv("YTDASH_PROBE_RATE"); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("YTDASH_PROBE_RATE: %w", err)
		}
		cfg.HTTP.ProbeRate = v
	}
	for key, dst := range map[string]*time.Duration{
		"YTDASH_SHUTDOWN_TIMEOUT": &cfg.ShutdownTimeout,
		"YTDASH_REDIS_TTL":        &cfg.Cache.RedisTTL,
		"YTDASH_HTTP_TIMEOUT":     &cfg.HTTP.Timeout,
	} {
		if err := setDuration(dst, os.Getenv(key), key); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks the processed configuration.
func (c *Config) Validate() error {
	var errs []error
	if c.ListenAddr == "" {
		errs = append(errs, errors.New("listen address is empty"))
	}
	switch strings.ToLower(c.LogLevel) {
	case "trace", "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("unknown log level %q", c.LogLevel))
	}
	if c.Cache.Capacity <= 0 {
		errs = append(errs, fmt.Errorf("cache capacity must be positive, got %d", c.Cache.Capacity))
	}
	if c.Cache.RedisTTL < 0 {
		errs = append(errs, fmt.Errorf("redis ttl must not be negative, got %s", c.Cache.RedisTTL))
	}
	if c.Cache.RedisDB < 0 {
		errs = append(errs, fmt.Errorf("redis db must not be negative, got %d", c.Cache.RedisDB))
	}
	if c.HTTP.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("http timeout must be positive, got %s", c.HTTP.Timeout))
	}
	if c.HTTP.ProbeRate <= 0 {
		errs = append(errs, fmt.Errorf("probe rate must be positive, got %g", c.HTTP.ProbeRate))
	}
	if c.HTTP.ProbeBurst <= 0 {
		errs = append(errs, fmt.Errorf("probe burst must be positive, got %d", c.HTTP.ProbeBurst))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Errorf("shutdown timeout must be positive, got %s", c.ShutdownTimeout))
	}
	return errors.Join(errs...)
}

// GetEnv returns the value of the environment variable named by key, or fallback
// if the variable is unset or empty.
func GetEnv(key, fallback string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return fallback
}

// GetEnvInt returns the integer value of the environment variable named by key,
// or fallback if the variable is unset, empty, or not a valid integer.
func GetEnvInt(key string, fallback int) int {
	if s := os.Getenv(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	}
	return fallback
}
