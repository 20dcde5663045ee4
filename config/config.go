package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	// Server
	Port string `yaml:"port"` // default: 8080

	// Providers. Credentials come from each caller, never from here.
	DefaultProvider       string        `yaml:"default_provider"` // "gemini" or "groq"
	GeminiBaseURL         string        `yaml:"gemini_base_url"`
	ChatCompletionBaseURL string        `yaml:"chat_completion_base_url"`
	ChatCompletionLabel   string        `yaml:"chat_completion_label"`
	RequestTimeout        time.Duration `yaml:"request_timeout"` // default: 60s

	// Database, optional
	PostgresDSN string `yaml:"postgres_dsn"`

	// Cache, optional
	RedisAddr string `yaml:"redis_addr"`

	// Rate Limiting
	RateLimitRPM int `yaml:"rate_limit_rpm"` // AI calls per client per minute, default: 60

	// Transliteration
	TransliterateURL      string        `yaml:"transliterate_url"`
	TransliterateCacheTTL time.Duration `yaml:"transliterate_cache_ttl"` // default: 24h

	// Logging
	LogLevel  string `yaml:"log_level"`  // debug, info, warn, error
	LogFormat string `yaml:"log_format"` // json or console

	// Observability
	OTELExporterType     string `yaml:"otel_exporter_type"`     // "stdout", "otlp" or "none"
	OTELExporterEndpoint string `yaml:"otel_exporter_endpoint"` // default: "localhost:4317"
}

func Default() *Config {
	return &Config{
		Port:                  "8080",
		DefaultProvider:       "gemini",
		GeminiBaseURL:         "https://generativelanguage.googleapis.com",
		ChatCompletionBaseURL: "https://api.groq.com/openai/v1",
		ChatCompletionLabel:   "Groq",
		RequestTimeout:        60 * time.Second,
		RateLimitRPM:          60,
		TransliterateURL:      "https://inputtools.google.com/request",
		TransliterateCacheTTL: 24 * time.Hour,
		LogLevel:              "info",
		LogFormat:             "json",
		OTELExporterType:      "none",
		OTELExporterEndpoint:  "localhost:4317",
	}
}

// Load reads defaults, then the YAML file named by CONFIG_FILE, then the
// environment (a .env file is loaded first if present).
func Load() (*Config, error) {
	// Load .env file if present (non-fatal if missing)
	_ = godotenv.Load()

	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.mergeEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) mergeEnv() error {
	setString := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}
	setString("PORT", &c.Port)
	setString("DEFAULT_PROVIDER", &c.DefaultProvider)
	setString("GEMINI_BASE_URL", &c.GeminiBaseURL)
	setString("CHAT_COMPLETION_BASE_URL", &c.ChatCompletionBaseURL)
	setString("CHAT_COMPLETION_LABEL", &c.ChatCompletionLabel)
	setString("POSTGRES_DSN", &c.PostgresDSN)
	setString("REDIS_ADDR", &c.RedisAddr)
	setString("TRANSLITERATE_URL", &c.TransliterateURL)
	setString("LOG_LEVEL", &c.LogLevel)
	setString("LOG_FORMAT", &c.LogFormat)
	setString("OTEL_EXPORTER_TYPE", &c.OTELExporterType)
	setString("OTEL_EXPORTER_ENDPOINT", &c.OTELExporterEndpoint)

	if v, ok := os.LookupEnv("RATE_LIMIT_RPM"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid RATE_LIMIT_RPM: %w", err)
		}
		c.RateLimitRPM = n
	}
	for key, dst := range map[string]*time.Duration{
		"REQUEST_TIMEOUT":         &c.RequestTimeout,
		"TRANSLITERATE_CACHE_TTL": &c.TransliterateCacheTTL,
	} {
		v, ok := os.LookupEnv(key)
		if !ok {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		*dst = d
	}
	return nil
}

func (c *Config) Validate() error {
	var errs []error
	switch strings.ToLower(c.DefaultProvider) {
	case "gemini", "groq", "openai", "primary-multimodal", "chat-completion-compatible":
	default:
		errs = append(errs, fmt.Errorf("DEFAULT_PROVIDER must be gemini or groq, got %q", c.DefaultProvider))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, errors.New("REQUEST_TIMEOUT must be positive"))
	}
	if c.RateLimitRPM < 0 {
		errs = append(errs, errors.New("RATE_LIMIT_RPM must not be negative"))
	}
	switch c.OTELExporterType {
	case "stdout", "otlp", "none":
	default:
		errs = append(errs, fmt.Errorf("OTEL_EXPORTER_TYPE must be stdout, otlp or none, got %q", c.OTELExporterType))
	}
	return errors.Join(errs...)
}
