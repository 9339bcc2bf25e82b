// Package config provides configuration loading for scopequote.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables prefixed SCOPEQUOTE_
//  2. YAML config file
//  3. Defaults
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"scope-quote/db/clickhouse"
	"scope-quote/db/postgres"
	"scope-quote/decision/compliance"
	"scope-quote/decision/estimation"
	"scope-quote/decision/measurement"
	"scope-quote/decision/policy"
	"scope-quote/decision/questions"
	"scope-quote/internal/logging"
)

const (
	// EnvPrefix marks environment overrides.
	EnvPrefix = "SCOPEQUOTE_"

	maxConfigFileSize = 1024 * 1024 // 1MB
)

// Config holds the complete scopequote configuration.
type Config struct {
	Log         logging.Config        `koanf:"log"`
	Server      ServerConfig          `koanf:"server"`
	ClickHouse  clickhouse.Config     `koanf:"clickhouse"`
	Postgres    postgres.Config       `koanf:"postgres"`
	Estimation  EstimationConfig      `koanf:"estimation"`
	Measurement measurement.Overrides `koanf:"measurement"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	RequestTimeout  time.Duration `koanf:"request_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	MaxBodyBytes    int64         `koanf:"max_body_bytes"`
}

// Addr is the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// EstimationConfig holds orchestrator settings.
type EstimationConfig struct {
	Workers           int               `koanf:"workers"`
	QuestionThreshold float64           `koanf:"question_threshold"`
	Jurisdiction      string            `koanf:"jurisdiction"`
	Currency          string            `koanf:"currency"`
	ProjectName       string            `koanf:"project_name"`
	Buckets           BucketConfig      `koanf:"buckets"`
	Policy            policy.Thresholds `koanf:"policy"`
}

// BucketConfig sets the confidence summary thresholds.
type BucketConfig struct {
	High   float64 `koanf:"high"`
	Medium float64 `koanf:"medium"`
	Low    float64 `koanf:"low"`
}

// Settings converts to orchestrator settings.
func (e EstimationConfig) Settings() estimation.Settings {
	return estimation.Settings{
		Workers:          e.Workers,
		HighConfidence:   e.Buckets.High,
		MediumConfidence: e.Buckets.Medium,
		LowConfidence:    e.Buckets.Low,
		Currency:         e.Currency,
		ProjectName:      e.ProjectName,
	}
}

// MeasurementOverrides returns the measurement overrides with the
// estimation jurisdiction applied, so every component sees one jurisdiction.
func (c *Config) MeasurementOverrides() measurement.Overrides {
	o := c.Measurement
	o.Jurisdiction = c.Estimation.Jurisdiction
	return o
}

// Default returns the built-in configuration.
func Default() *Config {
	s := estimation.DefaultSettings()
	return &Config{
		Log: logging.NewDefaultConfig(),
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			RequestTimeout:  20 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			MaxBodyBytes:    1 << 20,
		},
		ClickHouse: *clickhouse.DefaultConfig(),
		Postgres:   *postgres.DefaultConfig(),
		Estimation: EstimationConfig{
			Workers:           s.Workers,
			QuestionThreshold: questions.DefaultThreshold,
			Jurisdiction:      "AU",
			Currency:          s.Currency,
			ProjectName:       s.ProjectName,
			Buckets:           BucketConfig{High: s.HighConfidence, Medium: s.MediumConfidence, Low: s.LowConfidence},
			Policy:            policy.DefaultThresholds(),
		},
	}
}

// Load reads the YAML file at path, if given, then applies environment
// overrides. An empty path skips the file.
func Load(path string) (*Config, error) {
	var content []byte
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open config file: %w", err)
		}
		defer f.Close()

		info, err := f.Stat()
		if err != nil {
			return nil, fmt.Errorf("failed to stat config file: %w", err)
		}
		if info.Size() > maxConfigFileSize {
			return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
		}

		content, err = io.ReadAll(f)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return LoadBytes(content)
}

// LoadBytes parses YAML content over the defaults, then applies environment
// overrides.
func LoadBytes(content []byte) (*Config, error) {
	k := koanf.New(".")

	if len(content) > 0 {
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	// Example: SCOPEQUOTE_SERVER_PORT -> server.port
	if err := k.Load(env.Provider(EnvPrefix, ".", EnvKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// nestedSections lists sub-sections whose names contain no underscore, so
// SCOPEQUOTE_ESTIMATION_POLICY_MIN_CONFIDENCE reaches estimation.policy.min_confidence.
var nestedSections = map[string][]string{
	"estimation":  {"buckets", "policy"},
	"measurement": {"waste", "access", "complexity", "confidence"},
	"log":         {"fields"},
}

// EnvKey maps an environment variable name to a config key. The first
// segment is the section; remaining underscores stay in the field name.
func EnvKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	parts := strings.SplitN(lower, "_", 2)
	if len(parts) == 1 {
		return lower
	}

	section, field := parts[0], parts[1]
	for _, sub := range nestedSections[section] {
		if strings.HasPrefix(field, sub+"_") {
			return section + "." + sub + "." + strings.TrimPrefix(field, sub+"_")
		}
	}
	return section + "." + field
}

// Validate checks config for errors.
func (c *Config) Validate() error {
	var errs []error

	if err := c.Log.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("log: %w", err))
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.Server.MaxBodyBytes <= 0 {
		errs = append(errs, errors.New("server.max_body_bytes must be positive"))
	}
	if c.ClickHouse.Enabled && c.ClickHouse.Host == "" {
		errs = append(errs, errors.New("clickhouse.host is required when clickhouse is enabled"))
	}
	if c.Postgres.Enabled && c.Postgres.DSN == "" {
		errs = append(errs, errors.New("postgres.dsn is required when postgres is enabled"))
	}

	e := c.Estimation
	if e.Workers < 1 {
		errs = append(errs, fmt.Errorf("estimation.workers must be at least 1, got %d", e.Workers))
	}
	if e.QuestionThreshold < 0 || e.QuestionThreshold > 100 {
		errs = append(errs, fmt.Errorf("estimation.question_threshold must be within 0-100, got %v", e.QuestionThreshold))
	}
	if !(e.Buckets.High > e.Buckets.Medium && e.Buckets.Medium > e.Buckets.Low && e.Buckets.Low > 0) {
		errs = append(errs, fmt.Errorf("estimation.buckets must satisfy high > medium > low > 0, got %v/%v/%v",
			e.Buckets.High, e.Buckets.Medium, e.Buckets.Low))
	}
	switch compliance.Jurisdiction(e.Jurisdiction) {
	case compliance.JurisdictionAU, compliance.JurisdictionGeneric:
	default:
		errs = append(errs, fmt.Errorf("estimation.jurisdiction must be %q or %q, got %q",
			compliance.JurisdictionAU, compliance.JurisdictionGeneric, e.Jurisdiction))
	}
	if m := c.Measurement.Jurisdiction; m != "" && m != e.Jurisdiction {
		errs = append(errs, fmt.Errorf("measurement.jurisdiction %q conflicts with estimation.jurisdiction %q; set estimation.jurisdiction only",
			m, e.Jurisdiction))
	}
	if e.Policy.MaxHighPriorityQuestions < 0 {
		errs = append(errs, errors.New("estimation.policy.max_high_priority_questions cannot be negative"))
	}

	return errors.Join(errs...)
}
