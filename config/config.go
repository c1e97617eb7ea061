// Package config loads urlcanon settings from a YAML file, a .env file and
// URLCANON_* environment variables, in increasing order of precedence.
//
// Example config file:
//
//	concurrency: 8
//	request_timeout: 15s
//	rate_limit: 5
//	respect_robots: false
//	vk_video_anchor_index: 3
//	shorteners:
//	  - lnk.example
//	log_level: warn
package config

import (
	"fmt"
	"io"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/lukemcguire/urlcanon/batch"
	"github.com/lukemcguire/urlcanon/classifier"
	"github.com/lukemcguire/urlcanon/fetcher"
)

// Config holds every tunable of a urlcanon run.
type Config struct {
	Concurrency        int           `yaml:"concurrency" env:"URLCANON_CONCURRENCY"`
	RequestTimeout     time.Duration `yaml:"request_timeout" env:"URLCANON_REQUEST_TIMEOUT"`
	RateLimit          int           `yaml:"rate_limit" env:"URLCANON_RATE_LIMIT"`
	TargetRTT          time.Duration `yaml:"target_rtt" env:"URLCANON_TARGET_RTT"`
	UserAgent          string        `yaml:"user_agent" env:"URLCANON_USER_AGENT"`
	Retries            int           `yaml:"retries" env:"URLCANON_RETRIES"`
	RetryDelay         time.Duration `yaml:"retry_delay" env:"URLCANON_RETRY_DELAY"`
	RespectRobots      bool          `yaml:"respect_robots" env:"URLCANON_RESPECT_ROBOTS"`
	VKVideoAnchorIndex int           `yaml:"vk_video_anchor_index" env:"URLCANON_VK_VIDEO_ANCHOR_INDEX"`
	Shorteners         []string      `yaml:"shorteners" env:"URLCANON_SHORTENERS"`
	LogLevel           string        `yaml:"log_level" env:"URLCANON_LOG_LEVEL"`
}

var logLevels = []string{"debug", "info", "warn", "error"}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Concurrency:        batch.DefaultConfig().Concurrency,
		RequestTimeout:     15 * time.Second,
		RateLimit:          5,
		TargetRTT:          time.Second,
		UserAgent:          fetcher.DefaultUserAgent,
		Retries:            0,
		RetryDelay:         time.Second,
		VKVideoAnchorIndex: classifier.DefaultVKAnchorIndex,
		LogLevel:           "warn",
	}
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty), a .env file in the working directory and the environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open config file %s: %w", path, err)
		}
		defer func() { _ = f.Close() }()

		if err := decode(f, &cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	if err := applyEnv(&cfg); err != nil {
		return nil, fmt.Errorf("apply environment overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// decode overlays YAML from r onto cfg. Keys missing from the document keep
// their current value; unknown keys are rejected.
func decode(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && err != io.EOF {
		return err
	}
	return nil
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var err error
	if c.Concurrency < 1 {
		err = multierr.Append(err, fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency))
	}
	if c.RequestTimeout <= 0 {
		err = multierr.Append(err, fmt.Errorf("request_timeout must be positive, got %s", c.RequestTimeout))
	}
	if c.RateLimit < 1 {
		err = multierr.Append(err, fmt.Errorf("rate_limit must be at least 1, got %d", c.RateLimit))
	}
	if c.TargetRTT <= 0 {
		err = multierr.Append(err, fmt.Errorf("target_rtt must be positive, got %s", c.TargetRTT))
	}
	if c.Retries < 0 {
		err = multierr.Append(err, fmt.Errorf("retries must not be negative, got %d", c.Retries))
	}
	if c.Retries > 0 && c.RetryDelay <= 0 {
		err = multierr.Append(err, fmt.Errorf("retry_delay must be positive when retries are enabled, got %s", c.RetryDelay))
	}
	if c.VKVideoAnchorIndex < 0 {
		err = multierr.Append(err, fmt.Errorf("vk_video_anchor_index must not be negative, got %d", c.VKVideoAnchorIndex))
	}
	if !validLogLevel(c.LogLevel) {
		err = multierr.Append(err, fmt.Errorf("log_level must be one of %s, got %q", strings.Join(logLevels, ", "), c.LogLevel))
	}
	return err
}

func validLogLevel(level string) bool {
	for _, l := range logLevels {
		if level == l {
			return true
		}
	}
	return false
}

// FetcherConfig converts c into the fetcher's configuration.
func (c *Config) FetcherConfig() fetcher.Config {
	return fetcher.Config{
		RequestTimeout: c.RequestTimeout,
		UserAgent:      c.UserAgent,
		RateLimit:      c.RateLimit,
		TargetRTT:      c.TargetRTT,
		RespectRobots:  c.RespectRobots,
		RetryPolicy: fetcher.RetryPolicy{
			MaxRetries: c.Retries,
			BaseDelay:  c.RetryDelay,
			MaxDelay:   30 * time.Second,
		},
	}
}

// BatchConfig converts c into the processor's configuration.
func (c *Config) BatchConfig() batch.Config {
	return batch.Config{Concurrency: c.Concurrency}
}

// ClassifierOptions returns the classifier options c implies.
func (c *Config) ClassifierOptions() []classifier.Option {
	return []classifier.Option{classifier.WithVKAnchorIndex(c.VKVideoAnchorIndex)}
}

// applyEnv uses `env` struct tags to override fields from the environment.
func applyEnv(cfg *Config) error {
	v := reflect.ValueOf(cfg).Elem()
	t := v.Type()

	var err error
	for i := range v.NumField() {
		name := t.Field(i).Tag.Get("env")
		if name == "" {
			continue
		}
		val, ok := os.LookupEnv(name)
		if !ok || val == "" {
			continue
		}
		if setErr := setField(v.Field(i), val); setErr != nil {
			err = multierr.Append(err, fmt.Errorf("%s: %w", name, setErr))
		}
	}
	return err
}

func setField(field reflect.Value, val string) error {
	switch {
	case field.Type() == reflect.TypeOf(time.Duration(0)):
		d, err := time.ParseDuration(val)
		if err != nil {
			return err
		}
		field.SetInt(int64(d))
	case field.Kind() == reflect.Int:
		n, err := strconv.Atoi(val)
		if err != nil {
			return err
		}
		field.SetInt(int64(n))
	case field.Kind() == reflect.Bool:
		b, err := strconv.ParseBool(val)
		if err != nil {
			return err
		}
		field.SetBool(b)
	case field.Kind() == reflect.String:
		field.SetString(val)
	case field.Kind() == reflect.Slice && field.Type().Elem().Kind() == reflect.String:
		parts := strings.Split(val, ",")
		for i, p := range parts {
			parts[i] = strings.TrimSpace(p)
		}
		field.Set(reflect.ValueOf(parts))
	default:
		return fmt.Errorf("unsupported field type %s", field.Type())
	}
	return nil
}
