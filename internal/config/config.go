// Package config loads nada configuration from defaults, an optional YAML
// file, and the environment, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/me/nada/internal/answer"
	"github.com/me/nada/internal/poller"
	"github.com/me/nada/internal/resolver"
	"github.com/me/nada/pkg/kestra"
)

// Environment variables recognized by ApplyEnv.
const (
	EnvEngineURL     = "KESTRA_API_URL"
	EnvAuthorization = "KESTRA_BASIC_AUTH_HEADER"
	EnvAddr          = "NADA_ADDR"
	EnvLogLevel      = "NADA_LOG_LEVEL"
	EnvLogFormat     = "NADA_LOG_FORMAT"
	EnvPollInterval  = "NADA_POLL_INTERVAL"
	EnvPollAttempts  = "NADA_POLL_MAX_ATTEMPTS"
	EnvPollTimeout   = "NADA_POLL_TIMEOUT"
	EnvUnknownState  = "NADA_UNKNOWN_STATE"
)

// Config is the complete nada configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Engine EngineConfig `yaml:"engine"`
	Answer AnswerConfig `yaml:"answer"`
	Poll   PollConfig   `yaml:"poll"`
}

// ServerConfig holds configuration for the HTTP server.
type ServerConfig struct {
	Addr      string `yaml:"addr"`       // Listen address (default ":3000")
	LogLevel  string `yaml:"log_level"`  // Log level: debug, info, warn, error
	LogFormat string `yaml:"log_format"` // Log format: text, json
}

// EngineConfig locates the Kestra flow that answers questions.
type EngineConfig struct {
	BaseURL       string        `yaml:"base_url"`
	Authorization string        `yaml:"authorization,omitempty"`
	Namespace     string        `yaml:"namespace"`
	FlowID        string        `yaml:"flow_id"`
	Timeout       time.Duration `yaml:"timeout"`
}

// AnswerConfig names the task and marker the answer is read from.
type AnswerConfig struct {
	TaskID string `yaml:"task_id"`
	Marker string `yaml:"marker"`
}

// PollConfig bounds the polling loop.
type PollConfig struct {
	Interval     time.Duration               `yaml:"interval"`
	MaxAttempts  int                         `yaml:"max_attempts"`
	Timeout      time.Duration               `yaml:"timeout"`
	UnknownState resolver.UnknownStatePolicy `yaml:"unknown_state"`
}

// Default returns sensible defaults. Engine.BaseURL is left empty.
func Default() Config {
	pc := poller.DefaultConfig()
	return Config{
		Server: ServerConfig{
			Addr:      ":3000",
			LogLevel:  "info",
			LogFormat: "text",
		},
		Engine: EngineConfig{
			Namespace: kestra.DefaultNamespace,
			FlowID:    kestra.DefaultFlowID,
			Timeout:   kestra.DefaultTimeout,
		},
		Answer: AnswerConfig{
			TaskID: answer.DefaultTaskID,
			Marker: answer.DefaultMarker,
		},
		Poll: PollConfig{
			Interval:     pc.Interval,
			MaxAttempts:  pc.MaxAttempts,
			Timeout:      pc.Timeout,
			UnknownState: resolver.UnknownAsPending,
		},
	}
}

// Load returns the defaults overlaid with the YAML file at path (skipped
// when path is empty) and then the process environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from the environment variables listed above.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	setString := func(dst *string, key string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	setString(&c.Engine.BaseURL, EnvEngineURL)
	setString(&c.Engine.Authorization, EnvAuthorization)
	setString(&c.Server.Addr, EnvAddr)
	setString(&c.Server.LogLevel, EnvLogLevel)
	setString(&c.Server.LogFormat, EnvLogFormat)
	if v := getenv(EnvUnknownState); v != "" {
		c.Poll.UnknownState = resolver.UnknownStatePolicy(v)
	}

	if v := getenv(EnvPollInterval); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvPollInterval, err)
		}
		c.Poll.Interval = d
	}
	if v := getenv(EnvPollTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvPollTimeout, err)
		}
		c.Poll.Timeout = d
	}
	if v := getenv(EnvPollAttempts); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvPollAttempts, err)
		}
		c.Poll.MaxAttempts = n
	}
	return nil
}

// Validate reports configuration errors.
func (c Config) Validate() error {
	var errs []error
	if c.Engine.BaseURL == "" {
		errs = append(errs, fmt.Errorf("engine base URL is required (set %s or engine.base_url)", EnvEngineURL))
	}
	if c.Poll.Interval <= 0 {
		errs = append(errs, errors.New("poll interval must be positive"))
	}
	if c.Poll.MaxAttempts < 0 {
		errs = append(errs, errors.New("poll max_attempts must not be negative"))
	}
	if c.Poll.Timeout < 0 {
		errs = append(errs, errors.New("poll timeout must not be negative"))
	}
	switch c.Poll.UnknownState {
	case "", resolver.UnknownAsPending, resolver.UnknownAsFailed:
	default:
		errs = append(errs, fmt.Errorf("poll unknown_state %q: want pending or failed", c.Poll.UnknownState))
	}
	if c.Answer.Marker == "" {
		errs = append(errs, errors.New("answer marker must not be empty"))
	}
	return errors.Join(errs...)
}

// Kestra returns the engine client configuration.
func (c Config) Kestra() kestra.Config {
	return kestra.Config{
		BaseURL:       c.Engine.BaseURL,
		Authorization: c.Engine.Authorization,
		Namespace:     c.Engine.Namespace,
		FlowID:        c.Engine.FlowID,
		Timeout:       c.Engine.Timeout,
	}
}

// Resolver returns the status resolver configuration.
func (c Config) Resolver() resolver.Config {
	return resolver.Config{
		Extractor:    answer.Extractor{TaskID: c.Answer.TaskID, Marker: c.Answer.Marker},
		UnknownState: c.Poll.UnknownState,
	}
}

// Poller returns the polling controller configuration.
func (c Config) Poller() poller.Config {
	return poller.Config{
		Interval:    c.Poll.Interval,
		MaxAttempts: c.Poll.MaxAttempts,
		Timeout:     c.Poll.Timeout,
	}
}

// Redacted returns a copy safe to print: the authorization value is masked.
func (c Config) Redacted() Config {
	if c.Engine.Authorization != "" {
		c.Engine.Authorization = "********"
	}
	return c
}
