// Package config provides configuration management for the parley chat
// server. Configuration is read from YAML on top of DefaultConfig, with
// ${VAR} and ${VAR:-default} references expanded from the environment.
package config

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Generation backends understood by the model loader.
const (
	BackendRemote = "remote"
	BackendGollm  = "gollm"
	BackendStatic = "static"

	// TokenizerRemote delegates encode and decode to the inference server so
	// the model sees its own vocabulary.
	TokenizerRemote = "remote"
)

// Config represents the complete server configuration.
type Config struct {
	Server         ServerConfig         `yaml:"server"`
	Model          ModelConfig          `yaml:"model"`
	Logging        LoggingConfig        `yaml:"logging"`
	CORS           CORSConfig           `yaml:"cors"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
	Metrics        MetricsConfig        `yaml:"metrics"`
}

// ServerConfig holds server-specific configuration for the HTTP server.
type ServerConfig struct {
	// Port specifies the HTTP server port (default: 5000)
	Port int `yaml:"port" validate:"gte=0,lte=65535"`

	// ReadTimeout is the maximum duration for reading the entire request,
	// including the body (default: 30s)
	ReadTimeout time.Duration `yaml:"read_timeout" validate:"gte=0"`

	// WriteTimeout bounds writing the response. Generation is slow, so the
	// default is generous (default: 5m)
	WriteTimeout time.Duration `yaml:"write_timeout" validate:"gte=0"`

	// MaxHeaderBytes controls the maximum number of bytes the server will
	// read parsing the request header's keys and values (default: 1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes" validate:"gte=0"`

	// MaxBodyBytes caps the /chat request body (default: 1MB)
	MaxBodyBytes int64 `yaml:"max_body_bytes" validate:"gt=0"`

	// ShutdownTimeout specifies how long to wait for in-flight requests
	// during graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"gte=0"`
}

// ModelConfig describes the generation capability loaded once at startup.
// Generation parameters (length, beams, early stopping) are fixed in code and
// deliberately absent here.
type ModelConfig struct {
	// Backend selects the implementation: remote, gollm or static
	Backend string `yaml:"backend" validate:"required,oneof=remote gollm static"`

	// Name identifies the model weights, e.g. "chatbot_model"
	Name string `yaml:"name" validate:"required"`

	// Tokenizer is the BPE encoding used to build model input (e.g. "cl100k_base"),
	// or "remote" to use the inference server's own tokenizer
	Tokenizer string `yaml:"tokenizer" validate:"required"`

	// Endpoint is the base URL of the inference server (remote backend)
	Endpoint string `yaml:"endpoint" validate:"omitempty,url"`

	// Provider is the gollm provider name (gollm backend), e.g. "ollama"
	Provider string `yaml:"provider"`

	// APIKey authenticates against the gollm provider
	APIKey string `yaml:"api_key"`

	// MaxConcurrency limits simultaneous model executions. Zero means unlimited;
	// one serializes every call for backends that are not safe for concurrent use.
	MaxConcurrency int `yaml:"max_concurrency" validate:"gte=0"`

	// HealthCheckInterval is how often the backend is pinged for /ready.
	// Zero disables periodic checks (default: 1m)
	HealthCheckInterval time.Duration `yaml:"health_check_interval" validate:"gte=0"`
}

// LoggingConfig holds logging-specific configuration.
type LoggingConfig struct {
	// Level sets logging verbosity: debug, info, warn, error
	Level string `yaml:"level" validate:"oneof=debug info warn error"`

	// Format specifies log output format: json or text
	Format string `yaml:"format" validate:"oneof=json text"`

	// File is the append-only request log. Empty disables file logging.
	File string `yaml:"file"`
}

// CORSConfig lists the cross-origin headers written on every response.
type CORSConfig struct {
	AllowedOrigin  string   `yaml:"allowed_origin" validate:"required"`
	AllowedHeaders []string `yaml:"allowed_headers" validate:"min=1"`
	AllowedMethods []string `yaml:"allowed_methods" validate:"min=1"`
}

// CircuitBreakerConfig guards model execution.
type CircuitBreakerConfig struct {
	Enabled bool `yaml:"enabled"`

	// MaxRequests is maximum number of requests allowed to pass through when in half-open state
	MaxRequests uint32 `yaml:"max_requests"`

	// Interval is the cyclic period of the closed state for the circuit breaker
	Interval time.Duration `yaml:"interval"`

	// Timeout is the period of the open state until it becomes half-open
	Timeout time.Duration `yaml:"timeout"`

	// FailureThreshold is the number of consecutive failures needed to trip the circuit
	FailureThreshold uint32 `yaml:"failure_threshold"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// DefaultConfig returns the configuration used when no file overrides it.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            5000,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    5 * time.Minute,
			MaxHeaderBytes:  1 << 20,
			MaxBodyBytes:    1 << 20,
			ShutdownTimeout: 30 * time.Second,
		},
		Model: ModelConfig{
			Backend:   BackendRemote,
			Name:      "chatbot_model",
			Tokenizer: TokenizerRemote,
			Endpoint:  "http://localhost:8081",

			HealthCheckInterval: time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "debug",
			Format: "json",
			File:   "parley.log",
		},
		CORS: CORSConfig{
			AllowedOrigin:  "*",
			AllowedHeaders: []string{"Content-Type"},
			AllowedMethods: []string{"POST"},
		},
		CircuitBreaker: CircuitBreakerConfig{
			Enabled:          true,
			MaxRequests:      1,
			Interval:         time.Minute,
			Timeout:          30 * time.Second,
			FailureThreshold: 5,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// LoadFile loads configuration from a YAML file
func LoadFile(filename string) (*Config, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("open config file: %w", err)
	}
	defer f.Close()

	return Load(f)
}

// expandEnvVars resolves ${VAR} and ${VAR:-default} references. Values are
// expanded repeatedly so a variable may refer to another one.
func expandEnvVars(s string) (string, error) {
	if open, closed := strings.Count(s, "${"), strings.Count(s, "}"); open > closed {
		return "", fmt.Errorf("unterminated variable reference")
	}

	resolve := func(key string) string {
		if i := strings.Index(key, ":-"); i >= 0 {
			if val := os.Getenv(key[:i]); val != "" {
				return val
			}
			return key[i+2:]
		}
		return os.Getenv(key)
	}

	result := os.Expand(s, resolve)
	for i := 0; i < 8 && strings.Contains(result, "${"); i++ {
		next := os.Expand(result, resolve)
		if next == result {
			break
		}
		result = next
	}
	return result, nil
}

// Load loads configuration from an io.Reader
func Load(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expandedData, err := expandEnvVars(string(data))
	if err != nil {
		return nil, fmt.Errorf("expand environment variables: %w", err)
	}

	// Start with defaults
	config := DefaultConfig()

	if strings.TrimSpace(expandedData) != "" {
		dec := yaml.NewDecoder(strings.NewReader(expandedData))
		dec.KnownFields(true)
		if err := dec.Decode(config); err != nil {
			return nil, fmt.Errorf("decode config: %w", err)
		}
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return config, nil
}

var validate = validator.New()

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}

	switch c.Model.Backend {
	case BackendRemote:
		if c.Model.Endpoint == "" {
			return fmt.Errorf("remote backend requires model endpoint")
		}
	case BackendGollm:
		if c.Model.Provider == "" {
			return fmt.Errorf("gollm backend requires model provider")
		}
	}
	if c.Model.Tokenizer == TokenizerRemote && c.Model.Backend != BackendRemote {
		return fmt.Errorf("remote tokenizer requires the remote backend, got %q", c.Model.Backend)
	}

	if c.CircuitBreaker.Enabled {
		if c.CircuitBreaker.FailureThreshold == 0 {
			return fmt.Errorf("circuit breaker failure threshold must be positive")
		}
		if c.CircuitBreaker.Timeout <= 0 {
			return fmt.Errorf("circuit breaker timeout must be positive: %v", c.CircuitBreaker.Timeout)
		}
	}

	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("invalid metrics path: %q", c.Metrics.Path)
	}

	return nil
}
