package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadValidConfig(t *testing.T) {
	yamlConfig := `
server:
  port: 9090
  read_timeout: 45s
  write_timeout: 2m
  max_body_bytes: 4096

model:
  backend: gollm
  name: llama3
  tokenizer: cl100k_base
  provider: ollama
  max_concurrency: 2
  health_check_interval: 30s

logging:
  level: info
  format: text
  file: ""

cors:
  allowed_origin: "http://localhost:3000"
  allowed_headers: [Content-Type]
  allowed_methods: [POST, OPTIONS]
`

	config, err := Load(strings.NewReader(yamlConfig))
	require.NoError(t, err)

	assert.Equal(t, 9090, config.Server.Port)
	assert.Equal(t, 45*time.Second, config.Server.ReadTimeout)
	assert.Equal(t, 2*time.Minute, config.Server.WriteTimeout)
	assert.Equal(t, int64(4096), config.Server.MaxBodyBytes)

	assert.Equal(t, BackendGollm, config.Model.Backend)
	assert.Equal(t, "llama3", config.Model.Name)
	assert.Equal(t, "ollama", config.Model.Provider)
	assert.Equal(t, 2, config.Model.MaxConcurrency)
	assert.Equal(t, 30*time.Second, config.Model.HealthCheckInterval)

	assert.Equal(t, "info", config.Logging.Level)
	assert.Equal(t, "text", config.Logging.Format)
	assert.Empty(t, config.Logging.File)

	assert.Equal(t, "http://localhost:3000", config.CORS.AllowedOrigin)
	assert.Equal(t, []string{"POST", "OPTIONS"}, config.CORS.AllowedMethods)

	// Untouched sections keep their defaults
	assert.True(t, config.CircuitBreaker.Enabled)
	assert.Equal(t, "/metrics", config.Metrics.Path)
}

func TestLoadEmptyConfigUsesDefaults(t *testing.T) {
	config, err := Load(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), config)
}

func TestLoadInvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		config string
		want   string
	}{
		{
			name:   "invalid port",
			config: "server:\n  port: 70000\n",
			want:   "Port",
		},
		{
			name:   "unknown backend",
			config: "model:\n  backend: torch\n",
			want:   "Backend",
		},
		{
			name:   "remote without endpoint",
			config: "model:\n  backend: remote\n  endpoint: \"\"\n",
			want:   "remote backend requires model endpoint",
		},
		{
			name:   "gollm without provider",
			config: "model:\n  backend: gollm\n",
			want:   "gollm backend requires model provider",
		},
		{
			name:   "remote tokenizer with static backend",
			config: "model:\n  backend: static\n  tokenizer: remote\n",
			want:   "remote tokenizer requires the remote backend",
		},
		{
			name:   "invalid log level",
			config: "logging:\n  level: verbose\n",
			want:   "Level",
		},
		{
			name:   "unknown field",
			config: "model:\n  num_beams: 8\n",
			want:   "num_beams",
		},
		{
			name:   "breaker without threshold",
			config: "circuit_breaker:\n  enabled: true\n  failure_threshold: 0\n",
			want:   "failure threshold",
		},
		{
			name:   "relative metrics path",
			config: "metrics:\n  enabled: true\n  path: metrics\n",
			want:   "invalid metrics path",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tt.config))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("PARLEY_TEST_ENDPOINT", "http://inference:9000")
	t.Setenv("PARLEY_TEST_NESTED", "${PARLEY_TEST_ENDPOINT}")

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "plain", input: "${PARLEY_TEST_ENDPOINT}", want: "http://inference:9000"},
		{name: "default used", input: "${PARLEY_TEST_UNSET:-fallback}", want: "fallback"},
		{name: "default ignored", input: "${PARLEY_TEST_ENDPOINT:-fallback}", want: "http://inference:9000"},
		{name: "nested", input: "${PARLEY_TEST_NESTED}", want: "http://inference:9000"},
		{name: "unterminated", input: "${PARLEY_TEST_ENDPOINT", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := expandEnvVars(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadFileExpandsEnvironment(t *testing.T) {
	t.Setenv("PARLEY_TEST_KEY", "secret")

	path := filepath.Join(t.TempDir(), "parley.yaml")
	content := "model:\n  backend: gollm\n  provider: openai\n  tokenizer: cl100k_base\n  api_key: ${PARLEY_TEST_KEY}\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	config, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "secret", config.Model.APIKey)
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open config file")
}

func TestShippedConfigIsValid(t *testing.T) {
	t.Setenv("PARLEY_PORT", "")
	t.Setenv("PARLEY_BACKEND", "")
	t.Setenv("PARLEY_MODEL_ENDPOINT", "")

	cfg, err := LoadFile(filepath.Join("..", "parley.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 5000, cfg.Server.Port)
	assert.Equal(t, BackendRemote, cfg.Model.Backend)
	assert.Equal(t, TokenizerRemote, cfg.Model.Tokenizer)
	assert.Equal(t, "http://localhost:8081", cfg.Model.Endpoint)
	assert.Equal(t, 1, cfg.Model.MaxConcurrency)
}
