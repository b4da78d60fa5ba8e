package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	// Point at a path that does not exist; defaults apply.
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 8750, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.False(t, cfg.Telemetry.Enabled)
	assert.Equal(t, 100, cfg.Compression.MinTokens)
	assert.Equal(t, 1.2, cfg.Compression.MinRatio)
	assert.Equal(t, 0.6, cfg.Compression.MinQuality)
	assert.Equal(t, 3.0, cfg.Compression.TargetRatio)
	assert.Equal(t, "local", cfg.Compression.DefaultStrategy)
	assert.Equal(t, "http://localhost:11434", cfg.Backends.Local.BaseURL)
	assert.Equal(t, "claude", cfg.Backends.Agent.Command)
	assert.Equal(t, []string{"-p"}, cfg.Backends.Agent.Args)
	assert.False(t, cfg.Backends.Gateway.Token.IsSet())
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfigFile(t, `
server:
  port: 9100
logging:
  level: debug
  format: console
compression:
  min_tokens: 200
  target_ratio: 4.0
backends:
  local:
    base_url: http://inference.internal:8080
    model: qwen2.5
  gateway:
    token: secret-value-1
  agent:
    timeout: 90s
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Server.Host, "unset keys keep defaults")
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.Equal(t, 200, cfg.Compression.MinTokens)
	assert.Equal(t, 4.0, cfg.Compression.TargetRatio)
	assert.Equal(t, 1.2, cfg.Compression.MinRatio, "unset floor keeps default")
	assert.Equal(t, "http://inference.internal:8080", cfg.Backends.Local.BaseURL)
	assert.Equal(t, "qwen2.5", cfg.Backends.Local.Model)
	assert.Equal(t, "secret-value-1", cfg.Backends.Gateway.Token.Value())
	assert.Equal(t, 90*time.Second, cfg.Backends.Agent.Timeout)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfigFile(t, `
server:
  port: 9100
`)

	t.Setenv("COMPACTD_SERVER_PORT", "9200")
	t.Setenv("COMPACTD_LOGGING_LEVEL", "warn")
	t.Setenv("COMPACTD_COMPRESSION_MIN_TOKENS", "150")
	t.Setenv("COMPACTD_BACKENDS_GATEWAY_TOKEN", "from-env")
	t.Setenv("COMPACTD_BACKENDS_LOCAL_BASE_URL", "http://env-host:11434")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9200, cfg.Server.Port, "env beats file")
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, 150, cfg.Compression.MinTokens)
	assert.Equal(t, "from-env", cfg.Backends.Gateway.Token.Value())
	assert.Equal(t, "http://env-host:11434", cfg.Backends.Local.BaseURL)
}

func TestLoad_RejectsLooseFilePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9100\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "0600")
}

func TestLoad_RejectsMalformedYAML(t *testing.T) {
	path := writeConfigFile(t, "server: [not: a: mapping\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config file")
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "port out of range",
			yaml:    "server:\n  port: 70000\n",
			wantErr: "server.port",
		},
		{
			name:    "unknown log format",
			yaml:    "logging:\n  format: xml\n",
			wantErr: "logging.format",
		},
		{
			name:    "ratio floor too low",
			yaml:    "compression:\n  min_ratio: 0.9\n",
			wantErr: "min_ratio",
		},
		{
			name:    "unknown strategy",
			yaml:    "compression:\n  default_strategy: carrier-pigeon\n",
			wantErr: "default_strategy",
		},
		{
			name:    "unknown estimator",
			yaml:    "compression:\n  estimator: vibes\n",
			wantErr: "estimator",
		},
		{
			name:    "gateway default without token",
			yaml:    "compression:\n  default_strategy: gateway\n",
			wantErr: "backends.gateway.token",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfigFile(t, tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestEnvTransform(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"COMPACTD_SERVER_PORT", "server.port"},
		{"COMPACTD_LOGGING_LEVEL", "logging.level"},
		{"COMPACTD_COMPRESSION_MIN_TOKENS", "compression.min_tokens"},
		{"COMPACTD_COMPRESSION_DEFAULT_STRATEGY", "compression.default_strategy"},
		{"COMPACTD_BACKENDS_GATEWAY_TOKEN", "backends.gateway.token"},
		{"COMPACTD_BACKENDS_LOCAL_BASE_URL", "backends.local.base_url"},
		{"COMPACTD_BACKENDS_AGENT_MAX_OUTPUT_BYTES", "backends.agent.max_output_bytes"},
		{"COMPACTD_TELEMETRY_SERVICE_NAME", "telemetry.service_name"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, envTransform(tt.in))
		})
	}
}

func TestEngineConfig_Mapping(t *testing.T) {
	path := writeConfigFile(t, `
compression:
  min_tokens: 250
  min_ratio: 1.5
backends:
  gateway:
    token: tok-123
  agent:
    command: llm
    args: ["complete", "--raw"]
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	eng := cfg.EngineConfig()
	assert.Equal(t, 250, eng.MinTokens)
	assert.Equal(t, 1.5, eng.MinRatio)
	assert.Equal(t, "tok-123", eng.Gateway.Token)
	assert.Equal(t, "llm", eng.Agent.Command)
	assert.Equal(t, []string{"complete", "--raw"}, eng.Agent.Args)
}

func TestSecret_Redaction(t *testing.T) {
	s := Secret("sk-live-abc")

	assert.Equal(t, "[REDACTED]", s.String())
	assert.Equal(t, "Secret([REDACTED])", s.GoString())
	assert.Equal(t, "sk-live-abc", s.Value())
	assert.True(t, s.IsSet())

	out, err := s.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"[REDACTED]"`, string(out))

	empty := Secret("")
	assert.Equal(t, "", empty.String())
	assert.False(t, empty.IsSet())
	out, err = empty.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `""`, string(out))
}
