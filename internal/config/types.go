// Package config provides configuration loading for compactd.
package config

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/fyrsmithlabs/compactd/internal/compression"
)

// Secret wraps strings that must be redacted in logs and
// serialization, such as the gateway bearer token.
type Secret string

// String implements fmt.Stringer. Always returns the redacted form.
func (s Secret) String() string {
	if s == "" {
		return ""
	}
	return "[REDACTED]"
}

// GoString implements fmt.GoStringer for %#v formatting.
func (s Secret) GoString() string {
	return "Secret([REDACTED])"
}

// Value returns the actual secret. Use sparingly.
func (s Secret) Value() string {
	return string(s)
}

// IsSet reports whether the secret has a non-empty value.
func (s Secret) IsSet() bool {
	return s != ""
}

// MarshalJSON implements json.Marshaler. Always redacted.
func (s Secret) MarshalJSON() ([]byte, error) {
	if s == "" {
		return json.Marshal("")
	}
	return json.Marshal("[REDACTED]")
}

// Config is the daemon's full configuration tree.
type Config struct {
	Server      ServerConfig      `koanf:"server"`
	Logging     LoggingConfig     `koanf:"logging"`
	Telemetry   TelemetryConfig   `koanf:"telemetry"`
	Compression CompressionConfig `koanf:"compression"`
	Backends    BackendsConfig    `koanf:"backends"`
}

// ServerConfig configures the HTTP API listener.
type ServerConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // json or console
}

// TelemetryConfig configures the OTLP exporters.
type TelemetryConfig struct {
	Enabled     bool   `koanf:"enabled"`
	Endpoint    string `koanf:"endpoint"`
	Insecure    bool   `koanf:"insecure"`
	ServiceName string `koanf:"service_name"`
}

// CompressionConfig holds the engine tunables.
type CompressionConfig struct {
	MinTokens       int     `koanf:"min_tokens"`
	MinRatio        float64 `koanf:"min_ratio"`
	MinQuality      float64 `koanf:"min_quality"`
	TargetRatio     float64 `koanf:"target_ratio"`
	DefaultStrategy string  `koanf:"default_strategy"`
	// Estimator selects the token estimator: "exact" or "approx".
	Estimator string `koanf:"estimator"`
}

// BackendsConfig holds per-backend transport settings.
type BackendsConfig struct {
	Local   LocalBackendConfig   `koanf:"local"`
	Gateway GatewayBackendConfig `koanf:"gateway"`
	Agent   AgentBackendConfig   `koanf:"agent"`
}

// LocalBackendConfig configures the local inference server backend.
type LocalBackendConfig struct {
	BaseURL string        `koanf:"base_url"`
	Model   string        `koanf:"model"`
	Timeout time.Duration `koanf:"timeout"`
}

// GatewayBackendConfig configures the hosted gateway backend.
type GatewayBackendConfig struct {
	BaseURL string        `koanf:"base_url"`
	Model   string        `koanf:"model"`
	Token   Secret        `koanf:"token"`
	Timeout time.Duration `koanf:"timeout"`
}

// AgentBackendConfig configures the local CLI agent backend.
type AgentBackendConfig struct {
	Command        string        `koanf:"command"`
	Args           []string      `koanf:"args"`
	Timeout        time.Duration `koanf:"timeout"`
	MaxOutputBytes int           `koanf:"max_output_bytes"`
}

// Default returns the configuration defaults applied before file and
// environment overrides.
func Default() *Config {
	engine := compression.DefaultConfig()
	return &Config{
		Server: ServerConfig{
			Host: "localhost",
			Port: 8750,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Telemetry: TelemetryConfig{
			Enabled:     false,
			Endpoint:    "localhost:4318",
			Insecure:    true,
			ServiceName: "compactd",
		},
		Compression: CompressionConfig{
			MinTokens:       engine.MinTokens,
			MinRatio:        engine.MinRatio,
			MinQuality:      engine.MinQuality,
			TargetRatio:     engine.TargetRatio,
			DefaultStrategy: string(compression.StrategyLocal),
			Estimator:       "exact",
		},
		Backends: BackendsConfig{
			Local: LocalBackendConfig{
				BaseURL: engine.Local.BaseURL,
				Model:   engine.Local.Model,
				Timeout: engine.Local.Timeout,
			},
			Gateway: GatewayBackendConfig{
				BaseURL: engine.Gateway.BaseURL,
				Model:   engine.Gateway.Model,
				Timeout: engine.Gateway.Timeout,
			},
			Agent: AgentBackendConfig{
				Command:        engine.Agent.Command,
				Args:           engine.Agent.Args,
				Timeout:        engine.Agent.Timeout,
				MaxOutputBytes: engine.Agent.MaxOutputBytes,
			},
		},
	}
}

// Validate checks cross-field consistency.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}
	if c.Compression.TargetRatio <= 1.0 {
		return fmt.Errorf("compression.target_ratio must be greater than 1.0")
	}
	if c.Compression.MinRatio <= 1.0 {
		return fmt.Errorf("compression.min_ratio must be greater than 1.0")
	}
	if c.Compression.MinQuality < 0 || c.Compression.MinQuality > 1 {
		return fmt.Errorf("compression.min_quality must be in [0,1]")
	}
	if !compression.Strategy(c.Compression.DefaultStrategy).Valid() {
		return fmt.Errorf("compression.default_strategy %q is not a known strategy", c.Compression.DefaultStrategy)
	}
	switch c.Compression.Estimator {
	case "exact", "approx":
	default:
		return fmt.Errorf("compression.estimator must be exact or approx, got %q", c.Compression.Estimator)
	}
	if c.Compression.DefaultStrategy == string(compression.StrategyGateway) && !c.Backends.Gateway.Token.IsSet() {
		return fmt.Errorf("backends.gateway.token is required when gateway is the default strategy")
	}
	return nil
}

// EngineConfig maps the loaded configuration onto the compression
// engine's config struct.
func (c *Config) EngineConfig() compression.Config {
	return compression.Config{
		MinTokens:   c.Compression.MinTokens,
		MinRatio:    c.Compression.MinRatio,
		MinQuality:  c.Compression.MinQuality,
		TargetRatio: c.Compression.TargetRatio,
		Local: compression.LocalConfig{
			BaseURL: c.Backends.Local.BaseURL,
			Model:   c.Backends.Local.Model,
			Timeout: c.Backends.Local.Timeout,
		},
		Gateway: compression.GatewayConfig{
			BaseURL: c.Backends.Gateway.BaseURL,
			Model:   c.Backends.Gateway.Model,
			Token:   c.Backends.Gateway.Token.Value(),
			Timeout: c.Backends.Gateway.Timeout,
		},
		Agent: compression.AgentConfig{
			Command:        c.Backends.Agent.Command,
			Args:           c.Backends.Agent.Args,
			Timeout:        c.Backends.Agent.Timeout,
			MaxOutputBytes: c.Backends.Agent.MaxOutputBytes,
		},
	}
}
