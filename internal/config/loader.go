package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// maxConfigFileSize rejects oversized config files before parsing.
const maxConfigFileSize = 1024 * 1024

// envPrefix namespaces compactd's environment variables.
const envPrefix = "COMPACTD_"

// Load reads configuration with the precedence (highest first):
//
//  1. Environment variables (COMPACTD_SERVER_PORT,
//     COMPACTD_BACKENDS_GATEWAY_TOKEN, ...)
//  2. YAML config file (default ~/.config/compactd/config.yaml)
//  3. Defaults in code
//
// A missing config file is not an error; a malformed one is.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if configPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		configPath = filepath.Join(home, ".config", "compactd", "config.yaml")
	}

	if content, err := readConfigFile(configPath); err != nil {
		return nil, err
	} else if content != nil {
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
		}
	}

	// Environment overrides. COMPACTD_BACKENDS_GATEWAY_TOKEN maps to
	// backends.gateway.token; single-underscore segments become path
	// separators after the known section prefixes.
	if err := k.Load(env.Provider(envPrefix, ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// readConfigFile returns the file's content, nil if it does not
// exist, or an error on size or permission violations.
func readConfigFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file %s exceeds %d bytes", path, maxConfigFileSize)
	}
	// The file may hold the gateway token; refuse group/world-readable
	// permissions.
	if info.Mode().Perm()&0o077 != 0 {
		return nil, fmt.Errorf("config file %s must have 0600 permissions, has %04o", path, info.Mode().Perm())
	}

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return content, nil
}

// knownSections are the top-level and nested key prefixes the env
// transformer recognizes, longest first.
var knownSections = []string{
	"backends_local_", "backends_gateway_", "backends_agent_",
	"server_", "logging_", "telemetry_", "compression_",
}

// envTransform maps COMPACTD_SECTION_SUB_FIELD_NAME to
// section.sub.field_name. Field names themselves may contain
// underscores (e.g. min_tokens), so only the known section prefixes
// become path separators.
func envTransform(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
	for _, section := range knownSections {
		if strings.HasPrefix(s, section) {
			prefix := strings.TrimSuffix(section, "_")
			return strings.ReplaceAll(prefix, "_", ".") + "." + strings.TrimPrefix(s, section)
		}
	}
	return s
}
