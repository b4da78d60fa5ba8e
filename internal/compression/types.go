package compression

import "time"

// Strategy selects which backend performs a compression attempt. It is
// resolved once at invocation entry and never re-dispatched mid-call.
type Strategy string

const (
	// StrategyLocal uses the local inference server backend.
	StrategyLocal Strategy = "local"
	// StrategyGateway uses the hosted LLM gateway backend.
	StrategyGateway Strategy = "gateway"
	// StrategyAgent uses the local CLI agent subprocess backend.
	StrategyAgent Strategy = "agent"
)

// Valid reports whether s names a known backend.
func (s Strategy) Valid() bool {
	switch s {
	case StrategyLocal, StrategyGateway, StrategyAgent:
		return true
	}
	return false
}

// Unit is the ephemeral input to one compression attempt: the
// concatenated content of 1..N source blocks.
type Unit struct {
	// Content is the text to compress, with per-block headers at
	// concatenation boundaries when SourceCount > 1.
	Content string
	// ContentType feeds the prompt's content-type slot. Empty means
	// detect from the content.
	ContentType string
	// OriginalTokens is the aggregate token count of the constituents
	// (sum of cached counts). Zero means estimate from Content.
	OriginalTokens int
	// SourceCount is the number of blocks the unit was built from.
	SourceCount int
}

// Outcome is the result of one compression attempt. It is always
// populated, including on rejection, so callers see the computed
// numbers behind a business-rule failure.
type Outcome struct {
	Success          bool      `json:"success"`
	CompressedText   string    `json:"compressed_text,omitempty"`
	OriginalTokens   int       `json:"original_tokens"`
	CompressedTokens int       `json:"compressed_tokens,omitempty"`
	Ratio            float64   `json:"ratio,omitempty"`
	QualityScore     float64   `json:"quality_score,omitempty"`
	Strategy         Strategy  `json:"strategy"`
	Reason           string    `json:"reason,omitempty"`
	CompressedAt     time.Time `json:"compressed_at"`
}

// Config holds the engine's tunables and per-backend settings.
type Config struct {
	// MinTokens is the validation floor: units below it are rejected
	// without invoking a backend.
	MinTokens int
	// MinRatio is the hard acceptance floor for
	// originalTokens/compressedTokens.
	MinRatio float64
	// MinQuality is the acceptance floor for the salient-token
	// retention score.
	MinQuality float64
	// TargetRatio is the reduction the prompt asks the backend for.
	TargetRatio float64

	Local   LocalConfig
	Gateway GatewayConfig
	Agent   AgentConfig
}

// LocalConfig configures the local inference server backend.
type LocalConfig struct {
	BaseURL string
	Model   string
	Timeout time.Duration
}

// GatewayConfig configures the hosted gateway backend. Token is the
// bearer credential; it is set on the Authorization header and must
// never be logged.
type GatewayConfig struct {
	BaseURL string
	Model   string
	Token   string
	Timeout time.Duration
}

// AgentConfig configures the local CLI agent backend.
type AgentConfig struct {
	Command string
	Args    []string
	// Timeout is the hard wall-clock deadline for the subprocess.
	Timeout time.Duration
	// MaxOutputBytes caps captured stdout.
	MaxOutputBytes int
}

// Engine defaults.
const (
	DefaultMinTokens      = 100
	DefaultMinRatio       = 1.2
	DefaultMinQuality     = 0.6
	DefaultTargetRatio    = 3.0
	DefaultAgentTimeout   = 5 * time.Minute
	DefaultMaxOutputBytes = 10 * 1024 * 1024
	DefaultNetworkTimeout = 2 * time.Minute
)

// DefaultConfig returns a Config with all engine defaults applied.
func DefaultConfig() Config {
	return Config{
		MinTokens:   DefaultMinTokens,
		MinRatio:    DefaultMinRatio,
		MinQuality:  DefaultMinQuality,
		TargetRatio: DefaultTargetRatio,
		Local: LocalConfig{
			BaseURL: "http://localhost:11434",
			Model:   "llama3.2",
			Timeout: DefaultNetworkTimeout,
		},
		Gateway: GatewayConfig{
			BaseURL: "https://openrouter.ai/api",
			Model:   "anthropic/claude-3.5-haiku",
			Timeout: DefaultNetworkTimeout,
		},
		Agent: AgentConfig{
			Command:        "claude",
			Args:           []string{"-p"},
			Timeout:        DefaultAgentTimeout,
			MaxOutputBytes: DefaultMaxOutputBytes,
		},
	}
}

// withDefaults fills zero-valued fields so a partially specified
// config behaves like DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MinTokens <= 0 {
		c.MinTokens = d.MinTokens
	}
	if c.MinRatio <= 0 {
		c.MinRatio = d.MinRatio
	}
	if c.MinQuality <= 0 {
		c.MinQuality = d.MinQuality
	}
	if c.TargetRatio <= 1.0 {
		c.TargetRatio = d.TargetRatio
	}
	if c.Local.Timeout <= 0 {
		c.Local.Timeout = d.Local.Timeout
	}
	if c.Gateway.Timeout <= 0 {
		c.Gateway.Timeout = d.Gateway.Timeout
	}
	if c.Agent.Timeout <= 0 {
		c.Agent.Timeout = d.Agent.Timeout
	}
	if c.Agent.MaxOutputBytes <= 0 {
		c.Agent.MaxOutputBytes = d.Agent.MaxOutputBytes
	}
	return c
}
