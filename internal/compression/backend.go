package compression

import "context"

// Options carries per-invocation parameters for a backend call.
type Options struct {
	// Model overrides the backend's configured model when set.
	Model string
}

// Backend is the uniform contract every summarization transport
// implements. Compress sends the prompt, fully drains the backend's
// response stream, and returns the accumulated text. Failures are one
// of the backend error sentinels (wrapped): ErrBackendFailure,
// ErrBackendTimeout, ErrMalformedResponse, or ErrOutputTooLarge.
type Backend interface {
	Compress(ctx context.Context, prompt string, opts Options) (string, error)
}

// chatMessage is the shared request message shape for the network
// backends.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatRequest is the streamed chat-completion request body shared by
// the local and gateway backends.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Stream      bool          `json:"stream"`
	Temperature float64       `json:"temperature"`
	TopP        float64       `json:"top_p"`
}

// Sampling parameters for summarization requests. Low temperature
// keeps compressions consistent.
const (
	samplingTemperature = 0.3
	samplingTopP        = 0.9
)
