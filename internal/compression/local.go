package compression

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// LocalBackend talks to a local inference server's streaming chat
// endpoint. No authentication; the response is newline-delimited JSON
// fragments, each carrying a content delta, terminated by a fragment
// marked done.
type LocalBackend struct {
	config LocalConfig
	client *http.Client
}

// NewLocalBackend creates a backend for the local inference server.
func NewLocalBackend(cfg LocalConfig) *LocalBackend {
	return &LocalBackend{
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// localFragment is one line of the local server's NDJSON stream.
type localFragment struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	Done  bool   `json:"done"`
	Error string `json:"error,omitempty"`
}

// Compress implements Backend.
func (b *LocalBackend) Compress(ctx context.Context, prompt string, opts Options) (string, error) {
	model := b.config.Model
	if opts.Model != "" {
		model = opts.Model
	}

	reqBody := chatRequest{
		Model:       model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Stream:      true,
		Temperature: samplingTemperature,
		TopP:        samplingTopP,
	}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("%w: marshal request: %v", ErrBackendFailure, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.config.BaseURL+"/api/chat", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBackendFailure, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return "", wrapTransportErr(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("%w: status %d: %s", ErrBackendFailure, resp.StatusCode, string(body))
	}

	// Drain the stream fully before returning; scoring is
	// non-incremental by design.
	var out strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	done := false
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var frag localFragment
		if err := json.Unmarshal([]byte(line), &frag); err != nil {
			return "", fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
		if frag.Error != "" {
			return "", fmt.Errorf("%w: %s", ErrBackendFailure, frag.Error)
		}
		out.WriteString(frag.Message.Content)
		if frag.Done {
			done = true
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return "", wrapTransportErr(err)
	}
	if !done {
		return "", fmt.Errorf("%w: stream ended without done marker", ErrMalformedResponse)
	}

	text := strings.TrimSpace(out.String())
	if text == "" {
		return "", fmt.Errorf("%w: empty completion", ErrMalformedResponse)
	}
	return text, nil
}

// wrapTransportErr classifies a transport-level error as a timeout or
// a generic backend failure.
func wrapTransportErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrBackendTimeout, err)
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrBackendTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrBackendFailure, err)
}
