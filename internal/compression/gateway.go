package compression

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// GatewayBackend talks to a hosted LLM gateway's streaming chat
// endpoint over an authenticated channel. The response is a
// server-sent event stream of content deltas terminated by a [DONE]
// sentinel.
type GatewayBackend struct {
	config GatewayConfig
	client *http.Client
}

// NewGatewayBackend creates a backend for the hosted gateway. The
// bearer token goes on the Authorization header only; it is never
// logged.
func NewGatewayBackend(cfg GatewayConfig) (*GatewayBackend, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("gateway token is required")
	}
	return &GatewayBackend{
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// gatewayFragment is one SSE data payload of the gateway stream.
type gatewayFragment struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Compress implements Backend.
func (b *GatewayBackend) Compress(ctx context.Context, prompt string, opts Options) (string, error) {
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

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.config.BaseURL+"/v1/chat/completions", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBackendFailure, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Authorization", "Bearer "+b.config.Token)

	resp, err := b.client.Do(req)
	if err != nil {
		return "", wrapTransportErr(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("%w: status %d: %s", ErrBackendFailure, resp.StatusCode, string(body))
	}

	var out strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	done := false
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, ":") {
			continue
		}
		data, ok := strings.CutPrefix(line, "data:")
		if !ok {
			continue
		}
		data = strings.TrimSpace(data)
		if data == "[DONE]" {
			done = true
			break
		}
		var frag gatewayFragment
		if err := json.Unmarshal([]byte(data), &frag); err != nil {
			return "", fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
		if frag.Error != nil {
			return "", fmt.Errorf("%w: %s", ErrBackendFailure, frag.Error.Message)
		}
		for _, choice := range frag.Choices {
			out.WriteString(choice.Delta.Content)
		}
	}
	if err := scanner.Err(); err != nil {
		return "", wrapTransportErr(err)
	}
	if !done {
		return "", fmt.Errorf("%w: stream ended without [DONE] sentinel", ErrMalformedResponse)
	}

	text := strings.TrimSpace(out.String())
	if text == "" {
		return "", fmt.Errorf("%w: empty completion", ErrMalformedResponse)
	}
	return text, nil
}
