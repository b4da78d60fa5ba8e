package compression

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// AgentBackend runs a local CLI agent as a subprocess. The prompt is
// piped to stdin, stdout is captured up to MaxOutputBytes, and the
// process runs under a hard wall-clock timeout. On timeout the process
// is killed and the attempt reported as a timeout failure, never as a
// silent empty result.
type AgentBackend struct {
	config AgentConfig
}

// NewAgentBackend creates a backend for the local CLI agent.
func NewAgentBackend(cfg AgentConfig) (*AgentBackend, error) {
	if cfg.Command == "" {
		return nil, fmt.Errorf("agent command is required")
	}
	return &AgentBackend{config: cfg}, nil
}

// errOutputCeiling aborts the copy once the ceiling is crossed so a
// runaway process cannot exhaust memory.
var errOutputCeiling = errors.New("output ceiling reached")

// boundedBuffer is a bytes.Buffer that refuses writes past a limit.
type boundedBuffer struct {
	buf      bytes.Buffer
	limit    int
	overflow bool
}

func (b *boundedBuffer) Write(p []byte) (int, error) {
	if b.buf.Len()+len(p) > b.limit {
		b.overflow = true
		return 0, errOutputCeiling
	}
	return b.buf.Write(p)
}

// Compress implements Backend.
func (b *AgentBackend) Compress(ctx context.Context, prompt string, opts Options) (string, error) {
	runCtx, cancel := context.WithTimeout(ctx, b.config.Timeout)
	defer cancel()

	args := b.config.Args
	if opts.Model != "" {
		args = append(append([]string{}, args...), "--model", opts.Model)
	}

	cmd := exec.CommandContext(runCtx, b.config.Command, args...)
	cmd.Stdin = strings.NewReader(prompt)

	stdout := &boundedBuffer{limit: b.config.MaxOutputBytes}
	var stderr bytes.Buffer
	cmd.Stdout = stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	if runCtx.Err() == context.DeadlineExceeded {
		return "", fmt.Errorf("%w: agent exceeded %s deadline", ErrBackendTimeout, b.config.Timeout)
	}
	if stdout.overflow {
		return "", fmt.Errorf("%w: agent wrote more than %d bytes", ErrOutputTooLarge, b.config.MaxOutputBytes)
	}
	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		if len(msg) > 512 {
			msg = msg[:512]
		}
		return "", fmt.Errorf("%w: %v: %s", ErrBackendFailure, err, msg)
	}

	text := strings.TrimSpace(stdout.buf.String())
	if text == "" {
		return "", fmt.Errorf("%w: agent produced no output", ErrMalformedResponse)
	}
	return text, nil
}
