package compression

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAgentBackend_RequiresCommand(t *testing.T) {
	_, err := NewAgentBackend(AgentConfig{})
	assert.Error(t, err)
}

func TestAgentBackend_PipesPromptThroughStdin(t *testing.T) {
	// cat echoes stdin, so the output equals the prompt.
	backend, err := NewAgentBackend(AgentConfig{
		Command:        "cat",
		Timeout:        10 * time.Second,
		MaxOutputBytes: 1 << 20,
	})
	require.NoError(t, err)

	text, err := backend.Compress(context.Background(), "the prompt text", Options{})

	require.NoError(t, err)
	assert.Equal(t, "the prompt text", text)
}

func TestAgentBackend_TimeoutKillsProcess(t *testing.T) {
	backend, err := NewAgentBackend(AgentConfig{
		Command:        "sleep",
		Args:           []string{"30"},
		Timeout:        100 * time.Millisecond,
		MaxOutputBytes: 1 << 20,
	})
	require.NoError(t, err)

	start := time.Now()
	_, err = backend.Compress(context.Background(), "p", Options{})

	assert.ErrorIs(t, err, ErrBackendTimeout)
	assert.Less(t, time.Since(start), 5*time.Second, "process must be terminated, not awaited")
}

func TestAgentBackend_NonZeroExit(t *testing.T) {
	backend, err := NewAgentBackend(AgentConfig{
		Command:        "sh",
		Args:           []string{"-c", "echo boom >&2; exit 3"},
		Timeout:        10 * time.Second,
		MaxOutputBytes: 1 << 20,
	})
	require.NoError(t, err)

	_, err = backend.Compress(context.Background(), "p", Options{})

	require.ErrorIs(t, err, ErrBackendFailure)
	assert.Contains(t, err.Error(), "boom")
}

func TestAgentBackend_OutputCeiling(t *testing.T) {
	backend, err := NewAgentBackend(AgentConfig{
		Command:        "sh",
		Args:           []string{"-c", "head -c 4096 /dev/zero"},
		Timeout:        10 * time.Second,
		MaxOutputBytes: 1024,
	})
	require.NoError(t, err)

	_, err = backend.Compress(context.Background(), "p", Options{})

	assert.ErrorIs(t, err, ErrOutputTooLarge)
}

func TestAgentBackend_EmptyOutput(t *testing.T) {
	backend, err := NewAgentBackend(AgentConfig{
		Command:        "true",
		Timeout:        10 * time.Second,
		MaxOutputBytes: 1 << 20,
	})
	require.NoError(t, err)

	_, err = backend.Compress(context.Background(), "p", Options{})

	assert.ErrorIs(t, err, ErrMalformedResponse)
}
