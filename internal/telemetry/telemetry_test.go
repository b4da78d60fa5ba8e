package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_Disabled(t *testing.T) {
	tel, err := Init(context.Background(), Config{Enabled: false})
	require.NoError(t, err)
	require.NotNil(t, tel)

	assert.Nil(t, tel.LoggerProvider())
	assert.NoError(t, tel.Shutdown(context.Background()))
}

func TestInit_Enabled(t *testing.T) {
	ctx := context.Background()
	tel, err := Init(ctx, Config{
		Enabled:     true,
		Endpoint:    "localhost:4318",
		Insecure:    true,
		ServiceName: "compactd-test",
	})
	require.NoError(t, err, "exporter construction does not contact the collector")
	require.NotNil(t, tel)

	assert.NotNil(t, tel.LoggerProvider())

	// No collector is listening; the flush may fail but must return.
	_ = tel.Shutdown(ctx)
}

func TestShutdown_NilReceiver(t *testing.T) {
	var tel *Telemetry
	assert.NoError(t, tel.Shutdown(context.Background()))
	assert.Nil(t, tel.LoggerProvider())
}
