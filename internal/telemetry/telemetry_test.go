package telemetry

import (
	"context"
	"testing"

	"github.com/Tubbz-alt/skara/config"
	"github.com/stretchr/testify/require"
)

func TestInitDisabledInstallsNoop(t *testing.T) {
	require.NoError(t, Init(context.Background(), config.TelemetryConfig{}, "prbot", "test"))

	_, span := Tracer("").Start(context.Background(), "noop")
	require.False(t, span.SpanContext().IsValid())
	span.End()

	counter, err := Meter("").Int64Counter("prbot.test")
	require.NoError(t, err)
	counter.Add(context.Background(), 1)

	Shutdown(context.Background())
}

func TestInitStdout(t *testing.T) {
	require.NoError(t, Init(context.Background(), config.TelemetryConfig{Enabled: true, Stdout: true}, "prbot", "test"))
	t.Cleanup(func() { Shutdown(context.Background()) })

	_, span := Tracer("").Start(context.Background(), "recorded")
	require.True(t, span.SpanContext().IsValid())
	span.End()
}
