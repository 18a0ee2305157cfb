//go:build !integration
// +build !integration

package telemetry

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// Init swaps the global provider, so this test does not run in parallel
func TestInitExportsSpansToWriter(t *testing.T) {
	t.Setenv(EnvOTLPEndpoint, "")

	var buf bytes.Buffer
	shutdown, err := Init(context.Background(), Options{ServiceVersion: "test", Writer: &buf})
	require.NoError(t, err)

	_, span := otel.Tracer("telemetry-test").Start(context.Background(), "analysis.simulate")
	span.SetAttributes(attribute.String("scenario", "resource_failure"))
	span.End()

	require.NoError(t, shutdown(context.Background()))

	out := buf.String()
	assert.Contains(t, out, "analysis.simulate")
	assert.Contains(t, out, "resource_failure")
	assert.Contains(t, out, ServiceName)
}
