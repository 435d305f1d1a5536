package otelcol

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"

	"trustmarket/pkg/config"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func TestProvideTraceExportsSpans(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := ProvideTrace(exporter, defaultTraceProviderOption(config.Default())...)

	_, span := tp.Tracer("test").Start(context.Background(), "job.create")
	span.End()
	require.NoError(t, tp.ForceFlush(context.Background()))

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	require.Equal(t, "job.create", spans[0].Name)
	require.NoError(t, tp.Shutdown(context.Background()))
}
