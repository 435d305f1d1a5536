package otelcol

import (
	"context"

	"trustmarket/pkg/config"
	"trustmarket/pkg/otelcol/exporters"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("otelcol", fx.Invoke(Register))

func defaultTraceProviderOption(cfg *config.Config) []trace.TracerProviderOption {
	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(
		attribute.String("service.name", cfg.AppName),
		attribute.String("service.version", cfg.AppVersion),
		attribute.String("deployment.environment", cfg.AppEnv),
	))
	if err != nil {
		res = resource.Default()
	}
	return []trace.TracerProviderOption{
		trace.WithResource(res),
	}
}

func ProvideTrace(exporter trace.SpanExporter, opts ...trace.TracerProviderOption) *trace.TracerProvider {
	opts = append(opts, trace.WithBatcher(exporter))
	return trace.NewTracerProvider(opts...)
}

// Register installs the global tracer provider when OTEL.ENDPOINT is set. Spans are dropped otherwise.
func Register(lc fx.Lifecycle, cfg *config.Config) error {
	if cfg.Otel.Endpoint == "" {
		zap.L().Info("otel endpoint not configured, trace export disabled")
		return nil
	}

	var (
		exporter *otlptrace.Exporter
		err      error
	)
	switch cfg.Otel.Protocol {
	case "grpc":
		exporter, err = exporters.ProvideGrpc(cfg)
	default:
		exporter, err = exporters.ProvideHttp(cfg)
	}
	if err != nil {
		zap.L().Error("failed to create trace exporter", zap.String("protocol", cfg.Otel.Protocol), zap.Error(err))
		return err
	}

	tp := ProvideTrace(exporter, defaultTraceProviderOption(cfg)...)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return tp.Shutdown(ctx)
		},
	})

	zap.L().Info("trace export enabled", zap.String("endpoint", cfg.Otel.Endpoint), zap.String("protocol", cfg.Otel.Protocol))
	return nil
}
