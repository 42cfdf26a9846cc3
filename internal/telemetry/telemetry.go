// Package telemetry exports request spans over OTLP/gRPC when an endpoint is
// configured. With no endpoint the global no-op provider stays in place.
package telemetry

import (
	"context"
	"crypto/tls"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc/credentials"

	"github.com/unkn0wn-root/flightdesk/internal/errdef"
)

// Provider wraps the tracer provider that Setup installs.
type Provider struct {
	tp *sdktrace.TracerProvider
}

// Tracer returns a named tracer, or the global one when tracing is off.
func (p *Provider) Tracer(name string) trace.Tracer {
	if p == nil || p.tp == nil {
		return otel.Tracer(name)
	}
	return p.tp.Tracer(name)
}

// Shutdown flushes pending spans. Safe on a nil or disabled provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil || p.tp == nil {
		return nil
	}
	return p.tp.Shutdown(ctx)
}

// Setup builds an OTLP exporter and installs it globally. A disabled config
// returns a provider whose methods are no-ops.
func Setup(ctx context.Context, cfg Config) (*Provider, error) {
	if !cfg.Enabled() {
		return &Provider{}, nil
	}
	client := otlptracegrpc.NewClient(clientOptions(cfg)...)
	exporter, err := otlptrace.New(ctx, client)
	if err != nil {
		return nil, errdef.Wrap(errdef.CodeConfig, err, "create otlp exporter for %s", cfg.Endpoint)
	}
	return install(exporter, cfg), nil
}

func clientOptions(cfg Config) []otlptracegrpc.Option {
	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	} else {
		opts = append(opts, otlptracegrpc.WithTLSCredentials(credentials.NewTLS(&tls.Config{MinVersion: tls.VersionTLS12})))
	}
	if len(cfg.Headers) > 0 {
		opts = append(opts, otlptracegrpc.WithHeaders(cfg.Headers))
	}
	if cfg.DialTimeout > 0 {
		opts = append(opts, otlptracegrpc.WithTimeout(cfg.DialTimeout))
	}
	return opts
}

func install(exporter sdktrace.SpanExporter, cfg Config) *Provider {
	attrs := []attribute.KeyValue{attribute.String("service.name", cfg.ServiceName)}
	if cfg.Version != "" {
		attrs = append(attrs, attribute.String("service.version", cfg.Version))
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewSchemaless(attrs...)),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return &Provider{tp: tp}
}
