// Copyright (C) 2025, Rundler Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package trace configures the pool core's distributed tracer: an
// avalanchego trace.Tracer backed by an OpenTelemetry TracerProvider
// exporting to zipkin, or a no-op when tracing is disabled.
package trace

import (
	"context"
	"time"

	"github.com/ava-labs/avalanchego/trace"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/zipkin"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	oteltrace "go.opentelemetry.io/otel/trace"
)

const (
	exportTimeout           = 10 * time.Second
	providerShutdownTimeout = 15 * time.Second
)

// Config controls whether and how the pool exports spans.
type Config struct {
	Enabled bool `yaml:"enabled"`

	// SampleRate is the fraction of traces sampled; >= 1 always
	// samples, <= 0 never samples.
	SampleRate float64 `yaml:"sample_rate"`

	ZipkinEndpoint string `yaml:"zipkin_endpoint"`
	ServiceName    string `yaml:"service_name"`
	Version        string `yaml:"version"`
}

type tracer struct {
	oteltrace.Tracer
	tp *sdktrace.TracerProvider
}

func (t *tracer) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), providerShutdownTimeout)
	defer cancel()
	return t.tp.Shutdown(ctx)
}

// New returns a trace.Tracer per cfg, falling back to NoOp when
// tracing is disabled.
func New(cfg Config) (trace.Tracer, error) {
	if !cfg.Enabled {
		return NoOp(cfg.ServiceName), nil
	}

	exporter, err := zipkin.New(cfg.ZipkinEndpoint)
	if err != nil {
		return nil, err
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter, sdktrace.WithExportTimeout(exportTimeout)),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			attribute.String("version", cfg.Version),
			semconv.ServiceNameKey.String(cfg.ServiceName),
		)),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.SampleRate)),
	)

	return &tracer{
		Tracer: provider.Tracer(cfg.ServiceName),
		tp:     provider,
	}, nil
}
