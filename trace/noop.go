// Copyright (C) 2025, Rundler Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package trace

import (
	"github.com/ava-labs/avalanchego/trace"
	oteltrace "go.opentelemetry.io/otel/trace"
)

var _ trace.Tracer = (*noOpTracer)(nil)

// noOpTracer implements trace.Tracer without exporting anything.
type noOpTracer struct {
	oteltrace.Tracer
}

// NoOp returns a trace.Tracer whose spans are non-recording no-ops
// (so code instrumented with it runs unchanged) and are never
// exported anywhere.
func NoOp(serviceName string) trace.Tracer {
	return noOpTracer{Tracer: oteltrace.NewNoopTracerProvider().Tracer(serviceName)}
}

func (noOpTracer) Close() error {
	return nil
}
