// Copyright (C) 2025, Rundler Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package poolsrv

import (
	"fmt"

	avatrace "github.com/ava-labs/avalanchego/trace"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/rayyan224/rundler/broadcast"
	"github.com/rayyan224/rundler/config"
	"github.com/rayyan224/rundler/entrypoint"
	"github.com/rayyan224/rundler/trace"
)

// Builder assembles a Runner and the Handle clients that talk to it.
// Construct one with New, add a Mempool per EntryPoint with
// WithMempool, then call Build to obtain the Runner and an initial
// Handle; further Handles are obtained by cloning the first, since
// Handle is just a reference to shared, immutable plumbing.
type Builder struct {
	cfg      config.Pool
	chainSub ChainSubscriber
	mempools map[entrypoint.ID]Mempool
	order    []entrypoint.ID
	log      *zap.Logger
	reg      prometheus.Registerer
	tracer   avatrace.Tracer
}

// New starts a Builder for the given chain subscriber and config. cfg
// is defaulted in place via ApplyDefaults before use.
func New(cfg config.Pool, chainSub ChainSubscriber, log *zap.Logger) *Builder {
	cfg.ApplyDefaults()
	if log == nil {
		log = zap.NewNop()
	}
	return &Builder{
		cfg:      cfg,
		chainSub: chainSub,
		mempools: make(map[entrypoint.ID]Mempool),
		log:      log,
	}
}

// WithMetrics registers the Runner's prometheus collectors against reg
// instead of leaving metrics disabled.
func (b *Builder) WithMetrics(reg prometheus.Registerer) *Builder {
	b.reg = reg
	return b
}

// WithTracer attaches a distributed tracer; omit to use trace.NoOp.
func (b *Builder) WithTracer(tracer avatrace.Tracer) *Builder {
	b.tracer = tracer
	return b
}

// WithMempool associates a Mempool with an EntryPoint. Calling it
// twice for the same EntryPoint replaces the prior association.
func (b *Builder) WithMempool(ep entrypoint.ID, mp Mempool) *Builder {
	if _, exists := b.mempools[ep]; !exists {
		b.order = append(b.order, ep)
	}
	b.mempools[ep] = mp
	return b
}

// Build validates the configuration and returns a Runner ready for Run
// plus a Handle bound to it. At least one Mempool must have been added
// first.
func (b *Builder) Build() (*Runner, *Handle, error) {
	if len(b.mempools) == 0 {
		return nil, nil, fmt.Errorf("pool: builder requires at least one mempool")
	}
	if b.chainSub == nil {
		return nil, nil, fmt.Errorf("pool: builder requires a chain subscriber")
	}

	var m *metrics
	if b.reg != nil {
		var err error
		m, err = newMetrics("pool", b.reg)
		if err != nil {
			return nil, nil, fmt.Errorf("pool: registering metrics: %w", err)
		}
	}

	tracer := b.tracer
	if tracer == nil {
		tracer = trace.NoOp("pool")
	}

	closed := make(chan struct{})
	runner := &Runner{
		mempools:    b.mempools,
		order:       b.order,
		universe:    entrypoint.NewSet(b.order...),
		queue:       newRequestQueue(),
		chainSub:    b.chainSub,
		broadcaster: broadcast.New[NewHead](b.cfg.NewHeadSubscriberCapacity),
		spawner:     newSpawner(b.cfg.MaxConcurrentAsyncRequests),
		chainCh:     make(chan chainMsg, b.cfg.ChainUpdateChannelCapacity),
		closed:      closed,
		shutdownTimeout: b.cfg.GracefulShutdownTimeout,
		metrics:     m,
		log:         b.log,
		tracer:      tracer,
	}

	handle := &Handle{
		queue:   runner.queue,
		closed:  closed,
		metrics: m,
	}

	return runner, handle, nil
}
