// Copyright (C) 2025, Rundler Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package poolsrv

import (
	"context"
	"time"

	avatrace "github.com/ava-labs/avalanchego/trace"
	"go.uber.org/zap"

	"github.com/rayyan224/rundler/broadcast"
	"github.com/rayyan224/rundler/entrypoint"
)

// Runner owns every Mempool and is the only consumer of the request
// queue. It multiplexes three event sources in a single select
// loop: an external shutdown signal, chain updates pumped from a
// ChainSubscriber, and requests pushed by any number of Handles. Sync
// requests call into a Mempool on the loop goroutine, but async
// requests run on spawner goroutines and OnChainUpdate runs on one
// goroutine per Mempool, so a Mempool may be called concurrently and
// must do its own locking.
type Runner struct {
	mempools map[entrypoint.ID]Mempool
	order    []entrypoint.ID // stable iteration order for OnChainUpdate fan-out
	universe entrypoint.Set  // the same keys as mempools, fixed at construction (I1)

	queue       *requestQueue
	chainSub    ChainSubscriber
	broadcaster *broadcast.Broadcaster[NewHead]
	spawner     *spawner

	chainCh chan chainMsg
	closed  chan struct{}

	shutdownTimeout time.Duration

	metrics *metrics
	log     *zap.Logger
	tracer  avatrace.Tracer
}

type chainMsg struct {
	update *ChainUpdate
	err    error
}

// Run drives the event loop until ctx is canceled or the chain
// subscriber signals it has no more updates. It blocks; callers
// typically run it in its own goroutine.
func (r *Runner) Run(ctx context.Context) error {
	defer close(r.closed)
	defer r.queue.Close()

	pumpCtx, cancelPump := context.WithCancel(ctx)
	defer cancelPump()
	go r.pumpChain(pumpCtx)

	for {
		select {
		case <-ctx.Done():
			r.log.Info("pool runner shutting down", zap.Error(ctx.Err()))
			r.drainInFlight()
			return ctx.Err()

		case msg, ok := <-r.chainCh:
			if !ok {
				r.log.Info("chain subscriber closed, pool runner stopping")
				r.drainInFlight()
				return nil
			}
			if msg.err != nil {
				r.log.Error("chain subscriber error", zap.Error(msg.err))
				continue
			}
			r.metrics.incChainUpdates()
			if err := r.applyChainUpdate(ctx, *msg.update); err != nil {
				r.log.Error("failed to apply chain update", zap.Error(err))
			}

		case <-r.queue.Wake():
			for _, req := range r.queue.Drain() {
				r.dispatch(ctx, req)
			}
		}
	}
}

// drainInFlight waits for every spawned async task to finish so no
// Handle is left waiting on a reply sink that will never be written
// to, per the "complete in-flight work before exiting" shutdown
// discipline. It gives up after shutdownTimeout: a task that is still
// running at that point leaks its goroutine rather than blocking
// process exit indefinitely, since external I/O it is waiting on may
// itself be stuck.
func (r *Runner) drainInFlight() {
	done := make(chan struct{})
	go func() {
		r.spawner.Wait()
		close(done)
	}()

	timeout := r.shutdownTimeout
	if timeout <= 0 {
		<-done
		return
	}
	select {
	case <-done:
	case <-time.After(timeout):
		r.log.Warn("graceful shutdown timed out with async requests still in flight")
	}
}

// pumpChain repeatedly calls r.chainSub.Next and forwards results onto
// r.chainCh, translating the subscriber's blocking pull interface into
// a channel the event loop can select on alongside everything else.
func (r *Runner) pumpChain(ctx context.Context) {
	defer close(r.chainCh)
	for {
		update, err := r.chainSub.Next(ctx)
		if ctx.Err() != nil {
			return
		}
		if update == nil && err == nil {
			return
		}
		select {
		case r.chainCh <- chainMsg{update: update, err: err}:
		case <-ctx.Done():
			return
		}
	}
}
