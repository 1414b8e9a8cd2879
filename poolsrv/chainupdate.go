// Copyright (C) 2025, Rundler Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package poolsrv

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// applyChainUpdate fans ChainUpdate out to every configured Mempool
// concurrently and joins on all of them before doing anything else.
// Only once every mempool has finished applying a confirmed update
// does the Runner broadcast the corresponding NewHead (I3): a
// subscriber that observes a NewHead is guaranteed every mempool
// already reflects it.
func (r *Runner) applyChainUpdate(ctx context.Context, update ChainUpdate) error {
	ctx, span := r.tracer.Start(ctx, "pool.apply_chain_update")
	defer span.End()

	g, gctx := errgroup.WithContext(ctx)
	for _, id := range r.order {
		mp := r.mempools[id]
		g.Go(func() error {
			return mp.OnChainUpdate(gctx, update)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if !update.Confirmed {
		return nil
	}

	head := NewHead{Block: update.Block, Activity: update.Activity}
	r.broadcaster.Send(head)
	r.metrics.incNewHeadsSent()
	r.metrics.addLagged(r.broadcaster.DrainDropped())
	return nil
}
