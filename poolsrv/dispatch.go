// Copyright (C) 2025, Rundler Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package poolsrv

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/rayyan224/rundler/uop"
)

// dispatch routes a single Request, either answering it inline on the
// event-loop goroutine (sync kinds) or handing it to the spawner
// (async kinds). It is only ever called from Run's goroutine. Span
// lifetime is delegated to dispatchSync/dispatchAsync rather than
// wrapped here, since an async request's real work happens on a
// spawner goroutine that outlives this call.
func (r *Runner) dispatch(ctx context.Context, req Request) {
	if req.Kind.requiresEntryPoint() {
		if !r.universe.Has(req.EntryPoint) {
			reply(req, nil, NewUnknownEntryPointError(req.EntryPoint))
			return
		}
	}

	switch req.Kind.class() {
	case classAsync:
		r.dispatchAsync(ctx, req)
	default:
		r.dispatchSync(ctx, req)
	}
}

func reply(req Request, payload any, err error) {
	req.reply <- Response{Kind: req.Kind, Payload: payload, Err: err}
}

// dispatchAsync off-loads I/O-bound operations to the spawner so a
// slow Mempool call (on-chain stake lookup, simulation during AddOp)
// cannot stall the event loop or any other in-flight request. Each
// branch starts its own span inside the spawned closure rather than
// in dispatch, so the span stays open for the task's actual duration
// instead of closing the moment it is handed off.
func (r *Runner) dispatchAsync(ctx context.Context, req Request) {
	switch req.Kind {
	case KindAddOp:
		p := req.Payload.(AddOpReq)
		mp := r.mempools[req.EntryPoint]
		if p.Op.Version != mp.Version() {
			reply(req, nil, NewInvalidVersionError(p.Op.Version, mp.Version()))
			return
		}
		r.metrics.incInFlight()
		r.spawner.Submit(func() {
			defer r.metrics.decInFlight()
			taskCtx, span := r.tracer.Start(ctx, "pool.dispatch."+req.Kind.String())
			defer span.End()
			hash, err := mp.AddOperation(taskCtx, p.Op, p.Perm, p.Origin)
			reply(req, AddOpResp{Hash: hash}, err)
		})

	case KindGetStakeStatus:
		p := req.Payload.(GetStakeStatusReq)
		mp := r.mempools[req.EntryPoint]
		r.metrics.incInFlight()
		r.spawner.Submit(func() {
			defer r.metrics.decInFlight()
			taskCtx, span := r.tracer.Start(ctx, "pool.dispatch."+req.Kind.String())
			defer span.End()
			status, err := mp.GetStakeStatus(taskCtx, p.Address)
			reply(req, GetStakeStatusResp{Status: status}, err)
		})

	default:
		r.log.Error("no async handler for request kind", zap.Stringer("kind", req.Kind))
		reply(req, nil, ErrUnexpectedResponse)
	}
}

// dispatchSync answers every remaining Kind inline. None of these
// block on external I/O in a well-behaved Mempool implementation, so
// running them on the event-loop goroutine keeps the common path
// allocation-cheap and lock-free.
func (r *Runner) dispatchSync(ctx context.Context, req Request) {
	ctx, span := r.tracer.Start(ctx, "pool.dispatch."+req.Kind.String())
	defer span.End()

	switch req.Kind {
	case KindGetSupportedEntryPoints:
		reply(req, GetSupportedEntryPointsResp{EntryPoints: r.universe.List()}, nil)

	case KindGetOps:
		p := req.Payload.(GetOpsReq)
		ops, err := r.mempools[req.EntryPoint].GetOps(ctx, p.MaxOps, p.Filter)
		reply(req, GetOpsResp{Ops: ops}, err)

	case KindGetOpsSummaries:
		p := req.Payload.(GetOpsSummariesReq)
		summaries, err := r.mempools[req.EntryPoint].GetOpsSummaries(ctx, p.MaxOps, p.Filter)
		reply(req, GetOpsSummariesResp{Summaries: summaries}, err)

	case KindGetOpsByHashes:
		p := req.Payload.(GetOpsByHashesReq)
		ops, err := r.mempools[req.EntryPoint].GetOpsByHashes(ctx, p.Hashes)
		reply(req, GetOpsByHashesResp{Ops: ops}, err)

	case KindGetOpByHash:
		p := req.Payload.(GetOpByHashReq)
		op, err := r.findByHash(ctx, p.Hash)
		reply(req, GetOpByHashResp{Op: op}, err)

	case KindGetOpByID:
		p := req.Payload.(GetOpByIDReq)
		op, err := r.findByID(ctx, p.ID)
		reply(req, GetOpByIDResp{Op: op}, err)

	case KindRemoveOps:
		p := req.Payload.(RemoveOpsReq)
		err := r.mempools[req.EntryPoint].RemoveOps(ctx, p.Hashes)
		reply(req, RemoveOpsResp{}, err)

	case KindRemoveOpByID:
		p := req.Payload.(RemoveOpByIDReq)
		removed, err := r.mempools[req.EntryPoint].RemoveOpByID(ctx, p.ID)
		reply(req, RemoveOpByIDResp{Removed: removed}, err)

	case KindUpdateEntities:
		p := req.Payload.(UpdateEntitiesReq)
		err := r.mempools[req.EntryPoint].UpdateEntities(ctx, p.Updates)
		reply(req, UpdateEntitiesResp{}, err)

	case KindDebugClearState:
		p := req.Payload.(DebugClearStateReq)
		err := r.mempools[req.EntryPoint].DebugClearState(ctx, p.Flags)
		reply(req, DebugClearStateResp{}, err)

	case KindAdminSetTracking:
		p := req.Payload.(AdminSetTrackingReq)
		err := r.mempools[req.EntryPoint].AdminSetTracking(ctx, p.Flags)
		reply(req, AdminSetTrackingResp{}, err)

	case KindDebugDumpMempool:
		ops, err := r.mempools[req.EntryPoint].DebugDumpMempool(ctx)
		reply(req, DebugDumpMempoolResp{Ops: ops}, err)

	case KindDebugSetReputations:
		p := req.Payload.(DebugSetReputationsReq)
		err := r.mempools[req.EntryPoint].DebugSetReputations(ctx, p.Entries)
		reply(req, DebugSetReputationsResp{}, err)

	case KindDebugDumpReputation:
		entries, err := r.mempools[req.EntryPoint].DebugDumpReputation(ctx)
		reply(req, DebugDumpReputationResp{Entries: entries}, err)

	case KindDebugDumpPaymasterBalances:
		balances, err := r.mempools[req.EntryPoint].DebugDumpPaymasterBalances(ctx)
		reply(req, DebugDumpPaymasterBalancesResp{Balances: balances}, err)

	case KindGetReputationStatus:
		p := req.Payload.(GetReputationStatusReq)
		status, err := r.mempools[req.EntryPoint].GetReputationStatus(ctx, p.Address)
		reply(req, GetReputationStatusResp{Status: status}, err)

	case KindSubscribeNewHeads:
		p := req.Payload.(SubscribeNewHeadsReq)
		reply(req, SubscribeNewHeadsResp{Subscription: r.subscribeNewHeads(p.TrackedAddresses)}, nil)

	default:
		r.log.Error("no sync handler for request kind", zap.Stringer("kind", req.Kind))
		reply(req, nil, ErrUnexpectedResponse)
	}
}

// findByHash scans every configured mempool for a hash, since
// get_op_by_hash is not EntryPoint-scoped. It stops at the first hit.
func (r *Runner) findByHash(ctx context.Context, hash uop.Hash) (*uop.PoolOp, error) {
	for _, id := range r.order {
		op, err := r.mempools[id].GetOpByHash(ctx, hash)
		if err != nil {
			return nil, err
		}
		if op != nil {
			return op, nil
		}
	}
	return nil, nil
}

func (r *Runner) findByID(ctx context.Context, id uop.ID) (*uop.PoolOp, error) {
	for _, epID := range r.order {
		op, err := r.mempools[epID].GetOpByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if op != nil {
			return op, nil
		}
	}
	return nil, nil
}

func (r *Runner) subscribeNewHeads(tracked []common.Address) *Subscription {
	trackedSet := make(map[common.Address]struct{}, len(tracked))
	for _, a := range tracked {
		trackedSet[a] = struct{}{}
	}
	return &Subscription{inner: r.broadcaster.Subscribe(), trackedAddresses: trackedSet}
}
