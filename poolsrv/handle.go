// Copyright (C) 2025, Rundler Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package poolsrv

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/rayyan224/rundler/entrypoint"
	"github.com/rayyan224/rundler/uop"
)

// Handle is the cloneable, concurrency-safe client of a running pool
// core. Every exported method sends a Request to the Runner's event
// loop and waits for the matching Response; none of them touch a
// Mempool directly. A Handle is cheap to copy and safe to share across
// goroutines.
type Handle struct {
	queue   *requestQueue
	closed  <-chan struct{}
	metrics *metrics
}

// send is the shared plumbing behind every typed operation below: it
// builds the envelope, delivers it, waits for the reply, and type-
// asserts the payload back to TResp.
func send[TResp any](ctx context.Context, h *Handle, kind Kind, ep entrypoint.ID, payload any) (TResp, error) {
	var zero TResp
	start := time.Now()
	defer func() { h.metrics.observeSend(kind, time.Since(start).Seconds()) }()

	reply := make(replySink, 1)
	req := Request{Kind: kind, EntryPoint: ep, Payload: payload, reply: reply}

	select {
	case <-h.closed:
		return zero, ErrChannelClosed
	default:
		h.queue.Push(req)
	}

	select {
	case resp := <-reply:
		if resp.Err != nil {
			return zero, resp.Err
		}
		typed, ok := resp.Payload.(TResp)
		if !ok {
			return zero, ErrUnexpectedResponse
		}
		return typed, nil
	case <-h.closed:
		return zero, ErrChannelClosed
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

func (h *Handle) GetSupportedEntryPoints(ctx context.Context) ([]entrypoint.ID, error) {
	resp, err := send[GetSupportedEntryPointsResp](ctx, h, KindGetSupportedEntryPoints, entrypoint.ID{}, GetSupportedEntryPointsReq{})
	if err != nil {
		return nil, err
	}
	return resp.EntryPoints, nil
}

func (h *Handle) AddOp(ctx context.Context, ep entrypoint.ID, op uop.UserOperation, perm uop.Permissions, origin uop.Origin) (uop.Hash, error) {
	resp, err := send[AddOpResp](ctx, h, KindAddOp, ep, AddOpReq{Op: op, Perm: perm, Origin: origin})
	if err != nil {
		return uop.Hash{}, err
	}
	return resp.Hash, nil
}

func (h *Handle) GetOps(ctx context.Context, ep entrypoint.ID, maxOps int, filter *uop.ShardFilter) ([]uop.PoolOp, error) {
	resp, err := send[GetOpsResp](ctx, h, KindGetOps, ep, GetOpsReq{MaxOps: maxOps, Filter: filter})
	if err != nil {
		return nil, err
	}
	return resp.Ops, nil
}

func (h *Handle) GetOpsSummaries(ctx context.Context, ep entrypoint.ID, maxOps int, filter *uop.ShardFilter) ([]uop.Summary, error) {
	resp, err := send[GetOpsSummariesResp](ctx, h, KindGetOpsSummaries, ep, GetOpsSummariesReq{MaxOps: maxOps, Filter: filter})
	if err != nil {
		return nil, err
	}
	return resp.Summaries, nil
}

func (h *Handle) GetOpsByHashes(ctx context.Context, ep entrypoint.ID, hashes []uop.Hash) ([]*uop.PoolOp, error) {
	resp, err := send[GetOpsByHashesResp](ctx, h, KindGetOpsByHashes, ep, GetOpsByHashesReq{Hashes: hashes})
	if err != nil {
		return nil, err
	}
	return resp.Ops, nil
}

// GetOpByHash is not EntryPoint-scoped: it is answered by whichever
// configured mempool recognizes the hash.
func (h *Handle) GetOpByHash(ctx context.Context, hash uop.Hash) (*uop.PoolOp, error) {
	resp, err := send[GetOpByHashResp](ctx, h, KindGetOpByHash, entrypoint.ID{}, GetOpByHashReq{Hash: hash})
	if err != nil {
		return nil, err
	}
	return resp.Op, nil
}

// GetOpByID is not EntryPoint-scoped, for the same reason as
// GetOpByHash.
func (h *Handle) GetOpByID(ctx context.Context, id uop.ID) (*uop.PoolOp, error) {
	resp, err := send[GetOpByIDResp](ctx, h, KindGetOpByID, entrypoint.ID{}, GetOpByIDReq{ID: id})
	if err != nil {
		return nil, err
	}
	return resp.Op, nil
}

func (h *Handle) RemoveOps(ctx context.Context, ep entrypoint.ID, hashes []uop.Hash) error {
	_, err := send[RemoveOpsResp](ctx, h, KindRemoveOps, ep, RemoveOpsReq{Hashes: hashes})
	return err
}

func (h *Handle) RemoveOpByID(ctx context.Context, ep entrypoint.ID, id uop.ID) (*uop.Hash, error) {
	resp, err := send[RemoveOpByIDResp](ctx, h, KindRemoveOpByID, ep, RemoveOpByIDReq{ID: id})
	if err != nil {
		return nil, err
	}
	return resp.Removed, nil
}

func (h *Handle) UpdateEntities(ctx context.Context, ep entrypoint.ID, updates []uop.EntityUpdate) error {
	_, err := send[UpdateEntitiesResp](ctx, h, KindUpdateEntities, ep, UpdateEntitiesReq{Updates: updates})
	return err
}

func (h *Handle) DebugClearState(ctx context.Context, ep entrypoint.ID, flags uop.DebugClearFlags) error {
	_, err := send[DebugClearStateResp](ctx, h, KindDebugClearState, ep, DebugClearStateReq{Flags: flags})
	return err
}

func (h *Handle) AdminSetTracking(ctx context.Context, ep entrypoint.ID, flags uop.AdminTrackingFlags) error {
	_, err := send[AdminSetTrackingResp](ctx, h, KindAdminSetTracking, ep, AdminSetTrackingReq{Flags: flags})
	return err
}

func (h *Handle) DebugDumpMempool(ctx context.Context, ep entrypoint.ID) ([]uop.PoolOp, error) {
	resp, err := send[DebugDumpMempoolResp](ctx, h, KindDebugDumpMempool, ep, DebugDumpMempoolReq{})
	if err != nil {
		return nil, err
	}
	return resp.Ops, nil
}

func (h *Handle) DebugSetReputations(ctx context.Context, ep entrypoint.ID, entries []uop.ReputationEntry) error {
	_, err := send[DebugSetReputationsResp](ctx, h, KindDebugSetReputations, ep, DebugSetReputationsReq{Entries: entries})
	return err
}

func (h *Handle) DebugDumpReputation(ctx context.Context, ep entrypoint.ID) ([]uop.ReputationEntry, error) {
	resp, err := send[DebugDumpReputationResp](ctx, h, KindDebugDumpReputation, ep, DebugDumpReputationReq{})
	if err != nil {
		return nil, err
	}
	return resp.Entries, nil
}

func (h *Handle) DebugDumpPaymasterBalances(ctx context.Context, ep entrypoint.ID) ([]uop.PaymasterBalance, error) {
	resp, err := send[DebugDumpPaymasterBalancesResp](ctx, h, KindDebugDumpPaymasterBalances, ep, DebugDumpPaymasterBalancesReq{})
	if err != nil {
		return nil, err
	}
	return resp.Balances, nil
}

func (h *Handle) GetReputationStatus(ctx context.Context, ep entrypoint.ID, address common.Address) (uop.ReputationStatus, error) {
	resp, err := send[GetReputationStatusResp](ctx, h, KindGetReputationStatus, ep, GetReputationStatusReq{Address: address})
	if err != nil {
		return 0, err
	}
	return resp.Status, nil
}

func (h *Handle) GetStakeStatus(ctx context.Context, ep entrypoint.ID, address common.Address) (uop.StakeStatus, error) {
	resp, err := send[GetStakeStatusResp](ctx, h, KindGetStakeStatus, ep, GetStakeStatusReq{Address: address})
	if err != nil {
		return uop.StakeStatus{}, err
	}
	return resp.Status, nil
}

// SubscribeNewHeads registers interest in the Runner's NewHead stream.
// trackedAddresses narrows Activity in every delivered event; pass nil
// to receive block identity only.
func (h *Handle) SubscribeNewHeads(ctx context.Context, trackedAddresses []common.Address) (*Subscription, error) {
	resp, err := send[SubscribeNewHeadsResp](ctx, h, KindSubscribeNewHeads, entrypoint.ID{}, SubscribeNewHeadsReq{TrackedAddresses: trackedAddresses})
	if err != nil {
		return nil, err
	}
	return resp.Subscription, nil
}

// HealthCheck is a lightweight liveness probe: it round-trips
// GetSupportedEntryPoints with the given timeout and reports whether
// the Runner answered in time. It never returns the Mempool-level
// error, only whether the core itself is responsive.
func (h *Handle) HealthCheck(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	_, err := h.GetSupportedEntryPoints(ctx)
	return err
}
