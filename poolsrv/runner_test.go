// Copyright (C) 2025, Rundler Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package poolsrv_test

import (
	"context"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/rayyan224/rundler/config"
	"github.com/rayyan224/rundler/entrypoint"
	"github.com/rayyan224/rundler/poolsrv"
	"github.com/rayyan224/rundler/uop"
)

// chanChainSubscriber lets a test hand-feed ChainUpdates to a Runner.
type chanChainSubscriber struct {
	updates chan *poolsrv.ChainUpdate
}

func newChanChainSubscriber() *chanChainSubscriber {
	return &chanChainSubscriber{updates: make(chan *poolsrv.ChainUpdate, 16)}
}

func (c *chanChainSubscriber) Next(ctx context.Context) (*poolsrv.ChainUpdate, error) {
	select {
	case u := <-c.updates:
		return u, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func startTestRunner(t *testing.T, mempools map[entrypoint.ID]*fakeMempool) (*poolsrv.Handle, *chanChainSubscriber, func()) {
	t.Helper()

	chainSub := newChanChainSubscriber()
	builder := poolsrv.New(config.Pool{}, chainSub, nil)
	for ep, mp := range mempools {
		builder = builder.WithMempool(ep, mp)
	}

	runner, handle, err := builder.Build()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		runner.Run(ctx)
		close(done)
	}()

	return handle, chainSub, func() {
		cancel()
		<-done
	}
}

func TestUnknownEntryPointIsRejectedInline(t *testing.T) {
	ep := entrypoint.ID(common.HexToAddress("0x1"))
	handle, _, stop := startTestRunner(t, map[entrypoint.ID]*fakeMempool{ep: newFakeMempool(uop.V1)})
	defer stop()

	_, err := handle.GetOps(context.Background(), entrypoint.ID(common.HexToAddress("0x2")), 0, nil)
	require.Error(t, err)
	require.True(t, poolsrv.IsUnknownEntryPoint(err))
}

func TestAddOpRejectsVersionMismatch(t *testing.T) {
	ep := entrypoint.ID(common.HexToAddress("0x1"))
	handle, _, stop := startTestRunner(t, map[entrypoint.ID]*fakeMempool{ep: newFakeMempool(uop.V2)})
	defer stop()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := handle.AddOp(ctx, ep, uop.UserOperation{Version: uop.V1}, uop.Permissions{}, uop.Origin{})
	require.Error(t, err)
	require.True(t, poolsrv.IsInvalidVersion(err))
}

func TestAddOpSucceedsForMatchingVersion(t *testing.T) {
	ep := entrypoint.ID(common.HexToAddress("0x1"))
	handle, _, stop := startTestRunner(t, map[entrypoint.ID]*fakeMempool{ep: newFakeMempool(uop.V1)})
	defer stop()

	sender := common.HexToAddress("0xabc")
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	hash, err := handle.AddOp(ctx, ep, uop.UserOperation{Version: uop.V1, Sender: sender}, uop.Permissions{}, uop.Origin{})
	require.NoError(t, err)
	require.NotEqual(t, uop.Hash{}, hash)

	op, err := handle.GetOpByHash(ctx, hash)
	require.NoError(t, err)
	require.NotNil(t, op)
	require.Equal(t, sender, op.UserOp.Sender)
}

func TestGetSupportedEntryPointsReturnsConfiguredUniverse(t *testing.T) {
	ep1 := entrypoint.ID(common.HexToAddress("0x1"))
	ep2 := entrypoint.ID(common.HexToAddress("0x2"))
	ep3 := entrypoint.ID(common.HexToAddress("0x3"))
	handle, _, stop := startTestRunner(t, map[entrypoint.ID]*fakeMempool{
		ep1: newFakeMempool(uop.V1),
		ep2: newFakeMempool(uop.V1),
		ep3: newFakeMempool(uop.V1),
	})
	defer stop()

	eps, err := handle.GetSupportedEntryPoints(context.Background())
	require.NoError(t, err)
	require.ElementsMatch(t, []entrypoint.ID{ep1, ep2, ep3}, eps)
}

func TestGetStakeStatusIsDispatchedAsynchronously(t *testing.T) {
	ep := entrypoint.ID(common.HexToAddress("0x1"))
	handle, _, stop := startTestRunner(t, map[entrypoint.ID]*fakeMempool{ep: newFakeMempool(uop.V1)})
	defer stop()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	status, err := handle.GetStakeStatus(ctx, ep, common.HexToAddress("0xdead"))
	require.NoError(t, err)
	require.True(t, status.IsStaked)
}

func TestConfirmedChainUpdateJoinsBeforeNewHead(t *testing.T) {
	ep1 := entrypoint.ID(common.HexToAddress("0x1"))
	ep2 := entrypoint.ID(common.HexToAddress("0x2"))
	mp1, mp2 := newFakeMempool(uop.V1), newFakeMempool(uop.V1)
	handle, chainSub, stop := startTestRunner(t, map[entrypoint.ID]*fakeMempool{ep1: mp1, ep2: mp2})
	defer stop()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	sub, err := handle.SubscribeNewHeads(ctx, nil)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	chainSub.updates <- &poolsrv.ChainUpdate{
		Block:     poolsrv.BlockDescriptor{Number: 42},
		Confirmed: true,
	}

	head, err := sub.Next(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(42), head.Block.Number)

	mp1.mu.Lock()
	n1 := len(mp1.updates)
	mp1.mu.Unlock()
	mp2.mu.Lock()
	n2 := len(mp2.updates)
	mp2.mu.Unlock()
	require.Equal(t, 1, n1)
	require.Equal(t, 1, n2)
}

func TestSubscriberActivityIsFilteredToTrackedAddresses(t *testing.T) {
	ep := entrypoint.ID(common.HexToAddress("0x1"))
	handle, chainSub, stop := startTestRunner(t, map[entrypoint.ID]*fakeMempool{ep: newFakeMempool(uop.V1)})
	defer stop()

	tracked := common.HexToAddress("0xaaaa")
	untracked := common.HexToAddress("0xbbbb")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	sub, err := handle.SubscribeNewHeads(ctx, []common.Address{tracked})
	require.NoError(t, err)
	defer sub.Unsubscribe()

	hash := common.HexToHash("0xdead")
	chainSub.updates <- &poolsrv.ChainUpdate{
		Block:     poolsrv.BlockDescriptor{Number: 7},
		Confirmed: true,
		Activity: map[common.Address][]common.Hash{
			tracked:   {hash},
			untracked: {hash},
		},
	}

	head, err := sub.Next(ctx)
	require.NoError(t, err)
	require.Equal(t, []common.Hash{hash}, head.Activity[tracked])
	require.NotContains(t, head.Activity, untracked)
}

func TestNonBlockingFastPathUnderSlowAsyncRequest(t *testing.T) {
	ep := entrypoint.ID(common.HexToAddress("0x1"))
	mp := newFakeMempool(uop.V1)
	mp.addDelay = make(chan struct{})
	handle, _, stop := startTestRunner(t, map[entrypoint.ID]*fakeMempool{ep: mp})
	defer stop()
	defer close(mp.addDelay)

	addCtx, addCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer addCancel()
	addDone := make(chan struct{})
	go func() {
		handle.AddOp(addCtx, ep, uop.UserOperation{Version: uop.V1}, uop.Permissions{}, uop.Origin{})
		close(addDone)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := handle.GetOps(ctx, ep, 0, nil)
	require.NoError(t, err)

	select {
	case <-addDone:
		t.Fatal("AddOp should not have completed yet")
	default:
	}
}
