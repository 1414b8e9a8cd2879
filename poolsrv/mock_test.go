// Copyright (C) 2025, Rundler Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package poolsrv_test

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/rayyan224/rundler/poolsrv"
	"github.com/rayyan224/rundler/uop"
)

// fakeMempool is a minimal, single-threaded-safe Mempool used to drive
// Runner behavior in tests without depending on package uopool.
type fakeMempool struct {
	mu       sync.Mutex
	version  uop.Version
	ops      map[uop.Hash]uop.PoolOp
	updates  []poolsrv.ChainUpdate
	addDelay chan struct{} // if non-nil, AddOperation blocks until closed
}

func newFakeMempool(version uop.Version) *fakeMempool {
	return &fakeMempool{version: version, ops: make(map[uop.Hash]uop.PoolOp)}
}

func (m *fakeMempool) Version() uop.Version { return m.version }

func (m *fakeMempool) OnChainUpdate(ctx context.Context, update poolsrv.ChainUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates = append(m.updates, update)
	return nil
}

func (m *fakeMempool) AddOperation(ctx context.Context, op uop.UserOperation, perm uop.Permissions, origin uop.Origin) (uop.Hash, error) {
	if m.addDelay != nil {
		<-m.addDelay
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	hash := common.BytesToHash([]byte(op.Sender.Hex()))
	m.ops[hash] = uop.PoolOp{UserOp: op, Hash: hash}
	return hash, nil
}

func (m *fakeMempool) GetOps(ctx context.Context, maxOps int, filter *uop.ShardFilter) ([]uop.PoolOp, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]uop.PoolOp, 0, len(m.ops))
	for _, op := range m.ops {
		out = append(out, op)
	}
	return out, nil
}

func (m *fakeMempool) GetOpsSummaries(ctx context.Context, maxOps int, filter *uop.ShardFilter) ([]uop.Summary, error) {
	ops, _ := m.GetOps(ctx, maxOps, filter)
	out := make([]uop.Summary, len(ops))
	for i, op := range ops {
		out[i] = op.Summary()
	}
	return out, nil
}

func (m *fakeMempool) GetOpsByHashes(ctx context.Context, hashes []uop.Hash) ([]*uop.PoolOp, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*uop.PoolOp, len(hashes))
	for i, h := range hashes {
		if op, ok := m.ops[h]; ok {
			cp := op
			out[i] = &cp
		}
	}
	return out, nil
}

func (m *fakeMempool) GetOpByHash(ctx context.Context, hash uop.Hash) (*uop.PoolOp, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if op, ok := m.ops[hash]; ok {
		cp := op
		return &cp, nil
	}
	return nil, nil
}

func (m *fakeMempool) GetOpByID(ctx context.Context, id uop.ID) (*uop.PoolOp, error) {
	return nil, nil
}

func (m *fakeMempool) RemoveOps(ctx context.Context, hashes []uop.Hash) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, h := range hashes {
		delete(m.ops, h)
	}
	return nil
}

func (m *fakeMempool) RemoveOpByID(ctx context.Context, id uop.ID) (*uop.Hash, error) {
	return nil, nil
}

func (m *fakeMempool) UpdateEntities(ctx context.Context, updates []uop.EntityUpdate) error {
	return nil
}

func (m *fakeMempool) DebugClearState(ctx context.Context, flags uop.DebugClearFlags) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ops = make(map[uop.Hash]uop.PoolOp)
	return nil
}

func (m *fakeMempool) DebugDumpMempool(ctx context.Context) ([]uop.PoolOp, error) {
	return m.GetOps(ctx, 0, nil)
}

func (m *fakeMempool) DebugSetReputations(ctx context.Context, entries []uop.ReputationEntry) error {
	return nil
}

func (m *fakeMempool) DebugDumpReputation(ctx context.Context) ([]uop.ReputationEntry, error) {
	return nil, nil
}

func (m *fakeMempool) DebugDumpPaymasterBalances(ctx context.Context) ([]uop.PaymasterBalance, error) {
	return nil, nil
}

func (m *fakeMempool) GetReputationStatus(ctx context.Context, address common.Address) (uop.ReputationStatus, error) {
	return uop.ReputationOK, nil
}

func (m *fakeMempool) GetStakeStatus(ctx context.Context, address common.Address) (uop.StakeStatus, error) {
	return uop.StakeStatus{IsStaked: true}, nil
}

func (m *fakeMempool) AdminSetTracking(ctx context.Context, flags uop.AdminTrackingFlags) error {
	return nil
}

var _ poolsrv.Mempool = (*fakeMempool)(nil)
