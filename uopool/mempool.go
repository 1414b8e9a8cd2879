// Copyright (C) 2025, Rundler Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package uopool is a reference implementation of poolsrv.Mempool: a
// single-EntryPoint, single-version pool of pending UserOperations
// with price/time-ordered retrieval, per-sender nonce replacement,
// paymaster deposit accounting, and reputation-based throttling. The
// poolsrv core never imports this package directly; it depends only
// on the Mempool interface it defines.
package uopool

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/rayyan224/rundler/config"
	"github.com/rayyan224/rundler/poolsrv"
	"github.com/rayyan224/rundler/uop"
)

// ChainAux is the shape this Pool expects in poolsrv.ChainUpdate.Aux,
// supplied by whatever wires a concrete ChainSubscriber in front of
// the Runner. Both fields are optional and nil-safe.
type ChainAux struct {
	// Evict reports whether a pending operation should be dropped as
	// of this confirmed head, e.g. because its nonce was observed
	// consumed on-chain.
	Evict func(uop.PoolOp) bool

	// PaymasterDeposits carries the EntryPoint-tracked on-chain
	// deposit for each paymaster address present, read upstream of
	// this pool (typically from the EntryPoint contract's
	// balanceOf/depositTo bookkeeping). A paymaster absent from this
	// map keeps its previously known deposit.
	PaymasterDeposits map[common.Address]*big.Int
}

// Pool is a concurrency-safe poolsrv.Mempool. Its own mutex makes it
// safe to share a single instance across the Runner's event-loop
// goroutine and the goroutines the spawner off-loads AddOperation and
// GetStakeStatus onto.
type Pool struct {
	mu      sync.Mutex
	version uop.Version
	cfg     config.Mempool

	currentBlock uint64

	byHash map[uop.Hash]*uop.PoolOp
	byID   map[uop.ID]*uop.PoolOp
	bySlot map[nonceKey]uop.Hash

	sorted     *sortedIndex
	reputation *reputationTable
	paymasters *paymasterTracker

	trackPaymaster  bool
	trackReputation bool
}

// New returns an empty Pool accepting UserOperations of the given
// version, tuned by cfg (zero-valued fields are defaulted).
func New(version uop.Version, cfg config.Mempool) *Pool {
	cfg.ApplyDefaults()
	return &Pool{
		version:         version,
		cfg:             cfg,
		byHash:          make(map[uop.Hash]*uop.PoolOp),
		byID:            make(map[uop.ID]*uop.PoolOp),
		bySlot:          make(map[nonceKey]uop.Hash),
		sorted:          newSortedIndex(),
		reputation:      newReputationTable(),
		paymasters:      newPaymasterTracker(),
		trackPaymaster:  true,
		trackReputation: true,
	}
}

var _ poolsrv.Mempool = (*Pool)(nil)

func (p *Pool) Version() uop.Version { return p.version }

func (p *Pool) OnChainUpdate(ctx context.Context, update poolsrv.ChainUpdate) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !update.Confirmed {
		return nil
	}
	p.currentBlock = update.Block.Number

	aux, _ := update.Aux.(ChainAux)

	// A paymaster's on-chain deposit only moves on a confirmed head;
	// refreshing it here is how reserve ever sees non-zero headroom.
	// Without this, p.paymasters starts every paymaster at a zero
	// deposit and every sponsored op is rejected forever.
	for addr, deposit := range aux.PaymasterDeposits {
		p.paymasters.setDeposit(addr, deposit)
	}

	// A confirmed head invalidates any operation whose sender's nonce
	// it has since moved past. Without a state reader wired in, the
	// reference pool conservatively keeps everything and relies on
	// RemoveOps being called explicitly once a bundler observes
	// inclusion; this hook exists for implementations that do wire one
	// in via Aux.Evict.
	if aux.Evict != nil {
		var toRemove []uop.Hash
		for hash, op := range p.byHash {
			if aux.Evict(*op) {
				toRemove = append(toRemove, hash)
			}
		}
		for _, hash := range toRemove {
			p.removeLocked(hash)
		}
	}
	return nil
}

func (p *Pool) AddOperation(ctx context.Context, op uop.UserOperation, perm uop.Permissions, origin uop.Origin) (uop.Hash, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if op.Version != p.version {
		return uop.Hash{}, fmt.Errorf("uopool: operation version %s does not match pool version %s", op.Version, p.version)
	}

	senderCap := p.reputation.throttledCap(op.Sender, p.cfg.MaxOperationsPerSender, p.cfg.ThrottledOpsPerSender)
	if senderCap == 0 && !perm.TrustedBundler {
		return uop.Hash{}, fmt.Errorf("uopool: sender %s is banned", op.Sender)
	}

	key := keyFor(op.Sender, op.Nonce)
	if existingHash, occupied := p.bySlot[key]; occupied {
		existing := p.byHash[existingHash]
		if !meetsReplacementBump(existing.PriorityFee, op.MaxPriorityFeePerGas, p.cfg.MinReplacementFeeBumpPercent) {
			return uop.Hash{}, fmt.Errorf("uopool: replacement underpriced for sender %s nonce %s", op.Sender, op.Nonce)
		}
		p.removeLocked(existingHash)
	} else if len(p.byHash) >= p.cfg.MaxOperations {
		return uop.Hash{}, fmt.Errorf("uopool: pool is full (%d operations)", p.cfg.MaxOperations)
	} else if !perm.TrustedBundler && p.countForSender(op.Sender) >= senderCap {
		return uop.Hash{}, fmt.Errorf("uopool: sender %s exceeds pending operation limit", op.Sender)
	}

	cost := paymasterCost(op)
	if p.trackPaymaster && cost != nil {
		if !p.paymasters.reserve(op.Paymaster, cost) {
			return uop.Hash{}, fmt.Errorf("uopool: paymaster %s has insufficient deposit headroom", op.Paymaster)
		}
	}

	hash := uop.ComputeHash(op)
	id := uop.ComputeID(op.Sender, op.Nonce)
	poolOp := uop.PoolOp{
		Op:             id,
		UserOp:         op,
		Hash:           hash,
		EnteredAtBlock: p.currentBlock,
		PriorityFee:    op.MaxPriorityFeePerGas,
		TotalFee:       op.MaxFeePerGas,
	}

	p.byHash[hash] = &poolOp
	p.byID[id] = &poolOp
	p.bySlot[key] = hash
	p.sorted.Insert(poolOp)

	if p.trackReputation {
		p.reputation.observe(op.Sender)
		if op.Paymaster != (common.Address{}) {
			p.reputation.observe(op.Paymaster)
		}
	}

	return hash, nil
}

func (p *Pool) countForSender(sender common.Address) int {
	n := 0
	for _, op := range p.byHash {
		if op.UserOp.Sender == sender {
			n++
		}
	}
	return n
}

func (p *Pool) GetOps(ctx context.Context, maxOps int, filter *uop.ShardFilter) ([]uop.PoolOp, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sorted.Top(maxOps, filterFn(filter)), nil
}

func (p *Pool) GetOpsSummaries(ctx context.Context, maxOps int, filter *uop.ShardFilter) ([]uop.Summary, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	ops := p.sorted.Top(maxOps, filterFn(filter))
	out := make([]uop.Summary, len(ops))
	for i, op := range ops {
		out[i] = op.Summary()
	}
	return out, nil
}

func (p *Pool) GetOpsByHashes(ctx context.Context, hashes []uop.Hash) ([]*uop.PoolOp, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*uop.PoolOp, len(hashes))
	for i, h := range hashes {
		if op, ok := p.byHash[h]; ok {
			cp := *op
			out[i] = &cp
		}
	}
	return out, nil
}

func (p *Pool) GetOpByHash(ctx context.Context, hash uop.Hash) (*uop.PoolOp, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if op, ok := p.byHash[hash]; ok {
		cp := *op
		return &cp, nil
	}
	return nil, nil
}

func (p *Pool) GetOpByID(ctx context.Context, id uop.ID) (*uop.PoolOp, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if op, ok := p.byID[id]; ok {
		cp := *op
		return &cp, nil
	}
	return nil, nil
}

func (p *Pool) RemoveOps(ctx context.Context, hashes []uop.Hash) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, h := range hashes {
		p.removeLocked(h)
	}
	return nil
}

func (p *Pool) RemoveOpByID(ctx context.Context, id uop.ID) (*uop.Hash, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	op, ok := p.byID[id]
	if !ok {
		return nil, nil
	}
	hash := op.Hash
	p.removeLocked(hash)
	return &hash, nil
}

// removeLocked drops the operation with the given hash from every
// index. Callers must already hold p.mu.
func (p *Pool) removeLocked(hash uop.Hash) {
	op, ok := p.byHash[hash]
	if !ok {
		return
	}
	delete(p.byHash, hash)
	delete(p.byID, op.Op)
	delete(p.bySlot, keyFor(op.UserOp.Sender, op.UserOp.Nonce))
	p.sorted.Remove(hash)

	if p.trackPaymaster {
		if cost := paymasterCost(op.UserOp); cost != nil {
			p.paymasters.release(op.UserOp.Paymaster, cost)
		}
	}
}

func (p *Pool) UpdateEntities(ctx context.Context, updates []uop.EntityUpdate) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, u := range updates {
		if !p.trackReputation {
			continue
		}
		entry := p.reputation.entries[u.Address]
		if entry == nil {
			p.reputation.observe(u.Address)
			entry = p.reputation.entries[u.Address]
		}
		if u.Rejected {
			entry.Status = uop.ReputationThrottled
		}
	}
	return nil
}

func (p *Pool) DebugClearState(ctx context.Context, flags uop.DebugClearFlags) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if flags.Mempool {
		p.byHash = make(map[uop.Hash]*uop.PoolOp)
		p.byID = make(map[uop.ID]*uop.PoolOp)
		p.bySlot = make(map[nonceKey]uop.Hash)
		p.sorted = newSortedIndex()
	}
	if flags.Reputation {
		p.reputation.clear()
	}
	if flags.Paymaster {
		p.paymasters.clear()
	}
	return nil
}

func (p *Pool) DebugDumpMempool(ctx context.Context) ([]uop.PoolOp, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sorted.Top(0, nil), nil
}

func (p *Pool) DebugSetReputations(ctx context.Context, entries []uop.ReputationEntry) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reputation.set(entries)
	return nil
}

func (p *Pool) DebugDumpReputation(ctx context.Context) ([]uop.ReputationEntry, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reputation.dump(), nil
}

func (p *Pool) DebugDumpPaymasterBalances(ctx context.Context) ([]uop.PaymasterBalance, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paymasters.dump(), nil
}

func (p *Pool) GetReputationStatus(ctx context.Context, address common.Address) (uop.ReputationStatus, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reputation.status(address), nil
}

// GetStakeStatus has no on-chain reader wired into this reference
// implementation; it reports everyone as unstaked. A production
// deployment supplies a Mempool whose GetStakeStatus calls an actual
// stake manager contract, which is exactly why the core dispatches
// this operation asynchronously rather than assuming it is cheap.
func (p *Pool) GetStakeStatus(ctx context.Context, address common.Address) (uop.StakeStatus, error) {
	return uop.StakeStatus{}, nil
}

func (p *Pool) AdminSetTracking(ctx context.Context, flags uop.AdminTrackingFlags) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if flags.Paymaster != nil {
		p.trackPaymaster = *flags.Paymaster
	}
	if flags.Reputation != nil {
		p.trackReputation = *flags.Reputation
	}
	return nil
}

func filterFn(filter *uop.ShardFilter) func(uop.PoolOp) bool {
	if filter == nil || len(filter.Senders) == 0 {
		return nil
	}
	allowed := make(map[common.Address]struct{}, len(filter.Senders))
	for _, s := range filter.Senders {
		allowed[s] = struct{}{}
	}
	return func(op uop.PoolOp) bool {
		_, ok := allowed[op.UserOp.Sender]
		return ok
	}
}
