// Copyright (C) 2025, Rundler Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package poolsrv

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/rayyan224/rundler/uop"
)

// Mempool is the capability the Runner holds one of per configured
// EntryPoint. It is an opaque external collaborator: the Runner never
// inspects its internals, only calls through this interface and forwards
// whatever error it returns verbatim to the client. Implementations are
// responsible for their own synchronization — the Runner requires only
// that a MempoolRef (an implementation of this interface) is cheap to
// clone and that clones observe the same logical mempool. See package
// uopool for a reference implementation.
type Mempool interface {
	// Version is the UserOperation ABI version this mempool accepts.
	// add_op rejects any UserOperation whose Version disagrees before
	// ever calling AddOperation.
	Version() uop.Version

	// OnChainUpdate applies a ChainUpdate (new head or reorg step) to
	// this mempool's internal state. Called by the Runner on every
	// configured mempool concurrently, and joined before any NewHead
	// derived from a confirmed update is broadcast (I3).
	OnChainUpdate(ctx context.Context, update ChainUpdate) error

	AddOperation(ctx context.Context, op uop.UserOperation, perm uop.Permissions, origin uop.Origin) (uop.Hash, error)
	GetOps(ctx context.Context, maxOps int, filter *uop.ShardFilter) ([]uop.PoolOp, error)
	GetOpsSummaries(ctx context.Context, maxOps int, filter *uop.ShardFilter) ([]uop.Summary, error)
	GetOpsByHashes(ctx context.Context, hashes []uop.Hash) ([]*uop.PoolOp, error)
	GetOpByHash(ctx context.Context, hash uop.Hash) (*uop.PoolOp, error)
	GetOpByID(ctx context.Context, id uop.ID) (*uop.PoolOp, error)
	RemoveOps(ctx context.Context, hashes []uop.Hash) error
	RemoveOpByID(ctx context.Context, id uop.ID) (*uop.Hash, error)
	UpdateEntities(ctx context.Context, updates []uop.EntityUpdate) error

	DebugClearState(ctx context.Context, flags uop.DebugClearFlags) error
	DebugDumpMempool(ctx context.Context) ([]uop.PoolOp, error)
	DebugSetReputations(ctx context.Context, entries []uop.ReputationEntry) error
	DebugDumpReputation(ctx context.Context) ([]uop.ReputationEntry, error)
	DebugDumpPaymasterBalances(ctx context.Context) ([]uop.PaymasterBalance, error)

	GetReputationStatus(ctx context.Context, address common.Address) (uop.ReputationStatus, error)
	GetStakeStatus(ctx context.Context, address common.Address) (uop.StakeStatus, error)

	AdminSetTracking(ctx context.Context, flags uop.AdminTrackingFlags) error
}
