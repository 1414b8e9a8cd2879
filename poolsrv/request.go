// Copyright (C) 2025, Rundler Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package poolsrv

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/rayyan224/rundler/entrypoint"
	"github.com/rayyan224/rundler/uop"
)

// Kind discriminates the Request/Response variants a Handle may send
// and a Runner may answer. It doubles as the dispatch classification
// key (see class()).
type Kind uint8

const (
	KindGetSupportedEntryPoints Kind = iota
	KindAddOp
	KindGetOps
	KindGetOpsSummaries
	KindGetOpsByHashes
	KindGetOpByHash
	KindGetOpByID
	KindRemoveOps
	KindRemoveOpByID
	KindUpdateEntities
	KindDebugClearState
	KindAdminSetTracking
	KindDebugDumpMempool
	KindDebugSetReputations
	KindDebugDumpReputation
	KindDebugDumpPaymasterBalances
	KindGetReputationStatus
	KindGetStakeStatus
	KindSubscribeNewHeads
)

func (k Kind) String() string {
	switch k {
	case KindGetSupportedEntryPoints:
		return "GetSupportedEntryPoints"
	case KindAddOp:
		return "AddOp"
	case KindGetOps:
		return "GetOps"
	case KindGetOpsSummaries:
		return "GetOpsSummaries"
	case KindGetOpsByHashes:
		return "GetOpsByHashes"
	case KindGetOpByHash:
		return "GetOpByHash"
	case KindGetOpByID:
		return "GetOpByID"
	case KindRemoveOps:
		return "RemoveOps"
	case KindRemoveOpByID:
		return "RemoveOpByID"
	case KindUpdateEntities:
		return "UpdateEntities"
	case KindDebugClearState:
		return "DebugClearState"
	case KindAdminSetTracking:
		return "AdminSetTracking"
	case KindDebugDumpMempool:
		return "DebugDumpMempool"
	case KindDebugSetReputations:
		return "DebugSetReputations"
	case KindDebugDumpReputation:
		return "DebugDumpReputation"
	case KindDebugDumpPaymasterBalances:
		return "DebugDumpPaymasterBalances"
	case KindGetReputationStatus:
		return "GetReputationStatus"
	case KindGetStakeStatus:
		return "GetStakeStatus"
	case KindSubscribeNewHeads:
		return "SubscribeNewHeads"
	default:
		return "Unknown"
	}
}

// class is the dispatch classification of a Kind: sync kinds execute
// inline on the Runner's event loop; async kinds are off-loaded to the
// task spawner because they require external I/O (§4.3).
type class uint8

const (
	classSync class = iota
	classAsync
)

func (k Kind) class() class {
	switch k {
	case KindAddOp, KindGetStakeStatus:
		return classAsync
	default:
		return classSync
	}
}

// requiresEntryPoint reports whether a request of this kind carries an
// EntryPointId that must be validated against the Runner's configured
// map before dispatch. GetSupportedEntryPoints, GetOpByHash, GetOpByID
// and SubscribeNewHeads are not EntryPoint-scoped.
func (k Kind) requiresEntryPoint() bool {
	switch k {
	case KindGetSupportedEntryPoints, KindGetOpByHash, KindGetOpByID, KindSubscribeNewHeads:
		return false
	default:
		return true
	}
}

// replySink is the single-use channel a Runner places a Response into.
// It is created with capacity 1 so the Runner's lone send never blocks,
// whether or not the Handle is still waiting on it — a Handle that
// gives up (ctx canceled, send-side channel closed) simply never reads
// the value, which is this implementation's version of the "dropped
// reply sink is a silent no-op" contract in §5 Cancellation.
type replySink = chan Response

// Request is the discriminated value a Handle pushes onto the Runner's
// request channel. Payload holds one of the Kind-specific *Req structs
// defined alongside each operation below.
type Request struct {
	Kind       Kind
	EntryPoint entrypoint.ID
	Payload    any

	reply replySink
}

// Response mirrors the Request it answers. Payload holds the
// corresponding *Resp struct on success; Err is set (and Payload left
// nil) on failure, including *UnknownEntryPointError,
// *InvalidVersionError, and any Mempool-originated error forwarded
// verbatim.
type Response struct {
	Kind    Kind
	Payload any
	Err     error
}

// --- per-operation payloads ---

type GetSupportedEntryPointsReq struct{}
type GetSupportedEntryPointsResp struct{ EntryPoints []entrypoint.ID }

type AddOpReq struct {
	Op      uop.UserOperation
	Perm    uop.Permissions
	Origin  uop.Origin
}
type AddOpResp struct{ Hash uop.Hash }

type GetOpsReq struct {
	MaxOps int
	Filter *uop.ShardFilter
}
type GetOpsResp struct{ Ops []uop.PoolOp }

type GetOpsSummariesReq struct {
	MaxOps int
	Filter *uop.ShardFilter
}
type GetOpsSummariesResp struct{ Summaries []uop.Summary }

type GetOpsByHashesReq struct{ Hashes []uop.Hash }
type GetOpsByHashesResp struct{ Ops []*uop.PoolOp }

type GetOpByHashReq struct{ Hash uop.Hash }
type GetOpByHashResp struct{ Op *uop.PoolOp }

type GetOpByIDReq struct{ ID uop.ID }
type GetOpByIDResp struct{ Op *uop.PoolOp }

type RemoveOpsReq struct{ Hashes []uop.Hash }
type RemoveOpsResp struct{}

type RemoveOpByIDReq struct{ ID uop.ID }
type RemoveOpByIDResp struct{ Removed *uop.Hash }

type UpdateEntitiesReq struct{ Updates []uop.EntityUpdate }
type UpdateEntitiesResp struct{}

type DebugClearStateReq struct{ Flags uop.DebugClearFlags }
type DebugClearStateResp struct{}

type AdminSetTrackingReq struct{ Flags uop.AdminTrackingFlags }
type AdminSetTrackingResp struct{}

type DebugDumpMempoolReq struct{}
type DebugDumpMempoolResp struct{ Ops []uop.PoolOp }

type DebugSetReputationsReq struct{ Entries []uop.ReputationEntry }
type DebugSetReputationsResp struct{}

type DebugDumpReputationReq struct{}
type DebugDumpReputationResp struct{ Entries []uop.ReputationEntry }

type DebugDumpPaymasterBalancesReq struct{}
type DebugDumpPaymasterBalancesResp struct{ Balances []uop.PaymasterBalance }

type GetReputationStatusReq struct{ Address common.Address }
type GetReputationStatusResp struct{ Status uop.ReputationStatus }

type GetStakeStatusReq struct{ Address common.Address }
type GetStakeStatusResp struct{ Status uop.StakeStatus }

type SubscribeNewHeadsReq struct{ TrackedAddresses []common.Address }
type SubscribeNewHeadsResp struct{ Subscription *Subscription }
