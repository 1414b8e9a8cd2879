// Copyright (C) 2025, Rundler Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package uop

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Permissions accompanies add_op and relaxes the Mempool's default
// validation for operations a trusted caller is allowed to submit
// (e.g. exempting a known aggregator from simulation-strictness).
type Permissions struct {
	TrustedBundler bool
	UntrustedBundler bool
	MaxAllowedGasLimit *big.Int
}

// Origin records where an operation arrived from, used only by the
// Mempool's reputation/gossip bookkeeping; opaque to the core.
type Origin struct {
	Local     bool
	PeerNodeID string
}

// EntityKind distinguishes which EIP-4337 role an UpdateEntities /
// reputation record refers to.
type EntityKind uint8

const (
	EntityAccount EntityKind = iota
	EntityPaymaster
	EntityAggregator
	EntityFactory
)

// EntityUpdate carries a reputation-affecting observation about an
// address playing one of the EntityKind roles (e.g. an operation from
// this paymaster was included on-chain, or it reverted in simulation).
type EntityUpdate struct {
	Kind    EntityKind
	Address common.Address
	Included bool
	Rejected bool
}

// ReputationStatus is the coarse trust tier the Mempool maintains per
// address, mirroring the throttling tiers used by reference ERC-4337
// bundlers.
type ReputationStatus uint8

const (
	ReputationOK ReputationStatus = iota
	ReputationThrottled
	ReputationBanned
)

func (r ReputationStatus) String() string {
	switch r {
	case ReputationOK:
		return "ok"
	case ReputationThrottled:
		return "throttled"
	case ReputationBanned:
		return "banned"
	default:
		return "unknown"
	}
}

// StakeStatus is the result of an on-chain stake-manager read for an
// address, requested asynchronously because it requires an external
// contract call.
type StakeStatus struct {
	IsStaked        bool
	Stake           *big.Int
	UnstakeDelaySec uint32
}

// DebugClearFlags selects which parts of a Mempool's state
// debug_clear_state resets.
type DebugClearFlags struct {
	Mempool    bool
	Reputation bool
	Paymaster  bool
}

// AdminTrackingFlags toggles which optional bookkeeping a Mempool
// performs going forward.
type AdminTrackingFlags struct {
	Paymaster  *bool
	Reputation *bool
}

// PaymasterBalance is one entry of debug_dump_paymaster_balances: a
// paymaster's tracked on-chain deposit alongside how much of it the
// Mempool has provisionally committed to pending operations.
type PaymasterBalance struct {
	Paymaster common.Address
	Deposit   *big.Int
	Committed *big.Int
}

// ReputationEntry is one entry of debug_dump_reputation /
// debug_set_reputations.
type ReputationEntry struct {
	Address common.Address
	Status  ReputationStatus
	OpsSeen uint64
}

// ShardFilter narrows get_ops / get_ops_summaries to operations matching
// a sender allow-list; nil means no filtering. Interpretation
// past "which senders" is Mempool-defined.
type ShardFilter struct {
	Senders []common.Address
}
