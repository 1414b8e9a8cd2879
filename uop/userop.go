// Copyright (C) 2025, Rundler Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package uop defines the data model the pool core passes between Handle
// and Runner: the UserOperation envelope, its pooled representation, and
// the auxiliary request/response payloads (permissions, entity updates,
// reputation and stake status). Field shapes are drawn from EIP-4337's
// UserOperation ABI (github.com/ethereum/go-ethereum/common for address
// and hash types), but the pool core itself only ever inspects Version.
package uop

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Version identifies which EIP-4337 UserOperation ABI shape an operation
// was encoded with. It is the only field of UserOperation the pool core's
// dispatch logic is permitted to read (see the core's version-agreement
// invariant).
type Version uint8

const (
	// V1 is the original (pre-0.7) UserOperation shape: discrete gas
	// limit and fee fields, a combined paymasterAndData blob.
	V1 Version = iota + 1
	// V2 is the 0.7 "packed" shape: accountGasLimits/gasFees are packed
	// uint128 pairs and paymaster fields are split out.
	V2
)

func (v Version) String() string {
	switch v {
	case V1:
		return "v0.6"
	case V2:
		return "v0.7"
	default:
		return "unknown"
	}
}

// UserOperation is the client-submitted payload representing an
// account-abstracted transaction. Every field past Version is opaque to
// the pool core; only the target Mempool interprets them.
type UserOperation struct {
	Version Version

	Sender   common.Address
	Nonce    *big.Int
	InitCode []byte
	CallData []byte

	CallGasLimit         *big.Int
	VerificationGasLimit *big.Int
	PreVerificationGas   *big.Int
	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int

	// Paymaster is the zero address when the operation is self-funded.
	Paymaster            common.Address
	PaymasterVerificationGasLimit *big.Int
	PaymasterPostOpGasLimit       *big.Int
	PaymasterData                 []byte

	Signature []byte
}

// Hash uniquely identifies a UserOperation for a given EntryPoint and
// chain; the pool core treats it as an opaque 32-byte key.
type Hash = common.Hash

// ID identifies a pooled operation independent of its content hash
// (stable across replacement-by-fee-bump, unlike Hash).
type ID = common.Hash

// PoolOp is a UserOperation together with the bookkeeping the Mempool
// attaches once it is accepted: its hash, pool entry id, the block it
// entered at, and the fee figures get_ops orders by (see spec §6.2:
// priority fee descending, total fee as tiebreak).
type PoolOp struct {
	Op ID

	UserOp UserOperation
	Hash   Hash

	EnteredAtBlock uint64

	PriorityFee *big.Int
	TotalFee    *big.Int
}

// Summary is the lightweight projection of PoolOp returned by
// get_ops_summaries, omitting the full UserOperation payload.
type Summary struct {
	Op     ID
	Hash   Hash
	Sender common.Address
	Nonce  *big.Int
}

func (p PoolOp) Summary() Summary {
	return Summary{
		Op:     p.Op,
		Hash:   p.Hash,
		Sender: p.UserOp.Sender,
		Nonce:  p.UserOp.Nonce,
	}
}
