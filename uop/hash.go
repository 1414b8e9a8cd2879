// Copyright (C) 2025, Rundler Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package uop

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
)

// hashable is the RLP-encodable projection of a UserOperation used to
// derive ComputeHash's result. It intentionally excludes Signature:
// two operations differing only in signature are the same operation
// for mempool-identity purposes.
type hashable struct {
	Version                       Version
	Sender                        common.Address
	Nonce                         *big.Int
	InitCode                      []byte
	CallData                      []byte
	CallGasLimit                  *big.Int
	VerificationGasLimit          *big.Int
	PreVerificationGas            *big.Int
	MaxFeePerGas                  *big.Int
	MaxPriorityFeePerGas          *big.Int
	Paymaster                     common.Address
	PaymasterVerificationGasLimit *big.Int
	PaymasterPostOpGasLimit       *big.Int
	PaymasterData                 []byte
}

// ComputeHash derives a UserOperation's content hash: the RLP
// encoding of every field but its signature, keccak256'd. Two
// submissions of the same operation with different signatures produce
// the same Hash.
func ComputeHash(op UserOperation) Hash {
	enc, err := rlp.EncodeToBytes(toHashable(op))
	if err != nil {
		// Every field type here is RLP-encodable by construction; a
		// failure means a future field addition broke that invariant.
		panic(err)
	}
	return crypto.Keccak256Hash(enc)
}

// ComputeID derives a pooled operation's stable identity from its
// sender and nonce alone, so a fee-bump replacement keeps the same ID
// across the Hash change that accompanies its new fee fields.
func ComputeID(sender common.Address, nonce *big.Int) ID {
	n := nonce
	if n == nil {
		n = new(big.Int)
	}
	enc, err := rlp.EncodeToBytes([]any{sender, n})
	if err != nil {
		panic(err)
	}
	return crypto.Keccak256Hash(enc)
}

func toHashable(op UserOperation) hashable {
	return hashable{
		Version:                       op.Version,
		Sender:                        op.Sender,
		Nonce:                         nonZero(op.Nonce),
		InitCode:                      op.InitCode,
		CallData:                      op.CallData,
		CallGasLimit:                  nonZero(op.CallGasLimit),
		VerificationGasLimit:          nonZero(op.VerificationGasLimit),
		PreVerificationGas:            nonZero(op.PreVerificationGas),
		MaxFeePerGas:                  nonZero(op.MaxFeePerGas),
		MaxPriorityFeePerGas:          nonZero(op.MaxPriorityFeePerGas),
		Paymaster:                     op.Paymaster,
		PaymasterVerificationGasLimit: nonZero(op.PaymasterVerificationGasLimit),
		PaymasterPostOpGasLimit:       nonZero(op.PaymasterPostOpGasLimit),
		PaymasterData:                 op.PaymasterData,
	}
}

// nonZero substitutes 0 for a nil *big.Int field: rlp.EncodeToBytes
// rejects a nil *big.Int outright.
func nonZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
