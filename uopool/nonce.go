// Copyright (C) 2025, Rundler Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package uopool

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// nonceKey identifies a sender's pending operation slot. Two
// operations from the same sender with the same nonce are the same
// logical slot; a second submission either replaces the first (if its
// fee clears the required bump) or is rejected.
type nonceKey struct {
	sender common.Address
	nonce  string // big.Int.String(); *big.Int is not comparable
}

func keyFor(sender common.Address, nonce *big.Int) nonceKey {
	n := "0"
	if nonce != nil {
		n = nonce.String()
	}
	return nonceKey{sender: sender, nonce: n}
}

// meetsReplacementBump reports whether candidateFee exceeds
// existingFee by at least bumpPercent percent, the minimum a
// replacement operation must clear.
func meetsReplacementBump(existingFee, candidateFee *big.Int, bumpPercent uint64) bool {
	if existingFee == nil {
		return true
	}
	if candidateFee == nil {
		return false
	}
	required := new(big.Int).Mul(existingFee, big.NewInt(100+int64(bumpPercent)))
	required.Div(required, big.NewInt(100))
	return candidateFee.Cmp(required) >= 0
}
