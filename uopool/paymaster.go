// Copyright (C) 2025, Rundler Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package uopool

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/rayyan224/rundler/uop"
)

// paymasterTracker keeps, per paymaster address, the deposit the pool
// believes is available on-chain and how much of it is provisionally
// committed to operations currently pending. An operation is rejected
// at admission if accepting it would commit more than the paymaster's
// known deposit.
type paymasterTracker struct {
	balances map[common.Address]*uop.PaymasterBalance
}

func newPaymasterTracker() *paymasterTracker {
	return &paymasterTracker{balances: make(map[common.Address]*uop.PaymasterBalance)}
}

func (t *paymasterTracker) balanceFor(addr common.Address) *uop.PaymasterBalance {
	b, ok := t.balances[addr]
	if !ok {
		b = &uop.PaymasterBalance{Paymaster: addr, Deposit: big.NewInt(0), Committed: big.NewInt(0)}
		t.balances[addr] = b
	}
	return b
}

// reserve attempts to commit cost against addr's deposit, returning
// false without mutating state if the paymaster lacks the headroom.
func (t *paymasterTracker) reserve(addr common.Address, cost *big.Int) bool {
	if addr == (common.Address{}) || cost == nil {
		return true
	}
	b := t.balanceFor(addr)
	remaining := new(big.Int).Sub(b.Deposit, b.Committed)
	if remaining.Cmp(cost) < 0 {
		return false
	}
	b.Committed = new(big.Int).Add(b.Committed, cost)
	return true
}

// release returns a previously reserved cost back to addr's available
// headroom, called when the operation it backed leaves the pool.
func (t *paymasterTracker) release(addr common.Address, cost *big.Int) {
	if addr == (common.Address{}) || cost == nil {
		return
	}
	b := t.balanceFor(addr)
	b.Committed = new(big.Int).Sub(b.Committed, cost)
	if b.Committed.Sign() < 0 {
		b.Committed = big.NewInt(0)
	}
}

func (t *paymasterTracker) setDeposit(addr common.Address, deposit *big.Int) {
	t.balanceFor(addr).Deposit = deposit
}

func (t *paymasterTracker) dump() []uop.PaymasterBalance {
	out := make([]uop.PaymasterBalance, 0, len(t.balances))
	for _, b := range t.balances {
		out = append(out, *b)
	}
	return out
}

func (t *paymasterTracker) clear() {
	t.balances = make(map[common.Address]*uop.PaymasterBalance)
}

// paymasterCost is the upper bound of what a paymaster could be
// charged for sponsoring op: its own verification/postOp gas spent at
// the op's max fee.
func paymasterCost(op uop.UserOperation) *big.Int {
	if op.Paymaster == (common.Address{}) {
		return nil
	}
	gas := new(big.Int)
	if op.PaymasterVerificationGasLimit != nil {
		gas.Add(gas, op.PaymasterVerificationGasLimit)
	}
	if op.PaymasterPostOpGasLimit != nil {
		gas.Add(gas, op.PaymasterPostOpGasLimit)
	}
	fee := op.MaxFeePerGas
	if fee == nil {
		fee = big.NewInt(0)
	}
	return new(big.Int).Mul(gas, fee)
}
