// Copyright (C) 2025, Rundler Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package uopool

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/rayyan224/rundler/config"
	"github.com/rayyan224/rundler/poolsrv"
	"github.com/rayyan224/rundler/uop"
)

func newTestPool() *Pool {
	return New(uop.V1, config.Mempool{
		MaxOperations:                100,
		MaxOperationsPerSender:       2,
		MinReplacementFeeBumpPercent: 10,
		ThrottledOpsPerSender:        1,
	})
}

func opFor(sender common.Address, nonce int64, priorityFee int64) uop.UserOperation {
	return uop.UserOperation{
		Version:              uop.V1,
		Sender:               sender,
		Nonce:                big.NewInt(nonce),
		MaxFeePerGas:         big.NewInt(priorityFee + 1),
		MaxPriorityFeePerGas: big.NewInt(priorityFee),
	}
}

func TestAddOperationAssignsStableID(t *testing.T) {
	p := newTestPool()
	sender := common.HexToAddress("0x1")

	hash, err := p.AddOperation(context.Background(), opFor(sender, 0, 10), uop.Permissions{}, uop.Origin{})
	require.NoError(t, err)

	op, err := p.GetOpByHash(context.Background(), hash)
	require.NoError(t, err)
	require.NotNil(t, op)
	require.Equal(t, sender, op.UserOp.Sender)
	require.Equal(t, uop.ComputeID(sender, big.NewInt(0)), op.Op)
}

func TestReplacementRequiresFeeBump(t *testing.T) {
	p := newTestPool()
	sender := common.HexToAddress("0x1")

	_, err := p.AddOperation(context.Background(), opFor(sender, 0, 100), uop.Permissions{}, uop.Origin{})
	require.NoError(t, err)

	_, err = p.AddOperation(context.Background(), opFor(sender, 0, 105), uop.Permissions{}, uop.Origin{})
	require.Error(t, err)

	hash, err := p.AddOperation(context.Background(), opFor(sender, 0, 115), uop.Permissions{}, uop.Origin{})
	require.NoError(t, err)

	ops, err := p.GetOps(context.Background(), 0, nil)
	require.NoError(t, err)
	require.Len(t, ops, 1)
	require.Equal(t, hash, ops[0].Hash)
}

func TestPerSenderCapIsEnforced(t *testing.T) {
	p := newTestPool()
	sender := common.HexToAddress("0x1")

	_, err := p.AddOperation(context.Background(), opFor(sender, 0, 10), uop.Permissions{}, uop.Origin{})
	require.NoError(t, err)
	_, err = p.AddOperation(context.Background(), opFor(sender, 1, 10), uop.Permissions{}, uop.Origin{})
	require.NoError(t, err)

	_, err = p.AddOperation(context.Background(), opFor(sender, 2, 10), uop.Permissions{}, uop.Origin{})
	require.Error(t, err)
}

func TestGetOpsOrdersByPriorityFeeDescending(t *testing.T) {
	p := newTestPool()
	s1, s2, s3 := common.HexToAddress("0x1"), common.HexToAddress("0x2"), common.HexToAddress("0x3")

	_, err := p.AddOperation(context.Background(), opFor(s1, 0, 5), uop.Permissions{}, uop.Origin{})
	require.NoError(t, err)
	_, err = p.AddOperation(context.Background(), opFor(s2, 0, 50), uop.Permissions{}, uop.Origin{})
	require.NoError(t, err)
	_, err = p.AddOperation(context.Background(), opFor(s3, 0, 25), uop.Permissions{}, uop.Origin{})
	require.NoError(t, err)

	ops, err := p.GetOps(context.Background(), 0, nil)
	require.NoError(t, err)
	require.Len(t, ops, 3)
	require.Equal(t, s2, ops[0].UserOp.Sender)
	require.Equal(t, s3, ops[1].UserOp.Sender)
	require.Equal(t, s1, ops[2].UserOp.Sender)
}

func TestBannedSenderIsRejected(t *testing.T) {
	p := newTestPool()
	sender := common.HexToAddress("0x1")

	require.NoError(t, p.DebugSetReputations(context.Background(), []uop.ReputationEntry{
		{Address: sender, Status: uop.ReputationBanned},
	}))

	_, err := p.AddOperation(context.Background(), opFor(sender, 0, 10), uop.Permissions{}, uop.Origin{})
	require.Error(t, err)

	_, err = p.AddOperation(context.Background(), opFor(sender, 0, 10), uop.Permissions{TrustedBundler: true}, uop.Origin{})
	require.NoError(t, err)
}

func TestRemoveOpByIDDropsFromEveryIndex(t *testing.T) {
	p := newTestPool()
	sender := common.HexToAddress("0x1")

	hash, err := p.AddOperation(context.Background(), opFor(sender, 0, 10), uop.Permissions{}, uop.Origin{})
	require.NoError(t, err)
	op, err := p.GetOpByHash(context.Background(), hash)
	require.NoError(t, err)

	removed, err := p.RemoveOpByID(context.Background(), op.Op)
	require.NoError(t, err)
	require.NotNil(t, removed)
	require.Equal(t, hash, *removed)

	gone, err := p.GetOpByHash(context.Background(), hash)
	require.NoError(t, err)
	require.Nil(t, gone)

	ops, err := p.GetOps(context.Background(), 0, nil)
	require.NoError(t, err)
	require.Empty(t, ops)
}

func TestDebugClearStateScopesToFlags(t *testing.T) {
	p := newTestPool()
	sender := common.HexToAddress("0x1")

	_, err := p.AddOperation(context.Background(), opFor(sender, 0, 10), uop.Permissions{}, uop.Origin{})
	require.NoError(t, err)
	require.NoError(t, p.DebugSetReputations(context.Background(), []uop.ReputationEntry{
		{Address: sender, Status: uop.ReputationThrottled},
	}))

	require.NoError(t, p.DebugClearState(context.Background(), uop.DebugClearFlags{Mempool: true}))

	ops, err := p.GetOps(context.Background(), 0, nil)
	require.NoError(t, err)
	require.Empty(t, ops)

	status, err := p.GetReputationStatus(context.Background(), sender)
	require.NoError(t, err)
	require.Equal(t, uop.ReputationThrottled, status)
}

func TestSponsoredOpIsAcceptedAfterPaymasterDepositFunded(t *testing.T) {
	p := newTestPool()
	sender := common.HexToAddress("0x1")
	paymaster := common.HexToAddress("0x2")

	op := opFor(sender, 0, 10)
	op.Paymaster = paymaster
	op.PaymasterVerificationGasLimit = big.NewInt(100)
	op.PaymasterPostOpGasLimit = big.NewInt(50)

	// Tracking is enabled by default, and the paymaster has no known
	// deposit yet, so the sponsored op is rejected for lack of headroom.
	_, err := p.AddOperation(context.Background(), op, uop.Permissions{}, uop.Origin{})
	require.Error(t, err)

	// A confirmed head reporting the paymaster's on-chain deposit funds
	// it, the same way an EntryPoint balance read would upstream of
	// this pool.
	require.NoError(t, p.OnChainUpdate(context.Background(), poolsrv.ChainUpdate{
		Block:     poolsrv.BlockDescriptor{Number: 1},
		Confirmed: true,
		Aux: ChainAux{
			PaymasterDeposits: map[common.Address]*big.Int{
				paymaster: big.NewInt(1_000_000),
			},
		},
	}))

	hash, err := p.AddOperation(context.Background(), op, uop.Permissions{}, uop.Origin{})
	require.NoError(t, err)

	balances, err := p.DebugDumpPaymasterBalances(context.Background())
	require.NoError(t, err)
	require.Len(t, balances, 1)
	require.Equal(t, paymaster, balances[0].Paymaster)
	require.Equal(t, big.NewInt(1_000_000), balances[0].Deposit)
	require.Equal(t, big.NewInt(150*11), balances[0].Committed) // (100+50) gas * maxFeePerGas(11)

	fetched, err := p.GetOpByHash(context.Background(), hash)
	require.NoError(t, err)
	require.NotNil(t, fetched)
}

func TestAdminSetTrackingDisablesPaymasterReservation(t *testing.T) {
	p := newTestPool()
	sender := common.HexToAddress("0x1")
	paymaster := common.HexToAddress("0x2")

	disabled := false
	require.NoError(t, p.AdminSetTracking(context.Background(), uop.AdminTrackingFlags{Paymaster: &disabled}))

	op := opFor(sender, 0, 10)
	op.Paymaster = paymaster
	op.PaymasterVerificationGasLimit = big.NewInt(100000)

	_, err := p.AddOperation(context.Background(), op, uop.Permissions{}, uop.Origin{})
	require.NoError(t, err)

	balances, err := p.DebugDumpPaymasterBalances(context.Background())
	require.NoError(t, err)
	require.Empty(t, balances)
}
