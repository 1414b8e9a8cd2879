// Copyright (C) 2025, Rundler Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package chainwatch adapts a go-ethereum JSON-RPC client's new-head
// subscription into a poolsrv.ChainSubscriber, the pool core's only
// chain-facing dependency.
package chainwatch

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/rayyan224/rundler/poolsrv"
)

// EthHeadSubscriber watches an execution client's newHeads feed over
// a websocket RPC connection and republishes each head as a confirmed
// poolsrv.ChainUpdate. It does not attempt reorg detection: every head
// it observes is reported confirmed, on the assumption that reorg
// handling, if needed, happens one layer up from the raw feed.
type EthHeadSubscriber struct {
	client *ethclient.Client
	heads  chan *types.Header
	sub    ethereum.Subscription
}

// Dial connects to an execution client's websocket RPC endpoint and
// subscribes to new heads. The returned subscriber's Next method is
// the one the pool core's Runner drives.
func Dial(ctx context.Context, wsURL string) (*EthHeadSubscriber, error) {
	client, err := ethclient.DialContext(ctx, wsURL)
	if err != nil {
		return nil, fmt.Errorf("chainwatch: dialing %s: %w", wsURL, err)
	}

	heads := make(chan *types.Header, 16)
	sub, err := client.SubscribeNewHead(ctx, heads)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("chainwatch: subscribing to new heads: %w", err)
	}

	return &EthHeadSubscriber{client: client, heads: heads, sub: sub}, nil
}

// Next implements poolsrv.ChainSubscriber.
func (s *EthHeadSubscriber) Next(ctx context.Context) (*poolsrv.ChainUpdate, error) {
	select {
	case header, ok := <-s.heads:
		if !ok {
			return nil, nil
		}
		return &poolsrv.ChainUpdate{
			Block: poolsrv.BlockDescriptor{
				Hash:   header.Hash(),
				Number: header.Number.Uint64(),
			},
			Confirmed: true,
		}, nil
	case err := <-s.sub.Err():
		return nil, fmt.Errorf("chainwatch: subscription error: %w", err)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close tears down the underlying subscription and RPC connection.
func (s *EthHeadSubscriber) Close() {
	s.sub.Unsubscribe()
	s.client.Close()
}
