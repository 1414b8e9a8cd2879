// Copyright (C) 2025, Rundler Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package poolsrv

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

// BlockDescriptor is the minimal identity of a chain block: hash and
// number. Both ChainUpdate and NewHead carry one.
type BlockDescriptor struct {
	Hash   common.Hash
	Number uint64
}

// ChainUpdate is an event the chain subscriber delivers to the Runner.
// Confirmed is false for a transient reorg step and true for a new
// confirmed head; only confirmed updates produce a NewHead broadcast
// (§4.5). Aux is forwarded to every Mempool's OnChainUpdate untouched;
// the Runner never inspects it. Activity, if the ChainSubscriber can
// compute it, is carried straight onto the resulting NewHead for
// per-subscriber filtering; a ChainSubscriber that cannot compute it
// (e.g. one backed only by a block-header feed) leaves it nil and
// every subscriber observes an empty activity view.
type ChainUpdate struct {
	Block     BlockDescriptor
	Confirmed bool
	Activity  map[common.Address][]common.Hash
	Aux       any
}

// NewHead is the fan-out event delivered to subscribers once every
// configured Mempool has finished applying the corresponding
// ChainUpdate (I3). Activity is the per-subscriber filtered view of
// address activity requested at subscribe time; nil if the subscriber
// did not ask for one.
type NewHead struct {
	Block    BlockDescriptor
	Activity map[common.Address][]common.Hash
}

// ChainSubscriber is the external collaborator that produces
// ChainUpdate events. The Runner owns a single subscriber and folds its
// events into its own select loop alongside requests and shutdown.
type ChainSubscriber interface {
	// Next blocks until the next ChainUpdate is available or ctx is
	// done. A nil update with a nil error signals the subscriber has
	// no more updates to deliver (e.g. upstream closed).
	Next(ctx context.Context) (*ChainUpdate, error)
}
