// Copyright (C) 2025, Rundler Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package poolsrv

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/rayyan224/rundler/broadcast"
)

// Subscription is a client's handle onto the Runner's NewHead stream.
// It wraps a broadcast.Subscription[NewHead] and remembers which
// addresses this particular client asked to have activity filtered
// for, so the Runner can narrow NewHead.Activity per subscriber before
// fan-out.
type Subscription struct {
	inner            *broadcast.Subscription[NewHead]
	trackedAddresses map[common.Address]struct{}
}

// Next blocks until the next NewHead arrives, ctx is done, or the
// subscription's broadcaster has no more events (channel closed). The
// returned event's Activity is already narrowed to the addresses this
// subscription asked to track.
func (s *Subscription) Next(ctx context.Context) (NewHead, error) {
	select {
	case head, ok := <-s.inner.Recv():
		if !ok {
			return NewHead{}, ErrChannelClosed
		}
		return s.filterActivity(head), nil
	case <-ctx.Done():
		return NewHead{}, ctx.Err()
	}
}

// Lagged reports and resets how many NewHead events this subscriber
// missed because it fell behind the broadcaster's buffer.
func (s *Subscription) Lagged() uint64 {
	return s.inner.Lagged()
}

// Unsubscribe releases the subscription. Safe to call once; subsequent
// calls are no-ops.
func (s *Subscription) Unsubscribe() {
	s.inner.Unsubscribe()
}

// filterActivity narrows a NewHead's Activity map down to the
// addresses this subscription asked to track. A subscriber that
// tracked no addresses gets the event with a nil Activity map.
func (s *Subscription) filterActivity(head NewHead) NewHead {
	if len(s.trackedAddresses) == 0 {
		return NewHead{Block: head.Block}
	}
	filtered := make(map[common.Address][]common.Hash, len(s.trackedAddresses))
	for addr, hashes := range head.Activity {
		if _, ok := s.trackedAddresses[addr]; ok {
			filtered[addr] = hashes
		}
	}
	return NewHead{Block: head.Block, Activity: filtered}
}
