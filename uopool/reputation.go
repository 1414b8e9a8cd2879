// Copyright (C) 2025, Rundler Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package uopool

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/rayyan224/rundler/uop"
)

// reputationTable tracks the coarse trust tier and observation count
// the pool has accumulated for each entity address it has seen,
// mirroring the throttle/ban bookkeeping a reference ERC-4337 bundler
// keeps per paymaster, aggregator, and factory.
type reputationTable struct {
	entries map[common.Address]*uop.ReputationEntry
}

func newReputationTable() *reputationTable {
	return &reputationTable{entries: make(map[common.Address]*uop.ReputationEntry)}
}

func (t *reputationTable) observe(addr common.Address) {
	e, ok := t.entries[addr]
	if !ok {
		e = &uop.ReputationEntry{Address: addr, Status: uop.ReputationOK}
		t.entries[addr] = e
	}
	e.OpsSeen++
}

func (t *reputationTable) status(addr common.Address) uop.ReputationStatus {
	if e, ok := t.entries[addr]; ok {
		return e.Status
	}
	return uop.ReputationOK
}

func (t *reputationTable) set(entries []uop.ReputationEntry) {
	for _, in := range entries {
		e, ok := t.entries[in.Address]
		if !ok {
			e = &uop.ReputationEntry{Address: in.Address}
			t.entries[in.Address] = e
		}
		e.Status = in.Status
		if in.OpsSeen > 0 {
			e.OpsSeen = in.OpsSeen
		}
	}
}

func (t *reputationTable) dump() []uop.ReputationEntry {
	out := make([]uop.ReputationEntry, 0, len(t.entries))
	for _, e := range t.entries {
		out = append(out, *e)
	}
	return out
}

func (t *reputationTable) clear() {
	t.entries = make(map[common.Address]*uop.ReputationEntry)
}

// throttledCap reports the pending-op cap a sender at this reputation
// tier is held to; banned addresses are capped at zero, throttled
// addresses at cfg's stricter limit, and everyone else at the normal
// per-sender limit.
func (t *reputationTable) throttledCap(addr common.Address, normal, throttled int) int {
	switch t.status(addr) {
	case uop.ReputationBanned:
		return 0
	case uop.ReputationThrottled:
		return throttled
	default:
		return normal
	}
}
