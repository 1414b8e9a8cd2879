// Copyright (C) 2025, Rundler Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package entrypoint defines the routing key used to select a mempool:
// the on-chain address of an ERC-4337 EntryPoint contract.
package entrypoint

import (
	"github.com/ethereum/go-ethereum/common"
)

// ID is the address of an EntryPoint contract. It is the sole routing key
// the pool core uses to select a mempool; the core never inspects the
// EntryPoint's on-chain behavior.
type ID = common.Address

// Set is an immutable-after-construction collection of supported
// EntryPoint addresses, cheap to range over and to test membership in.
type Set map[ID]struct{}

// NewSet builds a Set from a list of addresses. Duplicates collapse.
func NewSet(ids ...ID) Set {
	s := make(Set, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s Set) Has(id ID) bool {
	_, ok := s[id]
	return ok
}

// List returns the members of s in no particular order.
func (s Set) List() []ID {
	out := make([]ID, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	return out
}
