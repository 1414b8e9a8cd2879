// Copyright (C) 2025, Rundler Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package uopool

import "math/big"

// bigCmp wraps a possibly-nil *big.Int so the sorted index can compare
// fee values without every call site re-deriving nil semantics (a nil
// fee sorts as zero).
type bigCmp struct {
	v *big.Int
}

func newBigCmp(v *big.Int) *bigCmp {
	return &bigCmp{v: v}
}

func (b *bigCmp) cmp(other *bigCmp) int {
	a, o := b.v, other.v
	switch {
	case a == nil && o == nil:
		return 0
	case a == nil:
		return -o.Sign()
	case o == nil:
		return a.Sign()
	default:
		return a.Cmp(o)
	}
}
