// Copyright (C) 2025, Rundler Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package entrypoint

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func TestSetDeduplicatesAndTestsMembership(t *testing.T) {
	a := common.HexToAddress("0x1")
	b := common.HexToAddress("0x2")

	s := NewSet(a, b, a)
	require.Len(t, s, 2)
	require.True(t, s.Has(a))
	require.True(t, s.Has(b))
	require.False(t, s.Has(common.HexToAddress("0x3")))
	require.ElementsMatch(t, []ID{a, b}, s.List())
}
