// Copyright (C) 2025, Rundler Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package broadcast

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFanOutDeliversToAllSubscribers(t *testing.T) {
	b := New[int](4)
	s1 := b.Subscribe()
	s2 := b.Subscribe()
	defer s1.Unsubscribe()
	defer s2.Unsubscribe()

	b.Send(7)

	require.Equal(t, 7, <-s1.Recv())
	require.Equal(t, 7, <-s2.Recv())
}

func TestSlowSubscriberDoesNotBlockProducer(t *testing.T) {
	b := New[int](2)
	slow := b.Subscribe()
	defer slow.Unsubscribe()

	// Fill the slow subscriber's buffer, then overflow it. Send must
	// never block regardless of how far behind slow falls.
	for i := 0; i < 10; i++ {
		b.Send(i)
	}

	require.Equal(t, uint64(8), slow.Lagged())
	// Lagged resets the counter.
	require.Equal(t, uint64(0), slow.Lagged())

	// Eviction drops the oldest pending value, not the incoming one:
	// the buffer holds the two most recent sends, 8 and 9.
	require.Equal(t, 8, <-slow.Recv())
	require.Equal(t, 9, <-slow.Recv())
}

func TestDrainDroppedAggregatesAcrossSubscribers(t *testing.T) {
	b := New[int](1)
	s1 := b.Subscribe()
	s2 := b.Subscribe()
	defer s1.Unsubscribe()
	defer s2.Unsubscribe()

	b.Send(1)
	b.Send(2) // evicts 1 for both s1 and s2: +2 to totalDropped
	b.Send(3) // evicts 2 for both again: +2 more

	require.Equal(t, uint64(4), b.DrainDropped())
	require.Equal(t, uint64(0), b.DrainDropped())
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := New[int](1)
	s := b.Subscribe()
	s.Unsubscribe()

	b.Send(1)

	require.Equal(t, 0, b.Subscribers())
}

func TestSubscribersCount(t *testing.T) {
	b := New[int](1)
	require.Equal(t, 0, b.Subscribers())
	s1 := b.Subscribe()
	require.Equal(t, 1, b.Subscribers())
	s2 := b.Subscribe()
	require.Equal(t, 2, b.Subscribers())
	s1.Unsubscribe()
	require.Equal(t, 1, b.Subscribers())
	s2.Unsubscribe()
}
