// Copyright (C) 2025, Rundler Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package uopool

import (
	"container/heap"

	"github.com/rayyan224/rundler/uop"
)

// sortedEntry is one element of the priority index: an operation plus
// the block it was accepted at, used as the time tie-break.
type sortedEntry struct {
	op             uop.PoolOp
	priorityFee    *bigCmp
	enteredAtBlock uint64
	index          int // heap.Interface bookkeeping, maintained by sortedIndex
}

// sortedIndex is a max-heap over pending operations ordered by
// priority fee (descending), then total fee (descending) and, for
// remaining ties, by the block the operation entered the pool at
// (ascending: older first). It supports O(log n)
// insertion and arbitrary-element removal by tracking each entry's
// current heap index, the same technique package heap's own
// documentation recommends for a priority queue that needs Remove and
// Update.
type sortedIndex struct {
	items []*sortedEntry
	byHash map[uop.Hash]*sortedEntry
}

func newSortedIndex() *sortedIndex {
	si := &sortedIndex{byHash: make(map[uop.Hash]*sortedEntry)}
	heap.Init(si)
	return si
}

func (si *sortedIndex) Len() int { return len(si.items) }

func (si *sortedIndex) Less(i, j int) bool {
	a, b := si.items[i], si.items[j]
	if c := a.priorityFee.cmp(b.priorityFee); c != 0 {
		return c > 0
	}
	if c := newBigCmp(a.op.TotalFee).cmp(newBigCmp(b.op.TotalFee)); c != 0 {
		return c > 0
	}
	return a.enteredAtBlock < b.enteredAtBlock
}

func (si *sortedIndex) Swap(i, j int) {
	si.items[i], si.items[j] = si.items[j], si.items[i]
	si.items[i].index = i
	si.items[j].index = j
}

func (si *sortedIndex) Push(x any) {
	e := x.(*sortedEntry)
	e.index = len(si.items)
	si.items = append(si.items, e)
}

func (si *sortedIndex) Pop() any {
	n := len(si.items)
	e := si.items[n-1]
	si.items[n-1] = nil
	si.items = si.items[:n-1]
	return e
}

// Insert adds op to the index, keyed by its hash.
func (si *sortedIndex) Insert(op uop.PoolOp) {
	e := &sortedEntry{
		op:             op,
		priorityFee:    newBigCmp(op.PriorityFee),
		enteredAtBlock: op.EnteredAtBlock,
	}
	si.byHash[op.Hash] = e
	heap.Push(si, e)
}

// Remove drops the operation with the given hash, if present.
func (si *sortedIndex) Remove(hash uop.Hash) bool {
	e, ok := si.byHash[hash]
	if !ok {
		return false
	}
	delete(si.byHash, hash)
	heap.Remove(si, e.index)
	return true
}

// Top returns up to maxOps operations in descending priority order
// without mutating the index.
func (si *sortedIndex) Top(maxOps int, include func(uop.PoolOp) bool) []uop.PoolOp {
	ordered := make([]*sortedEntry, len(si.items))
	copy(ordered, si.items)
	// A fresh copy-and-sort avoids destructively popping the real heap
	// just to peek at an ordered view.
	sortEntries(ordered)

	out := make([]uop.PoolOp, 0, min(maxOps, len(ordered)))
	for _, e := range ordered {
		if maxOps > 0 && len(out) >= maxOps {
			break
		}
		if include != nil && !include(e.op) {
			continue
		}
		out = append(out, e.op)
	}
	return out
}

func sortEntries(entries []*sortedEntry) {
	// Insertion sort is fine here: Top is called against pool sizes
	// the caller itself bounds via MaxOperations, not hot-path tx
	// validation.
	for i := 1; i < len(entries); i++ {
		for j := i; j > 0; j-- {
			a, b := entries[j-1], entries[j]
			less := func() bool {
				if c := a.priorityFee.cmp(b.priorityFee); c != 0 {
					return c > 0
				}
				if c := newBigCmp(a.op.TotalFee).cmp(newBigCmp(b.op.TotalFee)); c != 0 {
					return c > 0
				}
				return a.enteredAtBlock < b.enteredAtBlock
			}()
			if less {
				break
			}
			entries[j-1], entries[j] = entries[j], entries[j-1]
		}
	}
}
