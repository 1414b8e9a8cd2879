// Copyright (C) 2025, Rundler Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package config defines the plain-struct configuration consumed by
// the pool core and its reference mempool, along with the defaults
// zero-valued Pool and Mempool fields are filled in with before use.
package config

import "time"

// Pool configures the core event loop (package poolsrv).
type Pool struct {
	// ChainUpdateChannelCapacity bounds how many chain updates the
	// pump goroutine may have in flight before it blocks the chain
	// subscriber itself.
	ChainUpdateChannelCapacity int `yaml:"chain_update_channel_capacity"`

	// NewHeadSubscriberCapacity bounds how many NewHead events a
	// single slow subscriber may lag behind before its oldest pending
	// events are dropped on its behalf (see package broadcast).
	NewHeadSubscriberCapacity int `yaml:"new_head_subscriber_capacity"`

	// MaxConcurrentAsyncRequests bounds how many AddOp/GetStakeStatus
	// calls may run concurrently across all EntryPoints.
	MaxConcurrentAsyncRequests int `yaml:"max_concurrent_async_requests"`

	// GracefulShutdownTimeout is how long Run waits for in-flight
	// async work to finish after its context is canceled before
	// giving up and returning anyway.
	GracefulShutdownTimeout time.Duration `yaml:"graceful_shutdown_timeout"`
}

// Mempool configures a single reference mempool instance (package
// uopool). Each configured EntryPoint gets its own Mempool, so most
// deployments construct one of these per EntryPoint.
type Mempool struct {
	// MaxOperations bounds how many operations the mempool retains at
	// once, across every sender.
	MaxOperations int `yaml:"max_operations"`

	// MaxOperationsPerSender bounds how many operations a single
	// sender may have pending simultaneously.
	MaxOperationsPerSender int `yaml:"max_operations_per_sender"`

	// MinReplacementFeeBumpPercent is the minimum percentage a
	// replacement operation's priority fee must exceed the one it
	// displaces by.
	MinReplacementFeeBumpPercent uint64 `yaml:"min_replacement_fee_bump_percent"`

	// ThrottledOpsPerSender caps how many pending operations a
	// throttled sender may have, stricter than MaxOperationsPerSender.
	ThrottledOpsPerSender int `yaml:"throttled_ops_per_sender"`
}

// DefaultPool returns the Pool configuration used when a deployment
// does not override a field.
func DefaultPool() Pool {
	return Pool{
		ChainUpdateChannelCapacity: 1024,
		NewHeadSubscriberCapacity:  16,
		MaxConcurrentAsyncRequests: 64,
		GracefulShutdownTimeout:    5 * time.Second,
	}
}

// DefaultMempool returns the Mempool configuration used when a
// deployment does not override a field.
func DefaultMempool() Mempool {
	return Mempool{
		MaxOperations:                10_000,
		MaxOperationsPerSender:       4,
		MinReplacementFeeBumpPercent: 10,
		ThrottledOpsPerSender:        1,
	}
}

// ApplyDefaults fills any zero-valued field of p with DefaultPool's
// value, in place.
func (p *Pool) ApplyDefaults() {
	d := DefaultPool()
	if p.ChainUpdateChannelCapacity == 0 {
		p.ChainUpdateChannelCapacity = d.ChainUpdateChannelCapacity
	}
	if p.NewHeadSubscriberCapacity == 0 {
		p.NewHeadSubscriberCapacity = d.NewHeadSubscriberCapacity
	}
	if p.MaxConcurrentAsyncRequests == 0 {
		p.MaxConcurrentAsyncRequests = d.MaxConcurrentAsyncRequests
	}
	if p.GracefulShutdownTimeout == 0 {
		p.GracefulShutdownTimeout = d.GracefulShutdownTimeout
	}
}

// ApplyDefaults fills any zero-valued field of m with DefaultMempool's
// value, in place.
func (m *Mempool) ApplyDefaults() {
	d := DefaultMempool()
	if m.MaxOperations == 0 {
		m.MaxOperations = d.MaxOperations
	}
	if m.MaxOperationsPerSender == 0 {
		m.MaxOperationsPerSender = d.MaxOperationsPerSender
	}
	if m.MinReplacementFeeBumpPercent == 0 {
		m.MinReplacementFeeBumpPercent = d.MinReplacementFeeBumpPercent
	}
	if m.ThrottledOpsPerSender == 0 {
		m.ThrottledOpsPerSender = d.ThrottledOpsPerSender
	}
}
