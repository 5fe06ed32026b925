// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package backend defines the transport ABI that the laik core
// consumes (spec §6): untyped byte send/recv/barrier plus process
// group topology. The core drives pack/unpack and is never aware of
// how bytes actually move between workers; backend implementations
// are the only place that knows.
//
// Two implementations are provided: Single, a hermetic single-process
// transport used by default and by tests, and Bigmachine, a
// multi-process transport built on github.com/grailbio/bigmachine.
package backend

import "context"

// A Group is an ordered set of workers with ids [0, Size()). MyID is
// the local worker's position. The core treats Group identity as
// entirely opaque; it is the backend's to construct.
type Group interface {
	// Size returns the number of workers in the group.
	Size() int
	// MyID returns the local worker's position in [0, Size()).
	MyID() int
}

// Backend is the transport ABI a core Instance is configured with. A
// Backend is selected once, at Init time; the identifier used to pick
// it determines single-process (no-op transport) or multi-process
// semantics, per spec §6.
type Backend interface {
	// World returns the Group comprising all workers known to this
	// backend instance.
	World() Group

	// Send transmits p to worker dst. Send blocks until the backend has
	// accepted the payload for delivery.
	Send(ctx context.Context, dst int, p []byte) error

	// Recv receives len(p) bytes sent by worker src into p. Recv blocks
	// until the full payload has arrived.
	Recv(ctx context.Context, src int, p []byte) error

	// Barrier blocks until every worker in g has called Barrier with
	// the same g, for this call. It forms the collective synchronization
	// point that ends a transition (spec §4.H.4, §5).
	Barrier(ctx context.Context, g Group) error

	// Finalize releases resources held by the backend. It is called
	// once, when the owning Instance is finalized.
	Finalize()
}
