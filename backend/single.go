// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package backend

import (
	"context"
	"fmt"
	"sync"
)

// group is the straightforward Group implementation shared by every
// Single backend minted from the same World.
type group struct {
	size int
	id   int
}

func (g group) Size() int { return g.size }
func (g group) MyID() int { return g.id }

// A World is a single process hosting size workers, each addressed by
// an in-process Single backend. Worker 0 through worker size-1
// communicate over Go channels rather than a network: this is the
// "single-process" backend identifier from spec §6, generalized to
// let tests exercise multi-worker logic (border arrays, transfer
// plans, barriers) without spawning real processes. A World of size 1
// is the common case: an application with no distribution at all.
//
// Sends between a worker and itself never leave the process: they are
// a channel handoff within the same goroutine group, i.e. exactly the
// memcpy spec §6 describes for single-process self-transfers.
type World struct {
	size int
	// mail[src][dst] carries messages sent from src to dst, in send
	// order. Recv on (src, dst) must be called in the same order the
	// corresponding Sends were issued, and with matching lengths --
	// exactly the guarantee the transfer planner (§4.H) provides.
	mail [][]chan []byte

	barrierOnce sync.Once
	gb          *genBarrier
}

// NewWorld returns a World hosting size in-process workers and a
// Backend for each of them, indexed by worker id.
func NewWorld(size int) (*World, []Backend) {
	if size < 1 {
		panic("backend.NewWorld: size must be >= 1")
	}
	w := &World{size: size}
	w.mail = make([][]chan []byte, size)
	for i := range w.mail {
		w.mail[i] = make([]chan []byte, size)
		for j := range w.mail[i] {
			w.mail[i][j] = make(chan []byte, 64)
		}
	}
	backends := make([]Backend, size)
	for id := 0; id < size; id++ {
		backends[id] = &single{world: w, id: id}
	}
	return w, backends
}

// NewSingle returns the degenerate, size-1 single-process backend:
// the default Instance backend when no multi-process system is
// configured.
func NewSingle() Backend {
	_, backends := NewWorld(1)
	return backends[0]
}

type single struct {
	world *World
	id    int
}

func (s *single) World() Group { return group{size: s.world.size, id: s.id} }

func (s *single) Send(ctx context.Context, dst int, p []byte) error {
	if dst < 0 || dst >= s.world.size {
		panic(fmt.Sprintf("backend: send to out-of-range worker %d", dst))
	}
	msg := make([]byte, len(p))
	copy(msg, p)
	select {
	case s.world.mail[s.id][dst] <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *single) Recv(ctx context.Context, src int, p []byte) error {
	if src < 0 || src >= s.world.size {
		panic(fmt.Sprintf("backend: recv from out-of-range worker %d", src))
	}
	select {
	case msg := <-s.world.mail[src][s.id]:
		if len(msg) != len(p) {
			return fmt.Errorf("backend: recv length mismatch: got %d want %d", len(msg), len(p))
		}
		copy(p, msg)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Barrier blocks until every worker in g has entered the barrier at
// least as many times as this call. Implemented with the World's
// shared generation barrier (genBarrier); sufficient for the in-process World (no
// real multi-process coordination is needed here).
func (s *single) Barrier(ctx context.Context, g Group) error {
	if g.Size() != s.world.size {
		return fmt.Errorf("backend: barrier group size %d does not match world size %d", g.Size(), s.world.size)
	}
	return s.world.barrier(ctx)
}

func (s *single) Finalize() {}
