// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package laik implements distributed data containers with dynamic
// re-partitioning: parallel workers share a logical index space, the
// library assigns disjoint (or overlapping) ranges of that space to
// workers, materializes each worker's share into a local buffer using
// a pluggable memory layout, and orchestrates data movement when the
// assignment changes. The programming model is SPMD: every worker
// executes the same control flow and invokes switch_to on shared
// containers collectively.
package laik

import (
	"sync"
	"time"

	"github.com/grailbio/base/log"
	"github.com/grailbio/laik/backend"
	"github.com/grailbio/laik/internal/trace"
	"github.com/grailbio/laik/stats"
)

// An Instance is a handle to the library bound to one Backend. All
// Spaces, Partitionings, and Data containers used together must be
// created from the same Instance: it owns the once-guarded built-in
// partitioner singletons (all, master) that spec §5 requires be
// initialized idempotently, exactly once, before any partitioner use
// -- kept here rather than as package-level globals so that tests
// stay hermetic (spec §9's "Process-wide state" design note).
type Instance struct {
	backend backend.Backend

	allOnce    sync.Once
	all        *Partitioner
	masterOnce sync.Once
	master     *Partitioner

	mu      sync.Mutex
	tracing bool
	trace   *trace.T

	stats *stats.Map
}

// Init returns a new Instance bound to b. This corresponds to spec
// §6's backend `init(argc, argv) -> Instance`: the backend identifier
// (which b is) selects single-process or multi-process transport
// semantics; Init itself performs no process-wide side effects beyond
// constructing the Instance value.
func Init(b backend.Backend) *Instance {
	return &Instance{backend: b, stats: stats.NewMap()}
}

// Finalize releases the Instance's backend resources.
func (inst *Instance) Finalize() {
	inst.backend.Finalize()
}

// Stats returns the instance's counter collection: the number of
// local copies, sends, and receives (laik.localcopy, laik.sends,
// laik.recvs) scheduled by every container's CopyIn transitions.
func (inst *Instance) Stats() *stats.Map {
	return inst.stats
}

// EnableTrace turns on Chrome-trace-format event recording for the
// transitions of every container bound to this instance: one event
// per switch_to, one per CopyIn data transfer, and one per barrier.
func (inst *Instance) EnableTrace() {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	inst.tracing = true
	if inst.trace == nil {
		inst.trace = &trace.T{}
	}
}

// Trace returns the accumulated trace, or nil if tracing was never
// enabled.
func (inst *Instance) Trace() *trace.T {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	return inst.trace
}

func (inst *Instance) traceEvent(name string, dur time.Duration) {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	if !inst.tracing {
		return
	}
	inst.trace.Events = append(inst.trace.Events, trace.Event{
		Pid:  inst.World().MyID(),
		Ts:   time.Now().UnixNano() / 1000,
		Ph:   "X",
		Dur:  dur.Microseconds(),
		Name: name,
	})
}

// World returns the Group comprising every worker known to the
// Instance's backend.
func (inst *Instance) World() Group {
	return Group{inst: inst, g: inst.backend.World()}
}

func (inst *Instance) logf(format string, args ...interface{}) {
	log.Debug.Printf(format, args...)
}
