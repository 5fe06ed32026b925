// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package laik

import (
	"context"
	"sync"
	"time"

	"github.com/grailbio/base/log"

	"github.com/grailbio/laik/ctxsync"
	"github.com/grailbio/laik/internal/zero"
	"github.com/grailbio/laik/layout"
)

// ElementKind is the type of the elements a container stores. At
// minimum, Double (IEEE-754 binary64) is supported (spec §6).
type ElementKind int

const (
	// Double is an 8-byte IEEE-754 binary64 float.
	Double ElementKind = iota
)

// Size returns the element kind's size in bytes.
func (k ElementKind) Size() int {
	switch k {
	case Double:
		return 8
	default:
		panic("laik: unknown element kind")
	}
}

// A Data is a distributed container: a group of workers, a shared
// index space, and (once bound) a single active Mapping realizing the
// worker's current share of that space in a local buffer. Data is
// created with no current partitioning (Unbound); SwitchTo drives its
// transition state machine (spec §4.G).
type Data struct {
	inst     *Instance
	name     string
	group    Group
	space    *Space
	kind     ElementKind
	elemSize int
	factory  layout.Factory

	mu       sync.Mutex
	busy     bool
	busyCond *ctxsync.Cond

	current *Partitioning
	layout  layout.Layout
	buf     []byte
	count   int64
}

// DataOption configures NewData.
type DataOption func(*Data)

// WithLayoutFactory overrides the container's layout factory; the
// default is layout.DenseFactory().
func WithLayoutFactory(f layout.Factory) DataOption {
	return func(d *Data) { d.factory = f }
}

// NewData constructs a container over space for group, with elements
// of kind, bound to no partitioning (spec's new_data). Call SwitchTo
// to bind it.
func (inst *Instance) NewData(name string, group Group, space *Space, kind ElementKind, opts ...DataOption) *Data {
	d := &Data{
		inst:     inst,
		name:     name,
		group:    group,
		space:    space,
		kind:     kind,
		elemSize: kind.Size(),
		factory:  layout.DenseFactory(),
	}
	d.busyCond = ctxsync.NewCond(&d.mu)
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Name returns the container's name.
func (d *Data) Name() string { return d.name }

// Group returns the container's group.
func (d *Data) Group() Group { return d.group }

// Space returns the container's space.
func (d *Data) Space() *Space { return d.space }

// myEntries1D returns ba's entries for task, projected to dimension 0
// and in border-array order (which, per BorderArray.Validate, is
// already ascending by range.From within a task).
func myEntries1D(ba *BorderArray, task int) []Range {
	slices := ba.Slice(task)
	out := make([]Range, len(slices))
	for i, s := range slices {
		out[i] = s.Range
	}
	return out
}

// SwitchTo binds data to target under the given data-flow intent,
// running the transition state machine of spec §4.G. It is a
// collective operation: every worker in the container's group must
// call it with the same target partitioning and a compatible flow.
//
// A container may be in at most one transition at a time; a
// concurrent SwitchTo call blocks until the first completes, per spec
// §4.G.3 ("Busy reentrancy").
func (d *Data) SwitchTo(ctx context.Context, target *Partitioning, flow DataFlow) error {
	d.mu.Lock()
	for d.busy {
		if err := d.busyCond.Wait(ctx); err != nil {
			d.mu.Unlock()
			return err
		}
	}
	d.busy = true
	d.mu.Unlock()
	defer func() {
		d.mu.Lock()
		d.busy = false
		d.busyCond.Broadcast()
		d.mu.Unlock()
	}()

	start := time.Now()
	d.inst.logf("laik: %s: switch_to %s begin", d.name, target.Name)
	defer func() {
		d.inst.traceEvent("switch_to:"+d.name, time.Since(start))
		d.inst.logf("laik: %s: switch_to %s done in %s", d.name, target.Name, time.Since(start))
	}()

	if err := target.Validate(); err != nil {
		return err
	}
	if !target.Group().Equal(d.group) {
		return E(InvalidArgument, "laik.Data.SwitchTo", "target partitioning's group does not match the container's group")
	}

	myID := d.group.MyID()
	entries := myEntries1D(target.BorderArray(), myID)
	newLayout := d.factory(entries)
	count := newLayout.Count()

	if d.current == nil {
		if flow.copyIn {
			return E(PreconditionFailed, "laik.Data.SwitchTo", "CopyIn requested from Unbound")
		}
		buf := make([]byte, newLayout.Count()*int64(d.elemSize))
		if flow.init {
			d.initBuf(buf, flow.initVal)
		}
		if err := d.barrier(ctx); err != nil {
			return err
		}
		d.current, d.layout, d.buf, d.count = target, newLayout, buf, count
		return nil
	}

	oldLayout, oldBuf := d.layout, d.buf
	reused := newLayout.Reuse(oldLayout)
	d.inst.logf("laik: %s: switch_to %s: reuse=%v", d.name, target.Name, reused)

	var newBuf []byte
	if reused {
		newBuf = oldBuf
	} else {
		newBuf = make([]byte, newLayout.Count()*int64(d.elemSize))
	}
	if flow.init {
		d.initBuf(newBuf, flow.initVal)
	}

	if sl, ok := newLayout.(*layout.Sparse1D); ok {
		sl.ResetExternalCursor()
	}

	if flow.copyIn {
		copyStart := time.Now()
		plan := buildTransferPlan1D(d.current.BorderArray(), target.BorderArray(), myID)
		if err := executeTransferPlan(ctx, d.inst.backend, plan, oldLayout, oldBuf, newLayout, newBuf, d.elemSize); err != nil {
			log.Error.Printf("laik: %s: switch_to %s: transfer failed: %v", d.name, target.Name, err)
			return err
		}
		d.inst.traceEvent("transfer:"+d.name, time.Since(copyStart))
		d.inst.stats.Int("laik.localcopy").Add(int64(len(plan.localCopy)))
		d.inst.stats.Int("laik.sends").Add(int64(len(plan.sends)))
		d.inst.stats.Int("laik.recvs").Add(int64(len(plan.recvs)))
	}

	if err := d.barrier(ctx); err != nil {
		return err
	}

	d.current, d.layout, d.buf, d.count = target, newLayout, newBuf, count
	return nil
}

func (d *Data) barrier(ctx context.Context) error {
	barrierStart := time.Now()
	err := d.inst.backend.Barrier(ctx, d.group.g)
	d.inst.traceEvent("barrier:"+d.name, time.Since(barrierStart))
	if err != nil {
		log.Error.Printf("laik: %s: barrier failed: %v", d.name, err)
		return E(BackendError, "laik.Data.SwitchTo", err)
	}
	return nil
}

func (d *Data) initBuf(buf []byte, v float64) {
	switch d.kind {
	case Double:
		zero.FillFloat64(buf, v)
	default:
		panic("laik: unknown element kind")
	}
}

// MapDefault returns the container's single canonical mapping: its
// backing buffer and the element count the current partitioning's
// layout requires. After a transition that reused a larger buffer,
// the buffer holds more elements than the returned count. It is only
// valid to call after a successful SwitchTo.
func (d *Data) MapDefault() ([]byte, int64) {
	if d.layout == nil {
		panic("laik: Data.MapDefault called on an unbound container")
	}
	return d.buf, d.count
}

// Float64s returns the container's backing buffer viewed as a
// []float64 sharing the same storage, for containers of kind Double.
// It panics if the container's kind is not Double or it is unbound.
func (d *Data) Float64s() []float64 {
	if d.kind != Double {
		panic("laik: Data.Float64s requires element kind Double")
	}
	buf, _ := d.MapDefault()
	return zero.Float64View(buf)
}

// GlobalToLocal translates global index g to a local element offset,
// returning ok = false if g is not locally addressable.
func (d *Data) GlobalToLocal(g int64) (off int64, ok bool) {
	if d.layout == nil {
		return 0, false
	}
	idx := NewIndex1D(g)
	mapNo, found := d.layout.Section(idx)
	if !found {
		return 0, false
	}
	o, err := d.layout.Offset(mapNo, idx)
	if err != nil {
		return 0, false
	}
	return o, true
}

// LocalToGlobal is the inverse of GlobalToLocal for the dense layout,
// where offsets equal global indices. Sparse layouts do not support
// the inverse mapping (an offset may correspond to a coalesced or
// external slot with no single global index), and LocalToGlobal
// panics if the container's layout is not dense.
func (d *Data) LocalToGlobal(off int64) int64 {
	if _, ok := d.layout.(*layout.Dense1D); !ok {
		panic("laik: Data.LocalToGlobal requires a dense layout")
	}
	return off
}
