// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package laik

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"testing"

	"github.com/grailbio/laik/layout"
)

func buildBA(t *testing.T, sp *Space, g Group, entries ...TaskSlice) *BorderArray {
	t.Helper()
	ba := newBorderArray(sp, g)
	for _, e := range entries {
		ba.AppendMap(e.Task, e.Range, e.MapNo)
	}
	ba.Validate()
	return ba
}

// TestTransferPlanAllToMaster mirrors a collect-to-master transition:
// every task owns [0,100) under "all" and only task 0 owns it under
// "master". Task 0, the lowest-id source owner, already holds the
// whole range and performs a local copy; the other tasks lose the
// tie-break and send nothing.
func TestTransferPlanAllToMaster(t *testing.T) {
	inst := Init(testBackend(3))
	g := inst.World()
	sp, _ := NewSpace1D(100)
	full := NewRange1D(sp, 0, 100)
	src := buildBA(t, sp, g, TaskSlice{Task: 0, Range: full}, TaskSlice{Task: 1, Range: full}, TaskSlice{Task: 2, Range: full})
	dst := buildBA(t, sp, g, TaskSlice{Task: 0, Range: full})

	plan0 := buildTransferPlan1D(src, dst, 0)
	if len(plan0.localCopy) != 1 {
		t.Fatalf("task 0: localCopy = %d entries, want 1", len(plan0.localCopy))
	}
	if len(plan0.sends) != 0 || len(plan0.recvs) != 0 {
		t.Fatalf("task 0: sends=%d recvs=%d, want 0,0", len(plan0.sends), len(plan0.recvs))
	}

	plan1 := buildTransferPlan1D(src, dst, 1)
	if len(plan1.sends) != 0 {
		t.Fatalf("task 1: sends = %+v, want none (task 0 is the lower-id owner)", plan1.sends)
	}
	if len(plan1.localCopy) != 0 || len(plan1.recvs) != 0 {
		t.Fatalf("task 1: localCopy=%d recvs=%d, want 0,0", len(plan1.localCopy), len(plan1.recvs))
	}
}

// TestTransferPlanBlockReshard exercises a block-to-block resize: two
// tasks split [0,100) evenly, then resplit unevenly; the boundary
// shift produces exactly one send and one recv on each side of the
// moved interval.
func TestTransferPlanBlockReshard(t *testing.T) {
	inst := Init(testBackend(2))
	g := inst.World()
	sp, _ := NewSpace1D(100)
	src := buildBA(t, sp, g,
		TaskSlice{Task: 0, Range: NewRange1D(sp, 0, 50)},
		TaskSlice{Task: 1, Range: NewRange1D(sp, 50, 100)},
	)
	dst := buildBA(t, sp, g,
		TaskSlice{Task: 0, Range: NewRange1D(sp, 0, 70)},
		TaskSlice{Task: 1, Range: NewRange1D(sp, 70, 100)},
	)

	plan0 := buildTransferPlan1D(src, dst, 0)
	if len(plan0.localCopy) != 1 || plan0.localCopy[0].Size() != 50 {
		t.Fatalf("task 0 localCopy = %+v, want one 50-wide range", plan0.localCopy)
	}
	if len(plan0.recvs) != 1 || plan0.recvs[0].From != 1 || plan0.recvs[0].R.Size() != 20 {
		t.Fatalf("task 0 recvs = %+v, want one 20-wide recv from 1", plan0.recvs)
	}

	plan1 := buildTransferPlan1D(src, dst, 1)
	if len(plan1.sends) != 1 || plan1.sends[0].To != 0 || plan1.sends[0].R.Size() != 20 {
		t.Fatalf("task 1 sends = %+v, want one 20-wide send to 0", plan1.sends)
	}
	if len(plan1.localCopy) != 1 || plan1.localCopy[0].Size() != 30 {
		t.Fatalf("task 1 localCopy = %+v, want one 30-wide range", plan1.localCopy)
	}
}

// TestTransferPlanOverlapTieBreak checks that when two source tasks
// both claim an elementary interval, only the lower-id task is treated
// as the sender.
func TestTransferPlanOverlapTieBreak(t *testing.T) {
	inst := Init(testBackend(3))
	g := inst.World()
	sp, _ := NewSpace1D(10)
	src := buildBA(t, sp, g,
		TaskSlice{Task: 0, Range: NewRange1D(sp, 0, 10)},
		TaskSlice{Task: 1, Range: NewRange1D(sp, 0, 10)},
	)
	dst := buildBA(t, sp, g, TaskSlice{Task: 2, Range: NewRange1D(sp, 0, 10)})

	plan0 := buildTransferPlan1D(src, dst, 0)
	if len(plan0.sends) != 1 || plan0.sends[0].To != 2 {
		t.Fatalf("task 0 (winning tie-break) sends = %+v, want one send to 2", plan0.sends)
	}
	plan1 := buildTransferPlan1D(src, dst, 1)
	if len(plan1.sends) != 0 {
		t.Fatalf("task 1 (losing tie-break) sends = %+v, want none", plan1.sends)
	}
	plan2 := buildTransferPlan1D(src, dst, 2)
	if len(plan2.recvs) != 1 || plan2.recvs[0].From != 0 {
		t.Fatalf("task 2 recvs = %+v, want one recv from 0", plan2.recvs)
	}
}

// TestExecuteTransferPlanEndToEnd runs a real 2-worker block reshard
// across an in-process World and checks the moved values land
// correctly.
func TestExecuteTransferPlanEndToEnd(t *testing.T) {
	insts := testInstances(2)
	sp, _ := NewSpace1D(100)

	srcEntries := []TaskSlice{
		{Task: 0, Range: NewRange1D(sp, 0, 50)},
		{Task: 1, Range: NewRange1D(sp, 50, 100)},
	}
	dstEntries := []TaskSlice{
		{Task: 0, Range: NewRange1D(sp, 0, 70)},
		{Task: 1, Range: NewRange1D(sp, 70, 100)},
	}

	errs := make(chan error, 2)
	for w := 0; w < 2; w++ {
		w := w
		go func() {
			g := insts[w].World()
			src := buildBA(t, sp, g, srcEntries...)
			dst := buildBA(t, sp, g, dstEntries...)
			plan := buildTransferPlan1D(src, dst, w)

			oldEntries := myEntries1D(src, w)
			newEntries := myEntries1D(dst, w)
			oldLayout := layout.NewDense1D(oldEntries[0].To.At(0))
			newLayout := layout.NewDense1D(newEntries[0].To.At(0))

			oldBuf := make([]byte, oldLayout.Count()*8)
			newBuf := make([]byte, newLayout.Count()*8)
			for off := oldEntries[0].From.At(0); off < oldEntries[0].To.At(0); off++ {
				o, err := oldLayout.Offset(0, NewIndex1D(off))
				if err != nil {
					errs <- err
					return
				}
				putFloat64(oldBuf, o, float64(off))
			}

			ctx := context.Background()
			if err := executeTransferPlan(ctx, insts[w].backend, plan, oldLayout, oldBuf, newLayout, newBuf, 8); err != nil {
				errs <- err
				return
			}
			for off := newEntries[0].From.At(0); off < newEntries[0].To.At(0); off++ {
				o, err := newLayout.Offset(0, NewIndex1D(off))
				if err != nil {
					errs <- err
					return
				}
				if got := getFloat64(newBuf, o); got != float64(off) {
					errs <- fmt.Errorf("worker %d: offset for global %d = %v, want %v", w, off, got, float64(off))
					return
				}
			}
			errs <- nil
		}()
	}
	for i := 0; i < 2; i++ {
		if err := <-errs; err != nil {
			t.Fatal(err)
		}
	}
}

// TestExecuteTransferPlanMultiRangePerPeer reproduces the shape a
// cyclic block partitioner (BlockOptions{Cycles: 2}) produces: one
// task owns two disjoint ranges of the source border array, and both
// must travel to the same destination peer in one transfer. Before
// executeTransferPlan serialized messages per peer, these two sends
// (and the matching two receives) raced on backend/single.go's
// single per-(src, dst) channel with no guarantee of landing in plan
// order; this test pins down that, with two same-peer messages of
// different sizes whose payloads would land in the wrong destination
// range if swapped, every value still lands at its correct offset.
func TestExecuteTransferPlanMultiRangePerPeer(t *testing.T) {
	insts := testInstances(2)
	sp, _ := NewSpace1D(100)

	// Task 0 owns [0,50) and [60,80); task 1 owns [50,60) and
	// [80,100) -- two disjoint ranges each, with task 1's two ranges
	// (size 10 and size 20) both destined for task 0 below.
	srcEntries := []TaskSlice{
		{Task: 0, Range: NewRange1D(sp, 0, 50)},
		{Task: 1, Range: NewRange1D(sp, 50, 60)},
		{Task: 0, Range: NewRange1D(sp, 60, 80)},
		{Task: 1, Range: NewRange1D(sp, 80, 100)},
	}
	dstEntries := []TaskSlice{
		{Task: 0, Range: NewRange1D(sp, 0, 100)},
	}

	errs := make(chan error, 2)
	for w := 0; w < 2; w++ {
		w := w
		go func() {
			g := insts[w].World()
			src := buildBA(t, sp, g, srcEntries...)
			dst := buildBA(t, sp, g, dstEntries...)
			plan := buildTransferPlan1D(src, dst, w)

			oldRanges := myEntries1D(src, w)
			newRanges := myEntries1D(dst, w)
			oldLayout := layout.SparseFactory(0)(oldRanges)
			newLayout := layout.SparseFactory(0)(newRanges)

			oldBuf := make([]byte, oldLayout.Count()*8)
			newBuf := make([]byte, newLayout.Count()*8)
			for _, r := range oldRanges {
				for off := r.From.At(0); off < r.To.At(0); off++ {
					idx := NewIndex1D(off)
					mapNo, ok := oldLayout.Section(idx)
					if !ok {
						errs <- fmt.Errorf("worker %d: global %d not in old layout", w, off)
						return
					}
					o, err := oldLayout.Offset(mapNo, idx)
					if err != nil {
						errs <- err
						return
					}
					putFloat64(oldBuf, o, float64(off))
				}
			}

			ctx := context.Background()
			if err := executeTransferPlan(ctx, insts[w].backend, plan, oldLayout, oldBuf, newLayout, newBuf, 8); err != nil {
				errs <- err
				return
			}
			for _, r := range newRanges {
				for off := r.From.At(0); off < r.To.At(0); off++ {
					idx := NewIndex1D(off)
					mapNo, ok := newLayout.Section(idx)
					if !ok {
						errs <- fmt.Errorf("worker %d: global %d not in new layout", w, off)
						return
					}
					o, err := newLayout.Offset(mapNo, idx)
					if err != nil {
						errs <- err
						return
					}
					if got := getFloat64(newBuf, o); got != float64(off) {
						errs <- fmt.Errorf("worker %d: offset for global %d = %v, want %v", w, off, got, float64(off))
						return
					}
				}
			}
			errs <- nil
		}()
	}
	for i := 0; i < 2; i++ {
		if err := <-errs; err != nil {
			t.Fatal(err)
		}
	}
}

func putFloat64(buf []byte, off int64, v float64) {
	binary.LittleEndian.PutUint64(buf[off*8:off*8+8], math.Float64bits(v))
}

func getFloat64(buf []byte, off int64) float64 {
	return math.Float64frombits(binary.LittleEndian.Uint64(buf[off*8 : off*8+8]))
}
