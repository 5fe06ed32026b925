// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package laik

import (
	"sort"
	"testing"

	fuzz "github.com/google/gofuzz"
)

// randomBlocks partitions [0, total) into nTasks contiguous,
// non-empty blocks at nTasks-1 random cut points, task i in block
// order.
func randomBlocks(fz *fuzz.Fuzzer, sp *Space, total int64, nTasks int) []TaskSlice {
	if nTasks == 1 {
		return []TaskSlice{{Task: 0, Range: NewRange1D(sp, 0, total)}}
	}
	seen := map[int64]bool{0: true, total: true}
	var cuts []int64
	for int64(len(cuts)) < int64(nTasks-1) {
		var v uint64
		fz.Fuzz(&v)
		c := int64(v%uint64(total-1)) + 1
		if seen[c] {
			continue
		}
		seen[c] = true
		cuts = append(cuts, c)
	}
	sort.Slice(cuts, func(i, j int) bool { return cuts[i] < cuts[j] })
	bounds := append([]int64{0}, cuts...)
	bounds = append(bounds, total)
	out := make([]TaskSlice, nTasks)
	for i := 0; i < nTasks; i++ {
		out[i] = TaskSlice{Task: i, Range: NewRange1D(sp, bounds[i], bounds[i+1])}
	}
	return out
}

// TestTransferPlanFuzzCoversWholeSpace checks, across many random
// (source blocks, destination blocks) pairs, that every worker's
// transfer plan accounts for exactly the worker's destination range:
// the union of its localCopy and recv ranges has total size equal to
// its destination slice, and its sends collectively account for
// exactly the portion of its source slice that other workers'
// destination slices claim.
func TestTransferPlanFuzzCoversWholeSpace(t *testing.T) {
	fz := fuzz.New().NilChance(0)
	const total = 997 // prime, to stress uneven splits
	sp, err := NewSpace1D(total)
	if err != nil {
		t.Fatal(err)
	}
	inst := Init(testBackend(1))
	g := inst.World()

	for trial := 0; trial < 50; trial++ {
		var nSrc, nDst uint8
		fz.Fuzz(&nSrc)
		fz.Fuzz(&nDst)
		srcN := int(nSrc%6) + 1
		dstN := int(nDst%6) + 1

		srcEntries := randomBlocks(fz, sp, total, srcN)
		dstEntries := randomBlocks(fz, sp, total, dstN)

		src := newBorderArray(sp, g)
		for _, e := range srcEntries {
			src.Append(e.Task, e.Range)
		}
		src.Validate()
		dst := newBorderArray(sp, g)
		for _, e := range dstEntries {
			dst.Append(e.Task, e.Range)
		}
		dst.Validate()

		maxTasks := srcN
		if dstN > maxTasks {
			maxTasks = dstN
		}
		for task := 0; task < maxTasks; task++ {
			plan := buildTransferPlan1D(src, dst, task)
			var covered int64
			for _, r := range plan.localCopy {
				covered += r.Size()
			}
			for _, rp := range plan.recvs {
				covered += rp.R.Size()
			}
			var want int64
			for _, e := range dstEntries {
				if e.Task == task {
					want += e.Range.Size()
				}
			}
			if covered != want {
				t.Fatalf("trial %d task %d: localCopy+recv covers %d, want %d (src=%v dst=%v)", trial, task, covered, want, srcEntries, dstEntries)
			}
			var sent int64
			for _, s := range plan.sends {
				sent += s.R.Size()
			}
			var wantSent int64
			for _, s := range srcEntries {
				if s.Task != task {
					continue
				}
				for _, d := range dstEntries {
					if d.Task == task {
						continue
					}
					if r, ok := s.Range.Intersect(d.Range); ok {
						wantSent += r.Size()
					}
				}
			}
			if sent != wantSent {
				t.Fatalf("trial %d task %d: sends cover %d, want %d (src=%v dst=%v)", trial, task, sent, wantSent, srcEntries, dstEntries)
			}
		}
	}
}
