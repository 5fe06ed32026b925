// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package laik

import "sort"

// A TaskSlice is one entry of a BorderArray: a Range assigned to a
// task under a given mapping number.
type TaskSlice struct {
	Task    int
	Range   Range
	MapNo   int
}

// A BorderArray is the sorted vector of TaskSlice entries produced by
// running a Partitioner over a (group, space, base?) triple. It is
// append-only while the partitioner runs, and frozen (sorted) by
// Validate. A BorderArray is owned by its Partitioning; callers may
// inspect but must not retain one across invalidation.
type BorderArray struct {
	space   *Space
	group   Group
	entries []TaskSlice
	valid   bool
}

func newBorderArray(space *Space, group Group) *BorderArray {
	return &BorderArray{space: space, group: group}
}

// Append adds one TaskSlice to the border array, under mapping number
// 0. It may only be called while the owning partitioner is running
// (before Validate).
func (b *BorderArray) Append(task int, r Range) {
	b.AppendMap(task, r, 0)
}

// AppendMap adds one TaskSlice under the given mapping number.
func (b *BorderArray) AppendMap(task int, r Range, mapNo int) {
	if b.valid {
		panic("laik: BorderArray.Append after Validate")
	}
	b.entries = append(b.entries, TaskSlice{Task: task, Range: r, MapNo: mapNo})
}

// Space returns the space the border array partitions.
func (b *BorderArray) Space() *Space { return b.space }

// Group returns the group the border array was computed for.
func (b *BorderArray) Group() Group { return b.group }

// Validate freezes the border array: entries are stably sorted by
// (task, mapping-no, range.from lexicographic). It is idempotent.
func (b *BorderArray) Validate() {
	if b.valid {
		return
	}
	sort.SliceStable(b.entries, func(i, j int) bool {
		a, c := b.entries[i], b.entries[j]
		if a.Task != c.Task {
			return a.Task < c.Task
		}
		if a.MapNo != c.MapNo {
			return a.MapNo < c.MapNo
		}
		return lexLess(a.Range.From, c.Range.From, b.space.Dims())
	})
	b.valid = true
}

func lexLess(a, c Index, dims int) bool {
	for d := 0; d < dims; d++ {
		if a.At(d) != c.At(d) {
			return a.At(d) < c.At(d)
		}
	}
	return false
}

// Count returns the number of entries in the border array.
func (b *BorderArray) Count() int { return len(b.entries) }

// Get returns the i'th entry.
func (b *BorderArray) Get(i int) TaskSlice { return b.entries[i] }

// Slice returns every entry belonging to task t, in border-array
// order. The returned slice must not be mutated.
func (b *BorderArray) Slice(t int) []TaskSlice {
	var out []TaskSlice
	for _, e := range b.entries {
		if e.Task == t {
			out = append(out, e)
		}
	}
	return out
}

// All returns every entry in the border array, in border-array order.
// The returned slice must not be mutated.
func (b *BorderArray) All() []TaskSlice {
	return b.entries
}
