// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package layout

import "github.com/grailbio/laik/space"

// A Factory builds a Layout from a task's sorted, ascending,
// dimension-0 entries of a border array. The container calls it once
// per switch_to to produce the candidate layout for the target
// partitioning.
type Factory func(entries []space.Range) Layout

// DenseFactory returns a Factory producing Dense1D layouts sized to
// the highest index any entry reaches; this is the default layout for
// 1-D spaces (spec §6's "layout choice").
func DenseFactory() Factory {
	return func(entries []space.Range) Layout {
		var count int64
		for _, e := range entries {
			if to := e.To.At(0); to > count {
				count = to
			}
		}
		return NewDense1D(count)
	}
}

// SparseFactory returns a Factory producing Sparse1D layouts that
// reserve numExternal appended external slots.
func SparseFactory(numExternal int) Factory {
	return func(entries []space.Range) Layout {
		var total int64
		for _, e := range entries {
			total += e.To.At(0) - e.From.At(0)
		}
		allocated := total + int64(numExternal)
		return NewSparse1D(entries, numExternal, allocated)
	}
}
