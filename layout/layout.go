// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package layout implements the memory-layout abstraction: mapping a
// container's logical indices onto offsets within a flat element
// buffer, plus the pack/unpack/copy primitives the transfer planner
// drives during a transition. It depends only on laik/space, never on
// the root laik package, so that laik.Data can depend on layout
// without an import cycle.
package layout

import (
	"errors"
	"fmt"

	"github.com/grailbio/laik/space"
)

// Sentinel errors returned by Layout implementations. The root laik
// package wraps them in its own Kind-tagged Error according to the
// call that failed: a Copy failure as LayoutMismatch, a Pack or
// Unpack failure as BackendError.
var (
	// ErrNotFound is returned by Offset when the index does not belong
	// to any mapping-number the layout serves.
	ErrNotFound = errors.New("layout: index not found in any mapping")
	// ErrOutOfRange is returned by the sparse layout's Offset when an
	// index falls outside every owned interval and no external slots
	// remain to serve it.
	ErrOutOfRange = errors.New("layout: index out of range and no external slots remain")
	// ErrLayoutMismatch is returned by Copy when the source and
	// destination layouts are not classification-compatible.
	ErrLayoutMismatch = errors.New("layout: incompatible layout kinds")
)

// A Layout maps a container's logical indices to offsets in a flat
// element buffer. Implementations are the tagged variants Dense1D and
// Sparse1D (spec's "polymorphism via function tables" design note);
// there is deliberately no shared base type, only this interface.
type Layout interface {
	// MapCount returns the number of distinct mapping numbers this
	// layout serves; every layout in this package serves exactly 1.
	MapCount() int

	// Count returns the total number of element slots reachable
	// through this layout.
	Count() int64

	// Section reports the mapping number owning idx, and whether idx
	// belongs to this layout at all.
	Section(idx space.Index) (mapNo int, ok bool)

	// Offset returns idx's element offset within mapping mapNo's
	// buffer. It returns ErrNotFound or ErrOutOfRange when idx is not
	// addressable by this layout.
	Offset(mapNo int, idx space.Index) (int64, error)

	// Describe returns a short human-readable summary, for
	// diagnostics.
	Describe() string

	// Pack walks r starting at *cursor in lexicographic order, copying
	// elemSize-byte elements from buf (indexed via Offset) into out,
	// until out is full or r is exhausted. It advances *cursor past
	// the last element written and returns the number of elements
	// packed.
	Pack(r space.Range, cursor *space.Index, buf []byte, out []byte, elemSize int) (int, error)

	// Unpack mirrors Pack: it walks r starting at *cursor, writing
	// elemSize-byte elements from in into buf (indexed via Offset),
	// until in is exhausted or r is. It advances *cursor and returns
	// the number of elements unpacked.
	Unpack(r space.Range, cursor *space.Index, in []byte, buf []byte, elemSize int) (int, error)

	// Copy copies every index of r element-wise from srcBuf (indexed
	// by the receiver's Offset) to dstBuf (indexed by dst's Offset).
	// It returns ErrLayoutMismatch if the receiver and dst are not
	// classification-compatible (both dense or both sparse).
	Copy(r space.Range, srcBuf []byte, dst Layout, dstBuf []byte, elemSize int) error

	// Reuse asks whether the receiver (the candidate new layout) can
	// adopt old's already-allocated buffer instead of forcing a fresh
	// allocation, per spec §4.B/§4.C's reuse rules. On success, and in
	// the cases the rules describe, the receiver mutates itself to
	// inherit state from old (its element count, or its interval map).
	Reuse(old Layout) bool
}

// walk drives the shared pack/unpack skeleton: starting at *cursor,
// it lexicographically visits indices of r, calling visit(idx, n) for
// each, until visit returns false (buffer exhausted) or the range is
// exhausted. It advances *cursor to the first unvisited index (or to
// r.To, if the whole range was consumed).
func walk(r space.Range, cursor *space.Index, visit func(idx space.Index, n int) (bool, error)) (int, error) {
	idx := *cursor
	n := 0
	for {
		cont, err := visit(idx, n)
		if err != nil {
			*cursor = idx
			return n, err
		}
		if !cont {
			*cursor = idx
			return n, nil
		}
		n++
		if !r.Next(&idx) {
			*cursor = r.To
			return n, nil
		}
	}
}

func offsetBytes(off int64, elemSize int) (int64, int64) {
	start := off * int64(elemSize)
	return start, start + int64(elemSize)
}

func packWith(offsetFn func(space.Index) (int64, error), r space.Range, cursor *space.Index, buf, out []byte, elemSize int) (int, error) {
	max := len(out) / elemSize
	return walk(r, cursor, func(idx space.Index, n int) (bool, error) {
		if n >= max {
			return false, nil
		}
		off, err := offsetFn(idx)
		if err != nil {
			return false, err
		}
		lo, hi := offsetBytes(off, elemSize)
		if hi > int64(len(buf)) {
			return false, fmt.Errorf("layout: offset %d out of buffer bounds", off)
		}
		copy(out[n*elemSize:(n+1)*elemSize], buf[lo:hi])
		return true, nil
	})
}

func unpackWith(offsetFn func(space.Index) (int64, error), r space.Range, cursor *space.Index, in, buf []byte, elemSize int) (int, error) {
	max := len(in) / elemSize
	return walk(r, cursor, func(idx space.Index, n int) (bool, error) {
		if n >= max {
			return false, nil
		}
		off, err := offsetFn(idx)
		if err != nil {
			return false, err
		}
		lo, hi := offsetBytes(off, elemSize)
		if hi > int64(len(buf)) {
			return false, fmt.Errorf("layout: offset %d out of buffer bounds", off)
		}
		copy(buf[lo:hi], in[n*elemSize:(n+1)*elemSize])
		return true, nil
	})
}
