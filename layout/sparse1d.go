// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package layout

import (
	"fmt"

	"github.com/grailbio/laik/space"
)

// An Interval is one closed-open, locally-owned sub-range of a
// Sparse1D layout's index axis.
type Interval struct {
	From, To int64
}

// Sparse1D lays out a disjoint union of locally-owned 1-D intervals,
// back to back with no gaps, followed by a fixed block of "external"
// slots for values the worker does not own but still needs to
// address (spec §4.C). Neighbouring border-array ranges belonging to
// the same worker are coalesced into one interval at construction.
type Sparse1D struct {
	intervals           []Interval
	localLength         int64
	numExternal         int
	externalCursor      int
	allocatedRangeCount int64
	lowerBound          int64
	upperBound          int64
}

// calculateMapping coalesces the sorted, ascending entries (a single
// task's slice of a border array, projected to dimension 0) into the
// minimal set of disjoint intervals: entries are merged whenever one
// ends exactly where the next begins. This is the corrected rule from
// spec §4.C / §9 ("neighbour coalescing bug"): the source under-counts
// intervals when the penultimate range neighbours the last; walking
// strictly in order and only closing an interval when a genuine gap
// is found avoids that.
func calculateMapping(entries []space.Range) []Interval {
	if len(entries) == 0 {
		return nil
	}
	intervals := make([]Interval, 0, len(entries))
	curFrom := entries[0].From.At(0)
	curTo := entries[0].To.At(0)
	for _, e := range entries[1:] {
		f, t := e.From.At(0), e.To.At(0)
		if curTo == f {
			curTo = t
			continue
		}
		intervals = append(intervals, Interval{From: curFrom, To: curTo})
		curFrom, curTo = f, t
	}
	intervals = append(intervals, Interval{From: curFrom, To: curTo})
	return intervals
}

// NewSparse1D builds a sparse layout from entries (a task's sorted,
// ascending 1-D slices), reserving numExternal appended external
// slots. allocatedRangeCount records the upper bound on slots ever
// requested for this layout instance, for the reuse check.
func NewSparse1D(entries []space.Range, numExternal int, allocatedRangeCount int64) *Sparse1D {
	intervals := calculateMapping(entries)
	var localLength int64
	for _, iv := range intervals {
		localLength += iv.To - iv.From
	}
	var lower, upper int64
	if len(intervals) > 0 {
		lower = intervals[0].From
		upper = intervals[len(intervals)-1].To
	}
	return &Sparse1D{
		intervals:           intervals,
		localLength:         localLength,
		numExternal:         numExternal,
		allocatedRangeCount: allocatedRangeCount,
		lowerBound:          lower,
		upperBound:          upper,
	}
}

func (l *Sparse1D) MapCount() int { return 1 }

func (l *Sparse1D) Count() int64 { return l.localLength + int64(l.numExternal) }

// Intervals returns the coalesced, locally-owned intervals.
func (l *Sparse1D) Intervals() []Interval { return l.intervals }

// LocalLength returns the sum of all interval sizes.
func (l *Sparse1D) LocalLength() int64 { return l.localLength }

// LowerBound returns the first interval's From, or 0 if there are no
// intervals.
func (l *Sparse1D) LowerBound() int64 { return l.lowerBound }

// UpperBound returns the last interval's To, or 0 if there are no
// intervals.
func (l *Sparse1D) UpperBound() int64 { return l.upperBound }

// NumExternal returns the number of appended external slots.
func (l *Sparse1D) NumExternal() int { return l.numExternal }

// AllocatedRangeCount returns the upper bound on slots ever requested
// for this layout, used by Reuse.
func (l *Sparse1D) AllocatedRangeCount() int64 { return l.allocatedRangeCount }

// ResetExternalCursor rewinds the external-slot cursor to 0. The
// transition engine calls this at the start of every transition that
// will consume external values (spec §9's "external-slot cursor"
// design note: a per-transition cursor, not the source's fragile
// global one).
func (l *Sparse1D) ResetExternalCursor() { l.externalCursor = 0 }

// Section reports whether idx is addressable by this layout: either
// it falls within an owned interval, or the layout has external slots
// to serve it. It does not mutate the external cursor.
func (l *Sparse1D) Section(idx space.Index) (int, bool) {
	g := idx.At(0)
	for _, iv := range l.intervals {
		if g >= iv.From && g < iv.To {
			return 0, true
		}
	}
	return 0, l.numExternal > 0
}

// Offset implements the offset rule of spec §4.C: a local index
// resolves to its position within the packed local block; an index
// that is not (yet) locally owned consumes the next external slot,
// wrapping the cursor back to 0 once it reaches numExternal.
func (l *Sparse1D) Offset(mapNo int, idx space.Index) (int64, error) {
	if mapNo != 0 {
		return 0, ErrNotFound
	}
	g := idx.At(0)
	var prefix int64
	for _, iv := range l.intervals {
		if g >= iv.From && g < iv.To {
			return prefix + (g - iv.From), nil
		}
		if g < iv.From {
			return l.consumeExternal()
		}
		prefix += iv.To - iv.From
	}
	return l.consumeExternal()
}

func (l *Sparse1D) consumeExternal() (int64, error) {
	if l.numExternal == 0 {
		return 0, ErrOutOfRange
	}
	off := l.localLength + int64(l.externalCursor)
	l.externalCursor++
	if l.externalCursor >= l.numExternal {
		l.externalCursor = 0
	}
	return off, nil
}

func (l *Sparse1D) Describe() string {
	return fmt.Sprintf("Sparse1D(intervals=%d, local=%d, external=%d)", len(l.intervals), l.localLength, l.numExternal)
}

func (l *Sparse1D) Pack(r space.Range, cursor *space.Index, buf, out []byte, elemSize int) (int, error) {
	return packWith(func(idx space.Index) (int64, error) { return l.Offset(0, idx) }, r, cursor, buf, out, elemSize)
}

func (l *Sparse1D) Unpack(r space.Range, cursor *space.Index, in, buf []byte, elemSize int) (int, error) {
	return unpackWith(func(idx space.Index) (int64, error) { return l.Offset(0, idx) }, r, cursor, in, buf, elemSize)
}

func (l *Sparse1D) Copy(r space.Range, srcBuf []byte, dst Layout, dstBuf []byte, elemSize int) error {
	dl, ok := dst.(*Sparse1D)
	if !ok {
		return ErrLayoutMismatch
	}
	idx := r.From
	for {
		so, err := l.Offset(0, idx)
		if err != nil {
			return err
		}
		do, err := dl.Offset(0, idx)
		if err != nil {
			return err
		}
		slo, shi := offsetBytes(so, elemSize)
		dlo, dhi := offsetBytes(do, elemSize)
		copy(dstBuf[dlo:dhi], srcBuf[slo:shi])
		if !r.Next(&idx) {
			return nil
		}
	}
}

// Reuse implements spec §4.C's reuse rule: the receiver (candidate
// new layout) can adopt old's buffer iff its allocatedRangeCount does
// not exceed old's and the two share the same localLength. When reuse
// succeeds for a layout with external slots (count != localLength),
// the receiver inherits old's interval map outright rather than
// re-deriving it, since an external view depends on the local one.
// When reuse fails solely because one side has external slots and the
// other does not (localLength still matches), the receiver still
// adopts old's interval map so the external view can address local
// values.
func (l *Sparse1D) Reuse(old Layout) bool {
	o, ok := old.(*Sparse1D)
	if !ok {
		return false
	}
	sameLocal := l.localLength == o.localLength
	if sameLocal && l.numExternal > 0 {
		l.intervals = o.intervals
		l.lowerBound = o.lowerBound
		l.upperBound = o.upperBound
	}
	if l.allocatedRangeCount <= o.allocatedRangeCount && sameLocal {
		return true
	}
	if sameLocal {
		l.intervals = o.intervals
		l.lowerBound = o.lowerBound
		l.upperBound = o.upperBound
	}
	return false
}
