// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package layout

import (
	"fmt"

	"github.com/grailbio/laik/space"
)

// Dense1D is a contiguous buffer of Count elements addressed directly
// by their index: offset(idx) = idx.At(0). It is the default layout
// for 1-D spaces (spec §4.B).
type Dense1D struct {
	count int64
}

// NewDense1D returns a dense layout of the given element count.
func NewDense1D(count int64) *Dense1D {
	return &Dense1D{count: count}
}

func (l *Dense1D) MapCount() int { return 1 }

func (l *Dense1D) Count() int64 { return l.count }

// Section reports mapping 0 for every non-negative index. Per spec
// §9's open question, the upper bound is not checked here: callers
// must validate idx against the mapping's required_range before
// relying on Section/Offset.
func (l *Dense1D) Section(idx space.Index) (int, bool) {
	if idx.At(0) < 0 {
		return 0, false
	}
	return 0, true
}

func (l *Dense1D) Offset(mapNo int, idx space.Index) (int64, error) {
	if mapNo != 0 {
		return 0, ErrNotFound
	}
	if idx.At(0) < 0 {
		return 0, ErrNotFound
	}
	return idx.At(0), nil
}

func (l *Dense1D) Describe() string {
	return fmt.Sprintf("Dense1D(count=%d)", l.count)
}

func (l *Dense1D) Pack(r space.Range, cursor *space.Index, buf, out []byte, elemSize int) (int, error) {
	return packWith(func(idx space.Index) (int64, error) { return l.Offset(0, idx) }, r, cursor, buf, out, elemSize)
}

func (l *Dense1D) Unpack(r space.Range, cursor *space.Index, in, buf []byte, elemSize int) (int, error) {
	return unpackWith(func(idx space.Index) (int64, error) { return l.Offset(0, idx) }, r, cursor, in, buf, elemSize)
}

func (l *Dense1D) Copy(r space.Range, srcBuf []byte, dst Layout, dstBuf []byte, elemSize int) error {
	dl, ok := dst.(*Dense1D)
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

// Reuse reports true iff the receiver's count does not exceed old's;
// on success the receiver inherits old's (larger or equal) count, so
// the caller can keep old's buffer without reallocating (spec §4.B).
func (l *Dense1D) Reuse(old Layout) bool {
	o, ok := old.(*Dense1D)
	if !ok {
		return false
	}
	if l.count > o.count {
		return false
	}
	l.count = o.count
	return true
}
