// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package layout

import (
	"reflect"
	"testing"

	"github.com/grailbio/laik/space"
)

func rng1D(s *space.Space, from, to int64) space.Range {
	return space.NewRange1D(s, from, to)
}

func TestSparse1DCalculateMapping(t *testing.T) {
	s := mustSpace1D(t, 10)
	entries := []space.Range{rng1D(s, 0, 2), rng1D(s, 2, 4), rng1D(s, 5, 7)}
	l := NewSparse1D(entries, 2, 6)

	want := []Interval{{From: 0, To: 4}, {From: 5, To: 7}}
	if !reflect.DeepEqual(l.Intervals(), want) {
		t.Fatalf("intervals = %v, want %v", l.Intervals(), want)
	}
	if l.LocalLength() != 6 {
		t.Errorf("localLength = %d, want 6", l.LocalLength())
	}
	if l.LowerBound() != 0 {
		t.Errorf("lowerBound = %d, want 0", l.LowerBound())
	}
	if l.UpperBound() != 7 {
		t.Errorf("upperBound = %d, want 7", l.UpperBound())
	}
}

func TestSparse1DOffsetLocalAndExternal(t *testing.T) {
	s := mustSpace1D(t, 10)
	entries := []space.Range{rng1D(s, 0, 2), rng1D(s, 2, 4), rng1D(s, 5, 7)}
	l := NewSparse1D(entries, 2, 6)

	off, err := l.Offset(0, space.NewIndex1D(3))
	if err != nil || off != 3 {
		t.Fatalf("Offset(3) = (%d, %v), want (3, nil)", off, err)
	}
	off, err = l.Offset(0, space.NewIndex1D(6))
	if err != nil || off != 5 {
		t.Fatalf("Offset(6) = (%d, %v), want (5, nil)", off, err)
	}

	// Two non-local queries consume the two external slots in order,
	// then wrap.
	off, err = l.Offset(0, space.NewIndex1D(8))
	if err != nil || off != 6 {
		t.Fatalf("first external Offset = (%d, %v), want (6, nil)", off, err)
	}
	off, err = l.Offset(0, space.NewIndex1D(9))
	if err != nil || off != 7 {
		t.Fatalf("second external Offset = (%d, %v), want (7, nil)", off, err)
	}
	off, err = l.Offset(0, space.NewIndex1D(4))
	if err != nil || off != 6 {
		t.Fatalf("wrapped external Offset = (%d, %v), want (6, nil)", off, err)
	}
}

func TestSparse1DOutOfRangeWithNoExternal(t *testing.T) {
	s := mustSpace1D(t, 10)
	entries := []space.Range{rng1D(s, 0, 2)}
	l := NewSparse1D(entries, 0, 2)
	if _, err := l.Offset(0, space.NewIndex1D(5)); err != ErrOutOfRange {
		t.Fatalf("Offset(5) err = %v, want ErrOutOfRange", err)
	}
}

func TestSparse1DReuse(t *testing.T) {
	s := mustSpace1D(t, 10)
	entries := []space.Range{rng1D(s, 0, 2), rng1D(s, 2, 4)}

	old := NewSparse1D(entries, 0, 4)
	sameLocal := NewSparse1D(entries, 0, 4)
	if !sameLocal.Reuse(old) {
		t.Fatal("expected reuse with identical allocatedRangeCount and localLength")
	}

	grown := NewSparse1D(entries, 0, 8)
	if grown.Reuse(old) {
		t.Fatal("expected reuse to fail when allocatedRangeCount grows")
	}

	externalEntries := []space.Range{rng1D(s, 0, 2), rng1D(s, 2, 4)}
	ext := NewSparse1D(externalEntries, 3, 4)
	if !ext.Reuse(old) {
		t.Fatal("expected reuse to succeed across the external/non-external switch")
	}
	if !reflect.DeepEqual(ext.Intervals(), old.Intervals()) {
		t.Fatal("expected external layout to inherit old's interval map")
	}
}
