// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package laik

// DataFlow annotates a switch_to call with the caller's read/write
// intent for the new partitioning, per spec §4.G.
type DataFlow struct {
	copyIn  bool
	copyOut bool
	init    bool
	initVal float64
}

// CopyIn requires that, before the transition, current data be
// delivered to the new layout: reads after switch_to need valid
// values.
func CopyIn() DataFlow { return DataFlow{copyIn: true} }

// CopyOut indicates that the caller will overwrite all data after the
// transition; prior contents need not be preserved.
func CopyOut() DataFlow { return DataFlow{copyOut: true} }

// CopyInOut requires both CopyIn and CopyOut semantics.
func CopyInOut() DataFlow { return DataFlow{copyIn: true, copyOut: true} }

// InitValue initializes the new mapping with the constant value v; no
// transfer is performed.
func InitValue(v float64) DataFlow { return DataFlow{init: true, initVal: v} }
