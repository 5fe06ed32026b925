// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package laik

// A Partitioning is a named binding of (group, space, partitioner,
// optional base partitioning) to a computed border array. It is
// constructed invalid and becomes valid after Validate runs the
// partitioner; it is invalidated when the group or the base
// partitioning changes. A Partitioning is shared (by plain Go
// pointer, per spec §9's weak-reference design note) by every
// container currently using it.
type Partitioning struct {
	Name        string
	group       Group
	space       *Space
	partitioner *Partitioner
	base        *Partitioning

	border *BorderArray
	valid  bool
}

// NewPartitioning constructs a Partitioning, immediately invalid. Call
// Validate to run the partitioner and compute its border array.
func NewPartitioning(name string, group Group, space *Space, partitioner *Partitioner, base *Partitioning) *Partitioning {
	return &Partitioning{Name: name, group: group, space: space, partitioner: partitioner, base: base}
}

// Group returns the partitioning's group.
func (p *Partitioning) Group() Group { return p.group }

// Space returns the partitioning's space.
func (p *Partitioning) Space() *Space { return p.space }

// Valid reports whether the partitioning's border array is up to
// date.
func (p *Partitioning) Valid() bool { return p.valid }

// Invalidate drops the border array. It is called when the group or
// the base partitioning changes; the next Validate recomputes it.
func (p *Partitioning) Invalidate() {
	p.border = nil
	p.valid = false
}

// Validate runs the partitioner and fills the border array. It is
// idempotent while the partitioning's inputs are unchanged.
func (p *Partitioning) Validate() error {
	if p.valid {
		return nil
	}
	var baseBorder *BorderArray
	if p.base != nil {
		if err := p.base.Validate(); err != nil {
			return err
		}
		if !p.base.group.Equal(p.group) {
			return E(PreconditionFailed, "laik.Partitioning.Validate", "base and target partitioning must share a group")
		}
		baseBorder = p.base.border
	}
	ba := newBorderArray(p.space, p.group)
	if err := p.partitioner.run(ba, baseBorder, p.partitioner.userData); err != nil {
		return err
	}
	ba.Validate()
	p.border = ba
	p.valid = true
	return nil
}

// BorderArray returns the partitioning's (validated) border array. It
// panics if the partitioning is not valid; callers should Validate
// first.
func (p *Partitioning) BorderArray() *BorderArray {
	if !p.valid {
		panic("laik: Partitioning.BorderArray called before Validate")
	}
	return p.border
}

// MySlice1D returns the bounding [from, to) on dimension dim for the
// caller's task: the smallest from and the largest to over all of
// that task's slices, so gaps between non-contiguous slices fall
// inside the result. ok is false if the task owns no slices.
func (p *Partitioning) MySlice1D(dim int) (from, to int64, ok bool) {
	if !p.valid {
		panic("laik: Partitioning.MySlice1D called before Validate")
	}
	my := p.group.MyID()
	first := true
	for _, e := range p.border.All() {
		if e.Task != my {
			continue
		}
		f, t := e.Range.From.At(dim), e.Range.To.At(dim)
		if first {
			from, to = f, t
			first = false
			continue
		}
		if f < from {
			from = f
		}
		if t > to {
			to = t
		}
	}
	return from, to, !first
}
