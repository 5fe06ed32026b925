// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package laik

import "fmt"

// A Partitioner is a pure function that, given a (possibly empty)
// border array to fill in and an optional base border array, appends
// (task, range, mapping-no) entries. A Partitioner is deterministic
// for a given (group, space, base). Partitioners are shared by every
// Partitioning that references them.
type Partitioner struct {
	name     string
	run      func(ba, base *BorderArray, userData interface{}) error
	userData interface{}
}

// Name returns the partitioner's name, for diagnostics.
func (p *Partitioner) Name() string { return p.name }

// All returns the built-in "all" partitioner: every task is assigned
// the full space. All is a once-guarded singleton on inst, per spec
// §5.
func (inst *Instance) All() *Partitioner {
	inst.allOnce.Do(func() {
		inst.all = &Partitioner{name: "all", run: runAllPartitioner}
	})
	return inst.all
}

func runAllPartitioner(ba, _ *BorderArray, _ interface{}) error {
	full := ba.Space().FullRange()
	for t := 0; t < ba.Group().Size(); t++ {
		ba.Append(t, full)
	}
	return nil
}

// Master returns the built-in "master" partitioner: only task 0 is
// assigned the full space. Master is a once-guarded singleton on
// inst, per spec §5.
func (inst *Instance) Master() *Partitioner {
	inst.masterOnce.Do(func() {
		inst.master = &Partitioner{name: "master", run: runMasterPartitioner}
	})
	return inst.master
}

func runMasterPartitioner(ba, _ *BorderArray, _ interface{}) error {
	ba.Append(0, ba.Space().FullRange())
	return nil
}

// IndexWeight computes the weight of index i along the block
// partitioner's split dimension. UserData is whatever was passed to
// NewBlockPartitioner.
type IndexWeight func(i int64, userData interface{}) float64

// TaskWeight computes the weight (load-balancing scale factor) of
// task t. UserData is whatever was passed to NewBlockPartitioner.
type TaskWeight func(t int, userData interface{}) float64

// BlockOptions configures NewBlockPartitioner.
type BlockOptions struct {
	// PDim is the dimension of the space to split into contiguous
	// blocks.
	PDim int
	// Cycles is the number of passes made over the tasks while
	// distributing indices; it must be >= 1.
	Cycles int
	// IdxWeight optionally weighs each index along PDim; nil means
	// weight 1 for every index.
	IdxWeight IndexWeight
	// TaskWeight optionally scales each task's share; nil means weight
	// 1 for every task.
	TaskWeight TaskWeight
	// UserData is passed to IdxWeight and TaskWeight.
	UserData interface{}
}

type blockData struct {
	opts BlockOptions
}

// NewBlockPartitioner returns a 1-D block partitioner splitting
// dimension opts.PDim into contiguous segments whose weighted sums
// are balanced across the group's tasks over opts.Cycles passes, per
// spec §4.E.
func NewBlockPartitioner(opts BlockOptions) *Partitioner {
	if opts.Cycles < 1 {
		opts.Cycles = 1
	}
	return &Partitioner{name: "block", run: runBlockPartitioner, userData: &blockData{opts: opts}}
}

func runBlockPartitioner(ba, _ *BorderArray, userData interface{}) error {
	data := userData.(*blockData)
	opts := data.opts
	s := ba.Space()
	pdim := opts.PDim
	size := s.Size(pdim)
	count := ba.Group().Size()

	totalW := 0.0
	if opts.IdxWeight != nil {
		for i := int64(0); i < size; i++ {
			totalW += opts.IdxWeight(i, opts.UserData)
		}
	} else {
		totalW = float64(size)
	}

	totalTW := 0.0
	if opts.TaskWeight != nil {
		for t := 0; t < count; t++ {
			totalTW += opts.TaskWeight(t, opts.UserData)
		}
	} else {
		totalTW = float64(count)
	}

	cycles := opts.Cycles
	perPart := totalW / float64(count) / float64(cycles)
	w := -0.5
	task := 0
	cycle := 0

	taskFactor := func(t int) float64 {
		if opts.TaskWeight != nil {
			return opts.TaskWeight(t, opts.UserData) * float64(count) / totalTW
		}
		return 1.0
	}
	tw := taskFactor(task)

	full := s.FullRange()
	sliceFrom := int64(0)
	for i := int64(0); i < size; i++ {
		if opts.IdxWeight != nil {
			w += opts.IdxWeight(i, opts.UserData)
		} else {
			w += 1.0
		}
		for w >= perPart*tw {
			w -= perPart * tw
			if task+1 == count && cycle+1 == cycles {
				break
			}
			if sliceFrom < i {
				r := full
				r.From = r.From.SetAt(pdim, sliceFrom)
				r.To = r.To.SetAt(pdim, i)
				ba.Append(task, r)
			}
			task++
			if task == count {
				task = 0
				cycle++
			}
			tw = taskFactor(task)
			sliceFrom = i
		}
		if task+1 == count && cycle+1 == cycles {
			break
		}
	}
	r := full
	r.From = r.From.SetAt(pdim, sliceFrom)
	r.To = r.To.SetAt(pdim, size)
	ba.Append(task, r)
	return nil
}

type copyData struct {
	base            *Partitioning
	fromDim, toDim  int
}

// NewCopyPartitioner returns a partitioner that, for each slice of
// base's border array, appends a slice spanning the whole space but
// with dimension toDim replaced by the base slice's fromDim extent,
// preserving the task id, per spec §4.E.
func NewCopyPartitioner(base *Partitioning, fromDim, toDim int) *Partitioner {
	return &Partitioner{
		name:     "copy",
		run:      runCopyPartitioner,
		userData: &copyData{base: base, fromDim: fromDim, toDim: toDim},
	}
}

func runCopyPartitioner(ba, _ *BorderArray, userData interface{}) error {
	data := userData.(*copyData)
	base := data.base
	if base == nil || !base.valid {
		return E(PreconditionFailed, "laik.copy", "base partitioning is not valid")
	}
	if !base.group.Equal(ba.Group()) {
		return E(PreconditionFailed, "laik.copy", "base and target must share a group")
	}
	if data.fromDim < 0 || data.fromDim >= base.space.Dims() {
		return E(InvalidArgument, "laik.copy", fmt.Sprintf("fromDim %d out of range", data.fromDim))
	}
	if data.toDim < 0 || data.toDim >= ba.Space().Dims() {
		return E(InvalidArgument, "laik.copy", fmt.Sprintf("toDim %d out of range", data.toDim))
	}
	full := ba.Space().FullRange()
	for _, e := range base.border.All() {
		r := full
		r.From = r.From.SetAt(data.toDim, e.Range.From.At(data.fromDim))
		r.To = r.To.SetAt(data.toDim, e.Range.To.At(data.fromDim))
		ba.Append(e.Task, r)
	}
	return nil
}

// CustomFunc is the callback for a user-defined partitioner. It
// receives the target border array to fill in and, when the
// partitioning has a base, the base's border array (otherwise nil).
type CustomFunc func(ba, base *BorderArray, userData interface{}) error

// NewCustomPartitioner returns a partitioner named name that invokes
// fn with userData, per spec §4.E's "user-defined" partitioner.
func NewCustomPartitioner(name string, fn CustomFunc, userData interface{}) *Partitioner {
	return &Partitioner{
		name:     name,
		run:      func(ba, base *BorderArray, ud interface{}) error { return fn(ba, base, ud) },
		userData: userData,
	}
}
