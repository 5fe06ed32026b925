// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package laik

import (
	"fmt"
	"strings"
)

// Kind classifies the errors that the core library can return. Kind
// values are distinct from github.com/grailbio/base/errors' own Kind
// vocabulary: that package's Net/Remote/Fatal/NotExist distinctions
// don't name this domain's failures, so laik layers its own small
// vocabulary on top, in the same spirit as the teacher's own
// TaskState/ErrTaskLost local vocabulary.
type Kind int

const (
	// Other is the zero value: an unclassified error.
	Other Kind = iota
	// InvalidArgument indicates a malformed space, zero-size range, or
	// bad dimension.
	InvalidArgument
	// PreconditionFailed indicates CopyIn from Unbound, a copy
	// partitioner invoked without a valid base, or a group mismatch
	// between a base and target partitioning.
	PreconditionFailed
	// OutOfRange indicates an index outside all owned intervals with
	// no external slots remaining.
	OutOfRange
	// OutOfMemory indicates a fatal allocation failure. Callers never
	// observe this as a Kind in practice: OutOfMemory is reported via
	// panic, per spec.
	OutOfMemory
	// Busy indicates a reentrant switch_to on a container already
	// mid-transition. Data.SwitchTo does not return Busy: a concurrent
	// call waits until the running transition completes or the
	// caller's context is done.
	Busy
	// BackendError wraps a transport-layer failure. The transition is
	// rolled back; the container's pre-transition binding is retained.
	BackendError
	// LayoutMismatch indicates pack/unpack/copy invoked across
	// incompatible layouts.
	LayoutMismatch
)

func (k Kind) String() string {
	switch k {
	case InvalidArgument:
		return "invalid argument"
	case PreconditionFailed:
		return "precondition failed"
	case OutOfRange:
		return "out of range"
	case OutOfMemory:
		return "out of memory"
	case Busy:
		return "busy"
	case BackendError:
		return "backend error"
	case LayoutMismatch:
		return "layout mismatch"
	default:
		return "error"
	}
}

// Error is the concrete error type returned by this package. It
// carries a Kind, a free-text description of the failing operation,
// and an optional wrapped cause.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.String())
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// E constructs an *Error from a mix of Kind, string, and error
// arguments, in the calling convention of github.com/grailbio/base/errors.E:
// the last Kind argument sets e.Kind, string arguments are joined
// (separated by ": ") into e.Op, and the first error argument becomes
// e.Err.
func E(args ...interface{}) error {
	e := &Error{}
	var op []string
	for _, arg := range args {
		switch v := arg.(type) {
		case Kind:
			e.Kind = v
		case string:
			op = append(op, v)
		case error:
			if e.Err == nil {
				e.Err = v
			} else {
				op = append(op, v.Error())
			}
		default:
			op = append(op, fmt.Sprint(v))
		}
	}
	e.Op = strings.Join(op, ": ")
	return e
}

// Is reports whether err is a *Error of the given Kind, unwrapping
// wrapped errors along the way.
func Is(err error, kind Kind) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			if e.Kind == kind {
				return true
			}
			err = e.Err
			continue
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
