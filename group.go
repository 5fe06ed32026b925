// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package laik

import "github.com/grailbio/laik/backend"

// A Group is an ordered set of workers with ids [0, Size()). Groups
// are external inputs: the backend owns group identity, and the core
// treats a Group opaquely, only ever asking it for its size and the
// local worker's position.
type Group struct {
	inst *Instance
	g    backend.Group
}

// Size returns the number of workers in the group.
func (g Group) Size() int { return g.g.Size() }

// MyID returns the local worker's position within the group.
func (g Group) MyID() int { return g.g.MyID() }

// Equal reports whether g and other address the same backend group.
// Partitionings and base partitionings are required to share a group
// (PreconditionFailed otherwise); comparing the underlying backend
// Group values (rather than laik.Group wrapper values) lets two
// Group handles obtained from the same Instance compare equal.
func (g Group) Equal(other Group) bool { return g.g == other.g }
