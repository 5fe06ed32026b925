// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package laik

import "github.com/grailbio/laik/backend"

// testBackend returns the worker-0 backend of a fresh in-process
// World of the given size, for tests that only need a Group handle
// and never actually move data.
func testBackend(size int) backend.Backend {
	_, backends := backend.NewWorld(size)
	return backends[0]
}

// testInstances returns one Instance per worker in a fresh in-process
// World of the given size, sharing no state but the World's mailboxes
// and barrier.
func testInstances(size int) []*Instance {
	_, backends := backend.NewWorld(size)
	insts := make([]*Instance, size)
	for i, b := range backends {
		insts[i] = Init(b)
	}
	return insts
}
