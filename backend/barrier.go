// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package backend

import (
	"context"
	"sync"

	"github.com/grailbio/laik/ctxsync"
)

// a generation barrier: workers arrive, and are released once all
// world.size of them have arrived for the current generation. The
// generation counter lets the same barrier be reused across many
// transitions.
type genBarrier struct {
	mu      sync.Mutex
	cond    *ctxsync.Cond
	gen     int
	arrived int
	size    int
}

func newGenBarrier(size int) *genBarrier {
	b := &genBarrier{size: size}
	b.cond = ctxsync.NewCond(&b.mu)
	return b
}

func (b *genBarrier) wait(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	gen := b.gen
	b.arrived++
	if b.arrived == b.size {
		b.arrived = 0
		b.gen++
		b.cond.Broadcast()
		return nil
	}
	for b.gen == gen {
		if err := b.cond.Wait(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (w *World) barrier(ctx context.Context) error {
	w.onceBarrier()
	return w.gb.wait(ctx)
}

func (w *World) onceBarrier() {
	w.barrierOnce.Do(func() {
		w.gb = newGenBarrier(w.size)
	})
}
