// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package backend

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/grailbio/base/retry"
	"github.com/grailbio/bigmachine"
)

// bigmachineRetryPolicy governs the explicit retry around the initial
// Transport.Setup call, mirroring the backoff the teacher applies
// around its own flaky first-contact RPCs.
var bigmachineRetryPolicy = retry.Backoff(time.Second, 5*time.Second, 1.5)

// RunFunc is the SPMD entry point every worker machine executes once
// the group is established. main() must assign it, identically on
// every process that may run this binary, before calling
// RunBigmachine: a machine spawned by bigmachine re-execs the same
// binary, and its Transport.Run RPC handler has no other way to reach
// application code than this package-level registration.
var RunFunc func(ctx context.Context, be *Bigmachine) error

// SetupArg configures a freshly spawned Transport with its position
// in the group and RPC handles to every peer (including itself).
type SetupArg struct {
	ID    int
	Size  int
	Peers []*bigmachine.Machine
}

// PushArg delivers one Send payload, tagged with its origin so the
// receiving Transport can file it under the right mailbox.
type PushArg struct {
	From int
	Data []byte
}

// Transport is the bigmachine service registered on every worker
// machine (spec §6's backend ABI, realized as a concrete multi-process
// transport). Point-to-point Send/Recv and the collective Barrier are
// both implemented as direct machine-to-machine RPCs using the same
// m.RetryCall(ctx, "Service.Method", arg, reply) idiom the teacher
// uses for cross-machine calls; there is no central relay process.
type Transport struct {
	mu    sync.Mutex
	id    int
	size  int
	peers []*bigmachine.Machine
	boxes map[int]chan []byte

	gen     int
	arrived int
	waitc   chan struct{}
}

// Init satisfies bigmachine's optional machine-local initialization
// hook; Transport needs none beyond zero values.
func (t *Transport) Init(b *bigmachine.B) error { return nil }

// Setup is called once by the driver, after every machine in the
// group is running, to hand each Transport its id and its peers'
// handles.
func (t *Transport) Setup(ctx context.Context, arg SetupArg, _ *struct{}) error {
	t.mu.Lock()
	t.id, t.size, t.peers = arg.ID, arg.Size, arg.Peers
	t.mu.Unlock()
	return nil
}

// Run invokes RunFunc with a Backend bound to this machine's
// Transport. The driver calls this once per machine (including the
// coordinator, machine 0) after Setup.
func (t *Transport) Run(ctx context.Context, _ struct{}, _ *struct{}) error {
	if RunFunc == nil {
		return fmt.Errorf("backend: Transport.Run invoked before RunFunc was registered")
	}
	t.mu.Lock()
	be := &Bigmachine{transport: t, id: t.id, size: t.size, peers: t.peers}
	t.mu.Unlock()
	return RunFunc(ctx, be)
}

func (t *Transport) box(from int) chan []byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.boxes == nil {
		t.boxes = make(map[int]chan []byte)
	}
	ch, ok := t.boxes[from]
	if !ok {
		ch = make(chan []byte, 64)
		t.boxes[from] = ch
	}
	return ch
}

// Push is the RPC handler a sending Transport invokes on the
// destination machine.
func (t *Transport) Push(ctx context.Context, arg PushArg, _ *struct{}) error {
	select {
	case t.box(arg.From) <- arg.Data:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// localArrive registers one arrival at the current barrier generation
// and returns the channel that closes once every worker has arrived.
func (t *Transport) localArrive() <-chan struct{} {
	t.mu.Lock()
	if t.waitc == nil {
		t.waitc = make(chan struct{})
	}
	ch := t.waitc
	t.arrived++
	if t.arrived == t.size {
		t.arrived = 0
		t.gen++
		close(ch)
		t.waitc = nil
	}
	t.mu.Unlock()
	return ch
}

// Arrive is the RPC handler non-coordinator workers invoke on
// machine 0 to join a barrier; it blocks until every worker (including
// machine 0 itself) has arrived.
func (t *Transport) Arrive(ctx context.Context, _ struct{}, _ *struct{}) error {
	select {
	case <-t.localArrive():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type bigmachineGroup struct{ size, id int }

func (g bigmachineGroup) Size() int { return g.size }
func (g bigmachineGroup) MyID() int { return g.id }

// Bigmachine is a multi-process Backend built on
// github.com/grailbio/bigmachine: each worker is one spawned
// bigmachine.Machine running a Transport, addressed directly via the
// *bigmachine.Machine handles the driver distributed in Setup.
type Bigmachine struct {
	transport *Transport
	id, size  int
	peers     []*bigmachine.Machine
}

func (be *Bigmachine) World() Group { return bigmachineGroup{size: be.size, id: be.id} }

func (be *Bigmachine) Send(ctx context.Context, dst int, p []byte) error {
	buf := append([]byte(nil), p...)
	if dst == be.id {
		return be.transport.Push(ctx, PushArg{From: be.id, Data: buf}, nil)
	}
	return be.peers[dst].RetryCall(ctx, "Transport.Push", PushArg{From: be.id, Data: buf}, nil)
}

func (be *Bigmachine) Recv(ctx context.Context, src int, p []byte) error {
	select {
	case msg := <-be.transport.box(src):
		if len(msg) != len(p) {
			return fmt.Errorf("backend: recv length mismatch: got %d want %d", len(msg), len(p))
		}
		copy(p, msg)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (be *Bigmachine) Barrier(ctx context.Context, g Group) error {
	if g.Size() != be.size {
		return fmt.Errorf("backend: barrier group size %d does not match world size %d", g.Size(), be.size)
	}
	if be.id == 0 {
		select {
		case <-be.transport.localArrive():
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return be.peers[0].RetryCall(ctx, "Transport.Arrive", struct{}{}, nil)
}

func (be *Bigmachine) Finalize() {}

// RunBigmachine spawns n bigmachine machines under system (workers
// 0..n-1, a full mesh, with no separate driver-as-worker role),
// distributes peer handles, and runs fn as the SPMD entry point on
// every one of them concurrently. It blocks until every worker's fn
// returns or one fails.
//
// fn must already be reachable as backend.RunFunc by the time a
// spawned machine's process re-execs main() and calls
// bigmachine.Start; RunBigmachine assigns RunFunc itself, but only the
// driver process benefits from that assignment; callers are
// responsible for assigning backend.RunFunc at the top of main() on
// every process.
func RunBigmachine(ctx context.Context, system bigmachine.System, n int, fn func(context.Context, *Bigmachine) error) error {
	RunFunc = fn

	b := bigmachine.Start(system)
	defer b.Shutdown()

	machines, err := b.Start(ctx, n, bigmachine.Services{"Transport": &Transport{}})
	if err != nil {
		return fmt.Errorf("backend: starting %d bigmachine workers: %w", n, err)
	}

	waitg, wctx := errgroup.WithContext(ctx)
	for _, m := range machines {
		m := m
		waitg.Go(func() error {
			<-m.Wait(bigmachine.Running)
			return m.Err()
		})
	}
	if err := waitg.Wait(); err != nil {
		return fmt.Errorf("backend: waiting for bigmachine workers to start: %w", err)
	}

	setupg, _ := errgroup.WithContext(wctx)
	for i, m := range machines {
		i, m := i, m
		setupg.Go(func() error {
			arg := SetupArg{ID: i, Size: n, Peers: machines}
			var lastErr error
			for attempt := 0; ; attempt++ {
				lastErr = m.RetryCall(ctx, "Transport.Setup", arg, nil)
				if lastErr == nil {
					return nil
				}
				if err := retry.Wait(ctx, bigmachineRetryPolicy, attempt); err != nil {
					return lastErr
				}
			}
		})
	}
	if err := setupg.Wait(); err != nil {
		return fmt.Errorf("backend: configuring bigmachine workers: %w", err)
	}

	rung, _ := errgroup.WithContext(wctx)
	for _, m := range machines {
		m := m
		rung.Go(func() error {
			return m.RetryCall(ctx, "Transport.Run", struct{}{}, nil)
		})
	}
	return rung.Wait()
}
