// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package laik

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/grailbio/laik/backend"
	"github.com/grailbio/laik/layout"
)

// A sendPlan schedules a pack-and-send of range R to worker To.
type sendPlan struct {
	To int
	R  Range
}

// A recvPlan schedules a receive-and-unpack of range R from worker
// From.
type recvPlan struct {
	From int
	R    Range
}

// A transferPlan is the diff of a source and target border array for
// one worker: the ranges it can copy in place, the ranges it must
// send away, and the ranges it must receive, per spec §4.H.
type transferPlan struct {
	localCopy []Range
	sends     []sendPlan
	recvs     []recvPlan
}

// breakpoints1D returns the sorted, deduplicated set of dimension-0
// endpoints appearing in either border array's entries. Consecutive
// breakpoints bound elementary intervals over which ownership (in
// both the source and target border arrays) is constant.
func breakpoints1D(entrySets ...[]TaskSlice) []int64 {
	seen := make(map[int64]struct{})
	for _, entries := range entrySets {
		for _, e := range entries {
			seen[e.Range.From.At(0)] = struct{}{}
			seen[e.Range.To.At(0)] = struct{}{}
		}
	}
	pts := make([]int64, 0, len(seen))
	for p := range seen {
		pts = append(pts, p)
	}
	sort.Slice(pts, func(i, j int) bool { return pts[i] < pts[j] })
	return pts
}

// owners1D returns the tasks, ascending, that own the whole
// elementary interval [x, y) in entries.
func owners1D(entries []TaskSlice, x, y int64) []int {
	var owners []int
	for _, e := range entries {
		f, t := e.Range.From.At(0), e.Range.To.At(0)
		if f <= x && t >= y {
			owners = append(owners, e.Task)
		}
	}
	sort.Ints(owners)
	return owners
}

// buildTransferPlan1D diffs srcBA against dstBA for worker myID. It
// sweeps the 1-D axis breakpoint by breakpoint: for each elementary
// interval it looks up the interval's owners on both sides and
// classifies the interval as a local copy, a send, or a receive for
// myID. When an interval has more than one source owner (overlapping
// writers in a non-disjoint source partitioning), the lowest task id
// is kept as the authoritative sender and the rest are dropped, per
// spec §4.H's tie-break rule.
func buildTransferPlan1D(srcBA, dstBA *BorderArray, myID int) *transferPlan {
	sp := dstBA.Space()
	srcEntries := srcBA.All()
	dstEntries := dstBA.All()
	pts := breakpoints1D(srcEntries, dstEntries)

	plan := &transferPlan{}
	for i := 0; i+1 < len(pts); i++ {
		x, y := pts[i], pts[i+1]
		if y <= x {
			continue
		}
		srcOwners := owners1D(srcEntries, x, y)
		dstOwners := owners1D(dstEntries, x, y)

		haveSrc := len(srcOwners) > 0
		var srcOwner int
		if haveSrc {
			srcOwner = srcOwners[0]
		}

		for _, v := range dstOwners {
			if v != myID {
				if haveSrc && srcOwner == myID {
					plan.sends = append(plan.sends, sendPlan{To: v, R: NewRange1D(sp, x, y)})
				}
				continue
			}
			switch {
			case haveSrc && srcOwner == myID:
				plan.localCopy = append(plan.localCopy, NewRange1D(sp, x, y))
			case haveSrc:
				plan.recvs = append(plan.recvs, recvPlan{From: srcOwner, R: NewRange1D(sp, x, y)})
			}
		}
	}
	return plan
}

// executeTransferPlan runs plan's local copies, sends, and receives,
// per spec §4.H's ordering guarantee: local copies complete before
// any send or receive is issued. Sends to distinct peers (and receives
// from distinct peers) then run concurrently, one goroutine per peer,
// via errgroup. Within a single peer's goroutine, its messages are
// issued strictly in plan order: the backend delivers same-(src, dst)
// traffic over a single FIFO channel (backend.Single, backend.
// Bigmachine's Transport), so a peer with more than one disjoint range
// in this transfer must have its sends (or receives) serialized rather
// than fired from independent goroutines, or two ranges destined for
// the same peer could race and be delivered out of the order both
// sides scheduled them.
func executeTransferPlan(
	ctx context.Context,
	be backend.Backend,
	plan *transferPlan,
	oldLayout layout.Layout, oldBuf []byte,
	newLayout layout.Layout, newBuf []byte,
	elemSize int,
) error {
	for _, r := range plan.localCopy {
		if err := oldLayout.Copy(r, oldBuf, newLayout, newBuf, elemSize); err != nil {
			return E(LayoutMismatch, "laik.transfer.copy", err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, msgs := range groupSendsByPeer(plan.sends) {
		msgs := msgs
		g.Go(func() error {
			for _, s := range msgs {
				out := make([]byte, s.R.Size()*int64(elemSize))
				cursor := s.R.From
				if _, err := oldLayout.Pack(s.R, &cursor, oldBuf, out, elemSize); err != nil {
					return err
				}
				if err := be.Send(gctx, s.To, out); err != nil {
					return err
				}
			}
			return nil
		})
	}
	for _, msgs := range groupRecvsByPeer(plan.recvs) {
		msgs := msgs
		g.Go(func() error {
			for _, r := range msgs {
				in := make([]byte, r.R.Size()*int64(elemSize))
				if err := be.Recv(gctx, r.From, in); err != nil {
					return err
				}
				cursor := r.R.From
				if _, err := newLayout.Unpack(r.R, &cursor, in, newBuf, elemSize); err != nil {
					return err
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return E(BackendError, "laik.transfer.exec", err)
	}
	return nil
}

// groupSendsByPeer buckets sends by destination, preserving each
// peer's relative order and the order peers first appear in.
func groupSendsByPeer(sends []sendPlan) [][]sendPlan {
	order := make([]int, 0)
	byPeer := make(map[int][]sendPlan)
	for _, s := range sends {
		if _, ok := byPeer[s.To]; !ok {
			order = append(order, s.To)
		}
		byPeer[s.To] = append(byPeer[s.To], s)
	}
	out := make([][]sendPlan, len(order))
	for i, to := range order {
		out[i] = byPeer[to]
	}
	return out
}

// groupRecvsByPeer buckets receives by source, preserving each peer's
// relative order and the order peers first appear in.
func groupRecvsByPeer(recvs []recvPlan) [][]recvPlan {
	order := make([]int, 0)
	byPeer := make(map[int][]recvPlan)
	for _, r := range recvs {
		if _, ok := byPeer[r.From]; !ok {
			order = append(order, r.From)
		}
		byPeer[r.From] = append(byPeer[r.From], r)
	}
	out := make([][]recvPlan, len(order))
	for i, from := range order {
		out[i] = byPeer[from]
	}
	return out
}
