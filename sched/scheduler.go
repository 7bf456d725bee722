// Copyright 2016 The G3N Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sched

import (
	"runtime"
	"sync"
	"time"

	"github.com/spherenet/sim/body"
	"github.com/spherenet/sim/collider"
	"github.com/spherenet/sim/grid"
	"github.com/spherenet/sim/math32"
	"github.com/spherenet/sim/params"
)

// Broadcaster publishes the new state of every owned, integrated body at
// the end of Phase 4 (spec 4.D/4.G).
type Broadcaster interface {
	BroadcastOwned(owned []*body.Body)
}

// reservedCores approximates the reference split: two cores for
// rendering, one for networking.
const reservedCores = 3

// DefaultWorkerCount returns max(1, hw_concurrency-K) for the given
// reservation, the pool size the reference implementation uses absent an
// explicit override (spec 4.D).
func DefaultWorkerCount(reserved int) int {
	w := runtime.GOMAXPROCS(0) - reserved
	if w < 1 {
		w = 1
	}
	return w
}

type pair struct {
	a, b *body.Body
}

// Scheduler runs the fixed-timestep tick loop against a shared Lists,
// Grid and parameter block. Workers are modeled as goroutines
// rendezvousing per phase on a fresh sync.WaitGroup rather than a
// persistent OS-thread barrier: Go's scheduler makes spawning cheap, so
// each of the four phases fans out and joins independently, which keeps
// the same ordering guarantees (no phase k+1 work starts before every
// worker finishes phase k) without a hand-rolled condition-variable
// barrier.
type Scheduler struct {
	lists      *Lists
	grid       *grid.Grid
	params     *params.Shared
	broadcast  Broadcaster
	spawnQueue *SpawnQueue
	axisLength float32
	numWorkers int

	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool
	mu      sync.Mutex
}

// New returns a Scheduler ready to Start.
func New(lists *Lists, g *grid.Grid, shared *params.Shared, broadcast Broadcaster, spawnQueue *SpawnQueue, axisLength float32, numWorkers int) *Scheduler {
	if numWorkers < 1 {
		numWorkers = 1
	}
	return &Scheduler{
		lists:      lists,
		grid:       g,
		params:     shared,
		broadcast:  broadcast,
		spawnQueue: spawnQueue,
		axisLength: axisLength,
		numWorkers: numWorkers,
	}
}

// Start launches the tick loop in its own goroutine. Calling Start on an
// already-running Scheduler is a no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	go s.loop(s.stopCh, s.doneCh)
}

// Stop signals the tick loop to exit and blocks until it has joined,
// which happens within one dt (spec 4.D "Start/stop").
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	stopCh, doneCh := s.stopCh, s.doneCh
	s.running = false
	s.mu.Unlock()

	close(stopCh)
	<-doneCh
}

func (s *Scheduler) loop(stopCh, doneCh chan struct{}) {
	defer close(doneCh)
	for {
		select {
		case <-stopCh:
			return
		default:
		}

		if s.params.Paused() {
			select {
			case <-stopCh:
				return
			case <-time.After(time.Millisecond):
			}
			continue
		}

		t0 := time.Now()
		dt := 1 / s.params.TargetSimHz()
		if dt <= 0 {
			dt = 1.0 / 125.0
		}

		for _, b := range s.spawnQueue.Drain() {
			s.lists.Spawn(b)
		}

		s.runTick(dt)

		elapsed := time.Since(t0)
		budget := time.Duration(dt * float32(time.Second))
		if sleep := budget - elapsed; sleep > 0 {
			select {
			case <-stopCh:
				return
			case <-time.After(sleep):
			}
		}
	}
}

// runTick executes the four barrier phases once. It never skips a phase,
// even with zero moving bodies, so a pool with no work still completes a
// tick deterministically (spec 4.D phase 0 / 8 "Scheduler").
func (s *Scheduler) runTick(dt float32) {
	moving, fixed := s.lists.Snapshot()
	n := len(moving)
	w := s.numWorkers

	// Phase 1: grid rebuild. Clear a disjoint cell-index range per
	// worker, then insert each worker's disjoint body-index range.
	clearChunks := partitionRange(s.grid.NumCells(), w)
	var wg sync.WaitGroup
	for _, c := range clearChunks {
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			s.grid.ClearRange(lo, hi)
		}(c.lo, c.hi)
	}
	wg.Wait()

	bodyChunks := partitionRange(n, w)
	wg = sync.WaitGroup{}
	for _, c := range bodyChunks {
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			for i := lo; i < hi; i++ {
				s.grid.Insert(i, moving[i].Collider.Transform.Position)
			}
		}(c.lo, c.hi)
	}
	wg.Wait()

	// Phase 2: broad + narrow phase detection, thread-local pair lists
	// concatenated in thread-id order for deterministic resolution.
	threadPairs := make([][]pair, w)
	wg = sync.WaitGroup{}
	for wi, c := range bodyChunks {
		wg.Add(1)
		go func(workerID, lo, hi int) {
			defer wg.Done()
			threadPairs[workerID] = s.detect(moving, fixed, lo, hi)
		}(wi, c.lo, c.hi)
	}
	wg.Wait()

	var allPairs []pair
	for _, p := range threadPairs {
		allPairs = append(allPairs, p...)
	}

	// Phase 3: single-threaded resolution, re-running the narrow phase
	// per pair since a prior resolution in this same phase may have
	// moved either body.
	restOverride := s.params.RestitutionOverride()
	staticOverride := s.params.StaticFrictionOverride()
	dynamicOverride := s.params.DynamicFrictionOverride()
	for _, p := range allPairs {
		normal, depth, collide := collider.Test(&p.a.Collider, &p.b.Collider)
		if !collide {
			continue
		}
		resolvePair(p.a, p.b, normal, depth, restOverride, staticOverride, dynamicOverride)
	}

	// Phase 4: integration, bounds clamp, publish.
	gravityY := s.params.GravityY()
	gravityEnabled := s.params.GravityEnabled()
	method := body.IntegrationMethod(s.params.IntegrationMethod())
	var publishMu sync.Mutex
	var published []*body.Body
	wg = sync.WaitGroup{}
	for _, c := range bodyChunks {
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			var local []*body.Body
			for i := lo; i < hi; i++ {
				b := moving[i]
				b.Integration = method
				b.Integrate(dt, gravityY, gravityEnabled)
				b.ClampToBounds(s.axisLength)
				if b.IsOwnedLocally && !b.IsFixed {
					local = append(local, b)
				}
			}
			if len(local) > 0 {
				publishMu.Lock()
				published = append(published, local...)
				publishMu.Unlock()
			}
		}(c.lo, c.hi)
	}
	wg.Wait()

	if s.broadcast != nil && len(published) > 0 {
		s.broadcast.BroadcastOwned(published)
	}
}

// detect enumerates collision candidates for moving[lo:hi]: moving-moving
// pairs via the grid's 27-cell neighborhood (kept only once per pair,
// i<j), and moving-fixed pairs via a linear scan of the (small) fixed
// list.
func (s *Scheduler) detect(moving, fixed []*body.Body, lo, hi int) []pair {
	var out []pair
	var neighborBuf []int
	for i := lo; i < hi; i++ {
		mi := moving[i]
		neighborBuf = neighborBuf[:0]
		neighborBuf = s.grid.NeighborBodies(mi.Collider.Transform.Position, neighborBuf)
		for _, j := range neighborBuf {
			if j <= i {
				continue
			}
			mj := moving[j]
			if _, _, collide := collider.Test(&mi.Collider, &mj.Collider); collide {
				out = append(out, pair{a: mi, b: mj})
			}
		}
		for _, f := range fixed {
			if _, _, collide := collider.Test(&mi.Collider, &f.Collider); collide {
				out = append(out, pair{a: mi, b: f})
			}
		}
	}
	return out
}

// resolvePair applies 4.B's resolution exactly once per pair, on
// whichever side is locally owned (ResolveAgainst already updates both
// bodies' velocities via their combined inverse mass, so calling it
// twice would double-apply the impulse). A pair with neither side owned
// locally is left for its owning peer(s) to resolve.
func resolvePair(a, b *body.Body, normal math32.Vector3, depth float32, e, muS, muD float32) {
	if a.IsOwnedLocally {
		a.ResolveAgainst(b, normal, depth, e, muS, muD)
		return
	}
	if b.IsOwnedLocally {
		inverted := normal
		inverted.Negate()
		b.ResolveAgainst(a, inverted, depth, e, muS, muD)
	}
}

type chunk struct{ lo, hi int }

// partitionRange splits [0, n) into up to w disjoint, contiguous ranges
// of ceil(n/w) each, the scheme Phase 1/2/4 all share (spec 4.D "Work
// partitioning"). Always returns at least one chunk, even for n==0, so
// the caller's WaitGroup still has the right number of arrivals.
func partitionRange(n, w int) []chunk {
	if w < 1 {
		w = 1
	}
	size := (n + w - 1) / w
	if size < 1 {
		size = 1
	}
	var chunks []chunk
	for lo := 0; lo < n; lo += size {
		hi := lo + size
		if hi > n {
			hi = n
		}
		chunks = append(chunks, chunk{lo, hi})
	}
	if len(chunks) == 0 {
		chunks = append(chunks, chunk{0, 0})
	}
	return chunks
}
