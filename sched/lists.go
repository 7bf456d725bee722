// Copyright 2016 The G3N Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package sched implements the four-phase barrier-synchronized physics
// tick (spec 4.D): grid rebuild, broad-phase detection, single-threaded
// resolution, and integration.
package sched

import (
	"sync"

	"github.com/spherenet/sim/body"
)

// Lists holds the moving and fixed body sets shared between the main
// thread (spawn, scenario load) and the scheduler's snapshot step. A
// single reader-writer lock guards both slices; it is never held across
// a tick's four phases (spec 5).
type Lists struct {
	mu     sync.RWMutex
	moving []*body.Body
	fixed  []*body.Body
}

// NewLists returns an empty list pair.
func NewLists() *Lists {
	return &Lists{}
}

// Snapshot returns the current moving/fixed slices under a read lock.
// The returned slices alias live pointers but not the backing array, so
// later Reset/Spawn calls never mutate a snapshot already handed out
// (spec 4.D phase 0).
func (l *Lists) Snapshot() (moving, fixed []*body.Body) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	moving = make([]*body.Body, len(l.moving))
	copy(moving, l.moving)
	fixed = make([]*body.Body, len(l.fixed))
	copy(fixed, l.fixed)
	return moving, fixed
}

// Reset replaces both lists wholesale, used by scenario load/teardown.
func (l *Lists) Reset(moving, fixed []*body.Body) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.moving = moving
	l.fixed = fixed
}

// Spawn appends a single moving body. The scheduler's tick loop calls it
// between ticks, never concurrently with a running tick (spec 4.D
// "Spawning").
func (l *Lists) Spawn(b *body.Body) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.moving = append(l.moving, b)
}

// Len reports the current moving/fixed counts.
func (l *Lists) Len() (moving, fixed int) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.moving), len(l.fixed)
}

// SpawnQueue is the MPSC queue spawn requests arrive on; the scheduler's
// tick loop goroutine (not the caller's) drains it wholesale before each
// tick and inserts under Lists' exclusive lock, so workers never observe
// a mid-tick mutation.
type SpawnQueue struct {
	mu      sync.Mutex
	pending []*body.Body
}

// NewSpawnQueue returns an empty queue.
func NewSpawnQueue() *SpawnQueue {
	return &SpawnQueue{}
}

// Enqueue adds a body to be inserted before the next tick. Safe to call
// from any goroutine (network receive, GUI/CLI commands).
func (q *SpawnQueue) Enqueue(b *body.Body) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = append(q.pending, b)
}

// Drain removes and returns every pending spawn request.
func (q *SpawnQueue) Drain() []*body.Body {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return nil
	}
	out := q.pending
	q.pending = nil
	return out
}
