// Copyright 2016 The G3N Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package world

import (
	"context"
	"fmt"
	"sync"

	"github.com/spherenet/sim/body"
	"github.com/spherenet/sim/collider"
	"github.com/spherenet/sim/grid"
	"github.com/spherenet/sim/math32"
	"github.com/spherenet/sim/netpeer"
	"github.com/spherenet/sim/params"
	"github.com/spherenet/sim/replication"
	"github.com/spherenet/sim/scenario"
	"github.com/spherenet/sim/sched"
	"github.com/spherenet/sim/util/logger"
)

// World owns every piece of process state a peer needs: the shared body
// lists, broad-phase grid, physics scheduler, shared parameters, network
// socket and peer table, and the replication layer tying them together.
// Spec Design Note 9 calls for an explicit context object in place of
// package-level singletons; World is that object.
type World struct {
	cfg Config

	lists      *sched.Lists
	grid       *grid.Grid
	params     *params.Shared
	sock       *netpeer.Socket
	table      *netpeer.Table
	replicator *replication.Replicator
	scheduler  *sched.Scheduler
	spawnQueue *sched.SpawnQueue

	mu            sync.Mutex
	scenarioPaths map[uint8]string
	scenarioID    uint8

	ctx    context.Context
	cancel context.CancelFunc
}

// New binds the local socket and assembles every component, but does not
// start the scheduler or receive loop — call Start for that once the
// world's initial scenario (if any) has been loaded.
func New(cfg Config) (*World, error) {
	if cfg.NumPeers < 1 {
		cfg.NumPeers = 1
	}
	sock, err := netpeer.Bind(cfg.BasePort, cfg.NumPeers)
	if err != nil {
		return nil, fmt.Errorf("world: %w", err)
	}
	table := netpeer.NewTable()
	shared := params.NewShared(cfg.GravityY, cfg.DefaultSimHz, cfg.DefaultNetHz, cfg.DefaultGfxHz)
	lists := sched.NewLists()
	g := grid.New(cfg.AxisLength, cfg.CellSize)
	spawnQueue := sched.NewSpawnQueue()
	replicator := replication.New(sock, table, shared, sock.LocalPeerID)

	workers := cfg.NumWorkers
	if workers <= 0 {
		workers = sched.DefaultWorkerCount(cfg.ReservedCores)
	}
	scheduler := sched.New(lists, g, shared, replicator, spawnQueue, cfg.AxisLength, workers)

	w := &World{
		cfg:           cfg,
		lists:         lists,
		grid:          g,
		params:        shared,
		sock:          sock,
		table:         table,
		replicator:    replicator,
		scheduler:     scheduler,
		spawnQueue:    spawnQueue,
		scenarioPaths: make(map[uint8]string),
	}
	replicator.SetReloader(w)
	return w, nil
}

// LocalPeerID returns the id this process claimed at bind time.
func (w *World) LocalPeerID() uint8 { return w.sock.LocalPeerID }

// Params returns the shared parameter block (4.H).
func (w *World) Params() *params.Shared { return w.params }

// Table returns the peer table (4.F).
func (w *World) Table() *netpeer.Table { return w.table }

// Lists exposes the moving/fixed body lists, e.g. for a stats monitor.
func (w *World) Lists() *sched.Lists { return w.lists }

// RecvCount returns the number of datagrams received since bind, for a
// stats monitor to derive an actual network receive rate (spec 4.F).
func (w *World) RecvCount() uint64 { return w.sock.RecvCount() }

// RegisterScenario associates a scenario id with an on-disk path, so a
// later LoadScenario(id) or an inbound ScenarioChange(id) can find it.
func (w *World) RegisterScenario(id uint8, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.scenarioPaths[id] = path
}

// Start launches the network receive loop and the physics scheduler.
// ctx's cancellation stops the receive loop; Stop stops the scheduler.
func (w *World) Start(ctx context.Context) {
	loopCtx, cancel := context.WithCancel(ctx)
	w.ctx, w.cancel = loopCtx, cancel
	go netpeer.ReceiveLoop(loopCtx, w.sock, w.table, w.replicator)
	w.sock.Announce()
	w.scheduler.Start()
}

// Stop tears the process down: stops the scheduler (joins within one
// dt), cancels the receive loop, and closes the socket.
func (w *World) Stop() {
	w.scheduler.Stop()
	if w.cancel != nil {
		w.cancel()
	}
	w.sock.Close()
}

// LoadScenario loads and installs scenario id locally, then broadcasts a
// ScenarioChange so every peer does the same (spec 4.G "Scenario
// change").
func (w *World) LoadScenario(id uint8) error {
	doc, err := w.loadRegistered(id)
	if err != nil {
		return err
	}
	w.installScenario(doc)
	w.replicator.BroadcastScenarioChange(id)
	return nil
}

// ReloadScenario implements replication.ScenarioReloader. It is invoked
// only when the inbound ScenarioChange names a scenario different from
// the one currently loaded (the no-op case is filtered by the
// replicator itself); it must not re-broadcast, since the sender already
// did.
func (w *World) ReloadScenario(id uint8) {
	doc, err := w.loadRegistered(id)
	if err != nil {
		logger.Error("world: reloading scenario %d: %v", id, err)
		return
	}
	w.installScenario(doc)
}

func (w *World) loadRegistered(id uint8) (*scenario.Scenario, error) {
	w.mu.Lock()
	path, ok := w.scenarioPaths[id]
	w.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("world: no scenario registered for id %d", id)
	}
	return scenario.Load(path)
}

// installScenario tears down the current bodies and rebuilds from doc.
// Every peer loads the identical scenario document, so spawn ownership
// is assigned deterministically (spawn index modulo NumPeers) rather
// than negotiated at runtime: every peer ends up with the same set of
// object ids and the same ownership assignment, letting a peer that does
// not own a given spawn still find it by id when an ObjectUpdate for it
// arrives (spec 4.G "look up the body by object_id").
func (w *World) installScenario(doc *scenario.Scenario) {
	w.mu.Lock()
	w.scenarioID = doc.ID
	w.mu.Unlock()
	w.replicator.SetScenarioID(doc.ID)

	moving := make([]*body.Body, 0, len(doc.Spawns))
	for i, sp := range doc.Spawns {
		moving = append(moving, w.scenarioSpawnBody(sp, i, len(doc.Fixed)))
	}
	w.lists.Reset(moving, doc.Fixed)

	all := make([]*body.Body, 0, len(moving)+len(doc.Fixed))
	all = append(all, moving...)
	all = append(all, doc.Fixed...)
	w.replicator.SetBodies(all)
}

// scenarioSpawnBody builds spawn index's sphere. Fixed bodies take owner 0
// and counters 1..numFixed, so spawn counters start after them and no
// spawn id repeats a fixed body's id.
func (w *World) scenarioSpawnBody(sp *scenario.SpawnPoint, index, numFixed int) *body.Body {
	owner := uint8(index % w.cfg.NumPeers)
	id := body.NewObjectID(owner, uint32(numFixed+index+1))
	transform := collider.Transform{
		Position: sp.Position,
		Scale:    math32.Vector3{X: sp.Radius, Y: sp.Radius, Z: sp.Radius},
	}
	b := body.NewSphere(transform, sp.Mass, sp.Material, owner, id)
	b.IsOwnedLocally = owner == w.sock.LocalPeerID
	return b
}

// RequestSpawn enqueues a locally-owned sphere to be inserted at the
// next tick boundary (spec 4.D "Spawning"). Intended for commands
// originating on this peer (e.g. an interactive "add sphere" action);
// peers that did not also request the same spawn never learn of it,
// since an inbound ObjectUpdate for an unrecognized object id is dropped
// rather than materializing a new remote body (see DESIGN.md).
func (w *World) RequestSpawn(sp *scenario.SpawnPoint, counter uint32) {
	id := body.NewObjectID(w.sock.LocalPeerID, counter)
	transform := collider.Transform{
		Position: sp.Position,
		Scale:    math32.Vector3{X: sp.Radius, Y: sp.Radius, Z: sp.Radius},
	}
	b := body.NewSphere(transform, sp.Mass, sp.Material, w.sock.LocalPeerID, id)
	w.spawnQueue.Enqueue(b)
}
