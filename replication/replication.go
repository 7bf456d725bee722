// Copyright 2016 The G3N Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package replication broadcasts owned bodies' authoritative state after
// every tick and applies inbound state for bodies owned elsewhere
// (spec 4.G).
package replication

import (
	"sync"
	"time"

	"github.com/spherenet/sim/body"
	"github.com/spherenet/sim/collider"
	"github.com/spherenet/sim/math32"
	"github.com/spherenet/sim/netpeer"
	"github.com/spherenet/sim/params"
	"github.com/spherenet/sim/util/logger"
	"github.com/spherenet/sim/wire"
)

// ScenarioReloader is implemented by world: tearing down current bodies
// and loading a new scenario is a world-level operation, not a
// replication-level one.
type ScenarioReloader interface {
	ReloadScenario(scenarioID uint8)
}

// Replicator wires the netpeer socket and peer table to the set of
// bodies a process simulates, and to the shared parameter block a
// GlobalState message overwrites wholesale.
type Replicator struct {
	sock        *netpeer.Socket
	table       *netpeer.Table
	params      *params.Shared
	localPeerID uint8

	mu         sync.RWMutex
	byID       map[body.ObjectID]*body.Body
	scenarioID uint8
	reloader   ScenarioReloader
}

// New returns a Replicator bound to sock/table/params for localPeerID.
func New(sock *netpeer.Socket, table *netpeer.Table, shared *params.Shared, localPeerID uint8) *Replicator {
	return &Replicator{
		sock:        sock,
		table:       table,
		params:      shared,
		localPeerID: localPeerID,
		byID:        make(map[body.ObjectID]*body.Body),
	}
}

// SetReloader installs the world-level handler HandleScenarioChange
// forwards non-no-op ScenarioChange messages to.
func (r *Replicator) SetReloader(reloader ScenarioReloader) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reloader = reloader
}

// SetBodies replaces the object-id index the replicator dispatches
// inbound updates against. Called by world after every scenario
// (re)load; the index is swapped under the replicator's lock, so a
// concurrent HandleObjectUpdate lookup sees either the old or the new one.
func (r *Replicator) SetBodies(bodies []*body.Body) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID = make(map[body.ObjectID]*body.Body, len(bodies))
	for _, b := range bodies {
		r.byID[b.ObjectID] = b
	}
}

// SetScenarioID records which scenario is currently loaded, so an
// inbound ScenarioChange matching it can be recognized as a no-op.
func (r *Replicator) SetScenarioID(id uint8) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scenarioID = id
}

// ScenarioID returns the currently loaded scenario id.
func (r *Replicator) ScenarioID() uint8 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.scenarioID
}

// BroadcastOwned sends an ObjectUpdate for each owned body to every
// known peer. Called once per tick after Phase 4 integration (spec
// 4.D/4.G); the sim rate is the effective send rate.
func (r *Replicator) BroadcastOwned(owned []*body.Body) {
	peers := r.table.Peers()
	if len(peers) == 0 {
		return
	}
	nowMs := uint64(time.Now().UnixMilli())
	for _, b := range owned {
		if !b.IsOwnedLocally {
			continue
		}
		update := wire.ObjectUpdate{
			ObjectID:    uint32(b.ObjectID),
			Position:    b.Collider.Transform.Position,
			Rotation:    eulerToVector3(b.Collider.Transform.Rotation),
			Velocity:    b.Velocity,
			Scale:       b.Collider.Transform.Scale,
			OwnerPeerID: b.OwnerPeerID,
		}
		buf, err := wire.Encode(wire.Message{TimestampMs: nowMs, Body: update})
		if err != nil {
			logger.Warn("replication: failed to encode ObjectUpdate for body %d: %v", b.ObjectID, err)
			continue
		}
		for _, p := range peers {
			if err := r.sock.WriteTo(buf, p.Addr); err != nil {
				logger.Warn("replication: send to peer %d failed: %v", p.ID, err)
			}
		}
	}
}

// BroadcastGlobalState sends the current shared parameters to every
// known peer. Called whenever a local toggle mutates params.Shared.
func (r *Replicator) BroadcastGlobalState() {
	peers := r.table.Peers()
	if len(peers) == 0 {
		return
	}
	state := wire.GlobalState{
		Paused:          r.params.Paused(),
		GravityEnabled:  r.params.GravityEnabled(),
		GravityY:        r.params.GravityY(),
		Elasticity:      r.params.RestitutionOverride(),
		StaticFriction:  r.params.StaticFrictionOverride(),
		DynamicFriction: r.params.DynamicFrictionOverride(),
		TargetSimHz:     r.params.TargetSimHz(),
		TargetNetHz:     r.params.TargetNetHz(),
	}
	nowMs := uint64(time.Now().UnixMilli())
	buf, err := wire.Encode(wire.Message{TimestampMs: nowMs, Body: state})
	if err != nil {
		logger.Warn("replication: failed to encode GlobalState: %v", err)
		return
	}
	for _, p := range peers {
		if err := r.sock.WriteTo(buf, p.Addr); err != nil {
			logger.Warn("replication: send GlobalState to peer %d failed: %v", p.ID, err)
		}
	}
}

// BroadcastScenarioChange announces a scenario switch to every peer.
func (r *Replicator) BroadcastScenarioChange(scenarioID uint8) {
	peers := r.table.Peers()
	nowMs := uint64(time.Now().UnixMilli())
	buf, err := wire.Encode(wire.Message{TimestampMs: nowMs, Body: wire.ScenarioChange{ScenarioID: scenarioID}})
	if err != nil {
		logger.Warn("replication: failed to encode ScenarioChange: %v", err)
		return
	}
	for _, p := range peers {
		if err := r.sock.WriteTo(buf, p.Addr); err != nil {
			logger.Warn("replication: send ScenarioChange to peer %d failed: %v", p.ID, err)
		}
	}
}

// HandleObjectUpdate implements netpeer.Dispatcher. Updates whose owner
// is the local peer are discarded to prevent feedback loops (spec 4.G);
// updates for unknown object ids are dropped (the scenario has not yet
// caught up with the sender).
func (r *Replicator) HandleObjectUpdate(update wire.ObjectUpdate, nowSecs float64) {
	if update.OwnerPeerID == r.localPeerID {
		return
	}
	r.mu.RLock()
	b, ok := r.byID[body.ObjectID(update.ObjectID)]
	r.mu.RUnlock()
	if !ok {
		return
	}
	b.ApplyRemoteState(update.Position, update.Rotation, update.Velocity, update.Scale, nowSecs)
}

// HandleGlobalState implements netpeer.Dispatcher. Inbound state
// overwrites every parameter the message carries; there is no merge with
// local state. The graphics rate and integration method are not carried
// and keep their local values.
func (r *Replicator) HandleGlobalState(state wire.GlobalState) {
	r.params.SetPaused(state.Paused)
	r.params.SetGravityEnabled(state.GravityEnabled)
	r.params.SetGravityY(state.GravityY)
	r.params.SetRestitutionOverride(state.Elasticity)
	r.params.SetStaticFrictionOverride(state.StaticFriction)
	r.params.SetDynamicFrictionOverride(state.DynamicFriction)
	r.params.SetTargetSimHz(state.TargetSimHz)
	r.params.SetTargetNetHz(state.TargetNetHz)
}

// HandleScenarioChange implements netpeer.Dispatcher. A ScenarioChange
// matching the currently loaded scenario is a no-op (spec 4.G); anything
// else is forwarded to the installed reloader, which is expected to call
// SetScenarioID once the new scenario is live.
func (r *Replicator) HandleScenarioChange(change wire.ScenarioChange) {
	if change.ScenarioID == r.ScenarioID() {
		return
	}
	r.mu.RLock()
	reloader := r.reloader
	r.mu.RUnlock()
	if reloader == nil {
		logger.Warn("replication: ScenarioChange to %d with no reloader installed", change.ScenarioID)
		return
	}
	reloader.ReloadScenario(change.ScenarioID)
}

// eulerToVector3 round-trips collider.EulerDeg through the wire shape,
// the exact inverse of the assignment ApplyRemoteState makes.
func eulerToVector3(e collider.EulerDeg) math32.Vector3 {
	return math32.Vector3{X: e.Pitch, Y: e.Yaw, Z: e.Roll}
}
