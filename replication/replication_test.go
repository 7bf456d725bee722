package replication

import (
	"net"
	"testing"
	"time"

	"github.com/spherenet/sim/body"
	"github.com/spherenet/sim/collider"
	"github.com/spherenet/sim/material"
	"github.com/spherenet/sim/math32"
	"github.com/spherenet/sim/netpeer"
	"github.com/spherenet/sim/params"
	"github.com/spherenet/sim/wire"
)

func newSphereAt(id body.ObjectID, owner uint8, owned bool, pos math32.Vector3) *body.Body {
	transform := collider.Transform{Position: pos, Scale: math32.Vector3{X: 0.3, Y: 0.3, Z: 0.3}}
	b := body.NewSphere(transform, 1, material.Default, owner, id)
	b.IsOwnedLocally = owned
	return b
}

func TestHandleObjectUpdateDiscardsLocalOwner(t *testing.T) {
	shared := params.NewShared(-9.81, 125, 30, 60)
	r := New(nil, netpeer.NewTable(), shared, 2)
	target := newSphereAt(body.NewObjectID(2, 1), 2, true, math32.Vector3{})
	r.SetBodies([]*body.Body{target})

	r.HandleObjectUpdate(wire.ObjectUpdate{
		ObjectID:    uint32(target.ObjectID),
		OwnerPeerID: 2,
		Position:    math32.Vector3{X: 9, Y: 9, Z: 9},
	}, 1.0)

	if target.Collider.Transform.Position.X == 9 {
		t.Error("an ObjectUpdate whose owner is the local peer must be discarded")
	}
}

func TestHandleObjectUpdateAppliesRemoteOwner(t *testing.T) {
	shared := params.NewShared(-9.81, 125, 30, 60)
	r := New(nil, netpeer.NewTable(), shared, 2)
	target := newSphereAt(body.NewObjectID(5, 1), 5, false, math32.Vector3{})
	r.SetBodies([]*body.Body{target})

	r.HandleObjectUpdate(wire.ObjectUpdate{
		ObjectID:    uint32(target.ObjectID),
		OwnerPeerID: 5,
		Position:    math32.Vector3{X: 9, Y: 9, Z: 9},
		Scale:       math32.Vector3{X: 0.3, Y: 0.3, Z: 0.3},
	}, 1.0)

	if target.Collider.Transform.Position.X != 9 {
		t.Errorf("expected remote update to apply, position = %+v", target.Collider.Transform.Position)
	}
}

func TestHandleObjectUpdateDropsUnknownID(t *testing.T) {
	shared := params.NewShared(-9.81, 125, 30, 60)
	r := New(nil, netpeer.NewTable(), shared, 2)
	r.SetBodies(nil)
	// Must not panic on an id with no matching body.
	r.HandleObjectUpdate(wire.ObjectUpdate{ObjectID: 0xFFFFFF, OwnerPeerID: 9}, 1.0)
}

func TestHandleGlobalStateOverwritesWithoutMerge(t *testing.T) {
	shared := params.NewShared(-9.81, 125, 30, 60)
	shared.SetPaused(false)
	r := New(nil, netpeer.NewTable(), shared, 0)

	r.HandleGlobalState(wire.GlobalState{
		Paused: true, GravityEnabled: false, GravityY: -1,
		Elasticity: 0.5, StaticFriction: 0.6, DynamicFriction: 0.4,
		TargetSimHz: 90, TargetNetHz: 20,
	})

	if !shared.Paused() || shared.GravityEnabled() || shared.GravityY() != -1 {
		t.Error("expected inbound GlobalState to overwrite every carried parameter")
	}
	if shared.TargetSimHz() != 90 || shared.TargetNetHz() != 20 {
		t.Error("expected rate knobs to be overwritten too")
	}
}

type fakeReloader struct {
	calls []uint8
}

func (f *fakeReloader) ReloadScenario(id uint8) { f.calls = append(f.calls, id) }

func TestHandleScenarioChangeIsNoOpWhenSameScenario(t *testing.T) {
	shared := params.NewShared(-9.81, 125, 30, 60)
	r := New(nil, netpeer.NewTable(), shared, 0)
	r.SetScenarioID(3)
	reloader := &fakeReloader{}
	r.SetReloader(reloader)

	r.HandleScenarioChange(wire.ScenarioChange{ScenarioID: 3})

	if len(reloader.calls) != 0 {
		t.Error("a ScenarioChange matching the current scenario must be a no-op")
	}
}

func TestHandleScenarioChangeForwardsWhenDifferent(t *testing.T) {
	shared := params.NewShared(-9.81, 125, 30, 60)
	r := New(nil, netpeer.NewTable(), shared, 0)
	r.SetScenarioID(1)
	reloader := &fakeReloader{}
	r.SetReloader(reloader)

	r.HandleScenarioChange(wire.ScenarioChange{ScenarioID: 2})

	if len(reloader.calls) != 1 || reloader.calls[0] != 2 {
		t.Errorf("expected reloader to be called with scenario 2, got %+v", reloader.calls)
	}
}

func TestBroadcastOwnedSkipsRemoteBodiesAndSendsToEveryPeer(t *testing.T) {
	server, err := netpeer.Bind(0, 1)
	if err != nil {
		t.Fatalf("bind server: %v", err)
	}
	defer server.Close()
	sender, err := netpeer.Bind(0, 1)
	if err != nil {
		t.Fatalf("bind sender: %v", err)
	}
	defer sender.Close()

	table := netpeer.NewTable()
	table.Register(server.LocalPeerID, &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: server.LocalPort})

	shared := params.NewShared(-9.81, 125, 30, 60)
	r := New(sender, table, shared, sender.LocalPeerID)

	owned := newSphereAt(body.NewObjectID(sender.LocalPeerID, 1), sender.LocalPeerID, true, math32.Vector3{X: 1, Y: 2, Z: 3})
	remote := newSphereAt(body.NewObjectID(9, 1), 9, false, math32.Vector3{})
	r.BroadcastOwned([]*body.Body{owned, remote})

	buf := make([]byte, wire.MaxDatagramSize)
	n, _, err := server.ReadFrom(buf, time.Second)
	if err != nil {
		t.Fatalf("expected to receive one ObjectUpdate: %v", err)
	}
	msg, err := wire.Decode(buf[:n])
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	got, ok := msg.Body.(wire.ObjectUpdate)
	if !ok {
		t.Fatalf("expected ObjectUpdate, got %T", msg.Body)
	}
	if got.ObjectID != uint32(owned.ObjectID) {
		t.Errorf("expected the owned body's update, got object id %d", got.ObjectID)
	}

	if _, _, err := server.ReadFrom(buf, 50*time.Millisecond); err == nil {
		t.Error("expected exactly one ObjectUpdate, a second datagram arrived (remote body should not broadcast)")
	}
}
