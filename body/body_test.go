package body

import (
	"testing"

	"github.com/spherenet/sim/collider"
	"github.com/spherenet/sim/material"
	"github.com/spherenet/sim/math32"
)

func sphere(mass float32) *Body {
	t := collider.Transform{Scale: math32.Vector3{X: 0.2, Y: 0.2, Z: 0.2}}
	return NewSphere(t, mass, material.Default, 0, NewObjectID(0, 1))
}

func TestZeroGravityZeroVelocityNoMotion(t *testing.T) {
	for _, method := range []IntegrationMethod{SemiImplicitEuler, Midpoint, RK4} {
		b := sphere(1)
		b.Integration = method
		start := b.Collider.Transform.Position
		for i := 0; i < 100; i++ {
			b.Integrate(0.008, 0, false)
		}
		if b.Collider.Transform.Position != start {
			t.Errorf("method %v: position moved without gravity or velocity: %v", method, b.Collider.Transform.Position)
		}
	}
}

func TestSemiImplicitEulerGravity(t *testing.T) {
	b := sphere(1)
	b.Integration = SemiImplicitEuler
	dt := float32(0.008)
	for i := 0; i < 125; i++ {
		b.Integrate(dt, -9.81, true)
	}
	// Linear damping (0.998/step) compounds over 125 steps, so the
	// magnitude settles somewhat below the undamped -9.81 m/s.
	if b.Velocity.Y > -7.0 || b.Velocity.Y < -10.5 {
		t.Errorf("v_y = %v, want roughly -9 (damped from -9.81)", b.Velocity.Y)
	}
	if b.Collider.Transform.Position.Y > -3 || b.Collider.Transform.Position.Y < -7 {
		t.Errorf("y = %v, want roughly -4.6 (damped from -4.9)", b.Collider.Transform.Position.Y)
	}
}

func TestSleepClamp(t *testing.T) {
	b := sphere(1)
	b.Velocity = math32.Vector3{X: 0.001, Y: 0.001, Z: 0}
	b.AngularVelocity = math32.Vector3{X: 0.001, Y: 0, Z: 0}
	b.Integrate(0.008, 0, false)
	if b.Velocity != (math32.Vector3{}) || b.AngularVelocity != (math32.Vector3{}) {
		t.Errorf("expected sleep clamp to zero velocities, got v=%v w=%v", b.Velocity, b.AngularVelocity)
	}
}

func TestClampToBoundsReflectsOutwardVelocity(t *testing.T) {
	b := sphere(1)
	b.Collider.Transform.Position = math32.Vector3{X: 4.95, Y: 0, Z: 0}
	b.Velocity = math32.Vector3{X: 1, Y: 0, Z: 0}
	b.ClampToBounds(5)
	if b.Collider.Transform.Position.X != 4.8 {
		t.Errorf("x = %v, want clamped to 4.8 (L-r)", b.Collider.Transform.Position.X)
	}
	if b.Velocity.X >= 0 {
		t.Errorf("vx = %v, want reflected negative", b.Velocity.X)
	}
}

func TestClampNeverWakesSleepingBody(t *testing.T) {
	b := sphere(1)
	b.Collider.Transform.Position = math32.Vector3{X: 10, Y: 0, Z: 0}
	b.ClampToBounds(5)
	if b.Collider.Transform.Position.X != 10 {
		t.Errorf("sleeping body should not be clamped, got %v", b.Collider.Transform.Position.X)
	}
}

func TestResolveAgainstSkipsTwoFixedBodies(t *testing.T) {
	a := NewFixed(collider.NewSphere(collider.Transform{Scale: math32.Vector3{X: 1, Y: 1, Z: 1}}), material.Default, NewObjectID(0, 1))
	b := NewFixed(collider.NewSphere(collider.Transform{Scale: math32.Vector3{X: 1, Y: 1, Z: 1}}), material.Default, NewObjectID(0, 2))
	a.IsOwnedLocally = true
	before := a.Velocity
	a.ResolveAgainst(b, math32.Vector3{X: 1}, 0.1, -1, -1, -1)
	if a.Velocity != before {
		t.Error("resolving two fixed bodies must not change velocity")
	}
}

func TestResolveAgainstSkippedWhenNotOwned(t *testing.T) {
	a := sphere(1)
	a.IsOwnedLocally = false
	b := sphere(1)
	b.Collider.Transform.Position = math32.Vector3{X: 0.3, Y: 0, Z: 0}
	before := a.Velocity
	a.ResolveAgainst(b, math32.Vector3{X: 1}, 0.1, -1, -1, -1)
	if a.Velocity != before {
		t.Error("non-owned body must not resolve collisions locally")
	}
}

func TestApplyRemoteStateAndSmoothedPosition(t *testing.T) {
	b := sphere(1)
	b.IsOwnedLocally = false
	posAt1 := math32.Vector3{X: 0, Y: 0, Z: 0}
	posAt11 := math32.Vector3{X: 1, Y: 0, Z: 0}
	b.ApplyRemoteState(posAt1, math32.Vector3{}, math32.Vector3{}, math32.Vector3{X: 0.2, Y: 0.2, Z: 0.2}, 1.0)
	b.ApplyRemoteState(posAt11, math32.Vector3{}, math32.Vector3{}, math32.Vector3{X: 0.2, Y: 0.2, Z: 0.2}, 1.1)

	mid := b.SmoothedPosition(1.05, false)
	if mid.X < 0.45 || mid.X > 0.55 {
		t.Errorf("midpoint X = %v, want ~0.5", mid.X)
	}
}

func TestSmoothedPositionBeforeFirstApplyReturnsCurrent(t *testing.T) {
	b := sphere(1)
	got := b.SmoothedPosition(5, false)
	if got != b.CurrRenderPos {
		t.Error("should return curr render pos before any remote state applied")
	}
}

func TestSmoothedPositionExtrapolatesPastLatest(t *testing.T) {
	b := sphere(1)
	b.ApplyRemoteState(math32.Vector3{X: 0}, math32.Vector3{}, math32.Vector3{}, math32.Vector3{X: 0.2, Y: 0.2, Z: 0.2}, 1.0)
	b.ApplyRemoteState(math32.Vector3{X: 1}, math32.Vector3{}, math32.Vector3{}, math32.Vector3{X: 0.2, Y: 0.2, Z: 0.2}, 1.1)
	got := b.SmoothedPosition(1.2, false)
	if got.X < 1.05 {
		t.Errorf("expected extrapolation past X=1, got %v", got.X)
	}
}
