// Copyright 2016 The G3N Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package body implements the kinematic and material state of a simulated
// object: integration, bounds clamping, impulse-based collision
// resolution, and remote-state smoothing for replicated bodies.
package body

import (
	"github.com/spherenet/sim/collider"
	"github.com/spherenet/sim/material"
	"github.com/spherenet/sim/math32"
	"github.com/spherenet/sim/util/logger"
)

// IntegrationMethod selects the numerical integrator Integrate uses.
type IntegrationMethod uint8

const (
	SemiImplicitEuler IntegrationMethod = iota
	Midpoint
	RK4
)

const (
	linearDamping   = 0.998
	angularDamping  = 0.995
	sleepEpsilonSq  = 1e-4
	spinAttenuation = 0.1
	boundsRestitution = -0.4
)

// Body composes a Collider with the physical and replication state a
// simulation tick needs.
type Body struct {
	Collider collider.Collider

	IsFixed    bool
	Mass       float32
	InvMass    float32
	InvInertia float32 // scalar; nonzero only for movable spheres

	Velocity        math32.Vector3
	AngularVelocity math32.Vector3
	Acceleration    math32.Vector3

	Material    material.Kind
	Integration IntegrationMethod

	ObjectID       ObjectID
	OwnerPeerID    uint8
	IsOwnedLocally bool

	// Remote-body interpolation state (4.G).
	PrevRenderPos math32.Vector3
	CurrRenderPos math32.Vector3
	PrevTS        float64
	CurrTS        float64
	everApplied   bool

	WorldMatrix math32.Matrix4

	loggedDegenerate bool
}

// NewSphere builds an owned, movable sphere body.
func NewSphere(t collider.Transform, mass float32, mat material.Kind, ownerPeerID uint8, id ObjectID) *Body {
	b := &Body{
		Collider:       collider.NewSphere(t),
		Mass:           mass,
		Material:       mat,
		OwnerPeerID:    ownerPeerID,
		ObjectID:       id,
		IsOwnedLocally: true,
	}
	b.recomputeMassProperties()
	b.WorldMatrix = t.WorldMatrix()
	return b
}

// NewFixed builds an immovable body of any collider kind.
func NewFixed(c collider.Collider, mat material.Kind, id ObjectID) *Body {
	b := &Body{
		Collider: c,
		IsFixed:  true,
		Material: mat,
		ObjectID: id,
	}
	b.recomputeMassProperties()
	b.WorldMatrix = c.Transform.WorldMatrix()
	return b
}

func (b *Body) recomputeMassProperties() {
	if b.IsFixed || b.Mass <= 0 {
		b.IsFixed = true
		b.Mass = 0
		b.InvMass = 0
		b.InvInertia = 0
		return
	}
	b.InvMass = 1 / b.Mass
	if b.Collider.Kind == collider.Sphere {
		r := b.Collider.Radius()
		inertia := 0.4 * b.Mass * r * r // 2/5 * m * r^2
		if inertia > 0 {
			b.InvInertia = 1 / inertia
		}
	}
}

// Sleeping reports whether the body's motion has settled to exactly zero.
func (b *Body) Sleeping() bool {
	return b.Velocity == math32.Vector3{} && b.AngularVelocity == math32.Vector3{}
}

// Integrate advances the body's kinematic state by dt using the selected
// integration method, under a (possibly disabled) constant gravity on Y.
// Fixed and remote (not locally owned) bodies are never integrated.
func (b *Body) Integrate(dt, gravityY float32, gravityEnabled bool) {
	if b.IsFixed || !b.IsOwnedLocally {
		return
	}
	if b.Collider.Kind != collider.Sphere {
		// Degenerate/unsupported moving collider: skip and log once.
		if !b.loggedDegenerate {
			logger.Warn("skipping integration: body %d has non-sphere moving collider %s", b.ObjectID, b.Collider.Kind)
			b.loggedDegenerate = true
		}
		return
	}

	ay := float32(0)
	if gravityEnabled {
		ay = gravityY
	}
	b.Acceleration = math32.Vector3{X: 0, Y: ay, Z: 0}

	switch b.Integration {
	case Midpoint, RK4:
		// Both reduce to the same constant-acceleration closed form:
		// x += v*dt + 0.5*a*dt^2; v += a*dt. This is RK4's exact limit
		// for a state-independent acceleration, not semi-implicit
		// Euler's formula; see DESIGN.md.
		half := dt * 0.5
		delta := b.Velocity
		delta.MultiplyScalar(dt)
		accelTerm := b.Acceleration
		accelTerm.MultiplyScalar(dt * half)
		delta.Add(&accelTerm)
		b.Collider.Transform.Position.Add(&delta)
		accelDelta := b.Acceleration
		accelDelta.MultiplyScalar(dt)
		b.Velocity.Add(&accelDelta)
	default: // SemiImplicitEuler
		accelDelta := b.Acceleration
		accelDelta.MultiplyScalar(dt)
		b.Velocity.Add(&accelDelta)
		delta := b.Velocity
		delta.MultiplyScalar(dt)
		b.Collider.Transform.Position.Add(&delta)
	}

	b.Velocity.MultiplyScalar(linearDamping)
	b.AngularVelocity.MultiplyScalar(angularDamping)

	if b.Velocity.LengthSq() < sleepEpsilonSq && b.AngularVelocity.LengthSq() < sleepEpsilonSq {
		b.Velocity = math32.Vector3{}
		b.AngularVelocity = math32.Vector3{}
	}

	deltaPitch := math32.RadToDeg(b.AngularVelocity.X*dt) * spinAttenuation
	deltaYaw := math32.RadToDeg(b.AngularVelocity.Y*dt) * spinAttenuation
	deltaRoll := math32.RadToDeg(b.AngularVelocity.Z*dt) * spinAttenuation
	b.Collider.Transform.Rotation = b.Collider.Transform.Rotation.Add(deltaRoll, deltaPitch, deltaYaw)

	b.WorldMatrix = b.Collider.Transform.WorldMatrix()
}

// ClampToBounds confines a sphere body's center to [-L+r, L-r] on every
// axis, reflecting the velocity component with damping when the body was
// outside and still moving outward. Never wakes a sleeping body.
func (b *Body) ClampToBounds(axisLength float32) {
	if b.IsFixed || !b.IsOwnedLocally || b.Collider.Kind != collider.Sphere {
		return
	}
	if b.Sleeping() {
		return
	}
	r := b.Collider.Radius()
	limit := axisLength - r
	pos := &b.Collider.Transform.Position
	vel := &b.Velocity

	clampAxis := func(p *float32, v *float32) {
		if *p > limit {
			*p = limit
			if *v > 0 {
				*v *= boundsRestitution
			}
		} else if *p < -limit {
			*p = -limit
			if *v < 0 {
				*v *= boundsRestitution
			}
		}
	}
	clampAxis(&pos.X, &vel.X)
	clampAxis(&pos.Y, &vel.Y)
	clampAxis(&pos.Z, &vel.Z)
}

// ResolveAgainst runs impulse-based collision resolution between b (self)
// and other, given the contact normal (pointing from other toward b) and
// penetration depth. Skipped entirely when b is not locally owned, when
// both bodies are immovable, or when the combined inverse mass is
// negligible.
func (b *Body) ResolveAgainst(other *Body, normal math32.Vector3, penetration float32, restitutionOverride, staticFrictionOverride, dynamicFrictionOverride float32) {
	if !b.IsOwnedLocally {
		return
	}
	invMassSum := b.InvMass + other.InvMass
	if invMassSum <= 1e-6 {
		return
	}

	relVel := b.Velocity
	relVel.Sub(&other.Velocity)
	vn := relVel.Dot(&normal)
	if vn > 0 {
		return // separating
	}

	e := restitutionOverride
	if e < 0 {
		e = material.Restitution(b.Material, other.Material)
	}
	jn := -(1 + e) * vn / invMassSum

	impulse := normal
	impulse.MultiplyScalar(jn)
	applyLinear(b, other, impulse)

	tangent := relVel
	nComp := normal
	nComp.MultiplyScalar(relVel.Dot(&normal))
	tangent.Sub(&nComp)
	tangentLenSq := tangent.LengthSq()

	var frictionVec math32.Vector3
	if tangentLenSq >= 1e-6 {
		tangent.MultiplyScalar(1 / math32.Sqrt(tangentLenSq))

		muS := staticFrictionOverride
		if muS < 0 {
			muS = material.StaticFriction(b.Material, other.Material)
		}
		muD := dynamicFrictionOverride
		if muD < 0 {
			muD = material.DynamicFriction(b.Material, other.Material)
		}

		jt := -relVel.Dot(&tangent) / invMassSum
		if math32.Abs(jt) < muS*jn {
			frictionVec = tangent
			frictionVec.MultiplyScalar(jt)
		} else {
			frictionVec = tangent
			frictionVec.MultiplyScalar(-muD * jn)
		}
		applyLinear(b, other, frictionVec)
		applyFrictionTorque(b, &normal, &frictionVec)
		negNormal := normal
		negNormal.Negate()
		negFriction := frictionVec
		negFriction.Negate()
		applyFrictionTorque(other, &negNormal, &negFriction)
	}

	const slop = 0.01
	const percent = 0.4
	correctionMag := penetration - slop
	if correctionMag < 0 {
		correctionMag = 0
	}
	correctionMag = correctionMag / invMassSum * percent
	correction := normal
	correction.MultiplyScalar(correctionMag)

	if b.InvMass > 0 {
		delta := correction
		delta.MultiplyScalar(b.InvMass)
		b.Collider.Transform.Position.Add(&delta)
	}
	if other.InvMass > 0 {
		delta := correction
		delta.MultiplyScalar(-other.InvMass)
		other.Collider.Transform.Position.Add(&delta)
	}
}

func applyLinear(a, b *Body, impulse math32.Vector3) {
	if a.InvMass > 0 {
		delta := impulse
		delta.MultiplyScalar(a.InvMass)
		a.Velocity.Add(&delta)
	}
	if b.InvMass > 0 {
		delta := impulse
		delta.MultiplyScalar(-b.InvMass)
		b.Velocity.Add(&delta)
	}
}

// applyFrictionTorque spins a sphere from a tangential friction impulse
// applied at its surface contact point, r = -normal*radius, where normal
// points from the contact partner toward b.
func applyFrictionTorque(b *Body, normal *math32.Vector3, frictionImpulse *math32.Vector3) {
	if b.InvInertia == 0 || b.Collider.Kind != collider.Sphere {
		return
	}
	r := *normal
	r.MultiplyScalar(-b.Collider.Radius())
	torque := r
	torque.Cross(frictionImpulse)
	torque.MultiplyScalar(b.InvInertia)
	b.AngularVelocity.Add(&torque)
}

// ApplyRemoteState is called when an ObjectUpdate arrives for a body this
// peer does not own. It shifts curr -> prev and records the new sample
// for SmoothedPosition to interpolate/extrapolate between.
func (b *Body) ApplyRemoteState(pos, rot math32.Vector3, vel math32.Vector3, scale math32.Vector3, nowSecs float64) {
	if !b.everApplied {
		b.PrevRenderPos = pos
		b.PrevTS = nowSecs
	} else {
		b.PrevRenderPos = b.CurrRenderPos
		b.PrevTS = b.CurrTS
	}
	b.CurrRenderPos = pos
	b.CurrTS = nowSecs
	b.everApplied = true

	b.Collider.Transform.Position = pos
	b.Collider.Transform.Rotation = collider.EulerDeg{Roll: rot.Z, Pitch: rot.X, Yaw: rot.Y}
	b.Collider.Transform.Scale = scale
	b.Velocity = vel
	b.WorldMatrix = b.Collider.Transform.WorldMatrix()
}

// SmoothedPosition returns the position to render a remote body at, given
// the render clock's current time. When paused, or before any remote
// update has been applied, it returns CurrRenderPos unchanged (the zero
// vector until the first ApplyRemoteState).
func (b *Body) SmoothedPosition(renderTime float64, paused bool) math32.Vector3 {
	if !b.everApplied || paused {
		return b.CurrRenderPos
	}
	if renderTime < b.PrevTS {
		return b.PrevRenderPos
	}
	if renderTime <= b.CurrTS {
		span := b.CurrTS - b.PrevTS
		if span <= 0 {
			return b.CurrRenderPos
		}
		alpha := float32((renderTime - b.PrevTS) / span)
		out := b.PrevRenderPos
		out.Lerp(&b.CurrRenderPos, alpha)
		return out
	}
	// Extrapolate past the latest sample using the inferred velocity.
	span := b.CurrTS - b.PrevTS
	if span <= 0 {
		return b.CurrRenderPos
	}
	velocity := b.CurrRenderPos
	velocity.Sub(&b.PrevRenderPos)
	velocity.MultiplyScalar(1 / float32(span))
	overshoot := float32(renderTime - b.CurrTS)
	extra := velocity
	extra.MultiplyScalar(overshoot)
	out := b.CurrRenderPos
	out.Add(&extra)
	return out
}
