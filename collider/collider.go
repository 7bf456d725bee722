// Copyright 2016 The G3N Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package collider

import "github.com/spherenet/sim/math32"

// Kind tags which variant a Collider holds.
type Kind uint8

const (
	Sphere Kind = iota
	Plane
	Cube
	Cylinder
	Capsule
)

func (k Kind) String() string {
	switch k {
	case Sphere:
		return "sphere"
	case Plane:
		return "plane"
	case Cube:
		return "cube"
	case Cylinder:
		return "cylinder"
	case Capsule:
		return "capsule"
	default:
		return "unknown"
	}
}

// Collider is a tagged variant over the five supported shapes, each
// carrying its own local-to-world Transform. Local-normal is only
// meaningful for Plane; the other shapes derive their extents from Scale.
type Collider struct {
	Kind      Kind
	Transform Transform

	// LocalNormal is the Plane's normal in local space before rotation.
	// Unused by every other Kind.
	LocalNormal math32.Vector3
}

// NewSphere builds a sphere collider; radius is read from Transform.Scale.X.
func NewSphere(t Transform) Collider {
	return Collider{Kind: Sphere, Transform: t}
}

// NewPlane builds a plane collider with the given local-space normal.
func NewPlane(t Transform, normal math32.Vector3) Collider {
	return Collider{Kind: Plane, Transform: t, LocalNormal: normal}
}

// NewCube builds an axis-aligned cube collider; half-extents are
// Transform.Scale/2.
func NewCube(t Transform) Collider {
	return Collider{Kind: Cube, Transform: t}
}

// NewCylinder builds a cylinder collider; radius is Scale.X, half-height
// is Scale.Y, axis runs along the rotated local Y axis.
func NewCylinder(t Transform) Collider {
	return Collider{Kind: Cylinder, Transform: t}
}

// NewCapsule builds a capsule collider with the same radius/half-height
// derivation as Cylinder.
func NewCapsule(t Transform) Collider {
	return Collider{Kind: Capsule, Transform: t}
}

// Radius returns the sphere radius. Only valid for Kind == Sphere.
func (c *Collider) Radius() float32 { return c.Transform.Scale.X }

// HalfExtents returns the cube's half-extents in world units (ignoring
// rotation: the cube is treated as axis-aligned, per spec 4.A). Only
// valid for Kind == Cube.
func (c *Collider) HalfExtents() math32.Vector3 {
	s := c.Transform.Scale
	return math32.Vector3{X: s.X / 2, Y: s.Y / 2, Z: s.Z / 2}
}

// AxisRadiusHalfHeight returns the world-space axis direction (unit),
// radius and half-height for Cylinder and Capsule colliders.
func (c *Collider) AxisRadiusHalfHeight() (axis math32.Vector3, radius, halfHeight float32) {
	q := c.Transform.Rotation.Quaternion()
	local := math32.Vector3{X: 0, Y: 1, Z: 0}
	axis = *local.ApplyQuaternion(&q)
	return axis, c.Transform.Scale.X, c.Transform.Scale.Y
}

// PlaneNormal returns the world-space (unit) plane normal. Only valid for
// Kind == Plane.
func (c *Collider) PlaneNormal() math32.Vector3 {
	q := c.Transform.Rotation.Quaternion()
	n := c.LocalNormal
	out := n.Clone().ApplyQuaternion(&q)
	out.Normalize()
	return *out
}

// Center returns the collider's world-space position.
func (c *Collider) Center() math32.Vector3 { return c.Transform.Position }
