// Copyright 2016 The G3N Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package collider

import "github.com/spherenet/sim/math32"

// degenerateEpsilon is the distance below which a separation vector is
// considered too close to zero to normalize; the test falls back to an
// arbitrary normal instead.
const degenerateEpsilon = 1e-5

// overlapEpsilon is added to overlap predicates so that exactly-tangential
// contacts are not spuriously rejected.
const overlapEpsilon = 1e-4

var fallbackNormalX = math32.Vector3{X: 1, Y: 0, Z: 0}
var fallbackNormalY = math32.Vector3{X: 0, Y: 1, Z: 0}

// Test runs the narrow-phase intersection test between a and b. The
// returned normal points from b toward a, and depth is the (non-negative)
// overlap along that normal. Unsupported shape pairs (anything not
// involving at least one Sphere) report no collision.
func Test(a, b *Collider) (normal math32.Vector3, depth float32, collide bool) {
	switch {
	case a.Kind == Sphere && b.Kind == Sphere:
		return sphereSphere(a, b)
	case a.Kind == Sphere && b.Kind == Plane:
		return spherePlane(a, b)
	case a.Kind == Sphere && b.Kind == Cube:
		return sphereCube(a, b)
	case a.Kind == Sphere && b.Kind == Cylinder:
		return sphereAxis(a, b)
	case a.Kind == Sphere && b.Kind == Capsule:
		return sphereAxis(a, b)
	case b.Kind == Sphere && a.Kind != Sphere:
		n, d, ok := Test(b, a)
		return *n.Clone().Negate(), d, ok
	default:
		return math32.Vector3{}, 0, false
	}
}

func sphereSphere(a, b *Collider) (math32.Vector3, float32, bool) {
	centerA, centerB := a.Center(), b.Center()
	diff := centerA
	diff.Sub(&centerB)
	dist := diff.Length()
	rsum := a.Radius() + b.Radius()

	if dist < degenerateEpsilon {
		return fallbackNormalX, rsum, true
	}
	depth := rsum - dist
	if depth < -overlapEpsilon {
		return math32.Vector3{}, 0, false
	}
	diff.MultiplyScalar(1 / dist)
	if depth < 0 {
		depth = 0
	}
	return diff, depth, true
}

func spherePlane(a, b *Collider) (math32.Vector3, float32, bool) {
	n := b.PlaneNormal()
	planePoint := b.Center()
	center := a.Center()

	toCenter := center
	toCenter.Sub(&planePoint)
	dist := toCenter.Dot(&n)

	depth := a.Radius() - dist
	if depth < -overlapEpsilon {
		return math32.Vector3{}, 0, false
	}
	if depth < 0 {
		depth = 0
	}
	return n, depth, true
}

func sphereCube(a, b *Collider) (math32.Vector3, float32, bool) {
	he := b.HalfExtents()
	center := b.Center()
	sphereCenter := a.Center()

	min := math32.Vector3{X: center.X - he.X, Y: center.Y - he.Y, Z: center.Z - he.Z}
	max := math32.Vector3{X: center.X + he.X, Y: center.Y + he.Y, Z: center.Z + he.Z}

	clamped := math32.Vector3{
		X: math32.Clamp(sphereCenter.X, min.X, max.X),
		Y: math32.Clamp(sphereCenter.Y, min.Y, max.Y),
		Z: math32.Clamp(sphereCenter.Z, min.Z, max.Z),
	}

	diff := sphereCenter
	diff.Sub(&clamped)
	dist := diff.Length()

	if dist < degenerateEpsilon {
		return fallbackNormalX, a.Radius(), true
	}
	depth := a.Radius() - dist
	if depth < -overlapEpsilon {
		return math32.Vector3{}, 0, false
	}
	diff.MultiplyScalar(1 / dist)
	if depth < 0 {
		depth = 0
	}
	return diff, depth, true
}

// sphereAxis implements both Sphere-Cylinder and Sphere-Capsule: project
// the sphere center onto the shape's central axis (clamped to its
// half-height), then run a radial distance test against the combined
// radius. Spec 4.A specifies the identical algorithm and identical
// worked examples for both shapes.
func sphereAxis(a, b *Collider) (math32.Vector3, float32, bool) {
	axis, radius, halfHeight := b.AxisRadiusHalfHeight()
	axisCenter := b.Center()
	sphereCenter := a.Center()

	rel := sphereCenter
	rel.Sub(&axisCenter)
	along := rel.Dot(&axis)
	along = math32.Clamp(along, -halfHeight, halfHeight)

	closest := axis
	closest.MultiplyScalar(along)
	closest.Add(&axisCenter)

	radial := sphereCenter
	radial.Sub(&closest)
	dist := radial.Length()

	rsum := a.Radius() + radius
	if dist < degenerateEpsilon {
		return fallbackNormalY, rsum, true
	}
	depth := rsum - dist
	if depth < -overlapEpsilon {
		return math32.Vector3{}, 0, false
	}
	radial.MultiplyScalar(1 / dist)
	if depth < 0 {
		depth = 0
	}
	return radial, depth, true
}
