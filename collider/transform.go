// Copyright 2016 The G3N Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package collider implements the fixed set of collider shapes (sphere,
// plane, cube, cylinder, capsule) and the analytic pairwise narrow-phase
// tests between them.
package collider

import "github.com/spherenet/sim/math32"

// EulerDeg stores a rotation as roll/pitch/yaw in degrees, applied in a
// Y-up world. Roll rotates about Z, pitch about X, yaw about Y.
type EulerDeg struct {
	Roll, Pitch, Yaw float32
}

// Quaternion converts the Euler angles (degrees) into a world-space
// rotation quaternion.
func (e EulerDeg) Quaternion() math32.Quaternion {
	radians := math32.Vector3{
		X: math32.DegToRad(e.Pitch),
		Y: math32.DegToRad(e.Yaw),
		Z: math32.DegToRad(e.Roll),
	}
	var q math32.Quaternion
	q.SetFromEuler(&radians)
	return q
}

// Add returns e + delta, used to integrate an angular velocity into a
// rotation over one timestep.
func (e EulerDeg) Add(deltaRoll, deltaPitch, deltaYaw float32) EulerDeg {
	return EulerDeg{
		Roll:  e.Roll + deltaRoll,
		Pitch: e.Pitch + deltaPitch,
		Yaw:   e.Yaw + deltaYaw,
	}
}

// Transform is the local-to-world placement shared by every collider:
// world = Scale * Rotate * Translate.
type Transform struct {
	Position math32.Vector3
	Rotation EulerDeg
	Scale    math32.Vector3
}

// WorldMatrix composes the transform into a 4x4 matrix.
func (t Transform) WorldMatrix() math32.Matrix4 {
	q := t.Rotation.Quaternion()
	var m math32.Matrix4
	m.Compose(&t.Position, &q, &t.Scale)
	return m
}
