// Copyright 2016 The G3N Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package math32

import "testing"

func TestMatrix4ComposeDecomposeRoundTrips(t *testing.T) {
	pos := &Vector3{X: 1, Y: -2, Z: 3}
	quat := NewQuaternion(0, 0, 0, 1)
	quat.SetFromAxisAngle(&Vector3{X: 0, Y: 1, Z: 0}, Pi/2)
	scale := &Vector3{X: 2, Y: 2, Z: 2}

	m := NewMatrix4()
	m.Compose(pos, quat, scale)

	var gotPos, gotScale Vector3
	var gotQuat Quaternion
	m.Decompose(&gotPos, &gotQuat, &gotScale)

	if !gotPos.Equals(pos) {
		t.Errorf("position: got %v, want %v", gotPos, pos)
	}
	if !gotScale.AlmostEquals(scale, 1e-4) {
		t.Errorf("scale: got %v, want %v", gotScale, scale)
	}
	// Decompose rebuilds the quaternion from the scaled matrix, so it
	// matches the input only up to float32 rounding.
	if Abs(gotQuat.X-quat.X) > 1e-6 || Abs(gotQuat.Y-quat.Y) > 1e-6 || Abs(gotQuat.Z-quat.Z) > 1e-6 || Abs(gotQuat.W-quat.W) > 1e-6 {
		t.Errorf("quaternion: got %v, want %v", gotQuat, quat)
	}
}

func TestMatrix4ComposeIdentityRotationIsPureScaleAndTranslate(t *testing.T) {
	pos := &Vector3{X: 0.5, Y: 0, Z: -1.5}
	quat := NewQuaternion(0, 0, 0, 1)
	scale := &Vector3{X: 1, Y: 3, Z: 0.5}

	m := NewMatrix4()
	m.Compose(pos, quat, scale)

	want := NewMatrix4().Set(
		1, 0, 0, 0.5,
		0, 3, 0, 0,
		0, 0, 0.5, -1.5,
		0, 0, 0, 1,
	)
	for i := range m {
		if Abs(m[i]-want[i]) > 1e-5 {
			t.Fatalf("Compose mismatch at index %d: got %f want %f", i, m[i], want[i])
		}
	}
}

func TestMatrix4DecomposeDetectsNegativeDeterminantAsFlippedScale(t *testing.T) {
	m := NewMatrix4().MakeScale(-1, 1, 1)

	var pos, scale Vector3
	var quat Quaternion
	m.Decompose(&pos, &quat, &scale)

	if scale.X >= 0 {
		t.Errorf("expected a negative X scale to survive decomposition, got %v", scale)
	}
}

func TestMatrix4IdentityIsComposeNeutralElement(t *testing.T) {
	m := NewMatrix4().Identity()
	var pos, scale Vector3
	var quat Quaternion
	m.Decompose(&pos, &quat, &scale)

	if !pos.Equals(&Vector3{0, 0, 0}) {
		t.Errorf("expected zero position, got %v", pos)
	}
	if !scale.Equals(&Vector3{1, 1, 1}) {
		t.Errorf("expected unit scale, got %v", scale)
	}
}
