// Copyright 2016 The G3N Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package params holds the process-wide physics knobs. Every field is
// independently atomic; readers may observe different fields updated out
// of order relative to each other, which is acceptable because no
// cross-field consistency is required within a single tick.
package params

import (
	"math"
	"sync/atomic"
)

// Shared is the set of globally visible simulation knobs.
type Shared struct {
	paused         atomic.Bool
	gravityEnabled atomic.Bool
	gravityY       atomic.Uint32 // float32 bits

	restitutionOverride     atomic.Uint32 // float32 bits; negative => use material table
	staticFrictionOverride  atomic.Uint32
	dynamicFrictionOverride atomic.Uint32

	targetSimHz atomic.Uint32 // float32 bits
	targetNetHz atomic.Uint32
	targetGfxHz atomic.Uint32

	integrationMethod atomic.Uint32
}

// NewShared returns parameters initialized to the given defaults.
func NewShared(gravityY float32, simHz, netHz, gfxHz float32) *Shared {
	s := &Shared{}
	s.gravityEnabled.Store(true)
	s.SetGravityY(gravityY)
	s.SetRestitutionOverride(-1)
	s.SetStaticFrictionOverride(-1)
	s.SetDynamicFrictionOverride(-1)
	s.SetTargetSimHz(simHz)
	s.SetTargetNetHz(netHz)
	s.SetTargetGfxHz(gfxHz)
	return s
}

func loadFloat(a *atomic.Uint32) float32  { return math.Float32frombits(a.Load()) }
func storeFloat(a *atomic.Uint32, v float32) { a.Store(math.Float32bits(v)) }

func (s *Shared) Paused() bool        { return s.paused.Load() }
func (s *Shared) SetPaused(v bool)    { s.paused.Store(v) }
func (s *Shared) GravityEnabled() bool     { return s.gravityEnabled.Load() }
func (s *Shared) SetGravityEnabled(v bool) { s.gravityEnabled.Store(v) }
func (s *Shared) GravityY() float32        { return loadFloat(&s.gravityY) }
func (s *Shared) SetGravityY(v float32)    { storeFloat(&s.gravityY, v) }

func (s *Shared) RestitutionOverride() float32     { return loadFloat(&s.restitutionOverride) }
func (s *Shared) SetRestitutionOverride(v float32) { storeFloat(&s.restitutionOverride, v) }
func (s *Shared) StaticFrictionOverride() float32     { return loadFloat(&s.staticFrictionOverride) }
func (s *Shared) SetStaticFrictionOverride(v float32) { storeFloat(&s.staticFrictionOverride, v) }
func (s *Shared) DynamicFrictionOverride() float32     { return loadFloat(&s.dynamicFrictionOverride) }
func (s *Shared) SetDynamicFrictionOverride(v float32) { storeFloat(&s.dynamicFrictionOverride, v) }

func (s *Shared) TargetSimHz() float32     { return loadFloat(&s.targetSimHz) }
func (s *Shared) SetTargetSimHz(v float32) { storeFloat(&s.targetSimHz, v) }
func (s *Shared) TargetNetHz() float32     { return loadFloat(&s.targetNetHz) }
func (s *Shared) SetTargetNetHz(v float32) { storeFloat(&s.targetNetHz, v) }
func (s *Shared) TargetGfxHz() float32     { return loadFloat(&s.targetGfxHz) }
func (s *Shared) SetTargetGfxHz(v float32) { storeFloat(&s.targetGfxHz, v) }

// IntegrationMethod returns the globally selected integrator. The zero
// value (0) is SemiImplicitEuler; callers in package body share this
// numbering (body.SemiImplicitEuler == 0, body.Midpoint == 1, body.RK4 == 2).
func (s *Shared) IntegrationMethod() uint8 { return uint8(s.integrationMethod.Load()) }
func (s *Shared) SetIntegrationMethod(m uint8) { s.integrationMethod.Store(uint32(m)) }
