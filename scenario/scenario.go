// Copyright 2016 The G3N Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package scenario loads a declarative YAML description of a scene's
// fixed geometry and spawn list, in the style of the teacher's gui.Builder
// (itself a YAML-driven declarative loader built on gopkg.in/yaml.v2).
package scenario

import (
	"fmt"
	"io/ioutil"

	"github.com/spherenet/sim/body"
	"github.com/spherenet/sim/collider"
	"github.com/spherenet/sim/material"
	"github.com/spherenet/sim/math32"
	"github.com/spherenet/sim/util/logger"
	"gopkg.in/yaml.v2"
)

type vec3Doc struct {
	X float32 `yaml:"x"`
	Y float32 `yaml:"y"`
	Z float32 `yaml:"z"`
}

func (v vec3Doc) vector() math32.Vector3 { return math32.Vector3{X: v.X, Y: v.Y, Z: v.Z} }

type eulerDoc struct {
	Roll  float32 `yaml:"roll"`
	Pitch float32 `yaml:"pitch"`
	Yaw   float32 `yaml:"yaw"`
}

func (e eulerDoc) euler() collider.EulerDeg {
	return collider.EulerDeg{Roll: e.Roll, Pitch: e.Pitch, Yaw: e.Yaw}
}

type fixedDoc struct {
	Kind     string   `yaml:"kind"`
	Position vec3Doc  `yaml:"position"`
	Rotation eulerDoc `yaml:"rotation"`
	Scale    vec3Doc  `yaml:"scale"`
	Material string   `yaml:"material"`
}

type spawnDoc struct {
	Position vec3Doc `yaml:"position"`
	Radius   float32 `yaml:"radius"`
	Mass     float32 `yaml:"mass"`
	Material string  `yaml:"material"`
}

// document mirrors the YAML shape described in SPEC_FULL.md §3.
type document struct {
	ID     uint8      `yaml:"id"`
	Fixed  []fixedDoc `yaml:"fixed"`
	Spawns []spawnDoc `yaml:"spawns"`
}

// Scenario is a parsed, validated scene ready to hand to world.
type Scenario struct {
	ID     uint8
	Fixed  []*body.Body
	Spawns []*SpawnPoint
}

// SpawnPoint is a template for an owned moving sphere world instantiates
// with a freshly allocated ObjectID at load time.
type SpawnPoint struct {
	Position math32.Vector3
	Radius   float32
	Mass     float32
	Material material.Kind
}

// Load reads and validates a scenario document from path. Invalid
// collider kinds are a hard error (a fixed body with no supported shape
// cannot be simulated); invalid material names fall back to
// material.Default with a logged warning (spec: a scenario should still
// load with a cosmetic typo).
func Load(path string) (*Scenario, error) {
	raw, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("scenario: reading %s: %w", path, err)
	}
	var doc document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("scenario: parsing %s: %w", path, err)
	}
	return build(doc)
}

func build(doc document) (*Scenario, error) {
	out := &Scenario{ID: doc.ID}

	for i, f := range doc.Fixed {
		kind, ok := parseKind(f.Kind)
		if !ok {
			return nil, fmt.Errorf("scenario: fixed[%d]: unsupported collider kind %q", i, f.Kind)
		}
		mat := parseMaterial(f.Material)
		transform := collider.Transform{
			Position: f.Position.vector(),
			Rotation: f.Rotation.euler(),
			Scale:    f.Scale.vector(),
		}
		var c collider.Collider
		switch kind {
		case collider.Plane:
			c = collider.NewPlane(transform, math32.Vector3{X: 0, Y: 1, Z: 0})
		case collider.Cube:
			c = collider.NewCube(transform)
		case collider.Cylinder:
			c = collider.NewCylinder(transform)
		case collider.Capsule:
			c = collider.NewCapsule(transform)
		case collider.Sphere:
			c = collider.NewSphere(transform)
		}
		out.Fixed = append(out.Fixed, body.NewFixed(c, mat, body.NewObjectID(0, uint32(i+1))))
	}

	for _, s := range doc.Spawns {
		mass := s.Mass
		if mass <= 0 {
			mass = 1 // unspecified spawn mass defaults to unit mass
		}
		out.Spawns = append(out.Spawns, &SpawnPoint{
			Position: s.Position.vector(),
			Radius:   s.Radius,
			Mass:     mass,
			Material: parseMaterial(s.Material),
		})
	}

	return out, nil
}

func parseKind(name string) (collider.Kind, bool) {
	switch name {
	case "sphere":
		return collider.Sphere, true
	case "plane":
		return collider.Plane, true
	case "cube":
		return collider.Cube, true
	case "cylinder":
		return collider.Cylinder, true
	case "capsule":
		return collider.Capsule, true
	default:
		return 0, false
	}
}

func parseMaterial(name string) material.Kind {
	if name == "" {
		return material.Default
	}
	kind, ok := material.Parse(name)
	if !ok {
		logger.Warn("scenario: unknown material %q, falling back to default", name)
		return material.Default
	}
	return kind
}
