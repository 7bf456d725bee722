// Copyright 2016 The G3N Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package grid implements the broad-phase uniform spatial hash over
// moving bodies: a cubic region [-L, L]^3 split into N^3 cells of side
// cellSize = 2L/N.
package grid

import (
	"sync"

	"github.com/spherenet/sim/math32"
)

// Grid is a uniform spatial hash. Clear and Insert are safe to call from
// multiple goroutines provided each goroutine owns a disjoint range of
// cell indices (Clear) or body indices (Insert); Insert additionally
// takes a per-cell lock since body ownership ranges do not imply disjoint
// target cells.
type Grid struct {
	axisLength float32
	cellSize   float32
	N          int

	cells []cell
}

type cell struct {
	mu      sync.Mutex
	indices []int
}

// New builds a grid covering [-axisLength, axisLength]^3 with cells of
// roughly cellSize, rounding the per-axis cell count up so the cells
// always cover the full extent.
func New(axisLength, cellSize float32) *Grid {
	n := int(math32.Ceil((2 * axisLength) / cellSize))
	if n < 1 {
		n = 1
	}
	g := &Grid{
		axisLength: axisLength,
		cellSize:   (2 * axisLength) / float32(n),
		N:          n,
		cells:      make([]cell, n*n*n),
	}
	return g
}

// NumCells returns N^3, the total number of cells.
func (g *Grid) NumCells() int { return len(g.cells) }

// AxisCount returns N, the number of cells along one axis.
func (g *Grid) AxisCount() int { return g.N }

func (g *Grid) coord(pos math32.Vector3) (x, y, z int) {
	toCoord := func(v float32) int {
		c := int((v + g.axisLength) / g.cellSize)
		if c < 0 {
			c = 0
		}
		if c >= g.N {
			c = g.N - 1
		}
		return c
	}
	return toCoord(pos.X), toCoord(pos.Y), toCoord(pos.Z)
}

func (g *Grid) index(x, y, z int) int { return x + y*g.N + z*g.N*g.N }

// ClearRange empties cells [lo, hi), a slice a Phase-1 worker owns
// exclusively for the duration of the clear step.
func (g *Grid) ClearRange(lo, hi int) {
	for i := lo; i < hi; i++ {
		g.cells[i].indices = g.cells[i].indices[:0]
	}
}

// Insert places bodyIdx into the cell containing pos, clamping
// out-of-range coordinates to the nearest edge cell. Safe for concurrent
// callers: insertion into a given cell takes that cell's lock.
func (g *Grid) Insert(bodyIdx int, pos math32.Vector3) {
	x, y, z := g.coord(pos)
	c := &g.cells[g.index(x, y, z)]
	c.mu.Lock()
	c.indices = append(c.indices, bodyIdx)
	c.mu.Unlock()
}

// NeighborBodies appends the body indices found in the 3x3x3 block of
// cells centered on pos to dst, returning the extended slice. Cells
// outside the grid are skipped (the center cell is always in range).
func (g *Grid) NeighborBodies(pos math32.Vector3, dst []int) []int {
	cx, cy, cz := g.coord(pos)
	for dz := -1; dz <= 1; dz++ {
		z := cz + dz
		if z < 0 || z >= g.N {
			continue
		}
		for dy := -1; dy <= 1; dy++ {
			y := cy + dy
			if y < 0 || y >= g.N {
				continue
			}
			for dx := -1; dx <= 1; dx++ {
				x := cx + dx
				if x < 0 || x >= g.N {
					continue
				}
				dst = append(dst, g.cells[g.index(x, y, z)].indices...)
			}
		}
	}
	return dst
}
