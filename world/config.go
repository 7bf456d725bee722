// Copyright 2016 The G3N Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package world assembles every other package into one running peer
// process: the shared body lists, the broad-phase grid, the physics
// scheduler, the shared parameters, the netpeer socket/table, and
// replication — in place of the package-level singletons a single-process
// build could get away with (spec Design Note 9).
package world

// Config is the process-wide configuration cmd/peer builds from flags,
// passed once at startup. No environment variables or on-disk state are
// consulted for process configuration; scenario documents are on-disk by
// design (4.I) but that is separate from Config itself.
type Config struct {
	NumPeers int
	BasePort int

	AxisLength float32
	CellSize   float32

	DefaultSimHz float32
	DefaultNetHz float32
	DefaultGfxHz float32

	ReservedCores int
	NumWorkers    int // 0 means derive from ReservedCores

	GravityY float32
}

// DefaultConfig returns the reference process configuration.
func DefaultConfig() Config {
	return Config{
		NumPeers:      8,
		BasePort:      8888,
		AxisLength:    3,
		CellSize:      0.5,
		DefaultSimHz:  125,
		DefaultNetHz:  30,
		DefaultGfxHz:  60,
		ReservedCores: 3,
		GravityY:      -9.81,
	}
}
