// Copyright 2016 The G3N Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package body

// ObjectID packs an owning peer id into the high 8 bits and a per-peer
// monotonic counter into the low 24 bits.
type ObjectID uint32

// NewObjectID packs an owner peer id and counter into an ObjectID. The
// counter is masked to 24 bits; callers are expected to never wrap it
// within a single run.
func NewObjectID(ownerPeerID uint8, counter uint32) ObjectID {
	return ObjectID(uint32(ownerPeerID)<<24 | (counter & 0x00FFFFFF))
}

// OwnerPeerID returns the high 8 bits of the id.
func (id ObjectID) OwnerPeerID() uint8 { return uint8(id >> 24) }

// Counter returns the low 24 bits of the id.
func (id ObjectID) Counter() uint32 { return uint32(id) & 0x00FFFFFF }
