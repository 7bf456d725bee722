// Copyright 2016 The G3N Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package netpeer implements UDP broadcast peer discovery and the peer
// table every replicated object's destination list is drawn from.
package netpeer

import (
	"net"
	"sync"
)

// Peer is a single known remote participant.
type Peer struct {
	ID   uint8
	Addr *net.UDPAddr
}

// Table is the set of known remote peers, keyed by peer id. Safe for
// concurrent use; held only during register/enumerate (spec 5).
type Table struct {
	mu    sync.Mutex
	peers map[uint8]*Peer
}

// NewTable returns an empty peer table.
func NewTable() *Table {
	return &Table{peers: make(map[uint8]*Peer)}
}

// Register adds or updates a peer, returning true if this is the first
// time peerID has been seen.
func (t *Table) Register(peerID uint8, addr *net.UDPAddr) (isNew bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, known := t.peers[peerID]
	t.peers[peerID] = &Peer{ID: peerID, Addr: addr}
	return !known
}

// Peers returns a snapshot of every known peer.
func (t *Table) Peers() []*Peer {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*Peer, 0, len(t.peers))
	for _, p := range t.peers {
		out = append(out, p)
	}
	return out
}

// Get looks up a peer by id.
func (t *Table) Get(peerID uint8) (*Peer, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.peers[peerID]
	return p, ok
}
