// Copyright 2016 The G3N Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package netpeer

import (
	"context"
	"net"
	"time"

	"github.com/spherenet/sim/util/logger"
	"github.com/spherenet/sim/wire"
)

// readTimeout bounds how long ReceiveLoop blocks on one read before
// re-checking ctx, so shutdown never waits longer than this for a quiet
// socket.
const readTimeout = 50 * time.Millisecond

// Dispatcher receives every non-PeerAnnounce message the receive loop
// decodes. PeerAnnounce is handled internally by netpeer because it
// drives the peer table and re-announce behavior.
type Dispatcher interface {
	HandleGlobalState(wire.GlobalState)
	HandleObjectUpdate(update wire.ObjectUpdate, nowSecs float64)
	HandleScenarioChange(wire.ScenarioChange)
}

// Announce broadcasts a PeerAnnounce to every candidate port in the
// base-port range, on 255.255.255.255.
func (s *Socket) Announce() {
	msg := wire.Message{
		TimestampMs: uint64(time.Now().UnixMilli()),
		Body:        wire.PeerAnnounce{PeerID: s.LocalPeerID, Port: uint16(s.LocalPort)},
	}
	buf, err := wire.Encode(msg)
	if err != nil {
		logger.Error("netpeer: failed to encode PeerAnnounce: %v", err)
		return
	}
	for _, port := range s.BroadcastPorts() {
		addr := &net.UDPAddr{IP: net.IPv4bcast, Port: port}
		if err := s.WriteTo(buf, addr); err != nil {
			logger.Warn("netpeer: announce to port %d failed: %v", port, err)
		}
	}
}

// ReceiveLoop blocks on the socket until ctx is canceled, decoding each
// datagram and dispatching it by tag. Malformed datagrams and unknown
// tags are dropped silently (spec 4.E/7); PeerAnnounce updates the peer
// table and triggers a re-announce the first time a peer is seen.
func ReceiveLoop(ctx context.Context, s *Socket, table *Table, dispatcher Dispatcher) {
	buf := make([]byte, wire.MaxDatagramSize)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		n, addr, err := s.ReadFrom(buf, readTimeout)
		if err != nil {
			if IsTimeout(err) {
				continue
			}
			if ctx.Err() != nil {
				return
			}
			logger.Warn("netpeer: read error: %v", err)
			continue
		}

		msg, err := wire.Decode(buf[:n])
		if err != nil {
			continue // malformed datagram: drop silently
		}

		switch body := msg.Body.(type) {
		case wire.PeerAnnounce:
			if body.PeerID == s.LocalPeerID {
				continue
			}
			peerAddr := &net.UDPAddr{IP: addr.IP, Port: int(body.Port)}
			if table.Register(body.PeerID, peerAddr) {
				logger.Info("netpeer: discovered peer %d at %s", body.PeerID, peerAddr)
				s.Announce()
			}
		case wire.GlobalState:
			dispatcher.HandleGlobalState(body)
		case wire.ObjectUpdate:
			dispatcher.HandleObjectUpdate(body, float64(msg.TimestampMs)/1000.0)
		case wire.ScenarioChange:
			dispatcher.HandleScenarioChange(body)
		}
	}
}
