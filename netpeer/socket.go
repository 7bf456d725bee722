// Copyright 2016 The G3N Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package netpeer

import (
	"errors"
	"fmt"
	"net"
	"sync/atomic"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/spherenet/sim/util/logger"
)

// Socket owns the local UDP endpoint a peer uses for discovery and
// replication traffic.
type Socket struct {
	conn        *net.UDPConn
	LocalPeerID uint8
	LocalPort   int
	basePort    int
	numPeers    int
	recvCount   atomic.Uint64 // bumped on every receive, read by the stats monitor goroutine
}

// Bind tries BASE_PORT+i for i in [0, numPeers) in order, taking the
// first port it can claim. The bound port minus basePort becomes the
// local peer id (spec 4.F / 6). Bind failures other than "address in
// use" are fatal, as is exhausting every candidate port.
func Bind(basePort, numPeers int) (*Socket, error) {
	for i := 0; i < numPeers; i++ {
		port := basePort + i
		conn, err := net.ListenUDP("udp4", &net.UDPAddr{Port: port})
		if err == nil {
			if err := enableBroadcast(conn); err != nil {
				conn.Close()
				return nil, fmt.Errorf("netpeer: enabling broadcast on port %d: %w", port, err)
			}
			localPort := conn.LocalAddr().(*net.UDPAddr).Port
			logger.Info("netpeer: bound local peer id %d on port %d", i, localPort)
			return &Socket{conn: conn, LocalPeerID: uint8(i), LocalPort: localPort, basePort: basePort, numPeers: numPeers}, nil
		}
		if !isAddrInUse(err) {
			return nil, fmt.Errorf("netpeer: fatal bind error on port %d: %w", port, err)
		}
	}
	return nil, fmt.Errorf("netpeer: all %d candidate ports in [%d, %d) are taken", numPeers, basePort, basePort+numPeers)
}

func isAddrInUse(err error) bool {
	return errors.Is(err, syscall.EADDRINUSE)
}

// enableBroadcast sets SO_BROADCAST on the socket so sends to
// 255.255.255.255 are permitted. Plain net.UDPConn writes to a broadcast
// address fail with EACCES on most POSIX stacks without this option.
func enableBroadcast(conn *net.UDPConn) error {
	raw, err := conn.SyscallConn()
	if err != nil {
		return err
	}
	var sockErr error
	err = raw.Control(func(fd uintptr) {
		sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_BROADCAST, 1)
	})
	if err != nil {
		return err
	}
	return sockErr
}

// Close releases the socket.
func (s *Socket) Close() error { return s.conn.Close() }

// BroadcastPorts returns every base-port-range port, used as the
// destination list for discovery announces (spec 4.F: broadcast to every
// candidate port, not just known peers).
func (s *Socket) BroadcastPorts() []int {
	ports := make([]int, s.numPeers)
	for i := range ports {
		ports[i] = s.basePort + i
	}
	return ports
}

// WriteTo sends buf to addr.
func (s *Socket) WriteTo(buf []byte, addr *net.UDPAddr) error {
	_, err := s.conn.WriteToUDP(buf, addr)
	return err
}

// ReadFrom blocks for up to timeout waiting for one datagram, returning
// the payload and sender address. A short timeout lets the receive loop
// poll a stop flag between reads without busy-waiting (spec 5).
func (s *Socket) ReadFrom(buf []byte, timeout time.Duration) (int, *net.UDPAddr, error) {
	s.conn.SetReadDeadline(time.Now().Add(timeout))
	n, addr, err := s.conn.ReadFromUDP(buf)
	if err == nil {
		s.recvCount.Add(1)
	}
	return n, addr, err
}

// IsTimeout reports whether err is a read deadline expiring, as opposed
// to a real socket error.
func IsTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// RecvCount returns the number of datagrams received since bind, read by
// the stats monitor goroutine to publish actual-hz once per second.
func (s *Socket) RecvCount() uint64 { return s.recvCount.Load() }
