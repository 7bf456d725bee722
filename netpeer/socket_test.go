package netpeer

import (
	"net"
	"testing"
	"time"
)

func TestBindAssignsSequentialPeerIDs(t *testing.T) {
	a, err := Bind(0, 4) // port 0: let the OS pick, numPeers acts only as a retry budget here
	if err != nil {
		t.Fatalf("bind: %v", err)
	}
	defer a.Close()
	if a.LocalPeerID != 0 {
		t.Errorf("expected first bind to claim peer id 0, got %d", a.LocalPeerID)
	}
}

func TestBindFallsBackOnPortInUse(t *testing.T) {
	first, err := net.ListenUDP("udp4", &net.UDPAddr{Port: 0})
	if err != nil {
		t.Fatal(err)
	}
	defer first.Close()
	basePort := first.LocalAddr().(*net.UDPAddr).Port

	sock, err := Bind(basePort, 2)
	if err != nil {
		t.Fatalf("bind: %v", err)
	}
	defer sock.Close()
	if sock.LocalPeerID != 1 {
		t.Errorf("expected bind to skip the occupied port and claim peer id 1, got %d", sock.LocalPeerID)
	}
}

func TestBroadcastPortsSpansRange(t *testing.T) {
	sock, err := Bind(0, 3)
	if err != nil {
		t.Fatalf("bind: %v", err)
	}
	defer sock.Close()
	ports := sock.BroadcastPorts()
	if len(ports) != 3 {
		t.Fatalf("expected 3 candidate ports, got %d", len(ports))
	}
}

func TestWriteToAndReadFromLoopback(t *testing.T) {
	server, err := Bind(0, 1)
	if err != nil {
		t.Fatalf("bind server: %v", err)
	}
	defer server.Close()

	client, err := Bind(0, 1)
	if err != nil {
		t.Fatalf("bind client: %v", err)
	}
	defer client.Close()

	dst := &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: server.LocalPort}
	if err := client.WriteTo([]byte("hello"), dst); err != nil {
		t.Fatalf("write: %v", err)
	}

	buf := make([]byte, 64)
	n, _, err := server.ReadFrom(buf, time.Second)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(buf[:n]) != "hello" {
		t.Errorf("expected %q, got %q", "hello", string(buf[:n]))
	}
	if server.RecvCount() != 1 {
		t.Errorf("expected RecvCount 1, got %d", server.RecvCount())
	}
}

func TestReadFromTimesOutOnQuietSocket(t *testing.T) {
	sock, err := Bind(0, 1)
	if err != nil {
		t.Fatalf("bind: %v", err)
	}
	defer sock.Close()

	buf := make([]byte, 64)
	_, _, err = sock.ReadFrom(buf, 20*time.Millisecond)
	if err == nil {
		t.Fatal("expected a timeout error on a quiet socket")
	}
	if !IsTimeout(err) {
		t.Errorf("expected IsTimeout(err) to be true, got %v", err)
	}
}
