package netpeer

import (
	"net"
	"sync"
	"testing"
)

func TestRegisterReportsFirstSighting(t *testing.T) {
	table := NewTable()
	addr := &net.UDPAddr{IP: net.ParseIP("10.0.0.5"), Port: 9001}

	if isNew := table.Register(1, addr); !isNew {
		t.Error("first registration of a peer id should report isNew=true")
	}
	if isNew := table.Register(1, addr); isNew {
		t.Error("second registration of the same peer id should report isNew=false")
	}
}

func TestRegisterUpdatesAddress(t *testing.T) {
	table := NewTable()
	first := &net.UDPAddr{IP: net.ParseIP("10.0.0.5"), Port: 9001}
	second := &net.UDPAddr{IP: net.ParseIP("10.0.0.9"), Port: 9002}

	table.Register(1, first)
	table.Register(1, second)

	got, ok := table.Get(1)
	if !ok {
		t.Fatal("expected peer 1 to be known")
	}
	if !got.Addr.IP.Equal(second.IP) || got.Addr.Port != second.Port {
		t.Errorf("expected latest address %v, got %v", second, got.Addr)
	}
}

func TestGetUnknownPeer(t *testing.T) {
	table := NewTable()
	if _, ok := table.Get(42); ok {
		t.Error("expected unknown peer id to report ok=false")
	}
}

func TestPeersSnapshotIsStable(t *testing.T) {
	table := NewTable()
	table.Register(1, &net.UDPAddr{Port: 1})
	table.Register(2, &net.UDPAddr{Port: 2})

	snap := table.Peers()
	if len(snap) != 2 {
		t.Fatalf("expected 2 peers, got %d", len(snap))
	}

	table.Register(3, &net.UDPAddr{Port: 3})
	if len(snap) != 2 {
		t.Error("earlier snapshot must not observe later registrations")
	}
}

func TestConcurrentRegisterIsRaceFree(t *testing.T) {
	table := NewTable()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(id uint8) {
			defer wg.Done()
			table.Register(id, &net.UDPAddr{Port: int(id)})
		}(uint8(i % 8))
	}
	wg.Wait()
	if len(table.Peers()) != 8 {
		t.Errorf("expected 8 distinct peer ids, got %d", len(table.Peers()))
	}
}
