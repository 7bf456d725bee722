package world

import (
	"context"
	"io/ioutil"
	"path/filepath"
	"testing"
	"time"
)

func testConfig(t *testing.T, numPeers int) Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.NumPeers = numPeers
	cfg.BasePort = 0 // the first candidate, port 0, makes Bind take an OS-assigned port
	cfg.NumWorkers = 1
	return cfg
}

func writeScenario(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "scene.yaml")
	if err := ioutil.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const twoSpawnScenario = `
id: 1
fixed:
  - kind: plane
    position: {x: 0, y: -3, z: 0}
    scale: {x: 1, y: 1, z: 1}
    material: rubber
spawns:
  - position: {x: -1, y: 2, z: 0}
    radius: 0.2
    mass: 1
    material: wood
  - position: {x: 1, y: 2, z: 0}
    radius: 0.2
    mass: 1
    material: wood
`

func TestNewBindsASocket(t *testing.T) {
	w, err := New(testConfig(t, 1))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.sock.Close()
	if w.LocalPeerID() != 0 {
		t.Errorf("expected sole peer to claim id 0, got %d", w.LocalPeerID())
	}
}

func TestLoadScenarioAssignsDeterministicOwnership(t *testing.T) {
	w, err := New(testConfig(t, 2))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.sock.Close()
	path := writeScenario(t, twoSpawnScenario)
	w.RegisterScenario(1, path)

	if err := w.LoadScenario(1); err != nil {
		t.Fatalf("LoadScenario: %v", err)
	}

	moving, fixed := w.lists.Snapshot()
	if len(moving) != 2 || len(fixed) != 1 {
		t.Fatalf("expected 2 moving + 1 fixed body, got %d/%d", len(moving), len(fixed))
	}
	if moving[0].OwnerPeerID != 0 || !moving[0].IsOwnedLocally {
		t.Errorf("expected spawn 0 to be owned locally by peer 0, got owner=%d local=%v", moving[0].OwnerPeerID, moving[0].IsOwnedLocally)
	}
	if moving[1].OwnerPeerID != 1 || moving[1].IsOwnedLocally {
		t.Errorf("expected spawn 1 to be owned by peer 1 (remote here), got owner=%d local=%v", moving[1].OwnerPeerID, moving[1].IsOwnedLocally)
	}
}

func TestLoadScenarioRecordsScenarioID(t *testing.T) {
	w, err := New(testConfig(t, 1))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.sock.Close()
	path := writeScenario(t, twoSpawnScenario)
	w.RegisterScenario(1, path)

	if err := w.LoadScenario(1); err != nil {
		t.Fatalf("LoadScenario: %v", err)
	}
	if w.replicator.ScenarioID() != 1 {
		t.Errorf("expected replicator to track scenario id 1, got %d", w.replicator.ScenarioID())
	}
}

func TestReloadScenarioViaReplicatorInstallsNewBodies(t *testing.T) {
	w, err := New(testConfig(t, 1))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.sock.Close()
	path := writeScenario(t, twoSpawnScenario)
	w.RegisterScenario(2, path)

	w.ReloadScenario(2) // simulates an inbound ScenarioChange dispatched by the replicator

	moving, _ := w.lists.Snapshot()
	if len(moving) != 2 {
		t.Fatalf("expected ReloadScenario to install 2 moving bodies, got %d", len(moving))
	}
}

func TestStartStopIsJoinable(t *testing.T) {
	w, err := New(testConfig(t, 1))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	w.Start(context.Background())
	time.Sleep(20 * time.Millisecond)

	done := make(chan struct{})
	go func() {
		w.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("World.Stop did not return in time")
	}
}
