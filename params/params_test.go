package params

import (
	"sync"
	"testing"
)

func TestDefaults(t *testing.T) {
	s := NewShared(-9.81, 125, 30, 60)
	if !s.GravityEnabled() {
		t.Error("gravity should default to enabled")
	}
	if s.GravityY() != -9.81 {
		t.Errorf("gravityY = %v, want -9.81", s.GravityY())
	}
	if s.RestitutionOverride() >= 0 {
		t.Error("restitution override should default to the sentinel (use table)")
	}
}

func TestOverridesAreReadNotWrittenBack(t *testing.T) {
	s := NewShared(-9.81, 125, 30, 60)
	s.SetRestitutionOverride(0.75)
	if s.RestitutionOverride() != 0.75 {
		t.Errorf("override = %v, want 0.75", s.RestitutionOverride())
	}
	// Reading it again must not mutate it; only an explicit Set should.
	for i := 0; i < 3; i++ {
		if s.RestitutionOverride() != 0.75 {
			t.Fatal("override changed without an explicit Set")
		}
	}
}

func TestConcurrentAccessIsRace_Free(t *testing.T) {
	s := NewShared(-9.81, 125, 30, 60)
	var wg sync.WaitGroup
	wg.Add(3)
	go func() { defer wg.Done(); for i := 0; i < 1000; i++ { s.SetPaused(i%2 == 0) } }()
	go func() { defer wg.Done(); for i := 0; i < 1000; i++ { _ = s.Paused() } }()
	go func() { defer wg.Done(); for i := 0; i < 1000; i++ { s.SetGravityY(float32(i)) } }()
	wg.Wait()
}
