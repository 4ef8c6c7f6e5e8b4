package state

import (
	"sync"
	"testing"
)

func TestStoreLifecycle(t *testing.T) {
	s := NewStore()

	if _, ok := s.Get("db"); ok {
		t.Fatal("empty store should have no entries")
	}

	s.Set("db", Endpoint{Port: 1235})
	ep, ok := s.Get("db")
	if !ok || ep.Port != 1235 || ep.Socket != "" {
		t.Fatalf("unexpected entry %+v ok=%v", ep, ok)
	}

	// Set replaces wholesale: a socket entry leaves no stale port behind.
	s.Set("db", Endpoint{Socket: "/tmp/a"})
	ep, _ = s.Get("db")
	if ep.Port != 0 || ep.Socket != "/tmp/a" {
		t.Fatalf("replacement left stale fields: %+v", ep)
	}

	s.Delete("db")
	if _, ok := s.Get("db"); ok {
		t.Fatal("entry should be gone after Delete")
	}
	// Deleting a missing entry is a no-op.
	s.Delete("db")

	if s.Len() != 0 {
		t.Fatalf("expected empty store, got %d", s.Len())
	}
}

func TestEndpointIsZero(t *testing.T) {
	if !(Endpoint{}).IsZero() {
		t.Fatal("zero endpoint should report IsZero")
	}
	if (Endpoint{Port: 1}).IsZero() || (Endpoint{Socket: "/tmp/a"}).IsZero() {
		t.Fatal("populated endpoint should not report IsZero")
	}
}

func TestStoreConcurrentAccess(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.Set("db", Endpoint{Port: 1000 + n})
				s.Get("db")
				s.Delete("db")
			}
		}(i)
	}
	wg.Wait()
}
