// Package state holds the in-memory override endpoints for running tunnels.
//
// When a tunnel is started, the local endpoint actually used (which may be
// an ad-hoc port rather than the configured one) is recorded here so that
// later resolutions report the endpoint the tunnel is really bound to.
// Entries are removed when the tunnel is stopped and the whole store is
// lost when the process exits; the authoritative tunnel state lives in
// the external ssh client, not here.
package state

import "sync"

// Endpoint is a local endpoint override: exactly one of Port or Socket
// is populated.
type Endpoint struct {
	Port   int
	Socket string
}

// IsZero reports whether the endpoint carries no value.
func (e Endpoint) IsZero() bool {
	return e.Port == 0 && e.Socket == ""
}

// Store is a mutex-guarded map of tunnel name to override endpoint.
// The zero value is not usable; use NewStore. The sshclient executor is
// the only writer; everything else reads through the resolver.
type Store struct {
	mu      sync.Mutex
	entries map[string]Endpoint
}

// NewStore creates an empty override store.
func NewStore() *Store {
	return &Store{entries: make(map[string]Endpoint)}
}

// Get returns the override endpoint for name, if one is recorded.
func (s *Store) Get(name string) (Endpoint, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[name]
	return e, ok
}

// Set records the override endpoint for name, replacing any previous entry.
func (s *Store) Set(name string, e Endpoint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[name] = e
}

// Delete removes the override entry for name, if present.
func (s *Store) Delete(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, name)
}

// Len returns the number of recorded overrides.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
