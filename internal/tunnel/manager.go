// Package tunnel coordinates tunnel definitions, resolution, and the
// control-socket lifecycle operations that drive the external ssh client.
package tunnel

import (
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/death/ssh-tunnels/internal/events"
	"github.com/death/ssh-tunnels/internal/history"
	"github.com/death/ssh-tunnels/internal/model"
	"github.com/death/ssh-tunnels/internal/resolve"
	"github.com/death/ssh-tunnels/internal/state"
)

// Executor abstracts the control-socket operations for testing. The
// production implementation is sshclient.Client.
type Executor interface {
	Run(r model.ResolvedTunnel) error
	Check(r model.ResolvedTunnel) bool
	Kill(r model.ResolvedTunnel) error
}

// Manager owns the configured tunnel list and drives lifecycle operations
// through an Executor. Run and Kill are serialized so concurrent callers
// cannot race control-socket operations against the same socket path.
//
// Manager never caches whether a tunnel is running: the authoritative
// state lives in the external ssh client and is rediscovered via Check.
type Manager struct {
	mu        sync.Mutex
	tunnels   []model.TunnelConfig
	exec      Executor
	overrides *state.Store
	journal   *events.Store // nil disables journaling
}

// NewManager creates a manager over the given ordered tunnel list.
func NewManager(tunnels []model.TunnelConfig, exec Executor, overrides *state.Store) *Manager {
	return &Manager{tunnels: tunnels, exec: exec, overrides: overrides}
}

// WithJournal enables lifecycle event journaling.
func (m *Manager) WithJournal(j *events.Store) *Manager {
	m.journal = j
	return m
}

// SetTunnels replaces the configured tunnel list, preserving order.
func (m *Manager) SetTunnels(tunnels []model.TunnelConfig) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tunnels = tunnels
}

// Find returns the configuration for name.
func (m *Manager) Find(name string) (model.TunnelConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tunnels {
		if t.Name == name {
			return t, nil
		}
	}
	return model.TunnelConfig{}, fmt.Errorf("tunnel not found: %s", name)
}

// Run validates and starts the named tunnel. A positive adhocPort runs
// the tunnel on that local port for this invocation, without touching the
// stored configuration: the port is substituted into a copy of the
// definition and recorded in the override store by the executor, so later
// resolutions keep reporting it until the tunnel is stopped.
func (m *Manager) Run(name string, adhocPort int) error {
	cfg, err := m.Find(name)
	if err != nil {
		return err
	}
	if err := resolve.Validate(cfg); err != nil {
		return err
	}

	overrides := m.overrides
	if adhocPort > 0 {
		cfg.LocalPort = &adhocPort
		cfg.LocalSocket = ""
		// The ad-hoc port replaces any previously recorded endpoint.
		overrides = nil
	}
	r := resolve.Resolve(cfg, overrides)

	m.mu.Lock()
	err = m.exec.Run(r)
	m.mu.Unlock()
	if err != nil {
		return err
	}

	m.record(events.Event{Tunnel: name, Verb: model.VerbRun, Message: r.LocalEndpoint()})
	if err := history.Touch(name); err != nil {
		slog.Warn("failed to record tunnel history", "tunnel", name, "error", err)
	}
	return nil
}

// Check reports whether the named tunnel's master connection is alive.
func (m *Manager) Check(name string) (bool, error) {
	cfg, err := m.Find(name)
	if err != nil {
		return false, err
	}
	return m.exec.Check(resolve.Resolve(cfg, m.overrides)), nil
}

// Kill stops the named tunnel. The override entry is cleared even when
// the ssh client reports failure, so a subsequent Run starts clean.
func (m *Manager) Kill(name string) error {
	cfg, err := m.Find(name)
	if err != nil {
		return err
	}
	r := resolve.Resolve(cfg, m.overrides)

	m.mu.Lock()
	err = m.exec.Kill(r)
	m.mu.Unlock()

	m.record(events.Event{Tunnel: name, Verb: model.VerbKill})
	return err
}

// Rerun stops and restarts the named tunnel. The kill error is ignored:
// the usual reason to rerun is a dead or wedged master whose kill cannot
// succeed anyway.
func (m *Manager) Rerun(name string) error {
	if err := m.Kill(name); err != nil {
		slog.Debug("kill before rerun failed", "tunnel", name, "error", err)
	}
	return m.Run(name, 0)
}

// Statuses resolves and checks every configured tunnel, in configuration
// order. Invalid tunnels are included with Err set so listings can show
// them; their control socket is not queried.
func (m *Manager) Statuses() []model.TunnelStatus {
	m.mu.Lock()
	tunnels := append([]model.TunnelConfig(nil), m.tunnels...)
	m.mu.Unlock()

	out := make([]model.TunnelStatus, 0, len(tunnels))
	for _, cfg := range tunnels {
		st := model.TunnelStatus{Config: cfg}
		if err := resolve.Validate(cfg); err != nil {
			st.Err = err
			out = append(out, st)
			continue
		}
		st.Resolved = resolve.Resolve(cfg, m.overrides)
		st.Running = m.exec.Check(st.Resolved)
		out = append(out, st)
	}
	return out
}

// FindTunnelFor returns the first configured tunnel whose resolved host
// equals host and whose resolved local port equals service, where service
// is a port number in decimal form. Non-numeric service names never
// match, sockets are never matched, and shell-managed tunnels are
// excluded: they have no discoverable local endpoint. Ties are broken by
// configuration order.
func (m *Manager) FindTunnelFor(host, service string) (model.TunnelConfig, bool) {
	port, err := strconv.Atoi(service)
	if err != nil || port <= 0 {
		return model.TunnelConfig{}, false
	}

	m.mu.Lock()
	tunnels := append([]model.TunnelConfig(nil), m.tunnels...)
	m.mu.Unlock()

	for _, cfg := range tunnels {
		if cfg.EffectiveType() == model.TypeShell {
			continue
		}
		r := resolve.Resolve(cfg, m.overrides)
		if r.Host == host && r.LocalPort == port {
			return cfg, true
		}
	}
	return model.TunnelConfig{}, false
}

// EnsureRunning starts the tunnel mapped to (host, service) if one is
// configured and not already running. It reports whether a tunnel was
// started.
func (m *Manager) EnsureRunning(host, service string) (bool, error) {
	cfg, ok := m.FindTunnelFor(host, service)
	if !ok {
		return false, nil
	}
	if m.exec.Check(resolve.Resolve(cfg, m.overrides)) {
		return false, nil
	}
	if err := m.Run(cfg.Name, 0); err != nil {
		return false, err
	}
	return true, nil
}

// ConnectHook returns a callback for the hosting environment to invoke
// with (host, service) immediately before opening a network connection.
// Failures are logged, not returned: a connection attempt should proceed
// even when its tunnel cannot be started.
func (m *Manager) ConnectHook() func(host, service string) {
	return func(host, service string) {
		started, err := m.EnsureRunning(host, service)
		if err != nil {
			slog.Warn("auto-start failed", "host", host, "service", service, "error", err)
			return
		}
		if started {
			slog.Info("auto-started tunnel", "host", host, "service", service)
		}
	}
}

func (m *Manager) record(evt events.Event) {
	if m.journal == nil {
		return
	}
	if err := m.journal.Append(evt); err != nil {
		slog.Warn("failed to journal tunnel event", "tunnel", evt.Tunnel, "error", err)
	}
}
