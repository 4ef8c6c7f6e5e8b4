// Package resolve computes the effective parameters of a tunnel from its
// sparse configuration, the override state of a running tunnel, and the
// structural defaults of each tunnel type.
//
// Resolution follows a three-tier precedence for local endpoints:
//
//	override state → explicit configuration → cross defaulting
//
// where "cross defaulting" borrows the remote endpoint when the local one
// is unspecified (and vice versa for remote endpoints), so that the common
// case of "same port on both ends" needs only one field in the config.
// Remote endpoints never consult override state: a tunnel's remote side
// cannot be overridden locally.
package resolve

import (
	"fmt"

	"github.com/death/ssh-tunnels/internal/model"
	"github.com/death/ssh-tunnels/internal/state"
	"github.com/death/ssh-tunnels/internal/util"
)

// ConflictKind identifies which pair of mutually exclusive fields a
// configuration sets.
type ConflictKind string

const (
	ConflictLocal  ConflictKind = "local"
	ConflictRemote ConflictKind = "remote"
)

// ConfigError reports a tunnel configuration that sets both the port and
// the socket form of an endpoint.
type ConfigError struct {
	Tunnel string
	Kind   ConflictKind
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("tunnel %q: %s_port and %s_socket are mutually exclusive", e.Tunnel, e.Kind, e.Kind)
}

// Validate rejects configurations that set mutually exclusive endpoint
// fields. It inspects the raw configuration, never resolved values;
// resolution's cross defaulting would mask the conflict.
func Validate(cfg model.TunnelConfig) error {
	if cfg.LocalPort != nil && cfg.LocalSocket != "" {
		return &ConfigError{Tunnel: cfg.Name, Kind: ConflictLocal}
	}
	if cfg.RemotePort != nil && cfg.RemoteSocket != "" {
		return &ConfigError{Tunnel: cfg.Name, Kind: ConflictRemote}
	}
	return nil
}

// Resolve produces the fully defaulted view of cfg. overrides may be nil,
// in which case only configuration and structural defaults apply.
// Resolve has no side effects and never mutates the store.
func Resolve(cfg model.TunnelConfig, overrides *state.Store) model.ResolvedTunnel {
	r := model.ResolvedTunnel{
		Name:  cfg.Name,
		Type:  cfg.EffectiveType(),
		Login: cfg.Login,
		Host:  util.DefaultString(cfg.Host, "localhost"),
	}

	r.LocalPort, r.LocalSocket = resolveLocal(cfg, overrides)
	r.RemotePort, r.RemoteSocket = resolveRemote(cfg)
	return r
}

// resolveLocal applies the full three-tier precedence. An override entry,
// when present, captures the local endpoint the running tunnel actually
// uses and replaces both static local fields wholesale.
func resolveLocal(cfg model.TunnelConfig, overrides *state.Store) (int, string) {
	if overrides != nil {
		if e, ok := overrides.Get(cfg.Name); ok {
			return e.Port, e.Socket
		}
	}
	if cfg.LocalPort != nil {
		return *cfg.LocalPort, ""
	}
	if cfg.LocalSocket != "" {
		return 0, cfg.LocalSocket
	}
	// Neither local field is set: mirror the remote endpoint.
	if cfg.RemotePort != nil {
		return *cfg.RemotePort, ""
	}
	return 0, cfg.RemoteSocket
}

// resolveRemote mirrors resolveLocal but never consults override state.
func resolveRemote(cfg model.TunnelConfig) (int, string) {
	if cfg.RemotePort != nil {
		return *cfg.RemotePort, ""
	}
	if cfg.RemoteSocket != "" {
		return 0, cfg.RemoteSocket
	}
	if cfg.LocalPort != nil {
		return *cfg.LocalPort, ""
	}
	return 0, cfg.LocalSocket
}
