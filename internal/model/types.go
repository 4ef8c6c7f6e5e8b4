package model

import (
	"encoding/json"
	"strconv"
)

// TunnelType classifies how a tunnel forwards traffic.
type TunnelType string

const (
	// TypeLocal forwards a local endpoint to a remote endpoint (-L).
	TypeLocal TunnelType = "local"
	// TypeRemote forwards a remote endpoint back to a local endpoint (-R).
	TypeRemote TunnelType = "remote"
	// TypeDynamic opens a SOCKS proxy on a local port (-D).
	TypeDynamic TunnelType = "dynamic"
	// TypeShell relies on forwarding configured in the ssh client's own
	// config for the login alias; we only manage the connection itself.
	TypeShell TunnelType = "shell"
)

// Verb is one of the three control-socket operations issued to the
// external ssh client.
type Verb string

const (
	VerbRun   Verb = "run"
	VerbCheck Verb = "check"
	VerbKill  Verb = "kill"
)

// TunnelConfig is one sparse tunnel definition as written by the operator.
// Optional ports use pointers so "unset" is distinguishable from zero;
// optional sockets use the empty string as unset.
type TunnelConfig struct {
	Name         string     `yaml:"name" json:"name"`
	Type         TunnelType `yaml:"type,omitempty" json:"type,omitempty"`
	Login        string     `yaml:"login,omitempty" json:"login,omitempty"`
	Host         string     `yaml:"host,omitempty" json:"host,omitempty"`
	LocalPort    *int       `yaml:"local_port,omitempty" json:"local_port,omitempty"`
	RemotePort   *int       `yaml:"remote_port,omitempty" json:"remote_port,omitempty"`
	LocalSocket  string     `yaml:"local_socket,omitempty" json:"local_socket,omitempty"`
	RemoteSocket string     `yaml:"remote_socket,omitempty" json:"remote_socket,omitempty"`
}

// EffectiveType returns the configured type, defaulting to local.
func (c TunnelConfig) EffectiveType() TunnelType {
	switch c.Type {
	case TypeRemote, TypeDynamic, TypeShell:
		return c.Type
	default:
		return TypeLocal
	}
}

// ResolvedTunnel is a TunnelConfig with every optional field defaulted.
// It is derived on demand and never persisted. At most one of
// LocalPort/LocalSocket and one of RemotePort/RemoteSocket is populated
// for a valid non-dynamic, non-shell tunnel.
type ResolvedTunnel struct {
	Name         string     `json:"name"`
	Type         TunnelType `json:"type"`
	Login        string     `json:"login,omitempty"`
	Host         string     `json:"host,omitempty"`
	LocalPort    int        `json:"local_port,omitempty"` // 0 = unset
	RemotePort   int        `json:"remote_port,omitempty"`
	LocalSocket  string     `json:"local_socket,omitempty"`
	RemoteSocket string     `json:"remote_socket,omitempty"`
}

// LocalEndpoint renders whichever local endpoint is populated, or "".
func (r ResolvedTunnel) LocalEndpoint() string {
	if r.LocalPort > 0 {
		return strconv.Itoa(r.LocalPort)
	}
	return r.LocalSocket
}

// RemoteEndpoint renders whichever remote endpoint is populated, or "".
func (r ResolvedTunnel) RemoteEndpoint() string {
	if r.RemotePort > 0 {
		return strconv.Itoa(r.RemotePort)
	}
	return r.RemoteSocket
}

// TunnelStatus pairs a configured tunnel with its observed runtime state
// for listing. Running is rediscovered from the control socket on every
// refresh; callers must not cache it across operations.
type TunnelStatus struct {
	Config   TunnelConfig   `json:"config"`
	Resolved ResolvedTunnel `json:"resolved"`
	Running  bool           `json:"running"`
	Err      error          `json:"-"`
}

// MarshalJSON renders Err as a plain string; error values have no
// useful default encoding.
func (s TunnelStatus) MarshalJSON() ([]byte, error) {
	type alias TunnelStatus
	out := struct {
		alias
		Error string `json:"error,omitempty"`
	}{alias: alias(s)}
	if s.Err != nil {
		out.Error = s.Err.Error()
	}
	return json.Marshal(out)
}
