// Package forward derives the forwarding argument string consumed by the
// external ssh client's -L/-R/-D flags from a resolved tunnel.
package forward

import (
	"fmt"

	"github.com/death/ssh-tunnels/internal/model"
	"github.com/death/ssh-tunnels/internal/util"
)

// BuildError reports a resolved tunnel that cannot be rendered as a
// forwarding specification.
type BuildError struct {
	Tunnel string
	Reason string
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("tunnel %q: %s", e.Tunnel, e.Reason)
}

// Flag returns the ssh forwarding flag for a tunnel type. Shell-managed
// tunnels have no flag: their forwarding lives in the ssh client's own
// config for the login alias.
func Flag(t model.TunnelType) string {
	switch t {
	case model.TypeRemote:
		return "-R"
	case model.TypeDynamic:
		return "-D"
	default:
		return "-L"
	}
}

// Build renders the forwarding argument for r.
//
// Dynamic tunnels require a numeric local port and render as
// "host:local-port". Remote tunnels render as
// "remote-endpoint:host:local-endpoint", or "remote-socket:local-socket"
// when both ends are sockets. Every other type renders as
// "local-endpoint:host:remote-endpoint", or "local-socket:remote-socket"
// when both ends are sockets. Hosts containing a colon (IPv6 literals)
// are bracketed in every branch.
//
// Build must not be called for shell-managed tunnels.
func Build(r model.ResolvedTunnel) (string, error) {
	host := util.BracketHost(r.Host)

	switch r.Type {
	case model.TypeDynamic:
		if r.LocalPort <= 0 {
			return "", &BuildError{Tunnel: r.Name, Reason: "dynamic tunnel needs a local port"}
		}
		return fmt.Sprintf("%s:%d", host, r.LocalPort), nil
	case model.TypeRemote:
		if r.RemoteSocket != "" && r.LocalSocket != "" {
			return fmt.Sprintf("%s:%s", r.RemoteSocket, r.LocalSocket), nil
		}
		return fmt.Sprintf("%s:%s:%s", r.RemoteEndpoint(), host, r.LocalEndpoint()), nil
	default:
		if r.LocalSocket != "" && r.RemoteSocket != "" {
			return fmt.Sprintf("%s:%s", r.LocalSocket, r.RemoteSocket), nil
		}
		return fmt.Sprintf("%s:%s:%s", r.LocalEndpoint(), host, r.RemoteEndpoint()), nil
	}
}
