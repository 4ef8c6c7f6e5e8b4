// Package resolve tests cover the three-tier precedence rules (override
// state → explicit configuration → cross defaulting) and the raw-field
// mutual exclusion validation.
//
// The defaulting rules are deliberately symmetric: a tunnel that names
// only one side's endpoint mirrors it onto the other side, so "forward
// port 5432" needs a single field. The tests pin that symmetry, the
// socket/port interactions that suspend it, and the rule that override
// state applies to local endpoints only.
package resolve

import (
	"errors"
	"testing"

	"github.com/death/ssh-tunnels/internal/model"
	"github.com/death/ssh-tunnels/internal/state"
)

func intp(n int) *int { return &n }

func TestResolveStructuralDefaults(t *testing.T) {
	r := Resolve(model.TunnelConfig{Name: "db", Login: "me@bastion"}, nil)
	if r.Host != "localhost" {
		t.Fatalf("expected default host localhost, got %q", r.Host)
	}
	if r.Type != model.TypeLocal {
		t.Fatalf("expected default type local, got %q", r.Type)
	}
	if r.Login != "me@bastion" {
		t.Fatalf("login should pass through, got %q", r.Login)
	}
}

// TestResolveCrossDefaulting verifies the local/remote mirroring: with
// only remote_port set, local-port mirrors it, and vice versa.
func TestResolveCrossDefaulting(t *testing.T) {
	r := Resolve(model.TunnelConfig{Name: "db", RemotePort: intp(5432)}, nil)
	if r.LocalPort != 5432 || r.RemotePort != 5432 {
		t.Fatalf("expected 5432 on both sides, got local=%d remote=%d", r.LocalPort, r.RemotePort)
	}

	r = Resolve(model.TunnelConfig{Name: "db", LocalPort: intp(8080)}, nil)
	if r.LocalPort != 8080 || r.RemotePort != 8080 {
		t.Fatalf("expected 8080 on both sides, got local=%d remote=%d", r.LocalPort, r.RemotePort)
	}
}

// TestResolveSocketBlocksPortMirroring verifies that a configured socket
// on one side suppresses borrowing the other side's port: a tunnel with
// local_socket and remote_port is socket-to-port, not port-to-port.
func TestResolveSocketBlocksPortMirroring(t *testing.T) {
	r := Resolve(model.TunnelConfig{
		Name:        "sock",
		LocalSocket: "/tmp/app.sock",
		RemotePort:  intp(9000),
	}, nil)
	if r.LocalPort != 0 {
		t.Fatalf("local socket is configured; local port must stay unset, got %d", r.LocalPort)
	}
	if r.LocalSocket != "/tmp/app.sock" {
		t.Fatalf("unexpected local socket %q", r.LocalSocket)
	}
	if r.RemotePort != 9000 {
		t.Fatalf("unexpected remote port %d", r.RemotePort)
	}
}

func TestResolveSocketMirroring(t *testing.T) {
	r := Resolve(model.TunnelConfig{Name: "sock", RemoteSocket: "/run/db.sock"}, nil)
	if r.LocalSocket != "/run/db.sock" || r.RemoteSocket != "/run/db.sock" {
		t.Fatalf("expected socket mirrored to both sides, got local=%q remote=%q", r.LocalSocket, r.RemoteSocket)
	}
}

// TestResolveOverridePrecedence verifies that an override entry wins over
// the static configuration, regardless of what the configuration says.
func TestResolveOverridePrecedence(t *testing.T) {
	overrides := state.NewStore()
	overrides.Set("db", state.Endpoint{Port: 1235})

	cfg := model.TunnelConfig{Name: "db", LocalPort: intp(1234), RemotePort: intp(3306)}
	r := Resolve(cfg, overrides)
	if r.LocalPort != 1235 {
		t.Fatalf("override should win, got local port %d", r.LocalPort)
	}
	// Remote endpoints are never overridden locally.
	if r.RemotePort != 3306 {
		t.Fatalf("remote port must come from config, got %d", r.RemotePort)
	}

	overrides.Delete("db")
	r = Resolve(cfg, overrides)
	if r.LocalPort != 1234 {
		t.Fatalf("after delete the config value should apply, got %d", r.LocalPort)
	}
}

// TestResolveOverrideSocket verifies that a socket override replaces the
// static local endpoint wholesale, even when the config names a port.
func TestResolveOverrideSocket(t *testing.T) {
	overrides := state.NewStore()
	overrides.Set("app", state.Endpoint{Socket: "/tmp/adhoc.sock"})

	r := Resolve(model.TunnelConfig{Name: "app", LocalPort: intp(8000)}, overrides)
	if r.LocalPort != 0 || r.LocalSocket != "/tmp/adhoc.sock" {
		t.Fatalf("socket override should replace the port, got port=%d socket=%q", r.LocalPort, r.LocalSocket)
	}
}

func TestValidateMutualExclusion(t *testing.T) {
	err := Validate(model.TunnelConfig{
		Name:        "bad",
		LocalPort:   intp(80),
		LocalSocket: "/tmp/x",
	})
	var ce *ConfigError
	if !errors.As(err, &ce) || ce.Kind != ConflictLocal {
		t.Fatalf("expected local conflict, got %v", err)
	}
	if ce.Tunnel != "bad" {
		t.Fatalf("error should name the tunnel, got %q", ce.Tunnel)
	}

	err = Validate(model.TunnelConfig{
		Name:         "bad",
		RemotePort:   intp(80),
		RemoteSocket: "/tmp/x",
	})
	if !errors.As(err, &ce) || ce.Kind != ConflictRemote {
		t.Fatalf("expected remote conflict, got %v", err)
	}

	if err := Validate(model.TunnelConfig{Name: "ok", LocalPort: intp(80)}); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
}

// TestValidateIgnoresOverrideState verifies that validation looks at the
// raw configuration only: an override entry must not mask (or cause) a
// conflict. Validate takes no store at all, so this is a compile-level
// guarantee; the test documents it against regressions in the signature.
func TestValidateIgnoresOverrideState(t *testing.T) {
	cfg := model.TunnelConfig{Name: "bad", LocalPort: intp(80), LocalSocket: "/tmp/x"}
	overrides := state.NewStore()
	overrides.Set("bad", state.Endpoint{Port: 9999})

	if err := Validate(cfg); err == nil {
		t.Fatal("conflict must be detected regardless of override state")
	}
}
