// Package forward tests pin the exact forwarding strings handed to the
// ssh client's -L/-R/-D flags, one branch per tunnel type plus the
// socket-to-socket and IPv6 special cases.
package forward

import (
	"errors"
	"testing"

	"github.com/death/ssh-tunnels/internal/model"
)

func TestBuildLocal(t *testing.T) {
	got, err := Build(model.ResolvedTunnel{
		Name:       "db",
		Type:       model.TypeLocal,
		Host:       "db.internal",
		LocalPort:  1234,
		RemotePort: 3306,
	})
	if err != nil {
		t.Fatal(err)
	}
	if got != "1234:db.internal:3306" {
		t.Fatalf("unexpected spec %q", got)
	}
}

func TestBuildLocalMixedEndpoints(t *testing.T) {
	got, err := Build(model.ResolvedTunnel{
		Name:         "sock",
		Type:         model.TypeLocal,
		Host:         "localhost",
		LocalPort:    8080,
		RemoteSocket: "/run/app.sock",
	})
	if err != nil {
		t.Fatal(err)
	}
	if got != "8080:localhost:/run/app.sock" {
		t.Fatalf("unexpected spec %q", got)
	}
}

// Socket-to-socket forwards omit the host entirely.
func TestBuildLocalBothSockets(t *testing.T) {
	got, err := Build(model.ResolvedTunnel{
		Name:         "sock",
		Type:         model.TypeLocal,
		Host:         "localhost",
		LocalSocket:  "/tmp/a",
		RemoteSocket: "/tmp/b",
	})
	if err != nil {
		t.Fatal(err)
	}
	if got != "/tmp/a:/tmp/b" {
		t.Fatalf("unexpected spec %q", got)
	}
}

func TestBuildRemote(t *testing.T) {
	got, err := Build(model.ResolvedTunnel{
		Name:       "rev",
		Type:       model.TypeRemote,
		Host:       "localhost",
		LocalPort:  3000,
		RemotePort: 8080,
	})
	if err != nil {
		t.Fatal(err)
	}
	// Remote forwards list the remote endpoint first.
	if got != "8080:localhost:3000" {
		t.Fatalf("unexpected spec %q", got)
	}
}

func TestBuildRemoteBothSockets(t *testing.T) {
	got, err := Build(model.ResolvedTunnel{
		Name:         "rev",
		Type:         model.TypeRemote,
		Host:         "localhost",
		LocalSocket:  "/tmp/a",
		RemoteSocket: "/tmp/b",
	})
	if err != nil {
		t.Fatal(err)
	}
	if got != "/tmp/b:/tmp/a" {
		t.Fatalf("unexpected spec %q", got)
	}
}

func TestBuildDynamic(t *testing.T) {
	got, err := Build(model.ResolvedTunnel{
		Name:      "socks",
		Type:      model.TypeDynamic,
		Host:      "localhost",
		LocalPort: 1080,
	})
	if err != nil {
		t.Fatal(err)
	}
	if got != "localhost:1080" {
		t.Fatalf("unexpected spec %q", got)
	}
}

func TestBuildDynamicMissingPort(t *testing.T) {
	_, err := Build(model.ResolvedTunnel{
		Name: "socks",
		Type: model.TypeDynamic,
		Host: "localhost",
	})
	var be *BuildError
	if !errors.As(err, &be) {
		t.Fatalf("expected BuildError, got %v", err)
	}
	if be.Tunnel != "socks" {
		t.Fatalf("error should name the tunnel, got %q", be.Tunnel)
	}
}

// IPv6 literal hosts are bracketed in every branch that embeds the host.
func TestBuildBracketsIPv6(t *testing.T) {
	cases := []struct {
		r    model.ResolvedTunnel
		want string
	}{
		{
			r:    model.ResolvedTunnel{Name: "v6", Type: model.TypeLocal, Host: "::1", LocalPort: 80, RemotePort: 80},
			want: "80:[::1]:80",
		},
		{
			r:    model.ResolvedTunnel{Name: "v6", Type: model.TypeRemote, Host: "::1", LocalPort: 80, RemotePort: 81},
			want: "81:[::1]:80",
		},
		{
			r:    model.ResolvedTunnel{Name: "v6", Type: model.TypeDynamic, Host: "::1", LocalPort: 1080},
			want: "[::1]:1080",
		},
	}
	for _, tc := range cases {
		got, err := Build(tc.r)
		if err != nil {
			t.Fatalf("%s: %v", tc.r.Type, err)
		}
		if got != tc.want {
			t.Fatalf("%s: got %q, want %q", tc.r.Type, got, tc.want)
		}
	}
}

func TestFlag(t *testing.T) {
	if Flag(model.TypeLocal) != "-L" || Flag(model.TypeRemote) != "-R" || Flag(model.TypeDynamic) != "-D" {
		t.Fatal("unexpected forwarding flags")
	}
}
