package ui

import (
	"strings"
	"testing"

	"github.com/death/ssh-tunnels/internal/model"
)

func formWith(values map[int]string) *tunnelForm {
	f := newTunnelForm()
	for idx, v := range values {
		f.fields[idx].SetValue(v)
	}
	return f
}

func TestFormCompile(t *testing.T) {
	tests := []struct {
		name    string
		values  map[int]string
		want    model.TunnelConfig
		wantErr string
	}{
		{
			name: "minimal local tunnel",
			values: map[int]string{
				fieldName:      "db",
				fieldLogin:     "me@bastion",
				fieldLocalPort: "5432",
			},
			want: model.TunnelConfig{Name: "db", Login: "me@bastion"},
		},
		{
			name: "explicit remote type",
			values: map[int]string{
				fieldName:       "rev",
				fieldType:       "remote",
				fieldLogin:      "me@edge",
				fieldLocalPort:  "3000",
				fieldRemotePort: "8080",
			},
			want: model.TunnelConfig{Name: "rev", Type: model.TypeRemote, Login: "me@edge"},
		},
		{
			name: "shell tunnel needs only a login alias",
			values: map[int]string{
				fieldName:  "work",
				fieldType:  "shell",
				fieldLogin: "work-tunnel",
			},
			want: model.TunnelConfig{Name: "work", Type: model.TypeShell, Login: "work-tunnel"},
		},
		{
			name:    "missing name",
			values:  map[int]string{fieldLogin: "me@host"},
			wantErr: "empty",
		},
		{
			name: "name with path separator",
			values: map[int]string{
				fieldName:  "a/b",
				fieldLogin: "me@host",
			},
			wantErr: "path separators",
		},
		{
			name: "unknown type",
			values: map[int]string{
				fieldName:  "db",
				fieldType:  "sideways",
				fieldLogin: "me@host",
			},
			wantErr: "unknown tunnel type",
		},
		{
			name:    "missing login",
			values:  map[int]string{fieldName: "db"},
			wantErr: "login is required",
		},
		{
			name: "non-numeric port",
			values: map[int]string{
				fieldName:      "db",
				fieldLogin:     "me@host",
				fieldLocalPort: "http",
			},
			wantErr: "invalid port",
		},
		{
			name: "port out of range",
			values: map[int]string{
				fieldName:      "db",
				fieldLogin:     "me@host",
				fieldLocalPort: "70000",
			},
			wantErr: "port",
		},
		{
			name: "port and socket on the same side",
			values: map[int]string{
				fieldName:        "db",
				fieldLogin:       "me@host",
				fieldLocalPort:   "80",
				fieldLocalSocket: "/tmp/x",
			},
			wantErr: "local_port",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := formWith(tt.values).compile()
			if tt.wantErr != "" {
				if err == nil {
					t.Fatalf("expected error containing %q, got config %+v", tt.wantErr, got)
				}
				if !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("error %q does not mention %q", err.Error(), tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Name != tt.want.Name || got.Type != tt.want.Type || got.Login != tt.want.Login {
				t.Fatalf("got %+v, want name/type/login from %+v", got, tt.want)
			}
		})
	}
}

func TestFormCompilePorts(t *testing.T) {
	got, err := formWith(map[int]string{
		fieldName:       "db",
		fieldLogin:      "me@host",
		fieldLocalPort:  " 5432 ",
		fieldRemotePort: "3306",
	}).compile()
	if err != nil {
		t.Fatal(err)
	}
	if got.LocalPort == nil || *got.LocalPort != 5432 {
		t.Fatalf("local port lost: %+v", got)
	}
	if got.RemotePort == nil || *got.RemotePort != 3306 {
		t.Fatalf("remote port lost: %+v", got)
	}
	// Blank fields stay unset rather than becoming zero values.
	if got.LocalSocket != "" || got.RemoteSocket != "" {
		t.Fatalf("sockets should be unset: %+v", got)
	}
}

func TestFormFocusCycling(t *testing.T) {
	f := newTunnelForm()
	if f.focusIdx != fieldName {
		t.Fatalf("initial focus should be the name field, got %d", f.focusIdx)
	}
	f.setFocus((f.focusIdx + 1) % fieldCount)
	if f.focusIdx != fieldType {
		t.Fatalf("expected focus on type, got %d", f.focusIdx)
	}
	if f.fields[fieldName].Focused() {
		t.Fatal("previous field should have been blurred")
	}
	if !f.fields[fieldType].Focused() {
		t.Fatal("new field should be focused")
	}
	f.setFocus((f.focusIdx + fieldCount - 1) % fieldCount)
	if f.focusIdx != fieldName {
		t.Fatalf("expected focus back on name, got %d", f.focusIdx)
	}
}
