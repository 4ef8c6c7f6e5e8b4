// Package history tests cover the last-run record and the recency sort
// used by the interactive list.
package history

import (
	"testing"

	"github.com/death/ssh-tunnels/internal/model"
)

func TestTouchAndLastRun(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	last, err := LastRun()
	if err != nil {
		t.Fatal(err)
	}
	if len(last) != 0 {
		t.Fatalf("expected empty history, got %v", last)
	}

	if err := Touch("db"); err != nil {
		t.Fatal(err)
	}
	if err := Touch("web"); err != nil {
		t.Fatal(err)
	}

	last, err = LastRun()
	if err != nil {
		t.Fatal(err)
	}
	if last["db"] == 0 || last["web"] == 0 {
		t.Fatalf("expected both tunnels recorded, got %v", last)
	}
}

func TestSortTunnelsRecent(t *testing.T) {
	tunnels := []model.TunnelConfig{
		{Name: "alpha"},
		{Name: "bravo"},
		{Name: "charlie"},
		{Name: "delta"},
	}
	lastRun := map[string]int64{
		"charlie": 200,
		"alpha":   100,
	}

	got := SortTunnelsRecent(tunnels, lastRun)

	// Touched tunnels come first by recency; untouched ones follow,
	// ordered by name.
	want := []string{"charlie", "alpha", "bravo", "delta"}
	for i, name := range want {
		if got[i].Name != name {
			t.Fatalf("position %d: got %q, want %q", i, got[i].Name, name)
		}
	}

	// The input slice is left untouched.
	if tunnels[0].Name != "alpha" {
		t.Fatal("sort must not mutate its input")
	}
}

func TestSortTunnelsRecentNoHistory(t *testing.T) {
	tunnels := []model.TunnelConfig{{Name: "b"}, {Name: "a"}}
	got := SortTunnelsRecent(tunnels, nil)
	if got[0].Name != "a" || got[1].Name != "b" {
		t.Fatalf("without history, tunnels sort by name: %+v", got)
	}
}
