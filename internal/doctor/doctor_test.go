// Package doctor tests focus on the per-definition diagnostics; the
// binary and filesystem checks depend on the host environment and are
// exercised indirectly through the audit tests.
package doctor

import (
	"testing"

	"github.com/death/ssh-tunnels/internal/model"
)

func intp(n int) *int { return &n }

func findCheck(issues []Issue, check string) (Issue, bool) {
	for _, i := range issues {
		if i.Check == check {
			return i, true
		}
	}
	return Issue{}, false
}

func TestTunnelIssuesConflict(t *testing.T) {
	issues := tunnelIssues([]model.TunnelConfig{
		{Name: "bad", Login: "me@host", LocalPort: intp(80), LocalSocket: "/tmp/x"},
	})
	issue, ok := findCheck(issues, "mutually-exclusive")
	if !ok {
		t.Fatalf("expected a mutual exclusion issue, got %+v", issues)
	}
	if issue.Severity != SeverityHigh || issue.Target != "bad" {
		t.Fatalf("unexpected issue %+v", issue)
	}
}

func TestTunnelIssuesMissingLogin(t *testing.T) {
	issues := tunnelIssues([]model.TunnelConfig{
		{Name: "orphan", LocalPort: intp(8080)},
	})
	if _, ok := findCheck(issues, "missing-login"); !ok {
		t.Fatalf("expected a missing-login issue, got %+v", issues)
	}
}

// Duplicate detection runs on resolved ports, so a tunnel that only
// names remote_port still collides with one that names the same value as
// local_port.
func TestTunnelIssuesDuplicateResolvedPort(t *testing.T) {
	issues := tunnelIssues([]model.TunnelConfig{
		{Name: "a", Login: "me@host", LocalPort: intp(5432)},
		{Name: "b", Login: "me@host", RemotePort: intp(5432)},
	})
	issue, ok := findCheck(issues, "duplicate-local-port")
	if !ok {
		t.Fatalf("expected a duplicate-local-port issue, got %+v", issues)
	}
	if issue.Target != "5432" {
		t.Fatalf("issue should name the port, got %q", issue.Target)
	}
}

// Shell-managed tunnels hold no local port of their own and never count
// toward duplicates.
func TestTunnelIssuesShellExcludedFromDuplicates(t *testing.T) {
	issues := tunnelIssues([]model.TunnelConfig{
		{Name: "a", Login: "me@host", LocalPort: intp(5432)},
		{Name: "s", Type: model.TypeShell, Login: "work-tunnel", LocalPort: intp(5432)},
	})
	if _, ok := findCheck(issues, "duplicate-local-port"); ok {
		t.Fatalf("shell tunnels must not count toward duplicates: %+v", issues)
	}
}

func TestTunnelIssuesCleanConfig(t *testing.T) {
	issues := tunnelIssues([]model.TunnelConfig{
		{Name: "db", Login: "me@host", LocalPort: intp(5432)},
		{Name: "web", Login: "me@host", LocalPort: intp(8080)},
	})
	if len(issues) != 0 {
		t.Fatalf("expected no issues, got %+v", issues)
	}
}

func TestSeverityRank(t *testing.T) {
	if !(severityRank(SeverityHigh) > severityRank(SeverityMedium) &&
		severityRank(SeverityMedium) > severityRank(SeverityLow)) {
		t.Fatal("severity ranks out of order")
	}
}
