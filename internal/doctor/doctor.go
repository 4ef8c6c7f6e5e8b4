package doctor

import (
	"fmt"
	"sort"

	"github.com/death/ssh-tunnels/internal/appconfig"
	"github.com/death/ssh-tunnels/internal/config"
	"github.com/death/ssh-tunnels/internal/model"
	"github.com/death/ssh-tunnels/internal/resolve"
	"github.com/death/ssh-tunnels/internal/security"
	"github.com/death/ssh-tunnels/internal/sshclient"
)

type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

type Issue struct {
	Severity       Severity `json:"severity"`
	Check          string   `json:"check"`
	Target         string   `json:"target"`
	Message        string   `json:"message"`
	Recommendation string   `json:"recommendation"`
}

type Report struct {
	Issues []Issue `json:"issues"`
}

// Run executes local diagnostics for ssh-tunnels operations.
func Run() (Report, error) {
	var issues []Issue

	cfg, err := appconfig.Load()
	if err != nil {
		return Report{}, err
	}

	if err := sshclient.EnsureBinary(cfg.SSHBinary); err != nil {
		issues = append(issues, Issue{
			Severity:       SeverityHigh,
			Check:          "ssh-binary",
			Target:         cfg.SSHBinary,
			Message:        err.Error(),
			Recommendation: "install OpenSSH client or fix ssh_binary in config.yaml",
		})
	}

	res, err := config.Load()
	if err == nil {
		for _, w := range res.Warnings {
			issues = append(issues, Issue{
				Severity:       SeverityMedium,
				Check:          "config-warning",
				Target:         "tunnels.yaml",
				Message:        w,
				Recommendation: "fix the tunnel definition",
			})
		}
		issues = append(issues, tunnelIssues(res.Tunnels)...)
	}

	if audit, err := security.RunLocalAudit(); err == nil {
		for _, f := range audit.Findings {
			sev := SeverityLow
			if f.Severity == security.SeverityMedium {
				sev = SeverityMedium
			}
			if f.Severity == security.SeverityHigh {
				sev = SeverityHigh
			}
			issues = append(issues, Issue{
				Severity:       sev,
				Check:          "security-audit",
				Target:         f.Target,
				Message:        f.Message,
				Recommendation: f.Recommendation,
			})
		}
	}

	sort.Slice(issues, func(i, j int) bool {
		ri := severityRank(issues[i].Severity)
		rj := severityRank(issues[j].Severity)
		if ri != rj {
			return ri > rj
		}
		if issues[i].Check != issues[j].Check {
			return issues[i].Check < issues[j].Check
		}
		if issues[i].Target != issues[j].Target {
			return issues[i].Target < issues[j].Target
		}
		return issues[i].Message < issues[j].Message
	})
	return Report{Issues: issues}, nil
}

// tunnelIssues reports per-definition problems: missing logins, mutual
// exclusion conflicts, and local ports claimed by more than one tunnel.
func tunnelIssues(tunnels []model.TunnelConfig) []Issue {
	var issues []Issue
	ports := map[int][]string{}
	for _, t := range tunnels {
		if err := resolve.Validate(t); err != nil {
			issues = append(issues, Issue{
				Severity:       SeverityHigh,
				Check:          "mutually-exclusive",
				Target:         t.Name,
				Message:        err.Error(),
				Recommendation: "keep either the port or the socket form of the endpoint",
			})
			continue
		}
		if t.Login == "" {
			issues = append(issues, Issue{
				Severity:       SeverityHigh,
				Check:          "missing-login",
				Target:         t.Name,
				Message:        "tunnel has no login target",
				Recommendation: "set login to user@host (or an ssh alias for shell tunnels)",
			})
		}
		r := resolve.Resolve(t, nil)
		if r.Type != model.TypeShell && r.LocalPort > 0 {
			ports[r.LocalPort] = append(ports[r.LocalPort], t.Name)
		}
	}
	for port, names := range ports {
		if len(names) < 2 {
			continue
		}
		issues = append(issues, Issue{
			Severity:       SeverityHigh,
			Check:          "duplicate-local-port",
			Target:         fmt.Sprintf("%d", port),
			Message:        fmt.Sprintf("local port is configured by %d tunnels", len(names)),
			Recommendation: "use unique local ports per tunnel to avoid startup conflicts",
		})
	}
	return issues
}

func severityRank(s Severity) int {
	switch s {
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	default:
		return 1
	}
}
