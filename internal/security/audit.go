package security

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/death/ssh-tunnels/internal/appconfig"
	"github.com/death/ssh-tunnels/internal/config"
)

type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

type Finding struct {
	Severity       Severity `json:"severity"`
	Target         string   `json:"target"`
	Message        string   `json:"message"`
	Recommendation string   `json:"recommendation"`
}

type AuditReport struct {
	Findings []Finding `json:"findings"`
}

func (r AuditReport) HasHigh() bool {
	for _, f := range r.Findings {
		if f.Severity == SeverityHigh {
			return true
		}
	}
	return false
}

// RunLocalAudit inspects the file posture of everything ssh-tunnels
// touches: its own config files, the ssh config it can import from, and
// the directory holding the control sockets.
func RunLocalAudit() (AuditReport, error) {
	cfg, err := appconfig.Load()
	if err != nil {
		return AuditReport{}, err
	}

	var findings []Finding

	home, err := os.UserHomeDir()
	if err == nil {
		checkPathPerm(&findings, filepath.Join(home, ".ssh"), 0o700, false)
		checkPathPerm(&findings, filepath.Join(home, ".ssh", "config"), 0o600, true)
	}

	cfgDir, err := appconfig.ConfigDir()
	if err == nil {
		checkPathPerm(&findings, filepath.Join(cfgDir, "tunnels.yaml"), 0o600, true)
		checkPathPerm(&findings, filepath.Join(cfgDir, "groups.yaml"), 0o600, true)
	}

	findings = append(findings, controlDirFindings(cfg.ControlDir)...)

	sort.Slice(findings, func(i, j int) bool {
		if findings[i].Severity != findings[j].Severity {
			return severityRank(findings[i].Severity) > severityRank(findings[j].Severity)
		}
		if findings[i].Target != findings[j].Target {
			return findings[i].Target < findings[j].Target
		}
		return findings[i].Message < findings[j].Message
	})
	return AuditReport{Findings: findings}, nil
}

// controlDirFindings flags a control directory that other users could
// tamper with. Anyone who can replace a control socket can hijack the
// multiplexed connection, so a shared directory needs the sticky bit, and
// the sockets themselves must not be group or world accessible.
func controlDirFindings(dir string) []Finding {
	var findings []Finding
	st, err := os.Stat(dir)
	if err != nil {
		findings = append(findings, Finding{
			Severity:       SeverityMedium,
			Target:         dir,
			Message:        fmt.Sprintf("control directory is not accessible: %v", err),
			Recommendation: "create the directory or point control_dir elsewhere",
		})
		return findings
	}

	mode := st.Mode()
	if mode.Perm()&0o002 != 0 && mode&os.ModeSticky == 0 {
		findings = append(findings, Finding{
			Severity:       SeverityHigh,
			Target:         dir,
			Message:        "control directory is world-writable without the sticky bit",
			Recommendation: "use a private directory for control_dir (e.g. ~/.ssh/ctl)",
		})
	}

	res, err := config.Load()
	if err != nil {
		return findings
	}
	for _, t := range res.Tunnels {
		sock := filepath.Join(dir, t.Name)
		sst, err := os.Stat(sock)
		if err != nil || sst.Mode()&os.ModeSocket == 0 {
			continue
		}
		if sst.Mode().Perm()&0o077 != 0 {
			findings = append(findings, Finding{
				Severity:       SeverityHigh,
				Target:         sock,
				Message:        fmt.Sprintf("control socket permissions are too broad (%#o)", sst.Mode().Perm()),
				Recommendation: "remove the socket and restart the tunnel",
			})
		}
	}
	return findings
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

func checkPathPerm(findings *[]Finding, path string, max os.FileMode, isFile bool) {
	st, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return
		}
		*findings = append(*findings, Finding{
			Severity:       SeverityLow,
			Target:         path,
			Message:        fmt.Sprintf("unable to inspect permissions: %v", err),
			Recommendation: "verify path and permissions manually",
		})
		return
	}
	mode := st.Mode().Perm()
	if mode > max {
		kind := "directory"
		if isFile {
			kind = "file"
		}
		*findings = append(*findings, Finding{
			Severity:       SeverityMedium,
			Target:         path,
			Message:        fmt.Sprintf("%s permissions are too broad (%#o)", kind, mode),
			Recommendation: fmt.Sprintf("restrict permissions to %#o or tighter", max),
		})
	}
}
