// Package config manages the ordered tunnel definition list and the
// ssh_config import that can seed it.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/death/ssh-tunnels/internal/appconfig"
	"github.com/death/ssh-tunnels/internal/model"
	"github.com/death/ssh-tunnels/internal/resolve"
)

// LoadResult carries the configured tunnels plus non-fatal findings.
type LoadResult struct {
	Tunnels  []model.TunnelConfig
	Warnings []string
}

type fileModel struct {
	Tunnels []model.TunnelConfig `yaml:"tunnels"`
}

// Load reads tunnels.yaml, preserving definition order. Definition order
// matters: it is the tie-break order for endpoint lookup. Tunnels that
// fail validation are kept (so they can be listed and fixed) but reported
// as warnings.
func Load() (LoadResult, error) {
	path, err := appconfig.TunnelsFilePath()
	if err != nil {
		return LoadResult{}, err
	}
	return LoadFile(path)
}

// LoadFile reads a tunnel definition list from an explicit path.
func LoadFile(path string) (LoadResult, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return LoadResult{}, nil
		}
		return LoadResult{}, fmt.Errorf("read %s: %w", path, err)
	}
	var fm fileModel
	if err := yaml.Unmarshal(b, &fm); err != nil {
		return LoadResult{}, fmt.Errorf("parse %s: %w", path, err)
	}

	res := LoadResult{Tunnels: fm.Tunnels}
	seen := map[string]bool{}
	for _, t := range fm.Tunnels {
		if err := ValidateName(t.Name); err != nil {
			res.Warnings = append(res.Warnings, err.Error())
		}
		if seen[t.Name] {
			res.Warnings = append(res.Warnings, fmt.Sprintf("duplicate tunnel name %q", t.Name))
		}
		seen[t.Name] = true
		if err := resolve.Validate(t); err != nil {
			res.Warnings = append(res.Warnings, err.Error())
		}
	}
	return res, nil
}

// Save writes the tunnel list to tunnels.yaml, replacing the previous
// contents.
func Save(tunnels []model.TunnelConfig) error {
	path, err := appconfig.TunnelsFilePath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := yaml.Marshal(fileModel{Tunnels: tunnels})
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o600)
}

// Append adds definitions to the end of tunnels.yaml, skipping names that
// already exist. It returns the number of definitions actually added.
func Append(tunnels []model.TunnelConfig) (int, error) {
	res, err := Load()
	if err != nil {
		return 0, err
	}
	existing := map[string]bool{}
	for _, t := range res.Tunnels {
		existing[t.Name] = true
	}

	added := 0
	out := res.Tunnels
	for _, t := range tunnels {
		if existing[t.Name] {
			continue
		}
		if err := ValidateName(t.Name); err != nil {
			return added, err
		}
		out = append(out, t)
		existing[t.Name] = true
		added++
	}
	if added == 0 {
		return 0, nil
	}
	return added, Save(out)
}

// ValidateName checks that a tunnel name is usable as a control socket
// file name. The name ends up verbatim as the -S argument, so path
// separators and whitespace are rejected.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("tunnel name cannot be empty")
	}
	if strings.ContainsAny(name, " \t/\\") {
		return fmt.Errorf("tunnel name %q cannot contain spaces or path separators", name)
	}
	if name == "." || name == ".." {
		return fmt.Errorf("tunnel name %q is not a valid socket file name", name)
	}
	return nil
}
