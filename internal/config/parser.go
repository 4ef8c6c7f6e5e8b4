package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/death/ssh-tunnels/internal/model"
	"github.com/death/ssh-tunnels/internal/util"
)

// ImportResult carries tunnel definitions derived from an ssh_config file.
type ImportResult struct {
	Tunnels  []model.TunnelConfig
	Warnings []string
}

type rawBlock struct {
	patterns []string
	values   map[string][]string
	source   string
}

// ImportDefault derives tunnel definitions from ~/.ssh/config.
func ImportDefault() (ImportResult, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return ImportResult{}, fmt.Errorf("resolve home dir: %w", err)
	}
	return ImportFile(filepath.Join(home, ".ssh", "config"))
}

// ImportFile parses a single root SSH config, expands Include directives,
// and turns each LocalForward/RemoteForward/DynamicForward directive on a
// concrete Host alias into a tunnel definition. Forwarding details stay
// inside the generated definition rather than being left to the ssh
// client's config, so imported tunnels behave like hand-written ones.
func ImportFile(path string) (ImportResult, error) {
	seen := map[string]bool{}
	blocks, warnings, err := parseRecursive(path, seen, 0)
	if err != nil {
		return ImportResult{}, err
	}
	tunnels := compileTunnels(blocks)
	return ImportResult{Tunnels: tunnels, Warnings: warnings}, nil
}

func parseRecursive(path string, seen map[string]bool, depth int) ([]rawBlock, []string, error) {
	if depth > util.MaxIncludeDepth {
		return nil, nil, fmt.Errorf("include depth exceeded at %s", path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, nil, err
	}
	if seen[abs] {
		return nil, []string{fmt.Sprintf("include cycle skipped: %s", abs)}, nil
	}
	seen[abs] = true

	f, err := os.Open(abs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, []string{fmt.Sprintf("config file not found: %s", abs)}, nil
		}
		return nil, nil, fmt.Errorf("open %s: %w", abs, err)
	}
	defer f.Close()

	var (
		blocks      []rawBlock
		warnings    []string
		current     = rawBlock{patterns: []string{"*"}, values: map[string][]string{}, source: abs}
		hasHostDecl bool
	)

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = stripInlineComment(line)
		if line == "" {
			continue
		}

		key, value, ok := splitDirective(line)
		if !ok {
			warnings = append(warnings, fmt.Sprintf("%s:%d invalid directive", abs, lineNo))
			continue
		}
		lowerKey := strings.ToLower(key)

		switch lowerKey {
		case "include":
			for _, pattern := range strings.Fields(value) {
				incPattern := expandHome(pattern)
				if !filepath.IsAbs(incPattern) {
					incPattern = filepath.Join(filepath.Dir(abs), incPattern)
				}
				matches, globErr := filepath.Glob(incPattern)
				if globErr != nil {
					warnings = append(warnings, fmt.Sprintf("%s:%d bad include pattern %q", abs, lineNo, pattern))
					continue
				}
				if len(matches) == 0 {
					warnings = append(warnings, fmt.Sprintf("%s:%d include matched nothing: %q", abs, lineNo, pattern))
				}
				sort.Strings(matches)
				for _, m := range matches {
					childBlocks, childWarnings, childErr := parseRecursive(m, seen, depth+1)
					warnings = append(warnings, childWarnings...)
					if childErr != nil {
						warnings = append(warnings, fmt.Sprintf("include %s failed: %v", m, childErr))
						continue
					}
					blocks = append(blocks, childBlocks...)
				}
			}
		case "host":
			if hasHostDecl || len(current.values) > 0 {
				blocks = append(blocks, current)
			}
			patterns := strings.Fields(value)
			if len(patterns) == 0 {
				warnings = append(warnings, fmt.Sprintf("%s:%d Host missing patterns", abs, lineNo))
				patterns = []string{"*"}
			}
			current = rawBlock{patterns: patterns, values: map[string][]string{}, source: abs}
			hasHostDecl = true
		default:
			current.values[lowerKey] = append(current.values[lowerKey], value)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, warnings, fmt.Errorf("scan %s: %w", abs, err)
	}

	if hasHostDecl || len(current.values) > 0 {
		blocks = append(blocks, current)
	}
	return blocks, warnings, nil
}

// compileTunnels resolves every concrete alias against the matching blocks
// and emits one tunnel definition per forwarding directive. Definitions
// are named <alias> for an alias with a single forward, <alias>-N when an
// alias carries several.
func compileTunnels(blocks []rawBlock) []model.TunnelConfig {
	aliasSet := map[string]struct{}{}
	for _, b := range blocks {
		for _, p := range b.patterns {
			if isConcreteAlias(p) {
				aliasSet[p] = struct{}{}
			}
		}
	}

	aliases := make([]string, 0, len(aliasSet))
	for a := range aliasSet {
		aliases = append(aliases, a)
	}
	sort.Strings(aliases)

	var tunnels []model.TunnelConfig
	for _, alias := range aliases {
		var forwards []model.TunnelConfig
		for _, b := range blocks {
			if !matchesAny(alias, b.patterns) {
				continue
			}
			for _, v := range b.values["localforward"] {
				if t, ok := parseForwardDirective(alias, model.TypeLocal, v); ok {
					forwards = append(forwards, t)
				}
			}
			for _, v := range b.values["remoteforward"] {
				if t, ok := parseForwardDirective(alias, model.TypeRemote, v); ok {
					forwards = append(forwards, t)
				}
			}
			for _, v := range b.values["dynamicforward"] {
				if t, ok := parseDynamicDirective(alias, v); ok {
					forwards = append(forwards, t)
				}
			}
		}
		for i := range forwards {
			if len(forwards) > 1 {
				forwards[i].Name = fmt.Sprintf("%s-%d", alias, i+1)
			}
		}
		tunnels = append(tunnels, forwards...)
	}
	return tunnels
}

// parseForwardDirective turns "LocalForward [bind:]port host:hostport"
// (or its RemoteForward mirror, where the listening port is on the remote
// side) into a tunnel definition. The bind address is dropped: generated
// definitions bind the default address the same way hand-written ones do.
func parseForwardDirective(alias string, typ model.TunnelType, v string) (model.TunnelConfig, bool) {
	parts := strings.Fields(v)
	if len(parts) != 2 {
		return model.TunnelConfig{}, false
	}

	listenPort, ok := parsePortToken(parts[0])
	if !ok {
		return model.TunnelConfig{}, false
	}
	host, destPort, ok := parseHostPort(parts[1])
	if !ok {
		return model.TunnelConfig{}, false
	}

	localPort, remotePort := listenPort, destPort
	if typ == model.TypeRemote {
		// RemoteForward listens remotely and targets the local side.
		localPort, remotePort = destPort, listenPort
	}

	t := model.TunnelConfig{
		Name:      alias,
		Type:      typ,
		Login:     alias,
		Host:      host,
		LocalPort: &localPort,
	}
	if remotePort != localPort {
		t.RemotePort = &remotePort
	}
	return t, true
}

func parseDynamicDirective(alias, v string) (model.TunnelConfig, bool) {
	port, ok := parsePortToken(strings.TrimSpace(v))
	if !ok {
		return model.TunnelConfig{}, false
	}
	return model.TunnelConfig{
		Name:      alias,
		Type:      model.TypeDynamic,
		Login:     alias,
		LocalPort: &port,
	}, true
}

// parsePortToken accepts "port" or "bind:port" and returns the port.
func parsePortToken(s string) (int, bool) {
	if idx := strings.LastIndex(s, ":"); idx >= 0 {
		s = s[idx+1:]
	}
	p, err := strconv.Atoi(s)
	if err != nil || util.ValidatePort(p) != nil {
		return 0, false
	}
	return p, true
}

func parseHostPort(s string) (string, int, bool) {
	idx := strings.LastIndex(s, ":")
	if idx <= 0 {
		return "", 0, false
	}
	host := strings.Trim(s[:idx], "[]")
	p, err := strconv.Atoi(s[idx+1:])
	if err != nil || util.ValidatePort(p) != nil {
		return "", 0, false
	}
	return host, p, true
}

func matchesAny(alias string, patterns []string) bool {
	matched := false
	for _, p := range patterns {
		negated := strings.HasPrefix(p, "!")
		pat := strings.TrimPrefix(p, "!")
		ok := globMatch(alias, pat)
		if !ok {
			continue
		}
		if negated {
			return false
		}
		matched = true
	}
	return matched
}

func globMatch(alias, pattern string) bool {
	if pattern == "" {
		return false
	}
	ok, err := filepath.Match(pattern, alias)
	if err != nil {
		return false
	}
	return ok
}

func isConcreteAlias(pattern string) bool {
	if strings.HasPrefix(pattern, "!") {
		return false
	}
	if strings.ContainsAny(pattern, "*?") {
		return false
	}
	return pattern != ""
}

func splitDirective(line string) (key, value string, ok bool) {
	if i := strings.IndexAny(line, " \t"); i > 0 {
		key = strings.TrimSpace(line[:i])
		value = strings.TrimSpace(line[i+1:])
		return key, value, key != "" && value != ""
	}
	if i := strings.Index(line, "="); i > 0 {
		key = strings.TrimSpace(line[:i])
		value = strings.TrimSpace(line[i+1:])
		return key, value, key != "" && value != ""
	}
	return "", "", false
}

func stripInlineComment(line string) string {
	inQuote := false
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '"':
			inQuote = !inQuote
		case '#':
			if !inQuote {
				return strings.TrimSpace(line[:i])
			}
		}
	}
	return strings.TrimSpace(line)
}

func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
