// Package util provides common utility functions and constants used across
// the ssh-tunnels application. This package is intentionally kept
// dependency-free (no imports from other internal/* packages) to serve as a
// shared foundation without introducing circular dependencies.
package util

import "strings"

// BracketHost wraps host in square brackets when it contains a colon, the
// convention OpenSSH forward specifications use to keep IPv6 literals from
// being confused with the colon separators of the spec itself.
//
// Examples:
//
//	BracketHost("db.internal") → "db.internal"
//	BracketHost("::1")         → "[::1]"
//	BracketHost("[::1]")       → "[::1]"   // already bracketed → kept
func BracketHost(host string) string {
	if strings.Contains(host, ":") && !strings.HasPrefix(host, "[") {
		return "[" + host + "]"
	}
	return host
}
