// Package util provides common utility functions and constants used across
// the ssh-tunnels application. This package is intentionally kept
// dependency-free (no imports from other internal/* packages) to serve as a
// shared foundation without introducing circular dependencies.
package util

const (
	// MaxIncludeDepth is the maximum nesting level for SSH config Include
	// directives followed by the import parser. The limit prevents infinite
	// recursion when config files form an include cycle that escapes the
	// cycle-detection logic (e.g., via symlinks that resolve to different
	// absolute paths). The value of 16 is generous enough for any
	// reasonable config hierarchy while still providing a safety bound.
	// Used by: internal/config/parser.go (parseRecursive).
	MaxIncludeDepth = 16

	// DefaultRefreshSeconds is the fallback interval (in seconds) for the
	// TUI list's periodic status refresh. Each refresh re-queries every
	// tunnel's control socket, so the interval also bounds how stale the
	// RUNNING column can be.
	// Used by: internal/ui/ui.go and internal/appconfig/config.go.
	DefaultRefreshSeconds = 3
)
