package config

import (
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
)

// DisplayPath shortens a database or backup path for terminal and log output:
// the home directory becomes "~" and URI query parameters (pragmas, which may
// carry keys) are dropped.
func DisplayPath(path string) string {
	if path == "" {
		return ""
	}

	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}

	home := xdg.Home
	if home == "" {
		return path
	}

	if path == home {
		return "~"
	}

	if rest, ok := strings.CutPrefix(path, home+string(filepath.Separator)); ok {
		return filepath.Join("~", rest)
	}

	return path
}
