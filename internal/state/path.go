package state

import (
	"strings"

	"github.com/dshills/switchboard/internal/orcherr"
)

// Separator is the path segment separator.
const Separator = "."

// ParsePath splits a dot-delimited path into segments. The empty path is
// the root and yields no segments.
func ParsePath(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}
	segs := strings.Split(path, Separator)
	for _, s := range segs {
		if strings.TrimSpace(s) == "" {
			return nil, orcherr.NewValidationError("state", "path", path, "empty path segment")
		}
	}
	return segs, nil
}

// JoinPath joins segments into a path.
func JoinPath(segs ...string) string {
	return strings.Join(segs, Separator)
}

// isAncestor reports whether a is a strict ancestor of b.
func isAncestor(a, b string) bool {
	if a == "" {
		return b != ""
	}
	return len(b) > len(a) && strings.HasPrefix(b, a) && strings.HasPrefix(b[len(a):], Separator)
}
