package sandbox

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/wardenfs/warden/internal/shared/status"
)

// Resolved is a canonical absolute path together with the allowed root it
// resolved under. It is recomputed per request and never persisted.
type Resolved struct {
	// Path is the symlink-resolved absolute path.
	Path string

	// Root is the allowed root Path lives under.
	Root string
}

// Rel renders the path relative to its root for diagnostics, so raw absolute
// paths outside the sandboxed root's form never leak into errors or logs.
func (r Resolved) Rel() string {
	rel, err := filepath.Rel(r.Root, r.Path)
	if err != nil {
		return filepath.Base(r.Path)
	}
	return rel
}

// Resolve normalizes and resolves a caller-supplied path against the
// allow-list. Relative paths are joined against the first allowed root.
// Symlinks are fully resolved; when trailing components do not exist (create
// operations) the longest existing prefix is resolved and the remainder
// re-joined lexically. Any path whose real location falls outside every
// allowed root is denied as Forbidden, never NotFound.
func (c *Config) Resolve(raw string) (Resolved, error) {
	if raw == "" {
		return Resolved{}, status.InvalidPath("path cannot be empty")
	}
	for _, r := range raw {
		if r < 0x20 || r == 0x7f {
			return Resolved{}, status.InvalidPath("path contains control characters")
		}
	}

	abs := raw
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(c.AllowedRoots[0], abs)
	}
	abs = filepath.Clean(abs)

	real, err := resolveExistingPrefix(abs)
	if err != nil {
		return Resolved{}, status.Wrap(status.CodeForbidden, err, "cannot resolve path %s", filepath.Base(abs))
	}

	root := c.matchRoot(real)
	if root == "" {
		return Resolved{}, status.Forbidden("path outside allowed directories")
	}

	// Roots can disappear after configuration load; a vanished root denies
	// everything beneath it.
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		return Resolved{}, status.Forbidden("allowed root no longer exists")
	}

	return Resolved{Path: real, Root: root}, nil
}

// matchRoot returns the most specific allowed root containing path, honoring
// the separator boundary so /allowed-evil never matches root /allowed.
func (c *Config) matchRoot(path string) string {
	best := ""
	for _, root := range c.AllowedRoots {
		if path == root || strings.HasPrefix(path, root+string(filepath.Separator)) {
			if len(root) > len(best) {
				best = root
			}
		}
	}
	return best
}

// resolveExistingPrefix resolves symlinks in path. When path itself does not
// exist, the longest existing ancestor is resolved instead and the missing
// remainder appended, so create operations still validate the real location
// their writes will land in.
func resolveExistingPrefix(path string) (string, error) {
	real, err := filepath.EvalSymlinks(path)
	if err == nil {
		return real, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return "", err
	}

	prefix := path
	var missing []string
	for {
		parent := filepath.Dir(prefix)
		if parent == prefix {
			return "", err
		}
		missing = append(missing, filepath.Base(prefix))
		prefix = parent

		real, rerr := filepath.EvalSymlinks(prefix)
		if rerr == nil {
			for i := len(missing) - 1; i >= 0; i-- {
				real = filepath.Join(real, missing[i])
			}
			return real, nil
		}
		if !errors.Is(rerr, fs.ErrNotExist) {
			return "", rerr
		}
	}
}
