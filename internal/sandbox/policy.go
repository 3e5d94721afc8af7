package sandbox

import (
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/wardenfs/warden/internal/shared/status"
)

// Operation is the intent a path is authorized for.
type Operation string

const (
	OpRead   Operation = "read"
	OpWrite  Operation = "write"
	OpDelete Operation = "delete"
	OpList   Operation = "list"
)

func (op Operation) mutating() bool {
	return op == OpWrite || op == OpDelete
}

// Authorize decides whether the resolved path may be used for op under this
// policy. Checks run in order: sandbox membership, read-only mode, exclude
// patterns. Exclusion applies to explicit access the same as to discovery.
func (c *Config) Authorize(r Resolved, op Operation) error {
	if r.Root == "" {
		return status.Forbidden("path outside allowed directories")
	}
	if c.ReadOnly && op.mutating() {
		return status.Forbidden("server is in read-only mode")
	}
	if seg := c.excludedSegment(r); seg != "" {
		return status.Forbidden("path matches excluded pattern: %s", seg)
	}
	return nil
}

// AuthorizeWrite authorizes a write of a known content length, adding the
// size-limit check.
func (c *Config) AuthorizeWrite(r Resolved, size int64) error {
	if err := c.Authorize(r, OpWrite); err != nil {
		return err
	}
	if size > c.MaxFileSize {
		return status.TooLarge("content size %d exceeds limit of %d bytes", size, c.MaxFileSize)
	}
	return nil
}

// Excluded reports whether a single path segment matches an exclude pattern.
// Patterns use shell-glob semantics against segments, so "__pycache__"
// excludes any directory with that name at any depth.
func (c *Config) Excluded(name string) bool {
	for _, pattern := range c.ExcludePatterns {
		if ok, err := doublestar.Match(pattern, name); err == nil && ok {
			return true
		}
	}
	return false
}

// excludedSegment returns the first segment of the path under its root that
// matches an exclude pattern, or "" if none do.
func (c *Config) excludedSegment(r Resolved) string {
	rel := r.Rel()
	if rel == "." {
		return ""
	}
	for _, seg := range strings.Split(rel, string(filepath.Separator)) {
		if c.Excluded(seg) {
			return seg
		}
	}
	return ""
}
