package fsops

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/wardenfs/warden/internal/sandbox"
	"github.com/wardenfs/warden/internal/shared/status"
)

// EntryType classifies a directory entry.
type EntryType string

const (
	EntryFile    EntryType = "file"
	EntryDir     EntryType = "dir"
	EntrySymlink EntryType = "symlink"
)

// TreeEntry is one event of a streaming walk: depth-first, pre-order.
type TreeEntry struct {
	// Path is relative to the walked root.
	Path  string    `json:"path"`
	Name  string    `json:"name"`
	Type  EntryType `json:"type"`
	Depth int       `json:"depth"`
}

// TreeNode is the materialized form of a subtree.
type TreeNode struct {
	Name     string      `json:"name"`
	Type     EntryType   `json:"type"`
	Children []*TreeNode `json:"children,omitempty"`
}

// ErrStopWalk stops a walk early without reporting an error.
var ErrStopWalk = status.New(status.CodeInternal, "walk stopped")

// Walk streams directory entries under path depth-first in pre-order,
// honoring exclude patterns (pruned with their whole subtree) and an optional
// maximum depth (0 means unlimited). Symlinked directories are emitted as
// symlink leaves and never entered, which also breaks directory cycles. The
// walk uses an explicit work stack rather than call-stack recursion so memory
// stays bounded and cancellation is checked between steps.
func (s *Service) Walk(ctx context.Context, path string, maxDepth int, fn func(TreeEntry) error) (err error) {
	defer func(start time.Time) { s.observe("tree", start, err) }(time.Now())

	cfg, resolved, err := s.resolve(path, sandbox.OpList)
	if err != nil {
		return err
	}

	info, serr := os.Lstat(resolved.Path)
	if serr != nil {
		return statError(serr, "list", resolved)
	}
	if !info.IsDir() {
		return status.InvalidPath("%s is not a directory", resolved.Rel())
	}

	type frame struct {
		path  string // relative to the walked root
		name  string
		typ   EntryType
		depth int
	}

	stack := []frame{}

	push := func(dirRel, dirAbs string, depth int) error {
		entries, rerr := os.ReadDir(dirAbs)
		if rerr != nil {
			// Unreadable directories are skipped, matching list semantics of
			// the rest of the walk rather than failing the whole stream.
			return nil
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
		// Reverse push so the lexically first entry is popped first.
		for i := len(entries) - 1; i >= 0; i-- {
			e := entries[i]
			name := e.Name()
			if cfg.Excluded(name) {
				continue
			}
			typ := EntryFile
			switch {
			case e.Type()&os.ModeSymlink != 0:
				typ = EntrySymlink
			case e.IsDir():
				typ = EntryDir
			}
			rel := name
			if dirRel != "" {
				rel = dirRel + "/" + name
			}
			stack = append(stack, frame{path: rel, name: name, typ: typ, depth: depth})
		}
		return nil
	}

	if err := push("", resolved.Path, 1); err != nil {
		return err
	}

	for len(stack) > 0 {
		if cerr := checkCtx(ctx); cerr != nil {
			return cerr
		}

		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if ferr := fn(TreeEntry{Path: f.path, Name: f.name, Type: f.typ, Depth: f.depth}); ferr != nil {
			if ferr == ErrStopWalk {
				return nil
			}
			return ferr
		}

		if f.typ == EntryDir && (maxDepth == 0 || f.depth < maxDepth) {
			if perr := push(f.path, filepath.Join(resolved.Path, filepath.FromSlash(f.path)), f.depth+1); perr != nil {
				return perr
			}
		}
	}
	return nil
}

// Tree materializes the walk into a nested structure rooted at path.
func (s *Service) Tree(ctx context.Context, path string, maxDepth int) (*TreeNode, error) {
	cfg := s.store.Snapshot()
	resolved, err := cfg.Resolve(path)
	if err != nil {
		return nil, err
	}

	root := &TreeNode{Name: filepath.Base(resolved.Path), Type: EntryDir}
	// parents[d] is the node receiving entries emitted at depth d+1.
	parents := []*TreeNode{root}

	err = s.Walk(ctx, path, maxDepth, func(e TreeEntry) error {
		node := &TreeNode{Name: e.Name, Type: e.Type}
		parent := parents[e.Depth-1]
		parent.Children = append(parent.Children, node)

		parents = parents[:e.Depth]
		if e.Type == EntryDir {
			parents = append(parents, node)
		} else {
			parents = append(parents, nil)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return root, nil
}
