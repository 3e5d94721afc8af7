package fsops

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/wardenfs/warden/internal/sandbox"
	"github.com/wardenfs/warden/internal/shared/status"
)

// FileInfo describes a single file or directory.
type FileInfo struct {
	Name        string    `json:"name"`
	Path        string    `json:"path"`
	Type        EntryType `json:"type"`
	Size        int64     `json:"size"`
	Mode        string    `json:"mode"`
	Modified    time.Time `json:"modified"`
	Created     time.Time `json:"created"`
	ContentType string    `json:"content_type,omitempty"`
}

// Read returns the full contents of a file. Files above the configured size
// limit are refused to protect memory even on the read path.
func (s *Service) Read(ctx context.Context, path string) (data []byte, err error) {
	defer func(start time.Time) { s.observe("read", start, err) }(time.Now())

	cfg, resolved, err := s.resolve(path, sandbox.OpRead)
	if err != nil {
		return nil, err
	}

	info, serr := os.Stat(resolved.Path)
	if serr != nil {
		return nil, statError(serr, "read", resolved)
	}
	if info.IsDir() {
		return nil, status.InvalidPath("%s is a directory", resolved.Rel())
	}
	if info.Size() > cfg.MaxFileSize {
		return nil, status.TooLarge("file %s is %d bytes, limit is %d", resolved.Rel(), info.Size(), cfg.MaxFileSize)
	}

	data, rerr := os.ReadFile(resolved.Path)
	if rerr != nil {
		return nil, statError(rerr, "read", resolved)
	}
	return data, nil
}

// Write replaces the contents of a file all-or-nothing: data lands in a
// temporary file in the destination directory and is renamed over the target,
// so concurrent readers never observe partial content. Missing parent
// directories are created, necessarily inside the sandbox since the resolved
// target is.
func (s *Service) Write(ctx context.Context, path string, data []byte) (err error) {
	defer func(start time.Time) { s.observe("write", start, err) }(time.Now())

	resolved, err := s.resolveForWrite(path, int64(len(data)))
	if err != nil {
		return err
	}

	if info, serr := os.Stat(resolved.Path); serr == nil && info.IsDir() {
		return status.Conflict("%s is a directory", resolved.Rel())
	}

	dir := filepath.Dir(resolved.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return status.Internal(err, "failed to create parent directories for %s", resolved.Rel())
	}
	return atomicWrite(resolved, data)
}

// resolveForWrite resolves path with the write size check applied.
func (s *Service) resolveForWrite(path string, size int64) (sandbox.Resolved, error) {
	cfg := s.store.Snapshot()
	resolved, err := cfg.Resolve(path)
	if err != nil {
		return sandbox.Resolved{}, err
	}
	if err := cfg.AuthorizeWrite(resolved, size); err != nil {
		return sandbox.Resolved{}, err
	}
	return resolved, nil
}

// atomicWrite writes data to a temp file next to the destination and renames
// it into place, removing the temp file on any failure.
func atomicWrite(resolved sandbox.Resolved, data []byte) error {
	dir := filepath.Dir(resolved.Path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(resolved.Path)+".*.tmp")
	if err != nil {
		return status.Internal(err, "failed to stage write for %s", resolved.Rel())
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return status.Internal(err, "failed to write %s", resolved.Rel())
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return status.Internal(err, "failed to write %s", resolved.Rel())
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return status.Internal(err, "failed to write %s", resolved.Rel())
	}
	if err := os.Rename(tmpName, resolved.Path); err != nil {
		os.Remove(tmpName)
		return status.Internal(err, "failed to replace %s", resolved.Rel())
	}
	return nil
}

// Delete removes a file or directory. Recursive deletes re-validate every
// descendant against the exclude patterns before anything is removed, using
// lstat semantics so symlinks inside the tree are removed as links and never
// followed.
func (s *Service) Delete(ctx context.Context, path string, recursive bool) (err error) {
	defer func(start time.Time) { s.observe("delete", start, err) }(time.Now())

	cfg, resolved, err := s.resolve(path, sandbox.OpDelete)
	if err != nil {
		return err
	}

	info, serr := os.Lstat(resolved.Path)
	if serr != nil {
		return statError(serr, "delete", resolved)
	}

	if !info.IsDir() {
		if rerr := os.Remove(resolved.Path); rerr != nil {
			return status.Internal(rerr, "failed to delete %s", resolved.Rel())
		}
		return nil
	}

	if !recursive {
		if rerr := os.Remove(resolved.Path); rerr != nil {
			return status.Conflict("directory %s is not empty", resolved.Rel())
		}
		return nil
	}

	walkErr := filepath.WalkDir(resolved.Path, func(p string, d fs.DirEntry, werr error) error {
		if cerr := checkCtx(ctx); cerr != nil {
			return cerr
		}
		if werr != nil {
			return status.Internal(werr, "failed to scan %s for deletion", resolved.Rel())
		}
		if p != resolved.Path && cfg.Excluded(d.Name()) {
			rel, _ := filepath.Rel(resolved.Root, p)
			return status.Forbidden("tree contains excluded entry: %s", rel)
		}
		return nil
	})
	if walkErr != nil {
		return walkErr
	}

	if rerr := os.RemoveAll(resolved.Path); rerr != nil {
		return status.Internal(rerr, "failed to delete %s", resolved.Rel())
	}
	return nil
}

// Mkdir creates a directory. With parents it behaves like mkdir -p and is
// idempotent; without, a missing ancestor is NotFound and an existing target
// is Conflict.
func (s *Service) Mkdir(ctx context.Context, path string, parents bool) (err error) {
	defer func(start time.Time) { s.observe("mkdir", start, err) }(time.Now())

	_, resolved, err := s.resolve(path, sandbox.OpWrite)
	if err != nil {
		return err
	}

	if parents {
		if merr := os.MkdirAll(resolved.Path, 0o755); merr != nil {
			return status.Internal(merr, "failed to create directory %s", resolved.Rel())
		}
		return nil
	}

	if merr := os.Mkdir(resolved.Path, 0o755); merr != nil {
		switch {
		case errors.Is(merr, fs.ErrExist):
			return status.Conflict("%s already exists", resolved.Rel())
		case errors.Is(merr, fs.ErrNotExist):
			return status.NotFound("parent directory of %s does not exist", resolved.Rel())
		default:
			return status.Internal(merr, "failed to create directory %s", resolved.Rel())
		}
	}
	return nil
}

// Move renames src to dst. Both ends are resolved and authorized
// independently, so a rename through a symlinked directory cannot escape the
// sandbox. An existing destination is a Conflict unless overwrite is set.
func (s *Service) Move(ctx context.Context, src, dst string, overwrite bool) (err error) {
	defer func(start time.Time) { s.observe("move", start, err) }(time.Now())

	_, from, err := s.resolve(src, sandbox.OpDelete)
	if err != nil {
		return err
	}
	_, to, err := s.resolve(dst, sandbox.OpWrite)
	if err != nil {
		return err
	}

	if _, serr := os.Lstat(from.Path); serr != nil {
		return statError(serr, "move", from)
	}
	if _, serr := os.Lstat(to.Path); serr == nil {
		if !overwrite {
			return status.Conflict("destination %s already exists", to.Rel())
		}
	}

	if rerr := os.Rename(from.Path, to.Path); rerr != nil {
		return status.Internal(rerr, "failed to move %s to %s", from.Rel(), to.Rel())
	}
	return nil
}

// Stat returns metadata for a single path, including a detected content type
// for regular files.
func (s *Service) Stat(ctx context.Context, path string) (info *FileInfo, err error) {
	defer func(start time.Time) { s.observe("stat", start, err) }(time.Now())

	_, resolved, err := s.resolve(path, sandbox.OpRead)
	if err != nil {
		return nil, err
	}

	fi, serr := os.Lstat(resolved.Path)
	if serr != nil {
		return nil, statError(serr, "stat", resolved)
	}

	info = &FileInfo{
		Name:     filepath.Base(resolved.Path),
		Path:     resolved.Rel(),
		Type:     entryType(fi),
		Size:     fi.Size(),
		Mode:     fi.Mode().String(),
		Modified: fi.ModTime(),
		Created:  createdTime(fi),
	}
	if fi.Mode().IsRegular() {
		if mtype, derr := mimetype.DetectFile(resolved.Path); derr == nil {
			info.ContentType = mtype.String()
		}
	}
	return info, nil
}

func entryType(fi fs.FileInfo) EntryType {
	switch {
	case fi.Mode()&fs.ModeSymlink != 0:
		return EntrySymlink
	case fi.IsDir():
		return EntryDir
	default:
		return EntryFile
	}
}

// statError maps OS errors to the result taxonomy, keeping only the
// root-relative path in messages.
func statError(err error, op string, resolved sandbox.Resolved) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return status.NotFound("%s: %s does not exist", op, resolved.Rel())
	case errors.Is(err, fs.ErrPermission):
		return status.Internal(err, "%s: permission denied for %s", op, resolved.Rel())
	default:
		return status.Internal(err, "%s failed for %s", op, resolved.Rel())
	}
}
