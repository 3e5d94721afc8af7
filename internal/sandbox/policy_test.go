package sandbox

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wardenfs/warden/internal/shared/status"
)

func TestAuthorizeReadOnly(t *testing.T) {
	root := t.TempDir()
	cfg, err := (&Config{AllowedRoots: []string{root}, ReadOnly: true}).Normalize()
	require.NoError(t, err)

	resolved, err := cfg.Resolve(filepath.Join(root, "f.txt"))
	require.NoError(t, err)

	for _, op := range []Operation{OpWrite, OpDelete} {
		err := cfg.Authorize(resolved, op)
		require.Error(t, err, "op %s", op)
		assert.Equal(t, status.CodeForbidden, status.Of(err))
	}
	for _, op := range []Operation{OpRead, OpList} {
		assert.NoError(t, cfg.Authorize(resolved, op), "op %s", op)
	}
}

func TestAuthorizeExcludedSegment(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "repo", ".git", "objects"), 0o755))
	cfg := testConfig(t, root)

	// Excluded segments deny access at any depth, for explicit requests as
	// well as discovery.
	resolved, err := cfg.Resolve(filepath.Join(root, "repo", ".git", "objects", "abc"))
	require.NoError(t, err)
	err = cfg.Authorize(resolved, OpRead)
	require.Error(t, err)
	assert.Equal(t, status.CodeForbidden, status.Of(err))

	resolved, err = cfg.Resolve(filepath.Join(root, "repo", "main.go"))
	require.NoError(t, err)
	assert.NoError(t, cfg.Authorize(resolved, OpRead))
}

func TestAuthorizeWriteSizeLimit(t *testing.T) {
	root := t.TempDir()
	cfg, err := (&Config{AllowedRoots: []string{root}, MaxFileSize: 8}).Normalize()
	require.NoError(t, err)

	resolved, err := cfg.Resolve(filepath.Join(root, "f.txt"))
	require.NoError(t, err)

	assert.NoError(t, cfg.AuthorizeWrite(resolved, 8))

	err = cfg.AuthorizeWrite(resolved, 9)
	require.Error(t, err)
	assert.Equal(t, status.CodeTooLarge, status.Of(err))
}

func TestExcludedGlobs(t *testing.T) {
	cfg := &Config{ExcludePatterns: []string{"*.pyc", "__pycache__", ".git"}}

	assert.True(t, cfg.Excluded("module.pyc"))
	assert.True(t, cfg.Excluded("__pycache__"))
	assert.True(t, cfg.Excluded(".git"))
	assert.False(t, cfg.Excluded("module.py"))
	assert.False(t, cfg.Excluded("git"))
}
