package fsops_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wardenfs/warden/internal/sandbox"
	"github.com/wardenfs/warden/internal/shared/status"
)

func TestSearchByNameCaseInsensitive(t *testing.T) {
	svc, root := newService(t, nil)
	ctx := context.Background()

	require.NoError(t, os.MkdirAll(filepath.Join(root, "docs"), 0o755))
	for _, f := range []string{"README.md", "docs/Notes.MD", "docs/data.json"} {
		require.NoError(t, os.WriteFile(filepath.Join(root, f), []byte("x\n"), 0o644))
	}

	matches, truncated, err := svc.Search(ctx, root, "*.md", "", 0)
	require.NoError(t, err)
	assert.False(t, truncated)

	paths := make([]string, len(matches))
	for i, m := range matches {
		paths[i] = m.Path
	}
	assert.Equal(t, []string{"README.md", "docs/Notes.MD"}, paths)
}

func TestSearchByContent(t *testing.T) {
	svc, root := newService(t, nil)
	ctx := context.Background()

	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"),
		[]byte("first line\nneedle here\nlast\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "b.txt"),
		[]byte("no match\n"), 0o644))

	matches, truncated, err := svc.Search(ctx, root, "", "needle", 0)
	require.NoError(t, err)
	assert.False(t, truncated)
	require.Len(t, matches, 1)
	assert.Equal(t, "a.txt", matches[0].Path)
	assert.Equal(t, 2, matches[0].Line)
	assert.Equal(t, "needle here", matches[0].Text)
}

func TestSearchNameAndContentCombined(t *testing.T) {
	svc, root := newService(t, nil)
	ctx := context.Background()

	require.NoError(t, os.WriteFile(filepath.Join(root, "match.log"), []byte("needle\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "match.txt"), []byte("needle\n"), 0o644))

	matches, _, err := svc.Search(ctx, root, "*.log", "needle", 0)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "match.log", matches[0].Path)
}

func TestSearchSkipsBinaryFiles(t *testing.T) {
	svc, root := newService(t, nil)
	ctx := context.Background()

	bin := append([]byte("needle"), 0x00, 0x01, 0x02)
	require.NoError(t, os.WriteFile(filepath.Join(root, "blob.bin"), bin, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "plain.txt"), []byte("needle\n"), 0o644))

	matches, _, err := svc.Search(ctx, root, "", "needle", 0)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "plain.txt", matches[0].Path)
}

func TestSearchSkipsOversizedFiles(t *testing.T) {
	svc, root := newService(t, func(c *sandbox.Config) { c.MaxFileSize = 16 })
	ctx := context.Background()

	require.NoError(t, os.WriteFile(filepath.Join(root, "big.txt"),
		[]byte("needle needle needle needle\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "small.txt"), []byte("needle\n"), 0o644))

	matches, _, err := svc.Search(ctx, root, "", "needle", 0)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "small.txt", matches[0].Path)
}

func TestSearchExcludedSubtreePruned(t *testing.T) {
	svc, root := newService(t, nil)
	ctx := context.Background()

	require.NoError(t, os.MkdirAll(filepath.Join(root, ".git"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".git", "config"), []byte("needle\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "code.py"), []byte("needle\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "cache.pyc"), []byte("needle\n"), 0o644))

	matches, _, err := svc.Search(ctx, root, "", "needle", 0)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "code.py", matches[0].Path)
}

func TestSearchTruncation(t *testing.T) {
	svc, root := newService(t, nil)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		name := filepath.Join(root, fmt.Sprintf("f%02d.txt", i))
		require.NoError(t, os.WriteFile(name, []byte("x\n"), 0o644))
	}

	matches, truncated, err := svc.Search(ctx, root, "*.txt", "", 4)
	require.NoError(t, err)
	assert.True(t, truncated)
	assert.Len(t, matches, 4)
}

func TestSearchRequiresPattern(t *testing.T) {
	svc, root := newService(t, nil)

	_, _, err := svc.Search(context.Background(), root, "", "", 0)
	require.Error(t, err)
	assert.Equal(t, status.CodeInvalidPath, status.Of(err))
}

func TestSearchCancelled(t *testing.T) {
	svc, root := newService(t, nil)
	require.NoError(t, os.WriteFile(filepath.Join(root, "f.txt"), []byte("x\n"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := svc.Search(ctx, root, "*.txt", "", 0)
	require.Error(t, err)
	assert.Equal(t, status.CodeCancelled, status.Of(err))
}

func TestSearchSortedOutput(t *testing.T) {
	svc, root := newService(t, nil)
	ctx := context.Background()

	require.NoError(t, os.MkdirAll(filepath.Join(root, "z"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "a"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "z", "hit.txt"), []byte("x\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a", "hit.txt"), []byte("x\n"), 0o644))

	matches, _, err := svc.Search(ctx, root, "hit.txt", "", 0)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "a/hit.txt", matches[0].Path)
	assert.Equal(t, "z/hit.txt", matches[1].Path)
}
