package fsops_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wardenfs/warden/internal/fsops"
	"github.com/wardenfs/warden/internal/sandbox"
	"github.com/wardenfs/warden/internal/shared/status"
)

func writeLines(t *testing.T, path string, lines ...string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
}

func TestApplyEditsSingleRange(t *testing.T) {
	svc, root := newService(t, nil)
	ctx := context.Background()

	path := filepath.Join(root, "file.txt")
	writeLines(t, path, "one", "two", "three", "four", "five")

	res, err := svc.ApplyEdits(ctx, path, []fsops.EditOperation{
		{StartLine: 3, EndLine: 3, Replacement: "THREE"},
	})
	require.NoError(t, err)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "one\ntwo\nTHREE\nfour\nfive\n", string(got))

	assert.Equal(t, 1, res.LinesAdded)
	assert.Equal(t, 1, res.LinesRemoved)
	assert.Contains(t, res.UnifiedDiff, "-three")
	assert.Contains(t, res.UnifiedDiff, "+THREE")
	assert.Contains(t, res.UnifiedDiff, "a/file.txt")
}

func TestApplyEditsUseOriginalLineNumbers(t *testing.T) {
	svc, root := newService(t, nil)
	ctx := context.Background()

	path := filepath.Join(root, "multi.txt")
	writeLines(t, path, "a", "b", "c", "d", "e")

	// The second edit expands the file; line numbers still address the
	// original content.
	res, err := svc.ApplyEdits(ctx, path, []fsops.EditOperation{
		{StartLine: 1, EndLine: 1, Replacement: "A1\nA2"},
		{StartLine: 4, EndLine: 5, Replacement: "D"},
	})
	require.NoError(t, err)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "A1\nA2\nb\nc\nD\n", string(got))
	assert.Equal(t, 3, res.LinesAdded)
	assert.Equal(t, 3, res.LinesRemoved)
}

func TestApplyEditsEmptyReplacementDeletes(t *testing.T) {
	svc, root := newService(t, nil)
	ctx := context.Background()

	path := filepath.Join(root, "del.txt")
	writeLines(t, path, "keep", "drop1", "drop2", "keep2")

	res, err := svc.ApplyEdits(ctx, path, []fsops.EditOperation{
		{StartLine: 2, EndLine: 3, Replacement: ""},
	})
	require.NoError(t, err)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "keep\nkeep2\n", string(got))
	assert.Equal(t, 0, res.LinesAdded)
	assert.Equal(t, 2, res.LinesRemoved)
}

func TestApplyEditsOverlapLeavesFileUntouched(t *testing.T) {
	svc, root := newService(t, nil)
	ctx := context.Background()

	path := filepath.Join(root, "overlap.txt")
	writeLines(t, path, "a", "b", "c", "d")
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	_, err = svc.ApplyEdits(ctx, path, []fsops.EditOperation{
		{StartLine: 1, EndLine: 2, Replacement: "x"},
		{StartLine: 2, EndLine: 3, Replacement: "y"},
	})
	require.Error(t, err)
	assert.Equal(t, status.CodeConflict, status.Of(err))

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestApplyEditsOutOfRange(t *testing.T) {
	svc, root := newService(t, nil)
	ctx := context.Background()

	path := filepath.Join(root, "short.txt")
	writeLines(t, path, "only", "two")
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	cases := []fsops.EditOperation{
		{StartLine: 0, EndLine: 1, Replacement: "x"},
		{StartLine: 3, EndLine: 2, Replacement: "x"},
		{StartLine: 1, EndLine: 9, Replacement: "x"},
	}
	for _, edit := range cases {
		_, err := svc.ApplyEdits(ctx, path, []fsops.EditOperation{edit})
		require.Error(t, err, "edit %+v", edit)
		assert.Equal(t, status.CodeInvalidPath, status.Of(err))
	}

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestApplyEditsEmptyBatch(t *testing.T) {
	svc, root := newService(t, nil)

	_, err := svc.ApplyEdits(context.Background(), filepath.Join(root, "f.txt"), nil)
	require.Error(t, err)
	assert.Equal(t, status.CodeInvalidPath, status.Of(err))
}

func TestApplyEditsReadOnly(t *testing.T) {
	svc, root := newService(t, func(c *sandbox.Config) { c.ReadOnly = true })

	path := filepath.Join(root, "ro.txt")
	writeLines(t, path, "a")

	_, err := svc.ApplyEdits(context.Background(), path, []fsops.EditOperation{
		{StartLine: 1, EndLine: 1, Replacement: "b"},
	})
	require.Error(t, err)
	assert.Equal(t, status.CodeForbidden, status.Of(err))
}

func TestApplyEditsPreservesMissingTrailingNewline(t *testing.T) {
	svc, root := newService(t, nil)
	ctx := context.Background()

	path := filepath.Join(root, "nonl.txt")
	require.NoError(t, os.WriteFile(path, []byte("a\nb"), 0o644))

	_, err := svc.ApplyEdits(ctx, path, []fsops.EditOperation{
		{StartLine: 1, EndLine: 1, Replacement: "A"},
	})
	require.NoError(t, err)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "A\nb", string(got))
}
