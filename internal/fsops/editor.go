package fsops

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/wardenfs/warden/internal/shared/status"
)

// EditOperation replaces an inclusive 1-based line range of the original file
// with replacement text. Line numbers always refer to the file as it was
// before any edit in the batch, never to intermediate states.
type EditOperation struct {
	StartLine   int    `json:"start_line" binding:"required"`
	EndLine     int    `json:"end_line" binding:"required"`
	Replacement string `json:"replacement"`
}

// DiffResult reports the outcome of an edit batch.
type DiffResult struct {
	UnifiedDiff  string `json:"unified_diff"`
	LinesAdded   int    `json:"lines_added"`
	LinesRemoved int    `json:"lines_removed"`
}

// ApplyEdits applies a batch of line-range edits atomically: either every
// edit is valid and the file is replaced in one rename, or the file is left
// byte-identical to before the call. Overlapping ranges are a Conflict;
// out-of-range lines are InvalidPath. Edits are applied high-to-low so each
// range indexes the original content.
func (s *Service) ApplyEdits(ctx context.Context, path string, edits []EditOperation) (res *DiffResult, err error) {
	defer func(start time.Time) { s.observe("edit", start, err) }(time.Now())

	if len(edits) == 0 {
		return nil, status.InvalidPath("at least one edit is required")
	}

	// Fail fast on read-only mode before reading anything.
	resolved, err := s.resolveForWrite(path, 0)
	if err != nil {
		return nil, err
	}

	original, err := s.Read(ctx, path)
	if err != nil {
		return nil, err
	}
	if cerr := checkCtx(ctx); cerr != nil {
		return nil, cerr
	}

	lines := splitLines(string(original))

	ordered := make([]EditOperation, len(edits))
	copy(ordered, edits)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].StartLine > ordered[j].StartLine
	})

	for i, e := range ordered {
		if e.StartLine < 1 || e.EndLine < e.StartLine {
			return nil, status.InvalidPath("edit has invalid line range [%d, %d]", e.StartLine, e.EndLine)
		}
		if e.EndLine > len(lines) {
			return nil, status.InvalidPath("edit range [%d, %d] exceeds file length %d", e.StartLine, e.EndLine, len(lines))
		}
		if i > 0 && e.EndLine >= ordered[i-1].StartLine {
			return nil, status.Conflict("edits have overlapping line ranges")
		}
	}

	for _, e := range ordered {
		var repl []string
		if e.Replacement != "" {
			repl = strings.Split(e.Replacement, "\n")
		}
		updated := make([]string, 0, len(lines)-(e.EndLine-e.StartLine+1)+len(repl))
		updated = append(updated, lines[:e.StartLine-1]...)
		updated = append(updated, repl...)
		updated = append(updated, lines[e.EndLine:]...)
		lines = updated
	}

	final := strings.Join(lines, "\n")
	if len(original) > 0 && original[len(original)-1] == '\n' {
		final += "\n"
	}

	diff, added, removed, derr := unifiedDiff(string(original), final, resolved.Rel())
	if derr != nil {
		return nil, status.Internal(derr, "failed to compute diff for %s", resolved.Rel())
	}

	if err := s.Write(ctx, path, []byte(final)); err != nil {
		return nil, err
	}

	return &DiffResult{UnifiedDiff: diff, LinesAdded: added, LinesRemoved: removed}, nil
}

// splitLines splits content into lines without terminators. A trailing
// newline does not produce a phantom empty line.
func splitLines(content string) []string {
	if content == "" {
		return nil
	}
	content = strings.TrimSuffix(content, "\n")
	return strings.Split(content, "\n")
}

// unifiedDiff renders an LCS-based unified diff and counts changed lines.
func unifiedDiff(before, after, name string) (string, int, int, error) {
	text, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(before),
		B:        difflib.SplitLines(after),
		FromFile: "a/" + name,
		ToFile:   "b/" + name,
		Context:  3,
	})
	if err != nil {
		return "", 0, 0, err
	}

	var added, removed int
	for _, line := range strings.Split(text, "\n") {
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
		case strings.HasPrefix(line, "+"):
			added++
		case strings.HasPrefix(line, "-"):
			removed++
		}
	}
	return text, added, removed, nil
}
