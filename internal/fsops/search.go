package fsops

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charlievieth/fastwalk"

	"github.com/wardenfs/warden/internal/sandbox"
	"github.com/wardenfs/warden/internal/shared/status"
)

// SearchMatch is one search hit. Line and Text are set only for content
// matches.
type SearchMatch struct {
	Path string `json:"path"`
	Line int    `json:"line,omitempty"`
	Text string `json:"text,omitempty"`
}

// binarySniffLen is how many leading bytes are inspected for null bytes when
// deciding whether a file is binary.
const binarySniffLen = 8192

// maxMatchesPerFile caps content hits reported for a single file.
const maxMatchesPerFile = 100

var errSearchDone = errors.New("search result limit reached")

// Search walks the subtree under path and reports files whose name matches
// namePattern (shell glob, case-insensitive) and/or whose content contains
// contentPattern. It applies the same exclude and symlink rules as the tree
// walk, skips binary files and files over the size limit for content
// matching, and stops once maxResults is reached. The walk is parallel, so
// when results are truncated the retained subset is whichever hits arrived
// first; output is sorted by path for stable responses.
func (s *Service) Search(ctx context.Context, path, namePattern, contentPattern string, maxResults int) (matches []SearchMatch, truncated bool, err error) {
	defer func(start time.Time) { s.observe("search", start, err) }(time.Now())

	if namePattern == "" && contentPattern == "" {
		return nil, false, status.InvalidPath("a name or content pattern is required")
	}
	if maxResults <= 0 {
		maxResults = 100
	}

	cfg, resolved, err := s.resolve(path, sandbox.OpList)
	if err != nil {
		return nil, false, err
	}

	nameGlob := strings.ToLower(namePattern)

	var mu sync.Mutex
	results := []SearchMatch{}

	add := func(batch ...SearchMatch) error {
		mu.Lock()
		defer mu.Unlock()
		for _, m := range batch {
			if len(results) >= maxResults {
				return errSearchDone
			}
			results = append(results, m)
		}
		return nil
	}

	conf := fastwalk.Config{Follow: false}
	walkErr := fastwalk.Walk(&conf, resolved.Path, func(p string, d os.DirEntry, werr error) error {
		if cerr := checkCtx(ctx); cerr != nil {
			return cerr
		}
		if werr != nil {
			return nil
		}
		if p == resolved.Path {
			return nil
		}
		if cfg.Excluded(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}

		if nameGlob != "" {
			matched, merr := doublestar.Match(nameGlob, strings.ToLower(d.Name()))
			if merr != nil {
				return status.InvalidPath("invalid name pattern: %v", merr)
			}
			if !matched {
				return nil
			}
		}

		rel, rerr := filepath.Rel(resolved.Path, p)
		if rerr != nil {
			return nil
		}

		if contentPattern == "" {
			return add(SearchMatch{Path: rel})
		}

		hits, serr := scanContent(p, contentPattern, cfg.MaxFileSize)
		if serr != nil || len(hits) == 0 {
			return nil
		}
		for i := range hits {
			hits[i].Path = rel
		}
		return add(hits...)
	})

	switch {
	case walkErr == nil:
	case errors.Is(walkErr, errSearchDone):
		truncated = true
	case status.Is(walkErr, status.CodeCancelled):
		return nil, false, walkErr
	case status.Is(walkErr, status.CodeInvalidPath):
		return nil, false, walkErr
	default:
		return nil, false, status.Internal(walkErr, "search failed under %s", resolved.Rel())
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Path != results[j].Path {
			return results[i].Path < results[j].Path
		}
		return results[i].Line < results[j].Line
	})
	return results, truncated, nil
}

// scanContent returns line matches for a substring query in one file, or nil
// when the file is too large or looks binary.
func scanContent(path, query string, maxSize int64) ([]SearchMatch, error) {
	info, err := os.Stat(path)
	if err != nil || info.Size() > maxSize {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	head := make([]byte, binarySniffLen)
	n, _ := f.Read(head)
	if bytes.IndexByte(head[:n], 0) >= 0 {
		return nil, nil
	}
	if _, err := f.Seek(0, 0); err != nil {
		return nil, err
	}

	queryBytes := []byte(query)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var hits []SearchMatch
	line := 1
	for scanner.Scan() {
		if bytes.Contains(scanner.Bytes(), queryBytes) {
			hits = append(hits, SearchMatch{Line: line, Text: scanner.Text()})
			if len(hits) >= maxMatchesPerFile {
				break
			}
		}
		line++
	}
	return hits, nil
}
