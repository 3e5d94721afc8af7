package sandbox

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
)

// DefaultMaxFileSizeMB is the size limit applied when none is configured.
const DefaultMaxFileSizeMB = 10

// DefaultExcludePatterns hide build and VCS artifacts from every operation.
var DefaultExcludePatterns = []string{"*.pyc", "__pycache__", ".git"}

// Config is one immutable policy snapshot. Requests read a snapshot once and
// use it for their whole lifetime; updates swap the whole value in the Store.
type Config struct {
	// AllowedRoots are absolute, symlink-resolved directories. Operations may
	// only touch paths equal to or below one of them.
	AllowedRoots []string `json:"allowed_roots"`

	// ReadOnly denies every mutating operation when set.
	ReadOnly bool `json:"read_only"`

	// MaxFileSize is the per-file byte limit for reads, writes and content search.
	MaxFileSize int64 `json:"max_file_size_bytes"`

	// ExcludePatterns are shell globs matched against individual path segments.
	ExcludePatterns []string `json:"exclude_patterns"`
}

// Normalize canonicalizes roots and applies defaults, returning a new Config.
// Every root must exist and be a directory at normalization time.
func (c *Config) Normalize() (*Config, error) {
	if len(c.AllowedRoots) == 0 {
		return nil, fmt.Errorf("at least one allowed root is required")
	}

	roots := make([]string, 0, len(c.AllowedRoots))
	for _, root := range c.AllowedRoots {
		if root == "" {
			return nil, fmt.Errorf("allowed root cannot be empty")
		}
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve root %s: %w", root, err)
		}
		real, err := filepath.EvalSymlinks(abs)
		if err != nil {
			return nil, fmt.Errorf("allowed root %s is not accessible: %w", root, err)
		}
		info, err := os.Stat(real)
		if err != nil {
			return nil, fmt.Errorf("allowed root %s is not accessible: %w", root, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("allowed root %s is not a directory", root)
		}
		roots = append(roots, real)
	}

	maxSize := c.MaxFileSize
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSizeMB << 20
	}

	patterns := c.ExcludePatterns
	if patterns == nil {
		patterns = append([]string(nil), DefaultExcludePatterns...)
	}

	return &Config{
		AllowedRoots:    roots,
		ReadOnly:        c.ReadOnly,
		MaxFileSize:     maxSize,
		ExcludePatterns: patterns,
	}, nil
}

// Store holds the process-wide policy. Snapshot and Swap are safe for
// concurrent use; in-flight requests keep the snapshot they started with and
// never observe a half-applied update.
type Store struct {
	current atomic.Pointer[Config]
	file    string
}

// NewStore validates cfg and creates a store. When file is non-empty, policy
// updates are persisted there as a flat JSON record.
func NewStore(cfg *Config, file string) (*Store, error) {
	normalized, err := cfg.Normalize()
	if err != nil {
		return nil, err
	}
	s := &Store{file: file}
	s.current.Store(normalized)
	return s, nil
}

// Snapshot returns the active policy. The returned value must not be mutated.
func (s *Store) Snapshot() *Config {
	return s.current.Load()
}

// Swap validates and atomically installs a new policy, persisting it when the
// store is file-backed. The previous policy stays active if validation or
// persistence fails.
func (s *Store) Swap(cfg *Config) (*Config, error) {
	normalized, err := cfg.Normalize()
	if err != nil {
		return nil, err
	}
	if s.file != "" {
		if err := savePolicy(s.file, normalized); err != nil {
			return nil, err
		}
	}
	s.current.Store(normalized)
	return normalized, nil
}

// policyRecord is the persisted form of a Config, matching the configuration
// surface exposed over the admin API.
type policyRecord struct {
	AllowedPaths    []string `json:"allowed_paths"`
	ReadOnly        bool     `json:"read_only"`
	MaxFileSizeMB   int64    `json:"max_file_size_mb"`
	ExcludePatterns []string `json:"exclude_patterns"`
}

// LoadPolicy reads a persisted policy record.
func LoadPolicy(file string) (*Config, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy file: %w", err)
	}
	var rec policyRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to parse policy file: %w", err)
	}
	return &Config{
		AllowedRoots:    rec.AllowedPaths,
		ReadOnly:        rec.ReadOnly,
		MaxFileSize:     rec.MaxFileSizeMB << 20,
		ExcludePatterns: rec.ExcludePatterns,
	}, nil
}

func savePolicy(file string, cfg *Config) error {
	rec := policyRecord{
		AllowedPaths:    cfg.AllowedRoots,
		ReadOnly:        cfg.ReadOnly,
		MaxFileSizeMB:   cfg.MaxFileSize >> 20,
		ExcludePatterns: cfg.ExcludePatterns,
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode policy: %w", err)
	}
	if err := os.WriteFile(file, data, 0o644); err != nil {
		return fmt.Errorf("failed to write policy file: %w", err)
	}
	return nil
}
