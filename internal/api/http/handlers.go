// Package http translates REST requests into sandboxed filesystem operations
// and maps the result taxonomy back to HTTP status codes.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wardenfs/warden/internal/fsops"
	"github.com/wardenfs/warden/internal/infrastructure/logging"
	"github.com/wardenfs/warden/internal/sandbox"
)

// Handlers contains all HTTP handlers.
type Handlers struct {
	fs    *fsops.Service
	store *sandbox.Store
	log   *logging.Logger
}

// NewHandlers creates a new handler set.
func NewHandlers(fs *fsops.Service, store *sandbox.Store, log *logging.Logger) *Handlers {
	return &Handlers{fs: fs, store: store, log: log}
}

// Root handles the service banner.
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "warden",
		"version": "1.0.0",
	})
}

// Health handles detailed health checks.
func (h *Handlers) Health(c *gin.Context) {
	policy := h.store.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"policy": gin.H{
			"allowed_roots": len(policy.AllowedRoots),
			"read_only":     policy.ReadOnly,
		},
	})
}

type readRequest struct {
	Path string `json:"path" binding:"required"`
}

// ReadFile returns file contents.
func (h *Handlers) ReadFile(c *gin.Context) {
	var req readRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	data, err := h.fs.Read(c.Request.Context(), req.Path)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"path":    req.Path,
		"content": string(data),
		"size":    len(data),
	})
}

type writeRequest struct {
	Path    string `json:"path" binding:"required"`
	Content string `json:"content"`
}

// WriteFile replaces file contents atomically.
func (h *Handlers) WriteFile(c *gin.Context) {
	var req writeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := h.fs.Write(c.Request.Context(), req.Path, []byte(req.Content)); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"written": true,
		"path":    req.Path,
		"size":    len(req.Content),
	})
}

type deleteRequest struct {
	Path      string `json:"path" binding:"required"`
	Recursive bool   `json:"recursive"`
}

// DeleteFile removes a file or directory.
func (h *Handlers) DeleteFile(c *gin.Context) {
	var req deleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := h.fs.Delete(c.Request.Context(), req.Path, req.Recursive); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true, "path": req.Path})
}

type mkdirRequest struct {
	Path    string `json:"path" binding:"required"`
	Parents bool   `json:"parents"`
}

// Mkdir creates a directory.
func (h *Handlers) Mkdir(c *gin.Context) {
	var req mkdirRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := h.fs.Mkdir(c.Request.Context(), req.Path, req.Parents); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"created": true, "path": req.Path})
}

type moveRequest struct {
	Source      string `json:"source" binding:"required"`
	Destination string `json:"destination" binding:"required"`
	Overwrite   bool   `json:"overwrite"`
}

// MoveFile moves or renames a file or directory.
func (h *Handlers) MoveFile(c *gin.Context) {
	var req moveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := h.fs.Move(c.Request.Context(), req.Source, req.Destination, req.Overwrite); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"moved":       true,
		"source":      req.Source,
		"destination": req.Destination,
	})
}

type editRequest struct {
	Path  string                `json:"path" binding:"required"`
	Edits []fsops.EditOperation `json:"edits" binding:"required"`
}

// EditFile applies line-range edits and returns a unified diff.
func (h *Handlers) EditFile(c *gin.Context) {
	var req editRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.fs.ApplyEdits(c.Request.Context(), req.Path, req.Edits)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type statRequest struct {
	Path string `json:"path" binding:"required"`
}

// StatFile returns metadata for a single path.
func (h *Handlers) StatFile(c *gin.Context) {
	var req statRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	info, err := h.fs.Stat(c.Request.Context(), req.Path)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

type treeRequest struct {
	Path     string `json:"path" binding:"required"`
	MaxDepth int    `json:"max_depth"`
}

// Tree returns the directory structure under a path.
func (h *Handlers) Tree(c *gin.Context) {
	var req treeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	tree, err := h.fs.Tree(c.Request.Context(), req.Path, req.MaxDepth)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, tree)
}

type searchRequest struct {
	Path           string `json:"path" binding:"required"`
	NamePattern    string `json:"name_pattern"`
	ContentPattern string `json:"content_pattern"`
	MaxResults     int    `json:"max_results"`
}

// Search finds files by name glob and/or content substring.
func (h *Handlers) Search(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	matches, truncated, err := h.fs.Search(c.Request.Context(), req.Path, req.NamePattern, req.ContentPattern, req.MaxResults)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"matches":   matches,
		"count":     len(matches),
		"truncated": truncated,
	})
}

// GetPolicy returns the active sandbox policy.
func (h *Handlers) GetPolicy(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.Snapshot())
}

type policyRequest struct {
	AllowedPaths    []string `json:"allowed_paths" binding:"required"`
	ReadOnly        bool     `json:"read_only"`
	MaxFileSizeMB   int64    `json:"max_file_size_mb"`
	ExcludePatterns []string `json:"exclude_patterns"`
}

// UpdatePolicy atomically replaces the sandbox policy. In-flight requests
// finish under the snapshot they started with.
func (h *Handlers) UpdatePolicy(c *gin.Context) {
	var req policyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	updated, err := h.store.Swap(&sandbox.Config{
		AllowedRoots:    req.AllowedPaths,
		ReadOnly:        req.ReadOnly,
		MaxFileSize:     req.MaxFileSizeMB << 20,
		ExcludePatterns: req.ExcludePatterns,
	})
	if err != nil {
		badRequest(c, err)
		return
	}

	h.log.Info("sandbox policy updated")
	c.JSON(http.StatusOK, updated)
}
