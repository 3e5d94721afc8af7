// Package sandbox implements the path allow-list that every filesystem
// operation is gated by: canonical path resolution (symlinks included),
// per-operation authorization, and the atomically swappable policy store.
package sandbox
