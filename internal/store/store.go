// Package store manages ephemeral artifacts: uploaded input blobs and merged
// outputs. Every blob persisted during a request must eventually be removed
// again, whether the request succeeds or fails. Deletion is best-effort by
// contract: a failed delete is logged and swallowed, never surfaced to the
// caller.
package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Store is the ephemeral artifact store used by the merge pipeline.
type Store interface {
	// Put persists a blob under a fresh, collision-resistant handle starting
	// with the sanitized prefix. The returned handle is the blob's storage
	// identifier.
	Put(ctx context.Context, prefix, contentType string, r io.Reader) (string, error)

	// Open returns a reader over a previously stored blob.
	Open(ctx context.Context, handle string) (io.ReadCloser, error)

	// Remove deletes a blob. It is idempotent and never fails the caller;
	// a missing target is fine and any other error is logged and dropped.
	Remove(ctx context.Context, handle string)

	// RemoveAfter schedules deletion of a blob without blocking, so a
	// streamed download can finish before the blob disappears.
	RemoveAfter(handle string, delay time.Duration)

	// Sweep removes blobs older than maxAge and reports how many went away.
	// It exists so artifacts orphaned by a crash during a delayed-deletion
	// window still get cleaned up eventually.
	Sweep(ctx context.Context, maxAge time.Duration) int
}

// newHandle builds a storage identifier of the form "<prefix>-<uuid>". The
// uuid suffix guarantees concurrent requests never collide; the prefix keeps
// the handle matchable against client order descriptors.
func newHandle(prefix string) string {
	return sanitizePrefix(prefix) + "-" + uuid.New().String()
}

// sanitizePrefix strips anything that could escape the storage namespace.
func sanitizePrefix(prefix string) string {
	var b strings.Builder
	for _, r := range prefix {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '_' || r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	s := strings.Trim(b.String(), ". ")
	if len(s) > 100 {
		s = s[:100]
	}
	if s == "" {
		s = "blob"
	}
	return s
}

// Disk stores blobs as flat files under an injected root directory. The root
// is configuration, not a process-wide singleton, so tests and multiple
// instances can run isolated.
type Disk struct {
	root string
}

// NewDisk creates the root directory if needed and returns a disk store.
func NewDisk(root string) (*Disk, error) {
	if root == "" {
		return nil, fmt.Errorf("store: empty root directory")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("store: creating root: %w", err)
	}
	return &Disk{root: root}, nil
}

func (d *Disk) Put(ctx context.Context, prefix, contentType string, r io.Reader) (string, error) {
	handle := newHandle(prefix)
	path := filepath.Join(d.root, handle)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("store: creating %s: %w", handle, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("store: writing %s: %w", handle, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("store: closing %s: %w", handle, err)
	}
	return handle, nil
}

func (d *Disk) Open(ctx context.Context, handle string) (io.ReadCloser, error) {
	path, err := d.path(handle)
	if err != nil {
		return nil, err
	}
	return os.Open(path)
}

func (d *Disk) Remove(ctx context.Context, handle string) {
	path, err := d.path(handle)
	if err != nil {
		log.Printf("service=store msg=%q handle=%q err=%v", "remove_skipped", handle, err)
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("service=store msg=%q handle=%s err=%v", "delete_failed", handle, err)
	}
}

func (d *Disk) RemoveAfter(handle string, delay time.Duration) {
	time.AfterFunc(delay, func() {
		d.Remove(context.Background(), handle)
	})
}

func (d *Disk) Sweep(ctx context.Context, maxAge time.Duration) int {
	entries, err := os.ReadDir(d.root)
	if err != nil {
		log.Printf("service=store msg=%q err=%v", "sweep_readdir_failed", err)
		return 0
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(d.root, e.Name())); err != nil {
			log.Printf("service=store msg=%q handle=%s err=%v", "sweep_delete_failed", e.Name(), err)
			continue
		}
		removed++
	}
	return removed
}

// path validates a handle and maps it into the root. Handles are flat names;
// anything with a separator never came from Put.
func (d *Disk) path(handle string) (string, error) {
	if handle == "" || strings.ContainsAny(handle, `/\`) || strings.Contains(handle, "..") {
		return "", fmt.Errorf("store: invalid handle %q", handle)
	}
	return filepath.Join(d.root, handle), nil
}
