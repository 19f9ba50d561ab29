// Package storage persists uploaded audio files on local disk.
//
// Files are stored flat under a single root directory using random names so
// that uploads with identical original filenames never collide. The database
// record, not the filename, is the source of truth for original names and
// metadata.
package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Disk stores files under a root directory on the local filesystem.
type Disk struct {
	root string
}

// NewDisk creates a Disk rooted at root. The directory is created on first
// save, not here, so constructing a Disk never touches the filesystem.
func NewDisk(root string) *Disk {
	return &Disk{root: root}
}

// Root returns the storage root directory.
func (d *Disk) Root() string {
	return d.root
}

// Save streams r into a new file under the root, named by a fresh UUID plus
// ext (which must include the leading dot, e.g. ".wav"). It returns the
// generated filename, the absolute path, and the number of bytes written.
func (d *Disk) Save(ext string, r io.Reader) (name, path string, size int64, err error) {
	if err := os.MkdirAll(d.root, 0o755); err != nil {
		return "", "", 0, fmt.Errorf("storage: create root: %w", err)
	}

	name = uuid.NewString() + ext
	path = filepath.Join(d.root, name)

	f, err := os.Create(path)
	if err != nil {
		return "", "", 0, fmt.Errorf("storage: create file: %w", err)
	}

	size, err = io.Copy(f, r)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		return "", "", 0, fmt.Errorf("storage: write file: %w", err)
	}
	return name, path, size, nil
}

// Remove deletes the named file. A missing file is not an error; deletion is
// best-effort cleanup and the record may already be gone.
func (d *Disk) Remove(name string) error {
	err := os.Remove(filepath.Join(d.root, name))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("storage: remove file: %w", err)
	}
	return nil
}

// Path returns the absolute path of the named file without checking that it
// exists.
func (d *Disk) Path(name string) string {
	return filepath.Join(d.root, name)
}
