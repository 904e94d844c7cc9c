package engine

import (
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ironic-contrib/ibmc-install/internal/fsutil"
)

// System abstracts every filesystem operation a patch run performs. One value
// is shared with the locator, inspector, backup manager and payload step, so
// tests can point a whole run at a temporary directory.
type System interface {
	Stat(name string) (os.FileInfo, error)
	ReadFile(name string) ([]byte, error)
	WriteFileAtomic(filename string, data []byte, perm os.FileMode) error
	Remove(name string) error
	CopyFile(src string, dst string) error
	MkdirAll(path string, perm os.FileMode) error
	WalkDir(root string, fn fs.WalkDirFunc) error
}

// RealSystem implements System using the OS filesystem.
type RealSystem struct{}

// Stat returns a FileInfo describing the named file.
func (RealSystem) Stat(name string) (os.FileInfo, error) { return os.Stat(name) }

// ReadFile reads the named file and returns the contents.
func (RealSystem) ReadFile(name string) ([]byte, error) { return os.ReadFile(name) }

// WriteFileAtomic writes data to a file atomically via temp file and rename.
func (RealSystem) WriteFileAtomic(filename string, data []byte, perm os.FileMode) error {
	return fsutil.WriteFileAtomic(filename, data, perm)
}

// Remove removes the named file.
func (RealSystem) Remove(name string) error { return os.Remove(name) }

// CopyFile copies src to dst byte for byte and syncs the copy.
func (RealSystem) CopyFile(src string, dst string) error { return fsutil.CopyFile(src, dst) }

// MkdirAll creates a directory named path, along with any necessary parents.
func (RealSystem) MkdirAll(path string, perm os.FileMode) error { return os.MkdirAll(path, perm) }

// WalkDir walks the file tree rooted at root.
func (RealSystem) WalkDir(root string, fn fs.WalkDirFunc) error {
	return filepath.WalkDir(root, fn)
}
