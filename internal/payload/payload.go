// Package payload copies the externally supplied driver file tree under the
// install root. The archive mechanics live outside this tool; by the time it
// runs, the payload is a plain directory.
package payload

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ironic-contrib/ibmc-install/internal/fsutil"
	"github.com/ironic-contrib/ibmc-install/internal/messages"
)

// ErrExtraction reports that applying the payload tree failed.
var ErrExtraction = errors.New("extraction failed")

// System abstracts the filesystem operations payload extraction needs.
type System interface {
	WalkDir(root string, fn fs.WalkDirFunc) error
	MkdirAll(path string, perm os.FileMode) error
	ReadFile(name string) ([]byte, error)
	WriteFileAtomic(filename string, data []byte, perm os.FileMode) error
}

// RealSystem implements System using the OS filesystem.
type RealSystem struct{}

// WalkDir walks the file tree rooted at root.
func (RealSystem) WalkDir(root string, fn fs.WalkDirFunc) error {
	return filepath.WalkDir(root, fn)
}

// MkdirAll creates a directory named path, along with any necessary parents.
func (RealSystem) MkdirAll(path string, perm os.FileMode) error {
	return os.MkdirAll(path, perm)
}

// ReadFile reads the named file and returns the contents.
func (RealSystem) ReadFile(name string) ([]byte, error) { return os.ReadFile(name) }

// WriteFileAtomic writes data to a file atomically via temp file and rename.
func (RealSystem) WriteFileAtomic(filename string, data []byte, perm os.FileMode) error {
	return fsutil.WriteFileAtomic(filename, data, perm)
}

// Extract mirrors srcDir under destDir, creating directories as needed and
// writing files atomically with their source permissions. Existing files are
// replaced; nothing outside the mirrored paths is touched.
func Extract(sys System, srcDir string, destDir string) error {
	err := sys.WalkDir(srcDir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		target := filepath.Join(destDir, rel)
		if d.IsDir() {
			return sys.MkdirAll(target, 0o755)
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		data, err := sys.ReadFile(path)
		if err != nil {
			return err
		}
		return sys.WriteFileAtomic(target, data, info.Mode().Perm())
	})
	if err != nil {
		return fmt.Errorf(messages.ExtractionFailedFmt+": %w", destDir, err, ErrExtraction)
	}
	return nil
}
