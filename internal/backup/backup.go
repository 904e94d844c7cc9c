// Package backup performs copy-before-mutate of artifacts and restores them
// on removal. Backups are discovered purely by path convention: the original
// path plus Suffix, colocated with the original.
package backup

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ironic-contrib/ibmc-install/internal/fsutil"
	"github.com/ironic-contrib/ibmc-install/internal/messages"
)

// Suffix is appended to an artifact path to form its backup path.
const Suffix = ".ibmc-orig"

// ErrBackup reports that a pre-mutation copy failed. The whole run aborts
// before any artifact is mutated.
var ErrBackup = errors.New("backup failed")

// Record describes one live backup of one artifact.
type Record struct {
	OriginalPath string
	BackupPath   string
	CreatedAt    time.Time
}

// System abstracts the filesystem operations the backup manager needs.
type System interface {
	Stat(name string) (os.FileInfo, error)
	Remove(name string) error
	CopyFile(src string, dst string) error
}

// RealSystem implements System using the OS filesystem.
type RealSystem struct{}

// Stat returns a FileInfo describing the named file.
func (RealSystem) Stat(name string) (os.FileInfo, error) { return os.Stat(name) }

// Remove removes the named file.
func (RealSystem) Remove(name string) error { return os.Remove(name) }

// CopyFile copies src to dst byte for byte and syncs the copy.
func (RealSystem) CopyFile(src string, dst string) error { return fsutil.CopyFile(src, dst) }

// Manager creates, finds, restores and discards backups.
type Manager struct {
	Sys System
}

// Path returns the backup location for an original path.
func Path(original string) string {
	return original + Suffix
}

// Create copies every path to its backup location. The copies are flushed
// before Create returns, so a mutation that follows can always be undone.
// Any failure aborts the whole set with ErrBackup; completed copies are left
// in place (they are faithful copies and harmless).
func (m Manager) Create(paths []string) ([]Record, error) {
	records := make([]Record, 0, len(paths))
	for _, p := range paths {
		dst := Path(p)
		if err := m.Sys.CopyFile(p, dst); err != nil {
			return nil, fmt.Errorf(messages.BackupFailedFmt+": %w", p, dst, err, ErrBackup)
		}
		records = append(records, Record{OriginalPath: p, BackupPath: dst, CreatedAt: time.Now()})
	}
	return records, nil
}

// Find looks for a backup of original by path convention.
func (m Manager) Find(original string) (Record, bool) {
	dst := Path(original)
	if _, err := m.Sys.Stat(dst); err != nil {
		return Record{}, false
	}
	return Record{OriginalPath: original, BackupPath: dst}, true
}

// Restore copies the backup over the original verbatim and discards the
// backup. The original ends up byte-identical to its pre-patch content.
func (m Manager) Restore(rec Record) error {
	if err := m.Sys.CopyFile(rec.BackupPath, rec.OriginalPath); err != nil {
		return fmt.Errorf("restore %s from %s: %w", rec.OriginalPath, rec.BackupPath, err)
	}
	return m.Discard(rec)
}

// Discard removes the backup file once it is no longer needed.
func (m Manager) Discard(rec Record) error {
	if err := m.Sys.Remove(rec.BackupPath); err != nil {
		return fmt.Errorf("discard backup %s: %w", rec.BackupPath, err)
	}
	return nil
}
