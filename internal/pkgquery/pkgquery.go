// Package pkgquery resolves installed Python distributions by scanning
// site-packages directories for their metadata.
package pkgquery

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mitchellh/go-homedir"

	"github.com/ironic-contrib/ibmc-install/internal/messages"
)

// ErrNotInstalled reports that the requested distribution was not found in any
// search directory.
var ErrNotInstalled = errors.New("not installed")

// Distribution describes a resolved installed distribution.
type Distribution struct {
	Name        string
	Version     string
	InstallRoot string // site-packages directory containing the package
	MetadataDir string // absolute path of the .egg-info / .dist-info directory
}

// Resolver resolves a distribution name to its installed location.
type Resolver interface {
	Resolve(name string) (Distribution, error)
}

// System abstracts the filesystem operations the resolver needs.
type System interface {
	Stat(name string) (os.FileInfo, error)
	ReadDir(name string) ([]os.DirEntry, error)
	ReadFile(name string) ([]byte, error)
}

// RealSystem implements System using the OS filesystem.
type RealSystem struct{}

// Stat returns a FileInfo describing the named file.
func (RealSystem) Stat(name string) (os.FileInfo, error) { return os.Stat(name) }

// ReadDir reads the named directory and returns its entries.
func (RealSystem) ReadDir(name string) ([]os.DirEntry, error) { return os.ReadDir(name) }

// ReadFile reads the named file and returns the contents.
func (RealSystem) ReadFile(name string) ([]byte, error) { return os.ReadFile(name) }

// DirResolver scans a fixed list of directories for distribution metadata.
type DirResolver struct {
	Sys        System
	SearchDirs []string
}

// DefaultSearchDirs returns the site-packages directories scanned when the
// operator supplies none: the usual system locations plus the invoking user's
// per-user site directory.
func DefaultSearchDirs() []string {
	patterns := []string{
		"/usr/lib/python3*/site-packages",
		"/usr/lib/python3*/dist-packages",
		"/usr/lib/python3/dist-packages",
		"/usr/local/lib/python3*/site-packages",
		"/usr/local/lib/python3*/dist-packages",
	}
	if home, err := homedir.Dir(); err == nil {
		patterns = append(patterns, filepath.Join(home, ".local", "lib", "python3*", "site-packages"))
	}
	var dirs []string
	seen := make(map[string]struct{})
	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			continue
		}
		sort.Strings(matches)
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			dirs = append(dirs, m)
		}
	}
	return dirs
}

// Resolve finds the named distribution in the configured search directories.
// The first directory containing matching metadata wins.
func (r DirResolver) Resolve(name string) (Distribution, error) {
	if len(r.SearchDirs) == 0 {
		return Distribution{}, fmt.Errorf("%s: %w", messages.ResolverNoSearchDirs, ErrNotInstalled)
	}
	for _, dir := range r.SearchDirs {
		entries, err := r.Sys.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			version, ok := matchMetadataDir(entry.Name(), name)
			if !ok {
				continue
			}
			metadataDir := filepath.Join(dir, entry.Name())
			if version == "" {
				version, err = r.versionFromMetadata(metadataDir)
				if err != nil {
					return Distribution{}, err
				}
			}
			return Distribution{
				Name:        name,
				Version:     version,
				InstallRoot: dir,
				MetadataDir: metadataDir,
			}, nil
		}
	}
	return Distribution{}, fmt.Errorf(messages.ResolverNotFoundFmt+": %w",
		name, strings.Join(r.SearchDirs, ", "), ErrNotInstalled)
}

// matchMetadataDir reports whether dirName is the metadata directory of the
// named distribution, returning the version encoded in the name when present.
// Recognized layouts: name-1.2.3.egg-info, name-1.2.3.dist-info, name.egg-info.
func matchMetadataDir(dirName string, name string) (string, bool) {
	var base string
	switch {
	case strings.HasSuffix(dirName, ".egg-info"):
		base = strings.TrimSuffix(dirName, ".egg-info")
	case strings.HasSuffix(dirName, ".dist-info"):
		base = strings.TrimSuffix(dirName, ".dist-info")
	default:
		return "", false
	}
	normalized := strings.ToLower(strings.ReplaceAll(base, "_", "-"))
	want := strings.ToLower(strings.ReplaceAll(name, "_", "-"))
	if normalized == want {
		return "", true
	}
	// The remainder after "name-" must be a version, not a longer package
	// name sharing the prefix (ironic- must not match ironic_inspector-).
	if strings.HasPrefix(normalized, want+"-") {
		version := base[len(want)+1:]
		if version != "" && version[0] >= '0' && version[0] <= '9' {
			return version, true
		}
	}
	return "", false
}

// versionFromMetadata reads the Version header from PKG-INFO or METADATA when
// the directory name carries no version.
func (r DirResolver) versionFromMetadata(metadataDir string) (string, error) {
	for _, candidate := range []string{"PKG-INFO", "METADATA"} {
		data, err := r.Sys.ReadFile(filepath.Join(metadataDir, candidate))
		if err != nil {
			continue
		}
		for _, line := range strings.Split(string(data), "\n") {
			if v, ok := strings.CutPrefix(line, "Version:"); ok {
				v = strings.TrimSpace(v)
				if v != "" {
					return v, nil
				}
			}
		}
	}
	return "", fmt.Errorf(messages.ResolverBadMetadataFmt, metadataDir)
}
