// Package artifact identifies the Ironic files the installer mutates and
// resolves their on-disk locations.
package artifact

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ironic-contrib/ibmc-install/internal/messages"
	"github.com/ironic-contrib/ibmc-install/internal/pkgquery"
)

// Kind names one of the four files a patch run touches.
type Kind string

const (
	// KindInitModule is ironic/conf/__init__.py, where config option groups
	// are imported and registered.
	KindInitModule Kind = "conf-init-module"
	// KindExceptionModule is ironic/common/exception.py, which carries the
	// service's error-type definitions.
	KindExceptionModule Kind = "exception-module"
	// KindEntryPointRegistry is the installed entry_points.txt mapping
	// hardware type and interface names to implementations.
	KindEntryPointRegistry Kind = "entry-point-registry"
	// KindServiceConfig is ironic.conf with its enabled_* list keys.
	KindServiceConfig Kind = "service-config"
)

// Kinds lists every kind in the order artifacts are inspected and patched.
var Kinds = []Kind{KindInitModule, KindExceptionModule, KindEntryPointRegistry, KindServiceConfig}

// Artifact is one resolved target file.
type Artifact struct {
	Kind Kind
	Path string
}

// Set holds exactly one artifact per kind for one invocation.
type Set map[Kind]Artifact

// All returns the artifacts in canonical kind order.
func (s Set) All() []Artifact {
	out := make([]Artifact, 0, len(s))
	for _, k := range Kinds {
		if a, ok := s[k]; ok {
			out = append(out, a)
		}
	}
	return out
}

// ErrPathResolution reports that a derived artifact path does not exist.
var ErrPathResolution = errors.New("path resolution failed")

// DefaultConfigPath is where a packaged Ironic keeps its main configuration.
const DefaultConfigPath = "/etc/ironic/ironic.conf"

// System abstracts the filesystem operations the locator needs.
type System interface {
	Stat(name string) (os.FileInfo, error)
}

// Locator derives the four artifact paths from a resolved distribution.
type Locator struct {
	Sys System
	// ConfigPath overrides DefaultConfigPath when set.
	ConfigPath string
}

// Locate resolves every artifact path and verifies each exists on disk.
// It has no side effects.
func (l Locator) Locate(dist pkgquery.Distribution) (Set, error) {
	configPath := l.ConfigPath
	if configPath == "" {
		configPath = DefaultConfigPath
	}
	set := Set{
		KindInitModule:         {Kind: KindInitModule, Path: filepath.Join(dist.InstallRoot, "ironic", "conf", "__init__.py")},
		KindExceptionModule:    {Kind: KindExceptionModule, Path: filepath.Join(dist.InstallRoot, "ironic", "common", "exception.py")},
		KindEntryPointRegistry: {Kind: KindEntryPointRegistry, Path: filepath.Join(dist.MetadataDir, "entry_points.txt")},
		KindServiceConfig:      {Kind: KindServiceConfig, Path: configPath},
	}
	for _, a := range set.All() {
		if _, err := l.Sys.Stat(a.Path); err != nil {
			return nil, fmt.Errorf(messages.PathResolutionFmt+": %w", a.Kind, a.Path, ErrPathResolution)
		}
	}
	return set, nil
}
