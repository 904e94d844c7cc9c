package pkgquery

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_EggInfo(t *testing.T) {
	site := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(site, "ironic-21.4.0.egg-info"), 0o755))

	r := DirResolver{Sys: RealSystem{}, SearchDirs: []string{site}}
	dist, err := r.Resolve("ironic")
	require.NoError(t, err)
	assert.Equal(t, "ironic", dist.Name)
	assert.Equal(t, "21.4.0", dist.Version)
	assert.Equal(t, site, dist.InstallRoot)
	assert.Equal(t, filepath.Join(site, "ironic-21.4.0.egg-info"), dist.MetadataDir)
}

func TestResolve_DistInfo(t *testing.T) {
	site := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(site, "ironic-23.0.1.dist-info"), 0o755))

	r := DirResolver{Sys: RealSystem{}, SearchDirs: []string{site}}
	dist, err := r.Resolve("ironic")
	require.NoError(t, err)
	assert.Equal(t, "23.0.1", dist.Version)
}

func TestResolve_NameNormalization(t *testing.T) {
	site := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(site, "Ironic_Lib-5.0.0.egg-info"), 0o755))

	r := DirResolver{Sys: RealSystem{}, SearchDirs: []string{site}}
	dist, err := r.Resolve("ironic-lib")
	require.NoError(t, err)
	assert.Equal(t, "5.0.0", dist.Version)
}

func TestResolve_VersionFromPkgInfo(t *testing.T) {
	site := t.TempDir()
	meta := filepath.Join(site, "ironic.egg-info")
	require.NoError(t, os.Mkdir(meta, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(meta, "PKG-INFO"),
		[]byte("Metadata-Version: 2.1\nName: ironic\nVersion: 21.4.0\n"), 0o644))

	r := DirResolver{Sys: RealSystem{}, SearchDirs: []string{site}}
	dist, err := r.Resolve("ironic")
	require.NoError(t, err)
	assert.Equal(t, "21.4.0", dist.Version)
}

func TestResolve_UnversionedWithoutMetadataFails(t *testing.T) {
	site := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(site, "ironic.egg-info"), 0o755))

	r := DirResolver{Sys: RealSystem{}, SearchDirs: []string{site}}
	_, err := r.Resolve("ironic")
	assert.Error(t, err)
}

func TestResolve_NotInstalled(t *testing.T) {
	r := DirResolver{Sys: RealSystem{}, SearchDirs: []string{t.TempDir()}}
	_, err := r.Resolve("ironic")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotInstalled)
}

func TestResolve_NoSearchDirs(t *testing.T) {
	r := DirResolver{Sys: RealSystem{}}
	_, err := r.Resolve("ironic")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotInstalled)
}

func TestResolve_FirstDirectoryWins(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(first, "ironic-1.0.0.egg-info"), 0o755))
	require.NoError(t, os.Mkdir(filepath.Join(second, "ironic-2.0.0.egg-info"), 0o755))

	r := DirResolver{Sys: RealSystem{}, SearchDirs: []string{first, second}}
	dist, err := r.Resolve("ironic")
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", dist.Version)
}

func TestMatchMetadataDir(t *testing.T) {
	tests := []struct {
		dirName     string
		pkg         string
		wantVersion string
		wantOK      bool
	}{
		{"ironic-21.4.0.egg-info", "ironic", "21.4.0", true},
		{"ironic-21.4.0.dist-info", "ironic", "21.4.0", true},
		{"ironic.egg-info", "ironic", "", true},
		{"ironic_inspector-10.0.0.egg-info", "ironic", "", false},
		{"ironicclient-5.0.0.egg-info", "ironic", "", false},
		{"ironic", "ironic", "", false},
	}
	for _, tt := range tests {
		version, ok := matchMetadataDir(tt.dirName, tt.pkg)
		assert.Equal(t, tt.wantOK, ok, tt.dirName)
		assert.Equal(t, tt.wantVersion, version, tt.dirName)
	}
}
