package inspect

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironic-contrib/ibmc-install/internal/artifact"
	"github.com/ironic-contrib/ibmc-install/internal/patchset"
)

func writeFile(t *testing.T, dir string, name string, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func testOps() patchset.Set {
	return patchset.Set{
		Extension: "ibmc",
		Operations: []patchset.Operation{
			{
				Kind:     patchset.OpInsertAfterMarker,
				Artifact: artifact.KindEntryPointRegistry,
				Marker:   "[ironic.hardware.types]",
				Payload:  "ibmc = ironic.drivers.ibmc:IBMCHardware",
			},
			{
				Kind:     patchset.OpAugmentListValue,
				Artifact: artifact.KindServiceConfig,
				Key:      "enabled_hardware_types",
				Value:    "ibmc",
			},
		},
	}
}

func testSet(registry string, config string) artifact.Set {
	return artifact.Set{
		artifact.KindEntryPointRegistry: {Kind: artifact.KindEntryPointRegistry, Path: registry},
		artifact.KindServiceConfig:      {Kind: artifact.KindServiceConfig, Path: config},
	}
}

func TestScan_Clean(t *testing.T) {
	dir := t.TempDir()
	registry := writeFile(t, dir, "entry_points.txt", "[ironic.hardware.types]\nipmi = x:Y\n")
	config := writeFile(t, dir, "ironic.conf", "[DEFAULT]\nenabled_hardware_types = ipmi\n")

	report, err := Scan(RealSystem{}, testSet(registry, config), testOps())
	require.NoError(t, err)
	assert.Equal(t, StateClean, report.State())
}

func TestScan_Patched(t *testing.T) {
	dir := t.TempDir()
	registry := writeFile(t, dir, "entry_points.txt",
		"[ironic.hardware.types]\nibmc = ironic.drivers.ibmc:IBMCHardware\nipmi = x:Y\n")
	config := writeFile(t, dir, "ironic.conf", "[DEFAULT]\nenabled_hardware_types = ipmi,ibmc\n")

	report, err := Scan(RealSystem{}, testSet(registry, config), testOps())
	require.NoError(t, err)
	assert.Equal(t, StatePatched, report.State())
}

func TestScan_Mixed(t *testing.T) {
	dir := t.TempDir()
	registry := writeFile(t, dir, "entry_points.txt",
		"[ironic.hardware.types]\nibmc = ironic.drivers.ibmc:IBMCHardware\n")
	config := writeFile(t, dir, "ironic.conf", "[DEFAULT]\nenabled_hardware_types = ipmi\n")

	report, err := Scan(RealSystem{}, testSet(registry, config), testOps())
	require.NoError(t, err)
	assert.Equal(t, StateInconsistent, report.State())

	described := report.Describe()
	assert.Contains(t, described, string(artifact.KindEntryPointRegistry))
	assert.Contains(t, described, "patched")
	assert.Contains(t, described, "clean")
}

func TestScan_ListTokenNeedsExactMatch(t *testing.T) {
	dir := t.TempDir()
	registry := writeFile(t, dir, "entry_points.txt", "[ironic.hardware.types]\n")
	// ibmc_other must not count as ibmc.
	config := writeFile(t, dir, "ironic.conf", "[DEFAULT]\nenabled_hardware_types = ibmc_other\n")

	report, err := Scan(RealSystem{}, testSet(registry, config), testOps())
	require.NoError(t, err)
	assert.Equal(t, StateClean, report.State())
}

func TestScan_PartiallyPatchedArtifact(t *testing.T) {
	ops := testOps()
	ops.Operations = append(ops.Operations, patchset.Operation{
		Kind:     patchset.OpInsertAfterMarker,
		Artifact: artifact.KindEntryPointRegistry,
		Marker:   "[ironic.hardware.interfaces.power]",
		Payload:  "ibmc = ironic.drivers.modules.ibmc.power:IBMCPower",
	})

	dir := t.TempDir()
	// One of two registry entries present.
	registry := writeFile(t, dir, "entry_points.txt",
		"[ironic.hardware.types]\nibmc = ironic.drivers.ibmc:IBMCHardware\n[ironic.hardware.interfaces.power]\n")
	config := writeFile(t, dir, "ironic.conf", "[DEFAULT]\nenabled_hardware_types = ipmi,ibmc\n")

	report, err := Scan(RealSystem{}, testSet(registry, config), ops)
	require.NoError(t, err)
	assert.Equal(t, StateInconsistent, report.State())
	assert.Contains(t, report.Describe(), "partially patched (1 of 2 markers present)")
}

func TestScan_ReadFailureAborts(t *testing.T) {
	dir := t.TempDir()
	config := writeFile(t, dir, "ironic.conf", "[DEFAULT]\n")
	set := testSet(filepath.Join(dir, "missing.txt"), config)

	_, err := Scan(RealSystem{}, set, testOps())
	assert.Error(t, err)
}
