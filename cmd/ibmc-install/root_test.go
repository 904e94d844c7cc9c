package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testInitModule = `from oslo_config import cfg

from ironic.conf import agent
from ironic.conf import glance

conf = cfg.CONF

agent.register_opts(conf)
glance.register_opts(conf)
`

const testExceptionModule = `class IronicException(Exception):
    _msg_fmt = "An unknown exception occurred."
`

const testEntryPoints = `[ironic.hardware.types]
ipmi = ironic.drivers.ipmi:IPMIHardware

[ironic.hardware.interfaces.management]
ipmitool = ironic.drivers.modules.ipmitool:IPMIManagement

[ironic.hardware.interfaces.power]
ipmitool = ironic.drivers.modules.ipmitool:IPMIPower

[ironic.hardware.interfaces.vendor]
ipmitool = ironic.drivers.modules.ipmitool:VendorPassthru
`

const testServiceConfig = `[DEFAULT]
enabled_hardware_types = ipmi
enabled_management_interfaces = ipmitool
enabled_power_interfaces = ipmitool
enabled_vendor_interfaces = ipmitool
`

type cliFixture struct {
	site       string
	configPath string
	registry   string
}

func newCLIFixture(t *testing.T) *cliFixture {
	t.Helper()
	site := t.TempDir()
	meta := filepath.Join(site, "ironic-21.4.0.egg-info")
	require.NoError(t, os.MkdirAll(meta, 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(site, "ironic", "conf"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(site, "ironic", "common"), 0o755))

	configPath := filepath.Join(t.TempDir(), "ironic.conf")
	registry := filepath.Join(meta, "entry_points.txt")
	files := map[string]string{
		filepath.Join(site, "ironic", "conf", "__init__.py"):     testInitModule,
		filepath.Join(site, "ironic", "common", "exception.py"):  testExceptionModule,
		registry:   testEntryPoints,
		configPath: testServiceConfig,
	}
	for path, content := range files {
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return &cliFixture{site: site, configPath: configPath, registry: registry}
}

func (f *cliFixture) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(append(args, "--site-packages", f.site, "--config", f.configPath))
	err := cmd.Execute()
	return buf.String(), err
}

func TestRoot_UnknownModePrintsUsage(t *testing.T) {
	f := newCLIFixture(t)
	out, err := f.run(t, "bogus")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown mode "bogus"`)
	assert.Contains(t, out, "Usage:")
}

func TestRoot_ApplyThenUninstall(t *testing.T) {
	f := newCLIFixture(t)

	out, err := f.run(t)
	require.NoError(t, err)
	assert.Contains(t, out, "installed into "+f.site)

	config, readErr := os.ReadFile(f.configPath)
	require.NoError(t, readErr)
	assert.Contains(t, string(config), "enabled_hardware_types = ipmi,ibmc")

	out, err = f.run(t, "uninstall")
	require.NoError(t, err)
	assert.Contains(t, out, "removed from "+f.site)

	config, readErr = os.ReadFile(f.configPath)
	require.NoError(t, readErr)
	assert.Equal(t, testServiceConfig, string(config))
}

func TestRoot_UndoIsUninstall(t *testing.T) {
	f := newCLIFixture(t)
	_, err := f.run(t)
	require.NoError(t, err)

	out, err := f.run(t, "undo")
	require.NoError(t, err)
	assert.Contains(t, out, "removed from "+f.site)
}

func TestRoot_ApplyTwiceReportsAlreadyInstalled(t *testing.T) {
	f := newCLIFixture(t)
	_, err := f.run(t)
	require.NoError(t, err)

	out, err := f.run(t)
	require.NoError(t, err)
	assert.Contains(t, out, "already installed")
}

func TestRoot_UninstallCleanReportsNothingToDo(t *testing.T) {
	f := newCLIFixture(t)
	out, err := f.run(t, "uninstall")
	require.NoError(t, err)
	assert.Contains(t, out, "not installed")
}

func TestRoot_DryRunShowsDiffsWithoutMutating(t *testing.T) {
	f := newCLIFixture(t)

	out, err := f.run(t, "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "Dry run")
	assert.Contains(t, out, "+ibmc = ironic.drivers.ibmc:IBMCHardware")

	config, readErr := os.ReadFile(f.configPath)
	require.NoError(t, readErr)
	assert.Equal(t, testServiceConfig, string(config))
}

func TestRoot_InconsistentUninstallRequiresYesWhenNotInteractive(t *testing.T) {
	f := newCLIFixture(t)

	orig := isInteractiveFunc
	t.Cleanup(func() { isInteractiveFunc = orig })
	isInteractiveFunc = func() bool { return false }

	// Patch only the registry by hand.
	data, err := os.ReadFile(f.registry)
	require.NoError(t, err)
	patched := strings.Replace(string(data),
		"[ironic.hardware.types]\n",
		"[ironic.hardware.types]\nibmc = ironic.drivers.ibmc:IBMCHardware\n", 1)
	require.NoError(t, os.WriteFile(f.registry, []byte(patched), 0o644))

	_, err = f.run(t, "uninstall")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--yes")

	out, err := f.run(t, "uninstall", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "removed from "+f.site)
}

func TestRoot_InconsistentUninstallPromptsWhenInteractive(t *testing.T) {
	f := newCLIFixture(t)

	orig := isInteractiveFunc
	t.Cleanup(func() { isInteractiveFunc = orig })
	isInteractiveFunc = func() bool { return true }

	data, err := os.ReadFile(f.registry)
	require.NoError(t, err)
	patched := strings.Replace(string(data),
		"[ironic.hardware.types]\n",
		"[ironic.hardware.types]\nibmc = ironic.drivers.ibmc:IBMCHardware\n", 1)
	require.NoError(t, os.WriteFile(f.registry, []byte(patched), 0o644))

	cmd := newRootCmd()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetIn(strings.NewReader("y\n"))
	cmd.SetArgs([]string{"uninstall", "--site-packages", f.site, "--config", f.configPath})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "Continue?")
	assert.Contains(t, buf.String(), "removed from "+f.site)
}

func TestRoot_PayloadFlag(t *testing.T) {
	f := newCLIFixture(t)

	payloadDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(payloadDir, "ironic", "drivers"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(payloadDir, "ironic", "drivers", "ibmc.py"),
		[]byte("# driver\n"), 0o644))

	_, err := f.run(t, "--payload", payloadDir)
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(f.site, "ironic", "drivers", "ibmc.py"))
	assert.NoError(t, err)
}
