// Package messages centralizes user-facing strings for the CLI and engine.
package messages

// CLI messages.
const (
	// RootUse is the CLI command usage line.
	RootUse = "ibmc-install [uninstall|undo]"
	// RootShort is the short description for the root command.
	RootShort = "Install or remove the iBMC hardware type from an Ironic deployment"
	RootLong  = "ibmc-install patches an installed Ironic service so it registers the Huawei iBMC\n" +
		"hardware type: the conf init module, the exception module, the entry-point\n" +
		"registry and ironic.conf are edited as one unit, and every edit can be undone.\n\n" +
		"With no argument the extension is installed. With \"uninstall\" (or \"undo\") the\n" +
		"edits are reversed, restoring backups where they exist."

	RootUnknownModeFmt = "unknown mode %q (expected no argument, \"uninstall\" or \"undo\")"

	FlagDryRun       = "Show the planned edits as unified diffs without touching any file"
	FlagConfig       = "Path to ironic.conf (default /etc/ironic/ironic.conf)"
	FlagSitePackages = "Directory to search for the installed ironic package (repeatable)"
	FlagPayload      = "Directory tree to copy under the ironic install root before patching"
	FlagYes          = "Proceed without confirmation when removing from a partially patched install"

	VersionTemplate  = "{{.Version}}\n"
	VersionCommitFmt = "commit %s"
	VersionBuildFmt  = "built %s"
	VersionFullFmt   = "%s (%s)"

	ApplyDoneFmt     = "iBMC hardware type installed into %s (restart the ironic-conductor service to activate)\n"
	ReverseDoneFmt   = "iBMC hardware type removed from %s (restart the ironic-conductor service to deactivate)\n"
	AlreadyInstalled = "iBMC hardware type is already installed; nothing to do\n"
	NothingToRemove  = "iBMC hardware type is not installed; nothing to do\n"
	DryRunHeader     = "Dry run: the following edits would be made\n"
	DryRunNoChanges  = "Dry run: no edits required\n"

	ConfirmInconsistentReverse = "The install is only partially patched; removal will be best-effort. Continue?"
	ConfirmPromptFmt           = "%s [y/N]: "
	ReverseNeedsConfirmation   = "partially patched install: re-run with --yes to remove best-effort, or restore backups manually"

	ReverseSkippedFmt = "Warning: %s: %v (file left untouched)\n"
)

// Engine and component diagnostics. Every failure names the artifact and the
// precondition that failed.
const (
	NotInstalledFmt      = "ironic does not appear to be installed: %v"
	PathResolutionFmt    = "%s: resolved path %s does not exist"
	InconsistentStateFmt = "install is partially patched; refusing to continue:\n%s"
	StateLineFmt         = "  %s (%s): %s"
	StateWordClean       = "clean"
	StateWordPatched     = "patched"
	StateWordPartialFmt  = "partially patched (%d of %d markers present)"

	BackupFailedFmt            = "%s: backup to %s failed: %v"
	BackupIncompleteNoMutation = "no file was modified"

	ExtractionFailedFmt = "payload extraction into %s failed: %v"

	ApplyAbortedFmt = "install aborted at %s: %w\nearlier edits in this run were NOT rolled back; " +
		"run \"ibmc-install uninstall\" or restore the .ibmc-orig backups to recover"
)

// Resolver messages.
const (
	ResolverNoSearchDirs   = "no site-packages directories to search"
	ResolverNotFoundFmt    = "package %s not found under: %s"
	ResolverBadMetadataFmt = "package metadata %s has no parseable version"
)
