package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ironic-contrib/ibmc-install/internal/engine"
	"github.com/ironic-contrib/ibmc-install/internal/messages"
	"github.com/ironic-contrib/ibmc-install/internal/pkgquery"
	"github.com/ironic-contrib/ibmc-install/internal/terminal"
)

// isInteractiveFunc is swapped in tests to simulate non-interactive runs.
var isInteractiveFunc = terminal.IsInteractive

type rootFlags struct {
	dryRun       bool
	configPath   string
	sitePackages []string
	payloadDir   string
	yes          bool
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	cmd := &cobra.Command{
		Use:          messages.RootUse,
		Short:        messages.RootShort,
		Long:         messages.RootLong,
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			mode := engine.ModeApply
			if len(args) == 1 {
				switch args[0] {
				case "uninstall", "undo":
					mode = engine.ModeReverse
				default:
					_ = cmd.Usage()
					return fmt.Errorf(messages.RootUnknownModeFmt, args[0])
				}
			}
			return runPatch(cmd, mode, flags)
		},
	}
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, messages.FlagDryRun)
	cmd.Flags().StringVar(&flags.configPath, "config", "", messages.FlagConfig)
	cmd.Flags().StringArrayVar(&flags.sitePackages, "site-packages", nil, messages.FlagSitePackages)
	cmd.Flags().StringVar(&flags.payloadDir, "payload", "", messages.FlagPayload)
	cmd.Flags().BoolVar(&flags.yes, "yes", false, messages.FlagYes)
	return cmd
}

func runPatch(cmd *cobra.Command, mode engine.Mode, flags *rootFlags) error {
	searchDirs := flags.sitePackages
	if len(searchDirs) == 0 {
		searchDirs = pkgquery.DefaultSearchDirs()
	}
	opts := engine.Options{
		Resolver:       pkgquery.DirResolver{Sys: pkgquery.RealSystem{}, SearchDirs: searchDirs},
		Sys:            engine.RealSystem{},
		ConfigPath:     flags.configPath,
		PayloadDir:     flags.payloadDir,
		DryRun:         flags.dryRun,
		ConfirmReverse: confirmReverse(cmd, flags.yes),
		WarnWriter:     cmd.ErrOrStderr(),
	}

	result, err := engine.Run(mode, opts)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch result.Outcome {
	case engine.OutcomeApplied:
		_, _ = fmt.Fprint(out, color.GreenString(messages.ApplyDoneFmt, result.InstallRoot))
	case engine.OutcomeReversed:
		_, _ = fmt.Fprint(out, color.GreenString(messages.ReverseDoneFmt, result.InstallRoot))
	case engine.OutcomeAlreadyInstalled:
		_, _ = fmt.Fprint(out, messages.AlreadyInstalled)
	case engine.OutcomeNothingToReverse:
		_, _ = fmt.Fprint(out, messages.NothingToRemove)
	case engine.OutcomeDryRun:
		printPreviews(out, result)
	}
	return nil
}

func printPreviews(out io.Writer, result engine.Result) {
	any := false
	for _, preview := range result.Previews {
		if preview.Empty() {
			continue
		}
		if !any {
			_, _ = fmt.Fprint(out, messages.DryRunHeader)
			any = true
		}
		_, _ = fmt.Fprintln(out)
		_, _ = fmt.Fprintln(out, preview.UnifiedDiff)
	}
	if !any {
		_, _ = fmt.Fprint(out, messages.DryRunNoChanges)
	}
}

// confirmReverse gates best-effort removal from a partially patched install:
// --yes proceeds, an interactive terminal asks, anything else refuses.
func confirmReverse(cmd *cobra.Command, yes bool) func() (bool, error) {
	return func() (bool, error) {
		if yes {
			return true, nil
		}
		if !isInteractiveFunc() {
			return false, errors.New(messages.ReverseNeedsConfirmation)
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), messages.ConfirmPromptFmt, messages.ConfirmInconsistentReverse)
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil {
			return false, err
		}
		answer := strings.ToLower(strings.TrimSpace(line))
		return answer == "y" || answer == "yes", nil
	}
}
