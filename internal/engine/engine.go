// Package engine orchestrates one install or removal run: locate the
// artifacts, inspect their state, gate the mutation, back up, then apply or
// reverse the patch set as a single logical unit.
package engine

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ironic-contrib/ibmc-install/internal/artifact"
	"github.com/ironic-contrib/ibmc-install/internal/backup"
	"github.com/ironic-contrib/ibmc-install/internal/inspect"
	"github.com/ironic-contrib/ibmc-install/internal/messages"
	"github.com/ironic-contrib/ibmc-install/internal/patch"
	"github.com/ironic-contrib/ibmc-install/internal/patchset"
	"github.com/ironic-contrib/ibmc-install/internal/payload"
	"github.com/ironic-contrib/ibmc-install/internal/pkgquery"
)

// PackageName is the host distribution the installer targets.
const PackageName = "ironic"

// Mode selects the direction of a run.
type Mode int

const (
	// ModeApply installs the extension.
	ModeApply Mode = iota
	// ModeReverse removes it.
	ModeReverse
)

// Outcome reports what a completed run did.
type Outcome int

const (
	// OutcomeApplied means the extension was installed.
	OutcomeApplied Outcome = iota
	// OutcomeReversed means the extension was removed.
	OutcomeReversed
	// OutcomeAlreadyInstalled means apply found a fully patched install and
	// changed nothing.
	OutcomeAlreadyInstalled
	// OutcomeNothingToReverse means reverse found a clean install and changed
	// nothing.
	OutcomeNothingToReverse
	// OutcomeDryRun means edits were previewed but no file was touched.
	OutcomeDryRun
)

// Result is the successful outcome of a run.
type Result struct {
	Outcome     Outcome
	InstallRoot string
	// Previews holds per-artifact unified diffs; populated on dry runs.
	Previews []patch.Preview
}

// Options configures a run.
type Options struct {
	Resolver pkgquery.Resolver
	Sys      System
	// ConfigPath overrides the default ironic.conf location.
	ConfigPath string
	// PayloadDir, when set, is a driver file tree copied under the install
	// root before structural patching (apply only).
	PayloadDir string
	// DryRun previews the edits without creating backups or touching files.
	DryRun bool
	// ConfirmReverse is consulted before reversing a partially patched
	// install. Nil means refuse.
	ConfirmReverse func() (bool, error)
	// WarnWriter receives non-fatal reversal diagnostics. Defaults to stderr.
	WarnWriter io.Writer
}

type run struct {
	sys  System
	ops  patchset.Set
	set  artifact.Set
	mgr  backup.Manager
	warn io.Writer
}

// Run executes one invocation. Pre-mutation failures (resolution, inspection,
// state gate, backups) abort with zero side effects; the returned error names
// the artifact and the precondition that failed.
func Run(mode Mode, opts Options) (Result, error) {
	warn := opts.WarnWriter
	if warn == nil {
		warn = os.Stderr
	}

	dist, err := opts.Resolver.Resolve(PackageName)
	if err != nil {
		return Result{}, fmt.Errorf(messages.NotInstalledFmt, err)
	}
	locator := artifact.Locator{Sys: opts.Sys, ConfigPath: opts.ConfigPath}
	set, err := locator.Locate(dist)
	if err != nil {
		return Result{}, err
	}
	ops, err := patchset.Load()
	if err != nil {
		return Result{}, err
	}
	report, err := inspect.Scan(opts.Sys, set, ops)
	if err != nil {
		return Result{}, err
	}
	state := report.State()

	r := &run{
		sys:  opts.Sys,
		ops:  ops,
		set:  set,
		mgr:  backup.Manager{Sys: opts.Sys},
		warn: warn,
	}

	switch mode {
	case ModeApply:
		switch state {
		case inspect.StatePatched:
			return Result{Outcome: OutcomeAlreadyInstalled, InstallRoot: dist.InstallRoot}, nil
		case inspect.StateInconsistent:
			return Result{}, fmt.Errorf(messages.InconsistentStateFmt, report.Describe())
		}
		if opts.DryRun {
			previews, err := r.applyPreviews()
			if err != nil {
				return Result{}, err
			}
			return Result{Outcome: OutcomeDryRun, InstallRoot: dist.InstallRoot, Previews: previews}, nil
		}
		if err := r.apply(opts.PayloadDir, dist.InstallRoot); err != nil {
			return Result{}, err
		}
		return Result{Outcome: OutcomeApplied, InstallRoot: dist.InstallRoot}, nil

	case ModeReverse:
		if state == inspect.StateClean {
			return Result{Outcome: OutcomeNothingToReverse, InstallRoot: dist.InstallRoot}, nil
		}
		if state == inspect.StateInconsistent {
			if opts.ConfirmReverse == nil {
				return Result{}, errors.New(messages.ReverseNeedsConfirmation)
			}
			ok, err := opts.ConfirmReverse()
			if err != nil {
				return Result{}, err
			}
			if !ok {
				return Result{}, errors.New(messages.ReverseNeedsConfirmation)
			}
		}
		if opts.DryRun {
			previews, err := r.reversePreviews()
			if err != nil {
				return Result{}, err
			}
			return Result{Outcome: OutcomeDryRun, InstallRoot: dist.InstallRoot, Previews: previews}, nil
		}
		if err := r.reverse(); err != nil {
			return Result{}, err
		}
		return Result{Outcome: OutcomeReversed, InstallRoot: dist.InstallRoot}, nil

	default:
		return Result{}, fmt.Errorf("unknown mode %d", mode)
	}
}

// apply backs up every artifact, applies the payload tree, then executes the
// operation list artifact by artifact. A mid-list failure leaves earlier edits
// in place; the diagnostic tells the operator how to recover.
func (r *run) apply(payloadDir string, installRoot string) error {
	paths := make([]string, 0, len(r.set))
	for _, a := range r.set.All() {
		paths = append(paths, a.Path)
	}
	if _, err := r.mgr.Create(paths); err != nil {
		return fmt.Errorf("%w (%s)", err, messages.BackupIncompleteNoMutation)
	}

	if payloadDir != "" {
		if err := payload.Extract(r.sys, payloadDir, installRoot); err != nil {
			return err
		}
	}

	for _, a := range r.set.All() {
		after, _, err := r.applyArtifact(a)
		if err != nil {
			return fmt.Errorf(messages.ApplyAbortedFmt, a.Kind, err)
		}
		if err := r.writeArtifact(a, after); err != nil {
			return fmt.Errorf(messages.ApplyAbortedFmt, a.Kind, err)
		}
	}
	return nil
}

// applyArtifact computes the fully patched content of one artifact.
func (r *run) applyArtifact(a artifact.Artifact) (after string, before string, err error) {
	data, err := r.sys.ReadFile(a.Path)
	if err != nil {
		return "", "", err
	}
	before = string(data)
	content := before
	for _, op := range r.ops.ForArtifact(a.Kind) {
		content, err = patch.Apply(content, op)
		if err != nil {
			return "", "", r.decorate(a, err)
		}
	}
	return content, before, nil
}

// reverse restores each artifact from its backup when one exists and falls
// back to pattern-based removal otherwise. Pattern misses are reported per
// artifact and do not stop the remaining artifacts.
func (r *run) reverse() error {
	// Artifacts without a backup get one now, so even the pattern path never
	// mutates an un-copied file.
	var patternPaths []string
	for _, a := range r.set.All() {
		if _, ok := r.mgr.Find(a.Path); !ok {
			patternPaths = append(patternPaths, a.Path)
		}
	}
	preReverse := make(map[string]backup.Record)
	if len(patternPaths) > 0 {
		records, err := r.mgr.Create(patternPaths)
		if err != nil {
			return fmt.Errorf("%w (%s)", err, messages.BackupIncompleteNoMutation)
		}
		for _, rec := range records {
			preReverse[rec.OriginalPath] = rec
		}
	}

	for _, a := range r.set.All() {
		rec, patternPath := preReverse[a.Path]
		if !patternPath {
			found, _ := r.mgr.Find(a.Path)
			if err := r.mgr.Restore(found); err != nil {
				return err
			}
			continue
		}
		if _, err := r.reverseArtifact(a); err != nil {
			// The pre-reverse copy stays behind for manual recovery.
			return err
		}
		if err := r.mgr.Discard(rec); err != nil {
			return err
		}
	}
	return nil
}

// reverseArtifact pattern-removes every operation of one artifact, skipping
// (and reporting) operations whose edit is no longer present.
func (r *run) reverseArtifact(a artifact.Artifact) (bool, error) {
	data, err := r.sys.ReadFile(a.Path)
	if err != nil {
		return false, err
	}
	before := string(data)
	content := before
	for _, op := range r.ops.ForArtifact(a.Kind) {
		next, err := patch.Reverse(content, op)
		if err != nil {
			if errors.Is(err, patch.ErrPatternNotFound) {
				_, _ = fmt.Fprintf(r.warn, messages.ReverseSkippedFmt, a.Kind, err)
				continue
			}
			return false, r.decorate(a, err)
		}
		content = next
	}
	if content == before {
		return false, nil
	}
	if err := r.writeArtifact(a, content); err != nil {
		return false, err
	}
	return true, nil
}

// writeArtifact writes content over the artifact atomically, preserving its
// current permissions.
func (r *run) writeArtifact(a artifact.Artifact, content string) error {
	info, err := r.sys.Stat(a.Path)
	if err != nil {
		return err
	}
	return r.sys.WriteFileAtomic(a.Path, []byte(content), info.Mode().Perm())
}

// decorate rewords marker errors so the diagnostic names the artifact.
func (r *run) decorate(a artifact.Artifact, err error) error {
	switch {
	case errors.Is(err, patch.ErrMarkerNotFound), errors.Is(err, patch.ErrMarkerAmbiguous):
		return fmt.Errorf("%s: %w", a.Path, err)
	case errors.Is(err, patch.ErrPatternNotFound):
		return fmt.Errorf("%s: %w", a.Path, err)
	default:
		return err
	}
}

// applyPreviews simulates apply and renders a diff per artifact.
func (r *run) applyPreviews() ([]patch.Preview, error) {
	previews := make([]patch.Preview, 0, len(r.set))
	for _, a := range r.set.All() {
		after, before, err := r.applyArtifact(a)
		if err != nil {
			return nil, err
		}
		previews = append(previews, patch.NewPreview(a.Path, before, after))
	}
	return previews, nil
}

// reversePreviews simulates reverse: backup content where a backup exists,
// pattern removal otherwise. Pattern misses leave the artifact unchanged in
// the preview, matching the real run.
func (r *run) reversePreviews() ([]patch.Preview, error) {
	previews := make([]patch.Preview, 0, len(r.set))
	for _, a := range r.set.All() {
		data, err := r.sys.ReadFile(a.Path)
		if err != nil {
			return nil, err
		}
		before := string(data)
		var after string
		if rec, ok := r.mgr.Find(a.Path); ok {
			restored, err := r.sys.ReadFile(rec.BackupPath)
			if err != nil {
				return nil, err
			}
			after = string(restored)
		} else {
			after = before
			for _, op := range r.ops.ForArtifact(a.Kind) {
				next, err := patch.Reverse(after, op)
				if err != nil {
					if errors.Is(err, patch.ErrPatternNotFound) {
						continue
					}
					return nil, r.decorate(a, err)
				}
				after = next
			}
		}
		previews = append(previews, patch.NewPreview(a.Path, before, after))
	}
	return previews, nil
}
