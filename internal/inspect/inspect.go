// Package inspect determines whether a target installation is clean, already
// patched, or in a mixed state that must never be mutated.
package inspect

import (
	"fmt"
	"os"
	"strings"

	"github.com/ironic-contrib/ibmc-install/internal/artifact"
	"github.com/ironic-contrib/ibmc-install/internal/messages"
	"github.com/ironic-contrib/ibmc-install/internal/patch"
	"github.com/ironic-contrib/ibmc-install/internal/patchset"
)

// State is the aggregate condition of the installation. It is derived fresh
// from the artifacts on every run, never stored.
type State int

const (
	// StateClean means no artifact contains any extension marker.
	StateClean State = iota
	// StatePatched means every artifact contains all of its markers.
	StatePatched
	// StateInconsistent is any other combination. Mutating a mixed install
	// risks corrupting the host service, so it gates both apply and reverse.
	StateInconsistent
)

func (s State) String() string {
	switch s {
	case StateClean:
		return "clean"
	case StatePatched:
		return "patched"
	default:
		return "inconsistent"
	}
}

// System abstracts the filesystem operations the inspector needs.
type System interface {
	ReadFile(name string) ([]byte, error)
}

// RealSystem implements System using the OS filesystem.
type RealSystem struct{}

// ReadFile reads the named file and returns the contents.
func (RealSystem) ReadFile(name string) ([]byte, error) { return os.ReadFile(name) }

// ArtifactStatus reports marker presence for one artifact.
type ArtifactStatus struct {
	Artifact artifact.Artifact
	// Present counts the artifact's operations whose marker was found.
	Present int
	// Total counts the operations bound to this artifact.
	Total int
}

// Patched reports whether every marker for this artifact is present.
func (s ArtifactStatus) Patched() bool { return s.Total > 0 && s.Present == s.Total }

// Clean reports whether no marker for this artifact is present.
func (s ArtifactStatus) Clean() bool { return s.Present == 0 }

func (s ArtifactStatus) word() string {
	switch {
	case s.Patched():
		return messages.StateWordPatched
	case s.Clean():
		return messages.StateWordClean
	default:
		return fmt.Sprintf(messages.StateWordPartialFmt, s.Present, s.Total)
	}
}

// Report is one inspection pass over every artifact.
type Report struct {
	Statuses []ArtifactStatus
}

// Scan reads each artifact once and tests for the presence of every operation
// marker. It has no side effects; read failures abort the run with zero
// mutation.
func Scan(sys System, set artifact.Set, ops patchset.Set) (Report, error) {
	var report Report
	for _, a := range set.All() {
		data, err := sys.ReadFile(a.Path)
		if err != nil {
			return Report{}, fmt.Errorf("inspect %s: %w", a.Kind, err)
		}
		content := string(data)
		status := ArtifactStatus{Artifact: a}
		for _, op := range ops.ForArtifact(a.Kind) {
			status.Total++
			if markerPresent(content, op) {
				status.Present++
			}
		}
		report.Statuses = append(report.Statuses, status)
	}
	return report, nil
}

func markerPresent(content string, op patchset.Operation) bool {
	if op.Kind == patchset.OpAugmentListValue {
		// Substring probing would false-positive on tokens sharing a prefix.
		return patch.ListContains(content, op.Key, op.Value)
	}
	return strings.Contains(content, op.PresenceMarker())
}

// State aggregates the per-artifact results: all patched means Patched, all
// clean means Clean, anything mixed is Inconsistent.
func (r Report) State() State {
	allPatched := true
	allClean := true
	for _, s := range r.Statuses {
		if !s.Patched() {
			allPatched = false
		}
		if !s.Clean() {
			allClean = false
		}
	}
	switch {
	case allPatched:
		return StatePatched
	case allClean:
		return StateClean
	default:
		return StateInconsistent
	}
}

// Describe renders one line per artifact naming its condition, for the
// inconsistent-state diagnostic.
func (r Report) Describe() string {
	lines := make([]string, 0, len(r.Statuses))
	for _, s := range r.Statuses {
		lines = append(lines, fmt.Sprintf(messages.StateLineFmt, s.Artifact.Kind, s.Artifact.Path, s.word()))
	}
	return strings.Join(lines, "\n")
}
