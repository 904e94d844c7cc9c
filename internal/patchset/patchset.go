// Package patchset declares the fixed, versioned list of edits that install
// the iBMC extension. The list is data, not code: apply and reverse both walk
// the same operations.
package patchset

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/ironic-contrib/ibmc-install/internal/artifact"
)

//go:embed ibmc.toml
var ibmcTOML []byte

// OpKind names an edit operation.
type OpKind string

const (
	// OpInsertAfterMarker inserts the payload line immediately after a line
	// containing the marker. The marker must match exactly one line.
	OpInsertAfterMarker OpKind = "insert-after-marker"
	// OpAppendBlock appends the payload block at end of file, separated from
	// existing content by a blank line.
	OpAppendBlock OpKind = "append-block"
	// OpAugmentListValue adds Value to the comma-separated list under Key,
	// creating the key when absent.
	OpAugmentListValue OpKind = "augment-list-value"
)

// Operation is one structural edit bound to one artifact kind.
type Operation struct {
	Kind     OpKind        `toml:"kind"`
	Artifact artifact.Kind `toml:"artifact"`
	Marker   string        `toml:"marker"`
	Payload  string        `toml:"payload"`
	Key      string        `toml:"key"`
	Value    string        `toml:"value"`
	// KeepSeparatorWhenEmpty preserves a trailing separator instead of
	// producing an empty value when removal would empty the list. Ironic
	// rejects empty enabled_* values, so the sole-entry case serializes as
	// "key=," on removal.
	KeepSeparatorWhenEmpty bool `toml:"keep_separator_when_empty"`
}

// PresenceMarker is the substring whose presence in the artifact means this
// operation has been applied.
func (op Operation) PresenceMarker() string {
	switch op.Kind {
	case OpAppendBlock:
		// The leading declaration line of the block.
		block := strings.TrimSpace(op.Payload)
		if i := strings.IndexByte(block, '\n'); i >= 0 {
			return block[:i]
		}
		return block
	default:
		return op.Payload
	}
}

// Set is the complete ordered edit list for one extension version.
type Set struct {
	Version    string      `toml:"version"`
	Extension  string      `toml:"extension"`
	Operations []Operation `toml:"operations"`
}

// ForArtifact returns the operations bound to the given artifact kind, in
// declared order.
func (s Set) ForArtifact(kind artifact.Kind) []Operation {
	var out []Operation
	for _, op := range s.Operations {
		if op.Artifact == kind {
			out = append(out, op)
		}
	}
	return out
}

// Load parses and validates the embedded iBMC patch set.
func Load() (Set, error) {
	return parse(ibmcTOML)
}

func parse(data []byte) (Set, error) {
	var s Set
	if err := toml.Unmarshal(data, &s); err != nil {
		return Set{}, fmt.Errorf("parse patch set: %w", err)
	}
	if err := s.validate(); err != nil {
		return Set{}, err
	}
	return s, nil
}

func (s Set) validate() error {
	if s.Extension == "" {
		return fmt.Errorf("patch set: extension name is required")
	}
	if len(s.Operations) == 0 {
		return fmt.Errorf("patch set: no operations declared")
	}
	knownArtifacts := make(map[artifact.Kind]struct{}, len(artifact.Kinds))
	for _, k := range artifact.Kinds {
		knownArtifacts[k] = struct{}{}
	}
	for i, op := range s.Operations {
		if _, ok := knownArtifacts[op.Artifact]; !ok {
			return fmt.Errorf("patch set: operation %d targets unknown artifact %q", i, op.Artifact)
		}
		switch op.Kind {
		case OpInsertAfterMarker:
			if op.Marker == "" || op.Payload == "" {
				return fmt.Errorf("patch set: operation %d (%s) needs marker and payload", i, op.Kind)
			}
		case OpAppendBlock:
			if strings.TrimSpace(op.Payload) == "" {
				return fmt.Errorf("patch set: operation %d (%s) needs a payload block", i, op.Kind)
			}
		case OpAugmentListValue:
			if op.Key == "" || op.Value == "" {
				return fmt.Errorf("patch set: operation %d (%s) needs key and value", i, op.Kind)
			}
		default:
			return fmt.Errorf("patch set: operation %d has unknown kind %q", i, op.Kind)
		}
	}
	return nil
}
