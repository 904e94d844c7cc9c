package patch

import (
	"strings"

	"github.com/aymanbagabas/go-udiff"
)

// Preview is a user-facing unified diff of one artifact's planned edits.
type Preview struct {
	Path        string
	UnifiedDiff string
}

// NewPreview renders the before/after content of path as a unified diff.
// An empty UnifiedDiff means the artifact would not change.
func NewPreview(path string, before string, after string) Preview {
	diff := strings.TrimSpace(udiff.Unified(path+" (current)", path+" (planned)", before, after))
	return Preview{Path: path, UnifiedDiff: diff}
}

// Empty reports whether the preview contains no changes.
func (p Preview) Empty() bool {
	return p.UnifiedDiff == ""
}
