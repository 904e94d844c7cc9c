// Package patch computes the structural edits of a patch set against artifact
// content. All functions are pure string transformations; callers own file IO.
package patch

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ironic-contrib/ibmc-install/internal/patchset"
)

var (
	// ErrMarkerNotFound reports that an insertion marker matched no line.
	ErrMarkerNotFound = errors.New("marker not found")
	// ErrMarkerAmbiguous reports that an insertion marker matched more than
	// one line. Ambiguous insertion points are never guessed.
	ErrMarkerAmbiguous = errors.New("marker matches multiple lines")
	// ErrPatternNotFound reports that a reverse operation found nothing to
	// remove. The artifact is left untouched.
	ErrPatternNotFound = errors.New("pattern not found")
)

// defaultSection is the ini section new service-config keys are created under.
const defaultSection = "[DEFAULT]"

// Apply executes one operation against content and returns the edited content.
// Idempotency is the caller's responsibility: the state gate guarantees the
// edit is not already present.
func Apply(content string, op patchset.Operation) (string, error) {
	switch op.Kind {
	case patchset.OpInsertAfterMarker:
		return applyInsertAfterMarker(content, op)
	case patchset.OpAppendBlock:
		return applyAppendBlock(content, op)
	case patchset.OpAugmentListValue:
		return applyAugmentListValue(content, op)
	default:
		return "", fmt.Errorf("unknown operation kind %q", op.Kind)
	}
}

func applyInsertAfterMarker(content string, op patchset.Operation) (string, error) {
	doc := parseDocument(content)
	matches := doc.findLines(op.Marker)
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%q: %w", op.Marker, ErrMarkerNotFound)
	case 1:
		return doc.insertAfter(matches[0], op.Payload).serialize(), nil
	default:
		return "", fmt.Errorf("%q matches %d lines: %w", op.Marker, len(matches), ErrMarkerAmbiguous)
	}
}

func applyAppendBlock(content string, op patchset.Operation) (string, error) {
	doc := parseDocument(content)
	block := blockLines(op.Payload)
	if len(doc.lines) > 0 && doc.lines[len(doc.lines)-1] != "" {
		doc.lines = append(doc.lines, "")
	}
	doc.lines = append(doc.lines, block...)
	doc.trailingNewline = true
	return doc.serialize(), nil
}

func applyAugmentListValue(content string, op patchset.Operation) (string, error) {
	doc := parseDocument(content)
	idx := doc.findKeyLine(op.Key)
	if idx < 0 {
		line := op.Key + "=" + op.Value
		if section := doc.findLines(defaultSection); len(section) == 1 {
			return doc.insertAfter(section[0], line).serialize(), nil
		}
		doc.lines = append(doc.lines, line)
		doc.trailingNewline = true
		return doc.serialize(), nil
	}

	prefix, rawValue := splitKeyLine(doc.lines[idx])
	if listContainsToken(rawValue, op.Value) {
		// Already listed: augmenting is a no-op.
		return content, nil
	}
	leadingWS := rawValue[:len(rawValue)-len(strings.TrimLeft(rawValue, " \t"))]
	trimmed := strings.TrimSpace(rawValue)
	if trimmed == "" {
		doc.lines[idx] = prefix + leadingWS + op.Value
	} else {
		doc.lines[idx] = prefix + strings.TrimRight(rawValue, " \t") + "," + op.Value
	}
	return doc.serialize(), nil
}

// findKeyLine returns the index of the first non-comment line assigning key,
// or -1. Section headers and comments are skipped.
func (d document) findKeyLine(key string) int {
	for i, line := range d.lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, "[") {
			continue
		}
		eq := strings.IndexByte(trimmed, '=')
		if eq <= 0 {
			continue
		}
		if strings.TrimSpace(trimmed[:eq]) == key {
			return i
		}
	}
	return -1
}

// splitKeyLine splits "key = a,b" into "key = " and "a,b". The line must
// contain '='; findKeyLine guarantees it.
func splitKeyLine(line string) (prefix string, rawValue string) {
	eq := strings.IndexByte(line, '=')
	return line[:eq+1], line[eq+1:]
}

// listContainsToken reports whether the comma-separated rawValue lists token.
func listContainsToken(rawValue string, token string) bool {
	for _, segment := range strings.Split(rawValue, ",") {
		if strings.TrimSpace(segment) == token {
			return true
		}
	}
	return false
}

// ListContains reports whether content assigns key to a list containing value.
// Used by state inspection: a plain substring probe would false-positive on
// tokens sharing a prefix.
func ListContains(content string, key string, value string) bool {
	doc := parseDocument(content)
	idx := doc.findKeyLine(key)
	if idx < 0 {
		return false
	}
	_, rawValue := splitKeyLine(doc.lines[idx])
	return listContainsToken(rawValue, value)
}

// blockLines returns the payload block as lines, without surrounding blank
// lines.
func blockLines(payload string) []string {
	return strings.Split(strings.Trim(payload, "\n"), "\n")
}
