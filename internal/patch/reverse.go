package patch

import (
	"fmt"
	"strings"

	"github.com/ironic-contrib/ibmc-install/internal/patchset"
)

// Reverse removes one operation's edit from content by pattern matching.
// Callers prefer backup restoration; this path exists for installs whose
// backups are gone. ErrPatternNotFound means content was returned unchanged.
func Reverse(content string, op patchset.Operation) (string, error) {
	switch op.Kind {
	case patchset.OpInsertAfterMarker:
		return reverseInsertedLine(content, op)
	case patchset.OpAppendBlock:
		return reverseAppendedBlock(content, op)
	case patchset.OpAugmentListValue:
		return reverseListValue(content, op)
	default:
		return "", fmt.Errorf("unknown operation kind %q", op.Kind)
	}
}

func reverseInsertedLine(content string, op patchset.Operation) (string, error) {
	doc := parseDocument(content)
	for i, line := range doc.lines {
		if line == op.Payload {
			return doc.removeLines(i, 1).serialize(), nil
		}
	}
	return content, fmt.Errorf("%q: %w", op.Payload, ErrPatternNotFound)
}

func reverseAppendedBlock(content string, op patchset.Operation) (string, error) {
	doc := parseDocument(content)
	block := blockLines(op.Payload)
	start := doc.indexOfBlock(block)
	if start < 0 {
		return content, fmt.Errorf("appended block: %w", ErrPatternNotFound)
	}
	count := len(block)
	// Drop the blank separator the append introduced.
	if start > 0 && doc.lines[start-1] == "" {
		start--
		count++
	}
	return doc.removeLines(start, count).serialize(), nil
}

func reverseListValue(content string, op patchset.Operation) (string, error) {
	doc := parseDocument(content)
	idx := doc.findKeyLine(op.Key)
	if idx < 0 {
		return content, fmt.Errorf("%s: %w", op.Key, ErrPatternNotFound)
	}
	prefix, rawValue := splitKeyLine(doc.lines[idx])
	segments := strings.Split(rawValue, ",")
	kept := make([]string, 0, len(segments))
	removed := false
	for _, segment := range segments {
		if !removed && strings.TrimSpace(segment) == op.Value {
			removed = true
			continue
		}
		kept = append(kept, segment)
	}
	if !removed {
		return content, fmt.Errorf("%s=%s: %w", op.Key, op.Value, ErrPatternNotFound)
	}

	newValue := strings.Join(kept, ",")
	if strings.TrimSpace(newValue) == "" {
		leadingWS := rawValue[:len(rawValue)-len(strings.TrimLeft(rawValue, " \t"))]
		if op.KeepSeparatorWhenEmpty {
			// The host rejects an empty list for this key, so the sole-value
			// removal keeps a trailing separator with an empty final segment.
			newValue = leadingWS + ","
		} else {
			newValue = leadingWS
		}
	}
	doc.lines[idx] = prefix + newValue
	return doc.serialize(), nil
}
