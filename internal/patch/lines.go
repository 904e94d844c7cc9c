package patch

import "strings"

// document is a parsed line model of an artifact. Edits are computed against
// the line sequence and re-serialized, so unrelated lines keep their exact
// bytes and the original trailing-newline state survives a round trip.
type document struct {
	lines           []string
	trailingNewline bool
}

func parseDocument(content string) document {
	if content == "" {
		return document{}
	}
	trailing := strings.HasSuffix(content, "\n")
	body := content
	if trailing {
		body = strings.TrimSuffix(body, "\n")
	}
	return document{lines: strings.Split(body, "\n"), trailingNewline: trailing}
}

func (d document) serialize() string {
	if len(d.lines) == 0 {
		return ""
	}
	out := strings.Join(d.lines, "\n")
	if d.trailingNewline {
		out += "\n"
	}
	return out
}

// findLines returns the indexes of lines containing marker as a substring.
func (d document) findLines(marker string) []int {
	var idx []int
	for i, line := range d.lines {
		if strings.Contains(line, marker) {
			idx = append(idx, i)
		}
	}
	return idx
}

func (d document) insertAfter(i int, line string) document {
	lines := make([]string, 0, len(d.lines)+1)
	lines = append(lines, d.lines[:i+1]...)
	lines = append(lines, line)
	lines = append(lines, d.lines[i+1:]...)
	return document{lines: lines, trailingNewline: d.trailingNewline}
}

func (d document) removeLines(start int, count int) document {
	lines := make([]string, 0, len(d.lines)-count)
	lines = append(lines, d.lines[:start]...)
	lines = append(lines, d.lines[start+count:]...)
	return document{lines: lines, trailingNewline: d.trailingNewline}
}

// indexOfBlock locates block (a sequence of lines) inside the document and
// returns the starting index, or -1.
func (d document) indexOfBlock(block []string) int {
	if len(block) == 0 || len(block) > len(d.lines) {
		return -1
	}
	for i := 0; i+len(block) <= len(d.lines); i++ {
		match := true
		for j, want := range block {
			if d.lines[i+j] != want {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}
