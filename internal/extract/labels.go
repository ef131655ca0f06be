package extract

import "strings"

// LabelScanner pulls values out of loosely-labeled plain text: the value
// for a label is whatever sits between that label and the next known label.
// Mail bodies are brittle, so the scanner degrades instead of failing:
// next-label match first, then same-line, then everything up to the
// default terminator (or end of text). A missing label yields "".
type LabelScanner struct {
	labels     []string
	terminator string
}

// NewLabelScanner builds a scanner over the given set of known labels.
// The terminator bounds multi-line values when no following label exists
// (e.g. "Datos del Asegurado:"); it may be empty.
func NewLabelScanner(labels []string, terminator string) *LabelScanner {
	return &LabelScanner{labels: labels, terminator: terminator}
}

// Value extracts the value for one label. Never fails; absent or
// malformed content yields "".
func (s *LabelScanner) Value(body, label string) string {
	start := indexFold(body, label)
	if start < 0 {
		return ""
	}
	rest := body[start+len(label):]

	// 1. Up to the earliest occurrence of any other known label.
	if end := s.nextLabel(rest, label); end >= 0 {
		if v := strings.TrimSpace(rest[:end]); v != "" {
			return v
		}
	}

	// 2. Same line.
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		if v := strings.TrimSpace(rest[:nl]); v != "" {
			return v
		}
	}

	// 3. Up to the default terminator, or end of text.
	if s.terminator != "" {
		if end := indexFold(rest, s.terminator); end >= 0 {
			return strings.TrimSpace(rest[:end])
		}
	}
	return strings.TrimSpace(rest)
}

// nextLabel returns the position of the earliest known label in rest,
// skipping the label currently being extracted.
func (s *LabelScanner) nextLabel(rest, current string) int {
	earliest := -1
	for _, l := range s.labels {
		if strings.EqualFold(l, current) {
			continue
		}
		if i := indexFold(rest, l); i >= 0 && (earliest < 0 || i < earliest) {
			earliest = i
		}
	}
	return earliest
}

// indexFold is a case-insensitive strings.Index. Labels are ASCII-ish
// Spanish headings; lowering both sides is enough.
func indexFold(s, sub string) int {
	return strings.Index(strings.ToLower(s), strings.ToLower(sub))
}
