package extract

import (
	"strings"

	"golang.org/x/net/html"
)

// MarkupScanner extracts values from HTML that keeps semantic structure:
// label/value pairs laid out in repeated containers (table cells, spans).
// It works on the flattened sequence of text-bearing containers in
// document order, so "the 3rd container after the one reading
// 'Referencia Asitur:'" is a stable address even when the markup nests.
type MarkupScanner struct {
	texts []string
}

// NewMarkupScanner parses the fragment and captures its container texts.
// A parse failure yields an empty scanner; extraction then returns "".
func NewMarkupScanner(fragment string) *MarkupScanner {
	doc, err := html.Parse(strings.NewReader(fragment))
	if err != nil {
		return &MarkupScanner{}
	}
	return &MarkupScanner{texts: containerTexts(doc)}
}

// After returns the text of the nth container following the one whose
// text equals label (n >= 1). Missing label or short document yields "".
func (s *MarkupScanner) After(label string, n int) string {
	for i, t := range s.texts {
		if strings.EqualFold(t, label) {
			if j := i + n; j < len(s.texts) {
				return s.texts[j]
			}
			return ""
		}
	}
	return ""
}

// Texts exposes the flattened container texts, mostly for tests.
func (s *MarkupScanner) Texts() []string {
	return s.texts
}

// containerTexts walks the node tree collecting the trimmed text of every
// text node, skipping script/style/noscript content the way visible-text
// extraction does.
func containerTexts(n *html.Node) []string {
	var out []string

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "iframe":
				return
			}
		}
		if n.Type == html.TextNode {
			if t := collapseSpace(n.Data); t != "" {
				out = append(out, t)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(n)
	return out
}

func collapseSpace(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}
