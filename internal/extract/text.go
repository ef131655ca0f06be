package extract

import (
	"regexp"
	"strings"
)

var (
	styleRe  = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	scriptRe = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	imgRe    = regexp.MustCompile(`(?i)<img[^>]*>`)
	tagRe    = regexp.MustCompile(`<[^>]+>`)
	spaceRe  = regexp.MustCompile(`\s+`)
)

// entities covers the named entities mail bodies actually use; anything
// rarer arrives already decoded by the MIME layer.
var entities = strings.NewReplacer(
	"&nbsp;", " ",
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&#39;", "'",
)

// StripTags flattens an HTML fragment to plain text: style and script
// blocks go first, then image tags, then every remaining tag; standard
// entities are decoded and whitespace runs collapse to a single space.
func StripTags(input string) string {
	if input == "" {
		return ""
	}
	out := styleRe.ReplaceAllString(input, "")
	out = scriptRe.ReplaceAllString(out, "")
	out = imgRe.ReplaceAllString(out, "")
	out = tagRe.ReplaceAllString(out, "")
	out = entities.Replace(out)
	out = spaceRe.ReplaceAllString(out, " ")
	return strings.TrimSpace(out)
}

var jsonEscaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	"\n", `\n`,
	"\r", `\r`,
	"\t", `\t`,
)

// EscapeForJSON escapes raw HTML so it can be embedded as a literal JSON
// string value by a downstream field that does not parse it.
func EscapeForJSON(html string) string {
	return jsonEscaper.Replace(html)
}

// FlattenBody picks the richest available body representation of a parsed
// mail (HTML first, then plain text), strips markup and normalizes blank
// lines. Returns "" when the message carries no usable body.
func FlattenBody(html, text string) string {
	content := html
	if content == "" {
		content = text
	}
	content = StripTags(content)
	content = strings.ReplaceAll(content, "\r\n", "\n")
	return strings.TrimSpace(content)
}
