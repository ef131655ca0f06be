// Package classify holds the shared rule engines the provider adapters
// feed their decision tables into. Each provider owns its own table; the
// tables are independently evolved business rules and are never merged.
// Rule order is significant everywhere: patterns are not mutually
// exclusive and first match wins.
package classify

import (
	"regexp"
	"strings"

	"github.com/zasylogic/casebridge/internal/model"
)

// CodeIncorrect is returned when no subject rule matches; such mails are
// routed to the unprocessable flow.
const CodeIncorrect = "INCORRECT"

// TypeUndefined is the case-type fallback when no derivation rule fires.
const TypeUndefined = "Sin definir"

// TypeRule maps a subject-line pattern to a communication type code.
type TypeRule struct {
	Pattern *regexp.Regexp
	Code    string
}

// TypeCode matches subject against an ordered rule list and returns the
// first matching code, or CodeIncorrect.
func TypeCode(rules []TypeRule, subject string) string {
	for _, r := range rules {
		if r.Pattern.MatchString(subject) {
			return r.Code
		}
	}
	return CodeIncorrect
}

// IsNewCase reports whether subject matches any of the fixed "new case"
// phrase patterns. Independent from the type-code table.
func IsNewCase(patterns []*regexp.Regexp, subject string) bool {
	for _, p := range patterns {
		if p.MatchString(subject) {
			return true
		}
	}
	return false
}

// KindRule maps a case-insensitive substring of a description or subject
// to a CaseKind.
type KindRule struct {
	Contains string
	Kind     model.CaseKind
}

// Kind runs the ordered keyword rules over description; default Other.
func Kind(rules []KindRule, description string) model.CaseKind {
	lower := strings.ToLower(description)
	for _, r := range rules {
		if strings.Contains(lower, strings.ToLower(r.Contains)) {
			return r.Kind
		}
	}
	return model.KindOther
}

// CaseTypeRule derives a business case type from free-text clues. A rule
// fires when the named field contains any of the substrings and none of
// the excluded ones.
type CaseTypeRule struct {
	Field   string
	Any     []string
	Exclude []string
	Result  string
}

// CaseType evaluates the ordered rules against the lower-cased field
// values; default TypeUndefined. Field precedence is whatever order the
// provider's table encodes (e.g. gremio rules before description rules).
func CaseType(rules []CaseTypeRule, fields model.ExtractedFields) string {
	for _, r := range rules {
		text := strings.ToLower(fields.Get(r.Field))
		if !containsAny(text, r.Any) {
			continue
		}
		if containsAny(text, r.Exclude) {
			continue
		}
		return r.Result
	}
	return TypeUndefined
}

func containsAny(text string, subs []string) bool {
	for _, s := range subs {
		if strings.Contains(text, strings.ToLower(s)) {
			return true
		}
	}
	return false
}
