// Package normalize holds the shared shaping helpers the provider
// adapters use when assembling a canonical CaseRecord.
package normalize

import (
	"fmt"
	"strings"
	"time"
)

// maxFieldLen bounds the free-text sub-fields composed into a combined
// description; upstream observation blobs can run to kilobytes.
const maxFieldLen = 200

// fieldDelimiter separates labeled sub-fields in a combined description.
const fieldDelimiter = " //// "

// SplitPostal splits a combined "distrito postal" value ("28013 - MADRID")
// into zip code and city, both trimmed. A value without the separator
// yields the whole string as zip and an empty city.
func SplitPostal(distritoPostal string) (zip, city string) {
	parts := strings.SplitN(distritoPostal, "-", 2)
	zip = strings.TrimSpace(parts[0])
	if len(parts) > 1 {
		city = strings.TrimSpace(parts[1])
	}
	return zip, city
}

// ReformatDate converts an assignment date in "dd/mm/yyyy" form (possibly
// carrying an "-hh:mm" tail) to "yyyy-mm-dd". When the value does not
// parse, it falls back to the current timestamp; a record never loses its
// date, it just gets an approximate one.
func ReformatDate(value string, now time.Time) string {
	datePart := strings.SplitN(value, "-", 2)[0]
	parts := strings.Split(strings.TrimSpace(datePart), "/")
	if len(parts) == 3 && parts[0] != "" && parts[1] != "" && parts[2] != "" {
		return fmt.Sprintf("%s-%s-%s", parts[2], parts[1], parts[0])
	}
	return now.UTC().Format(time.RFC3339)
}

// Field is one labeled fragment of a combined description.
type Field struct {
	Label string
	Value string
}

// JoinFields composes a combined description from labeled sub-fields,
// truncating each value to 200 characters. Empty values are kept so the
// downstream reader sees which sections the source omitted.
func JoinFields(fields []Field) string {
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		v := f.Value
		if runes := []rune(v); len(runes) > maxFieldLen {
			v = string(runes[:maxFieldLen])
		}
		if f.Label != "" {
			parts = append(parts, f.Label+": "+v)
		} else {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, fieldDelimiter)
}

// SafeString renders any scalar as a trimmed string, mapping nil to "".
func SafeString(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(fmt.Sprintf("%v", v))
}
