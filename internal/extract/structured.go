package extract

import (
	"fmt"
	"strings"
)

// Lookup reads a field from a structured record (decoded JSON or XML) by
// key, falling back through upper- and lower-cased variants. Upstreams are
// not consistent about casing, even within one document.
func Lookup(record map[string]any, key string) string {
	if record == nil {
		return ""
	}
	for _, k := range []string{key, strings.ToUpper(key), strings.ToLower(key)} {
		if v, ok := record[k]; ok {
			return Stringify(v)
		}
	}
	return ""
}

// Stringify renders a decoded scalar as a trimmed string; nil becomes "".
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		// JSON numbers: render integers without the decimal point.
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%v", t)
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", t))
	}
}
