// Package dedup derives the identity key a case record is deduplicated by
// and decides whether a record may be inserted given what the store
// already holds.
package dedup

import "github.com/zasylogic/casebridge/internal/model"

// Key builds the identity key: provider name and case number joined with
// an underscore. The case number may be empty; keyless records then all
// share one key per provider and collapse onto the first stored one. That
// ambiguity is inherited from the upstream sources and kept on purpose.
func Key(provider, caseNumber string) string {
	return provider + "_" + caseNumber
}

// Decision says what to do with one record.
type Decision struct {
	Insert bool
	Reason string
}

// Decide applies the dedup policy over (exists, kind):
//
//	exists=false         -> insert
//	exists, Nuevo        -> skip ("Registro Nuevo ya existe")
//	exists, Mensaje      -> insert (messages may append to a known case)
//	exists, Cancelado    -> insert (cancellations may append too)
//	exists, anything else -> skip ("Registro ya existe")
//
// The existence pre-check this feeds on is an optimization only; the
// UNIQUE constraint at insert time is the authoritative backstop and must
// land in the same omitted bookkeeping.
func Decide(exists bool, kind model.CaseKind) Decision {
	if !exists {
		return Decision{Insert: true}
	}
	switch kind {
	case model.KindNew:
		return Decision{Insert: false, Reason: "Registro Nuevo ya existe"}
	case model.KindMessage, model.KindCancelled:
		return Decision{Insert: true}
	default:
		return Decision{Insert: false, Reason: "Registro ya existe"}
	}
}
