package ima

import (
	"regexp"
	"strings"

	"github.com/zasylogic/casebridge/internal/classify"
	"github.com/zasylogic/casebridge/internal/model"
)

// Action is the routing decision for one IMA notification mail.
type Action struct {
	Type          string
	Description   string
	ServiceNumber string
	Kind          model.CaseKind
}

var (
	// New-service mails omit the "ima" token before the number.
	newServiceRe = regexp.MustCompile(`(?i)servicio n[ºo]?[\s:]*([0-9]{8})`)
	serviceRe    = regexp.MustCompile(`(?i)servicio ima n[ºo]?[\s:]*([0-9]{8})`)
)

// subjectActions routes mails by their exact normalized subject. IMA's
// notifier uses fixed subjects, so exact match is safe here where it
// would not be for the other providers.
var subjectActions = map[string]struct {
	actionType  string
	description string
	re          *regexp.Regexp
	kind        model.CaseKind
}{
	"nuevo servicio en la plataforma ima": {
		actionType:  "NEW_SERVICE",
		description: "Nuevo servicio IMA detectado",
		re:          newServiceRe,
		kind:        model.KindNew,
	},
	"el presupuesto del servicio ima fue modificado": {
		actionType:  "BUDGET_MODIFIED",
		description: "Presupuesto de servicio IMA modificado",
		re:          serviceRe,
		kind:        model.KindMessage,
	},
	"el presupuesto del servicio ima fue aprobado": {
		actionType:  "BUDGET_APPROVED",
		description: "Presupuesto de servicio IMA aprobado",
		re:          serviceRe,
		kind:        model.KindMessage,
	},
	"servicio ima cancelado": {
		actionType:  "SERVICE_CANCELLED",
		description: "Servicio IMA cancelado",
		re:          serviceRe,
		kind:        model.KindCancelled,
	},
	"nuevo mensaje en el servicio ima": {
		actionType:  "SERVICE_MESSAGE",
		description: "Nuevo mensaje en el servicio IMA",
		re:          serviceRe,
		kind:        model.KindMessage,
	},
}

// AnalyzeMail decides what an IMA mail is about. The service number is
// scanned over HTML and text together; the notifier sometimes puts it
// only in one of the two. Returns nil for mails that match no known
// subject or carry no service number.
func AnalyzeMail(subject, html, text string) *Action {
	normalized := strings.ToLower(strings.TrimSpace(subject))
	entry, ok := subjectActions[normalized]
	if !ok {
		return nil
	}

	body := html + " " + text
	m := entry.re.FindStringSubmatch(body)
	if m == nil {
		return nil
	}
	return &Action{
		Type:          entry.actionType,
		Description:   entry.description,
		ServiceNumber: m[1],
		Kind:          entry.kind,
	}
}

// caseTypeRules derives the business case type from the service's
// translated typology and category. The portal's labels come through
// partially translated, accents included.
var caseTypeRules = []classify.CaseTypeRule{
	{Field: "texto", Any: []string{"danos por água", "fontanería"}, Result: "Daños por Agua"},
	{Field: "texto", Any: []string{"danos eléctricos"}, Result: "Daños Eléctricos"},
	{Field: "texto", Any: []string{"asistencia no cubierta"}, Result: "Conexión o contado"},
	{Field: "texto", Any: []string{"manitas"}, Result: "Bricolaje/Manitas"},
}

// CaseTypeFor derives the case type from typology and category.
func CaseTypeFor(typology, category string) string {
	return classify.CaseType(caseTypeRules, model.ExtractedFields{
		"texto": typology + " " + category,
	})
}

var (
	digitRe   = regexp.MustCompile(`\d`)
	spainRe   = regexp.MustCompile(`(?i)\s+Spain`)
	upperRe   = regexp.MustCompile(`^[A-ZÁÉÍÓÚÑ]+$`)
	streetRe  = regexp.MustCompile(`(?i)^(CL|AV|CALLE|AVENIDA|PLAZA|PASEO|CARRER|GRAN|VIA)$`)
	zipCityRe = regexp.MustCompile(`(?i)\d+\s+([A-ZÁÉÍÓÚÑ\s]+)$`)
)

// CityFromAddress pulls the city out of a one-line portal address such as
// "CL ANGELA GONZALEZ 8 28038 MADRID Spain": everything between the last
// number (the postal code) and the country suffix. The fallbacks cover
// addresses without a postal code, where the best guess is the last
// upper-case word that is not a street keyword.
func CityFromAddress(address string) string {
	if address == "" {
		return ""
	}

	beforeSpain := strings.TrimSpace(spainRe.Split(address, 2)[0])
	if beforeSpain == "" {
		return ""
	}

	words := strings.Fields(beforeSpain)
	var cityWords []string
	foundNumber := false
	for i := len(words) - 1; i >= 0; i-- {
		if digitRe.MatchString(words[i]) {
			foundNumber = true
			break
		}
		cityWords = append([]string{words[i]}, cityWords...)
	}
	if foundNumber && len(cityWords) > 0 {
		return strings.Join(cityWords, " ")
	}

	if m := zipCityRe.FindStringSubmatch(beforeSpain); m != nil {
		return strings.TrimSpace(m[1])
	}

	if last := words[len(words)-1]; upperRe.MatchString(last) {
		return last
	}

	var candidates []string
	for _, w := range words {
		if upperRe.MatchString(w) && len(w) > 2 && !streetRe.MatchString(w) {
			candidates = append(candidates, w)
		}
	}
	if len(candidates) > 0 {
		return candidates[len(candidates)-1]
	}
	return ""
}

// SplitPhones breaks the portal's " / "-joined phone field into usable
// numbers, dropping empties and literal "null" entries.
func SplitPhones(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, " / ") {
		p = strings.TrimSpace(p)
		if p == "" || strings.EqualFold(p, "null") {
			continue
		}
		out = append(out, p)
	}
	return out
}
