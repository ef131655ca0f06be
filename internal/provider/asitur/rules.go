package asitur

import (
	"regexp"
	"strings"

	"github.com/zasylogic/casebridge/internal/classify"
)

// typeRules maps Asitur subject lines to communication type codes. The
// table is ordered and patterns overlap ("Informe Pericial" also matches
// subjects that carry "Envío Informe Pericial definitivo"), so first
// match wins. Do not reorder.
var typeRules = []classify.TypeRule{
	{Pattern: regexp.MustCompile(`(?i)Reapertura siniestro`), Code: "REOPENED"},
	{Pattern: regexp.MustCompile(`(?i)Información General Expediente`), Code: "INFORMATION"},
	{Pattern: regexp.MustCompile(`(?i)Reclamacion de facturas`), Code: "INVOICE_RETURN"},
	{Pattern: regexp.MustCompile(`(?i)Gestión con Perito`), Code: "EXPERT"},
	{Pattern: regexp.MustCompile(`(?i)Envío Informe Pericial definitivo`), Code: "EXPERT"},
	{Pattern: regexp.MustCompile(`(?i)Presupuesto de perito para expediente`), Code: "EXPERT"},
	{Pattern: regexp.MustCompile(`(?i)Facturacion colaboradores Hogar`), Code: "INVOICE"},
	{Pattern: regexp.MustCompile(`(?i)Comunicación a colaborador`), Code: "PROVIDER"},
	{Pattern: regexp.MustCompile(`(?i)Devolución de factura`), Code: "INVOICE_RETURN"},
	{Pattern: regexp.MustCompile(`(?i)Facturas autorizadas`), Code: "INVOICE"},
	{Pattern: regexp.MustCompile(`(?i)Solicitud datos causante`), Code: "REQUEST"},
	{Pattern: regexp.MustCompile(`(?i)Videoperito`), Code: "EXPERT"},
	{Pattern: regexp.MustCompile(`(?i)Informe Pericial`), Code: "EXPERT"},
	{Pattern: regexp.MustCompile(`(?i)Informe Preliminar`), Code: "EXPERT"},
	{Pattern: regexp.MustCompile(`(?i)Carta de transferencia`), Code: "DOCUMENT"},
	{Pattern: regexp.MustCompile(`(?i)rechazar su intervención del expediente`), Code: "ANULATION"},
	{Pattern: regexp.MustCompile(`(?i)Informe complementario`), Code: "DOCUMENT"},
	{Pattern: regexp.MustCompile(`(?i)Informe Pericial preliminar`), Code: "DOCUMENT"},
	{Pattern: regexp.MustCompile(`(?i)Expediente con mucha antigüedad`), Code: "WAITING"},
	{Pattern: regexp.MustCompile(`(?i)Paralice siniestro`), Code: "WAITING"},
	{Pattern: regexp.MustCompile(`(?i)asigna perito por reclamación`), Code: "REQUEST"},
	{Pattern: regexp.MustCompile(`(?i)informe cierre pericial`), Code: "CONFIRMATION"},
}

// newCasePatterns detect first-assignment mails, which take the rich
// extraction path instead of the communication flow.
var newCasePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)Asignación de (nuevo )?siniestro`),
	regexp.MustCompile(`(?i)Nuevo expediente`),
	regexp.MustCompile(`(?i)Apertura de siniestro`),
}

// subjectRefRe picks the case reference out of a subject line: the first
// run of at least five digits.
var subjectRefRe = regexp.MustCompile(`[0-9]{5,}`)

// SubjectReference returns the case reference embedded in the subject,
// or "".
func SubjectReference(subject string) string {
	return subjectRefRe.FindString(subject)
}

// Prefijo derives the downstream contract code from the receiving
// mailbox, the province and the claim type. The base code covers every
// account; specific mailbox/province pairs refine it, with maintenance
// and assistance claims routed to the "B" variant.
func Prefijo(account, provincia, tipoSiniestro string) string {
	prefijo := "As"
	prov := strings.TrimSpace(provincia)

	bVariant := strings.Contains(tipoSiniestro, "Mantenimiento") || strings.Contains(tipoSiniestro, "Asistencia")

	switch {
	case prov == "TARRAGONA" && strings.Contains(account, "gesposindi"):
		if bVariant {
			prefijo += "TgnB"
		} else {
			prefijo += "Tgn"
		}
	case prov == "MADRID" && strings.Contains(account, "serviseguros24"):
		if bVariant {
			prefijo += "MadB"
		} else {
			prefijo += "Mad"
		}
	case prov == "GIRONA" && strings.Contains(account, "@apris.app"):
		prefijo += "Gir"
	}
	return prefijo
}
