package asitur

import (
	"time"

	"github.com/zasylogic/casebridge/internal/classify"
	"github.com/zasylogic/casebridge/internal/extract"
	"github.com/zasylogic/casebridge/internal/mail"
	"github.com/zasylogic/casebridge/internal/model"
	"github.com/zasylogic/casebridge/internal/normalize"
)

// Labels Asitur mails carry in their plain-text bodies. The scanner needs
// the full set: a value runs until the next known label.
var bodyLabels = []string{
	"Provincia:",
	"Tipo siniestro:",
	"Expediente:",
	"Referencia Asitur:",
	"Observaciones póliza:",
	"Población:",
	"Código Postal:",
	"Dirección:",
	"Asegurado:",
	"Póliza:",
	"Teléfono:",
}

const bodyTerminator = "Datos del Asegurado:"

var bodyScanner = extract.NewLabelScanner(bodyLabels, bodyTerminator)

// markupOffsets gives, per label, which following container in the HTML
// layout holds the value. The reference sits three cells after its label
// in the assignment template; the rest are adjacent pairs.
var markupOffsets = map[string]int{
	"Referencia Asitur:": 3,
	"Expediente:":        1,
	"Provincia:":         1,
	"Tipo siniestro:":    1,
	"Población:":         1,
	"Código Postal:":     1,
	"Dirección:":         1,
	"Asegurado:":         1,
	"Póliza:":            1,
	"Teléfono:":          1,
}

// mailInfo is the field set pulled from one Asitur mail body.
type mailInfo struct {
	Provincia     string
	TipoSiniestro string
	Expediente    string
	Referencia    string
	Observaciones string
	Poblacion     string
	CodigoPostal  string
	Direccion     string
	Asegurado     string
	Poliza        string
	Telefono      string
}

// extractInfo reads the labeled fields, preferring the HTML structure and
// falling back to label scanning over the flattened text. Missing fields
// stay "".
func extractInfo(msg mail.Message) mailInfo {
	markup := extract.NewMarkupScanner(msg.HTML)
	body := extract.FlattenBody(msg.HTML, msg.Text)

	field := func(label string) string {
		if n, ok := markupOffsets[label]; ok {
			if v := markup.After(label, n); v != "" {
				return v
			}
		}
		return bodyScanner.Value(body, label)
	}

	return mailInfo{
		Provincia:     field("Provincia:"),
		TipoSiniestro: field("Tipo siniestro:"),
		Expediente:    field("Expediente:"),
		Referencia:    field("Referencia Asitur:"),
		Observaciones: bodyScanner.Value(body, "Observaciones póliza:"),
		Poblacion:     field("Población:"),
		CodigoPostal:  field("Código Postal:"),
		Direccion:     field("Dirección:"),
		Asegurado:     field("Asegurado:"),
		Poliza:        field("Póliza:"),
		Telefono:      field("Teléfono:"),
	}
}

// caseNumber resolves the record's case number: body reference first,
// then the plain expediente field, then the "-" placeholder.
func (i mailInfo) caseNumber() string {
	switch {
	case i.Referencia != "":
		return i.Referencia
	case i.Expediente != "":
		return i.Expediente
	default:
		return "-"
	}
}

// NewCaseRecord shapes a first-assignment mail into a full case record.
func NewCaseRecord(msg mail.Message, account string) *model.CaseRecord {
	info := extractInfo(msg)
	body := extract.FlattenBody(msg.HTML, msg.Text)
	phones := extract.Phones(body)

	rec := &model.CaseRecord{
		ContractCode:    Prefijo(account, info.Provincia, info.TipoSiniestro),
		CompanyName:     "Asitur",
		CaseNumber:      info.caseNumber(),
		CaseType:        info.TipoSiniestro,
		CaseDescription: buildDescription(info),
		CaseDate:        msg.Date.UTC().Format(time.RFC3339),
		ClientName:      info.Asegurado,
		Address:         info.Direccion,
		City:            info.Poblacion,
		ZipCode:         info.CodigoPostal,
		CountryISOCode:  "ES",
		PolicyNumber:    info.Poliza,
		Classify:        model.KindNew,
		Subject:         msg.Subject,
		From:            msg.From,
		Content:         extract.EscapeForJSON(body),
		Date:            msg.Date,
		Attachments:     msg.Attachments,
	}

	// The labeled phone beats the body scan: digit runs also match case
	// references, and those come first in the template.
	rec.ClientPhone = info.Telefono
	if rec.ClientPhone == "" {
		if len(phones) > 0 {
			rec.ClientPhone = phones[0]
		}
		if len(phones) > 1 {
			rec.ClientPhone2 = phones[1]
		}
	}
	return rec
}

// MessageRecord shapes a follow-up communication mail. The communication
// type code drives the classification: an unmatched subject makes the
// record unprocessable. Dedup keys on the subject reference, not the
// body's case number; the two differ on forwarded threads.
func MessageRecord(msg mail.Message, account string) *model.CaseRecord {
	info := extractInfo(msg)
	body := extract.FlattenBody(msg.HTML, msg.Text)

	code := classify.TypeCode(typeRules, msg.Subject)
	kind := model.KindMessage
	if code == classify.CodeIncorrect {
		kind = model.KindUnprocessable
	}

	return &model.CaseRecord{
		ContractCode:  Prefijo(account, info.Provincia, info.TipoSiniestro),
		CompanyName:   "Asitur",
		CaseNumber:    info.caseNumber(),
		CaseTreatment: code,
		CaseType:      info.TipoSiniestro,
		CaseDate:      msg.Date.UTC().Format(time.RFC3339),
		Classify:      kind,
		Subject:       msg.Subject,
		From:          msg.From,
		Content:       extract.EscapeForJSON(body),
		Date:          msg.Date,
		Attachments:   msg.Attachments,
		DedupRef:      SubjectReference(msg.Subject),
	}
}

func buildDescription(info mailInfo) string {
	return normalize.JoinFields([]normalize.Field{
		{Label: "Tipo siniestro", Value: info.TipoSiniestro},
		{Label: "Provincia", Value: info.Provincia},
		{Label: "Observaciones", Value: info.Observaciones},
	})
}
