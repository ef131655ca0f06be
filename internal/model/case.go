package model

import "time"

// CaseKind drives the dedup policy: whether a record whose identity key
// already exists may still be inserted.
type CaseKind string

const (
	KindNew           CaseKind = "Nuevo"
	KindMessage       CaseKind = "Mensaje"
	KindCancelled     CaseKind = "Cancelado"
	KindUnprocessable CaseKind = "Unprocessable"
	KindOther         CaseKind = "Otro"

	// KindEnrichmentError marks records persisted after a failed enrichment
	// call so they survive for manual follow-up instead of being dropped.
	KindEnrichmentError CaseKind = "ErrorObtenerDatos"
)

// Attachment is a file carried by an upstream notification (usually a mail
// attachment), kept verbatim for downstream submission.
type Attachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size,omitempty"`
	Data        []byte `json:"data,omitempty"`
}

// CaseRecord is the canonical "expediente": the normalized claim/service
// record every provider shape converges to. All descriptive fields default
// to the empty string; normalization never fails, it degrades to blanks.
type CaseRecord struct {
	ContractCode          string       `json:"contractCode"`
	CompanyName           string       `json:"companyName"`
	CaseState             string       `json:"caseState"`
	CaseNumber            string       `json:"caseNumber"`
	CaseDeclaration       string       `json:"caseDeclaration"`
	NotificationNumber    string       `json:"notificationNumber"`
	CaseTreatment         string       `json:"caseTreatment"`
	CaseType              string       `json:"caseType"`
	CaseDescription       string       `json:"caseDescription"`
	CaseDate              string       `json:"caseDate"`
	IsUrgent              bool         `json:"isUrgent"`
	IsVIP                 bool         `json:"isVIP"`
	ClientName            string       `json:"clientName"`
	ClientPhone           string       `json:"clientPhone"`
	ClientPhone2          string       `json:"clientPhone2"`
	ClientVATNumber       string       `json:"clientVATNumber"`
	CountryISOCode        string       `json:"countryISOCode"`
	Address               string       `json:"address"`
	City                  string       `json:"city"`
	ZipCode               string       `json:"zipCode"`
	PolicyNumber          string       `json:"policyNumber"`
	ProcessorName         string       `json:"processorName"`
	CapabilityDescription string       `json:"capabilityDescription"`
	Classify              CaseKind     `json:"classify"`
	Provider              string       `json:"provider"`
	Message               string       `json:"message,omitempty"`
	Budget                any          `json:"budget,omitempty"`
	Subject               string       `json:"subject,omitempty"`
	From                  string       `json:"from,omitempty"`
	Content               string       `json:"content,omitempty"`
	Date                  time.Time    `json:"date,omitempty"`
	Attachments           []Attachment `json:"attachments,omitempty"`

	// RawSource is the original upstream payload, retained unmodified for
	// audit and replay. Not part of the downstream submission body.
	RawSource any `json:"-"`

	// DedupRef overrides CaseNumber in the identity key when set. Some
	// providers key follow-up messages on a subject reference that differs
	// from the case number carried in the record body.
	DedupRef string `json:"-"`
}

// ExtractedFields maps canonical field names to the string values pulled
// out of one raw record. Missing or malformed fields are "".
type ExtractedFields map[string]string

// Get returns the value for key, or "" when absent.
func (f ExtractedFields) Get(key string) string {
	if f == nil {
		return ""
	}
	return f[key]
}
