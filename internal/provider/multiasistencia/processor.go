package multiasistencia

import (
	"strconv"
	"strings"
	"time"

	"github.com/zasylogic/casebridge/internal/classify"
	"github.com/zasylogic/casebridge/internal/model"
	"github.com/zasylogic/casebridge/internal/normalize"
)

// contractCodes maps the MultiAsistencia professional id of each office
// to the downstream contract code. An unknown professional yields an
// empty code, which downstream rejects visibly instead of misrouting.
var contractCodes = map[int]string{
	247201: "MlSev",
	247301: "MlMalA",
	248601: "MlBcn",
	161901: "MlTgn",
	187801: "MlMad",
	255701: "MlGra",
	247401: "MlGir",
}

// caseTypeRules derives the business case type from the service's trade,
// origin and repair description, in that precedence. Ordered, first match
// wins.
var caseTypeRules = []classify.CaseTypeRule{
	{Field: "gremio", Any: []string{"fontanero", "fontaneria comunidades"}, Result: "Daños por agua"},
	{Field: "gremio", Any: []string{"electricista"}, Result: "Daños eléctricos"},
	{Field: "gremio", Any: []string{"manitas"}, Result: "Bricolaje/Manitas"},
	{Field: "procedencia", Any: []string{"especiales (serv."}, Result: "Asistencia"},
	{Field: "procedencia", Any: []string{"asistencia"}, Result: "Conexión o contado"},
	{Field: "descripcion", Any: []string{"mantenimiento"}, Exclude: []string{"mantenimiento integral"}, Result: "Mantenimiento"},
	{Field: "descripcion", Any: []string{"rotura elemento de loza"}, Result: "Rotura de Lozas"},
	{Field: "descripcion", Any: []string{"marmol"}, Result: "Marmoles/Cristales"},
	{Field: "descripcion", Any: []string{"incendio"}, Result: "Daños por incendio"},
	{Field: "descripcion", Any: []string{"robo"}, Result: "Daños por robo o hurto"},
	{Field: "descripcion", Any: []string{"lluvia", "viento", "tormenta"}, Result: "Daños por fenómenos meteorológicos"},
}

// AssignedAt parses the service's "dd/mm/yyyy-hh:mm" assignment stamp.
func AssignedAt(s Servicio) (time.Time, error) {
	return time.Parse("02/01/2006-15:04", strings.TrimSpace(s.FechaHoraAsignacion))
}

// ToCaseRecord shapes one raw service into the canonical record. now
// backs the date fallback for unparseable assignment stamps.
func ToCaseRecord(s Servicio, providerName string, now time.Time) *model.CaseRecord {
	zip, city := normalize.SplitPostal(s.DistritoPostal)

	fields := model.ExtractedFields{
		"gremio":      s.Gremio,
		"procedencia": s.Procedencia,
		"descripcion": s.DescripcionReparacion,
	}

	rec := &model.CaseRecord{
		ContractCode:    contractCodes[s.Profesional],
		CompanyName:     "Multiasistencia",
		CaseState:       s.Estado,
		CaseNumber:      strconv.FormatInt(s.Servicio, 10),
		CaseTreatment:   s.Procedencia,
		CaseType:        classify.CaseType(caseTypeRules, fields),
		CaseDescription: buildDescription(s),
		CaseDate:        normalize.ReformatDate(s.FechaHoraAsignacion, now),
		IsUrgent:        strings.EqualFold(strings.TrimSpace(s.Urgente), "S"),
		ClientName:      s.NombreCliente,
		Address:         s.Direccion,
		City:            city,
		ZipCode:         zip,
		CountryISOCode:  "ES",
		PolicyNumber:    s.NumeroPoliza,
		Classify:        model.KindNew,
		Provider:        providerName,
		RawSource:       s,
	}

	if len(s.TelefonoCliente) > 0 {
		rec.ClientPhone = s.TelefonoCliente[0].Numero
	}
	if len(s.TelefonoCliente) > 1 {
		rec.ClientPhone2 = s.TelefonoCliente[1].Numero
	}
	return rec
}

func buildDescription(s Servicio) string {
	return normalize.JoinFields([]normalize.Field{
		{Label: "Descripción", Value: s.DescripcionReparacion},
		{Label: "Gremio", Value: s.Gremio},
		{Label: "Procedencia", Value: s.Procedencia},
		{Label: "Referencia", Value: s.Referencia},
	})
}
