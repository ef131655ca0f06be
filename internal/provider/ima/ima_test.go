package ima

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/zasylogic/casebridge/internal/mail"
	"github.com/zasylogic/casebridge/internal/model"
)

func TestAnalyzeMail(t *testing.T) {
	tests := []struct {
		name     string
		subject  string
		body     string
		wantType string
		wantNum  string
		wantKind model.CaseKind
	}{
		{
			"nuevo servicio",
			"Nuevo Servicio en la plataforma IMA",
			"Se ha creado el servicio nº 12345678 a su nombre",
			"NEW_SERVICE", "12345678", model.KindNew,
		},
		{
			"presupuesto modificado",
			"El Presupuesto del servicio IMA fue modificado",
			"El presupuesto del servicio IMA Nº: 87654321 ha cambiado",
			"BUDGET_MODIFIED", "87654321", model.KindMessage,
		},
		{
			"presupuesto aprobado",
			"El Presupuesto del Servicio IMA fue aprobado",
			"servicio ima no 11112222",
			"BUDGET_APPROVED", "11112222", model.KindMessage,
		},
		{
			"cancelado",
			"Servicio IMA Cancelado",
			"Servicio IMA nº 33334444 cancelado por la compañía",
			"SERVICE_CANCELLED", "33334444", model.KindCancelled,
		},
		{
			"mensaje",
			"Nuevo mensaje en el servicio IMA",
			"Tiene un mensaje nuevo en el servicio IMA n 55556666",
			"SERVICE_MESSAGE", "55556666", model.KindMessage,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := AnalyzeMail(tt.subject, tt.body, "")
			if a == nil {
				t.Fatal("AnalyzeMail returned nil")
			}
			if a.Type != tt.wantType || a.ServiceNumber != tt.wantNum || a.Kind != tt.wantKind {
				t.Errorf("got %+v", a)
			}
		})
	}
}

func TestAnalyzeMail_Unmatched(t *testing.T) {
	if a := AnalyzeMail("Factura adjunta", "servicio nº 12345678", ""); a != nil {
		t.Errorf("unknown subject must not classify, got %+v", a)
	}
	if a := AnalyzeMail("Nuevo Servicio en la plataforma IMA", "sin número de servicio", ""); a != nil {
		t.Errorf("subject without service number must not classify, got %+v", a)
	}
}

func TestCaseTypeFor(t *testing.T) {
	tests := []struct {
		typology, category string
		want               string
	}{
		{"danos por água", "", "Daños por Agua"},
		{"fontanería general", "", "Daños por Agua"},
		{"danos eléctricos", "", "Daños Eléctricos"},
		{"", "asistencia no cubierta", "Conexión o contado"},
		{"manitas", "", "Bricolaje/Manitas"},
		{"cerrajería", "urgente", "Sin definir"},
	}
	for _, tt := range tests {
		if got := CaseTypeFor(tt.typology, tt.category); got != tt.want {
			t.Errorf("CaseTypeFor(%q, %q) = %q, want %q", tt.typology, tt.category, got, tt.want)
		}
	}
}

func TestCityFromAddress(t *testing.T) {
	tests := []struct {
		address string
		want    string
	}{
		{"CL ANGELA GONZALEZ 8 28038 MADRID Spain", "MADRID"},
		{"AV DIAGONAL 100 08019 SANT ADRIA DE BESOS Spain", "SANT ADRIA DE BESOS"},
		{"CALLE MAYOR MADRID", "MADRID"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := CityFromAddress(tt.address); got != tt.want {
			t.Errorf("CityFromAddress(%q) = %q, want %q", tt.address, got, tt.want)
		}
	}
}

func TestSplitPhones(t *testing.T) {
	got := SplitPhones("600111222 / null / 911222333")
	if len(got) != 2 || got[0] != "600111222" || got[1] != "911222333" {
		t.Errorf("got %v", got)
	}
	if got := SplitPhones(""); len(got) != 0 {
		t.Errorf("empty input yields %v", got)
	}
}

func TestContractCode(t *testing.T) {
	if got := contractCode("IMA-2024"); got != "IM" {
		t.Errorf("got %q, want IM", got)
	}
	if got := contractCode("PRST-77"); got != "PM" {
		t.Errorf("got %q, want PM", got)
	}
}

const serviceJSON = `{
	"id": 4210,
	"ima_process_number": "12345678",
	"account_reference": "IMA-HOGAR",
	"typology": {"name": "typology.water"},
	"category": {"name": "category.home"},
	"service_coverage": "cubierto",
	"observations": "fuga en cocina",
	"opening_date": "2025-07-16 10:30:00",
	"service_urgency": 1,
	"client_name": "LUIS MARTIN",
	"client_phone_number": "600111222 / null",
	"address": "CL ANGELA GONZALEZ 8 28038 MADRID Spain",
	"postal_code": "28038",
	"service_insurance": {"name": "POL-9001"},
	"service_messages": [{"message": "cliente avisado"}]
}`

func newPortal(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			http.SetCookie(w, &http.Cookie{Name: "XSRF-TOKEN", Value: "tok%3D1", Path: "/"})
		case http.MethodPost:
			if r.Header.Get("X-XSRF-TOKEN") != "tok=1" {
				http.Error(w, "token mismatch", http.StatusPreconditionFailed)
				return
			}
			http.SetCookie(w, &http.Cookie{Name: "XSRF-TOKEN", Value: "tok%3D2", Path: "/"})
		}
	})
	mux.HandleFunc("/services", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-XSRF-TOKEN") != "tok=2" {
			http.Error(w, "no session", http.StatusUnauthorized)
			return
		}
		if r.URL.Query().Get("search") != "12345678" {
			w.Write([]byte(`{"props":{"services":{"data":[]},"language":{}}}`))
			return
		}
		w.Write([]byte(`{"props":{"services":{"data":[` + serviceJSON + `]},` +
			`"language":{"typology.water":"Danos por água","category.home":"Hogar"}}}`))
	})
	mux.HandleFunc("/services/4210/get-budget-lines", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"budget_lines":[{
			"tariff":{"category":{"name":"category.home"},"code":"T-01","description":"Mano de obra","value":"35.5"},
			"qty":2,"total_value":71,"state":"A",
			"responsible":{"name":"resp.ima"},"date":"2025-07-16 09:00:00","sender":"P","observations":""
		}]}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testAdapter(t *testing.T) *Adapter {
	t.Helper()
	srv := newPortal(t)
	client, err := NewClient(srv.URL, "user@ima.es", "clave", srv.Client(), nil)
	if err != nil {
		t.Fatal(err)
	}
	account := model.ProviderAccount{Name: "IMA", Username: "buzon@ima.es"}
	src := mail.SourceFunc(func(context.Context, model.ProviderAccount) ([]mail.Message, error) {
		return nil, nil
	})
	return New(account, src, client, zerolog.Nop())
}

func TestNormalize_EnrichesFromPortal(t *testing.T) {
	ad := testAdapter(t)
	msg := mail.Message{
		Subject: "Nuevo Servicio en la plataforma IMA",
		Text:    "Se ha dado de alta el servicio nº 12345678",
		Date:    time.Date(2025, 7, 16, 11, 0, 0, 0, time.UTC),
	}

	rec, err := ad.Normalize(context.Background(), msg)
	if err != nil {
		t.Fatal(err)
	}
	if rec == nil {
		t.Fatal("expected a record")
	}
	if rec.CaseNumber != "12345678" {
		t.Errorf("CaseNumber = %q", rec.CaseNumber)
	}
	if rec.ContractCode != "IM" {
		t.Errorf("ContractCode = %q, want IM", rec.ContractCode)
	}
	if rec.CaseType != "Daños por Agua" {
		t.Errorf("CaseType = %q", rec.CaseType)
	}
	if rec.City != "MADRID" || rec.ZipCode != "28038" {
		t.Errorf("city/zip = %q / %q", rec.City, rec.ZipCode)
	}
	if rec.ClientPhone != "600111222" || rec.ClientPhone2 != "" {
		t.Errorf("phones = %q / %q", rec.ClientPhone, rec.ClientPhone2)
	}
	if !rec.IsUrgent {
		t.Error("IsUrgent = false")
	}
	if rec.Message != "cliente avisado" {
		t.Errorf("Message = %q", rec.Message)
	}

	budget, ok := rec.Budget.([]BudgetRow)
	if !ok || len(budget) != 1 {
		t.Fatalf("Budget = %#v", rec.Budget)
	}
	row := budget[0]
	if row.Valor != "35.50" || row.Total != "71.00" || row.Estado != "Aceptado" || row.Resp != "PROVEEDOR" {
		t.Errorf("unexpected budget row: %+v", row)
	}
	if row.Fecha != "2025-07-16" {
		t.Errorf("Fecha = %q", row.Fecha)
	}
	if !strings.Contains(rec.CaseDescription, "danos por água") {
		t.Errorf("CaseDescription = %q", rec.CaseDescription)
	}
}

func TestNormalize_UnclassifiedMailIsConsumed(t *testing.T) {
	ad := testAdapter(t)
	rec, err := ad.Normalize(context.Background(), mail.Message{Subject: "Boletín semanal"})
	if err != nil {
		t.Fatal(err)
	}
	if rec != nil {
		t.Errorf("expected nil record, got %+v", rec)
	}
}

func TestNormalize_LookupFailureIsRetriable(t *testing.T) {
	ad := testAdapter(t)
	msg := mail.Message{
		Subject: "Servicio IMA Cancelado",
		Text:    "Servicio IMA nº 99999999",
	}
	// The error surfaces so the mail is counted omitted and stays
	// unacknowledged for the next run.
	rec, err := ad.Normalize(context.Background(), msg)
	if err == nil {
		t.Fatal("expected an error for a failed portal lookup")
	}
	if rec != nil {
		t.Errorf("expected no record, got %+v", rec)
	}
}
