package extract

import "testing"

var asiturLabels = []string{
	"Provincia:",
	"Tipo siniestro:",
	"Expediente:",
	"Referencia Asitur:",
	"Observaciones póliza:",
}

func TestLabelScanner_BetweenLabels(t *testing.T) {
	body := "Provincia:\nMADRID\nTipo siniestro:\nAsistencia\n"
	s := NewLabelScanner(asiturLabels, "Datos del Asegurado:")

	if got := s.Value(body, "Provincia:"); got != "MADRID" {
		t.Errorf("Provincia = %q, want MADRID", got)
	}
	if got := s.Value(body, "Tipo siniestro:"); got != "Asistencia" {
		t.Errorf("Tipo siniestro = %q, want Asistencia", got)
	}
}

func TestLabelScanner_SameLine(t *testing.T) {
	body := "Expediente: H-2024-1881\nTexto libre sin etiqueta"
	s := NewLabelScanner(asiturLabels, "")

	if got := s.Value(body, "Expediente:"); got != "H-2024-1881" {
		t.Errorf("Expediente = %q, want H-2024-1881", got)
	}
}

func TestLabelScanner_TerminatorFallback(t *testing.T) {
	body := "Observaciones póliza:\nlinea uno\nlinea dos\nDatos del Asegurado:\nJuan"
	s := NewLabelScanner([]string{"Observaciones póliza:"}, "Datos del Asegurado:")

	if got := s.Value(body, "Observaciones póliza:"); got != "linea uno\nlinea dos" {
		t.Errorf("Observaciones = %q", got)
	}
}

func TestLabelScanner_MissingLabel(t *testing.T) {
	s := NewLabelScanner(asiturLabels, "")
	if got := s.Value("cuerpo sin etiquetas", "Provincia:"); got != "" {
		t.Errorf("expected empty value, got %q", got)
	}
}

func TestLabelScanner_CaseInsensitive(t *testing.T) {
	body := "PROVINCIA: GIRONA\nTipo siniestro: Agua"
	s := NewLabelScanner(asiturLabels, "")
	if got := s.Value(body, "Provincia:"); got != "GIRONA" {
		t.Errorf("Provincia = %q, want GIRONA", got)
	}
}

func TestMarkupScanner_After(t *testing.T) {
	fragment := `<table>
		<tr><td>Referencia Asitur:</td><td>&nbsp;</td><td>REF</td><td>2024-000123</td></tr>
	</table>`
	s := NewMarkupScanner(fragment)

	if got := s.After("Referencia Asitur:", 2); got != "2024-000123" {
		t.Errorf("After(2) = %q, want 2024-000123 (texts: %v)", got, s.Texts())
	}
	if got := s.After("No existe:", 1); got != "" {
		t.Errorf("expected empty for missing label, got %q", got)
	}
}

func TestLookup_CaseFallback(t *testing.T) {
	record := map[string]any{
		"ID_ORDER": "55501",
		"company":  "K",
		"Qty":      float64(3),
	}

	if got := Lookup(record, "id_order"); got != "55501" {
		t.Errorf("upper-case fallback failed: %q", got)
	}
	if got := Lookup(record, "COMPANY"); got != "K" {
		t.Errorf("lower-case fallback failed: %q", got)
	}
	if got := Lookup(record, "Qty"); got != "3" {
		t.Errorf("numeric stringify failed: %q", got)
	}
	if got := Lookup(record, "missing"); got != "" {
		t.Errorf("missing key should be empty, got %q", got)
	}
}
