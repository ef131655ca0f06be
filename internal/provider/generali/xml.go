package generali

import (
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/zasylogic/casebridge/internal/extract"
)

// parseElements decodes the flat XML document Generali embeds in its
// notification mails: one root element whose children are simple
// name/value pairs. Child names vary in casing between templates, so
// keys are stored upper-cased and looked up case-insensitively.
func parseElements(body, root string) (map[string]any, error) {
	dec := xml.NewDecoder(strings.NewReader(body))
	dec.Strict = false

	fields := make(map[string]any)
	inRoot := false
	var current string

	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if strings.EqualFold(t.Name.Local, root) {
				inRoot = true
			} else if inRoot {
				current = strings.ToUpper(t.Name.Local)
			}
		case xml.EndElement:
			if strings.EqualFold(t.Name.Local, root) {
				inRoot = false
			}
			current = ""
		case xml.CharData:
			if inRoot && current != "" {
				if v := strings.TrimSpace(string(t)); v != "" {
					fields[current] = v
				}
			}
		}
	}

	if len(fields) == 0 {
		return nil, fmt.Errorf("no %s element in body", root)
	}
	return fields, nil
}

// orderInfo is a parsed ORDER notification (a new assignment).
type orderInfo struct {
	IDOrder        string
	Company        string
	OperationDate  string
	IDClaim        string
	OperationType  string
	IDProfessional string
	Raw            map[string]any
}

func parseOrder(body string) (orderInfo, error) {
	fields, err := parseElements(body, "ORDER")
	if err != nil {
		return orderInfo{}, err
	}

	get := func(key string) string {
		return extract.Lookup(fields, key)
	}

	id := get("ID_ORDER")
	if id == "" {
		id = get("ORDERID")
	}
	return orderInfo{
		IDOrder:        id,
		Company:        get("COMPANY"),
		OperationDate:  get("OPERATION_DATE"),
		IDClaim:        get("ID_CLAIM"),
		OperationType:  get("OPERATION_TYPE"),
		IDProfessional: get("ID_PROFESSIONAL"),
		Raw:            fields,
	}, nil
}

// dialogInfo is a parsed DIALOG notification (a communication on an
// existing assignment).
type dialogInfo struct {
	Company          string
	IDDialog         string
	IDOrder          string
	IDParentDialog   string
	Transmitter      string
	Receiver         string
	Issue            string
	Message          string
	HasDocumentation string
	AnswerRequired   string
	IDProfessional   string
	Raw              map[string]any
}

func parseDialog(body string) (dialogInfo, error) {
	fields, err := parseElements(body, "DIALOG")
	if err != nil {
		return dialogInfo{}, err
	}

	get := func(key string) string {
		return extract.Lookup(fields, key)
	}

	return dialogInfo{
		Company:          get("COMPANY"),
		IDDialog:         get("ID_DIALOG"),
		IDOrder:          get("ID_ORDER"),
		IDParentDialog:   get("ID_PARENT_DIALOG"),
		Transmitter:      get("TRANSMITTER"),
		Receiver:         get("RECEIVER"),
		Issue:            get("ISSUE"),
		Message:          get("MESSAGE"),
		HasDocumentation: get("HAS_DOCUMENTATION"),
		AnswerRequired:   get("ANSWER_REQUIRED"),
		IDProfessional:   get("ID_PROFESSIONAL"),
		Raw:              fields,
	}, nil
}
