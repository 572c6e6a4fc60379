// Package snapshot is the import/export boundary of the board: a plain
// structural echo of the period dates, the cappers and the total.
package snapshot

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/shopspring/decimal"

	"github.com/okian/recap/internal/domain/model"
	"github.com/okian/recap/internal/domain/units"
)

// Document is the decoded form of an export or import payload.
type Document struct {
	StartDate string
	EndDate   string
	Cappers   []model.Entry
	// HasCappers is false when the payload had no cappers array; such a
	// payload must not replace the collection.
	HasCappers bool
	Total      decimal.Decimal
}

type wireCapper struct {
	Name  string      `json:"name"`
	Role  string      `json:"role"`
	Units json.Number `json:"units"`
}

type wireDocument struct {
	StartDate string       `json:"startDate"`
	EndDate   string       `json:"endDate"`
	Cappers   []wireCapper `json:"cappers"`
	Total     json.Number  `json:"total"`
}

// FromView projects a published view and the reporting period into a document.
func FromView(v model.View, startDate, endDate string) Document {
	cappers := make([]model.Entry, 0, len(v.Rows))
	for _, r := range v.Rows {
		cappers = append(cappers, model.Entry{ID: r.ID, Name: r.Name, Role: r.Role, Units: r.Units})
	}
	return Document{
		StartDate:  startDate,
		EndDate:    endDate,
		Cappers:    cappers,
		HasCappers: true,
		Total:      v.Total,
	}
}

// Encode renders the document as two-space indented JSON. Identifiers are
// not exported; units and total are JSON numbers.
func Encode(doc Document) ([]byte, error) {
	w := wireDocument{
		StartDate: doc.StartDate,
		EndDate:   doc.EndDate,
		Cappers:   make([]wireCapper, 0, len(doc.Cappers)),
		Total:     json.Number(doc.Total.String()),
	}
	for _, c := range doc.Cappers {
		w.Cappers = append(w.Cappers, wireCapper{Name: c.Name, Role: c.Role, Units: json.Number(c.Units.String())})
	}
	return json.MarshalIndent(w, "", "  ")
}

// Decode parses an import payload.
//
// Unparsable text, a top level that is not an object, or a capper element
// that is not an object with string name/role yield ErrMalformedPayload.
// A missing or non-array "cappers" is not an error; HasCappers is false.
// Units may be a number, a numeric string (parsed best-effort) or null.
func Decode(data []byte) (Document, error) {
	var top map[string]json.RawMessage
	if err := unmarshal(data, &top); err != nil {
		return Document{}, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}
	if top == nil {
		return Document{}, fmt.Errorf("%w: top level is not an object", ErrMalformedPayload)
	}

	doc := Document{
		StartDate: optionalString(top["startDate"]),
		EndDate:   optionalString(top["endDate"]),
		Total:     decodeUnits(top["total"]),
	}

	var elems []json.RawMessage
	if raw, ok := top["cappers"]; !ok || unmarshal(raw, &elems) != nil || elems == nil {
		return doc, nil
	}
	doc.HasCappers = true
	doc.Cappers = make([]model.Entry, 0, len(elems))
	for i, raw := range elems {
		e, err := decodeCapper(raw)
		if err != nil {
			return Document{}, fmt.Errorf("%w: cappers[%d]: %w", ErrMalformedPayload, i, err)
		}
		doc.Cappers = append(doc.Cappers, e)
	}
	return doc, nil
}

func decodeCapper(raw json.RawMessage) (model.Entry, error) {
	var fields map[string]json.RawMessage
	if err := unmarshal(raw, &fields); err != nil {
		return model.Entry{}, err
	}
	if fields == nil {
		return model.Entry{}, errors.New("null element")
	}
	name, err := textField(fields["name"])
	if err != nil {
		return model.Entry{}, fmt.Errorf("name: %w", err)
	}
	role, err := textField(fields["role"])
	if err != nil {
		return model.Entry{}, fmt.Errorf("role: %w", err)
	}
	return model.Entry{Name: name, Role: role, Units: decodeUnits(fields["units"])}, nil
}

// textField accepts a string, null or absence.
func textField(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", err
	}
	return s, nil
}

func optionalString(raw json.RawMessage) string {
	s, err := textField(raw)
	if err != nil {
		return ""
	}
	return s
}

// decodeUnits never fails: anything that is not a number or a string is zero.
func decodeUnits(raw json.RawMessage) decimal.Decimal {
	if len(raw) == 0 {
		return decimal.Zero
	}
	var v any
	if err := unmarshal(raw, &v); err != nil {
		return decimal.Zero
	}
	switch t := v.(type) {
	case json.Number:
		return units.FromNumber(t.String())
	case string:
		return units.Parse(t)
	default:
		return decimal.Zero
	}
}

func unmarshal(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("trailing data after JSON value")
	}
	return nil
}

// ReadFile decodes a document from disk.
func ReadFile(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("read snapshot %s: %w", path, err)
	}
	return Decode(data)
}

// WriteFile encodes doc to path.
func WriteFile(path string, doc Document) error {
	data, err := Encode(doc)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write snapshot %s: %w", path, err)
	}
	return nil
}
