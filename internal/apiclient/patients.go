package apiclient

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/jwalitptl/innoguard/internal/model"
)

// Positional layout of a tuple row.
var tupleKeys = []string{"patient_id", "location", "age", "disease", "purchase_amount"}

// ErrMalformedPage is returned when the listing body has no data array.
var ErrMalformedPage = errors.New("malformed patients response")

type wirePagination struct {
	Limit   int      `json:"limit"`
	Offset  int      `json:"offset"`
	Total   *float64 `json:"total"`
	HasNext bool     `json:"has_next"`
}

type wirePage struct {
	Role       string            `json:"role"`
	Data       []json.RawMessage `json:"data"`
	Pagination *wirePagination   `json:"pagination"`
}

// DecodePatientPage reads a listing body. The rows arrive either as keyed
// objects or as [patient_id, location, age, disease, purchase_amount]
// tuples; the first row decides which, and both are returned as
// PatientRecord.
func DecodePatientPage(r io.Reader) (*model.PatientPage, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read patients response: %w", err)
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPage, err)
	}
	data, ok := envelope["data"]
	if !ok || !isArray(data) {
		return nil, fmt.Errorf("%w: data is not an array", ErrMalformedPage)
	}

	var wire wirePage
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPage, err)
	}

	page := &model.PatientPage{
		Role:    wire.Role,
		Records: make([]model.PatientRecord, 0, len(wire.Data)),
		Shape:   detectShape(wire.Data),
	}

	for _, row := range wire.Data {
		var rec model.PatientRecord
		if page.Shape == model.ShapeTuples {
			rec, err = fromTuple(row)
		} else {
			rec, err = fromObject(row)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedPage, err)
		}
		page.Records = append(page.Records, rec)
	}

	if p := wire.Pagination; p != nil {
		page.Info = &model.PageInfo{Limit: p.Limit, Offset: p.Offset, HasNext: p.HasNext}
		if p.Total != nil {
			total := int(*p.Total)
			page.Info.Total = &total
		}
	}

	return page, nil
}

func detectShape(rows []json.RawMessage) model.PayloadShape {
	if len(rows) == 0 {
		return model.ShapeEmpty
	}
	if isArray(rows[0]) {
		return model.ShapeTuples
	}
	return model.ShapeObjects
}

func isArray(raw json.RawMessage) bool {
	trimmed := bytes.TrimLeft(raw, " \t\r\n")
	return len(trimmed) > 0 && trimmed[0] == '['
}

func fromTuple(raw json.RawMessage) (model.PatientRecord, error) {
	var values []any
	if isArray(raw) {
		if err := json.Unmarshal(raw, &values); err != nil {
			return model.PatientRecord{}, err
		}
	}
	at := func(i int) any {
		if i < len(values) {
			return values[i]
		}
		return nil
	}

	rec := model.PatientRecord{
		PatientID:      model.ToText(at(0)),
		Location:       model.ToText(at(1)),
		Age:            model.ToNumber(at(2)),
		Disease:        model.ToText(at(3)),
		PurchaseAmount: model.ToNumber(at(4)),
	}
	rec.Fields = []model.Field{
		{Key: tupleKeys[0], Value: rec.PatientID},
		{Key: tupleKeys[1], Value: rec.Location},
		{Key: tupleKeys[2], Value: rec.Age},
		{Key: tupleKeys[3], Value: rec.Disease},
		{Key: tupleKeys[4], Value: rec.PurchaseAmount},
	}
	return rec, nil
}

// fromObject keeps every key of the row, in order, and lifts the known ones
// into typed fields.
func fromObject(raw json.RawMessage) (model.PatientRecord, error) {
	fields, err := decodeOrdered(raw)
	if err != nil {
		return model.PatientRecord{}, err
	}

	rec := model.PatientRecord{Fields: fields}
	for _, f := range fields {
		switch f.Key {
		case "name":
			rec.Name = model.ToText(f.Value)
		case "phone":
			rec.Phone = model.ToText(f.Value)
		case "email":
			rec.Email = model.ToText(f.Value)
		case "address":
			rec.Address = model.ToText(f.Value)
		case "patient_id":
			rec.PatientID = model.ToText(f.Value)
		case "location":
			rec.Location = model.ToText(f.Value)
		case "age":
			rec.Age = model.ToNumber(f.Value)
		case "disease":
			rec.Disease = model.ToText(f.Value)
		case "purchase_amount":
			rec.PurchaseAmount = model.ToNumber(f.Value)
		}
	}
	return rec, nil
}

// decodeOrdered decodes a JSON object into its key/value pairs in document
// order. A repeated key keeps its first position and its last value.
// Anything other than an object yields no fields.
func decodeOrdered(raw json.RawMessage) ([]model.Field, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, nil
	}

	var fields []model.Field
	index := make(map[string]int)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected object key %v", keyTok)
		}
		var value any
		if err := dec.Decode(&value); err != nil {
			return nil, err
		}
		if i, seen := index[key]; seen {
			fields[i].Value = value
			continue
		}
		index[key] = len(fields)
		fields = append(fields, model.Field{Key: key, Value: value})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return fields, nil
}
