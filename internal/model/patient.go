package model

// Field is one key/value pair of a patient row, kept in the order the
// backend sent it.
type Field struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

// PatientRecord is the canonical, display-oriented patient row. Identity
// fields are empty when the backend's view does not expose them.
type PatientRecord struct {
	Name           string  `json:"name,omitempty"`
	Phone          string  `json:"phone,omitempty"`
	Email          string  `json:"email,omitempty"`
	Address        string  `json:"address,omitempty"`
	PatientID      string  `json:"patient_id,omitempty"`
	Location       string  `json:"location,omitempty"`
	Age            float64 `json:"age"`
	Disease        string  `json:"disease"`
	PurchaseAmount float64 `json:"purchase_amount"`

	Fields []Field `json:"-"`
}

// Keys returns the record's column names in arrival order.
func (r PatientRecord) Keys() []string {
	keys := make([]string, len(r.Fields))
	for i, f := range r.Fields {
		keys[i] = f.Key
	}
	return keys
}

// DisplayValues renders every value of the record as a table cell.
func (r PatientRecord) DisplayValues() []string {
	values := make([]string, len(r.Fields))
	for i, f := range r.Fields {
		values[i] = DisplayString(f.Value)
	}
	return values
}

// PayloadShape tells which encoding the backend used for the rows of a page.
type PayloadShape int

const (
	ShapeEmpty PayloadShape = iota
	ShapeObjects
	ShapeTuples
)

func (s PayloadShape) String() string {
	switch s {
	case ShapeObjects:
		return "objects"
	case ShapeTuples:
		return "tuples"
	}
	return "empty"
}

// PageInfo is the backend's pagination metadata. Total is nil when the
// response did not report one.
type PageInfo struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	Total   *int `json:"total,omitempty"`
	HasNext bool `json:"has_next"`
}

// PatientPage is one normalized page of the patient listing.
type PatientPage struct {
	Role    string          `json:"role,omitempty"`
	Records []PatientRecord `json:"data"`
	Info    *PageInfo       `json:"pagination,omitempty"`
	Shape   PayloadShape    `json:"-"`
}

// Total returns the reported total and whether the response carried one.
func (p *PatientPage) Total() (int, bool) {
	if p == nil || p.Info == nil || p.Info.Total == nil {
		return 0, false
	}
	return *p.Info.Total, true
}
