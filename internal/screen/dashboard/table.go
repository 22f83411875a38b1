package dashboard

import "github.com/jwalitptl/innoguard/internal/model"

// Table is the patient grid. Headers come from the first record; every row
// lists its own record's values in arrival order.
type Table struct {
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

func BuildTable(patients []model.PatientRecord) Table {
	t := Table{Headers: []string{}, Rows: make([][]string, 0, len(patients))}
	if len(patients) > 0 {
		t.Headers = patients[0].Keys()
	}
	for _, p := range patients {
		t.Rows = append(t.Rows, p.DisplayValues())
	}
	return t
}
