package domain

import "fmt"

// RawTable is the boundary input shape: one instrument export already split
// into columns and string cells. The caller (CLI, HTTP client, spreadsheet
// reader) is responsible for producing it; the core never touches files.
type RawTable struct {
	Name    string     `json:"name"`
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// Measurement is one extracted per-capillary reading. Immutable once produced.
type Measurement struct {
	Concentration       float64 `json:"concentration"`        // Molar, > 0
	Fnorm               float64 `json:"fnorm"`                // F_after / F_before
	SpectralShift       float64 `json:"spectral_shift"`       // ch670 / ch650
	InitialFluorescence float64 `json:"initial_fluorescence"` // F_before
}

// Warning records a recoverable per-row extraction problem. Rows that fail
// extraction are skipped, not fatal, unless every row of a table fails.
type Warning struct {
	Table  string `json:"table,omitempty"`
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

func (w Warning) String() string {
	if w.Table != "" {
		return fmt.Sprintf("%s row %d: %s", w.Table, w.Row, w.Reason)
	}
	return fmt.Sprintf("row %d: %s", w.Row, w.Reason)
}
