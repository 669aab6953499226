package domain

// OverlayRow is one concentration of the two-group comparison table. A nil
// cell means the group has no point at that concentration; it is never
// zero-filled or extrapolated.
type OverlayRow struct {
	Concentration float64          `json:"concentration"`
	A             *AggregatedPoint `json:"a,omitempty"`
	B             *AggregatedPoint `json:"b,omitempty"`
}

// OverlayTable aligns two aggregated series on the union of their
// concentrations, ascending. Purely structural; no further statistics.
type OverlayTable struct {
	GroupA string       `json:"group_a,omitempty"`
	GroupB string       `json:"group_b,omitempty"`
	Rows   []OverlayRow `json:"rows"`
}
