package assay

import (
	"math"

	"mstcli/pkg/contracts/domain"
)

// Combine aligns two aggregated series into one table keyed by the union of
// their concentrations. Concentrations matching within tolerance share a
// row; a dose present in only one group leaves the other group's cell nil.
// Purely structural: no statistics, no extrapolation.
func Combine(a, b domain.AggregatedSeries, tolerance float64) *domain.OverlayTable {
	if tolerance <= 0 {
		tolerance = DefaultConcentrationTolerance
	}

	table := &domain.OverlayTable{
		GroupA: a.Group,
		GroupB: b.Group,
		Rows:   make([]domain.OverlayRow, 0, len(a.Points)+len(b.Points)),
	}

	same := func(c1, c2 float64) bool {
		scale := math.Max(math.Abs(c1), math.Abs(c2))
		if scale == 0 {
			return true
		}
		return math.Abs(c1-c2)/scale <= tolerance
	}

	// Both series are sorted ascending, so a two-pointer merge yields the
	// union in order.
	i, j := 0, 0
	for i < len(a.Points) || j < len(b.Points) {
		switch {
		case i < len(a.Points) && j < len(b.Points) && same(a.Points[i].Concentration, b.Points[j].Concentration):
			pa, pb := a.Points[i], b.Points[j]
			table.Rows = append(table.Rows, domain.OverlayRow{
				Concentration: pa.Concentration,
				A:             &pa,
				B:             &pb,
			})
			i++
			j++
		case j >= len(b.Points) || (i < len(a.Points) && a.Points[i].Concentration < b.Points[j].Concentration):
			pa := a.Points[i]
			table.Rows = append(table.Rows, domain.OverlayRow{Concentration: pa.Concentration, A: &pa})
			i++
		default:
			pb := b.Points[j]
			table.Rows = append(table.Rows, domain.OverlayRow{Concentration: pb.Concentration, B: &pb})
			j++
		}
	}

	return table
}
