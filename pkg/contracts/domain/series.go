package domain

// AggregatedPoint is the replicate average at one concentration bucket.
// FnormSEM and ShiftSEM are 0 when Replicates == 1; the fitter treats a
// non-positive SEM as an unweighted point, so the sentinel never reaches a
// division.
type AggregatedPoint struct {
	Concentration float64 `json:"concentration"`
	FnormMean     float64 `json:"fnorm_mean"`
	FnormSEM      float64 `json:"fnorm_sem"`
	ShiftMean     float64 `json:"shift_mean"`
	ShiftSEM      float64 `json:"shift_sem"`
	Replicates    int     `json:"replicates"`
}

// AggregatedSeries is the averaged concentration-response series for one
// experimental group. Invariant: concentrations strictly increasing, one
// point per bucket.
type AggregatedSeries struct {
	Group  string            `json:"group,omitempty"`
	Points []AggregatedPoint `json:"points"`
}

// Len returns the number of aggregated points.
func (s AggregatedSeries) Len() int { return len(s.Points) }

// Concentrations returns the x axis of the series.
func (s AggregatedSeries) Concentrations() []float64 {
	xs := make([]float64, len(s.Points))
	for i, p := range s.Points {
		xs[i] = p.Concentration
	}
	return xs
}

// Readout selects which averaged signal a fit runs against.
type Readout string

const (
	ReadoutFnorm         Readout = "fnorm"
	ReadoutSpectralShift Readout = "spectral_shift"
)

// Values returns the chosen readout means; SpectralShift falls back to Fnorm
// for any unrecognized value so a zero-valued Readout behaves like the
// default readout.
func (s AggregatedSeries) Values(r Readout) []float64 {
	ys := make([]float64, len(s.Points))
	for i, p := range s.Points {
		if r == ReadoutSpectralShift {
			ys[i] = p.ShiftMean
		} else {
			ys[i] = p.FnormMean
		}
	}
	return ys
}

// SEMs returns the chosen readout standard errors, index-aligned with Values.
func (s AggregatedSeries) SEMs(r Readout) []float64 {
	es := make([]float64, len(s.Points))
	for i, p := range s.Points {
		if r == ReadoutSpectralShift {
			es[i] = p.ShiftSEM
		} else {
			es[i] = p.FnormSEM
		}
	}
	return es
}
