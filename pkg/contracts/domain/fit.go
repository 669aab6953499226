package domain

import (
	"encoding/json"
	"math"
)

// ModelKind selects the binding model used by a fit.
type ModelKind string

const (
	// ModelHill is the standard sigmoidal binding curve
	// y = Bottom + (Top-Bottom) * x^n / (Kd^n + x^n).
	ModelHill ModelKind = "hill"
	// ModelQuadratic is the ligand-depletion model; it solves the quadratic
	// binding equation for the bound fraction at fixed target concentration
	// and is preferred when the target is not negligible against Kd.
	ModelQuadratic ModelKind = "quadratic"
)

// Valid reports whether k names a known model.
func (k ModelKind) Valid() bool {
	return k == ModelHill || k == ModelQuadratic
}

// FitOptions carries the caller-supplied fit configuration. Bottom and Top
// are always seeded from the observed data range, so only the affinity side
// is configurable.
type FitOptions struct {
	InitialKd        float64 `json:"initial_kd" validate:"required,gt=0"`
	InitialHillSlope float64 `json:"initial_hill_slope,omitempty"`
	// TargetConc is the fixed labeled-target concentration in Molar.
	// Required (> 0) for ModelQuadratic, ignored by ModelHill.
	TargetConc float64 `json:"target_concentration,omitempty"`
	// Readout selects which averaged signal to fit. Defaults to Fnorm.
	Readout Readout `json:"readout,omitempty"`
	// WeightBySEM enables 1/SEM weighting of residuals. Points whose SEM is
	// the n=1 sentinel (0) keep unit weight.
	WeightBySEM bool `json:"weight_by_sem,omitempty"`
	// MaxIterations and Tolerance bound the optimizer; zero values take the
	// fitter defaults. Exhausting MaxIterations is a typed error, never a
	// silent return of the seed.
	MaxIterations int     `json:"max_iterations,omitempty"`
	Tolerance     float64 `json:"tolerance,omitempty"`
}

// FitParams is the parameter vector of a binding model fit. HillSlope is
// only meaningful for ModelHill; the quadratic model fixes it implicitly.
type FitParams struct {
	Bottom    float64 `json:"bottom"`
	Top       float64 `json:"top"`
	Kd        float64 `json:"kd"`
	HillSlope float64 `json:"hill_slope,omitempty"`
}

// MarshalJSON encodes NaN entries (the singular-covariance marker for
// standard errors) as null, since JSON has no NaN literal. HillSlope is
// omitted when unset, matching models that do not fit cooperativity.
func (p FitParams) MarshalJSON() ([]byte, error) {
	nullable := func(v float64) *float64 {
		if math.IsNaN(v) {
			return nil
		}
		return &v
	}
	out := struct {
		Bottom    *float64 `json:"bottom"`
		Top       *float64 `json:"top"`
		Kd        *float64 `json:"kd"`
		HillSlope *float64 `json:"hill_slope,omitempty"`
	}{
		Bottom: nullable(p.Bottom),
		Top:    nullable(p.Top),
		Kd:     nullable(p.Kd),
	}
	if p.HillSlope != 0 {
		out.HillSlope = nullable(p.HillSlope)
	}
	return json.Marshal(out)
}

// FitResult is the full outcome of one converged model fit. StdErrs entries
// are NaN when the parameter covariance is singular.
type FitResult struct {
	Model      ModelKind `json:"model"`
	Group      string    `json:"group,omitempty"`
	Readout    Readout   `json:"readout"`
	Params     FitParams `json:"parameters"`
	StdErrs    FitParams `json:"parameter_standard_errors"`
	Fitted     []float64 `json:"fitted_values"`
	Residuals  []float64 `json:"residuals"`
	Converged  bool      `json:"converged"`
	Iterations int       `json:"iterations"`
	RSS        float64   `json:"residual_sum_of_squares"`
	// DegreesOfFreedom is points minus free parameters, used for the
	// covariance scale.
	DegreesOfFreedom int `json:"degrees_of_freedom"`
	// TargetConc echoes the fixed target concentration for quadratic fits.
	TargetConc float64 `json:"target_concentration,omitempty"`
}
