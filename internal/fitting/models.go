package fitting

import (
	"math"

	"mstcli/pkg/contracts/domain"
)

// Model is one closed-form binding response evaluated during optimization.
// The free-parameter vector layout is [bottom, top, kd] with an optional
// trailing [hillSlope] for models that fit cooperativity.
type Model interface {
	Kind() domain.ModelKind
	// FreeParams is the length of the parameter vector.
	FreeParams() int
	// Eval computes the model response at concentration x.
	Eval(params []float64, x float64) float64
}

// hillModel is the standard sigmoidal binding curve
// y = bottom + (top-bottom) * x^n / (kd^n + x^n).
type hillModel struct{}

func (hillModel) Kind() domain.ModelKind { return domain.ModelHill }
func (hillModel) FreeParams() int        { return 4 }

func (hillModel) Eval(p []float64, x float64) float64 {
	bottom, top, kd, n := p[0], p[1], p[2], p[3]
	if x <= 0 {
		return bottom
	}
	xn := math.Pow(x, n)
	kdn := math.Pow(kd, n)
	return bottom + (top-bottom)*xn/(kdn+xn)
}

// quadraticModel accounts for depletion of the labeled target at fixed
// concentration T. The bound fraction solves the quadratic binding equation;
// the discriminant is clamped at zero before the square root and the
// fraction to [0,1], matching the physical range.
type quadraticModel struct {
	targetConc float64
}

func (quadraticModel) Kind() domain.ModelKind { return domain.ModelQuadratic }
func (quadraticModel) FreeParams() int        { return 3 }

func (m quadraticModel) Eval(p []float64, x float64) float64 {
	bottom, top, kd := p[0], p[1], p[2]
	t := m.targetConc

	sum := t + x + kd
	disc := sum*sum - 4*t*x
	if disc < 0 {
		disc = 0
	}
	bound := (sum - math.Sqrt(disc)) / (2 * t)
	if bound < 0 {
		bound = 0
	} else if bound > 1 {
		bound = 1
	}
	return bottom + (top-bottom)*bound
}

// newModel builds the model for a kind. TargetConc validity is checked by
// the Fitter before this is reached.
func newModel(kind domain.ModelKind, targetConc float64) Model {
	if kind == domain.ModelQuadratic {
		return quadraticModel{targetConc: targetConc}
	}
	return hillModel{}
}
