package fitting

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"mstcli/internal/errors"
	"mstcli/pkg/contracts/domain"
)

const (
	// DefaultMaxIterations bounds the Levenberg-Marquardt loop when the
	// caller does not set one. Exhausting it is a typed error, not a result.
	DefaultMaxIterations = 500
	// DefaultTolerance is the relative improvement / gradient threshold
	// under which the search is considered converged.
	DefaultTolerance = 1e-12
)

// Kd search bounds for the quadratic model, in Molar. The Hill model bounds
// Kd by the measured concentration range instead.
const (
	quadraticKdLower = 1e-12
	quadraticKdUpper = 1e-2
)

// Fitter runs binding model fits over aggregated series.
type Fitter struct {
	logger *slog.Logger
}

// NewFitter creates a fitter.
func NewFitter(logger *slog.Logger) *Fitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fitter{logger: logger}
}

// Fit estimates the chosen model's parameters for one aggregated series.
// Bottom and Top are seeded from the observed response range, Kd and Hill
// slope from opts. Configuration problems and short series fail before any
// optimization work; a convergence failure carries the last estimate and
// iteration count.
func (f *Fitter) Fit(ctx context.Context, series domain.AggregatedSeries, kind domain.ModelKind, opts domain.FitOptions) (*domain.FitResult, error) {
	if !kind.Valid() {
		return nil, errors.NewInvalidConfigurationError(fmt.Sprintf("unknown model kind %q", kind))
	}
	if opts.InitialKd <= 0 {
		return nil, errors.NewInvalidConfigurationError("initial Kd guess must be positive")
	}
	if kind == domain.ModelQuadratic && opts.TargetConc <= 0 {
		return nil, errors.NewInvalidConfigurationError("quadratic model requires a positive target concentration")
	}
	if opts.InitialHillSlope == 0 {
		opts.InitialHillSlope = 1.0
	}
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = DefaultMaxIterations
	}
	if opts.Tolerance <= 0 {
		opts.Tolerance = DefaultTolerance
	}

	model := newModel(kind, opts.TargetConc)
	xs := series.Concentrations()
	ys := series.Values(opts.Readout)

	if len(xs) < model.FreeParams() {
		return nil, errors.NewInsufficientDataError(len(xs), model.FreeParams())
	}
	for i := range xs {
		if !isFinite(xs[i]) || !isFinite(ys[i]) {
			return nil, errors.NewInvalidConfigurationError(
				fmt.Sprintf("series contains a non-finite value at index %d", i))
		}
	}

	weights := make([]float64, len(xs))
	sems := series.SEMs(opts.Readout)
	for i := range weights {
		// The n=1 SEM sentinel (0) keeps unit weight so no division happens.
		if opts.WeightBySEM && sems[i] > 0 {
			weights[i] = 1 / sems[i]
		} else {
			weights[i] = 1
		}
	}

	problem := &lmProblem{model: model, xs: xs, ys: ys, weights: weights}
	seed, lower, upper := f.seedAndBounds(model, xs, ys, opts)

	outcome, err := levenbergMarquardt(problem, seed, lmSettings{
		maxIterations: opts.MaxIterations,
		tolerance:     opts.Tolerance,
		lower:         lower,
		upper:         upper,
	})
	if err != nil {
		f.logger.WarnContext(ctx, "binding model fit failed",
			slog.String("group", series.Group),
			slog.String("model", string(kind)),
			slog.String("error", err.Error()))
		return nil, err
	}

	fitted := make([]float64, len(xs))
	residuals := make([]float64, len(xs))
	rss := 0.0
	for i, x := range xs {
		fitted[i] = model.Eval(outcome.params, x)
		residuals[i] = ys[i] - fitted[i]
		rss += residuals[i] * residuals[i]
	}

	dof := len(xs) - model.FreeParams()
	stderrs := covarianceStdErrs(problem, outcome.params, outcome.rss, dof)

	result := &domain.FitResult{
		Model:            kind,
		Group:            series.Group,
		Readout:          opts.Readout,
		Params:           paramsOf(kind, outcome.params),
		StdErrs:          paramsOf(kind, stderrs),
		Fitted:           fitted,
		Residuals:        residuals,
		Converged:        true,
		Iterations:       outcome.iterations,
		RSS:              rss,
		DegreesOfFreedom: dof,
	}
	if kind == domain.ModelQuadratic {
		result.TargetConc = opts.TargetConc
	}

	f.logger.InfoContext(ctx, "binding model fit converged",
		slog.String("group", series.Group),
		slog.String("model", string(kind)),
		slog.Float64("kd", result.Params.Kd),
		slog.Int("iterations", result.Iterations))

	return result, nil
}

// seedAndBounds builds the initial parameter vector and its box constraints.
// Bottom/Top are seeded from the observed min/max with generous padding; the
// Kd seed is the caller's guess clamped into the model's plausible range.
func (f *Fitter) seedAndBounds(model Model, xs, ys []float64, opts domain.FitOptions) (seed, lower, upper []float64) {
	minY, maxY := ys[0], ys[0]
	for _, y := range ys[1:] {
		minY = math.Min(minY, y)
		maxY = math.Max(maxY, y)
	}
	if minY == maxY {
		// Flat data still needs a non-degenerate amplitude seed.
		maxY += 0.01
	}
	pad := math.Max(0.5, maxY-minY)

	minX, maxX := xs[0], xs[len(xs)-1]

	var kdLower, kdUpper float64
	if model.Kind() == domain.ModelQuadratic {
		kdLower, kdUpper = quadraticKdLower, quadraticKdUpper
	} else {
		// Two decades beyond the measured range on either side.
		kdLower, kdUpper = minX/100, maxX*100
	}

	seed = []float64{minY, maxY, opts.InitialKd}
	lower = []float64{minY - pad, minY - pad, kdLower}
	upper = []float64{maxY + pad, maxY + pad, kdUpper}

	if model.FreeParams() == 4 {
		seed = append(seed, opts.InitialHillSlope)
		lower = append(lower, 0.1)
		upper = append(upper, 5.0)
	}
	return seed, lower, upper
}

// paramsOf maps a raw parameter vector onto the named parameter struct.
func paramsOf(kind domain.ModelKind, p []float64) domain.FitParams {
	params := domain.FitParams{Bottom: p[0], Top: p[1], Kd: p[2]}
	if kind == domain.ModelHill && len(p) > 3 {
		params.HillSlope = p[3]
	}
	return params
}
