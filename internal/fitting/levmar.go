package fitting

import (
	"math"

	"mstcli/internal/errors"
)

// lmProblem is one weighted least-squares problem instance.
type lmProblem struct {
	model   Model
	xs      []float64
	ys      []float64
	weights []float64 // unit weight where SEM is unavailable
}

// lmSettings bounds the search. Lower/upper are box constraints, one pair
// per parameter; candidate steps are projected onto the box.
type lmSettings struct {
	maxIterations int
	tolerance     float64
	lower         []float64
	upper         []float64
}

// lmOutcome is the raw optimizer result before covariance post-processing.
type lmOutcome struct {
	params     []float64
	iterations int
	rss        float64
}

// residuals fills r with the weighted residuals y_i - f(x_i) at params.
func (p *lmProblem) residuals(params, r []float64) {
	for i, x := range p.xs {
		r[i] = p.weights[i] * (p.ys[i] - p.model.Eval(params, x))
	}
}

// rss returns the residual sum of squares at params.
func (p *lmProblem) rssAt(params []float64) float64 {
	sum := 0.0
	for i, x := range p.xs {
		r := p.weights[i] * (p.ys[i] - p.model.Eval(params, x))
		sum += r * r
	}
	return sum
}

// jacobian computes the forward-difference Jacobian of the weighted model,
// J[i][j] = w_i * d f(x_i) / d param_j. The step size carries an absolute
// floor so a zero-valued parameter still gets a resolvable perturbation.
func (p *lmProblem) jacobian(params []float64) [][]float64 {
	m, n := len(p.xs), len(params)
	jac := make([][]float64, m)
	for i := range jac {
		jac[i] = make([]float64, n)
	}

	base := make([]float64, m)
	for i, x := range p.xs {
		base[i] = p.model.Eval(params, x)
	}

	perturbed := make([]float64, n)
	for j := 0; j < n; j++ {
		copy(perturbed, params)
		h := 1e-8 * (math.Abs(params[j]) + 1)
		perturbed[j] += h
		for i, x := range p.xs {
			jac[i][j] = p.weights[i] * (p.model.Eval(perturbed, x) - base[i]) / h
		}
	}
	return jac
}

// clampToBox projects params onto the box constraints in place.
func clampToBox(params, lower, upper []float64) {
	for i := range params {
		if params[i] < lower[i] {
			params[i] = lower[i]
		}
		if params[i] > upper[i] {
			params[i] = upper[i]
		}
	}
}

// levenbergMarquardt minimizes the weighted residual sum of squares from the
// seed. It solves (J'J + lambda*diag(J'J)) step = J'r each iteration,
// shrinking lambda on accepted steps and growing it on rejected ones.
// Exhausting the iteration budget or encountering non-finite values returns
// a FIT_NOT_CONVERGED error carrying the last estimate; the seed is never
// silently returned as a result.
func levenbergMarquardt(p *lmProblem, seed []float64, s lmSettings) (lmOutcome, error) {
	n := len(seed)
	m := len(p.xs)

	params := make([]float64, n)
	copy(params, seed)
	clampToBox(params, s.lower, s.upper)

	rss := p.rssAt(params)
	if !isFinite(rss) {
		return lmOutcome{}, errors.NewFitNotConvergedError(
			"residuals are non-finite at the initial guess", params, 0)
	}

	lambda := 1e-3
	r := make([]float64, m)
	iter := 0
	accepted := 0

	for ; iter < s.maxIterations; iter++ {
		p.residuals(params, r)
		jac := p.jacobian(params)

		// Normal equations: A = J'J, g = J'r.
		a := make([][]float64, n)
		g := make([]float64, n)
		for j := 0; j < n; j++ {
			a[j] = make([]float64, n)
			for k := 0; k < n; k++ {
				sum := 0.0
				for i := 0; i < m; i++ {
					sum += jac[i][j] * jac[i][k]
				}
				a[j][k] = sum
			}
			sum := 0.0
			for i := 0; i < m; i++ {
				sum += jac[i][j] * r[i]
			}
			g[j] = sum
		}

		// Gradient small enough counts as converged.
		gradNorm := 0.0
		for _, v := range g {
			gradNorm = math.Max(gradNorm, math.Abs(v))
		}
		if gradNorm < s.tolerance {
			return lmOutcome{params: params, iterations: iter, rss: rss}, nil
		}

		improved := false
		for attempt := 0; attempt < 25; attempt++ {
			damped := make([][]float64, n)
			for j := 0; j < n; j++ {
				damped[j] = make([]float64, n)
				copy(damped[j], a[j])
				diag := a[j][j]
				if diag == 0 {
					diag = 1e-12
				}
				damped[j][j] = a[j][j] + lambda*diag
			}

			step, err := solveLinear(damped, g)
			if err != nil {
				lambda *= 10
				continue
			}

			candidate := make([]float64, n)
			for j := 0; j < n; j++ {
				candidate[j] = params[j] + step[j]
			}
			clampToBox(candidate, s.lower, s.upper)

			candRSS := p.rssAt(candidate)
			if !isFinite(candRSS) {
				lambda *= 10
				continue
			}

			if candRSS < rss {
				relImprovement := (rss - candRSS) / math.Max(rss, 1e-300)
				stepNorm := 0.0
				for j := 0; j < n; j++ {
					stepNorm = math.Max(stepNorm, math.Abs(candidate[j]-params[j])/math.Max(math.Abs(params[j]), 1e-12))
				}
				params = candidate
				rss = candRSS
				lambda = math.Max(lambda/3, 1e-12)
				improved = true
				accepted++

				if relImprovement < s.tolerance || stepNorm < s.tolerance {
					return lmOutcome{params: params, iterations: iter + 1, rss: rss}, nil
				}
				break
			}
			lambda *= 10
		}

		if !improved {
			if accepted == 0 {
				// The search never left the seed; echoing it back as a
				// result would disguise an optimizer failure.
				return lmOutcome{}, errors.NewFitNotConvergedError(
					"no parameter step reduced the residual", params, iter+1)
			}
			// Damping saturated after real progress: the current estimate is
			// a (possibly bounded) local minimum.
			return lmOutcome{params: params, iterations: iter + 1, rss: rss}, nil
		}
	}

	return lmOutcome{}, errors.NewFitNotConvergedError(
		"optimizer exhausted its iteration budget", params, iter)
}

// solveLinear solves A x = b by Gaussian elimination with partial pivoting.
func solveLinear(a [][]float64, b []float64) ([]float64, error) {
	n := len(b)
	aug := make([][]float64, n)
	for i := 0; i < n; i++ {
		aug[i] = make([]float64, n+1)
		copy(aug[i], a[i])
		aug[i][n] = b[i]
	}

	for col := 0; col < n; col++ {
		pivot := col
		maxAbs := math.Abs(aug[col][col])
		for r := col + 1; r < n; r++ {
			if math.Abs(aug[r][col]) > maxAbs {
				maxAbs = math.Abs(aug[r][col])
				pivot = r
			}
		}
		if maxAbs == 0 {
			return nil, errors.NewAppError(errors.ErrTypeFitNotConverged, "singular normal matrix", nil)
		}
		if pivot != col {
			aug[col], aug[pivot] = aug[pivot], aug[col]
		}
		for r := col + 1; r < n; r++ {
			factor := aug[r][col] / aug[col][col]
			for c := col; c <= n; c++ {
				aug[r][c] -= factor * aug[col][c]
			}
		}
	}

	x := make([]float64, n)
	for i := n - 1; i >= 0; i-- {
		if aug[i][i] == 0 {
			return nil, errors.NewAppError(errors.ErrTypeFitNotConverged, "singular normal matrix", nil)
		}
		sum := aug[i][n]
		for j := i + 1; j < n; j++ {
			sum -= aug[i][j] * x[j]
		}
		x[i] = sum / aug[i][i]
	}
	return x, nil
}

// invertMatrix inverts a symmetric positive matrix by Gauss-Jordan
// elimination. Returns false when the matrix is singular.
func invertMatrix(a [][]float64) ([][]float64, bool) {
	n := len(a)
	aug := make([][]float64, n)
	for i := 0; i < n; i++ {
		aug[i] = make([]float64, 2*n)
		copy(aug[i], a[i])
		aug[i][n+i] = 1
	}

	for col := 0; col < n; col++ {
		pivot := col
		maxAbs := math.Abs(aug[col][col])
		for r := col + 1; r < n; r++ {
			if math.Abs(aug[r][col]) > maxAbs {
				maxAbs = math.Abs(aug[r][col])
				pivot = r
			}
		}
		if maxAbs == 0 {
			return nil, false
		}
		if pivot != col {
			aug[col], aug[pivot] = aug[pivot], aug[col]
		}
		scale := aug[col][col]
		for c := 0; c < 2*n; c++ {
			aug[col][c] /= scale
		}
		for r := 0; r < n; r++ {
			if r == col {
				continue
			}
			factor := aug[r][col]
			for c := 0; c < 2*n; c++ {
				aug[r][c] -= factor * aug[col][c]
			}
		}
	}

	inv := make([][]float64, n)
	for i := 0; i < n; i++ {
		inv[i] = aug[i][n:]
	}
	return inv, true
}

// covarianceStdErrs estimates per-parameter standard errors from the Jacobian
// at the solution: sqrt(diag(inv(J'J)) * rss/dof). Singular J'J or a
// non-positive dof yields NaN for every parameter.
func covarianceStdErrs(p *lmProblem, params []float64, rss float64, dof int) []float64 {
	n := len(params)
	stderrs := make([]float64, n)
	for i := range stderrs {
		stderrs[i] = math.NaN()
	}
	if dof <= 0 {
		return stderrs
	}

	jac := p.jacobian(params)
	a := make([][]float64, n)
	for j := 0; j < n; j++ {
		a[j] = make([]float64, n)
		for k := 0; k < n; k++ {
			sum := 0.0
			for i := range p.xs {
				sum += jac[i][j] * jac[i][k]
			}
			a[j][k] = sum
		}
	}

	inv, ok := invertMatrix(a)
	if !ok {
		return stderrs
	}

	scale := rss / float64(dof)
	for j := 0; j < n; j++ {
		v := inv[j][j] * scale
		if v >= 0 {
			stderrs[j] = math.Sqrt(v)
		}
	}
	return stderrs
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
