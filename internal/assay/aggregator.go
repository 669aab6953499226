package assay

import (
	"context"
	"log/slog"
	"math"
	"sort"

	"mstcli/pkg/contracts/domain"
)

// DefaultConcentrationTolerance is the relative difference under which two
// concentrations are considered the same dose. It absorbs floating-point and
// instrument rounding noise between replicate files; genuine dilution steps
// are orders of magnitude apart.
const DefaultConcentrationTolerance = 1e-6

// Aggregator buckets measurements by concentration and averages replicates.
type Aggregator struct {
	logger    *slog.Logger
	tolerance float64
}

// NewAggregator creates an aggregator. A non-positive tolerance takes
// DefaultConcentrationTolerance.
func NewAggregator(logger *slog.Logger, tolerance float64) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	if tolerance <= 0 {
		tolerance = DefaultConcentrationTolerance
	}
	return &Aggregator{logger: logger, tolerance: tolerance}
}

// sameDose reports whether two concentrations fall within the relative
// tolerance of each other.
func (a *Aggregator) sameDose(c1, c2 float64) bool {
	scale := math.Max(math.Abs(c1), math.Abs(c2))
	if scale == 0 {
		return true
	}
	return math.Abs(c1-c2)/scale <= a.tolerance
}

// Aggregate buckets measurements from all replicate files of one group into
// per-concentration averages. The returned series is sorted ascending with
// exactly one point per distinct dose. SEM uses the sample standard
// deviation (n-1 denominator); a single-member bucket reports SEM 0, the
// uniform sentinel for "undefined".
func (a *Aggregator) Aggregate(ctx context.Context, group string, measurements []domain.Measurement) domain.AggregatedSeries {
	series := domain.AggregatedSeries{Group: group}
	if len(measurements) == 0 {
		return series
	}

	sorted := make([]domain.Measurement, len(measurements))
	copy(sorted, measurements)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Concentration < sorted[j].Concentration
	})

	// Sweep the sorted list, merging neighbours that match the bucket's
	// nominal (first-seen) concentration.
	var bucket []domain.Measurement
	nominal := sorted[0].Concentration
	flush := func() {
		series.Points = append(series.Points, a.reduce(bucket))
	}
	for _, m := range sorted {
		if len(bucket) > 0 && !a.sameDose(nominal, m.Concentration) {
			flush()
			bucket = bucket[:0]
			nominal = m.Concentration
		}
		bucket = append(bucket, m)
	}
	flush()

	a.logger.DebugContext(ctx, "aggregated replicate measurements",
		slog.String("group", group),
		slog.Int("measurements", len(measurements)),
		slog.Int("buckets", len(series.Points)))

	return series
}

// reduce collapses one concentration bucket into its aggregated point.
func (a *Aggregator) reduce(bucket []domain.Measurement) domain.AggregatedPoint {
	n := len(bucket)
	point := domain.AggregatedPoint{
		Concentration: bucket[0].Concentration,
		Replicates:    n,
	}

	var fnormSum, shiftSum float64
	for _, m := range bucket {
		fnormSum += m.Fnorm
		shiftSum += m.SpectralShift
	}
	point.FnormMean = fnormSum / float64(n)
	point.ShiftMean = shiftSum / float64(n)

	if n > 1 {
		var fnormSq, shiftSq float64
		for _, m := range bucket {
			fnormSq += (m.Fnorm - point.FnormMean) * (m.Fnorm - point.FnormMean)
			shiftSq += (m.SpectralShift - point.ShiftMean) * (m.SpectralShift - point.ShiftMean)
		}
		sqrtN := math.Sqrt(float64(n))
		point.FnormSEM = math.Sqrt(fnormSq/float64(n-1)) / sqrtN
		point.ShiftSEM = math.Sqrt(shiftSq/float64(n-1)) / sqrtN
	}

	return point
}
