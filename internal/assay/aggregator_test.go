package assay

import (
	"context"
	"log/slog"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mstcli/pkg/contracts/domain"
)

func m(conc, fnorm, shift float64) domain.Measurement {
	return domain.Measurement{Concentration: conc, Fnorm: fnorm, SpectralShift: shift, InitialFluorescence: 1000}
}

func TestAggregator_Aggregate(t *testing.T) {
	ctx := context.Background()
	agg := NewAggregator(slog.Default(), 0)

	t.Run("empty input yields empty series", func(t *testing.T) {
		series := agg.Aggregate(ctx, "wt", nil)
		assert.Equal(t, "wt", series.Group)
		assert.Empty(t, series.Points)
	})

	t.Run("replicates collapse into one point per dose", func(t *testing.T) {
		series := agg.Aggregate(ctx, "wt", []domain.Measurement{
			m(1e-8, 0.90, 1.10),
			m(1e-9, 0.80, 1.00),
			m(1e-8, 0.92, 1.12),
			m(1e-9, 0.82, 1.02),
			m(1e-8, 0.94, 1.14),
		})

		require.Len(t, series.Points, 2)

		low := series.Points[0]
		assert.Equal(t, 1e-9, low.Concentration)
		assert.Equal(t, 2, low.Replicates)
		assert.InDelta(t, 0.81, low.FnormMean, 1e-12)
		assert.InDelta(t, 1.01, low.ShiftMean, 1e-12)

		high := series.Points[1]
		assert.Equal(t, 1e-8, high.Concentration)
		assert.Equal(t, 3, high.Replicates)
		assert.InDelta(t, 0.92, high.FnormMean, 1e-12)
	})

	t.Run("sem is sample stddev over sqrt n", func(t *testing.T) {
		series := agg.Aggregate(ctx, "wt", []domain.Measurement{
			m(1e-7, 0.8, 1.0),
			m(1e-7, 1.0, 1.0),
			m(1e-7, 1.2, 1.0),
		})

		require.Len(t, series.Points, 1)
		p := series.Points[0]
		// stddev of {0.8, 1.0, 1.2} with n-1 denominator is 0.2.
		assert.InDelta(t, 0.2/math.Sqrt(3), p.FnormSEM, 1e-12)
		assert.Equal(t, 0.0, p.ShiftSEM)
	})

	t.Run("single replicate reports sem zero", func(t *testing.T) {
		series := agg.Aggregate(ctx, "wt", []domain.Measurement{m(1e-7, 0.9, 1.1)})

		require.Len(t, series.Points, 1)
		assert.Equal(t, 1, series.Points[0].Replicates)
		assert.Equal(t, 0.0, series.Points[0].FnormSEM)
		assert.Equal(t, 0.0, series.Points[0].ShiftSEM)
	})

	t.Run("near-equal concentrations merge", func(t *testing.T) {
		series := agg.Aggregate(ctx, "wt", []domain.Measurement{
			m(1e-7, 0.8, 1.0),
			m(1e-7*(1+1e-9), 1.0, 1.0),
		})

		require.Len(t, series.Points, 1)
		assert.Equal(t, 2, series.Points[0].Replicates)
		assert.InDelta(t, 0.9, series.Points[0].FnormMean, 1e-12)
	})

	t.Run("distinct doses stay separate", func(t *testing.T) {
		series := agg.Aggregate(ctx, "wt", []domain.Measurement{
			m(1.0e-7, 0.8, 1.0),
			m(1.1e-7, 1.0, 1.0),
		})

		assert.Len(t, series.Points, 2)
	})

	t.Run("output sorted ascending", func(t *testing.T) {
		series := agg.Aggregate(ctx, "wt", []domain.Measurement{
			m(1e-6, 1.0, 1.0),
			m(1e-9, 0.8, 1.0),
			m(1e-7, 0.9, 1.0),
			m(1e-8, 0.85, 1.0),
		})

		require.Len(t, series.Points, 4)
		for i := 1; i < len(series.Points); i++ {
			assert.Less(t, series.Points[i-1].Concentration, series.Points[i].Concentration)
		}
	})

	t.Run("input is not mutated", func(t *testing.T) {
		input := []domain.Measurement{
			m(1e-6, 1.0, 1.0),
			m(1e-9, 0.8, 1.0),
		}
		agg.Aggregate(ctx, "wt", input)

		assert.Equal(t, 1e-6, input[0].Concentration)
		assert.Equal(t, 1e-9, input[1].Concentration)
	})
}

func TestCombine(t *testing.T) {
	series := func(group string, concs ...float64) domain.AggregatedSeries {
		s := domain.AggregatedSeries{Group: group}
		for _, c := range concs {
			s.Points = append(s.Points, domain.AggregatedPoint{Concentration: c, FnormMean: 0.9, Replicates: 1})
		}
		return s
	}

	t.Run("union keyed by concentration", func(t *testing.T) {
		a := series("wt", 1e-9, 1e-8, 1e-7)
		b := series("mut", 1e-8, 1e-7, 1e-6)

		table := Combine(a, b, 0)

		assert.Equal(t, "wt", table.GroupA)
		assert.Equal(t, "mut", table.GroupB)
		require.Len(t, table.Rows, 4)

		// 1e-9 only in A.
		assert.NotNil(t, table.Rows[0].A)
		assert.Nil(t, table.Rows[0].B)
		// Shared doses fill both cells.
		assert.NotNil(t, table.Rows[1].A)
		assert.NotNil(t, table.Rows[1].B)
		assert.NotNil(t, table.Rows[2].A)
		assert.NotNil(t, table.Rows[2].B)
		// 1e-6 only in B.
		assert.Nil(t, table.Rows[3].A)
		assert.NotNil(t, table.Rows[3].B)
	})

	t.Run("rows ascend by concentration", func(t *testing.T) {
		a := series("wt", 1e-9, 1e-7)
		b := series("mut", 1e-8, 1e-6)

		table := Combine(a, b, 0)

		require.Len(t, table.Rows, 4)
		for i := 1; i < len(table.Rows); i++ {
			assert.Less(t, table.Rows[i-1].Concentration, table.Rows[i].Concentration)
		}
	})

	t.Run("tolerance matches near-equal doses", func(t *testing.T) {
		a := series("wt", 1e-7)
		b := series("mut", 1e-7*(1+1e-9))

		table := Combine(a, b, 0)

		require.Len(t, table.Rows, 1)
		assert.NotNil(t, table.Rows[0].A)
		assert.NotNil(t, table.Rows[0].B)
	})

	t.Run("one empty series yields one-sided rows", func(t *testing.T) {
		a := series("wt", 1e-8, 1e-7)
		b := domain.AggregatedSeries{Group: "mut"}

		table := Combine(a, b, 0)

		require.Len(t, table.Rows, 2)
		for _, row := range table.Rows {
			assert.NotNil(t, row.A)
			assert.Nil(t, row.B)
		}
	})
}
