package domain

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModelKind_Valid(t *testing.T) {
	assert.True(t, ModelHill.Valid())
	assert.True(t, ModelQuadratic.Valid())
	assert.False(t, ModelKind("").Valid())
	assert.False(t, ModelKind("sigmoid5").Valid())
}

func TestFitParams_MarshalJSON(t *testing.T) {
	t.Run("nan encodes as null", func(t *testing.T) {
		data, err := json.Marshal(FitParams{
			Bottom: math.NaN(),
			Top:    math.NaN(),
			Kd:     math.NaN(),
		})
		require.NoError(t, err)
		assert.JSONEq(t, `{"bottom":null,"top":null,"kd":null}`, string(data))
	})

	t.Run("hill slope present when set", func(t *testing.T) {
		data, err := json.Marshal(FitParams{Bottom: 0.1, Top: 0.9, Kd: 1e-7, HillSlope: 1.2})
		require.NoError(t, err)
		assert.JSONEq(t, `{"bottom":0.1,"top":0.9,"kd":1e-7,"hill_slope":1.2}`, string(data))
	})

	t.Run("hill slope omitted when unset", func(t *testing.T) {
		data, err := json.Marshal(FitParams{Bottom: 0.1, Top: 0.9, Kd: 1e-7})
		require.NoError(t, err)
		assert.NotContains(t, string(data), "hill_slope")
	})
}

func TestAggregatedSeries_Accessors(t *testing.T) {
	series := AggregatedSeries{
		Group: "wildtype",
		Points: []AggregatedPoint{
			{Concentration: 1e-9, FnormMean: 0.8, FnormSEM: 0.01, ShiftMean: 1.05, ShiftSEM: 0.02},
			{Concentration: 1e-8, FnormMean: 0.9, FnormSEM: 0.03, ShiftMean: 1.10, ShiftSEM: 0.04},
		},
	}

	assert.Equal(t, 2, series.Len())
	assert.Equal(t, []float64{1e-9, 1e-8}, series.Concentrations())

	assert.Equal(t, []float64{0.8, 0.9}, series.Values(ReadoutFnorm))
	assert.Equal(t, []float64{0.01, 0.03}, series.SEMs(ReadoutFnorm))

	assert.Equal(t, []float64{1.05, 1.10}, series.Values(ReadoutSpectralShift))
	assert.Equal(t, []float64{0.02, 0.04}, series.SEMs(ReadoutSpectralShift))

	// Unknown readouts fall back to the default signal.
	assert.Equal(t, []float64{0.8, 0.9}, series.Values(Readout("")))
}
