package exporter

import (
	"context"
	"encoding/csv"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"mstcli/internal/config"
	"mstcli/internal/services"
	"mstcli/pkg/contracts/domain"
)

// sampleResult builds a two-group result with one converged fit, one failed
// fit, and an overlay with a one-sided row.
func sampleResult() *services.AnalysisResult {
	pointA := domain.AggregatedPoint{Concentration: 1e-8, FnormMean: 0.5, FnormSEM: 0.01, Replicates: 3}
	pointB := domain.AggregatedPoint{Concentration: 1e-8, FnormMean: 0.4, FnormSEM: 0.02, Replicates: 3}
	soloB := domain.AggregatedPoint{Concentration: 1e-7, FnormMean: 0.8, Replicates: 1}

	return &services.AnalysisResult{
		RunID: "run-1",
		GroupA: &services.GroupResult{
			Name: "wildtype",
			Measurements: []domain.Measurement{
				{Concentration: 1e-8, Fnorm: 0.49, SpectralShift: 1.05, InitialFluorescence: 1000},
				{Concentration: 1e-8, Fnorm: 0.51, SpectralShift: 1.06, InitialFluorescence: 1010},
			},
			Series: domain.AggregatedSeries{Group: "wildtype", Points: []domain.AggregatedPoint{pointA}},
			Fits: []*domain.FitResult{{
				Model:            domain.ModelHill,
				Group:            "wildtype",
				Params:           domain.FitParams{Bottom: 0.1, Top: 0.9, Kd: 1e-7, HillSlope: 1.1},
				StdErrs:          domain.FitParams{Bottom: math.NaN(), Top: math.NaN(), Kd: math.NaN(), HillSlope: math.NaN()},
				Converged:        true,
				Iterations:       12,
				RSS:              1e-5,
				DegreesOfFreedom: 0,
			}},
			FitErrors: map[domain.ModelKind]string{
				domain.ModelQuadratic: "[INVALID_CONFIGURATION] quadratic model requires a positive target concentration",
			},
		},
		GroupB: &services.GroupResult{
			Name: "mutant",
			Measurements: []domain.Measurement{
				{Concentration: 1e-8, Fnorm: 0.4, SpectralShift: 1.02, InitialFluorescence: 990},
			},
			Series: domain.AggregatedSeries{Group: "mutant", Points: []domain.AggregatedPoint{pointB, soloB}},
		},
		Overlay: &domain.OverlayTable{
			GroupA: "wildtype",
			GroupB: "mutant",
			Rows: []domain.OverlayRow{
				{Concentration: 1e-8, A: &pointA, B: &pointB},
				{Concentration: 1e-7, B: &soloB},
			},
		},
	}
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return records
}

func TestExporter_WritesCSVSheets(t *testing.T) {
	dir := t.TempDir()
	exporter := NewExporter(slog.Default(), config.ExportConfig{
		OutputDir: dir,
		WriteCSV:  true,
	})

	written, err := exporter.Export(context.Background(), sampleResult())
	require.NoError(t, err)
	require.Len(t, written, 4)

	raw := readCSV(t, filepath.Join(dir, "raw.csv"))
	require.Len(t, raw, 4) // header + 2 wildtype + 1 mutant rows
	assert.Equal(t, "Group", raw[0][0])
	assert.Equal(t, "wildtype", raw[1][0])
	assert.Equal(t, "mutant", raw[3][0])

	averaged := readCSV(t, filepath.Join(dir, "averaged.csv"))
	require.Len(t, averaged, 4)
	assert.Equal(t, "3", averaged[1][6]) // replicate count column

	overlay := readCSV(t, filepath.Join(dir, "overlay.csv"))
	require.Len(t, overlay, 3)
	// The one-sided dose leaves group A's cells empty, never zero-filled.
	assert.Equal(t, "", overlay[2][1])
	assert.Equal(t, "", overlay[2][3])
	assert.Equal(t, "0.8", overlay[2][4])
}

func TestExporter_FitSheetCarriesErrorsAndNaN(t *testing.T) {
	dir := t.TempDir()
	exporter := NewExporter(slog.Default(), config.ExportConfig{
		OutputDir: dir,
		WriteCSV:  true,
	})

	_, err := exporter.Export(context.Background(), sampleResult())
	require.NoError(t, err)

	fits := readCSV(t, filepath.Join(dir, "fitparameters.csv"))
	require.Len(t, fits, 3) // header + converged hill + failed quadratic

	hill := fits[1]
	assert.Equal(t, "hill", hill[1])
	assert.Equal(t, "NaN", hill[4], "undefined standard error stays literal")
	assert.Equal(t, "true", hill[12])

	quad := fits[2]
	assert.Equal(t, "quadratic", quad[1])
	assert.Equal(t, "false", quad[12])
	assert.Contains(t, quad[16], "target concentration")
}

func TestExporter_WritesWorkbook(t *testing.T) {
	dir := t.TempDir()
	exporter := NewExporter(slog.Default(), config.ExportConfig{
		OutputDir:     dir,
		WorkbookName:  "analysis.xlsx",
		WriteWorkbook: true,
	})

	written, err := exporter.Export(context.Background(), sampleResult())
	require.NoError(t, err)
	require.Len(t, written, 1)

	f, err := excelize.OpenFile(filepath.Join(dir, "analysis.xlsx"))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetRaw, SheetAveraged, SheetFits, SheetOverlay}, f.GetSheetList())

	group, err := f.GetCellValue(SheetRaw, "A2")
	require.NoError(t, err)
	assert.Equal(t, "wildtype", group)
}

func TestExporter_SingleGroupOmitsOverlay(t *testing.T) {
	dir := t.TempDir()
	exporter := NewExporter(slog.Default(), config.ExportConfig{
		OutputDir: dir,
		WriteCSV:  true,
	})

	result := sampleResult()
	result.GroupB = nil
	result.Overlay = nil

	written, err := exporter.Export(context.Background(), result)
	require.NoError(t, err)
	assert.Len(t, written, 3)

	_, err = os.Stat(filepath.Join(dir, "overlay.csv"))
	assert.True(t, os.IsNotExist(err))
}

func TestFormatFloat(t *testing.T) {
	assert.Equal(t, "NaN", formatFloat(math.NaN()))
	assert.Equal(t, "0.5", formatFloat(0.5))
	assert.Equal(t, "1e-07", formatFloat(1e-7))
}
