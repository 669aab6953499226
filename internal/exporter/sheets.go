package exporter

import (
	"mstcli/internal/services"
	"mstcli/pkg/contracts/domain"
)

// Sheet names of the export artifact, shared by the CSV and workbook paths.
const (
	SheetRaw      = "Raw"
	SheetAveraged = "Averaged"
	SheetFits     = "FitParameters"
	SheetOverlay  = "Overlay"
)

// sheet is one rendered table: a header row plus string cells.
type sheet struct {
	name   string
	header []string
	rows   [][]string
}

// buildSheets renders every export table from one analysis result. Sheets
// with no content (e.g. Overlay for a single-group run) are omitted.
func buildSheets(result *services.AnalysisResult) []sheet {
	groups := make([]*services.GroupResult, 0, 2)
	if result.GroupA != nil {
		groups = append(groups, result.GroupA)
	}
	if result.GroupB != nil {
		groups = append(groups, result.GroupB)
	}

	sheets := []sheet{
		buildRawSheet(groups),
		buildAveragedSheet(groups),
		buildFitSheet(groups),
	}
	if result.Overlay != nil {
		sheets = append(sheets, buildOverlaySheet(result.Overlay))
	}
	return sheets
}

func buildRawSheet(groups []*services.GroupResult) sheet {
	s := sheet{
		name:   SheetRaw,
		header: []string{"Group", "Concentration [M]", "Fnorm", "Spectral Shift", "Initial Fluorescence"},
	}
	for _, g := range groups {
		for _, m := range g.Measurements {
			s.rows = append(s.rows, []string{
				g.Name,
				formatConc(m.Concentration),
				formatFloat(m.Fnorm),
				formatFloat(m.SpectralShift),
				formatFloat(m.InitialFluorescence),
			})
		}
	}
	return s
}

func buildAveragedSheet(groups []*services.GroupResult) sheet {
	s := sheet{
		name: SheetAveraged,
		header: []string{"Group", "Concentration [M]", "Fnorm Mean", "Fnorm SEM",
			"Shift Mean", "Shift SEM", "Replicates"},
	}
	for _, g := range groups {
		for _, p := range g.Series.Points {
			s.rows = append(s.rows, []string{
				g.Name,
				formatConc(p.Concentration),
				formatFloat(p.FnormMean),
				formatFloat(p.FnormSEM),
				formatFloat(p.ShiftMean),
				formatFloat(p.ShiftSEM),
				formatInt(p.Replicates),
			})
		}
	}
	return s
}

func buildFitSheet(groups []*services.GroupResult) sheet {
	s := sheet{
		name: SheetFits,
		header: []string{"Group", "Model", "Readout", "Bottom", "Bottom SE", "Top", "Top SE",
			"Kd [M]", "Kd SE", "Hill Slope", "Hill Slope SE", "Target Conc [M]",
			"Converged", "Iterations", "RSS", "DoF", "Error"},
	}
	for _, g := range groups {
		for _, fit := range g.Fits {
			row := []string{
				g.Name,
				string(fit.Model),
				string(readoutLabel(fit.Readout)),
				formatFloat(fit.Params.Bottom), formatFloat(fit.StdErrs.Bottom),
				formatFloat(fit.Params.Top), formatFloat(fit.StdErrs.Top),
				formatConc(fit.Params.Kd), formatFloat(fit.StdErrs.Kd),
			}
			if fit.Model == domain.ModelHill {
				row = append(row, formatFloat(fit.Params.HillSlope), formatFloat(fit.StdErrs.HillSlope), "")
			} else {
				row = append(row, "", "", formatConc(fit.TargetConc))
			}
			row = append(row, "true", formatInt(fit.Iterations), formatFloat(fit.RSS),
				formatInt(fit.DegreesOfFreedom), "")
			s.rows = append(s.rows, row)
		}
		for model, msg := range g.FitErrors {
			row := []string{g.Name, string(model), "", "", "", "", "", "", "", "", "", "",
				"false", "", "", "", msg}
			s.rows = append(s.rows, row)
		}
	}
	return s
}

func buildOverlaySheet(overlay *domain.OverlayTable) sheet {
	s := sheet{
		name: SheetOverlay,
		header: []string{"Concentration [M]",
			"A Fnorm Mean", "A Fnorm SEM", "A Replicates",
			"B Fnorm Mean", "B Fnorm SEM", "B Replicates"},
	}
	for _, row := range overlay.Rows {
		cells := []string{formatConc(row.Concentration)}
		// Absent cells stay empty, never zero-filled.
		if row.A != nil {
			cells = append(cells, formatFloat(row.A.FnormMean), formatFloat(row.A.FnormSEM), formatInt(row.A.Replicates))
		} else {
			cells = append(cells, "", "", "")
		}
		if row.B != nil {
			cells = append(cells, formatFloat(row.B.FnormMean), formatFloat(row.B.FnormSEM), formatInt(row.B.Replicates))
		} else {
			cells = append(cells, "", "", "")
		}
		s.rows = append(s.rows, cells)
	}
	return s
}

func readoutLabel(r domain.Readout) domain.Readout {
	if r == "" {
		return domain.ReadoutFnorm
	}
	return r
}
