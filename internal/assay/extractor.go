package assay

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"mstcli/internal/errors"
	"mstcli/pkg/contracts/domain"
)

// Schema maps the extractor's logical fields to column names in a raw table.
// It is validated once per table; a missing column fails the whole table
// before any row is read.
type Schema struct {
	Concentration string
	// FluorBefore and FluorAfter are the averaged fluorescence readings of
	// the before/after MST time windows. Fnorm = after / before.
	FluorBefore string
	FluorAfter  string
	// Channel650 and Channel670 are the two-wavelength intensities.
	// SpectralShift = 670nm / 650nm.
	Channel650 string
	Channel670 string
}

// DefaultSchema returns the column names of a standard instrument export.
func DefaultSchema() Schema {
	return Schema{
		Concentration: "Ligand Concentration [M]",
		FluorBefore:   "Fluorescence Before [counts]",
		FluorAfter:    "Fluorescence After [counts]",
		Channel650:    "Relative Fluorescence 650nm",
		Channel670:    "Relative Fluorescence 670nm",
	}
}

// Extractor converts raw instrument tables into Measurement lists.
type Extractor struct {
	logger *slog.Logger
	schema Schema
}

// NewExtractor creates an extractor for the given schema. A zero-value
// schema field falls back to its DefaultSchema counterpart.
func NewExtractor(logger *slog.Logger, schema Schema) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultSchema()
	if schema.Concentration == "" {
		schema.Concentration = def.Concentration
	}
	if schema.FluorBefore == "" {
		schema.FluorBefore = def.FluorBefore
	}
	if schema.FluorAfter == "" {
		schema.FluorAfter = def.FluorAfter
	}
	if schema.Channel650 == "" {
		schema.Channel650 = def.Channel650
	}
	if schema.Channel670 == "" {
		schema.Channel670 = def.Channel670
	}
	return &Extractor{logger: logger, schema: schema}
}

// columnIndex resolves every schema field against the table header, failing
// fast when a required column is absent.
func (e *Extractor) columnIndex(table domain.RawTable) (map[string]int, error) {
	pos := make(map[string]int, len(table.Columns))
	for i, col := range table.Columns {
		pos[strings.TrimSpace(col)] = i
	}

	required := map[string]string{
		"concentration": e.schema.Concentration,
		"fluor_before":  e.schema.FluorBefore,
		"fluor_after":   e.schema.FluorAfter,
		"channel_650":   e.schema.Channel650,
		"channel_670":   e.schema.Channel670,
	}

	idx := make(map[string]int, len(required))
	var missing []string
	for field, col := range required {
		i, ok := pos[col]
		if !ok {
			missing = append(missing, col)
			continue
		}
		idx[field] = i
	}
	if len(missing) > 0 {
		return nil, errors.NewMalformedInputError(
			fmt.Sprintf("table %q is missing required columns: %s", table.Name, strings.Join(missing, ", ")), nil).
			WithContext("table", table.Name).
			WithContext("missing_columns", missing)
	}
	return idx, nil
}

// Extract turns one raw table into a Measurement list. Rows with non-numeric
// or non-positive concentrations, unparsable fluorescence cells, or zero
// denominators are skipped and reported as warnings. The table only fails as
// a whole when the schema does not match or every row is unusable.
func (e *Extractor) Extract(ctx context.Context, table domain.RawTable) ([]domain.Measurement, []domain.Warning, error) {
	idx, err := e.columnIndex(table)
	if err != nil {
		return nil, nil, err
	}
	if len(table.Rows) == 0 {
		return nil, nil, errors.NewMalformedInputError(
			fmt.Sprintf("table %q has no data rows", table.Name), nil).
			WithContext("table", table.Name)
	}

	measurements := make([]domain.Measurement, 0, len(table.Rows))
	var warnings []domain.Warning

	warn := func(row int, reason string) {
		warnings = append(warnings, domain.Warning{Table: table.Name, Row: row, Reason: reason})
	}

	for rowNum, row := range table.Rows {
		cell := func(field string) (float64, bool) {
			i := idx[field]
			if i >= len(row) {
				return 0, false
			}
			v, err := strconv.ParseFloat(strings.TrimSpace(row[i]), 64)
			if err != nil {
				return 0, false
			}
			return v, true
		}

		conc, ok := cell("concentration")
		if !ok {
			warn(rowNum, "non-numeric concentration")
			continue
		}
		if conc <= 0 {
			warn(rowNum, fmt.Sprintf("non-positive concentration %g", conc))
			continue
		}

		before, ok := cell("fluor_before")
		if !ok {
			warn(rowNum, "non-numeric before-window fluorescence")
			continue
		}
		after, ok := cell("fluor_after")
		if !ok {
			warn(rowNum, "non-numeric after-window fluorescence")
			continue
		}
		if before == 0 {
			warn(rowNum, "zero before-window fluorescence")
			continue
		}

		ch650, ok := cell("channel_650")
		if !ok {
			warn(rowNum, "non-numeric 650nm intensity")
			continue
		}
		ch670, ok := cell("channel_670")
		if !ok {
			warn(rowNum, "non-numeric 670nm intensity")
			continue
		}
		if ch650 == 0 {
			warn(rowNum, "zero 650nm intensity")
			continue
		}

		measurements = append(measurements, domain.Measurement{
			Concentration:       conc,
			Fnorm:               after / before,
			SpectralShift:       ch670 / ch650,
			InitialFluorescence: before,
		})
	}

	if len(measurements) == 0 {
		return nil, warnings, errors.NewMalformedInputError(
			fmt.Sprintf("table %q yielded no usable rows", table.Name), nil).
			WithContext("table", table.Name).
			WithContext("rows", len(table.Rows)).
			WithContext("warnings", len(warnings))
	}

	if len(warnings) > 0 {
		e.logger.WarnContext(ctx, "skipped unusable rows during extraction",
			slog.String("table", table.Name),
			slog.Int("skipped", len(warnings)),
			slog.Int("extracted", len(measurements)))
	} else {
		e.logger.DebugContext(ctx, "extracted measurements",
			slog.String("table", table.Name),
			slog.Int("extracted", len(measurements)))
	}

	return measurements, warnings, nil
}
