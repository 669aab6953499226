package exporter

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xuri/excelize/v2"

	"mstcli/internal/errors"
)

// writeWorkbook writes every sheet into one xlsx workbook. The first sheet
// replaces excelize's default sheet so the workbook opens on Raw.
func (e *Exporter) writeWorkbook(ctx context.Context, path string, sheets []sheet) error {
	f := excelize.NewFile()
	defer f.Close()

	for i, s := range sheets {
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), s.name); err != nil {
				return errors.NewStorageError("failed to rename workbook sheet", err)
			}
		} else {
			if _, err := f.NewSheet(s.name); err != nil {
				return errors.NewStorageError("failed to add workbook sheet", err)
			}
		}

		if err := writeSheetRows(f, s); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return errors.NewStorageError("failed to save workbook", err).WithContext("path", path)
	}

	e.logger.DebugContext(ctx, "wrote workbook",
		slog.String("path", path),
		slog.Int("sheets", len(sheets)))
	return nil
}

func writeSheetRows(f *excelize.File, s sheet) error {
	writeRow := func(rowNum int, cells []string) error {
		addr, err := excelize.CoordinatesToCellName(1, rowNum)
		if err != nil {
			return errors.NewStorageError("failed to compute cell address", err)
		}
		values := make([]interface{}, len(cells))
		for i, c := range cells {
			values[i] = c
		}
		if err := f.SetSheetRow(s.name, addr, &values); err != nil {
			return errors.NewStorageError(
				fmt.Sprintf("failed to write row %d of sheet %s", rowNum, s.name), err)
		}
		return nil
	}

	if err := writeRow(1, s.header); err != nil {
		return err
	}
	for i, row := range s.rows {
		if err := writeRow(i+2, row); err != nil {
			return err
		}
	}
	return nil
}
