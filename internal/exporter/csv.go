package exporter

import (
	"context"
	"encoding/csv"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"mstcli/internal/config"
	"mstcli/internal/errors"
	"mstcli/internal/services"
)

// Exporter writes analysis results to the configured output directory.
type Exporter struct {
	logger *slog.Logger
	cfg    config.ExportConfig
}

// NewExporter creates an exporter.
func NewExporter(logger *slog.Logger, cfg config.ExportConfig) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{logger: logger.With(slog.String("component", "exporter")), cfg: cfg}
}

// Export writes the enabled artifacts and returns the paths written.
func (e *Exporter) Export(ctx context.Context, result *services.AnalysisResult) ([]string, error) {
	if err := os.MkdirAll(e.cfg.OutputDir, 0755); err != nil {
		return nil, errors.NewStorageError("failed to create output directory", err)
	}

	sheets := buildSheets(result)
	var written []string

	if e.cfg.WriteCSV {
		for _, s := range sheets {
			path := filepath.Join(e.cfg.OutputDir, csvFileName(s.name))
			if err := e.writeCSV(ctx, path, s); err != nil {
				return written, err
			}
			written = append(written, path)
		}
	}

	if e.cfg.WriteWorkbook {
		path := filepath.Join(e.cfg.OutputDir, e.cfg.WorkbookName)
		if err := e.writeWorkbook(ctx, path, sheets); err != nil {
			return written, err
		}
		written = append(written, path)
	}

	e.logger.InfoContext(ctx, "export complete",
		slog.String("run_id", result.RunID),
		slog.Int("artifacts", len(written)))
	return written, nil
}

func (e *Exporter) writeCSV(ctx context.Context, path string, s sheet) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.NewStorageError("failed to create CSV file", err).WithContext("path", path)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write(s.header); err != nil {
		return errors.NewStorageError("failed to write CSV header", err).WithContext("path", path)
	}
	for _, row := range s.rows {
		if err := writer.Write(row); err != nil {
			return errors.NewStorageError("failed to write CSV row", err).WithContext("path", path)
		}
	}

	e.logger.DebugContext(ctx, "wrote CSV sheet",
		slog.String("path", path),
		slog.Int("rows", len(s.rows)))
	return nil
}

func csvFileName(sheetName string) string {
	return strings.ToLower(sheetName) + ".csv"
}
