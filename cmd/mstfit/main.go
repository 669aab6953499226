// mstfit is the batch entry point: it reads instrument CSV exports from a
// directory, assigns each file to an experimental group by filename prefix,
// runs the full analysis pipeline, and writes the export artifacts.
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"mstcli/internal/assay"
	"mstcli/internal/config"
	"mstcli/internal/exporter"
	"mstcli/internal/infrastructure"
	"mstcli/internal/services"
	"mstcli/pkg/contracts/domain"
)

func main() {
	inDir := flag.String("in", ".", "directory containing instrument .csv exports")
	outDir := flag.String("out", "", "output directory (defaults to config export.output_dir)")
	groupA := flag.String("group-a", "", "filename prefix of group A replicates (required)")
	groupB := flag.String("group-b", "", "filename prefix of group B replicates (optional)")
	models := flag.String("models", "hill", "comma-separated models to fit: hill,quadratic")
	initialKd := flag.Float64("kd", 1e-7, "initial Kd guess in Molar")
	hillSlope := flag.Float64("slope", 1.0, "initial Hill slope guess")
	targetConc := flag.Float64("target", 0, "labeled target concentration in Molar (required for quadratic)")
	readout := flag.String("readout", "fnorm", "readout to fit: fnorm or spectral_shift")
	weight := flag.Bool("weight", false, "weight residuals by 1/SEM")
	sep := flag.String("sep", ";", "CSV field separator of the instrument export")
	flag.Parse()

	if *groupA == "" {
		fmt.Fprintln(os.Stderr, "mstfit: -group-a is required")
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if *outDir != "" {
		cfg.Export.OutputDir = *outDir
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Error("failed to initialize logger", "error", err)
		os.Exit(1)
	}
	defer infrastructure.CloseLogFile()

	ctx := context.Background()

	req, err := buildRequest(ctx, logger, *inDir, *groupA, *groupB, *models, requestOptions{
		initialKd:  *initialKd,
		hillSlope:  *hillSlope,
		targetConc: *targetConc,
		readout:    domain.Readout(*readout),
		weight:     *weight,
		separator:  *sep,
	})
	if err != nil {
		logger.Error("failed to assemble analysis request", "error", err)
		os.Exit(1)
	}

	service := services.NewAnalysisService(logger, assay.Schema{
		Concentration: cfg.Analysis.ConcentrationColumn,
		FluorBefore:   cfg.Analysis.FluorBeforeColumn,
		FluorAfter:    cfg.Analysis.FluorAfterColumn,
		Channel650:    cfg.Analysis.Channel650Column,
		Channel670:    cfg.Analysis.Channel670Column,
	}, cfg.Analysis.ConcentrationTolerance)

	result, err := service.AnalyzeGroups(ctx, *req)
	if err != nil {
		logger.Error("analysis failed", "error", err)
		os.Exit(1)
	}
	reportFits(logger, result.GroupA)
	reportFits(logger, result.GroupB)

	paths, err := exporter.NewExporter(logger, cfg.Export).Export(ctx, result)
	if err != nil {
		logger.Error("export failed", "error", err)
		os.Exit(1)
	}
	for _, p := range paths {
		fmt.Println(p)
	}
}

type requestOptions struct {
	initialKd  float64
	hillSlope  float64
	targetConc float64
	readout    domain.Readout
	weight     bool
	separator  string
}

// buildRequest scans inDir for .csv files, assigns each to a group by
// case-insensitive filename prefix (files matching neither prefix are
// skipped with a log line), and loads the matching files as raw tables.
func buildRequest(ctx context.Context, logger *slog.Logger, inDir, groupA, groupB, models string, opts requestOptions) (*services.AnalysisRequest, error) {
	entries, err := os.ReadDir(inDir)
	if err != nil {
		return nil, fmt.Errorf("read input directory: %w", err)
	}

	var tablesA, tablesB []domain.RawTable
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(strings.ToLower(entry.Name()), ".csv") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		lower := strings.ToLower(name)
		var dest *[]domain.RawTable
		switch {
		case strings.HasPrefix(lower, strings.ToLower(groupA)):
			dest = &tablesA
		case groupB != "" && strings.HasPrefix(lower, strings.ToLower(groupB)):
			dest = &tablesB
		default:
			logger.InfoContext(ctx, "skipping file with no matching group prefix",
				slog.String("file", name))
			continue
		}

		table, err := readTable(filepath.Join(inDir, name), opts.separator)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		*dest = append(*dest, table)
	}

	if len(tablesA) == 0 {
		return nil, fmt.Errorf("no .csv files in %s match group prefix %q", inDir, groupA)
	}
	if groupB != "" && len(tablesB) == 0 {
		return nil, fmt.Errorf("no .csv files in %s match group prefix %q", inDir, groupB)
	}

	var kinds []domain.ModelKind
	for _, m := range strings.Split(models, ",") {
		kinds = append(kinds, domain.ModelKind(strings.TrimSpace(m)))
	}

	req := &services.AnalysisRequest{
		GroupA: services.GroupInput{Name: groupA, Tables: tablesA},
		Models: kinds,
		Options: domain.FitOptions{
			InitialKd:        opts.initialKd,
			InitialHillSlope: opts.hillSlope,
			TargetConc:       opts.targetConc,
			Readout:          opts.readout,
			WeightBySEM:      opts.weight,
		},
	}
	if groupB != "" {
		req.GroupB = &services.GroupInput{Name: groupB, Tables: tablesB}
	}
	return req, nil
}

// readTable loads one instrument CSV export as a raw table. The first row
// is the header; everything after is data.
func readTable(path, separator string) (domain.RawTable, error) {
	file, err := os.Open(path)
	if err != nil {
		return domain.RawTable{}, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	if separator != "" {
		comma, _ := utf8.DecodeRuneInString(separator)
		reader.Comma = comma
	}
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return domain.RawTable{}, err
	}
	if len(records) == 0 {
		return domain.RawTable{}, fmt.Errorf("%s is empty", path)
	}

	return domain.RawTable{
		Name:    filepath.Base(path),
		Columns: records[0],
		Rows:    records[1:],
	}, nil
}

func reportFits(logger *slog.Logger, gr *services.GroupResult) {
	if gr == nil {
		return
	}
	for _, fit := range gr.Fits {
		logger.Info("fit result",
			slog.String("group", gr.Name),
			slog.String("model", string(fit.Model)),
			slog.Float64("kd", fit.Params.Kd),
			slog.Float64("kd_stderr", fit.StdErrs.Kd),
			slog.Float64("hill_slope", fit.Params.HillSlope),
			slog.Int("points", len(fit.Fitted)))
	}
	for model, msg := range gr.FitErrors {
		logger.Warn("fit failed",
			slog.String("group", gr.Name),
			slog.String("model", string(model)),
			slog.String("error", msg))
	}
}
