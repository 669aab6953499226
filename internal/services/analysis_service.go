package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"mstcli/internal/assay"
	"mstcli/internal/errors"
	"mstcli/internal/fitting"
	"mstcli/pkg/contracts/domain"
)

// GroupInput is the raw material of one experimental group: any number of
// replicate tables sharing a group name.
type GroupInput struct {
	Name   string            `json:"name" validate:"required"`
	Tables []domain.RawTable `json:"tables" validate:"required,min=1"`
}

// AnalysisRequest is one full pipeline invocation. GroupB is optional; when
// present, both groups are combined into an overlay table.
type AnalysisRequest struct {
	GroupA  GroupInput         `json:"group_a" validate:"required"`
	GroupB  *GroupInput        `json:"group_b,omitempty"`
	Models  []domain.ModelKind `json:"models" validate:"required,min=1,dive,oneof=hill quadratic"`
	Options domain.FitOptions  `json:"options"`
}

// GroupResult carries everything derived from one group. A failed
// (group, model) fit lands in FitErrors and leaves the series and the other
// model's fit intact for export.
type GroupResult struct {
	Name string `json:"name"`
	// Measurements are the extracted per-capillary readings, kept so the
	// export layer can emit a raw sheet without re-running extraction.
	Measurements []domain.Measurement    `json:"measurements"`
	Series       domain.AggregatedSeries `json:"series"`
	Warnings     []domain.Warning        `json:"warnings,omitempty"`
	Fits         []*domain.FitResult     `json:"fits"`
	// FitErrors maps a model kind to the message of its failed fit.
	FitErrors map[domain.ModelKind]string `json:"fit_errors,omitempty"`
}

// AnalysisResult is the complete outcome of one run.
type AnalysisResult struct {
	RunID   string               `json:"run_id"`
	GroupA  *GroupResult         `json:"group_a"`
	GroupB  *GroupResult         `json:"group_b,omitempty"`
	Overlay *domain.OverlayTable `json:"overlay,omitempty"`
}

// AnalysisService orchestrates extraction, aggregation, fitting, and overlay
// combination. Groups are independent and processed concurrently; results
// are joined only at the overlay step.
type AnalysisService struct {
	logger     *slog.Logger
	extractor  *assay.Extractor
	aggregator *assay.Aggregator
	fitter     *fitting.Fitter
	validate   *validator.Validate
	tracer     trace.Tracer
	fitCounter metric.Int64Counter
}

// NewAnalysisService wires the pipeline stages together.
func NewAnalysisService(logger *slog.Logger, schema assay.Schema, tolerance float64) *AnalysisService {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "analysis_service"))

	meter := otel.Meter("mstcli")
	fitCounter, err := meter.Int64Counter("mst_fits_total",
		metric.WithDescription("Completed binding model fits, by model and outcome"))
	if err != nil {
		logger.Warn("failed to create fit counter", slog.String("error", err.Error()))
	}

	return &AnalysisService{
		logger:     logger,
		extractor:  assay.NewExtractor(logger, schema),
		aggregator: assay.NewAggregator(logger, tolerance),
		fitter:     fitting.NewFitter(logger),
		validate:   validator.New(),
		tracer:     otel.Tracer("mstcli"),
		fitCounter: fitCounter,
	}
}

// AnalyzeGroups runs the full pipeline for one request. Fit failures are
// collected per (group, model) and never abort the run; extraction and
// aggregation failures of a whole group do.
func (s *AnalysisService) AnalyzeGroups(ctx context.Context, req AnalysisRequest) (*AnalysisResult, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, errors.NewValidationError(fmt.Sprintf("invalid analysis request: %v", err))
	}

	runID := uuid.New().String()
	ctx, span := s.tracer.Start(ctx, "analysis.run",
		trace.WithAttributes(attribute.String("run_id", runID)))
	defer span.End()

	logger := s.logger.With(slog.String("run_id", runID))
	logger.InfoContext(ctx, "starting analysis run",
		slog.String("group_a", req.GroupA.Name),
		slog.Bool("has_group_b", req.GroupB != nil),
		slog.Int("models", len(req.Models)))

	result := &AnalysisResult{RunID: runID}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		gr, err := s.processGroup(gctx, req.GroupA, req.Models, req.Options)
		if err != nil {
			return err
		}
		result.GroupA = gr
		return nil
	})
	if req.GroupB != nil {
		g.Go(func() error {
			gr, err := s.processGroup(gctx, *req.GroupB, req.Models, req.Options)
			if err != nil {
				return err
			}
			result.GroupB = gr
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if result.GroupB != nil {
		_, combineSpan := s.tracer.Start(ctx, "assay.combine")
		result.Overlay = assay.Combine(result.GroupA.Series, result.GroupB.Series, 0)
		combineSpan.End()
	}

	logger.InfoContext(ctx, "analysis run complete")
	return result, nil
}

// FitSeries fits one model against an already-aggregated series, for callers
// that averaged their data elsewhere.
func (s *AnalysisService) FitSeries(ctx context.Context, series domain.AggregatedSeries, kind domain.ModelKind, opts domain.FitOptions) (*domain.FitResult, error) {
	ctx, span := s.tracer.Start(ctx, "fitting.fit",
		trace.WithAttributes(
			attribute.String("model", string(kind)),
			attribute.String("group", series.Group)))
	defer span.End()

	res, err := s.fitter.Fit(ctx, series, kind, opts)
	s.countFit(ctx, kind, err)
	return res, err
}

// CombineSeries aligns two externally aggregated series into an overlay
// table.
func (s *AnalysisService) CombineSeries(ctx context.Context, a, b domain.AggregatedSeries) *domain.OverlayTable {
	_, span := s.tracer.Start(ctx, "assay.combine")
	defer span.End()
	return assay.Combine(a, b, 0)
}

// processGroup extracts, aggregates, and fits one group. A table whose
// extraction fails outright is recorded as a warning and skipped; the group
// fails only when no table yields measurements.
func (s *AnalysisService) processGroup(ctx context.Context, input GroupInput, models []domain.ModelKind, opts domain.FitOptions) (*GroupResult, error) {
	ctx, span := s.tracer.Start(ctx, "analysis.group",
		trace.WithAttributes(attribute.String("group", input.Name)))
	defer span.End()

	gr := &GroupResult{Name: input.Name, FitErrors: make(map[domain.ModelKind]string)}

	var measurements []domain.Measurement
	for _, table := range input.Tables {
		ms, warnings, err := s.extractor.Extract(ctx, table)
		gr.Warnings = append(gr.Warnings, warnings...)
		if err != nil {
			// The whole table was unusable. Record it and keep going with
			// the remaining replicates.
			gr.Warnings = append(gr.Warnings, domain.Warning{
				Table:  table.Name,
				Row:    -1,
				Reason: err.Error(),
			})
			continue
		}
		measurements = append(measurements, ms...)
	}
	if len(measurements) == 0 {
		return nil, errors.NewMalformedInputError(
			fmt.Sprintf("group %q has no usable measurements", input.Name), nil).
			WithContext("group", input.Name).
			WithContext("tables", len(input.Tables))
	}

	gr.Measurements = measurements
	gr.Series = s.aggregator.Aggregate(ctx, input.Name, measurements)

	for _, kind := range models {
		res, err := s.fitter.Fit(ctx, gr.Series, kind, opts)
		s.countFit(ctx, kind, err)
		if err != nil {
			// Fatal to this (group, model) fit only; the series and any
			// other fits stay available for export.
			gr.FitErrors[kind] = err.Error()
			continue
		}
		gr.Fits = append(gr.Fits, res)
	}

	return gr, nil
}

func (s *AnalysisService) countFit(ctx context.Context, kind domain.ModelKind, err error) {
	if s.fitCounter == nil {
		return
	}
	outcome := "converged"
	if err != nil {
		outcome = "failed"
	}
	s.fitCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("model", string(kind)),
		attribute.String("outcome", outcome)))
}
