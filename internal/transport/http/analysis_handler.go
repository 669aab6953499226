package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "mstcli/internal/errors"
	"mstcli/internal/services"
	"mstcli/pkg/contracts/domain"
)

// AnalysisHandler exposes the pipeline operations over HTTP.
type AnalysisHandler struct {
	service      *services.AnalysisService
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewAnalysisHandler creates the handler.
func NewAnalysisHandler(service *services.AnalysisService, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *AnalysisHandler {
	return &AnalysisHandler{
		service:      service,
		logger:       logger.With(slog.String("component", "analysis_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the analysis routes.
func (h *AnalysisHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Post("/", h.Analyze)
	r.Post("/fit", h.Fit)
	r.Post("/overlay", h.Overlay)

	return r
}

// Analyze handles POST /api/analysis: the full extract → aggregate → fit →
// combine pipeline for one or two groups.
func (h *AnalysisHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req services.AnalysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.NewValidationError("request body is not valid JSON"))
		return
	}

	result, err := h.service.AnalyzeGroups(r.Context(), req)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, result)
}

// FitRequest fits one model against an already-aggregated series.
type FitRequest struct {
	Series  domain.AggregatedSeries `json:"series"`
	Model   domain.ModelKind        `json:"model"`
	Options domain.FitOptions       `json:"options"`
}

// Fit handles POST /api/analysis/fit.
func (h *AnalysisHandler) Fit(w http.ResponseWriter, r *http.Request) {
	var req FitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.NewValidationError("request body is not valid JSON"))
		return
	}

	result, err := h.service.FitSeries(r.Context(), req.Series, req.Model, req.Options)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, result)
}

// OverlayRequest combines two aggregated series into one comparison table.
type OverlayRequest struct {
	SeriesA domain.AggregatedSeries `json:"series_a"`
	SeriesB domain.AggregatedSeries `json:"series_b"`
}

// Overlay handles POST /api/analysis/overlay.
func (h *AnalysisHandler) Overlay(w http.ResponseWriter, r *http.Request) {
	var req OverlayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.NewValidationError("request body is not valid JSON"))
		return
	}

	table := h.service.CombineSeries(r.Context(), req.SeriesA, req.SeriesB)
	render.JSON(w, r, table)
}
