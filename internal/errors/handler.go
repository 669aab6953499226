package errors

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"mstcli/internal/infrastructure"
)

// Problem is an RFC 7807 problem details response body.
type Problem struct {
	Type     string                 `json:"type"`
	Title    string                 `json:"title"`
	Status   int                    `json:"status"`
	Detail   string                 `json:"detail,omitempty"`
	Instance string                 `json:"instance,omitempty"`
	TraceID  string                 `json:"trace_id,omitempty"`
	Context  map[string]interface{} `json:"context,omitempty"`
}

// ErrorHandler converts pipeline errors to RFC 7807 responses.
type ErrorHandler struct {
	logger *slog.Logger
}

// NewErrorHandler creates a new error handler.
func NewErrorHandler(logger *slog.Logger) *ErrorHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ErrorHandler{logger: logger.With(slog.String("component", "error_handler"))}
}

// HandleError logs err and writes the matching problem response. The body is
// encoded directly so the application/problem+json media type survives.
func (h *ErrorHandler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}

	traceID := infrastructure.GetTraceID(r.Context())
	h.logger.ErrorContext(r.Context(), "request failed",
		slog.String("error", err.Error()),
		slog.String("trace_id", traceID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path))

	problem := h.toProblem(err)
	problem.Instance = r.URL.Path
	problem.TraceID = traceID

	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(problem.Status)
	if encodeErr := json.NewEncoder(w).Encode(problem); encodeErr != nil {
		h.logger.ErrorContext(r.Context(), "failed to write problem response",
			slog.String("error", encodeErr.Error()))
	}
}

// toProblem maps the error taxonomy onto HTTP statuses. Data-quality and
// configuration failures are the client's to fix; convergence failures are
// unprocessable rather than server faults, since the request itself was
// well-formed.
func (h *ErrorHandler) toProblem(err error) *Problem {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return &Problem{
			Type:   "/errors/internal",
			Title:  "Internal Server Error",
			Status: http.StatusInternalServerError,
			Detail: "an unexpected error occurred",
		}
	}

	p := &Problem{
		Detail:  appErr.Message,
		Context: appErr.Context,
	}
	switch appErr.Type {
	case ErrTypeMalformedInput:
		p.Type, p.Title, p.Status = "/errors/malformed-input", "Malformed Input", http.StatusBadRequest
	case ErrTypeInsufficientData:
		p.Type, p.Title, p.Status = "/errors/insufficient-data", "Insufficient Data", http.StatusUnprocessableEntity
	case ErrTypeInvalidConfiguration:
		p.Type, p.Title, p.Status = "/errors/invalid-configuration", "Invalid Configuration", http.StatusBadRequest
	case ErrTypeFitNotConverged:
		p.Type, p.Title, p.Status = "/errors/fit-not-converged", "Fit Did Not Converge", http.StatusUnprocessableEntity
	case ErrTypeValidation:
		p.Type, p.Title, p.Status = "/errors/validation", "Validation Failed", http.StatusBadRequest
	default:
		p.Type, p.Title, p.Status = "/errors/internal", "Internal Server Error", http.StatusInternalServerError
	}
	return p
}
