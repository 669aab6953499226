// Package services contains the orchestration layer between the transport
// surfaces (HTTP, CLI) and the core pipeline packages (assay, fitting).
//
// AnalysisService owns a full run: per-group extraction and aggregation,
// model fitting, and the two-group overlay. The two groups of a request are
// self-contained and run concurrently; their results join only at the
// overlay step. Fit failures are scoped to their (group, model) pair so the
// raw and averaged data always survive for export.
package services
