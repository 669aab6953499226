// Package exporter serializes analysis results into the export artifact:
// four tables (raw measurements, replicate averages, fit parameters, and the
// two-group overlay) written as CSV files and as one multi-sheet xlsx
// workbook. It sits outside the core pipeline and consumes its outputs
// without mutating them.
package exporter
