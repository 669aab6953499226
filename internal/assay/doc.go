// Package assay provides the MST data-reduction pipeline: extraction of
// per-capillary measurements from raw instrument tables, replicate
// aggregation with standard-error computation, and structural combination of
// two experimental groups into an overlay table.
//
// # Architecture
//
// The package is organized into three components:
//
// 1. Extractor: turns one raw table into structured Measurements
// 2. Aggregator: buckets measurements by concentration and averages replicates
// 3. Combine: aligns two aggregated series on their concentration union
//
// # Data Flow
//
//	RawTable → Extractor → []Measurement → Aggregator → AggregatedSeries
//	AggregatedSeries (A, B) → Combine → OverlayTable
//
// Model fitting over an AggregatedSeries lives in package fitting.
//
// # Error Handling
//
// Row-level extraction problems are recovered into a warning list and never
// abort a table unless every row fails. Structural problems (missing columns,
// empty tables) are returned as MALFORMED_INPUT errors.
//
// Each stage returns new immutable values and never mutates its input.
package assay
