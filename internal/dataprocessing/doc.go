// Package dataprocessing holds the row-level pipeline stages: the
// dissolution-date filter, the cross-code aggregator, and the statistics
// summarizer. All stages are pure over their table inputs; the aggregator
// is the only stateful piece and is owned by a single pipeline run.
package dataprocessing
