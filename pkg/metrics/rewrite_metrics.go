// Rewrite-run metrics definitions
//
// Defines the metrics a rewrite run reports:
// - Lines seen, by outcome
// - Per-line errors, by error code
// - Distance travelled and material assigned to rewritten moves
//
// Copyright (C) 2026 Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package metrics

// RewriteMetrics holds the metrics of the extrusion rewriter
type RewriteMetrics struct {
	LinesTotal     *Counter
	ErrorsTotal    *Counter
	DistanceTotal  *Gauge
	ExtrusionTotal *Gauge
	MoveDistance   *Histogram

	registry *Registry
}

// NewRewriteMetrics creates and registers the rewriter metrics
func NewRewriteMetrics() *RewriteMetrics {
	rm := &RewriteMetrics{
		registry: NewRegistry(),
	}

	rm.LinesTotal = NewCounter("gcode_extrude_lines_total",
		"Input lines processed, by outcome")
	rm.ErrorsTotal = NewCounter("gcode_extrude_errors_total",
		"Lines that failed, by error code")
	rm.DistanceTotal = NewGauge("gcode_extrude_distance_mm",
		"Total distance of rewritten moves in millimeters")
	rm.ExtrusionTotal = NewGauge("gcode_extrude_extrusion_total",
		"Total extrusion assigned to rewritten moves")
	rm.MoveDistance = NewHistogram("gcode_extrude_move_distance_mm",
		"Length of individual rewritten moves", ExponentialBuckets(0.1, 4, 6))

	rm.registry.MustRegister(rm.LinesTotal)
	rm.registry.MustRegister(rm.ErrorsTotal)
	rm.registry.MustRegister(rm.DistanceTotal)
	rm.registry.MustRegister(rm.ExtrusionTotal)
	rm.registry.MustRegister(rm.MoveDistance)
	return rm
}

// RecordLine counts one processed line. kind is one of "opaque",
// "first_move" or "rewritten".
func (rm *RewriteMetrics) RecordLine(kind string) {
	rm.LinesTotal.Inc(Labels{"kind": kind})
}

// RecordMove accounts for one rewritten move
func (rm *RewriteMetrics) RecordMove(distance, e float64) {
	rm.DistanceTotal.Add(nil, distance)
	rm.ExtrusionTotal.Add(nil, e)
	rm.MoveDistance.Observe(nil, distance)
}

// RecordError counts one failed line
func (rm *RewriteMetrics) RecordError(code string) {
	rm.ErrorsTotal.Inc(Labels{"code": code})
}

// Gather returns all metrics in Prometheus text format
func (rm *RewriteMetrics) Gather() string {
	return rm.registry.Gather()
}

// Registry returns the internal registry
func (rm *RewriteMetrics) Registry() *Registry {
	return rm.registry
}
