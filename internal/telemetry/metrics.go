/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package telemetry registers the Prometheus instrumentation a mixer node
// exposes at /metrics: control-point churn, connects/disconnects,
// validation rejections, active slots, and samples-selected callback
// latency.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ── Gauges ───────────────────────────────────────────────────────────────

// ActiveSlots is the number of currently connected ConsumerSlots.
var ActiveSlots = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Name: "mixnode_active_slots",
	Help: "Number of connected consumer slots, by mixer id.",
}, []string{"mixer"})

// ── Counters ─────────────────────────────────────────────────────────────

// SlotConnections counts Connect/Disconnect outcomes by mixer and result.
var SlotConnections = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "mixnode_slot_connections_total",
	Help: "Connect/Disconnect requests handled, by mixer, operation, and result.",
}, []string{"mixer", "op", "result"})

// ControlPointChurn counts control points enqueued/removed by mixer and
// namespace (mixer-setting, slot-video, slot-audio).
var ControlPointChurn = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "mixnode_control_point_churn_total",
	Help: "Control points added or removed, by mixer, namespace, and operation.",
}, []string{"mixer", "namespace", "op"})

// ValidationRejections counts validation failures surfaced synchronously to
// callers, by mixer and request kind.
var ValidationRejections = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "mixnode_validation_rejections_total",
	Help: "Validation errors returned to callers, by mixer and request.",
}, []string{"mixer", "request"})

// ── Histograms ───────────────────────────────────────────────────────────

// SamplesSelectedDuration tracks how long one samples-selected callback
// invocation takes, by mixer and track (video/audio).
var SamplesSelectedDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "mixnode_samples_selected_duration_seconds",
	Help:    "Samples-selected callback duration in seconds, by mixer and track.",
	Buckets: prometheus.DefBuckets,
}, []string{"mixer", "track"})

// Handler exposes the process's registered metrics at a scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
