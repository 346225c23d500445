// Package metrics exposes redaction statistics as Prometheus collectors.
// A CLI run has no scrape endpoint, so the collectors live on a private
// registry that is written to a node_exporter textfile after the run.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/MeKo-Tech/redactor/internal/privacy"
	"github.com/MeKo-Tech/redactor/internal/redact"
	"github.com/MeKo-Tech/redactor/internal/sections"
)

// Recorder implements pipeline.Recorder on a dedicated registry.
type Recorder struct {
	registry *prometheus.Registry

	itemsFound      *prometheus.CounterVec
	masks           *prometheus.CounterVec
	pagesRemoved    *prometheus.CounterVec
	detectionErrors *prometheus.CounterVec
	documents       *prometheus.CounterVec
	duration        prometheus.Histogram
}

// NewRecorder registers the redactor collectors on a fresh registry.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		itemsFound: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "redactor_items_found_total",
				Help: "Sensitive items detected, before seal protection",
			},
			[]string{"category", "source"},
		),
		masks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "redactor_masks_total",
				Help: "Redaction outcomes per item",
			},
			[]string{"status"}, // success, failed
		),
		pagesRemoved: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "redactor_pages_removed_total",
				Help: "Pages deleted by section removal",
			},
			[]string{"reason"},
		),
		detectionErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "redactor_detection_errors_total",
				Help: "Recovered detection failures",
			},
			[]string{"stage"}, // text, rasterize, ocr, qr, barcode, seal
		),
		documents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "redactor_documents_total",
				Help: "Documents processed",
			},
			[]string{"status"},
		),
		duration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "redactor_document_duration_seconds",
				Help:    "Time spent detecting and redacting one document",
				Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 25, 50, 100, 250},
			},
		),
	}
}

// Registry returns the registry holding the collectors.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

func (r *Recorder) ItemFound(category privacy.Category, source privacy.Source) {
	r.itemsFound.WithLabelValues(string(category), string(source)).Inc()
}

func (r *Recorder) MaskOutcome(status redact.Status) {
	r.masks.WithLabelValues(string(status)).Inc()
}

func (r *Recorder) PageRemoved(reason sections.Reason) {
	r.pagesRemoved.WithLabelValues(string(reason)).Inc()
}

func (r *Recorder) DetectionFailed(stage string) {
	r.detectionErrors.WithLabelValues(stage).Inc()
}

func (r *Recorder) DocumentDone(elapsed time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	r.documents.WithLabelValues(status).Inc()
	r.duration.Observe(elapsed.Seconds())
}

// WriteTextfile writes the collected metrics in the text exposition format.
// The file is replaced atomically.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}
