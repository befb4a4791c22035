// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package metrics exposes Prometheus counters for trace delivery.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// batchesTotal tracks finished batches by outcome
	batchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mibo_batches_total",
			Help: "Total trace batches by outcome (delivered, failed, annotated)",
		},
		[]string{"outcome"},
	)

	// recordsTotal tracks records carried by finished batches
	recordsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mibo_records_total",
			Help: "Total records by batch outcome",
		},
		[]string{"outcome"},
	)

	// redactedFieldsTotal tracks masked fields
	redactedFieldsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mibo_redacted_fields_total",
			Help: "Total record fields replaced by the redaction placeholder",
		},
	)

	// deliveryDuration tracks the single POST per batch
	deliveryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mibo_delivery_duration_seconds",
			Help:    "Duration of trace delivery requests by outcome",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)

	// configErrorsTotal tracks batches rejected before sending
	configErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mibo_config_errors_total",
			Help: "Total batches rejected by configuration errors before any network call",
		},
	)
)

// Recorder implements delivery.Metrics on the package-level collectors.
type Recorder struct{}

// RecordRedacted adds masked field counts.
func (Recorder) RecordRedacted(fields int) {
	redactedFieldsTotal.Add(float64(fields))
}

// RecordBatch counts one finished batch.
func (Recorder) RecordBatch(outcome string, records int, duration time.Duration) {
	batchesTotal.WithLabelValues(outcome).Inc()
	recordsTotal.WithLabelValues(outcome).Add(float64(records))
	deliveryDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// RecordConfigError counts a batch rejected before sending.
func (Recorder) RecordConfigError() {
	configErrorsTotal.Inc()
}
