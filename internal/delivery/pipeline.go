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

package delivery

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/mibo-ai/mibo-cli/internal/jsonvalue"
	"github.com/mibo-ai/mibo-cli/internal/log"
	"github.com/mibo-ai/mibo-cli/internal/trace"
	"github.com/mibo-ai/mibo-cli/internal/tracing"
	"github.com/mibo-ai/mibo-cli/internal/tracing/redact"
	"github.com/mibo-ai/mibo-cli/internal/transport"
	"github.com/mibo-ai/mibo-cli/pkg/errors"
)

// DefaultTimeout bounds the delivery request when Options.Timeout is zero.
const DefaultTimeout = 30 * time.Second

// Credentials authenticate against the collector.
type Credentials struct {
	APIKey    string
	ServerURL string
}

// Batch is one host pipeline step's worth of records plus its identity.
type Batch struct {
	Records     []*jsonvalue.Object
	Workflow    trace.Workflow
	ExecutionID string

	// RedactKeys are masked before the payload is built. Empty disables
	// redaction.
	RedactKeys redact.KeySet

	// Metadata enables metadata extensions when non-nil.
	Metadata *trace.MetadataFields

	PlatformID string
	ExternalID string
}

// Options are the per-run delivery settings.
type Options struct {
	// ServerURL overrides Credentials.ServerURL.
	ServerURL string

	// Timeout bounds the single POST. Zero means DefaultTimeout.
	Timeout time.Duration

	Strategy Strategy
}

// TimeoutMillis returns the effective timeout in milliseconds.
func (o Options) TimeoutMillis() int64 {
	return o.effectiveTimeout().Milliseconds()
}

func (o Options) effectiveTimeout() time.Duration {
	if o.Timeout <= 0 {
		return DefaultTimeout
	}
	return o.Timeout
}

// Attempt describes one finished delivery for a Recorder.
type Attempt struct {
	CorrelationID string
	WorkflowID    string
	ExecutionID   string
	PlatformID    string
	TraceID       string
	Sent          bool
	Error         string
	Records       int
	Digest        string
	At            time.Time
	Duration      time.Duration
}

// Recorder persists delivery attempts. Failures to record are logged and
// never affect the batch result.
type Recorder interface {
	RecordAttempt(ctx context.Context, a Attempt) error
}

// Metrics receives pipeline counters. Implementations must be safe for
// concurrent use.
type Metrics interface {
	RecordRedacted(fields int)
	RecordBatch(outcome string, records int, duration time.Duration)
	RecordConfigError()
}

// Metric outcomes.
const (
	OutcomeDelivered   = "delivered"
	OutcomeFailed      = "failed"
	OutcomeAnnotated   = "annotated"
	OutcomeConfigError = "config_error"
)

// Pipeline delivers batches. A Pipeline holds no per-batch state and may run
// batches concurrently.
type Pipeline struct {
	Transport   transport.Transport
	Credentials Credentials

	// Optional collaborators.
	Recorder Recorder
	Metrics  Metrics
	Logger   *slog.Logger
	Now      func() time.Time
}

func (p *Pipeline) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

func (p *Pipeline) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return log.Discard()
}

// Run delivers one batch and returns the annotated records, one per input
// record in the same order.
//
// Configuration errors are returned before anything is sent, whatever the
// strategy. A failed send returns a *DeliveryError under FailFast and
// annotated records with a nil error under AnnotateAndContinue.
func (p *Pipeline) Run(ctx context.Context, batch *Batch, opts Options) ([]*jsonvalue.Object, error) {
	for _, rec := range batch.Records {
		if rec == nil {
			return nil, ErrNoRecords
		}
	}

	ctx, correlationID := tracing.EnsureContext(ctx)
	logger := log.WithBatchContext(log.WithComponent(p.logger(), "delivery"),
		batch.Workflow.ResolvedID(), batch.ExecutionID)
	logger = log.WithCorrelationID(logger, correlationID.String())

	payload, err := p.build(batch)
	if err != nil {
		if errors.IsConfiguration(err) && p.Metrics != nil {
			p.Metrics.RecordConfigError()
		}
		logger.Error("trace not built", log.Error(err))
		return nil, err
	}

	body, err := payload.Encode()
	if err != nil {
		return nil, errors.Wrap(err, "encode trace payload")
	}
	digest, err := trace.DigestJSON(body)
	if err != nil {
		return nil, err
	}
	logger.Debug("trace built",
		log.StateKey, StateBuilt.String(),
		log.RecordsKey, len(batch.Records),
		"digest", digest,
	)
	log.Trace(logger, "trace payload", slog.String("body", string(body)))

	req := &transport.Request{
		Method:  http.MethodPost,
		URL:     ResolveServerURL(opts.ServerURL, p.Credentials.ServerURL) + "/traces",
		Headers: p.headers(batch.Records, digest),
		Body:    body,
		Timeout: opts.effectiveTimeout(),
	}

	logger.Debug("sending trace",
		log.StateKey, StateSending.String(),
		"timeout_ms", req.TimeoutMillis(),
	)
	spanCtx, span := tracing.StartBatchSpan(ctx, payload.WorkflowID, payload.ExecutionID, len(batch.Records))
	start := p.now()
	resp, sendErr := p.Transport.Execute(spanCtx, req)
	elapsed := p.now().Sub(start)

	var traceID string
	if sendErr == nil {
		traceID = extractTraceID(resp.Body)
		span.SetAttributes(tracing.AttrTraceID.String(traceID))
	}
	tracing.EndSpan(span, sendErr)

	attempt := Attempt{
		CorrelationID: correlationID.String(),
		WorkflowID:    payload.WorkflowID,
		ExecutionID:   payload.ExecutionID,
		PlatformID:    batch.PlatformID,
		Records:       len(batch.Records),
		Digest:        digest,
		At:            start,
		Duration:      elapsed,
	}

	if sendErr == nil {
		attempt.Sent, attempt.TraceID = true, traceID
		p.finish(ctx, logger, attempt, OutcomeDelivered)

		logger.Info("trace delivered",
			log.StateKey, StateDelivered.String(),
			log.TraceIDKey, traceID,
			log.RecordsKey, len(batch.Records),
			log.DurationKey, elapsed.Milliseconds(),
		)
		return annotate(batch.Records, deliveredAnnotation(traceID, batch.PlatformID, payload.Timestamp)), nil
	}

	message := failureMessage(sendErr)
	attempt.Error = message
	logger.Warn("trace delivery failed",
		log.StateKey, StateFailed.String(),
		"strategy", opts.Strategy.String(),
		log.DurationKey, elapsed.Milliseconds(),
		log.Error(sendErr),
	)

	if opts.Strategy == AnnotateAndContinue {
		p.finish(ctx, logger, attempt, OutcomeAnnotated)
		return annotate(batch.Records, failedAnnotation(message, batch.PlatformID, payload.Timestamp)), nil
	}

	p.finish(ctx, logger, attempt, OutcomeFailed)
	return nil, newDeliveryError(sendErr)
}

// Preview redacts and assembles the payload Run would send, without
// sending it.
func (p *Pipeline) Preview(batch *Batch) (*trace.Payload, error) {
	for _, rec := range batch.Records {
		if rec == nil {
			return nil, ErrNoRecords
		}
	}
	return p.build(batch)
}

// build redacts and assembles the payload. Everything here is synchronous
// and free of I/O.
func (p *Pipeline) build(batch *Batch) (*trace.Payload, error) {
	records := batch.Records
	if len(batch.RedactKeys) > 0 {
		redacted, masked, err := redact.NewRedactor(batch.RedactKeys).Records(records)
		if err != nil {
			return nil, errors.Wrap(err, "redact records")
		}
		if p.Metrics != nil && masked > 0 {
			p.Metrics.RecordRedacted(masked)
		}
		records = redacted
	}

	input := make([]jsonvalue.Value, len(records))
	for i, r := range records {
		input[i] = r
	}

	payload, err := trace.Build(trace.BuildInput{
		Records:     input,
		Workflow:    batch.Workflow,
		ExecutionID: batch.ExecutionID,
		Metadata:    batch.Metadata,
		PlatformID:  batch.PlatformID,
		ExternalID:  batch.ExternalID,
		Timestamp:   p.now(),
	})
	if err != nil {
		return nil, err
	}
	return payload, nil
}

func (p *Pipeline) headers(records []*jsonvalue.Object, digest string) map[string]string {
	h := map[string]string{
		"X-API-Key":       p.Credentials.APIKey,
		"Content-Type":    "application/json",
		"Idempotency-Key": digest,
	}
	if id := requestIDFrom(records); id != "" {
		h["X-Request-Id"] = id
	}
	return h
}

func (p *Pipeline) finish(ctx context.Context, logger *slog.Logger, a Attempt, outcome string) {
	if p.Metrics != nil {
		p.Metrics.RecordBatch(outcome, a.Records, a.Duration)
	}
	if p.Recorder != nil {
		if err := p.Recorder.RecordAttempt(context.WithoutCancel(ctx), a); err != nil {
			logger.Warn("failed to record delivery attempt", log.Error(err))
		}
	}
}
