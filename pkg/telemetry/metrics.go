// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// APIMetrics tracks request volume, latency, and failures for the HTTP API.
// All Record methods are safe on a nil receiver so callers can skip the
// enabled check.
type APIMetrics struct {
	requestCounter  metric.Int64Counter
	requestDuration metric.Float64Histogram
	errorCounter    metric.Int64Counter
	activeSessions  metric.Int64Gauge
}

// NewAPIMetrics creates API metrics on the global meter provider.
func NewAPIMetrics() (*APIMetrics, error) {
	meter := otel.Meter("tracelens/api")

	requestCounter, err := meter.Int64Counter(
		"tracelens.api.requests.total",
		metric.WithDescription("Total API requests by route and status"),
	)
	if err != nil {
		return nil, err
	}

	requestDuration, err := meter.Float64Histogram(
		"tracelens.api.request.duration",
		metric.WithDescription("API request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	errorCounter, err := meter.Int64Counter(
		"tracelens.api.errors.total",
		metric.WithDescription("API errors by error code and route"),
	)
	if err != nil {
		return nil, err
	}

	activeSessions, err := meter.Int64Gauge(
		"tracelens.sessions.active",
		metric.WithDescription("Currently active sessions"),
	)
	if err != nil {
		return nil, err
	}

	return &APIMetrics{
		requestCounter:  requestCounter,
		requestDuration: requestDuration,
		errorCounter:    errorCounter,
		activeSessions:  activeSessions,
	}, nil
}

// RecordRequest records one completed request with its HTTP status and latency.
func (m *APIMetrics) RecordRequest(ctx context.Context, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("route", route),
		attribute.Int("status", status),
	)
	m.requestCounter.Add(ctx, 1, attrs)
	m.requestDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attribute.String("route", route)))
}

// RecordError records a failed request by error code.
func (m *APIMetrics) RecordError(ctx context.Context, route, code string) {
	if m == nil {
		return
	}
	m.errorCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("route", route),
		attribute.String("error.code", code),
	))
}

// RecordActiveSessions records the current session count.
func (m *APIMetrics) RecordActiveSessions(ctx context.Context, count int64) {
	if m == nil {
		return
	}
	m.activeSessions.Record(ctx, count)
}
