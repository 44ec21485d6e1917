package ygggo_db

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var defaultMeter = otel.Meter(instrumentationName)

// Metrics holds the pool's metric instruments.
type Metrics struct {
	connectionsActive  metric.Int64UpDownCounter
	connectionsTotal   metric.Int64Counter
	connectionDuration metric.Float64Histogram

	queriesTotal  metric.Int64Counter
	queryDuration metric.Float64Histogram

	transactionsTotal   metric.Int64Counter
	transactionDuration metric.Float64Histogram
}

// EnableMetrics enables or disables metrics collection for this pool.
func (p *Pool) EnableMetrics(enabled bool) {
	if p == nil {
		return
	}
	p.metricsEnabled = enabled
	if enabled && p.metrics == nil {
		p.initMetrics()
	}
}

// SetMeterProvider sets a custom meter provider for metrics.
func (p *Pool) SetMeterProvider(provider metric.MeterProvider) {
	if p == nil {
		return
	}
	p.meterProvider = provider
	if p.metricsEnabled {
		p.initMetrics()
	}
}

func (p *Pool) initMetrics() {
	var meter metric.Meter
	if p.meterProvider != nil {
		meter = p.meterProvider.Meter(instrumentationName)
	} else {
		meter = defaultMeter
	}

	p.metrics = &Metrics{}

	p.metrics.connectionsActive, _ = meter.Int64UpDownCounter(
		"ygggo_db_connections_active",
		metric.WithDescription("Number of active database connections"),
	)
	p.metrics.connectionsTotal, _ = meter.Int64Counter(
		"ygggo_db_connections_total",
		metric.WithDescription("Total number of database connections created"),
	)
	p.metrics.connectionDuration, _ = meter.Float64Histogram(
		"ygggo_db_connection_duration_seconds",
		metric.WithDescription("Duration of database connections"),
		metric.WithUnit("s"),
	)

	p.metrics.queriesTotal, _ = meter.Int64Counter(
		"ygggo_db_queries_total",
		metric.WithDescription("Total number of database queries"),
	)
	p.metrics.queryDuration, _ = meter.Float64Histogram(
		"ygggo_db_query_duration_seconds",
		metric.WithDescription("Duration of database queries"),
		metric.WithUnit("s"),
	)

	p.metrics.transactionsTotal, _ = meter.Int64Counter(
		"ygggo_db_transactions_total",
		metric.WithDescription("Total number of database transactions"),
	)
	p.metrics.transactionDuration, _ = meter.Float64Histogram(
		"ygggo_db_transaction_duration_seconds",
		metric.WithDescription("Duration of database transactions"),
		metric.WithUnit("s"),
	)
}

// recordConnectionAcquired records a connection checkout.
func (p *Pool) recordConnectionAcquired(ctx context.Context) {
	if p == nil || !p.metricsEnabled || p.metrics == nil {
		return
	}
	p.metrics.connectionsActive.Add(ctx, 1)
	p.metrics.connectionsTotal.Add(ctx, 1)
}

// recordConnectionReleased records a connection return and its hold time.
func (p *Pool) recordConnectionReleased(ctx context.Context, duration time.Duration) {
	if p == nil || !p.metricsEnabled || p.metrics == nil {
		return
	}
	p.metrics.connectionsActive.Add(ctx, -1)
	p.metrics.connectionDuration.Record(ctx, duration.Seconds())
}

// recordQuery records query execution metrics.
func (p *Pool) recordQuery(ctx context.Context, operation string, duration time.Duration, err error) {
	if p == nil || !p.metricsEnabled || p.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	attrs := []attribute.KeyValue{
		attribute.String("operation", operation),
		attribute.String("engine", p.engine.String()),
		attribute.String("status", status),
	}
	p.metrics.queriesTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	p.metrics.queryDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// recordTransaction records transaction execution metrics.
func (p *Pool) recordTransaction(ctx context.Context, duration time.Duration, err error) {
	if p == nil || !p.metricsEnabled || p.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	attrs := []attribute.KeyValue{
		attribute.String("engine", p.engine.String()),
		attribute.String("status", status),
	}
	p.metrics.transactionsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	p.metrics.transactionDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}
