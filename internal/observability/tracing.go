package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Tracer returns a tracer for the given name
func Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}

// StartSpan starts a new span from context
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return otel.Tracer(instrumentationName).Start(ctx, name, opts...)
}

// StartDBSpan starts a span for database operations
func StartDBSpan(ctx context.Context, operation, table string) (context.Context, trace.Span) {
	return StartSpan(ctx, fmt.Sprintf("DB %s %s", operation, table),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.operation", operation),
			attribute.String("db.sql.table", table),
		),
	)
}

// StartServiceSpan starts a span for service operations
func StartServiceSpan(ctx context.Context, service, operation string) (context.Context, trace.Span) {
	return StartSpan(ctx, fmt.Sprintf("%s.%s", service, operation),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("service.component", service),
			attribute.String("service.operation", operation),
		),
	)
}

// RecordError records an error on the span
func RecordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// SetSuccess marks the span as successful
func SetSuccess(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}

// AddEvent adds an event to the span
func AddEvent(span trace.Span, name string, attrs ...attribute.KeyValue) {
	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// BusinessMetrics holds custom business metrics
type BusinessMetrics struct {
	todayPosts     metric.Int64Counter
	blitzPosts     metric.Int64Counter
	roundRollovers metric.Int64Counter
	roundStarts    metric.Int64Counter
	pushSends      metric.Int64Counter
	authAttempts   metric.Int64Counter
	stateWrites    metric.Int64Counter
}

// NewBusinessMetrics creates business metrics instruments
func NewBusinessMetrics() (*BusinessMetrics, error) {
	meter := otel.Meter(instrumentationName)

	todayPosts, err := meter.Int64Counter(
		"tapin.posts.today",
		metric.WithDescription("Total number of Today photo posts"),
		metric.WithUnit("{posts}"),
	)
	if err != nil {
		return nil, err
	}

	blitzPosts, err := meter.Int64Counter(
		"tapin.posts.blitz",
		metric.WithDescription("Total number of Blitz photo posts"),
		metric.WithUnit("{posts}"),
	)
	if err != nil {
		return nil, err
	}

	roundRollovers, err := meter.Int64Counter(
		"tapin.rounds.rollovers",
		metric.WithDescription("Total number of round rollovers"),
		metric.WithUnit("{rollovers}"),
	)
	if err != nil {
		return nil, err
	}

	roundStarts, err := meter.Int64Counter(
		"tapin.rounds.starts",
		metric.WithDescription("Total number of rounds started by a first post"),
		metric.WithUnit("{rounds}"),
	)
	if err != nil {
		return nil, err
	}

	pushSends, err := meter.Int64Counter(
		"tapin.push.sends",
		metric.WithDescription("Total number of push notification sends"),
		metric.WithUnit("{sends}"),
	)
	if err != nil {
		return nil, err
	}

	authAttempts, err := meter.Int64Counter(
		"tapin.auth.attempts",
		metric.WithDescription("Total number of authentication attempts"),
		metric.WithUnit("{attempts}"),
	)
	if err != nil {
		return nil, err
	}

	stateWrites, err := meter.Int64Counter(
		"tapin.state.writes",
		metric.WithDescription("Total number of engine snapshot writes"),
		metric.WithUnit("{writes}"),
	)
	if err != nil {
		return nil, err
	}

	return &BusinessMetrics{
		todayPosts:     todayPosts,
		blitzPosts:     blitzPosts,
		roundRollovers: roundRollovers,
		roundStarts:    roundStarts,
		pushSends:      pushSends,
		authAttempts:   authAttempts,
		stateWrites:    stateWrites,
	}, nil
}

// RecordTodayPost records a Today post attempt
func (m *BusinessMetrics) RecordTodayPost(ctx context.Context, groupID string, success bool) {
	attrs := []attribute.KeyValue{
		attribute.String("group_id", groupID),
		attribute.Bool("success", success),
	}
	m.todayPosts.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordBlitzPost records a Blitz post attempt
func (m *BusinessMetrics) RecordBlitzPost(ctx context.Context, groupID string, success, startedRound bool) {
	attrs := []attribute.KeyValue{
		attribute.String("group_id", groupID),
		attribute.Bool("success", success),
	}
	m.blitzPosts.Add(ctx, 1, metric.WithAttributes(attrs...))
	if startedRound {
		m.roundStarts.Add(ctx, 1, metric.WithAttributes(attribute.String("group_id", groupID)))
	}
}

// RecordRollover records a round rollover
func (m *BusinessMetrics) RecordRollover(ctx context.Context, groupID, reason string) {
	attrs := []attribute.KeyValue{
		attribute.String("group_id", groupID),
		attribute.String("reason", reason),
	}
	m.roundRollovers.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordPushSend records a push notification send
func (m *BusinessMetrics) RecordPushSend(ctx context.Context, kind string, tokenCount int, success bool) {
	attrs := []attribute.KeyValue{
		attribute.String("push_kind", kind),
		attribute.Int("token_count", tokenCount),
		attribute.Bool("success", success),
	}
	m.pushSends.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordAuthAttempt records an authentication attempt
func (m *BusinessMetrics) RecordAuthAttempt(ctx context.Context, method string, success bool) {
	attrs := []attribute.KeyValue{
		attribute.String("auth_method", method),
		attribute.Bool("success", success),
	}
	m.authAttempts.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordStateWrite records an engine snapshot write
func (m *BusinessMetrics) RecordStateWrite(ctx context.Context, success bool) {
	attrs := []attribute.KeyValue{
		attribute.Bool("success", success),
	}
	m.stateWrites.Add(ctx, 1, metric.WithAttributes(attrs...))
}
