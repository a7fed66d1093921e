package service

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"

	apperrors "deepwork/internal/platform/errors"
)

const instrumentationName = "deepwork/internal/modules/session"

type instruments struct {
	tracer       trace.Tracer
	transitions  metric.Int64Counter
	reclassified metric.Int64Counter
}

// newInstruments binds to the global providers, which stay no-ops unless the
// daemon installed an exporter.
func newInstruments() instruments {
	meter := otel.Meter(instrumentationName)
	transitions, err := meter.Int64Counter(
		"deepwork.transitions",
		metric.WithDescription("Session lifecycle operations by op and outcome."),
	)
	if err != nil {
		transitions = noop.Int64Counter{}
	}
	reclassified, err := meter.Int64Counter(
		"deepwork.sweep.reclassified",
		metric.WithDescription("Sessions moved to a terminal status by the sweeper."),
	)
	if err != nil {
		reclassified = noop.Int64Counter{}
	}
	return instruments{
		tracer:       otel.Tracer(instrumentationName),
		transitions:  transitions,
		reclassified: reclassified,
	}
}

func (i instruments) observe(ctx context.Context, span trace.Span, op string, err error) {
	outcome := outcomeOf(err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.SetAttributes(attribute.String("session.outcome", outcome))
	i.transitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("op", op),
		attribute.String("outcome", outcome),
	))
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, apperrors.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, apperrors.ErrInvalidArgument):
		return "invalid_argument"
	case errors.Is(err, apperrors.ErrNotFound):
		return "not_found"
	case errors.Is(err, apperrors.ErrConflict):
		return "conflict"
	default:
		return "error"
	}
}
