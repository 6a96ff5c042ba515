package pipeline

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// StageFunc executes one pipeline stage against the shared run context.
type StageFunc func(ctx context.Context, rc *Context) error

// Interceptor wraps a stage execution. Interceptors registered first wrap
// outermost, so their before/after code brackets everything registered later.
type Interceptor func(stage string, next StageFunc) StageFunc

func chainInterceptors(interceptors []Interceptor, stage string, fn StageFunc) StageFunc {
	for i := len(interceptors) - 1; i >= 0; i-- {
		fn = interceptors[i](stage, fn)
	}
	return fn
}

// NewLoggingInterceptor logs stage start, completion, and failure with the
// elapsed duration.
func NewLoggingInterceptor(logger *slog.Logger) Interceptor {
	return func(stage string, next StageFunc) StageFunc {
		return func(ctx context.Context, rc *Context) error {
			start := time.Now()
			logger.Debug("Stage starting", slog.String("stage", stage))
			err := next(ctx, rc)
			elapsed := time.Since(start)
			if err != nil {
				logger.Error("Stage failed",
					slog.String("stage", stage),
					slog.Duration("duration", elapsed),
					slog.Any("error", err))
				return err
			}
			logger.Info("Stage completed",
				slog.String("stage", stage),
				slog.Duration("duration", elapsed))
			return nil
		}
	}
}

// NewTracingInterceptor opens a span per stage and records a stage counter
// and duration histogram against the globally registered providers.
func NewTracingInterceptor() Interceptor {
	tracer := otel.Tracer("typeforge/pipeline")
	meter := otel.Meter("typeforge/pipeline")
	stageCount, _ := meter.Int64Counter("pipeline.stage.count",
		metric.WithDescription("Completed pipeline stage executions."))
	stageDuration, _ := meter.Float64Histogram("pipeline.stage.duration",
		metric.WithDescription("Pipeline stage wall time."),
		metric.WithUnit("s"))

	return func(stage string, next StageFunc) StageFunc {
		return func(ctx context.Context, rc *Context) error {
			ctx, span := tracer.Start(ctx, "pipeline."+stage,
				trace.WithAttributes(attribute.String("pipeline.stage", stage)))
			defer span.End()

			start := time.Now()
			err := next(ctx, rc)
			status := "ok"
			if err != nil {
				status = "error"
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			}
			attrs := metric.WithAttributes(
				attribute.String("stage", stage),
				attribute.String("status", status))
			stageCount.Add(ctx, 1, attrs)
			stageDuration.Record(ctx, time.Since(start).Seconds(), attrs)
			return err
		}
	}
}
