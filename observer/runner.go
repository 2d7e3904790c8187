package observer

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	foreman "github.com/nevindra/foreman"
)

// Span and metric attribute keys.
var (
	AttrStepID     = attribute.Key("step.id")
	AttrStepName   = attribute.Key("step.name")
	AttrStepRole   = attribute.Key("step.role")
	AttrWorkflowID = attribute.Key("workflow.id")
)

// ObservedRunner wraps a foreman.StepRunner to emit a step.execute span,
// execution metrics, and a completion log record per step.
type ObservedRunner struct {
	inner foreman.StepRunner
	inst  *Instruments
}

// WrapRunner returns an instrumented StepRunner.
func WrapRunner(inner foreman.StepRunner, inst *Instruments) *ObservedRunner {
	return &ObservedRunner{inner: inner, inst: inst}
}

// Execute wraps the inner runner's Execute with telemetry. The terminal
// report has already gone out by the time the inner call returns, so a
// non-nil error here means "failure was reported", not "failure escaped".
func (o *ObservedRunner) Execute(ctx context.Context, step foreman.Step) error {
	ctx, span := o.inst.Tracer.Start(ctx, "step.execute", trace.WithAttributes(
		AttrStepID.String(step.ID),
		AttrStepName.String(step.Name),
		AttrStepRole.String(step.AgentRole),
		AttrWorkflowID.String(step.WorkflowID),
	))
	defer span.End()
	start := time.Now()

	err := o.inner.Execute(ctx, step)

	durationMs := float64(time.Since(start).Milliseconds())
	status := "ok"
	if err != nil {
		status = "failed"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	attrs := metric.WithAttributes(
		AttrStepRole.String(step.AgentRole),
		attribute.String("status", status),
	)
	o.inst.StepExecutions.Add(ctx, 1, attrs)
	if err != nil {
		o.inst.StepFailures.Add(ctx, 1, attrs)
	}
	o.inst.StepDuration.Record(ctx, durationMs, attrs)

	o.emitLog(ctx, step, status, err)
	return err
}

func (o *ObservedRunner) emitLog(ctx context.Context, step foreman.Step, status string, err error) {
	var rec otellog.Record
	rec.SetTimestamp(time.Now())
	rec.SetBody(otellog.StringValue("step " + status))
	rec.SetSeverity(otellog.SeverityInfo)
	if err != nil {
		rec.SetSeverity(otellog.SeverityError)
		rec.AddAttributes(otellog.String("error", err.Error()))
	}
	rec.AddAttributes(
		otellog.String("step.id", step.ID),
		otellog.String("step.role", step.AgentRole),
	)
	o.inst.Logger.Emit(ctx, rec)
}

var _ foreman.StepRunner = (*ObservedRunner)(nil)
