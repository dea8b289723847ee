// Package report persists and renders evaluation outcomes: structured log
// output, markdown audit summaries, and a SQLite archive.
package report

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/model-eval/internal/eval"
)

// Sink receives evaluation outcomes as they complete.
type Sink interface {
	RecordVerdict(ctx context.Context, v *eval.Verdict) error
	RecordAudit(ctx context.Context, r *eval.AuditReport, markdown string) error
}

// Multi fans writes out to several sinks. The first error stops the fan-out.
func Multi(sinks ...Sink) Sink {
	return multiSink(sinks)
}

type multiSink []Sink

func (m multiSink) RecordVerdict(ctx context.Context, v *eval.Verdict) error {
	for _, s := range m {
		if err := s.RecordVerdict(ctx, v); err != nil {
			return err
		}
	}
	return nil
}

func (m multiSink) RecordAudit(ctx context.Context, r *eval.AuditReport, markdown string) error {
	for _, s := range m {
		if err := s.RecordAudit(ctx, r, markdown); err != nil {
			return err
		}
	}
	return nil
}

// LogSink writes outcomes to the global zap logger.
type LogSink struct{}

func (LogSink) RecordVerdict(_ context.Context, v *eval.Verdict) error {
	fields := []zap.Field{
		zap.String("scenario", v.ScenarioID),
		zap.String("model", v.Model),
		zap.Bool("accepted", v.Accepted),
		zap.Int("attempts", len(v.Trace)),
		zap.Bool("stabilized", v.Stabilized),
	}
	if v.Accepted {
		zap.L().Info("scenario accepted", fields...)
	} else {
		zap.L().Warn("scenario exhausted all attempts", fields...)
	}
	return nil
}

func (LogSink) RecordAudit(_ context.Context, r *eval.AuditReport, _ string) error {
	for _, model := range r.Models {
		s := r.Summaries[model]
		if s == nil {
			continue
		}
		zap.L().Info("audit summary",
			zap.String("model", model),
			zap.Float64("success_rate", s.SuccessRate),
			zap.Int("successful_runs", s.SuccessfulRuns),
			zap.Int("total_runs", s.TotalRuns),
			zap.String("recommendation", s.Recommendation),
		)
	}
	return nil
}
