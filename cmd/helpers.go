package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/model-eval/internal/eval"
	"github.com/sells-group/model-eval/internal/report"
	"github.com/sells-group/model-eval/internal/scenario"
)

// loadTasks reads the scenario definition and renders it into tasks.
func loadTasks() ([]eval.Task, error) {
	def, err := scenario.Load(cfg.Scenarios.Path)
	if err != nil {
		return nil, eris.Wrapf(err, "load scenarios from %s", cfg.Scenarios.Path)
	}
	tasks, err := def.Tasks(cfg.Scenarios.Prompt)
	if err != nil {
		return nil, eris.Wrap(err, "render scenario tasks")
	}
	zap.L().Info("scenarios loaded",
		zap.String("path", cfg.Scenarios.Path),
		zap.Int("tasks", len(tasks)),
	)
	return tasks, nil
}

// initSinks builds the result sinks: always the log sink, plus the SQLite
// archive when a store path is configured. The returned closer is non-nil
// only when a store was opened.
func initSinks(ctx context.Context) (report.Sink, func() error, error) {
	if cfg.Store.Path == "" {
		return report.LogSink{}, nil, nil
	}

	st, err := report.NewStore(cfg.Store.Path)
	if err != nil {
		return nil, nil, eris.Wrap(err, "open result store")
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, nil, eris.Wrap(err, "migrate result store")
	}
	return report.Multi(report.LogSink{}, st), st.Close, nil
}
