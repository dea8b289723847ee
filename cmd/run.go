package main

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/model-eval/internal/backend"
	"github.com/sells-group/model-eval/internal/eval"
)

var runModels []string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run every scenario against the generator models",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		tasks, err := loadTasks()
		if err != nil {
			return err
		}

		b, err := backend.New(cfg)
		if err != nil {
			return err
		}

		models := runModels
		if len(models) == 0 {
			models = cfg.Eval.GeneratorModels
		}

		// Missing models are skipped, not failed: a half-provisioned Ollama
		// install should still evaluate the models it has.
		probeList := append(slices.Clone(models), cfg.Eval.JudgeModel)
		missing := eval.MissingModels(ctx, b.Prober, probeList)
		if slices.Contains(missing, cfg.Eval.JudgeModel) {
			zap.L().Warn("judge model unavailable, skipping run",
				zap.String("model", cfg.Eval.JudgeModel))
			return nil
		}
		available := models[:0:0]
		for _, m := range models {
			if slices.Contains(missing, m) {
				zap.L().Warn("skipping unavailable model", zap.String("model", m))
				continue
			}
			available = append(available, m)
		}
		if len(available) == 0 {
			zap.L().Warn("no generator models available, nothing to do")
			return nil
		}

		sink, closeStore, err := initSinks(ctx)
		if err != nil {
			return err
		}
		if closeStore != nil {
			defer closeStore() //nolint:errcheck
		}

		ctrl := eval.NewController(b.Generator, b.Judge, eval.ControllerConfig{
			JudgeModel: cfg.Eval.JudgeModel,
			Schedule:   cfg.Eval.Schedule(),
			Live:       !b.Offline,
			MinLength:  cfg.Eval.MinLength,
			MaxLength:  cfg.Eval.MaxLength,
		})

		var verdicts []*eval.Verdict
		var rejected []string
		for _, task := range tasks {
			for _, model := range available {
				v, err := ctrl.Run(ctx, task, model)
				if err != nil {
					return eris.Wrapf(err, "run %s on %s", task.ScenarioID, model)
				}
				if err := sink.RecordVerdict(ctx, v); err != nil {
					return err
				}
				verdicts = append(verdicts, v)
				if !v.Accepted {
					rejected = append(rejected, fmt.Sprintf("%s/%s", task.ScenarioID, model))
				}
			}
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(verdicts); err != nil {
			return eris.Wrap(err, "encode verdicts")
		}

		if len(rejected) > 0 {
			return eris.Errorf("scenarios exhausted all attempts: %s", strings.Join(rejected, ", "))
		}
		return nil
	},
}

func init() {
	runCmd.Flags().StringSliceVar(&runModels, "model", nil, "generator models to run (default from config)")
	rootCmd.AddCommand(runCmd)
}
