package main

import (
	"fmt"
	"slices"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/model-eval/internal/backend"
	"github.com/sells-group/model-eval/internal/eval"
	"github.com/sells-group/model-eval/internal/report"
)

var auditIterations int

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Statistically audit generator model quality",
	Long:  "Samples every scenario on every model without retries, classifies failures, and reports per-model success rates with replacement recommendations.",
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

		models := cfg.Eval.GeneratorModels
		probeList := append(slices.Clone(models), cfg.Eval.JudgeModel)
		missing := eval.MissingModels(ctx, b.Prober, probeList)
		if slices.Contains(missing, cfg.Eval.JudgeModel) {
			zap.L().Warn("judge model unavailable, skipping audit",
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
			zap.L().Warn("no generator models available, nothing to audit")
			return nil
		}

		iterations := cfg.Audit.Iterations
		if auditIterations > 0 {
			iterations = auditIterations
		}

		auditor := eval.NewAuditor(b.Generator, b.Judge, eval.AuditConfig{
			JudgeModel: cfg.Eval.JudgeModel,
			Iterations: iterations,
			Options: eval.AttemptConfig{
				MaxTokens:   cfg.Audit.MaxTokens,
				Temperature: cfg.Audit.Temperature,
			},
			MinLength:      cfg.Eval.MinLength,
			MaxLength:      cfg.Eval.MaxLength,
			MinCoverage:    cfg.Audit.MinCoverage,
			MinSuccessRate: cfg.Audit.MinSuccessRate,
		})

		rep, err := auditor.Audit(ctx, tasks, available)
		if err != nil {
			return eris.Wrap(err, "audit")
		}

		markdown := report.Markdown(rep)
		fmt.Println(markdown)

		sink, closeStore, err := initSinks(ctx)
		if err != nil {
			return err
		}
		if closeStore != nil {
			defer closeStore() //nolint:errcheck
		}
		if err := sink.RecordAudit(ctx, rep, markdown); err != nil {
			return err
		}

		// Low success rates are an advisory, never a failure.
		if caution := report.Cautionary(rep, cfg.Audit.MinSuccessRate); caution != "" {
			zap.L().Warn("models trending low", zap.String("advisory", caution))
		}

		// Only a model with zero passing runs fails the audit.
		if failing := rep.FailingModels(); len(failing) > 0 {
			return eris.Errorf("models with no passing runs: %s", strings.Join(failing, ", "))
		}
		return nil
	},
}

func init() {
	auditCmd.Flags().IntVar(&auditIterations, "iterations", 0, "iterations per scenario (default from config)")
	rootCmd.AddCommand(auditCmd)
}
