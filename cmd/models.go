package main

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/sells-group/model-eval/internal/backend"
	"github.com/sells-group/model-eval/internal/eval"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Show availability of the configured models",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		b, err := backend.New(cfg)
		if err != nil {
			return err
		}

		models := append([]string{}, cfg.Eval.GeneratorModels...)
		models = append(models, cfg.Eval.JudgeModel)

		missing := eval.MissingModels(ctx, b.Prober, models)
		for _, m := range models {
			status := "available"
			if slices.Contains(missing, m) {
				status = "missing"
			}
			role := "generator"
			if m == cfg.Eval.JudgeModel {
				role = "judge"
			}
			fmt.Printf("%-30s %-10s %s\n", m, role, status)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}
