package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	runScenarioPath string
	runGenerate     bool
	runHint         string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Seed, materialize and reconcile in one pass",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, true)
		if err != nil {
			return err
		}
		defer env.Close()

		sc, err := loadScenario(ctx, env, runScenarioPath, runHint, runGenerate)
		if err != nil {
			return err
		}

		summary, err := env.pipe.RunAll(ctx, cfg.Pipeline.UserID, sc)
		if err != nil {
			return eris.Wrap(err, "run all")
		}

		zap.L().Info("pipeline run complete",
			zap.String("scenario", sc.Name),
			zap.Any("summary", summary),
		)
		return printJSON(summary)
	},
}

func init() {
	runCmd.Flags().StringVar(&runScenarioPath, "scenario", "", "path to a scenario YAML file")
	runCmd.Flags().BoolVar(&runGenerate, "generate", false, "have the oracle invent a scenario")
	runCmd.Flags().StringVar(&runHint, "hint", "", "theme hint for --generate")
	rootCmd.AddCommand(runCmd)
}
