package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	seedScenarioPath string
	seedGenerate     bool
	seedHint         string
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed synthetic CRM history for the pipeline to ingest",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, false)
		if err != nil {
			return err
		}
		defer env.Close()

		sc, err := loadScenario(ctx, env, seedScenarioPath, seedHint, seedGenerate)
		if err != nil {
			return err
		}

		summary, err := env.pipe.Seed(ctx, cfg.Pipeline.UserID, sc)
		if err != nil {
			return eris.Wrap(err, "seed")
		}

		zap.L().Info("seed complete",
			zap.String("scenario", sc.Name),
			zap.Int("subjects", summary.Subjects),
			zap.Int("notes", summary.Notes),
			zap.Int("events", summary.Events),
			zap.Int("gifts", summary.Gifts),
			zap.Int("chats", summary.Chats),
		)
		return printJSON(summary)
	},
}

func init() {
	seedCmd.Flags().StringVar(&seedScenarioPath, "scenario", "", "path to a scenario YAML file")
	seedCmd.Flags().BoolVar(&seedGenerate, "generate", false, "have the oracle invent a scenario")
	seedCmd.Flags().StringVar(&seedHint, "hint", "", "theme hint for --generate")
	rootCmd.AddCommand(seedCmd)
}
