package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	materializeSubjects []int64
	materializeCleanup  bool
)

var materializeCmd = &cobra.Command{
	Use:   "materialize",
	Short: "Convert raw records into observations",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, false)
		if err != nil {
			return err
		}
		defer env.Close()

		summary, err := env.pipe.Materialize(ctx, buildScope(materializeSubjects))
		if err != nil {
			return eris.Wrap(err, "materialize")
		}

		zap.L().Info("materialize complete",
			zap.Int("observations", summary.Observations),
			zap.Int("skipped", summary.Skipped),
		)

		if materializeCleanup {
			removed, err := env.pipe.CleanupOrphans(ctx, cfg.Pipeline.UserID)
			if err != nil {
				return eris.Wrap(err, "cleanup orphans")
			}
			zap.L().Info("orphan cleanup complete", zap.Int64("removed", removed))
		}

		return printJSON(summary)
	},
}

func init() {
	materializeCmd.Flags().Int64SliceVar(&materializeSubjects, "subjects", nil, "limit to these subject ids")
	materializeCmd.Flags().BoolVar(&materializeCleanup, "cleanup", false, "remove observations whose raw record or subject is gone")
	rootCmd.AddCommand(materializeCmd)
}
