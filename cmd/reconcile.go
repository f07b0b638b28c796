package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var reconcileSubjects []int64

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Extract facts from unprocessed observations and merge them",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, true)
		if err != nil {
			return err
		}
		defer env.Close()

		summary, err := env.pipe.Reconcile(ctx, buildScope(reconcileSubjects))
		if err != nil {
			return eris.Wrap(err, "reconcile")
		}

		zap.L().Info("reconcile complete",
			zap.Int("processed", summary.Processed),
			zap.Int("failed", summary.Failed),
			zap.Int("remaining", summary.Remaining),
			zap.Int("saved", summary.Saved()),
			zap.Int("skipped", summary.Skipped),
			zap.Int("invalidated", summary.Invalidated),
		)
		return printJSON(summary)
	},
}

func init() {
	reconcileCmd.Flags().Int64SliceVar(&reconcileSubjects, "subjects", nil, "limit to these subject ids")
	rootCmd.AddCommand(reconcileCmd)
}
