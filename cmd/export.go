package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kindred-labs/kindred-cli/internal/export"
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export all facts to an xlsx workbook, one sheet per subject",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, false)
		if err != nil {
			return err
		}
		defer env.Close()

		total, err := export.FactsToXLSX(ctx, env.store, cfg.Pipeline.UserID, exportOut)
		if err != nil {
			return eris.Wrap(err, "export facts")
		}

		zap.L().Info("export complete", zap.String("path", exportOut), zap.Int("facts", total))
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportOut, "out", "facts.xlsx", "output workbook path")
	rootCmd.AddCommand(exportCmd)
}
