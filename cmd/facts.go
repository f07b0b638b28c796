package main

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/kindred-labs/kindred-cli/internal/model"
	"github.com/kindred-labs/kindred-cli/internal/store"
)

var factsSubject int64

// factsOutput pairs the subject with its reconciled facts so the JSON output
// is self-describing.
type factsOutput struct {
	Subject *model.Subject `json:"subject"`
	Facts   []model.Fact   `json:"facts"`
}

var factsCmd = &cobra.Command{
	Use:   "facts",
	Short: "List reconciled facts for a subject",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, false)
		if err != nil {
			return err
		}
		defer env.Close()

		out, err := subjectFacts(ctx, env.store, cfg.Pipeline.UserID, factsSubject)
		if err != nil {
			return err
		}
		return printJSON(out)
	},
}

// subjectFacts resolves the subject and its facts; an unknown subject id is an
// error rather than an empty list.
func subjectFacts(ctx context.Context, st store.Store, userID, subjectID int64) (*factsOutput, error) {
	subj, err := st.GetSubject(ctx, userID, subjectID)
	if err != nil {
		return nil, eris.Wrap(err, "get subject")
	}
	if subj == nil {
		return nil, eris.Errorf("subject %d not found", subjectID)
	}

	facts, err := st.ListFacts(ctx, userID, subjectID)
	if err != nil {
		return nil, eris.Wrap(err, "list facts")
	}
	return &factsOutput{Subject: subj, Facts: facts}, nil
}

func init() {
	factsCmd.Flags().Int64Var(&factsSubject, "subject", 0, "subject id (required)")
	_ = factsCmd.MarkFlagRequired("subject")
	rootCmd.AddCommand(factsCmd)
}
