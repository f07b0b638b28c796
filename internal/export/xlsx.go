package export

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/kindred-labs/kindred-cli/internal/model"
	"github.com/kindred-labs/kindred-cli/internal/store"
)

var factHeader = []string{"subject", "fact_type", "fact_key", "polarity", "confidence", "evidence", "extracted_at"}

// FactsToXLSX writes every subject's reconciled facts to an xlsx workbook,
// one sheet per subject. Zero-confidence (invalidated) facts are included so
// the export shows what was superseded.
func FactsToXLSX(ctx context.Context, st store.Store, userID int64, path string) (int, error) {
	subjects, err := st.ListSubjects(ctx, userID)
	if err != nil {
		return 0, eris.Wrap(err, "export: list subjects")
	}
	if len(subjects) == 0 {
		return 0, eris.New("export: no subjects to export")
	}

	f := xlsx.NewFile()
	total := 0
	for _, subj := range subjects {
		facts, err := st.ListFacts(ctx, userID, subj.ID)
		if err != nil {
			return total, eris.Wrapf(err, "export: list facts for subject %d", subj.ID)
		}

		sheet, err := f.AddSheet(sheetName(subj))
		if err != nil {
			return total, eris.Wrapf(err, "export: add sheet for subject %d", subj.ID)
		}

		header := sheet.AddRow()
		for _, h := range factHeader {
			header.AddCell().SetString(h)
		}
		for _, fact := range facts {
			addFactRow(sheet, subj, fact)
		}
		total += len(facts)
	}

	if err := f.Save(path); err != nil {
		return total, eris.Wrapf(err, "export: save %s", path)
	}

	zap.L().Info("export: workbook written",
		zap.String("path", path),
		zap.Int("subjects", len(subjects)),
		zap.Int("facts", total),
	)
	return total, nil
}

func addFactRow(sheet *xlsx.Sheet, subj model.Subject, fact model.Fact) {
	row := sheet.AddRow()
	row.AddCell().SetString(subj.Name)
	row.AddCell().SetString(string(fact.Type))
	row.AddCell().SetString(fact.Key)
	row.AddCell().SetInt(fact.Polarity)
	row.AddCell().SetFloat(fact.Confidence)
	row.AddCell().SetString(fact.Evidence)
	row.AddCell().SetString(fact.ExtractedAt.UTC().Format(time.RFC3339))
}

// sheetName builds a sheet title unique per subject within the 31-character
// limit xlsx imposes.
func sheetName(subj model.Subject) string {
	name := fmt.Sprintf("%d %s", subj.ID, subj.Name)
	if len([]rune(name)) > 31 {
		name = string([]rune(name)[:31])
	}
	return name
}
