package export

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/kindred-labs/kindred-cli/internal/model"
	"github.com/kindred-labs/kindred-cli/internal/store"
)

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "export.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func seedFact(t *testing.T, st store.Store, subjectID, sourceID int64, factType model.FactType, key string, polarity int, confidence float64) {
	t.Helper()
	require.NoError(t, st.InsertFact(context.Background(), &model.Fact{
		UserID:        1,
		SubjectID:     subjectID,
		Type:          factType,
		Key:           key,
		Polarity:      polarity,
		Confidence:    confidence,
		Evidence:      "증거: " + key,
		SourceEventID: sourceID,
		ExtractedAt:   time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC),
	}))
}

func seedObservation(t *testing.T, st store.Store, subjectID int64) int64 {
	t.Helper()
	ctx := context.Background()
	_, err := st.UpsertObservations(ctx, []model.Observation{{
		UserID:       1,
		RecordType:   model.RecordNote,
		NaturalKey:   subjectID,
		SubjectID:    subjectID,
		OccurredAt:   time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC),
		RenderedText: "source",
	}})
	require.NoError(t, err)
	obs, err := st.ListObservations(ctx, 1)
	require.NoError(t, err)
	for _, o := range obs {
		if o.SubjectID == subjectID {
			return o.ID
		}
	}
	t.Fatalf("observation for subject %d not found", subjectID)
	return 0
}

func TestFactsToXLSX(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	kim := &model.Subject{UserID: 1, Name: "김민수", Company: "한빛전자"}
	require.NoError(t, st.CreateSubject(ctx, kim))
	park := &model.Subject{UserID: 1, Name: "박서연", Company: "서진물류"}
	require.NoError(t, st.CreateSubject(ctx, park))

	kimSource := seedObservation(t, st, kim.ID)
	parkSource := seedObservation(t, st, park.ID)

	seedFact(t, st, kim.ID, kimSource, model.FactPreference, "coffee", 1, 0.9)
	seedFact(t, st, kim.ID, kimSource, model.FactDislike, "golf", -1, 0.7)
	// Invalidated facts stay in the export with confidence zero.
	seedFact(t, st, park.ID, parkSource, model.FactRisk, "seafood allergy", -1, 0)

	path := filepath.Join(t.TempDir(), "facts.xlsx")
	n, err := FactsToXLSX(ctx, st, 1, path)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	require.Len(t, f.Sheets, 2)

	kimSheet := f.Sheets[0]
	assert.Equal(t, sheetName(*kim), kimSheet.Name)
	require.Len(t, kimSheet.Rows, 3)

	header := kimSheet.Rows[0]
	require.Len(t, header.Cells, len(factHeader))
	for i, want := range factHeader {
		assert.Equal(t, want, header.Cells[i].String())
	}

	// Facts are listed in store order (type, then key).
	row := kimSheet.Rows[1]
	assert.Equal(t, "김민수", row.Cells[0].String())
	assert.Equal(t, "DISLIKE", row.Cells[1].String())
	assert.Equal(t, "golf", row.Cells[2].String())
	conf, err := row.Cells[4].Float()
	require.NoError(t, err)
	assert.InDelta(t, 0.7, conf, 1e-9)
	assert.Equal(t, "2024-01-15T10:00:00Z", row.Cells[6].String())

	row = kimSheet.Rows[2]
	assert.Equal(t, "PREFERENCE", row.Cells[1].String())
	assert.Equal(t, "coffee", row.Cells[2].String())

	parkSheet := f.Sheets[1]
	require.Len(t, parkSheet.Rows, 2)
	conf, err = parkSheet.Rows[1].Cells[4].Float()
	require.NoError(t, err)
	assert.Zero(t, conf)
}

func TestFactsToXLSX_NoSubjects(t *testing.T) {
	st := newTestStore(t)

	path := filepath.Join(t.TempDir(), "facts.xlsx")
	_, err := FactsToXLSX(context.Background(), st, 1, path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no subjects")
}

func TestFactsToXLSX_SubjectWithoutFacts(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	subj := &model.Subject{UserID: 1, Name: "김민수"}
	require.NoError(t, st.CreateSubject(ctx, subj))

	path := filepath.Join(t.TempDir(), "facts.xlsx")
	n, err := FactsToXLSX(ctx, st, 1, path)
	require.NoError(t, err)
	assert.Zero(t, n)

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	require.Len(t, f.Sheets, 1)
	// Header only.
	assert.Len(t, f.Sheets[0].Rows, 1)
}

func TestSheetName_Truncation(t *testing.T) {
	subj := model.Subject{ID: 12, Name: strings.Repeat("김", 40)}
	name := sheetName(subj)
	assert.Len(t, []rune(name), 31)
	assert.True(t, strings.HasPrefix(name, "12 김김"))
}
