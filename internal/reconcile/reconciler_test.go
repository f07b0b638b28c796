package reconcile

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/kindred-labs/kindred-cli/internal/model"
	"github.com/kindred-labs/kindred-cli/internal/store"
)

const testUserID int64 = 1

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

// seedObservation inserts one unprocessed observation and returns it with its
// assigned id.
func seedObservation(t *testing.T, st store.Store, subjectID int64, naturalKey int64, text string, at time.Time) model.Observation {
	t.Helper()
	ctx := context.Background()
	_, err := st.UpsertObservations(ctx, []model.Observation{{
		UserID:       testUserID,
		RecordType:   model.RecordNote,
		NaturalKey:   naturalKey,
		SubjectID:    subjectID,
		OccurredAt:   at,
		RenderedText: text,
	}})
	require.NoError(t, err)

	obs, err := st.ListObservations(ctx, testUserID)
	require.NoError(t, err)
	for _, o := range obs {
		if o.NaturalKey == naturalKey && o.SubjectID == subjectID {
			return o
		}
	}
	t.Fatalf("observation %d/%d not found after upsert", naturalKey, subjectID)
	return model.Observation{}
}

func candidate(factType, key string, confidence float64) model.CandidateFact {
	return model.CandidateFact{
		FactType:   factType,
		FactKey:    key,
		Confidence: confidence,
		Evidence:   "evidence for " + key,
	}
}

func TestReconcile_InsertsNewFacts(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	obs := seedObservation(t, st, 3, 1, "커피를 좋아함", time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC))

	oracle := &mockOracle{}
	oracle.On("ExtractFacts", mock.Anything, obs.RenderedText, mock.Anything).
		Return([]model.CandidateFact{candidate("PREFERENCE", "coffee", 0.9)}, nil)

	r := New(st, oracle, 0, 0)
	summary, err := r.Reconcile(ctx, model.Scope{UserID: testUserID})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, 1, summary.Inserted)
	assert.Equal(t, 0, summary.Remaining)

	fact, err := st.GetFact(ctx, testUserID, 3, model.FactPreference, "coffee")
	require.NoError(t, err)
	require.NotNil(t, fact)
	assert.Equal(t, 1, fact.Polarity, "preference defaults positive")
	assert.Equal(t, 0.9, fact.Confidence)
	assert.Equal(t, obs.ID, fact.SourceEventID)

	remaining, err := st.CountUnprocessedObservations(ctx, model.Scope{UserID: testUserID})
	require.NoError(t, err)
	assert.Zero(t, remaining)
}

func TestReconcile_ConfidenceMonotonicMerge(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)

	first := seedObservation(t, st, 3, 1, "강한 신호", base)
	require.NoError(t, st.InsertFact(ctx, &model.Fact{
		UserID: testUserID, SubjectID: 3,
		Type: model.FactPreference, Key: "coffee",
		Polarity: 1, Confidence: 0.8, Evidence: "원래 증거",
		SourceEventID: first.ID, ExtractedAt: base,
	}))
	require.NoError(t, st.MarkObservationProcessed(ctx, first.ID, base))

	weaker := seedObservation(t, st, 3, 2, "약한 신호", base.Add(time.Hour))
	stronger := seedObservation(t, st, 3, 3, "더 강한 신호", base.Add(2*time.Hour))

	oracle := &mockOracle{}
	oracle.On("ExtractFacts", mock.Anything, weaker.RenderedText, mock.Anything).
		Return([]model.CandidateFact{candidate("PREFERENCE", "coffee", 0.6)}, nil)
	oracle.On("ExtractFacts", mock.Anything, stronger.RenderedText, mock.Anything).
		Return([]model.CandidateFact{{
			FactType: "PREFERENCE", FactKey: "coffee",
			Polarity: -1, Confidence: 0.9, Evidence: "새 증거",
		}}, nil)

	r := New(st, oracle, 0, 0)
	summary, err := r.Reconcile(ctx, model.Scope{UserID: testUserID})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Skipped, "weaker candidate never overwrites")
	assert.Equal(t, 1, summary.Updated)

	fact, err := st.GetFact(ctx, testUserID, 3, model.FactPreference, "coffee")
	require.NoError(t, err)
	require.NotNil(t, fact)
	assert.Equal(t, 0.9, fact.Confidence)
	assert.Equal(t, -1, fact.Polarity, "stronger candidate overwrites polarity")
	assert.Equal(t, "새 증거", fact.Evidence)
	assert.Equal(t, stronger.ID, fact.SourceEventID)
}

func TestReconcile_TieWinsForNewerObservation(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)

	obs := seedObservation(t, st, 3, 1, "동점 신호", base)
	require.NoError(t, st.InsertFact(ctx, &model.Fact{
		UserID: testUserID, SubjectID: 3,
		Type: model.FactPreference, Key: "coffee",
		Polarity: 1, Confidence: 0.8, Evidence: "이전 증거",
		SourceEventID: obs.ID, ExtractedAt: base,
	}))

	oracle := &mockOracle{}
	oracle.On("ExtractFacts", mock.Anything, mock.Anything, mock.Anything).
		Return([]model.CandidateFact{{
			FactType: "PREFERENCE", FactKey: "coffee",
			Polarity: 1, Confidence: 0.8, Evidence: "새 증거",
		}}, nil)

	r := New(st, oracle, 0, 0)
	summary, err := r.Reconcile(ctx, model.Scope{UserID: testUserID})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Updated, "equal confidence refreshes the fact")
	fact, err := st.GetFact(ctx, testUserID, 3, model.FactPreference, "coffee")
	require.NoError(t, err)
	assert.Equal(t, "새 증거", fact.Evidence)
}

func TestReconcile_Invalidation(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)

	obs := seedObservation(t, st, 3, 1, "이제 커피를 싫어함", base)
	require.NoError(t, st.InsertFact(ctx, &model.Fact{
		UserID: testUserID, SubjectID: 3,
		Type: model.FactPreference, Key: "coffee",
		Polarity: 1, Confidence: 0.9, Evidence: "옛 증거",
		SourceEventID: obs.ID, ExtractedAt: base,
	}))

	oracle := &mockOracle{}
	oracle.On("ExtractFacts", mock.Anything, mock.Anything, mock.Anything).
		Return([]model.CandidateFact{
			{Action: model.ActionInvalidate, InvalidateKey: "coffee"},
			{FactType: "DISLIKE", FactKey: "coffee", Polarity: -1, Confidence: 0.85, Evidence: "커피를 끊었다고 함"},
		}, nil)

	r := New(st, oracle, 0, 0)
	summary, err := r.Reconcile(ctx, model.Scope{UserID: testUserID})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Invalidated)
	assert.Equal(t, 1, summary.Inserted)

	old, err := st.GetFact(ctx, testUserID, 3, model.FactPreference, "coffee")
	require.NoError(t, err)
	require.NotNil(t, old, "invalidation keeps the row")
	assert.Zero(t, old.Confidence)

	dislike, err := st.GetFact(ctx, testUserID, 3, model.FactDislike, "coffee")
	require.NoError(t, err)
	require.NotNil(t, dislike)
	assert.Equal(t, 0.85, dislike.Confidence)
}

func TestReconcile_BatchDedup(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	seedObservation(t, st, 3, 1, "차를 좋아함", time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC))

	oracle := &mockOracle{}
	oracle.On("ExtractFacts", mock.Anything, mock.Anything, mock.Anything).
		Return([]model.CandidateFact{
			candidate("PREFERENCE", "tea", 0.7),
			candidate("PREFERENCE", "TEA", 0.95),
		}, nil)

	r := New(st, oracle, 0, 0)
	summary, err := r.Reconcile(ctx, model.Scope{UserID: testUserID})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Inserted, "case-insensitive duplicates collapse")

	facts, err := st.ListFacts(ctx, testUserID, 3)
	require.NoError(t, err)
	require.Len(t, facts, 1)
	assert.Equal(t, 0.95, facts[0].Confidence, "highest-confidence survivor wins")
}

func TestReconcile_EmptyExtractionMarksProcessed(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	seedObservation(t, st, 3, 1, "사실 없음", time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC))

	oracle := &mockOracle{}
	oracle.On("ExtractFacts", mock.Anything, mock.Anything, mock.Anything).
		Return([]model.CandidateFact{}, nil)

	r := New(st, oracle, 0, 0)
	summary, err := r.Reconcile(ctx, model.Scope{UserID: testUserID})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, 0, summary.Remaining)

	facts, err := st.ListFacts(ctx, testUserID, 3)
	require.NoError(t, err)
	assert.Empty(t, facts)
}

func TestReconcile_ExtractionErrorLeavesUnprocessed(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
	failing := seedObservation(t, st, 3, 1, "오류 유발", base)
	healthy := seedObservation(t, st, 3, 2, "정상 처리", base.Add(time.Hour))

	oracle := &mockOracle{}
	oracle.On("ExtractFacts", mock.Anything, failing.RenderedText, mock.Anything).
		Return(nil, eris.New("oracle exploded"))
	oracle.On("ExtractFacts", mock.Anything, healthy.RenderedText, mock.Anything).
		Return([]model.CandidateFact{}, nil)

	r := New(st, oracle, 0, 0)
	summary, err := r.Reconcile(ctx, model.Scope{UserID: testUserID})
	require.NoError(t, err, "one extraction error never fails the batch")

	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, 1, summary.Remaining, "failed observation stays for retry")

	unprocessed, err := st.ListUnprocessedObservations(ctx, model.Scope{UserID: testUserID}, 0)
	require.NoError(t, err)
	require.Len(t, unprocessed, 1)
	assert.Equal(t, failing.ID, unprocessed[0].ID)
}

func TestReconcile_InvalidCandidatesDiscarded(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	seedObservation(t, st, 3, 1, "혼합 배치", time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC))

	oracle := &mockOracle{}
	oracle.On("ExtractFacts", mock.Anything, mock.Anything, mock.Anything).
		Return([]model.CandidateFact{
			candidate("UNKNOWN", "x", 0.9),
			candidate("PREFERENCE", "coffee", 0.9),
		}, nil)

	r := New(st, oracle, 0, 0)
	summary, err := r.Reconcile(ctx, model.Scope{UserID: testUserID})
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Extracted)
	assert.Equal(t, 1, summary.Invalid)
	assert.Equal(t, 1, summary.Inserted)
	assert.Equal(t, 1, summary.Processed, "invalid candidates never block processing")
}

func TestReconcile_ProcessesOldestFirstWithKnownFacts(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)

	// Inserted out of order; reconciliation must follow occurredAt.
	newer := seedObservation(t, st, 3, 2, "나중 기록", base.Add(time.Hour))
	older := seedObservation(t, st, 3, 1, "먼저 기록", base)

	var order []string
	oracle := &mockOracle{}
	oracle.On("ExtractFacts", mock.Anything, older.RenderedText, mock.Anything).
		Run(func(args mock.Arguments) {
			order = append(order, "older")
			assert.Empty(t, args.Get(2), "no facts known yet")
		}).
		Return([]model.CandidateFact{candidate("PREFERENCE", "coffee", 0.7)}, nil)
	oracle.On("ExtractFacts", mock.Anything, newer.RenderedText, mock.Anything).
		Run(func(args mock.Arguments) {
			order = append(order, "newer")
			known := args.Get(2).([]model.Fact)
			require.Len(t, known, 1, "later observation sees earlier merge")
			assert.Equal(t, "coffee", known[0].Key)
		}).
		Return([]model.CandidateFact{}, nil)

	r := New(st, oracle, 0, 0)
	_, err := r.Reconcile(ctx, model.Scope{UserID: testUserID})
	require.NoError(t, err)

	assert.Equal(t, []string{"older", "newer"}, order)
}

func TestReconcile_CancelledBetweenObservations(t *testing.T) {
	st := newTestStore(t)
	base := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
	first := seedObservation(t, st, 3, 1, "첫 번째", base)
	seedObservation(t, st, 3, 2, "두 번째", base.Add(time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	oracle := &mockOracle{}
	oracle.On("ExtractFacts", mock.Anything, first.RenderedText, mock.Anything).
		Run(func(mock.Arguments) { cancel() }).
		Return([]model.CandidateFact{}, nil)

	r := New(st, oracle, 0, 0)
	summary, err := r.Reconcile(ctx, model.Scope{UserID: testUserID})

	require.Error(t, err)
	assert.Equal(t, 1, summary.Failed, "interrupted observation stays unprocessed")
	assert.Equal(t, 2, summary.Remaining)
	// no further observations after cancellation
	oracle.AssertNumberOfCalls(t, "ExtractFacts", 1)
}

func TestReconcile_BatchLimit(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
	for i := int64(1); i <= 5; i++ {
		seedObservation(t, st, 3, i, "기록", base.Add(time.Duration(i)*time.Hour))
	}

	oracle := &mockOracle{}
	oracle.On("ExtractFacts", mock.Anything, mock.Anything, mock.Anything).
		Return([]model.CandidateFact{}, nil)

	r := New(st, oracle, 0, 2)
	summary, err := r.Reconcile(ctx, model.Scope{UserID: testUserID})
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Processed)
	assert.Equal(t, 3, summary.Remaining)
}

func TestReconcile_ScopeBySubject(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
	inScope := seedObservation(t, st, 3, 1, "범위 안", base)
	seedObservation(t, st, 7, 2, "범위 밖", base.Add(time.Hour))

	oracle := &mockOracle{}
	oracle.On("ExtractFacts", mock.Anything, inScope.RenderedText, mock.Anything).
		Return([]model.CandidateFact{}, nil)

	r := New(st, oracle, 0, 0)
	summary, err := r.Reconcile(ctx, model.Scope{UserID: testUserID, SubjectIDs: []int64{3}})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, 0, summary.Remaining, "remaining counts within the scope")
	oracle.AssertNumberOfCalls(t, "ExtractFacts", 1)
}

func TestDedupe(t *testing.T) {
	out := dedupe([]model.SanitizedFact{
		{Type: model.FactPreference, Key: "tea", Confidence: 0.7},
		{Type: model.FactPreference, Key: "TEA", Confidence: 0.95},
		{Type: model.FactDislike, Key: "tea", Confidence: 0.5},
	})

	require.Len(t, out, 2, "same key under different types stays separate")
	assert.Equal(t, 0.95, out[0].Confidence)
	assert.Equal(t, "TEA", out[0].Key, "highest-confidence survivor keeps its casing")
	assert.Equal(t, model.FactDislike, out[1].Type)
}
