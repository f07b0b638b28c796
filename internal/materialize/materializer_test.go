package materialize

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
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

func createSubject(t *testing.T, st store.Store, name, company string) *model.Subject {
	t.Helper()
	subj := &model.Subject{
		UserID:    testUserID,
		Name:      name,
		Company:   company,
		CreatedAt: time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC),
	}
	require.NoError(t, st.CreateSubject(context.Background(), subj))
	return subj
}

func TestMaterialize_ProfileAndNote(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	subj := createSubject(t, st, "김민수", "한빛전자")

	note := &model.Note{
		UserID:    testUserID,
		SubjectID: subj.ID,
		Title:     "메모",
		Body:      "커피를 좋아함",
		CreatedAt: time.Date(2024, 1, 10, 14, 0, 0, 0, time.UTC),
	}
	require.NoError(t, st.CreateNote(ctx, note))

	m := New(st)
	summary, err := m.Materialize(ctx, model.Scope{UserID: testUserID})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Subjects)
	assert.Equal(t, 1, summary.Notes)
	assert.Equal(t, 2, summary.Observations)

	obs, err := st.ListObservations(ctx, testUserID)
	require.NoError(t, err)
	require.Len(t, obs, 2)
	assert.Equal(t, model.RecordProfile, obs[0].RecordType, "profile precedes note in occurrence order")
	assert.Equal(t, model.RecordNote, obs[1].RecordType)
	assert.Equal(t, note.CreatedAt, obs[1].OccurredAt.UTC())
	assert.False(t, obs[1].Processed)
}

func TestMaterialize_Idempotent(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	subj := createSubject(t, st, "김민수", "한빛전자")

	require.NoError(t, st.CreateNote(ctx, &model.Note{
		UserID:    testUserID,
		SubjectID: subj.ID,
		Body:      "본문",
		CreatedAt: time.Date(2024, 1, 10, 14, 0, 0, 0, time.UTC),
	}))

	m := New(st)
	_, err := m.Materialize(ctx, model.Scope{UserID: testUserID})
	require.NoError(t, err)
	first, err := st.ListObservations(ctx, testUserID)
	require.NoError(t, err)

	// Mark one processed, then rematerialize over unchanged records.
	require.NoError(t, st.MarkObservationProcessed(ctx, first[0].ID, time.Now().UTC()))

	_, err = m.Materialize(ctx, model.Scope{UserID: testUserID})
	require.NoError(t, err)
	second, err := st.ListObservations(ctx, testUserID)
	require.NoError(t, err)

	require.Len(t, second, len(first), "no duplicate rows")
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
		assert.Equal(t, first[i].RenderedText, second[i].RenderedText)
	}
	assert.True(t, second[0].Processed, "processed flag survives rematerialization")
}

func TestMaterialize_EventFanOut(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	// Ensure ids 3 and 7 exist by padding with filler subjects.
	var subjects []*model.Subject
	for i := 0; i < 7; i++ {
		subjects = append(subjects, createSubject(t, st, "참석자", ""))
	}
	require.Equal(t, int64(3), subjects[2].ID)
	require.Equal(t, int64(7), subjects[6].ID)

	event := &model.CalendarEvent{
		UserID:     testUserID,
		SubjectIDs: "3,7",
		Title:      "합동 미팅",
		StartsAt:   time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC),
		EndsAt:     time.Date(2024, 2, 1, 11, 0, 0, 0, time.UTC),
	}
	require.NoError(t, st.CreateEvent(ctx, event))

	m := New(st)
	_, err := m.Materialize(ctx, model.Scope{UserID: testUserID})
	require.NoError(t, err)

	obs, err := st.ListObservations(ctx, testUserID)
	require.NoError(t, err)

	var eventObs []model.Observation
	for _, o := range obs {
		if o.RecordType == model.RecordCalendarEvent {
			eventObs = append(eventObs, o)
		}
	}
	require.Len(t, eventObs, 2, "one observation per linked subject")
	assert.Equal(t, eventObs[0].NaturalKey, eventObs[1].NaturalKey, "shared natural key")
	assert.ElementsMatch(t, []int64{3, 7}, []int64{eventObs[0].SubjectID, eventObs[1].SubjectID})
}

func TestMaterialize_EventWithNoValidLinks(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	createSubject(t, st, "김민수", "")

	require.NoError(t, st.CreateEvent(ctx, &model.CalendarEvent{
		UserID:     testUserID,
		SubjectIDs: "abc,-1,",
		Title:      "잘못된 링크",
		StartsAt:   time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC),
		EndsAt:     time.Date(2024, 2, 1, 11, 0, 0, 0, time.UTC),
	}))

	m := New(st)
	_, err := m.Materialize(ctx, model.Scope{UserID: testUserID})
	require.NoError(t, err)

	obs, err := st.ListObservations(ctx, testUserID)
	require.NoError(t, err)
	for _, o := range obs {
		assert.NotEqual(t, model.RecordCalendarEvent, o.RecordType, "empty link list fans out to nothing")
	}
}

func TestMaterialize_SkipsRecordsOfMissingSubjects(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	createSubject(t, st, "김민수", "")

	require.NoError(t, st.CreateNote(ctx, &model.Note{
		UserID:    testUserID,
		SubjectID: 999,
		Body:      "고아 메모",
		CreatedAt: time.Date(2024, 1, 10, 14, 0, 0, 0, time.UTC),
	}))

	m := New(st)
	summary, err := m.Materialize(ctx, model.Scope{UserID: testUserID})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Skipped)
	obs, err := st.ListObservations(ctx, testUserID)
	require.NoError(t, err)
	for _, o := range obs {
		assert.NotEqual(t, model.RecordNote, o.RecordType)
	}
}

func TestMaterialize_ChatUsesMatcher(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	subj := createSubject(t, st, "김민수", "한빛전자")
	other := createSubject(t, st, "박서연", "서진물류")

	require.NoError(t, st.CreateChat(ctx, &model.ChatTranscript{
		UserID:     testUserID,
		Content:    "박서연 대표와 통화",
		CapturedAt: time.Date(2024, 1, 20, 12, 0, 0, 0, time.UTC),
	}))

	m := New(st)
	_, err := m.Materialize(ctx, model.Scope{UserID: testUserID})
	require.NoError(t, err)

	obs, err := st.ListObservations(ctx, testUserID)
	require.NoError(t, err)

	var chatObs []model.Observation
	for _, o := range obs {
		if o.RecordType == model.RecordChat {
			chatObs = append(chatObs, o)
		}
	}
	require.Len(t, chatObs, 1)
	assert.Equal(t, other.ID, chatObs[0].SubjectID)
	assert.NotEqual(t, subj.ID, chatObs[0].SubjectID)
}

func TestMaterialize_ScopeBySubject(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	first := createSubject(t, st, "김민수", "")
	second := createSubject(t, st, "박서연", "")

	for _, sid := range []int64{first.ID, second.ID} {
		require.NoError(t, st.CreateNote(ctx, &model.Note{
			UserID:    testUserID,
			SubjectID: sid,
			Body:      "메모",
			CreatedAt: time.Date(2024, 1, 10, 14, 0, 0, 0, time.UTC),
		}))
	}

	m := New(st)
	_, err := m.Materialize(ctx, model.Scope{UserID: testUserID, SubjectIDs: []int64{first.ID}})
	require.NoError(t, err)

	obs, err := st.ListObservations(ctx, testUserID)
	require.NoError(t, err)
	for _, o := range obs {
		assert.Equal(t, first.ID, o.SubjectID, "out-of-scope subjects untouched")
	}
}

func TestCleanupOrphans(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	subj := createSubject(t, st, "김민수", "")

	_, err := st.UpsertObservations(ctx, []model.Observation{
		{UserID: testUserID, RecordType: model.RecordNote, NaturalKey: 1, SubjectID: subj.ID, OccurredAt: time.Now().UTC(), RenderedText: "ok"},
		{UserID: testUserID, RecordType: model.RecordNote, NaturalKey: 2, SubjectID: 999, OccurredAt: time.Now().UTC(), RenderedText: "orphan"},
	})
	require.NoError(t, err)

	m := New(st)
	removed, err := m.CleanupOrphans(ctx, testUserID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	obs, err := st.ListObservations(ctx, testUserID)
	require.NoError(t, err)
	require.Len(t, obs, 1)
	assert.Equal(t, subj.ID, obs[0].SubjectID)
}
