package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kindred-labs/kindred-cli/internal/model"
)

func TestSubjectFacts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	subj := &model.Subject{UserID: 1, Name: "김민수", Company: "한빛전자"}
	require.NoError(t, env.store.CreateSubject(ctx, subj))

	_, err := env.store.UpsertObservations(ctx, []model.Observation{{
		UserID:       1,
		RecordType:   model.RecordNote,
		NaturalKey:   1,
		SubjectID:    subj.ID,
		OccurredAt:   time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC),
		RenderedText: "커피를 좋아함",
	}})
	require.NoError(t, err)
	obs, err := env.store.ListObservations(ctx, 1)
	require.NoError(t, err)
	require.Len(t, obs, 1)

	require.NoError(t, env.store.InsertFact(ctx, &model.Fact{
		UserID:        1,
		SubjectID:     subj.ID,
		Type:          model.FactPreference,
		Key:           "coffee",
		Polarity:      1,
		Confidence:    0.9,
		Evidence:      "커피를 좋아함",
		SourceEventID: obs[0].ID,
		ExtractedAt:   time.Date(2024, 1, 10, 10, 0, 0, 0, time.UTC),
	}))

	out, err := subjectFacts(ctx, env.store, 1, subj.ID)
	require.NoError(t, err)
	require.NotNil(t, out.Subject)
	assert.Equal(t, "김민수", out.Subject.Name)
	require.Len(t, out.Facts, 1)
	assert.Equal(t, "coffee", out.Facts[0].Key)
}

func TestSubjectFacts_UnknownSubject(t *testing.T) {
	env := newTestEnv(t)

	_, err := subjectFacts(context.Background(), env.store, 1, 42)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "subject 42 not found")
}
