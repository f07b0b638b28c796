package store

import (
	"context"
	"time"

	"github.com/kindred-labs/kindred-cli/internal/model"
)

// Store defines the persistence interface for the reconciliation pipeline.
//
// Ownership rules: the materializer is the only writer of observation rows,
// except the processed flag, which belongs to the reconciler; the reconciler
// is the only writer of fact rows.
type Store interface {
	// Subjects
	CreateSubject(ctx context.Context, s *model.Subject) error
	GetSubject(ctx context.Context, userID, subjectID int64) (*model.Subject, error)
	ListSubjects(ctx context.Context, userID int64) ([]model.Subject, error)

	// Raw records
	CreateNote(ctx context.Context, n *model.Note) error
	CreateEvent(ctx context.Context, e *model.CalendarEvent) error
	CreateGift(ctx context.Context, g *model.GiftRecord) error
	CreateChat(ctx context.Context, c *model.ChatTranscript) error
	ListNotes(ctx context.Context, scope model.Scope) ([]model.Note, error)
	ListEvents(ctx context.Context, scope model.Scope) ([]model.CalendarEvent, error)
	ListGifts(ctx context.Context, scope model.Scope) ([]model.GiftRecord, error)
	ListChats(ctx context.Context, scope model.Scope) ([]model.ChatTranscript, error)

	// Observations. UpsertObservations applies the whole batch in one
	// transaction; on conflict with the identity tuple it refreshes
	// rendered_text and occurred_at and never touches processed.
	UpsertObservations(ctx context.Context, obs []model.Observation) (int, error)
	ListObservations(ctx context.Context, userID int64) ([]model.Observation, error)
	ListUnprocessedObservations(ctx context.Context, scope model.Scope, limit int) ([]model.Observation, error)
	CountUnprocessedObservations(ctx context.Context, scope model.Scope) (int, error)
	MarkObservationProcessed(ctx context.Context, observationID int64, at time.Time) error
	DeleteOrphanObservations(ctx context.Context, userID int64) (int64, error)

	// Facts. GetFact returns (nil, nil) when no row matches.
	ListFacts(ctx context.Context, userID, subjectID int64) ([]model.Fact, error)
	GetFact(ctx context.Context, userID, subjectID int64, factType model.FactType, key string) (*model.Fact, error)
	InsertFact(ctx context.Context, f *model.Fact) error
	UpdateFact(ctx context.Context, f *model.Fact) error
	InvalidateFacts(ctx context.Context, userID, subjectID int64, key string) (int64, error)

	// Runs
	CreateRun(ctx context.Context, userID int64, kind model.RunKind) (*model.PipelineRun, error)
	CompleteRun(ctx context.Context, runID string, summary model.RunSummary) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
