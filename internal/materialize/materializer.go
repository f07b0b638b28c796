package materialize

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/kindred-labs/kindred-cli/internal/model"
	"github.com/kindred-labs/kindred-cli/internal/store"
)

// Materializer scans raw records and upserts one observation per
// (record, linked subject) pair. Re-running it over unchanged records is a
// no-op: the upsert is keyed on the identity tuple, rendering is
// deterministic, and the processed flag is never touched.
type Materializer struct {
	store store.Store
	match SubjectMatcher
}

// Option configures a Materializer.
type Option func(*Materializer)

// WithSubjectMatcher overrides the chat-to-subject inference strategy.
func WithSubjectMatcher(m SubjectMatcher) Option {
	return func(mat *Materializer) { mat.match = m }
}

// New creates a Materializer with the default chat matching heuristic.
func New(st store.Store, opts ...Option) *Materializer {
	m := &Materializer{store: st, match: MatchByNameOrCompany}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Materialize scans every raw record variant in scope and upserts the
// resulting observations in one all-or-nothing store transaction.
func (m *Materializer) Materialize(ctx context.Context, scope model.Scope) (*model.MaterializeSummary, error) {
	log := zap.L().With(zap.Int64("user_id", scope.UserID))

	subjects, err := m.store.ListSubjects(ctx, scope.UserID)
	if err != nil {
		return nil, eris.Wrap(err, "materialize: list subjects")
	}

	summary := &model.MaterializeSummary{}
	if len(subjects) == 0 {
		log.Info("materialize: no subjects, nothing to do")
		return summary, nil
	}

	subjectByID := make(map[int64]*model.Subject, len(subjects))
	for i := range subjects {
		subjectByID[subjects[i].ID] = &subjects[i]
	}

	var obs []model.Observation

	// Profiles: the subject row is itself a raw record.
	for i := range subjects {
		s := &subjects[i]
		if !scope.IncludesSubject(s.ID) {
			continue
		}
		if scope.CreatedAfter != nil && !s.CreatedAt.After(*scope.CreatedAfter) {
			continue
		}
		summary.Subjects++
		obs = append(obs, model.Observation{
			UserID:       scope.UserID,
			RecordType:   model.RecordProfile,
			NaturalKey:   s.ID,
			SubjectID:    s.ID,
			OccurredAt:   s.CreatedAt,
			RenderedText: RenderProfile(*s),
		})
	}

	// Notes.
	notes, err := m.store.ListNotes(ctx, scope)
	if err != nil {
		return nil, eris.Wrap(err, "materialize: list notes")
	}
	for _, n := range notes {
		summary.Notes++
		subj, ok := subjectByID[n.SubjectID]
		if !ok {
			// References a deleted subject; skip rather than create an
			// orphan observation.
			summary.Skipped++
			continue
		}
		obs = append(obs, model.Observation{
			UserID:       scope.UserID,
			RecordType:   model.RecordNote,
			NaturalKey:   n.ID,
			SubjectID:    n.SubjectID,
			OccurredAt:   n.CreatedAt,
			RenderedText: RenderNote(n, subj),
		})
	}

	// Calendar events fan out to every valid linked subject.
	events, err := m.store.ListEvents(ctx, scope)
	if err != nil {
		return nil, eris.Wrap(err, "materialize: list events")
	}
	for _, e := range events {
		summary.Events++
		for _, sid := range e.LinkedSubjectIDs() {
			if !scope.IncludesSubject(sid) {
				continue
			}
			subj, ok := subjectByID[sid]
			if !ok {
				summary.Skipped++
				continue
			}
			obs = append(obs, model.Observation{
				UserID:       scope.UserID,
				RecordType:   model.RecordCalendarEvent,
				NaturalKey:   e.ID,
				SubjectID:    sid,
				OccurredAt:   e.StartsAt,
				RenderedText: RenderEvent(e, subj),
			})
		}
	}

	// Gifts.
	gifts, err := m.store.ListGifts(ctx, scope)
	if err != nil {
		return nil, eris.Wrap(err, "materialize: list gifts")
	}
	for _, g := range gifts {
		summary.Gifts++
		subj, ok := subjectByID[g.SubjectID]
		if !ok {
			summary.Skipped++
			continue
		}
		obs = append(obs, model.Observation{
			UserID:       scope.UserID,
			RecordType:   model.RecordGift,
			NaturalKey:   g.ID,
			SubjectID:    g.SubjectID,
			OccurredAt:   g.TalkedAt,
			RenderedText: RenderGift(g, subj),
		})
	}

	// Chats: subjects are inferred, not linked.
	chats, err := m.store.ListChats(ctx, scope)
	if err != nil {
		return nil, eris.Wrap(err, "materialize: list chats")
	}
	for _, c := range chats {
		summary.Chats++
		for _, matched := range m.match(c, subjects) {
			if !scope.IncludesSubject(matched.ID) {
				continue
			}
			subj := subjectByID[matched.ID]
			obs = append(obs, model.Observation{
				UserID:       scope.UserID,
				RecordType:   model.RecordChat,
				NaturalKey:   c.ID,
				SubjectID:    matched.ID,
				OccurredAt:   c.CapturedAt,
				RenderedText: RenderChat(c, subj),
			})
		}
	}

	written, err := m.store.UpsertObservations(ctx, obs)
	if err != nil {
		return nil, eris.Wrap(err, "materialize: upsert observations")
	}
	summary.Observations = written

	log.Info("materialize: scan complete",
		zap.Int("subjects", summary.Subjects),
		zap.Int("notes", summary.Notes),
		zap.Int("events", summary.Events),
		zap.Int("gifts", summary.Gifts),
		zap.Int("chats", summary.Chats),
		zap.Int("observations", summary.Observations),
		zap.Int("skipped", summary.Skipped),
	)
	return summary, nil
}

// CleanupOrphans deletes observations whose subject no longer exists. Normal
// materialization never creates these; the operation exists to repair
// history malformed before the referential check was in place.
func (m *Materializer) CleanupOrphans(ctx context.Context, userID int64) (int64, error) {
	n, err := m.store.DeleteOrphanObservations(ctx, userID)
	if err != nil {
		return 0, eris.Wrap(err, "materialize: cleanup orphans")
	}
	if n > 0 {
		zap.L().Info("materialize: removed orphan observations",
			zap.Int64("user_id", userID),
			zap.Int64("deleted", n),
		)
	}
	return n, nil
}
