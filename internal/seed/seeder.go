package seed

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/kindred-labs/kindred-cli/internal/model"
	"github.com/kindred-labs/kindred-cli/internal/store"
	"github.com/kindred-labs/kindred-cli/internal/timeline"
)

const defaultEventMinutes = 60

// Seeder writes a scenario's synthetic history into the store. Timestamps
// come from the timeline synthesizer, so the seeded records are collision
// free and causally ordered just like organic data.
type Seeder struct {
	store    store.Store
	timeline *timeline.Synthesizer
}

// New creates a Seeder.
func New(st store.Store, tl *timeline.Synthesizer) *Seeder {
	return &Seeder{store: st, timeline: tl}
}

// Seed writes all scenario records for the given user. A missing required
// subject is a fatal setup error: nothing is written.
func (s *Seeder) Seed(ctx context.Context, userID int64, sc *Scenario) (*model.SeedSummary, error) {
	if sc.RequireSubject != "" {
		ok, err := s.subjectExists(ctx, userID, sc.RequireSubject)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, eris.Errorf("seed: required subject %q does not exist", sc.RequireSubject)
		}
	}

	log := zap.L().With(zap.Int64("user_id", userID), zap.String("scenario", sc.Name))
	summary := &model.SeedSummary{}

	created := make(map[string]*model.Subject, len(sc.Subjects))
	for i := range sc.Subjects {
		ss := &sc.Subjects[i]
		subj := &model.Subject{
			UserID:       userID,
			Name:         ss.Name,
			Company:      ss.Company,
			Role:         ss.Role,
			Relationship: ss.Relationship,
			CreatedAt:    s.timeline.SubjectCreated(),
		}
		if err := s.store.CreateSubject(ctx, subj); err != nil {
			return summary, eris.Wrapf(err, "seed: create subject %q", ss.Name)
		}
		created[ss.Name] = subj
		summary.Subjects++
	}

	cursor := time.Time{}
	for i := range sc.Subjects {
		ss := &sc.Subjects[i]
		subj := created[ss.Name]
		last, err := s.seedSubjectRecords(ctx, subj, ss, created, summary)
		if err != nil {
			return summary, err
		}
		if last.After(cursor) {
			cursor = last
		}
	}

	for _, sch := range sc.Chats {
		cursor = s.timeline.NoteAfter(cursor)
		chat := &model.ChatTranscript{
			UserID:     userID,
			Content:    sch.Content,
			CapturedAt: cursor,
		}
		if err := s.store.CreateChat(ctx, chat); err != nil {
			return summary, eris.Wrap(err, "seed: create chat")
		}
		summary.Chats++
	}

	log.Info("seed: scenario written",
		zap.Int("subjects", summary.Subjects),
		zap.Int("notes", summary.Notes),
		zap.Int("events", summary.Events),
		zap.Int("gifts", summary.Gifts),
		zap.Int("chats", summary.Chats),
	)
	return summary, nil
}

// seedSubjectRecords writes one subject's events, notes and gifts, returning
// the latest timestamp touched so chats can chain after everything else.
func (s *Seeder) seedSubjectRecords(ctx context.Context, subj *model.Subject, ss *ScenarioSubject, created map[string]*model.Subject, summary *model.SeedSummary) (time.Time, error) {
	last := subj.CreatedAt

	for _, se := range ss.Events {
		minutes := se.DurationMinutes
		if minutes <= 0 {
			minutes = defaultEventMinutes
		}
		start, end := s.timeline.NextEvent(time.Duration(minutes) * time.Minute)

		ids := []string{strconv.FormatInt(subj.ID, 10)}
		for _, name := range se.With {
			other, ok := created[name]
			if !ok {
				zap.L().Warn("seed: event links unknown subject, dropping link",
					zap.String("event", se.Title),
					zap.String("subject", name),
				)
				continue
			}
			ids = append(ids, strconv.FormatInt(other.ID, 10))
		}

		event := &model.CalendarEvent{
			UserID:     subj.UserID,
			SubjectIDs: strings.Join(ids, ","),
			Title:      se.Title,
			Location:   se.Location,
			Memo:       se.Memo,
			StartsAt:   start,
			EndsAt:     end,
			CreatedAt:  start,
		}
		if err := s.store.CreateEvent(ctx, event); err != nil {
			return last, eris.Wrapf(err, "seed: create event %q", se.Title)
		}
		summary.Events++
		last = end

		if se.FollowUpNote != nil {
			noteAt := s.timeline.NoteAfter(end)
			if err := s.createNote(ctx, subj, *se.FollowUpNote, noteAt); err != nil {
				return last, err
			}
			summary.Notes++
			last = noteAt
		}
	}

	for _, sn := range ss.Notes {
		noteAt := s.timeline.NoteAfter(last)
		if err := s.createNote(ctx, subj, sn, noteAt); err != nil {
			return last, err
		}
		summary.Notes++
		last = noteAt
	}

	for _, sg := range ss.Gifts {
		talked, purchased := s.timeline.GiftPair()
		gift := &model.GiftRecord{
			UserID:    subj.UserID,
			SubjectID: subj.ID,
			Occasion:  sg.Occasion,
			ItemName:  sg.Item,
			Price:     sg.Price,
			TalkedAt:  talked,
			CreatedAt: talked,
		}
		if sg.Purchased {
			gift.PurchasedAt = &purchased
		}
		if err := s.store.CreateGift(ctx, gift); err != nil {
			return last, eris.Wrapf(err, "seed: create gift %q", sg.Item)
		}
		summary.Gifts++
		if purchased.After(last) {
			last = purchased
		}
	}

	return last, nil
}

func (s *Seeder) createNote(ctx context.Context, subj *model.Subject, sn ScenarioNote, at time.Time) error {
	note := &model.Note{
		UserID:    subj.UserID,
		SubjectID: subj.ID,
		Title:     sn.Title,
		Body:      sn.Body,
		CreatedAt: at,
	}
	if err := s.store.CreateNote(ctx, note); err != nil {
		return eris.Wrapf(err, "seed: create note %q", sn.Title)
	}
	return nil
}

func (s *Seeder) subjectExists(ctx context.Context, userID int64, name string) (bool, error) {
	subjects, err := s.store.ListSubjects(ctx, userID)
	if err != nil {
		return false, eris.Wrap(err, "seed: list subjects")
	}
	for _, subj := range subjects {
		if strings.EqualFold(subj.Name, name) {
			return true, nil
		}
	}
	return false, nil
}
