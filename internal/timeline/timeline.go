package timeline

import (
	"math/rand/v2"
	"time"

	"github.com/kindred-labs/kindred-cli/internal/config"
)

// collisionRetries bounds the randomized escalation before the synthesizer
// falls back to a deterministic one-day jump.
const collisionRetries = 8

// Synthesizer produces collision-free, causally ordered timestamps for a
// synthetic subject history. All emitted timestamps are unique within the
// session at millisecond resolution, and the event chain is non-decreasing.
//
// Generation is randomized per call, so repeated runs produce different
// timelines while preserving every ordering invariant.
type Synthesizer struct {
	cfg  config.TimelineConfig
	rng  *rand.Rand
	used map[int64]struct{}
	last time.Time
}

// Option customizes a Synthesizer.
type Option func(*Synthesizer)

// WithRand replaces the random source, for deterministic tests.
func WithRand(rng *rand.Rand) Option {
	return func(s *Synthesizer) { s.rng = rng }
}

// New creates a Synthesizer anchored at the given history start. Timestamps
// are emitted in UTC.
func New(cfg config.TimelineConfig, anchor time.Time, opts ...Option) *Synthesizer {
	s := &Synthesizer{
		cfg:  cfg,
		rng:  rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		used: make(map[int64]struct{}),
		last: anchor.UTC(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SubjectCreated returns the moment the subject enters the system. It
// precedes every other timestamp in the session.
func (s *Synthesizer) SubjectCreated() time.Time {
	t := s.unique(s.businessMoment(s.last))
	if t.After(s.last) {
		s.last = t
	}
	return t
}

// NextEvent advances the chain and returns a start/end pair for one calendar
// event. Consecutive starts are separated by at least the configured minimum
// gap, land on weekdays, and fall within business hours.
func (s *Synthesizer) NextEvent(duration time.Duration) (start, end time.Time) {
	start = s.advance()
	end = s.unique(start.Add(duration))
	return start, end
}

// NoteAfter pins a note a fixed offset after the interaction it documents,
// so note-to-note spacing mirrors the event chain.
func (s *Synthesizer) NoteAfter(event time.Time) time.Time {
	offset := time.Duration(s.cfg.NoteOffsetMinutes) * time.Minute
	return s.unique(event.Add(offset))
}

// GiftPair advances the chain and returns the moment a gift came up in
// conversation and the later moment it was purchased.
func (s *Synthesizer) GiftPair() (talked, purchased time.Time) {
	talked = s.advance()
	lead := s.cfg.GiftLeadDays
	if lead < 1 {
		lead = 1
	}
	purchased = s.unique(s.businessMoment(talked.AddDate(0, 0, lead)))
	if !purchased.After(talked) {
		purchased = s.unique(talked.Add(time.Hour))
	}
	return talked, purchased
}

// advance moves the chain forward by at least the minimum event gap and
// returns the next shaped, unique chain timestamp.
func (s *Synthesizer) advance() time.Time {
	gapDays := s.cfg.MinEventGapDays
	if gapDays < 1 {
		gapDays = 1
	}
	minGap := time.Duration(gapDays) * 24 * time.Hour

	day := s.last.AddDate(0, 0, gapDays+s.rng.IntN(3))
	t := s.businessMoment(day)
	for t.Sub(s.last) < minGap {
		t = s.businessMoment(t.AddDate(0, 0, 1))
	}
	t = s.unique(t)
	s.last = t
	return t
}

// businessMoment shapes an arbitrary day into a weekday timestamp at a
// random minute inside the configured business-hour window. Weekends are
// pushed forward to Monday so ordering is preserved.
func (s *Synthesizer) businessMoment(day time.Time) time.Time {
	switch day.Weekday() {
	case time.Saturday:
		day = day.AddDate(0, 0, 2)
	case time.Sunday:
		day = day.AddDate(0, 0, 1)
	}

	startHour, endHour := s.cfg.BusinessHourStart, s.cfg.BusinessHourEnd
	if endHour <= startHour {
		startHour, endHour = 9, 18
	}
	hour := startHour + s.rng.IntN(endHour-startHour)
	minute := s.rng.IntN(60)
	second := s.rng.IntN(60)

	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, second, 0, time.UTC)
}

// unique reserves t at millisecond resolution, escalating by randomized
// offsets on collision and falling back to one-day jumps to guarantee
// termination.
func (s *Synthesizer) unique(t time.Time) time.Time {
	for i := 0; i < collisionRetries; i++ {
		ms := t.UnixMilli()
		if _, taken := s.used[ms]; !taken {
			s.used[ms] = struct{}{}
			return t
		}
		t = t.Add(time.Duration(1+s.rng.IntN(5000)) * time.Millisecond)
	}
	for {
		t = t.AddDate(0, 0, 1)
		ms := t.UnixMilli()
		if _, taken := s.used[ms]; !taken {
			s.used[ms] = struct{}{}
			return t
		}
	}
}
