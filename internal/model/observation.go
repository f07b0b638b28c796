package model

import "time"

// RecordType identifies which raw record variant an observation was
// materialized from.
type RecordType string

const (
	RecordProfile       RecordType = "profile"
	RecordNote          RecordType = "note"
	RecordCalendarEvent RecordType = "calendar_event"
	RecordGift          RecordType = "gift"
	RecordChat          RecordType = "chat"
)

// ObservationKey is the composite identity of an observation. One raw record
// linked to N subjects yields N observations sharing RecordType and
// NaturalKey but with distinct SubjectIDs.
type ObservationKey struct {
	RecordType RecordType
	NaturalKey int64
	SubjectID  int64
}

// Observation is one entry in the append-only source-event log: a
// deterministic textual projection of a raw record for a single subject.
// OccurredAt is the causal time of the underlying event, not ingestion time.
type Observation struct {
	ID           int64      `json:"id"`
	UserID       int64      `json:"user_id"`
	RecordType   RecordType `json:"record_type"`
	NaturalKey   int64      `json:"natural_key"`
	SubjectID    int64      `json:"subject_id"`
	OccurredAt   time.Time  `json:"occurred_at"`
	RenderedText string     `json:"rendered_text"`
	Processed    bool       `json:"processed"`
	ProcessedAt  *time.Time `json:"processed_at,omitempty"`
}

// Key returns the composite identity tuple.
func (o Observation) Key() ObservationKey {
	return ObservationKey{RecordType: o.RecordType, NaturalKey: o.NaturalKey, SubjectID: o.SubjectID}
}

// Scope narrows pipeline operations to one user, optionally to specific
// subjects and/or records created after a cutoff.
type Scope struct {
	UserID       int64
	SubjectIDs   []int64
	CreatedAfter *time.Time
}

// IncludesSubject reports whether the scope covers the given subject id.
// An empty SubjectIDs list covers all subjects.
func (s Scope) IncludesSubject(id int64) bool {
	if len(s.SubjectIDs) == 0 {
		return true
	}
	for _, sid := range s.SubjectIDs {
		if sid == id {
			return true
		}
	}
	return false
}
