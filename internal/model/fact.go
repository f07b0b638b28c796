package model

import "time"

// FactType classifies a structured fact about a subject.
type FactType string

const (
	FactPreference  FactType = "PREFERENCE"
	FactDislike     FactType = "DISLIKE"
	FactRisk        FactType = "RISK"
	FactConstraint  FactType = "CONSTRAINT"
	FactDate        FactType = "DATE"
	FactRoleOrOrg   FactType = "ROLE_OR_ORG"
	FactInteraction FactType = "INTERACTION"
	FactContext     FactType = "CONTEXT"
)

// FactTypes lists every valid fact type in declaration order.
var FactTypes = []FactType{
	FactPreference,
	FactDislike,
	FactRisk,
	FactConstraint,
	FactDate,
	FactRoleOrOrg,
	FactInteraction,
	FactContext,
}

// Valid reports whether t is one of the known fact types.
func (t FactType) Valid() bool {
	for _, ft := range FactTypes {
		if t == ft {
			return true
		}
	}
	return false
}

// DefaultPolarity returns the polarity assumed when the oracle omits one.
func (t FactType) DefaultPolarity() int {
	switch t {
	case FactPreference:
		return 1
	case FactDislike, FactRisk:
		return -1
	default:
		return 0
	}
}

// ActionInvalidate directs the reconciler to zero out an existing fact's
// confidence before merging the current batch.
const ActionInvalidate = "INVALIDATE"

// CandidateFact is the raw, untrusted shape returned by the extraction
// oracle. Polarity and Confidence are left loosely typed because the oracle
// occasionally emits them as strings or out-of-range numbers; the sanitizer
// owns coercion.
type CandidateFact struct {
	FactType      string `json:"fact_type"`
	FactKey       string `json:"fact_key"`
	Polarity      any    `json:"polarity,omitempty"`
	Confidence    any    `json:"confidence,omitempty"`
	Evidence      string `json:"evidence"`
	Action        string `json:"action,omitempty"`
	InvalidateKey string `json:"invalidate_key,omitempty"`
}

// SanitizedFact is a CandidateFact after validation: typed, trimmed, and
// coerced into the ranges the reconciler relies on.
type SanitizedFact struct {
	Type          FactType
	Key           string
	Polarity      int
	Confidence    float64
	Evidence      string
	Action        string
	InvalidateKey string
}

// Fact is a persisted, reconciled belief about a subject, unique per
// (user, subject, type, key). Facts are never deleted; invalidation sets
// confidence to zero and keeps the row for history.
type Fact struct {
	ID            int64     `json:"id"`
	UserID        int64     `json:"user_id"`
	SubjectID     int64     `json:"subject_id"`
	Type          FactType  `json:"fact_type"`
	Key           string    `json:"fact_key"`
	Polarity      int       `json:"polarity"`
	Confidence    float64   `json:"confidence"`
	Evidence      string    `json:"evidence"`
	SourceEventID int64     `json:"source_event_id"`
	ExtractedAt   time.Time `json:"extracted_at"`
}
