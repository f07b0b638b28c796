package model

import (
	"strconv"
	"strings"
	"time"
)

// Subject is the contact facts are about. The profile raw-record variant is
// the subject row itself.
type Subject struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"user_id"`
	Name         string    `json:"name"`
	Company      string    `json:"company,omitempty"`
	Role         string    `json:"role,omitempty"`
	Relationship string    `json:"relationship,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Note is a free-form note about a single subject.
type Note struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	SubjectID int64     `json:"subject_id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// CalendarEvent is a scheduled meeting. SubjectIDs holds the linked subject
// ids as a comma-separated string, matching the upstream storage format.
type CalendarEvent struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	SubjectIDs string    `json:"subject_ids"`
	Title      string    `json:"title"`
	Location   string    `json:"location,omitempty"`
	Memo       string    `json:"memo,omitempty"`
	StartsAt   time.Time `json:"starts_at"`
	EndsAt     time.Time `json:"ends_at"`
	CreatedAt  time.Time `json:"created_at"`
}

// LinkedSubjectIDs parses the comma-separated subject id field into an
// ordered, deduplicated slice. Non-numeric and non-positive entries are
// dropped silently; an event with no valid links fans out to nothing.
func (e CalendarEvent) LinkedSubjectIDs() []int64 {
	parts := strings.Split(e.SubjectIDs, ",")
	seen := make(map[int64]bool, len(parts))
	var ids []int64
	for _, p := range parts {
		id, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil || id <= 0 || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}

// GiftRecord captures a gift idea or purchase: the conversation that
// prompted it and, later, the purchase itself.
type GiftRecord struct {
	ID          int64      `json:"id"`
	UserID      int64      `json:"user_id"`
	SubjectID   int64      `json:"subject_id"`
	Occasion    string     `json:"occasion"`
	ItemName    string     `json:"item_name"`
	Price       int64      `json:"price,omitempty"`
	TalkedAt    time.Time  `json:"talked_at"`
	PurchasedAt *time.Time `json:"purchased_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// ChatTranscript is a captured conversation with no explicit subject link;
// the materializer infers subjects heuristically.
type ChatTranscript struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	Content    string    `json:"content"`
	CapturedAt time.Time `json:"captured_at"`
}
