package materialize

import (
	"fmt"
	"strings"

	"github.com/kindred-labs/kindred-cli/internal/model"
)

// renderTimeLayout is the fixed timestamp layout used in rendered text.
// Rendering must be byte-identical across runs, so times are always UTC and
// never locale-formatted.
const renderTimeLayout = "2006-01-02 15:04"

// subjectLabel renders "name (company role)" with empty parts elided.
func subjectLabel(s *model.Subject) string {
	if s == nil {
		return ""
	}
	detail := strings.TrimSpace(strings.TrimSpace(s.Company) + " " + strings.TrimSpace(s.Role))
	if detail == "" {
		return s.Name
	}
	return fmt.Sprintf("%s (%s)", s.Name, detail)
}

type section struct {
	label string
	value string
}

// renderSections joins non-empty labeled sections, one per line.
func renderSections(sections []section) string {
	var b strings.Builder
	for _, s := range sections {
		if strings.TrimSpace(s.value) == "" {
			continue
		}
		fmt.Fprintf(&b, "[%s] %s\n", s.label, strings.TrimSpace(s.value))
	}
	return strings.TrimRight(b.String(), "\n")
}

// RenderProfile projects a subject's profile row into observation text.
func RenderProfile(s model.Subject) string {
	return renderSections([]section{
		{"유형", "프로필"},
		{"이름", s.Name},
		{"회사", s.Company},
		{"직책", s.Role},
		{"관계", s.Relationship},
	})
}

// RenderNote projects a note, enriched with the linked subject when known.
func RenderNote(n model.Note, subj *model.Subject) string {
	return renderSections([]section{
		{"유형", "메모"},
		{"대상", subjectLabel(subj)},
		{"제목", n.Title},
		{"내용", n.Body},
		{"시간", n.CreatedAt.UTC().Format(renderTimeLayout)},
	})
}

// RenderEvent projects a calendar event for one linked subject.
func RenderEvent(e model.CalendarEvent, subj *model.Subject) string {
	window := fmt.Sprintf("%s ~ %s",
		e.StartsAt.UTC().Format(renderTimeLayout),
		e.EndsAt.UTC().Format(renderTimeLayout),
	)
	return renderSections([]section{
		{"유형", "일정"},
		{"제목", e.Title},
		{"시간", window},
		{"장소", e.Location},
		{"참석자", subjectLabel(subj)},
		{"메모", e.Memo},
	})
}

// RenderGift projects a gift record.
func RenderGift(g model.GiftRecord, subj *model.Subject) string {
	price := ""
	if g.Price > 0 {
		price = fmt.Sprintf("%d원", g.Price)
	}
	purchased := ""
	if g.PurchasedAt != nil {
		purchased = g.PurchasedAt.UTC().Format(renderTimeLayout)
	}
	return renderSections([]section{
		{"유형", "선물"},
		{"대상", subjectLabel(subj)},
		{"계기", g.Occasion},
		{"선물", g.ItemName},
		{"가격", price},
		{"대화", g.TalkedAt.UTC().Format(renderTimeLayout)},
		{"구매", purchased},
	})
}

// RenderChat projects a chat transcript for one inferred subject.
func RenderChat(c model.ChatTranscript, subj *model.Subject) string {
	return renderSections([]section{
		{"유형", "대화"},
		{"대상", subjectLabel(subj)},
		{"시간", c.CapturedAt.UTC().Format(renderTimeLayout)},
		{"내용", c.Content},
	})
}
