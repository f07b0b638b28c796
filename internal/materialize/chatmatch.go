package materialize

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/kindred-labs/kindred-cli/internal/model"
)

// SubjectMatcher infers which subjects a chat transcript concerns. Chats carry
// no explicit subject link, so matching is necessarily heuristic; the strategy
// is isolated here so tests can swap or disable it.
type SubjectMatcher func(chat model.ChatTranscript, subjects []model.Subject) []model.Subject

// MatchByNameOrCompany returns every subject whose name or company appears in
// the transcript, using Unicode case folding for the comparison. When nothing
// matches it falls back to the user's first subject — recall over precision,
// a documented heuristic rather than a guarantee.
func MatchByNameOrCompany(chat model.ChatTranscript, subjects []model.Subject) []model.Subject {
	if len(subjects) == 0 {
		return nil
	}

	folder := cases.Fold()
	content := folder.String(chat.Content)

	var matched []model.Subject
	for _, s := range subjects {
		if containsFolded(content, folder.String(s.Name)) ||
			containsFolded(content, folder.String(s.Company)) {
			matched = append(matched, s)
		}
	}
	if len(matched) == 0 {
		matched = subjects[:1]
	}
	return matched
}

func containsFolded(haystack, needle string) bool {
	needle = strings.TrimSpace(needle)
	if needle == "" {
		return false
	}
	return strings.Contains(haystack, needle)
}
