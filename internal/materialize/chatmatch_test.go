package materialize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kindred-labs/kindred-cli/internal/model"
)

var matchSubjects = []model.Subject{
	{ID: 1, Name: "김민수", Company: "한빛전자"},
	{ID: 2, Name: "박서연", Company: "서진물류"},
	{ID: 3, Name: "Alice Chen", Company: "Acme Corp"},
}

func TestMatchByNameOrCompany_ByName(t *testing.T) {
	chat := model.ChatTranscript{Content: "오늘 김민수 팀장이랑 통화함"}
	matched := MatchByNameOrCompany(chat, matchSubjects)

	require.Len(t, matched, 1)
	assert.Equal(t, int64(1), matched[0].ID)
}

func TestMatchByNameOrCompany_ByCompany(t *testing.T) {
	chat := model.ChatTranscript{Content: "서진물류 쪽에서 연락이 왔다"}
	matched := MatchByNameOrCompany(chat, matchSubjects)

	require.Len(t, matched, 1)
	assert.Equal(t, int64(2), matched[0].ID)
}

func TestMatchByNameOrCompany_CaseFolded(t *testing.T) {
	chat := model.ChatTranscript{Content: "call with ALICE CHEN about the acme corp deal"}
	matched := MatchByNameOrCompany(chat, matchSubjects)

	require.Len(t, matched, 1)
	assert.Equal(t, int64(3), matched[0].ID)
}

func TestMatchByNameOrCompany_MultipleMatches(t *testing.T) {
	chat := model.ChatTranscript{Content: "김민수, 박서연 둘 다 참석 예정"}
	matched := MatchByNameOrCompany(chat, matchSubjects)

	require.Len(t, matched, 2)
}

func TestMatchByNameOrCompany_FallbackToFirst(t *testing.T) {
	// Recall over precision: an unmatched chat still lands somewhere.
	chat := model.ChatTranscript{Content: "아무 이름도 없는 메모"}
	matched := MatchByNameOrCompany(chat, matchSubjects)

	require.Len(t, matched, 1)
	assert.Equal(t, int64(1), matched[0].ID)
}

func TestMatchByNameOrCompany_NoSubjects(t *testing.T) {
	chat := model.ChatTranscript{Content: "김민수"}
	assert.Nil(t, MatchByNameOrCompany(chat, nil))
}
