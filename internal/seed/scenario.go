package seed

import (
	"context"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/kindred-labs/kindred-cli/internal/extract"
)

// Scenario is a declarative description of a synthetic subject history. The
// seeder turns it into raw records with synthesized timestamps; the pipeline
// then ingests those records like any real data.
type Scenario struct {
	Name string `yaml:"name"`
	// RequireSubject, when set, names a subject that must already exist in
	// the store. Its absence is a fatal setup error: the seeder aborts
	// before writing anything.
	RequireSubject string            `yaml:"require_subject,omitempty"`
	Subjects       []ScenarioSubject `yaml:"subjects"`
	Chats          []ScenarioChat    `yaml:"chats,omitempty"`
}

// ScenarioSubject describes one contact and the records attached to them.
type ScenarioSubject struct {
	Name         string          `yaml:"name"`
	Company      string          `yaml:"company,omitempty"`
	Role         string          `yaml:"role,omitempty"`
	Relationship string          `yaml:"relationship,omitempty"`
	Notes        []ScenarioNote  `yaml:"notes,omitempty"`
	Events       []ScenarioEvent `yaml:"events,omitempty"`
	Gifts        []ScenarioGift  `yaml:"gifts,omitempty"`
}

// ScenarioNote is a free-form note. Standalone notes are pinned after the
// subject's latest interaction.
type ScenarioNote struct {
	Title string `yaml:"title"`
	Body  string `yaml:"body"`
}

// ScenarioEvent is a meeting. With lists names of other scenario subjects to
// link, producing observation fan-out. FollowUpNote, when present, is pinned
// a short offset after the event.
type ScenarioEvent struct {
	Title           string        `yaml:"title"`
	Location        string        `yaml:"location,omitempty"`
	Memo            string        `yaml:"memo,omitempty"`
	DurationMinutes int           `yaml:"duration_minutes,omitempty"`
	With            []string      `yaml:"with,omitempty"`
	FollowUpNote    *ScenarioNote `yaml:"follow_up_note,omitempty"`
}

// ScenarioGift is a gift idea. Purchased controls whether the purchase
// timestamp is recorded.
type ScenarioGift struct {
	Occasion  string `yaml:"occasion"`
	Item      string `yaml:"item"`
	Price     int64  `yaml:"price,omitempty"`
	Purchased bool   `yaml:"purchased,omitempty"`
}

// ScenarioChat is a captured conversation with no explicit subject link;
// subjects are inferred at materialization time.
type ScenarioChat struct {
	Content string `yaml:"content"`
}

// LoadScenario reads a scenario from a YAML file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "seed: read scenario %s", path)
	}
	return parseScenario(data)
}

func parseScenario(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, eris.Wrap(err, "seed: parse scenario")
	}
	if len(sc.Subjects) == 0 {
		return nil, eris.New("seed: scenario has no subjects")
	}
	for i, s := range sc.Subjects {
		if strings.TrimSpace(s.Name) == "" {
			return nil, eris.Errorf("seed: scenario subject %d has no name", i)
		}
	}
	return &sc, nil
}

// GenerateScenario asks the oracle to invent a scenario: a short outline
// first, then an expansion into the YAML served by parseScenario. Used only
// behind an explicit flag; the static path needs no API key.
func GenerateScenario(ctx context.Context, oracle extract.Oracle, hint string) (*Scenario, error) {
	outline, err := oracle.SuggestScenario(ctx, hint)
	if err != nil {
		return nil, eris.Wrap(err, "seed: suggest scenario")
	}
	full, err := oracle.ExpandScenario(ctx, outline)
	if err != nil {
		return nil, eris.Wrap(err, "seed: expand scenario")
	}
	return parseScenario([]byte(cleanYAML(full)))
}

// cleanYAML strips markdown code fences the oracle tends to wrap YAML in.
func cleanYAML(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		if idx := strings.Index(text, "\n"); idx >= 0 {
			text = text[idx+1:]
		}
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}
	return strings.TrimSpace(text)
}

// DefaultScenario is the built-in seed data used when no scenario file is
// given: two contacts with enough signal for the extractor to chew on.
func DefaultScenario() *Scenario {
	return &Scenario{
		Name: "default",
		Subjects: []ScenarioSubject{
			{
				Name:         "김민수",
				Company:      "한빛전자",
				Role:         "구매팀장",
				Relationship: "고객",
				Notes: []ScenarioNote{
					{Title: "첫 미팅 메모", Body: "김민수 팀장은 커피를 아주 좋아함. 특히 에스프레소. 골프는 별로 안 좋아한다고 함."},
					{Title: "일정 관련", Body: "매주 금요일 오후는 내부 회의라 미팅 불가. 딸 생일이 3월 15일이라 그 주는 일찍 퇴근함."},
				},
				Events: []ScenarioEvent{
					{
						Title:           "분기 단가 협의",
						Location:        "한빛전자 본사 3층 회의실",
						Memo:            "2분기 납품 단가 재협상. 김 팀장이 경쟁사 견적을 받아본 상태라 조심스러운 분위기.",
						DurationMinutes: 90,
						FollowUpNote:    &ScenarioNote{Title: "협의 후기", Body: "단가보다 납기 안정성을 더 중요하게 생각함. 다음 미팅 때 납기 보증안 준비할 것."},
					},
				},
				Gifts: []ScenarioGift{
					{Occasion: "명절 선물", Item: "스페셜티 원두 세트", Price: 55000, Purchased: true},
				},
			},
			{
				Name:         "박서연",
				Company:      "서진물류",
				Role:         "대표",
				Relationship: "파트너사",
				Notes: []ScenarioNote{
					{Title: "식사 자리 메모", Body: "박 대표는 해산물 알레르기가 있음. 회식 장소 잡을 때 주의. 와인은 레드만 마심."},
				},
				Events: []ScenarioEvent{
					{
						Title:           "물류 계약 갱신 미팅",
						Location:        "서진물류 사옥",
						Memo:            "연간 운송 계약 갱신. 박 대표가 단가 인상 요구 예정이라는 얘기가 있음.",
						DurationMinutes: 60,
						With:            []string{"김민수"},
					},
				},
			},
		},
		Chats: []ScenarioChat{
			{Content: "오늘 김민수 팀장이랑 통화함. 요즘 테니스 시작했다고 함. 다음에 만나면 물어볼 것."},
		},
	}
}
