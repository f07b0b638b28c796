package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/kindred-labs/kindred-cli/internal/config"
	"github.com/kindred-labs/kindred-cli/internal/model"
	"github.com/kindred-labs/kindred-cli/pkg/anthropic"
)

// ErrMalformedOutput marks an oracle response that was not a JSON array.
// Callers must treat it as an extraction failure, never as "no facts found".
var ErrMalformedOutput = eris.New("extract: oracle output is not a JSON array")

// Oracle is the text-understanding capability the pipeline consumes. The
// scenario methods are used only by the seeder.
type Oracle interface {
	ExtractFacts(ctx context.Context, renderedText string, known []model.Fact) ([]model.CandidateFact, error)
	SuggestScenario(ctx context.Context, hint string) (string, error)
	ExpandScenario(ctx context.Context, outline string) (string, error)
}

const extractSystemPrompt = `You are an analyst distilling structured facts about a person from one relationship record.

Rules:
- Extract only what the record literally states. Do not infer, generalize, or guess.
- Every fact must carry an "evidence" field quoting the exact source snippet it came from.
- fact_type must be one of: PREFERENCE, DISLIKE, RISK, CONSTRAINT, DATE, ROLE_OR_ORG, INTERACTION, CONTEXT.
- fact_key is a short lowercase identifier (e.g. "coffee", "birthday", "golf").
- polarity: 1 positive, -1 negative, 0 neutral. confidence: 0.0-1.0.
- If the record contradicts a previously known fact, add "action": "INVALIDATE" with "invalidate_key" set to the stale fact's key, and emit the superseding fact separately.
- Known facts are provided for context only; do not repeat them unless the record adds evidence.
- Respond with a JSON array of fact objects. Respond with [] if the record contains no extractable facts.`

const extractUserPrompt = `Record:
%s

Previously known facts about this person:
%s

Return the JSON array now.`

// Extractor produces candidate facts from observations via the Anthropic API.
type Extractor struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// NewExtractor creates an Extractor using the configured model.
func NewExtractor(client anthropic.Client, cfg config.AnthropicConfig) *Extractor {
	return &Extractor{
		client:    client,
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
	}
}

// ExtractFacts asks the oracle for candidate facts grounded in renderedText.
// Known facts are serialized into the prompt so the oracle can decide whether
// new evidence reinforces, supersedes, or contradicts a prior fact.
func (e *Extractor) ExtractFacts(ctx context.Context, renderedText string, known []model.Fact) ([]model.CandidateFact, error) {
	resp, err := e.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     e.model,
		MaxTokens: e.maxTokens,
		System: []anthropic.SystemBlock{{
			Text:         extractSystemPrompt,
			CacheControl: &anthropic.CacheControl{TTL: "5m"},
		}},
		Messages: []anthropic.Message{{
			Role:    "user",
			Content: fmt.Sprintf(extractUserPrompt, renderedText, FormatKnownFacts(known)),
		}},
	})
	if err != nil {
		return nil, eris.Wrap(err, "extract: oracle call")
	}
	resp.Usage.LogCost(e.model, "extract")

	candidates, err := ParseCandidates(resp.Text())
	if err != nil {
		zap.L().Warn("extract: unparseable oracle output",
			zap.String("model", e.model),
			zap.Error(err),
		)
		return nil, err
	}
	return candidates, nil
}

const scenarioSystemPrompt = `You design small, realistic CRM seed scenarios: a handful of business contacts with notes, meetings, gift history and chat snippets in Korean business register. Respond with YAML only.`

// SuggestScenario asks the oracle for a short seed-scenario outline.
func (e *Extractor) SuggestScenario(ctx context.Context, hint string) (string, error) {
	return e.scenarioCall(ctx, "Suggest a seed scenario outline. Theme hint: "+hint)
}

// ExpandScenario asks the oracle to flesh an outline out into full records.
func (e *Extractor) ExpandScenario(ctx context.Context, outline string) (string, error) {
	return e.scenarioCall(ctx, "Expand this outline into full records:\n"+outline)
}

func (e *Extractor) scenarioCall(ctx context.Context, prompt string) (string, error) {
	resp, err := e.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     e.model,
		MaxTokens: e.maxTokens,
		System:    []anthropic.SystemBlock{{Text: scenarioSystemPrompt}},
		Messages:  []anthropic.Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", eris.Wrap(err, "extract: scenario call")
	}
	resp.Usage.LogCost(e.model, "scenario")
	return resp.Text(), nil
}

// FormatKnownFacts serializes prior facts for prompt injection. Returns
// "(none)" when the subject has no facts yet.
func FormatKnownFacts(known []model.Fact) string {
	if len(known) == 0 {
		return "(none)"
	}
	var b strings.Builder
	for _, f := range known {
		fmt.Fprintf(&b, "- %s/%s polarity=%+d confidence=%.2f\n", f.Type, f.Key, f.Polarity, f.Confidence)
	}
	return strings.TrimRight(b.String(), "\n")
}

// ParseCandidates parses the oracle's response text as a JSON array of
// candidate facts. Markdown code fences are tolerated; anything that is not
// an array after cleaning is an ErrMalformedOutput, distinct from a valid
// empty array.
func ParseCandidates(text string) ([]model.CandidateFact, error) {
	cleaned := cleanJSONArray(text)
	if cleaned == "" {
		return nil, eris.Wrap(ErrMalformedOutput, "empty response")
	}

	var candidates []model.CandidateFact
	if err := json.Unmarshal([]byte(cleaned), &candidates); err != nil {
		return nil, eris.Wrap(ErrMalformedOutput, err.Error())
	}
	return candidates, nil
}

// cleanJSONArray strips markdown fences and isolates the outermost array.
func cleanJSONArray(text string) string {
	text = strings.TrimSpace(text)

	// Strip markdown code fences.
	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	// Find first [ and last ].
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return strings.TrimSpace(text)
}
