package extract

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/kindred-labs/kindred-cli/internal/model"
)

// maxKeyLength bounds sanitized fact keys.
const maxKeyLength = 255

// defaultConfidence substitutes for missing or unusable confidence values so
// the caller may still choose to keep the candidate.
const defaultConfidence = 0.5

// ValidationResult is the outcome of validating one candidate fact. Sanitized
// is populated on a best-effort basis even when the candidate is invalid, to
// aid diagnostics.
type ValidationResult struct {
	Valid     bool
	Errors    []string
	Sanitized model.SanitizedFact
}

// BatchResult partitions a candidate batch into valid and invalid entries.
// Invalid entries are dropped from further processing but retained here for
// diagnostics.
type BatchResult struct {
	Valid   []model.SanitizedFact
	Invalid []ValidationResult
}

// ValidateCandidate enforces the candidate-fact schema: known type, non-empty
// key and evidence, confidence in [0,1], polarity coerced to {-1, 0, +1}.
func ValidateCandidate(c model.CandidateFact) ValidationResult {
	var errs []string

	factType := model.FactType(strings.TrimSpace(c.FactType))
	if !factType.Valid() {
		errs = append(errs, fmt.Sprintf("unknown fact_type %q", c.FactType))
	}

	key := strings.TrimSpace(c.FactKey)
	if key == "" {
		errs = append(errs, "fact_key is empty")
	}
	// The length bound counts characters, not bytes; Korean keys are three
	// bytes per rune and must never be sliced mid-rune.
	if r := []rune(key); len(r) > maxKeyLength {
		key = string(r[:maxKeyLength])
	}

	confidence := defaultConfidence
	if c.Confidence != nil {
		v, ok := toFloat64(c.Confidence)
		if !ok || v < 0 || v > 1 {
			errs = append(errs, fmt.Sprintf("confidence %v out of range", c.Confidence))
		} else {
			confidence = v
		}
	}

	polarity := factType.DefaultPolarity()
	if c.Polarity != nil {
		if v, ok := toFloat64(c.Polarity); ok {
			switch {
			case v >= 1:
				polarity = 1
			case v <= -1:
				polarity = -1
			default:
				polarity = 0
			}
		}
	}

	evidence := strings.TrimSpace(c.Evidence)
	if evidence == "" {
		errs = append(errs, "evidence is empty")
	}

	return ValidationResult{
		Valid:  len(errs) == 0,
		Errors: errs,
		Sanitized: model.SanitizedFact{
			Type:          factType,
			Key:           key,
			Polarity:      polarity,
			Confidence:    confidence,
			Evidence:      evidence,
			Action:        strings.TrimSpace(c.Action),
			InvalidateKey: strings.TrimSpace(c.InvalidateKey),
		},
	}
}

// ValidateBatch validates every candidate and partitions the results.
func ValidateBatch(candidates []model.CandidateFact) BatchResult {
	var out BatchResult
	for _, c := range candidates {
		res := ValidateCandidate(c)
		if res.Valid {
			out.Valid = append(out.Valid, res.Sanitized)
		} else {
			out.Invalid = append(out.Invalid, res)
		}
	}
	return out
}

// toFloat64 attempts to convert a loosely typed JSON value to float64.
func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
