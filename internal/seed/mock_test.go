package seed

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/kindred-labs/kindred-cli/internal/model"
)

// --- Oracle Mock ---

type mockScenarioOracle struct {
	mock.Mock
}

func (m *mockScenarioOracle) ExtractFacts(ctx context.Context, renderedText string, known []model.Fact) ([]model.CandidateFact, error) {
	args := m.Called(ctx, renderedText, known)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.CandidateFact), args.Error(1)
}

func (m *mockScenarioOracle) SuggestScenario(ctx context.Context, hint string) (string, error) {
	args := m.Called(ctx, hint)
	return args.String(0), args.Error(1)
}

func (m *mockScenarioOracle) ExpandScenario(ctx context.Context, outline string) (string, error) {
	args := m.Called(ctx, outline)
	return args.String(0), args.Error(1)
}
