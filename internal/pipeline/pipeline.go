package pipeline

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/kindred-labs/kindred-cli/internal/materialize"
	"github.com/kindred-labs/kindred-cli/internal/model"
	"github.com/kindred-labs/kindred-cli/internal/reconcile"
	"github.com/kindred-labs/kindred-cli/internal/seed"
	"github.com/kindred-labs/kindred-cli/internal/store"
)

// Pipeline is the trigger surface: it composes the seeder, materializer and
// reconciler and records every invocation as a pipeline run.
type Pipeline struct {
	store        store.Store
	seeder       *seed.Seeder
	materializer *materialize.Materializer
	reconciler   *reconcile.Reconciler
}

// New wires the trigger surface. The seeder may be nil when the caller only
// runs materialize/reconcile.
func New(st store.Store, seeder *seed.Seeder, m *materialize.Materializer, r *reconcile.Reconciler) *Pipeline {
	return &Pipeline{
		store:        st,
		seeder:       seeder,
		materializer: m,
		reconciler:   r,
	}
}

// Seed writes a scenario and records the run.
func (p *Pipeline) Seed(ctx context.Context, userID int64, sc *seed.Scenario) (*model.SeedSummary, error) {
	run, err := p.store.CreateRun(ctx, userID, model.RunSeed)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: create run")
	}

	summary, seedErr := p.seeder.Seed(ctx, userID, sc)
	p.completeRun(ctx, run, model.RunSummary{Seed: summary})
	return summary, seedErr
}

// Materialize converts raw records in scope into observations and records
// the run.
func (p *Pipeline) Materialize(ctx context.Context, scope model.Scope) (*model.MaterializeSummary, error) {
	run, err := p.store.CreateRun(ctx, scope.UserID, model.RunMaterialize)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: create run")
	}

	summary, matErr := p.materializer.Materialize(ctx, scope)
	p.completeRun(ctx, run, model.RunSummary{Materialize: summary})
	return summary, matErr
}

// Reconcile drains unprocessed observations in scope and records the run.
// The returned summary is valid even when the run was cancelled partway.
func (p *Pipeline) Reconcile(ctx context.Context, scope model.Scope) (*model.ReconcileSummary, error) {
	run, err := p.store.CreateRun(ctx, scope.UserID, model.RunReconcile)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: create run")
	}

	summary, recErr := p.reconciler.Reconcile(ctx, scope)
	p.completeRun(ctx, run, model.RunSummary{Reconcile: summary})
	return summary, recErr
}

// CleanupOrphans removes observations whose raw record or subject no longer
// exists.
func (p *Pipeline) CleanupOrphans(ctx context.Context, userID int64) (int64, error) {
	return p.materializer.CleanupOrphans(ctx, userID)
}

// RunAll is the convenience composition seed → materialize → reconcile under
// a single recorded run. Each phase only starts if the previous one
// succeeded.
func (p *Pipeline) RunAll(ctx context.Context, userID int64, sc *seed.Scenario) (*model.RunSummary, error) {
	run, err := p.store.CreateRun(ctx, userID, model.RunAll)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: create run")
	}

	summary := &model.RunSummary{}
	defer func() { p.completeRun(ctx, run, *summary) }()

	seedSummary, err := p.seeder.Seed(ctx, userID, sc)
	summary.Seed = seedSummary
	if err != nil {
		return summary, err
	}

	scope := model.Scope{UserID: userID}
	matSummary, err := p.materializer.Materialize(ctx, scope)
	summary.Materialize = matSummary
	if err != nil {
		return summary, err
	}

	recSummary, err := p.reconciler.Reconcile(ctx, scope)
	summary.Reconcile = recSummary
	return summary, err
}

// completeRun closes the run row. Failing to record the outcome never
// fails the operation itself.
func (p *Pipeline) completeRun(ctx context.Context, run *model.PipelineRun, summary model.RunSummary) {
	if err := p.store.CompleteRun(ctx, run.ID, summary); err != nil {
		zap.L().Warn("pipeline: complete run",
			zap.String("run_id", run.ID),
			zap.String("kind", string(run.Kind)),
			zap.Error(err),
		)
	}
}
