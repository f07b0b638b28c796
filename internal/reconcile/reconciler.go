package reconcile

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kindred-labs/kindred-cli/internal/extract"
	"github.com/kindred-labs/kindred-cli/internal/model"
	"github.com/kindred-labs/kindred-cli/internal/store"
)

// Reconciler drains unprocessed observations one at a time, extracting
// candidate facts and merging them into the store under a
// confidence-monotonic policy.
//
// Observations are processed oldest-first so that later, possibly
// contradictory evidence naturally wins when confidences are comparable.
// Each observation's side effects commit independently: a crash mid-batch
// loses no completed work, and the still-unprocessed observation is simply
// retried by the next run.
type Reconciler struct {
	store      store.Store
	oracle     extract.Oracle
	limiter    *rate.Limiter
	batchLimit int
}

// New creates a Reconciler. pause is the politeness delay between oracle
// calls (zero disables it); batchLimit caps one run's intake (zero = no cap).
func New(st store.Store, oracle extract.Oracle, pause time.Duration, batchLimit int) *Reconciler {
	var limiter *rate.Limiter
	if pause > 0 {
		limiter = rate.NewLimiter(rate.Every(pause), 1)
	}
	return &Reconciler{
		store:      st,
		oracle:     oracle,
		limiter:    limiter,
		batchLimit: batchLimit,
	}
}

// dedupKey identifies near-duplicate candidates within one batch.
type dedupKey struct {
	Type model.FactType
	Key  string
}

// Reconcile processes every unprocessed observation in scope. A single
// observation's extraction error never aborts the batch; the observation is
// left unprocessed for a later run. Cancellation is honored between
// observations, where state is consistent.
func (r *Reconciler) Reconcile(ctx context.Context, scope model.Scope) (*model.ReconcileSummary, error) {
	obs, err := r.store.ListUnprocessedObservations(ctx, scope, r.batchLimit)
	if err != nil {
		return nil, eris.Wrap(err, "reconcile: list unprocessed")
	}

	log := zap.L().With(zap.Int64("user_id", scope.UserID))
	log.Info("reconcile: batch start", zap.Int("observations", len(obs)))

	summary := &model.ReconcileSummary{}
	var cancelled error

	for i, o := range obs {
		if err := ctx.Err(); err != nil {
			cancelled = eris.Wrap(err, "reconcile: cancelled between observations")
			break
		}
		if i > 0 && r.limiter != nil {
			// Politeness pause for the oracle's shared rate limit.
			if err := r.limiter.Wait(ctx); err != nil {
				cancelled = eris.Wrap(err, "reconcile: cancelled during pause")
				break
			}
		}

		if err := r.reconcileOne(ctx, o, summary); err != nil {
			// Oracle failure: leave the observation unprocessed so a later
			// run retries it, and keep going.
			summary.Failed++
			log.Warn("reconcile: extraction failed, observation left unprocessed",
				zap.Int64("observation_id", o.ID),
				zap.String("record_type", string(o.RecordType)),
				zap.Error(err),
			)
			continue
		}
		summary.Processed++
	}

	// The count must succeed even when the batch was cancelled, so the
	// caller still learns how much work is left.
	remaining, err := r.store.CountUnprocessedObservations(context.WithoutCancel(ctx), scope)
	if err != nil {
		return summary, eris.Wrap(err, "reconcile: count remaining")
	}
	summary.Remaining = remaining

	log.Info("reconcile: batch done",
		zap.Int("processed", summary.Processed),
		zap.Int("failed", summary.Failed),
		zap.Int("remaining", summary.Remaining),
		zap.Int("extracted", summary.Extracted),
		zap.Int("saved", summary.Saved()),
		zap.Int("skipped", summary.Skipped),
		zap.Int("invalidated", summary.Invalidated),
	)
	return summary, cancelled
}

// reconcileOne runs the full state machine for a single observation. The
// returned error means extraction failed and the observation stays
// unprocessed; every other outcome marks it processed.
func (r *Reconciler) reconcileOne(ctx context.Context, o model.Observation, summary *model.ReconcileSummary) error {
	known, err := r.store.ListFacts(ctx, o.UserID, o.SubjectID)
	if err != nil {
		return eris.Wrapf(err, "reconcile: load facts for subject %d", o.SubjectID)
	}

	candidates, err := r.oracle.ExtractFacts(ctx, o.RenderedText, known)
	if err != nil {
		return err
	}
	summary.Extracted += len(candidates)

	if len(candidates) > 0 {
		batch := extract.ValidateBatch(candidates)
		summary.Invalid += len(batch.Invalid)
		for _, inv := range batch.Invalid {
			zap.L().Debug("reconcile: dropped invalid candidate",
				zap.Int64("observation_id", o.ID),
				zap.Strings("errors", inv.Errors),
			)
		}

		survivors := dedupe(batch.Valid)

		// Invalidation directives run before the merge so a superseding
		// fact can be written fresh in the same pass. Directives are
		// advisory fields; they apply even when the carrying candidate
		// fails fact validation.
		for _, c := range candidates {
			if c.Action != model.ActionInvalidate {
				continue
			}
			key := strings.TrimSpace(c.InvalidateKey)
			if key == "" {
				continue
			}
			n, err := r.store.InvalidateFacts(ctx, o.UserID, o.SubjectID, key)
			if err != nil {
				return eris.Wrapf(err, "reconcile: invalidate %q", key)
			}
			summary.Invalidated += int(n)
		}

		for _, c := range survivors {
			if err := r.merge(ctx, o, c, summary); err != nil {
				return err
			}
		}
	}

	if err := r.store.MarkObservationProcessed(ctx, o.ID, time.Now().UTC()); err != nil {
		return eris.Wrapf(err, "reconcile: mark observation %d processed", o.ID)
	}
	return nil
}

// dedupe collapses candidates sharing (type, lowercased key), keeping the
// highest-confidence survivor. Order of first appearance is preserved.
func dedupe(candidates []model.SanitizedFact) []model.SanitizedFact {
	best := make(map[dedupKey]int, len(candidates))
	var out []model.SanitizedFact
	for _, c := range candidates {
		k := dedupKey{Type: c.Type, Key: strings.ToLower(c.Key)}
		if i, seen := best[k]; seen {
			if c.Confidence > out[i].Confidence {
				out[i] = c
			}
			continue
		}
		best[k] = len(out)
		out = append(out, c)
	}
	return out
}

// merge applies the confidence-monotonic policy for one candidate: insert
// when absent, update when the candidate's confidence is at least the stored
// one (ties deliberately favor the newer observation), otherwise skip.
func (r *Reconciler) merge(ctx context.Context, o model.Observation, c model.SanitizedFact, summary *model.ReconcileSummary) error {
	existing, err := r.store.GetFact(ctx, o.UserID, o.SubjectID, c.Type, c.Key)
	if err != nil {
		return eris.Wrapf(err, "reconcile: lookup fact %s/%s", c.Type, c.Key)
	}

	now := time.Now().UTC()
	if existing == nil {
		fact := &model.Fact{
			UserID:        o.UserID,
			SubjectID:     o.SubjectID,
			Type:          c.Type,
			Key:           c.Key,
			Polarity:      c.Polarity,
			Confidence:    c.Confidence,
			Evidence:      c.Evidence,
			SourceEventID: o.ID,
			ExtractedAt:   now,
		}
		if err := r.store.InsertFact(ctx, fact); err != nil {
			return err
		}
		summary.Inserted++
		return nil
	}

	if c.Confidence < existing.Confidence {
		// A weaker signal never overwrites a stronger one.
		summary.Skipped++
		return nil
	}

	existing.Polarity = c.Polarity
	existing.Confidence = c.Confidence
	existing.Evidence = c.Evidence
	existing.SourceEventID = o.ID
	existing.ExtractedAt = now
	if err := r.store.UpdateFact(ctx, existing); err != nil {
		return err
	}
	summary.Updated++
	return nil
}
