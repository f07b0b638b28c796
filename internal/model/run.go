package model

import "time"

// RunKind names a trigger-surface operation.
type RunKind string

const (
	RunSeed        RunKind = "seed"
	RunMaterialize RunKind = "materialize"
	RunReconcile   RunKind = "reconcile"
	RunAll         RunKind = "run_all"
)

// SeedSummary counts rows written by the seeder.
type SeedSummary struct {
	Subjects int `json:"subjects"`
	Notes    int `json:"notes"`
	Events   int `json:"events"`
	Gifts    int `json:"gifts"`
	Chats    int `json:"chats"`
}

// MaterializeSummary counts the work done by one materialization run.
type MaterializeSummary struct {
	Subjects     int `json:"subjects"`
	Notes        int `json:"notes"`
	Events       int `json:"events"`
	Gifts        int `json:"gifts"`
	Chats        int `json:"chats"`
	Observations int `json:"observations"`
	Skipped      int `json:"skipped"`
}

// ReconcileSummary counts the outcomes of one reconciliation run. Remaining
// is how many observations are still unprocessed afterwards; a later run
// picks those up.
type ReconcileSummary struct {
	Processed   int `json:"processed"`
	Failed      int `json:"failed"`
	Remaining   int `json:"remaining"`
	Extracted   int `json:"extracted"`
	Invalid     int `json:"invalid"`
	Inserted    int `json:"inserted"`
	Updated     int `json:"updated"`
	Skipped     int `json:"skipped"`
	Invalidated int `json:"invalidated"`
}

// Saved is the number of facts that reached the store (insert or update).
func (s ReconcileSummary) Saved() int { return s.Inserted + s.Updated }

// RunSummary aggregates per-phase counts for the trigger surface.
type RunSummary struct {
	Seed        *SeedSummary        `json:"seed,omitempty"`
	Materialize *MaterializeSummary `json:"materialize,omitempty"`
	Reconcile   *ReconcileSummary   `json:"reconcile,omitempty"`
}

// PipelineRun is the persisted record of one trigger-surface invocation.
type PipelineRun struct {
	ID         string     `json:"id"`
	UserID     int64      `json:"user_id"`
	Kind       RunKind    `json:"kind"`
	Summary    RunSummary `json:"summary"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}
