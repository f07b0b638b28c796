package main

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/rotisserie/eris"

	"github.com/kindred-labs/kindred-cli/internal/extract"
	"github.com/kindred-labs/kindred-cli/internal/materialize"
	"github.com/kindred-labs/kindred-cli/internal/model"
	"github.com/kindred-labs/kindred-cli/internal/pipeline"
	"github.com/kindred-labs/kindred-cli/internal/reconcile"
	"github.com/kindred-labs/kindred-cli/internal/seed"
	"github.com/kindred-labs/kindred-cli/internal/store"
	"github.com/kindred-labs/kindred-cli/internal/timeline"
	anthropicpkg "github.com/kindred-labs/kindred-cli/pkg/anthropic"
)

// historyMonths is how far back synthetic seed timelines start.
const historyMonths = 3

// appEnv bundles the wired pipeline for one command invocation.
type appEnv struct {
	store  store.Store
	oracle extract.Oracle
	pipe   *pipeline.Pipeline
}

func (e *appEnv) Close() {
	_ = e.store.Close()
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "kindred.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initEnv opens the store, runs migrations, and wires the pipeline. Commands
// that call the oracle pass needOracle so a missing API key fails up front
// rather than mid-batch.
func initEnv(ctx context.Context, needOracle bool) (*appEnv, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	var oracle extract.Oracle
	if cfg.Anthropic.Key != "" {
		oracle = extract.NewExtractor(anthropicpkg.NewClient(cfg.Anthropic.Key), cfg.Anthropic)
	}
	if needOracle && oracle == nil {
		_ = st.Close()
		return nil, eris.New("anthropic API key is required (KINDRED_ANTHROPIC_KEY)")
	}

	tl := timeline.New(cfg.Timeline, time.Now().AddDate(0, -historyMonths, 0))
	seeder := seed.New(st, tl)
	materializer := materialize.New(st)
	reconciler := reconcile.New(st, oracle, cfg.Pipeline.OraclePause(), cfg.Pipeline.BatchLimit)

	return &appEnv{
		store:  st,
		oracle: oracle,
		pipe:   pipeline.New(st, seeder, materializer, reconciler),
	}, nil
}

func buildScope(subjectIDs []int64) model.Scope {
	return model.Scope{
		UserID:     cfg.Pipeline.UserID,
		SubjectIDs: subjectIDs,
	}
}

// loadScenario resolves the scenario for seed/run commands: a YAML file,
// an oracle-generated one, or the built-in default.
func loadScenario(ctx context.Context, env *appEnv, path, hint string, generate bool) (*seed.Scenario, error) {
	switch {
	case path != "":
		return seed.LoadScenario(path)
	case generate:
		if env.oracle == nil {
			return nil, eris.New("--generate requires an anthropic API key (KINDRED_ANTHROPIC_KEY)")
		}
		return seed.GenerateScenario(ctx, env.oracle, hint)
	default:
		return seed.DefaultScenario(), nil
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
