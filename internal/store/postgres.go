package store

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/kindred-labs/kindred-cli/internal/db"
	"github.com/kindred-labs/kindred-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool db.Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS subjects (
	id           BIGSERIAL PRIMARY KEY,
	user_id      BIGINT NOT NULL,
	name         TEXT NOT NULL,
	company      TEXT NOT NULL DEFAULT '',
	role         TEXT NOT NULL DEFAULT '',
	relationship TEXT NOT NULL DEFAULT '',
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS notes (
	id         BIGSERIAL PRIMARY KEY,
	user_id    BIGINT NOT NULL,
	subject_id BIGINT NOT NULL,
	title      TEXT NOT NULL DEFAULT '',
	body       TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS calendar_events (
	id          BIGSERIAL PRIMARY KEY,
	user_id     BIGINT NOT NULL,
	subject_ids TEXT NOT NULL DEFAULT '',
	title       TEXT NOT NULL,
	location    TEXT NOT NULL DEFAULT '',
	memo        TEXT NOT NULL DEFAULT '',
	starts_at   TIMESTAMPTZ NOT NULL,
	ends_at     TIMESTAMPTZ NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS gift_records (
	id           BIGSERIAL PRIMARY KEY,
	user_id      BIGINT NOT NULL,
	subject_id   BIGINT NOT NULL,
	occasion     TEXT NOT NULL DEFAULT '',
	item_name    TEXT NOT NULL,
	price        BIGINT NOT NULL DEFAULT 0,
	talked_at    TIMESTAMPTZ NOT NULL,
	purchased_at TIMESTAMPTZ,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS chat_transcripts (
	id          BIGSERIAL PRIMARY KEY,
	user_id     BIGINT NOT NULL,
	content     TEXT NOT NULL,
	captured_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS source_events (
	id            BIGSERIAL PRIMARY KEY,
	user_id       BIGINT NOT NULL,
	record_type   TEXT NOT NULL,
	natural_key   BIGINT NOT NULL,
	subject_id    BIGINT NOT NULL,
	occurred_at   TIMESTAMPTZ NOT NULL,
	rendered_text TEXT NOT NULL,
	processed     BOOLEAN NOT NULL DEFAULT false,
	processed_at  TIMESTAMPTZ,
	UNIQUE(user_id, record_type, natural_key, subject_id)
);

CREATE TABLE IF NOT EXISTS extracted_facts (
	id              BIGSERIAL PRIMARY KEY,
	user_id         BIGINT NOT NULL,
	subject_id      BIGINT NOT NULL,
	fact_type       TEXT NOT NULL,
	fact_key        TEXT NOT NULL,
	polarity        INT NOT NULL DEFAULT 0,
	confidence      DOUBLE PRECISION NOT NULL DEFAULT 0,
	evidence        TEXT NOT NULL DEFAULT '',
	source_event_id BIGINT NOT NULL REFERENCES source_events(id),
	extracted_at    TIMESTAMPTZ NOT NULL,
	UNIQUE(user_id, subject_id, fact_type, fact_key)
);

CREATE TABLE IF NOT EXISTS pipeline_runs (
	id          TEXT PRIMARY KEY,
	user_id     BIGINT NOT NULL,
	kind        TEXT NOT NULL,
	summary     JSONB,
	started_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	finished_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_subjects_user ON subjects(user_id);
CREATE INDEX IF NOT EXISTS idx_notes_subject ON notes(user_id, subject_id);
CREATE INDEX IF NOT EXISTS idx_gifts_subject ON gift_records(user_id, subject_id);
CREATE INDEX IF NOT EXISTS idx_source_events_unprocessed ON source_events(user_id, processed, occurred_at);
CREATE INDEX IF NOT EXISTS idx_facts_subject ON extracted_facts(user_id, subject_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// --- subjects ---

func (s *PostgresStore) CreateSubject(ctx context.Context, sub *model.Subject) error {
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now().UTC()
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO subjects (user_id, name, company, role, relationship, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		sub.UserID, sub.Name, sub.Company, sub.Role, sub.Relationship, sub.CreatedAt,
	).Scan(&sub.ID)
	return eris.Wrap(err, "postgres: insert subject")
}

func (s *PostgresStore) GetSubject(ctx context.Context, userID, subjectID int64) (*model.Subject, error) {
	var sub model.Subject
	err := s.pool.QueryRow(ctx,
		`SELECT id, user_id, name, company, role, relationship, created_at
		 FROM subjects WHERE user_id = $1 AND id = $2`,
		userID, subjectID,
	).Scan(&sub.ID, &sub.UserID, &sub.Name, &sub.Company, &sub.Role, &sub.Relationship, &sub.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get subject %d", subjectID)
	}
	return &sub, nil
}

func (s *PostgresStore) ListSubjects(ctx context.Context, userID int64) ([]model.Subject, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, name, company, role, relationship, created_at
		 FROM subjects WHERE user_id = $1 ORDER BY id`,
		userID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list subjects")
	}
	defer rows.Close()

	var subjects []model.Subject
	for rows.Next() {
		var sub model.Subject
		if err := rows.Scan(&sub.ID, &sub.UserID, &sub.Name, &sub.Company, &sub.Role, &sub.Relationship, &sub.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan subject")
		}
		subjects = append(subjects, sub)
	}
	return subjects, eris.Wrap(rows.Err(), "postgres: list subjects iterate")
}

// --- raw records ---

func (s *PostgresStore) CreateNote(ctx context.Context, n *model.Note) error {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO notes (user_id, subject_id, title, body, created_at)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		n.UserID, n.SubjectID, n.Title, n.Body, n.CreatedAt,
	).Scan(&n.ID)
	return eris.Wrap(err, "postgres: insert note")
}

func (s *PostgresStore) CreateEvent(ctx context.Context, e *model.CalendarEvent) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO calendar_events (user_id, subject_ids, title, location, memo, starts_at, ends_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
		e.UserID, e.SubjectIDs, e.Title, e.Location, e.Memo, e.StartsAt, e.EndsAt, e.CreatedAt,
	).Scan(&e.ID)
	return eris.Wrap(err, "postgres: insert event")
}

func (s *PostgresStore) CreateGift(ctx context.Context, g *model.GiftRecord) error {
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now().UTC()
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO gift_records (user_id, subject_id, occasion, item_name, price, talked_at, purchased_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
		g.UserID, g.SubjectID, g.Occasion, g.ItemName, g.Price, g.TalkedAt, g.PurchasedAt, g.CreatedAt,
	).Scan(&g.ID)
	return eris.Wrap(err, "postgres: insert gift")
}

func (s *PostgresStore) CreateChat(ctx context.Context, c *model.ChatTranscript) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO chat_transcripts (user_id, content, captured_at)
		 VALUES ($1, $2, $3) RETURNING id`,
		c.UserID, c.Content, c.CapturedAt,
	).Scan(&c.ID)
	return eris.Wrap(err, "postgres: insert chat")
}

// pgScopeClause builds WHERE filters for a record table. Placeholders start
// at $1; the returned args line up.
func pgScopeClause(scope model.Scope, withSubject bool) (string, []any) {
	clause := ` WHERE user_id = $1`
	args := []any{scope.UserID}
	if withSubject && len(scope.SubjectIDs) > 0 {
		args = append(args, scope.SubjectIDs)
		clause += ` AND subject_id = ANY($` + strconv.Itoa(len(args)) + `)`
	}
	if scope.CreatedAfter != nil {
		args = append(args, *scope.CreatedAfter)
		clause += ` AND created_at > $` + strconv.Itoa(len(args))
	}
	return clause, args
}

func (s *PostgresStore) ListNotes(ctx context.Context, scope model.Scope) ([]model.Note, error) {
	clause, args := pgScopeClause(scope, true)
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, subject_id, title, body, created_at FROM notes`+clause+` ORDER BY id`, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list notes")
	}
	defer rows.Close()

	var notes []model.Note
	for rows.Next() {
		var n model.Note
		if err := rows.Scan(&n.ID, &n.UserID, &n.SubjectID, &n.Title, &n.Body, &n.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan note")
		}
		notes = append(notes, n)
	}
	return notes, eris.Wrap(rows.Err(), "postgres: list notes iterate")
}

func (s *PostgresStore) ListEvents(ctx context.Context, scope model.Scope) ([]model.CalendarEvent, error) {
	clause, args := pgScopeClause(scope, false)
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, subject_ids, title, location, memo, starts_at, ends_at, created_at
		 FROM calendar_events`+clause+` ORDER BY id`, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list events")
	}
	defer rows.Close()

	var events []model.CalendarEvent
	for rows.Next() {
		var e model.CalendarEvent
		if err := rows.Scan(&e.ID, &e.UserID, &e.SubjectIDs, &e.Title, &e.Location, &e.Memo, &e.StartsAt, &e.EndsAt, &e.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan event")
		}
		events = append(events, e)
	}
	return events, eris.Wrap(rows.Err(), "postgres: list events iterate")
}

func (s *PostgresStore) ListGifts(ctx context.Context, scope model.Scope) ([]model.GiftRecord, error) {
	clause, args := pgScopeClause(scope, true)
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, subject_id, occasion, item_name, price, talked_at, purchased_at, created_at
		 FROM gift_records`+clause+` ORDER BY id`, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list gifts")
	}
	defer rows.Close()

	var gifts []model.GiftRecord
	for rows.Next() {
		var g model.GiftRecord
		if err := rows.Scan(&g.ID, &g.UserID, &g.SubjectID, &g.Occasion, &g.ItemName, &g.Price, &g.TalkedAt, &g.PurchasedAt, &g.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan gift")
		}
		gifts = append(gifts, g)
	}
	return gifts, eris.Wrap(rows.Err(), "postgres: list gifts iterate")
}

func (s *PostgresStore) ListChats(ctx context.Context, scope model.Scope) ([]model.ChatTranscript, error) {
	query := `SELECT id, user_id, content, captured_at FROM chat_transcripts WHERE user_id = $1`
	args := []any{scope.UserID}
	if scope.CreatedAfter != nil {
		args = append(args, *scope.CreatedAfter)
		query += ` AND captured_at > $2`
	}
	query += ` ORDER BY id`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list chats")
	}
	defer rows.Close()

	var chats []model.ChatTranscript
	for rows.Next() {
		var c model.ChatTranscript
		if err := rows.Scan(&c.ID, &c.UserID, &c.Content, &c.CapturedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan chat")
		}
		chats = append(chats, c)
	}
	return chats, eris.Wrap(rows.Err(), "postgres: list chats iterate")
}

// --- observations ---

// observationUpsertCols are the columns the materializer owns. The processed
// flag is deliberately absent so upserts never disturb it.
var observationUpsertCols = []string{"user_id", "record_type", "natural_key", "subject_id", "occurred_at", "rendered_text"}

func (s *PostgresStore) UpsertObservations(ctx context.Context, obs []model.Observation) (int, error) {
	rows := make([][]any, len(obs))
	for i, o := range obs {
		rows[i] = []any{o.UserID, string(o.RecordType), o.NaturalKey, o.SubjectID, o.OccurredAt, o.RenderedText}
	}
	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "source_events",
		Columns:      observationUpsertCols,
		ConflictKeys: []string{"user_id", "record_type", "natural_key", "subject_id"},
	}, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: upsert observations")
	}
	return int(n), nil
}

const pgObservationColumns = `id, user_id, record_type, natural_key, subject_id, occurred_at, rendered_text, processed, processed_at`

func (s *PostgresStore) ListObservations(ctx context.Context, userID int64) ([]model.Observation, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+pgObservationColumns+` FROM source_events WHERE user_id = $1 ORDER BY occurred_at, id`,
		userID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list observations")
	}
	defer rows.Close()
	return pgCollectObservations(rows)
}

func (s *PostgresStore) ListUnprocessedObservations(ctx context.Context, scope model.Scope, limit int) ([]model.Observation, error) {
	query := `SELECT ` + pgObservationColumns + ` FROM source_events WHERE user_id = $1 AND processed = false`
	args := []any{scope.UserID}
	if len(scope.SubjectIDs) > 0 {
		args = append(args, scope.SubjectIDs)
		query += ` AND subject_id = ANY($` + strconv.Itoa(len(args)) + `)`
	}
	query += ` ORDER BY occurred_at, id`
	if limit > 0 {
		args = append(args, limit)
		query += ` LIMIT $` + strconv.Itoa(len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list unprocessed observations")
	}
	defer rows.Close()
	return pgCollectObservations(rows)
}

func pgCollectObservations(rows pgx.Rows) ([]model.Observation, error) {
	var obs []model.Observation
	for rows.Next() {
		var o model.Observation
		var recordType string
		if err := rows.Scan(&o.ID, &o.UserID, &recordType, &o.NaturalKey, &o.SubjectID, &o.OccurredAt, &o.RenderedText, &o.Processed, &o.ProcessedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan observation")
		}
		o.RecordType = model.RecordType(recordType)
		obs = append(obs, o)
	}
	return obs, eris.Wrap(rows.Err(), "postgres: observations iterate")
}

func (s *PostgresStore) CountUnprocessedObservations(ctx context.Context, scope model.Scope) (int, error) {
	query := `SELECT COUNT(*) FROM source_events WHERE user_id = $1 AND processed = false`
	args := []any{scope.UserID}
	if len(scope.SubjectIDs) > 0 {
		args = append(args, scope.SubjectIDs)
		query += ` AND subject_id = ANY($2)`
	}
	var n int
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, eris.Wrap(err, "postgres: count unprocessed observations")
	}
	return n, nil
}

func (s *PostgresStore) MarkObservationProcessed(ctx context.Context, observationID int64, at time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE source_events SET processed = true, processed_at = $1 WHERE id = $2`,
		at, observationID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: mark observation %d processed", observationID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: observation %d not found", observationID)
	}
	return nil
}

func (s *PostgresStore) DeleteOrphanObservations(ctx context.Context, userID int64) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM source_events
		 WHERE user_id = $1
		 AND subject_id NOT IN (SELECT id FROM subjects WHERE user_id = $1)`,
		userID,
	)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: delete orphan observations")
	}
	return tag.RowsAffected(), nil
}

// --- facts ---

const pgFactColumns = `id, user_id, subject_id, fact_type, fact_key, polarity, confidence, evidence, source_event_id, extracted_at`

func (s *PostgresStore) ListFacts(ctx context.Context, userID, subjectID int64) ([]model.Fact, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+pgFactColumns+` FROM extracted_facts WHERE user_id = $1 AND subject_id = $2 ORDER BY fact_type, fact_key`,
		userID, subjectID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list facts")
	}
	defer rows.Close()

	var facts []model.Fact
	for rows.Next() {
		var f model.Fact
		var factType string
		if err := rows.Scan(&f.ID, &f.UserID, &f.SubjectID, &factType, &f.Key, &f.Polarity, &f.Confidence, &f.Evidence, &f.SourceEventID, &f.ExtractedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan fact")
		}
		f.Type = model.FactType(factType)
		facts = append(facts, f)
	}
	return facts, eris.Wrap(rows.Err(), "postgres: list facts iterate")
}

func (s *PostgresStore) GetFact(ctx context.Context, userID, subjectID int64, factType model.FactType, key string) (*model.Fact, error) {
	var f model.Fact
	var ft string
	err := s.pool.QueryRow(ctx,
		`SELECT `+pgFactColumns+` FROM extracted_facts
		 WHERE user_id = $1 AND subject_id = $2 AND fact_type = $3 AND fact_key = $4`,
		userID, subjectID, string(factType), key,
	).Scan(&f.ID, &f.UserID, &f.SubjectID, &ft, &f.Key, &f.Polarity, &f.Confidence, &f.Evidence, &f.SourceEventID, &f.ExtractedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get fact %s/%s", factType, key)
	}
	f.Type = model.FactType(ft)
	return &f, nil
}

func (s *PostgresStore) InsertFact(ctx context.Context, f *model.Fact) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO extracted_facts (user_id, subject_id, fact_type, fact_key, polarity, confidence, evidence, source_event_id, extracted_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`,
		f.UserID, f.SubjectID, string(f.Type), f.Key, f.Polarity, f.Confidence, f.Evidence, f.SourceEventID, f.ExtractedAt,
	).Scan(&f.ID)
	return eris.Wrapf(err, "postgres: insert fact %s/%s", f.Type, f.Key)
}

func (s *PostgresStore) UpdateFact(ctx context.Context, f *model.Fact) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE extracted_facts
		 SET polarity = $1, confidence = $2, evidence = $3, source_event_id = $4, extracted_at = $5
		 WHERE id = $6`,
		f.Polarity, f.Confidence, f.Evidence, f.SourceEventID, f.ExtractedAt, f.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update fact %d", f.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: fact %d not found", f.ID)
	}
	return nil
}

func (s *PostgresStore) InvalidateFacts(ctx context.Context, userID, subjectID int64, key string) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE extracted_facts SET confidence = 0
		 WHERE user_id = $1 AND subject_id = $2 AND LOWER(fact_key) = LOWER($3) AND confidence > 0`,
		userID, subjectID, key,
	)
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: invalidate facts %q", key)
	}
	return tag.RowsAffected(), nil
}

// --- runs ---

func (s *PostgresStore) CreateRun(ctx context.Context, userID int64, kind model.RunKind) (*model.PipelineRun, error) {
	run := &model.PipelineRun{
		ID:        uuid.New().String(),
		UserID:    userID,
		Kind:      kind,
		StartedAt: time.Now().UTC(),
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO pipeline_runs (id, user_id, kind, started_at) VALUES ($1, $2, $3, $4)`,
		run.ID, run.UserID, string(run.Kind), run.StartedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}
	return run, nil
}

func (s *PostgresStore) CompleteRun(ctx context.Context, runID string, summary model.RunSummary) error {
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal run summary")
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE pipeline_runs SET summary = $1, finished_at = $2 WHERE id = $3`,
		summaryJSON, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: run %s not found", runID)
	}
	return nil
}
