package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/kindred-labs/kindred-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS subjects (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id      INTEGER NOT NULL,
	name         TEXT NOT NULL,
	company      TEXT NOT NULL DEFAULT '',
	role         TEXT NOT NULL DEFAULT '',
	relationship TEXT NOT NULL DEFAULT '',
	created_at   DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS notes (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id    INTEGER NOT NULL,
	subject_id INTEGER NOT NULL,
	title      TEXT NOT NULL DEFAULT '',
	body       TEXT NOT NULL,
	created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS calendar_events (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id     INTEGER NOT NULL,
	subject_ids TEXT NOT NULL DEFAULT '',
	title       TEXT NOT NULL,
	location    TEXT NOT NULL DEFAULT '',
	memo        TEXT NOT NULL DEFAULT '',
	starts_at   DATETIME NOT NULL,
	ends_at     DATETIME NOT NULL,
	created_at  DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS gift_records (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id      INTEGER NOT NULL,
	subject_id   INTEGER NOT NULL,
	occasion     TEXT NOT NULL DEFAULT '',
	item_name    TEXT NOT NULL,
	price        INTEGER NOT NULL DEFAULT 0,
	talked_at    DATETIME NOT NULL,
	purchased_at DATETIME,
	created_at   DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS chat_transcripts (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id     INTEGER NOT NULL,
	content     TEXT NOT NULL,
	captured_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS source_events (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id       INTEGER NOT NULL,
	record_type   TEXT NOT NULL,
	natural_key   INTEGER NOT NULL,
	subject_id    INTEGER NOT NULL,
	occurred_at   DATETIME NOT NULL,
	rendered_text TEXT NOT NULL,
	processed     INTEGER NOT NULL DEFAULT 0,
	processed_at  DATETIME,
	UNIQUE(user_id, record_type, natural_key, subject_id)
);

CREATE TABLE IF NOT EXISTS extracted_facts (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id         INTEGER NOT NULL,
	subject_id      INTEGER NOT NULL,
	fact_type       TEXT NOT NULL,
	fact_key        TEXT NOT NULL,
	polarity        INTEGER NOT NULL DEFAULT 0,
	confidence      REAL NOT NULL DEFAULT 0,
	evidence        TEXT NOT NULL DEFAULT '',
	source_event_id INTEGER NOT NULL REFERENCES source_events(id),
	extracted_at    DATETIME NOT NULL,
	UNIQUE(user_id, subject_id, fact_type, fact_key)
);

CREATE TABLE IF NOT EXISTS pipeline_runs (
	id          TEXT PRIMARY KEY,
	user_id     INTEGER NOT NULL,
	kind        TEXT NOT NULL,
	summary     TEXT,
	started_at  DATETIME NOT NULL,
	finished_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_subjects_user ON subjects(user_id);
CREATE INDEX IF NOT EXISTS idx_notes_subject ON notes(user_id, subject_id);
CREATE INDEX IF NOT EXISTS idx_gifts_subject ON gift_records(user_id, subject_id);
CREATE INDEX IF NOT EXISTS idx_source_events_unprocessed ON source_events(user_id, processed, occurred_at);
CREATE INDEX IF NOT EXISTS idx_facts_subject ON extracted_facts(user_id, subject_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- subjects ---

func (s *SQLiteStore) CreateSubject(ctx context.Context, sub *model.Subject) error {
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO subjects (user_id, name, company, role, relationship, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		sub.UserID, sub.Name, sub.Company, sub.Role, sub.Relationship, sub.CreatedAt,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: insert subject")
	}
	sub.ID, err = res.LastInsertId()
	return eris.Wrap(err, "sqlite: subject id")
}

func (s *SQLiteStore) GetSubject(ctx context.Context, userID, subjectID int64) (*model.Subject, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, company, role, relationship, created_at
		 FROM subjects WHERE user_id = ? AND id = ?`,
		userID, subjectID,
	)
	var sub model.Subject
	err := row.Scan(&sub.ID, &sub.UserID, &sub.Name, &sub.Company, &sub.Role, &sub.Relationship, &sub.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get subject %d", subjectID)
	}
	return &sub, nil
}

func (s *SQLiteStore) ListSubjects(ctx context.Context, userID int64) ([]model.Subject, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, name, company, role, relationship, created_at
		 FROM subjects WHERE user_id = ? ORDER BY id`,
		userID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list subjects")
	}
	defer rows.Close()

	var subjects []model.Subject
	for rows.Next() {
		var sub model.Subject
		if err := rows.Scan(&sub.ID, &sub.UserID, &sub.Name, &sub.Company, &sub.Role, &sub.Relationship, &sub.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan subject")
		}
		subjects = append(subjects, sub)
	}
	return subjects, eris.Wrap(rows.Err(), "sqlite: list subjects iterate")
}

// --- raw records ---

func (s *SQLiteStore) CreateNote(ctx context.Context, n *model.Note) error {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO notes (user_id, subject_id, title, body, created_at) VALUES (?, ?, ?, ?, ?)`,
		n.UserID, n.SubjectID, n.Title, n.Body, n.CreatedAt,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: insert note")
	}
	n.ID, err = res.LastInsertId()
	return eris.Wrap(err, "sqlite: note id")
}

func (s *SQLiteStore) CreateEvent(ctx context.Context, e *model.CalendarEvent) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO calendar_events (user_id, subject_ids, title, location, memo, starts_at, ends_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.UserID, e.SubjectIDs, e.Title, e.Location, e.Memo, e.StartsAt, e.EndsAt, e.CreatedAt,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: insert event")
	}
	e.ID, err = res.LastInsertId()
	return eris.Wrap(err, "sqlite: event id")
}

func (s *SQLiteStore) CreateGift(ctx context.Context, g *model.GiftRecord) error {
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO gift_records (user_id, subject_id, occasion, item_name, price, talked_at, purchased_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		g.UserID, g.SubjectID, g.Occasion, g.ItemName, g.Price, g.TalkedAt, g.PurchasedAt, g.CreatedAt,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: insert gift")
	}
	g.ID, err = res.LastInsertId()
	return eris.Wrap(err, "sqlite: gift id")
}

func (s *SQLiteStore) CreateChat(ctx context.Context, c *model.ChatTranscript) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO chat_transcripts (user_id, content, captured_at) VALUES (?, ?, ?)`,
		c.UserID, c.Content, c.CapturedAt,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: insert chat")
	}
	c.ID, err = res.LastInsertId()
	return eris.Wrap(err, "sqlite: chat id")
}

// scopeClause appends subject and cutoff filters for a record table with an
// explicit subject_id column.
func scopeClause(scope model.Scope, withSubject bool) (string, []any) {
	clause := ` WHERE user_id = ?`
	args := []any{scope.UserID}
	if withSubject && len(scope.SubjectIDs) > 0 {
		clause += ` AND subject_id IN (`
		for i, id := range scope.SubjectIDs {
			if i > 0 {
				clause += `,`
			}
			clause += `?`
			args = append(args, id)
		}
		clause += `)`
	}
	if scope.CreatedAfter != nil {
		clause += ` AND created_at > ?`
		args = append(args, *scope.CreatedAfter)
	}
	return clause, args
}

func (s *SQLiteStore) ListNotes(ctx context.Context, scope model.Scope) ([]model.Note, error) {
	clause, args := scopeClause(scope, true)
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, subject_id, title, body, created_at FROM notes`+clause+` ORDER BY id`, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list notes")
	}
	defer rows.Close()

	var notes []model.Note
	for rows.Next() {
		var n model.Note
		if err := rows.Scan(&n.ID, &n.UserID, &n.SubjectID, &n.Title, &n.Body, &n.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan note")
		}
		notes = append(notes, n)
	}
	return notes, eris.Wrap(rows.Err(), "sqlite: list notes iterate")
}

func (s *SQLiteStore) ListEvents(ctx context.Context, scope model.Scope) ([]model.CalendarEvent, error) {
	// Events carry a comma-separated link field, so subject filtering
	// happens in the materializer after fan-out.
	clause, args := scopeClause(scope, false)
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, subject_ids, title, location, memo, starts_at, ends_at, created_at
		 FROM calendar_events`+clause+` ORDER BY id`, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list events")
	}
	defer rows.Close()

	var events []model.CalendarEvent
	for rows.Next() {
		var e model.CalendarEvent
		if err := rows.Scan(&e.ID, &e.UserID, &e.SubjectIDs, &e.Title, &e.Location, &e.Memo, &e.StartsAt, &e.EndsAt, &e.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan event")
		}
		events = append(events, e)
	}
	return events, eris.Wrap(rows.Err(), "sqlite: list events iterate")
}

func (s *SQLiteStore) ListGifts(ctx context.Context, scope model.Scope) ([]model.GiftRecord, error) {
	clause, args := scopeClause(scope, true)
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, subject_id, occasion, item_name, price, talked_at, purchased_at, created_at
		 FROM gift_records`+clause+` ORDER BY id`, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list gifts")
	}
	defer rows.Close()

	var gifts []model.GiftRecord
	for rows.Next() {
		var g model.GiftRecord
		if err := rows.Scan(&g.ID, &g.UserID, &g.SubjectID, &g.Occasion, &g.ItemName, &g.Price, &g.TalkedAt, &g.PurchasedAt, &g.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan gift")
		}
		gifts = append(gifts, g)
	}
	return gifts, eris.Wrap(rows.Err(), "sqlite: list gifts iterate")
}

func (s *SQLiteStore) ListChats(ctx context.Context, scope model.Scope) ([]model.ChatTranscript, error) {
	query := `SELECT id, user_id, content, captured_at FROM chat_transcripts WHERE user_id = ?`
	args := []any{scope.UserID}
	if scope.CreatedAfter != nil {
		query += ` AND captured_at > ?`
		args = append(args, *scope.CreatedAfter)
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list chats")
	}
	defer rows.Close()

	var chats []model.ChatTranscript
	for rows.Next() {
		var c model.ChatTranscript
		if err := rows.Scan(&c.ID, &c.UserID, &c.Content, &c.CapturedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan chat")
		}
		chats = append(chats, c)
	}
	return chats, eris.Wrap(rows.Err(), "sqlite: list chats iterate")
}

// --- observations ---

func (s *SQLiteStore) UpsertObservations(ctx context.Context, obs []model.Observation) (int, error) {
	if len(obs) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin upsert tx")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO source_events (user_id, record_type, natural_key, subject_id, occurred_at, rendered_text)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, record_type, natural_key, subject_id)
		DO UPDATE SET rendered_text = excluded.rendered_text, occurred_at = excluded.occurred_at`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare upsert")
	}
	defer stmt.Close()

	for _, o := range obs {
		if _, err := stmt.ExecContext(ctx,
			o.UserID, string(o.RecordType), o.NaturalKey, o.SubjectID, o.OccurredAt, o.RenderedText,
		); err != nil {
			return 0, eris.Wrapf(err, "sqlite: upsert observation %s/%d/%d", o.RecordType, o.NaturalKey, o.SubjectID)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit upsert tx")
	}
	return len(obs), nil
}

const observationColumns = `id, user_id, record_type, natural_key, subject_id, occurred_at, rendered_text, processed, processed_at`

func scanObservation(rows *sql.Rows) (model.Observation, error) {
	var o model.Observation
	var recordType string
	err := rows.Scan(&o.ID, &o.UserID, &recordType, &o.NaturalKey, &o.SubjectID, &o.OccurredAt, &o.RenderedText, &o.Processed, &o.ProcessedAt)
	o.RecordType = model.RecordType(recordType)
	return o, err
}

func (s *SQLiteStore) ListObservations(ctx context.Context, userID int64) ([]model.Observation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+observationColumns+` FROM source_events WHERE user_id = ? ORDER BY occurred_at, id`,
		userID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list observations")
	}
	defer rows.Close()
	return collectObservations(rows)
}

func (s *SQLiteStore) ListUnprocessedObservations(ctx context.Context, scope model.Scope, limit int) ([]model.Observation, error) {
	query := `SELECT ` + observationColumns + ` FROM source_events WHERE user_id = ? AND processed = 0`
	args := []any{scope.UserID}
	if len(scope.SubjectIDs) > 0 {
		query += ` AND subject_id IN (`
		for i, id := range scope.SubjectIDs {
			if i > 0 {
				query += `,`
			}
			query += `?`
			args = append(args, id)
		}
		query += `)`
	}
	query += ` ORDER BY occurred_at, id`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list unprocessed observations")
	}
	defer rows.Close()
	return collectObservations(rows)
}

func collectObservations(rows *sql.Rows) ([]model.Observation, error) {
	var obs []model.Observation
	for rows.Next() {
		o, err := scanObservation(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan observation")
		}
		obs = append(obs, o)
	}
	return obs, eris.Wrap(rows.Err(), "sqlite: observations iterate")
}

func (s *SQLiteStore) CountUnprocessedObservations(ctx context.Context, scope model.Scope) (int, error) {
	query := `SELECT COUNT(*) FROM source_events WHERE user_id = ? AND processed = 0`
	args := []any{scope.UserID}
	if len(scope.SubjectIDs) > 0 {
		query += ` AND subject_id IN (`
		for i, id := range scope.SubjectIDs {
			if i > 0 {
				query += `,`
			}
			query += `?`
			args = append(args, id)
		}
		query += `)`
	}
	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, eris.Wrap(err, "sqlite: count unprocessed observations")
	}
	return n, nil
}

func (s *SQLiteStore) MarkObservationProcessed(ctx context.Context, observationID int64, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE source_events SET processed = 1, processed_at = ? WHERE id = ?`,
		at, observationID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: mark observation %d processed", observationID)
	}
	return checkRowsAffected(res, "observation", observationID)
}

func (s *SQLiteStore) DeleteOrphanObservations(ctx context.Context, userID int64) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM source_events
		 WHERE user_id = ?
		 AND subject_id NOT IN (SELECT id FROM subjects WHERE user_id = ?)`,
		userID, userID,
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete orphan observations")
	}
	n, err := res.RowsAffected()
	return n, eris.Wrap(err, "sqlite: orphan rows affected")
}

// --- facts ---

const factColumns = `id, user_id, subject_id, fact_type, fact_key, polarity, confidence, evidence, source_event_id, extracted_at`

func (s *SQLiteStore) ListFacts(ctx context.Context, userID, subjectID int64) ([]model.Fact, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+factColumns+` FROM extracted_facts WHERE user_id = ? AND subject_id = ? ORDER BY fact_type, fact_key`,
		userID, subjectID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list facts")
	}
	defer rows.Close()

	var facts []model.Fact
	for rows.Next() {
		var f model.Fact
		var factType string
		if err := rows.Scan(&f.ID, &f.UserID, &f.SubjectID, &factType, &f.Key, &f.Polarity, &f.Confidence, &f.Evidence, &f.SourceEventID, &f.ExtractedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan fact")
		}
		f.Type = model.FactType(factType)
		facts = append(facts, f)
	}
	return facts, eris.Wrap(rows.Err(), "sqlite: list facts iterate")
}

func (s *SQLiteStore) GetFact(ctx context.Context, userID, subjectID int64, factType model.FactType, key string) (*model.Fact, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+factColumns+` FROM extracted_facts
		 WHERE user_id = ? AND subject_id = ? AND fact_type = ? AND fact_key = ?`,
		userID, subjectID, string(factType), key,
	)
	var f model.Fact
	var ft string
	err := row.Scan(&f.ID, &f.UserID, &f.SubjectID, &ft, &f.Key, &f.Polarity, &f.Confidence, &f.Evidence, &f.SourceEventID, &f.ExtractedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get fact %s/%s", factType, key)
	}
	f.Type = model.FactType(ft)
	return &f, nil
}

func (s *SQLiteStore) InsertFact(ctx context.Context, f *model.Fact) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO extracted_facts (user_id, subject_id, fact_type, fact_key, polarity, confidence, evidence, source_event_id, extracted_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.UserID, f.SubjectID, string(f.Type), f.Key, f.Polarity, f.Confidence, f.Evidence, f.SourceEventID, f.ExtractedAt,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: insert fact %s/%s", f.Type, f.Key)
	}
	f.ID, err = res.LastInsertId()
	return eris.Wrap(err, "sqlite: fact id")
}

func (s *SQLiteStore) UpdateFact(ctx context.Context, f *model.Fact) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE extracted_facts
		 SET polarity = ?, confidence = ?, evidence = ?, source_event_id = ?, extracted_at = ?
		 WHERE id = ?`,
		f.Polarity, f.Confidence, f.Evidence, f.SourceEventID, f.ExtractedAt, f.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update fact %d", f.ID)
	}
	return checkRowsAffected(res, "fact", f.ID)
}

func (s *SQLiteStore) InvalidateFacts(ctx context.Context, userID, subjectID int64, key string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE extracted_facts SET confidence = 0
		 WHERE user_id = ? AND subject_id = ? AND LOWER(fact_key) = LOWER(?) AND confidence > 0`,
		userID, subjectID, key,
	)
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: invalidate facts %q", key)
	}
	n, err := res.RowsAffected()
	return n, eris.Wrap(err, "sqlite: invalidate rows affected")
}

// --- runs ---

func (s *SQLiteStore) CreateRun(ctx context.Context, userID int64, kind model.RunKind) (*model.PipelineRun, error) {
	run := &model.PipelineRun{
		ID:        uuid.New().String(),
		UserID:    userID,
		Kind:      kind,
		StartedAt: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO pipeline_runs (id, user_id, kind, started_at) VALUES (?, ?, ?, ?)`,
		run.ID, run.UserID, string(run.Kind), run.StartedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}
	return run, nil
}

func (s *SQLiteStore) CompleteRun(ctx context.Context, runID string, summary model.RunSummary) error {
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal run summary")
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE pipeline_runs SET summary = ?, finished_at = ? WHERE id = ?`,
		string(summaryJSON), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete run %s", runID)
	}
	return checkRowsAffectedStr(res, "run", runID)
}

// --- helpers ---

func checkRowsAffected(res sql.Result, kind string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrapf(err, "sqlite: %s rows affected", kind)
	}
	if n == 0 {
		return eris.Errorf("sqlite: %s %d not found", kind, id)
	}
	return nil
}

func checkRowsAffectedStr(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrapf(err, "sqlite: %s rows affected", kind)
	}
	if n == 0 {
		return eris.Errorf("sqlite: %s %s not found", kind, id)
	}
	return nil
}
