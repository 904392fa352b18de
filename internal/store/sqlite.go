package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/catalog-reconcile/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

var _ Store = (*SQLiteStore)(nil)

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
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

// WithClock replaces the wall clock used for timestamps and TTL checks.
func (s *SQLiteStore) WithClock(now func() time.Time) *SQLiteStore {
	s.now = now
	return s
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	status      TEXT NOT NULL DEFAULT 'running',
	summary     TEXT,
	error       TEXT,
	started_at  DATETIME NOT NULL,
	finished_at DATETIME
);

CREATE TABLE IF NOT EXISTS manifest (
	folder_id  TEXT PRIMARY KEY,
	scanned_at DATETIME NOT NULL,
	sheets     TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context) (*model.Run, error) {
	id := uuid.New().String()
	now := s.now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, status, started_at) VALUES (?, ?, ?)`,
		id, string(model.RunStatusRunning), now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}

	return &model.Run{
		ID:        id,
		Status:    model.RunStatusRunning,
		StartedAt: now,
	}, nil
}

func (s *SQLiteStore) CompleteRun(ctx context.Context, runID string, summary *model.RunSummary) error {
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal summary")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, summary = ?, finished_at = ? WHERE id = ?`,
		string(model.RunStatusComplete), string(summaryJSON), s.now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) FailRun(ctx context.Context, runID string, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, error = ?, finished_at = ? WHERE id = ?`,
		string(model.RunStatusFailed), msg, s.now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: fail run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, status, summary, error, started_at, finished_at FROM runs WHERE id = ?`,
		runID,
	)
	return scanRun(row)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, status, summary, error, started_at, finished_at FROM runs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY started_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close() //nolint:errcheck

	var runs []model.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func (s *SQLiteStore) GetManifest(ctx context.Context, folderID string, ttl time.Duration) (*model.ManifestEntry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT folder_id, scanned_at, sheets FROM manifest WHERE folder_id = ?`,
		folderID,
	)
	entry, err := scanManifest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !entry.Fresh(s.now(), ttl) {
		return nil, nil
	}
	return entry, nil
}

func (s *SQLiteStore) PutManifest(ctx context.Context, entry model.ManifestEntry) error {
	if entry.ScannedAt.IsZero() {
		entry.ScannedAt = s.now()
	}
	sheets := entry.Sheets
	if sheets == nil {
		sheets = []model.Sheet{}
	}
	sheetsJSON, err := json.Marshal(sheets)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal sheets")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO manifest (folder_id, scanned_at, sheets) VALUES (?, ?, ?)
		 ON CONFLICT(folder_id) DO UPDATE SET scanned_at = excluded.scanned_at, sheets = excluded.sheets`,
		entry.FolderID, entry.ScannedAt.UTC(), string(sheetsJSON),
	)
	return eris.Wrapf(err, "sqlite: put manifest %s", entry.FolderID)
}

func (s *SQLiteStore) ClearManifest(ctx context.Context, folderID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM manifest WHERE folder_id = ?`, folderID)
	return eris.Wrapf(err, "sqlite: clear manifest %s", folderID)
}

func (s *SQLiteStore) ClearAllManifests(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM manifest`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: clear manifests")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: rows affected")
}

func (s *SQLiteStore) ListManifests(ctx context.Context) ([]model.ManifestEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT folder_id, scanned_at, sheets FROM manifest ORDER BY folder_id`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list manifests")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.ManifestEntry
	for rows.Next() {
		e, err := scanManifest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list manifests iterate")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*model.Run, error) {
	var r model.Run
	var summaryJSON, errMsg sql.NullString
	var finished sql.NullTime

	err := row.Scan(&r.ID, &r.Status, &summaryJSON, &errMsg, &r.StartedAt, &finished)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.New("run not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}

	if summaryJSON.Valid {
		r.Summary = &model.RunSummary{}
		if err := json.Unmarshal([]byte(summaryJSON.String), r.Summary); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal summary")
		}
	}
	r.Error = errMsg.String
	if finished.Valid {
		t := finished.Time
		r.FinishedAt = &t
	}
	return &r, nil
}

func scanManifest(row scannable) (*model.ManifestEntry, error) {
	var e model.ManifestEntry
	var sheetsJSON string
	if err := row.Scan(&e.FolderID, &e.ScannedAt, &sheetsJSON); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, eris.Wrap(err, "sqlite: scan manifest")
	}
	if err := json.Unmarshal([]byte(sheetsJSON), &e.Sheets); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal sheets")
	}
	return &e, nil
}
