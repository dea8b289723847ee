package report

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/model-eval/internal/eval"
)

// RunRecord is a persisted attempt-loop verdict.
type RunRecord struct {
	ID        string       `json:"id"`
	Verdict   eval.Verdict `json:"verdict"`
	CreatedAt time.Time    `json:"created_at"`
}

// AuditRecord is a persisted audit report with its rendered markdown.
type AuditRecord struct {
	ID        string           `json:"id"`
	Report    eval.AuditReport `json:"report"`
	Markdown  string           `json:"markdown"`
	CreatedAt time.Time        `json:"created_at"`
}

// RunFilter narrows ListRuns. Zero values mean no constraint.
type RunFilter struct {
	Model      string
	ScenarioID string
	Accepted   *bool
	Limit      int
	Offset     int
}

// Store archives evaluation outcomes in SQLite. It implements Sink so runs
// and audits can be recorded as they finish.
type Store struct {
	db *sql.DB
}

// NewStore opens a SQLite database at the given path and configures WAL mode.
func NewStore(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "report: open sqlite")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "report: exec %s", pragma)
		}
	}
	return &Store{db: db}, nil
}

const migration = `
CREATE TABLE IF NOT EXISTS eval_runs (
	id          TEXT PRIMARY KEY,
	scenario_id TEXT NOT NULL,
	model       TEXT NOT NULL,
	accepted    INTEGER NOT NULL,
	stabilized  INTEGER NOT NULL,
	output      TEXT,
	trace       TEXT NOT NULL,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS audits (
	id         TEXT PRIMARY KEY,
	report     TEXT NOT NULL,
	markdown   TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_eval_runs_model ON eval_runs(model);
CREATE INDEX IF NOT EXISTS idx_eval_runs_scenario ON eval_runs(scenario_id);
CREATE INDEX IF NOT EXISTS idx_eval_runs_accepted ON eval_runs(accepted);
`

func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, migration)
	return eris.Wrap(err, "report: migrate")
}

func (s *Store) Close() error {
	return s.db.Close()
}

// RecordVerdict persists one verdict, trace included, under a fresh run ID.
func (s *Store) RecordVerdict(ctx context.Context, v *eval.Verdict) error {
	traceJSON, err := json.Marshal(v.Trace)
	if err != nil {
		return eris.Wrap(err, "report: marshal trace")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO eval_runs (id, scenario_id, model, accepted, stabilized, output, trace, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), v.ScenarioID, v.Model,
		boolInt(v.Accepted), boolInt(v.Stabilized),
		v.Output, string(traceJSON), time.Now().UTC(),
	)
	return eris.Wrap(err, "report: insert run")
}

// RecordAudit persists a full audit report alongside its markdown rendering.
func (s *Store) RecordAudit(ctx context.Context, r *eval.AuditReport, markdown string) error {
	reportJSON, err := json.Marshal(r)
	if err != nil {
		return eris.Wrap(err, "report: marshal audit")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO audits (id, report, markdown, created_at) VALUES (?, ?, ?, ?)`,
		uuid.New().String(), string(reportJSON), markdown, time.Now().UTC(),
	)
	return eris.Wrap(err, "report: insert audit")
}

// GetRun fetches one run by ID. Returns nil when not found.
func (s *Store) GetRun(ctx context.Context, id string) (*RunRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, scenario_id, model, accepted, stabilized, output, trace, created_at
		 FROM eval_runs WHERE id = ?`, id)
	rec, err := scanRun(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "report: get run %s", id)
	}
	return rec, nil
}

// ListRuns returns runs matching the filter, newest first.
func (s *Store) ListRuns(ctx context.Context, filter RunFilter) ([]RunRecord, error) {
	query := `SELECT id, scenario_id, model, accepted, stabilized, output, trace, created_at
	          FROM eval_runs WHERE 1=1`
	var args []any

	if filter.Model != "" {
		query += ` AND model = ?`
		args = append(args, filter.Model)
	}
	if filter.ScenarioID != "" {
		query += ` AND scenario_id = ?`
		args = append(args, filter.ScenarioID)
	}
	if filter.Accepted != nil {
		query += ` AND accepted = ?`
		args = append(args, boolInt(*filter.Accepted))
	}
	query += ` ORDER BY created_at DESC`

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
		return nil, eris.Wrap(err, "report: list runs")
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		rec, err := scanRun(rows.Scan)
		if err != nil {
			return nil, eris.Wrap(err, "report: scan run")
		}
		out = append(out, *rec)
	}
	return out, eris.Wrap(rows.Err(), "report: list runs iterate")
}

// GetAudit fetches one audit by ID. Returns nil when not found.
func (s *Store) GetAudit(ctx context.Context, id string) (*AuditRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, report, markdown, created_at FROM audits WHERE id = ?`, id)
	rec, err := scanAudit(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "report: get audit %s", id)
	}
	return rec, nil
}

// ListAudits returns stored audits, newest first.
func (s *Store) ListAudits(ctx context.Context, limit int) ([]AuditRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, report, markdown, created_at FROM audits ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "report: list audits")
	}
	defer rows.Close()

	var out []AuditRecord
	for rows.Next() {
		rec, err := scanAudit(rows.Scan)
		if err != nil {
			return nil, eris.Wrap(err, "report: scan audit")
		}
		out = append(out, *rec)
	}
	return out, eris.Wrap(rows.Err(), "report: list audits iterate")
}

func scanRun(scan func(...any) error) (*RunRecord, error) {
	var rec RunRecord
	var accepted, stabilized int
	var output sql.NullString
	var traceJSON string

	err := scan(&rec.ID, &rec.Verdict.ScenarioID, &rec.Verdict.Model,
		&accepted, &stabilized, &output, &traceJSON, &rec.CreatedAt)
	if err != nil {
		return nil, err
	}

	rec.Verdict.Accepted = accepted != 0
	rec.Verdict.Stabilized = stabilized != 0
	rec.Verdict.Output = output.String
	if err := json.Unmarshal([]byte(traceJSON), &rec.Verdict.Trace); err != nil {
		return nil, eris.Wrap(err, "unmarshal trace")
	}
	return &rec, nil
}

func scanAudit(scan func(...any) error) (*AuditRecord, error) {
	var rec AuditRecord
	var reportJSON string

	if err := scan(&rec.ID, &reportJSON, &rec.Markdown, &rec.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(reportJSON), &rec.Report); err != nil {
		return nil, eris.Wrap(err, "unmarshal audit report")
	}
	return &rec, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
