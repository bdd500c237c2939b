// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists fetch runs and their records in SQLite so a run
// can be listed, re-exported or compared later without refetching.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/pubchem-fetch/pkg/types"
)

// DefaultPath is the database file used when none is configured.
const DefaultPath = "../Example/pubchem.db"

// Run kinds.
const (
	KindProperties = "properties"
	KindAssays     = "assays"
)

// timeLayout is fixed-width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// ErrRunNotFound is returned for an unknown run ID.
var ErrRunNotFound = errors.New("run not found")

// Run summarizes one fetch invocation.
type Run struct {
	ID         string    `json:"id" yaml:"id"`
	Kind       string    `json:"kind" yaml:"kind"`
	Input      string    `json:"input" yaml:"input"`
	StartedAt  time.Time `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitzero" yaml:"finished_at,omitempty"`
	Total      int       `json:"total" yaml:"total"`
	Succeeded  int       `json:"succeeded" yaml:"succeeded"`
	NA         int       `json:"na" yaml:"na"`
	Batches    int       `json:"batches" yaml:"batches"`
}

// Finished reports whether FinishRun was called for the run.
func (r Run) Finished() bool { return !r.FinishedAt.IsZero() }

// Store manages the result database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database at cfg.Path and creates the
// schema if it does not exist.
func Open(cfg types.StoreConfig) (*Store, error) {
	path := cfg.Path
	if path == "" {
		path = DefaultPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			input TEXT,
			started_at TEXT NOT NULL,
			finished_at TEXT,
			total INTEGER NOT NULL DEFAULT 0,
			succeeded INTEGER NOT NULL DEFAULT 0,
			na INTEGER NOT NULL DEFAULT 0,
			batches INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS property_records (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			cid INTEGER NOT NULL,
			molecular_formula TEXT,
			molecular_weight TEXT,
			canonical_smiles TEXT,
			inchikey TEXT,
			status TEXT NOT NULL,
			attempts INTEGER NOT NULL,
			error TEXT,
			PRIMARY KEY (run_id, position)
		)`,
		`CREATE TABLE IF NOT EXISTS assay_records (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			aid INTEGER NOT NULL,
			cid INTEGER NOT NULL,
			mean TEXT,
			stddev TEXT,
			mean_label TEXT,
			stddev_label TEXT,
			status TEXT NOT NULL,
			attempts INTEGER NOT NULL,
			error TEXT,
			PRIMARY KEY (run_id, position)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_property_records_cid ON property_records(cid)`,
		`CREATE INDEX IF NOT EXISTS idx_assay_records_aid_cid ON assay_records(aid, cid)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// BeginRun records the start of a run and returns its ID.
func (s *Store) BeginRun(ctx context.Context, kind, input string) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, kind, input, started_at) VALUES (?, ?, ?, ?)`,
		id, kind, input, time.Now().UTC().Format(timeLayout),
	)
	if err != nil {
		return "", fmt.Errorf("inserting run: %w", err)
	}
	return id, nil
}

// FinishRun stores the final counts of a run.
func (s *Store) FinishRun(ctx context.Context, runID string, total, succeeded, na, batches int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, total = ?, succeeded = ?, na = ?, batches = ? WHERE id = ?`,
		time.Now().UTC().Format(timeLayout), total, succeeded, na, batches, runID,
	)
	if err != nil {
		return fmt.Errorf("updating run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return nil
}

// SavePropertyRecords stores recs for runID in one transaction. Positions
// continue from the records already saved for the run.
func (s *Store) SavePropertyRecords(ctx context.Context, runID string, recs []types.PropertyRecord) error {
	return s.save(ctx, runID, "property_records", len(recs),
		`INSERT INTO property_records (run_id, position, cid, molecular_formula, molecular_weight,
			canonical_smiles, inchikey, status, attempts, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		func(i int) []any {
			r := recs[i]
			return []any{r.CID, r.MolecularFormula, r.MolecularWeight, r.CanonicalSMILES,
				r.InChIKey, string(r.Status), r.Attempts, r.Error}
		})
}

// SaveAssayRecords stores recs for runID in one transaction.
func (s *Store) SaveAssayRecords(ctx context.Context, runID string, recs []types.AssayRecord) error {
	return s.save(ctx, runID, "assay_records", len(recs),
		`INSERT INTO assay_records (run_id, position, aid, cid, mean, stddev,
			mean_label, stddev_label, status, attempts, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		func(i int) []any {
			r := recs[i]
			return []any{r.AID, r.CID, r.Mean, r.StdDev, r.MeanLabel, r.StdDevLabel,
				string(r.Status), r.Attempts, r.Error}
		})
}

func (s *Store) save(ctx context.Context, runID, table string, n int, insert string, values func(int) []any) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRowContext(ctx, `SELECT count(*) FROM runs WHERE id = ?`, runID).Scan(&exists); err != nil {
		return fmt.Errorf("checking run: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}

	var offset int
	if err := tx.QueryRowContext(ctx,
		`SELECT count(*) FROM `+table+` WHERE run_id = ?`, runID,
	).Scan(&offset); err != nil {
		return fmt.Errorf("counting records: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i := range n {
		args := append([]any{runID, offset + i}, values(i)...)
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("inserting record %d: %w", offset+i, err)
		}
	}
	return tx.Commit()
}

const runColumns = `id, kind, input, started_at, finished_at, total, succeeded, na, batches`

// ListRuns returns all runs, most recent first.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetRun returns the run with the given ID.
func (s *Store) GetRun(ctx context.Context, runID string) (Run, error) {
	r, err := scanRun(s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, runID))
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return r, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (Run, error) {
	var (
		r               Run
		input, finished sql.NullString
		started         string
	)
	if err := sc.Scan(&r.ID, &r.Kind, &input, &started, &finished, &r.Total, &r.Succeeded, &r.NA, &r.Batches); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scanning run: %w", err)
	}
	r.Input = input.String
	r.StartedAt, _ = time.Parse(timeLayout, started)
	if finished.Valid {
		r.FinishedAt, _ = time.Parse(timeLayout, finished.String)
	}
	return r, nil
}

// PropertyRecords returns the property records of a run in input order.
func (s *Store) PropertyRecords(ctx context.Context, runID string) ([]types.PropertyRecord, error) {
	if _, err := s.GetRun(ctx, runID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT cid, molecular_formula, molecular_weight, canonical_smiles, inchikey, status, attempts, error
		 FROM property_records WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying property records: %w", err)
	}
	defer rows.Close()

	recs := []types.PropertyRecord{}
	for rows.Next() {
		var (
			r      types.PropertyRecord
			status string
			msg    sql.NullString
		)
		if err := rows.Scan(&r.CID, &r.MolecularFormula, &r.MolecularWeight, &r.CanonicalSMILES,
			&r.InChIKey, &status, &r.Attempts, &msg); err != nil {
			return nil, fmt.Errorf("scanning property record: %w", err)
		}
		r.Status = types.RecordStatus(status)
		r.Error = msg.String
		recs = append(recs, r)
	}
	return recs, rows.Err()
}

// AssayRecords returns the bioassay records of a run in input order.
func (s *Store) AssayRecords(ctx context.Context, runID string) ([]types.AssayRecord, error) {
	if _, err := s.GetRun(ctx, runID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT aid, cid, mean, stddev, mean_label, stddev_label, status, attempts, error
		 FROM assay_records WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying assay records: %w", err)
	}
	defer rows.Close()

	recs := []types.AssayRecord{}
	for rows.Next() {
		var (
			r      types.AssayRecord
			status string
			msg    sql.NullString
		)
		if err := rows.Scan(&r.AID, &r.CID, &r.Mean, &r.StdDev, &r.MeanLabel, &r.StdDevLabel,
			&status, &r.Attempts, &msg); err != nil {
			return nil, fmt.Errorf("scanning assay record: %w", err)
		}
		r.Status = types.RecordStatus(status)
		r.Error = msg.String
		recs = append(recs, r)
	}
	return recs, rows.Err()
}
