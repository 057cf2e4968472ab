// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists discovery runs in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/concept-engine/pkg/types"
)

const (
	dbFile       = "concept-engine.db"
	defaultLimit = 20
)

// ErrNotFound is returned when a run id is unknown.
var ErrNotFound = errors.New("run not found")

// Store manages the run database.
type Store struct {
	db *sql.DB
}

// Open opens or creates <dataDir>/concept-engine.db and its schema.
func Open(cfg types.StoreConfig) (*Store, error) {
	if cfg.DataDir == "" {
		return nil, errors.New("store: data directory is required")
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(cfg.DataDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
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
			concept TEXT NOT NULL,
			disciplines TEXT,
			warnings TEXT,
			created_at TEXT NOT NULL,
			duration_ms INTEGER
		)`,
		`CREATE TABLE IF NOT EXISTS nodes (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			id TEXT NOT NULL,
			label TEXT NOT NULL,
			discipline TEXT,
			relation TEXT,
			principle TEXT,
			similarity REAL,
			credibility REAL,
			source_kind TEXT,
			depth INTEGER,
			PRIMARY KEY (run_id, id)
		)`,
		`CREATE TABLE IF NOT EXISTS edges (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			source TEXT NOT NULL,
			target TEXT NOT NULL,
			relation TEXT,
			weight REAL,
			credibility REAL,
			level TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_concept ON runs(concept)`,
		`CREATE INDEX IF NOT EXISTS idx_edges_run_id ON edges(run_id)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// SaveRun writes run, replacing any earlier run with the same id.
func (s *Store) SaveRun(ctx context.Context, run types.Run) error {
	if run.ID == "" {
		return errors.New("run id is required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, run.ID); err != nil {
		return fmt.Errorf("deleting old run: %w", err)
	}

	disciplinesJSON, _ := json.Marshal(run.Disciplines)
	warningsJSON, _ := json.Marshal(run.Warnings)
	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, concept, disciplines, warnings, created_at, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.Concept, string(disciplinesJSON), string(warningsJSON),
		run.CreatedAt.UTC().Format(time.RFC3339Nano), run.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}

	nodeStmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO nodes (run_id, position, id, label, discipline, relation, principle, similarity, credibility, source_kind, depth)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing node insert: %w", err)
	}
	defer nodeStmt.Close()

	for i, n := range run.Nodes {
		_, err := nodeStmt.ExecContext(ctx,
			run.ID, i, n.ID, n.Label, n.Discipline, n.Relation, n.Principle,
			n.Similarity, n.Credibility, string(n.SourceKind), n.Depth,
		)
		if err != nil {
			return fmt.Errorf("inserting node %s: %w", n.ID, err)
		}
	}

	edgeStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO edges (run_id, position, source, target, relation, weight, credibility, level)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing edge insert: %w", err)
	}
	defer edgeStmt.Close()

	for i, e := range run.Edges {
		_, err := edgeStmt.ExecContext(ctx,
			run.ID, i, e.Source, e.Target, e.Relation, e.Weight, e.Credibility, string(e.Level),
		)
		if err != nil {
			return fmt.Errorf("inserting edge %s -> %s: %w", e.Source, e.Target, err)
		}
	}

	return tx.Commit()
}

// GetRun loads a run with its nodes and edges in their original order.
func (s *Store) GetRun(ctx context.Context, id string) (types.Run, error) {
	var (
		run                   types.Run
		disciplines, warnings sql.NullString
		createdAt             string
		durationMS            int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, concept, disciplines, warnings, created_at, duration_ms FROM runs WHERE id = ?`, id,
	).Scan(&run.ID, &run.Concept, &disciplines, &warnings, &createdAt, &durationMS)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Run{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return types.Run{}, fmt.Errorf("querying run: %w", err)
	}

	run.Disciplines = decodeStrings(disciplines)
	run.Warnings = decodeStrings(warnings)
	run.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	run.Duration = time.Duration(durationMS) * time.Millisecond

	if run.Nodes, err = s.nodes(ctx, id); err != nil {
		return types.Run{}, err
	}
	if run.Edges, err = s.edges(ctx, id); err != nil {
		return types.Run{}, err
	}
	return run, nil
}

func (s *Store) nodes(ctx context.Context, runID string) ([]types.ScoredNode, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, label, discipline, relation, principle, similarity, credibility, source_kind, depth
		 FROM nodes WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying nodes: %w", err)
	}
	defer rows.Close()

	nodes := []types.ScoredNode{}
	for rows.Next() {
		var (
			n                                        types.ScoredNode
			discipline, relation, principle, srcKind sql.NullString
		)
		if err := rows.Scan(&n.ID, &n.Label, &discipline, &relation, &principle,
			&n.Similarity, &n.Credibility, &srcKind, &n.Depth); err != nil {
			return nil, fmt.Errorf("scanning node: %w", err)
		}
		n.Discipline = discipline.String
		n.Relation = relation.String
		n.Principle = principle.String
		n.SourceKind = types.SourceKind(srcKind.String)
		nodes = append(nodes, n)
	}
	return nodes, rows.Err()
}

func (s *Store) edges(ctx context.Context, runID string) ([]types.Edge, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT source, target, relation, weight, credibility, level
		 FROM edges WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying edges: %w", err)
	}
	defer rows.Close()

	edges := []types.Edge{}
	for rows.Next() {
		var (
			e               types.Edge
			relation, level sql.NullString
		)
		if err := rows.Scan(&e.Source, &e.Target, &relation, &e.Weight, &e.Credibility, &level); err != nil {
			return nil, fmt.Errorf("scanning edge: %w", err)
		}
		e.Relation = relation.String
		e.Level = types.Level(level.String)
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

// ListRuns returns the most recent runs first. limit <= 0 uses 20.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]types.RunSummary, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT r.id, r.concept, r.disciplines, r.created_at, r.duration_ms,
			(SELECT count(*) FROM nodes n WHERE n.run_id = r.id)
		 FROM runs r ORDER BY r.created_at DESC, r.id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	runs := []types.RunSummary{}
	for rows.Next() {
		var (
			r           types.RunSummary
			disciplines sql.NullString
			createdAt   string
			durationMS  int64
		)
		if err := rows.Scan(&r.ID, &r.Concept, &disciplines, &createdAt, &durationMS, &r.NodeCount); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		r.Disciplines = decodeStrings(disciplines)
		r.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		r.Duration = time.Duration(durationMS) * time.Millisecond
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// DeleteRun removes a run and its nodes and edges.
func (s *Store) DeleteRun(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

func decodeStrings(v sql.NullString) []string {
	if !v.Valid || v.String == "" || v.String == "null" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(v.String), &out); err != nil {
		return nil
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
