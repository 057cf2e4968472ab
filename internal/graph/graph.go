// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package graph mirrors discovery results into a Neo4j-compatible graph
// database (Neo4j or Memgraph) as Concept nodes joined by RELATED edges.
package graph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/pdiddy/concept-engine/pkg/types"
)

// Sink receives the nodes and edges of a finished discovery.
type Sink interface {
	Write(ctx context.Context, runID string, nodes []types.ScoredNode, edges []types.Edge) error
}

const (
	mergeNodesCypher = `UNWIND $nodes AS n
MERGE (c:Concept {id: n.id})
SET c.label = n.label, c.discipline = n.discipline, c.similarity = n.similarity,
    c.credibility = n.credibility, c.source_kind = n.source_kind, c.last_run = $run_id`

	mergeEdgesCypher = `UNWIND $edges AS e
MATCH (a:Concept {id: e.source}), (b:Concept {id: e.target})
MERGE (a)-[r:RELATED {relation: e.relation}]->(b)
SET r.weight = e.weight, r.credibility = e.credibility, r.level = e.level, r.run_id = $run_id`
)

// indexQueries are tried in order; Memgraph and Neo4j accept different forms.
var indexQueries = []string{
	"CREATE INDEX concept_id IF NOT EXISTS FOR (c:Concept) ON (c.id)",
	"CREATE INDEX ON :Concept(id)",
}

// runner executes one Cypher statement.
type runner interface {
	run(ctx context.Context, cypher string, params map[string]any) error
}

type driverRunner struct {
	driver   neo4j.DriverWithContext
	database string
}

func (d driverRunner) run(ctx context.Context, cypher string, params map[string]any) error {
	var opts []neo4j.ExecuteQueryConfigurationOption
	if d.database != "" {
		opts = append(opts, neo4j.ExecuteQueryWithDatabase(d.database))
	}
	_, err := neo4j.ExecuteQuery(ctx, d.driver, cypher, params, neo4j.EagerResultTransformer, opts...)
	return err
}

// Neo4jSink writes discovery results with idempotent MERGE statements, so
// repeated runs for one concept update rather than duplicate the graph.
type Neo4jSink struct {
	runner runner
	driver neo4j.DriverWithContext
	logger *slog.Logger
}

// NewNeo4jSink connects to cfg.URI and verifies connectivity.
func NewNeo4jSink(ctx context.Context, cfg types.GraphConfig, logger *slog.Logger) (*Neo4jSink, error) {
	if cfg.URI == "" {
		return nil, errors.New("graph: uri is required")
	}
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("creating graph driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("connecting to graph database: %w", err)
	}

	s := newSink(driverRunner{driver: driver, database: cfg.Database}, logger)
	s.driver = driver
	s.logger.Info("connected to graph database", "uri", cfg.URI)
	return s, nil
}

func newSink(r runner, logger *slog.Logger) *Neo4jSink {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Neo4jSink{runner: r, logger: logger}
}

// EnsureIndex creates the Concept id index. Failures are logged since the
// index may already exist under a dialect-specific name.
func (s *Neo4jSink) EnsureIndex(ctx context.Context) {
	for _, q := range indexQueries {
		if err := s.runner.run(ctx, q, nil); err != nil {
			s.logger.Debug("index statement rejected", "query", q, "error", err)
			continue
		}
		return
	}
	s.logger.Warn("could not create Concept index")
}

// Write implements Sink.
func (s *Neo4jSink) Write(ctx context.Context, runID string, nodes []types.ScoredNode, edges []types.Edge) error {
	if len(nodes) == 0 {
		return nil
	}
	if err := s.runner.run(ctx, mergeNodesCypher, nodeParams(runID, nodes)); err != nil {
		return fmt.Errorf("merging concept nodes: %w", err)
	}
	if len(edges) == 0 {
		return nil
	}
	if err := s.runner.run(ctx, mergeEdgesCypher, edgeParams(runID, edges)); err != nil {
		return fmt.Errorf("merging relation edges: %w", err)
	}
	s.logger.Debug("graph updated", "run_id", runID, "nodes", len(nodes), "edges", len(edges))
	return nil
}

// Close releases the driver.
func (s *Neo4jSink) Close(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}
	return s.driver.Close(ctx)
}

func nodeParams(runID string, nodes []types.ScoredNode) map[string]any {
	rows := make([]any, len(nodes))
	for i, n := range nodes {
		rows[i] = map[string]any{
			"id":          n.ID,
			"label":       n.Label,
			"discipline":  n.Discipline,
			"similarity":  n.Similarity,
			"credibility": n.Credibility,
			"source_kind": string(n.SourceKind),
		}
	}
	return map[string]any{"run_id": runID, "nodes": rows}
}

func edgeParams(runID string, edges []types.Edge) map[string]any {
	rows := make([]any, len(edges))
	for i, e := range edges {
		rows[i] = map[string]any{
			"source":      e.Source,
			"target":      e.Target,
			"relation":    e.Relation,
			"weight":      e.Weight,
			"credibility": e.Credibility,
			"level":       string(e.Level),
		}
	}
	return map[string]any{"run_id": runID, "edges": rows}
}
