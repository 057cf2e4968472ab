// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server exposes discovery, credibility scoring, and citation checks
// as a JSON HTTP API.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pdiddy/concept-engine/internal/discover"
	"github.com/pdiddy/concept-engine/internal/evidence"
	"github.com/pdiddy/concept-engine/internal/fusion"
	"github.com/pdiddy/concept-engine/internal/selector"
	"github.com/pdiddy/concept-engine/internal/similarity"
	"github.com/pdiddy/concept-engine/internal/store"
	"github.com/pdiddy/concept-engine/pkg/types"
)

// Error codes carried in error responses.
const (
	CodeUnknown        = "ERR_1000"
	CodeInvalidRequest = "ERR_1001"
	CodeNotConfigured  = "ERR_1004"
	CodeRunNotFound    = "ERR_4001"
)

const shutdownTimeout = 10 * time.Second

// Discoverer runs discoveries.
type Discoverer interface {
	Discover(ctx context.Context, req discover.Request) (types.Run, error)
}

// RunReader reads stored runs.
type RunReader interface {
	GetRun(ctx context.Context, id string) (types.Run, error)
	ListRuns(ctx context.Context, limit int) ([]types.RunSummary, error)
}

// Similarity scores two texts with provenance.
type Similarity interface {
	Score(ctx context.Context, x, y string) similarity.Score
}

// Deps are the collaborators behind the API. Nil members disable the
// endpoints that need them.
type Deps struct {
	Pipeline   Discoverer
	Scorer     *fusion.Scorer
	Verifier   *fusion.MultiSourceVerifier
	Collector  discover.Collector
	Reasoner   evidence.Reasoner
	Similarity Similarity
	Runs       RunReader
	Gatherer   prometheus.Gatherer
	Logger     *slog.Logger
}

// Server holds the API handlers.
type Server struct {
	deps   Deps
	logger *slog.Logger
}

// New returns a Server over deps.
func New(deps Deps) *Server {
	if deps.Scorer == nil {
		deps.Scorer = fusion.NewScorer(types.DefaultConfig().Fusion)
	}
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{deps: deps, logger: logger}
}

// Router builds the gin engine.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/healthz", s.health)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.deps.Gatherer, promhttp.HandlerOpts{})))

	api := r.Group("/api/v1")
	api.POST("/discover", s.discover)
	api.POST("/verify", s.verify)
	api.POST("/credibility", s.credibility)
	api.POST("/citations/verify", s.verifyCitation)
	api.POST("/trace", s.trace)
	api.POST("/similarity", s.similarity)
	api.GET("/runs", s.listRuns)
	api.GET("/runs/:id", s.getRun)
	return r
}

// Run serves on addr until ctx ends, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("api listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down: %w", err)
		}
		return nil
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Status  string `json:"status"`
	Code    string `json:"error_code"`
	Message string `json:"message"`
}

func fail(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, errorBody{Status: "error", Code: code, Message: message})
}

func ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": data})
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

type discoverRequest struct {
	Concept     string   `json:"concept" binding:"required"`
	Disciplines []string `json:"disciplines"`
	MaxConcepts int      `json:"max_concepts" binding:"gte=0,lte=50"`
	Deep        bool     `json:"deep"`
}

func (s *Server) discover(c *gin.Context) {
	if s.deps.Pipeline == nil {
		fail(c, http.StatusServiceUnavailable, CodeNotConfigured, "discovery is not configured")
		return
	}
	var req discoverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, CodeInvalidRequest, err.Error())
		return
	}

	run, err := s.deps.Pipeline.Discover(c.Request.Context(), discover.Request{
		Concept:     req.Concept,
		Disciplines: req.Disciplines,
		MaxConcepts: req.MaxConcepts,
		Deep:        req.Deep,
	})
	if errors.Is(err, selector.ErrInvalidInput) {
		fail(c, http.StatusBadRequest, CodeInvalidRequest, err.Error())
		return
	}
	if err != nil {
		s.logger.Error("discovery failed", "concept", req.Concept, "error", err)
		fail(c, http.StatusInternalServerError, CodeUnknown, "discovery failed")
		return
	}
	ok(c, run)
}

type verifyRequest struct {
	ConceptA string `json:"concept_a" binding:"required"`
	ConceptB string `json:"concept_b" binding:"required"`
	Relation string `json:"claimed_relation"`
}

func (s *Server) verify(c *gin.Context) {
	if s.deps.Verifier == nil || s.deps.Collector == nil {
		fail(c, http.StatusServiceUnavailable, CodeNotConfigured, "relation verification is not configured")
		return
	}
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, CodeInvalidRequest, err.Error())
		return
	}
	data := s.deps.Collector.Collect(c.Request.Context(), req.ConceptA, req.ConceptB, req.Relation, s.deps.Reasoner)
	ok(c, s.deps.Verifier.Verify(req.ConceptA, req.ConceptB, data))
}

type credibilityRequest struct {
	Evidence []types.EvidenceItem `json:"evidence"`

	// Resolve names a conflict strategy; when set, conflicts are resolved
	// and the evidence re-scored.
	Resolve string `json:"resolve"`
}

func (s *Server) credibility(c *gin.Context) {
	var req credibilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, CodeInvalidRequest, err.Error())
		return
	}
	if err := fusion.ValidateEvidence(req.Evidence); err != nil {
		fail(c, http.StatusBadRequest, CodeInvalidRequest, err.Error())
		return
	}
	if req.Resolve == "" {
		ok(c, s.deps.Scorer.Score(req.Evidence))
		return
	}
	strategy, err := fusion.ParseStrategy(req.Resolve)
	if err != nil {
		fail(c, http.StatusBadRequest, CodeInvalidRequest, err.Error())
		return
	}
	v := fusion.NewMultiSourceVerifier(s.deps.Scorer, strategy, s.logger)
	ok(c, v.VerifyEvidence("", "", req.Evidence))
}

type citationRequest struct {
	Evidence types.EvidenceItem `json:"evidence"`
}

func (s *Server) verifyCitation(c *gin.Context) {
	var req citationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, CodeInvalidRequest, err.Error())
		return
	}
	if err := fusion.ValidateEvidence([]types.EvidenceItem{req.Evidence}); err != nil {
		fail(c, http.StatusBadRequest, CodeInvalidRequest, err.Error())
		return
	}
	verified, details := fusion.VerifyCitation(req.Evidence)
	ok(c, gin.H{"verified": verified, "details": details})
}

func (s *Server) trace(c *gin.Context) {
	var req citationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, CodeInvalidRequest, err.Error())
		return
	}
	if err := fusion.ValidateEvidence([]types.EvidenceItem{req.Evidence}); err != nil {
		fail(c, http.StatusBadRequest, CodeInvalidRequest, err.Error())
		return
	}
	ok(c, fusion.TraceSource(req.Evidence))
}

type similarityRequest struct {
	A string `json:"a" binding:"required"`
	B string `json:"b" binding:"required"`
}

func (s *Server) similarity(c *gin.Context) {
	if s.deps.Similarity == nil {
		fail(c, http.StatusServiceUnavailable, CodeNotConfigured, "similarity is not configured")
		return
	}
	var req similarityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, CodeInvalidRequest, err.Error())
		return
	}
	score := s.deps.Similarity.Score(c.Request.Context(), req.A, req.B)
	ok(c, gin.H{"score": score.Float64(), "origin": score.Origin.String()})
}

func (s *Server) listRuns(c *gin.Context) {
	if s.deps.Runs == nil {
		fail(c, http.StatusServiceUnavailable, CodeNotConfigured, "run store is not configured")
		return
	}
	limit := 0
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			fail(c, http.StatusBadRequest, CodeInvalidRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	runs, err := s.deps.Runs.ListRuns(c.Request.Context(), limit)
	if err != nil {
		s.logger.Error("listing runs failed", "error", err)
		fail(c, http.StatusInternalServerError, CodeUnknown, "listing runs failed")
		return
	}
	ok(c, runs)
}

func (s *Server) getRun(c *gin.Context) {
	if s.deps.Runs == nil {
		fail(c, http.StatusServiceUnavailable, CodeNotConfigured, "run store is not configured")
		return
	}
	run, err := s.deps.Runs.GetRun(c.Request.Context(), c.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		fail(c, http.StatusNotFound, CodeRunNotFound, err.Error())
		return
	}
	if err != nil {
		s.logger.Error("reading run failed", "run_id", c.Param("id"), "error", err)
		fail(c, http.StatusInternalServerError, CodeUnknown, "reading run failed")
		return
	}
	ok(c, run)
}
