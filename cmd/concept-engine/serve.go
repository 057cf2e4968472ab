// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pdiddy/concept-engine/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve discovery and credibility scoring as a JSON API",
	Long: `Serve starts the HTTP API. Discovery, relation verification, evidence
scoring, citation checks, and stored runs are exposed under /api/v1;
Prometheus metrics are served at /metrics.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default from server.addr, \":8000\")")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	addr, _ := cmd.Flags().GetString("addr")
	if addr == "" {
		addr = a.cfg.Server.Addr
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pipeline, st, err := a.pipeline(ctx, pipelineOptions{persist: true, cache: true})
	if err != nil {
		return err
	}
	verifier, err := a.verifier()
	if err != nil {
		return err
	}

	deps := server.Deps{
		Pipeline:   pipeline,
		Scorer:     a.scorer(),
		Verifier:   verifier,
		Collector:  a.evidence(),
		Reasoner:   a.reasoner(),
		Similarity: a.similarity(ctx),
		Gatherer:   a.registry,
		Logger:     logger,
	}
	if st != nil {
		deps.Runs = st
	}
	return server.New(deps).Run(ctx, addr)
}
