// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/concept-engine/internal/discover"
	"github.com/pdiddy/concept-engine/pkg/types"
)

var discoverCmd = &cobra.Command{
	Use:   "discover <concept>",
	Short: "Expand a seed concept into related concepts",
	Long: `Discover asks the generator for concepts related to the seed, keeps the
candidates whose embedding similarity clears the dynamic threshold, and
estimates a credibility for each from an encyclopedia lookup.

With --deep every edge is additionally verified against Wikipedia, arXiv,
and the model's own reasoning, and the fused score replaces the estimate.
Warnings are printed to stderr; they never fail the command.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDiscover,
}

func init() {
	discoverCmd.Flags().StringSlice("disciplines", nil, "restrict candidates to these disciplines (comma-separated)")
	discoverCmd.Flags().Int("max", 0, "maximum number of related concepts (0 = selector bounds)")
	discoverCmd.Flags().Bool("deep", false, "verify every edge against multiple sources")
	discoverCmd.Flags().Bool("json", false, "output the run as JSON")
	discoverCmd.Flags().Bool("no-store", false, "do not persist the run")
	discoverCmd.Flags().Bool("no-cache", false, "bypass the result cache")

	rootCmd.AddCommand(discoverCmd)
}

func runDiscover(cmd *cobra.Command, args []string) error {
	disciplines, _ := cmd.Flags().GetStringSlice("disciplines")
	maxConcepts, _ := cmd.Flags().GetInt("max")
	deep, _ := cmd.Flags().GetBool("deep")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	noStore, _ := cmd.Flags().GetBool("no-store")
	noCache, _ := cmd.Flags().GetBool("no-cache")

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx := cmd.Context()
	p, _, err := a.pipeline(ctx, pipelineOptions{persist: !noStore, cache: true})
	if err != nil {
		return err
	}

	run, err := p.Discover(ctx, discover.Request{
		Concept:     strings.Join(args, " "),
		Disciplines: disciplines,
		MaxConcepts: maxConcepts,
		Deep:        deep,
		NoCache:     noCache,
	})
	if err != nil {
		return err
	}

	for _, w := range run.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w)
	}
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(run)
	}
	printRun(os.Stdout, run)
	return nil
}

// printRun writes a run as a node table followed by a summary line.
func printRun(w io.Writer, run types.Run) {
	fmt.Fprintf(w, "%-4s  %-30s  %-20s  %-14s  %-6s  %-6s  %s\n",
		"Rank", "Concept", "Discipline", "Relation", "Sim", "Cred", "Source")
	fmt.Fprintln(w, strings.Repeat("-", 100))

	levels := make(map[string]types.Level, len(run.Edges))
	for _, e := range run.Edges {
		levels[e.Target] = e.Level
	}
	for i, n := range run.Nodes {
		source := string(n.SourceKind)
		if l := levels[n.ID]; l != "" {
			source += " (" + string(l) + ")"
		}
		fmt.Fprintf(w, "%-4d  %-30s  %-20s  %-14s  %-6.3f  %-6.3f  %s\n",
			i, truncateText(n.Label, 30), truncateText(n.Discipline, 20), truncateText(n.Relation, 14),
			n.Similarity, n.Credibility, source)
	}

	cached := ""
	if run.Cached {
		cached = ", cached"
	}
	fmt.Fprintf(w, "\nrun %s: %d related concepts in %s%s\n", run.ID, max(len(run.Nodes)-1, 0), run.Duration.Round(time.Millisecond), cached)
}

func truncateText(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
