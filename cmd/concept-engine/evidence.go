// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/concept-engine/internal/fusion"
	"github.com/pdiddy/concept-engine/pkg/types"
)

// evidenceFile is the input format of score and trace.
type evidenceFile struct {
	ConceptA string               `yaml:"concept_a"`
	ConceptB string               `yaml:"concept_b"`
	Evidence []types.EvidenceItem `yaml:"evidence"`
}

// readEvidence parses an evidence file. Source type aliases such as
// "wikipedia" or "arxiv" are resolved to their canonical names. Unknown
// types and confidences outside [0,1] are rejected.
func readEvidence(path string) (evidenceFile, error) {
	var f evidenceFile
	data, err := os.ReadFile(path)
	if err != nil {
		return f, fmt.Errorf("reading evidence file: %w", err)
	}
	if err := yaml.Unmarshal(data, &f); err != nil {
		return f, fmt.Errorf("parsing %s: %w", path, err)
	}
	for i, item := range f.Evidence {
		if t, ok := types.ParseSourceType(string(item.SourceType)); ok {
			f.Evidence[i].SourceType = t
		}
	}
	if err := fusion.ValidateEvidence(f.Evidence); err != nil {
		return f, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

var scoreCmd = &cobra.Command{
	Use:   "score <evidence.yaml>",
	Short: "Fuse evidence items into a credibility score",
	Long: `Score reads evidence items from a YAML file and fuses them into a
credibility score: an authority-weighted mean of confidences, a bonus for
source diversity, and a penalty for conflicting items.

The file holds an "evidence" list whose items carry source_type,
source_name, content, url, confidence, and timestamp. With --resolve the
detected conflicts are arbitrated and the evidence re-scored.`,
	Args: cobra.ExactArgs(1),
	RunE: runScore,
}

var traceCmd = &cobra.Command{
	Use:   "trace <evidence.yaml>",
	Short: "Show the provenance and reliability of each evidence item",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := readEvidence(args[0])
		if err != nil {
			return err
		}
		traces := make([]fusion.Trace, len(f.Evidence))
		for i, item := range f.Evidence {
			traces[i] = fusion.TraceSource(item)
		}
		jsonOutput, _ := cmd.Flags().GetBool("json")
		return writeValue(os.Stdout, traces, jsonOutput)
	},
}

var verifyCitationCmd = &cobra.Command{
	Use:   "verify-citation",
	Short: "Check the citations of one evidence item for plausibility",
	Long: `Verify-citation extracts arXiv identifiers, DOIs, and URLs from the
given content and URL and checks that they are well formed. No network
lookup is made.`,
	RunE: runVerifyCitation,
}

func init() {
	scoreCmd.Flags().String("resolve", "", "resolve conflicts with this strategy: highest_confidence or most_authoritative")
	scoreCmd.Flags().Bool("json", false, "output the result as JSON")

	traceCmd.Flags().Bool("json", false, "output traces as JSON")

	verifyCitationCmd.Flags().String("url", "", "evidence URL")
	verifyCitationCmd.Flags().String("content", "", "evidence text")
	verifyCitationCmd.Flags().String("type", "reference", "source type (encyclopedia, preprint, model_reasoning, reference, curated_database)")
	verifyCitationCmd.Flags().Bool("json", false, "output details as JSON")

	rootCmd.AddCommand(scoreCmd)
	rootCmd.AddCommand(traceCmd)
	rootCmd.AddCommand(verifyCitationCmd)
}

func runScore(cmd *cobra.Command, args []string) error {
	resolve, _ := cmd.Flags().GetString("resolve")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	f, err := readEvidence(args[0])
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	scorer := fusion.NewScorer(cfg.Fusion, fusion.WithLogger(logger))

	if resolve == "" {
		result := scorer.Score(f.Evidence)
		if jsonOutput {
			return writeValue(os.Stdout, result, true)
		}
		printCredibility(os.Stdout, result)
		return nil
	}

	strategy, err := fusion.ParseStrategy(resolve)
	if err != nil {
		return err
	}
	v := fusion.NewMultiSourceVerifier(scorer, strategy, logger).VerifyEvidence(f.ConceptA, f.ConceptB, f.Evidence)
	if jsonOutput {
		return writeValue(os.Stdout, v, true)
	}
	printCredibility(os.Stdout, v.CredibilityResult)
	if v.ConflictsResolved {
		fmt.Fprintf(os.Stdout, "resolved %d conflict(s) with %s\n", len(v.Resolved), strategy)
	}
	return nil
}

func runVerifyCitation(cmd *cobra.Command, args []string) error {
	url, _ := cmd.Flags().GetString("url")
	content, _ := cmd.Flags().GetString("content")
	typeName, _ := cmd.Flags().GetString("type")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	if url == "" && content == "" {
		return fmt.Errorf("provide --url, --content, or both")
	}
	st, ok := types.ParseSourceType(typeName)
	if !ok {
		return fmt.Errorf("unknown source type %q", typeName)
	}

	verified, details := fusion.VerifyCitation(types.EvidenceItem{SourceType: st, Content: content, URL: url})
	if jsonOutput {
		return writeValue(os.Stdout, map[string]any{"verified": verified, "details": details}, true)
	}

	fmt.Fprintf(os.Stdout, "verified: %t\n", verified)
	if details.VerificationMethod != "" {
		fmt.Fprintf(os.Stdout, "method:   %s\n", details.VerificationMethod)
	}
	for _, c := range details.VerifiedCitations {
		fmt.Fprintf(os.Stdout, "  ok       %s\n", c)
	}
	for _, c := range details.InvalidCitations {
		fmt.Fprintf(os.Stdout, "  invalid  %s\n", c)
	}
	return nil
}

func printCredibility(w io.Writer, r types.CredibilityResult) {
	fmt.Fprintf(w, "score:     %.3f (%s)\n", r.Score, r.Level)
	fmt.Fprintf(w, "evidence:  %d items, diversity bonus %.2f\n", r.EvidenceCount, r.SourceDiversity)
	for _, c := range r.Conflicts {
		fmt.Fprintf(w, "conflict:  %s between %s and %s (severity %.2f)\n",
			c.Type, c.Items[0].SourceName, c.Items[1].SourceName, c.Severity)
	}
	if len(r.Warnings) > 0 {
		fmt.Fprintf(w, "warnings:  %s\n", strings.Join(r.Warnings, "; "))
	}
}

// writeValue encodes v as indented JSON, or as YAML when asJSON is false.
func writeValue(w io.Writer, v any, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
