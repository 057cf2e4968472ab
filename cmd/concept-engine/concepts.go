// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/concept-engine/internal/generate"
	"github.com/pdiddy/concept-engine/internal/relevance"
)

var similarityCmd = &cobra.Command{
	Use:   "similarity <a> <b>",
	Short: "Print the embedding similarity of two concepts",
	Long: `Similarity embeds both texts with the configured provider and prints
their cosine similarity mapped onto [0,1]. When the provider is
unreachable the neutral fallback value is printed and marked as such.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		s := a.similarity(cmd.Context()).Score(cmd.Context(), args[0], args[1])
		fmt.Fprintf(os.Stdout, "%.4f (%s)\n", s.Value, s.Origin)
		return nil
	},
}

var distanceCmd = &cobra.Command{
	Use:   "distance <a> <b>",
	Short: "Score how relevant two concepts are across disciplines",
	Long: `Distance combines the semantic similarity of two concepts with the
similarity of their disciplines. Pairs from distant disciplines get a boost
when the concepts themselves are close.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		discA, _ := cmd.Flags().GetString("discipline-a")
		discB, _ := cmd.Flags().GetString("discipline-b")
		jsonOutput, _ := cmd.Flags().GetBool("json")

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		f := relevance.NewFinder(a.similarity(cmd.Context()), logger)
		d := f.ConceptDistance(cmd.Context(), args[0], args[1], discA, discB)
		if jsonOutput {
			return writeValue(os.Stdout, d, true)
		}
		fmt.Fprintf(os.Stdout, "semantic:   %.4f\n", d.Semantic)
		fmt.Fprintf(os.Stdout, "discipline: %.4f\n", d.Discipline)
		fmt.Fprintf(os.Stdout, "boost:      %.4f\n", d.Boost)
		fmt.Fprintf(os.Stdout, "final:      %.4f\n", d.Final)
		return nil
	},
}

var relativesCmd = &cobra.Command{
	Use:   "relatives <concept>",
	Short: "Find related concepts from distant disciplines",
	Long: `Relatives generates candidates for the concept and keeps those that are
semantically close but come from a discipline unlike the concept's own,
ranked by cross-discipline relevance.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		discipline, _ := cmd.Flags().GetString("discipline")
		topK, _ := cmd.Flags().GetInt("top")
		jsonOutput, _ := cmd.Flags().GetBool("json")

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		gen, err := a.generator()
		if err != nil {
			return err
		}
		if gen == nil {
			return fmt.Errorf("relatives needs a generator API key")
		}
		ctx := cmd.Context()
		cands, err := gen.Generate(ctx, generate.Request{Seed: args[0]})
		if err != nil {
			return err
		}

		pool := make([]relevance.Candidate, len(cands))
		for i, c := range cands {
			pool[i] = relevance.Candidate{Concept: c.Name, Discipline: c.Discipline}
		}
		f := relevance.NewFinder(a.similarity(ctx), logger)
		rel := f.FindDistantRelatives(ctx, args[0], discipline, pool, relevance.Options{TopK: topK})
		if jsonOutput {
			return writeValue(os.Stdout, rel, true)
		}
		if len(rel) == 0 {
			fmt.Println("No distant relatives found.")
			return nil
		}
		for i, r := range rel {
			fmt.Fprintf(os.Stdout, "%d. %-30s  %-20s  %.3f\n",
				i+1, truncateText(r.Concept, 30), truncateText(r.Discipline, 20), r.Score)
		}
		return nil
	},
}

var lookupCmd = &cobra.Command{
	Use:   "lookup <concept>...",
	Short: "Look concepts up in the encyclopedia and preprint sources",
	Long: `Lookup checks whether each concept has an encyclopedia entry. With a
single concept it also lists related preprints and a combined
credibility.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		discipline, _ := cmd.Flags().GetString("discipline")
		jsonOutput, _ := cmd.Flags().GetBool("json")

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()
		checker := a.evidence()

		if len(args) == 1 {
			return writeValue(os.Stdout, checker.Enrich(cmd.Context(), args[0], discipline), jsonOutput)
		}
		return writeValue(os.Stdout, checker.BatchVerify(cmd.Context(), args), jsonOutput)
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify <a> <b>",
	Short: "Check the evidence for a relation between two concepts",
	Long: `Verify looks both concepts up and searches preprints that mention them
together. With --fused the encyclopedia entry, the best preprint, and the
model's reasoning are fused into one credibility score instead.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		relation, _ := cmd.Flags().GetString("relation")
		fused, _ := cmd.Flags().GetBool("fused")
		jsonOutput, _ := cmd.Flags().GetBool("json")

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()
		ctx := cmd.Context()
		checker := a.evidence()

		if !fused {
			return writeValue(os.Stdout, checker.VerifyRelation(ctx, args[0], args[1], relation), jsonOutput)
		}
		v, err := a.verifier()
		if err != nil {
			return err
		}
		data := checker.Collect(ctx, args[0], args[1], relation, a.reasoner())
		return writeValue(os.Stdout, v.Verify(args[0], args[1], data), jsonOutput)
	},
}

func init() {
	distanceCmd.Flags().String("discipline-a", "", "discipline of the first concept")
	distanceCmd.Flags().String("discipline-b", "", "discipline of the second concept")
	distanceCmd.Flags().Bool("json", false, "output as JSON")

	relativesCmd.Flags().String("discipline", "", "discipline of the concept")
	relativesCmd.Flags().Int("top", relevance.DefaultTopK, "number of relatives to keep")
	relativesCmd.Flags().Bool("json", false, "output as JSON")

	lookupCmd.Flags().String("discipline", "", "discipline added to the preprint query")
	lookupCmd.Flags().Bool("json", false, "output as JSON instead of YAML")

	verifyCmd.Flags().String("relation", "", "claimed relation (e.g. foundation, application)")
	verifyCmd.Flags().Bool("fused", false, "fuse encyclopedia, preprint, and model evidence")
	verifyCmd.Flags().Bool("json", false, "output as JSON instead of YAML")

	rootCmd.AddCommand(similarityCmd)
	rootCmd.AddCommand(distanceCmd)
	rootCmd.AddCommand(relativesCmd)
	rootCmd.AddCommand(lookupCmd)
	rootCmd.AddCommand(verifyCmd)
}
