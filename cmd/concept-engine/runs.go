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

	"github.com/pdiddy/concept-engine/internal/store"
	"github.com/pdiddy/concept-engine/pkg/types"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect stored discovery runs (list, show, export, delete)",
	Long: `Runs reads the discovery runs persisted in the SQLite store under the
configured data directory.`,
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the most recent runs",
	RunE:  runRunsList,
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Print one run with its nodes and edges",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		jsonOutput, _ := cmd.Flags().GetBool("json")
		return withStore(func(s *store.Store) error {
			run, err := s.GetRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeValue(os.Stdout, run, true)
			}
			printRun(os.Stdout, run)
			return nil
		})
	},
}

var runsExportCmd = &cobra.Command{
	Use:   "export <run-id>",
	Short: "Export one run to YAML or JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsExport,
}

var runsDeleteCmd = &cobra.Command{
	Use:   "delete <run-id>",
	Short: "Delete one run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(s *store.Store) error {
			if err := s.DeleteRun(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Printf("Deleted run %s\n", args[0])
			return nil
		})
	},
}

func init() {
	runsListCmd.Flags().Int("limit", 20, "maximum number of runs to list")
	runsListCmd.Flags().Bool("json", false, "output as JSON")

	runsShowCmd.Flags().Bool("json", false, "output as JSON")

	runsExportCmd.Flags().String("format", "yaml", "export format: yaml or json")
	runsExportCmd.Flags().String("out", "", "output file (default stdout)")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runsExportCmd)
	runsCmd.AddCommand(runsDeleteCmd)

	rootCmd.AddCommand(runsCmd)
}

// withStore opens the configured run store for the duration of fn.
func withStore(fn func(*store.Store) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Store.DataDir == "" {
		return fmt.Errorf("no data directory configured (store.data_dir)")
	}
	s, err := store.Open(cfg.Store)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(s)
}

func runRunsList(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	return withStore(func(s *store.Store) error {
		runs, err := s.ListRuns(cmd.Context(), limit)
		if err != nil {
			return err
		}
		if jsonOutput {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(runs)
		}
		printRunSummaries(os.Stdout, runs)
		return nil
	})
}

func printRunSummaries(w io.Writer, runs []types.RunSummary) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs stored.")
		return
	}
	fmt.Fprintf(w, "%-36s  %-25s  %-20s  %-5s  %s\n", "Run", "Concept", "Created", "Nodes", "Disciplines")
	fmt.Fprintln(w, strings.Repeat("-", 110))
	for _, r := range runs {
		fmt.Fprintf(w, "%-36s  %-25s  %-20s  %-5d  %s\n",
			r.ID, truncateText(r.Concept, 25), r.CreatedAt.Local().Format(time.DateTime),
			r.NodeCount, strings.Join(r.Disciplines, ", "))
	}
	fmt.Fprintf(w, "\n%d runs\n", len(runs))
}

func runRunsExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	out, _ := cmd.Flags().GetString("out")

	return withStore(func(s *store.Store) error {
		var w io.Writer = os.Stdout
		if out != "" {
			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("creating %s: %w", out, err)
			}
			defer f.Close()
			w = f
		}

		var err error
		switch format {
		case "yaml", "":
			err = s.ExportYAML(cmd.Context(), w, args[0])
		case "json":
			err = s.ExportJSON(cmd.Context(), w, args[0])
		default:
			return fmt.Errorf("unsupported format %q: use yaml or json", format)
		}
		if err != nil {
			return err
		}
		if out != "" {
			fmt.Fprintf(os.Stderr, "Exported run %s to %s\n", args[0], out)
		}
		return nil
	})
}
