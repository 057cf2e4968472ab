// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"go.yaml.in/yaml/v3"
)

// ExportYAML writes one stored run to w as YAML.
func (s *Store) ExportYAML(ctx context.Context, w io.Writer, runID string) error {
	run, err := s.GetRun(ctx, runID)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(run); err != nil {
		return fmt.Errorf("marshaling YAML: %w", err)
	}
	return enc.Close()
}

// ExportJSON writes one stored run to w as indented JSON.
func (s *Store) ExportJSON(ctx context.Context, w io.Writer, runID string) error {
	run, err := s.GetRun(ctx, runID)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(run); err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	return nil
}
