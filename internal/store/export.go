// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/pubchem-fetch/internal/export"
	"github.com/pdiddy/pubchem-fetch/pkg/types"
)

// RunExport is a run with its full records, including attempt counts and
// the last error of NA records.
type RunExport struct {
	Run        Run                    `json:"run" yaml:"run"`
	Properties []types.PropertyRecord `json:"properties,omitempty" yaml:"properties,omitempty"`
	Assays     []types.AssayRecord    `json:"assays,omitempty" yaml:"assays,omitempty"`
}

// Export loads a run and its records.
func (s *Store) Export(ctx context.Context, runID string) (RunExport, error) {
	run, err := s.GetRun(ctx, runID)
	if err != nil {
		return RunExport{}, err
	}
	out := RunExport{Run: run}
	switch run.Kind {
	case KindAssays:
		out.Assays, err = s.AssayRecords(ctx, runID)
	default:
		out.Properties, err = s.PropertyRecords(ctx, runID)
	}
	if err != nil {
		return RunExport{}, fmt.Errorf("querying for export: %w", err)
	}
	return out, nil
}

// Table returns the run's records as an export table, the same shape the
// fetch commands write.
func (e RunExport) Table() export.Table {
	if e.Run.Kind == KindAssays {
		return export.NewTable(e.Assays)
	}
	return export.NewTable(e.Properties)
}

// ExportYAML writes the run to path as YAML.
func (s *Store) ExportYAML(ctx context.Context, runID, path string) error {
	e, err := s.Export(ctx, runID)
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshaling YAML: %w", err)
	}
	return export.WriteAtomic(path, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

// ExportJSON writes the run to path as indented JSON.
func (s *Store) ExportJSON(ctx context.Context, runID, path string) error {
	e, err := s.Export(ctx, runID)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	return export.WriteAtomic(path, func(w io.Writer) error {
		_, err := w.Write(append(data, '\n'))
		return err
	})
}
