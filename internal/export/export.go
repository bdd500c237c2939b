// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package export turns fetched records into a sparse table and writes it as
// CSV, JSON or YAML.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/pubchem-fetch/pkg/types"
)

// Default output paths, relative to the working directory.
const (
	DefaultPropertiesPath = "../Example/pubchem_properties.csv"
	DefaultAssaysPath     = "../Example/pubchem_bioassays.csv"
)

// Record is anything that can be flattened into named cells.
type Record interface {
	Fields() []types.Field
}

// Table is a sparse table. Columns is the union of field names across all
// rows in first-seen order; a row lacks the cells for columns its record
// did not produce.
type Table struct {
	Columns []string
	Rows    []map[string]string
}

// NewTable builds a Table from records, one row per record.
func NewTable[R Record](records []R) Table {
	t := Table{Rows: make([]map[string]string, 0, len(records))}
	seen := make(map[string]bool)
	for _, r := range records {
		fields := r.Fields()
		row := make(map[string]string, len(fields))
		for _, f := range fields {
			if !seen[f.Name] {
				seen[f.Name] = true
				t.Columns = append(t.Columns, f.Name)
			}
			row[f.Name] = f.Value
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// Cell returns the value at row i, column col, and whether the row has it.
func (t Table) Cell(i int, col string) (string, bool) {
	v, ok := t.Rows[i][col]
	return v, ok
}

// ParseFormat validates a format name. The empty string selects CSV.
func ParseFormat(s string) (types.ExportFormat, error) {
	switch f := types.ExportFormat(s); f {
	case "":
		return types.FormatCSV, nil
	case types.FormatCSV, types.FormatJSON, types.FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unknown export format %q (want csv, json or yaml)", s)
	}
}

// Write encodes t in the given format and persists it at path. Parent
// directories are created. The file is replaced atomically.
func Write(path string, format types.ExportFormat, t Table) error {
	var encode func(io.Writer, Table) error
	switch format {
	case types.FormatCSV, "":
		encode = WriteCSV
	case types.FormatJSON:
		encode = WriteJSON
	case types.FormatYAML:
		encode = WriteYAML
	default:
		return fmt.Errorf("unknown export format %q", format)
	}
	return WriteAtomic(path, func(w io.Writer) error { return encode(w, t) })
}

// WriteCSV writes a header row followed by one line per row. Missing cells
// are empty.
func WriteCSV(w io.Writer, t Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}
	line := make([]string, len(t.Columns))
	for _, row := range t.Rows {
		for i, col := range t.Columns {
			line[i] = row[col]
		}
		if err := cw.Write(line); err != nil {
			return fmt.Errorf("writing CSV row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteJSON writes an array of objects, keys in column order. Missing cells
// are omitted.
func WriteJSON(w io.Writer, t Table) error {
	var buf bytes.Buffer
	buf.WriteString("[")
	for i, row := range t.Rows {
		if i > 0 {
			buf.WriteString(",")
		}
		buf.WriteString("\n  {")
		n := 0
		for _, col := range t.Columns {
			v, ok := row[col]
			if !ok {
				continue
			}
			if n > 0 {
				buf.WriteString(", ")
			}
			k, _ := json.Marshal(col)
			val, _ := json.Marshal(v)
			buf.Write(k)
			buf.WriteString(": ")
			buf.Write(val)
			n++
		}
		buf.WriteString("}")
	}
	if len(t.Rows) > 0 {
		buf.WriteString("\n")
	}
	buf.WriteString("]\n")
	_, err := w.Write(buf.Bytes())
	return err
}

// WriteYAML writes a sequence of mappings, keys in column order. Missing
// cells are omitted.
func WriteYAML(w io.Writer, t Table) error {
	doc := &yaml.Node{Kind: yaml.SequenceNode}
	for _, row := range t.Rows {
		m := &yaml.Node{Kind: yaml.MappingNode}
		for _, col := range t.Columns {
			v, ok := row[col]
			if !ok {
				continue
			}
			m.Content = append(m.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Value: col},
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v},
			)
		}
		doc.Content = append(doc.Content, m)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("marshaling YAML: %w", err)
	}
	return enc.Close()
}

// WriteAtomic writes path through a temp file in the same directory and
// renames it into place. Parent directories are created.
func WriteAtomic(path string, write func(io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating output directory %s: %w", dir, err)
	}

	tmpFile, err := os.CreateTemp(dir, ".export-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	writeErr := write(tmpFile)
	closeErr := tmpFile.Close()
	if writeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing %s: %w", path, writeErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", closeErr)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("setting file mode: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
