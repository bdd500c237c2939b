// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cidfile reads and writes compound identifier lists as CSV files
// with a CID column, and generates random identifier sets for testing.
package cidfile

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"strconv"
	"strings"

	"github.com/pdiddy/pubchem-fetch/internal/export"
	"github.com/pdiddy/pubchem-fetch/pkg/types"
)

// DefaultRandomPath is where generated identifier lists go by default.
const DefaultRandomPath = "../Example/random_cids.csv"

// MaxRandomCID bounds generated identifiers: values are in [1, MaxRandomCID).
const MaxRandomCID = 10_000_000

// ErrMissingCIDColumn is returned when the input header has no CID column.
var ErrMissingCIDColumn = errors.New("input has no CID column")

// ReadCIDs reads the CID column of the CSV file at path, in file order.
// Other columns are ignored.
func ReadCIDs(path string) ([]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening CID file: %w", err)
	}
	defer f.Close()

	cids, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cids, nil
}

// Parse reads CIDs from CSV text with a header row.
func Parse(r io.Reader) ([]int, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, ErrMissingCIDColumn
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	col := -1
	for i, name := range header {
		if strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")) == types.ColCID {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, ErrMissingCIDColumn
	}

	var cids []int
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading CSV: %w", err)
		}
		line, _ := reader.FieldPos(0)
		if col >= len(record) {
			return nil, fmt.Errorf("row %d: missing CID value", line)
		}
		cid, err := parseCID(record[col])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}
		cids = append(cids, cid)
	}
	return cids, nil
}

// ParseList parses a comma-separated identifier list such as "2244,3672".
func ParseList(s string) ([]int, error) {
	var cids []int
	for i, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		cid, err := parseCID(part)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i+1, err)
		}
		cids = append(cids, cid)
	}
	return cids, nil
}

func parseCID(s string) (int, error) {
	s = strings.TrimSpace(s)
	cid, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid CID %q", s)
	}
	if cid < 1 {
		return 0, fmt.Errorf("CID %d is not positive", cid)
	}
	return cid, nil
}

// WriteCIDs writes cids to path as a single-column CSV with a CID header.
// Parent directories are created.
func WriteCIDs(path string, cids []int) error {
	return export.WriteAtomic(path, func(w io.Writer) error {
		cw := csv.NewWriter(w)
		if err := cw.Write([]string{types.ColCID}); err != nil {
			return err
		}
		for _, cid := range cids {
			if err := cw.Write([]string{strconv.Itoa(cid)}); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	})
}

// Random returns n distinct identifiers drawn uniformly from
// [1, MaxRandomCID) using r.
func Random(n int, r *rand.Rand) ([]int, error) {
	if n < 0 || n >= MaxRandomCID {
		return nil, fmt.Errorf("cannot draw %d distinct CIDs from [1, %d)", n, MaxRandomCID)
	}
	seen := make(map[int]struct{}, n)
	cids := make([]int, 0, n)
	for len(cids) < n {
		cid := 1 + r.IntN(MaxRandomCID-1)
		if _, dup := seen[cid]; dup {
			continue
		}
		seen[cid] = struct{}{}
		cids = append(cids, cid)
	}
	return cids, nil
}
