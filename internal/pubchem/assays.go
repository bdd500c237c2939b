// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pubchem

import (
	"context"
	"fmt"
	"strings"

	"github.com/pdiddy/pubchem-fetch/internal/metrics"
	"github.com/pdiddy/pubchem-fetch/pkg/types"
)

// Fixed positions in the assay CSV. Line 1 is the column header and line 4
// the first data row for the requested CID; lines 2 and 3 carry PubChem's
// result type and description rows. Columns 9 and 10 hold the summary
// statistics.
const (
	headerLine = 0
	dataLine   = 3
	meanCol    = 8
	stdDevCol  = 9
	minLines   = dataLine + 1
	minColumns = stdDevCol + 1
)

// AssayURL returns the bioassay CSV URL for one (aid, cid) pair.
func (c *Client) AssayURL(aid, cid int) string {
	return fmt.Sprintf("%s/assay/aid/%d/CSV?cid=%d", c.baseURL, aid, cid)
}

// Assay performs a single bioassay lookup for (aid, cid).
func (c *Client) Assay(ctx context.Context, aid, cid int) (types.AssayRecord, error) {
	var rec types.AssayRecord
	err := c.fetch(ctx, metrics.EndpointAssay, c.AssayURL(aid, cid), func(body []byte) error {
		r, err := ParseAssayRow(aid, cid, body)
		if err != nil {
			return err
		}
		rec = r
		return nil
	})
	return rec, err
}

// ParseAssayRow extracts the mean and standard deviation for cid from an
// assay CSV payload. Fields are located by position with a plain comma
// split; the header strings at those positions are kept as labels.
//
// A payload with fewer than four lines, or a header or data row with fewer
// than ten columns, fails with ErrMalformedPayload and no record.
func ParseAssayRow(aid, cid int, payload []byte) (types.AssayRecord, error) {
	lines := strings.Split(string(payload), "\n")
	if len(lines) < minLines {
		return types.AssayRecord{}, malformed("assay CSV for AID %d CID %d has %d lines, need at least %d",
			aid, cid, len(lines), minLines)
	}

	header := splitRow(lines[headerLine])
	data := splitRow(lines[dataLine])
	if len(header) < minColumns {
		return types.AssayRecord{}, malformed("assay CSV header for AID %d has %d columns, need at least %d",
			aid, len(header), minColumns)
	}
	if len(data) < minColumns {
		return types.AssayRecord{}, malformed("assay CSV data row for AID %d CID %d has %d columns, need at least %d",
			aid, cid, len(data), minColumns)
	}

	return types.AssayRecord{
		CID:         cid,
		AID:         aid,
		Mean:        data[meanCol],
		StdDev:      data[stdDevCol],
		MeanLabel:   header[meanCol],
		StdDevLabel: header[stdDevCol],
		Status:      types.StatusOK,
	}, nil
}

func splitRow(line string) []string {
	return strings.Split(strings.TrimSuffix(line, "\r"), ",")
}
