// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pubchem

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/pdiddy/pubchem-fetch/internal/metrics"
	"github.com/pdiddy/pubchem-fetch/pkg/types"
)

// propertyList is the property set requested for every compound.
const propertyList = "MolecularFormula,MolecularWeight,CanonicalSMILES,InChIKey"

// PropertyURL returns the property lookup URL for cid.
func (c *Client) PropertyURL(cid int) string {
	return fmt.Sprintf("%s/compound/cid/%d/property/%s/JSON", c.baseURL, cid, propertyList)
}

// Properties performs a single property lookup for cid.
func (c *Client) Properties(ctx context.Context, cid int) (types.PropertyRecord, error) {
	var rec types.PropertyRecord
	err := c.fetch(ctx, metrics.EndpointProperty, c.PropertyURL(cid), func(body []byte) error {
		r, err := parseProperties(cid, body)
		if err != nil {
			return err
		}
		rec = r
		return nil
	})
	return rec, err
}

// parseProperties decodes a PropertyTable response into a record. The
// first entry of PropertyTable.Properties is used. Properties absent from
// the entry are left empty.
func parseProperties(cid int, body []byte) (types.PropertyRecord, error) {
	var resp propertyResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return types.PropertyRecord{}, malformed("decoding property JSON for CID %d: %v", cid, err)
	}
	if len(resp.PropertyTable.Properties) == 0 {
		return types.PropertyRecord{}, malformed("empty PropertyTable for CID %d", cid)
	}

	p := resp.PropertyTable.Properties[0]
	smiles := string(p.CanonicalSMILES)
	if smiles == "" {
		// PubChem renamed CanonicalSMILES; newer responses carry it here.
		smiles = string(p.ConnectivitySMILES)
	}
	return types.PropertyRecord{
		CID:              cid,
		MolecularFormula: string(p.MolecularFormula),
		MolecularWeight:  string(p.MolecularWeight),
		CanonicalSMILES:  smiles,
		InChIKey:         string(p.InChIKey),
		Status:           types.StatusOK,
	}, nil
}

// PUG REST property JSON structures.
type propertyResponse struct {
	PropertyTable struct {
		Properties []propertyEntry `json:"Properties"`
	} `json:"PropertyTable"`
}

type propertyEntry struct {
	CID                int        `json:"CID"`
	MolecularFormula   flexString `json:"MolecularFormula"`
	MolecularWeight    flexString `json:"MolecularWeight"`
	CanonicalSMILES    flexString `json:"CanonicalSMILES"`
	ConnectivitySMILES flexString `json:"ConnectivitySMILES"`
	InChIKey           flexString `json:"InChIKey"`
}

// flexString accepts a JSON string or number. PubChem has served
// MolecularWeight both ways.
type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*s = ""
	case len(data) > 0 && data[0] == '"':
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = flexString(v)
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("expected string or number, got %s", data)
		}
		*s = flexString(n.String())
	}
	return nil
}
