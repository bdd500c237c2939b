// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pubchem

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/pubchem-fetch/internal/httputil"
	"github.com/pdiddy/pubchem-fetch/pkg/types"
)

// --- parseProperties ---

func TestParseProperties(t *testing.T) {
	tests := []struct {
		name string
		body string
		want types.PropertyRecord
	}{
		{
			name: "all properties",
			body: propertyJSON(2244),
			want: types.PropertyRecord{
				CID:              2244,
				MolecularFormula: "C9H8O4",
				MolecularWeight:  "180.16",
				CanonicalSMILES:  "CC(=O)OC1=CC=CC=C1C(=O)O",
				InChIKey:         "BSYNRYMUTXBXSQ-UHFFFAOYSA-N",
				Status:           types.StatusOK,
			},
		},
		{
			name: "numeric molecular weight",
			body: `{"PropertyTable":{"Properties":[{"CID":702,"MolecularFormula":"C2H6O","MolecularWeight":46.07,"CanonicalSMILES":"CCO","InChIKey":"LFQSCWFLJHTTHZ-UHFFFAOYSA-N"}]}}`,
			want: types.PropertyRecord{
				CID:              702,
				MolecularFormula: "C2H6O",
				MolecularWeight:  "46.07",
				CanonicalSMILES:  "CCO",
				InChIKey:         "LFQSCWFLJHTTHZ-UHFFFAOYSA-N",
				Status:           types.StatusOK,
			},
		},
		{
			name: "missing properties are empty, not NA",
			body: `{"PropertyTable":{"Properties":[{"CID":5,"MolecularFormula":"H2O","InChIKey":null}]}}`,
			want: types.PropertyRecord{
				CID:              5,
				MolecularFormula: "H2O",
				Status:           types.StatusOK,
			},
		},
		{
			name: "connectivity SMILES fallback",
			body: `{"PropertyTable":{"Properties":[{"CID":702,"MolecularFormula":"C2H6O","MolecularWeight":"46.07","ConnectivitySMILES":"CCO","InChIKey":"LFQSCWFLJHTTHZ-UHFFFAOYSA-N"}]}}`,
			want: types.PropertyRecord{
				CID:              702,
				MolecularFormula: "C2H6O",
				MolecularWeight:  "46.07",
				CanonicalSMILES:  "CCO",
				InChIKey:         "LFQSCWFLJHTTHZ-UHFFFAOYSA-N",
				Status:           types.StatusOK,
			},
		},
		{
			name: "first entry wins",
			body: `{"PropertyTable":{"Properties":[{"CID":1,"MolecularFormula":"A"},{"CID":1,"MolecularFormula":"B"}]}}`,
			want: types.PropertyRecord{CID: 1, MolecularFormula: "A", Status: types.StatusOK},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseProperties(tt.want.CID, []byte(tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseProperties_Malformed(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `<html>oops</html>`},
		{"truncated", `{"PropertyTable":{"Properties":[{"CID":1`},
		{"empty table", `{"PropertyTable":{"Properties":[]}}`},
		{"missing table", `{"Fault":{"Code":"PUGREST.NotFound"}}`},
		{"object weight", `{"PropertyTable":{"Properties":[{"CID":1,"MolecularWeight":{"v":1}}]}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseProperties(1, []byte(tt.body))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformedPayload)
			assert.Equal(t, httputil.ClassPermanent, httputil.Classify(err))
		})
	}
}

// --- ParseAssayRow ---

func TestParseAssayRow(t *testing.T) {
	rec, err := ParseAssayRow(1000, 2244, []byte(assayCSV(2244)))
	require.NoError(t, err)
	assert.Equal(t, types.AssayRecord{
		CID:         2244,
		AID:         1000,
		Mean:        "12.5",
		StdDev:      "1.75",
		MeanLabel:   "Mean IC50",
		StdDevLabel: "StdDev IC50",
		Status:      types.StatusOK,
	}, rec)
}

func TestParseAssayRow_CRLF(t *testing.T) {
	payload := "a,b,c,d,e,f,g,h,AC50,SD\r\nx\r\ny\r\n1,2,3,4,5,6,7,8,0.5,0.1\r\n"
	rec, err := ParseAssayRow(1, 2, []byte(payload))
	require.NoError(t, err)
	assert.Equal(t, "0.5", rec.Mean)
	assert.Equal(t, "0.1", rec.StdDev)
	assert.Equal(t, "AC50", rec.MeanLabel)
	assert.Equal(t, "SD", rec.StdDevLabel)
}

func TestParseAssayRow_ExtraColumnsIgnored(t *testing.T) {
	payload := "h0,h1,h2,h3,h4,h5,h6,h7,h8,h9,h10,h11\nx\ny\nd0,d1,d2,d3,d4,d5,d6,d7,d8,d9,d10,d11"
	rec, err := ParseAssayRow(1, 2, []byte(payload))
	require.NoError(t, err)
	assert.Equal(t, "d8", rec.Mean)
	assert.Equal(t, "d9", rec.StdDev)
	assert.Equal(t, "h8", rec.MeanLabel)
	assert.Equal(t, "h9", rec.StdDevLabel)
}

func TestParseAssayRow_Structural(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"empty", ""},
		{"one line", assayHeader},
		{"three lines", assayHeader + "\nx\ny"},
		{"header too narrow", "a,b,c\nx\ny\n1,2,3,4,5,6,7,8,9,10"},
		{"data row too narrow", assayHeader + "\nx\ny\n1,2,3"},
		{"trailing newline leaves empty data row", assayHeader + "\nx\ny\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := ParseAssayRow(1, 2, []byte(tt.payload))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformedPayload)
			assert.Equal(t, httputil.ClassPermanent, httputil.Classify(err))
			assert.Equal(t, types.AssayRecord{}, rec)
		})
	}
}
