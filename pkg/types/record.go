// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the pubchem-fetch pipeline:
// fetch configuration, property records and bioassay records.
package types

import "strconv"

// NA is the sentinel stored in every data field of a record whose retrieval
// failed, whether the API returned nothing usable or all attempts errored.
const NA = "NA"

// RecordStatus indicates whether a record holds fetched data or the NA placeholder.
type RecordStatus string

const (
	StatusOK RecordStatus = "ok"
	StatusNA RecordStatus = "na"
)

// Field is one named cell of an exported record.
type Field struct {
	Name  string
	Value string
}

// Column names used by the exporter.
const (
	ColCID         = "CID"
	ColAID         = "AID"
	ColFormula     = "Molecular Formula"
	ColWeight      = "Molecular Weight"
	ColSMILES      = "Canonical SMILES"
	ColInChIKey    = "InChIKey"
	ColMean        = "Mean"
	ColStdDev      = "StdDev"
	ColMeanLabel   = "Mean Label"
	ColStdDevLabel = "StdDev Label"
	ColData        = "Data"
)

// PropertyRecord holds the molecular properties of one compound.
//
// A property missing from an otherwise successful response is the empty
// string; a failed retrieval sets all four properties to NA.
type PropertyRecord struct {
	CID              int          `json:"cid" yaml:"cid"`
	MolecularFormula string       `json:"molecular_formula" yaml:"molecular_formula"`
	MolecularWeight  string       `json:"molecular_weight" yaml:"molecular_weight"`
	CanonicalSMILES  string       `json:"canonical_smiles" yaml:"canonical_smiles"`
	InChIKey         string       `json:"inchikey" yaml:"inchikey"`
	Status           RecordStatus `json:"status" yaml:"status"`

	// Attempts is the number of requests issued for this CID.
	Attempts int `json:"attempts" yaml:"attempts"`
	// Error is the last failure message for NA records.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

// NAPropertyRecord returns the placeholder for a CID whose retrieval failed.
func NAPropertyRecord(cid int) PropertyRecord {
	return PropertyRecord{
		CID:              cid,
		MolecularFormula: NA,
		MolecularWeight:  NA,
		CanonicalSMILES:  NA,
		InChIKey:         NA,
		Status:           StatusNA,
	}
}

// Fields returns the record's cells in export order.
func (r PropertyRecord) Fields() []Field {
	return []Field{
		{ColCID, strconv.Itoa(r.CID)},
		{ColFormula, r.MolecularFormula},
		{ColWeight, r.MolecularWeight},
		{ColSMILES, r.CanonicalSMILES},
		{ColInChIKey, r.InChIKey},
	}
}

// AssayRecord holds the summary statistics of one compound in one bioassay.
//
// Mean and StdDev come from fixed positions (columns 9 and 10) of the
// assay CSV. MeanLabel and StdDevLabel keep the header text PubChem sent at
// those positions so a column reorder upstream is visible in the output.
type AssayRecord struct {
	CID         int          `json:"cid" yaml:"cid"`
	AID         int          `json:"aid" yaml:"aid"`
	Mean        string       `json:"mean,omitempty" yaml:"mean,omitempty"`
	StdDev      string       `json:"stddev,omitempty" yaml:"stddev,omitempty"`
	MeanLabel   string       `json:"mean_label,omitempty" yaml:"mean_label,omitempty"`
	StdDevLabel string       `json:"stddev_label,omitempty" yaml:"stddev_label,omitempty"`
	Status      RecordStatus `json:"status" yaml:"status"`

	Attempts int    `json:"attempts" yaml:"attempts"`
	Error    string `json:"error,omitempty" yaml:"error,omitempty"`
}

// NAAssayRecord returns the placeholder for an (AID, CID) pair whose
// retrieval failed.
func NAAssayRecord(aid, cid int) AssayRecord {
	return AssayRecord{CID: cid, AID: aid, Status: StatusNA}
}

// Fields returns the record's cells in export order. NA records export as
// {AID, CID, Data} rather than the success columns.
func (r AssayRecord) Fields() []Field {
	if r.Status == StatusNA {
		return []Field{
			{ColAID, strconv.Itoa(r.AID)},
			{ColCID, strconv.Itoa(r.CID)},
			{ColData, NA},
		}
	}
	return []Field{
		{ColCID, strconv.Itoa(r.CID)},
		{ColAID, strconv.Itoa(r.AID)},
		{ColMean, r.Mean},
		{ColStdDev, r.StdDev},
		{ColMeanLabel, r.MeanLabel},
		{ColStdDevLabel, r.StdDevLabel},
	}
}
