// Copyright (C) 2022 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package yamldoc decodes the multi-document submission.yaml header/tables
// stream and each table's referenced data file into typed Go values, using
// gopkg.in/yaml.v2's Decoder.Decode in a loop for the multi-document part
// (yaml.v2 has no yaml.UnmarshalAll; HEPData submissions are a YAML stream
// of "---"-separated documents, so the stream is drained document by
// document).
package yamldoc

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v2"
)

// ErrNoInspireRecord is returned by InspireRecord when the header carries
// no record_ids entry of type "inspire".
var ErrNoInspireRecord = errors.New("yamldoc: no inspire record id in submission header")

// RecordID is one entry of a submission header's record_ids list.
type RecordID struct {
	Type string `yaml:"type"`
	ID   int64  `yaml:"id"`
}

// Header is the first document of submission.yaml.
type Header struct {
	Comment   string     `yaml:"comment"`
	RecordIDs []RecordID `yaml:"record_ids"`
}

// InspireRecord returns the unique record_ids entry of type "inspire".
func (h Header) InspireRecord() (int64, error) {
	for _, r := range h.RecordIDs {
		if r.Type == "inspire" {
			return r.ID, nil
		}
	}
	return 0, ErrNoInspireRecord
}

// Keyword is one entry of a table's keywords list (observables, reactions,
// cmenergies, phrases, ...).
type Keyword struct {
	Name   string        `yaml:"name"`
	Values []interface{} `yaml:"values"`
}

// Table is one of submission.yaml's table documents (documents after the
// header).
type Table struct {
	Name        string    `yaml:"name"`
	DataFile    string    `yaml:"data_file"`
	Description string    `yaml:"description"`
	Keywords    []Keyword `yaml:"keywords"`
}

// Submission is the fully decoded submission.yaml: one Header followed by
// its Tables.
type Submission struct {
	Header Header
	Tables []Table
}

// LoadSubmission reads and decodes the submission.yaml at path.
func LoadSubmission(path string) (Submission, error) {
	f, err := os.Open(path)
	if err != nil {
		return Submission{}, fmt.Errorf("yamldoc: opening %s: %w", path, err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	var header Header
	if err := dec.Decode(&header); err != nil {
		return Submission{}, fmt.Errorf("yamldoc: decoding submission header: %w", err)
	}

	var tables []Table
	for {
		var t Table
		err := dec.Decode(&t)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Submission{}, fmt.Errorf("yamldoc: decoding table document %d: %w", len(tables)+1, err)
		}
		tables = append(tables, t)
	}
	return Submission{Header: header, Tables: tables}, nil
}

// XValue is one row of an independent variable's values list: either a
// single Value or a Low/High pair.
type XValue struct {
	Value interface{} `yaml:"value,omitempty"`
	Low   interface{} `yaml:"low,omitempty"`
	High  interface{} `yaml:"high,omitempty"`
}

// HasRange reports whether this value is a low/high pair rather than a
// single point.
func (x XValue) HasRange() bool {
	return x.Low != nil || x.High != nil
}

// VarHeader is the header block of an independent or dependent variable.
type VarHeader struct {
	Name  string `yaml:"name"`
	Units string `yaml:"units"`
}

// IndependentVariable is one entry of a data file's independent_variables
// list.
type IndependentVariable struct {
	Header VarHeader `yaml:"header"`
	Values []XValue  `yaml:"values"`
}

// AsymError is an asymmetric error's plus/minus pair, each possibly a
// float, a percentage string, or a numeric string.
type AsymError struct {
	Plus  interface{} `yaml:"plus"`
	Minus interface{} `yaml:"minus"`
}

// ErrorSpec is one entry of a dependent value's errors list.
type ErrorSpec struct {
	Label     string      `yaml:"label"`
	SymError  interface{} `yaml:"symerror"`
	AsymError *AsymError  `yaml:"asymerror"`
}

// YValue is one row of a dependent variable's values list.
type YValue struct {
	Value  interface{} `yaml:"value"`
	Errors []ErrorSpec `yaml:"errors"`
}

// Qualifier is one entry of a dependent variable's qualifiers list.
type Qualifier struct {
	Name  string      `yaml:"name"`
	Value interface{} `yaml:"value"`
}

// DependentVariable is one entry of a data file's dependent_variables list.
type DependentVariable struct {
	Header     VarHeader   `yaml:"header"`
	Qualifiers []Qualifier `yaml:"qualifiers"`
	Values     []YValue    `yaml:"values"`
}

// DataFile is the decoded contents of a table's referenced data file
// (e.g. "Table1.yaml").
type DataFile struct {
	IndependentVariables []IndependentVariable `yaml:"independent_variables"`
	DependentVariables   []DependentVariable   `yaml:"dependent_variables"`
}

// LoadDataFile reads and decodes the single-document data file at path.
func LoadDataFile(path string) (DataFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return DataFile{}, fmt.Errorf("yamldoc: reading %s: %w", path, err)
	}
	var doc DataFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return DataFile{}, fmt.Errorf("yamldoc: decoding %s: %w", path, err)
	}
	return doc, nil
}
