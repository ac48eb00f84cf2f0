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

package yamldoc

import (
	"os"
	"path/filepath"
	"testing"
)

const submissionYAML = `comment: A test publication
record_ids:
  - {type: inspire, id: 42}
---
name: Table 1
data_file: Table1.yaml
description: a table
keywords:
  - {name: observables, values: [DSIG]}
  - {name: reactions, values: ["P P --> Z0 X"]}
`

const table1YAML = `independent_variables:
  - header: {name: PT, units: GeV}
    values:
      - {low: 0, high: 10}
      - {low: 10, high: 20}
dependent_variables:
  - header: {name: sigma}
    qualifiers:
      - {name: SQRT(S)/NUCLEON, value: "7000 GeV"}
    values:
      - {value: 1.5}
      - {value: "-"}
`

func TestLoadSubmission(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "submission.yaml"), []byte(submissionYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	sub, err := LoadSubmission(filepath.Join(dir, "submission.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	inspire, err := sub.Header.InspireRecord()
	if err != nil || inspire != 42 {
		t.Fatalf("inspire = %d, err %v", inspire, err)
	}
	if len(sub.Tables) != 1 {
		t.Fatalf("got %d tables, want 1", len(sub.Tables))
	}
	if sub.Tables[0].Name != "Table 1" {
		t.Errorf("table name = %q", sub.Tables[0].Name)
	}
	if len(sub.Tables[0].Keywords) != 2 {
		t.Errorf("got %d keywords, want 2", len(sub.Tables[0].Keywords))
	}
}

func TestLoadDataFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Table1.yaml")
	if err := os.WriteFile(path, []byte(table1YAML), 0o644); err != nil {
		t.Fatal(err)
	}
	doc, err := LoadDataFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(doc.IndependentVariables) != 1 || len(doc.IndependentVariables[0].Values) != 2 {
		t.Fatalf("independent variables: %+v", doc.IndependentVariables)
	}
	if doc.IndependentVariables[0].Header.Name != "PT" || doc.IndependentVariables[0].Header.Units != "GeV" {
		t.Errorf("header = %+v", doc.IndependentVariables[0].Header)
	}
	if len(doc.DependentVariables) != 1 || len(doc.DependentVariables[0].Values) != 2 {
		t.Fatalf("dependent variables: %+v", doc.DependentVariables)
	}
	if doc.DependentVariables[0].Values[1].Value != "-" {
		t.Errorf("expected sentinel '-' for second row, got %v", doc.DependentVariables[0].Values[1].Value)
	}
	if len(doc.DependentVariables[0].Qualifiers) != 1 {
		t.Fatalf("qualifiers: %+v", doc.DependentVariables[0].Qualifiers)
	}
}

func TestNoInspireRecord(t *testing.T) {
	h := Header{Comment: "x"}
	if _, err := h.InspireRecord(); err != ErrNoInspireRecord {
		t.Errorf("expected ErrNoInspireRecord, got %v", err)
	}
}
