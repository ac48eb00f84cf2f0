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

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/SnellerInc/hepcorpus/corpus/aggregator"
)

// miniDemoSubmission is one synthetic publication's submission.yaml plus
// its tables, reproducing the two-publication fixture the original
// prototype wired directly into its Elasticsearch index via
// load_mini_demo.
type miniDemoSubmission struct {
	inspireRecord int
	comment       string
	tables        []miniDemoTable
}

type miniDemoTable struct {
	num    int
	varX   string
	varY   string
	points [][2]float64 // (x, y) pairs
}

var miniDemo = []miniDemoSubmission{
	{
		inspireRecord: 1,
		comment:       "Publication A",
		tables: []miniDemoTable{
			{num: 1, varX: "time", varY: "speed", points: [][2]float64{{1, 10}, {2, 11}}},
			{num: 2, varX: "time", varY: "acceleration", points: [][2]float64{{1, 5}, {2, 5}, {3, 5}, {4, 4}}},
		},
	},
	{
		inspireRecord: 2,
		comment:       "Publication B",
		tables: []miniDemoTable{
			{num: 1, varX: "time", varY: "distance", points: [][2]float64{{1, 100}, {2, 120}}},
			{num: 2, varX: "time", varY: "speed", points: [][2]float64{{1, 50}, {2, 40}, {3, 50}, {4, 40}}},
		},
	},
}

func writeMiniDemoFixture(root string) ([]string, error) {
	var dirs []string
	for _, pub := range miniDemo {
		dir := filepath.Join(root, fmt.Sprintf("ins%d", pub.inspireRecord))
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}

		sub := fmt.Sprintf("comment: %s\nrecord_ids:\n  - {type: inspire, id: %d}\n", pub.comment, pub.inspireRecord)
		for _, table := range pub.tables {
			sub += fmt.Sprintf("---\nname: Table %d\ndata_file: Table%d.yaml\ndescription: %s vs %s\nkeywords: []\n",
				table.num, table.num, table.varY, table.varX)

			doc := fmt.Sprintf("independent_variables:\n  - header: {name: %s}\n    values:\n", table.varX)
			for _, p := range table.points {
				doc += fmt.Sprintf("      - {value: %g}\n", p[0])
			}
			doc += fmt.Sprintf("dependent_variables:\n  - header: {name: %s}\n    values:\n", table.varY)
			for _, p := range table.points {
				doc += fmt.Sprintf("      - {value: %g}\n", p[1])
			}

			if err := os.WriteFile(filepath.Join(dir, fmt.Sprintf("Table%d.yaml", table.num)), []byte(doc), 0o644); err != nil {
				return nil, err
			}
		}
		if err := os.WriteFile(filepath.Join(dir, "submission.yaml"), []byte(sub), 0o644); err != nil {
			return nil, err
		}
		dirs = append(dirs, dir)
	}
	return dirs, nil
}

func demo(corpusDir string) {
	fixtureRoot, err := os.MkdirTemp("", "hepagg-demo-*")
	if err != nil {
		exitf("creating demo fixture: %s", err)
	}
	defer os.RemoveAll(fixtureRoot)

	dirs, err := writeMiniDemoFixture(fixtureRoot)
	if err != nil {
		exitf("writing demo fixture: %s", err)
	}

	a, err := aggregator.Open(corpusDir, dashc)
	if err != nil {
		exitf("opening corpus at %s: %s", corpusDir, err)
	}
	for _, dir := range dirs {
		if err := a.ProcessSubmission(dir); err != nil {
			exitf("ingesting demo submission %s: %s", dir, err)
		}
	}
	if err := a.Close(); err != nil {
		exitf("closing corpus: %s", err)
	}
	fmt.Printf("demo corpus ready at %s: %d submission(s), %d table(s)\n",
		corpusDir, a.CountSubmissions, a.CountTablesTotal)
}
