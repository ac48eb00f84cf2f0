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

	"golang.org/x/exp/slices"

	"github.com/SnellerInc/hepcorpus/corpus/varindex"
)

func stats(corpusDir string) {
	ix, err := varindex.Open(corpusDir)
	if err != nil {
		exitf("opening variable index: %s", err)
	}
	names := ix.Variables()
	slices.Sort(names)

	total := 0
	for _, name := range names {
		e := ix.Entry(name)
		fmt.Printf("%-40s %10d records   %s\n", name, e.RecordCount, e.DirName)
		total += e.RecordCount
	}
	fmt.Printf("\n%d variable(s), %d record(s) total\n", len(names), total)
}
