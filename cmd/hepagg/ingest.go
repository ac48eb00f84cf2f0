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

	"github.com/SnellerInc/hepcorpus/corpus/aggregator"
)

func ingest(corpusDir string, submissionDirs []string) {
	a, err := aggregator.Open(corpusDir, dashc)
	if err != nil {
		exitf("opening corpus at %s: %s", corpusDir, err)
	}
	for _, dir := range submissionDirs {
		if dashv {
			fmt.Printf("ingesting %s\n", dir)
		}
		if err := a.ProcessSubmission(dir); err != nil {
			exitf("ingesting %s: %s", dir, err)
		}
	}
	if err := a.Close(); err != nil {
		exitf("closing corpus: %s", err)
	}
	fmt.Printf("ingested %d submission(s): %d table(s) scanned, %d rejected\n",
		a.CountSubmissions, a.CountTablesTotal, a.CountTablesRejected)
}
