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

	"golang.org/x/exp/slices"

	"github.com/SnellerInc/hepcorpus/corpus/checksum"
	"github.com/SnellerInc/hepcorpus/corpus/varindex"
	"github.com/SnellerInc/hepcorpus/corpus/writer"
)

// verify confirms every variable's records.bin decodes cleanly under the
// group/record grammar, that the sum of its groups' record_count fields
// matches the count recorded in variables.json, and recomputes and persists
// its blake2b-256 checksum. Checksums are maintained out-of-band (see
// corpus/varindex.Entry), so this never touches commit atomicity for
// ingest.
func verify(corpusDir string) {
	ix, err := varindex.Open(corpusDir)
	if err != nil {
		exitf("opening variable index: %s", err)
	}
	names := ix.Variables()
	slices.Sort(names)
	mismatches := 0
	for _, name := range names {
		e := ix.Entry(name)
		recordsPath := filepath.Join(corpusDir, e.DirName, "records.bin")

		count, err := writer.CountRecords(recordsPath)
		if err != nil {
			exitf("parsing %s: %s", name, err)
		}
		if count != e.RecordCount {
			mismatches++
			fmt.Fprintf(os.Stderr, "%s: recordCount mismatch: index says %d, records.bin has %d\n",
				name, e.RecordCount, count)
		}

		sum, err := checksum.RecordsFile(recordsPath)
		if err != nil {
			exitf("checksumming %s: %s", name, err)
		}
		if err := ix.SetChecksum(name, sum); err != nil {
			exitf("recording checksum for %s: %s", name, err)
		}
		if dashv {
			fmt.Printf("%s: %d record(s), %s\n", name, count, sum)
		}
	}
	if mismatches > 0 {
		exitf("verify failed: %d variable(s) with recordCount mismatches", mismatches)
	}
	fmt.Printf("verified %d variable(s)\n", len(names))
}
