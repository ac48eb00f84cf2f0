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

// Command hepagg ingests HEPData submissions into an on-disk corpus of
// per-variable record files.
package main

import (
	"flag"
	"fmt"
	"os"
)

var (
	dashv bool
	dashh bool
	dashc int
)

func init() {
	flag.BoolVar(&dashv, "v", false, "verbose")
	flag.BoolVar(&dashh, "h", false, "show usage help")
	flag.IntVar(&dashc, "c", 0, "writer cache capacity (0 uses the default)")
}

func exitf(f string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, f+"\n", args...)
	os.Exit(1)
}

func main() {
	flag.Parse()
	args := flag.Args()
	if len(args) == 0 || dashh {
		fmt.Fprintf(os.Stderr, "usage:\n")
		fmt.Fprintf(os.Stderr, "    %s [-c <cache-size>] ingest <corpus-dir> <submission-dir>...\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "        ingest one or more submissions into the corpus\n")
		fmt.Fprintf(os.Stderr, "    %s demo <corpus-dir>\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "        ingest a small built-in fixture, for smoke-testing a corpus\n")
		fmt.Fprintf(os.Stderr, "    %s verify <corpus-dir>\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "        recompute and store every variable's checksum\n")
		fmt.Fprintf(os.Stderr, "    %s stats <corpus-dir>\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "        report per-variable record counts\n")
		fmt.Fprintf(os.Stderr, "    %s export <corpus-dir> <output.tar.zst>\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "        write a compressed snapshot of the corpus\n")
		fmt.Fprintf(os.Stderr, "flag usage:\n")
		flag.Usage()
		os.Exit(1)
	}

	switch args[0] {
	case "ingest":
		if len(args) < 3 {
			exitf("usage: ingest <corpus-dir> <submission-dir>...")
		}
		ingest(args[1], args[2:])
	case "demo":
		if len(args) != 2 {
			exitf("usage: demo <corpus-dir>")
		}
		demo(args[1])
	case "verify":
		if len(args) != 2 {
			exitf("usage: verify <corpus-dir>")
		}
		verify(args[1])
	case "stats":
		if len(args) != 2 {
			exitf("usage: stats <corpus-dir>")
		}
		stats(args[1])
	case "export":
		if len(args) != 3 {
			exitf("usage: export <corpus-dir> <output.tar.zst>")
		}
		export(args[1], args[2])
	default:
		exitf("commands: ingest, demo, verify, stats, export")
	}
}
