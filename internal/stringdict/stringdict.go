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

// Package stringdict implements the per-variable append-only string
// dictionary: a file holding one string per line, where the 1-based line
// number is the string's id. Id 0 is reserved for the empty string and
// never appears in the file.
//
// The in-memory shape (a slice plus a reverse lookup map) mirrors
// ion.Symtab's interned/toindex pair, but the persistence format is the
// flat newline-delimited file the corpus's external interface specifies,
// not an Ion symbol table.
package stringdict

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/SnellerInc/hepcorpus/corpus/txn"
)

// ErrNewline is returned by IDFor when the string to intern contains a
// newline, which cannot be represented in the one-string-per-line file.
var ErrNewline = errors.New("stringdict: string contains a newline")

// ErrClosed is returned by IDFor and Close on a Dict after Close has been
// called on it. StringFor keeps answering from memory.
var ErrClosed = errors.New("stringdict: use of closed dictionary")

// Dict is an open per-variable string dictionary.
type Dict struct {
	f        *os.File
	toID     map[string]int // string -> id, excluding the empty string
	interned []string       // interned[i] is the string with id i+1
	closed   bool
}

// Open opens (creating if necessary) the dictionary file at path and loads
// any strings already present.
func Open(path string) (*Dict, error) {
	existing, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("stringdict: reading %s: %w", path, err)
	}
	d := &Dict{
		toID: make(map[string]int),
	}
	if len(existing) > 0 {
		lines := strings.Split(string(existing), "\n")
		// IDFor terminates every string with '\n', so the split yields
		// a trailing empty element; empty lines are skipped.
		for _, line := range lines {
			if line == "" {
				continue
			}
			d.interned = append(d.interned, line)
			d.toID[line] = len(d.interned)
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("stringdict: opening %s: %w", path, err)
	}
	d.f = f
	return d, nil
}

// IDFor returns the id for s, interning it via t if it is not already
// present. The empty string always maps to id 0.
func (d *Dict) IDFor(s string, t *txn.Txn) (int, error) {
	if d.closed {
		return 0, ErrClosed
	}
	if s == "" {
		return 0, nil
	}
	if id, ok := d.toID[s]; ok {
		return id, nil
	}
	if strings.Contains(s, "\n") {
		return 0, fmt.Errorf("stringdict: interning %q: %w", s, ErrNewline)
	}
	id := len(d.interned) + 1
	d.interned = append(d.interned, s)
	d.toID[s] = id
	if err := t.Write(d.f, []byte(s+"\n"), false); err != nil {
		return 0, fmt.Errorf("stringdict: buffering %q: %w", s, err)
	}
	return id, nil
}

// StringFor returns the string associated with id, or ("", false) if no
// such id has been assigned.
func (d *Dict) StringFor(id int) (string, bool) {
	if id == 0 {
		return "", true
	}
	if id < 1 || id > len(d.interned) {
		return "", false
	}
	return d.interned[id-1], true
}

// Close schedules the dictionary's file handle to be closed through t when
// t commits.
func (d *Dict) Close(t *txn.Txn) error {
	if d.closed {
		return ErrClosed
	}
	d.closed = true
	return t.Close(d.f)
}
