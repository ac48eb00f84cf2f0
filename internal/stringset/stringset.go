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

// Package stringset implements a persistent unordered set of non-empty
// strings, newline-separated on disk, used as the submission-id commit
// witness that gates idempotency.
package stringset

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/SnellerInc/hepcorpus/corpus/txn"
)

// ErrEmptyString is returned by Add when asked to store the empty string,
// which the on-disk format cannot distinguish from a blank line.
var ErrEmptyString = errors.New("stringset: empty string")

// ErrClosed is returned by Add and Close on a Store after Close. Contains
// keeps answering from memory.
var ErrClosed = errors.New("stringset: use of closed store")

// Store is an open string set backed by a newline-separated file.
type Store struct {
	f       *os.File
	nonZero bool // file already has content, so Add must prefix a newline
	set     map[string]struct{}
	closed  bool
}

// Open opens (creating if necessary) the set file at path and loads its
// contents into memory.
func Open(path string) (*Store, error) {
	existing, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("stringset: reading %s: %w", path, err)
	}
	s := &Store{set: make(map[string]struct{})}
	for _, line := range strings.Split(string(existing), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		s.set[line] = struct{}{}
	}
	s.nonZero = len(existing) > 0
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("stringset: opening %s: %w", path, err)
	}
	s.f = f
	return s, nil
}

// Contains reports whether item is already a member of the set.
func (s *Store) Contains(item string) bool {
	_, ok := s.set[item]
	return ok
}

// Add inserts item into the set, buffering the on-disk append through t. A
// leading newline is emitted only when the file already has content, so
// the on-disk representation never begins or ends with a stray delimiter.
// Adding an item already present is a silent no-op.
func (s *Store) Add(item string, t *txn.Txn) error {
	if s.closed {
		return ErrClosed
	}
	if item == "" {
		return ErrEmptyString
	}
	if strings.Contains(item, "\n") {
		return fmt.Errorf("stringset: adding %q: contains newline", item)
	}
	if s.Contains(item) {
		return nil
	}
	s.set[item] = struct{}{}
	var payload string
	if s.nonZero {
		payload = "\n" + item
	} else {
		payload = item
	}
	s.nonZero = true
	return t.Write(s.f, []byte(payload), false)
}

// Close schedules the store's file handle to be closed through t when t
// commits.
func (s *Store) Close(t *txn.Txn) error {
	if s.closed {
		return ErrClosed
	}
	s.closed = true
	return t.Close(s.f)
}
