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

// Package txn implements the all-or-nothing write transaction that guards
// every submission committed to a corpus: writers buffer their bytes and
// schedule file closures against a Txn value, and Commit() drains every
// buffer and performs every closure as a single uninterruptible unit.
//
// A Txn is an explicit value threaded through the aggregator and its
// writers, not a hidden global — see DESIGN.md for why.
package txn

import (
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
)

// ErrModeMismatch is returned by Write when the same file handle is used
// for both binary and text writes within one transaction.
var ErrModeMismatch = errors.New("txn: file written as both binary and text")

// ErrAlreadyCommitted is returned by any operation attempted on a Txn after
// Commit has already run.
var ErrAlreadyCommitted = errors.New("txn: transaction already committed")

type pending struct {
	buf    []byte
	binary bool
	set    bool // whether binary has been determined yet
}

// Txn buffers pending writes and scheduled file closures for one
// transaction. The zero value is not usable; construct with New.
type Txn struct {
	// ID is a correlation id for log lines spanning the lifetime of the
	// transaction, in the style of the per-query uuids sneller assigns
	// its request handlers.
	ID uuid.UUID

	committed bool
	buffers   map[*os.File]*pending
	closes    map[*os.File]struct{}
}

// New begins a new transaction.
func New() *Txn {
	return &Txn{
		ID:      uuid.New(),
		buffers: make(map[*os.File]*pending),
		closes:  make(map[*os.File]struct{}),
	}
}

func (t *Txn) entry(f *os.File) *pending {
	p, ok := t.buffers[f]
	if !ok {
		p = &pending{}
		t.buffers[f] = p
	}
	return p
}

// Write appends data to the pending buffer for f. binary indicates whether
// data should be treated as an opaque byte stream (true) or UTF-8 text
// (false); mixing the two for the same handle within one transaction is a
// programming error and returns ErrModeMismatch.
func (t *Txn) Write(f *os.File, data []byte, binary bool) error {
	if t.committed {
		return ErrAlreadyCommitted
	}
	p := t.entry(f)
	if p.set && p.binary != binary {
		return fmt.Errorf("txn: write to %s: %w", f.Name(), ErrModeMismatch)
	}
	p.binary = binary
	p.set = true
	p.buf = append(p.buf, data...)
	return nil
}

// Close schedules f to be closed once the transaction commits. The handle
// remains open and usable for any further buffered writes until Commit
// drains it.
func (t *Txn) Close(f *os.File) error {
	if t.committed {
		return ErrAlreadyCommitted
	}
	t.closes[f] = struct{}{}
	return nil
}

// Commit drains every pending buffer to disk and then performs every
// scheduled close, masking delivery of SIGINT for the duration on
// platforms that support it (see uninterruptible.go). It is an error to
// call Commit more than once.
func (t *Txn) Commit() error {
	if t.committed {
		return ErrAlreadyCommitted
	}
	var err error
	withSignalsMasked(func() {
		t.committed = true
		for f, p := range t.buffers {
			if len(p.buf) == 0 {
				continue
			}
			if _, werr := f.Write(p.buf); werr != nil {
				err = fmt.Errorf("txn: commit: writing %s: %w", f.Name(), werr)
				return
			}
		}
		for f := range t.closes {
			if cerr := f.Close(); cerr != nil && err == nil {
				err = fmt.Errorf("txn: commit: closing %s: %w", f.Name(), cerr)
			}
		}
	})
	return err
}

// Abort discards every pending buffer and scheduled close without touching
// disk. No file is modified and every handle remains open exactly as it was
// before the transaction began.
func (t *Txn) Abort() {
	t.committed = true
	t.buffers = nil
	t.closes = nil
}
