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

// Package varindex maintains variables.json, the JSON-backed directory
// mapping from an independent variable's name to the sharded on-disk
// directory holding its records.bin and strings.txt.
package varindex

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/SnellerInc/hepcorpus/corpus/txn"
)

// ErrReadOnlyVariable is returned by UpdateCount when asked to mutate a
// variable that has no directory entry.
var ErrReadOnlyVariable = errors.New("varindex: unknown variable")

// Entry describes one variable's on-disk location and bookkeeping.
type Entry struct {
	DirName     string `json:"dirName"`
	RecordCount int    `json:"recordCount"`
	// Checksum is a blake2b-256 hex digest of records.bin, maintained
	// out-of-band by `hepagg verify` (see corpus/checksum). It
	// is not kept up to date transactionally and so never participates
	// in commit atomicity.
	Checksum string `json:"checksum,omitempty"`
}

// Index is the open, in-memory view of variables.json.
type Index struct {
	rootDir string
	path    string
	entries map[string]*Entry
}

// Open loads (or initializes, if absent) the variable index rooted at
// rootDir.
func Open(rootDir string) (*Index, error) {
	path := filepath.Join(rootDir, "variables.json")
	ix := &Index{
		rootDir: rootDir,
		path:    path,
		entries: make(map[string]*Entry),
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ix, nil
		}
		return nil, fmt.Errorf("varindex: reading %s: %w", path, err)
	}
	if len(data) == 0 {
		return ix, nil
	}
	if err := json.Unmarshal(data, &ix.entries); err != nil {
		return nil, fmt.Errorf("varindex: parsing %s: %w", path, err)
	}
	return ix, nil
}

// Entry returns the current entry for var, or nil if it has none.
func (ix *Index) Entry(variable string) *Entry {
	return ix.entries[variable]
}

// Variables returns the names of every variable with an entry, in no
// particular order.
func (ix *Index) Variables() []string {
	out := make([]string, 0, len(ix.entries))
	for k := range ix.entries {
		out = append(out, k)
	}
	return out
}

// DirectoryFor returns the absolute directory path for variable,
// assigning and creating it on disk on first use.
func (ix *Index) DirectoryFor(variable string) (string, error) {
	if e, ok := ix.entries[variable]; ok {
		return filepath.Join(ix.rootDir, e.DirName), nil
	}
	dirName := shardedDirName(variable)
	full := filepath.Join(ix.rootDir, dirName)
	if err := os.MkdirAll(full, 0o755); err != nil {
		return "", fmt.Errorf("varindex: creating directory for %q: %w", variable, err)
	}
	ix.entries[variable] = &Entry{DirName: dirName}
	var werr error
	txn.Uninterruptible(func() {
		werr = ix.rewrite()
	})
	if werr != nil {
		return "", werr
	}
	return full, nil
}

// UpdateCount adds delta to variable's record count and persists the
// change. variable must already have a directory (i.e. DirectoryFor must
// have been called for it previously).
func (ix *Index) UpdateCount(variable string, delta int) error {
	e, ok := ix.entries[variable]
	if !ok {
		return fmt.Errorf("varindex: updating count for %q: %w", variable, ErrReadOnlyVariable)
	}
	e.RecordCount += delta
	var werr error
	txn.Uninterruptible(func() {
		werr = ix.rewrite()
	})
	return werr
}

// SetChecksum records variable's checksum without touching its record
// count, used by the out-of-band verify tooling.
func (ix *Index) SetChecksum(variable, checksum string) error {
	e, ok := ix.entries[variable]
	if !ok {
		return fmt.Errorf("varindex: setting checksum for %q: %w", variable, ErrReadOnlyVariable)
	}
	e.Checksum = checksum
	var werr error
	txn.Uninterruptible(func() {
		werr = ix.rewrite()
	})
	return werr
}

func (ix *Index) rewrite() error {
	data, err := json.Marshal(ix.entries)
	if err != nil {
		return fmt.Errorf("varindex: encoding %s: %w", ix.path, err)
	}
	if err := os.WriteFile(ix.path, data, 0o644); err != nil {
		return fmt.Errorf("varindex: writing %s: %w", ix.path, err)
	}
	return nil
}

// shortHash returns the lowercase hex SHA-1 digest of variable.
func shortHash(variable string) string {
	sum := sha1.Sum([]byte(variable))
	return hex.EncodeToString(sum[:])
}

// sanitize strips variable down to alphanumerics plus space, '.', and '_'.
func sanitize(variable string) string {
	var b strings.Builder
	for _, r := range variable {
		if r == ' ' || r == '.' || r == '_' ||
			(r >= '0' && r <= '9') ||
			(r >= 'a' && r <= 'z') ||
			(r >= 'A' && r <= 'Z') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// shardedDirName computes the "<hh>/<sanitized-name> - <6hex>" directory
// name for variable, per the corpus's external interface.
func shardedDirName(variable string) string {
	hash := shortHash(variable)
	suffix := hash[len(hash)-6:]
	shard := hash[len(hash)-2:]
	name := sanitize(variable) + " - " + suffix
	return filepath.Join(shard, name)
}
