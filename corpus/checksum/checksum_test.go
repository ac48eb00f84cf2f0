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

package checksum

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRecordsFileIsDeterministic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "records.bin")
	if err := os.WriteFile(path, []byte("hello world"), 0o644); err != nil {
		t.Fatal(err)
	}
	a, err := RecordsFile(path)
	if err != nil {
		t.Fatal(err)
	}
	b, err := RecordsFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Errorf("checksum not deterministic: %s != %s", a, b)
	}
	if len(a) != 64 {
		t.Errorf("digest length = %d, want 64 hex chars for blake2b-256", len(a))
	}
}

func TestRecordsFileDiffersOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "records.bin")
	os.WriteFile(path, []byte("a"), 0o644)
	a, _ := RecordsFile(path)
	os.WriteFile(path, []byte("b"), 0o644)
	b, _ := RecordsFile(path)
	if a == b {
		t.Error("checksums should differ for different contents")
	}
}
