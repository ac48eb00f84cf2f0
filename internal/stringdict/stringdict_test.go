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

package stringdict

import (
	"path/filepath"
	"testing"

	"github.com/SnellerInc/hepcorpus/corpus/txn"
)

func TestEmptyStringIsIDZero(t *testing.T) {
	path := filepath.Join(t.TempDir(), "strings.txt")
	d, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	tr := txn.New()
	id, err := d.IDFor("", tr)
	if err != nil {
		t.Fatal(err)
	}
	if id != 0 {
		t.Errorf("id for empty string = %d, want 0", id)
	}
	s, ok := d.StringFor(0)
	if !ok || s != "" {
		t.Errorf("StringFor(0) = %q, %v", s, ok)
	}
}

func TestInternAndReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "strings.txt")
	d, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	tr := txn.New()
	idMain, err := d.IDFor("main", tr)
	if err != nil {
		t.Fatal(err)
	}
	if idMain != 1 {
		t.Errorf("first interned id = %d, want 1", idMain)
	}
	idPM, err := d.IDFor("_pm", tr)
	if err != nil {
		t.Fatal(err)
	}
	if idPM != 2 {
		t.Errorf("second interned id = %d, want 2", idPM)
	}
	// interning the same string twice returns the same id without
	// writing again
	again, err := d.IDFor("main", tr)
	if err != nil {
		t.Fatal(err)
	}
	if again != idMain {
		t.Errorf("re-intern returned %d, want %d", again, idMain)
	}
	if err := d.Close(tr); err != nil {
		t.Fatal(err)
	}
	if err := tr.Commit(); err != nil {
		t.Fatal(err)
	}

	d2, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	s, ok := d2.StringFor(idMain)
	if !ok || s != "main" {
		t.Errorf("reopened StringFor(%d) = %q, %v", idMain, s, ok)
	}
	s, ok = d2.StringFor(idPM)
	if !ok || s != "_pm" {
		t.Errorf("reopened StringFor(%d) = %q, %v", idPM, s, ok)
	}
}

func TestInternRejectsNewline(t *testing.T) {
	path := filepath.Join(t.TempDir(), "strings.txt")
	d, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	tr := txn.New()
	if _, err := d.IDFor("line1\nline2", tr); err == nil {
		t.Fatal("expected error interning a string with a newline")
	}
}

func TestDoubleClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "strings.txt")
	d, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	tr := txn.New()
	if err := d.Close(tr); err != nil {
		t.Fatal(err)
	}
	if err := d.Close(tr); err != ErrClosed {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}
