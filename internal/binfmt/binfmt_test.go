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

package binfmt

import (
	"bytes"
	"testing"
)

func TestVarintLiterals(t *testing.T) {
	cases := []struct {
		n    int64
		want []byte
	}{
		{0, []byte{0x00}},
		{127, []byte{0x7F}},
		{128, []byte{0x80, 0x01}},
		{600, []byte{0xD8, 0x04}},
		{123456, []byte{0xC0, 0xC4, 0x07}},
	}
	for _, c := range cases {
		got, err := AppendVarint(nil, c.n)
		if err != nil {
			t.Fatalf("AppendVarint(%d): %s", c.n, err)
		}
		if !bytes.Equal(got, c.want) {
			t.Errorf("AppendVarint(%d) = % x, want % x", c.n, got, c.want)
		}
		if VarintSize(c.n) != len(c.want) {
			t.Errorf("VarintSize(%d) = %d, want %d", c.n, VarintSize(c.n), len(c.want))
		}
	}
}

func TestVarintNegative(t *testing.T) {
	_, err := AppendVarint(nil, -1)
	if err != ErrNegative {
		t.Fatalf("expected ErrNegative, got %v", err)
	}
}

func TestVarintRoundTrip(t *testing.T) {
	samples := []int64{0, 1, 63, 64, 127, 128, 16383, 16384, 1 << 20, 1 << 31, 1<<32 - 1}
	for _, n := range samples {
		enc, err := AppendVarint(nil, n)
		if err != nil {
			t.Fatalf("encode %d: %s", n, err)
		}
		if len(enc) != VarintSize(n) {
			t.Errorf("VarintSize(%d)=%d but encoded length=%d", n, VarintSize(n), len(enc))
		}
		got, rest, err := ReadVarint(enc)
		if err != nil {
			t.Fatalf("decode %d: %s", n, err)
		}
		if got != n || len(rest) != 0 {
			t.Errorf("round trip %d -> %d (rest=%d)", n, got, len(rest))
		}
	}
}

func TestReadVarintTruncated(t *testing.T) {
	_, _, err := ReadVarint([]byte{0x80, 0x80})
	if err == nil {
		t.Fatal("expected truncation error")
	}
}

func TestStringRoundTrip(t *testing.T) {
	for _, s := range []string{"", "hello", "PT (GeV)", "unicode: π√"} {
		buf := AppendString(nil, s)
		wantLen := VarintSize(int64(len(s))) + len(s)
		if len(buf) != wantLen {
			t.Errorf("AppendString(%q): len=%d, want %d", s, len(buf), wantLen)
		}
		got, rest, err := ReadString(buf)
		if err != nil {
			t.Fatalf("ReadString(%q): %s", s, err)
		}
		if got != s || len(rest) != 0 {
			t.Errorf("round trip %q -> %q (rest=%d)", s, got, len(rest))
		}
	}
}

func TestFloat32RoundTrip(t *testing.T) {
	for _, f := range []float32{0, 1.5, -1.5, 3.14159, 1.7e38, -1.7e38} {
		buf := AppendFloat32(nil, f)
		if len(buf) != 4 {
			t.Fatalf("AppendFloat32: len=%d, want 4", len(buf))
		}
		got, rest, err := ReadFloat32(buf)
		if err != nil {
			t.Fatalf("ReadFloat32: %s", err)
		}
		if got != f || len(rest) != 0 {
			t.Errorf("round trip %v -> %v (rest=%d)", f, got, len(rest))
		}
	}
}
