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

// Package binfmt implements the little-endian binary primitives used by
// the corpus record format: LEB128-style varints, length-prefixed UTF-8
// strings, and IEEE-754 32-bit floats.
package binfmt

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// ErrNegative is returned by AppendVarint when asked to encode a negative
// number; the wire format has no representation for one.
var ErrNegative = errors.New("binfmt: varint overflow: negative value")

// ErrTruncated is returned by the Read* functions when src does not contain
// a complete encoding of the value being decoded.
var ErrTruncated = errors.New("binfmt: truncated input")

// AppendVarint appends the LEB128 encoding of n to dst and returns the
// extended slice. n must be non-negative.
//
// Each byte carries 7 bits of n, least-significant group first; the high
// bit is set on every byte except the last.
func AppendVarint(dst []byte, n int64) ([]byte, error) {
	if n < 0 {
		return dst, ErrNegative
	}
	u := uint64(n)
	for u >= 0x80 {
		dst = append(dst, byte(u)|0x80)
		u >>= 7
	}
	return append(dst, byte(u)), nil
}

// VarintSize returns the number of bytes AppendVarint would emit for n.
func VarintSize(n int64) int {
	u := uint64(n)
	size := 1
	for u >= 0x80 {
		size++
		u >>= 7
	}
	return size
}

// ReadVarint decodes a varint from the head of src and returns the decoded
// value along with the remaining, unconsumed bytes.
func ReadVarint(src []byte) (int64, []byte, error) {
	var result uint64
	var shift uint
	for i := 0; ; i++ {
		if i >= len(src) {
			return 0, nil, fmt.Errorf("binfmt: reading varint: %w", ErrTruncated)
		}
		b := src[i]
		result |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return int64(result), src[i+1:], nil
		}
		shift += 7
	}
}

// AppendString appends the length-prefixed UTF-8 encoding of s to dst:
// a varint byte length followed by the raw bytes.
func AppendString(dst []byte, s string) []byte {
	dst, _ = AppendVarint(dst, int64(len(s)))
	return append(dst, s...)
}

// ReadString decodes a length-prefixed string from the head of src and
// returns it along with the remaining bytes.
func ReadString(src []byte) (string, []byte, error) {
	n, rest, err := ReadVarint(src)
	if err != nil {
		return "", nil, fmt.Errorf("binfmt: reading string length: %w", err)
	}
	if n < 0 || int64(len(rest)) < n {
		return "", nil, fmt.Errorf("binfmt: reading string body: %w", ErrTruncated)
	}
	return string(rest[:n]), rest[n:], nil
}

// AppendFloat32 appends the little-endian IEEE-754 encoding of f to dst.
func AppendFloat32(dst []byte, f float32) []byte {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], math.Float32bits(f))
	return append(dst, buf[:]...)
}

// ReadFloat32 decodes a float32 from the head of src and returns it along
// with the remaining bytes.
func ReadFloat32(src []byte) (float32, []byte, error) {
	if len(src) < 4 {
		return 0, nil, fmt.Errorf("binfmt: reading float32: %w", ErrTruncated)
	}
	bits := binary.LittleEndian.Uint32(src[:4])
	return math.Float32frombits(bits), src[4:], nil
}
