// Copyright 2025 Buf Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package dim implements the compact integer encoding of array dimensions.
//
// A dimension slot is a signed integer. Values >= -1 are literal lengths,
// with -1 meaning unlimited. Values < -1 pack a parameter reference: bits
// 0..5 hold offset+32 for an offset in [-31, 31], and the remaining high
// bits hold the negated parameter id, so the arithmetic right shift on
// decode recovers it.
package dim

import "fmt"

// Unlimited is the slot for an unlimited dimension, permitted only as the
// first dimension of a shape.
const Unlimited Slot = -1

// MaxOffset bounds the offset in a parameter reference.
const MaxOffset = 31

// Slot is one encoded dimension of an array shape.
type Slot int64

// Lit returns the slot for a literal dimension, which must be >= -1.
func Lit(n int64) (Slot, error) {
	if n < -1 {
		return 0, fmt.Errorf("array dimension %d < -1 has no meaning", n)
	}
	return Slot(n), nil
}

// Ref returns the slot referencing the parameter with the given arena id,
// plus an offset in [-31, 31].
func Ref(paramID int, offset int) (Slot, error) {
	if paramID <= 0 {
		return 0, fmt.Errorf("parameter id %d is not a valid arena id", paramID)
	}
	if offset < -MaxOffset || offset > MaxOffset {
		return 0, fmt.Errorf("parameter reference offset %d out of range", offset)
	}
	s := Slot(int64(-paramID)<<6 | int64(offset+32))
	if s >= -1 {
		// Only id 1 with offset 31 lands here, colliding with Unlimited.
		return 0, fmt.Errorf("parameter reference (%d, %d) is not encodable", paramID, offset)
	}
	return s, nil
}

// IsRef reports whether the slot encodes a parameter reference.
func (s Slot) IsRef() bool { return s < -1 }

// Decode splits the slot into its literal value or parameter reference.
// For a literal, paramID is 0 and n is the length (or -1 for unlimited).
func (s Slot) Decode() (n int64, paramID int, offset int) {
	if s >= -1 {
		return int64(s), 0, 0
	}
	return 0, int(-(s >> 6)), int(s&63) - 32
}
