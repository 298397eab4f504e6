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

package arena

import "fmt"

// Address locates an item in the data stream. It is one of four things:
// an alignment (a positive power of two), an absolute byte address, the
// not-allocated sentinel, or unspecified.
//
// The zero Address is unspecified. Internally an alignment is stored as a
// positive value, address n as -2-n, and not-allocated as -1, so the whole
// value fits one word.
type Address struct {
	raw int64
}

// AlignTo returns the Address requesting alignment to n bytes, which must be
// a positive power of two.
func AlignTo(n int64) (Address, error) {
	if n <= 0 || n&(n-1) != 0 {
		return Address{}, fmt.Errorf("%w: illegal alignment %d, must be power of two", ErrTypeMismatch, n)
	}
	return Address{raw: n}, nil
}

// At returns the Address of an absolute byte offset, which must be >= 0.
func At(offset int64) (Address, error) {
	if offset < 0 {
		return Address{}, fmt.Errorf("%w: address %d cannot be negative", ErrTypeMismatch, offset)
	}
	return Address{raw: -2 - offset}, nil
}

// NotAllocated returns the sentinel for data with no storage.
func NotAllocated() Address { return Address{raw: -1} }

// IsUnspecified reports whether the address carries no information.
func (a Address) IsUnspecified() bool { return a.raw == 0 }

// IsNotAllocated reports whether this is the not-allocated sentinel.
func (a Address) IsNotAllocated() bool { return a.raw == -1 }

// Alignment returns the requested alignment, if that is what this is.
func (a Address) Alignment() (int64, bool) {
	if a.raw > 0 {
		return a.raw, true
	}
	return 0, false
}

// Offset returns the absolute byte address, if that is what this is.
func (a Address) Offset() (int64, bool) {
	if a.raw <= -2 {
		return -2 - a.raw, true
	}
	return 0, false
}

// String implements [fmt.Stringer] with the layout language spelling.
func (a Address) String() string {
	switch {
	case a.raw == 0:
		return ""
	case a.raw == -1:
		return "@-1"
	case a.raw > 0:
		return fmt.Sprintf("%%%d", a.raw)
	default:
		return fmt.Sprintf("@%d", -2-a.raw)
	}
}
