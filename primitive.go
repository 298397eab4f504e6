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

package dudley

import (
	"buf.build/go/dudley/internal/prim"
)

// Primitive is one of the 47 predefined scalar datatypes. The zero value
// is invalid; obtain one from [Prim].
type Primitive struct {
	id int
}

// Prim looks up a primitive by its canonical order-prefixed name, such as
// "<i4" or "|S1".
func Prim(name string) (Primitive, bool) {
	id, ok := prim.ByName(name)
	if !ok {
		return Primitive{}, false
	}
	return Primitive{id: id}, true
}

// PrimByID returns the primitive with the given catalog id, 1 to 50.
func PrimByID(id int) (Primitive, bool) {
	if _, ok := prim.ByID(id); !ok {
		return Primitive{}, false
	}
	return Primitive{id: id}, true
}

// Name returns the canonical spelling, such as ">f8".
func (p Primitive) Name() string {
	pr, _ := prim.ByID(p.id)
	return pr.Name
}

// Order returns the byte-order tag: '|', '<', or '>'.
func (p Primitive) Order() byte {
	pr, _ := prim.ByID(p.id)
	return pr.Order
}

// Size returns the bytes per scalar value. The second result is always
// true; it exists so Primitive satisfies [DataType].
func (p Primitive) Size() (int64, bool) {
	pr, ok := prim.ByID(p.id)
	return pr.Size, ok
}

// Alignment returns the default alignment: the size, except complex,
// which aligns like its component float.
func (p Primitive) Alignment() int64 {
	pr, _ := prim.ByID(p.id)
	return pr.Align
}

// typeID implements [DataType].
func (p Primitive) typeID(*Layout) (int, error) { return -p.id, nil }
