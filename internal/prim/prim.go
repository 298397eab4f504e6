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

// Package prim is the catalog of Dudley primitive datatypes.
//
// There are exactly 5 + 14*3 = 47 primitives, numbered 1 to 50:
//
//	 1  |u1  |i1  |b1  |S1  |U1
//	 6  |u2  |i2  |f2  |c4  |U2
//	11  |u4  |i4  |f4  |c8  |U4
//	16  |u8  |i8  |f8  |c16  -
//	21  <u2  <i2  <f2  <c4  <U2
//	26  <u4  <i4  <f4  <c8  <U4
//	31  <u8  <i8  <f8  <c16  -
//	36  >u2  >i2  >f2  >c4  >U2
//	41  >u4  >i4  >f4  >c8  >U4
//	46  >u8  >i8  >f8  >c16  -
//
// Numbers 20, 35, and 50 are reserved for a quad precision f16, which is
// excluded for lack of consistent hardware support. With this numbering, an
// indeterminate-order type 5 < id < 21 resolves to little-endian by adding 15,
// or to big-endian by adding 30. Number 0 is the empty compound {}, which has
// no value and takes no space in the data stream.
package prim

// Orders a primitive may carry. Indeterminate means the byte order is not
// specified by the layout; for one-byte primitives it is the only order.
const (
	Indeterminate = '|'
	LittleEndian  = '<'
	BigEndian     = '>'
)

// MaxID is the largest primitive id, counting the three reserved slots.
const MaxID = 50

// Primitive is one predefined scalar datatype.
type Primitive struct {
	Name  string // canonical spelling, e.g. "<i4"
	Order byte   // '|', '<', or '>'
	Kind  byte   // 'u', 'i', 'f', 'c', 'S', 'U', or 'b'
	Size  int64  // bytes per scalar value
	Align int64  // default alignment; size, except complex which is half
}

var catalog [MaxID + 1]Primitive

var byName = make(map[string]int, 47)

func init() {
	names := []string{
		"", "|u1", "|i1", "|b1", "|S1", "|U1",
		"|u2", "|i2", "|f2", "|c4", "|U2",
		"|u4", "|i4", "|f4", "|c8", "|U4",
		"|u8", "|i8", "|f8", "|c16", "",
		"<u2", "<i2", "<f2", "<c4", "<U2",
		"<u4", "<i4", "<f4", "<c8", "<U4",
		"<u8", "<i8", "<f8", "<c16", "",
		">u2", ">i2", ">f2", ">c4", ">U2",
		">u4", ">i4", ">f4", ">c8", ">U4",
		">u8", ">i8", ">f8", ">c16", "", "",
	}
	for id, name := range names {
		if name == "" {
			continue // 0 is the empty compound; 20, 35, 50 reserved for f16
		}
		var size int64
		for _, c := range []byte(name[2:]) {
			size = size*10 + int64(c-'0')
		}
		p := Primitive{
			Name:  name,
			Order: name[0],
			Kind:  name[1],
			Size:  size,
			Align: size,
		}
		if p.Kind == 'c' {
			p.Align = size / 2 // complex aligns like its component float
		}
		catalog[id] = p
		byName[name] = id
	}
}

// ByID returns the primitive with the given id, or false for the empty
// compound (0) and the reserved f16 slots.
func ByID(id int) (Primitive, bool) {
	if id < 1 || id > MaxID || catalog[id].Name == "" {
		return Primitive{}, false
	}
	return catalog[id], true
}

// ByName returns the id of the primitive with the given canonical (order
// prefixed) name.
func ByName(name string) (int, bool) {
	id, ok := byName[name]
	return id, ok
}

// Canonical resolves a possibly unprefixed primitive name against the given
// default byte order, returning the id of the canonical primitive. An
// unprefixed name such as "i4" means "|i4" resolved to defaultOrder.
func Canonical(name string, defaultOrder byte) (int, bool) {
	if len(name) > 0 && (name[0] == '|' || name[0] == '<' || name[0] == '>') {
		id, ok := byName[name]
		return id, ok
	}
	id, ok := byName["|"+name]
	if !ok {
		return 0, false
	}
	return Resolve(id, defaultOrder), true
}

// Resolve converts an indeterminate-order primitive id to the given order.
// Ids outside the indeterminate multibyte range are returned unchanged, as
// are resolutions to the indeterminate order itself.
func Resolve(id int, order byte) int {
	if id <= 5 || id >= 21 {
		return id
	}
	switch order {
	case LittleEndian:
		return id + 15
	case BigEndian:
		return id + 30
	}
	return id
}

// IsInteger reports whether the primitive with the given id is a signed or
// unsigned integer kind. Booleans do not count.
func IsInteger(id int) bool {
	p, ok := ByID(id)
	if !ok {
		return false
	}
	return p.Kind == 'u' || p.Kind == 'i'
}
