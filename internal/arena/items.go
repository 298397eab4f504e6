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

import "buf.build/go/dudley/internal/dim"

// ID is the index of an item in its arena. The root dict is always id 0.
type ID int

// None marks the absence of a parent; only the root dict has it.
const None ID = -1

// Kind discriminates the five item variants.
type Kind uint8

const (
	KindDict Kind = iota + 1
	KindList
	KindDatum
	KindParam
	KindType
)

// String implements [fmt.Stringer].
func (k Kind) String() string {
	switch k {
	case KindDict:
		return "dict"
	case KindList:
		return "list"
	case KindDatum:
		return "datum"
	case KindParam:
		return "parameter"
	case KindType:
		return "type"
	}
	return "invalid"
}

// Item is one entry in the arena: a [*Dict], [*List], [*Datum], [*Param],
// or [*Type]. The sum is sealed; no other implementations exist.
type Item interface {
	Kind() Kind
	base() *itemBase
}

type itemBase struct {
	Parent ID
	Name   string // empty for anonymous items
}

func (b *itemBase) base() *itemBase { return b }

// Parent returns the id of the item's parent container, or [None].
func Parent(it Item) ID { return it.base().Parent }

// Name returns the item's name, empty if anonymous.
func Name(it Item) string { return it.base().Name }

// Dict is a named container of items, parameters, and types. Parameter and
// type names resolve lexically through enclosing dicts; item names do not.
type Dict struct {
	itemBase
	Items  OMap
	Params OMap
	Types  OMap // values may be negative primitive ids
}

// Kind implements [Item].
func (*Dict) Kind() Kind { return KindDict }

// List is an ordered sequence of dicts, lists, and data.
type List struct {
	itemBase
	Elems []ID
}

// Kind implements [Item].
func (*List) Kind() Kind { return KindList }

// Datum is an array leaf, mapping a datatype and shape onto a byte region.
type Datum struct {
	itemBase
	// TypeID is negative for a primitive, zero for the empty compound, and
	// a positive arena id for a defined type.
	TypeID int
	Shape  []dim.Slot // nil for a scalar
	Addr   Address
	Filter *Filter

	// External marks data whose bytes live outside this stream (HDF5
	// external or virtual storage); the address is then not-allocated.
	External bool
}

// Kind implements [Item].
func (*Datum) Kind() Kind { return KindDatum }

// Filter describes a named transformation (compression, checksum) attached
// to a datum. The layout records it; it is never applied here.
type Filter struct {
	Name    string
	Reverse bool // declared with <- rather than ->
	Args    []float64
}

// Param is an integer used as an array dimension. A fixed parameter carries
// a literal value; a dynamic parameter carries an integer datatype and an
// address in the data stream, plus a slot in the current-value sidecar.
type Param struct {
	itemBase
	TypeID int // 0 for a fixed parameter
	Value  int64
	PID    int // sidecar slot; -1 for a fixed parameter
	Addr   Address
}

// Kind implements [Item].
func (*Param) Kind() Kind { return KindParam }

// Fixed reports whether the parameter carries a literal value.
func (p *Param) Fixed() bool { return p.PID < 0 }

// Type is a compound (ordered named members) or a typedef (one anonymous
// member). A negated Align marks a compound still accepting members.
type Type struct {
	itemBase
	Members *OMap // nil for a typedef
	Member  ID    // the typedef's anonymous member; 0 for a compound
	Size    int64 // total byte size; -1 if indeterminate
	Align   int64 // power of two, negated while open
}

// Kind implements [Item].
func (*Type) Kind() Kind { return KindType }

// Typedef reports whether this is a typedef rather than a compound.
func (t *Type) Typedef() bool { return t.Members == nil }

// Open reports whether the compound still accepts members.
func (t *Type) Open() bool { return t.Align < 0 }
