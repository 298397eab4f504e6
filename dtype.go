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
	"fmt"

	"buf.build/go/dudley/internal/arena"
)

// Type is a defined datatype: a compound of named members, or a typedef
// renaming one anonymous (datatype, shape) member.
//
// A compound begins open, accumulating members through [Type.Set]; closing
// it freezes membership and fixes its total size and alignment. Reads that
// need the final size fail while it is open.
type Type struct {
	handle
}

// Kind implements [Item].
func (Type) Kind() Kind { return KindType }

func (t Type) raw() *arena.Type { return t.l.a.At(t.id).(*arena.Type) }

// IsTypedef reports whether this is a typedef rather than a compound.
func (t Type) IsTypedef() bool { return t.raw().Typedef() }

// IsOpen reports whether the compound still accepts members.
func (t Type) IsOpen() bool { return t.raw().Open() }

// Member returns the typedef's single anonymous member, the one a Dudley
// source exposes under key 0; false for a compound.
func (t Type) Member() (Datum, bool) {
	r := t.raw()
	if !r.Typedef() || r.Member == 0 {
		return Datum{}, false
	}
	return Datum{handle{l: t.l, id: r.Member}}, true
}

// Get returns a compound member by name.
func (t Type) Get(name string) (Datum, bool) {
	r := t.raw()
	if r.Typedef() {
		return Datum{}, false
	}
	id, ok := r.Members.Get(name)
	if !ok {
		return Datum{}, false
	}
	return Datum{handle{l: t.l, id: arena.ID(id)}}, true
}

// Names returns the compound member names in declaration order.
func (t Type) Names() []string {
	r := t.raw()
	if r.Typedef() {
		return nil
	}
	return r.Members.Keys()
}

// Len returns the number of members: compound member count, 1 for a
// typedef.
func (t Type) Len() int {
	r := t.raw()
	if r.Typedef() {
		return 1
	}
	return r.Members.Len()
}

// Set appends a member to an open compound, updating its running size and
// alignment. A closed compound fails with [ErrState].
func (t Type) Set(name string, spec DatumSpec) (Datum, error) {
	typeID, slots, err := spec.resolve(t.l)
	if err != nil {
		return Datum{}, err
	}
	if _, hasAddr := spec.Addr.Offset(); hasAddr || spec.Addr.IsNotAllocated() {
		return Datum{}, fmt.Errorf("%w: cannot specify @address inside a datatype", ErrTypeMismatch)
	}
	id, err := t.l.a.NewDatum(t.id, name, typeID, slots, spec.Addr, spec.Filter)
	if err != nil {
		return Datum{}, err
	}
	return Datum{handle{l: t.l, id: id}}, nil
}

// Close freezes an open compound's membership.
func (t Type) Close() error { return t.l.a.CloseType(t.id) }

// Size returns the total byte size; false while the compound is open or
// any member size is indeterminate.
func (t Type) Size() (int64, bool) { return t.l.a.TypeSize(int(t.id)) }

// Alignment returns the type's alignment: explicit, else the maximum of
// member alignments (a typedef inherits its member's).
func (t Type) Alignment() int64 { return t.l.a.TypeAlign(int(t.id)) }

// typeID implements [DataType].
func (t Type) typeID(l *Layout) (int, error) {
	if t.l != l {
		return 0, fmt.Errorf("%w: datatype not in same layout", ErrTypeMismatch)
	}
	return int(t.id), nil
}
