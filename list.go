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

// List is an ordered sequence of anonymous dicts, lists, and data.
type List struct {
	handle
}

// Kind implements [Item].
func (List) Kind() Kind { return KindList }

func (li List) raw() *arena.List { return li.l.a.At(li.id).(*arena.List) }

// Len returns the number of elements.
func (li List) Len() int { return len(li.raw().Elems) }

// At returns the i-th element.
func (li List) At(i int) (Item, bool) {
	elems := li.raw().Elems
	if i < 0 || i >= len(elems) {
		return nil, false
	}
	return li.l.wrap(elems[i]), true
}

// Append adds a datum element.
func (li List) Append(spec DatumSpec) (Datum, error) {
	typeID, slots, err := spec.resolve(li.l)
	if err != nil {
		return Datum{}, err
	}
	id, err := li.l.a.NewDatum(li.id, "", typeID, slots, spec.Addr, spec.Filter)
	if err != nil {
		return Datum{}, err
	}
	return Datum{handle{l: li.l, id: id}}, nil
}

// AppendFrom adds a datum element recording the template's datatype,
// shape, and filter, placed at addr. The template's own placement,
// including an explicit alignment, is not copied.
func (li List) AppendFrom(template Datum, addr Address) (Datum, error) {
	if template.l != li.l {
		return Datum{}, fmt.Errorf("%w: template not in same layout as list", ErrTypeMismatch)
	}
	r := template.raw()
	id, err := li.l.a.NewDatum(li.id, "", r.TypeID, r.Shape, addr, r.Filter)
	if err != nil {
		return Datum{}, err
	}
	return Datum{handle{l: li.l, id: id}}, nil
}

// AppendDict adds an anonymous dict element.
func (li List) AppendDict() (Dict, error) {
	id, err := li.l.a.NewDict(li.id, "")
	if err != nil {
		return Dict{}, err
	}
	return Dict{handle{l: li.l, id: id}}, nil
}

// AppendList adds a nested list element.
func (li List) AppendList() (List, error) {
	id, err := li.l.a.NewList(li.id, "")
	if err != nil {
		return List{}, err
	}
	return List{handle{l: li.l, id: id}}, nil
}
