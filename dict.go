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

// Dict is a named container of items, parameters, and types. Item names
// are local; parameter and type names resolve lexically through enclosing
// dicts.
type Dict struct {
	handle
}

// Kind implements [Item].
func (Dict) Kind() Kind { return KindDict }

func (d Dict) raw() *arena.Dict { return d.l.a.At(d.id).(*arena.Dict) }

// Get returns the named child item.
func (d Dict) Get(name string) (Item, bool) {
	id, ok := d.raw().Items.Get(name)
	if !ok {
		return nil, false
	}
	return d.l.wrap(arena.ID(id)), true
}

// Names returns the child item names in declaration order.
func (d Dict) Names() []string { return d.raw().Items.Keys() }

// Len returns the number of child items.
func (d Dict) Len() int { return d.raw().Items.Len() }

// Set declares a named datum in this dict. A name already present in the
// dict fails with [ErrRedeclaration].
func (d Dict) Set(name string, spec DatumSpec) (Datum, error) {
	typeID, slots, err := spec.resolve(d.l)
	if err != nil {
		return Datum{}, err
	}
	id, err := d.l.a.NewDatum(d.id, name, typeID, slots, spec.Addr, spec.Filter)
	if err != nil {
		return Datum{}, err
	}
	return Datum{handle{l: d.l, id: id}}, nil
}

// Dict returns the named subdict, creating it if absent. An existing item
// of another kind fails with [ErrTypeMismatch].
func (d Dict) Dict(name string) (Dict, error) {
	if it, ok := d.Get(name); ok {
		sub, ok := it.(Dict)
		if !ok {
			return Dict{}, fmt.Errorf("%w: item exists but is not a dict: %s", ErrTypeMismatch, name)
		}
		return sub, nil
	}
	id, err := d.l.a.NewDict(d.id, name)
	if err != nil {
		return Dict{}, err
	}
	return Dict{handle{l: d.l, id: id}}, nil
}

// List returns the named list, creating it if absent. An existing item of
// another kind fails with [ErrTypeMismatch].
func (d Dict) List(name string) (List, error) {
	if it, ok := d.Get(name); ok {
		sub, ok := it.(List)
		if !ok {
			return List{}, fmt.Errorf("%w: item exists but is not a list: %s", ErrTypeMismatch, name)
		}
		return sub, nil
	}
	id, err := d.l.a.NewList(d.id, name)
	if err != nil {
		return List{}, err
	}
	return List{handle{l: d.l, id: id}}, nil
}

// Params is the dict's parameter namespace.
func (d Dict) Params() Params { return Params{d} }

// Types is the dict's type namespace.
func (d Dict) Types() Types { return Types{d} }

// Params views a dict's parameters. Get recurses through enclosing dicts;
// Names and Len cover only the dict's own declarations.
type Params struct {
	d Dict
}

// Get resolves a parameter name lexically from this dict outward.
func (p Params) Get(name string) (Param, bool) {
	id, err := p.d.l.a.LookupParam(p.d.id, name)
	if err != nil {
		return Param{}, false
	}
	return Param{handle{l: p.d.l, id: id}}, true
}

// Names returns the dict's own parameter names in declaration order.
func (p Params) Names() []string { return p.d.raw().Params.Keys() }

// Len returns the number of parameters declared in this dict.
func (p Params) Len() int { return p.d.raw().Params.Len() }

// Fixed declares a parameter with a literal value.
func (p Params) Fixed(name string, value int64) (Param, error) {
	id, err := p.d.l.a.NewFixedParam(p.d.id, name, value)
	if err != nil {
		return Param{}, err
	}
	return Param{handle{l: p.d.l, id: id}}, nil
}

// Dynamic declares a parameter whose value lives in the data stream. The
// datatype must be a scalar integer primitive, possibly through typedefs.
func (p Params) Dynamic(name string, dt DataType, addr Address) (Param, error) {
	typeID, err := dt.typeID(p.d.l)
	if err != nil {
		return Param{}, err
	}
	id, err := p.d.l.a.NewDynParam(p.d.id, name, typeID, addr)
	if err != nil {
		return Param{}, err
	}
	return Param{handle{l: p.d.l, id: id}}, nil
}

// Types views a dict's datatypes, with the same scope rules as [Params].
type Types struct {
	d Dict
}

// Get resolves a type name lexically from this dict outward; at the root,
// unprefixed primitive names resolve against the layout's default order.
func (t Types) Get(name string) (DataType, bool) {
	tid, err := t.d.l.a.LookupType(t.d.id, name)
	if err != nil {
		return nil, false
	}
	return dataTypeFor(t.d.l, tid), true
}

// Names returns the dict's own type names in declaration order.
func (t Types) Names() []string { return t.d.raw().Types.Keys() }

// Compound declares a named compound type, open for member declaration;
// close it with [Type.Close].
func (t Types) Compound(name string) (Type, error) {
	id, err := t.d.l.a.NewType(t.d.id, name)
	if err != nil {
		return Type{}, err
	}
	return Type{handle{l: t.d.l, id: id}}, nil
}

// Typedef declares a named renaming of (datatype, shape) with an optional
// explicit alignment (0 for the member's own).
func (t Types) Typedef(name string, dt DataType, shape []Dim, align int64) (Type, error) {
	var typeID int
	if dt != nil {
		var err error
		if typeID, err = dt.typeID(t.d.l); err != nil {
			return Type{}, err
		}
	}
	slots, err := encodeShape(t.d.l, shape)
	if err != nil {
		return Type{}, err
	}
	id, err := t.d.l.a.NewTypedef(t.d.id, name, typeID, slots, align)
	if err != nil {
		return Type{}, err
	}
	return Type{handle{l: t.d.l, id: id}}, nil
}
