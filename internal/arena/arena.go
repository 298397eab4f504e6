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

// Package arena holds the flat, append-only item sequence that represents a
// Dudley layout.
//
// Every item is addressed by its index in the sequence, which is assigned at
// append time and never changes; items are never moved or removed. All
// cross-references between items (parents, datatypes, parameter references
// in shapes) are these indices, which avoids a tangle of circular object
// references. Parallel sidecar sequences carry stream addresses, dynamic
// parameter values, doc lines, and attribute maps, grown on demand.
package arena

import (
	"fmt"

	"buf.build/go/dudley/internal/dim"
	"buf.build/go/dudley/internal/prim"
)

// Arena is the item sequence of one layout. Item 0 is the root dict.
//
// An Arena is built by exactly one producer and is read-only afterwards;
// a completed Arena may be shared across goroutines without locking.
type Arena struct {
	items []Item

	// DefaultOrder resolves unprefixed primitive names. It starts
	// indeterminate and is set at most once, by a layout preamble.
	DefaultOrder byte

	dyn   []ID // pid -> arena id of dynamic parameter
	vals  []int64
	bound []bool

	streamAddrs []int64
	streamBound []bool

	unlim map[ID]int64 // bound unlimited dimension, per datum

	docs  [][]string
	attrs []AttrMap
}

// New returns an arena holding only the root dict.
func New() *Arena {
	a := &Arena{DefaultOrder: prim.Indeterminate}
	root := &Dict{}
	root.Parent = None
	a.items = append(a.items, root)
	return a
}

// Len returns the number of items.
func (a *Arena) Len() int { return len(a.items) }

// At returns the item with the given id, which must be in range.
func (a *Arena) At(id ID) Item { return a.items[id] }

// Root returns the root dict.
func (a *Arena) Root() *Dict { return a.items[0].(*Dict) }

func (a *Arena) push(it Item) ID {
	a.items = append(a.items, it)
	return ID(len(a.items) - 1)
}

// dictIDOf climbs from id to the nearest enclosing dict, skipping list and
// type containers. Every parent chain terminates at the root dict.
func (a *Arena) dictIDOf(id ID) ID {
	for {
		if _, ok := a.items[id].(*Dict); ok {
			return id
		}
		id = Parent(a.items[id])
	}
}

// NewDict appends a dict. The parent must be a dict (name required) or a
// list (name ignored).
func (a *Arena) NewDict(parent ID, name string) (ID, error) {
	switch p := a.items[parent].(type) {
	case *Dict:
		if p.Items.Has(name) {
			return 0, fmt.Errorf("%w: %s", ErrRedeclaration, name)
		}
		d := &Dict{}
		d.Parent, d.Name = parent, name
		id := a.push(d)
		p.Items.Set(name, int(id))
		return id, nil
	case *List:
		d := &Dict{}
		d.Parent = parent
		id := a.push(d)
		p.Elems = append(p.Elems, id)
		return id, nil
	default:
		return 0, fmt.Errorf("%w: dict cannot be a %v member", ErrTypeMismatch, p.Kind())
	}
}

// NewList appends a list. The parent must be a dict or a list.
func (a *Arena) NewList(parent ID, name string) (ID, error) {
	switch p := a.items[parent].(type) {
	case *Dict:
		if p.Items.Has(name) {
			return 0, fmt.Errorf("%w: %s", ErrRedeclaration, name)
		}
		l := &List{}
		l.Parent, l.Name = parent, name
		id := a.push(l)
		p.Items.Set(name, int(id))
		return id, nil
	case *List:
		l := &List{}
		l.Parent = parent
		id := a.push(l)
		p.Elems = append(p.Elems, id)
		return id, nil
	default:
		return 0, fmt.Errorf("%w: list cannot be a %v member", ErrTypeMismatch, p.Kind())
	}
}

// NewDatum appends an array leaf. The parent may be a dict (named or, for
// anonymous references, unnamed), a list, or an open type.
func (a *Arena) NewDatum(parent ID, name string, typeID int, shape []dim.Slot, addr Address, filt *Filter) (ID, error) {
	for i, s := range shape {
		if s == dim.Unlimited && i > 0 {
			return 0, fmt.Errorf("%w: unlimited dimension only permitted first", ErrTypeMismatch)
		}
	}
	d := &Datum{TypeID: typeID, Shape: shape, Addr: addr, Filter: filt}
	d.Parent, d.Name = parent, name
	switch p := a.items[parent].(type) {
	case *Dict:
		if name != "" {
			if p.Items.Has(name) {
				return 0, fmt.Errorf("%w: %s", ErrRedeclaration, name)
			}
			id := a.push(d)
			p.Items.Set(name, int(id))
			return id, nil
		}
		return a.push(d), nil
	case *List:
		id := a.push(d)
		p.Elems = append(p.Elems, id)
		return id, nil
	case *Type:
		return a.addMember(p, d)
	default:
		return 0, fmt.Errorf("%w: datum cannot be a %v member", ErrTypeMismatch, p.Kind())
	}
}

// addMember appends a datum as a type member, updating the running
// alignment and size of an open compound.
func (a *Arena) addMember(t *Type, d *Datum) (ID, error) {
	if t.Typedef() {
		if t.Member != 0 {
			return 0, fmt.Errorf("%w: typedef already has its member", ErrState)
		}
		return a.push(d), nil
	}
	if !t.Open() {
		return 0, fmt.Errorf("%w: compound is closed", ErrState)
	}
	if t.Members.Has(d.Name) {
		return 0, fmt.Errorf("%w: %s", ErrRedeclaration, d.Name)
	}
	id := a.push(d)
	t.Members.Set(d.Name, int(id))
	malign := a.datumAlign(d)
	if malign < 1 {
		malign = 1
	}
	if malign > -t.Align {
		t.Align = -malign
	}
	if t.Size >= 0 {
		msize, ok := a.DatumSize(id)
		if !ok {
			t.Size = -1
		} else {
			if rem := t.Size & (malign - 1); rem != 0 {
				t.Size += malign - rem
			}
			t.Size += msize
		}
	}
	return id, nil
}

// NewFixedParam appends a parameter carrying a literal value. The parent
// must be a dict.
func (a *Arena) NewFixedParam(parent ID, name string, value int64) (ID, error) {
	p, ok := a.items[parent].(*Dict)
	if !ok {
		return 0, fmt.Errorf("%w: parameters live only in dicts", ErrTypeMismatch)
	}
	if value < -1 {
		return 0, fmt.Errorf("%w: fixed parameter value %d < -1", ErrTypeMismatch, value)
	}
	if p.Params.Has(name) {
		return 0, fmt.Errorf("%w: parameter %s", ErrRedeclaration, name)
	}
	pm := &Param{Value: value, PID: -1}
	pm.Parent, pm.Name = parent, name
	id := a.push(pm)
	p.Params.Set(name, int(id))
	return id, nil
}

// NewDynParam appends a parameter whose value lives in the data stream.
// The datatype must resolve to a scalar integer primitive, possibly through
// a chain of typedefs.
func (a *Arena) NewDynParam(parent ID, name string, typeID int, addr Address) (ID, error) {
	p, ok := a.items[parent].(*Dict)
	if !ok {
		return 0, fmt.Errorf("%w: parameters live only in dicts", ErrTypeMismatch)
	}
	if p.Params.Has(name) {
		return 0, fmt.Errorf("%w: parameter %s", ErrRedeclaration, name)
	}
	tid := typeID
	for tid > 0 {
		t, ok := a.items[ID(tid)].(*Type)
		if !ok || !t.Typedef() {
			return 0, fmt.Errorf("%w: parameter %s datatype cannot be compound", ErrTypeMismatch, name)
		}
		m := a.items[t.Member].(*Datum)
		if len(m.Shape) != 0 || m.Filter != nil {
			return 0, fmt.Errorf("%w: parameter %s datatype must be scalar", ErrTypeMismatch, name)
		}
		tid = m.TypeID
	}
	if !prim.IsInteger(-tid) {
		return 0, fmt.Errorf("%w: parameter %s datatype must be integer", ErrTypeMismatch, name)
	}
	pm := &Param{TypeID: typeID, PID: len(a.dyn), Addr: addr}
	pm.Parent, pm.Name = parent, name
	id := a.push(pm)
	a.dyn = append(a.dyn, id)
	a.vals = append(a.vals, 0)
	a.bound = append(a.bound, false)
	p.Params.Set(name, int(id))
	return id, nil
}

// NewType appends an open compound to the nearest enclosing dict of parent.
// Close it with [Arena.CloseType] once its members are set.
func (a *Arena) NewType(parent ID, name string) (ID, error) {
	did := a.dictIDOf(parent)
	d := a.items[did].(*Dict)
	if name != "" && d.Types.Has(name) {
		return 0, fmt.Errorf("%w: type %s", ErrRedeclaration, name)
	}
	t := &Type{Members: new(OMap), Align: -1}
	t.Parent, t.Name = did, name
	id := a.push(t)
	if name != "" {
		d.Types.Set(name, int(id))
	}
	return id, nil
}

// NewTypedef appends a closed type renaming (typeID, shape), with an
// optional explicit alignment which must be a positive power of two.
func (a *Arena) NewTypedef(parent ID, name string, typeID int, shape []dim.Slot, align int64) (ID, error) {
	did := a.dictIDOf(parent)
	d := a.items[did].(*Dict)
	if name != "" && d.Types.Has(name) {
		return 0, fmt.Errorf("%w: type %s", ErrRedeclaration, name)
	}
	if align != 0 {
		if align < 0 {
			return 0, fmt.Errorf("%w: cannot specify @address in typedef", ErrTypeMismatch)
		}
		if align&(align-1) != 0 {
			return 0, fmt.Errorf("%w: illegal alignment %d, must be power of two", ErrTypeMismatch, align)
		}
	}
	t := &Type{}
	t.Parent, t.Name = did, name
	id := a.push(t)
	mid, err := a.NewDatum(id, "", typeID, shape, Address{}, nil)
	if err != nil {
		return 0, err
	}
	t.Member = mid
	if sz, ok := a.DatumSize(mid); ok {
		t.Size = sz
	} else {
		t.Size = -1
	}
	if align != 0 {
		t.Align = align
	} else if t.Align = a.datumAlign(a.items[mid].(*Datum)); t.Align < 1 {
		t.Align = 1
	}
	if name != "" {
		d.Types.Set(name, int(id))
	}
	return id, nil
}

// CloseType freezes an open compound's membership.
func (a *Arena) CloseType(id ID) error {
	t, ok := a.items[id].(*Type)
	if !ok {
		return fmt.Errorf("%w: item %d is not a type", ErrTypeMismatch, id)
	}
	if !t.Open() {
		return fmt.Errorf("%w: close of a type that is not open", ErrState)
	}
	t.Align = -t.Align
	return nil
}

// LookupType resolves a type name from the dict enclosing `from`, recursing
// through enclosing dicts. At the root an unprefixed primitive name is
// interned with the layout's default byte order. The result is negative for
// a primitive and a positive arena id for a defined type.
func (a *Arena) LookupType(from ID, name string) (int, error) {
	did := a.dictIDOf(from)
	for {
		d := a.items[did].(*Dict)
		if tid, ok := d.Types.Get(name); ok {
			return tid, nil
		}
		if d.Parent == None {
			id, ok := prim.Canonical(name, a.DefaultOrder)
			if !ok {
				return 0, fmt.Errorf("%w: datatype %s", ErrUndefinedName, name)
			}
			if name[0] != '|' && name[0] != '<' && name[0] != '>' {
				d.Types.Set(name, -id)
			}
			return -id, nil
		}
		did = a.dictIDOf(d.Parent)
	}
}

// LookupParam resolves a parameter name from the dict enclosing `from`,
// recursing through enclosing dicts.
func (a *Arena) LookupParam(from ID, name string) (ID, error) {
	did := a.dictIDOf(from)
	for {
		d := a.items[did].(*Dict)
		if pid, ok := d.Params.Get(name); ok {
			return ID(pid), nil
		}
		if d.Parent == None {
			return 0, fmt.Errorf("%w: parameter %s", ErrUndefinedName, name)
		}
		did = a.dictIDOf(d.Parent)
	}
}

// ExtendList turns the named dict item into a list of data blocks sharing
// one template, appending one block per extra address. A datum converts in
// place: a list takes over its dict slot and the datum becomes its first
// element. The datum's original id remains valid.
func (a *Arena) ExtendList(dictID ID, name string, addrs []Address) error {
	d, ok := a.items[dictID].(*Dict)
	if !ok {
		return fmt.Errorf("%w: item %d is not a dict", ErrTypeMismatch, dictID)
	}
	id, ok := d.Items.Get(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUndefinedName, name)
	}
	var list *List
	var listID ID
	var tmpl *Datum
	switch it := a.items[ID(id)].(type) {
	case *Datum:
		list = &List{}
		list.Parent, list.Name = dictID, name
		listID = a.push(list)
		it.Parent, it.Name = listID, ""
		list.Elems = append(list.Elems, ID(id))
		d.Items.Set(name, int(listID))
		tmpl = it
	case *List:
		list, listID = it, ID(id)
		for i := len(it.Elems) - 1; i >= 0; i-- {
			if dt, ok := a.items[it.Elems[i]].(*Datum); ok {
				tmpl = dt
				break
			}
		}
		if tmpl == nil {
			return fmt.Errorf("%w: list %s has no datum to extend", ErrTypeMismatch, name)
		}
	default:
		return fmt.Errorf("%w: cannot extend a %v", ErrTypeMismatch, it.Kind())
	}
	for _, addr := range addrs {
		nd := &Datum{TypeID: tmpl.TypeID, Shape: tmpl.Shape, Addr: addr, Filter: tmpl.Filter}
		nd.Parent = listID
		list.Elems = append(list.Elems, a.push(nd))
	}
	return nil
}

// TypeSize returns the byte size of a datatype given by type id. The second
// result is false if the size is indeterminate (open compound, unknown
// member sizes).
func (a *Arena) TypeSize(typeID int) (int64, bool) {
	if typeID == 0 {
		return 0, true
	}
	if typeID < 0 {
		p, ok := prim.ByID(-typeID)
		if !ok {
			return 0, false
		}
		return p.Size, true
	}
	t, ok := a.items[ID(typeID)].(*Type)
	if !ok || t.Open() || t.Size < 0 {
		return 0, false
	}
	return t.Size, true
}

// TypeAlign returns the alignment of a datatype given by type id, or 0 if
// it has none (the empty compound).
func (a *Arena) TypeAlign(typeID int) int64 {
	if typeID == 0 {
		return 0
	}
	if typeID < 0 {
		p, ok := prim.ByID(-typeID)
		if !ok {
			return 0
		}
		return p.Align
	}
	t, ok := a.items[ID(typeID)].(*Type)
	if !ok {
		return 0
	}
	if t.Align < 0 {
		return -t.Align
	}
	return t.Align
}

func (a *Arena) datumAlign(d *Datum) int64 {
	if al, ok := d.Addr.Alignment(); ok {
		return al
	}
	return a.TypeAlign(d.TypeID)
}

// DatumAlign returns the effective alignment of the datum: its own if set,
// else its datatype's.
func (a *Arena) DatumAlign(id ID) int64 {
	d, ok := a.items[id].(*Datum)
	if !ok {
		return 0
	}
	return a.datumAlign(d)
}

// DatumSize returns the byte size of the datum's full array. The second
// result is false if any dimension references an unbound dynamic parameter
// or an unbound unlimited dimension, or the datatype size is indeterminate.
func (a *Arena) DatumSize(id ID) (int64, bool) {
	d, ok := a.items[id].(*Datum)
	if !ok {
		return 0, false
	}
	size, ok := a.TypeSize(d.TypeID)
	if !ok {
		return 0, false
	}
	for _, s := range d.Shape {
		n, pid, off := s.Decode()
		switch {
		case pid != 0:
			v, ok := a.ParamValue(ID(pid))
			if !ok {
				return 0, false
			}
			if v > 0 {
				if v += int64(off); v < 0 {
					v = 0
				}
			}
			if v < 0 {
				// A parameter valued -1 leaves the length unlimited.
				return 0, false
			}
			size *= v
		case n == -1:
			v, ok := a.UnlimitedBound(id)
			if !ok {
				return 0, false
			}
			size *= v
		default:
			size *= n
		}
	}
	return size, true
}

// ParamValue returns the current value of the parameter with the given
// arena id: its literal for a fixed parameter, its bound stream value for a
// dynamic one. The second result is false for an unbound dynamic parameter.
func (a *Arena) ParamValue(id ID) (int64, bool) {
	p, ok := a.items[id].(*Param)
	if !ok {
		return 0, false
	}
	if p.Fixed() {
		return p.Value, true
	}
	if !a.bound[p.PID] {
		return 0, false
	}
	return a.vals[p.PID], true
}

// BindParam records the current stream value of a dynamic parameter.
func (a *Arena) BindParam(id ID, v int64) error {
	p, ok := a.items[id].(*Param)
	if !ok || p.Fixed() {
		return fmt.Errorf("%w: item %d is not a dynamic parameter", ErrTypeMismatch, id)
	}
	a.vals[p.PID] = v
	a.bound[p.PID] = true
	return nil
}

// DynParams returns the arena ids of all dynamic parameters, in creation
// order (the pid order of the value sidecar).
func (a *Arena) DynParams() []ID { return a.dyn }

// BindUnlimited records the concrete length of the datum's unlimited
// leading dimension.
func (a *Arena) BindUnlimited(id ID, n int64) {
	if a.unlim == nil {
		a.unlim = make(map[ID]int64)
	}
	a.unlim[id] = n
}

// UnlimitedBound returns the bound length of the datum's unlimited
// dimension, if any.
func (a *Arena) UnlimitedBound(id ID) (int64, bool) {
	n, ok := a.unlim[id]
	return n, ok
}

// BindAddress records the stream address of an item in the address sidecar,
// growing it to the arena length on demand.
func (a *Arena) BindAddress(id ID, addr int64) {
	if n := len(a.items); len(a.streamAddrs) < n {
		a.streamAddrs = append(a.streamAddrs, make([]int64, n-len(a.streamAddrs))...)
		a.streamBound = append(a.streamBound, make([]bool, n-len(a.streamBound))...)
	}
	a.streamAddrs[id] = addr
	a.streamBound[id] = true
}

// BoundAddress returns the item's bound stream address, if any.
func (a *Arena) BoundAddress(id ID) (int64, bool) {
	if int(id) >= len(a.streamBound) || !a.streamBound[id] {
		return 0, false
	}
	return a.streamAddrs[id], true
}

// AddDoc appends one documentation line to the item.
func (a *Arena) AddDoc(id ID, line string) {
	if n := int(id) + 1; len(a.docs) < n {
		a.docs = append(a.docs, make([][]string, n-len(a.docs))...)
	}
	a.docs[id] = append(a.docs[id], line)
}

// Docs returns the item's documentation lines.
func (a *Arena) Docs(id ID) []string {
	if int(id) >= len(a.docs) {
		return nil
	}
	return a.docs[id]
}

// SetAttr sets one attribute of the item.
func (a *Arena) SetAttr(id ID, name string, v AttrValue) {
	if n := int(id) + 1; len(a.attrs) < n {
		a.attrs = append(a.attrs, make([]AttrMap, n-len(a.attrs))...)
	}
	if a.attrs[id] == nil {
		a.attrs[id] = make(AttrMap)
	}
	a.attrs[id][name] = v
}

// Attrs returns the item's attribute map, nil if it has none.
func (a *Arena) Attrs(id ID) AttrMap {
	if int(id) >= len(a.attrs) {
		return nil
	}
	return a.attrs[id]
}
