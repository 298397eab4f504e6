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

package hdf5

import (
	"fmt"
	"sort"

	"buf.build/go/dudley/internal/arena"
	"buf.build/go/dudley/internal/dim"
	"buf.build/go/dudley/internal/prim"
)

// unaddressable sorts after every real address in address-order mode.
const unaddressable = int64(1) << 62

// convertGroup fills dictID with the children of the group object o.
func (h *reader) convertGroup(a *arena.Arena, dictID arena.ID, o *object) error {
	if !o.isGroup {
		return fmt.Errorf("%w: expected a group object header", ErrCorrupt)
	}
	links, err := h.groupLinks(o)
	if err != nil {
		return err
	}

	type child struct {
		name string
		obj  *object
	}
	var children []child
	for _, lk := range links {
		if lk.soft || lk.addr == undef || lk.name == "" {
			continue
		}
		if h.visited[lk.addr] {
			continue // hard-link cycle; describe each object once
		}
		h.visited[lk.addr] = true
		co, err := h.object(lk.addr)
		if err != nil {
			return err
		}
		children = append(children, child{name: lk.name, obj: co})
	}

	if h.opts.AddressOrder {
		sort.SliceStable(children, func(i, j int) bool {
			return minAddr(children[i].obj) < minAddr(children[j].obj)
		})
	}

	for _, c := range children {
		switch {
		case c.obj.isGroup:
			sub, err := a.NewDict(dictID, c.name)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrCorrupt, err)
			}
			if err := h.convertGroup(a, sub, c.obj); err != nil {
				return err
			}
		default:
			if err := h.convertData(a, dictID, c.name, c.obj); err != nil {
				return err
			}
		}
	}
	return nil
}

// groupLinks gathers a group's links from whichever storage it uses: the
// v1 symbol table, the in-message compact list, or the v2 name B-tree.
func (h *reader) groupLinks(o *object) ([]link, error) {
	switch {
	case o.btree != undef:
		return h.symbolTable(o.btree, o.heap)
	case len(o.compact) > 0:
		links := append([]link(nil), o.compact...)
		if o.oTree != undef {
			sort.SliceStable(links, func(i, j int) bool {
				return links[i].order < links[j].order
			})
		}
		return links, nil
	case o.nameTree != undef:
		return h.v2Links(o.fheap, o.nameTree, o.oTree)
	}
	return nil, nil
}

// minAddr is the address-order sort key: the lowest byte address of the
// object's data, with unaddressable data after all addresses and groups
// after that. Groups are not searched for the addresses of their children.
func minAddr(o *object) int64 {
	switch {
	case o.isData:
		if o.external || o.filter != nil {
			return unaddressable
		}
		if len(o.chunkAddrs) > 0 {
			m := o.chunkAddrs[0]
			for _, a := range o.chunkAddrs[1:] {
				m = min(m, a)
			}
			return m
		}
		if o.addr != undef {
			return o.addr
		}
		return unaddressable
	default:
		return unaddressable + 1
	}
}

// convertData adds the dataset o to the dict as a datum, or as a list of
// per-chunk data blocks for chunked storage.
func (h *reader) convertData(a *arena.Arena, dictID arena.ID, name string, o *object) error {
	typeID, extra, err := h.typeID(a, o.dt)
	if err != nil {
		return err
	}
	shape := make([]dim.Slot, 0, len(o.shape)+1)
	for _, d := range o.shape {
		s, err := dim.Lit(d)
		if err != nil {
			return fmt.Errorf("%w: dataset %s has dimension %d", ErrCorrupt, name, d)
		}
		shape = append(shape, s)
	}
	shape = append(shape, extra...)

	if len(o.chunkDims) > 0 || (o.chunkRank > 0 && o.addr == undef) {
		list, err := a.NewList(dictID, name)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		cshape := make([]dim.Slot, 0, len(o.chunkDims)+len(extra))
		for _, d := range o.chunkDims {
			s, err := dim.Lit(d)
			if err != nil {
				return fmt.Errorf("%w: dataset %s has chunk dimension %d", ErrCorrupt, name, d)
			}
			cshape = append(cshape, s)
		}
		cshape = append(cshape, extra...)
		for i, caddr := range o.chunkAddrs {
			at, err := arena.At(caddr)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrCorrupt, err)
			}
			id, err := a.NewDatum(list, "", typeID, cshape, at, o.filter)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrCorrupt, err)
			}
			if i < len(o.chunkOffs) {
				a.SetAttr(id, "chunk_offset", arena.IntsAttr(o.chunkOffs[i]))
			}
			if i < len(o.chunkSizes) {
				a.SetAttr(id, "chunk_bytes", arena.IntAttr(o.chunkSizes[i]))
			}
		}
		if names := enumNames(o.dt); len(names) > 0 {
			a.SetAttr(list, "enum", arena.StringsAttr(names))
		}
		return nil
	}

	addr := arena.Address{}
	switch {
	case o.external || o.addr == undef:
		addr = arena.NotAllocated()
	default:
		if addr, err = arena.At(o.addr); err != nil {
			return fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
	}
	id, err := a.NewDatum(dictID, name, typeID, shape, addr, o.filter)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	d := a.At(id).(*arena.Datum)
	d.External = o.external
	if names := enumNames(o.dt); len(names) > 0 {
		a.SetAttr(id, "enum", arena.StringsAttr(names))
	}
	return nil
}

func enumNames(dt *dtype) []string {
	if dt == nil {
		return nil
	}
	return dt.enum
}

// typeID maps a decoded datatype to an arena type id, creating compound
// types and typedefs for unrepresentable scalars at the root dict. The
// extra slots extend the datum shape for fixed-length strings.
func (h *reader) typeID(a *arena.Arena, dt *dtype) (int, []dim.Slot, error) {
	if dt == nil {
		return 0, nil, nil
	}
	if dt.class == 6 {
		members := append([]member(nil), dt.members...)
		sort.SliceStable(members, func(i, j int) bool { return members[i].off < members[j].off })
		tid, err := a.NewType(0, "")
		if err != nil {
			return 0, nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		for _, m := range members {
			mtid, extra, err := h.typeID(a, m.typ)
			if err != nil {
				return 0, nil, err
			}
			var mshape []dim.Slot
			for _, d := range m.dims {
				s, err := dim.Lit(d)
				if err != nil {
					return 0, nil, fmt.Errorf("%w: compound member %s", ErrCorrupt, m.name)
				}
				mshape = append(mshape, s)
			}
			mshape = append(mshape, extra...)
			if _, err := a.NewDatum(tid, m.name, mtid, mshape, arena.Address{}, nil); err != nil {
				return 0, nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
			}
		}
		if err := a.CloseType(tid); err != nil {
			return 0, nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		return int(tid), nil, nil
	}

	if id, ok := prim.ByName(canonicalName(dt.name)); ok {
		// Fixed-length strings widen the shape rather than the scalar.
		if (dt.name == "S1" || dt.name == "U1") && dt.size > 1 {
			s, err := dim.Lit(dt.size)
			if err != nil {
				return 0, nil, fmt.Errorf("%w: string length %d", ErrCorrupt, dt.size)
			}
			return -id, []dim.Slot{s}, nil
		}
		return -id, nil, nil
	}

	// Opaque, reference, and variable-length types become named byte
	// typedefs so the arena always gets a datatype.
	if tid, ok := a.Root().Types.Get(dt.name); ok {
		return tid, nil, nil
	}
	u1, _ := prim.ByName("|u1")
	var shape []dim.Slot
	if dt.size > 1 {
		s, err := dim.Lit(dt.size)
		if err != nil {
			return 0, nil, fmt.Errorf("%w: datatype size %d", ErrCorrupt, dt.size)
		}
		shape = []dim.Slot{s}
	}
	tid, err := a.NewTypedef(0, dt.name, -u1, shape, 0)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return int(tid), nil, nil
}

// canonicalName maps the walker's scalar spellings onto catalog names:
// one-byte kinds have indeterminate order.
func canonicalName(name string) string {
	switch name {
	case "S1", "U1":
		return "|" + name
	case "<i1", ">i1":
		return "|i1"
	case "<u1", ">u1":
		return "|u1"
	}
	return name
}
