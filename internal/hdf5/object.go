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

	"buf.build/go/dudley/internal/arena"
)

// object is the walker's view of one object header: either a group (v1
// symbol table or v2 link storage) or a dataset.
type object struct {
	isGroup bool
	isData  bool

	// v1 group
	btree int64
	heap  int64
	// v2 group
	fheap    int64
	nameTree int64
	oTree    int64
	compact  []link

	// dataset
	dt       *dtype
	shape    []int64
	maxdims  []int64
	addr     int64
	external bool
	filter   *arena.Filter

	chunkRank  int
	chunkDims  []int64
	chunkAddrs []int64
	chunkSizes []int64
	chunkOffs  [][]int64
}

// object walks the object header at addr and classifies it.
func (h *reader) object(addr int64) (*object, error) {
	msgs, err := h.oheader(addr, false)
	if err != nil {
		return nil, err
	}
	o := &object{addr: undef, btree: undef, heap: undef,
		fheap: undef, nameTree: undef, oTree: undef}
	for _, m := range msgs {
		if err := h.objectMsg(o, m); err != nil {
			return nil, err
		}
	}
	if o.isGroup && o.isData {
		return nil, fmt.Errorf("%w: object is both group and dataset", ErrCorrupt)
	}
	return o, nil
}

func (h *reader) objectMsg(o *object, m message) error {
	switch m.mtype {
	case mtSymbolTable:
		if len(m.body) < 2*h.offsz {
			return fmt.Errorf("%w: truncated symbol table message", ErrCorrupt)
		}
		o.isGroup = true
		o.btree = h.off(m.body, 0)
		o.heap = h.off(m.body, h.offsz)

	case mtLinkInfo:
		if len(m.body) < 2 {
			return fmt.Errorf("%w: truncated link info message", ErrCorrupt)
		}
		o.isGroup = true
		flags := m.body[1]
		p := 2
		if flags&1 != 0 {
			p += 8 // maximum creation index
		}
		if len(m.body) < p+2*h.offsz {
			return fmt.Errorf("%w: truncated link info message", ErrCorrupt)
		}
		o.fheap = h.off(m.body, p)
		o.nameTree = h.off(m.body, p+h.offsz)
		if flags&2 != 0 && len(m.body) >= p+3*h.offsz {
			o.oTree = h.off(m.body, p+2*h.offsz)
		}

	case mtLink:
		o.isGroup = true
		lk, err := h.decodeLink(m.body)
		if err != nil {
			return err
		}
		o.compact = append(o.compact, lk)

	case mtGroupInfo:
		o.isGroup = true

	case mtDataspace:
		o.isData = true
		return h.dataspaceMsg(o, m.body)

	case mtDatatype:
		o.isData = true
		dt, _, err := h.decodeDtype(m.body)
		if err != nil {
			return err
		}
		if dt.class == 10 {
			// A top-level array datatype prepends its dims to the shape.
			o.shape = append(dt.dims, o.shape...)
			dt = dt.members[0].typ
		}
		o.dt = dt

	case mtLayout:
		o.isData = true
		return h.layoutMsg(o, m)

	case mtExternal:
		o.isData = true
		o.external = true

	case mtFilters:
		o.filter = decodeFilters(m.body)
	}
	return nil
}

// dataspaceMsg decodes message type 1: rank, dims, optional maxdims.
func (h *reader) dataspaceMsg(o *object, body []byte) error {
	if len(body) < 4 {
		return fmt.Errorf("%w: truncated dataspace message", ErrCorrupt)
	}
	version, ndims, flags := body[0], int(body[1]), body[2]
	stype := body[3]
	if version == 1 {
		body = skip(body, 8)
	} else {
		body = skip(body, 4)
	}
	if version >= 2 && stype == 2 {
		// Null dataspace: no elements at all.
		o.shape = append(o.shape, 0)
		return nil
	}
	if ndims == 0 {
		return nil
	}
	if len(body) < ndims*h.lensz {
		return fmt.Errorf("%w: truncated dataspace message", ErrCorrupt)
	}
	dims := make([]int64, ndims)
	for i := 0; i < ndims; i++ {
		dims[i] = sle(body[i*h.lensz : (i+1)*h.lensz])
	}
	body = skip(body, ndims*h.lensz)
	if flags&1 != 0 && len(body) >= ndims*h.lensz {
		o.maxdims = make([]int64, ndims)
		for i := 0; i < ndims; i++ {
			o.maxdims[i] = sle(body[i*h.lensz : (i+1)*h.lensz])
		}
	}
	// An array-class datatype seen first already contributed dims.
	o.shape = append(o.shape, dims...)
	return nil
}

// layoutMsg decodes message type 8: compact, contiguous, chunked, or
// virtual data layout.
func (h *reader) layoutMsg(o *object, m message) error {
	body := m.body
	if len(body) < 2 {
		return fmt.Errorf("%w: truncated data layout message", ErrCorrupt)
	}
	version := body[0]
	switch {
	case version < 3:
		ndims, class := int(body[1]), int(body[2])
		p := 8
		if class > 0 {
			if len(body) < p+h.offsz {
				return fmt.Errorf("%w: truncated data layout message", ErrCorrupt)
			}
			o.addr = h.off(body, p)
			p += h.offsz
		}
		switch class {
		case 0: // compact: the data trails the dimension and size fields
			o.addr = m.addr + int64(8+4*ndims+4)
		case 1:
			if o.addr != undef {
				o.addr += h.base
			}
		case 2:
			rank := ndims - 1 // the stored rank counts the element-size dim
			dims := make([]int64, 0, rank)
			for i := 0; i < rank; i++ {
				if len(body) < p+4 {
					return fmt.Errorf("%w: truncated data layout message", ErrCorrupt)
				}
				dims = append(dims, int64(le(body[p:p+4])))
				p += 4
			}
			return h.chunked(o, rank, dims)
		}

	case version == 3:
		class := int(body[1])
		p := 2
		switch class {
		case 0:
			o.addr = m.addr + 4 // header and 2-byte size precede the data
		case 1:
			if len(body) < p+h.offsz {
				return fmt.Errorf("%w: truncated data layout message", ErrCorrupt)
			}
			if o.addr = h.off(body, p); o.addr != undef {
				o.addr += h.base
			}
		case 2:
			if len(body) < p+1+h.offsz {
				return fmt.Errorf("%w: truncated data layout message", ErrCorrupt)
			}
			rank := int(body[p]) - 1
			o.addr = h.off(body, p+1)
			p += 1 + h.offsz
			if len(body) < p+4*(rank+1) {
				return fmt.Errorf("%w: truncated data layout message", ErrCorrupt)
			}
			dims := make([]int64, 0, rank)
			for i := 0; i < rank; i++ {
				dims = append(dims, int64(le(body[p+4*i:p+4*i+4])))
			}
			return h.chunked(o, rank, dims)
		default:
			o.addr = undef
			o.external = true
		}

	default:
		// Version 4 chunked indexing and virtual storage are recognized
		// but not decoded; the datum is marked external.
		o.addr = undef
		o.external = true
	}
	return nil
}

// chunked resolves a chunk B-tree into per-chunk addresses and keys.
func (h *reader) chunked(o *object, rank int, dims []int64) error {
	o.chunkRank = rank
	o.chunkDims = dims
	if o.addr == undef {
		return nil
	}
	children, keys, err := h.btree1Leaves(o.addr, rank)
	if err != nil {
		return err
	}
	o.addr = undef
	for i, c := range children {
		o.chunkAddrs = append(o.chunkAddrs, c+h.base)
		if i < len(keys) {
			k := keys[i]
			o.chunkSizes = append(o.chunkSizes, int64(le(k[0:4])))
			offs := make([]int64, rank)
			for j := 0; j < rank; j++ {
				offs[j] = sle(k[8+8*j : 16+8*j])
			}
			o.chunkOffs = append(o.chunkOffs, offs)
		}
	}
	return nil
}

// filterNames are the registered HDF5 filter ids the walker can name.
var filterNames = map[int]string{
	1: "deflate", 2: "shuffle", 3: "fletcher32",
	4: "szip", 5: "nbit", 6: "scaleoffset",
}

// decodeFilters reads a filter pipeline message, keeping the first filter
// as the datum's descriptor. The pipeline is recorded, never applied.
func decodeFilters(body []byte) *arena.Filter {
	if len(body) < 2 {
		return nil
	}
	version := body[0]
	n := int(body[1])
	if n == 0 {
		return nil
	}
	p := 2
	if version == 1 {
		p = 8
	}
	if len(body) < p+8 {
		return nil
	}
	id := int(le(body[p : p+2]))
	var namelen int
	if version == 1 || id >= 256 {
		namelen = int(le(body[p+2 : p+4]))
		p += 2
	}
	nvalues := int(le(body[p+4 : p+6]))
	p += 6
	name := filterNames[id]
	if version == 1 {
		namelen = (namelen + 7) / 8 * 8
	}
	if namelen > 0 && len(body) >= p+namelen {
		if name == "" {
			name = cstr(body[p : p+namelen])
		}
		p += namelen
	}
	if name == "" {
		name = fmt.Sprintf("filter-%d", id)
	}
	f := &arena.Filter{Name: name}
	for i := 0; i < nvalues && len(body) >= p+4; i++ {
		f.Args = append(f.Args, float64(le(body[p:p+4])))
		p += 4
	}
	return f
}
