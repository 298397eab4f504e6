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

import "fmt"

// node1 is one v1 B-tree node header.
type node1 struct {
	ntype int
	level int
	nent  int
	left  int64
	right int64
}

func (h *reader) readNode1(addr int64) (node1, error) {
	b, err := h.read(addr+h.base, 8+2*h.offsz)
	if err != nil {
		return node1{}, err
	}
	if string(b[:4]) != "TREE" {
		return node1{}, fmt.Errorf("%w: missing TREE signature at %#x", ErrCorrupt, addr)
	}
	return node1{
		ntype: int(b[4]),
		level: int(b[5]),
		nent:  int(le(b[6:8])),
		left:  h.off(b, 8),
		right: h.off(b, 8+h.offsz),
	}, nil
}

// btree1Leaves walks a v1 B-tree: descend to the leftmost level-zero node,
// then follow right-sibling links, collecting the child pointers of every
// level-zero node. Group trees (node type 0) use offset-sized keys; chunk
// trees use 8*(rank+2)-byte keys, returned alongside the children with the
// final key last.
func (h *reader) btree1Leaves(addr int64, rank int) (children []int64, keys [][]byte, err error) {
	n, err := h.readNode1(addr)
	if err != nil {
		return nil, nil, err
	}
	if n.left != undef {
		return nil, nil, fmt.Errorf("%w: v1 B-tree top level node has sibling", ErrCorrupt)
	}
	keysize := h.offsz
	if n.ntype != 0 {
		if rank < 0 {
			return nil, nil, fmt.Errorf("%w: chunked data B-tree needs dimensionality", ErrCorrupt)
		}
		keysize = 8 * (rank + 2)
	}

	// Descend along child 0 to level zero.
	for n.level > 0 {
		b, err := h.read(addr+h.base+int64(8+2*h.offsz+keysize), h.offsz)
		if err != nil {
			return nil, nil, err
		}
		addr = h.off(b, 0)
		if n, err = h.readNode1(addr); err != nil {
			return nil, nil, err
		}
	}

	for {
		p := addr + h.base + int64(8+2*h.offsz)
		for i := 0; i < n.nent; i++ {
			if n.ntype != 0 {
				kb, err := h.read(p, keysize)
				if err != nil {
					return nil, nil, err
				}
				keys = append(keys, kb)
			}
			cb, err := h.read(p+int64(keysize), h.offsz)
			if err != nil {
				return nil, nil, err
			}
			children = append(children, h.off(cb, 0))
			p += int64(keysize + h.offsz)
		}
		if n.right == undef {
			if n.ntype != 0 {
				kb, err := h.read(p, keysize)
				if err != nil {
					return nil, nil, err
				}
				keys = append(keys, kb)
			}
			return children, keys, nil
		}
		addr = n.right
		if n, err = h.readNode1(addr); err != nil {
			return nil, nil, err
		}
	}
}

// localHeap reads the HEAP-signed local heap and returns its data segment,
// where symbol table entries index NUL-terminated names.
func (h *reader) localHeap(addr int64) ([]byte, error) {
	b, err := h.read(addr+h.base, 8+2*h.lensz+h.offsz)
	if err != nil {
		return nil, err
	}
	if string(b[:4]) != "HEAP" {
		return nil, fmt.Errorf("%w: missing HEAP signature at %#x", ErrCorrupt, addr)
	}
	size := h.length(b, 8)
	data := h.off(b, 8+2*h.lensz)
	if size < 0 {
		return nil, fmt.Errorf("%w: local heap has negative size", ErrCorrupt)
	}
	return h.read(data+h.base, int(size))
}

func heapName(heap []byte, off int64) string {
	if off < 0 || off >= int64(len(heap)) {
		return ""
	}
	end := off
	for end < int64(len(heap)) && heap[end] != 0 {
		end++
	}
	return string(heap[off:end])
}

// symbolTable resolves a v1 group: the B-tree's SNOD leaves hold pairs of
// (name offset in the local heap, object header address), already ordered
// by name.
func (h *reader) symbolTable(btree, heapAddr int64) ([]link, error) {
	heap, err := h.localHeap(heapAddr)
	if err != nil {
		return nil, err
	}
	nodes, _, err := h.btree1Leaves(btree, -1)
	if err != nil {
		return nil, err
	}
	var links []link
	for _, addr := range nodes {
		b, err := h.read(addr+h.base, 8)
		if err != nil {
			return nil, err
		}
		if string(b[:4]) != "SNOD" {
			return nil, fmt.Errorf("%w: missing SNOD signature at %#x", ErrCorrupt, addr)
		}
		nent := int(le(b[6:8]))
		p := addr + h.base + 8
		for i := 0; i < nent; i++ {
			eb, err := h.read(p, 2*h.offsz)
			if err != nil {
				return nil, err
			}
			links = append(links, link{
				name: heapName(heap, h.off(eb, 0)),
				addr: h.off(eb, h.offsz),
			})
			p += int64(2*h.offsz) + 24 // cache type, reserved, scratch pad
		}
	}
	return links, nil
}
