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
)

// link is one group entry: a name and the object header it leads to.
type link struct {
	name     string
	addr     int64
	soft     bool
	order    int64
	hasOrder bool
}

// minNbytes is the fewest bytes able to represent x, how v2 B-trees size
// their per-level child counters.
func minNbytes(x uint64) int {
	n := 1
	for x >= 0x100 {
		x >>= 8
		n++
	}
	return n
}

// btree2 reads a BTHD header and collects every leaf record in key order.
func (h *reader) btree2(addr int64) (btype int, recs [][]byte, err error) {
	b, err := h.read(addr+h.base, 18+h.offsz+h.lensz)
	if err != nil {
		return 0, nil, err
	}
	if string(b[:4]) != "BTHD" {
		return 0, nil, fmt.Errorf("%w: missing BTHD signature at %#x", ErrCorrupt, addr)
	}
	btype = int(b[5])
	nodesz := int(le(b[6:10]))
	recsz := int(le(b[10:12]))
	depth := int(le(b[12:14]))
	root := h.off(b, 16)
	nroot := int(le(b[16+h.offsz : 18+h.offsz]))
	ntot := h.length(b, 18+h.offsz)

	if recsz <= 0 || nodesz <= 10 {
		return 0, nil, fmt.Errorf("%w: v2 B-tree sanity check failed", ErrCorrupt)
	}
	// Per-depth counter widths: at each level, child counts are stored in
	// the fewest bytes that can hold the maximum possible total below it.
	maxNrec := (nodesz - 10) / recsz
	maxNrecSz := minNbytes(uint64(maxNrec))
	cum := uint64(maxNrec)
	cumSz := make([]int, depth+1)
	for d := 1; d <= depth; d++ {
		entry := h.offsz + maxNrecSz + cumSz[d-1]
		maxNrec = (nodesz - 10 - entry) / (recsz + entry)
		cum *= uint64(maxNrec + 1)
		cumSz[d] = minNbytes(cum)
	}

	if root == undef {
		return btype, nil, nil
	}
	recs, err = h.btree2Node(root, nroot, ntot, recsz, depth, maxNrecSz, cumSz, nodesz)
	return btype, recs, err
}

// btree2Node descends a BTIN or BTLF node, interleaving child leaves with
// this node's own records so the result stays in key order.
func (h *reader) btree2Node(addr int64, nrec int, ntot int64, recsz, depth, maxNrecSz int, cumSz []int, nodesz int) ([][]byte, error) {
	sig, err := h.read(addr+h.base, 6)
	if err != nil {
		return nil, err
	}
	isLeaf := string(sig[:4]) == "BTLF"
	if !isLeaf && string(sig[:4]) != "BTIN" {
		return nil, fmt.Errorf("%w: missing BTIN or BTLF signature at %#x", ErrCorrupt, addr)
	}
	if nrec*recsz > nodesz {
		return nil, fmt.Errorf("%w: v2 B-tree sanity check failed", ErrCorrupt)
	}
	p := addr + h.base + 6
	recs := make([][]byte, 0, nrec)
	for i := 0; i < nrec; i++ {
		rb, err := h.read(p, recsz)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rb)
		p += int64(recsz)
	}
	if isLeaf {
		return recs, nil
	}

	ntsz := cumSz[depth-1]
	var leaves [][]byte
	for i := 0; i <= nrec; i++ {
		eb, err := h.read(p, h.offsz+maxNrecSz+ntsz)
		if err != nil {
			return nil, err
		}
		child := h.off(eb, 0)
		cn := int(le(eb[h.offsz : h.offsz+maxNrecSz]))
		ct := int64(cn)
		if ntsz > 0 {
			ct = int64(le(eb[h.offsz+maxNrecSz : h.offsz+maxNrecSz+ntsz]))
		}
		p += int64(h.offsz + maxNrecSz + ntsz)
		sub, err := h.btree2Node(child, cn, ct, recsz, depth-1, maxNrecSz, cumSz, nodesz)
		if err != nil {
			return nil, err
		}
		leaves = append(leaves, sub...)
		if i < nrec {
			leaves = append(leaves, recs[i])
		}
	}
	return leaves, nil
}

// v2Links resolves a v2 group's links: name B-tree records lead to fractal
// heap items, each a link message. A creation-order tree, when present,
// sorts the result by creation order.
func (h *reader) v2Links(heapAddr, nameTree, orderTree int64) ([]link, error) {
	var order map[uint64]int64
	if orderTree != undef && orderTree >= 0 {
		btype, recs, err := h.btree2(orderTree)
		if err != nil {
			return nil, err
		}
		if btype != 6 {
			return nil, fmt.Errorf("%w: creation order B-tree has type %d", ErrCorrupt, btype)
		}
		order = make(map[uint64]int64, len(recs))
		for _, rec := range recs {
			if len(rec) < 9 {
				continue
			}
			ord := sle(rec[:8])
			heapid := le(rec[8:])
			order[heapid&0xffffffffffffff] = ord
		}
	}

	btype, recs, err := h.btree2(nameTree)
	if err != nil {
		return nil, err
	}
	if btype != 5 {
		return nil, fmt.Errorf("%w: group name B-tree has type %d", ErrCorrupt, btype)
	}
	heap, err := h.fractalHeap(heapAddr, true)
	if err != nil {
		return nil, err
	}

	var links []link
	for _, rec := range recs {
		if len(rec) < 5 {
			continue
		}
		// Record: 4-byte name hash, then a heap id of at most 8 bytes.
		heapid := le(rec[4:min(len(rec), 12)])
		if idtype := (heapid >> 4) & 3; idtype != 0 {
			return nil, fmt.Errorf("%w: tiny or huge object in group B-tree", ErrCorrupt)
		}
		hoff := (heapid >> 8) & 0xffffffff
		hlen := (heapid >> 40) & 0xffff
		if hoff+hlen > uint64(len(heap)) {
			return nil, fmt.Errorf("%w: heap id outside fractal heap", ErrCorrupt)
		}
		lk, err := h.decodeLink(heap[hoff : hoff+hlen])
		if err != nil {
			return nil, err
		}
		if ord, ok := order[heapid&0xffffffffffffff]; ok {
			lk.order, lk.hasOrder = ord, true
		}
		links = append(links, lk)
	}
	if order != nil {
		sort.SliceStable(links, func(i, j int) bool { return links[i].order < links[j].order })
	}
	return links, nil
}

// decodeLink decodes a type-6 link message.
func (h *reader) decodeLink(msg []byte) (link, error) {
	var lk link
	if len(msg) < 2 {
		return lk, fmt.Errorf("%w: truncated link message", ErrCorrupt)
	}
	flags := msg[1]
	msg = msg[2:]
	ltype := 0
	if flags&0x8 != 0 {
		ltype = int(msg[0])
		msg = msg[1:]
	}
	if flags&0x4 != 0 {
		lk.order = sle(msg[:8])
		lk.hasOrder = true
		msg = msg[8:]
	}
	if flags&0x10 != 0 {
		msg = msg[1:] // character set; names decode as UTF-8 regardless
	}
	lensz := 1 << (flags & 3)
	if len(msg) < lensz {
		return lk, fmt.Errorf("%w: truncated link message", ErrCorrupt)
	}
	namelen := int(le(msg[:lensz]))
	msg = msg[lensz:]
	if len(msg) < namelen {
		return lk, fmt.Errorf("%w: truncated link message", ErrCorrupt)
	}
	lk.name = string(msg[:namelen])
	msg = msg[namelen:]
	if ltype == 0 {
		if len(msg) < h.offsz {
			return lk, fmt.Errorf("%w: truncated link message", ErrCorrupt)
		}
		lk.addr = h.off(msg, 0)
	} else {
		// Soft and external links have no object header to walk.
		lk.soft = true
		lk.addr = undef
	}
	return lk, nil
}
