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

// fractalHeap reads an FRHP heap and reconstructs its managed offset space
// by concatenating direct blocks, headers included, in row order. An
// indirect root is walked row by row, recursing into child indirect blocks
// for the rows past the direct-block maximum. Filtered heaps are refused.
// With check5 set, the heap is verified to use the 4-byte block offsets
// that v2 B-tree heap ids assume.
func (h *reader) fractalHeap(addr int64, check5 bool) ([]byte, error) {
	n := 20 + 12*h.lensz + 3*h.offsz
	b, err := h.read(addr+h.base, n+2)
	if err != nil {
		return nil, err
	}
	if string(b[:4]) != "FRHP" {
		return nil, fmt.Errorf("%w: missing FRHP signature at %#x", ErrCorrupt, addr)
	}
	p := 5
	// idlen(2) filterlen(2) flags(1) maxmanaged(4)
	filtlen := int(le(b[p+2 : p+4]))
	p += 4
	flags := b[p]
	p += 1 + 4
	// huge id, huge tree, free space, free manager
	p += 2*h.lensz + 2*h.offsz
	// managed space, allocated space, direct iterator, #managed, huge size,
	// #huge, tiny size, #tiny
	p += 8 * h.lensz
	width := int(le(b[p : p+2]))
	p += 2
	startsz := h.length(b, p)
	p += h.lensz
	directmx := h.length(b, p)
	p += h.lensz
	maxheapsz := int(le(b[p : p+2]))
	p += 2
	p += 2 // starting rows in root indirect block
	root := h.off(b, p)
	p += h.offsz
	nrows := int(le(b[p : p+2]))

	if filtlen != 0 {
		return nil, fmt.Errorf("%w: filtered fractal heap", ErrCorrupt)
	}
	if width <= 0 || startsz <= 0 || directmx < startsz {
		return nil, fmt.Errorf("%w: fractal heap sanity check failed", ErrCorrupt)
	}
	blkoffsz := (maxheapsz + 7) / 8
	if check5 && blkoffsz != 4 {
		return nil, fmt.Errorf("%w: fractal heap for v2 B-tree has wrong offset size", ErrCorrupt)
	}
	maxDirectRows := 2
	for rat := directmx / startsz; rat > 1; rat >>= 1 {
		maxDirectRows++
	}

	if nrows == 0 {
		// The root is a single direct block of the starting size.
		heap, err := h.read(root+h.base, int(startsz))
		if err != nil {
			return nil, err
		}
		if string(heap[:4]) != "FHDB" {
			return nil, fmt.Errorf("%w: missing FHDB signature in fractal heap root", ErrCorrupt)
		}
		return heap, nil
	}

	w := &fhWalk{
		h:             h,
		width:         width,
		startsz:       startsz,
		maxDirectRows: maxDirectRows,
		headsz:        5 + h.offsz + blkoffsz,
		cksz:          0,
	}
	if flags&2 != 0 {
		w.cksz = 4
	}
	return w.indirect(root, nrows)
}

type fhWalk struct {
	h             *reader
	width         int
	startsz       int64
	maxDirectRows int
	headsz        int
	cksz          int
}

// indirect concatenates the blocks below one FHIB indirect block.
func (w *fhWalk) indirect(addr int64, nrows int) ([]byte, error) {
	h := w.h
	direct := min(nrows, w.maxDirectRows)
	k := direct * w.width
	nindirect := 0
	if nrows > w.maxDirectRows {
		nindirect = (nrows - w.maxDirectRows) * w.width
	}
	block, err := h.read(addr+h.base, w.headsz+(k+nindirect)*h.offsz+w.cksz)
	if err != nil {
		return nil, err
	}
	if string(block[:4]) != "FHIB" {
		return nil, fmt.Errorf("%w: missing FHIB signature at %#x", ErrCorrupt, addr)
	}

	var heap []byte
	p := w.headsz
	bsz, nextsz := w.startsz, w.startsz
	for row := 0; row < direct; row++ {
		for col := 0; col < w.width; col++ {
			child := h.off(block, p)
			p += h.offsz
			if child == undef {
				continue
			}
			b, err := h.read(child+h.base, int(bsz))
			if err != nil {
				return nil, err
			}
			heap = append(heap, b...)
		}
		bsz, nextsz = nextsz, 2*nextsz
	}
	mrows := w.maxDirectRows + 1
	for row := w.maxDirectRows; row < nrows; row++ {
		for col := 0; col < w.width; col++ {
			child := h.off(block, p)
			p += h.offsz
			if child == undef {
				continue
			}
			sub, err := w.indirect(child, mrows)
			if err != nil {
				return nil, err
			}
			heap = append(heap, sub...)
		}
		mrows++
	}
	return heap, nil
}
