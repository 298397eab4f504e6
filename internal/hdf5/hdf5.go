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

// Package hdf5 reads HDF5 metadata without the HDF5 library, producing a
// layout arena.
//
// The walker visits the superblock, object headers, v1 and v2 B-trees,
// local heaps, and fractal heaps, and never touches array payloads: the
// resulting arena only describes where data lies. Even the lowest level
// HDF5 APIs hide the on-disk address of data, which is the one thing a
// layout needs; this reader exists to recover it for uncompressed data
// without the very large and tricky HDF5 library.
package hdf5

import (
	"errors"
	"fmt"
	"io"

	"buf.build/go/dudley/internal/arena"
	"buf.build/go/dudley/internal/debug"
)

// Signature is the 8-byte HDF5 superblock signature, found at offset 0,
// 512, 1024, 2048, and further doublings.
const Signature = "\x89HDF\r\n\x1a\n"

// ErrCorrupt is wrapped by every error reporting structural damage the
// walker cannot work around. It is terminal: no arena is produced.
var ErrCorrupt = errors.New("dudley: corrupt or unsupported HDF5 file")

// undef is the HDF5 undefined-address sentinel after sign extension.
const undef = int64(-1)

// Options adjust the walk.
type Options struct {
	// AddressOrder sorts each group's children by minimum data address,
	// with unaddressable data and subgroups after, instead of keeping
	// symbol-table order.
	AddressOrder bool
}

// Read walks the HDF5 file in r (size bytes long) and produces the
// equivalent arena. Groups become dicts; datasets become data; chunked
// datasets become lists of per-chunk blocks.
func Read(r io.ReaderAt, size int64, opts Options) (*arena.Arena, error) {
	h := &reader{r: r, size: size, opts: opts, visited: make(map[int64]bool)}
	if err := h.superblock(); err != nil {
		return nil, err
	}
	root, err := h.object(h.rootAddr)
	if err != nil {
		return nil, err
	}
	a := arena.New()
	if err := h.convertGroup(a, 0, root); err != nil {
		return nil, err
	}
	return a, nil
}

type reader struct {
	r    io.ReaderAt
	size int64
	opts Options

	base  int64
	eof   int64
	offsz int
	lensz int

	// v1 B-tree K values; only kept because a superblock or its extension
	// delivers them, the walker itself has no use for node capacities.
	kleaf, kint, kintis int

	sharetab int64
	shareind int

	rootAddr int64
	visited  map[int64]bool
}

// read returns n bytes at addr, wrapping IO failures.
func (h *reader) read(addr int64, n int) ([]byte, error) {
	if addr < 0 || n < 0 {
		return nil, fmt.Errorf("%w: read at bad address %#x", ErrCorrupt, addr)
	}
	buf := make([]byte, n)
	if _, err := h.r.ReadAt(buf, addr); err != nil {
		return nil, fmt.Errorf("dudley: reading HDF5 metadata: %w", err)
	}
	return buf, nil
}

// le decodes an unsigned little-endian integer.
func le(b []byte) uint64 {
	var v uint64
	for i := len(b) - 1; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}

// sle decodes a signed little-endian integer, so the all-ones undefined
// address comes back as -1 for any field width.
func sle(b []byte) int64 {
	v := le(b)
	shift := 64 - 8*len(b)
	return int64(v<<uint(shift)) >> uint(shift)
}

// off decodes one size-of-offsets field at index i of b.
func (h *reader) off(b []byte, i int) int64 { return sle(b[i : i+h.offsz]) }

// length decodes one size-of-lengths field at index i of b.
func (h *reader) length(b []byte, i int) int64 { return sle(b[i : i+h.lensz]) }

// superblock locates and decodes the superblock, leaving the base address,
// field sizes, and root object header address on the reader.
func (h *reader) superblock() error {
	var addr int64
	for {
		if addr+8 >= h.size {
			return fmt.Errorf("%w: superblock signature not found", ErrCorrupt)
		}
		sig, err := h.read(addr, 8)
		if err != nil {
			return err
		}
		if string(sig) == Signature {
			break
		}
		if addr == 0 {
			addr = 512
		} else {
			addr *= 2
		}
	}
	sigAddr := addr
	addr += 8

	head, err := h.read(addr, 4)
	if err != nil {
		return err
	}
	vers := head[0]
	h.kleaf, h.kint, h.kintis = 4, 16, 32

	var superx int64 = undef
	switch {
	case vers < 2:
		// Legacy layout: free space, root group, and shared header
		// versions, then sizes and the B-tree K values.
		b, err := h.read(addr+4, 8)
		if err != nil {
			return err
		}
		h.offsz, h.lensz = int(b[1]), int(b[2])
		h.kleaf = int(le(b[4:6]))
		h.kint = int(le(b[6:8]))
		addr += 16 // the 8 above plus 4 consistency flags
		if vers == 1 {
			b, err := h.read(addr, 4)
			if err != nil {
				return err
			}
			h.kintis = int(le(b[:2]))
			addr += 4
		}
		if err := h.checkSizes(); err != nil {
			return err
		}
		b, err = h.read(addr, 4*h.offsz)
		if err != nil {
			return err
		}
		h.base = h.off(b, 0)
		h.eof = h.off(b, 2*h.offsz)
		addr += int64(4 * h.offsz)
		// The root group symbol table entry: skip the link name offset,
		// take the object header address.
		b, err = h.read(addr+int64(h.offsz), h.offsz)
		if err != nil {
			return err
		}
		h.rootAddr = h.off(b, 0)

	case vers <= 3:
		h.offsz, h.lensz = int(head[1]), int(head[2])
		if err := h.checkSizes(); err != nil {
			return err
		}
		b, err := h.read(addr+4, 4*h.offsz)
		if err != nil {
			return err
		}
		h.base = h.off(b, 0)
		superx = h.off(b, h.offsz)
		h.eof = h.off(b, 2*h.offsz)
		h.rootAddr = h.off(b, 3*h.offsz)

	default:
		return fmt.Errorf("%w: unknown superblock version %d", ErrCorrupt, vers)
	}

	if h.base == undef || h.base == 0 {
		h.base = sigAddr
	}
	h.sharetab = undef
	debug.Log("superblock", "version %d at %#x, offsets %d, lengths %d, root %#x",
		vers, sigAddr, h.offsz, h.lensz, h.rootAddr)

	if superx > 0 {
		msgs, err := h.oheader(superx, false)
		if err != nil {
			return err
		}
		for _, m := range msgs {
			switch m.mtype {
			case 19: // B-tree K values
				if len(m.body) >= 7 {
					h.kintis = int(le(m.body[1:3]))
					h.kint = int(le(m.body[3:5]))
					h.kleaf = int(le(m.body[5:7]))
				}
			case 15: // shared message table
				if len(m.body) >= 1+h.offsz+1 {
					h.sharetab = h.off(m.body, 1)
					h.shareind = int(m.body[1+h.offsz])
				}
			}
		}
	}
	return nil
}

func (h *reader) checkSizes() error {
	if (h.offsz != 4 && h.offsz != 8) || (h.lensz != 4 && h.lensz != 8) {
		return fmt.Errorf("%w: unsupported offset/length sizes %d/%d",
			ErrCorrupt, h.offsz, h.lensz)
	}
	return nil
}
