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

package hdf5_test

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"buf.build/go/dudley/internal/arena"
	"buf.build/go/dudley/internal/hdf5"
	"buf.build/go/dudley/internal/prim"
)

// fw builds synthetic HDF5 bytes with 8-byte offsets and lengths.
type fw struct {
	b []byte
}

func (w *fw) u8(p int, v byte)     { w.b[p] = v }
func (w *fw) u16(p int, v uint16)  { binary.LittleEndian.PutUint16(w.b[p:], v) }
func (w *fw) u32(p int, v uint32)  { binary.LittleEndian.PutUint32(w.b[p:], v) }
func (w *fw) u64(p int, v uint64)  { binary.LittleEndian.PutUint64(w.b[p:], v) }
func (w *fw) i64(p int, v int64)   { w.u64(p, uint64(v)) }
func (w *fw) sig(p int, s string)  { copy(w.b[p:], s) }
func (w *fw) str(p int, s string)  { copy(w.b[p:], s) }

// v1Prefix writes a legacy object header prefix with a generous size.
func (w *fw) v1Prefix(p, nmsgs int) {
	w.u8(p, 1)
	w.u16(p+2, uint16(nmsgs))
	w.u32(p+4, 1)       // reference count
	w.u64(p+8, 0x1000)  // header size, loose upper bound
}

// v1Msg writes a legacy message header; returns the body position.
func (w *fw) v1Msg(p, mtype, msize int) int {
	w.u16(p, uint16(mtype))
	w.u16(p+2, uint16(msize))
	return p + 8
}

// dtInt writes a little-endian signed fixed-point datatype body.
func (w *fw) dtInt(p int, size int) {
	w.u8(p, 0x10)             // version 1, class 0
	w.u8(p+1, 0x08)           // signed
	w.u32(p+4, uint32(size))
	w.u16(p+8, 0)             // bit offset
	w.u16(p+10, uint16(8*size))
}

// dtFloat writes a little-endian IEEE float datatype body.
func (w *fw) dtFloat(p int, size int) {
	w.u8(p, 0x11) // version 1, class 1
	w.u32(p+4, uint32(size))
	// The walker skips the twelve property bytes.
}

const (
	rootOhdr = 96
	btree    = 136
	snod     = 184
	heapHdr  = 312
	heapData = 344
	xOhdr    = 352
	yOhdr    = 456
	cOhdr    = 544
	chunkBT  = 640
	dataX    = 752
	dataY    = 776
	chunk1   = 784
	chunk2   = 792
	fileEnd  = 800
)

// buildV0 builds a version-0 superblock file with a v1 root group holding
// a 2x3 <i4 dataset x, a scalar <f8 dataset y, and a chunked <i4 [4]
// dataset c split into two [2] chunks.
func buildV0() []byte {
	w := &fw{b: make([]byte, fileEnd)}

	// Superblock, version 0.
	w.sig(0, hdf5.Signature)
	w.u8(12, 0)        // shared header message version (offsets 9..11 all zero)
	w.u8(13, 8)        // size of offsets
	w.u8(14, 8)        // size of lengths
	w.u16(16, 4)       // group leaf K
	w.u16(18, 16)      // group internal K
	w.u64(24, 0)       // base address
	w.i64(32, -1)      // free space address
	w.i64(40, fileEnd) // end of file
	w.i64(48, -1)      // driver info
	w.u64(56, 0)       // root link name offset
	w.u64(64, rootOhdr)

	// Root group object header: one symbol table message.
	w.v1Prefix(rootOhdr, 1)
	p := w.v1Msg(rootOhdr+16, 17, 16)
	w.u64(p, btree)
	w.u64(p+8, heapHdr)

	// Group B-tree: a single level-zero node with one SNOD child.
	w.sig(btree, "TREE")
	w.u8(btree+4, 0) // node type: group
	w.u8(btree+5, 0) // level
	w.u16(btree+6, 1)
	w.i64(btree+8, -1)  // left sibling
	w.i64(btree+16, -1) // right sibling
	w.u64(btree+24, 0)  // key 0
	w.u64(btree+32, snod)

	// Symbol table node with three entries.
	w.sig(snod, "SNOD")
	w.u8(snod+4, 1)
	w.u16(snod+6, 3)
	for i, ent := range []struct {
		nameOff, ohdr int
	}{{0, xOhdr}, {2, yOhdr}, {4, cOhdr}} {
		p := snod + 8 + 40*i
		w.u64(p, uint64(ent.nameOff))
		w.u64(p+8, uint64(ent.ohdr))
	}

	// Local heap and its data segment.
	w.sig(heapHdr, "HEAP")
	w.u64(heapHdr+8, 8)   // data segment size
	w.u64(heapHdr+16, 8)  // free list head
	w.u64(heapHdr+24, heapData)
	w.str(heapData, "x\x00y\x00c\x00")

	// Dataset x: 2x3 <i4, contiguous.
	w.v1Prefix(xOhdr, 3)
	p = w.v1Msg(xOhdr+16, 1, 24) // dataspace
	w.u8(p, 1)
	w.u8(p+1, 2)
	w.u64(p+8, 2)
	w.u64(p+16, 3)
	p = w.v1Msg(xOhdr+48, 3, 16) // datatype
	w.dtInt(p, 4)
	p = w.v1Msg(xOhdr+72, 8, 24) // layout: v1 contiguous
	w.u8(p, 1)
	w.u8(p+1, 2)
	w.u8(p+2, 1)
	w.u64(p+8, dataX)
	w.u32(p+16, 2)
	w.u32(p+20, 3)

	// Dataset y: scalar <f8, contiguous.
	w.v1Prefix(yOhdr, 3)
	p = w.v1Msg(yOhdr+16, 1, 8) // dataspace, rank 0
	w.u8(p, 1)
	p = w.v1Msg(yOhdr+32, 3, 24) // datatype
	w.dtFloat(p, 8)
	p = w.v1Msg(yOhdr+64, 8, 16) // layout
	w.u8(p, 1)
	w.u8(p+2, 1)
	w.u64(p+8, dataY)

	// Dataset c: <i4 [4], chunked by 2.
	w.v1Prefix(cOhdr, 3)
	p = w.v1Msg(cOhdr+16, 1, 16) // dataspace
	w.u8(p, 1)
	w.u8(p+1, 1)
	w.u64(p+8, 4)
	p = w.v1Msg(cOhdr+40, 3, 16) // datatype
	w.dtInt(p, 4)
	p = w.v1Msg(cOhdr+64, 8, 24) // layout: v1 chunked
	w.u8(p, 1)
	w.u8(p+1, 2) // rank+1
	w.u8(p+2, 2) // chunked
	w.u64(p+8, chunkBT)
	w.u32(p+16, 2) // chunk dim
	w.u32(p+20, 4) // element size

	// Chunk B-tree: level zero, two chunks, three keys.
	w.sig(chunkBT, "TREE")
	w.u8(chunkBT+4, 1)
	w.u8(chunkBT+5, 0)
	w.u16(chunkBT+6, 2)
	w.i64(chunkBT+8, -1)
	w.i64(chunkBT+16, -1)
	key := func(p int, size uint32, off int64) {
		w.u32(p, size)
		w.u32(p+4, 0) // filter mask
		w.i64(p+8, off)
		w.i64(p+16, 0) // element-size dimension
	}
	p = chunkBT + 24
	key(p, 8, 0)
	w.u64(p+24, chunk1)
	key(p+32, 8, 2)
	w.u64(p+56, chunk2)
	key(p+64, 8, 4)

	return w.b
}

func mustPrimID(t *testing.T, name string) int {
	t.Helper()
	id, ok := prim.ByName(name)
	require.True(t, ok)
	return -id
}

func TestReadV0(t *testing.T) {
	t.Parallel()

	buf := buildV0()
	a, err := hdf5.Read(bytes.NewReader(buf), int64(len(buf)), hdf5.Options{})
	require.NoError(t, err)

	root := a.Root()
	assert.Equal(t, []string{"x", "y", "c"}, root.Items.Keys())

	xid, _ := root.Items.Get("x")
	x := a.At(arena.ID(xid)).(*arena.Datum)
	assert.Equal(t, mustPrimID(t, "<i4"), x.TypeID)
	require.Len(t, x.Shape, 2)
	n0, _, _ := x.Shape[0].Decode()
	n1, _, _ := x.Shape[1].Decode()
	assert.Equal(t, int64(2), n0)
	assert.Equal(t, int64(3), n1)
	off, ok := x.Addr.Offset()
	require.True(t, ok)
	assert.Equal(t, int64(dataX), off)
	sz, ok := a.DatumSize(arena.ID(xid))
	require.True(t, ok)
	assert.Equal(t, int64(24), sz)

	yid, _ := root.Items.Get("y")
	y := a.At(arena.ID(yid)).(*arena.Datum)
	assert.Equal(t, mustPrimID(t, "<f8"), y.TypeID)
	assert.Empty(t, y.Shape)
	off, ok = y.Addr.Offset()
	require.True(t, ok)
	assert.Equal(t, int64(dataY), off)

	cid, _ := root.Items.Get("c")
	c := a.At(arena.ID(cid)).(*arena.List)
	require.Len(t, c.Elems, 2)
	wantAddrs := []int64{chunk1, chunk2}
	wantOffs := []int64{0, 2}
	for i, e := range c.Elems {
		d := a.At(e).(*arena.Datum)
		assert.Equal(t, mustPrimID(t, "<i4"), d.TypeID)
		require.Len(t, d.Shape, 1)
		n, _, _ := d.Shape[0].Decode()
		assert.Equal(t, int64(2), n)
		off, ok := d.Addr.Offset()
		require.True(t, ok)
		assert.Equal(t, wantAddrs[i], off)
		attrs := a.Attrs(e)
		require.NotNil(t, attrs)
		assert.Equal(t, []int64{wantOffs[i]}, attrs["chunk_offset"].Ints)
	}
}

func TestReadDeterminism(t *testing.T) {
	t.Parallel()

	buf := buildV0()
	a1, err := hdf5.Read(bytes.NewReader(buf), int64(len(buf)), hdf5.Options{})
	require.NoError(t, err)
	a2, err := hdf5.Read(bytes.NewReader(buf), int64(len(buf)), hdf5.Options{})
	require.NoError(t, err)
	assert.Equal(t, a1, a2)
}

func TestAddressOrder(t *testing.T) {
	t.Parallel()

	buf := buildV0()
	a, err := hdf5.Read(bytes.NewReader(buf), int64(len(buf)),
		hdf5.Options{AddressOrder: true})
	require.NoError(t, err)

	// x @752, y @776, c chunks from @784: already address order here.
	assert.Equal(t, []string{"x", "y", "c"}, a.Root().Items.Keys())
}

// buildV2 builds a version-2 superblock file whose root group stores one
// compact link message leading to a legacy dataset header.
func buildV2() []byte {
	const (
		root2 = 48
		zOhdr = 88
		dataZ = 176
		end   = 184
	)
	w := &fw{b: make([]byte, end)}

	w.sig(0, hdf5.Signature)
	w.u8(8, 2)  // superblock version
	w.u8(9, 8)  // size of offsets
	w.u8(10, 8) // size of lengths
	w.u64(12, 0)
	w.i64(20, -1) // no superblock extension
	w.i64(28, end)
	w.u64(36, root2)

	// Root group: OHDR with a compact link and a group info message.
	w.sig(root2, "OHDR")
	w.u8(root2+4, 2)
	w.u8(root2+5, 0)  // flags: 1-byte chunk size, untracked
	w.u8(root2+6, 26) // size of chunk 0
	p := root2 + 7
	w.u8(p, 6) // link message
	w.u16(p+1, 12)
	w.u8(p+4, 1) // link version
	w.u8(p+5, 0) // flags: 1-byte name length, hard link
	w.u8(p+6, 1)
	w.str(p+7, "z")
	w.u64(p+8, zOhdr)
	p += 16
	w.u8(p, 10) // group info
	w.u16(p+1, 2)

	// Dataset z: scalar <f8 at a fixed address, legacy header.
	w.v1Prefix(zOhdr, 3)
	p = w.v1Msg(zOhdr+16, 1, 8)
	w.u8(p, 1)
	p = w.v1Msg(zOhdr+32, 3, 24)
	w.dtFloat(p, 8)
	p = w.v1Msg(zOhdr+64, 8, 16)
	w.u8(p, 1)
	w.u8(p+2, 1)
	w.u64(p+8, dataZ)

	return w.b
}

func TestReadV2Compact(t *testing.T) {
	t.Parallel()

	buf := buildV2()
	a, err := hdf5.Read(bytes.NewReader(buf), int64(len(buf)), hdf5.Options{})
	require.NoError(t, err)

	root := a.Root()
	assert.Equal(t, []string{"z"}, root.Items.Keys())
	zid, _ := root.Items.Get("z")
	z := a.At(arena.ID(zid)).(*arena.Datum)
	off, ok := z.Addr.Offset()
	require.True(t, ok)
	assert.Equal(t, int64(176), off)
}

func TestNoSignature(t *testing.T) {
	t.Parallel()

	buf := make([]byte, 4096)
	_, err := hdf5.Read(bytes.NewReader(buf), int64(len(buf)), hdf5.Options{})
	require.ErrorIs(t, err, hdf5.ErrCorrupt)
}

func TestTruncated(t *testing.T) {
	t.Parallel()

	buf := buildV0()[:200]
	_, err := hdf5.Read(bytes.NewReader(buf), int64(len(buf)), hdf5.Options{})
	require.Error(t, err)
}
