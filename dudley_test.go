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

package dudley_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"buf.build/go/dudley"
)

func mustPrim(t *testing.T, name string) dudley.Primitive {
	t.Helper()
	p, ok := dudley.Prim(name)
	require.True(t, ok, name)
	return p
}

func TestBuildByHand(t *testing.T) {
	t.Parallel()

	l := dudley.New()
	root := l.Root()

	i4 := mustPrim(t, "<i4")
	f8 := mustPrim(t, "<f8")

	at0, err := dudley.At(0)
	require.NoError(t, err)
	n, err := root.Params().Dynamic("n", i4, at0)
	require.NoError(t, err)

	at4, err := dudley.At(4)
	require.NoError(t, err)
	v, err := root.Set("v", dudley.DatumSpec{
		Type:  f8,
		Shape: []dudley.Dim{n.Dim()},
		Addr:  at4,
	})
	require.NoError(t, err)

	_, ok := v.Size()
	assert.False(t, ok, "unbound dynamic parameter")
	require.NoError(t, n.Bind(5))
	sz, ok := v.Size()
	require.True(t, ok)
	assert.Equal(t, int64(40), sz)

	// Redeclaration fails; the original survives.
	_, err = root.Set("v", dudley.DatumSpec{Type: i4})
	require.ErrorIs(t, err, dudley.ErrRedeclaration)

	got, ok := root.Get("v")
	require.True(t, ok)
	assert.Equal(t, v.ID(), got.ID())
}

func TestTypeLifecycle(t *testing.T) {
	t.Parallel()

	l := dudley.New()
	root := l.Root()
	f8 := mustPrim(t, "<f8")

	pt, err := root.Types().Compound("pt")
	require.NoError(t, err)
	require.True(t, pt.IsOpen())

	_, sized := pt.Size()
	assert.False(t, sized, "open compound has no final size")

	_, err = pt.Set("x", dudley.DatumSpec{Type: f8})
	require.NoError(t, err)
	_, err = pt.Set("y", dudley.DatumSpec{Type: f8})
	require.NoError(t, err)
	require.NoError(t, pt.Close())

	sz, sized := pt.Size()
	require.True(t, sized)
	assert.Equal(t, int64(16), sz)
	assert.Equal(t, int64(8), pt.Alignment())

	_, err = pt.Set("z", dudley.DatumSpec{Type: f8})
	require.ErrorIs(t, err, dudley.ErrState)
	require.ErrorIs(t, pt.Close(), dudley.ErrState)

	p, err := root.Set("p", dudley.DatumSpec{
		Type:  pt,
		Shape: []dudley.Dim{dudley.Fixed(3)},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(8), p.Alignment())
	sz, _ = p.Size()
	assert.Equal(t, int64(48), sz)
}

func TestAlignmentInheritance(t *testing.T) {
	t.Parallel()

	l := dudley.New()
	root := l.Root()

	// Explicit alignment wins over the datatype's.
	al16, err := dudley.AlignTo(16)
	require.NoError(t, err)
	d, err := root.Set("a", dudley.DatumSpec{Type: mustPrim(t, "<i2"), Addr: al16})
	require.NoError(t, err)
	assert.Equal(t, int64(16), d.Alignment())

	// Complex aligns to half its size.
	c, err := root.Set("c", dudley.DatumSpec{Type: mustPrim(t, "<c16")})
	require.NoError(t, err)
	assert.Equal(t, int64(8), c.Alignment())

	// A typedef inherits its member's alignment.
	vec, err := root.Types().Typedef("vec", mustPrim(t, "<f8"),
		[]dudley.Dim{dudley.Fixed(3)}, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(8), vec.Alignment())
	m, ok := vec.Member()
	require.True(t, ok)
	assert.Equal(t, int64(8), m.Alignment())
}

func TestParamRef(t *testing.T) {
	t.Parallel()

	l := dudley.New()
	root := l.Root()

	n, err := root.Params().Fixed("n", 10)
	require.NoError(t, err)

	ref, err := n.WithOffset(-2)
	require.NoError(t, err)
	v, ok := ref.Value()
	require.True(t, ok)
	assert.Equal(t, int64(8), v)

	// Offsets clamp at zero, never negative.
	lo, err := n.WithOffset(-31)
	require.NoError(t, err)
	v, _ = lo.Value()
	assert.Equal(t, int64(0), v)

	_, err = n.WithOffset(32)
	require.ErrorIs(t, err, dudley.ErrTypeMismatch)
	_, err = n.WithOffset(-32)
	require.ErrorIs(t, err, dudley.ErrTypeMismatch)
}

func TestListAppendFrom(t *testing.T) {
	t.Parallel()

	l, errs := dudley.Parse("w = <i4 [2] @16\n")
	require.Empty(t, errs)
	root := l.Root()

	it, ok := root.Get("w")
	require.True(t, ok)
	tmpl := it.(dudley.Datum)

	blocks, err := root.List("blocks")
	require.NoError(t, err)
	at32, _ := dudley.At(32)
	d, err := blocks.AppendFrom(tmpl, at32)
	require.NoError(t, err)

	assert.Equal(t, tmpl.Type(), d.Type())
	assert.Equal(t, tmpl.Shape(), d.Shape())
	off, ok := d.Address().Offset()
	require.True(t, ok)
	assert.Equal(t, int64(32), off)
	assert.Equal(t, 1, blocks.Len())
}

func TestClone(t *testing.T) {
	t.Parallel()

	l, errs := dudley.Parse("n : <i4 @0\nv = <f8 [n] @4\n")
	require.Empty(t, errs)

	c := l.Clone()
	np, ok := c.Root().Params().Get("n")
	require.True(t, ok)
	require.NoError(t, np.Bind(3))

	cv, _ := c.Root().Get("v")
	sz, sized := cv.(dudley.Datum).Size()
	require.True(t, sized)
	assert.Equal(t, int64(24), sz)

	// The original stays unbound.
	ov, _ := l.Root().Get("v")
	_, sized = ov.(dudley.Datum).Size()
	assert.False(t, sized)
}

func TestNavigation(t *testing.T) {
	t.Parallel()

	l, errs := dudley.Parse("g/\nx = <i4\n..\n")
	require.Empty(t, errs)

	g, ok := l.Root().Get("g")
	require.True(t, ok)
	x, ok := g.(dudley.Dict).Get("x")
	require.True(t, ok)

	parent, ok := x.Parent()
	require.True(t, ok)
	assert.Equal(t, g.ID(), parent.ID())

	_, ok = l.Root().Parent()
	assert.False(t, ok)

	it, ok := l.Item(x.ID())
	require.True(t, ok)
	assert.Equal(t, x.ID(), it.ID())
	_, ok = l.Item(9999)
	assert.False(t, ok)
}
