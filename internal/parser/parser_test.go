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

package parser_test

import (
	_ "embed"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"buf.build/go/dudley/internal/arena"
	"buf.build/go/dudley/internal/dim"
	"buf.build/go/dudley/internal/parser"
	"buf.build/go/dudley/internal/prim"
)

//go:embed testdata/layouts.yaml
var layoutsYAML []byte

type corpusCase struct {
	Name   string            `yaml:"name"`
	Source string            `yaml:"source"`
	Errors int               `yaml:"errors"`
	Items  map[string]string `yaml:"items"`
}

// resolve walks a corpus path: dict names separated by /, with the final
// segment optionally prefixed by : (parameter) or ~ (type).
func resolve(t *testing.T, a *arena.Arena, path string) (arena.Item, bool) {
	t.Helper()
	segs := strings.Split(path, "/")
	cur := arena.ID(0)
	for i, seg := range segs {
		d, ok := a.At(cur).(*arena.Dict)
		require.True(t, ok, "path %s crosses a non-dict", path)
		last := i == len(segs)-1
		if last && strings.HasPrefix(seg, ":") {
			id, ok := d.Params.Get(seg[1:])
			if !ok {
				return nil, false
			}
			return a.At(arena.ID(id)), true
		}
		if last && strings.HasPrefix(seg, "~") {
			id, ok := d.Types.Get(seg[1:])
			if !ok || id < 0 {
				return nil, false
			}
			return a.At(arena.ID(id)), true
		}
		id, ok := d.Items.Get(seg)
		if !ok {
			return nil, false
		}
		if last {
			return a.At(arena.ID(id)), true
		}
		cur = arena.ID(id)
	}
	return nil, false
}

func TestCorpus(t *testing.T) {
	t.Parallel()

	var cases []corpusCase
	require.NoError(t, yaml.Unmarshal(layoutsYAML, &cases))
	require.NotEmpty(t, cases)

	for _, tc := range cases {
		tc := tc
		t.Run(tc.Name, func(t *testing.T) {
			t.Parallel()

			a, errs := parser.Parse(tc.Source)
			assert.Len(t, errs, tc.Errors, "errors: %v", errs)

			for path, want := range tc.Items {
				it, ok := resolve(t, a, path)
				require.True(t, ok, "missing item %s", path)
				fields := strings.Fields(want)
				switch fields[0] {
				case "dict":
					assert.Equal(t, arena.KindDict, it.Kind(), path)
				case "list":
					assert.Equal(t, arena.KindList, it.Kind(), path)
				case "param":
					assert.Equal(t, arena.KindParam, it.Kind(), path)
				case "type":
					assert.Equal(t, arena.KindType, it.Kind(), path)
				case "datum":
					require.Equal(t, arena.KindDatum, it.Kind(), path)
					if len(fields) > 1 {
						id, ok := prim.ByName(fields[1])
						require.True(t, ok, fields[1])
						assert.Equal(t, -id, it.(*arena.Datum).TypeID, path)
					}
				default:
					t.Fatalf("bad corpus expectation %q", want)
				}
			}
		})
	}
}

func TestMinimalPrimitive(t *testing.T) {
	t.Parallel()

	a, errs := parser.Parse("x = <i4\n")
	require.Empty(t, errs)

	it, ok := resolve(t, a, "x")
	require.True(t, ok)
	d := it.(*arena.Datum)
	assert.Empty(t, d.Shape)
	assert.True(t, d.Addr.IsUnspecified())
	assert.Equal(t, int64(4), a.DatumAlign(arena.ID(1)))

	sz, ok := a.DatumSize(arena.ID(1))
	require.True(t, ok)
	assert.Equal(t, int64(4), sz)
}

func TestParametricShape(t *testing.T) {
	t.Parallel()

	a, errs := parser.Parse("n : <i4 @0\nv = <f8 [n] @4\n")
	require.Empty(t, errs)

	pit, ok := resolve(t, a, ":n")
	require.True(t, ok)
	pm := pit.(*arena.Param)
	assert.False(t, pm.Fixed())
	off, ok := pm.Addr.Offset()
	require.True(t, ok)
	assert.Equal(t, int64(0), off)

	vit, ok := resolve(t, a, "v")
	require.True(t, ok)
	v := vit.(*arena.Datum)
	off, ok = v.Addr.Offset()
	require.True(t, ok)
	assert.Equal(t, int64(4), off)

	require.Len(t, v.Shape, 1)
	_, pid, offset := v.Shape[0].Decode()
	assert.Equal(t, pit, a.At(arena.ID(pid)))
	assert.Equal(t, 0, offset)
}

func TestTypedefCompound(t *testing.T) {
	t.Parallel()

	a, errs := parser.Parse("pt == { x = <f8, y = <f8 }\np = pt [3]\n")
	require.Empty(t, errs)

	tit, ok := resolve(t, a, "~pt")
	require.True(t, ok)
	typ := tit.(*arena.Type)
	require.False(t, typ.Typedef())
	require.False(t, typ.Open())
	assert.Equal(t, int64(16), typ.Size)
	assert.Equal(t, int64(8), typ.Align)
	assert.Equal(t, []string{"x", "y"}, typ.Members.Keys())

	pitem, ok := resolve(t, a, "p")
	require.True(t, ok)
	p := pitem.(*arena.Datum)
	require.Len(t, p.Shape, 1)
	n, pid, _ := p.Shape[0].Decode()
	assert.Equal(t, int64(3), n)
	assert.Equal(t, 0, pid)

	var pID arena.ID
	for i := arena.ID(0); i < arena.ID(a.Len()); i++ {
		if a.At(i) == pitem {
			pID = i
		}
	}
	assert.Equal(t, int64(8), a.DatumAlign(pID))
	sz, ok := a.DatumSize(pID)
	require.True(t, ok)
	assert.Equal(t, int64(48), sz)
}

func TestRaggedExtension(t *testing.T) {
	t.Parallel()

	a, errs := parser.Parse("w = <i4 [2] @16\nw @32 @48\n")
	require.Empty(t, errs)

	it, ok := resolve(t, a, "w")
	require.True(t, ok)
	list := it.(*arena.List)
	require.Len(t, list.Elems, 3)

	var offs []int64
	for _, e := range list.Elems {
		d := a.At(e).(*arena.Datum)
		off, ok := d.Addr.Offset()
		require.True(t, ok)
		offs = append(offs, off)
		n, _, _ := d.Shape[0].Decode()
		assert.Equal(t, int64(2), n)
	}
	assert.Equal(t, []int64{16, 32, 48}, offs)
}

func TestUnlimitedDimension(t *testing.T) {
	t.Parallel()

	a, errs := parser.Parse("t = <f8 [-1, 4]\n")
	require.Empty(t, errs)

	it, ok := resolve(t, a, "t")
	require.True(t, ok)
	d := it.(*arena.Datum)
	require.Len(t, d.Shape, 2)
	assert.Equal(t, dim.Unlimited, d.Shape[0])

	id := arena.ID(1)
	require.Equal(t, it, a.At(id))
	_, sized := a.DatumSize(id)
	assert.False(t, sized)

	a.BindUnlimited(id, 7)
	sz, sized := a.DatumSize(id)
	require.True(t, sized)
	assert.Equal(t, int64(224), sz)
}

func TestParseRecovery(t *testing.T) {
	t.Parallel()

	a, errs := parser.Parse("a = <i4 x @ = <i4")
	require.Len(t, errs, 1)
	assert.NotZero(t, errs[0].Line)

	_, ok := resolve(t, a, "a")
	assert.True(t, ok, "items before the error survive")
}

func TestDocsAndAttrsAttach(t *testing.T) {
	t.Parallel()

	// Comments lead the item they document, Go-doc style: everything
	// accumulated before a declaration attaches to it.
	a, errs := parser.Parse("## the x array\n#: units='cm'\nx = <i4\ny = <f8\n")
	require.Empty(t, errs)

	assert.Equal(t, []string{" the x array"}, a.Docs(arena.ID(1)))
	attrs := a.Attrs(arena.ID(1))
	require.NotNil(t, attrs)
	assert.Equal(t, "cm", attrs["units"].Str)
	assert.Nil(t, a.Attrs(arena.ID(2)))
	assert.Nil(t, a.Docs(arena.ID(2)))
}

func TestOffsetShapes(t *testing.T) {
	t.Parallel()

	a, errs := parser.Parse("n : 5\nv = <f8 [n-, m]\nw = <f8 [n++]\n")
	require.Len(t, errs, 1, "m is undefined")

	it, ok := resolve(t, a, "v")
	require.True(t, ok)
	v := it.(*arena.Datum)
	require.Len(t, v.Shape, 1)
	_, pid, off := v.Shape[0].Decode()
	require.NotZero(t, pid)
	assert.Equal(t, -1, off)

	it, ok = resolve(t, a, "w")
	require.True(t, ok)
	w := it.(*arena.Datum)
	_, _, off = w.Shape[0].Decode()
	assert.Equal(t, 2, off)

	wid := arena.ID(0)
	for i := arena.ID(0); i < arena.ID(a.Len()); i++ {
		if a.At(i) == it {
			wid = i
		}
	}
	sz, sized := a.DatumSize(wid)
	require.True(t, sized)
	assert.Equal(t, int64(56), sz)
}
