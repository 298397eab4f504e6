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

package prim_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"buf.build/go/dudley/internal/prim"
)

func TestCatalog(t *testing.T) {
	t.Parallel()

	var n int
	for id := 1; id <= prim.MaxID; id++ {
		p, ok := prim.ByID(id)
		if id == 20 || id == 35 || id == 50 {
			assert.False(t, ok, "id %d is reserved for f16", id)
			continue
		}
		require.True(t, ok, "id %d", id)
		n++

		back, ok := prim.ByName(p.Name)
		require.True(t, ok, p.Name)
		assert.Equal(t, id, back)

		if p.Kind == 'c' {
			assert.Equal(t, p.Size/2, p.Align, p.Name)
		} else {
			assert.Equal(t, p.Size, p.Align, p.Name)
		}
	}
	assert.Equal(t, 47, n)
}

func TestNumbering(t *testing.T) {
	t.Parallel()

	// An indeterminate multibyte id resolves little-endian by adding 15
	// and big-endian by adding 30.
	for id := 6; id <= 19; id++ {
		p, ok := prim.ByID(id)
		if !ok {
			continue
		}
		le, ok := prim.ByID(prim.Resolve(id, prim.LittleEndian))
		require.True(t, ok)
		assert.Equal(t, "<"+p.Name[1:], le.Name)
		be, ok := prim.ByID(prim.Resolve(id, prim.BigEndian))
		require.True(t, ok)
		assert.Equal(t, ">"+p.Name[1:], be.Name)
	}

	// One-byte kinds have a single order.
	assert.Equal(t, 3, prim.Resolve(3, prim.LittleEndian))
}

func TestCanonical(t *testing.T) {
	t.Parallel()

	id, ok := prim.Canonical("i4", prim.LittleEndian)
	require.True(t, ok)
	p, _ := prim.ByID(id)
	assert.Equal(t, "<i4", p.Name)

	id, ok = prim.Canonical("i4", prim.Indeterminate)
	require.True(t, ok)
	p, _ = prim.ByID(id)
	assert.Equal(t, "|i4", p.Name)

	id, ok = prim.Canonical(">u8", prim.LittleEndian)
	require.True(t, ok)
	p, _ = prim.ByID(id)
	assert.Equal(t, ">u8", p.Name)

	_, ok = prim.Canonical("f16", prim.LittleEndian)
	assert.False(t, ok, "f16 is reserved")

	_, ok = prim.Canonical("x3", prim.LittleEndian)
	assert.False(t, ok)
}

func TestIsInteger(t *testing.T) {
	t.Parallel()

	for name, want := range map[string]bool{
		"|u1": true, "|i1": true, "<i4": true, ">u8": true,
		"|b1": false, "|S1": false, "<f8": false, "<c16": false, "|U2": false,
	} {
		id, ok := prim.ByName(name)
		require.True(t, ok, name)
		assert.Equal(t, want, prim.IsInteger(id), name)
	}
	assert.False(t, prim.IsInteger(0))
	assert.False(t, prim.IsInteger(20))
}
