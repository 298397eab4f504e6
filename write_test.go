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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"buf.build/go/dudley"
)

// TestRoundtrip checks parser idempotence: rendering a parsed layout and
// parsing it again reaches a fixed point after one round.
func TestRoundtrip(t *testing.T) {
	t.Parallel()

	sources := []string{
		"x = <i4\n",
		"<\nx = i4\ny = f8 [3, 4] @32\n",
		"n : <i4 @0\nv = <f8 [n] @4\n",
		"n : 5\nv = <f8 [n-, n++]\n",
		"pt == { x = <f8, y = <f8 }\np = pt [3]\n",
		"vec == <f8 [3]\nv = vec\n",
		"g/\nx = <i4\nh/\ny = <f8\n..\n..\nz = |u1\n",
		"pts [ <f8 [3] @0, <f8 [3] @24 ]\n",
		"recs [ /\na = <i4\nb = <f8\n/, <i4 [2] ]\n",
		"t = <f8 [-1, 4]\n",
		"z = <f4 [100] -> gzip(9) @0\n",
		"## documented\n#: units='cm', dims=[2, 3]\nx = <i4\n",
		"'odd name' = <i4 %8\n",
		"& <i4 [10] @100\n",
		"s { x = |i1, y = <f8 }\nq = s\n",
	}

	for _, src := range sources {
		src := src
		name, _, _ := strings.Cut(src, "\n")
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			l1, errs := dudley.Parse(src)
			require.Empty(t, errs, "source: %q", src)
			s1 := l1.String()

			l2, errs := dudley.Parse(s1)
			require.Empty(t, errs, "rendered: %q", s1)
			s2 := l2.String()

			assert.Equal(t, s1, s2, "source: %q", src)
		})
	}
}

func TestWriteShape(t *testing.T) {
	t.Parallel()

	l, errs := dudley.Parse("n : 5\nv = <f8 [-1, n, n++, n-, 0]\n")
	require.Empty(t, errs)

	out := l.String()
	assert.Contains(t, out, "n : 5")
	assert.Contains(t, out, "v = <f8 [-1, n, n++, n-, 0]")
}

func TestWriteFilterAndAddress(t *testing.T) {
	t.Parallel()

	l, errs := dudley.Parse("z = <f4 [10] <- shuffle @64\n")
	require.Empty(t, errs)
	assert.Contains(t, l.String(), "z = <f4 [10] <- shuffle @64")
}
