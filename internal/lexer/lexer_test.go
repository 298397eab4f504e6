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

package lexer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"buf.build/go/dudley/internal/arena"
	"buf.build/go/dudley/internal/lexer"
)

func kinds(src string) []lexer.Kind {
	l := lexer.New(src)
	var ks []lexer.Kind
	for {
		t := l.Next()
		if t.Kind == lexer.EOF {
			return ks
		}
		ks = append(ks, t.Kind)
	}
}

func TestBasicTokens(t *testing.T) {
	t.Parallel()

	l := lexer.New("x = <i4 [n, 3] @0")
	want := []struct {
		kind lexer.Kind
		text string
		n    int64
	}{
		{lexer.Symbol, "x", 0},
		{lexer.Equals, "", 0},
		{lexer.PrimType, "<i4", 0},
		{lexer.LSquare, "", 0},
		{lexer.Symbol, "n", 0},
		{lexer.Comma, "", 0},
		{lexer.Integer, "", 3},
		{lexer.RSquare, "", 0},
		{lexer.At, "", 0},
		{lexer.Integer, "", 0},
		{lexer.EOF, "", 0},
	}
	for _, w := range want {
		tok := l.Next()
		assert.Equal(t, w.kind, tok.Kind)
		if w.text != "" {
			assert.Equal(t, w.text, tok.Text)
		}
		if w.kind == lexer.Integer {
			assert.Equal(t, w.n, tok.Int)
		}
	}
	assert.Empty(t, l.Errors())
}

func TestPeek(t *testing.T) {
	t.Parallel()

	l := lexer.New("a b")
	p := l.Peek()
	assert.Equal(t, "a", p.Text)
	assert.Equal(t, p, l.Peek())
	assert.Equal(t, p, l.Next())
	assert.Equal(t, "b", l.Next().Text)
	assert.Equal(t, lexer.EOF, l.Next().Kind)
	assert.Equal(t, lexer.EOF, l.Peek().Kind)
}

func TestIntegerBases(t *testing.T) {
	t.Parallel()

	l := lexer.New("10 -5 +7 0x1F 0o17 0b101 007")
	want := []int64{10, -5, 7, 31, 15, 5, 7}
	for _, w := range want {
		tok := l.Next()
		require.Equal(t, lexer.Integer, tok.Kind)
		assert.Equal(t, w, tok.Int)
	}
	assert.Empty(t, l.Errors())
}

func TestFloats(t *testing.T) {
	t.Parallel()

	l := lexer.New("1.5 -0.25 .5 2. 1.5e3 2.0E-2")
	want := []float64{1.5, -0.25, 0.5, 2, 1500, 0.02}
	for _, w := range want {
		tok := l.Next()
		require.Equal(t, lexer.Float, tok.Kind)
		assert.InDelta(t, w, tok.Val, 1e-12)
	}
}

func TestPrimTypes(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"|u1", "<i2", ">f8", "<c16", "|S1", ">U4", "|b1"} {
		l := lexer.New(name)
		tok := l.Next()
		require.Equal(t, lexer.PrimType, tok.Kind, name)
		assert.Equal(t, name, tok.Text)
	}

	// Bare order characters are punctuators, not primitive types.
	assert.Equal(t, []lexer.Kind{lexer.Less, lexer.Greater, lexer.Pipe},
		kinds("< > |"))
}

func TestArrowsAndSuffixes(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []lexer.Kind{lexer.Symbol, lexer.RArrow, lexer.Symbol},
		kinds("x -> gzip"))
	assert.Equal(t, []lexer.Kind{lexer.Symbol, lexer.LArrow, lexer.Symbol},
		kinds("x <- gzip"))
	assert.Equal(t, []lexer.Kind{lexer.DotDot}, kinds(".."))

	l := lexer.New("n+ m-- k+++")
	tok := l.Next()
	assert.Equal(t, "n", tok.Text)
	tok = l.Next()
	require.Equal(t, lexer.ParamSfx, tok.Kind)
	assert.Equal(t, int64(1), tok.Int)
	l.Next()
	tok = l.Next()
	require.Equal(t, lexer.ParamSfx, tok.Kind)
	assert.Equal(t, int64(-2), tok.Int)
	l.Next()
	tok = l.Next()
	require.Equal(t, lexer.ParamSfx, tok.Kind)
	assert.Equal(t, int64(3), tok.Int)
}

func TestQuoted(t *testing.T) {
	t.Parallel()

	l := lexer.New(`'simple' "with \"escape\"" 'a\\b'`)
	tok := l.Next()
	require.Equal(t, lexer.Quoted, tok.Kind)
	assert.Equal(t, "simple", tok.Text)
	tok = l.Next()
	assert.Equal(t, `with "escape"`, tok.Text)
	tok = l.Next()
	assert.Equal(t, `a\b`, tok.Text)

	l = lexer.New("'spans\nlines' x")
	tok = l.Next()
	assert.Equal(t, "spans\nlines", tok.Text)
	assert.Equal(t, "x", l.Next().Text)

	l = lexer.New("'unclosed")
	l.Next()
	assert.NotEmpty(t, l.Errors())
}

func TestComments(t *testing.T) {
	t.Parallel()

	l := lexer.New("x = <i4 # plain comment\n## doc line\ny = <f8\n")
	var texts []string
	for tok := l.Next(); tok.Kind != lexer.EOF; tok = l.Next() {
		if tok.Kind == lexer.Symbol {
			texts = append(texts, tok.Text)
		}
	}
	assert.Equal(t, []string{"x", "y"}, texts)
	assert.Equal(t, []string{" doc line"}, l.TakeDocs())
	assert.Nil(t, l.TakeDocs())
}

func TestAttrComments(t *testing.T) {
	t.Parallel()

	l := lexer.New("#: units='cm', scale=2.5, dims=[3, 4], flag\nx = <i4\n")
	for tok := l.Next(); tok.Kind != lexer.EOF; tok = l.Next() {
	}
	require.Empty(t, l.Errors())

	attrs := l.TakeAttrs()
	require.NotNil(t, attrs)
	assert.Equal(t, "cm", attrs["units"].Str)
	assert.Equal(t, 2.5, attrs["scale"].Float)
	assert.Equal(t, []int64{3, 4}, attrs["dims"].Ints)
	assert.Equal(t, arena.AttrBool, attrs["flag"].Kind)
	assert.Nil(t, l.TakeAttrs())
}

func TestAttrMixedArray(t *testing.T) {
	t.Parallel()

	l := lexer.New("#: bad=[1, 2.5]\n")
	for tok := l.Next(); tok.Kind != lexer.EOF; tok = l.Next() {
	}
	assert.NotEmpty(t, l.Errors())
}

func TestBadCharacter(t *testing.T) {
	t.Parallel()

	l := lexer.New("x ; y")
	assert.Equal(t, lexer.Symbol, l.Next().Kind)
	bad := l.Next()
	assert.Equal(t, lexer.Bad, bad.Kind)
	assert.Equal(t, ";", bad.Text)
	assert.Equal(t, lexer.Symbol, l.Next().Kind)
	assert.Equal(t, lexer.EOF, l.Next().Kind)

	require.Len(t, l.Errors(), 1)
	assert.Equal(t, 1, l.Errors()[0].Line)
	assert.Equal(t, 3, l.Errors()[0].Col)
}

func TestPositions(t *testing.T) {
	t.Parallel()

	l := lexer.New("a\n  bb\n")
	tok := l.Next()
	assert.Equal(t, 1, tok.Line)
	assert.Equal(t, 1, tok.Col)
	tok = l.Next()
	assert.Equal(t, 2, tok.Line)
	assert.Equal(t, 3, tok.Col)
}
