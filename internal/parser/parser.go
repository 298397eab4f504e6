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

// Package parser builds a layout arena from Dudley source text.
//
// The parser is recursive descent with one token of lookahead, and recovers
// from syntax errors the way a yacc parser with error productions does: the
// error is logged, tokens are skipped to the nearest synchronizing token of
// the enclosing production, and further reports are suppressed until three
// tokens have been consumed successfully. Semantic errors raised by arena
// mutation inside a parse rule are logged and recovered the same way; the
// parse itself never fails.
package parser

import (
	"fmt"
	"slices"

	"buf.build/go/dudley/internal/arena"
	"buf.build/go/dudley/internal/debug"
	"buf.build/go/dudley/internal/dim"
	"buf.build/go/dudley/internal/lexer"
	"buf.build/go/dudley/internal/prim"
)

// Error is one syntax or tokenizer error, with its 1-based source position.
type Error struct {
	Line, Col int
	Msg       string
	Lex       bool // reported by the tokenizer rather than the parser
}

// Error implements [error].
func (e Error) Error() string {
	return fmt.Sprintf("dudley: %d:%d: %s", e.Line, e.Col, e.Msg)
}

// Parse builds an arena from src. Syntax and tokenizer errors are returned
// alongside the arena, which holds every well-formed item; callers decide
// whether a nonzero error count rejects the layout.
func Parse(src string) (*arena.Arena, []Error) {
	p := &parser{
		lx: lexer.New(src),
		a:  arena.New(),
		ok: 3,
	}
	p.layout()
	errs := p.errs
	for _, e := range p.lx.Errors() {
		errs = append(errs, Error{Line: e.Line, Col: e.Col, Msg: e.Msg, Lex: true})
	}
	return p.a, errs
}

type parser struct {
	lx  *lexer.Lexer
	a   *arena.Arena
	cur arena.ID // current dict

	errs []Error
	ok   int // tokens consumed since the last reported error

	// Comments captured at the start of the current production; they
	// attach to the item it declares, Go-doc style.
	pendDocs  []string
	pendAttrs arena.AttrMap
}

func (p *parser) next() lexer.Token {
	t := p.lx.Next()
	if t.Kind != lexer.EOF {
		p.ok++
	}
	return t
}

func (p *parser) peek() lexer.Token { return p.lx.Peek() }

// errorAt logs a syntax error unless still inside the suppression window.
func (p *parser) errorAt(t lexer.Token, msg string) {
	debug.Log("syntax error", "%d:%d: %s (suppress=%v)", t.Line, t.Col, msg, p.ok < 3)
	if p.ok >= 3 {
		p.errs = append(p.errs, Error{Line: t.Line, Col: t.Col, Msg: msg})
	}
	p.ok = 0
}

// recover skips input until one of the synchronizing kinds or end of file.
// A synchronizing token is never consumed: every caller's production loop
// makes progress on it.
func (p *parser) recover(sync ...lexer.Kind) {
	for {
		k := p.peek().Kind
		if k == lexer.EOF || slices.Contains(sync, k) {
			debug.Log("resync", "resuming at %v", k)
			return
		}
		p.next()
	}
}

// capture moves comments accumulated by the lexer into the pending set,
// to be attached to the item the next production declares.
func (p *parser) capture() {
	p.pendDocs = append(p.pendDocs, p.lx.TakeDocs()...)
	for name, v := range p.lx.TakeAttrs() {
		if p.pendAttrs == nil {
			p.pendAttrs = make(arena.AttrMap)
		}
		p.pendAttrs[name] = v
	}
}

// attach hands the pending comments to an item.
func (p *parser) attach(id arena.ID) {
	for _, d := range p.pendDocs {
		p.a.AddDoc(id, d)
	}
	for name, v := range p.pendAttrs {
		p.a.SetAttr(id, name, v)
	}
	p.pendDocs, p.pendAttrs = nil, nil
}

// layout ::= [preamble] {dict_item}*
func (p *parser) layout() {
	p.preamble()
	p.dictItems(0, false)
	p.capture()
	p.attach(0)
}

// preamble ::= ['<' | '>' | '|'] ['{' template_params '}']
func (p *parser) preamble() {
	switch p.peek().Kind {
	case lexer.Less:
		p.next()
		p.a.DefaultOrder = prim.LittleEndian
	case lexer.Greater:
		p.next()
		p.a.DefaultOrder = prim.BigEndian
	case lexer.Pipe:
		p.next()
		p.a.DefaultOrder = prim.Indeterminate
	}
	if p.peek().Kind != lexer.LCurly {
		return
	}
	p.next()
	for {
		t := p.peek()
		p.capture()
		switch t.Kind {
		case lexer.RCurly:
			p.next()
			return
		case lexer.EOF:
			p.errorAt(t, "file ends inside template parameters")
			return
		case lexer.Symbol, lexer.Quoted:
			p.next()
			if c := p.peek(); c.Kind != lexer.Colon {
				p.errorAt(c, "expecting : after template parameter name")
				p.recover(lexer.Symbol, lexer.RCurly)
				continue
			}
			p.next()
			p.param(t)
		default:
			p.errorAt(t, "expecting template parameter name")
			p.recover(lexer.Symbol, lexer.RCurly)
		}
	}
}

var dictSync = []lexer.Kind{
	lexer.Symbol, lexer.Quoted, lexer.Slash, lexer.DotDot, lexer.Amp,
}

// dictItems parses dict items with localRoot as the '/' target. For the
// anonymous '/ ... /' groups inside lists, a '/' at the local root closes
// the group instead.
func (p *parser) dictItems(localRoot arena.ID, inList bool) {
	for {
		t := p.peek()
		p.capture()
		switch t.Kind {
		case lexer.EOF:
			if inList {
				p.errorAt(t, "file ends inside a list group")
			}
			return

		case lexer.RSquare:
			if inList {
				// Let the list production report the missing close.
				return
			}
			p.errorAt(t, "unexpected ]")
			p.recover(dictSync...)

		case lexer.Slash:
			p.next()
			if inList && p.cur == localRoot {
				return
			}
			p.cur = localRoot

		case lexer.DotDot:
			p.next()
			parent := arena.Parent(p.a.At(p.cur))
			switch {
			case parent == arena.None:
				// No-op at the root dict.
			case p.a.At(parent).Kind() == arena.KindDict:
				p.cur = parent
			default:
				p.errorAt(t, ".. here has no parent dict")
			}

		case lexer.Amp:
			p.next()
			typeID, shape, addr, filt, ok := p.dataItem(dictSync)
			if !ok {
				continue
			}
			id, err := p.a.NewDatum(0, "", typeID, shape, addr, filt)
			if err != nil {
				p.errorAt(t, err.Error())
				continue
			}
			p.attach(id)

		case lexer.Symbol, lexer.Quoted:
			p.next()
			p.dictItem(t)

		default:
			p.errorAt(t, fmt.Sprintf("unexpected %v", t.Kind))
			p.recover(dictSync...)
		}
	}
}

// dictItem parses the productions beginning with a name.
func (p *parser) dictItem(name lexer.Token) {
	t := p.peek()
	switch t.Kind {
	case lexer.Colon:
		p.next()
		p.param(name)

	case lexer.Equals:
		p.next()
		if p.peek().Kind == lexer.Equals {
			p.next()
			p.typedef(name)
			return
		}
		typeID, shape, addr, filt, ok := p.dataItem(dictSync)
		if !ok {
			return
		}
		id, err := p.a.NewDatum(p.cur, name.Text, typeID, shape, addr, filt)
		if err != nil {
			p.errorAt(name, err.Error())
			return
		}
		p.attach(id)

	case lexer.Slash:
		p.next()
		d := p.a.At(p.cur).(*arena.Dict)
		if id, ok := d.Items.Get(name.Text); ok {
			if _, ok := p.a.At(arena.ID(id)).(*arena.Dict); ok {
				p.cur = arena.ID(id)
				return
			}
			p.errorAt(name, fmt.Sprintf("item exists but is not a dict: %s", name.Text))
			return
		}
		id, err := p.a.NewDict(p.cur, name.Text)
		if err != nil {
			p.errorAt(name, err.Error())
			return
		}
		p.attach(id)
		p.cur = id

	case lexer.LSquare:
		p.next()
		d := p.a.At(p.cur).(*arena.Dict)
		var listID arena.ID
		if id, ok := d.Items.Get(name.Text); ok {
			if _, ok := p.a.At(arena.ID(id)).(*arena.List); !ok {
				p.errorAt(name, fmt.Sprintf("item exists but is not a list: %s", name.Text))
				p.recover(dictSync...)
				return
			}
			listID = arena.ID(id)
		} else {
			var err error
			listID, err = p.a.NewList(p.cur, name.Text)
			if err != nil {
				p.errorAt(name, err.Error())
				p.recover(dictSync...)
				return
			}
		}
		p.attach(listID)
		p.listItems(listID)

	case lexer.LCurly:
		p.next()
		p.compound(name.Text, name)

	case lexer.At, lexer.Percent:
		// Extra addresses for an existing array or list.
		var addrs []arena.Address
		for {
			k := p.peek().Kind
			if k != lexer.At && k != lexer.Percent {
				break
			}
			addr, ok := p.placementOne(dictSync)
			if !ok {
				return
			}
			addrs = append(addrs, addr)
		}
		if err := p.a.ExtendList(p.cur, name.Text, addrs); err != nil {
			p.errorAt(name, err.Error())
		}

	default:
		p.errorAt(t, fmt.Sprintf("expecting :, =, /, [, {, @, or %% after %s", name.Text))
		p.recover(dictSync...)
	}
}

// param ::= SYMBOL ':' INTEGER | SYMBOL ':' (PRIMTYPE | SYMBOL) [placement]
func (p *parser) param(name lexer.Token) {
	t := p.peek()
	switch t.Kind {
	case lexer.Integer:
		p.next()
		id, err := p.a.NewFixedParam(p.cur, name.Text, t.Int)
		if err != nil {
			p.errorAt(name, err.Error())
			return
		}
		p.attach(id)

	case lexer.PrimType, lexer.Symbol, lexer.Quoted:
		p.next()
		typeID, ok := p.typeFor(t)
		if !ok {
			p.recover(dictSync...)
			return
		}
		addr, ok := p.placement(dictSync)
		if !ok {
			return
		}
		id, err := p.a.NewDynParam(p.cur, name.Text, typeID, addr)
		if err != nil {
			p.errorAt(name, err.Error())
			return
		}
		p.attach(id)

	default:
		p.errorAt(t, "expecting parameter value or datatype after :")
		p.recover(dictSync...)
	}
}

// typedef handles `name == data_item`. A compound body declares a named
// compound directly rather than a typedef wrapping an anonymous one.
func (p *parser) typedef(name lexer.Token) {
	t := p.peek()
	if t.Kind == lexer.LCurly {
		p.next()
		p.compound(name.Text, name)
		return
	}

	typeID, ok := p.typeStart(dictSync)
	if !ok {
		return
	}
	var shape []dim.Slot
	if p.peek().Kind == lexer.LSquare {
		shape = p.shape()
	}
	var align int64
	switch p.peek().Kind {
	case lexer.At:
		p.errorAt(p.peek(), "cannot specify @address in typedef")
		p.recover(dictSync...)
		return
	case lexer.Percent:
		p.next()
		v := p.peek()
		if v.Kind != lexer.Integer {
			p.errorAt(v, "expecting integer alignment after %")
			p.recover(dictSync...)
			return
		}
		p.next()
		if v.Int <= 0 {
			p.errorAt(v, "typedef alignment must be a positive power of two")
			return
		}
		align = v.Int
	}
	id, err := p.a.NewTypedef(p.cur, name.Text, typeID, shape, align)
	if err != nil {
		p.errorAt(name, err.Error())
		return
	}
	p.attach(id)
}

// typeFor resolves a type-position token to a type id.
func (p *parser) typeFor(t lexer.Token) (int, bool) {
	switch t.Kind {
	case lexer.PrimType:
		id, ok := prim.ByName(t.Text)
		if !ok {
			p.errorAt(t, fmt.Sprintf("unknown primitive type %s", t.Text))
			return 0, false
		}
		return -id, true
	case lexer.Symbol, lexer.Quoted:
		typeID, err := p.a.LookupType(p.cur, t.Text)
		if err != nil {
			p.errorAt(t, err.Error())
			return 0, false
		}
		return typeID, true
	}
	p.errorAt(t, fmt.Sprintf("expecting datatype, got %v", t.Kind))
	return 0, false
}

// typeStart consumes the type at the head of a data_item: a primitive, a
// type name, or an anonymous compound.
func (p *parser) typeStart(sync []lexer.Kind) (int, bool) {
	t := p.peek()
	if t.Kind == lexer.LCurly {
		p.next()
		return p.anonCompound(t)
	}
	if t.Kind != lexer.PrimType && t.Kind != lexer.Symbol && t.Kind != lexer.Quoted {
		p.errorAt(t, fmt.Sprintf("expecting datatype, got %v", t.Kind))
		p.recover(sync...)
		return 0, false
	}
	p.next()
	typeID, ok := p.typeFor(t)
	if !ok {
		p.recover(sync...)
		return 0, false
	}
	return typeID, true
}

// dataItem ::= (PRIMTYPE | SYMBOL | struct_def) [shape] [filter] [placement]
func (p *parser) dataItem(sync []lexer.Kind) (typeID int, shape []dim.Slot, addr arena.Address, filt *arena.Filter, ok bool) {
	typeID, ok = p.typeStart(sync)
	if !ok {
		return 0, nil, arena.Address{}, nil, false
	}
	if p.peek().Kind == lexer.LSquare {
		shape = p.shape()
	}
	if k := p.peek().Kind; k == lexer.RArrow || k == lexer.LArrow {
		filt = p.filter()
	}
	addr, ok = p.placement(sync)
	if !ok {
		return 0, nil, arena.Address{}, nil, false
	}
	return typeID, shape, addr, filt, true
}

// shape ::= '[' dimension {',' dimension}* ']'
//
// The opening bracket is still in the lookahead.
func (p *parser) shape() []dim.Slot {
	p.next() // [
	var slots []dim.Slot
	for {
		t := p.peek()
		switch t.Kind {
		case lexer.RSquare:
			p.next()
			return slots
		case lexer.EOF:
			p.errorAt(t, "file ends inside array shape")
			return slots
		case lexer.Comma:
			p.next()
		case lexer.Integer:
			p.next()
			s, err := dim.Lit(t.Int)
			if err != nil {
				p.errorAt(t, err.Error())
				p.recover(lexer.Comma, lexer.RSquare)
				continue
			}
			slots = append(slots, s)
		case lexer.Symbol, lexer.Quoted:
			p.next()
			pid, err := p.a.LookupParam(p.cur, t.Text)
			if err != nil {
				p.errorAt(t, err.Error())
				p.recover(lexer.Comma, lexer.RSquare)
				continue
			}
			var offset int64
			if s := p.peek(); s.Kind == lexer.ParamSfx {
				p.next()
				offset = s.Int
			}
			if p.peek().Kind == lexer.Question {
				// Only signals that the parameter's minimum value is 0.
				p.next()
			}
			s, err := dim.Ref(int(pid), int(offset))
			if err != nil {
				p.errorAt(t, err.Error())
				p.recover(lexer.Comma, lexer.RSquare)
				continue
			}
			slots = append(slots, s)
		default:
			p.errorAt(t, "expecting array dimension")
			p.recover(lexer.Comma, lexer.RSquare)
		}
	}
}

// filter ::= ('->' | '<-') SYMBOL ['(' arg {',' arg}* ')']
func (p *parser) filter() *arena.Filter {
	dir := p.next()
	f := &arena.Filter{Reverse: dir.Kind == lexer.LArrow}
	t := p.peek()
	if t.Kind != lexer.Symbol && t.Kind != lexer.Quoted {
		p.errorAt(t, "expecting filter name")
		return nil
	}
	p.next()
	f.Name = t.Text
	if p.peek().Kind != lexer.LParen {
		return f
	}
	p.next()
	for {
		t := p.peek()
		switch t.Kind {
		case lexer.RParen:
			p.next()
			return f
		case lexer.EOF:
			p.errorAt(t, "file ends inside filter arguments")
			return f
		case lexer.Comma:
			p.next()
		case lexer.Integer:
			p.next()
			f.Args = append(f.Args, float64(t.Int))
		case lexer.Float:
			p.next()
			f.Args = append(f.Args, t.Val)
		default:
			p.errorAt(t, "expecting numeric filter argument")
			p.recover(lexer.Comma, lexer.RParen)
		}
	}
}

// placement ::= '@' INTEGER | '%' INTEGER | <empty>
func (p *parser) placement(sync []lexer.Kind) (arena.Address, bool) {
	t := p.peek()
	if t.Kind != lexer.At && t.Kind != lexer.Percent {
		return arena.Address{}, true
	}
	return p.placementOne(sync)
}

// placementOne consumes one '@' or '%' placement from the lookahead.
func (p *parser) placementOne(sync []lexer.Kind) (arena.Address, bool) {
	t := p.next()
	v := p.peek()
	if v.Kind != lexer.Integer {
		p.errorAt(v, fmt.Sprintf("expecting integer after %v", t.Kind))
		p.recover(sync...)
		return arena.Address{}, false
	}
	p.next()
	if t.Kind == lexer.At {
		if v.Int == -1 {
			return arena.NotAllocated(), true
		}
		addr, err := arena.At(v.Int)
		if err != nil {
			p.errorAt(v, err.Error())
			return arena.Address{}, false
		}
		return addr, true
	}
	addr, err := arena.AlignTo(v.Int)
	if err != nil {
		p.errorAt(v, err.Error())
		return arena.Address{}, false
	}
	return addr, true
}

// compound parses a named '{' ... '}' compound body; the opening brace is
// already consumed. The name may be empty for an anonymous compound.
func (p *parser) compound(name string, at lexer.Token) {
	tid, err := p.a.NewType(p.cur, name)
	if err != nil {
		p.errorAt(at, err.Error())
		p.recover(dictSync...)
		return
	}
	p.attach(tid)
	p.compoundBody(tid)
}

// anonCompound parses '{' ... '}' in type position; the brace is consumed.
// An empty body is the empty compound, type id 0.
func (p *parser) anonCompound(at lexer.Token) (int, bool) {
	if p.peek().Kind == lexer.RCurly {
		p.next()
		return 0, true
	}
	tid, err := p.a.NewType(p.cur, "")
	if err != nil {
		p.errorAt(at, err.Error())
		return 0, false
	}
	p.compoundBody(tid)
	return int(tid), true
}

// compoundBody ::= ['%' INTEGER] struct_item* '}'
func (p *parser) compoundBody(tid arena.ID) {
	t := p.a.At(tid).(*arena.Type)
	var explicit int64
	if p.peek().Kind == lexer.Percent {
		p.next()
		v := p.peek()
		if v.Kind != lexer.Integer {
			p.errorAt(v, "expecting integer alignment after %")
		} else {
			p.next()
			if v.Int <= 0 || v.Int&(v.Int-1) != 0 {
				p.errorAt(v, fmt.Sprintf("illegal alignment %d, must be power of two", v.Int))
			} else {
				explicit = v.Int
			}
		}
	}
	for {
		tk := p.peek()
		p.capture()
		switch tk.Kind {
		case lexer.RCurly:
			p.next()
			if err := p.a.CloseType(tid); err != nil {
				p.errorAt(tk, err.Error())
			}
			if explicit != 0 {
				t.Align = explicit
			}
			return
		case lexer.EOF:
			p.errorAt(tk, "file ends inside compound datatype")
			_ = p.a.CloseType(tid)
			return
		case lexer.Comma:
			p.next()
		case lexer.Symbol, lexer.Quoted:
			p.next()
			eq := p.peek()
			switch eq.Kind {
			case lexer.Equals:
				p.next()
				typeID, shape, addr, filt, ok := p.dataItem(structSync)
				if !ok {
					continue
				}
				if _, hasAddr := addr.Offset(); hasAddr || addr.IsNotAllocated() {
					p.errorAt(eq, "cannot specify @address inside a datatype")
					continue
				}
				id, err := p.a.NewDatum(tid, tk.Text, typeID, shape, addr, filt)
				if err != nil {
					p.errorAt(tk, err.Error())
					continue
				}
				p.attach(id)
			case lexer.Colon:
				p.errorAt(eq, "parameters live only in dicts")
				p.recover(structSync...)
			default:
				p.errorAt(eq, fmt.Sprintf("expecting = after member %s", tk.Text))
				p.recover(structSync...)
			}
		default:
			p.errorAt(tk, "expecting compound member")
			p.recover(structSync...)
		}
	}
}

var structSync = []lexer.Kind{lexer.Comma, lexer.RCurly}

// listItems ::= '[' [list_item {',' list_item}*] ']'
//
// The opening bracket is already consumed.
func (p *parser) listItems(listID arena.ID) {
	for {
		t := p.peek()
		p.capture()
		switch t.Kind {
		case lexer.RSquare:
			p.next()
			return
		case lexer.EOF:
			p.errorAt(t, "file ends inside list")
			return
		case lexer.Comma:
			p.next()
		case lexer.LSquare:
			p.next()
			sub, err := p.a.NewList(listID, "")
			if err != nil {
				p.errorAt(t, err.Error())
				p.recover(lexer.Comma, lexer.RSquare)
				continue
			}
			p.listItems(sub)
		case lexer.Slash:
			p.next()
			sub, err := p.a.NewDict(listID, "")
			if err != nil {
				p.errorAt(t, err.Error())
				p.recover(lexer.Comma, lexer.RSquare)
				continue
			}
			saved := p.cur
			p.cur = sub
			p.dictItems(sub, true)
			p.cur = saved
		default:
			typeID, shape, addr, filt, ok := p.dataItem([]lexer.Kind{lexer.Comma, lexer.RSquare})
			if !ok {
				continue
			}
			id, err := p.a.NewDatum(listID, "", typeID, shape, addr, filt)
			if err != nil {
				p.errorAt(t, err.Error())
				continue
			}
			p.attach(id)
		}
	}
}
