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

package dudley

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"buf.build/go/dudley/internal/arena"
	"buf.build/go/dudley/internal/dim"
	"buf.build/go/dudley/internal/prim"
)

// Write renders the layout as Dudley source text. Parsing the result
// yields a layout isomorphic to the receiver: the same tree of names,
// types, shapes, and placements, though item ids may differ because the
// writer groups each dict's parameters and types ahead of its items.
func (l *Layout) Write(w io.Writer) error {
	p := &printer{l: l, w: w}
	if l.a.DefaultOrder != prim.Indeterminate {
		p.linef("%c", l.a.DefaultOrder)
	}
	p.dictBody(0)
	for id := arena.ID(0); id < arena.ID(l.a.Len()); id++ {
		if d, ok := l.a.At(id).(*arena.Datum); ok &&
			arena.Parent(d) == 0 && d.Name == "" {
			p.comments(id)
			p.linef("& %s", p.dataItem(id))
		}
	}
	return p.err
}

// String implements [fmt.Stringer] as the full layout text.
func (l *Layout) String() string {
	var b strings.Builder
	_ = l.Write(&b)
	return b.String()
}

type printer struct {
	l   *Layout
	w   io.Writer
	err error
}

func (p *printer) linef(format string, args ...any) {
	if p.err == nil {
		_, p.err = fmt.Fprintf(p.w, format+"\n", args...)
	}
}

// comments writes the item's doc and attribute comment lines.
func (p *printer) comments(id arena.ID) {
	for _, d := range p.l.a.Docs(id) {
		p.linef("##%s", d)
	}
	attrs := p.l.a.Attrs(id)
	if len(attrs) == 0 {
		return
	}
	names := make([]string, 0, len(attrs))
	for name := range attrs {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, attrText(name, attrs[name]))
	}
	p.linef("#: %s", strings.Join(parts, ", "))
}

func attrText(name string, v arena.AttrValue) string {
	switch v.Kind {
	case arena.AttrBool:
		return name
	case arena.AttrInt:
		return fmt.Sprintf("%s=%d", name, v.Int)
	case arena.AttrFloat:
		return fmt.Sprintf("%s=%s", name, floatText(v.Float))
	case arena.AttrString:
		return fmt.Sprintf("%s=%s", name, quote(v.Str))
	case arena.AttrInts:
		parts := make([]string, len(v.Ints))
		for i, n := range v.Ints {
			parts[i] = strconv.FormatInt(n, 10)
		}
		return fmt.Sprintf("%s=[%s]", name, strings.Join(parts, ", "))
	case arena.AttrFloats:
		parts := make([]string, len(v.Floats))
		for i, f := range v.Floats {
			parts[i] = floatText(f)
		}
		return fmt.Sprintf("%s=[%s]", name, strings.Join(parts, ", "))
	default:
		parts := make([]string, len(v.Strings))
		for i, s := range v.Strings {
			parts[i] = quote(s)
		}
		return fmt.Sprintf("%s=[%s]", name, strings.Join(parts, ", "))
	}
}

// floatText always re-reads as a FLOAT token, never an INTEGER.
func floatText(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	} else if strings.ContainsAny(s, "eE") && !strings.Contains(s, ".") {
		s = strings.Replace(s, "e", ".0e", 1)
		s = strings.Replace(s, "E", ".0E", 1)
	}
	return s
}

func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `'`, `\'`)
	return "'" + s + "'"
}

// ident renders a name, quoting anything that is not a plain identifier.
func ident(name string) string {
	if name == "" {
		return "''"
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		ok := c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') ||
			(i > 0 && c >= '0' && c <= '9')
		if !ok {
			return quote(name)
		}
	}
	return name
}

// dictBody writes a dict's parameters, types, and items, in that order so
// every reference resolves on re-parse.
func (p *printer) dictBody(id arena.ID) {
	d := p.l.a.At(id).(*arena.Dict)
	for _, name := range d.Params.Keys() {
		pid, _ := d.Params.Get(name)
		p.param(name, arena.ID(pid))
	}
	for _, name := range d.Types.Keys() {
		tid, _ := d.Types.Get(name)
		if tid < 0 {
			continue // an interned unprefixed primitive, not a declaration
		}
		p.typeDecl(name, arena.ID(tid))
	}
	for _, name := range d.Items.Keys() {
		iid, _ := d.Items.Get(name)
		p.item(name, arena.ID(iid))
	}
}

func (p *printer) param(name string, id arena.ID) {
	p.comments(id)
	pm := p.l.a.At(id).(*arena.Param)
	if pm.Fixed() {
		p.linef("%s : %d", ident(name), pm.Value)
		return
	}
	p.linef("%s : %s%s", ident(name), p.typeRef(pm.TypeID), pm.Addr)
}

func (p *printer) typeDecl(name string, id arena.ID) {
	p.comments(id)
	t := p.l.a.At(id).(*arena.Type)
	if t.Typedef() {
		m := p.l.a.At(t.Member).(*arena.Datum)
		expr := p.typeRef(m.TypeID) + p.shape(m.Shape)
		if al := p.l.a.TypeAlign(m.TypeID); t.Align > 0 && t.Align != al {
			expr += fmt.Sprintf(" %%%d", t.Align)
		}
		p.linef("%s == %s", ident(name), expr)
		return
	}
	p.linef("%s %s", ident(name), p.compound(t))
}

// compound renders a '{...}' body, with an explicit alignment when it
// differs from the member-derived one.
func (p *printer) compound(t *arena.Type) string {
	var b strings.Builder
	b.WriteString("{ ")
	var derived int64 = 1
	parts := make([]string, 0, t.Members.Len())
	for _, name := range t.Members.Keys() {
		mid, _ := t.Members.Get(name)
		_ = p.l.a.At(arena.ID(mid)).(*arena.Datum)
		parts = append(parts, fmt.Sprintf("%s = %s", ident(name), p.dataItem(arena.ID(mid))))
		if al := p.l.a.DatumAlign(arena.ID(mid)); al > derived {
			derived = al
		}
	}
	if al := t.Align; al > 0 && al != derived {
		b.WriteString(fmt.Sprintf("%%%d ", al))
	}
	b.WriteString(strings.Join(parts, ", "))
	b.WriteString(" }")
	return b.String()
}

func (p *printer) item(name string, id arena.ID) {
	p.comments(id)
	switch it := p.l.a.At(id).(type) {
	case *arena.Dict:
		p.linef("%s/", ident(name))
		p.dictBody(id)
		p.linef("..")
	case *arena.List:
		p.linef("%s %s", ident(name), p.list(it))
	case *arena.Datum:
		p.linef("%s = %s", ident(name), p.dataItem(id))
	}
}

func (p *printer) list(li *arena.List) string {
	parts := make([]string, 0, len(li.Elems))
	for _, eid := range li.Elems {
		switch e := p.l.a.At(eid).(type) {
		case *arena.Datum:
			parts = append(parts, p.dataItem(eid))
		case *arena.List:
			parts = append(parts, p.list(e))
		case *arena.Dict:
			var b strings.Builder
			sub := &printer{l: p.l, w: &b}
			sub.dictBody(eid)
			parts = append(parts, "/\n"+b.String()+"/")
			if sub.err != nil && p.err == nil {
				p.err = sub.err
			}
		}
	}
	return "[ " + strings.Join(parts, ", ") + " ]"
}

// dataItem renders a datum's type, shape, filter, and placement.
func (p *printer) dataItem(id arena.ID) string {
	d := p.l.a.At(id).(*arena.Datum)
	var b strings.Builder
	b.WriteString(p.typeRef(d.TypeID))
	b.WriteString(p.shape(d.Shape))
	if f := d.Filter; f != nil {
		arrow := "->"
		if f.Reverse {
			arrow = "<-"
		}
		b.WriteString(" " + arrow + " " + ident(f.Name))
		if len(f.Args) > 0 {
			parts := make([]string, len(f.Args))
			for i, a := range f.Args {
				if a == float64(int64(a)) {
					parts[i] = strconv.FormatInt(int64(a), 10)
				} else {
					parts[i] = floatText(a)
				}
			}
			b.WriteString("(" + strings.Join(parts, ", ") + ")")
		}
	}
	if s := d.Addr.String(); s != "" {
		b.WriteString(" " + s)
	}
	return b.String()
}

// typeRef renders a datatype reference: a primitive name, a defined
// type's name, or an inline anonymous compound.
func (p *printer) typeRef(typeID int) string {
	if typeID == 0 {
		return "{}"
	}
	if typeID < 0 {
		pr, _ := prim.ByID(-typeID)
		return pr.Name
	}
	t := p.l.a.At(arena.ID(typeID)).(*arena.Type)
	if t.Name != "" {
		return ident(t.Name)
	}
	if t.Typedef() {
		m := p.l.a.At(t.Member).(*arena.Datum)
		return p.typeRef(m.TypeID) + p.shape(m.Shape)
	}
	return p.compound(t)
}

func (p *printer) shape(slots []dim.Slot) string {
	if len(slots) == 0 {
		return ""
	}
	parts := make([]string, 0, len(slots))
	for _, s := range slots {
		n, pid, off := s.Decode()
		if pid == 0 {
			parts = append(parts, strconv.FormatInt(n, 10))
			continue
		}
		name := ident(arena.Name(p.l.a.At(arena.ID(pid))))
		switch {
		case off > 0:
			name += strings.Repeat("+", off)
		case off < 0:
			name += strings.Repeat("-", -off)
		}
		parts = append(parts, name)
	}
	return " [" + strings.Join(parts, ", ") + "]"
}
