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
	"buf.build/go/dudley/internal/arena"
)

// Aliases for the value types shared with the arena, so handles and specs
// speak one vocabulary.
type (
	// Address locates an item in the data stream: an alignment, an
	// absolute byte address, the not-allocated sentinel, or unspecified
	// (the zero value).
	Address = arena.Address

	// AttrValue is one attribute comment value.
	AttrValue = arena.AttrValue

	// Filter names a transformation (compression, checksum) attached to a
	// datum; the layout records it but never applies it.
	Filter = arena.Filter

	// Kind discriminates the five item variants.
	Kind = arena.Kind
)

// The item kinds.
const (
	KindDict  = arena.KindDict
	KindList  = arena.KindList
	KindDatum = arena.KindDatum
	KindParam = arena.KindParam
	KindType  = arena.KindType
)

// At returns the Address of an absolute byte offset.
func At(offset int64) (Address, error) { return arena.At(offset) }

// AlignTo returns the Address requesting a power-of-two alignment.
func AlignTo(n int64) (Address, error) { return arena.AlignTo(n) }

// NotAllocated returns the sentinel address of data with no storage.
func NotAllocated() Address { return arena.NotAllocated() }

// Layout is a complete description of how a binary stream decomposes into
// named arrays. It owns the item arena; handles borrow from it.
//
// A Layout under construction belongs to a single producer. Once built it
// is read-only and safe to share between goroutines.
type Layout struct {
	a *arena.Arena
}

// New returns an empty layout holding only the root dict.
func New() *Layout { return &Layout{a: arena.New()} }

// Root returns the root dict, the item with id 0.
func (l *Layout) Root() Dict { return Dict{handle{l: l}} }

// Len returns the number of items in the layout.
func (l *Layout) Len() int { return l.a.Len() }

// Item returns the item with the given arena id.
func (l *Layout) Item(id int) (Item, bool) {
	if id < 0 || id >= l.a.Len() {
		return nil, false
	}
	return l.wrap(arena.ID(id)), true
}

// Clone returns a deep copy sharing nothing with the receiver, so one
// snapshot can stay pristine while another binds stream values.
func (l *Layout) Clone() *Layout { return &Layout{a: l.a.Clone()} }

func (l *Layout) wrap(id arena.ID) Item {
	h := handle{l: l, id: id}
	switch l.a.At(id).Kind() {
	case arena.KindDict:
		return Dict{h}
	case arena.KindList:
		return List{h}
	case arena.KindDatum:
		return Datum{h}
	case arena.KindParam:
		return Param{h}
	default:
		return Type{h}
	}
}

// Item is any layout item handle: a [Dict], [List], [Datum], [Param], or
// [Type].
type Item interface {
	// Kind reports which of the five variants this is.
	Kind() Kind
	// ID is the item's stable arena id.
	ID() int
	// Name is the item's name, empty if anonymous.
	Name() string
	// Parent is the enclosing container, absent only for the root dict.
	Parent() (Item, bool)
	// Docs returns the item's documentation lines.
	Docs() []string
	// Attrs returns the item's attributes, nil if it has none.
	Attrs() map[string]AttrValue

	handleOf() handle
}

// handle is a lightweight tagged reference into a layout's arena; every
// item handle embeds one.
type handle struct {
	l  *Layout
	id arena.ID
}

func (h handle) handleOf() handle { return h }

// ID returns the item's stable arena id.
func (h handle) ID() int { return int(h.id) }

// Name returns the item's name, empty if anonymous.
func (h handle) Name() string { return arena.Name(h.l.a.At(h.id)) }

// Parent returns the enclosing container, absent only for the root dict.
func (h handle) Parent() (Item, bool) {
	p := arena.Parent(h.l.a.At(h.id))
	if p == arena.None {
		return nil, false
	}
	return h.l.wrap(p), true
}

// Root returns the layout's root dict.
func (h handle) Root() Dict { return h.l.Root() }

// Docs returns the item's documentation lines.
func (h handle) Docs() []string { return h.l.a.Docs(h.id) }

// AddDoc appends one documentation line to the item.
func (h handle) AddDoc(line string) { h.l.a.AddDoc(h.id, line) }

// Attrs returns the item's attributes, nil if it has none.
func (h handle) Attrs() map[string]AttrValue {
	return map[string]AttrValue(h.l.a.Attrs(h.id))
}

// SetAttr sets one attribute on the item.
func (h handle) SetAttr(name string, v AttrValue) { h.l.a.SetAttr(h.id, name, v) }
