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

	"buf.build/go/dudley/internal/arena"
	"buf.build/go/dudley/internal/dim"
)

// Param is an integer used as an array dimension: fixed (a literal) or
// dynamic (an integer in the data stream at a given address).
type Param struct {
	handle
}

// Kind implements [Item].
func (Param) Kind() Kind { return KindParam }

func (p Param) raw() *arena.Param { return p.l.a.At(p.id).(*arena.Param) }

// Fixed reports whether the parameter carries a literal value.
func (p Param) Fixed() bool { return p.raw().Fixed() }

// Type returns the dynamic parameter's datatype; false for a fixed one.
func (p Param) Type() (DataType, bool) {
	r := p.raw()
	if r.Fixed() {
		return nil, false
	}
	return dataTypeFor(p.l, r.TypeID), true
}

// Value returns the fixed literal, or the bound stream value of a dynamic
// parameter; false for an unbound dynamic parameter.
func (p Param) Value() (int64, bool) { return p.l.a.ParamValue(p.id) }

// Address returns the dynamic parameter's placement; the zero Address for
// a fixed one.
func (p Param) Address() Address { return p.raw().Addr }

// Alignment returns the effective alignment of the stream integer, 0 for
// a fixed parameter.
func (p Param) Alignment() int64 {
	r := p.raw()
	if r.Fixed() {
		return 0
	}
	if al, ok := r.Addr.Alignment(); ok {
		return al
	}
	return p.l.a.TypeAlign(r.TypeID)
}

// Size returns the byte size of the stream integer, 0 for a fixed
// parameter.
func (p Param) Size() int64 {
	r := p.raw()
	if r.Fixed() {
		return 0
	}
	sz, _ := p.l.a.TypeSize(r.TypeID)
	return sz
}

// Bind records the current stream value of a dynamic parameter.
func (p Param) Bind(v int64) error { return p.l.a.BindParam(p.id, v) }

// Dim returns the dimension referencing this parameter with offset 0.
func (p Param) Dim() Dim { return Dim{Ref: &ParamRef{Param: p}} }

// WithOffset returns a reference to this parameter plus a constant offset,
// which must lie in [-31, 31].
func (p Param) WithOffset(k int) (ParamRef, error) {
	if k < -dim.MaxOffset || k > dim.MaxOffset {
		return ParamRef{}, fmt.Errorf("%w: parameter reference offset %d too large", ErrTypeMismatch, k)
	}
	return ParamRef{Param: p, Offset: k}, nil
}

// ParamRef is a (parameter, offset) pair appearing in a shape.
type ParamRef struct {
	Param  Param
	Offset int
}

// Dim returns the dimension slot for this reference.
func (r ParamRef) Dim() Dim { return Dim{Ref: &r} }

// Value resolves the reference: the parameter's current value plus the
// offset, clamped at zero. A current value of 0 or less is returned as is,
// without the offset. False while the parameter is unbound.
func (r ParamRef) Value() (int64, bool) {
	v, ok := r.Param.Value()
	if !ok {
		return 0, false
	}
	if v <= 0 {
		return v, true
	}
	if v += int64(r.Offset); v < 0 {
		v = 0
	}
	return v, true
}
