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

// DataType is a datatype usable by a datum or parameter: a [Primitive] or
// a defined [Type]. A nil DataType is the empty compound, which has no
// value and no space.
type DataType interface {
	// Size is the byte size of one value; false if indeterminate.
	Size() (int64, bool)
	// Alignment is the datatype's alignment, 0 if it has none.
	Alignment() int64

	typeID(l *Layout) (int, error)
}

// Dim is one decoded dimension slot: a literal length when Ref is nil
// (-1 meaning unlimited), else a parameter reference.
type Dim struct {
	N   int64
	Ref *ParamRef
}

// Fixed returns a literal dimension.
func Fixed(n int64) Dim { return Dim{N: n} }

// Unlimited returns the unlimited dimension, permitted only first.
func Unlimited() Dim { return Dim{N: -1} }

// DatumSpec describes a datum to create: its datatype (nil for the empty
// compound), shape, placement, and filter.
type DatumSpec struct {
	Type   DataType
	Shape  []Dim
	Addr   Address
	Filter *Filter
}

func (s DatumSpec) resolve(l *Layout) (typeID int, slots []dim.Slot, err error) {
	if s.Type != nil {
		if typeID, err = s.Type.typeID(l); err != nil {
			return 0, nil, err
		}
	}
	slots, err = encodeShape(l, s.Shape)
	return typeID, slots, err
}

func encodeShape(l *Layout, shape []Dim) ([]dim.Slot, error) {
	if len(shape) == 0 {
		return nil, nil
	}
	slots := make([]dim.Slot, 0, len(shape))
	for _, d := range shape {
		if d.Ref == nil {
			s, err := dim.Lit(d.N)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrTypeMismatch, err)
			}
			slots = append(slots, s)
			continue
		}
		if d.Ref.Param.l != l {
			return nil, fmt.Errorf("%w: parameter not in same layout as shape", ErrTypeMismatch)
		}
		s, err := dim.Ref(int(d.Ref.Param.id), d.Ref.Offset)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrTypeMismatch, err)
		}
		slots = append(slots, s)
	}
	return slots, nil
}

func decodeShape(l *Layout, slots []dim.Slot) []Dim {
	if len(slots) == 0 {
		return nil
	}
	shape := make([]Dim, 0, len(slots))
	for _, s := range slots {
		n, pid, off := s.Decode()
		if pid == 0 {
			shape = append(shape, Dim{N: n})
			continue
		}
		shape = append(shape, Dim{Ref: &ParamRef{
			Param:  Param{handle{l: l, id: arena.ID(pid)}},
			Offset: off,
		}})
	}
	return shape
}

// Datum is an array leaf: a datatype and shape mapped onto a byte region.
type Datum struct {
	handle
}

// Kind implements [Item].
func (Datum) Kind() Kind { return KindDatum }

func (d Datum) raw() *arena.Datum { return d.l.a.At(d.id).(*arena.Datum) }

// Type returns the datum's datatype, nil for the empty compound.
func (d Datum) Type() DataType {
	return dataTypeFor(d.l, d.raw().TypeID)
}

func dataTypeFor(l *Layout, typeID int) DataType {
	switch {
	case typeID == 0:
		return nil
	case typeID < 0:
		return Primitive{id: -typeID}
	default:
		return Type{handle{l: l, id: arena.ID(typeID)}}
	}
}

// Shape returns the decoded shape; empty for a scalar.
func (d Datum) Shape() []Dim { return decodeShape(d.l, d.raw().Shape) }

// Address returns the datum's placement.
func (d Datum) Address() Address { return d.raw().Addr }

// Alignment returns the effective alignment: the datum's own if set, else
// its datatype's, else 0.
func (d Datum) Alignment() int64 { return d.l.a.DatumAlign(d.id) }

// Filter returns the attached filter descriptor, nil if none.
func (d Datum) Filter() *Filter { return d.raw().Filter }

// External reports data whose bytes live outside the stream.
func (d Datum) External() bool { return d.raw().External }

// Size returns the byte size of the whole array; false while any dimension
// references an unbound dynamic parameter or unbound unlimited dimension.
func (d Datum) Size() (int64, bool) { return d.l.a.DatumSize(d.id) }

// BindUnlimited records the concrete length of the leading unlimited
// dimension, making [Datum.Size] computable.
func (d Datum) BindUnlimited(n int64) { d.l.a.BindUnlimited(d.id, n) }
