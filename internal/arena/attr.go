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

package arena

// AttrKind discriminates the payload of an [AttrValue].
type AttrKind uint8

const (
	AttrBool AttrKind = iota // a bare attribute name, always true
	AttrInt
	AttrFloat
	AttrString
	AttrInts
	AttrFloats
	AttrStrings
)

// AttrValue is one attribute comment value. Exactly the field selected by
// Kind is meaningful; arrays are homogeneous by construction.
type AttrValue struct {
	Kind    AttrKind
	Int     int64
	Float   float64
	Str     string
	Ints    []int64
	Floats  []float64
	Strings []string
}

// BoolAttr, IntAttr, FloatAttr, StringAttr, and friends construct AttrValues.

func BoolAttr() AttrValue             { return AttrValue{Kind: AttrBool} }
func IntAttr(v int64) AttrValue       { return AttrValue{Kind: AttrInt, Int: v} }
func FloatAttr(v float64) AttrValue   { return AttrValue{Kind: AttrFloat, Float: v} }
func StringAttr(v string) AttrValue   { return AttrValue{Kind: AttrString, Str: v} }
func IntsAttr(v []int64) AttrValue    { return AttrValue{Kind: AttrInts, Ints: v} }
func FloatsAttr(v []float64) AttrValue {
	return AttrValue{Kind: AttrFloats, Floats: v}
}
func StringsAttr(v []string) AttrValue {
	return AttrValue{Kind: AttrStrings, Strings: v}
}

// AttrMap holds the attributes of one arena item.
type AttrMap map[string]AttrValue
