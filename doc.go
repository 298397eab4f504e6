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

// Package dudley implements the Dudley self-describing binary layout
// language: a declarative schema mapping byte ranges of a binary stream to
// a tree of named n-dimensional arrays of primitive or compound values,
// parameterized by symbolic array dimensions.
//
// A layout is held in a flat append-only arena of items addressed by
// stable integer ids; the [Dict], [List], [Datum], [Param], and [Type]
// handles are lightweight (layout, id) pairs over it. Layouts come from
// two producers:
//
//   - [Parse] reads Dudley layout text, recovering from syntax errors the
//     way a yacc parser does and reporting them alongside the result.
//   - [ReadHDF5] walks an HDF5 file's metadata (superblock, object
//     headers, B-trees, local and fractal heaps) and produces the
//     equivalent layout without the HDF5 library.
//
// Neither producer reads array payloads: a layout only describes where
// data lies. Once built, a layout is read-only and may be shared across
// goroutines without synchronization.
package dudley
