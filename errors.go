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
	"buf.build/go/dudley/internal/hdf5"
)

// The error kinds raised by layout mutation and the HDF5 walker. They are
// wrapped with context; match with [errors.Is].
var (
	// ErrRedeclaration reports an item, parameter, or type name already
	// present in the target scope.
	ErrRedeclaration = arena.ErrRedeclaration

	// ErrUndefinedName reports a type or parameter name not found after
	// recursing through enclosing dicts.
	ErrUndefinedName = arena.ErrUndefinedName

	// ErrTypeMismatch reports an ill-typed operation: a non-integer
	// parameter datatype, an alignment that is not a power of two, an
	// address inside a typedef, an unsupported shape value.
	ErrTypeMismatch = arena.ErrTypeMismatch

	// ErrState reports mutation of a closed type, closing a type that is
	// not open, or reading unfinished fields.
	ErrState = arena.ErrState

	// ErrCorrupt reports unrecoverable structural damage in an HDF5 file.
	ErrCorrupt = hdf5.ErrCorrupt
)

// ParseError is one tokenizer or syntax error from [Parse], with its
// 1-based source position. The parser records errors and continues; the
// caller decides whether a nonzero count rejects the layout.
type ParseError struct {
	Line, Col int
	Msg       string
	Lex       bool // reported by the tokenizer rather than the parser
}

// Error implements [error].
func (e ParseError) Error() string {
	return fmt.Sprintf("dudley: %d:%d: %s", e.Line, e.Col, e.Msg)
}
