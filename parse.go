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
	"os"

	"buf.build/go/dudley/internal/parser"
)

// Parse builds a layout from Dudley source text. The parser recovers from
// syntax errors and keeps going; every well-formed item lands in the
// layout, and the error list reports the rest. Callers decide whether a
// nonzero error count rejects the layout.
func Parse(src string) (*Layout, []ParseError) {
	a, perrs := parser.Parse(src)
	var errs []ParseError
	for _, e := range perrs {
		errs = append(errs, ParseError{Line: e.Line, Col: e.Col, Msg: e.Msg, Lex: e.Lex})
	}
	return &Layout{a: a}, errs
}

// ParseReader reads all of r and parses it. The reader's lifetime remains
// the caller's responsibility.
func ParseReader(r io.Reader) (*Layout, []ParseError, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("dudley: reading layout source: %w", err)
	}
	l, errs := Parse(string(src))
	return l, errs, nil
}

// ParseFile parses the UTF-8 layout file at path.
func ParseFile(path string) (*Layout, []ParseError, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("dudley: reading layout source: %w", err)
	}
	l, errs := Parse(string(src))
	return l, errs, nil
}
