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

package dudley_test

import (
	"fmt"

	"buf.build/go/dudley"
)

// Parse a small layout and walk it through the handle API.
func Example() {
	layout, errs := dudley.Parse(`
n : <i4 @0
v = <f8 [n] @4
pt == { x = <f8, y = <f8 }
p = pt [3] @84
`)
	if len(errs) != 0 {
		panic(errs[0])
	}

	root := layout.Root()
	for _, name := range root.Names() {
		item, _ := root.Get(name)
		fmt.Printf("%s is a %v\n", name, item.Kind())
	}

	n, _ := root.Params().Get("n")
	if err := n.Bind(12); err != nil {
		panic(err)
	}
	v, _ := root.Get("v")
	size, _ := v.(dudley.Datum).Size()
	fmt.Printf("v occupies %d bytes\n", size)

	// Output:
	// v is a datum
	// p is a datum
	// v occupies 96 bytes
}
