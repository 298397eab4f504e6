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

import (
	"slices"

	"github.com/tiendc/go-deepcopy"
)

// Clone returns a deep copy of the arena sharing no mutable state with the
// receiver. Items are rebuilt by hand (their sum type defeats reflection);
// the sidecars deep-copy mechanically.
func (a *Arena) Clone() *Arena {
	b := &Arena{
		DefaultOrder: a.DefaultOrder,
		dyn:          slices.Clone(a.dyn),
		vals:         slices.Clone(a.vals),
		bound:        slices.Clone(a.bound),
		streamAddrs:  slices.Clone(a.streamAddrs),
		streamBound:  slices.Clone(a.streamBound),
	}
	if a.unlim != nil {
		b.unlim = make(map[ID]int64, len(a.unlim))
		for k, v := range a.unlim {
			b.unlim[k] = v
		}
	}
	_ = deepcopy.Copy(&b.docs, &a.docs)
	_ = deepcopy.Copy(&b.attrs, &a.attrs)

	b.items = make([]Item, len(a.items))
	for i, it := range a.items {
		switch v := it.(type) {
		case *Dict:
			c := *v
			c.Items = v.Items.clone()
			c.Params = v.Params.clone()
			c.Types = v.Types.clone()
			b.items[i] = &c
		case *List:
			c := *v
			c.Elems = slices.Clone(v.Elems)
			b.items[i] = &c
		case *Datum:
			c := *v
			c.Shape = slices.Clone(v.Shape)
			if v.Filter != nil {
				f := *v.Filter
				f.Args = slices.Clone(v.Filter.Args)
				c.Filter = &f
			}
			b.items[i] = &c
		case *Param:
			c := *v
			b.items[i] = &c
		case *Type:
			c := *v
			if v.Members != nil {
				m := v.Members.clone()
				c.Members = &m
			}
			b.items[i] = &c
		}
	}
	return b
}

func (m *OMap) clone() OMap {
	var c OMap
	c.keys = slices.Clone(m.keys)
	if m.vals != nil {
		c.vals = make(map[string]int, len(m.vals))
		for k, v := range m.vals {
			c.vals[k] = v
		}
	}
	return c
}
