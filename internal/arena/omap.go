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

// OMap is an insertion-ordered name-to-id map. Values may be arena ids or,
// in a dict's type map, negative primitive ids.
//
// A zero OMap is empty and ready to use.
type OMap struct {
	keys []string
	vals map[string]int
}

// Get looks up a name.
func (m *OMap) Get(name string) (int, bool) {
	v, ok := m.vals[name]
	return v, ok
}

// Has reports whether a name is present.
func (m *OMap) Has(name string) bool {
	_, ok := m.vals[name]
	return ok
}

// Set inserts or overwrites a name. Overwriting keeps the original position.
func (m *OMap) Set(name string, v int) {
	if m.vals == nil {
		m.vals = make(map[string]int)
	}
	if _, ok := m.vals[name]; !ok {
		m.keys = append(m.keys, name)
	}
	m.vals[name] = v
}

// Len returns the number of entries.
func (m *OMap) Len() int { return len(m.keys) }

// Keys returns the names in insertion order. The slice is shared with the
// map; callers must not modify it.
func (m *OMap) Keys() []string { return m.keys }
