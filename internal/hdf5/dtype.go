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

package hdf5

import (
	"fmt"
	"strings"
)

// dtype is one decoded datatype message. A scalar carries a Dudley-style
// name ("<i4", "S1", "refobj", "tag-o8"); a compound carries members; an
// array class carries dims to combine with the host shape.
type dtype struct {
	class   int
	name    string
	size    int64
	members []member
	dims    []int64  // array class only
	enum    []string // enumeration member names, base type in name
}

// member is one compound member: a name, byte offset, optional per-member
// shape, and element type.
type member struct {
	name string
	off  int64
	dims []int64
	typ  *dtype
}

func cstr(b []byte) string {
	if i := strings.IndexByte(string(b), 0); i >= 0 {
		return string(b[:i])
	}
	return string(b)
}

// decodeDtype decodes a datatype message recursively, returning the type
// and the unconsumed tail of the message.
func (h *reader) decodeDtype(msg []byte) (*dtype, []byte, error) {
	if len(msg) < 8 {
		return nil, nil, fmt.Errorf("%w: truncated datatype message", ErrCorrupt)
	}
	head := le(msg[:4])
	size := int64(le(msg[4:8]))
	msg = msg[8:]
	version := int((head >> 4) & 0xf)
	class := int(head & 0xf)
	bits := head >> 8

	dt := &dtype{class: class, size: size}
	order := "<"
	if bits&1 != 0 {
		order = ">"
	}

	switch class {
	case 0: // fixed-point
		kind := "u"
		if bits&8 != 0 {
			kind = "i"
		}
		dt.name = fmt.Sprintf("%s%s%d", order, kind, size)
		msg = skip(msg, 4) // bit offset, precision

	case 1: // floating-point
		dt.name = fmt.Sprintf("%sf%d", order, size)
		if bits&64 != 0 {
			dt.name = "vax-" + dt.name
		}
		msg = skip(msg, 12)

	case 2: // time
		dt.name = fmt.Sprintf("%su%d", order, size)
		msg = skip(msg, 2)

	case 3: // string
		if bits&0x10 != 0 {
			dt.name = "U1"
		} else {
			dt.name = "S1"
		}

	case 4: // bit field
		dt.name = fmt.Sprintf("%su%d", order, size)
		msg = skip(msg, 4)

	case 5: // opaque
		taglen := int(bits & 0xff)
		n := min((taglen+7)/8*8, len(msg))
		dt.name = fmt.Sprintf("%s-o%d", cstr(msg[:n]), size)
		msg = msg[n:]

	case 6: // compound
		nmemb := int(bits & 0xffff)
		for i := 0; i < nmemb; i++ {
			var m member
			name := cstr(msg)
			m.name = name
			if version < 3 {
				// Names pad to 8-byte boundaries before version 3.
				msg = skip(msg, (len(name)+8)/8*8)
				if len(msg) < 4 {
					return nil, nil, fmt.Errorf("%w: truncated compound member", ErrCorrupt)
				}
				m.off = int64(le(msg[:4]))
				msg = msg[4:]
			} else {
				msg = skip(msg, len(name)+1)
				offsz := minNbytes(uint64(size))
				if len(msg) < offsz {
					return nil, nil, fmt.Errorf("%w: truncated compound member", ErrCorrupt)
				}
				m.off = int64(le(msg[:offsz]))
				msg = msg[offsz:]
			}
			if version == 1 {
				if len(msg) < 12 {
					return nil, nil, fmt.Errorf("%w: truncated compound member", ErrCorrupt)
				}
				ndims := int(msg[0])
				msg = msg[12:] // dimensionality, permutation, reserved
				for i := 0; i < min(ndims, 4); i++ {
					m.dims = append(m.dims, int64(le(msg[4*i:4*i+4])))
				}
				msg = skip(msg, 16) // always four dimension slots
			}
			typ, rest, err := h.decodeDtype(msg)
			if err != nil {
				return nil, nil, err
			}
			msg = rest
			if typ.class == 10 {
				// Array-class member: fold its dims into the member shape.
				m.dims = append(m.dims, typ.dims...)
				typ = typ.members[0].typ
			}
			m.typ = typ
			dt.members = append(dt.members, m)
		}

	case 7: // reference
		if bits&1 != 0 {
			dt.name = "refreg"
		} else {
			dt.name = "refobj"
		}

	case 8: // enumerated
		base, rest, err := h.decodeDtype(msg)
		if err != nil {
			return nil, nil, err
		}
		msg = rest
		nmemb := int(bits & 0xffff)
		names := make([]string, 0, nmemb)
		for i := 0; i < nmemb; i++ {
			name := cstr(msg)
			names = append(names, name)
			if version < 3 {
				msg = skip(msg, (len(name)+8)/8*8)
			} else {
				msg = skip(msg, len(name)+1)
			}
		}
		msg = skip(msg, nmemb*int(base.size)) // the bit patterns
		dt.name = base.name
		dt.enum = names

	case 9: // variable-length
		base, rest, err := h.decodeDtype(msg)
		if err != nil {
			return nil, nil, err
		}
		msg = rest
		if bits&1 != 0 { // string
			if bits&0x10000 != 0 {
				dt.name = "varlen-U1"
			} else {
				dt.name = "varlen-S1"
			}
		} else {
			dt.name = "varlen-" + base.name
		}

	case 10: // array
		if len(msg) < 1 {
			return nil, nil, fmt.Errorf("%w: truncated array datatype", ErrCorrupt)
		}
		ndims := int(msg[0])
		if version < 3 {
			msg = skip(msg, 4)
		} else {
			msg = msg[1:]
		}
		if len(msg) < 4*ndims {
			return nil, nil, fmt.Errorf("%w: truncated array datatype", ErrCorrupt)
		}
		var prod int64 = 1
		for i := 0; i < ndims; i++ {
			d := int64(le(msg[4*i : 4*i+4]))
			dt.dims = append(dt.dims, d)
			prod *= d
		}
		if version < 3 {
			msg = skip(msg, 8*ndims) // dims plus permutation indices
		} else {
			msg = skip(msg, 4*ndims)
		}
		base, rest, err := h.decodeDtype(msg)
		if err != nil {
			return nil, nil, err
		}
		msg = rest
		if base.class == 10 {
			dt.dims = append(dt.dims, base.dims...)
			base = base.members[0].typ
		}
		// Park the element type as an anonymous member; size reverts to
		// the element size rather than the whole array.
		dt.members = []member{{typ: base}}
		if prod > 0 {
			dt.size = size / prod
		}

	default:
		return nil, nil, fmt.Errorf("%w: unknown datatype class %d", ErrCorrupt, class)
	}
	return dt, msg, nil
}

func skip(b []byte, n int) []byte {
	if n >= len(b) {
		return nil
	}
	return b[n:]
}
