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

	"buf.build/go/dudley/internal/debug"
)

// Object header message types the walker acts on. Everything else is
// ignorable noise for a pure-metadata read.
const (
	mtDataspace    = 1
	mtLinkInfo     = 2
	mtDatatype     = 3
	mtLink         = 6
	mtExternal     = 7
	mtLayout       = 8
	mtGroupInfo    = 10
	mtFilters      = 11
	mtContinuation = 16
	mtSymbolTable  = 17
	mtBtreeK       = 19
)

// message is one decoded object header message. addr is the absolute file
// address of the body, which the compact data layout points into.
type message struct {
	mtype int
	flags int
	order int
	body  []byte
	addr  int64
}

// oheader collects the messages of the object header at addr (relative to
// the base address), following continuation chunks. Both the legacy
// unsigned prefix and the v2 OHDR format are understood. With noShared set,
// shared messages are left unresolved to break resolution loops.
func (h *reader) oheader(addr int64, noShared bool) ([]message, error) {
	addr += h.base
	sig, err := h.read(addr, 4)
	if err != nil {
		return nil, err
	}
	if string(sig) == "OHDR" {
		debug.Log("oheader", "v2 header at %#x", addr)
		return h.oheader2(addr, noShared)
	}
	debug.Log("oheader", "legacy header at %#x, %d messages", addr, le(sig[2:4]))
	return h.oheader1(addr, sig, noShared)
}

// oheader1 walks a legacy object header; sig holds its first four bytes
// (version, reserved, message count).
func (h *reader) oheader1(addr int64, sig []byte, noShared bool) ([]message, error) {
	nmsgs := int(le(sig[2:4]))
	addr += 8 // signature bytes plus the object reference count
	b, err := h.read(addr, h.lensz)
	if err != nil {
		return nil, err
	}
	// The prefix length field is length-sized here; with 8-byte lengths it
	// swallows the documented 4-byte padding, which observed files bear out.
	maxaddr := addr + h.length(b, 0)
	addr += int64(h.lensz)

	var msgs []message
	cont, clen := undef, int64(-1)
	for nmsgs > 0 {
		if addr > maxaddr {
			if cont == undef {
				break
			}
			addr = cont + h.base
			maxaddr = addr + clen
			cont, clen = undef, -1
		}
		head, err := h.read(addr, 8)
		if err != nil {
			return nil, err
		}
		mtype := int(le(head[0:2]))
		msize := int(le(head[2:4]))
		mflags := int(head[4])
		addr += 8
		var body []byte
		if msize > 0 {
			if body, err = h.read(addr, msize); err != nil {
				return nil, err
			}
		}
		nmsgs--
		if mtype == mtContinuation {
			if len(body) < h.offsz+h.lensz {
				return nil, fmt.Errorf("%w: truncated continuation message", ErrCorrupt)
			}
			cont = h.off(body, 0)
			clen = h.length(body, h.offsz)
			addr += int64(msize)
			continue
		}
		if mflags&2 != 0 && !noShared {
			if body, err = h.shared(mtype, body); err != nil {
				return nil, err
			}
		}
		msgs = append(msgs, message{mtype: mtype, flags: mflags, order: -1, body: body, addr: addr})
		addr += int64(msize)
	}
	return msgs, nil
}

// oheader2 walks a v2 OHDR object header; addr is the absolute address of
// its signature.
func (h *reader) oheader2(addr int64, noShared bool) ([]message, error) {
	b, err := h.read(addr+4, 2)
	if err != nil {
		return nil, err
	}
	flags := int(b[1])
	addr += 6
	if flags&32 != 0 {
		addr += 16 // four timestamps
	}
	if flags&16 != 0 {
		addr += 4 // max compact / min dense attribute counts
	}
	tracked := flags&4 != 0
	n := 1 << (flags & 3)
	b, err = h.read(addr, n)
	if err != nil {
		return nil, err
	}
	chunk0 := int64(le(b))
	addr += int64(n)
	maxaddr := addr + chunk0

	ntrack := int64(4)
	if tracked {
		ntrack = 6
	}

	var msgs []message
	for {
		cont, clen := undef, int64(-1)
		maxaddr -= 4 // gap-or-checksum trailer
		for addr < maxaddr {
			head, err := h.read(addr, int(ntrack))
			if err != nil {
				return nil, err
			}
			mtype := int(head[0])
			msize := int(le(head[1:3]))
			mflags := int(head[3])
			order := -1
			if tracked {
				order = int(le(head[4:6]))
			}
			addr += ntrack
			var body []byte
			if msize > 0 {
				if body, err = h.read(addr, msize); err != nil {
					return nil, err
				}
			}
			if mtype == mtContinuation {
				if len(body) < h.offsz+h.lensz {
					return nil, fmt.Errorf("%w: truncated continuation message", ErrCorrupt)
				}
				cont = h.off(body, 0)
				clen = h.length(body, h.offsz)
			} else {
				if mflags&2 != 0 && !noShared {
					if body, err = h.shared(mtype, body); err != nil {
						return nil, err
					}
				}
				msgs = append(msgs, message{mtype: mtype, flags: mflags, order: order, body: body, addr: addr})
			}
			addr += int64(msize)
		}
		if cont == undef {
			return msgs, nil
		}
		addr = cont + h.base
		maxaddr = addr + clen
		sig, err := h.read(addr, 4)
		if err != nil {
			return nil, err
		}
		if string(sig) != "OCHK" {
			return nil, fmt.Errorf("%w: missing OCHK in header continuation", ErrCorrupt)
		}
		addr += 4
	}
}

// shared resolves a shared message by walking the object header it points
// at and extracting the equivalent message. The inner walk never resolves
// shared messages again, so loops terminate.
func (h *reader) shared(mtype int, body []byte) ([]byte, error) {
	if len(body) < 2 {
		return body, nil
	}
	vers, stype := body[0], body[1]
	addr := undef
	switch {
	case vers == 1 && len(body) >= 8+h.offsz:
		addr = h.off(body, 8)
	case vers == 2 && len(body) >= 2+h.offsz:
		addr = h.off(body, 2)
	case vers == 3 && stype == 2 && len(body) >= 2+h.offsz:
		addr = h.off(body, 2)
	default:
		// Shared-message-heap storage; leave the reference unresolved.
		return body, nil
	}
	if addr == undef {
		return body, nil
	}
	msgs, err := h.oheader(addr, true)
	if err != nil {
		return nil, err
	}
	for _, m := range msgs {
		if m.mtype == mtype && m.flags&2 == 0 {
			return m.body, nil
		}
	}
	return body, nil
}
