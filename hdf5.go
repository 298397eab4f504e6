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

	"buf.build/go/dudley/internal/hdf5"
)

// HDF5Option adjusts the HDF5 metadata walk.
type HDF5Option func(*hdf5.Options)

// WithAddressOrder orders each group's children by minimum data address,
// unaddressable data and subgroups last, instead of symbol-table order.
func WithAddressOrder() HDF5Option {
	return func(o *hdf5.Options) { o.AddressOrder = true }
}

// ReadHDF5 walks the HDF5 file in r (size bytes) and produces the
// equivalent layout: groups become dicts, datasets become data, chunked
// datasets become lists of per-chunk blocks. Payload bytes are never read.
// Structural damage fails with an error wrapping [ErrCorrupt].
func ReadHDF5(r io.ReaderAt, size int64, opts ...HDF5Option) (*Layout, error) {
	var o hdf5.Options
	for _, opt := range opts {
		opt(&o)
	}
	a, err := hdf5.Read(r, size, o)
	if err != nil {
		return nil, err
	}
	return &Layout{a: a}, nil
}

// OpenHDF5 opens the file at path, reads its metadata, and releases the
// handle on every exit path.
func OpenHDF5(path string, opts ...HDF5Option) (*Layout, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("dudley: opening HDF5 file: %w", err)
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("dudley: opening HDF5 file: %w", err)
	}
	return ReadHDF5(f, st.Size(), opts...)
}
