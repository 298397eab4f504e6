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

//go:build !debug

// Package debug includes debugging helpers.
//
// When built with the debug tag, [Log] traces the producers (parser
// recovery, HDF5 superblock and object header walking) to stderr, tagged with the caller and its
// goroutine. Without the tag every call compiles to nothing.
package debug

// Enabled is true when the debug build tag is set.
const Enabled = false

// Log does nothing without the debug tag.
func Log(operation, format string, args ...any) {}
