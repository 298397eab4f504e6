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

import "errors"

// Semantic error kinds raised by layout mutation. Wrapped with context by
// the operation that trips them; match with [errors.Is].
var (
	ErrRedeclaration = errors.New("dudley: name already declared in scope")
	ErrUndefinedName = errors.New("dudley: name not found in scope")
	ErrTypeMismatch  = errors.New("dudley: type mismatch")
	ErrState         = errors.New("dudley: operation illegal in current state")
)
