// Copyright 2026 The Cascade Authors
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

package xmlpersist

import (
	"reflect"
	"sync"

	"github.com/cascadefs/cascade/convert"
)

// supportState is stored in typeSupportCache: inProgress breaks recursion
// for self-referential struct types (seed a tentative "unsupported", then
// replace it with the real verdict once the recursive check completes);
// a final bool is the real, final verdict.
type supportState struct {
	inProgress bool
	supported  bool
}

// typeSupportCache is a process-global memo of SupportsType verdicts keyed
// by reflect.Type, mirroring the teacher's process-global, re-entrant type
// caches (util/reflect.go, util/schema.go): seed an in-progress sentinel to
// break recursion, then store the final verdict.
var typeSupportCache sync.Map // reflect.Type -> *supportState

func supportsType(reg *convert.Registry, t reflect.Type) bool {
	if v, ok := typeSupportCache.Load(t); ok {
		st := v.(*supportState)
		if st.inProgress {
			// A cycle: treat as unsupported for this recursive probe; the
			// outermost call will still record its own final verdict.
			return false
		}
		return st.supported
	}

	state := &supportState{inProgress: true}
	typeSupportCache.Store(t, state)

	supported := computeSupportsType(reg, t)

	typeSupportCache.Store(t, &supportState{supported: supported})
	return supported
}

func computeSupportsType(reg *convert.Registry, t reflect.Type) bool {
	if _, ok := reg.Get(t); ok {
		return true
	}
	switch t.Kind() {
	case reflect.Slice:
		// Only one-dimensional arrays are supported: the element type
		// itself must not also be a slice.
		if t.Elem().Kind() == reflect.Slice {
			return false
		}
		return supportsType(reg, t.Elem())
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if !f.IsExported() {
				continue
			}
			if !supportsType(reg, f.Type) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
