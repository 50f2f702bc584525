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

// Package compare implements the case-insensitive, "invariant culture"-style
// ordering used to keep a configuration node's children and items sorted by
// name.
package compare

import "strings"

// Names reports whether a should sort before b under case-insensitive
// ordering. Ties (equal under case folding) fall back to a byte-wise
// comparison of the original strings so the order is still total and
// deterministic.
func Names(a, b string) bool {
	la, lb := strings.ToLower(a), strings.ToLower(b)
	if la != lb {
		return la < lb
	}
	return a < b
}

// EqualNames reports whether a and b are the same name under case-
// insensitive comparison.
func EqualNames(a, b string) bool {
	return strings.EqualFold(a, b)
}

// SearchNames returns the index at which name would be inserted into names
// (which must already be sorted per Names) to keep it sorted, using binary
// search. If name is already present, the returned index points at it.
func SearchNames(names []string, name string) int {
	lo, hi := 0, len(names)
	for lo < hi {
		mid := (lo + hi) / 2
		if Names(names[mid], name) {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}
