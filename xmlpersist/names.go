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
	"strings"
	"sync"
	"unicode"

	"github.com/derekparker/trie"
)

// reservedPrefixes are local names the XML specification reserves; any
// name starting with one of these (case-insensitively) is rejected
// outright, before the full grammar check runs.
var reservedPrefixes = []string{"xml", "xmlns"}

// nameValidator rejects XML-reserved names, checks the remainder against
// the XML Name grammar, and caches names already found valid in a trie so
// repeat validation of the same configuration/item name (common across a
// tree with many siblings) skips the grammar walk.
type nameValidator struct {
	mu        sync.Mutex
	validated *trie.Trie
}

func newNameValidator() *nameValidator {
	return &nameValidator{validated: trie.New()}
}

func (nv *nameValidator) valid(name string) bool {
	if name == "" {
		return false
	}
	lower := strings.ToLower(name)
	for _, p := range reservedPrefixes {
		if strings.HasPrefix(lower, p) {
			return false
		}
	}

	nv.mu.Lock()
	_, cached := nv.validated.Find(name)
	nv.mu.Unlock()
	if cached {
		return true
	}

	if !isValidXMLName(name) {
		return false
	}

	nv.mu.Lock()
	nv.validated.Add(name, nil)
	nv.mu.Unlock()
	return true
}

// isValidXMLName reports whether name is a syntactically valid XML Name:
// first rune a letter, '_', or ':'; remaining runes letters, digits, '-',
// '_', '.', or ':'. This is a practical subset of the full XML Name
// production (it does not special-case combining characters or the
// exact Unicode NameStartChar/NameChar tables), sufficient to reject
// whitespace and path-delimiter characters from ever reaching an XML
// attribute value unescaped.
func isValidXMLName(name string) bool {
	for i, r := range name {
		switch {
		case unicode.IsLetter(r) || r == '_' || r == ':':
		case i > 0 && (unicode.IsDigit(r) || r == '-' || r == '.'):
		default:
			return false
		}
	}
	return true
}
