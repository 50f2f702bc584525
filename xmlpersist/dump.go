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
	"sort"

	"github.com/cascadefs/cascade/compare"
)

// DumpItem is one <Item> read back for display: Value holds either the raw
// scalar text or, for a composite item, its re-serialized nested-element
// markup.
type DumpItem struct {
	Name       string
	Value      string
	HasValue   bool
	Comment    string
	HasComment bool
}

// DumpNode is one <Configuration> read back for display, with its items and
// child configurations both sorted by compare.Names — independent of
// whatever order they happen to appear in the file.
type DumpNode struct {
	Name     string
	Items    []DumpItem
	Children []DumpNode
}

// Dump walks the whole in-memory document and returns it as a tree of plain
// structs, ordered the same way the cascade tree itself is: useful for a
// caller with no prior schema (e.g. a CLI that only has a file path, not a
// set of declared item types) to print the document's shape.
func (s *Strategy) Dump() DumpNode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return dumpElement(s.root)
}

func dumpElement(el *element) DumpNode {
	node := DumpNode{Name: el.attrName}

	var itemEls, cfgEls []*element
	for _, c := range el.children {
		switch c.name {
		case "Item":
			itemEls = append(itemEls, c)
		case "Configuration":
			cfgEls = append(cfgEls, c)
		}
	}
	sort.Slice(itemEls, func(i, j int) bool { return compare.Names(itemEls[i].attrName, itemEls[j].attrName) })
	sort.Slice(cfgEls, func(i, j int) bool { return compare.Names(cfgEls[i].attrName, cfgEls[j].attrName) })

	for _, it := range itemEls {
		di := DumpItem{Name: it.attrName}
		if len(it.comments) > 0 {
			di.HasComment = true
			for i, c := range it.comments {
				if i > 0 {
					di.Comment += "\n"
				}
				di.Comment += c
			}
		}
		if len(it.children) > 0 {
			frag, err := renderChildren(it)
			if err == nil {
				di.Value, di.HasValue = frag, true
			}
		} else {
			di.Value, di.HasValue = it.text, true
		}
		node.Items = append(node.Items, di)
	}
	for _, c := range cfgEls {
		node.Children = append(node.Children, dumpElement(c))
	}
	return node
}
