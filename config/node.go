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

// Package config implements the cascaded configuration tree: a node holds
// child nodes and typed items, layers that inherit from one another mirror
// the inherited layer's shape, and a single mutex is shared across an
// entire cascade (a base layer, every layer that inherits from it, and all
// of their descendant nodes/items).
package config

import (
	"sync"

	"github.com/cascadefs/cascade/cfgerr"
	"github.com/cascadefs/cascade/compare"
	"github.com/cascadefs/cascade/notify"
	"github.com/cascadefs/cascade/pathutil"
	"github.com/golang/glog"
)

// Node is a named container at a path in a configuration tree. All
// mutating operations acquire the cascade-wide mutex; internal helpers
// whose name ends in "Locked" assume it is already held.
type Node struct {
	mu       *sync.Mutex
	strategy Strategy

	name   string
	path   string
	parent *Node

	childNames []string
	children   []*Node

	itemNames []string
	items     []ItemHandle

	inherited       *Node
	inheritingPeers map[*Node]struct{}
}

// NewBase constructs a fresh base (root) layer named name, optionally
// backed by strategy for load/save.
func NewBase(name string, strategy Strategy) *Node {
	return &Node{name: name, path: "/", mu: &sync.Mutex{}, strategy: strategy}
}

// Name returns the node's own (unescaped) name.
func (n *Node) Name() string { return n.name }

// Path returns the node's absolute, segment-escaped path.
func (n *Node) Path() string { return n.path }

// Children returns a snapshot of the node's child nodes, in sorted order.
func (n *Node) Children() []*Node {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]*Node, len(n.children))
	copy(out, n.children)
	return out
}

// Items returns a snapshot of the node's own items, in sorted order.
func (n *Node) Items() []ItemHandle {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]ItemHandle, len(n.items))
	copy(out, n.items)
	return out
}

// Root returns the root node of n's layer (the node with no parent), for
// example to call Load/Save after resolving a child node by path.
func (n *Node) Root() *Node {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.rootLocked()
}

// GetChild walks path from n and returns the node it resolves to. It never
// creates intermediate nodes.
func (n *Node) GetChild(path string) (*Node, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	segs, err := pathutil.Split(path, false, false, nil)
	if err != nil {
		return nil, false
	}
	cur := n
	for _, seg := range segs {
		c, ok := cur.childLocked(seg)
		if !ok {
			return nil, false
		}
		cur = c
	}
	return cur, true
}

func (n *Node) childLocked(name string) (*Node, bool) {
	idx := compare.SearchNames(n.childNames, name)
	if idx < len(n.childNames) && compare.EqualNames(n.childNames[idx], name) {
		return n.children[idx], true
	}
	return nil, false
}

func (n *Node) itemLocked(name string) (ItemHandle, bool) {
	idx := compare.SearchNames(n.itemNames, name)
	if idx < len(n.itemNames) && compare.EqualNames(n.itemNames[idx], name) {
		return n.items[idx], true
	}
	return nil, false
}

func (n *Node) insertChildLocked(child *Node) {
	idx := compare.SearchNames(n.childNames, child.name)
	n.childNames = append(n.childNames, "")
	copy(n.childNames[idx+1:], n.childNames[idx:])
	n.childNames[idx] = child.name
	n.children = append(n.children, nil)
	copy(n.children[idx+1:], n.children[idx:])
	n.children[idx] = child
}

func (n *Node) insertItemLocked(item ItemHandle) {
	idx := compare.SearchNames(n.itemNames, item.Name())
	n.itemNames = append(n.itemNames, "")
	copy(n.itemNames[idx+1:], n.itemNames[idx:])
	n.itemNames[idx] = item.Name()
	n.items = append(n.items, nil)
	copy(n.items[idx+1:], n.items[idx:])
	n.items[idx] = item
}

func (n *Node) addInheritingPeerLocked(peer *Node) {
	if n.inheritingPeers == nil {
		n.inheritingPeers = make(map[*Node]struct{})
	}
	n.inheritingPeers[peer] = struct{}{}
}

func (n *Node) rootLocked() *Node {
	cur := n
	for cur.parent != nil {
		cur = cur.parent
	}
	return cur
}

// CreateChild materializes (or returns the existing) child named name.
// Creation is only permitted on a base (non-inheriting) layer; calling it
// on an inheriting layer fails with cfgerr.NotSupported, matching the
// "only the default-layer API exposes creation" rule.
func (n *Node) CreateChild(name string) (*Node, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.rootLocked().inherited != nil {
		return nil, cfgerr.New(cfgerr.NotSupported, "config.Node.CreateChild", n.path, nil)
	}
	return n.getOrCreateChildLocked(name), nil
}

// getOrCreateChildLocked materializes name under n, wiring it to its
// inherited counterpart (if n has one) and recursively creating the same
// peer in every layer inheriting from n's layer, so the "same shape across
// layers" invariant holds after every call.
func (n *Node) getOrCreateChildLocked(name string) *Node {
	if c, ok := n.childLocked(name); ok {
		return c
	}
	glog.V(2).Infof("config: materializing child %q under %q", name, n.path)
	child := &Node{
		name:     name,
		path:     pathutil.Combine(n.path, name),
		parent:   n,
		mu:       n.mu,
		strategy: n.strategy,
	}
	if n.inherited != nil {
		if ic, ok := n.inherited.childLocked(name); ok {
			child.inherited = ic
			ic.addInheritingPeerLocked(child)
		}
	}
	n.insertChildLocked(child)
	for peer := range n.inheritingPeers {
		peer.getOrCreateChildLocked(name)
	}
	return child
}

// propagateValueChangeLocked fires a value-changed notification on every
// item named itemName under a node inheriting (directly or transitively)
// from owner's layer, provided that peer item has no own value — its
// observable value just changed because of the change on owner.
func propagateValueChangeLocked(owner *Node, itemName string) {
	for peer := range owner.inheritingPeers {
		peerItem, ok := peer.itemLocked(itemName)
		if !ok || peerItem.hasOwnValueLocked() {
			continue
		}
		peerItem.notifySource().Emit(notify.Event{Path: peerItem.Path(), Kind: notify.ValueChanged})
		propagateValueChangeLocked(peer, itemName)
	}
}

func propagateCommentChangeLocked(owner *Node, itemName string) {
	for peer := range owner.inheritingPeers {
		peerItem, ok := peer.itemLocked(itemName)
		if !ok || peerItem.hasOwnCommentLocked() {
			continue
		}
		peerItem.notifySource().Emit(notify.Event{Path: peerItem.Path(), Kind: notify.CommentChanged})
		propagateCommentChangeLocked(peer, itemName)
	}
}

// Modified reports whether n or any descendant node/item has an
// unsaved change.
func (n *Node) Modified() bool {
	for _, it := range n.Items() {
		if it.Modified() {
			return true
		}
	}
	for _, c := range n.Children() {
		if c.Modified() {
			return true
		}
	}
	return false
}

func (n *Node) clearModifiedRecursive() {
	for _, it := range n.Items() {
		it.ClearModified()
	}
	for _, c := range n.Children() {
		c.clearModifiedRecursive()
	}
}

// GetAllItems returns every item under n (and, if recursive, every
// descendant node's items too), as a snapshot: n's own items first, then
// each child's items in turn, depth-first.
func (n *Node) GetAllItems(recursive bool) []ItemHandle {
	var out []ItemHandle
	out = append(out, n.Items()...)
	if recursive {
		for _, c := range n.Children() {
			out = append(out, c.GetAllItems(true)...)
		}
	}
	return out
}

// ResetItems clears every item's own value under n (and, if recursive,
// under every descendant node), restoring inherited visibility.
func (n *Node) ResetItems(recursive bool) {
	for _, it := range n.Items() {
		it.ResetValue()
	}
	if recursive {
		for _, c := range n.Children() {
			c.ResetItems(true)
		}
	}
}

// Load delegates to the root layer's persistence strategy, populating the
// tree's items from the backing store and clearing the whole subtree's
// modification flag on success. Only valid on a root node with a strategy.
func (n *Node) Load() error {
	if n.parent != nil {
		return cfgerr.New(cfgerr.NotSupported, "config.Node.Load", n.path, nil)
	}
	if n.strategy == nil {
		return cfgerr.New(cfgerr.NotSupported, "config.Node.Load", n.path, nil)
	}
	if err := loadTree(n, n.strategy); err != nil {
		return err
	}
	n.clearModifiedRecursive()
	return nil
}

// Save delegates to the root layer's persistence strategy and clears the
// whole subtree's modification flag on success. Only valid on a root node
// with a strategy.
func (n *Node) Save(flags SaveFlags) error {
	if n.parent != nil {
		return cfgerr.New(cfgerr.NotSupported, "config.Node.Save", n.path, nil)
	}
	if n.strategy == nil {
		return cfgerr.New(cfgerr.NotSupported, "config.Node.Save", n.path, nil)
	}
	if err := saveTree(n, n.strategy, flags); err != nil {
		return err
	}
	n.clearModifiedRecursive()
	return nil
}

// AddInheritingLayer constructs a new root layer that mirrors the shape of
// n's whole cascade (every child node and item, without own values),
// registers it in the inheritance graph, and returns the node within the
// new layer at the same path as n.
func (n *Node) AddInheritingLayer(strategy Strategy) *Node {
	n.mu.Lock()
	defer n.mu.Unlock()
	root := n.rootLocked()
	newRoot := &Node{name: root.name, path: "/", mu: root.mu, strategy: strategy, inherited: root}
	mirrorChildrenAndItemsLocked(root, newRoot)
	root.addInheritingPeerLocked(newRoot)
	return newRoot.walkToPathLocked(n.path)
}

func mirrorChildrenAndItemsLocked(src, dst *Node) {
	for _, c := range src.children {
		peer := &Node{
			name:      c.name,
			path:      pathutil.Combine(dst.path, c.name),
			parent:    dst,
			mu:        dst.mu,
			strategy:  dst.strategy,
			inherited: c,
		}
		c.addInheritingPeerLocked(peer)
		dst.childNames = append(dst.childNames, c.name)
		dst.children = append(dst.children, peer)
		mirrorChildrenAndItemsLocked(c, peer)
	}
	for _, it := range src.items {
		peerItem := it.newPeerLocked(dst)
		dst.itemNames = append(dst.itemNames, it.Name())
		dst.items = append(dst.items, peerItem)
	}
}

func (n *Node) walkToPathLocked(path string) *Node {
	if path == "/" {
		return n
	}
	segs, err := pathutil.Split(path, false, false, nil)
	if err != nil {
		return n
	}
	cur := n
	for _, seg := range segs {
		c, ok := cur.childLocked(seg)
		if !ok {
			return cur
		}
		cur = c
	}
	return cur
}

func (n *Node) findItemLocked(path string) (ItemHandle, error) {
	segs, err := pathutil.Split(path, true, false, nil)
	if err != nil {
		return nil, cfgerr.New(cfgerr.InvalidArgument, "config.Node.findItem", path, err)
	}
	cur := n
	for _, seg := range segs[:len(segs)-1] {
		c, ok := cur.childLocked(seg)
		if !ok {
			return nil, cfgerr.New(cfgerr.NotFound, "config.Node.findItem", path, nil)
		}
		cur = c
	}
	it, ok := cur.itemLocked(segs[len(segs)-1])
	if !ok {
		return nil, cfgerr.New(cfgerr.NotFound, "config.Node.findItem", path, nil)
	}
	return it, nil
}

// SaveFlags controls optional Save behavior.
type SaveFlags int

const (
	// SaveInheritedSettings saves the effective (possibly inherited)
	// value for items that have no own value, instead of omitting them.
	SaveInheritedSettings SaveFlags = 1 << iota
)
