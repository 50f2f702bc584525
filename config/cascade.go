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

package config

import (
	"reflect"

	"github.com/cascadefs/cascade/cfgerr"
	"github.com/cascadefs/cascade/pathutil"
)

// AddItem creates a new item named name under n with own value v. It is
// only valid on a base (non-inheriting) layer. The path and type are
// validated against n's own persistence strategy and every layer already
// inheriting from n's layer (transitively); if any of them rejects the
// name or type, nothing is created and an error carrying cfgerr.Persistence
// is returned. A peer item (without an own value) is mirrored into every
// such inheriting layer; for each peer, if that layer's own strategy
// already holds a persisted value for the path, it is loaded immediately,
// without marking the peer modified. Calling AddItem again for a name that
// already exists fails with cfgerr.AlreadyExists.
func AddItem[T any](n *Node, name string, v T) (*Item[T], error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return addItemLocked[T](n, name, v)
}

func addItemLocked[T any](n *Node, name string, v T) (*Item[T], error) {
	if n.rootLocked().inherited != nil {
		return nil, cfgerr.New(cfgerr.NotSupported, "config.AddItem", n.path, nil)
	}
	path := pathutil.Combine(n.path, name)
	if _, ok := n.itemLocked(name); ok {
		return nil, cfgerr.New(cfgerr.AlreadyExists, "config.AddItem", path, nil)
	}
	typ := reflect.TypeOf((*T)(nil)).Elem()
	if !validateAcrossCascadeLocked(n, name, typ) {
		return nil, cfgerr.New(cfgerr.Persistence, "config.AddItem", path, nil)
	}
	it := newItem[T](n, name, path, v, true)
	addItemPeersLocked(n, it)
	return it, nil
}

// validateAcrossCascadeLocked reports whether name/typ is acceptable to
// n's own strategy and to the strategy of every layer inheriting
// (transitively) from n's layer.
func validateAcrossCascadeLocked(n *Node, name string, typ reflect.Type) bool {
	if n.strategy != nil && (!n.strategy.IsValidItemName(name) || !n.strategy.SupportsType(typ)) {
		return false
	}
	for peer := range n.inheritingPeers {
		if !validateAcrossCascadeLocked(peer, name, typ) {
			return false
		}
	}
	return true
}

// addItemPeersLocked inserts it into n and, recursively, a peer of it into
// every node already inheriting from n, mirroring getOrCreateChildLocked's
// propagation for child nodes. Each peer is probed against its own layer's
// persistence strategy in case a value was already persisted there.
func addItemPeersLocked(n *Node, it ItemHandle) {
	n.insertItemLocked(it)
	for peer := range n.inheritingPeers {
		peerItem := it.newPeerLocked(peer)
		loadPersistedPeerValueLocked(peer, peerItem)
		addItemPeersLocked(peer, peerItem)
	}
}

// loadPersistedPeerValueLocked asks peer's own strategy (if any) for a
// stored value/comment at peerItem's path, applies it through the
// assume-locked setters, and restores the modification flag so the load
// doesn't look like a user edit.
func loadPersistedPeerValueLocked(peer *Node, peerItem ItemHandle) {
	if peer.strategy == nil {
		return
	}
	value, hasValue, comment, hasComment, err := peer.strategy.LoadItem(peerItem.Path(), peerItem.Type())
	if err != nil {
		return
	}
	if hasValue {
		if conv, ok := peer.strategy.Converters().Get(peerItem.Type()); ok {
			if rv, err := conv.FromString(value, peerItem.Type()); err == nil {
				_ = peerItem.setValueReflectLocked(rv)
			}
		}
	}
	if hasComment {
		_ = peerItem.setCommentLocked(comment)
	}
	peerItem.clearModifiedLocked()
}

// GetItem returns the item at path, type-asserted to Item[T]. It fails
// with cfgerr.NotFound if no item exists at path, or cfgerr.TypeMismatch
// if one exists but isn't of type T.
func GetItem[T any](root *Node, path string) (*Item[T], error) {
	root.mu.Lock()
	defer root.mu.Unlock()
	h, err := root.findItemLocked(path)
	if err != nil {
		return nil, err
	}
	it, ok := h.(*Item[T])
	if !ok {
		return nil, cfgerr.New(cfgerr.TypeMismatch, "config.GetItem", path, nil)
	}
	return it, nil
}

// TryGetItem is GetItem without an error return: the second value is false
// if the item is missing or of the wrong type.
func TryGetItem[T any](root *Node, path string) (*Item[T], bool) {
	it, err := GetItem[T](root, path)
	if err != nil {
		return nil, false
	}
	return it, true
}

// TryGetValue resolves path to an Item[T] and returns its effective value
// (own if set, else inherited). The second return is false if the item is
// missing, of the wrong type, or has no value anywhere in the chain.
func TryGetValue[T any](root *Node, path string) (T, bool) {
	it, ok := TryGetItem[T](root, path)
	if !ok {
		var zero T
		return zero, false
	}
	return it.Value(true)
}

// TryGetComment resolves path to any item and returns its effective
// comment (own if set, else inherited), regardless of the item's value
// type.
func TryGetComment(root *Node, path string) (string, bool) {
	root.mu.Lock()
	h, err := root.findItemLocked(path)
	root.mu.Unlock()
	if err != nil {
		return "", false
	}
	return h.Comment(true)
}

// AddItemIfInheritingLayerHasValue creates item name under n (a base
// layer) with v as its own value only if some layer already inheriting
// from n's layer has, in its own persistence strategy, a stored value for
// that path (probed via PeekItem, never mutating anything). It returns
// false and creates nothing if no inheriting layer's strategy has one.
func AddItemIfInheritingLayerHasValue[T any](n *Node, name string, v T) (*Item[T], bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.rootLocked().inherited != nil {
		return nil, false, cfgerr.New(cfgerr.NotSupported, "config.AddItemIfInheritingLayerHasValue", n.path, nil)
	}
	path := pathutil.Combine(n.path, name)
	typ := reflect.TypeOf((*T)(nil)).Elem()
	if !anyInheritingLayerHasValueLocked(n, path, typ) {
		return nil, false, nil
	}
	it, err := addItemLocked[T](n, name, v)
	if err != nil {
		return nil, false, err
	}
	return it, true, nil
}

func anyInheritingLayerHasValueLocked(n *Node, path string, typ reflect.Type) bool {
	for peer := range n.inheritingPeers {
		if peer.strategy != nil {
			if _, present, _, _, err := peer.strategy.PeekItem(path, typ); err == nil && present {
				return true
			}
		}
		if anyInheritingLayerHasValueLocked(peer, path, typ) {
			return true
		}
	}
	return false
}
