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
	"sync"

	"github.com/cascadefs/cascade/cfgerr"
	"github.com/cascadefs/cascade/notify"
	"github.com/cascadefs/cascade/pathutil"
)

// ItemHandle is the type-erased view of an *Item[T] that persistence
// strategies and cross-layer code operate on without knowing T. Every
// exported method here is self-locking (acquires the owning cascade's
// mutex internally) and is safe to call with no lock held — this is the
// surface a Strategy implementation (xmlpersist, or a custom one) uses.
//
// The unexported methods assume the caller already holds the cascade
// mutex; they exist for internal change-propagation, which walks peer
// items while the triggering Set/Reset call's own critical section is
// still open and must not attempt to re-acquire the (non-reentrant) shared
// mutex.
type ItemHandle interface {
	Name() string
	Path() string
	Type() reflect.Type

	HasOwnValue() bool
	ValueReflect() (reflect.Value, bool)
	EffectiveValueReflect(inherit bool) (reflect.Value, bool)
	SetValueReflect(v reflect.Value) error
	ResetValue()

	HasOwnComment() bool
	OwnComment() (string, bool)
	Comment(inherit bool) (string, bool)
	SetComment(c string) error
	ResetComment()

	Inherited() (ItemHandle, bool)
	Modified() bool
	ClearModified()

	hasOwnValueLocked() bool
	hasOwnCommentLocked() bool
	setValueReflectLocked(v reflect.Value) error
	setCommentLocked(c string) error
	clearModifiedLocked()
	notifySource() *notify.Source
	newPeerLocked(owner *Node) ItemHandle
}

// Item is a typed configuration leaf: an optional own value of type T, an
// optional own comment, and a link to the corresponding item in the parent
// layer (nil on a base layer). Every exported method that reads or changes
// the value, comment or modification state acquires the cascade-wide mutex
// shared with the owning Node.
type Item[T any] struct {
	mu  *sync.Mutex
	typ reflect.Type

	name  string
	path  string
	owner *Node

	inherited *Item[T]

	value     T
	haveValue bool

	comment     string
	haveComment bool

	modifiedSelf bool

	notifySrc notify.Source
}

func newItem[T any](owner *Node, name, path string, value T, haveValue bool) *Item[T] {
	return &Item[T]{
		mu:        owner.mu,
		typ:       reflect.TypeOf((*T)(nil)).Elem(),
		name:      name,
		path:      path,
		owner:     owner,
		value:     value,
		haveValue: haveValue,
	}
}

// Name returns the item's leaf name.
func (it *Item[T]) Name() string { return it.name }

// Path returns the item's absolute, segment-escaped path.
func (it *Item[T]) Path() string { return it.path }

// Type returns T's reflect.Type.
func (it *Item[T]) Type() reflect.Type { return it.typ }

// Value returns the item's own value if present; otherwise, if inherit is
// true, the nearest ancestor layer's own value. The second return value is
// false if neither this item nor (when inherit) any ancestor has one.
func (it *Item[T]) Value(inherit bool) (T, bool) {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.valueLocked(inherit)
}

func (it *Item[T]) valueLocked(inherit bool) (T, bool) {
	if it.haveValue {
		return it.value, true
	}
	if inherit && it.inherited != nil {
		return it.inherited.valueLocked(true)
	}
	var zero T
	return zero, false
}

// HasOwnValue reports whether this layer has its own value (as opposed to
// relying on inheritance).
func (it *Item[T]) HasOwnValue() bool {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.haveValue
}

func (it *Item[T]) hasOwnValueLocked() bool { return it.haveValue }

func (it *Item[T]) hasOwnCommentLocked() bool { return it.haveComment }

// ValueReflect returns the own value boxed as a reflect.Value, for use by
// persistence strategies that work generically across item types.
func (it *Item[T]) ValueReflect() (reflect.Value, bool) {
	it.mu.Lock()
	defer it.mu.Unlock()
	if !it.haveValue {
		return reflect.Value{}, false
	}
	return reflect.ValueOf(it.value), true
}

// EffectiveValueReflect is ValueReflect generalized to optionally consult
// inheritance, for persistence strategies saving with
// SaveInheritedSettings.
func (it *Item[T]) EffectiveValueReflect(inherit bool) (reflect.Value, bool) {
	it.mu.Lock()
	defer it.mu.Unlock()
	v, ok := it.valueLocked(inherit)
	if !ok {
		return reflect.Value{}, false
	}
	return reflect.ValueOf(v), true
}

// SetValue validates v against the owning layer's persistence strategy (if
// any), stores it as the item's own value, fires a value-changed
// notification, and propagates to every inheriting peer that currently has
// no own value. A value equal to the current own value is a no-op.
func (it *Item[T]) SetValue(v T) error {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.setValueLocked(v)
}

func (it *Item[T]) setValueLocked(v T) error {
	if it.owner.strategy != nil && !it.owner.strategy.IsAssignable(it.typ, v) {
		return cfgerr.New(cfgerr.Persistence, "config.Item.SetValue", it.path, nil)
	}
	if it.haveValue && reflect.DeepEqual(it.value, v) {
		return nil
	}
	it.value, it.haveValue = v, true
	it.modifiedSelf = true
	it.notifySrc.Emit(notify.Event{Path: it.path, Kind: notify.ValueChanged})
	propagateValueChangeLocked(it.owner, it.name)
	return nil
}

// SetValueReflect is SetValue for callers that only hold a reflect.Value
// (persistence strategies decoding a stored representation). v's
// underlying type must be assignable to T.
func (it *Item[T]) SetValueReflect(v reflect.Value) error {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.setValueReflectLocked(v)
}

func (it *Item[T]) setValueReflectLocked(v reflect.Value) error {
	tv, ok := reflectAs[T](v)
	if !ok {
		return cfgerr.New(cfgerr.TypeMismatch, "config.Item.SetValueReflect", it.path, nil)
	}
	return it.setValueLocked(tv)
}

func reflectAs[T any](v reflect.Value) (T, bool) {
	var zero T
	target := reflect.TypeOf(zero)
	if target == nil {
		// T is an interface type; any concrete value satisfies it.
		iv, ok := v.Interface().(T)
		return iv, ok
	}
	if !v.IsValid() {
		return zero, false
	}
	if v.Type() == target {
		return v.Interface().(T), true
	}
	if v.Type().ConvertibleTo(target) {
		return v.Convert(target).Interface().(T), true
	}
	return zero, false
}

// ResetValue clears the item's own value, restoring inherited visibility,
// and fires a value-changed notification (it is a no-op if there was no
// own value to clear).
func (it *Item[T]) ResetValue() {
	it.mu.Lock()
	defer it.mu.Unlock()
	it.resetValueLocked()
}

func (it *Item[T]) resetValueLocked() {
	if !it.haveValue {
		return
	}
	var zero T
	it.value, it.haveValue = zero, false
	it.modifiedSelf = true
	it.notifySrc.Emit(notify.Event{Path: it.path, Kind: notify.ValueChanged})
	propagateValueChangeLocked(it.owner, it.name)
}

// Comment returns the item's own comment if present; otherwise, if
// inherit, the nearest ancestor layer's own comment.
func (it *Item[T]) Comment(inherit bool) (string, bool) {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.commentLocked(inherit)
}

func (it *Item[T]) commentLocked(inherit bool) (string, bool) {
	if it.haveComment {
		return it.comment, true
	}
	if inherit && it.inherited != nil {
		return it.inherited.commentLocked(true)
	}
	return "", false
}

// HasOwnComment reports whether this layer has its own comment.
func (it *Item[T]) HasOwnComment() bool {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.haveComment
}

// OwnComment returns the item's own comment without consulting
// inheritance.
func (it *Item[T]) OwnComment() (string, bool) {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.comment, it.haveComment
}

// SetComment requires the owning layer's persistence strategy (if any) to
// support comments, else fails with cfgerr.NotSupported.
func (it *Item[T]) SetComment(c string) error {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.setCommentLocked(c)
}

func (it *Item[T]) setCommentLocked(c string) error {
	if it.owner.strategy != nil && !it.owner.strategy.SupportsComments() {
		return cfgerr.New(cfgerr.NotSupported, "config.Item.SetComment", it.path, nil)
	}
	if it.haveComment && it.comment == c {
		return nil
	}
	it.comment, it.haveComment = c, true
	it.modifiedSelf = true
	it.notifySrc.Emit(notify.Event{Path: it.path, Kind: notify.CommentChanged})
	propagateCommentChangeLocked(it.owner, it.name)
	return nil
}

// ResetComment clears the item's own comment, restoring inherited
// visibility.
func (it *Item[T]) ResetComment() {
	it.mu.Lock()
	defer it.mu.Unlock()
	if !it.haveComment {
		return
	}
	it.comment, it.haveComment = "", false
	it.modifiedSelf = true
	it.notifySrc.Emit(notify.Event{Path: it.path, Kind: notify.CommentChanged})
	propagateCommentChangeLocked(it.owner, it.name)
}

// Inherited returns the corresponding item in the parent layer, if any.
func (it *Item[T]) Inherited() (ItemHandle, bool) {
	if it.inherited == nil {
		return nil, false
	}
	return it.inherited, true
}

// Modified reports whether this item's own value or comment has changed
// since the layer was last loaded or saved.
func (it *Item[T]) Modified() bool {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.modifiedSelf
}

// ClearModified resets the item's modification flag without changing its
// value or comment (used internally by Node.Load/Save after persistence
// completes).
func (it *Item[T]) ClearModified() {
	it.mu.Lock()
	defer it.mu.Unlock()
	it.modifiedSelf = false
}

func (it *Item[T]) clearModifiedLocked() { it.modifiedSelf = false }

// Subscribe registers handler to be invoked on d (or the package-wide
// worker dispatcher, if d is nil) whenever this item's value or comment
// changes — including changes observed through inheritance propagation. It
// returns a subscription id accepted by Unsubscribe.
func (it *Item[T]) Subscribe(d notify.Dispatcher, handler notify.Handler) uint64 {
	return it.notifySrc.Subscribe(d, handler)
}

// Unsubscribe removes a handler previously registered via Subscribe.
func (it *Item[T]) Unsubscribe(id uint64) { it.notifySrc.Unsubscribe(id) }

func (it *Item[T]) notifySource() *notify.Source { return &it.notifySrc }

// newPeerLocked creates the peer item for a newly created or newly
// mirrored layer inheriting from it.owner's layer: same name/type under
// owner, no own value or comment, linked back to it as its inherited item.
func (it *Item[T]) newPeerLocked(owner *Node) ItemHandle {
	peer := newItem[T](owner, it.name, pathutil.Combine(owner.path, it.name), zeroOf[T](), false)
	peer.inherited = it
	return peer
}

func zeroOf[T any]() T {
	var zero T
	return zero
}
