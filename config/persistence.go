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
	"github.com/cascadefs/cascade/convert"
)

// Strategy is the persistence contract a root layer is attached to. It is
// intentionally data-only: LoadItem/PeekItem/SaveItem exchange plain
// strings, never an ItemHandle. A Strategy lives in a different package
// than the tree it persists (xmlpersist, or a caller's own
// implementation), and the cascade's single, non-reentrant mutex rules out
// handing it anything that assumes the lock is already held — every
// mutation the tree needs as a result of a load still goes through
// Item[T]'s self-locking exported setters, driven by this package, not by
// the Strategy itself.
type Strategy interface {
	// IsValidConfigurationName reports whether name is an acceptable node
	// name for this backing format.
	IsValidConfigurationName(name string) bool
	// IsValidItemName reports whether name is an acceptable item name.
	IsValidItemName(name string) bool
	// SupportsType reports whether t can be stored at all.
	SupportsType(t reflect.Type) bool
	// SupportsComments reports whether the backing format can carry
	// per-item comments.
	SupportsComments() bool
	// IsAssignable reports whether v (of the item's declared type t) is an
	// acceptable value to persist.
	IsAssignable(t reflect.Type, v any) bool
	// Converters returns the registry used to translate values of type t
	// to and from their string representation.
	Converters() *convert.Registry

	// LoadItem returns the stored own value and comment for the item at
	// path, if the backing store has one. It must not mutate any tree
	// state; the caller applies the result via ItemHandle.
	LoadItem(path string, typ reflect.Type) (value string, hasValue bool, comment string, hasComment bool, err error)
	// PeekItem is LoadItem without side effects intended for validation
	// passes; present mirrors hasValue.
	PeekItem(path string, typ reflect.Type) (value string, present bool, comment string, hasComment bool, err error)
	// SaveItem persists the given own value/comment for the item at path.
	SaveItem(path string, typ reflect.Type, value string, hasValue bool, comment string, hasComment bool) error
	// Flush finalizes a save (e.g. an atomic rename of a temp file). It is
	// called once after every item has been written.
	Flush() error
}

// loadTree walks every item under root and asks s for its stored value and
// comment. An item the store has nothing for is reset to "no own value"
// (and "no own comment") rather than left at whatever it held before the
// load, per the deserialization rule that a missing item resets rather than
// merely not-updates.
func loadTree(root *Node, s Strategy) error {
	for _, it := range root.GetAllItems(true) {
		value, hasValue, comment, hasComment, err := s.LoadItem(it.Path(), it.Type())
		if err != nil {
			return cfgerr.New(cfgerr.Persistence, "config.Node.Load", it.Path(), err)
		}
		if hasValue {
			conv, ok := s.Converters().Get(it.Type())
			if !ok {
				return cfgerr.New(cfgerr.Persistence, "config.Node.Load", it.Path(), nil)
			}
			rv, err := conv.FromString(value, it.Type())
			if err != nil {
				return cfgerr.New(cfgerr.Persistence, "config.Node.Load", it.Path(), err)
			}
			if err := it.SetValueReflect(rv); err != nil {
				return err
			}
		} else {
			it.ResetValue()
		}
		if hasComment {
			if err := it.SetComment(comment); err != nil {
				return err
			}
		} else {
			it.ResetComment()
		}
	}
	return nil
}

// saveTree walks every item under root and hands s its current value and
// comment (the effective, inherited one when flags carries
// SaveInheritedSettings; otherwise the own one only).
func saveTree(root *Node, s Strategy, flags SaveFlags) error {
	inherit := flags&SaveInheritedSettings != 0
	for _, it := range root.GetAllItems(true) {
		var valueStr string
		rv, hasValue := it.EffectiveValueReflect(inherit)
		if hasValue {
			conv, ok := s.Converters().Get(it.Type())
			if !ok {
				return cfgerr.New(cfgerr.Persistence, "config.Node.Save", it.Path(), nil)
			}
			var err error
			valueStr, err = conv.ToString(rv)
			if err != nil {
				return cfgerr.New(cfgerr.Persistence, "config.Node.Save", it.Path(), err)
			}
		}
		comment, hasComment := it.Comment(inherit)
		if err := s.SaveItem(it.Path(), it.Type(), valueStr, hasValue, comment, hasComment); err != nil {
			return cfgerr.New(cfgerr.Persistence, "config.Node.Save", it.Path(), err)
		}
	}
	return s.Flush()
}
