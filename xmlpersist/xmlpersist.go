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

// Package xmlpersist implements a config.Strategy backed by a single XML
// file: a <ConfigurationFile> document holding one root <Configuration>
// element, whose <Item> children carry scalar text, nested unnamed <Item>
// children for one-dimensional arrays, or <Field> children for structs.
// Leading XML comment nodes immediately before an <Item> hold its comment,
// one line per comment node.
package xmlpersist

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/golang/glog"

	"github.com/cascadefs/cascade/cfgerr"
	"github.com/cascadefs/cascade/convert"
	"github.com/cascadefs/cascade/pathutil"
)

// Strategy is a config.Strategy backed by an in-memory document mirroring
// one XML file. Loads and peeks read the in-memory tree; saves mutate it;
// Flush writes it to disk via a temp-file-then-rename.
type Strategy struct {
	path string

	mu   sync.Mutex
	root *element

	registry *convert.Registry
	names    *nameValidator

	saveCounter int64
}

// Open reads path if it exists and parses it into the in-memory document; a
// missing file, or a file missing its <ConfigurationFile>/<Configuration>
// wrapper, yields an empty document rather than an error (matching the
// "missing root resets to no own value" rule).
func Open(path string) (*Strategy, error) {
	s := &Strategy{
		path:     path,
		registry: convert.NewRegistry(),
		names:    newNameValidator(),
	}

	s.registry.SetFallbackBuilder(func(t reflect.Type) (convert.Converter, bool) {
		return buildComposite(s.registry, t)
	})

	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		s.root = emptyRoot()
		return s, nil
	}
	if err != nil {
		return nil, cfgerr.New(cfgerr.Persistence, "xmlpersist.Open", path, err)
	}
	defer f.Close()

	root, err := parseConfigurationFile(f)
	if err != nil {
		return nil, cfgerr.New(cfgerr.Persistence, "xmlpersist.Open", path, err)
	}
	s.root = root
	return s, nil
}

func emptyRoot() *element {
	return &element{name: "Configuration", attrName: "root"}
}

// IsValidConfigurationName reports whether name is usable as a <Configuration
// name="..."> attribute: non-empty, not XML-reserved, and grammatically a
// valid XML Name.
func (s *Strategy) IsValidConfigurationName(name string) bool {
	return s.names.valid(name)
}

// IsValidItemName reports whether name is usable as an <Item name="...">
// attribute. Same grammar as a configuration name.
func (s *Strategy) IsValidItemName(name string) bool {
	return s.names.valid(name)
}

// SupportsType reports whether t can be serialized: a type registered in
// the converter registry (scalar or enum), a one-dimensional slice of a
// supported type, or a struct all of whose exported fields are supported.
func (s *Strategy) SupportsType(t reflect.Type) bool {
	return supportsType(s.registry, t)
}

// SupportsComments is always true: every Item may carry leading comment
// lines.
func (s *Strategy) SupportsComments() bool { return true }

// IsAssignable implements the default rule from the persistence contract:
// v is nil and t accepts nil, or v's runtime type is exactly t.
func (s *Strategy) IsAssignable(t reflect.Type, v any) bool {
	if v == nil {
		switch t.Kind() {
		case reflect.Ptr, reflect.Interface, reflect.Slice, reflect.Map, reflect.Chan, reflect.Func:
			return true
		default:
			return false
		}
	}
	return reflect.TypeOf(v) == t
}

// Converters returns the registry this strategy resolves value converters
// from, lazily populated with composite (slice/struct) converters as types
// are first encountered.
func (s *Strategy) Converters() *convert.Registry { return s.registry }

// LoadItem returns the persisted value/comment for path, or hasValue=false
// (and hasComment=false) if no such configuration/item exists in the
// document — a missing item is not an error.
func (s *Strategy) LoadItem(path string, typ reflect.Type) (string, bool, string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readLocked(path, typ)
}

// PeekItem is a non-mutating probe with the same semantics as LoadItem; the
// in-memory document is read-only for both, so they share an implementation.
func (s *Strategy) PeekItem(path string, typ reflect.Type) (string, bool, string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, hasValue, comment, hasComment, err := s.readLocked(path, typ)
	return value, hasValue, comment, hasComment, err
}

func (s *Strategy) readLocked(path string, typ reflect.Type) (string, bool, string, bool, error) {
	itemEl, ok := s.findItemLocked(path)
	if !ok {
		return "", false, "", false, nil
	}

	var comment string
	hasComment := len(itemEl.comments) > 0
	if hasComment {
		comment = strings.Join(itemEl.comments, "\n")
	}

	if len(itemEl.children) > 0 {
		frag, err := renderChildren(itemEl)
		if err != nil {
			return "", false, "", false, cfgerr.New(cfgerr.Persistence, "xmlpersist.LoadItem", path, err)
		}
		return frag, true, comment, hasComment, nil
	}
	return itemEl.text, true, comment, hasComment, nil
}

func (s *Strategy) findItemLocked(path string) (*element, bool) {
	segments, err := pathutil.Split(path, true, false, nil)
	if err != nil || len(segments) == 0 {
		return nil, false
	}
	cfg := s.root
	for _, seg := range segments[:len(segments)-1] {
		child := findChild(cfg, "Configuration", seg)
		if child == nil {
			return nil, false
		}
		cfg = child
	}
	itemEl := findChild(cfg, "Item", segments[len(segments)-1])
	if itemEl == nil {
		return nil, false
	}
	return itemEl, true
}

// SaveItem upserts path's value/comment into the in-memory document. It
// does not touch disk; call Flush to persist.
func (s *Strategy) SaveItem(path string, typ reflect.Type, value string, hasValue bool, comment string, hasComment bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	segments, err := pathutil.Split(path, true, false, nil)
	if err != nil || len(segments) == 0 {
		return cfgerr.New(cfgerr.InvalidArgument, "xmlpersist.SaveItem", path, err)
	}
	cfg := s.root
	for _, seg := range segments[:len(segments)-1] {
		cfg = ensureChild(cfg, "Configuration", seg)
	}
	itemName := segments[len(segments)-1]
	itemEl := findChild(cfg, "Item", itemName)
	if itemEl == nil {
		itemEl = &element{name: "Item", attrName: itemName}
		cfg.children = append(cfg.children, itemEl)
	}

	itemEl.text = ""
	itemEl.children = nil
	if hasValue {
		if looksLikeFragment(value) {
			frag, err := parseFragment(value)
			if err != nil {
				return cfgerr.New(cfgerr.Persistence, "xmlpersist.SaveItem", path, err)
			}
			itemEl.children = frag.children
		} else {
			itemEl.text = value
		}
	}

	// Old leading comment nodes are discarded and regenerated, per the
	// serialization rule.
	itemEl.comments = nil
	if hasComment && comment != "" {
		itemEl.comments = strings.Split(comment, "\n")
	}

	glog.V(2).Infof("xmlpersist: staged %s (hasValue=%v hasComment=%v)", path, hasValue, hasComment)
	return nil
}

// Flush writes the in-memory document to s.path: encode to a temp file in
// the same directory, remove any existing target (best effort), then
// rename the temp file over it. A failure here never leaves a partial
// write at the target path.
func (s *Strategy) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writeAtomicLocked(s.path); err != nil {
		return err
	}
	glog.V(2).Infof("xmlpersist: flushed %s", s.path)
	return nil
}

// SaveTo atomically writes the current in-memory document to path, leaving
// s.path (and the file at it) untouched. Useful for round-trip inspection
// (e.g. cascadectl validate) without disturbing the strategy's own backing
// file.
func (s *Strategy) SaveTo(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeAtomicLocked(path)
}

func (s *Strategy) writeAtomicLocked(path string) error {
	dir := filepath.Dir(path)
	tmp := filepath.Join(dir, fmt.Sprintf("%s.tmp.%d-%d", filepath.Base(path), os.Getpid(), atomic.AddInt64(&s.saveCounter, 1)))

	f, err := os.Create(tmp)
	if err != nil {
		return cfgerr.New(cfgerr.Persistence, "xmlpersist.Flush", path, err)
	}
	if err := encodeDocument(f, s.root); err != nil {
		f.Close()
		os.Remove(tmp)
		return cfgerr.New(cfgerr.Persistence, "xmlpersist.Flush", path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return cfgerr.New(cfgerr.Persistence, "xmlpersist.Flush", path, err)
	}

	os.Remove(path)
	if err := os.Rename(tmp, path); err != nil {
		return cfgerr.New(cfgerr.Persistence, "xmlpersist.Flush", path, err)
	}
	return nil
}

