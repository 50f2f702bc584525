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

// Package convert implements the value-converter registry consumed by
// persistence strategies: a per-type Converter translating a scalar value
// to/from its culture-invariant string representation, backed by a
// process-global fallback table so strategies that do not register their
// own converter for a type still work for the common scalar kinds.
package convert

import (
	"fmt"
	"reflect"
	"strconv"
	"sync"
)

// Converter translates values of a single type to/from their string
// representation, under the invariant culture (i.e. independent of any
// locale: '.' as decimal separator, no thousands grouping).
type Converter interface {
	// ToString renders v (whose type must be the type this converter is
	// registered for) as a string.
	ToString(v reflect.Value) (string, error)
	// FromString parses s into a value of type t (the type this
	// converter is registered for).
	FromString(s string, t reflect.Type) (reflect.Value, error)
}

// Registry is a per-strategy table of converters that falls back to the
// process-global registry for any type it has no local entry for.
type Registry struct {
	mu       sync.RWMutex
	byType   map[reflect.Type]Converter
	builder  func(t reflect.Type) (Converter, bool)
	building map[reflect.Type]bool
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{byType: make(map[reflect.Type]Converter)}
}

// SetFallbackBuilder installs build as the last-resort source of a
// converter for a type with no local or global entry: Get calls it and,
// on success, registers the result so later lookups hit the local map
// directly. Strategies whose supported types go beyond scalars (e.g.
// xmlpersist's slice/struct composites) use this to build converters for a
// type the first time it is actually requested, rather than needing every
// possible composite type registered up front.
func (r *Registry) SetFallbackBuilder(build func(t reflect.Type) (Converter, bool)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.builder = build
}

// Register installs c as the converter for t in this registry, shadowing
// the global fallback for that type.
func (r *Registry) Register(t reflect.Type, c Converter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byType[t] = c
}

// Get returns the converter for t: the locally registered one if present,
// else the process-global fallback, else the result of this registry's
// fallback builder (if one is installed), else (false). A builder that
// calls back into Get for t while already building it (a self-referential
// composite type) sees (nil, false) rather than recursing forever; the
// builder is responsible for treating that as "field/element unsupported".
func (r *Registry) Get(t reflect.Type) (Converter, bool) {
	r.mu.RLock()
	c, ok := r.byType[t]
	builder := r.builder
	inProgress := r.building[t]
	r.mu.RUnlock()
	if ok {
		return c, true
	}
	if inProgress {
		return nil, false
	}
	if c, ok := Global(t); ok {
		return c, true
	}
	if builder == nil {
		return nil, false
	}

	r.mu.Lock()
	if r.building == nil {
		r.building = make(map[reflect.Type]bool)
	}
	r.building[t] = true
	r.mu.Unlock()
	c, ok = builder(t)
	r.mu.Lock()
	delete(r.building, t)
	r.mu.Unlock()

	if !ok {
		return nil, false
	}
	r.Register(t, c)
	return c, true
}

var (
	globalMu   sync.RWMutex
	globalByType = map[reflect.Type]Converter{
		reflect.TypeOf(""):      stringConverter{},
		reflect.TypeOf(false):   boolConverter{},
		reflect.TypeOf(int(0)):  intConverter{bits: 0},
		reflect.TypeOf(int8(0)): intConverter{bits: 8},
		reflect.TypeOf(int16(0)): intConverter{bits: 16},
		reflect.TypeOf(int32(0)): intConverter{bits: 32},
		reflect.TypeOf(int64(0)): intConverter{bits: 64},
		reflect.TypeOf(uint(0)):   uintConverter{bits: 0},
		reflect.TypeOf(uint8(0)):  uintConverter{bits: 8},
		reflect.TypeOf(uint16(0)): uintConverter{bits: 16},
		reflect.TypeOf(uint32(0)): uintConverter{bits: 32},
		reflect.TypeOf(uint64(0)): uintConverter{bits: 64},
		reflect.TypeOf(float32(0)): floatConverter{bits: 32},
		reflect.TypeOf(float64(0)): floatConverter{bits: 64},
	}
)

// RegisterGlobal installs c as the process-wide fallback converter for t.
// Strategies that don't register their own converter for t will use this
// one.
func RegisterGlobal(t reflect.Type, c Converter) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalByType[t] = c
}

// Global looks up the process-wide fallback converter for t.
func Global(t reflect.Type) (Converter, bool) {
	globalMu.RLock()
	defer globalMu.RUnlock()
	c, ok := globalByType[t]
	return c, ok
}

type stringConverter struct{}

func (stringConverter) ToString(v reflect.Value) (string, error) { return v.String(), nil }
func (stringConverter) FromString(s string, t reflect.Type) (reflect.Value, error) {
	return reflect.ValueOf(s).Convert(t), nil
}

type boolConverter struct{}

func (boolConverter) ToString(v reflect.Value) (string, error) {
	return strconv.FormatBool(v.Bool()), nil
}
func (boolConverter) FromString(s string, t reflect.Type) (reflect.Value, error) {
	b, err := strconv.ParseBool(s)
	if err != nil {
		return reflect.Value{}, fmt.Errorf("convert: %q is not a bool: %w", s, err)
	}
	return reflect.ValueOf(b).Convert(t), nil
}

type intConverter struct{ bits int }

func (c intConverter) ToString(v reflect.Value) (string, error) {
	return strconv.FormatInt(v.Int(), 10), nil
}
func (c intConverter) FromString(s string, t reflect.Type) (reflect.Value, error) {
	n, err := strconv.ParseInt(s, 10, c.bits)
	if err != nil {
		return reflect.Value{}, fmt.Errorf("convert: %q is not an int%d: %w", s, c.bits, err)
	}
	v := reflect.New(t).Elem()
	v.SetInt(n)
	return v, nil
}

type uintConverter struct{ bits int }

func (c uintConverter) ToString(v reflect.Value) (string, error) {
	return strconv.FormatUint(v.Uint(), 10), nil
}
func (c uintConverter) FromString(s string, t reflect.Type) (reflect.Value, error) {
	n, err := strconv.ParseUint(s, 10, c.bits)
	if err != nil {
		return reflect.Value{}, fmt.Errorf("convert: %q is not a uint%d: %w", s, c.bits, err)
	}
	v := reflect.New(t).Elem()
	v.SetUint(n)
	return v, nil
}

type floatConverter struct{ bits int }

func (c floatConverter) ToString(v reflect.Value) (string, error) {
	return strconv.FormatFloat(v.Float(), 'g', -1, c.bits), nil
}
func (c floatConverter) FromString(s string, t reflect.Type) (reflect.Value, error) {
	n, err := strconv.ParseFloat(s, c.bits)
	if err != nil {
		return reflect.Value{}, fmt.Errorf("convert: %q is not a float%d: %w", s, c.bits, err)
	}
	v := reflect.New(t).Elem()
	v.SetFloat(n)
	return v, nil
}

// EnumConverter adapts an enum-like type (backed by an integer kind) whose
// names are supplied by nameOf/valueOf callbacks, per spec.md's
// "Enumerations: via their textual name using the registered converter."
type EnumConverter struct {
	NameOf  func(v reflect.Value) (string, bool)
	ValueOf func(name string, t reflect.Type) (reflect.Value, bool)
}

func (e EnumConverter) ToString(v reflect.Value) (string, error) {
	name, ok := e.NameOf(v)
	if !ok {
		return "", fmt.Errorf("convert: no name for enum value %v", v)
	}
	return name, nil
}

func (e EnumConverter) FromString(s string, t reflect.Type) (reflect.Value, error) {
	v, ok := e.ValueOf(s, t)
	if !ok {
		return reflect.Value{}, fmt.Errorf("convert: %q is not a valid enum name for %s", s, t)
	}
	return v, nil
}
