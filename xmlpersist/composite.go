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
	"bytes"
	"encoding/xml"
	"fmt"
	"reflect"

	"github.com/cascadefs/cascade/convert"
)

// buildComposite is installed as reg's fallback builder: it is called the
// first time Converters().Get is asked for a type with no scalar/enum
// entry, and builds a slice or struct converter by recursing on the
// registry itself (so a struct of slices of scalars, for instance, builds
// and memoizes each layer's converter in turn).
func buildComposite(reg *convert.Registry, t reflect.Type) (convert.Converter, bool) {
	switch t.Kind() {
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Slice {
			return nil, false
		}
		elemConv, ok := reg.Get(t.Elem())
		if !ok {
			return nil, false
		}
		return sliceConverter{elem: elemConv, elemType: t.Elem()}, true
	case reflect.Struct:
		fields := make([]structField, 0, t.NumField())
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if !f.IsExported() {
				continue
			}
			conv, ok := reg.Get(f.Type)
			if !ok {
				return nil, false
			}
			fields = append(fields, structField{index: i, name: f.Name, typ: f.Type, conv: conv})
		}
		return structConverter{typ: t, fields: fields}, true
	default:
		return nil, false
	}
}

// sliceConverter renders a one-dimensional slice as consecutive unnamed
// <Item> elements and parses the inverse, per the serialization rule "one-
// dimensional arrays: written as nested <Item> elements (no name
// attribute) inside the parent <Item>".
type sliceConverter struct {
	elem     convert.Converter
	elemType reflect.Type
}

func (c sliceConverter) ToString(v reflect.Value) (string, error) {
	var buf bytes.Buffer
	enc := xml.NewEncoder(&buf)
	for i := 0; i < v.Len(); i++ {
		s, err := c.elem.ToString(v.Index(i))
		if err != nil {
			return "", fmt.Errorf("xmlpersist: encoding slice element %d: %w", i, err)
		}
		if err := writeElement(enc, &element{name: "Item", text: s}); err != nil {
			return "", err
		}
	}
	if err := enc.Flush(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (c sliceConverter) FromString(s string, t reflect.Type) (reflect.Value, error) {
	root, err := parseFragment(s)
	if err != nil {
		return reflect.Value{}, fmt.Errorf("xmlpersist: parsing slice fragment: %w", err)
	}
	result := reflect.MakeSlice(t, 0, len(root.children))
	for i, child := range root.children {
		text := child.text
		if len(child.children) > 0 {
			text, err = renderChildren(child)
			if err != nil {
				return reflect.Value{}, err
			}
		}
		ev, err := c.elem.FromString(text, c.elemType)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("xmlpersist: decoding slice element %d: %w", i, err)
		}
		result = reflect.Append(result, ev)
	}
	return result, nil
}

type structField struct {
	index int
	name  string
	typ   reflect.Type
	conv  convert.Converter
}

// structConverter renders a struct's exported fields as <Field name="…">
// children, per the serialization rule for complex types.
type structConverter struct {
	typ    reflect.Type
	fields []structField
}

func (c structConverter) ToString(v reflect.Value) (string, error) {
	var buf bytes.Buffer
	enc := xml.NewEncoder(&buf)
	for _, f := range c.fields {
		s, err := f.conv.ToString(v.Field(f.index))
		if err != nil {
			return "", fmt.Errorf("xmlpersist: encoding field %s: %w", f.name, err)
		}
		el := &element{name: "Field", attrName: f.name, text: s}
		if err := writeElement(enc, el); err != nil {
			return "", err
		}
	}
	if err := enc.Flush(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (c structConverter) FromString(s string, t reflect.Type) (reflect.Value, error) {
	root, err := parseFragment(s)
	if err != nil {
		return reflect.Value{}, fmt.Errorf("xmlpersist: parsing struct fragment: %w", err)
	}
	result := reflect.New(t).Elem()
	for _, f := range c.fields {
		fieldEl := findChild(root, "Field", f.name)
		if fieldEl == nil {
			// Missing fields are left at their zero value, mirroring
			// "unknown fields are ignored" for the reverse direction.
			continue
		}
		text := fieldEl.text
		if len(fieldEl.children) > 0 {
			text, err = renderChildren(fieldEl)
			if err != nil {
				return reflect.Value{}, err
			}
		}
		fv, err := f.conv.FromString(text, f.typ)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("xmlpersist: decoding field %s: %w", f.name, err)
		}
		result.Field(f.index).Set(fv)
	}
	return result, nil
}
