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
	"io"
	"strings"
)

// element is the in-memory representation of one <Configuration>, <Item>,
// or <Field> node. Its shape is deliberately generic (no struct tags, no
// schema) since the document's nesting depth and item types are only known
// at runtime via the config tree the strategy backs.
type element struct {
	name     string // "Configuration", "Item", or "Field"
	attrName string // the name="..." attribute; "" for unnamed array Item children
	text     string // inner character data, set only when children is empty
	comments []string
	children []*element
}

func findChild(el *element, tag, name string) *element {
	if el == nil {
		return nil
	}
	for _, c := range el.children {
		if c.name == tag && equalNames(c.attrName, name) {
			return c
		}
	}
	return nil
}

func ensureChild(el *element, tag, name string) *element {
	if child := findChild(el, tag, name); child != nil {
		return child
	}
	child := &element{name: tag, attrName: name}
	el.children = append(el.children, child)
	return child
}

func equalNames(a, b string) bool {
	return strings.EqualFold(a, b)
}

// parseConfigurationFile reads a <ConfigurationFile> document and returns
// its single <Configuration> child. A document with no <ConfigurationFile>
// root, or one with no <Configuration> child, yields an empty root rather
// than an error.
func parseConfigurationFile(r io.Reader) (*element, error) {
	dec := xml.NewDecoder(r)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return emptyRoot(), nil
		}
		if err != nil {
			return nil, err
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if se.Name.Local != "ConfigurationFile" {
			// Skip this element's subtree and keep looking.
			if err := dec.Skip(); err != nil {
				return nil, err
			}
			continue
		}
		fileRoot, err := parseElement(dec, se)
		if err != nil {
			return nil, err
		}
		for _, c := range fileRoot.children {
			if c.name == "Configuration" {
				return c, nil
			}
		}
		return emptyRoot(), nil
	}
}

// parseElement recursively builds the element tree rooted at start, whose
// xml.StartElement token has already been consumed from dec.
func parseElement(dec *xml.Decoder, start xml.StartElement) (*element, error) {
	el := &element{name: start.Name.Local}
	for _, a := range start.Attr {
		if a.Name.Local == "name" {
			el.attrName = a.Value
		}
	}

	var pending []string
	var text strings.Builder
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			child, err := parseElement(dec, t)
			if err != nil {
				return nil, err
			}
			child.comments = pending
			pending = nil
			el.children = append(el.children, child)
		case xml.EndElement:
			el.text = text.String()
			return el, nil
		case xml.CharData:
			text.Write(t)
		case xml.Comment:
			pending = append(pending, strings.TrimSpace(string(t)))
		}
	}
}

// parseFragment parses s (a bare sequence of sibling elements with no
// single root, e.g. "<Item>1</Item><Item>2</Item>") by wrapping it in a
// synthetic root and returning that root (whose children are the parsed
// fragment's top-level elements).
func parseFragment(s string) (*element, error) {
	dec := xml.NewDecoder(strings.NewReader("<_fragment>" + s + "</_fragment>"))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	se, ok := tok.(xml.StartElement)
	if !ok {
		return &element{}, nil
	}
	return parseElement(dec, se)
}

// looksLikeFragment reports whether value is raw nested-element markup
// (produced by a composite value converter) rather than plain scalar text.
func looksLikeFragment(value string) bool {
	return strings.HasPrefix(strings.TrimSpace(value), "<")
}

// renderChildren re-serializes el's children as raw XML text, the inverse
// of looksLikeFragment/parseFragment: used when an Item's persisted value
// is a composite (array/struct) represented as nested elements rather than
// character data.
func renderChildren(el *element) (string, error) {
	var buf bytes.Buffer
	enc := xml.NewEncoder(&buf)
	for _, c := range el.children {
		if err := writeElement(enc, c); err != nil {
			return "", err
		}
	}
	if err := enc.Flush(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// encodeDocument writes root (the <Configuration> representing a cascade's
// base layer) wrapped in a <ConfigurationFile> root element.
func encodeDocument(w io.Writer, root *element) error {
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	fileStart := xml.StartElement{Name: xml.Name{Local: "ConfigurationFile"}}
	if err := enc.EncodeToken(fileStart); err != nil {
		return err
	}
	if err := writeElement(enc, root); err != nil {
		return err
	}
	if err := enc.EncodeToken(xml.EndElement{Name: fileStart.Name}); err != nil {
		return err
	}
	return enc.Flush()
}

// writeElement emits el (its leading comments, start tag, text-or-children,
// end tag). Text that looksLikeFragment is re-emitted as literal child
// tokens rather than escaped character data, so a composite value's nested
// <Item>/<Field> markup appears as real elements in the saved document.
func writeElement(enc *xml.Encoder, el *element) error {
	for _, c := range el.comments {
		if err := enc.EncodeToken(xml.Comment([]byte(c))); err != nil {
			return err
		}
	}

	var attrs []xml.Attr
	if el.attrName != "" {
		attrs = append(attrs, xml.Attr{Name: xml.Name{Local: "name"}, Value: el.attrName})
	}
	start := xml.StartElement{Name: xml.Name{Local: el.name}, Attr: attrs}
	if err := enc.EncodeToken(start); err != nil {
		return err
	}

	switch {
	case len(el.children) > 0:
		for _, c := range el.children {
			if err := writeElement(enc, c); err != nil {
				return err
			}
		}
	case looksLikeFragment(el.text):
		if err := writeRawFragment(enc, el.text); err != nil {
			return err
		}
	case el.text != "":
		if err := enc.EncodeToken(xml.CharData([]byte(el.text))); err != nil {
			return err
		}
	}

	return enc.EncodeToken(xml.EndElement{Name: start.Name})
}

// writeRawFragment re-parses fragment (wrapped in a synthetic root) and
// copies its tokens straight to enc, skipping the synthetic wrapper itself.
func writeRawFragment(enc *xml.Encoder, fragment string) error {
	dec := xml.NewDecoder(strings.NewReader("<_fragment>" + fragment + "</_fragment>"))
	depth := 0
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			if depth == 1 {
				continue
			}
			if err := enc.EncodeToken(t.Copy()); err != nil {
				return err
			}
		case xml.EndElement:
			depth--
			if depth == 0 {
				continue
			}
			if err := enc.EncodeToken(t); err != nil {
				return err
			}
		default:
			if depth >= 1 {
				if err := enc.EncodeToken(xml.CopyToken(tok)); err != nil {
					return err
				}
			}
		}
	}
}
