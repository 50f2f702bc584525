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

package xmlpersist_test

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/cascadefs/cascade/config"
	"github.com/cascadefs/cascade/xmlpersist"
)

// TestXMLRoundTrip is spec.md §8 scenario 3 verbatim: a base layer with a
// string item carrying a two-line comment and a nested-node int slice item,
// saved then reloaded into a fresh layer at the same path.
func TestXMLRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cascade.xml")

	strat, err := xmlpersist.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	base := config.NewBase("root", strat)

	itA, err := config.AddItem[string](base, "a", "π")
	if err != nil {
		t.Fatalf("AddItem(a): %v", err)
	}
	if err := itA.SetComment("line1\nline2"); err != nil {
		t.Fatalf("SetComment: %v", err)
	}

	childA, err := base.CreateChild("a")
	if err != nil {
		t.Fatalf("CreateChild(a): %v", err)
	}
	itB, err := config.AddItem[[]int](childA, "b", []int{1, 2, 3})
	if err != nil {
		t.Fatalf("AddItem(b): %v", err)
	}
	_ = itB

	if err := base.Save(0); err != nil {
		t.Fatalf("Save: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	text := string(raw)
	if !strings.Contains(text, `<Item name="a">`) {
		t.Errorf("saved document missing <Item name=\"a\">:\n%s", text)
	}
	idx := strings.Index(text, `<Item name="a">`)
	before := text[:idx]
	if !strings.Contains(before, "<!--line1-->") || !strings.Contains(before, "<!--line2-->") {
		t.Errorf("expected two comment nodes \"line1\"/\"line2\" before <Item name=\"a\">:\n%s", before)
	}
	if strings.Index(before, "<!--line1-->") > strings.Index(before, "<!--line2-->") {
		t.Errorf("comment nodes out of order:\n%s", before)
	}

	freshStrat, err := xmlpersist.Open(path)
	if err != nil {
		t.Fatalf("Open (fresh): %v", err)
	}
	freshBase := config.NewBase("root", freshStrat)
	freshA, err := config.AddItem[string](freshBase, "a", "")
	if err != nil {
		t.Fatalf("AddItem(a) fresh: %v", err)
	}
	freshChildA, err := freshBase.CreateChild("a")
	if err != nil {
		t.Fatalf("CreateChild(a) fresh: %v", err)
	}
	freshB, err := config.AddItem[[]int](freshChildA, "b", nil)
	if err != nil {
		t.Fatalf("AddItem(b) fresh: %v", err)
	}

	if err := freshBase.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if v, ok := freshA.Value(false); !ok || v != "π" {
		t.Errorf("loaded /a = %q,%v, want %q,true", v, ok, "π")
	}
	if c, ok := freshA.OwnComment(); !ok || c != "line1\nline2" {
		t.Errorf("loaded /a comment = %q,%v, want %q,true", c, ok, "line1\nline2")
	}
	if v, ok := freshB.Value(false); !ok || len(v) != 3 || v[0] != 1 || v[1] != 2 || v[2] != 3 {
		t.Errorf("loaded /a/b = %v,%v, want [1 2 3],true", v, ok)
	}
	if freshBase.Modified() {
		t.Error("Modified() true after Load")
	}
}

func TestIsValidConfigurationNameRejectsXMLReserved(t *testing.T) {
	strat, err := xmlpersist.Open(filepath.Join(t.TempDir(), "c.xml"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	for _, name := range []string{"xml", "XML", "xmlns", "xmlFoo"} {
		if strat.IsValidConfigurationName(name) {
			t.Errorf("IsValidConfigurationName(%q) = true, want false (XML-reserved)", name)
		}
	}
	for _, name := range []string{"foo", "bar-baz", "a.b", "item1"} {
		if !strat.IsValidConfigurationName(name) {
			t.Errorf("IsValidConfigurationName(%q) = false, want true", name)
		}
	}
}

func TestIsValidItemNameRejectsWhitespaceAndSlash(t *testing.T) {
	strat, err := xmlpersist.Open(filepath.Join(t.TempDir(), "c.xml"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	for _, name := range []string{"has space", "has/slash", ""} {
		if strat.IsValidItemName(name) {
			t.Errorf("IsValidItemName(%q) = true, want false", name)
		}
	}
}

func TestMissingFileLoadsAsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "does-not-exist.xml")
	strat, err := xmlpersist.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	base := config.NewBase("root", strat)
	it, err := config.AddItem[int](base, "n", 1)
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if err := base.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if v, ok := it.Value(false); ok {
		t.Errorf("Value after loading a nonexistent file = %d,%v, want _,false", v, ok)
	}
}

func TestDumpOrdersByCompareNames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dump.xml")
	strat, err := xmlpersist.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	base := config.NewBase("root", strat)
	if _, err := config.AddItem[string](base, "Zebra", "z"); err != nil {
		t.Fatalf("AddItem(Zebra): %v", err)
	}
	if _, err := config.AddItem[string](base, "alpha", "a"); err != nil {
		t.Fatalf("AddItem(alpha): %v", err)
	}
	if err := base.Save(0); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reopened, err := xmlpersist.Open(path)
	if err != nil {
		t.Fatalf("Open (reread): %v", err)
	}
	dump := reopened.Dump()
	if len(dump.Items) != 2 || dump.Items[0].Name != "alpha" || dump.Items[1].Name != "Zebra" {
		t.Errorf("Dump().Items = %+v, want [alpha Zebra] order", dump.Items)
	}
}

func TestSaveToLeavesOriginalPathUntouched(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orig.xml")
	strat, err := xmlpersist.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	base := config.NewBase("root", strat)
	if _, err := config.AddItem[string](base, "a", "v"); err != nil {
		t.Fatalf("AddItem: %v", err)
	}

	scratch := filepath.Join(t.TempDir(), "scratch.xml")
	if err := strat.SaveTo(scratch); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("SaveTo must not create %s", path)
	}
	if _, err := os.Stat(scratch); err != nil {
		t.Errorf("SaveTo did not create %s: %v", scratch, err)
	}
}

func TestSupportsTypeStruct(t *testing.T) {
	type point struct {
		X int
		Y int
	}
	strat, err := xmlpersist.Open(filepath.Join(t.TempDir(), "c.xml"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if !strat.SupportsType(reflect.TypeOf(point{})) {
		t.Error("SupportsType(point{X,Y int}) = false, want true")
	}
}
