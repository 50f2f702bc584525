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

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cascadefs/cascade/config"
	"github.com/cascadefs/cascade/xmlpersist"
)

func writeFixture(t *testing.T, path string) {
	t.Helper()
	strat, err := xmlpersist.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	base := config.NewBase("root", strat)
	if _, err := config.AddItem[string](base, "name", "primary"); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if err := base.Save(0); err != nil {
		t.Fatalf("Save: %v", err)
	}
}

func TestDumpCommandPrintsTree(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.xml")
	writeFixture(t, path)

	cmd := rootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"dump", path})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(out.String(), "name") || !strings.Contains(out.String(), "primary") {
		t.Errorf("dump output missing expected item; got:\n%s", out.String())
	}
}

func TestValidateCommandReportsIdenticalRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.xml")
	writeFixture(t, path)

	cmd := rootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"validate", path})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(out.String(), "byte-identical") {
		t.Errorf("expected a byte-identical round-trip report, got:\n%s", out.String())
	}

	scratch := path + ".roundtrip"
	if _, err := os.Stat(scratch); !os.IsNotExist(err) {
		t.Errorf("scratch file %s was not cleaned up", scratch)
	}
}

func TestValidateCommandOnMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "does-not-exist.xml")

	cmd := rootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"validate", path})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(out.String(), "nothing to compare") {
		t.Errorf("expected a nothing-to-compare message, got:\n%s", out.String())
	}
}
