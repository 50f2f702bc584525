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
	"fmt"
	"os"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/spf13/cobra"

	"github.com/cascadefs/cascade/cfgerr"
	"github.com/cascadefs/cascade/xmlpersist"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <xmlfile>",
		Short: "Load a cascade configuration file and re-save it to a scratch path.",
		Long: "validate loads xmlfile, re-saves it to a scratch path next to the " +
			"original, and shows a unified diff between the two texts if they " +
			"differ. This is a sanity tool, not a correctness guarantee: the XML " +
			"round trip is not byte-exact (attribute order, whitespace, and " +
			"indentation are not preserved).",
		Args: cobra.ExactArgs(1),
		RunE: validate,
	}
}

func validate(cmd *cobra.Command, args []string) error {
	path := args[0]
	out := cmd.OutOrStdout()

	strat, err := xmlpersist.Open(path)
	if err != nil {
		fmt.Fprintf(out, "load failed (%s): %v\n", cfgerr.KindOf(err), err)
		return err
	}

	scratch := path + ".roundtrip"
	defer os.Remove(scratch)
	if err := strat.SaveTo(scratch); err != nil {
		fmt.Fprintf(out, "round-trip save failed (%s): %v\n", cfgerr.KindOf(err), err)
		return err
	}

	original, err := os.ReadFile(path)
	if err != nil {
		// A file that did not exist before Open (Open tolerates a missing
		// file as an empty document) has nothing to diff against.
		fmt.Fprintln(out, "source file does not exist; nothing to compare against the round trip")
		return nil
	}
	roundTripped, err := os.ReadFile(scratch)
	if err != nil {
		return err
	}

	if string(original) == string(roundTripped) {
		fmt.Fprintln(out, "round trip produced byte-identical output")
		return nil
	}

	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(original)),
		B:        difflib.SplitLines(string(roundTripped)),
		FromFile: path,
		ToFile:   scratch,
		Context:  3,
		Eol:      "\n",
	}
	text, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, "round trip differs:")
	fmt.Fprint(out, text)
	return nil
}
