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

	"github.com/kylelemons/godebug/pretty"
	"github.com/spf13/cobra"

	"github.com/cascadefs/cascade/xmlpersist"
)

func newDumpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dump <xmlfile>",
		Short: "Print a cascade configuration file's tree, compare-ordered.",
		Args:  cobra.ExactArgs(1),
		RunE:  dump,
	}
}

func dump(cmd *cobra.Command, args []string) error {
	strat, err := xmlpersist.Open(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), pretty.Sprint(strat.Dump()))
	return nil
}
