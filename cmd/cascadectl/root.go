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

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// rootCmd builds the cascadectl command tree: a --config flag bound through
// viper for cascadectl's own process configuration, independent of whatever
// cascade configuration file a subcommand operates on. The file is read into
// viper, but neither dump nor validate reads a setting from it.
func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "cascadectl",
		Short: "cascadectl inspects and validates cascade configuration files",
	}

	cfgFile := root.PersistentFlags().String("config", "", "Path to cascadectl's own config file.")
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if *cfgFile != "" {
			viper.SetConfigFile(*cfgFile)
			if err := viper.ReadInConfig(); err != nil {
				return fmt.Errorf("error reading config: %w", err)
			}
		}
		viper.BindPFlags(cmd.Flags())
		viper.AutomaticEnv()
		return nil
	}

	root.AddCommand(newDumpCmd())
	root.AddCommand(newValidateCmd())
	return root
}
