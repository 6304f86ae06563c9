/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package config

import (
	"fmt"

	"github.com/spf13/cobra"

	pkgconfig "jinr.ru/greenlab/go-ubx/pkg/config"
)

const (
	OverwriteOptionName = "overwrite"
)

// NewCommand creates the config command with its subcommands
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage go-ubx configuration",
	}
	cmd.AddCommand(NewGenerateCommand())
	cmd.AddCommand(NewShowCommand())
	return cmd
}

// NewGenerateCommand creates the subcommand that writes the default config
// file to disk
func NewGenerateCommand() *cobra.Command {
	var overwrite bool
	cmd := &cobra.Command{
		Use:           "generate",
		Short:         "Write the default config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := pkgconfig.NewDefaultConfig()
			return cfg.Persist(overwrite)
		},
	}
	cmd.Flags().BoolVar(&overwrite, OverwriteOptionName, false, "Overwrite the config file if it exists")
	return cmd
}

// NewShowCommand creates the subcommand that prints the effective config
func NewShowCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "show",
		Short:         "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := pkgconfig.NewDefaultConfig()
			if err := cfg.Load(); err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), cfg.String())
			return nil
		},
	}
	return cmd
}
