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

package read

import (
	"github.com/spf13/cobra"

	"jinr.ru/greenlab/go-ubx/pkg/capture"
	"jinr.ru/greenlab/go-ubx/pkg/config"
)

const (
	FileOptionName = "file"
)

// NewCommand creates the read command. It decodes a previously captured
// UBX file, plain or gzip compressed, and prints every message.
func NewCommand() *cobra.Command {
	var file string
	cfg := config.NewDefaultConfig()
	cfg.Load()
	cmd := &cobra.Command{
		Use:           "read",
		Short:         "Read and decode a UBX capture file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := file
			if path == "" && len(args) > 0 {
				path = args[0]
			}
			if path == "" {
				return cmd.Help()
			}
			replay := capture.NewReplay(cfg, path, &capture.Printer{Out: cmd.OutOrStdout()})
			return replay.Run()
		},
	}
	cmd.Flags().StringVarP(&file, FileOptionName, "f", "", "Local .ubx file path, can be gzip compressed")

	return cmd
}
