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

package captures

import (
	"fmt"

	"github.com/spf13/cobra"

	"jinr.ru/greenlab/go-ubx/pkg/capture"
	"jinr.ru/greenlab/go-ubx/pkg/config"
)

// NewCommand creates the captures command which lists recorded sessions
// from the local session database
func NewCommand() *cobra.Command {
	cfg := config.NewDefaultConfig()
	cfg.Load()
	cmd := &cobra.Command{
		Use:           "captures",
		Short:         "List recorded capture sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := capture.NewSessionState(cfg)
			if err != nil {
				return err
			}
			defer state.Close()
			records, err := state.List()
			if err != nil {
				return err
			}
			for _, record := range records {
				fmt.Fprintln(cmd.OutOrStdout(), "---")
				fmt.Fprint(cmd.OutOrStdout(), record.String())
			}
			return nil
		},
	}
	return cmd
}
