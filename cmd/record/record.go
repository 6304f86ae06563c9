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

package record

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"jinr.ru/greenlab/go-ubx/pkg/capture"
	"jinr.ru/greenlab/go-ubx/pkg/config"
)

const (
	DeviceOptionName = "device"
	BaudOptionName = "baud"
	OutputOptionName = "output"
	ConfigureOptionName = "configure"
)

// NewCommand creates the record command. It captures UBX frames from the
// serial device into a file until interrupted.
func NewCommand() *cobra.Command {
	var device, output string
	var baud int
	var configure bool
	cfg := config.NewDefaultConfig()
	cfg.Load()
	cmd := &cobra.Command{
		Use:           "record",
		Short:         "Record a UBX capture file from a u-blox receiver",
		RunE: func(cmd *cobra.Command, args []string) error {
			if device != "" {
				cfg.Device = device
			}
			if baud != 0 {
				cfg.Baud = baud
			}
			if output != "" {
				cfg.Output = output
			}
			if configure {
				cfg.Configure = true
			}

			// Interrupt stops the capture cleanly, the sink is flushed
			// before exit
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			server := capture.NewServer(ctx, cfg)
			return server.Run()
		},
	}
	cmd.Flags().StringVarP(&device, DeviceOptionName, "d", "", "Serial device to open. E.g. /dev/ttyACM0")
	cmd.Flags().IntVarP(&baud, BaudOptionName, "s", 0, "Baud rate of the serial device")
	cmd.Flags().StringVarP(&output, OutputOptionName, "o", "", "Output file name. A .gz suffix enables compression")
	cmd.Flags().BoolVar(&configure, ConfigureOptionName, false, "Enable NAV-PVT output and poll MON-VER before capturing")

	return cmd
}
