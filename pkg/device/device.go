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

package device

import (
	"io"
	"os"

	"jinr.ru/greenlab/go-ubx/pkg/config"
	"jinr.ru/greenlab/go-ubx/pkg/layers"
	"jinr.ru/greenlab/go-ubx/pkg/log"
)

// Device is a u-blox receiver attached to a serial port. The port is put
// into raw mode with a bounded read timeout so the capture loop can observe
// a stop request between reads.
type Device struct {
	file *os.File
	path string
}

func Open(cfg *config.SerialConfig) (*Device, error) {
	log.Info("Opening serial device: %s baud: %d", cfg.Device, cfg.Baud)
	file, err := openSerial(cfg.Device, cfg.Baud)
	if err != nil {
		return nil, err
	}
	return &Device{
		file: file,
		path: cfg.Device,
	}, nil
}

// Read reads available bytes from the port. A read timeout is reported as
// (0, nil), a serial line has no end-of-stream.
func (d *Device) Read(p []byte) (int, error) {
	n, err := d.file.Read(p)
	if n == 0 && err == io.EOF {
		return 0, nil
	}
	return n, err
}

func (d *Device) Write(p []byte) (int, error) {
	return d.file.Write(p)
}

func (d *Device) Close() error {
	return d.file.Close()
}

func (d *Device) Path() string {
	return d.path
}

// EnableMessageAllSerial asks the receiver to emit the given message with
// rate 1 on UART1, UART2 and USB
func (d *Device) EnableMessageAllSerial(class, id uint8) error {
	frame, err := layers.NewCfgMsgAllSerial(class, id).Frame()
	if err != nil {
		return err
	}
	log.Debug("Sending CFG-MSG for class 0x%02x id 0x%02x", class, id)
	_, err = d.file.Write(frame)
	return err
}

// Poll requests a single transmission of the given message
func (d *Device) Poll(class, id uint8) error {
	frame, err := layers.PollFrame(class, id)
	if err != nil {
		return err
	}
	log.Debug("Polling class 0x%02x id 0x%02x", class, id)
	_, err = d.file.Write(frame)
	return err
}

// ConfigureUart applies an 8N1 UBX-in/UBX-out configuration with the given
// baud rate to the selected receiver port
func (d *Device) ConfigureUart(portID uint8, baud uint32) error {
	cfg := &layers.CfgPrtUart{
		PortID: portID,
		Mode: layers.UartCharLen8 | layers.UartParityNone | layers.UartStopBits1,
		BaudRate: baud,
		InProtoMask: layers.ProtoMaskUBX,
		OutProtoMask: layers.ProtoMaskUBX,
	}
	frame, err := cfg.Frame()
	if err != nil {
		return err
	}
	log.Debug("Sending CFG-PRT for port %d baud %d", portID, baud)
	_, err = d.file.Write(frame)
	return err
}
