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

package layers

import (
	"encoding/binary"
)

const (
	CfgPrtUartSize = 20
	CfgMsgSize = 8
	// CfgMsgNumPorts is the number of per-port rate slots in CFG-MSG:
	// I2C, UART1, UART2, USB, SPI and one reserved
	CfgMsgNumPorts = 6
)

// UART port ids for CFG-PRT
const (
	PortIDI2C uint8 = 0
	PortIDUart1 uint8 = 1
	PortIDUart2 uint8 = 2
	PortIDUsb uint8 = 3
	PortIDSpi uint8 = 4
)

// Protocol masks for CFG-PRT in/out
const (
	ProtoMaskUBX uint16 = 0x0001
	ProtoMaskNMEA uint16 = 0x0002
	ProtoMaskRTCM uint16 = 0x0004
)

// UART mode field bits
const (
	UartCharLen7 uint32 = 0x2 << 6
	UartCharLen8 uint32 = 0x3 << 6
	UartParityEven uint32 = 0x0 << 9
	UartParityOdd uint32 = 0x1 << 9
	UartParityNone uint32 = 0x4 << 9
	UartStopBits1 uint32 = 0x0 << 12
	UartStopBits2 uint32 = 0x2 << 12
)

// CfgPrtUart is the UBX-CFG-PRT port configuration for a UART/USB port.
// It is serialize-only, the recorder never reads port configuration back.
type CfgPrtUart struct {
	PortID uint8
	TxReady uint16
	Mode uint32
	BaudRate uint32
	InProtoMask uint16
	OutProtoMask uint16
	Flags uint16
}

// Serialize serializes the CFG-PRT payload to a buffer of CfgPrtUartSize bytes
func (cfg *CfgPrtUart) Serialize(buf []byte) {
	buf[0] = cfg.PortID
	buf[1] = 0 // reserved
	binary.LittleEndian.PutUint16(buf[2:4], cfg.TxReady)
	binary.LittleEndian.PutUint32(buf[4:8], cfg.Mode)
	binary.LittleEndian.PutUint32(buf[8:12], cfg.BaudRate)
	binary.LittleEndian.PutUint16(buf[12:14], cfg.InProtoMask)
	binary.LittleEndian.PutUint16(buf[14:16], cfg.OutProtoMask)
	binary.LittleEndian.PutUint16(buf[16:18], cfg.Flags)
	buf[18] = 0 // reserved
	buf[19] = 0 // reserved
}

// Frame returns the CFG-PRT payload wrapped into a complete UBX frame
func (cfg *CfgPrtUart) Frame() ([]byte, error) {
	payload := make([]byte, CfgPrtUartSize)
	cfg.Serialize(payload)
	return EncodeFrame(ClassCfg, IDCfgPrt, payload)
}

// CfgMsg is the UBX-CFG-MSG message rate configuration. Rates are
// per-port: I2C, UART1, UART2, USB, SPI, reserved.
type CfgMsg struct {
	MsgClass uint8
	MsgID uint8
	Rates [CfgMsgNumPorts]uint8
}

// NewCfgMsgAllSerial enables the given message with rate 1 on UART1, UART2
// and USB, leaving I2C and SPI alone
func NewCfgMsgAllSerial(class, id uint8) *CfgMsg {
	return &CfgMsg{
		MsgClass: class,
		MsgID: id,
		Rates: [CfgMsgNumPorts]uint8{0, 1, 1, 1, 0, 0},
	}
}

// Serialize serializes the CFG-MSG payload to a buffer of CfgMsgSize bytes
func (cfg *CfgMsg) Serialize(buf []byte) {
	buf[0] = cfg.MsgClass
	buf[1] = cfg.MsgID
	copy(buf[2:8], cfg.Rates[:])
}

// Frame returns the CFG-MSG payload wrapped into a complete UBX frame
func (cfg *CfgMsg) Frame() ([]byte, error) {
	payload := make([]byte, CfgMsgSize)
	cfg.Serialize(payload)
	return EncodeFrame(ClassCfg, IDCfgMsg, payload)
}

// PollFrame returns an empty-payload frame that polls the receiver for the
// given message, e.g. PollFrame(ClassMon, IDMonVer) requests MON-VER
func PollFrame(class, id uint8) ([]byte, error) {
	return EncodeFrame(class, id, nil)
}
