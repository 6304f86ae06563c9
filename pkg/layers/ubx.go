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
	"errors"
	"fmt"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

func init() {
	initUnknownClassIDs()
	initActualClassIDs()
}

const (
	// UBXLayerNum identifies the layer
	UBXLayerNum = 2100
	// UBXSync1 and UBXSync2 are the magic bytes that appear in the
	// beginning of each UBX frame
	UBXSync1 = 0xB5
	UBXSync2 = 0x62
	// UBXHeaderSize is sync (2) + class (1) + id (1) + length (2)
	UBXHeaderSize = 6
	// UBXChecksumSize is the two trailing checksum bytes CK_A and CK_B
	UBXChecksumSize = 2
	// UBXMaxPayloadSize is the largest payload the u16 length field can declare
	UBXMaxPayloadSize = 65535
)

// UBX message classes
const (
	ClassNav uint8 = 0x01
	ClassAck uint8 = 0x05
	ClassCfg uint8 = 0x06
	ClassMon uint8 = 0x0A
)

// UBX message ids within their classes
const (
	IDNavPosLLH uint8 = 0x02
	IDNavStatus uint8 = 0x03
	IDNavPvt uint8 = 0x07
	IDAckNak uint8 = 0x00
	IDAckAck uint8 = 0x01
	IDCfgPrt uint8 = 0x00
	IDCfgMsg uint8 = 0x01
	IDMonVer uint8 = 0x04
)

// UBXClassID is the two-byte message type key, class in the high byte
type UBXClassID uint16

const (
	ClassIDNavPosLLH UBXClassID = 0x0102
	ClassIDNavStatus UBXClassID = 0x0103
	ClassIDNavPvt UBXClassID = 0x0107
	ClassIDAckNak UBXClassID = 0x0500
	ClassIDAckAck UBXClassID = 0x0501
	ClassIDMonVer UBXClassID = 0x0A04
)

// ClassID combines a class byte and an id byte into the lookup key
func ClassID(class, id uint8) UBXClassID {
	return UBXClassID(uint16(class)<<8 | uint16(id))
}

func (t UBXClassID) Class() uint8 {
	return uint8(t >> 8)
}

func (t UBXClassID) ID() uint8 {
	return uint8(t)
}

var UBXMetadata [65536]layers.EnumMetadata

// Class/id pairs without a registered decode rule are not errors, they are
// decoded as opaque raw messages so that the stream never stops on an
// unknown message type.
func initUnknownClassIDs() {
	for i := 0; i < 65536; i++ {
		UBXMetadata[i] = layers.EnumMetadata{
			DecodeWith: gopacket.DecodeFunc(DecodeUBXRawLayer),
			Name:       "UnknownUBX",
			LayerType:  UBXRawLayerType,
		}
	}
}

func initActualClassIDs() {
	UBXMetadata[ClassIDNavPvt] = layers.EnumMetadata{DecodeWith: gopacket.DecodeFunc(DecodeNavPvtLayer), Name: "NAV-PVT", LayerType: NavPvtLayerType}
	UBXMetadata[ClassIDNavPosLLH] = layers.EnumMetadata{DecodeWith: gopacket.DecodeFunc(DecodeNavPosLLHLayer), Name: "NAV-POSLLH", LayerType: NavPosLLHLayerType}
	UBXMetadata[ClassIDNavStatus] = layers.EnumMetadata{DecodeWith: gopacket.DecodeFunc(DecodeNavStatusLayer), Name: "NAV-STATUS", LayerType: NavStatusLayerType}
	UBXMetadata[ClassIDAckAck] = layers.EnumMetadata{DecodeWith: gopacket.DecodeFunc(DecodeAckLayer), Name: "ACK-ACK", LayerType: AckLayerType}
	UBXMetadata[ClassIDAckNak] = layers.EnumMetadata{DecodeWith: gopacket.DecodeFunc(DecodeAckLayer), Name: "ACK-NAK", LayerType: AckLayerType}
	UBXMetadata[ClassIDMonVer] = layers.EnumMetadata{DecodeWith: gopacket.DecodeFunc(DecodeMonVerLayer), Name: "MON-VER", LayerType: MonVerLayerType}
}

// LayerType returns UBXMetadata.LayerType
func (t UBXClassID) LayerType() gopacket.LayerType {
	return UBXMetadata[t].LayerType
}

// Decode calls UBXMetadata.DecodeWith's decoder
func (t UBXClassID) Decode(data []byte, p gopacket.PacketBuilder) error {
	return UBXMetadata[t].DecodeWith.Decode(data, p)
}

// String returns UBXMetadata.Name
func (t UBXClassID) String() string {
	return UBXMetadata[t].Name
}

// Checksum computes the UBX 8-bit Fletcher checksum pair over the given
// bytes. The protocol defines it over everything from the class byte
// through the end of the payload.
func Checksum(data []byte) (ckA, ckB uint8) {
	for _, b := range data {
		ckA += b
		ckB += ckA
	}
	return ckA, ckB
}

type UBXHeader struct {
	Class uint8
	ID uint8
	Len uint16 // payload length in bytes, little-endian on the wire
}

type UBXLayer struct {
	layers.BaseLayer
	UBXHeader
	CkA uint8
	CkB uint8
}

var UBXLayerType = gopacket.RegisterLayerType(UBXLayerNum,
	gopacket.LayerTypeMetadata{Name: "UBXLayerType", Decoder: gopacket.DecodeFunc(decodeUBXLayer)})

func (u *UBXLayer) LayerType() gopacket.LayerType {
	return UBXLayerType
}

// SerializeTo serializes the frame into bytes and writes the bytes to the
// SerializeBuffer. The payload must already be in the buffer. The checksum
// is always recomputed since it is a function of everything that precedes it.
func (u *UBXLayer) SerializeTo(b gopacket.SerializeBuffer, opts gopacket.SerializeOptions) error {
	payloadLen := len(b.Bytes())
	if opts.FixLengths {
		u.Len = uint16(payloadLen)
	}

	header, err := b.PrependBytes(UBXHeaderSize)
	if err != nil {
		return err
	}
	header[0] = UBXSync1
	header[1] = UBXSync2
	header[2] = u.Class
	header[3] = u.ID
	binary.LittleEndian.PutUint16(header[4:6], u.Len)

	u.CkA, u.CkB = Checksum(b.Bytes()[2:])
	tail, err := b.AppendBytes(UBXChecksumSize)
	if err != nil {
		return err
	}
	tail[0] = u.CkA
	tail[1] = u.CkB
	return nil
}

// DecodeFromBytes attempts to decode the byte slice as a UBX frame
func (u *UBXLayer) DecodeFromBytes(data []byte, df gopacket.DecodeFeedback) error {
	if len(data) < UBXHeaderSize+UBXChecksumSize {
		df.SetTruncated()
		return errors.New("UBX frame too short")
	}

	if data[0] != UBXSync1 || data[1] != UBXSync2 {
		return fmt.Errorf("Wrong UBX sync. Must be 0x%02x 0x%02x", UBXSync1, UBXSync2)
	}

	u.Class = data[2]
	u.ID = data[3]
	u.Len = binary.LittleEndian.Uint16(data[4:6])

	total := UBXHeaderSize + int(u.Len) + UBXChecksumSize
	if len(data) < total {
		df.SetTruncated()
		return fmt.Errorf("UBX frame truncated: declared payload %d, have %d bytes", u.Len, len(data))
	}

	u.CkA = data[total-2]
	u.CkB = data[total-1]
	ckA, ckB := Checksum(data[2 : total-2])
	if ckA != u.CkA || ckB != u.CkB {
		return fmt.Errorf("Wrong UBX checksum: computed 0x%02x 0x%02x, declared 0x%02x 0x%02x", ckA, ckB, u.CkA, u.CkB)
	}

	u.BaseLayer = layers.BaseLayer{
		Contents: data[0:UBXHeaderSize],
		Payload: data[UBXHeaderSize : total-2],
	}
	return nil
}

func (u *UBXLayer) NextLayerType() gopacket.LayerType {
	return ClassID(u.Class, u.ID).LayerType()
}

func decodeUBXLayer(data []byte, p gopacket.PacketBuilder) error {
	u := &UBXLayer{}
	err := u.DecodeFromBytes(data, p)
	if err != nil {
		return err
	}
	p.AddLayer(u)
	if u.Len == 0 {
		// Poll requests carry no payload, there is nothing left to decode
		return nil
	}
	return p.NextDecoder(ClassID(u.Class, u.ID))
}

// EncodeFrame serializes a complete UBX frame for the given class, id and
// payload, including sync bytes and checksum
func EncodeFrame(class, id uint8, payload []byte) ([]byte, error) {
	buf := gopacket.NewSerializeBuffer()
	if len(payload) > 0 {
		bytes, err := buf.AppendBytes(len(payload))
		if err != nil {
			return nil, err
		}
		copy(bytes, payload)
	}
	u := &UBXLayer{UBXHeader: UBXHeader{Class: class, ID: id, Len: uint16(len(payload))}}
	if err := u.SerializeTo(buf, gopacket.SerializeOptions{}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
