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
	"fmt"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"jinr.ru/greenlab/go-ubx/pkg/log"
)

const (
	// AckLayerNum identifies the layer
	AckLayerNum = 2105
	AckSize = 2
)

// AckLayer is the UBX-ACK-ACK/UBX-ACK-NAK message acknowledging (or
// rejecting) a CFG message previously sent to the receiver. The payload
// carries the class and id of the acknowledged message.
type AckLayer struct {
	layers.BaseLayer
	ClsID uint8
	MsgID uint8
}

var AckLayerType = gopacket.RegisterLayerType(AckLayerNum,
	gopacket.LayerTypeMetadata{Name: "AckLayerType", Decoder: gopacket.DecodeFunc(DecodeAckLayer)})

func (ack *AckLayer) LayerType() gopacket.LayerType {
	return AckLayerType
}

func (ack *AckLayer) DecodeFromBytes(data []byte, df gopacket.DecodeFeedback) error {
	if len(data) < AckSize {
		df.SetTruncated()
		return fmt.Errorf("ACK payload too short: %d bytes, want %d", len(data), AckSize)
	}

	ack.BaseLayer = layers.BaseLayer{
		Contents: data[:],
		Payload: []byte{},
	}

	ack.ClsID = data[0]
	ack.MsgID = data[1]
	return nil
}

func (ack *AckLayer) String() string {
	return fmt.Sprintf("acknowledged class: 0x%02x id: 0x%02x", ack.ClsID, ack.MsgID)
}

func DecodeAckLayer(data []byte, p gopacket.PacketBuilder) error {
	ack := &AckLayer{}
	err := ack.DecodeFromBytes(data, p)
	if err != nil {
		log.Warning("Malformed ACK payload: %s", err)
		return DecodeUBXRawLayer(data, p)
	}
	p.AddLayer(ack)
	return nil
}
