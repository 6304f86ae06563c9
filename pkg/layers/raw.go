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
	"encoding/hex"
	"fmt"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

const (
	// UBXRawLayerNum identifies the layer
	UBXRawLayerNum = 2101
)

// UBXRawLayer is the opaque variant of a decoded message. It is used for
// class/id pairs without a registered decode rule and as the degraded form
// of a known message whose payload does not match its layout. The payload
// is copied so the message stays valid after the scan buffer is reused.
type UBXRawLayer struct {
	layers.BaseLayer
	Data []byte
}

var UBXRawLayerType = gopacket.RegisterLayerType(UBXRawLayerNum,
	gopacket.LayerTypeMetadata{Name: "UBXRawLayerType", Decoder: gopacket.DecodeFunc(DecodeUBXRawLayer)})

func (raw *UBXRawLayer) LayerType() gopacket.LayerType {
	return UBXRawLayerType
}

func (raw *UBXRawLayer) DecodeFromBytes(data []byte, df gopacket.DecodeFeedback) error {
	raw.BaseLayer = layers.BaseLayer{
		Contents: data[:],
		Payload: []byte{},
	}
	raw.Data = make([]byte, len(data))
	copy(raw.Data, data)
	return nil
}

func (raw *UBXRawLayer) String() string {
	return fmt.Sprintf("raw payload %d bytes: %s", len(raw.Data), hex.EncodeToString(raw.Data))
}

func DecodeUBXRawLayer(data []byte, p gopacket.PacketBuilder) error {
	raw := &UBXRawLayer{}
	err := raw.DecodeFromBytes(data, p)
	if err != nil {
		return err
	}
	p.AddLayer(raw)
	return nil
}
