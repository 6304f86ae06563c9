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
	"bytes"
	"fmt"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"sigs.k8s.io/yaml"

	"jinr.ru/greenlab/go-ubx/pkg/log"
)

const (
	// MonVerLayerNum identifies the layer
	MonVerLayerNum = 2106
	MonVerSWVersionSize = 30
	MonVerHWVersionSize = 10
	MonVerExtensionSize = 30
	// MonVerMinSize is swVersion plus hwVersion, extensions are a repeated
	// group of 30-byte blocks
	MonVerMinSize = MonVerSWVersionSize + MonVerHWVersionSize
)

// MonVerLayer is the UBX-MON-VER receiver and software version report
type MonVerLayer struct {
	layers.BaseLayer
	SWVersion string
	HWVersion string
	Extensions []string
}

var MonVerLayerType = gopacket.RegisterLayerType(MonVerLayerNum,
	gopacket.LayerTypeMetadata{Name: "MonVerLayerType", Decoder: gopacket.DecodeFunc(DecodeMonVerLayer)})

func (mon *MonVerLayer) LayerType() gopacket.LayerType {
	return MonVerLayerType
}

// cstring trims a fixed-width NUL-padded field
func cstring(data []byte) string {
	if i := bytes.IndexByte(data, 0); i >= 0 {
		return string(data[:i])
	}
	return string(data)
}

func (mon *MonVerLayer) DecodeFromBytes(data []byte, df gopacket.DecodeFeedback) error {
	if len(data) < MonVerMinSize {
		df.SetTruncated()
		return fmt.Errorf("MON-VER payload too short: %d bytes, want at least %d", len(data), MonVerMinSize)
	}
	if (len(data)-MonVerMinSize)%MonVerExtensionSize != 0 {
		return fmt.Errorf("MON-VER extension block not a multiple of %d bytes: %d left over",
			MonVerExtensionSize, (len(data)-MonVerMinSize)%MonVerExtensionSize)
	}

	mon.BaseLayer = layers.BaseLayer{
		Contents: data[:],
		Payload: []byte{},
	}

	mon.SWVersion = cstring(data[0:MonVerSWVersionSize])
	mon.HWVersion = cstring(data[MonVerSWVersionSize:MonVerMinSize])
	mon.Extensions = nil
	for offset := MonVerMinSize; offset < len(data); offset += MonVerExtensionSize {
		mon.Extensions = append(mon.Extensions, cstring(data[offset:offset+MonVerExtensionSize]))
	}
	return nil
}

func (mon *MonVerLayer) String() string {
	view := struct {
		SWVersion string `json:"swVersion"`
		HWVersion string `json:"hwVersion"`
		Extensions []string `json:"extensions,omitempty"`
	}{
		SWVersion: mon.SWVersion,
		HWVersion: mon.HWVersion,
		Extensions: mon.Extensions,
	}
	data, err := yaml.Marshal(view)
	if err != nil {
		return ""
	}
	return string(data)
}

func DecodeMonVerLayer(data []byte, p gopacket.PacketBuilder) error {
	mon := &MonVerLayer{}
	err := mon.DecodeFromBytes(data, p)
	if err != nil {
		log.Warning("Malformed MON-VER payload: %s", err)
		return DecodeUBXRawLayer(data, p)
	}
	p.AddLayer(mon)
	return nil
}
