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
	"fmt"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"sigs.k8s.io/yaml"

	"jinr.ru/greenlab/go-ubx/pkg/log"
)

const (
	// NavPvtLayerNum identifies the layer
	NavPvtLayerNum = 2102
	// NavPosLLHLayerNum identifies the layer
	NavPosLLHLayerNum = 2103
	// NavStatusLayerNum identifies the layer
	NavStatusLayerNum = 2104
)

const (
	// NavPvtMinSize is the NAV-PVT payload size up to protocol version 14.
	// Later protocol versions append headVeh/magDec fields for a total of
	// NavPvtFullSize bytes.
	NavPvtMinSize = 84
	NavPvtFullSize = 92
	NavPosLLHSize = 28
	NavStatusSize = 16
)

// NAV-PVT fix types
const (
	FixTypeNone uint8 = 0
	FixTypeDeadReckoning uint8 = 1
	FixType2D uint8 = 2
	FixType3D uint8 = 3
	FixTypeGNSSDeadReckoning uint8 = 4
	FixTypeTimeOnly uint8 = 5
)

// NavPvtLayer is the UBX-NAV-PVT navigation position/velocity/time solution
type NavPvtLayer struct {
	layers.BaseLayer
	ITow uint32 // GPS time of week, ms
	Year uint16
	Month uint8
	Day uint8
	Hour uint8
	Min uint8
	Sec uint8
	Valid uint8
	TAcc uint32 // time accuracy estimate, ns
	Nano int32
	FixType uint8
	Flags uint8
	Flags2 uint8
	NumSV uint8
	Lon int32 // deg, 1e-7 scaling
	Lat int32 // deg, 1e-7 scaling
	Height int32 // height above ellipsoid, mm
	HMSL int32 // height above mean sea level, mm
	HAcc uint32 // mm
	VAcc uint32 // mm
	VelN int32 // mm/s
	VelE int32 // mm/s
	VelD int32 // mm/s
	GSpeed int32 // ground speed, mm/s
	HeadMot int32 // heading of motion, deg, 1e-5 scaling
	SAcc uint32 // mm/s
	HeadAcc uint32 // deg, 1e-5 scaling
	PDOP uint16 // 0.01 scaling
	HeadVeh int32 // deg, 1e-5 scaling, zero for protocol versions without it
}

var NavPvtLayerType = gopacket.RegisterLayerType(NavPvtLayerNum,
	gopacket.LayerTypeMetadata{Name: "NavPvtLayerType", Decoder: gopacket.DecodeFunc(DecodeNavPvtLayer)})

func (nav *NavPvtLayer) LayerType() gopacket.LayerType {
	return NavPvtLayerType
}

func (nav *NavPvtLayer) DecodeFromBytes(data []byte, df gopacket.DecodeFeedback) error {
	if len(data) < NavPvtMinSize {
		df.SetTruncated()
		return fmt.Errorf("NAV-PVT payload too short: %d bytes, want at least %d", len(data), NavPvtMinSize)
	}

	nav.BaseLayer = layers.BaseLayer{
		Contents: data[:],
		Payload: []byte{},
	}

	nav.ITow = binary.LittleEndian.Uint32(data[0:4])
	nav.Year = binary.LittleEndian.Uint16(data[4:6])
	nav.Month = data[6]
	nav.Day = data[7]
	nav.Hour = data[8]
	nav.Min = data[9]
	nav.Sec = data[10]
	nav.Valid = data[11]
	nav.TAcc = binary.LittleEndian.Uint32(data[12:16])
	nav.Nano = int32(binary.LittleEndian.Uint32(data[16:20]))
	nav.FixType = data[20]
	nav.Flags = data[21]
	nav.Flags2 = data[22]
	nav.NumSV = data[23]
	nav.Lon = int32(binary.LittleEndian.Uint32(data[24:28]))
	nav.Lat = int32(binary.LittleEndian.Uint32(data[28:32]))
	nav.Height = int32(binary.LittleEndian.Uint32(data[32:36]))
	nav.HMSL = int32(binary.LittleEndian.Uint32(data[36:40]))
	nav.HAcc = binary.LittleEndian.Uint32(data[40:44])
	nav.VAcc = binary.LittleEndian.Uint32(data[44:48])
	nav.VelN = int32(binary.LittleEndian.Uint32(data[48:52]))
	nav.VelE = int32(binary.LittleEndian.Uint32(data[52:56]))
	nav.VelD = int32(binary.LittleEndian.Uint32(data[56:60]))
	nav.GSpeed = int32(binary.LittleEndian.Uint32(data[60:64]))
	nav.HeadMot = int32(binary.LittleEndian.Uint32(data[64:68]))
	nav.SAcc = binary.LittleEndian.Uint32(data[68:72])
	nav.HeadAcc = binary.LittleEndian.Uint32(data[72:76])
	nav.PDOP = binary.LittleEndian.Uint16(data[76:78])
	if len(data) >= NavPvtFullSize {
		nav.HeadVeh = int32(binary.LittleEndian.Uint32(data[84:88]))
	}
	return nil
}

// Longitude returns the longitude in degrees
func (nav *NavPvtLayer) Longitude() float64 {
	return float64(nav.Lon) * 1e-7
}

// Latitude returns the latitude in degrees
func (nav *NavPvtLayer) Latitude() float64 {
	return float64(nav.Lat) * 1e-7
}

// Heading returns the heading of motion in degrees
func (nav *NavPvtLayer) Heading() float64 {
	return float64(nav.HeadMot) * 1e-5
}

func (nav *NavPvtLayer) String() string {
	view := struct {
		Time string `json:"time"`
		FixType uint8 `json:"fixType"`
		NumSV uint8 `json:"numSV"`
		Lon float64 `json:"lon"`
		Lat float64 `json:"lat"`
		HeightMM int32 `json:"heightMM"`
		GSpeedMMS int32 `json:"gSpeedMMS"`
		Heading float64 `json:"heading"`
		PDOP float64 `json:"pDOP"`
	}{
		Time: fmt.Sprintf("%04d-%02d-%02dT%02d:%02d:%02dZ", nav.Year, nav.Month, nav.Day, nav.Hour, nav.Min, nav.Sec),
		FixType: nav.FixType,
		NumSV: nav.NumSV,
		Lon: nav.Longitude(),
		Lat: nav.Latitude(),
		HeightMM: nav.Height,
		GSpeedMMS: nav.GSpeed,
		Heading: nav.Heading(),
		PDOP: float64(nav.PDOP) * 0.01,
	}
	data, err := yaml.Marshal(view)
	if err != nil {
		return ""
	}
	return string(data)
}

func DecodeNavPvtLayer(data []byte, p gopacket.PacketBuilder) error {
	nav := &NavPvtLayer{}
	err := nav.DecodeFromBytes(data, p)
	if err != nil {
		// Degrade to the raw variant, a malformed payload must not stop the stream
		log.Warning("Malformed NAV-PVT payload: %s", err)
		return DecodeUBXRawLayer(data, p)
	}
	p.AddLayer(nav)
	return nil
}

// NavPosLLHLayer is the UBX-NAV-POSLLH geodetic position solution
type NavPosLLHLayer struct {
	layers.BaseLayer
	ITow uint32
	Lon int32 // deg, 1e-7 scaling
	Lat int32 // deg, 1e-7 scaling
	Height int32 // mm
	HMSL int32 // mm
	HAcc uint32 // mm
	VAcc uint32 // mm
}

var NavPosLLHLayerType = gopacket.RegisterLayerType(NavPosLLHLayerNum,
	gopacket.LayerTypeMetadata{Name: "NavPosLLHLayerType", Decoder: gopacket.DecodeFunc(DecodeNavPosLLHLayer)})

func (nav *NavPosLLHLayer) LayerType() gopacket.LayerType {
	return NavPosLLHLayerType
}

func (nav *NavPosLLHLayer) DecodeFromBytes(data []byte, df gopacket.DecodeFeedback) error {
	if len(data) < NavPosLLHSize {
		df.SetTruncated()
		return fmt.Errorf("NAV-POSLLH payload too short: %d bytes, want %d", len(data), NavPosLLHSize)
	}

	nav.BaseLayer = layers.BaseLayer{
		Contents: data[:],
		Payload: []byte{},
	}

	nav.ITow = binary.LittleEndian.Uint32(data[0:4])
	nav.Lon = int32(binary.LittleEndian.Uint32(data[4:8]))
	nav.Lat = int32(binary.LittleEndian.Uint32(data[8:12]))
	nav.Height = int32(binary.LittleEndian.Uint32(data[12:16]))
	nav.HMSL = int32(binary.LittleEndian.Uint32(data[16:20]))
	nav.HAcc = binary.LittleEndian.Uint32(data[20:24])
	nav.VAcc = binary.LittleEndian.Uint32(data[24:28])
	return nil
}

func (nav *NavPosLLHLayer) String() string {
	return fmt.Sprintf("iTOW: %d lon: %.7f lat: %.7f hMSL: %dmm hAcc: %dmm vAcc: %dmm",
		nav.ITow, float64(nav.Lon)*1e-7, float64(nav.Lat)*1e-7, nav.HMSL, nav.HAcc, nav.VAcc)
}

func DecodeNavPosLLHLayer(data []byte, p gopacket.PacketBuilder) error {
	nav := &NavPosLLHLayer{}
	err := nav.DecodeFromBytes(data, p)
	if err != nil {
		log.Warning("Malformed NAV-POSLLH payload: %s", err)
		return DecodeUBXRawLayer(data, p)
	}
	p.AddLayer(nav)
	return nil
}

// NavStatusLayer is the UBX-NAV-STATUS receiver navigation status
type NavStatusLayer struct {
	layers.BaseLayer
	ITow uint32
	GPSFix uint8
	Flags uint8
	FixStat uint8
	Flags2 uint8
	TTFF uint32 // time to first fix, ms
	MSSS uint32 // ms since startup/reset
}

var NavStatusLayerType = gopacket.RegisterLayerType(NavStatusLayerNum,
	gopacket.LayerTypeMetadata{Name: "NavStatusLayerType", Decoder: gopacket.DecodeFunc(DecodeNavStatusLayer)})

func (nav *NavStatusLayer) LayerType() gopacket.LayerType {
	return NavStatusLayerType
}

func (nav *NavStatusLayer) DecodeFromBytes(data []byte, df gopacket.DecodeFeedback) error {
	if len(data) < NavStatusSize {
		df.SetTruncated()
		return fmt.Errorf("NAV-STATUS payload too short: %d bytes, want %d", len(data), NavStatusSize)
	}

	nav.BaseLayer = layers.BaseLayer{
		Contents: data[:],
		Payload: []byte{},
	}

	nav.ITow = binary.LittleEndian.Uint32(data[0:4])
	nav.GPSFix = data[4]
	nav.Flags = data[5]
	nav.FixStat = data[6]
	nav.Flags2 = data[7]
	nav.TTFF = binary.LittleEndian.Uint32(data[8:12])
	nav.MSSS = binary.LittleEndian.Uint32(data[12:16])
	return nil
}

func (nav *NavStatusLayer) String() string {
	return fmt.Sprintf("iTOW: %d gpsFix: %d flags: 0x%02x ttff: %dms msss: %dms",
		nav.ITow, nav.GPSFix, nav.Flags, nav.TTFF, nav.MSSS)
}

func DecodeNavStatusLayer(data []byte, p gopacket.PacketBuilder) error {
	nav := &NavStatusLayer{}
	err := nav.DecodeFromBytes(data, p)
	if err != nil {
		log.Warning("Malformed NAV-STATUS payload: %s", err)
		return DecodeUBXRawLayer(data, p)
	}
	p.AddLayer(nav)
	return nil
}
