package dsdl

import (
	"encoding/binary"
	"fmt"

	"github.com/pierrec/lz4/v4"
)

// HeapStatus reports allocator usage of a node.
type HeapStatus struct {
	Capacity        uint32 `cbor:"1,keyasint"`
	Allocated       uint32 `cbor:"2,keyasint"`
	PeakAllocated   uint32 `cbor:"3,keyasint"`
	PeakRequestSize uint32 `cbor:"4,keyasint"`
	OOMCount        uint64 `cbor:"5,keyasint"`
}

var (
	// SerializeHeapStatus encodes a HeapStatus.
	SerializeHeapStatus = CBORSerializer[HeapStatus]()

	// DeserializeHeapStatus decodes a HeapStatus.
	DeserializeHeapStatus = CBORDeserializer[HeapStatus]()
)

// Thermal imager geometry.
const (
	ThermalWidth  = 32
	ThermalHeight = 24
	ThermalPixels = ThermalWidth * ThermalHeight
)

// ThermalFrame is one complete thermal image assembled from two subpages.
type ThermalFrame struct {
	Sequence    uint32
	Timestamp   uint64
	AmbientTemp int16
	Pixels      []uint16
}

type thermalFrameWire struct {
	Sequence    uint32 `cbor:"1,keyasint"`
	Timestamp   uint64 `cbor:"2,keyasint"`
	AmbientTemp int16  `cbor:"3,keyasint"`
	Width       uint16 `cbor:"4,keyasint"`
	Height      uint16 `cbor:"5,keyasint"`
	Compressed  bool   `cbor:"6,keyasint"`
	Data        []byte `cbor:"7,keyasint"`
}

// SerializeThermalFrame encodes a frame as CBOR with the pixel block
// compressed by LZ4 when that makes it smaller.
func SerializeThermalFrame(v *ThermalFrame, buf []byte) (int, error) {
	if len(v.Pixels) != ThermalPixels {
		return 0, fmt.Errorf("%w: %d pixels", ErrMalformed, len(v.Pixels))
	}

	raw := make([]byte, 2*ThermalPixels)
	for i, p := range v.Pixels {
		binary.LittleEndian.PutUint16(raw[2*i:], p)
	}

	wire := thermalFrameWire{
		Sequence:    v.Sequence,
		Timestamp:   v.Timestamp,
		AmbientTemp: v.AmbientTemp,
		Width:       ThermalWidth,
		Height:      ThermalHeight,
		Data:        raw,
	}

	compressed := make([]byte, lz4.CompressBlockBound(len(raw)))

	n, err := lz4.CompressBlock(raw, compressed, nil)
	if err != nil {
		return 0, fmt.Errorf("dsdl: lz4 compress: %w", err)
	}

	if n > 0 && n < len(raw) {
		wire.Compressed = true
		wire.Data = compressed[:n]
	}

	return CBORSerializer[thermalFrameWire]()(&wire, buf)
}

// DeserializeThermalFrame decodes a frame.
func DeserializeThermalFrame(buf []byte) (ThermalFrame, error) {
	wire, err := CBORDeserializer[thermalFrameWire]()(buf)
	if err != nil {
		return ThermalFrame{}, err
	}

	if int(wire.Width)*int(wire.Height) != ThermalPixels {
		return ThermalFrame{}, fmt.Errorf("%w: %dx%d frame", ErrMalformed, wire.Width, wire.Height)
	}

	raw := wire.Data
	if wire.Compressed {
		raw = make([]byte, 2*ThermalPixels)

		n, err := lz4.UncompressBlock(wire.Data, raw)
		if err != nil {
			return ThermalFrame{}, fmt.Errorf("%w: lz4: %w", ErrMalformed, err)
		}

		raw = raw[:n]
	}

	if len(raw) != 2*ThermalPixels {
		return ThermalFrame{}, fmt.Errorf("%w: %d pixel bytes", ErrMalformed, len(raw))
	}

	frame := ThermalFrame{
		Sequence:    wire.Sequence,
		Timestamp:   wire.Timestamp,
		AmbientTemp: wire.AmbientTemp,
		Pixels:      make([]uint16, ThermalPixels),
	}

	for i := range frame.Pixels {
		frame.Pixels[i] = binary.LittleEndian.Uint16(raw[2*i:])
	}

	return frame, nil
}
