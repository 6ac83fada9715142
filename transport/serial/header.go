package serial

import (
	"encoding/binary"

	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/cyphal"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/transport/crc"
)

// Cyphal/serial header layout.
const (
	headerSize     = 24
	payloadCRCSize = 4
	headerVersion  = 1

	dataSpecService = 0x8000
	dataSpecRequest = 0x4000
	dataSpecPort    = 0x3FFF
	frameIndexEOT   = 0x80000000
)

type header struct {
	priority    cyphal.Priority
	source      cyphal.NodeID
	destination cyphal.NodeID
	kind        cyphal.Kind
	port        cyphal.PortID
	transferID  cyphal.TransferID
}

func (h header) dataSpecifier() uint16 {
	switch h.kind {
	case cyphal.KindRequest:
		return dataSpecService | dataSpecRequest | uint16(h.port)&dataSpecPort
	case cyphal.KindResponse:
		return dataSpecService | uint16(h.port)&dataSpecPort
	default:
		return uint16(h.port) & 0x7FFF
	}
}

func (h header) encode(buf []byte) {
	buf[0] = headerVersion
	buf[1] = byte(h.priority)
	binary.LittleEndian.PutUint16(buf[2:], uint16(h.source))
	binary.LittleEndian.PutUint16(buf[4:], uint16(h.destination))
	binary.LittleEndian.PutUint16(buf[6:], h.dataSpecifier())
	binary.LittleEndian.PutUint64(buf[8:], uint64(h.transferID))
	binary.LittleEndian.PutUint32(buf[16:], frameIndexEOT)
	binary.LittleEndian.PutUint16(buf[20:], 0)
	binary.BigEndian.PutUint16(buf[22:], crc.CCITT(buf[:22]))
}

// decodeHeader parses and checks a header. Only single-frame transfers
// (frame index 0 with EOT set) are accepted.
func decodeHeader(buf []byte) (header, bool) {
	if len(buf) < headerSize || buf[0] != headerVersion {
		return header{}, false
	}

	if crc.AddCCITT(crc.CCITTInitial, buf[:headerSize]) != 0 {
		return header{}, false
	}

	if binary.LittleEndian.Uint32(buf[16:]) != frameIndexEOT {
		return header{}, false
	}

	h := header{
		priority:    cyphal.Priority(buf[1]),
		source:      cyphal.NodeID(binary.LittleEndian.Uint16(buf[2:])),
		destination: cyphal.NodeID(binary.LittleEndian.Uint16(buf[4:])),
		transferID:  cyphal.TransferID(binary.LittleEndian.Uint64(buf[8:])),
	}

	if h.priority > cyphal.PriorityOptional {
		return header{}, false
	}

	spec := binary.LittleEndian.Uint16(buf[6:])

	switch {
	case spec&dataSpecService == 0:
		h.kind = cyphal.KindMessage
		h.port = cyphal.PortID(spec)
	case spec&dataSpecRequest != 0:
		h.kind = cyphal.KindRequest
		h.port = cyphal.PortID(spec & dataSpecPort)
	default:
		h.kind = cyphal.KindResponse
		h.port = cyphal.PortID(spec & dataSpecPort)
	}

	return h, true
}
