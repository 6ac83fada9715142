package can

import (
	"encoding/binary"

	cheap "github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/heap"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/transport/crc"
)

// frameLayout describes how a payload is split into frames. Multi-frame
// transfers carry a CRC after the payload; CAN FD may need zero padding so
// that the last frame has a valid length, and the padding goes before the
// CRC.
type frameLayout struct {
	mtu     int
	payload int
	padding int
	frames  int
}

func layout(payload, mtu int) frameLayout {
	l := frameLayout{mtu: mtu, payload: payload}
	per := mtu - 1

	if payload <= per {
		l.frames = 1
		l.padding = RoundUpFrameLength(payload+1) - 1 - payload

		return l
	}

	total := payload + 2
	l.frames = (total + per - 1) / per
	last := total - (l.frames-1)*per
	l.padding = RoundUpFrameLength(last+1) - 1 - last

	return l
}

func (l frameLayout) multi() bool {
	return l.frames > 1
}

func (l frameLayout) streamLen() int {
	n := l.payload + l.padding
	if l.multi() {
		n += 2
	}

	return n
}

// frameLen returns the length of frame i, tail byte included.
func (l frameLayout) frameLen(i int) int {
	per := l.mtu - 1
	if i < l.frames-1 {
		return l.mtu
	}

	return l.streamLen() - (l.frames-1)*per + 1
}

// fill writes the payload stream and tail bytes into the frame blocks.
func (l frameLayout) fill(blocks []cheap.Block, payload []byte, tid byte) {
	stream := make([]byte, l.streamLen())
	copy(stream, payload)

	if l.multi() {
		sum := crc.CCITT(stream[:l.payload+l.padding])
		binary.BigEndian.PutUint16(stream[l.payload+l.padding:], sum)
	}

	toggle := true
	off := 0

	for i, b := range blocks {
		frame := b.Bytes()
		n := copy(frame[:len(frame)-1], stream[off:])
		off += n

		tail := tid & tailTransferIDMask
		if i == 0 {
			tail |= tailStartOfTransfer
		}

		if i == len(blocks)-1 {
			tail |= tailEndOfTransfer
		}

		if toggle {
			tail |= tailToggle
		}

		frame[len(frame)-1] = tail
		toggle = !toggle
	}
}
