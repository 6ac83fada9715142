package can

import "errors"

// ErrTxBusy is returned by a Driver when every TX mailbox is occupied. It is
// backpressure, not a failure: the frame should be retried later.
var ErrTxBusy = errors.New("can: tx mailboxes full")

// Maximum transmission units.
const (
	MTUClassic = 8
	MTUFD      = 64
)

// Frame is one CAN frame with an extended 29-bit identifier.
type Frame struct {
	ID   uint32
	Len  uint8
	Data [MTUFD]byte
}

// Payload returns the used part of the data field.
func (f *Frame) Payload() []byte {
	return f.Data[:f.Len]
}

// Filter accepts a frame when frame.ID&Mask == ID&Mask.
type Filter struct {
	ID   uint32
	Mask uint32
}

// Accepts reports whether the filter passes the identifier.
func (f Filter) Accepts(id uint32) bool {
	return id&f.Mask == f.ID&f.Mask
}

// Driver is the CAN peripheral. AddTxMessage places a frame in a TX mailbox,
// GetRxMessage pops the RX FIFO. Neither blocks.
type Driver interface {
	AddTxMessage(f Frame) error
	GetRxMessage() (Frame, bool)
	ConfigureFilters(filters []Filter) error
}

var dlcLengths = [...]int{0, 1, 2, 3, 4, 5, 6, 7, 8, 12, 16, 20, 24, 32, 48, 64}

// RoundUpFrameLength returns the smallest valid CAN FD data length that can
// hold n bytes.
func RoundUpFrameLength(n int) int {
	for _, l := range dlcLengths {
		if l >= n {
			return l
		}
	}

	return MTUFD
}
