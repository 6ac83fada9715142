package dsdl

import (
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/cyphal"
)

const (
	subjectMaskBytes  = (int(cyphal.SubjectIDMax) + 1) / 8
	serviceMaskBytes  = (int(cyphal.ServiceIDMax) + 1) / 8
	maxSparseSubjects = 255

	subjectListMask   = 0
	subjectListSparse = 1
	subjectListTotal  = 2
)

// SubjectIDList is uavcan.node.port.SubjectIDList.1.0. Total means the node
// uses every subject.
type SubjectIDList struct {
	IDs   []cyphal.PortID
	Total bool
}

// PortList is uavcan.node.port.List.1.0.
type PortList struct {
	Publishers  SubjectIDList
	Subscribers SubjectIDList
	Clients     []cyphal.PortID
	Servers     []cyphal.PortID
}

// SerializePortList encodes a port list. Subject lists short enough for the
// sparse form use it; longer ones fall back to the bit mask.
func SerializePortList(v *PortList, buf []byte) (int, error) {
	w := writer{buf: buf}

	if err := w.subjectIDList(v.Publishers); err != nil {
		return 0, err
	}

	if err := w.subjectIDList(v.Subscribers); err != nil {
		return 0, err
	}

	if err := w.serviceIDList(v.Clients); err != nil {
		return 0, err
	}

	if err := w.serviceIDList(v.Servers); err != nil {
		return 0, err
	}

	return w.result()
}

func (w *writer) subjectIDList(l SubjectIDList) error {
	header := w.reserve(4)
	start := w.off

	switch {
	case l.Total:
		w.u8(subjectListTotal)
	case len(l.IDs) <= maxSparseSubjects:
		w.u8(subjectListSparse)
		w.u8(uint8(len(l.IDs)))

		for _, id := range l.IDs {
			if id > cyphal.SubjectIDMax {
				return fmt.Errorf("%w: subject ID %d", ErrMalformed, id)
			}

			w.u16(uint16(id))
		}
	default:
		w.u8(subjectListMask)

		mask := w.reserve(subjectMaskBytes)
		if mask != nil {
			clear(mask)
			if err := setBits(mask, l.IDs, cyphal.SubjectIDMax); err != nil {
				return err
			}
		}
	}

	if header != nil && w.err == nil {
		binary.LittleEndian.PutUint32(header, uint32(w.off-start))
	}

	return w.err
}

func (w *writer) serviceIDList(ids []cyphal.PortID) error {
	mask := w.reserve(serviceMaskBytes)
	if mask == nil {
		return w.err
	}

	clear(mask)

	return setBits(mask, ids, cyphal.ServiceIDMax)
}

func setBits(mask []byte, ids []cyphal.PortID, limit cyphal.PortID) error {
	for _, id := range ids {
		if id > limit {
			return fmt.Errorf("%w: port ID %d", ErrMalformed, id)
		}

		mask[id/8] |= 1 << (id % 8)
	}

	return nil
}

func bitsOf(mask []byte) []cyphal.PortID {
	var ids []cyphal.PortID

	for i, b := range mask {
		for bit := 0; bit < 8; bit++ {
			if b&(1<<bit) != 0 {
				ids = append(ids, cyphal.PortID(i*8+bit))
			}
		}
	}

	return ids
}

// DeserializePortList decodes a port list. Subject IDs come back sorted.
func DeserializePortList(buf []byte) (PortList, error) {
	r := reader{buf: buf}

	var (
		v   PortList
		err error
	)

	if v.Publishers, err = r.subjectIDList(); err != nil {
		return PortList{}, err
	}

	if v.Subscribers, err = r.subjectIDList(); err != nil {
		return PortList{}, err
	}

	v.Clients = bitsOf(r.take(serviceMaskBytes))
	v.Servers = bitsOf(r.take(serviceMaskBytes))

	return v, nil
}

func (r *reader) subjectIDList() (SubjectIDList, error) {
	size := int(r.u32())
	if size > 0 && size > len(r.buf)-r.off {
		return SubjectIDList{}, fmt.Errorf("%w: delimiter header %d", ErrMalformed, size)
	}

	body := reader{buf: r.take(size)}

	var l SubjectIDList

	switch body.u8() {
	case subjectListMask:
		l.IDs = bitsOf(body.take(subjectMaskBytes))
	case subjectListSparse:
		n := int(body.u8())
		for i := 0; i < n; i++ {
			l.IDs = append(l.IDs, cyphal.PortID(body.u16()))
		}

		sort.Slice(l.IDs, func(i, j int) bool { return l.IDs[i] < l.IDs[j] })
	case subjectListTotal:
		l.Total = true
	default:
		return SubjectIDList{}, ErrMalformed
	}

	return l, nil
}
