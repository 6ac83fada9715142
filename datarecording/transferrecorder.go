package datarecording

import (
	"slices"
	"strings"

	"github.com/rs/xid"

	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/cyphal"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/hooking"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/loop"
)

// TransferTable is the table that holds the inbound transfers.
const TransferTable = "transfer"

// TransferEntry is one row of the transfer table.
type TransferEntry struct {
	ID          string
	Node        string
	Adapter     string
	Time        int64
	Kind        string
	Priority    uint8
	Port        uint16
	Source      uint16
	Destination uint16
	TransferID  int64
	Size        int
	Routed      bool
	Receivers   string
}

// TransferRecorder is a run-loop hook that writes every inbound transfer
// into the transfer table. Several recorders can share one DataRecorder.
type TransferRecorder struct {
	node     string
	recorder DataRecorder
	recorded uint64
}

// NewTransferRecorder creates a recorder for the node and creates the
// transfer table if the DataRecorder does not have it yet.
func NewTransferRecorder(node string, recorder DataRecorder) *TransferRecorder {
	if !slices.Contains(recorder.ListTables(), TransferTable) {
		recorder.CreateTable(TransferTable, TransferEntry{})
	}

	return &TransferRecorder{
		node:     node,
		recorder: recorder,
	}
}

// Func records dispatched and unroutable transfers.
func (r *TransferRecorder) Func(ctx hooking.HookCtx) {
	var routed bool

	switch ctx.Pos {
	case loop.HookPosTransferDispatched:
		routed = true
	case loop.HookPosTransferUnroutable:
	default:
		return
	}

	t, ok := ctx.Item.(*cyphal.Transfer)
	if !ok {
		return
	}

	d, _ := ctx.Detail.(loop.Dispatch)

	r.recorder.InsertData(TransferTable, TransferEntry{
		ID:          xid.New().String(),
		Node:        r.node,
		Adapter:     d.Adapter,
		Time:        int64(d.Now),
		Kind:        t.Kind.String(),
		Priority:    uint8(t.Priority),
		Port:        uint16(t.Port),
		Source:      uint16(t.Source),
		Destination: uint16(t.Destination),
		TransferID:  int64(t.TransferID),
		Size:        t.Len(),
		Routed:      routed,
		Receivers:   strings.Join(d.Receivers, ","),
	})

	r.recorded++
}

// Recorded returns the number of transfers recorded.
func (r *TransferRecorder) Recorded() uint64 {
	return r.recorded
}
