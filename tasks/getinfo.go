package tasks

import (
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/cyphal"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/dsdl"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/heap"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/task"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/timing"
)

var getInfoResponseExtent = cyphal.MustFind(cyphal.Responses, cyphal.PortGetInfo).Extent

// GetInfoServer answers node info requests. Requests are queued and answered
// when the task runs.
type GetInfoServer struct {
	task.Base
	task.Buffered
	task.Publisher

	info     dsdl.GetInfoResponse
	buf      []byte
	answered uint64
}

// NewGetInfoServer creates a server that reports info.
func NewGetInfoServer(
	pub task.Publisher,
	h *heap.Heap,
	capacity int,
	info dsdl.GetInfoResponse,
) *GetInfoServer {
	return &GetInfoServer{
		Base:      task.NewBase("GetInfoServer", 0, 0),
		Buffered:  task.NewBuffered("GetInfoServer", h, capacity),
		Publisher: pub,
		info:      info,
		buf:       make([]byte, getInfoResponseExtent),
	}
}

// Execute answers every queued request.
func (t *GetInfoServer) Execute(timing.Tick) {
	t.Drain(func(req *cyphal.Transfer) {
		if req.Kind != cyphal.KindRequest {
			return
		}

		err := task.RespondValue(&t.Publisher, req, t.buf, &t.info, dsdl.SerializeGetInfoResponse)
		if !t.SendFailed(t.Logger(), cyphal.PortGetInfo, err) {
			t.answered++
		}
	})
}

// Answered returns how many requests were answered.
func (t *GetInfoServer) Answered() uint64 {
	return t.answered
}

// RegisterTask registers the GetInfo server.
func (t *GetInfoServer) RegisterTask(r task.Registrar) {
	r.AddServer(cyphal.PortGetInfo, t)
}

// UnregisterTask removes the GetInfo server.
func (t *GetInfoServer) UnregisterTask(r task.Registrar) {
	r.RemoveServer(cyphal.PortGetInfo, t)
}

// GetInfoClient periodically asks a peer for its node info. A request that
// is not answered within the timeout is dropped and sent again.
type GetInfoClient struct {
	task.Base
	task.Publisher

	target    cyphal.NodeID
	timeout   timing.Tick
	info      dsdl.GetInfoResponse
	hasInfo   bool
	timeouts  uint64
	malformed uint64
}

// NewGetInfoClient creates a client that polls target.
func NewGetInfoClient(
	pub task.Publisher,
	target cyphal.NodeID,
	interval, timeout timing.Tick,
) *GetInfoClient {
	return &GetInfoClient{
		Base:      task.NewBase("GetInfoClient", interval, 0),
		Publisher: pub,
		target:    target,
		timeout:   timeout,
	}
}

// Execute expires the outstanding request and issues a new one if none is
// pending.
func (t *GetInfoClient) Execute(now timing.Tick) {
	t.timeouts += uint64(t.ExpirePending(now, t.timeout))

	if t.Pending() > 0 {
		return
	}

	var req dsdl.GetInfoRequest
	_, err := task.RequestValue(&t.Publisher, cyphal.PortGetInfo, t.target, nil, &req,
		dsdl.SerializeGetInfoRequest, now)
	t.SendFailed(t.Logger(), cyphal.PortGetInfo, err)
}

// HandleMessage accepts the response to the outstanding request.
func (t *GetInfoClient) HandleMessage(tr *cyphal.Transfer) {
	if !t.Resolve(tr) {
		return
	}

	info, err := dsdl.DeserializeGetInfoResponse(tr.Payload())
	if err != nil {
		t.malformed++
		return
	}

	t.info = info
	t.hasInfo = true
}

// Info returns the last info received.
func (t *GetInfoClient) Info() (dsdl.GetInfoResponse, bool) {
	return t.info, t.hasInfo
}

// Timeouts returns how many requests went unanswered.
func (t *GetInfoClient) Timeouts() uint64 {
	return t.timeouts
}

// RegisterTask registers the GetInfo client.
func (t *GetInfoClient) RegisterTask(r task.Registrar) {
	r.AddClient(cyphal.PortGetInfo, t)
}

// UnregisterTask removes the GetInfo client.
func (t *GetInfoClient) UnregisterTask(r task.Registrar) {
	r.RemoveClient(cyphal.PortGetInfo, t)
}
