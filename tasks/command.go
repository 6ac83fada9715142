package tasks

import (
	"errors"
	"fmt"

	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/cyphal"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/dsdl"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/task"
	"github.com/MatthiasGeorgImhof/SCIL496-CSAT-sub003/timing"
)

// Mission command codes. The single parameter byte is the channel.
const (
	CommandChannelOn     uint16 = 0x0100
	CommandChannelOff    uint16 = 0x0101
	CommandChannelStatus uint16 = 0x0102
)

// ErrNoSuchChannel is returned by a PowerSwitch for a channel it lacks.
var ErrNoSuchChannel = errors.New("power switch: no such channel")

// PowerSwitch controls the power rails of the payloads.
type PowerSwitch interface {
	On(channel uint8) error
	Off(channel uint8) error
	Status(channel uint8) (bool, error)
}

var commandResponseExtent = cyphal.MustFind(cyphal.Responses, cyphal.PortExecuteCommand).Extent

// CommandServer executes power commands as soon as they arrive.
type CommandServer struct {
	task.Base
	task.Publisher

	power     PowerSwitch
	buf       []byte
	executed  uint64
	rejected  uint64
	malformed uint64
}

// NewCommandServer creates a server that drives power.
func NewCommandServer(pub task.Publisher, power PowerSwitch) *CommandServer {
	return &CommandServer{
		Base:      task.NewBase("CommandServer", 0, 0),
		Publisher: pub,
		power:     power,
		buf:       make([]byte, commandResponseExtent),
	}
}

// Execute does nothing; commands are handled on arrival.
func (t *CommandServer) Execute(timing.Tick) {}

// HandleMessage executes the command and responds.
func (t *CommandServer) HandleMessage(req *cyphal.Transfer) {
	cmd, err := dsdl.DeserializeExecuteCommandRequest(req.Payload())
	if err != nil {
		t.malformed++
		return
	}

	resp := t.execute(cmd)
	if resp.Status == dsdl.StatusSuccess {
		t.executed++
	} else {
		t.rejected++
	}

	err = task.RespondValue(&t.Publisher, req, t.buf, &resp, dsdl.SerializeExecuteCommandResponse)
	t.SendFailed(t.Logger(), cyphal.PortExecuteCommand, err)
}

func (t *CommandServer) execute(cmd dsdl.ExecuteCommandRequest) dsdl.ExecuteCommandResponse {
	switch cmd.Command {
	case CommandChannelOn, CommandChannelOff, CommandChannelStatus:
	default:
		return dsdl.ExecuteCommandResponse{Status: dsdl.StatusBadCommand}
	}

	if len(cmd.Parameter) != 1 {
		return dsdl.ExecuteCommandResponse{Status: dsdl.StatusBadParameter}
	}

	channel := cmd.Parameter[0]

	var (
		on  bool
		err error
	)

	switch cmd.Command {
	case CommandChannelOn:
		err = t.power.On(channel)
	case CommandChannelOff:
		err = t.power.Off(channel)
	case CommandChannelStatus:
		on, err = t.power.Status(channel)
	}

	switch {
	case errors.Is(err, ErrNoSuchChannel):
		return dsdl.ExecuteCommandResponse{Status: dsdl.StatusBadParameter}
	case err != nil:
		return dsdl.ExecuteCommandResponse{Status: dsdl.StatusFailure, Output: output(err.Error())}
	case cmd.Command == CommandChannelStatus:
		state := byte(0)
		if on {
			state = 1
		}

		return dsdl.ExecuteCommandResponse{Status: dsdl.StatusSuccess, Output: []byte{state}}
	default:
		return dsdl.ExecuteCommandResponse{Status: dsdl.StatusSuccess}
	}
}

func output(s string) []byte {
	if len(s) > dsdl.MaxOutputLength {
		s = s[:dsdl.MaxOutputLength]
	}

	return []byte(s)
}

// Executed returns how many commands succeeded.
func (t *CommandServer) Executed() uint64 {
	return t.executed
}

// Rejected returns how many commands failed or were refused.
func (t *CommandServer) Rejected() uint64 {
	return t.rejected
}

// RegisterTask registers the ExecuteCommand server.
func (t *CommandServer) RegisterTask(r task.Registrar) {
	r.AddServer(cyphal.PortExecuteCommand, t)
}

// UnregisterTask removes the ExecuteCommand server.
func (t *CommandServer) UnregisterTask(r task.Registrar) {
	r.RemoveServer(cyphal.PortExecuteCommand, t)
}

// SimPowerSwitch is an in-memory PowerSwitch for the host simulator.
type SimPowerSwitch struct {
	channels []bool
	toggles  uint64
}

// NewSimPowerSwitch creates a switch with n channels, all off.
func NewSimPowerSwitch(n int) *SimPowerSwitch {
	return &SimPowerSwitch{channels: make([]bool, n)}
}

// On turns a channel on.
func (s *SimPowerSwitch) On(channel uint8) error {
	return s.set(channel, true)
}

// Off turns a channel off.
func (s *SimPowerSwitch) Off(channel uint8) error {
	return s.set(channel, false)
}

// Status reports whether a channel is on.
func (s *SimPowerSwitch) Status(channel uint8) (bool, error) {
	if int(channel) >= len(s.channels) {
		return false, fmt.Errorf("channel %d: %w", channel, ErrNoSuchChannel)
	}

	return s.channels[channel], nil
}

// Toggles returns how many times a channel changed state.
func (s *SimPowerSwitch) Toggles() uint64 {
	return s.toggles
}

func (s *SimPowerSwitch) set(channel uint8, on bool) error {
	if int(channel) >= len(s.channels) {
		return fmt.Errorf("channel %d: %w", channel, ErrNoSuchChannel)
	}

	if s.channels[channel] != on {
		s.channels[channel] = on
		s.toggles++
	}

	return nil
}
