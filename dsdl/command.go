package dsdl

import "fmt"

// Standard command codes.
const (
	CommandRestart               uint16 = 65535
	CommandPowerOff              uint16 = 65534
	CommandBeginSoftwareUpdate   uint16 = 65533
	CommandFactoryReset          uint16 = 65532
	CommandEmergencyStop         uint16 = 65531
	CommandStorePersistentStates uint16 = 65530
)

// Command status codes.
const (
	StatusSuccess uint8 = iota
	StatusFailure
	StatusNotAuthorized
	StatusBadCommand
	StatusBadParameter
	StatusBadState
	StatusInternalError
)

// Limits of the ExecuteCommand arrays.
const (
	MaxParameterLength = 255
	MaxOutputLength    = 46
)

// ExecuteCommandRequest is uavcan.node.ExecuteCommand.1.3 request.
type ExecuteCommandRequest struct {
	Command   uint16
	Parameter []byte
}

// ExecuteCommandResponse is uavcan.node.ExecuteCommand.1.3 response.
type ExecuteCommandResponse struct {
	Status uint8
	Output []byte
}

// SerializeExecuteCommandRequest encodes a command request.
func SerializeExecuteCommandRequest(v *ExecuteCommandRequest, buf []byte) (int, error) {
	if len(v.Parameter) > MaxParameterLength {
		return 0, fmt.Errorf("%w: parameter too long", ErrMalformed)
	}

	w := writer{buf: buf}
	w.u16(v.Command)
	w.u8(uint8(len(v.Parameter)))
	w.bytes(v.Parameter)

	return w.result()
}

// DeserializeExecuteCommandRequest decodes a command request.
func DeserializeExecuteCommandRequest(buf []byte) (ExecuteCommandRequest, error) {
	r := reader{buf: buf}
	v := ExecuteCommandRequest{Command: r.u16()}

	param, err := r.array(MaxParameterLength)
	if err != nil {
		return ExecuteCommandRequest{}, err
	}
	v.Parameter = param

	return v, nil
}

// SerializeExecuteCommandResponse encodes a command response.
func SerializeExecuteCommandResponse(v *ExecuteCommandResponse, buf []byte) (int, error) {
	if len(v.Output) > MaxOutputLength {
		return 0, fmt.Errorf("%w: output too long", ErrMalformed)
	}

	w := writer{buf: buf}
	w.u8(v.Status)
	w.u8(uint8(len(v.Output)))
	w.bytes(v.Output)

	return w.result()
}

// DeserializeExecuteCommandResponse decodes a command response.
func DeserializeExecuteCommandResponse(buf []byte) (ExecuteCommandResponse, error) {
	r := reader{buf: buf}
	v := ExecuteCommandResponse{Status: r.u8()}

	out, err := r.array(MaxOutputLength)
	if err != nil {
		return ExecuteCommandResponse{}, err
	}
	v.Output = out

	return v, nil
}
