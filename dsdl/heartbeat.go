package dsdl

// Health is the node health reported in a heartbeat.
type Health uint8

// Health values.
const (
	HealthNominal Health = iota
	HealthAdvisory
	HealthCaution
	HealthWarning
)

// Mode is the node operating mode reported in a heartbeat.
type Mode uint8

// Mode values.
const (
	ModeOperational Mode = iota
	ModeInitialization
	ModeMaintenance
	ModeSoftwareUpdate
)

// HeartbeatSize is the serialized size of a Heartbeat.
const HeartbeatSize = 7

// Heartbeat is uavcan.node.Heartbeat.1.0.
type Heartbeat struct {
	Uptime                   uint32
	Health                   Health
	Mode                     Mode
	VendorSpecificStatusCode uint8
}

// SerializeHeartbeat encodes a heartbeat.
func SerializeHeartbeat(v *Heartbeat, buf []byte) (int, error) {
	w := writer{buf: buf}
	w.u32(v.Uptime)
	w.u8(uint8(v.Health) & 0x03)
	w.u8(uint8(v.Mode) & 0x07)
	w.u8(v.VendorSpecificStatusCode)

	return w.result()
}

// DeserializeHeartbeat decodes a heartbeat.
func DeserializeHeartbeat(buf []byte) (Heartbeat, error) {
	r := reader{buf: buf}

	return Heartbeat{
		Uptime:                   r.u32(),
		Health:                   Health(r.u8() & 0x03),
		Mode:                     Mode(r.u8() & 0x07),
		VendorSpecificStatusCode: r.u8(),
	}, nil
}
