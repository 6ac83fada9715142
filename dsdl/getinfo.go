package dsdl

import "fmt"

// Limits of the GetInfo response arrays.
const (
	MaxNameLength        = 50
	MaxCertificateLength = 222
)

// Version is a major/minor pair.
type Version struct {
	Major uint8
	Minor uint8
}

// GetInfoRequest is uavcan.node.GetInfo.1.0 request. It is empty.
type GetInfoRequest struct{}

// GetInfoResponse is uavcan.node.GetInfo.1.0 response.
type GetInfoResponse struct {
	ProtocolVersion           Version
	HardwareVersion           Version
	SoftwareVersion           Version
	SoftwareVCSRevisionID     uint64
	UniqueID                  [16]byte
	Name                      string
	SoftwareImageCRC          []uint64
	CertificateOfAuthenticity []byte
}

// SerializeGetInfoRequest encodes the empty request.
func SerializeGetInfoRequest(_ *GetInfoRequest, _ []byte) (int, error) {
	return 0, nil
}

// DeserializeGetInfoRequest decodes the empty request.
func DeserializeGetInfoRequest(_ []byte) (GetInfoRequest, error) {
	return GetInfoRequest{}, nil
}

func (w *writer) version(v Version) {
	w.u8(v.Major)
	w.u8(v.Minor)
}

func (r *reader) version() Version {
	return Version{Major: r.u8(), Minor: r.u8()}
}

// SerializeGetInfoResponse encodes a GetInfo response.
func SerializeGetInfoResponse(v *GetInfoResponse, buf []byte) (int, error) {
	if len(v.Name) > MaxNameLength ||
		len(v.SoftwareImageCRC) > 1 ||
		len(v.CertificateOfAuthenticity) > MaxCertificateLength {
		return 0, fmt.Errorf("%w: getinfo array too long", ErrMalformed)
	}

	w := writer{buf: buf}
	w.version(v.ProtocolVersion)
	w.version(v.HardwareVersion)
	w.version(v.SoftwareVersion)
	w.u64(v.SoftwareVCSRevisionID)
	w.bytes(v.UniqueID[:])
	w.u8(uint8(len(v.Name)))
	w.bytes([]byte(v.Name))
	w.u8(uint8(len(v.SoftwareImageCRC)))

	for _, crc := range v.SoftwareImageCRC {
		w.u64(crc)
	}

	w.u8(uint8(len(v.CertificateOfAuthenticity)))
	w.bytes(v.CertificateOfAuthenticity)

	return w.result()
}

// DeserializeGetInfoResponse decodes a GetInfo response.
func DeserializeGetInfoResponse(buf []byte) (GetInfoResponse, error) {
	r := reader{buf: buf}

	var v GetInfoResponse
	v.ProtocolVersion = r.version()
	v.HardwareVersion = r.version()
	v.SoftwareVersion = r.version()
	v.SoftwareVCSRevisionID = r.u64()
	copy(v.UniqueID[:], r.take(16))

	name, err := r.array(MaxNameLength)
	if err != nil {
		return GetInfoResponse{}, err
	}
	v.Name = string(name)

	crcs := int(r.u8())
	if crcs > 1 {
		return GetInfoResponse{}, ErrMalformed
	}
	for i := 0; i < crcs; i++ {
		v.SoftwareImageCRC = append(v.SoftwareImageCRC, r.u64())
	}

	v.CertificateOfAuthenticity, err = r.array(MaxCertificateLength)
	if err != nil {
		return GetInfoResponse{}, err
	}

	return v, nil
}
