package dsdl

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// encMode uses Core Deterministic Encoding so equal values always produce
// equal payloads.
var encMode cbor.EncMode

var decMode cbor.DecMode

func init() {
	var err error

	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("dsdl: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		MaxArrayElements: 4096,
		MaxMapPairs:      64,
	}.DecMode()
	if err != nil {
		panic("dsdl: CBOR decoder initialization failed: " + err.Error())
	}
}

// CBORSerializer returns a serializer that writes v as CBOR.
func CBORSerializer[T any]() Serializer[T] {
	return func(v *T, buf []byte) (int, error) {
		data, err := encMode.Marshal(v)
		if err != nil {
			return 0, fmt.Errorf("dsdl: cbor encode: %w", err)
		}

		if len(data) > len(buf) {
			return 0, ErrBufferTooSmall
		}

		return copy(buf, data), nil
	}
}

// CBORDeserializer returns a deserializer that reads CBOR into T.
func CBORDeserializer[T any]() Deserializer[T] {
	return func(buf []byte) (T, error) {
		var v T
		if err := decMode.Unmarshal(buf, &v); err != nil {
			return v, fmt.Errorf("%w: %w", ErrMalformed, err)
		}

		return v, nil
	}
}
