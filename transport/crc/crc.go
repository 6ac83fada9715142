// Package crc holds the checksums used by the Cyphal transports.
package crc

import "hash/crc32"

// CCITTInitial is the seed of CRC-16/CCITT-FALSE.
const CCITTInitial uint16 = 0xFFFF

// AddCCITT folds data into a CRC-16/CCITT-FALSE accumulator. Appending the
// big-endian CRC to the data makes the accumulator over the whole stream
// come out as zero.
func AddCCITT(crc uint16, data []byte) uint16 {
	for _, b := range data {
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}

	return crc
}

// CCITT returns the CRC-16/CCITT-FALSE of data.
func CCITT(data []byte) uint16 {
	return AddCCITT(CCITTInitial, data)
}

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// Castagnoli returns the CRC-32C of data.
func Castagnoli(data []byte) uint32 {
	return crc32.Checksum(data, castagnoli)
}
