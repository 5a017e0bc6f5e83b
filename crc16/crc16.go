// Package crc16 computes CRC-16/CCITT-FALSE checksums over byte ranges.
//
// It backs the inbound WRITE payload validation, the VERIFY comparison
// against a host-supplied CRC, and the trailer appended to outbound READ
// payloads in the bootloader wire protocol (see package bootproto).
package crc16

import (
	"hash"

	"github.com/sigurn/crc16"
)

// table is CRC-16/CCITT-FALSE: init 0xFFFF, poly 0x1021, MSB-first,
// no reflection, no final XOR. KAT: Checksum([]byte("123456789")) == 0x29B1.
var table = crc16.MakeTable(crc16.CCITT_FALSE)

// Checksum returns the CRC-16/CCITT-FALSE of p.
func Checksum(p []byte) uint16 {
	return crc16.Checksum(p, table)
}

// Hash returns a streaming CRC-16/CCITT-FALSE accumulator.
func Hash() hash.Hash16 {
	return crc16.New(table)
}
