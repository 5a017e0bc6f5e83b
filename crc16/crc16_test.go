package crc16

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChecksum_KAT(t *testing.T) {
	assert.Equal(t, uint16(0x29B1), Checksum([]byte("123456789")))
}

func TestChecksum_Empty(t *testing.T) {
	assert.Equal(t, uint16(0xFFFF), Checksum(nil))
}

func TestChecksum_MatchesStreamingHash(t *testing.T) {
	data := []byte{0xDE, 0xAD, 0xBE, 0xEF, 0x01, 0x02, 0x03}

	h := Hash()
	_, err := h.Write(data)
	assert.NoError(t, err)

	assert.Equal(t, Checksum(data), h.Sum16())
}

func TestChecksum_DifferentBytesDifferentSum(t *testing.T) {
	a := Checksum([]byte{0x00, 0x01, 0x02})
	b := Checksum([]byte{0x00, 0x01, 0x03})
	assert.NotEqual(t, a, b)
}
