package bootproto

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/serialflash/w25qboot/crc16"
	"github.com/serialflash/w25qboot/flash"
)

func newTestSession(chip *fakeChip) (*Session, *fakeSerial) {
	drv := flash.New(chip, flash.W25Q128)
	serial := &fakeSerial{}
	return New(serial, drv), serial
}

func frame(cmd byte, payload ...[]byte) []byte {
	out := []byte{startMarker0, startMarker1, cmd}
	for _, p := range payload {
		out = append(out, p...)
	}
	return out
}

func le32(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

func le16(v uint16) []byte {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, v)
	return b
}

// S1: GET_INFO against a W25Q128.
func TestGetInfo_S1(t *testing.T) {
	chip := newFakeChip(flash.W25Q128.TotalSize())
	s, serial := newTestSession(chip)

	serial.feed(frame(cmdGetInfo))
	require.NoError(t, s.handleOne())

	want := []byte{0x79, 0xEF, 0x17, 0xEF, 0x40, 0x18, 0x00, 0x00, 0x00, 0x01, 0x00, 0x01, 0x00, 0x10}
	assert.Equal(t, want, serial.Sent)
}

// S2: ERASE_SECTOR at address 0x001000.
func TestEraseSector_S2(t *testing.T) {
	chip := newFakeChip(flash.W25Q128.TotalSize())
	s, serial := newTestSession(chip)

	serial.feed(frame(cmdEraseSector, []byte{0x00, 0x10, 0x00, 0x00}))
	require.NoError(t, s.handleOne())

	assert.Equal(t, []byte{opWriteEnable, 0x20, opReadStatus}, chip.ops)
	assert.Equal(t, uint32(0x001000), chip.lastAddr)
	assert.Equal(t, []byte{ack}, serial.Sent)
}

// S3/S4: WRITE of 768 unaligned bytes at 0x80, good and bad CRC.
func buildWriteFrame(addr uint32, payload []byte, crc uint16) []byte {
	return frame(cmdWrite, le32(uint32(len(payload))), le32(addr), payload, le16(crc))
}

func TestWrite_S3_UnalignedSplitsIntoFourPages(t *testing.T) {
	chip := newFakeChip(flash.W25Q128.TotalSize())
	s, serial := newTestSession(chip)

	payload := make([]byte, 0x300)
	for i := range payload {
		payload[i] = byte(i)
	}

	serial.feed(buildWriteFrame(0x80, payload, crc16.Checksum(payload)))
	require.NoError(t, s.handleOne())

	assert.Equal(t, []byte{ack}, serial.Sent)
	assert.Equal(t, uint64(len(payload)), s.TotalBytesWritten)

	got := make([]byte, len(payload))
	require.NoError(t, s.flash.Read(0x80, got))
	assert.Equal(t, payload, got)
}

func TestWrite_S4_BadCRC_NacksAndDoesNotWrite(t *testing.T) {
	chip := newFakeChip(flash.W25Q128.TotalSize())
	s, serial := newTestSession(chip)

	payload := make([]byte, 0x300)
	serial.feed(buildWriteFrame(0x80, payload, crc16.Checksum(payload)^0xFFFF))
	require.NoError(t, s.handleOne())

	assert.Equal(t, []byte{nack}, serial.Sent)
	assert.Equal(t, uint64(0), s.TotalBytesWritten)
}

// S5: READ of 4 bytes.
func TestRead_S5(t *testing.T) {
	chip := newFakeChip(flash.W25Q128.TotalSize())
	copy(chip.mem, []byte{0xDE, 0xAD, 0xBE, 0xEF})
	s, serial := newTestSession(chip)

	serial.feed(frame(cmdRead, le32(4), le32(0)))
	require.NoError(t, s.handleOne())

	want := append([]byte{ack, 0xDE, 0xAD, 0xBE, 0xEF}, le16(crc16.Checksum([]byte{0xDE, 0xAD, 0xBE, 0xEF}))...)
	assert.Equal(t, want, serial.Sent)
	assert.Equal(t, uint64(4), s.TotalBytesRead)
}

// S6: unknown command.
func TestUnknownCommand_S6(t *testing.T) {
	chip := newFakeChip(flash.W25Q128.TotalSize())
	s, serial := newTestSession(chip)

	serial.feed([]byte{startMarker0, startMarker1, 0xFF})
	require.NoError(t, s.handleOne())

	assert.Equal(t, []byte{nack}, serial.Sent)
}

// Property 5: an arbitrary prefix of junk bytes before the marker,
// including near-misses on the marker itself, is silently discarded and
// the following command parses correctly.
func TestFramingResync(t *testing.T) {
	chip := newFakeChip(flash.W25Q128.TotalSize())
	s, serial := newTestSession(chip)

	junk := []byte{0x00, 0xAA, 0x11, startMarker0, 0x00} // "AA 11" near-miss, then another lone 0xAA
	serial.feed(junk)
	serial.feed([]byte{startMarker0, startMarker1, cmdGetInfo})

	require.NoError(t, s.handleOne())
	assert.Equal(t, byte(ack), serial.Sent[0])
}

// Property 6: oversize WRITE length is rejected before address bytes are
// consumed.
func TestWrite_OversizeLength_NacksBeforeAddress(t *testing.T) {
	chip := newFakeChip(flash.W25Q128.TotalSize())
	s, serial := newTestSession(chip)

	serial.feed(frame(cmdWrite, le32(0x1001)))
	require.NoError(t, s.handleOne())

	assert.Equal(t, []byte{nack}, serial.Sent)
}

// Property 7: VERIFY round-trips against what was actually written, and
// NACKs with a CRC error when the host's expectation doesn't match flash.
func TestVerify_RoundTrip(t *testing.T) {
	chip := newFakeChip(flash.W25Q128.TotalSize())
	s, serial := newTestSession(chip)

	payload := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	require.NoError(t, s.flash.Write(0x1000, payload))

	serial.feed(frame(cmdVerify, le32(uint32(len(payload))), le32(0x1000), le16(crc16.Checksum(payload))))
	require.NoError(t, s.handleOne())
	assert.Equal(t, []byte{ack}, serial.Sent)
}

func TestVerify_MismatchNacks(t *testing.T) {
	chip := newFakeChip(flash.W25Q128.TotalSize())
	s, serial := newTestSession(chip)

	payload := []byte{1, 2, 3, 4}
	require.NoError(t, s.flash.Write(0x1000, payload))

	wrongCRC := crc16.Checksum([]byte{9, 9, 9, 9})
	serial.feed(frame(cmdVerify, le32(4), le32(0x1000), le16(wrongCRC)))
	require.NoError(t, s.handleOne())
	assert.Equal(t, []byte{nack}, serial.Sent)
}

// Property 9: the shared payload buffer never leaks a previous command's
// bytes into a new one's response.
func TestSharedBuffer_NoCrossCommandAliasing(t *testing.T) {
	chip := newFakeChip(flash.W25Q128.TotalSize())
	copy(chip.mem, []byte{0x11, 0x22, 0x33, 0x44})
	s, serial := newTestSession(chip)

	serial.feed(frame(cmdRead, le32(4), le32(0)))
	require.NoError(t, s.handleOne())
	firstReply := append([]byte(nil), serial.Sent...)
	require.Equal(t, byte(ack), firstReply[0])
	require.Equal(t, []byte{0x11, 0x22, 0x33, 0x44}, firstReply[1:5])

	// Overwrite flash at the same address with different bytes, then
	// issue a second READ that must reflect only the new contents.
	copy(chip.mem, []byte{0xAA, 0xBB, 0xCC, 0xDD})
	serial.Sent = nil
	serial.feed(frame(cmdRead, le32(4), le32(0)))
	require.NoError(t, s.handleOne())

	assert.Equal(t, []byte{0xAA, 0xBB, 0xCC, 0xDD}, serial.Sent[1:5])
}

func TestEraseChip(t *testing.T) {
	chip := newFakeChip(flash.W25Q128.TotalSize())
	copy(chip.mem, []byte{0x01, 0x02, 0x03})
	s, serial := newTestSession(chip)

	serial.feed(frame(cmdEraseChip))
	require.NoError(t, s.handleOne())

	assert.Equal(t, []byte{ack}, serial.Sent)
	assert.Equal(t, byte(0xFF), chip.mem[0])
}
