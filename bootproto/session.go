// Package bootproto implements the bootloader's request/response state
// machine over a byte-oriented serial link: it frames commands, validates
// payloads with CRC-16/CCITT-FALSE, drives a flash.Driver, and returns an
// acknowledgement or negative acknowledgement byte plus payload and
// trailing checksum where applicable.
//
// The engine has no knowledge of SPI; it only knows how to talk to a
// flash.Driver and a SerialTransport.
package bootproto

import (
	"context"
	"encoding/binary"

	"github.com/serialflash/w25qboot/crc16"
	"github.com/serialflash/w25qboot/flash"
)

// Session is the bootloader's persistent state: the serial and flash
// handles, a scratch receive buffer, and the shared payload buffer.
// Created once at boot, it lives for the process; no command handler may
// retain a reference to its payload slice past the command's return.
type Session struct {
	serial SerialTransport
	flash  *flash.Driver

	scratch [BufferSize]byte
	payload [MaxPayload]byte

	TotalBytesWritten uint64
	TotalBytesRead    uint64
}

// New constructs a Session around an already-initialized serial transport
// and flash driver.
func New(serial SerialTransport, drv *flash.Driver) *Session {
	return &Session{serial: serial, flash: drv}
}

// Run executes the perpetual single-command loop: wait for a frame,
// handle exactly one command, reply, repeat. It returns only when the
// transport reports a hard I/O failure (e.g. the port was closed) or ctx
// is cancelled.
func (s *Session) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := s.handleOne(); err != nil {
			return err
		}
	}
}

// handleOne blocks for the next frame's start marker, reads one command
// byte, dispatches, and writes exactly one reply. A transport failure
// while waiting for the marker is returned as is, with no reply sent.
// Once the marker is seen, a command-byte timeout or a failed handler is
// answered with a NACK, and only an error from sending that NACK
// propagates, so Run can distinguish "host went quiet" from "port is
// gone".
func (s *Session) handleOne() error {
	if err := s.waitForStartMarker(); err != nil {
		return err
	}

	var cmdBuf [1]byte
	if err := s.serial.Recv(cmdBuf[:], CommandTimeout); err != nil {
		return s.sendNack()
	}

	var herr error
	switch cmdBuf[0] {
	case cmdWrite:
		herr = s.handleWrite()
	case cmdRead:
		herr = s.handleRead()
	case cmdEraseSector:
		herr = s.handleEraseSector()
	case cmdEraseChip:
		herr = s.handleEraseChip()
	case cmdGetInfo:
		herr = s.handleGetInfo()
	case cmdVerify:
		herr = s.handleVerify()
	default:
		herr = argErr(nil)
	}

	if herr != nil {
		return s.sendNack()
	}
	return nil
}

// waitForStartMarker blocks, one byte at a time with no timeout, until it
// has seen 0xAA followed by 0x55. Any other byte sequence — of any
// length, including overlapping near-matches like "AA AA 55" — is
// silently discarded; no ACK/NACK is sent for it.
func (s *Session) waitForStartMarker() error {
	var b [1]byte
	sawFirst := false
	for {
		if err := s.serial.Recv(b[:], 0); err != nil {
			return err
		}
		switch {
		case b[0] == startMarker1 && sawFirst:
			return nil
		case b[0] == startMarker0:
			sawFirst = true
		default:
			sawFirst = false
		}
	}
}

func (s *Session) sendAck() error {
	return s.serial.Send([]byte{ack})
}

func (s *Session) sendNack() error {
	return s.serial.Send([]byte{nack})
}

// recvExact fills p completely using the command timeout, wrapping any
// failure as a Timeout error.
func (s *Session) recvExact(p []byte) error {
	if err := s.serial.Recv(p, CommandTimeout); err != nil {
		return timeoutErr(err)
	}
	return nil
}

func (s *Session) recvUint32LE() (uint32, error) {
	var b [4]byte
	if err := s.recvExact(b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

// recvPayload fills dst, draining the transport in BufferSize-sized
// chunks rather than one giant read — matching the fixed-size scratch
// buffer this session carries instead of allocating per command.
func (s *Session) recvPayload(dst []byte) error {
	for off := 0; off < len(dst); {
		n := len(dst) - off
		if n > BufferSize {
			n = BufferSize
		}
		if err := s.recvExact(s.scratch[:n]); err != nil {
			return err
		}
		copy(dst[off:off+n], s.scratch[:n])
		off += n
	}
	return nil
}

func crcOf(p []byte) uint16 { return crc16.Checksum(p) }
