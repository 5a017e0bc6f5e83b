package bootproto

import (
	"encoding/binary"
	"fmt"

	"github.com/serialflash/w25qboot/flash"
)

func asFlashErr(err error) error {
	if err == nil {
		return nil
	}
	return flashErr(err)
}

// handleWrite implements the WRITE (0x01) command. The sequence of checks
// below is observable on the wire and must be preserved in this order so
// a host tool can tell failures apart by which byte it blocks on.
func (s *Session) handleWrite() error {
	length, err := s.recvUint32LE()
	if err != nil {
		return err
	}
	if length == 0 || length > MaxPayload {
		return argErr(nil)
	}

	addr, err := s.recvUint32LE()
	if err != nil {
		return err
	}

	buf := s.payload[:length]
	if err := s.recvPayload(buf); err != nil {
		return err
	}

	var crcBuf [2]byte
	if err := s.recvExact(crcBuf[:]); err != nil {
		return err
	}
	wantCRC := binary.LittleEndian.Uint16(crcBuf[:])
	if crcOf(buf) != wantCRC {
		return crcErr()
	}

	if err := s.flash.Write(addr, buf); err != nil {
		return asFlashErr(err)
	}

	s.TotalBytesWritten += uint64(length)
	return s.sendAck()
}

// handleRead implements the READ (0x02) command.
func (s *Session) handleRead() error {
	length, err := s.recvUint32LE()
	if err != nil {
		return err
	}
	if length == 0 || length > MaxPayload {
		return argErr(nil)
	}

	addr, err := s.recvUint32LE()
	if err != nil {
		return err
	}

	buf := s.payload[:length]
	if err := s.flash.Read(addr, buf); err != nil {
		return asFlashErr(err)
	}

	if err := s.sendAck(); err != nil {
		return err
	}
	if err := s.serial.Send(buf); err != nil {
		return err
	}

	var crcBuf [2]byte
	binary.LittleEndian.PutUint16(crcBuf[:], crcOf(buf))
	if err := s.serial.Send(crcBuf[:]); err != nil {
		return err
	}

	s.TotalBytesRead += uint64(length)
	return nil
}

// handleEraseSector implements ERASE_SECTOR (0x03).
func (s *Session) handleEraseSector() error {
	addr, err := s.recvUint32LE()
	if err != nil {
		return err
	}
	if err := s.flash.EraseSector(addr); err != nil {
		return asFlashErr(err)
	}
	return s.sendAck()
}

// handleEraseChip implements ERASE_CHIP (0x04). It carries no inbound
// payload and may block for many seconds; flash.Driver.EraseChip polls
// against its own chip-erase deadline, not the command timeout.
func (s *Session) handleEraseChip() error {
	if err := s.flash.EraseChip(); err != nil {
		return asFlashErr(err)
	}
	return s.sendAck()
}

// handleGetInfo implements GET_INFO (0x05), assembling the 13-byte
// record.
func (s *Session) handleGetInfo() error {
	manufacturer, device, err := s.flash.ReadID()
	if err != nil {
		return asFlashErr(err)
	}
	jedec, err := s.flash.ReadJEDECID()
	if err != nil {
		return asFlashErr(err)
	}

	reportedCapacity, err := s.flash.Capacity()
	if err != nil {
		return asFlashErr(err)
	}
	if reportedCapacity != s.flash.Variant().TotalSize() {
		return argErr(fmt.Errorf("flash reports %d bytes, configured variant %s expects %d",
			reportedCapacity, s.flash.Variant(), s.flash.Variant().TotalSize()))
	}

	var rec [infoRecordSize]byte
	rec[0] = manufacturer
	rec[1] = device
	copy(rec[2:5], jedec[:])
	binary.LittleEndian.PutUint32(rec[5:9], uint32(1)<<jedec[2])
	binary.LittleEndian.PutUint16(rec[9:11], flash.PageSize)
	binary.LittleEndian.PutUint16(rec[11:13], flash.SectorSize)

	if err := s.sendAck(); err != nil {
		return err
	}
	return s.serial.Send(rec[:])
}

// handleVerify implements VERIFY (0x06): read a range back from flash and
// compare its CRC against one the host already computed, rather than
// retransmitting the data.
func (s *Session) handleVerify() error {
	length, err := s.recvUint32LE()
	if err != nil {
		return err
	}
	if length == 0 || length > MaxPayload {
		return argErr(nil)
	}

	addr, err := s.recvUint32LE()
	if err != nil {
		return err
	}

	var crcBuf [2]byte
	if err := s.recvExact(crcBuf[:]); err != nil {
		return err
	}
	wantCRC := binary.LittleEndian.Uint16(crcBuf[:])

	buf := s.payload[:length]
	if err := s.flash.Read(addr, buf); err != nil {
		return asFlashErr(err)
	}
	if crcOf(buf) != wantCRC {
		return crcErr()
	}

	return s.sendAck()
}
