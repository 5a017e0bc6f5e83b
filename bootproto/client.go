package bootproto

import (
	"encoding/binary"
	"fmt"

	"github.com/serialflash/w25qboot/crc16"
)

// Client is the host-side half of the wire protocol: it frames
// commands and waits for the device's Session to reply. It has no
// state beyond the transport — callers issue one command at a time,
// in the order Session's handlers expect.
type Client struct {
	serial SerialTransport
}

// NewClient wraps a SerialTransport already connected to a device
// running a Session.
func NewClient(serial SerialTransport) *Client {
	return &Client{serial: serial}
}

func (c *Client) sendFrame(cmd byte, body []byte) error {
	frame := make([]byte, 0, 3+len(body))
	frame = append(frame, startMarker0, startMarker1, cmd)
	frame = append(frame, body...)
	return c.serial.Send(frame)
}

func (c *Client) recvAck() error {
	var b [1]byte
	if err := c.serial.Recv(b[:], CommandTimeout); err != nil {
		return timeoutErr(err)
	}
	switch b[0] {
	case ack:
		return nil
	case nack:
		return &Error{Kind: KindFlash, Cause: fmt.Errorf("device NACKed")}
	default:
		return argErr(fmt.Errorf("unexpected reply byte 0x%02x", b[0]))
	}
}

// Write sends the WRITE command for addr/data and waits for the ACK.
func (c *Client) Write(addr uint32, data []byte) error {
	body := make([]byte, 8, 8+len(data)+2)
	binary.LittleEndian.PutUint32(body[0:4], uint32(len(data)))
	binary.LittleEndian.PutUint32(body[4:8], addr)
	body = append(body, data...)

	var crcBuf [2]byte
	binary.LittleEndian.PutUint16(crcBuf[:], crc16.Checksum(data))
	body = append(body, crcBuf[:]...)

	if err := c.sendFrame(cmdWrite, body); err != nil {
		return err
	}
	return c.recvAck()
}

// Read sends the READ command and fills buf with len(buf) bytes read
// back starting at addr, verifying the trailing CRC.
func (c *Client) Read(addr uint32, buf []byte) error {
	body := make([]byte, 8)
	binary.LittleEndian.PutUint32(body[0:4], uint32(len(buf)))
	binary.LittleEndian.PutUint32(body[4:8], addr)

	if err := c.sendFrame(cmdRead, body); err != nil {
		return err
	}
	if err := c.recvAck(); err != nil {
		return err
	}

	if err := c.serial.Recv(buf, CommandTimeout); err != nil {
		return timeoutErr(err)
	}

	var crcBuf [2]byte
	if err := c.serial.Recv(crcBuf[:], CommandTimeout); err != nil {
		return timeoutErr(err)
	}
	if binary.LittleEndian.Uint16(crcBuf[:]) != crc16.Checksum(buf) {
		return crcErr()
	}
	return nil
}

// Verify sends the VERIFY command for addr/want, asking the device to
// compare its own flash contents against want's CRC without
// retransmitting the data.
func (c *Client) Verify(addr uint32, want []byte) error {
	body := make([]byte, 10)
	binary.LittleEndian.PutUint32(body[0:4], uint32(len(want)))
	binary.LittleEndian.PutUint32(body[4:8], addr)
	binary.LittleEndian.PutUint16(body[8:10], crc16.Checksum(want))

	if err := c.sendFrame(cmdVerify, body); err != nil {
		return err
	}
	return c.recvAck()
}

// EraseSector sends the ERASE_SECTOR command for the sector containing
// addr.
func (c *Client) EraseSector(addr uint32) error {
	body := make([]byte, 4)
	binary.LittleEndian.PutUint32(body, addr)
	if err := c.sendFrame(cmdEraseSector, body); err != nil {
		return err
	}
	return c.recvAck()
}

// EraseChip sends the ERASE_CHIP command and blocks for the ACK, which
// may take much longer than CommandTimeout on real hardware; callers
// driving a real device should raise their transport's read deadline
// before calling this.
func (c *Client) EraseChip() error {
	if err := c.sendFrame(cmdEraseChip, nil); err != nil {
		return err
	}
	return c.recvAck()
}

// Info is the decoded GET_INFO response body.
type Info struct {
	Manufacturer byte
	DeviceID     byte
	JEDEC        [3]byte
	Capacity     uint32
	PageSize     uint16
	SectorSize   uint16
}

// GetInfo sends the GET_INFO command and decodes the device's reply.
func (c *Client) GetInfo() (Info, error) {
	if err := c.sendFrame(cmdGetInfo, nil); err != nil {
		return Info{}, err
	}
	if err := c.recvAck(); err != nil {
		return Info{}, err
	}

	var rec [infoRecordSize]byte
	if err := c.serial.Recv(rec[:], CommandTimeout); err != nil {
		return Info{}, timeoutErr(err)
	}

	var info Info
	info.Manufacturer = rec[0]
	info.DeviceID = rec[1]
	copy(info.JEDEC[:], rec[2:5])
	info.Capacity = binary.LittleEndian.Uint32(rec[5:9])
	info.PageSize = binary.LittleEndian.Uint16(rec[9:11])
	info.SectorSize = binary.LittleEndian.Uint16(rec[11:13])
	return info, nil
}
