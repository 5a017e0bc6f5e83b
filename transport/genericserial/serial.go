// Package genericserial adapts any go.bug.st/serial port — a plain
// USB-UART adapter, not a CH347 — to bootproto.SerialTransport. It is
// the transport to reach for when the bootloader's host side is wired
// through an ordinary FTDI/CP210x USB-serial cable rather than a CH347.
package genericserial

import (
	"errors"
	"time"

	"go.bug.st/serial"
)

// errReadTimeout is returned when a Port.Read call returns zero bytes
// with no error, which go.bug.st/serial uses to signal that
// SetReadTimeout's deadline elapsed before any data arrived.
var errReadTimeout = errors.New("genericserial: read timeout")

// DefaultMode is the bootloader's fixed line configuration: 115200 8N1.
var DefaultMode = &serial.Mode{
	BaudRate: 115200,
	DataBits: 8,
	Parity:   serial.NoParity,
	StopBits: serial.OneStopBit,
}

// Transport implements bootproto.SerialTransport over a go.bug.st/serial
// Port.
type Transport struct {
	port serial.Port
}

// Open opens portName with DefaultMode and returns a ready Transport.
func Open(portName string) (*Transport, error) {
	port, err := serial.Open(portName, DefaultMode)
	if err != nil {
		return nil, err
	}
	return &Transport{port: port}, nil
}

// New wraps an already-open Port.
func New(port serial.Port) *Transport {
	return &Transport{port: port}
}

// Close releases the underlying port.
func (t *Transport) Close() error {
	return t.port.Close()
}

// Send writes p in full.
func (t *Transport) Send(p []byte) error {
	_, err := t.port.Write(p)
	return err
}

// Recv fills p in full within timeout. A timeout of 0 blocks
// indefinitely, matching the SerialTransport contract.
func (t *Transport) Recv(p []byte, timeout time.Duration) error {
	if timeout == 0 {
		timeout = serial.NoTimeout
	}
	if err := t.port.SetReadTimeout(timeout); err != nil {
		return err
	}

	for off := 0; off < len(p); {
		n, err := t.port.Read(p[off:])
		if err != nil {
			return err
		}
		if n == 0 {
			return errReadTimeout
		}
		off += n
	}
	return nil
}
