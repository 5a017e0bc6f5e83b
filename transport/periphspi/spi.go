// Package periphspi adapts a periph.io spi.Conn plus a chip-select
// gpio.PinIO to flash.SPITransport. This is the transport for FTDI
// MPSSE-class adapters (FT232H/FT2232H) and any other periph.io host
// driver that exposes a spi.Port, following the wiring in
// periph.io/x/host/v3's ftdi package.
package periphspi

import (
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/spi"
)

// Transport implements flash.SPITransport over a periph.io SPI
// connection with an explicit chip-select pin. CS is assumed
// active-low, the common convention for SPI NOR flash.
type Transport struct {
	conn spi.Conn
	cs   gpio.PinIO
}

// New wraps an already-connected spi.Conn (mode, clock and bit order
// already configured via conn.Connect) and the GPIO pin wired to the
// flash chip's CS line.
func New(conn spi.Conn, cs gpio.PinIO) *Transport {
	return &Transport{conn: conn, cs: cs}
}

// SetCS drives the pin low to assert chip select, high to release it.
func (t *Transport) SetCS(assert bool) error {
	if assert {
		return t.cs.Out(gpio.Low)
	}
	return t.cs.Out(gpio.High)
}

// Write clocks out p with MISO ignored.
func (t *Transport) Write(p []byte) error {
	return t.conn.Tx(p, nil)
}

// Read clocks in len(p) bytes with MOSI held idle.
func (t *Transport) Read(p []byte) error {
	return t.conn.Tx(nil, p)
}
