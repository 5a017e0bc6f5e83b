// Package ch347spi adapts a CH347 USB-HID converter's SPI interface to
// flash.SPITransport. It is a thin wrapper over go-ch347's IO type: the
// flash package already knows the W25Q wire protocol, this package
// only knows how to move bytes across the CH347's HID packets.
package ch347spi

import "github.com/serfreeman1337/go-ch347"

// Transport implements flash.SPITransport over a CH347 in HIDAPI mode.
// Configure the device's SPI mode/clock/byte order with SetSPI before
// passing a Transport to flash.New.
type Transport struct {
	dev *ch347.IO
}

// New wraps an already SetSPI-configured CH347 IO handle.
func New(dev *ch347.IO) *Transport {
	return &Transport{dev: dev}
}

// SetCS asserts (true) or releases (false) CS0.
func (t *Transport) SetCS(assert bool) error {
	return t.dev.SetCS(assert)
}

// Write sends p as a SPI write-only transaction.
func (t *Transport) Write(p []byte) error {
	return t.dev.SPI(p, nil)
}

// Read clocks len(p) bytes in as a SPI read-only transaction, driving
// MOSI with the CH347's default output byte while capturing MISO.
//
// This HIDAPI packet generation of the CH347 only has a verified
// write path (see go-ch347's IO.SPI); a device that needs to actually
// read flash contents back should use transport/periphspi against an
// FTDI-class adapter instead.
func (t *Transport) Read(p []byte) error {
	return t.dev.SPI(nil, p)
}
