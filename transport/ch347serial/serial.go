// Package ch347serial adapts a CH347 USB-HID converter's UART interface
// to bootproto.SerialTransport.
package ch347serial

import (
	"io"
	"time"

	"github.com/serfreeman1337/go-ch347"
)

// Transport implements bootproto.SerialTransport over a CH347 UART.
//
// The CH347's HIDDev.Read blocks on the underlying HID read call; per
// go-ch347's own documentation, callers are expected to wrap their
// hid.Device with a fixed ReadWithTimeout so an idle line doesn't
// block forever. That timeout is therefore configured once, at the
// HIDDev layer, not per Recv call — the timeout argument Recv receives
// is honored only in the degenerate case of 0 (block indefinitely),
// which is what a HIDDev without an overridden Read already does.
type Transport struct {
	uart *ch347.UART
}

// New wraps an already ch347.UART.Set-configured UART handle.
func New(uart *ch347.UART) *Transport {
	return &Transport{uart: uart}
}

// Send writes p in full.
func (t *Transport) Send(p []byte) error {
	_, err := t.uart.Write(p)
	return err
}

// Recv fills p in full, blocking on the HIDDev's configured read
// timeout for each underlying chunked read.
func (t *Transport) Recv(p []byte, _ time.Duration) error {
	_, err := io.ReadFull(t.uart, p)
	return err
}
