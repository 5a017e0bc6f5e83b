package periphspi

import (
	"errors"
	"fmt"
	"sync/atomic"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/host/v3"
	"periph.io/x/host/v3/ftdi"
)

var hostInitialized atomic.Bool

// FT232HClock is the default SPI clock used against an FT232H/FT2232H
// MPSSE engine.
const FT232HClock = 30 * physic.MegaHertz

// OpenFT232H finds the first attached FTDI FT232H/FT2232H, configures
// its MPSSE engine for SPI mode 0, and wires ADBUS4 as chip select.
func OpenFT232H() (*Transport, error) {
	if hostInitialized.CompareAndSwap(false, true) {
		if _, err := host.Init(); err != nil {
			return nil, fmt.Errorf("periphspi: host init: %w", err)
		}
	}

	const vendorID = 0x0403
	const ft2232hID, ft232hID = 0x6010, 0x6014

	var dev *ftdi.FT232H
	info := ftdi.Info{}
	for _, d := range ftdi.All() {
		d.Info(&info)
		if info.VenID != vendorID || (info.DevID != ft2232hID && info.DevID != ft232hID) {
			continue
		}
		if ft, ok := d.(*ftdi.FT232H); ok {
			dev = ft
			break
		}
	}
	if dev == nil {
		return nil, errors.New("periphspi: no FT232H/FT2232H found")
	}

	port, err := dev.SPI()
	if err != nil {
		return nil, fmt.Errorf("periphspi: opening SPI port: %w", err)
	}
	conn, err := port.Connect(FT232HClock, spi.Mode0, 8)
	if err != nil {
		return nil, fmt.Errorf("periphspi: connecting: %w", err)
	}

	return New(conn, dev.D4), nil
}
