package main

import (
	"fmt"
	"time"

	"github.com/sstallion/go-hid"

	"github.com/serfreeman1337/go-ch347"

	"github.com/serialflash/w25qboot/transport/ch347serial"
)

// ch347UARTIface is the CH347's UART HID interface number, per
// go-ch347's documentation.
const ch347UARTIface = 0

// hidWithTimeout overrides Read with ReadWithTimeout, following
// go-ch347's own documented advice: without this, a read with no
// pending data blocks indefinitely instead of giving the bootproto
// layer a chance to time out.
type hidWithTimeout struct {
	*hid.Device
}

func (d *hidWithTimeout) Read(p []byte) (int, error) {
	return d.ReadWithTimeout(p, 1*time.Second)
}

// ch347UARTPath locates the CH347's UART hidraw device by USB VID/PID
// and HID interface number.
func ch347UARTPath() (string, error) {
	const vid, pid = 0x1a86, 0x55dc

	var path string
	err := hid.Enumerate(vid, pid, func(info *hid.DeviceInfo) error {
		if info.InterfaceNbr == ch347UARTIface {
			path = info.Path
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("enumerating CH347 devices: %w", err)
	}
	if path == "" {
		return "", fmt.Errorf("no CH347 found")
	}
	return path, nil
}

// ch347UARTHandle configures dev for 115200 8N1 and returns a
// ch347serial.Transport ready for bootproto.NewClient.
func ch347UARTHandle(dev *hid.Device) *ch347serial.Transport {
	uart := &ch347.UART{Dev: &hidWithTimeout{dev}}
	uart.Set(115200, ch347.UARTDataBits8, ch347.UARTParityNone, ch347.UARTStopBitOne)
	return ch347serial.New(uart)
}
