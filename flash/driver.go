// Package flash implements a command-layer driver for the Winbond W25Q
// SPI NOR flash family (256-byte program pages, 4 KiB sector erase,
// 64 KiB block erase, chip erase, JEDEC/manufacturer identification,
// power-down/wake, busy-polling).
//
// The driver has no knowledge of the bootloader wire protocol in package
// bootproto; it only knows how to talk to the flash chip over an
// SPITransport. Addresses are a 24-bit byte offset, transmitted
// big-endian, most-significant byte first, immediately after the opcode.
package flash

import "time"

const (
	opReadID       = 0x90
	opReadJEDECID  = 0x9F
	opReadStatus   = 0x05
	opWriteEnable  = 0x06
	opWriteDisable = 0x04
	opRead         = 0x03
	opPageProgram  = 0x02
	opErase4K      = 0x20
	opErase64K     = 0xD8
	opEraseChip    = 0xC7
	opPowerDown    = 0xB9
	opWakeUp       = 0xAB
)

// Driver is an owned descriptor for a single flash device: it borrows an
// SPITransport for the lifetime of the process and carries no other
// mutable state. Create once at boot; the zero value is not usable,
// use New.
type Driver struct {
	spi     SPITransport
	variant Variant
}

// New constructs a Driver around an already-configured SPITransport. It
// does not touch the bus; call Init to bring the device out of reset.
func New(spi SPITransport, variant Variant) *Driver {
	return &Driver{spi: spi, variant: variant}
}

// Variant returns the configured chip variant.
func (d *Driver) Variant() Variant { return d.variant }

// transact asserts CS, writes w (if non-empty), reads into r (if
// non-empty), and always releases CS before returning — even when the
// write or read fails partway through.
func (d *Driver) transact(w, r []byte) error {
	g := acquireCS(d.spi)

	var err error
	if g.err == nil && len(w) > 0 {
		err = d.spi.Write(w)
	}
	if err == nil && g.err == nil && len(r) > 0 {
		err = d.spi.Read(r)
	}

	if relErr := g.release(); err == nil {
		err = relErr
	}
	return transportErr(err)
}

func putAddr24(dst []byte, addr uint32) {
	dst[0] = byte(addr >> 16)
	dst[1] = byte(addr >> 8)
	dst[2] = byte(addr)
}

// ReadID issues opcode 0x90 and returns the manufacturer and device ID.
func (d *Driver) ReadID() (manufacturer, device byte, err error) {
	w := []byte{opReadID, 0, 0, 0}
	r := make([]byte, 2)
	if err = d.transact(w, r); err != nil {
		return 0, 0, err
	}
	return r[0], r[1], nil
}

// ReadJEDECID issues opcode 0x9F and returns (manufacturer, memory type,
// capacity).
func (d *Driver) ReadJEDECID() (id [3]byte, err error) {
	r := make([]byte, 3)
	if err = d.transact([]byte{opReadJEDECID}, r); err != nil {
		return id, err
	}
	copy(id[:], r)
	return id, nil
}

// ReadStatus issues opcode 0x05 and returns the status register.
func (d *Driver) ReadStatus() (Status, error) {
	r := make([]byte, 1)
	if err := d.transact([]byte{opReadStatus}, r); err != nil {
		return 0, err
	}
	return Status(r[0]), nil
}

// WriteEnable issues opcode 0x06. Must be issued immediately before each
// program or erase command; the device clears WEL after that command
// completes.
func (d *Driver) WriteEnable() error {
	return d.transact([]byte{opWriteEnable}, nil)
}

// WriteDisable issues opcode 0x04.
func (d *Driver) WriteDisable() error {
	return d.transact([]byte{opWriteDisable}, nil)
}

// Read reads len(buf) bytes starting at addr with no write-enable and no
// busy-wait: a read from an idle device is unconditional.
func (d *Driver) Read(addr uint32, buf []byte) error {
	w := make([]byte, 4)
	w[0] = opRead
	putAddr24(w[1:], addr)
	return d.transact(w, buf)
}

// ProgramPage programs up to PageSize bytes starting at addr. It rejects
// a buf longer than PageSize, but does not check that addr+len(buf)
// stays within one 256-byte page; the caller (Write) is responsible for
// chunking at page boundaries.
func (d *Driver) ProgramPage(addr uint32, buf []byte) error {
	if len(buf) > PageSize {
		return invalidArgErr(errPageOverrun)
	}

	if err := d.WriteEnable(); err != nil {
		return err
	}

	w := make([]byte, 4+len(buf))
	w[0] = opPageProgram
	putAddr24(w[1:], addr)
	copy(w[4:], buf)
	if err := d.transact(w, nil); err != nil {
		return err
	}

	return d.waitForWriteEnd(BusyTimeout)
}

// Write performs a page-aware multi-page program: the first write extends
// from addr to the next page boundary, subsequent writes are full-page
// until the remainder is shorter than a page. No program ever crosses a
// 256-byte page boundary.
func (d *Driver) Write(addr uint32, buf []byte) error {
	pos := 0
	for pos < len(buf) {
		pageOff := int(addr) % PageSize
		chunk := PageSize - pageOff
		if remaining := len(buf) - pos; chunk > remaining {
			chunk = remaining
		}

		if err := d.ProgramPage(addr, buf[pos:pos+chunk]); err != nil {
			return err
		}

		addr += uint32(chunk)
		pos += chunk
	}
	return nil
}

// EraseSector erases the 4 KiB sector containing addr.
func (d *Driver) EraseSector(addr uint32) error {
	return d.eraseWithOpcode(opErase4K, addr, BusyTimeout)
}

// EraseBlock64K erases the 64 KiB block containing addr.
func (d *Driver) EraseBlock64K(addr uint32) error {
	return d.eraseWithOpcode(opErase64K, addr, BusyTimeout)
}

// EraseChip erases the whole device. Unlike the smaller erases, it polls
// against the variant's chip-erase deadline (tens of seconds to minutes),
// not the fixed BusyTimeout.
func (d *Driver) EraseChip() error {
	if err := d.WriteEnable(); err != nil {
		return err
	}
	if err := d.transact([]byte{opEraseChip}, nil); err != nil {
		return err
	}
	return d.waitForWriteEnd(d.variant.ChipEraseTimeout())
}

func (d *Driver) eraseWithOpcode(op byte, addr uint32, timeout time.Duration) error {
	if err := d.WriteEnable(); err != nil {
		return err
	}

	w := make([]byte, 4)
	w[0] = op
	putAddr24(w[1:], addr)
	if err := d.transact(w, nil); err != nil {
		return err
	}

	return d.waitForWriteEnd(timeout)
}

// PowerDown issues opcode 0xB9.
func (d *Driver) PowerDown() error {
	return d.transact([]byte{opPowerDown}, nil)
}

// WakeUp issues opcode 0xAB and waits at least 1ms before returning, as
// required before any further command.
func (d *Driver) WakeUp() error {
	if err := d.transact([]byte{opWakeUp}, nil); err != nil {
		return err
	}
	time.Sleep(1 * time.Millisecond)
	return nil
}

// Init drives CS high, waits for the device's power-on settle time, and
// wakes it — the sequence run once at boot before any other Driver method
// is used.
func (d *Driver) Init() error {
	if err := d.spi.SetCS(false); err != nil {
		return transportErr(err)
	}
	time.Sleep(100 * time.Millisecond)
	return d.WakeUp()
}

// waitForWriteEnd repeatedly reads the status register until BUSY clears
// or the deadline elapses. It always reads at least once before checking
// the deadline, since the common case completes in microseconds.
func (d *Driver) waitForWriteEnd(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		status, err := d.ReadStatus()
		if err != nil {
			return err
		}
		if !status.Busy() {
			return nil
		}
		if time.Now().After(deadline) {
			return timeoutErr()
		}
	}
}
