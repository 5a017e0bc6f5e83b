// Package simtransport provides in-memory flash.SPITransport and
// bootproto.SerialTransport implementations, used by cmd/w25qboot-sim
// to exercise the whole bootloader stack without a CH347 or a real
// flash chip attached.
package simtransport

// Chip is an honest in-memory W25Q-family SPI NOR flash: it interprets
// the real opcodes flash.Driver issues rather than faking their
// effects, so a Session driven against a Chip behaves identically to
// one driven against real hardware.
type Chip struct {
	mem          []byte
	manufacturer byte
	device       byte
	jedec        [3]byte

	lastOpcode byte
	lastAddr   uint32
}

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

// NewChip builds a size-byte Chip pre-erased to 0xFF, identifying
// itself as a Winbond W25Q128 (manufacturer 0xEF, device 0x17, JEDEC
// EF 40 18).
func NewChip(size int) *Chip {
	mem := make([]byte, size)
	for i := range mem {
		mem[i] = 0xFF
	}
	return &Chip{
		mem:          mem,
		manufacturer: 0xEF,
		device:       0x17,
		jedec:        [3]byte{0xEF, 0x40, 0x18},
	}
}

// Contents returns the chip's backing memory, for inspection by a
// caller that wants to verify what was actually written.
func (c *Chip) Contents() []byte { return c.mem }

func (c *Chip) SetCS(bool) error { return nil }

func (c *Chip) Write(p []byte) error {
	c.lastOpcode = p[0]
	switch p[0] {
	case opRead, opPageProgram, opErase4K, opErase64K:
		c.lastAddr = uint32(p[1])<<16 | uint32(p[2])<<8 | uint32(p[3])
	}
	switch p[0] {
	case opPageProgram:
		copy(c.mem[c.lastAddr:], p[4:])
	case opErase4K:
		c.eraseRange(int(c.lastAddr), 4096)
	case opErase64K:
		c.eraseRange(int(c.lastAddr), 65536)
	case opEraseChip:
		c.eraseRange(0, len(c.mem))
	}
	return nil
}

func (c *Chip) eraseRange(start, n int) {
	for i := 0; i < n && start+i < len(c.mem); i++ {
		c.mem[start+i] = 0xFF
	}
}

func (c *Chip) Read(p []byte) error {
	switch c.lastOpcode {
	case opReadID:
		p[0], p[1] = c.manufacturer, c.device
	case opReadJEDECID:
		copy(p, c.jedec[:])
	case opReadStatus:
		p[0] = 0x00 // the simulated chip never reports BUSY
	case opRead:
		copy(p, c.mem[c.lastAddr:])
	}
	return nil
}
