package bootproto

// fakeChip is a minimal but honest flash.SPITransport: it interprets the
// opcodes the flash package actually issues and answers from an in-memory
// byte array, so Session tests exercise the real flash.Driver rather than
// a stub that only pretends to.
type fakeChip struct {
	mem          []byte
	manufacturer byte
	device       byte
	jedec        [3]byte

	ops        []byte // opcode of every Write call, in order
	lastOpcode byte
	lastAddr   uint32
	busyReads  int // ReadStatus reports BUSY this many times after a program/erase, then clears
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
)

func newFakeChip(size int) *fakeChip {
	mem := make([]byte, size)
	for i := range mem {
		mem[i] = 0xFF
	}
	return &fakeChip{
		mem:          mem,
		manufacturer: 0xEF,
		device:       0x17,
		jedec:        [3]byte{0xEF, 0x40, 0x18},
	}
}

func (c *fakeChip) SetCS(bool) error { return nil }

func (c *fakeChip) Write(p []byte) error {
	c.ops = append(c.ops, p[0])
	c.lastOpcode = p[0]
	switch p[0] {
	case opRead, opPageProgram, opErase4K, opErase64K:
		c.lastAddr = uint32(p[1])<<16 | uint32(p[2])<<8 | uint32(p[3])
	}
	switch p[0] {
	case opPageProgram:
		copy(c.mem[c.lastAddr:], p[4:])
	case opErase4K:
		for i := 0; i < 4096 && int(c.lastAddr)+i < len(c.mem); i++ {
			c.mem[int(c.lastAddr)+i] = 0xFF
		}
	case opErase64K:
		for i := 0; i < 65536 && int(c.lastAddr)+i < len(c.mem); i++ {
			c.mem[int(c.lastAddr)+i] = 0xFF
		}
	case opEraseChip:
		for i := range c.mem {
			c.mem[i] = 0xFF
		}
	}
	return nil
}

func (c *fakeChip) Read(p []byte) error {
	switch c.lastOpcode {
	case opReadID:
		p[0], p[1] = c.manufacturer, c.device
	case opReadJEDECID:
		copy(p, c.jedec[:])
	case opReadStatus:
		if c.busyReads > 0 {
			c.busyReads--
			p[0] = 0x01
		} else {
			p[0] = 0x00
		}
	case opRead:
		copy(p, c.mem[c.lastAddr:])
	}
	return nil
}
