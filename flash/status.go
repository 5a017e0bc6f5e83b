package flash

// Status is the 8-bit value read from the flash status register.
// Only bits 0 and 1 are used by this design.
type Status byte

// Busy reports whether an erase/program operation is in progress.
func (s Status) Busy() bool { return s&0x01 != 0 }

// WriteEnabled reports whether the write-enable latch is armed.
func (s Status) WriteEnabled() bool { return s&0x02 != 0 }
