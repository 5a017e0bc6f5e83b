package flash

// SPITransport is the blocking, full-duplex SPI primitive the driver is
// built on top of. Implementations own the physical bus and the chip-select
// GPIO; CMD_TIMEOUT_MS is enforced inside the
// implementation, not by the driver.
//
// SetCS(true) must drive CS low (asserted); SetCS(false) must release it
// high. Write and Read are only ever called between a SetCS(true) and the
// matching SetCS(false).
type SPITransport interface {
	SetCS(assert bool) error
	Write(p []byte) error
	Read(p []byte) error
}
