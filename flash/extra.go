package flash

import "bytes"

// Capacity derives the addressable size in bytes from the JEDEC capacity
// byte (1 << capacityByte), the way
// examples/spi-flash/main.go's Flash.Capacity does. It issues a fresh
// ReadJEDECID rather than trusting the configured Variant, so GET_INFO can
// cross-check the two.
func (d *Driver) Capacity() (int, error) {
	id, err := d.ReadJEDECID()
	if err != nil {
		return 0, err
	}
	return 1 << id[2], nil
}

// VerifyRange reads back len(want) bytes at addr and reports whether they
// match want. It does not distinguish "mismatch" from "transport error"
// in its bool return; callers that need to tell those apart should check
// err first.
func (d *Driver) VerifyRange(addr uint32, want []byte) (bool, error) {
	got := make([]byte, len(want))
	if err := d.Read(addr, got); err != nil {
		return false, err
	}
	return bytes.Equal(got, want), nil
}
