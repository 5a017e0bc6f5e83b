package flash

import "time"

// Variant selects the constant table for a specific Winbond W25Q chip.
// Timing and capacity are chip-specific, so the driver carries a small
// per-variant table instead of hard-coding one chip.
type Variant uint8

const (
	// W25Q128 is the 16 MiB part.
	W25Q128 Variant = iota
	// W25Q64 is the 8 MiB part.
	W25Q64
)

// PageSize is the maximum span of a single program command, fixed across
// the W25Q family.
const PageSize = 256

// SectorSize is the granularity of the small erase.
const SectorSize = 4096

// BlockSize is the granularity of the large erase.
const BlockSize = 65536

// CmdTimeout is the per-SPI-transaction budget (enforced by the
// SPITransport implementation, not by Driver itself).
const CmdTimeout = 1000 * time.Millisecond

// BusyTimeout bounds program and sector/block erase busy-polls.
const BusyTimeout = 5 * time.Second

type variantParams struct {
	name             string
	totalSize        int
	capacityByte     byte // third JEDEC ID byte
	chipEraseTimeout time.Duration
}

// params, keyed by Variant. Chip-erase timeouts are from the W25Q128
// and W25Q64 datasheets' AC Electrical Characteristics tCE figures;
// both exceed the 5s BusyTimeout used for smaller operations, which is
// why EraseChip uses ChipEraseTimeout instead of BusyTimeout.
var variants = map[Variant]variantParams{
	W25Q128: {
		name:             "W25Q128",
		totalSize:        16 << 20,
		capacityByte:     0x18,
		chipEraseTimeout: 200 * time.Second,
	},
	W25Q64: {
		name:             "W25Q64",
		totalSize:        8 << 20,
		capacityByte:     0x17,
		chipEraseTimeout: 100 * time.Second,
	},
}

func (v Variant) params() variantParams {
	p, ok := variants[v]
	if !ok {
		return variants[W25Q128]
	}
	return p
}

// TotalSize returns the addressable capacity of the variant in bytes.
func (v Variant) TotalSize() int { return v.params().totalSize }

// ChipEraseTimeout returns the busy-poll deadline used by EraseChip.
func (v Variant) ChipEraseTimeout() time.Duration { return v.params().chipEraseTimeout }

func (v Variant) String() string { return v.params().name }
