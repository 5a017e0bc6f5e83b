// Package imageutil loads firmware images for the bootloader host tool.
// Intel HEX is decoded with marcinbor85/gohex and flattened into the
// ordered, contiguous write Records the bootproto client issues WRITE
// commands from; a raw binary image is one Record covering the whole
// file.
package imageutil

import (
	"fmt"
	"os"
	"sort"

	"github.com/marcinbor85/gohex"
)

// Record is one contiguous run of bytes destined for a single flash
// address. Intel HEX files are commonly non-contiguous — a bootloader
// region, a gap, then an application region — so an image is a slice
// of Records rather than one flat buffer.
type Record struct {
	Address uint32
	Data    []byte
}

// LoadIntelHex parses path as an Intel HEX file and returns its data
// segments as address-sorted Records.
func LoadIntelHex(path string) ([]Record, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("imageutil: %w", err)
	}

	mem := gohex.NewMemory()
	if err := mem.ParseIntelHex(string(raw)); err != nil {
		return nil, fmt.Errorf("imageutil: parsing intel hex: %w", err)
	}

	segs := mem.GetDataSegments()
	records := make([]Record, 0, len(segs))
	for _, s := range segs {
		records = append(records, Record{Address: s.Address, Data: s.Data})
	}

	sort.Slice(records, func(i, j int) bool { return records[i].Address < records[j].Address })
	return records, nil
}

// LoadBinary reads path as a flat binary image destined for baseAddr.
func LoadBinary(path string, baseAddr uint32) ([]Record, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("imageutil: %w", err)
	}
	return []Record{{Address: baseAddr, Data: raw}}, nil
}

// TotalSize returns the number of bytes a flashing pass over records
// would write, counting each Record's Data length.
func TotalSize(records []Record) int {
	n := 0
	for _, r := range records {
		n += len(r.Data)
	}
	return n
}
