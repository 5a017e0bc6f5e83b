// Command w25qboot is the host-side flashing tool: it drives a
// bootproto.Client over a serial link to a device running the
// bootloader's Session, programming, verifying and erasing the device's
// W25Q SPI NOR flash.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	chlog "github.com/charmbracelet/log"
	"github.com/sstallion/go-hid"
	"github.com/urfave/cli/v2"

	"github.com/serialflash/w25qboot/bootproto"
	"github.com/serialflash/w25qboot/imageutil"
	"github.com/serialflash/w25qboot/transport/ch347serial"
	"github.com/serialflash/w25qboot/transport/genericserial"
)

func main() {
	charm := chlog.NewWithOptions(os.Stderr, chlog.Options{
		ReportTimestamp: true,
		TimeFormat:      time.DateTime,
	})
	slog.SetDefault(slog.New(charm))

	app := &cli.App{
		Name:  "w25qboot",
		Usage: "flash a W25Q SPI NOR device through its UART bootloader",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "transport", Value: "generic", Usage: "generic (go.bug.st/serial) or ch347"},
			&cli.StringFlag{Name: "port", Value: "/dev/ttyUSB0", Usage: "serial port path, used by the generic transport"},
			&cli.BoolFlag{Name: "verbose"},
		},
		Before: func(c *cli.Context) error {
			if c.Bool("verbose") {
				charm.SetLevel(chlog.DebugLevel)
			}
			return nil
		},
		Commands: []*cli.Command{
			infoCmd,
			eraseSectorCmd,
			eraseChipCmd,
			writeCmd,
			verifyCmd,
		},
	}

	if err := app.Run(os.Args); err != nil {
		charm.Fatal(err.Error())
	}
}

// openClient builds a bootproto.Client over whichever transport the
// --transport flag selects.
func openClient(c *cli.Context) (*bootproto.Client, func(), error) {
	switch c.String("transport") {
	case "ch347":
		devPath, err := ch347UARTPath()
		if err != nil {
			return nil, nil, err
		}
		dev, err := hid.OpenPath(devPath)
		if err != nil {
			return nil, nil, fmt.Errorf("opening CH347 UART: %w", err)
		}
		uart := ch347UARTHandle(dev)
		closeFn := func() { dev.Close() }
		return bootproto.NewClient(uart), closeFn, nil
	default:
		t, err := genericserial.Open(c.String("port"))
		if err != nil {
			return nil, nil, fmt.Errorf("opening %s: %w", c.String("port"), err)
		}
		return bootproto.NewClient(t), func() { t.Close() }, nil
	}
}

var infoCmd = &cli.Command{
	Name:  "info",
	Usage: "print the device's manufacturer/device/JEDEC ID and geometry",
	Action: func(c *cli.Context) error {
		client, closeFn, err := openClient(c)
		if err != nil {
			return err
		}
		defer closeFn()

		info, err := client.GetInfo()
		if err != nil {
			return err
		}
		slog.Info("device info",
			"manufacturer", fmt.Sprintf("0x%02x", info.Manufacturer),
			"device", fmt.Sprintf("0x%02x", info.DeviceID),
			"jedec", fmt.Sprintf("%02x %02x %02x", info.JEDEC[0], info.JEDEC[1], info.JEDEC[2]),
			"capacity", info.Capacity,
			"page_size", info.PageSize,
			"sector_size", info.SectorSize,
		)
		return nil
	},
}

var eraseSectorCmd = &cli.Command{
	Name:      "erase-sector",
	Usage:     "erase the 4KiB sector containing addr",
	ArgsUsage: "<addr-hex>",
	Action: func(c *cli.Context) error {
		addr, err := parseHexArg(c.Args().First())
		if err != nil {
			return err
		}
		client, closeFn, err := openClient(c)
		if err != nil {
			return err
		}
		defer closeFn()
		return client.EraseSector(addr)
	},
}

var eraseChipCmd = &cli.Command{
	Name:  "erase-chip",
	Usage: "erase the entire device",
	Action: func(c *cli.Context) error {
		client, closeFn, err := openClient(c)
		if err != nil {
			return err
		}
		defer closeFn()
		slog.Info("erasing chip, this can take a while")
		return client.EraseChip()
	},
}

var writeCmd = &cli.Command{
	Name:      "write",
	Usage:     "write an Intel HEX or binary image to flash",
	ArgsUsage: "<file>",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "format", Value: "hex", Usage: "hex or bin"},
		&cli.Uint64Flag{Name: "base", Value: 0, Usage: "base address for a bin image"},
	},
	Action: func(c *cli.Context) error {
		records, err := loadImage(c)
		if err != nil {
			return err
		}

		client, closeFn, err := openClient(c)
		if err != nil {
			return err
		}
		defer closeFn()

		total := imageutil.TotalSize(records)
		written := 0
		for _, rec := range records {
			for off := 0; off < len(rec.Data); off += bootproto.MaxPayload {
				chunk := rec.Data[off:min(off+bootproto.MaxPayload, len(rec.Data))]
				addr := rec.Address + uint32(off)
				if err := client.Write(addr, chunk); err != nil {
					return fmt.Errorf("writing %d bytes at 0x%06x: %w", len(chunk), addr, err)
				}
				written += len(chunk)
				slog.Info("wrote", "bytes", written, "of", total)
			}
		}
		return nil
	},
}

var verifyCmd = &cli.Command{
	Name:      "verify",
	Usage:     "verify flash contents against an Intel HEX or binary image",
	ArgsUsage: "<file>",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "format", Value: "hex", Usage: "hex or bin"},
		&cli.Uint64Flag{Name: "base", Value: 0, Usage: "base address for a bin image"},
	},
	Action: func(c *cli.Context) error {
		records, err := loadImage(c)
		if err != nil {
			return err
		}

		client, closeFn, err := openClient(c)
		if err != nil {
			return err
		}
		defer closeFn()

		for _, rec := range records {
			for off := 0; off < len(rec.Data); off += bootproto.MaxPayload {
				chunk := rec.Data[off:min(off+bootproto.MaxPayload, len(rec.Data))]
				addr := rec.Address + uint32(off)
				if err := client.Verify(addr, chunk); err != nil {
					return fmt.Errorf("verifying %d bytes at 0x%06x: %w", len(chunk), addr, err)
				}
			}
		}
		slog.Info("verify OK")
		return nil
	},
}

func loadImage(c *cli.Context) ([]imageutil.Record, error) {
	path := c.Args().First()
	if path == "" {
		return nil, fmt.Errorf("missing image file argument")
	}
	if c.String("format") == "bin" {
		return imageutil.LoadBinary(path, uint32(c.Uint64("base")))
	}
	return imageutil.LoadIntelHex(path)
}

func parseHexArg(s string) (uint32, error) {
	var addr uint32
	if _, err := fmt.Sscanf(s, "0x%x", &addr); err != nil {
		if _, err := fmt.Sscanf(s, "%x", &addr); err != nil {
			return 0, fmt.Errorf("invalid address %q", s)
		}
	}
	return addr, nil
}
