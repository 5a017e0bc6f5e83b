// Command w25qboot-sim runs a real bootproto.Session against an
// in-memory flash chip and drives it with a real bootproto.Client over
// an in-memory pipe, so the whole wire protocol can be exercised and
// demonstrated without any CH347 or flash hardware attached.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	chlog "github.com/charmbracelet/log"

	"github.com/serialflash/w25qboot/bootproto"
	"github.com/serialflash/w25qboot/flash"
	"github.com/serialflash/w25qboot/imageutil"
	"github.com/serialflash/w25qboot/internal/simtransport"
)

func main() {
	imagePath := flag.String("image", "", "Intel HEX or binary image to flash into the simulated chip")
	format := flag.String("format", "hex", "hex or bin")
	base := flag.Uint64("base", 0, "base address for a bin image")
	flag.Parse()

	charm := chlog.NewWithOptions(os.Stderr, chlog.Options{ReportTimestamp: true, TimeFormat: time.DateTime})
	slog.SetDefault(slog.New(charm))

	chip := simtransport.NewChip(flash.W25Q128.TotalSize())
	drv := flash.New(chip, flash.W25Q128)

	deviceSide, hostSide := simtransport.NewPipePair()
	session := bootproto.New(deviceSide, drv)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		if err := session.Run(ctx); err != nil {
			slog.Debug("session stopped", "err", err)
		}
	}()

	client := bootproto.NewClient(hostSide)

	info, err := client.GetInfo()
	if err != nil {
		slog.Error("get info", "err", err)
		os.Exit(1)
	}
	slog.Info("simulated device", "manufacturer", info.Manufacturer, "jedec", info.JEDEC, "capacity", info.Capacity)

	if *imagePath == "" {
		return
	}

	var records []imageutil.Record
	if *format == "bin" {
		records, err = imageutil.LoadBinary(*imagePath, uint32(*base))
	} else {
		records, err = imageutil.LoadIntelHex(*imagePath)
	}
	if err != nil {
		slog.Error("loading image", "err", err)
		os.Exit(1)
	}

	for _, rec := range records {
		for off := 0; off < len(rec.Data); off += bootproto.MaxPayload {
			chunk := rec.Data[off:min(off+bootproto.MaxPayload, len(rec.Data))]
			addr := rec.Address + uint32(off)
			if err := client.Write(addr, chunk); err != nil {
				slog.Error("write", "addr", fmt.Sprintf("0x%06x", addr), "err", err)
				os.Exit(1)
			}
			if err := client.Verify(addr, chunk); err != nil {
				slog.Error("verify", "addr", fmt.Sprintf("0x%06x", addr), "err", err)
				os.Exit(1)
			}
		}
	}
	slog.Info("image flashed and verified", "records", len(records), "bytes", imageutil.TotalSize(records))
}
