package simtransport

import (
	"io"
	"time"
)

// PipeTransport is a bootproto.SerialTransport backed by an io.Pipe.
// Unlike a real UART it cannot time out mid-read; Recv's timeout
// argument is accepted but ignored, since a local pipe either has data
// or the simulation has nothing left to send.
type PipeTransport struct {
	r *io.PipeReader
	w *io.PipeWriter
}

// NewPipePair returns two cross-connected transports: whatever one
// side Sends, the other receives, and vice versa. This lets
// cmd/w25qboot-sim run a real bootproto.Session against a local client
// in the same process.
func NewPipePair() (a, b *PipeTransport) {
	r1, w1 := io.Pipe()
	r2, w2 := io.Pipe()
	return &PipeTransport{r: r1, w: w2}, &PipeTransport{r: r2, w: w1}
}

// Close unblocks any pending Recv by closing the read side of the
// pipe, and closes the write side too.
func (p *PipeTransport) Close() error {
	p.r.Close()
	return p.w.Close()
}

func (p *PipeTransport) Send(b []byte) error {
	_, err := p.w.Write(b)
	return err
}

func (p *PipeTransport) Recv(b []byte, _ time.Duration) error {
	_, err := io.ReadFull(p.r, b)
	return err
}
