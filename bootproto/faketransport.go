package bootproto

import (
	"errors"
	"time"
)

// fakeSerial is a deterministic in-memory SerialTransport: Send appends to
// Sent, Recv drains from a preloaded Inbound queue. It never actually
// blocks on real timeouts, which keeps tests fast; a timeout is simulated
// by running out of queued bytes.
type fakeSerial struct {
	Inbound []byte
	Sent    []byte
	pos     int
}

func (f *fakeSerial) feed(p []byte) { f.Inbound = append(f.Inbound, p...) }

func (f *fakeSerial) Send(p []byte) error {
	f.Sent = append(f.Sent, p...)
	return nil
}

func (f *fakeSerial) Recv(p []byte, _ time.Duration) error {
	if f.pos+len(p) > len(f.Inbound) {
		return ErrRecvTimeout
	}
	copy(p, f.Inbound[f.pos:f.pos+len(p)])
	f.pos += len(p)
	return nil
}

var errSimulatedBusFault = errors.New("simulated bus fault")
