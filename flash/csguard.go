package flash

// csGuard centralises the "release CS on every error path" pattern
// Acquire once, release exactly once on every
// exit, regardless of how the transaction in between failed.
type csGuard struct {
	t   SPITransport
	err error
}

func acquireCS(t SPITransport) *csGuard {
	return &csGuard{t: t, err: t.SetCS(true)}
}

// release drives CS high. If acquisition already failed, that error
// takes priority over any error releasing CS.
func (g *csGuard) release() error {
	relErr := g.t.SetCS(false)
	if g.err != nil {
		return g.err
	}
	return relErr
}
